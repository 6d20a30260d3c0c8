// Package loader loads and type-checks the packages injgen works on.
package loader

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/mod/modfile"
	"golang.org/x/tools/go/packages"
)

var (
	ErrPackages = errors.New("packages had errors")
	ErrNoModule = errors.New("no go.mod found")
)

// maxReportedErrors bounds the package errors included in a load error.
const maxReportedErrors = 10

type Config struct {
	// Directory to run the build tool in
	Dir string
	// Packages to load
	PackagePatterns []string
	// Additional env vars (e.g. "GOOS=...", "GOARCH=...", "CGO_ENABLED=..." etc.)
	Env []string
	// Additional build flags (e.g. "-tags=...")
	BuildFlags []string
}

func loadPackagesStep(ctx context.Context, c *Config, pc *packages.Config) ([]*packages.Package, error) {
	pc.Context = ctx
	pc.Dir = c.Dir
	// NOTE: Ensure we always fully clone any slices here!
	pc.Env = append(os.Environ(), c.Env...)
	pc.BuildFlags = append(slices.Clone(c.BuildFlags), pc.BuildFlags...)

	pkgs, err := packages.Load(pc, c.PackagePatterns...)
	if err != nil {
		return nil, err
	}

	var errs []string
	n := 0
	packages.Visit(pkgs, nil, func(p *packages.Package) {
		// "imported and not used" errors are soft and can safely be ignored.
		p.Errors = slices.DeleteFunc(p.Errors, func(err packages.Error) bool {
			return err.Kind == packages.TypeError &&
				strings.HasSuffix(err.Msg, " imported and not used")
		})
		for _, err := range p.Errors {
			n++
			if len(errs) < maxReportedErrors {
				errs = append(errs, err.Error())
			}
		}
	})
	if n > 0 {
		msg := strings.Join(errs, "\n")
		if n > len(errs) {
			msg += fmt.Sprintf("\n(and %v more)", n-len(errs))
		}
		return nil, fmt.Errorf("%w:\n%v", ErrPackages, msg)
	}
	return pkgs, nil
}

// ResolvePatterns only resolves the given package patterns
// and returns the sorted base package paths.
func ResolvePatterns(ctx context.Context, c *Config) ([]string, error) {
	pkgs, err := loadPackagesStep(ctx, c, &packages.Config{
		Mode: packages.NeedName,
	})
	if err != nil {
		return nil, err
	}

	var res []string
	for _, pkg := range pkgs {
		res = append(res, pkg.PkgPath)
	}
	slices.Sort(res)
	return res, nil
}

// Load fully loads and type-checks the packages and all of their
// dependencies. Comments are kept, since directives live in doc comments.
func Load(ctx context.Context, c *Config) ([]*packages.Package, error) {
	return loadPackagesStep(ctx, c, &packages.Config{
		Mode: packages.LoadAllSyntax,
		ParseFile: func(fset *token.FileSet, filename string, src []byte) (*ast.File, error) {
			return parser.ParseFile(fset, filename, src, parser.SkipObjectResolution|parser.ParseComments)
		},
	})
}

// PackageDirs maps the path of every root package to its directory.
func PackageDirs(pkgs []*packages.Package) map[string]string {
	res := map[string]string{}
	for _, p := range pkgs {
		files := p.GoFiles
		if len(files) == 0 {
			files = p.CompiledGoFiles
		}
		if len(files) > 0 {
			res[p.PkgPath] = filepath.Dir(files[0])
		}
	}
	return res
}

// ModulePath returns the path of the module containing dir, read from the
// closest go.mod in dir or one of its parents.
func ModulePath(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		data, err := os.ReadFile(filepath.Join(dir, "go.mod"))
		if err == nil {
			path := modfile.ModulePath(data)
			if path == "" {
				return "", fmt.Errorf("%v: no module directive", filepath.Join(dir, "go.mod"))
			}
			return path, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNoModule
		}
		dir = parent
	}
}
