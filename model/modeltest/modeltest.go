// Package modeltest type-checks in-memory Go sources into a [model.Model]
// for tests.
package modeltest

import (
	"fmt"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/refaktor/injgen/model"
)

// Source is a single-file package.
type Source struct {
	Path string
	Src  string
}

// Program is a set of type-checked packages and the model indexing them.
type Program struct {
	Fset     *token.FileSet
	Context  *types.Context
	Packages map[string]*types.Package
	Files    map[string]*ast.File
	Model    *model.Model
}

type importerFunc func(path string) (*types.Package, error)

func (f importerFunc) Import(path string) (*types.Package, error) { return f(path) }

// Load type-checks srcs in order; a package may only import packages
// listed before it, or the standard library. Every package is indexed.
func Load(t testing.TB, srcs ...Source) *Program {
	t.Helper()

	p := &Program{
		Fset:     token.NewFileSet(),
		Context:  types.NewContext(),
		Packages: map[string]*types.Package{},
		Files:    map[string]*ast.File{},
		Model:    model.New(),
	}
	std := importer.ForCompiler(p.Fset, "source", nil)
	imp := importerFunc(func(path string) (*types.Package, error) {
		if pkg, ok := p.Packages[path]; ok {
			return pkg, nil
		}
		return std.Import(path)
	})

	for _, src := range srcs {
		f, err := parser.ParseFile(p.Fset, src.Path+"/src.go", src.Src, parser.SkipObjectResolution|parser.ParseComments)
		require.NoError(t, err, "parse %v", src.Path)

		conf := &types.Config{
			Context:   p.Context,
			GoVersion: "go1.24",
			Importer:  imp,
		}
		info := &types.Info{
			Defs:  map[*ast.Ident]types.Object{},
			Uses:  map[*ast.Ident]types.Object{},
			Types: map[ast.Expr]types.TypeAndValue{},
		}
		pkg, err := conf.Check(src.Path, p.Fset, []*ast.File{f}, info)
		require.NoError(t, err, "type-check %v", src.Path)

		p.Packages[src.Path] = pkg
		p.Files[src.Path] = f
		p.Model.AddFiles(p.Fset, pkg, info, []*ast.File{f})
	}
	return p
}

// Object looks up a package-level object.
func (p *Program) Object(t testing.TB, path, name string) types.Object {
	t.Helper()
	pkg, ok := p.Packages[path]
	require.True(t, ok, "package %v not loaded", path)
	obj := pkg.Scope().Lookup(name)
	require.NotNil(t, obj, "%v.%v not found", path, name)
	return obj
}

// Named looks up a package-level named type.
func (p *Program) Named(t testing.TB, path, name string) *types.Named {
	t.Helper()
	n, ok := p.Object(t, path, name).Type().(*types.Named)
	require.True(t, ok, "%v.%v is not a named type", path, name)
	return n
}

// Func looks up a package-level function.
func (p *Program) Func(t testing.TB, path, name string) *types.Func {
	t.Helper()
	fn, ok := p.Object(t, path, name).(*types.Func)
	require.True(t, ok, "%v.%v is not a function", path, name)
	return fn
}

// Instantiate instantiates the generic type path.name with args.
func (p *Program) Instantiate(t testing.TB, path, name string, args ...types.Type) *types.Named {
	t.Helper()
	inst, err := types.Instantiate(p.Context, p.Named(t, path, name), args, true)
	require.NoError(t, err)
	return inst.(*types.Named)
}

// Basic returns the predeclared type with the given name (e.g. "int").
func Basic(name string) types.Type {
	obj := types.Universe.Lookup(name)
	if obj == nil {
		panic(fmt.Sprintf("no predeclared type %q", name))
	}
	return obj.Type()
}
