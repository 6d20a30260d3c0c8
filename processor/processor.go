/*
Package processor drives injgen in rounds.

Every round loads the configured packages, builds a fresh model of the
main module, registers the bindings of the root packages, walks their
dependencies through the registry's lazy lookups and generates the
artifacts the registry scheduled. Rounds repeat until one generates
nothing, since generated files change the packages the next round sees.
*/
package processor

import (
	"context"
	"errors"
	"fmt"
	"go/types"
	"maps"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/tools/go/packages"

	"github.com/refaktor/injgen/binding"
	"github.com/refaktor/injgen/config"
	"github.com/refaktor/injgen/diag"
	"github.com/refaktor/injgen/digraphutils"
	"github.com/refaktor/injgen/gen"
	"github.com/refaktor/injgen/keys"
	"github.com/refaktor/injgen/loader"
	"github.com/refaktor/injgen/logging"
	"github.com/refaktor/injgen/model"
	"github.com/refaktor/injgen/pkgutils"
	"github.com/refaktor/injgen/registry"
)

var (
	ErrInvalidDirectives = errors.New("invalid inject directives")
	ErrMaxRounds         = errors.New("still generating after the maximum number of rounds")
)

type Processor struct {
	cfg      *config.Config
	log      zerolog.Logger
	reporter *countingReporter
	registry *registry.Registry
	filer    gen.Filer
	dirs     map[string]string // shared with a DirFiler
	runID    string
}

func New(cfg *config.Config, log zerolog.Logger, reporter diag.Reporter) *Processor {
	if reporter == nil {
		reporter = diag.Discard
	}
	runID := uuid.NewString()
	log = log.With().Str(logging.FieldRunID, runID).Logger()
	p := &Processor{
		cfg:      cfg,
		log:      logging.Component(log, "processor"),
		reporter: &countingReporter{Reporter: reporter},
		dirs:     map[string]string{},
		runID:    runID,
	}
	p.registry = registry.New(p.reporter,
		registry.WithLogger(logging.Component(log, "registry")),
		registry.WithImplicitWarnings(cfg.WarnImplicit),
	)
	if cfg.Output.DryRun {
		p.filer = gen.NewMemFiler()
	} else {
		p.filer = gen.NewDirFiler(p.dirs)
	}
	return p
}

func (p *Processor) RunID() string { return p.runID }

// Filer returns the filer receiving generated files. For dry runs it is a
// [*gen.MemFiler].
func (p *Processor) Filer() gen.Filer { return p.filer }

// Run processes rounds until one generates nothing.
func (p *Processor) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	sum := &Summary{RunID: p.runID}
	defer func() {
		sum.Files = p.filer.Written()
		sum.Notes = p.reporter.count(diag.Note)
		sum.Warnings = p.reporter.count(diag.Warning)
		sum.Errors = p.reporter.count(diag.Error)
		sum.Duration = time.Since(start)
	}()

	modulePath, err := loader.ModulePath(p.cfg.Dir)
	if err != nil {
		return sum, err
	}
	lc := &loader.Config{
		Dir:             p.cfg.Dir,
		PackagePatterns: p.cfg.Packages,
		Env:             p.cfg.Env,
		BuildFlags:      p.cfg.BuildFlags,
	}

	for round := 1; round <= p.cfg.MaxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.Rounds = round

		pkgs, err := loader.Load(ctx, lc)
		if err != nil {
			return sum, fmt.Errorf("round %v: %w", round, err)
		}
		n, err := p.Round(round, pkgs, modulePath)
		if err != nil {
			return sum, fmt.Errorf("round %v: %w", round, err)
		}
		if n == 0 {
			return sum, nil
		}
	}
	p.reporter.Report(diag.Warning, fmt.Sprintf("Stopped after %v rounds with artifacts still being generated.", p.cfg.MaxRounds))
	return sum, ErrMaxRounds
}

// Round runs one round over pkgs, whose root packages are processed
// explicitly. Only packages of the module modulePath are indexed. Round
// returns the number of files written.
func (p *Processor) Round(round int, pkgs []*packages.Package, modulePath string) (int, error) {
	start := time.Now()
	log := p.log.With().Int(logging.FieldRound, round).Logger()

	inModule := func(path string) bool { return pkgutils.InModule(path, modulePath) }
	m := model.FromPackages(pkgs, inModule)
	if errs := m.Errors(); len(errs) > 0 {
		for _, e := range errs {
			p.reporter.Report(diag.Error, e.Error())
		}
		return 0, fmt.Errorf("%w (%v)", ErrInvalidDirectives, len(errs))
	}

	var all []*packages.Package
	packages.Visit(pkgs, nil, func(pkg *packages.Package) {
		if inModule(pkg.PkgPath) {
			all = append(all, pkg)
		}
	})
	maps.Copy(p.dirs, loader.PackageDirs(all))

	factory := binding.NewFactory(m, keys.NewCanonicalizer(types.NewContext()))
	if err := p.registry.BeginPass(registry.Pass{
		Round:   round,
		Model:   m,
		Factory: factory,
		Oracle:  gen.NewOracle(m.Package, p.filer),
	}); err != nil {
		return 0, err
	}
	before := len(p.filer.Written())
	err := p.pass(m, factory, pkgs, inModule)
	if endErr := p.registry.EndPass(); err == nil {
		err = endErr
	}
	n := len(p.filer.Written()) - before

	log.Info().
		Int("files", n).
		Int("materialized", len(p.registry.Provisions().Materialized())+len(p.registry.MembersInjections().Materialized())).
		Dur(logging.FieldDuration, time.Since(start)).
		Err(err).
		Msg("round done")
	return n, err
}

func (p *Processor) pass(m *model.Model, factory *binding.Factory, pkgs []*packages.Package, inModule func(string) bool) error {
	w := newWalker(p.registry, m, factory)
	for _, pkg := range pkgs {
		if !inModule(pkg.PkgPath) {
			p.log.Debug().Str(logging.FieldPackage, pkg.PkgPath).Msg("skipping package outside the main module")
			continue
		}
		if err := w.registerRoots(pkg.PkgPath); err != nil {
			return err
		}
	}
	if err := w.drain(); err != nil {
		return err
	}
	if p.cfg.DebugGraph != "" {
		if err := p.writeGraph(w); err != nil {
			return err
		}
	}

	suffix := p.cfg.Output.Suffix
	return p.registry.GenerateSourcesForRequiredBindings(
		&gen.FactoryGenerator{Filer: p.filer, Suffix: suffix, Log: logging.Component(p.log, "gen")},
		&gen.MembersInjectorGenerator{Filer: p.filer, Suffix: suffix, Log: logging.Component(p.log, "gen")},
	)
}

// writeGraph writes the keys reachable from the root bindings as a DOT
// graph.
func (p *Processor) writeGraph(w *walker) error {
	nodes := digraphutils.Reachable(w.roots, w.edgesOf)
	src := digraphutils.DOTCode(nodes, w.edgesOf, "injgen", "rankdir=LR\nnode [shape=box]", func(id keys.ID) string {
		return w.nodes[id].String()
	})
	if err := os.WriteFile(p.cfg.DebugGraph, src, 0666); err != nil {
		return fmt.Errorf("write debug graph: %w", err)
	}
	p.log.Debug().Str(logging.FieldFile, p.cfg.DebugGraph).Int("nodes", len(nodes)).Msg("wrote debug graph")
	return nil
}
