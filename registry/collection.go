package registry

import (
	"fmt"
	"maps"
	"slices"

	"github.com/rs/zerolog"

	"github.com/refaktor/injgen/binding"
	"github.com/refaktor/injgen/diag"
	"github.com/refaktor/injgen/keys"
	"github.com/refaktor/injgen/logging"
)

// Resolvable is a binding which may be an instantiation of a template of
// the same type.
type Resolvable[B any] interface {
	binding.Binding
	Unresolved() (B, bool)
	Equal(B) bool
}

// Generator turns one binding into a generated artifact.
type Generator[B binding.Binding] interface {
	Generate(b B) error
}

// GeneratorFunc adapts a function to a [Generator].
type GeneratorFunc[B binding.Binding] func(b B) error

func (f GeneratorFunc[B]) Generate(b B) error { return f(b) }

// Oracle reports whether an artifact already exists, either from an
// earlier round, written by hand or generated earlier in this one.
type Oracle interface {
	Exists(name binding.ArtifactName) bool
}

// Collection caches bindings of a single kind by key and keeps a FIFO
// worklist of bindings requiring generation.
type Collection[B Resolvable[B]] struct {
	byKey        map[keys.ID]B
	pending      []B
	materialized map[keys.ID]bool
	matOrder     []keys.Key

	oracle   Oracle
	reporter diag.Reporter
	log      zerolog.Logger
}

func newCollection[B Resolvable[B]](reporter diag.Reporter, log zerolog.Logger) *Collection[B] {
	c := &Collection[B]{reporter: reporter, log: log}
	c.reset(nil)
	return c
}

func (c *Collection[B]) reset(oracle Oracle) {
	c.byKey = map[keys.ID]B{}
	c.pending = nil
	c.materialized = map[keys.ID]bool{}
	c.matOrder = nil
	c.oracle = oracle
}

// Get returns the cached binding for key.
func (c *Collection[B]) Get(key keys.Key) (B, bool) {
	b, ok := c.byKey[key.ID()]
	return b, ok
}

// Register caches b and enqueues it for generation if needed. For an
// instantiation, its template is enqueued instead, so one artifact serves
// every instantiation.
func (c *Collection[B]) Register(b B, name binding.ArtifactName, warn bool) error {
	if err := c.tryToCache(b); err != nil {
		return err
	}
	c.tryToGenerate(b, name, warn)
	if tmpl, ok := b.Unresolved(); ok {
		c.tryToGenerate(tmpl, name, warn)
	}
	return nil
}

// tryToCache stores b unless it still mentions type parameters, in which
// case it cannot be the answer to any lookup. The first cached binding for
// a key stays cached; lookups keep returning it.
func (c *Collection[B]) tryToCache(b B) error {
	if b.HasTypeParams() {
		return nil
	}
	id := b.Key().ID()
	if prev, ok := c.byKey[id]; ok {
		if !prev.Equal(b) {
			return &ConsistencyError{
				Key:    b.Key(),
				Err:    ErrConflictingBinding,
				Detail: fmt.Sprintf("couldn't register %v: %v was already registered", b, prev),
			}
		}
		return nil
	}
	c.byKey[id] = b
	c.log.Debug().Str(logging.FieldKey, b.Key().String()).Msg("cached")
	return nil
}

func (c *Collection[B]) shouldGenerate(b B, name binding.ArtifactName) bool {
	return b.Form() == binding.Template &&
		!c.materialized[b.Key().ID()] &&
		!slices.ContainsFunc(c.pending, b.Equal) &&
		!c.oracle.Exists(name)
}

func (c *Collection[B]) tryToGenerate(b B, name binding.ArtifactName, warn bool) {
	if !c.shouldGenerate(b, name) {
		return
	}
	c.pending = append(c.pending, b)
	c.log.Debug().
		Str(logging.FieldKey, b.Key().String()).
		Stringer(logging.FieldArtifact, name).
		Msg("enqueued")
	if warn {
		c.reporter.Report(diag.Note, fmt.Sprintf(
			"Generating %v for %v. Prefer to run injgen over package %v instead.",
			name.Name, b.DeclaredType().Origin().Obj().Name(), name.PkgPath))
	}
}

// Generate drains the worklist in FIFO order. Generator errors are
// returned unchanged; the failing binding stays unmaterialized. After a
// complete drain the cache is cleared, since the types it refers to do
// not outlive the package load.
func (c *Collection[B]) Generate(gen Generator[B]) error {
	for len(c.pending) > 0 {
		b := c.pending[0]
		var zero B
		c.pending[0] = zero
		c.pending = c.pending[1:]

		if b.Form() != binding.Template {
			return &ConsistencyError{Key: b.Key(), Err: ErrUnresolvedBinding, Detail: b.String()}
		}
		if err := gen.Generate(b); err != nil {
			return err
		}
		c.materialized[b.Key().ID()] = true
		c.matOrder = append(c.matOrder, b.Key())
	}
	clear(c.byKey)
	return nil
}

// Pending returns the bindings awaiting generation in queue order.
func (c *Collection[B]) Pending() []B { return slices.Clone(c.pending) }

// Materialized returns the keys generated in this pass, in generation
// order.
func (c *Collection[B]) Materialized() []keys.Key { return slices.Clone(c.matOrder) }

func (c *Collection[B]) IsMaterialized(key keys.Key) bool { return c.materialized[key.ID()] }

// Cached returns all cached bindings sorted by key.
func (c *Collection[B]) Cached() []B {
	return slices.SortedFunc(maps.Values(c.byKey), func(a, b B) int {
		return keys.Compare(a.Key(), b.Key())
	})
}
