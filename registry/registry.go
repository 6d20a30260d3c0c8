/*
Package registry discovers implicit bindings on demand and schedules the
generation of their artifacts.

A [Registry] is used in passes. Every pass works on the types of a single
package load: [Registry.BeginPass] hands it the model, binding factory and
artifact oracle of that load, and [Registry.EndPass] drops everything that
refers to them. Within a pass, lookups discover and cache bindings, and
[Registry.GenerateSourcesForRequiredBindings] drains the worklists.

A Registry is not safe for concurrent use.
*/
package registry

import (
	"go/types"
	"strings"

	"github.com/rs/zerolog"

	"github.com/refaktor/injgen/binding"
	"github.com/refaktor/injgen/diag"
	"github.com/refaktor/injgen/keys"
	"github.com/refaktor/injgen/logging"
)

// Model answers questions about the declared types of one package load.
type Model interface {
	IsValidImplicitProvisionKey(k keys.Key) bool
	IsValidMembersInjectionKey(k keys.Key) bool
	InjectConstructors(n *types.Named) []*types.Func
}

// Factory builds bindings.
type Factory interface {
	ForInjectConstructor(ctor *types.Func, resolved *types.Named) *binding.Provision
	ForInjectedType(declared, resolved *types.Named) *binding.MembersInjection
}

// Pass holds the collaborators of a single pass.
type Pass struct {
	Round   int
	Model   Model
	Factory Factory
	Oracle  Oracle
}

type Registry struct {
	provisions   *Collection[*binding.Provision]
	members      *Collection[*binding.MembersInjection]
	pass         *Pass
	warnImplicit bool
	log          zerolog.Logger
}

type Option func(*Registry)

// WithLogger sets the logger used for debug output.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// WithImplicitWarnings enables or disables the note reported whenever an
// artifact is generated on behalf of a lookup. Enabled by default.
func WithImplicitWarnings(enabled bool) Option {
	return func(r *Registry) { r.warnImplicit = enabled }
}

func New(reporter diag.Reporter, opts ...Option) *Registry {
	r := &Registry{warnImplicit: true, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	if reporter == nil {
		reporter = diag.Discard
	}
	r.provisions = newCollection[*binding.Provision](reporter, r.log.With().Stringer("kind", binding.KindProvision).Logger())
	r.members = newCollection[*binding.MembersInjection](reporter, r.log.With().Stringer("kind", binding.KindMembersInjection).Logger())
	return r
}

// BeginPass starts a pass, resetting all caches, worklists and
// materialized keys.
func (r *Registry) BeginPass(p Pass) error {
	if r.pass != nil {
		return ErrPassActive
	}
	if p.Model == nil || p.Factory == nil || p.Oracle == nil {
		panic("programmer error: registry.BeginPass: incomplete pass")
	}
	r.pass = &p
	r.provisions.reset(p.Oracle)
	r.members.reset(p.Oracle)
	r.log.Debug().Int(logging.FieldRound, p.Round).Msg("begin pass")
	return nil
}

// EndPass ends the current pass and drops all cached bindings. Pending
// and materialized bindings stay readable until the next pass begins.
func (r *Registry) EndPass() error {
	if r.pass == nil {
		return ErrNoActivePass
	}
	r.log.Debug().
		Int(logging.FieldRound, r.pass.Round).
		Int("pending", len(r.provisions.pending)+len(r.members.pending)).
		Msg("end pass")
	clear(r.provisions.byKey)
	clear(r.members.byKey)
	r.pass = nil
	return nil
}

// Active reports whether a pass is in progress.
func (r *Registry) Active() bool { return r.pass != nil }

func (r *Registry) Provisions() *Collection[*binding.Provision]             { return r.provisions }
func (r *Registry) MembersInjections() *Collection[*binding.MembersInjection] { return r.members }

func (r *Registry) registerProvision(b *binding.Provision, warn bool) error {
	return r.provisions.Register(b, binding.ArtifactNameFor(b), warn && r.warnImplicit)
}

// RegisterProvisionBinding registers b without reporting a note. Used for
// types whose packages are processed explicitly.
func (r *Registry) RegisterProvisionBinding(b *binding.Provision) error {
	if r.pass == nil {
		return ErrNoActivePass
	}
	return r.registerProvision(b, false)
}

// GetOrFindProvisionBinding returns the provision binding for key, or nil
// if no implicit binding exists for it.
func (r *Registry) GetOrFindProvisionBinding(key keys.Key) (*binding.Provision, error) {
	if r.pass == nil {
		return nil, ErrNoActivePass
	}
	if !r.pass.Model.IsValidImplicitProvisionKey(key) {
		return nil, nil
	}
	if b, ok := r.provisions.Get(key); ok {
		return b, nil
	}

	named, _ := key.Named()
	ctors := r.pass.Model.InjectConstructors(named)
	switch len(ctors) {
	case 0:
		return nil, nil
	case 1:
		b := r.pass.Factory.ForInjectConstructor(ctors[0], named)
		if !b.Key().Equal(key) {
			// The constructor provides T where *T was asked for, or the
			// other way around.
			r.log.Debug().
				Str(logging.FieldKey, key.String()).
				Str(logging.FieldBinding, b.String()).
				Msg("constructor result does not match key")
			return nil, nil
		}
		if err := r.registerProvision(b, true); err != nil {
			return nil, err
		}
		return b, nil
	default:
		names := make([]string, len(ctors))
		for i, c := range ctors {
			names[i] = c.FullName()
		}
		return nil, &ConsistencyError{
			Key:    key,
			Err:    ErrMultipleInjectConstructors,
			Detail: strings.Join(names, ", "),
		}
	}
}

func (r *Registry) registerMembers(b *binding.MembersInjection, warn bool) error {
	return r.members.Register(b, binding.ArtifactNameFor(b), warn && r.warnImplicit)
}

// RegisterMembersInjectionBinding registers b without reporting a note.
// Parents are not resolved.
func (r *Registry) RegisterMembersInjectionBinding(b *binding.MembersInjection) error {
	if r.pass == nil {
		return ErrNoActivePass
	}
	return r.registerMembers(b, false)
}

// findMembers builds and registers the binding for a key known to be
// valid and not cached.
func (r *Registry) findMembers(key keys.Key) (*binding.MembersInjection, error) {
	named, _ := key.Named()
	b := r.pass.Factory.ForInjectedType(named.Origin(), named)

	// Only note generated injectors the user could have asked for
	// directly: those of constructible types with sites, and those of
	// other types with sites of their own.
	var warn bool
	switch len(r.pass.Model.InjectConstructors(named)) {
	case 0:
		warn = b.HasLocalInjectionSites()
	case 1:
		warn = len(b.InjectionSites()) > 0
	}
	if err := r.registerMembers(b, warn); err != nil {
		return nil, err
	}
	return b, nil
}

// GetOrFindMembersInjectionBinding returns the members injection binding
// for key, discovering and registering it and, for bindings delegating to
// their parent, the bindings of the whole parent chain.
func (r *Registry) GetOrFindMembersInjectionBinding(key keys.Key) (*binding.MembersInjection, error) {
	if r.pass == nil {
		return nil, ErrNoActivePass
	}
	if !r.pass.Model.IsValidMembersInjectionKey(key) {
		return nil, &ConsistencyError{Key: key, Err: ErrInvalidMembersInjectionKey}
	}
	if b, ok := r.members.Get(key); ok {
		return b, nil
	}

	first, err := r.findMembers(key)
	if err != nil {
		return nil, err
	}

	seen := map[keys.ID]bool{key.ID(): true}
	for cur := first; cur.Strategy() == binding.StrategyDelegateToParent; {
		pk, ok := cur.ParentKey()
		if !ok {
			break
		}
		if seen[pk.ID()] {
			return nil, &ConsistencyError{Key: key, Err: ErrCyclicParentChain, Detail: pk.String()}
		}
		seen[pk.ID()] = true

		if _, ok := r.members.Get(pk); ok {
			// Its own parents were resolved when it was cached.
			break
		}
		if !r.pass.Model.IsValidMembersInjectionKey(pk) {
			return nil, &ConsistencyError{Key: pk, Err: ErrInvalidMembersInjectionKey, Detail: "parent of " + cur.Key().String()}
		}
		cur, err = r.findMembers(pk)
		if err != nil {
			return nil, err
		}
	}
	return first, nil
}

// GenerateSourcesForRequiredBindings drains the provision worklist through
// factoryGen, then the members injection worklist through injectorGen. The
// first error aborts generation and is returned unchanged.
func (r *Registry) GenerateSourcesForRequiredBindings(
	factoryGen Generator[*binding.Provision],
	injectorGen Generator[*binding.MembersInjection],
) error {
	if r.pass == nil {
		return ErrNoActivePass
	}
	if err := r.provisions.Generate(factoryGen); err != nil {
		return err
	}
	return r.members.Generate(injectorGen)
}
