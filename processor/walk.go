package processor

import (
	"go/types"
	"strings"

	"github.com/refaktor/injgen/binding"
	"github.com/refaktor/injgen/keys"
	"github.com/refaktor/injgen/model"
	"github.com/refaktor/injgen/registry"
	"github.com/refaktor/injgen/walktypes"
)

// walker discovers the bindings required by the root packages of one
// round. Keys are visited in FIFO order, so discovery order and thereby
// generation order follow the order of declarations.
type walker struct {
	reg     *registry.Registry
	model   *model.Model
	factory *binding.Factory
	canon   *keys.Canonicalizer

	queue   []keys.Key
	queued  map[keys.ID]bool
	members map[keys.ID]bool // members bindings already visited

	roots []keys.ID
	nodes map[keys.ID]keys.Key
	edges map[keys.ID][]keys.ID
}

func newWalker(reg *registry.Registry, m *model.Model, f *binding.Factory) *walker {
	return &walker{
		reg:     reg,
		model:   m,
		factory: f,
		canon:   f.Canonicalizer(),
		queued:  map[keys.ID]bool{},
		members: map[keys.ID]bool{},
		nodes:   map[keys.ID]keys.Key{},
		edges:   map[keys.ID][]keys.ID{},
	}
}

func (w *walker) node(k keys.Key) keys.ID {
	w.nodes[k.ID()] = k
	return k.ID()
}

func (w *walker) edge(from, to keys.Key) {
	id := w.node(from)
	w.edges[id] = append(w.edges[id], w.node(to))
}

// registerRoots registers the bindings of every injectable type declared
// in pkgPath without reporting notes, then visits them.
func (w *walker) registerRoots(pkgPath string) error {
	for _, n := range w.model.InjectableTypes(pkgPath) {
		var prov *binding.Provision
		switch ctors := w.model.InjectConstructors(n); len(ctors) {
		case 0:
		case 1:
			prov = w.factory.ForInjectConstructor(ctors[0], nil)
			if err := w.reg.RegisterProvisionBinding(prov); err != nil {
				return err
			}
			w.roots = append(w.roots, w.node(prov.Key()))
		default:
			names := make([]string, len(ctors))
			for i, c := range ctors {
				names[i] = c.FullName()
			}
			return &registry.ConsistencyError{
				Key:    w.canon.Key(n, ""),
				Err:    registry.ErrMultipleInjectConstructors,
				Detail: strings.Join(names, ", "),
			}
		}

		// Registered before the provision is visited, so that its lookup
		// finds the cached binding instead of reporting a note.
		mi := w.factory.ForInjectedType(n, nil)
		if mi.Strategy() != binding.StrategyNone {
			if err := w.reg.RegisterMembersInjectionBinding(mi); err != nil {
				return err
			}
			w.roots = append(w.roots, w.node(mi.Key()))
		}

		if prov != nil {
			if err := w.visitProvision(prov); err != nil {
				return err
			}
		}
		if mi.Strategy() != binding.StrategyNone {
			if err := w.visitMembers(mi); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *walker) push(from keys.Key, deps []binding.Dependency) {
	for _, dep := range deps {
		w.edge(from, dep.Key)
		if w.queued[dep.Key.ID()] {
			continue
		}
		w.queued[dep.Key.ID()] = true
		w.queue = append(w.queue, dep.Key)
	}
}

func (w *walker) visitProvision(b *binding.Provision) error {
	w.push(b.Key(), b.Dependencies())
	if mk, ok := b.MembersInjectionKey(); ok {
		w.edge(b.Key(), mk)
		return w.requireMembers(mk)
	}
	return nil
}

func (w *walker) visitMembers(b *binding.MembersInjection) error {
	if w.members[b.Key().ID()] {
		return nil
	}
	w.members[b.Key().ID()] = true
	w.push(b.Key(), b.Dependencies())
	if pk, ok := b.ParentKey(); ok && b.Strategy() == binding.StrategyDelegateToParent {
		w.edge(b.Key(), pk)
		return w.requireMembers(pk)
	}
	return nil
}

// requireMembers makes sure the members injector for key gets generated.
// Keys still mentioning type parameters come from generic declarations;
// they cannot be looked up, so the templates of the type and its parents
// are registered directly.
func (w *walker) requireMembers(key keys.Key) error {
	seen := map[*types.TypeName]bool{}
	for generic(key) {
		named, ok := key.Named()
		if !ok || seen[named.Origin().Obj()] || !w.model.Indexed(named.Obj().Pkg()) {
			return nil
		}
		seen[named.Origin().Obj()] = true

		b := w.factory.ForInjectedType(named.Origin(), nil)
		if err := w.reg.RegisterMembersInjectionBinding(b); err != nil {
			return err
		}
		if w.members[b.Key().ID()] {
			return nil
		}
		w.members[b.Key().ID()] = true
		w.push(b.Key(), b.Dependencies())

		pk, ok := b.ParentKey()
		if !ok || b.Strategy() != binding.StrategyDelegateToParent {
			return nil
		}
		w.edge(b.Key(), pk)
		key = pk
	}

	b, err := w.reg.GetOrFindMembersInjectionBinding(key)
	if err != nil {
		return err
	}
	return w.visitMembers(b)
}

// drain resolves queued dependency keys until none are left.
func (w *walker) drain() error {
	for len(w.queue) > 0 {
		key := w.queue[0]
		w.queue = w.queue[1:]

		if generic(key) {
			continue
		}
		b, err := w.reg.GetOrFindProvisionBinding(key)
		if err != nil {
			return err
		}
		if b == nil {
			continue
		}
		if err := w.visitProvision(b); err != nil {
			return err
		}
	}
	return nil
}

// generic reports whether key still has free type parameters, either as
// an uninstantiated generic type or in its type arguments.
func generic(key keys.Key) bool {
	if n, ok := key.Named(); ok && n.TypeParams().Len() > n.TypeArgs().Len() {
		return true
	}
	return walktypes.ContainsTypeParam(key.Type())
}

func (w *walker) edgesOf(id keys.ID) []keys.ID { return w.edges[id] }
