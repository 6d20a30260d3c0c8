package binding

import (
	"fmt"
	"go/types"
	"strconv"

	"github.com/refaktor/injgen/keys"
	"github.com/refaktor/injgen/model"
)

// Factory builds bindings for the types of a single package load.
type Factory struct {
	model *model.Model
	canon *keys.Canonicalizer
}

func NewFactory(m *model.Model, canon *keys.Canonicalizer) *Factory {
	return &Factory{model: m, canon: canon}
}

func (f *Factory) Canonicalizer() *keys.Canonicalizer { return f.canon }

func paramName(name string, i int) string {
	if name == "" || name == "_" {
		return "arg" + strconv.Itoa(i)
	}
	return name
}

func checkResolved(origin, resolved *types.Named) {
	if resolved.Origin().Obj() != origin.Obj() {
		panic(fmt.Sprintf("programmer error: %v is not an instantiation of %v", resolved, origin))
	}
}

// ForInjectConstructor builds the provision binding of an inject
// constructor. If resolved is an instantiation of the constructed type,
// the result is an instantiation whose template is built from ctor as
// declared; otherwise the result is the template.
func (f *Factory) ForInjectConstructor(ctor *types.Func, resolved *types.Named) *Provision {
	tmpl := f.provision(ctor, ctor.Signature(), nil, nil)
	if resolved == nil || resolved.TypeArgs().Len() == 0 {
		return tmpl
	}
	checkResolved(tmpl.declared, resolved)

	args := typeArgs(resolved)
	inst, err := types.Instantiate(f.canon.Context(), ctor.Signature(), args, true)
	if err != nil {
		panic(fmt.Sprintf("programmer error: instantiate %v with %v: %v", ctor.FullName(), resolved, err))
	}
	return f.provision(ctor, inst.(*types.Signature), args, tmpl)
}

func (f *Factory) provision(ctor *types.Func, sig *types.Signature, args []types.Type, tmpl *Provision) *Provision {
	res := sig.Results()
	b := &Provision{
		constructor:  ctor,
		signature:    sig,
		typeArgs:     args,
		returnsError: res.Len() == 2,
		unresolved:   tmpl,
	}

	t := types.Unalias(res.At(0).Type())
	if p, ok := t.(*types.Pointer); ok {
		b.returnsPointer = true
		t = types.Unalias(p.Elem())
	}
	named, ok := t.(*types.Named)
	if !ok {
		panic(fmt.Sprintf("programmer error: inject constructor %v does not return a named type", ctor.FullName()))
	}
	if tmpl == nil {
		// Templates are keyed by the generic origin, so every template
		// of a declaration shares one key.
		named = named.Origin()
	}
	b.declared = named

	var keyType types.Type = named
	if b.returnsPointer {
		keyType = types.NewPointer(named)
	}
	b.key = f.canon.Key(keyType, "")

	params := sig.Params()
	for i := range params.Len() {
		b.deps = append(b.deps, Dependency{
			Name: paramName(params.At(i).Name(), i),
			Key:  f.canon.Key(params.At(i).Type(), ""),
		})
	}

	if f.hasInjectionSites(named) {
		b.membersKey = f.canon.Key(named, "")
	}
	return b
}

// hasInjectionSites reports whether n or any of its parents declare
// injection sites.
func (f *Factory) hasInjectionSites(n *types.Named) bool {
	seen := map[*types.TypeName]bool{}
	for cur := n; cur != nil && !seen[cur.Origin().Obj()]; {
		seen[cur.Origin().Obj()] = true
		if len(f.model.LocalInjectionSites(cur)) > 0 {
			return true
		}
		parent, _, ok := f.model.Parent(cur)
		if !ok {
			break
		}
		cur = parent
	}
	return false
}

// ForInjectedType builds the members injection binding of declared. If
// resolved is an instantiation of declared, the result is an
// instantiation whose template is built from declared's origin;
// otherwise the result is the template.
func (f *Factory) ForInjectedType(declared, resolved *types.Named) *MembersInjection {
	tmpl := f.members(declared.Origin(), nil)
	if resolved == nil || resolved.TypeArgs().Len() == 0 {
		return tmpl
	}
	checkResolved(tmpl.declared, resolved)
	return f.members(resolved, tmpl)
}

func (f *Factory) sites(n *types.Named, path []string) []InjectionSite {
	var res []InjectionSite
	for _, s := range f.model.LocalInjectionSites(n) {
		site := InjectionSite{Kind: s.Kind, Name: s.Name, Path: path, Variadic: s.Variadic}
		for i, p := range s.Params {
			site.Dependencies = append(site.Dependencies, Dependency{
				Name: paramName(p.Name, i),
				Key:  f.canon.Key(p.Type, s.Qualifier),
			})
		}
		res = append(res, site)
	}
	return res
}

func (f *Factory) members(n *types.Named, tmpl *MembersInjection) *MembersInjection {
	b := &MembersInjection{
		key:        f.canon.Key(n, ""),
		declared:   n,
		unresolved: tmpl,
		local:      f.sites(n, nil),
	}
	if tmpl != nil {
		b.typeArgs = typeArgs(n)
	}

	// Walk up the embedding chain, collecting the sites of every parent.
	var inherited [][]InjectionSite
	var chain []string // embedded field names; site paths are capped prefixes
	seen := map[keys.ID]bool{b.key.ID(): true}
	for cur := n; ; {
		parent, field, ok := f.model.Parent(cur)
		if !ok {
			break
		}
		pk := f.canon.Key(parent, "")
		if seen[pk.ID()] {
			break
		}
		seen[pk.ID()] = true
		chain = append(chain, field)
		path := chain[:len(chain):len(chain)]
		if cur == n {
			b.parentKey = pk
			b.parentField = field
		}
		inherited = append(inherited, f.sites(parent, path))
		cur = parent
	}

	nInherited := 0
	for i := len(inherited) - 1; i >= 0; i-- {
		b.sites = append(b.sites, inherited[i]...)
		nInherited += len(inherited[i])
	}
	b.sites = append(b.sites, b.local...)

	switch {
	case len(b.sites) == 0:
		b.strategy = StrategyNone
	case nInherited > 0 && !b.parentKey.IsZero():
		b.strategy = StrategyDelegateToParent
	default:
		b.strategy = StrategyLocalOnly
	}
	return b
}
