package binding

import (
	"fmt"
	"go/types"
	"slices"

	"github.com/refaktor/injgen/keys"
	"github.com/refaktor/injgen/model"
	"github.com/refaktor/injgen/walktypes"
)

// Strategy tells a members injector how to treat inherited sites.
type Strategy uint8

const (
	// StrategyNone means there is nothing to inject.
	StrategyNone Strategy = iota
	// StrategyLocalOnly injects only sites the type declares itself.
	StrategyLocalOnly
	// StrategyDelegateToParent first delegates to the parent's injector,
	// then injects local sites.
	StrategyDelegateToParent
)

func (s Strategy) String() string {
	switch s {
	case StrategyNone:
		return "none"
	case StrategyLocalOnly:
		return "local only"
	case StrategyDelegateToParent:
		return "delegate to parent"
	default:
		panic("invalid strategy")
	}
}

// InjectionSite is a field or method receiving injected values.
type InjectionSite struct {
	Kind model.SiteKind
	Name string
	// Path lists the embedded fields leading from the injected type to the
	// type declaring the site. It is empty for local sites.
	Path         []string
	Dependencies []Dependency
	// Variadic is set for methods whose last parameter is variadic.
	Variadic bool
}

// Equal reports whether both sites inject the same keys into the same
// member.
func (s InjectionSite) Equal(o InjectionSite) bool {
	return s.Kind == o.Kind &&
		s.Name == o.Name &&
		s.Variadic == o.Variadic &&
		slices.Equal(s.Path, o.Path) &&
		equalDeps(s.Dependencies, o.Dependencies)
}

// MembersInjection injects fields and methods of an existing value.
type MembersInjection struct {
	key         keys.Key
	declared    *types.Named
	typeArgs    []types.Type
	sites       []InjectionSite // inherited first, root-most parent first
	local       []InjectionSite
	parentKey   keys.Key
	parentField string
	strategy    Strategy
	unresolved  *MembersInjection
}

var _ Binding = (*MembersInjection)(nil)

func (b *MembersInjection) Kind() Kind                 { return KindMembersInjection }
func (b *MembersInjection) Key() keys.Key              { return b.key }
func (b *MembersInjection) DeclaredType() *types.Named { return b.declared }
func (b *MembersInjection) Strategy() Strategy         { return b.strategy }

// TypeArgs returns the type arguments of an instantiation, or nil.
func (b *MembersInjection) TypeArgs() []types.Type { return b.typeArgs }

// InjectionSites returns all sites, inherited ones first.
func (b *MembersInjection) InjectionSites() []InjectionSite { return b.sites }

// LocalInjectionSites returns the sites the type declares itself.
func (b *MembersInjection) LocalInjectionSites() []InjectionSite { return b.local }

func (b *MembersInjection) HasLocalInjectionSites() bool { return len(b.local) > 0 }

// ParentKey returns the members injection key of the embedded parent.
func (b *MembersInjection) ParentKey() (keys.Key, bool) {
	return b.parentKey, !b.parentKey.IsZero()
}

// ParentField returns the name of the embedded field holding the parent,
// or "".
func (b *MembersInjection) ParentField() string { return b.parentField }

// Dependencies returns the dependencies of all sites, inherited ones
// first.
func (b *MembersInjection) Dependencies() []Dependency {
	var deps []Dependency
	for _, s := range b.sites {
		deps = append(deps, s.Dependencies...)
	}
	return deps
}

func (b *MembersInjection) Form() Form {
	if b.unresolved != nil {
		return Instantiation
	}
	return Template
}

func (b *MembersInjection) HasTypeParams() bool {
	if b.unresolved == nil {
		return b.declared.TypeParams().Len() > 0
	}
	return walktypes.ContainsTypeParam(b.declared)
}

// Unresolved returns the template an instantiation was built from.
func (b *MembersInjection) Unresolved() (*MembersInjection, bool) {
	return b.unresolved, b.unresolved != nil
}

func (b *MembersInjection) Equal(o *MembersInjection) bool {
	if b == o {
		return true
	}
	if b == nil || o == nil {
		return false
	}
	return b.key.Equal(o.key) &&
		b.Form() == o.Form() &&
		b.strategy == o.strategy &&
		b.parentKey.Equal(o.parentKey) &&
		b.parentField == o.parentField &&
		slices.EqualFunc(b.sites, o.sites, InjectionSite.Equal)
}

func (b *MembersInjection) String() string {
	return fmt.Sprintf("%v %v binding for %v (%v sites, %v)", b.Form(), b.Kind(), b.key, len(b.sites), b.strategy)
}
