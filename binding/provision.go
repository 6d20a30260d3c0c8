package binding

import (
	"fmt"
	"go/types"

	"github.com/refaktor/injgen/keys"
	"github.com/refaktor/injgen/walktypes"
)

// Provision provides a value of its key's type by calling an inject
// constructor.
type Provision struct {
	key            keys.Key
	declared       *types.Named
	constructor    *types.Func
	signature      *types.Signature // instantiated for instantiations
	typeArgs       []types.Type
	deps           []Dependency
	returnsPointer bool
	returnsError   bool
	membersKey     keys.Key // zero unless the type has injection sites
	unresolved     *Provision
}

var _ Binding = (*Provision)(nil)

func (b *Provision) Kind() Kind                 { return KindProvision }
func (b *Provision) Key() keys.Key              { return b.key }
func (b *Provision) DeclaredType() *types.Named { return b.declared }
func (b *Provision) Dependencies() []Dependency { return b.deps }

// Constructor returns the inject constructor as declared.
func (b *Provision) Constructor() *types.Func { return b.constructor }

// Signature returns the constructor signature, with type arguments
// substituted for instantiations.
func (b *Provision) Signature() *types.Signature { return b.signature }

// TypeArgs returns the type arguments of an instantiation, or nil.
func (b *Provision) TypeArgs() []types.Type { return b.typeArgs }

func (b *Provision) ReturnsPointer() bool { return b.returnsPointer }
func (b *Provision) ReturnsError() bool   { return b.returnsError }

// MembersInjectionKey returns the members injection key of the provided
// type if constructed values must also have their members injected.
func (b *Provision) MembersInjectionKey() (keys.Key, bool) {
	return b.membersKey, !b.membersKey.IsZero()
}

func (b *Provision) Form() Form {
	if b.unresolved != nil {
		return Instantiation
	}
	return Template
}

func (b *Provision) HasTypeParams() bool {
	if b.unresolved == nil {
		return b.signature.TypeParams().Len() > 0
	}
	return walktypes.ContainsTypeParam(b.declared)
}

// Unresolved returns the template an instantiation was built from.
func (b *Provision) Unresolved() (*Provision, bool) {
	return b.unresolved, b.unresolved != nil
}

// Equal reports whether both bindings describe the same provision.
// Constructors are compared by name, since objects are not stable across
// package loads.
func (b *Provision) Equal(o *Provision) bool {
	if b == o {
		return true
	}
	if b == nil || o == nil {
		return false
	}
	return b.key.Equal(o.key) &&
		b.Form() == o.Form() &&
		b.constructor.FullName() == o.constructor.FullName() &&
		b.returnsPointer == o.returnsPointer &&
		b.returnsError == o.returnsError &&
		b.membersKey.Equal(o.membersKey) &&
		equalDeps(b.deps, o.deps)
}

func (b *Provision) String() string {
	return fmt.Sprintf("%v %v binding for %v via %v", b.Form(), b.Kind(), b.key, b.constructor.FullName())
}
