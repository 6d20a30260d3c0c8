/*
Package binding defines the immutable binding values injgen discovers and the
[Factory] that builds them from the semantic model.

A binding is either a [Template] or an [Instantiation]. A template is built
from a declaration as written; for generic types its key and dependencies
mention the declaration's type parameters. An instantiation is built for a
concrete type argument list and points back at its template through
Unresolved. Both share one generated artifact: the template's.
*/
package binding

import (
	"go/types"
	"slices"

	"github.com/refaktor/injgen/keys"
)

type Kind uint8

const (
	KindProvision Kind = iota
	KindMembersInjection
)

func (k Kind) String() string {
	switch k {
	case KindProvision:
		return "provision"
	case KindMembersInjection:
		return "members injection"
	default:
		panic("invalid binding kind")
	}
}

type Form uint8

const (
	Template Form = iota
	Instantiation
)

func (f Form) String() string {
	switch f {
	case Template:
		return "template"
	case Instantiation:
		return "instantiation"
	default:
		panic("invalid binding form")
	}
}

// Dependency is a single key a binding requests, named after the
// parameter or field it is injected into.
type Dependency struct {
	Name string
	Key  keys.Key
}

func equalDeps(a, b []Dependency) bool {
	return slices.EqualFunc(a, b, func(x, y Dependency) bool {
		return x.Name == y.Name && x.Key.Equal(y.Key)
	})
}

// Binding is implemented by [*Provision] and [*MembersInjection].
type Binding interface {
	Kind() Kind
	Key() keys.Key
	// DeclaredType is the generic origin for templates and the
	// instantiated type for instantiations.
	DeclaredType() *types.Named
	Form() Form
	// HasTypeParams reports whether the binding still mentions type
	// parameters. Such a binding is never a valid lookup result.
	HasTypeParams() bool
	Dependencies() []Dependency
	String() string
}

func typeArgs(n *types.Named) []types.Type {
	args := n.TypeArgs()
	res := make([]types.Type, args.Len())
	for i := range args.Len() {
		res[i] = args.At(i)
	}
	return res
}
