/*
Package keys canonicalizes requests for injection.

A [Key] is "a type, optionally qualified". Keys created for the same logical
type compare equal through their [ID], no matter which *types.Type value they
were created from: aliases are resolved at every level and packages are
rendered by their full path.
*/
package keys

import (
	"go/types"
	"strconv"

	"github.com/refaktor/injgen/walktypes"
)

// ID is the comparable identity of a [Key].
type ID struct {
	Type      string
	Qualifier string
}

// Key is an immutable request for an injectable type.
// The zero Key is invalid.
type Key struct {
	id  ID
	typ types.Type
}

// ID returns the identity used for equality and map lookups.
func (k Key) ID() ID { return k.id }

// Type returns the normalized type the key was created from.
func (k Key) Type() types.Type { return k.typ }

// Qualifier returns the qualifier, or "" for unqualified keys.
func (k Key) Qualifier() string { return k.id.Qualifier }

// IsZero reports whether k is the zero Key.
func (k Key) IsZero() bool { return k.typ == nil }

// Equal reports whether both keys denote the same canonical request.
func (k Key) Equal(o Key) bool { return k.id == o.id }

// Named returns the named type denoted by the key, stripping a single pointer
// indirection. It returns false for any other kind of type.
func (k Key) Named() (*types.Named, bool) {
	t := types.Unalias(k.typ)
	if p, ok := t.(*types.Pointer); ok {
		t = types.Unalias(p.Elem())
	}
	n, ok := t.(*types.Named)
	return n, ok
}

// IsPointer reports whether the key requests a pointer type.
func (k Key) IsPointer() bool {
	_, ok := types.Unalias(k.typ).(*types.Pointer)
	return ok
}

func (k Key) String() string {
	if k.id.Qualifier == "" {
		return k.id.Type
	}
	return strconv.Quote(k.id.Qualifier) + " " + k.id.Type
}

// Compare orders keys by type string, then qualifier.
func Compare(a, b Key) int {
	if a.id.Type != b.id.Type {
		if a.id.Type < b.id.Type {
			return -1
		}
		return 1
	}
	if a.id.Qualifier != b.id.Qualifier {
		if a.id.Qualifier < b.id.Qualifier {
			return -1
		}
		return 1
	}
	return 0
}

// Canonicalizer creates keys. Its caches are keyed by *types.Type
// identity, so a Canonicalizer must not outlive the package load its
// types came from.
type Canonicalizer struct {
	ctxt      *types.Context
	normCache map[types.Type]types.Type
	nameCache map[types.Type]string
}

// NewCanonicalizer creates a new [Canonicalizer]. ctxt is used to
// re-instantiate generic types and may be nil.
func NewCanonicalizer(ctxt *types.Context) *Canonicalizer {
	if ctxt == nil {
		ctxt = types.NewContext()
	}
	return &Canonicalizer{
		ctxt:      ctxt,
		normCache: map[types.Type]types.Type{},
		nameCache: map[types.Type]string{},
	}
}

// Context returns the type context used for instantiation.
func (c *Canonicalizer) Context() *types.Context { return c.ctxt }

// Qualifier renders every package by its full import path.
func Qualifier(pkg *types.Package) string { return pkg.Path() }

// Normalized returns t with all aliases resolved. Cached.
func (c *Canonicalizer) Normalized(t types.Type) types.Type {
	if n, ok := c.normCache[t]; ok {
		return n
	}
	n := walktypes.Unalias(c.ctxt, t)
	c.normCache[t] = n
	return n
}

// TypeString returns the canonical string of t. Cached.
func (c *Canonicalizer) TypeString(t types.Type) string {
	if s, ok := c.nameCache[t]; ok {
		return s
	}
	s := types.TypeString(c.Normalized(t), Qualifier)
	c.nameCache[t] = s
	return s
}

// Key returns the key for t with the given qualifier.
func (c *Canonicalizer) Key(t types.Type, qualifier string) Key {
	if t == nil {
		panic("programmer error: keys.Canonicalizer.Key called with nil type")
	}
	return Key{
		id:  ID{Type: c.TypeString(t), Qualifier: qualifier},
		typ: c.Normalized(t),
	}
}
