package keys

import (
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"testing"

	"github.com/stretchr/testify/require"
)

func checkSource(t *testing.T, src string) *types.Package {
	t.Helper()
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "keys.go", src, parser.SkipObjectResolution)
	require.NoError(t, err)
	conf := &types.Config{GoVersion: "go1.24"}
	pkg, err := conf.Check("example.com/app", fset, []*ast.File{f}, nil)
	require.NoError(t, err)
	return pkg
}

func TestCanonicalizer(t *testing.T) {
	require := require.New(t)

	pkg := checkSource(t, `package app

type Box[T any] struct{ V T }

type MyInt = int

type Service struct{}

var boxInt Box[int]
var boxAlias Box[MyInt]
var ptrSvc *Service
var svcs []Service
`)
	lookup := func(name string) types.Type { return pkg.Scope().Lookup(name).Type() }

	c := NewCanonicalizer(nil)

	// Aliases nested inside type arguments are resolved.
	a := c.Key(lookup("boxInt"), "")
	b := c.Key(lookup("boxAlias"), "")
	require.True(a.Equal(b))
	require.Equal("example.com/app.Box[int]", a.ID().Type)

	// Qualifiers are part of the identity.
	q := c.Key(lookup("boxInt"), "primary")
	require.False(a.Equal(q))
	require.Equal(`"primary" example.com/app.Box[int]`, q.String())

	// Pointer keys name their element.
	p := c.Key(lookup("ptrSvc"), "")
	require.True(p.IsPointer())
	named, ok := p.Named()
	require.True(ok)
	require.Equal("Service", named.Obj().Name())

	// Slices are not named types.
	_, ok = c.Key(lookup("svcs"), "").Named()
	require.False(ok)

	// The origin of a generic type prints its type parameters.
	origin := lookup("boxInt").(*types.Named).Origin()
	require.Equal("example.com/app.Box[T any]", c.Key(origin, "").ID().Type)
}

func TestCanonicalizerStableAcrossLoads(t *testing.T) {
	src := `package app

type Service struct{}

var svc *Service
`
	// Two independent type-checks yield distinct *types.Named values
	// for the same declaration.
	first := checkSource(t, src).Scope().Lookup("svc").Type()
	second := checkSource(t, src).Scope().Lookup("svc").Type()
	require.NotSame(t, first.(*types.Pointer), second.(*types.Pointer))

	k1 := NewCanonicalizer(nil).Key(first, "")
	k2 := NewCanonicalizer(nil).Key(second, "")
	require.Equal(t, k1.ID(), k2.ID())
}

func TestCompare(t *testing.T) {
	pkg := checkSource(t, `package app

type A struct{}
type B struct{}
`)
	c := NewCanonicalizer(nil)
	a := c.Key(pkg.Scope().Lookup("A").Type(), "")
	aq := c.Key(pkg.Scope().Lookup("A").Type(), "x")
	b := c.Key(pkg.Scope().Lookup("B").Type(), "")
	require.Equal(t, -1, Compare(a, b))
	require.Equal(t, 1, Compare(b, a))
	require.Equal(t, -1, Compare(a, aq))
	require.Equal(t, 0, Compare(a, a))
}
