package registry

import (
	"errors"
	"fmt"
	"go/types"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/refaktor/injgen/binding"
	"github.com/refaktor/injgen/diag"
	"github.com/refaktor/injgen/keys"
	"github.com/refaktor/injgen/model/modeltest"
)

const pkg = "example.com/app"

const appSrc = `package app

type Logger struct{}

type A struct {
	Log *Logger ` + "`inject:\"\"`" + `
}

type B struct {
	A
	Other *Logger ` + "`inject:\"other\"`" + `
}

//injgen:inject
func NewB(l *Logger) *B { return nil }

type Mid struct {
	A
}

type Plain struct{}

type Service struct{}

//injgen:inject
func NewService() *Service { return nil }

type Twice struct{}

//injgen:inject
func NewTwice() *Twice { return nil }

//injgen:inject
func NewTwiceToo() *Twice { return nil }

type HTTPServer struct{}

//injgen:inject
func NewHTTPServer() HTTPServer { return HTTPServer{} }

type Box[T any] struct {
	Value T ` + "`inject:\"\"`" + `
}

//injgen:inject
func NewBox[T any](v T) *Box[T] { return nil }
`

type oracle map[binding.ArtifactName]bool

func (o oracle) Exists(name binding.ArtifactName) bool { return o[name] }

type fixture struct {
	p       *modeltest.Program
	canon   *keys.Canonicalizer
	factory *binding.Factory
	rec     *diag.Recorder
	oracle  oracle
	reg     *Registry
}

func newFixture(t *testing.T, src string, opts ...Option) *fixture {
	t.Helper()
	p := modeltest.Load(t, modeltest.Source{Path: pkg, Src: src})
	require.Empty(t, p.Model.Errors())
	canon := keys.NewCanonicalizer(p.Context)
	f := &fixture{
		p:       p,
		canon:   canon,
		factory: binding.NewFactory(p.Model, canon),
		rec:     &diag.Recorder{},
		oracle:  oracle{},
	}
	f.reg = New(f.rec, opts...)
	require.NoError(t, f.beginPass(1))
	return f
}

func (f *fixture) beginPass(round int) error {
	return f.reg.BeginPass(Pass{Round: round, Model: f.p.Model, Factory: f.factory, Oracle: f.oracle})
}

func (f *fixture) key(t *testing.T, name string) keys.Key {
	return f.canon.Key(f.p.Named(t, pkg, name), "")
}

func (f *fixture) ptrKey(t *testing.T, name string) keys.Key {
	return f.canon.Key(types.NewPointer(f.p.Named(t, pkg, name)), "")
}

func keyStrings[B binding.Binding](bs []B) []string {
	var res []string
	for _, b := range bs {
		res = append(res, b.Key().String())
	}
	return res
}

func keyIDs(ks []keys.Key) []string {
	var res []string
	for _, k := range ks {
		res = append(res, k.String())
	}
	return res
}

// generators records generated keys and fails for keys listed in fail.
type generators struct {
	generated []string
	fail      map[string]error
}

func (g *generators) generate(b binding.Binding) error {
	if err := g.fail[b.Key().String()]; err != nil {
		return err
	}
	g.generated = append(g.generated, b.Key().String())
	return nil
}

func (g *generators) factories() Generator[*binding.Provision] {
	return GeneratorFunc[*binding.Provision](func(b *binding.Provision) error { return g.generate(b) })
}

func (g *generators) injectors() Generator[*binding.MembersInjection] {
	return GeneratorFunc[*binding.MembersInjection](func(b *binding.MembersInjection) error { return g.generate(b) })
}

func TestPassLifecycle(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, appSrc)

	require.True(f.reg.Active())
	require.ErrorIs(f.beginPass(2), ErrPassActive)
	require.NoError(f.reg.EndPass())
	require.False(f.reg.Active())
	require.ErrorIs(f.reg.EndPass(), ErrNoActivePass)

	_, err := f.reg.GetOrFindProvisionBinding(f.ptrKey(t, "Service"))
	require.ErrorIs(err, ErrNoActivePass)
	_, err = f.reg.GetOrFindMembersInjectionBinding(f.key(t, "A"))
	require.ErrorIs(err, ErrNoActivePass)
	require.ErrorIs(f.reg.RegisterProvisionBinding(nil), ErrNoActivePass)
	require.ErrorIs(f.reg.RegisterMembersInjectionBinding(nil), ErrNoActivePass)
	var g generators
	require.ErrorIs(f.reg.GenerateSourcesForRequiredBindings(g.factories(), g.injectors()), ErrNoActivePass)

	require.Panics(func() { _ = f.reg.BeginPass(Pass{}) })
}

func TestProvisionZeroConstructors(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, appSrc)

	for range 2 {
		b, err := f.reg.GetOrFindProvisionBinding(f.ptrKey(t, "Plain"))
		require.NoError(err)
		require.Nil(b)
	}
	require.Empty(f.reg.Provisions().Cached())
	require.Empty(f.reg.Provisions().Pending())
	require.Empty(f.rec.Diagnostics)
}

func TestProvisionInvalidKeys(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, appSrc)

	for _, k := range []keys.Key{
		f.canon.Key(f.p.Named(t, pkg, "Service"), "qualified"),
		f.canon.Key(modeltest.Basic("int"), ""),
		f.key(t, "Box"),
	} {
		b, err := f.reg.GetOrFindProvisionBinding(k)
		require.NoError(err)
		require.Nil(b, "%v", k)
	}
	require.Empty(f.reg.Provisions().Pending())
}

func TestProvisionSingleConstructor(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, appSrc)
	key := f.ptrKey(t, "Service")

	b, err := f.reg.GetOrFindProvisionBinding(key)
	require.NoError(err)
	require.NotNil(b)
	require.True(b.Key().Equal(key))
	require.Equal([]string{"*example.com/app.Service"}, keyStrings(f.reg.Provisions().Pending()))
	require.Equal([]string{
		"Generating ServiceFactory for Service. Prefer to run injgen over package example.com/app instead.",
	}, f.rec.Messages(diag.Note))

	again, err := f.reg.GetOrFindProvisionBinding(key)
	require.NoError(err)
	require.Same(b, again)
	require.Len(f.reg.Provisions().Pending(), 1)
	require.Len(f.rec.Diagnostics, 1)
}

func TestProvisionResultShapeMismatch(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, appSrc)

	b, err := f.reg.GetOrFindProvisionBinding(f.ptrKey(t, "HTTPServer"))
	require.NoError(err)
	require.Nil(b)

	b, err = f.reg.GetOrFindProvisionBinding(f.key(t, "HTTPServer"))
	require.NoError(err)
	require.NotNil(b)
}

func TestProvisionMultipleConstructors(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, appSrc)

	b, err := f.reg.GetOrFindProvisionBinding(f.ptrKey(t, "Twice"))
	require.Nil(b)
	require.ErrorIs(err, ErrMultipleInjectConstructors)
	var cErr *ConsistencyError
	require.True(errors.As(err, &cErr))
	require.Contains(cErr.Detail, "example.com/app.NewTwice")
	require.Contains(cErr.Detail, "example.com/app.NewTwiceToo")
	require.Empty(f.reg.Provisions().Cached())
	require.Empty(f.reg.Provisions().Pending())
}

func TestConflictingBindings(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, appSrc)

	first := f.factory.ForInjectConstructor(f.p.Func(t, pkg, "NewTwice"), nil)
	second := f.factory.ForInjectConstructor(f.p.Func(t, pkg, "NewTwiceToo"), nil)

	require.NoError(f.reg.RegisterProvisionBinding(first))
	// Registering an equal binding again is fine.
	require.NoError(f.reg.RegisterProvisionBinding(f.factory.ForInjectConstructor(f.p.Func(t, pkg, "NewTwice"), nil)))

	err := f.reg.RegisterProvisionBinding(second)
	require.ErrorIs(err, ErrConflictingBinding)
	var cErr *ConsistencyError
	require.True(errors.As(err, &cErr))
	require.True(cErr.Key.Equal(first.Key()))
	require.Contains(err.Error(), "NewTwiceToo")
	require.Contains(err.Error(), "NewTwice ")

	cached, ok := f.reg.Provisions().Get(first.Key())
	require.True(ok)
	require.Same(first, cached)
	require.Len(f.reg.Provisions().Pending(), 1)
}

func TestGenericProvisionIdempotent(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, appSrc)

	boxInt := f.canon.Key(types.NewPointer(f.p.Instantiate(t, pkg, "Box", modeltest.Basic("int"))), "")
	b, err := f.reg.GetOrFindProvisionBinding(boxInt)
	require.NoError(err)
	require.Equal(binding.Instantiation, b.Form())

	// Only the template is queued; the instantiation is cached.
	require.Equal([]string{"*example.com/app.Box[T any]"}, keyStrings(f.reg.Provisions().Pending()))
	require.Equal([]string{"*example.com/app.Box[int]"}, keyStrings(f.reg.Provisions().Cached()))

	require.NoError(f.reg.RegisterProvisionBinding(b))
	require.Len(f.reg.Provisions().Pending(), 1)

	// Another instantiation shares the template.
	boxStr := f.canon.Key(types.NewPointer(f.p.Instantiate(t, pkg, "Box", modeltest.Basic("string"))), "")
	_, err = f.reg.GetOrFindProvisionBinding(boxStr)
	require.NoError(err)
	require.Len(f.reg.Provisions().Pending(), 1)
	require.Len(f.reg.Provisions().Cached(), 2)
	require.Len(f.rec.Messages(diag.Note), 1)
}

func TestOracleSuppressesGeneration(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, appSrc)
	f.oracle[binding.ArtifactName{PkgPath: pkg, Name: "ServiceFactory"}] = true

	b, err := f.reg.GetOrFindProvisionBinding(f.ptrKey(t, "Service"))
	require.NoError(err)
	require.NotNil(b)
	require.Empty(f.reg.Provisions().Pending())
	require.Len(f.reg.Provisions().Cached(), 1)
	require.Empty(f.rec.Diagnostics)
}

func TestMembersInjectionParentChain(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, appSrc)

	b, err := f.reg.GetOrFindMembersInjectionBinding(f.key(t, "B"))
	require.NoError(err)
	require.Equal(binding.StrategyDelegateToParent, b.Strategy())
	require.Equal([]string{
		"example.com/app.B",
		"example.com/app.A",
	}, keyStrings(f.reg.MembersInjections().Pending()))
	require.Equal([]string{
		"Generating BMembersInjector for B. Prefer to run injgen over package example.com/app instead.",
		"Generating AMembersInjector for A. Prefer to run injgen over package example.com/app instead.",
	}, f.rec.Messages(diag.Note))

	again, err := f.reg.GetOrFindMembersInjectionBinding(f.key(t, "B"))
	require.NoError(err)
	require.Same(b, again)
	require.Len(f.reg.MembersInjections().Pending(), 2)

	// Mid shares A, which is already cached.
	_, err = f.reg.GetOrFindMembersInjectionBinding(f.key(t, "Mid"))
	require.NoError(err)
	require.Equal([]string{
		"example.com/app.B",
		"example.com/app.A",
		"example.com/app.Mid",
	}, keyStrings(f.reg.MembersInjections().Pending()))
	// Mid has neither a constructor nor local sites.
	require.Len(f.rec.Messages(diag.Note), 2)
}

func TestMembersInjectionInvalidKey(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, appSrc)

	for _, k := range []keys.Key{
		f.ptrKey(t, "B"),
		f.canon.Key(f.p.Named(t, pkg, "B"), "q"),
		f.key(t, "Box"),
		f.canon.Key(modeltest.Basic("string"), ""),
	} {
		_, err := f.reg.GetOrFindMembersInjectionBinding(k)
		require.ErrorIs(err, ErrInvalidMembersInjectionKey, "%v", k)
		var cErr *ConsistencyError
		require.True(errors.As(err, &cErr))
	}
}

func TestMembersInjectionGeneric(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, appSrc)

	for _, arg := range []string{"int", "string", "int"} {
		k := f.canon.Key(f.p.Instantiate(t, pkg, "Box", modeltest.Basic(arg)), "")
		b, err := f.reg.GetOrFindMembersInjectionBinding(k)
		require.NoError(err)
		require.Equal(binding.Instantiation, b.Form())
	}
	require.Equal([]string{"example.com/app.Box[T any]"}, keyStrings(f.reg.MembersInjections().Pending()))
	require.Len(f.reg.MembersInjections().Cached(), 2)
}

func TestImplicitWarningsDisabled(t *testing.T) {
	f := newFixture(t, appSrc, WithImplicitWarnings(false))
	_, err := f.reg.GetOrFindMembersInjectionBinding(f.key(t, "B"))
	require.NoError(t, err)
	_, err = f.reg.GetOrFindProvisionBinding(f.ptrKey(t, "Service"))
	require.NoError(t, err)
	require.Empty(t, f.rec.Diagnostics)
}

func TestExplicitRegistrationDoesNotWarn(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, appSrc)

	require.NoError(f.reg.RegisterProvisionBinding(f.factory.ForInjectConstructor(f.p.Func(t, pkg, "NewService"), nil)))
	require.NoError(f.reg.RegisterMembersInjectionBinding(f.factory.ForInjectedType(f.p.Named(t, pkg, "B"), nil)))
	require.Empty(f.rec.Diagnostics)

	// Later lookups are served from the cache.
	_, err := f.reg.GetOrFindProvisionBinding(f.ptrKey(t, "Service"))
	require.NoError(err)
	require.Empty(f.rec.Diagnostics)
	require.Len(f.reg.Provisions().Pending(), 1)
}

func TestGenerateDrainsInOrder(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, appSrc)

	_, err := f.reg.GetOrFindMembersInjectionBinding(f.key(t, "B"))
	require.NoError(err)
	_, err = f.reg.GetOrFindProvisionBinding(f.ptrKey(t, "Service"))
	require.NoError(err)
	_, err = f.reg.GetOrFindProvisionBinding(f.key(t, "HTTPServer"))
	require.NoError(err)

	var g generators
	require.NoError(f.reg.GenerateSourcesForRequiredBindings(g.factories(), g.injectors()))
	require.Equal([]string{
		"*example.com/app.Service",
		"example.com/app.HTTPServer",
		"example.com/app.B",
		"example.com/app.A",
	}, g.generated)

	require.Empty(f.reg.Provisions().Cached())
	require.Empty(f.reg.MembersInjections().Cached())
	require.Empty(f.reg.Provisions().Pending())
	require.Equal([]string{"*example.com/app.Service", "example.com/app.HTTPServer"}, keyIDs(f.reg.Provisions().Materialized()))
	require.Equal([]string{"example.com/app.B", "example.com/app.A"}, keyIDs(f.reg.MembersInjections().Materialized()))

	// Materialized keys are not queued again within the pass.
	_, err = f.reg.GetOrFindProvisionBinding(f.ptrKey(t, "Service"))
	require.NoError(err)
	require.Empty(f.reg.Provisions().Pending())
}

func TestGenerateFailure(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, appSrc)

	_, err := f.reg.GetOrFindProvisionBinding(f.ptrKey(t, "Service"))
	require.NoError(err)
	_, err = f.reg.GetOrFindProvisionBinding(f.key(t, "HTTPServer"))
	require.NoError(err)
	_, err = f.reg.GetOrFindMembersInjectionBinding(f.key(t, "A"))
	require.NoError(err)

	failure := errors.New("disk full")
	g := generators{fail: map[string]error{"*example.com/app.Service": failure}}
	err = f.reg.GenerateSourcesForRequiredBindings(g.factories(), g.injectors())
	require.Same(failure, err)
	require.Empty(g.generated)
	require.False(f.reg.Provisions().IsMaterialized(f.ptrKey(t, "Service")))
	require.Equal([]string{"example.com/app.HTTPServer"}, keyStrings(f.reg.Provisions().Pending()))
	require.Len(f.reg.MembersInjections().Pending(), 1)

	// A later pass retries.
	require.NoError(f.reg.EndPass())
	require.NoError(f.beginPass(2))
	require.Empty(f.reg.Provisions().Pending())
	g.fail = nil
	_, err = f.reg.GetOrFindProvisionBinding(f.ptrKey(t, "Service"))
	require.NoError(err)
	require.NoError(f.reg.GenerateSourcesForRequiredBindings(g.factories(), g.injectors()))
	require.Equal([]string{"*example.com/app.Service"}, g.generated)
}

func TestNextPassUsesOracle(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, appSrc)

	_, err := f.reg.GetOrFindProvisionBinding(f.ptrKey(t, "Service"))
	require.NoError(err)
	var g generators
	require.NoError(f.reg.GenerateSourcesForRequiredBindings(g.factories(), g.injectors()))
	require.NoError(f.reg.EndPass())

	// The artifact now exists, so the next pass does not queue it again.
	f.oracle[binding.ArtifactName{PkgPath: pkg, Name: "ServiceFactory"}] = true
	require.NoError(f.beginPass(2))
	require.Empty(f.reg.Provisions().Materialized())
	_, err = f.reg.GetOrFindProvisionBinding(f.ptrKey(t, "Service"))
	require.NoError(err)
	require.Empty(f.reg.Provisions().Pending())
}

func TestGenerateRejectsInstantiation(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, appSrc)

	inst := f.factory.ForInjectedType(f.p.Named(t, pkg, "Box"), f.p.Instantiate(t, pkg, "Box", modeltest.Basic("int")))
	f.reg.members.pending = append(f.reg.members.pending, inst)

	var g generators
	err := f.reg.GenerateSourcesForRequiredBindings(g.factories(), g.injectors())
	require.ErrorIs(err, ErrUnresolvedBinding)
	require.Empty(g.generated)
}

func TestDeepParentChain(t *testing.T) {
	require := require.New(t)
	const depth = 500

	var src strings.Builder
	src.WriteString("package app\n\ntype Dep struct{}\n\n")
	for i := range depth {
		fmt.Fprintf(&src, "type T%d struct {\n", i)
		if i+1 < depth {
			fmt.Fprintf(&src, "\tT%d\n", i+1)
		}
		fmt.Fprintf(&src, "\tD%d *Dep `inject:\"\"`\n}\n\n", i)
	}
	f := newFixture(t, src.String(), WithImplicitWarnings(false))

	b, err := f.reg.GetOrFindMembersInjectionBinding(f.key(t, "T0"))
	require.NoError(err)
	require.Len(b.InjectionSites(), depth)
	require.Equal("D499", b.InjectionSites()[0].Name)

	pending := f.reg.MembersInjections().Pending()
	require.Len(pending, depth)
	for i, p := range pending {
		require.Equal(fmt.Sprintf("example.com/app.T%d", i), p.Key().String())
	}
	require.Equal(binding.StrategyLocalOnly, pending[depth-1].Strategy())

	var g generators
	require.NoError(f.reg.GenerateSourcesForRequiredBindings(g.factories(), g.injectors()))
	require.Len(g.generated, depth)
	require.Len(f.reg.MembersInjections().Materialized(), depth)
}
