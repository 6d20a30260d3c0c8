package binding_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/refaktor/injgen/binding"
	"github.com/refaktor/injgen/keys"
	"github.com/refaktor/injgen/model"
	"github.com/refaktor/injgen/model/modeltest"
)

const src = `package app

type Logger struct{}

type Clock struct{}

type Base struct {
	Log *Logger ` + "`inject:\"\"`" + `
}

//injgen:inject
func (b *Base) SetClock(c *Clock) {}

type Mid struct {
	Base
}

type Service struct {
	Mid
	DB *Logger ` + "`inject:\"primary\"`" + `
}

//injgen:inject
func NewService(l *Logger, _ Clock) (*Service, error) { return nil, nil }

type Box[T any] struct {
	Value T ` + "`inject:\"\"`" + `
}

//injgen:inject
func NewBox[T any](v T) Box[T] { return Box[T]{} }

type HTTPServer struct{}

//injgen:inject
func NewHTTPServer() HTTPServer { return HTTPServer{} }

type HttpServer struct{}

//injgen:inject
func NewHttpServer() HttpServer { return HttpServer{} }

type plain struct{}
`

const pkg = "example.com/app"

func setup(t *testing.T) (*modeltest.Program, *binding.Factory) {
	p := modeltest.Load(t, modeltest.Source{Path: pkg, Src: src})
	require.Empty(t, p.Model.Errors())
	return p, binding.NewFactory(p.Model, keys.NewCanonicalizer(p.Context))
}

func depIDs(deps []binding.Dependency) []string {
	var res []string
	for _, d := range deps {
		res = append(res, d.Name+" "+d.Key.String())
	}
	return res
}

func TestForInjectConstructor(t *testing.T) {
	require := require.New(t)
	p, f := setup(t)

	b := f.ForInjectConstructor(p.Func(t, pkg, "NewService"), nil)
	require.Equal(binding.KindProvision, b.Kind())
	require.Equal(binding.Template, b.Form())
	require.False(b.HasTypeParams())
	require.Equal("*example.com/app.Service", b.Key().String())
	require.Equal("Service", b.DeclaredType().Obj().Name())
	require.True(b.ReturnsPointer())
	require.True(b.ReturnsError())
	require.Equal([]string{
		"l *example.com/app.Logger",
		"arg1 example.com/app.Clock",
	}, depIDs(b.Dependencies()))

	mk, ok := b.MembersInjectionKey()
	require.True(ok)
	require.Equal("example.com/app.Service", mk.String())

	_, ok = b.Unresolved()
	require.False(ok)

	// Bindings built in separate calls are equal.
	require.True(b.Equal(f.ForInjectConstructor(p.Func(t, pkg, "NewService"), nil)))
	require.False(b.Equal(f.ForInjectConstructor(p.Func(t, pkg, "NewHTTPServer"), nil)))

	// A type without any sites needs no members injection.
	hs := f.ForInjectConstructor(p.Func(t, pkg, "NewHTTPServer"), nil)
	require.False(hs.ReturnsPointer())
	require.False(hs.ReturnsError())
	_, ok = hs.MembersInjectionKey()
	require.False(ok)
}

func TestForInjectConstructorGeneric(t *testing.T) {
	require := require.New(t)
	p, f := setup(t)

	boxInt := p.Instantiate(t, pkg, "Box", modeltest.Basic("int"))
	b := f.ForInjectConstructor(p.Func(t, pkg, "NewBox"), boxInt)
	require.Equal(binding.Instantiation, b.Form())
	require.False(b.HasTypeParams())
	require.Equal("example.com/app.Box[int]", b.Key().String())
	require.Equal([]string{"v int"}, depIDs(b.Dependencies()))
	require.Len(b.TypeArgs(), 1)

	tmpl, ok := b.Unresolved()
	require.True(ok)
	require.Equal(binding.Template, tmpl.Form())
	require.True(tmpl.HasTypeParams())
	require.Equal("example.com/app.Box[T any]", tmpl.Key().String())
	require.Nil(tmpl.TypeArgs())

	// Every instantiation shares the template's key and artifact.
	boxStr := p.Instantiate(t, pkg, "Box", modeltest.Basic("string"))
	other := f.ForInjectConstructor(p.Func(t, pkg, "NewBox"), boxStr)
	otherTmpl, _ := other.Unresolved()
	require.True(tmpl.Equal(otherTmpl))
	require.False(b.Equal(other))
	require.Equal(binding.ArtifactNameFor(b), binding.ArtifactNameFor(other))
	require.Equal("example.com/app.BoxFactory", binding.ArtifactNameFor(tmpl).String())

	// Without a resolved type the template is returned.
	require.Equal(binding.Template, f.ForInjectConstructor(p.Func(t, pkg, "NewBox"), nil).Form())
}

func TestForInjectedType(t *testing.T) {
	require := require.New(t)
	p, f := setup(t)

	svc := f.ForInjectedType(p.Named(t, pkg, "Service"), nil)
	require.Equal(binding.KindMembersInjection, svc.Kind())
	require.Equal("example.com/app.Service", svc.Key().String())
	require.Equal(binding.StrategyDelegateToParent, svc.Strategy())
	require.True(svc.HasLocalInjectionSites())
	require.Equal("Mid", svc.ParentField())
	pk, ok := svc.ParentKey()
	require.True(ok)
	require.Equal("example.com/app.Mid", pk.String())

	sites := svc.InjectionSites()
	require.Len(sites, 3)
	require.Equal("Log", sites[0].Name)
	require.Equal([]string{"Mid", "Base"}, sites[0].Path)
	require.Equal(model.MethodSite, sites[1].Kind)
	require.Equal("SetClock", sites[1].Name)
	require.Equal("DB", sites[2].Name)
	require.Empty(sites[2].Path)
	require.Len(svc.LocalInjectionSites(), 1)
	require.Equal([]string{
		"Log *example.com/app.Logger",
		"c *example.com/app.Clock",
		`DB "primary" *example.com/app.Logger`,
	}, depIDs(svc.Dependencies()))

	mid := f.ForInjectedType(p.Named(t, pkg, "Mid"), nil)
	require.Equal(binding.StrategyDelegateToParent, mid.Strategy())
	require.False(mid.HasLocalInjectionSites())
	pk, _ = mid.ParentKey()
	require.Equal("example.com/app.Base", pk.String())

	base := f.ForInjectedType(p.Named(t, pkg, "Base"), nil)
	require.Equal(binding.StrategyLocalOnly, base.Strategy())
	_, ok = base.ParentKey()
	require.False(ok)

	none := f.ForInjectedType(p.Named(t, pkg, "plain"), nil)
	require.Equal(binding.StrategyNone, none.Strategy())
	require.Empty(none.InjectionSites())

	require.True(svc.Equal(f.ForInjectedType(p.Named(t, pkg, "Service"), nil)))
	require.False(svc.Equal(mid))
}

func TestForInjectedTypeGeneric(t *testing.T) {
	require := require.New(t)
	p, f := setup(t)

	boxInt := p.Instantiate(t, pkg, "Box", modeltest.Basic("int"))
	b := f.ForInjectedType(p.Named(t, pkg, "Box"), boxInt)
	require.Equal(binding.Instantiation, b.Form())
	require.False(b.HasTypeParams())
	require.Equal([]string{"Value int"}, depIDs(b.Dependencies()))
	require.Equal(binding.StrategyLocalOnly, b.Strategy())

	tmpl, ok := b.Unresolved()
	require.True(ok)
	require.True(tmpl.HasTypeParams())
	require.Equal("example.com/app.Box[T any]", tmpl.Key().String())
	require.Equal("example.com/app.BoxMembersInjector", binding.ArtifactNameFor(b).String())
}

func TestNames(t *testing.T) {
	require := require.New(t)
	p, f := setup(t)

	hs := f.ForInjectConstructor(p.Func(t, pkg, "NewHTTPServer"), nil)
	require.Equal("http_server_factory_e69f3a84.injgen.go", binding.FileNameFor(hs, ".injgen.go"))

	// Only the name strcase maps back to itself gets the plain form.
	hs2 := f.ForInjectConstructor(p.Func(t, pkg, "NewHttpServer"), nil)
	require.Equal("http_server_factory.injgen.go", binding.FileNameFor(hs2, ".injgen.go"))

	none := f.ForInjectedType(p.Named(t, pkg, "plain"), nil)
	require.Equal("plainMembersInjector", binding.ArtifactNameFor(none).Name)
	require.Equal("plain_members_injector_6bd0fc8e.go", binding.FileNameFor(none, ".go"))

	require.Equal("NewServiceFactory", binding.ConstructorName("ServiceFactory"))
	require.Equal("newPlainMembersInjector", binding.ConstructorName("plainMembersInjector"))
}
