package gen

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/refaktor/injgen/binding"
	"github.com/refaktor/injgen/logging"
)

var errInstantiation = errors.New("artifacts are rendered from templates only")

// FactoryGenerator writes the factory of provision bindings.
type FactoryGenerator struct {
	Filer  Filer
	Suffix string // appended to generated file names
	Log    zerolog.Logger
}

// Generate renders the factory of b and writes it through g.Filer.
func (g *FactoryGenerator) Generate(b *binding.Provision) error {
	start := time.Now()
	name := binding.ArtifactNameFor(b)
	file := binding.FileNameFor(b, g.Suffix)
	src, err := RenderFactory(b)
	if err != nil {
		return &Error{Artifact: name, File: file, Err: err}
	}
	if err := g.Filer.WriteFile(name, file, src); err != nil {
		return &Error{Artifact: name, File: file, Err: err}
	}
	g.Log.Debug().
		Stringer(logging.FieldArtifact, name).
		Str(logging.FieldFile, file).
		Dur(logging.FieldDuration, time.Since(start)).
		Msg("wrote factory")
	return nil
}

// RenderFactory returns the formatted source of the factory of the
// template b.
func RenderFactory(b *binding.Provision) ([]byte, error) {
	if b.Form() != binding.Template {
		return nil, errInstantiation
	}
	ctor := b.Constructor()
	sig := b.Signature()
	imps := newImportSet(ctor.Pkg())
	name := binding.ArtifactNameFor(b).Name

	data := factoryData{
		Header:         Header,
		PkgName:        ctor.Pkg().Name(),
		Name:           name,
		NewName:        binding.ConstructorName(name),
		Constructor:    ctor.Name(),
		ReturnsPointer: b.ReturnsPointer(),
		ReturnsError:   b.ReturnsError(),
	}
	data.TypeParamsDecl, data.TypeParamsUse = typeParams(sig.TypeParams(), imps)
	data.Result = imps.typeString(sig.Results().At(0).Type())
	data.Provided = data.Result

	names := fieldNames{}
	params := sig.Params()
	for i, dep := range b.Dependencies() {
		data.Providers = append(data.Providers, provider{
			Field:    names.get(dep.Name),
			Type:     imps.typeString(params.At(i).Type()),
			Variadic: sig.Variadic() && i == params.Len()-1,
		})
	}
	if _, ok := b.MembersInjectionKey(); ok {
		data.MembersInjector = b.DeclaredType().Origin().Obj().Name() + binding.MembersInjectorSuffix + data.TypeParamsUse
	}

	// Every type string is rendered by now, so the import set is complete.
	data.Imports = imps.specs()
	return format(factoryTemplate, name+".go", data)
}
