package gen

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/refaktor/injgen/binding"
	"github.com/refaktor/injgen/logging"
	"github.com/refaktor/injgen/model"
)

// MembersInjectorGenerator writes the members injector of members
// injection bindings.
type MembersInjectorGenerator struct {
	Filer  Filer
	Suffix string
	Log    zerolog.Logger
}

// Generate renders the members injector of b and writes it through
// g.Filer.
func (g *MembersInjectorGenerator) Generate(b *binding.MembersInjection) error {
	start := time.Now()
	name := binding.ArtifactNameFor(b)
	file := binding.FileNameFor(b, g.Suffix)
	src, err := RenderMembersInjector(b)
	if err != nil {
		return &Error{Artifact: name, File: file, Err: err}
	}
	if err := g.Filer.WriteFile(name, file, src); err != nil {
		return &Error{Artifact: name, File: file, Err: err}
	}
	g.Log.Debug().
		Stringer(logging.FieldArtifact, name).
		Str(logging.FieldFile, file).
		Stringer("strategy", b.Strategy()).
		Dur(logging.FieldDuration, time.Since(start)).
		Msg("wrote members injector")
	return nil
}

// RenderMembersInjector returns the formatted source of the members
// injector of the template b. Inherited sites are injected by the parent's
// injector, so only local sites get providers.
func RenderMembersInjector(b *binding.MembersInjection) ([]byte, error) {
	if b.Form() != binding.Template {
		return nil, errInstantiation
	}
	declared := b.DeclaredType()
	pkg := declared.Obj().Pkg()
	imps := newImportSet(pkg)
	name := binding.ArtifactNameFor(b).Name

	data := membersInjectorData{
		Header:  Header,
		PkgName: pkg.Name(),
		Name:    name,
		NewName: binding.ConstructorName(name),
	}
	data.TypeParamsDecl, data.TypeParamsUse = typeParams(declared.TypeParams(), imps)
	data.Target = declared.Obj().Name() + data.TypeParamsUse

	if b.Strategy() == binding.StrategyDelegateToParent {
		pk, _ := b.ParentKey()
		parent, _ := pk.Named()
		data.Parent = parent.Obj().Name() + binding.MembersInjectorSuffix
		if q := imps.qualifier(parent.Obj().Pkg()); q != "" {
			data.Parent = q + "." + data.Parent
		}
		data.Parent += typeArgs(parent, imps)
		data.ParentField = b.ParentField()
	}

	names := fieldNames{}
	for _, s := range b.LocalInjectionSites() {
		sd := siteData{Name: s.Name, IsField: s.Kind == model.FieldSite}
		for i, dep := range s.Dependencies {
			base := s.Name
			if !sd.IsField {
				base += "_" + dep.Name
			}
			p := provider{
				Field:    names.get(base),
				Type:     imps.typeString(dep.Key.Type()),
				Variadic: s.Variadic && i == len(s.Dependencies)-1,
			}
			sd.Providers = append(sd.Providers, p)
			data.Providers = append(data.Providers, p)
		}
		data.Sites = append(data.Sites, sd)
	}

	data.Imports = imps.specs()
	return format(membersInjectorTemplate, name+".go", data)
}
