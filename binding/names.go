package binding

import (
	"fmt"
	"go/token"
	"hash/fnv"
	"strings"

	"github.com/iancoleman/strcase"
)

const (
	FactorySuffix         = "Factory"
	MembersInjectorSuffix = "MembersInjector"
)

// ArtifactName is the package-level name of a generated declaration.
type ArtifactName struct {
	PkgPath string
	Name    string
}

func (n ArtifactName) String() string { return n.PkgPath + "." + n.Name }

// ArtifactNameFor returns the name of the artifact generated for b. It is
// derived from the generic origin of the declared type, so a template and
// all of its instantiations share it.
func ArtifactNameFor(b Binding) ArtifactName {
	obj := b.DeclaredType().Origin().Obj()
	var suffix string
	switch b.Kind() {
	case KindProvision:
		suffix = FactorySuffix
	case KindMembersInjection:
		suffix = MembersInjectorSuffix
	default:
		panic("invalid binding kind")
	}
	return ArtifactName{PkgPath: obj.Pkg().Path(), Name: obj.Name() + suffix}
}

// FileNameFor returns the base name of the file holding the artifact of
// b, e.g. "service_factory" + suffix for Service. Several artifact names
// share a snake case form (FooBar, fooBar, FOOBar), so only the name that
// strcase maps back to itself gets the plain form; all others carry a
// hash of the exact name, e.g. "http_server_factory_e69f3a84".
func FileNameFor(b Binding, suffix string) string {
	name := ArtifactNameFor(b).Name
	snake := strcase.ToSnake(name)
	if strcase.ToCamel(snake) == name {
		return snake + suffix
	}
	h := fnv.New32a()
	h.Write([]byte(name))
	return fmt.Sprintf("%v_%08x%v", snake, h.Sum32(), suffix)
}

// ConstructorName returns the name of the function constructing the
// artifact name. It is exported if and only if name is.
func ConstructorName(name string) string {
	if token.IsExported(name) {
		return "New" + name
	}
	return "new" + strings.ToUpper(name[:1]) + name[1:]
}
