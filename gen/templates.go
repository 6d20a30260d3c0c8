package gen

import (
	_ "embed"
	"text/template"
)

var factoryTemplate = template.Must(template.New("factory.go.tmpl").Parse(factoryTemplateSrc))
var membersInjectorTemplate = template.Must(template.New("members_injector.go.tmpl").Parse(membersInjectorTemplateSrc))

//go:embed factory.go.tmpl
var factoryTemplateSrc string

//go:embed members_injector.go.tmpl
var membersInjectorTemplateSrc string

type factoryData struct {
	Header          string
	PkgName         string
	Imports         []importSpec
	Name            string
	NewName         string
	TypeParamsDecl  string
	TypeParamsUse   string
	Provided        string
	Constructor     string
	Providers       []provider
	MembersInjector string
	Result          string
	ReturnsPointer  bool
	ReturnsError    bool
}

type siteData struct {
	Name      string
	IsField   bool
	Providers []provider
}

type membersInjectorData struct {
	Header         string
	PkgName        string
	Imports        []importSpec
	Name           string
	NewName        string
	TypeParamsDecl string
	TypeParamsUse  string
	Target         string
	Parent         string
	ParentField    string
	Providers      []provider
	Sites          []siteData
}
