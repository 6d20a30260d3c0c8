/*
Package gen renders the factories and members injectors of bindings as Go
source files.

A factory for

	//injgen:inject
	func NewService(db *DB) (*Service, error)

is a struct holding one provider func per constructor parameter, plus the
members injector of Service if it has injection sites:

	type ServiceFactory struct {
		dbProvider      func() *DB
		membersInjector *ServiceMembersInjector
	}

	func (f *ServiceFactory) Get() (*Service, error)

Generic declarations get generic artifacts, so one file serves every
instantiation.
*/
package gen

import (
	"bytes"
	"fmt"
	"go/types"
	"maps"
	"slices"
	"strconv"
	"strings"
	"text/template"

	"github.com/iancoleman/strcase"
	"golang.org/x/tools/imports"

	"github.com/refaktor/injgen/binding"
	"github.com/refaktor/injgen/pkgutils"
)

// Header starts every generated file.
const Header = "// Code generated by injgen. DO NOT EDIT."

// Error is a failure to generate a single artifact.
type Error struct {
	Artifact binding.ArtifactName
	File     string // may be empty if no file name was determined yet
	Err      error
}

func (e *Error) Error() string {
	if e.File == "" {
		return fmt.Sprintf("generate %v: %v", e.Artifact, e.Err)
	}
	return fmt.Sprintf("generate %v (%v): %v", e.Artifact, e.File, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

type importSpec struct {
	Name string
	Path string
}

// importSet assigns import names to the packages referenced by a
// generated file.
type importSet struct {
	self   *types.Package
	byPath map[string]string
	used   map[string]bool
}

func newImportSet(self *types.Package) *importSet {
	return &importSet{
		self:   self,
		byPath: map[string]string{},
		used:   map[string]bool{},
	}
}

// qualifier is a [types.Qualifier] recording every package it is asked
// about.
func (s *importSet) qualifier(pkg *types.Package) string {
	if pkg == nil || pkg.Path() == s.self.Path() {
		return ""
	}
	if name, ok := s.byPath[pkg.Path()]; ok {
		return name
	}
	base := pkg.Name()
	if base == "" {
		base = pkgutils.DefaultImportName(pkg.Path())
	}
	name := base
	for i := 2; s.used[name]; i++ {
		name = base + strconv.Itoa(i)
	}
	s.used[name] = true
	s.byPath[pkg.Path()] = name
	return name
}

func (s *importSet) specs() []importSpec {
	var res []importSpec
	for _, path := range slices.Sorted(maps.Keys(s.byPath)) {
		res = append(res, importSpec{Name: s.byPath[path], Path: path})
	}
	return res
}

func (s *importSet) typeString(t types.Type) string {
	return types.TypeString(t, s.qualifier)
}

// typeParams renders a type parameter list for a declaration ("[K comparable, V any]")
// and for a use ("[K, V]"). Both are empty for an empty list.
func typeParams(tparams *types.TypeParamList, s *importSet) (decl, use string) {
	if tparams.Len() == 0 {
		return "", ""
	}
	var d, u strings.Builder
	for i := range tparams.Len() {
		tp := tparams.At(i)
		if i > 0 {
			d.WriteString(", ")
			u.WriteString(", ")
		}
		d.WriteString(tp.Obj().Name() + " " + s.typeString(tp.Constraint()))
		u.WriteString(tp.Obj().Name())
	}
	return "[" + d.String() + "]", "[" + u.String() + "]"
}

// typeArgs renders the type argument list of n ("[int, string]").
func typeArgs(n *types.Named, s *importSet) string {
	args := n.TypeArgs()
	if args.Len() == 0 {
		return ""
	}
	strs := make([]string, args.Len())
	for i := range args.Len() {
		strs[i] = s.typeString(args.At(i))
	}
	return "[" + strings.Join(strs, ", ") + "]"
}

type provider struct {
	Field    string
	Type     string
	Variadic bool // passed as the variadic argument of a call
}

// fieldNames hands out unique unexported field names.
type fieldNames map[string]bool

func (n fieldNames) get(base string) string {
	base = strcase.ToLowerCamel(base)
	if base == "" {
		base = "dep"
	}
	name := base + "Provider"
	for i := 2; n[name]; i++ {
		name = base + "Provider" + strconv.Itoa(i)
	}
	n[name] = true
	return name
}

// format renders tmpl with data and formats the result.
func format(tmpl *template.Template, fileName string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	src, err := imports.Process(fileName, buf.Bytes(), &imports.Options{
		FormatOnly: true,
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
	})
	if err != nil {
		return buf.Bytes(), fmt.Errorf("format generated code: %w", err)
	}
	return src, nil
}
