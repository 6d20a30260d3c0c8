/*
Package model answers the questions injgen asks about a program's declared
types: which constructors are injectable, which fields and methods are
injection sites, and which embedded struct acts as a type's parent.

Injectable constructors and injectable methods carry a directive comment:

	//injgen:inject
	func NewService(db *DB) *Service { ... }

	//injgen:inject
	func (s *Service) SetClock(c Clock) { ... }

Injectable fields carry an "inject" struct tag whose value is the qualifier:

	type Service struct {
		Log *Logger `inject:""`
		DB  *DB     `inject:"primary"`
	}
*/
package model

import (
	"cmp"
	"errors"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"maps"
	"reflect"
	"slices"
	"strings"

	"github.com/refaktor/injgen/keys"
	"github.com/refaktor/injgen/walktypes"
)

const (
	// Directive marks injectable constructors and methods.
	Directive = "injgen:inject"
	// TagKey is the struct tag key marking injectable fields.
	TagKey = "inject"
)

var (
	ErrResultShape     = errors.New("inject constructor must return T, *T, (T, error) or (*T, error)")
	ErrForeignType     = errors.New("inject constructor must return a struct type declared in its own package")
	ErrTypeParams      = errors.New("inject constructor type parameters must mirror the type's type parameters")
	ErrReceiver        = errors.New("inject method must have a pointer receiver of a struct type")
	ErrMethodShape     = errors.New("inject method must take at least one parameter and return nothing")
	ErrEmbeddedTag     = errors.New("embedded field cannot be an injection site")
	ErrUnsupportedDecl = errors.New("directive only applies to functions and methods")
	ErrMultipleParents = errors.New("at most one embedded struct may have injection sites")
	ErrEmbeddedPointer = errors.New("injection sites behind an embedded pointer are never injected")
)

// DirectiveError is an invalid use of the inject directive or tag.
type DirectiveError struct {
	Pos  token.Position
	Name string
	Err  error
}

func (e *DirectiveError) Error() string {
	return fmt.Sprintf("%v: %v: %v", e.Pos, e.Name, e.Err)
}

func (e *DirectiveError) Unwrap() error { return e.Err }

type SiteKind uint8

const (
	FieldSite SiteKind = iota
	MethodSite
)

func (k SiteKind) String() string {
	switch k {
	case FieldSite:
		return "field"
	case MethodSite:
		return "method"
	default:
		panic("invalid site kind")
	}
}

// Param is a single injected value of a [Site].
type Param struct {
	Name string
	Type types.Type
}

// Site is an injection site declared directly on a type.
// A field site has exactly one param: the field itself.
type Site struct {
	Kind      SiteKind
	Name      string
	Qualifier string
	Params    []Param
	Variadic  bool
}

// Model indexes inject directives of type-checked packages.
type Model struct {
	packages      map[string]*types.Package
	fsets         map[string]*token.FileSet
	declared      map[string][]*types.TypeName // package path to struct types in source order
	constructors  map[*types.TypeName][]*types.Func
	injectMethods map[*types.Func]bool
	errs          []*DirectiveError
}

// New creates an empty [Model].
func New() *Model {
	return &Model{
		packages:      map[string]*types.Package{},
		fsets:         map[string]*token.FileSet{},
		declared:      map[string][]*types.TypeName{},
		constructors:  map[*types.TypeName][]*types.Func{},
		injectMethods: map[*types.Func]bool{},
	}
}

func hasDirective(doc *ast.CommentGroup) bool {
	if doc == nil {
		return false
	}
	for _, c := range doc.List {
		if strings.TrimRightFunc(c.Text, func(r rune) bool { return r == ' ' || r == '\t' }) == "//"+Directive {
			return true
		}
	}
	return false
}

func isStruct(t types.Type) bool {
	_, ok := t.Underlying().(*types.Struct)
	return ok
}

func isError(t types.Type) bool {
	return types.Identical(t, types.Universe.Lookup("error").Type())
}

// AddFiles indexes the syntax of a single type-checked package.
// info must contain Defs.
func (m *Model) AddFiles(fset *token.FileSet, pkg *types.Package, info *types.Info, files []*ast.File) {
	m.packages[pkg.Path()] = pkg
	m.fsets[pkg.Path()] = fset

	report := func(pos token.Pos, name string, err error) {
		m.errs = append(m.errs, &DirectiveError{Pos: fset.Position(pos), Name: name, Err: err})
	}

	for _, f := range files {
		for _, decl := range f.Decls {
			switch decl := decl.(type) {
			case *ast.GenDecl:
				if decl.Tok != token.TYPE {
					if hasDirective(decl.Doc) {
						report(decl.Pos(), decl.Tok.String(), ErrUnsupportedDecl)
					}
					continue
				}
				for _, spec := range decl.Specs {
					spec := spec.(*ast.TypeSpec)
					tn, ok := info.Defs[spec.Name].(*types.TypeName)
					if !ok || tn.IsAlias() || !isStruct(tn.Type()) {
						continue
					}
					m.declared[pkg.Path()] = append(m.declared[pkg.Path()], tn)
					st := tn.Type().Underlying().(*types.Struct)
					for i := range st.NumFields() {
						if !st.Field(i).Embedded() {
							continue
						}
						if _, ok := reflect.StructTag(st.Tag(i)).Lookup(TagKey); ok {
							report(st.Field(i).Pos(), tn.Name()+"."+st.Field(i).Name(), ErrEmbeddedTag)
						}
					}
				}
			case *ast.FuncDecl:
				if !hasDirective(decl.Doc) {
					continue
				}
				fn, ok := info.Defs[decl.Name].(*types.Func)
				if !ok {
					continue
				}
				if decl.Recv == nil {
					if err := m.addConstructor(pkg, fn); err != nil {
						report(decl.Pos(), fn.Name(), err)
					}
				} else {
					if err := m.addMethod(fn); err != nil {
						report(decl.Pos(), fn.Name(), err)
					}
				}
			}
		}
	}
}

func (m *Model) addConstructor(pkg *types.Package, fn *types.Func) error {
	sig := fn.Signature()
	res := sig.Results()
	if res.Len() == 0 || res.Len() > 2 || (res.Len() == 2 && !isError(res.At(1).Type())) {
		return ErrResultShape
	}
	t := types.Unalias(res.At(0).Type())
	if p, ok := t.(*types.Pointer); ok {
		t = types.Unalias(p.Elem())
	}
	named, ok := t.(*types.Named)
	if !ok {
		return ErrResultShape
	}
	if named.Obj().Pkg() != pkg || !isStruct(named) {
		return ErrForeignType
	}
	origin := named.Origin()
	tparams := origin.TypeParams()
	if tparams.Len() != sig.TypeParams().Len() {
		return ErrTypeParams
	}
	for i := range tparams.Len() {
		if named.TypeArgs().At(i) != sig.TypeParams().At(i) {
			return ErrTypeParams
		}
	}
	m.constructors[origin.Obj()] = append(m.constructors[origin.Obj()], fn)
	return nil
}

func (m *Model) addMethod(fn *types.Func) error {
	sig := fn.Signature()
	ptr, ok := types.Unalias(sig.Recv().Type()).(*types.Pointer)
	if !ok {
		return ErrReceiver
	}
	named, ok := types.Unalias(ptr.Elem()).(*types.Named)
	if !ok || !isStruct(named) {
		return ErrReceiver
	}
	if sig.Params().Len() == 0 || sig.Results().Len() != 0 {
		return ErrMethodShape
	}
	m.injectMethods[fn] = true
	return nil
}

// Errors returns all invalid directive uses found so far, followed by
// invalid embeddings of types with injection sites. The latter depend on
// every indexed package and are recomputed on each call.
func (m *Model) Errors() []*DirectiveError {
	errs := slices.Clone(m.errs)
	paths := slices.Sorted(maps.Keys(m.declared))
	for _, path := range paths {
		fset := m.fsets[path]
		for _, tn := range m.declared[path] {
			n, ok := tn.Type().(*types.Named)
			if !ok {
				continue
			}
			st := n.Underlying().(*types.Struct)
			withSites := 0
			for i := range st.NumFields() {
				f := st.Field(i)
				if !f.Embedded() {
					continue
				}
				name := tn.Name() + "." + f.Name()
				if p, ok := m.embeddedPointer(f.Type()); ok && m.hasSites(p) {
					errs = append(errs, &DirectiveError{Pos: fset.Position(f.Pos()), Name: name, Err: ErrEmbeddedPointer})
					continue
				}
				if p, ok := m.embeddedStruct(f.Type()); ok && m.hasSites(p) {
					withSites++
					if withSites > 1 {
						errs = append(errs, &DirectiveError{Pos: fset.Position(f.Pos()), Name: name, Err: ErrMultipleParents})
					}
				}
			}
		}
	}
	return errs
}

// Indexed reports whether the package of pkg was added to the model.
func (m *Model) Indexed(pkg *types.Package) bool {
	if pkg == nil {
		return false
	}
	_, ok := m.packages[pkg.Path()]
	return ok
}

// Package returns an indexed package by path, or nil.
func (m *Model) Package(path string) *types.Package { return m.packages[path] }

// InjectConstructors returns the inject constructors of the origin of n
// in source order.
func (m *Model) InjectConstructors(n *types.Named) []*types.Func {
	return m.constructors[n.Origin().Obj()]
}

// LocalInjectionSites returns the injection sites n declares itself:
// tagged fields in declaration order, then inject methods in source order.
// Field and parameter types are those of n, so sites of an instantiated
// type carry substituted types.
func (m *Model) LocalInjectionSites(n *types.Named) []Site {
	st, ok := n.Underlying().(*types.Struct)
	if !ok {
		return nil
	}
	var sites []Site
	for i := range st.NumFields() {
		f := st.Field(i)
		if f.Embedded() {
			continue
		}
		qual, ok := reflect.StructTag(st.Tag(i)).Lookup(TagKey)
		if !ok {
			continue
		}
		sites = append(sites, Site{
			Kind:      FieldSite,
			Name:      f.Name(),
			Qualifier: qual,
			Params:    []Param{{Name: f.Name(), Type: f.Type()}},
		})
	}

	var methods []*types.Func
	for i := range n.NumMethods() {
		if meth := n.Method(i); m.injectMethods[meth.Origin()] {
			methods = append(methods, meth)
		}
	}
	slices.SortFunc(methods, func(a, b *types.Func) int {
		return cmp.Compare(a.Origin().Pos(), b.Origin().Pos())
	})
	for _, meth := range methods {
		params := meth.Signature().Params()
		site := Site{Kind: MethodSite, Name: meth.Name(), Variadic: meth.Signature().Variadic()}
		for i := range params.Len() {
			site.Params = append(site.Params, Param{Name: params.At(i).Name(), Type: params.At(i).Type()})
		}
		sites = append(sites, site)
	}
	return sites
}

// embeddedStruct returns t if it is a named struct declared in an
// indexed package.
func (m *Model) embeddedStruct(t types.Type) (*types.Named, bool) {
	n, ok := types.Unalias(t).(*types.Named)
	if !ok || !isStruct(n) || !m.Indexed(n.Obj().Pkg()) {
		return nil, false
	}
	return n, true
}

func (m *Model) embeddedPointer(t types.Type) (*types.Named, bool) {
	p, ok := types.Unalias(t).(*types.Pointer)
	if !ok {
		return nil, false
	}
	return m.embeddedStruct(p.Elem())
}

// hasSites reports whether n or any struct it embeds by value, directly
// or transitively, declares injection sites.
func (m *Model) hasSites(n *types.Named) bool {
	seen := map[*types.Named]bool{}
	stack := []*types.Named{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		if len(m.LocalInjectionSites(cur)) > 0 {
			return true
		}
		st := cur.Underlying().(*types.Struct)
		for i := range st.NumFields() {
			if !st.Field(i).Embedded() {
				continue
			}
			if p, ok := m.embeddedStruct(st.Field(i).Type()); ok {
				stack = append(stack, p)
			}
		}
	}
	return false
}

// Parent returns the embedded non-pointer field of n whose type is a named
// struct declared in an indexed package. If several fields qualify, the
// first one with injection sites wins, or else the first one. Embedded
// pointers and interfaces never act as parents; [Model.Errors] reports
// the embeddings that would lose sites.
func (m *Model) Parent(n *types.Named) (parent *types.Named, field string, ok bool) {
	st, ok := n.Underlying().(*types.Struct)
	if !ok {
		return nil, "", false
	}
	for i := range st.NumFields() {
		f := st.Field(i)
		if !f.Embedded() {
			continue
		}
		pn, ok := m.embeddedStruct(f.Type())
		if !ok {
			continue
		}
		if parent == nil {
			parent, field = pn, f.Name()
		}
		if m.hasSites(pn) {
			return pn, f.Name(), true
		}
	}
	return parent, field, parent != nil
}

// InjectableTypes returns the struct types declared in the package
// which have an inject constructor or local injection sites, in source
// order. The returned types are uninstantiated.
func (m *Model) InjectableTypes(pkgPath string) []*types.Named {
	var res []*types.Named
	for _, tn := range m.declared[pkgPath] {
		n, ok := tn.Type().(*types.Named)
		if !ok {
			continue
		}
		if len(m.constructors[tn]) > 0 || len(m.LocalInjectionSites(n)) > 0 {
			res = append(res, n)
		}
	}
	return res
}

func fullyInstantiated(n *types.Named) bool {
	return n.Origin().TypeParams().Len() == n.TypeArgs().Len() &&
		!walktypes.ContainsTypeParam(n)
}

// IsValidImplicitProvisionKey reports whether an implicit binding may
// exist for k: k is unqualified and requests T or *T, where T is a
// fully instantiated named struct type.
func (m *Model) IsValidImplicitProvisionKey(k keys.Key) bool {
	if k.IsZero() || k.Qualifier() != "" {
		return false
	}
	n, ok := k.Named()
	return ok && isStruct(n) && fullyInstantiated(n)
}

// IsValidMembersInjectionKey reports whether k may be used to look up a
// members injection binding: k is unqualified and requests a fully
// instantiated named struct type T (not *T) declared in an indexed
// package.
func (m *Model) IsValidMembersInjectionKey(k keys.Key) bool {
	if k.IsZero() || k.Qualifier() != "" || k.IsPointer() {
		return false
	}
	n, ok := k.Named()
	return ok && isStruct(n) && fullyInstantiated(n) && m.Indexed(n.Obj().Pkg())
}
