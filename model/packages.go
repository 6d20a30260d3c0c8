package model

import (
	"golang.org/x/tools/go/packages"
)

// FromPackages builds a [Model] from loaded packages and all of their
// dependencies. Only packages accepted by include are indexed; include
// is usually restricted to the main module, since generated files can
// only be written there.
// Packages must have been loaded with syntax and type information.
func FromPackages(pkgs []*packages.Package, include func(path string) bool) *Model {
	m := New()
	packages.Visit(pkgs, nil, func(p *packages.Package) {
		if p.Types == nil || p.TypesInfo == nil || len(p.Syntax) == 0 {
			return
		}
		if include != nil && !include(p.PkgPath) {
			return
		}
		m.AddFiles(p.Fset, p.Types, p.TypesInfo, p.Syntax)
	})
	return m
}
