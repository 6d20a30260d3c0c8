package gen

import (
	"go/types"

	"github.com/refaktor/injgen/binding"
)

// Oracle reports an artifact as existing if its package already declares
// it, or if it was generated earlier in the same run.
type Oracle struct {
	lookup func(pkgPath string) *types.Package
	filer  Filer
}

// NewOracle returns an oracle over the packages returned by lookup. Either
// argument may be nil.
func NewOracle(lookup func(pkgPath string) *types.Package, filer Filer) *Oracle {
	return &Oracle{lookup: lookup, filer: filer}
}

func (o *Oracle) Exists(name binding.ArtifactName) bool {
	if o.filer != nil && o.filer.Has(name) {
		return true
	}
	if o.lookup == nil {
		return false
	}
	pkg := o.lookup(name.PkgPath)
	if pkg == nil {
		return false
	}
	_, ok := pkg.Scope().Lookup(name.Name).(*types.TypeName)
	return ok
}
