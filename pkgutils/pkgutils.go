package pkgutils

import "strings"

// Returns true if s is a package or module path in
// the std library, i.e. the first element contains
// no dot.
// Doesn't actually check if the std library package
// exists.
// Returns false if s is empty.
func IsPkgPathStd(s string) bool {
	if s == "" {
		return false
	}
	firstElem, _, _ := strings.Cut(s, "/")
	return !strings.Contains(firstElem, ".")
}

// InModule returns true if the package path pkgPath belongs
// to the module with path modulePath. Nested modules are not
// detected.
func InModule(pkgPath, modulePath string) bool {
	if modulePath == "" {
		return false
	}
	return pkgPath == modulePath || strings.HasPrefix(pkgPath, modulePath+"/")
}

// DefaultImportName guesses the name a package is imported under
// from its path, ignoring major version suffixes like "/v2".
func DefaultImportName(path string) string {
	elems := strings.Split(path, "/")
	last := elems[len(elems)-1]
	if len(elems) > 1 && len(last) > 1 && last[0] == 'v' && strings.Trim(last[1:], "0123456789") == "" {
		last = elems[len(elems)-2]
	}
	return strings.NewReplacer("-", "_", ".", "_").Replace(last)
}
