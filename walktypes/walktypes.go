/*
Package walktypes simplifies recursively iterating over types from the Go [types] package.

Named types are treated as leaves, except for their type arguments. This keeps
every walk finite, even for recursive type declarations.
*/
package walktypes

import (
	"errors"
	"fmt"
	"go/types"
)

// Walk calls fn on all immediate children of type t.
// For a *types.Named, the children are its type arguments.
// Returns early if fn returns an error.
func Walk(t types.Type, fn func(types.Type) error) error {
	walkTuple := func(tup *types.Tuple) error {
		for i := range tup.Len() {
			if err := fn(tup.At(i).Type()); err != nil {
				return err
			}
		}
		return nil
	}

	switch t := t.(type) {
	case *types.Basic, *types.TypeParam, nil:
		return nil
	case *types.Alias:
		return fn(t.Rhs())
	case *types.Pointer:
		return fn(t.Elem())
	case *types.Slice:
		return fn(t.Elem())
	case *types.Array:
		return fn(t.Elem())
	case *types.Chan:
		return fn(t.Elem())
	case *types.Map:
		if err := fn(t.Key()); err != nil {
			return err
		}
		return fn(t.Elem())
	case *types.Struct:
		for i := range t.NumFields() {
			if err := fn(t.Field(i).Type()); err != nil {
				return err
			}
		}
		return nil
	case *types.Tuple:
		return walkTuple(t)
	case *types.Signature:
		if err := walkTuple(t.Params()); err != nil {
			return err
		}
		return walkTuple(t.Results())
	case *types.Interface:
		for i := range t.NumExplicitMethods() {
			if err := fn(t.ExplicitMethod(i).Type()); err != nil {
				return err
			}
		}
		for i := range t.NumEmbeddeds() {
			if err := fn(t.EmbeddedType(i)); err != nil {
				return err
			}
		}
		return nil
	case *types.Union:
		for i := range t.Len() {
			if err := fn(t.Term(i).Type()); err != nil {
				return err
			}
		}
		return nil
	case *types.Named:
		args := t.TypeArgs()
		for i := range args.Len() {
			if err := fn(args.At(i)); err != nil {
				return err
			}
		}
		return nil
	default:
		panic(fmt.Sprintf("Walk: unknown type %T", t))
	}
}

var errFound = errors.New("found")

// ContainsTypeParam reports whether a type parameter occurs anywhere in t,
// including in the type arguments of named types.
func ContainsTypeParam(t types.Type) bool {
	var check func(types.Type) error
	check = func(t types.Type) error {
		if _, ok := t.(*types.TypeParam); ok {
			return errFound
		}
		return Walk(t, check)
	}
	return check(t) != nil
}

// Unalias resolves aliases at every level of t, not just the outermost one
// like [types.Unalias]. Instantiated named types are re-instantiated with
// their unaliased type arguments through ctxt, so identical instantiations
// keep sharing one *types.Named.
//
// Types that contain no aliases are returned unchanged.
func Unalias(ctxt *types.Context, t types.Type) types.Type {
	t = types.Unalias(t)

	unaliasVars := func(vars []*types.Var) ([]*types.Var, bool) {
		changed := false
		res := make([]*types.Var, len(vars))
		for i, v := range vars {
			nt := Unalias(ctxt, v.Type())
			if nt != v.Type() {
				changed = true
				v = types.NewField(v.Pos(), v.Pkg(), v.Name(), nt, v.Embedded())
			}
			res[i] = v
		}
		return res, changed
	}
	tupleVars := func(tup *types.Tuple) []*types.Var {
		vars := make([]*types.Var, tup.Len())
		for i := range tup.Len() {
			vars[i] = tup.At(i)
		}
		return vars
	}

	switch t := t.(type) {
	case *types.Pointer:
		if elem := Unalias(ctxt, t.Elem()); elem != t.Elem() {
			return types.NewPointer(elem)
		}
	case *types.Slice:
		if elem := Unalias(ctxt, t.Elem()); elem != t.Elem() {
			return types.NewSlice(elem)
		}
	case *types.Array:
		if elem := Unalias(ctxt, t.Elem()); elem != t.Elem() {
			return types.NewArray(elem, t.Len())
		}
	case *types.Chan:
		if elem := Unalias(ctxt, t.Elem()); elem != t.Elem() {
			return types.NewChan(t.Dir(), elem)
		}
	case *types.Map:
		key, elem := Unalias(ctxt, t.Key()), Unalias(ctxt, t.Elem())
		if key != t.Key() || elem != t.Elem() {
			return types.NewMap(key, elem)
		}
	case *types.Struct:
		fields := make([]*types.Var, t.NumFields())
		tags := make([]string, t.NumFields())
		for i := range t.NumFields() {
			fields[i] = t.Field(i)
			tags[i] = t.Tag(i)
		}
		if newFields, changed := unaliasVars(fields); changed {
			return types.NewStruct(newFields, tags)
		}
	case *types.Signature:
		if t.TypeParams().Len() > 0 || t.RecvTypeParams().Len() > 0 {
			// Generic signatures are only ever printed, never compared.
			return t
		}
		params, pChanged := unaliasVars(tupleVars(t.Params()))
		results, rChanged := unaliasVars(tupleVars(t.Results()))
		if pChanged || rChanged {
			return types.NewSignatureType(t.Recv(), nil, nil,
				types.NewTuple(params...), types.NewTuple(results...), t.Variadic())
		}
	case *types.Named:
		args := t.TypeArgs()
		if args.Len() == 0 {
			return t
		}
		newArgs := make([]types.Type, args.Len())
		changed := false
		for i := range args.Len() {
			newArgs[i] = Unalias(ctxt, args.At(i))
			if newArgs[i] != args.At(i) {
				changed = true
			}
		}
		if changed {
			inst, err := types.Instantiate(ctxt, t.Origin(), newArgs, false)
			if err != nil {
				panic(fmt.Sprintf("programmer error: re-instantiate %v: %v", t, err))
			}
			return inst
		}
	}
	return t
}
