package value

import "fmt"

// NewTyped creates a Value with an arbitrary (Type, Internal) pair, for
// packages that register their own ObjType, so that internal/value
// never needs to import them back. (internal/script and
// internal/bytecode attach their types to existing Values with SetType
// instead.)
func (r *Registry) NewTyped(t *ObjType, internal any) *Value {
	v := r.alloc()
	v.Type = t
	v.Internal = internal
	return v
}

// SourceRep decorates an otherwise-string Value with the filename/line
// it originated from. It never changes the Value's string
// representation -- SetType keeps the string side, so String still
// reports the plain text set before the decoration was attached, and
// UpdateString (which returns "") is not consulted.
type SourceRep struct {
	Filename string
	Line     int
}

var SourceType = &ObjType{
	Name: "source",
	UpdateString: func(v *Value) string {
		// A Source-tagged Value always arrives with its string side
		// already materialized (it decorates an existing literal); if
		// not, there is nothing sensible to regenerate.
		return ""
	},
}

// DictSubstRep implements the `$var(key)` compound syntactic sugar: the
// pair of Values naming the variable and the key, so a single
// substitution token can carry both without a second parse.
type DictSubstRep struct {
	VarName *Value
	Key     *Value
}

var DictSubstType = &ObjType{
	Name: "dictsubst",
	UpdateString: func(v *Value) string {
		ds := v.Internal.(*DictSubstRep)
		return fmt.Sprintf("%s(%s)", ds.VarName.String(), ds.Key.String())
	},
	FreeIntRep: func(v *Value) {
		ds := v.Internal.(*DictSubstRep)
		ds.VarName.DecrRef()
		ds.Key.DecrRef()
	},
	DupIntRep: func(dst, src *Value) {
		ds := src.Internal.(*DictSubstRep)
		dst.Internal = &DictSubstRep{VarName: ds.VarName.IncrRef(), Key: ds.Key.IncrRef()}
	},
}

// NewDictSubst creates a $var(key) sugar Value, retaining both parts.
func (r *Registry) NewDictSubst(varName, key *Value) *Value {
	v := r.alloc()
	v.Type = DictSubstType
	v.Internal = &DictSubstRep{VarName: varName.IncrRef(), Key: key.IncrRef()}
	return v
}
