// Package value implements the Engine's polymorphic, dual-representation
// Value cell: a reference-counted unit of data with an optional string
// side and an optional typed internal side, kept in sync by lazy
// "shimmering" conversions.
//
// The design mirrors Jim Tcl's Jim_Obj: a Value's Type is a pointer to a
// small vtable of hooks (UpdateString/FreeIntRep/DupIntRep) rather than a
// closed enum, so new internal representations can be registered by
// whichever package owns them (internal/script registers the Script
// type, internal/bytecode registers the Expression type) without value
// importing those packages back.
package value

import "fmt"

// ObjType is the vtable attached to a Value's typed internal representation.
// A nil Type means "string only": the Value has no internal representation,
// only a string side.
type ObjType struct {
	// Name identifies the type for diagnostics (e.g. "int", "list", "script").
	Name string

	// UpdateString regenerates v.str from v.internal. Called lazily the
	// first time a consumer asks for the string side of a Value whose
	// bytes are not materialized.
	UpdateString func(v *Value) string

	// FreeIntRep releases anything the internal representation owns
	// (e.g. a List's element references). May be nil if there is
	// nothing to release.
	FreeIntRep func(v *Value)

	// DupIntRep produces a cloned internal representation for dst,
	// given src. May be nil, in which case the internal representation
	// is copied by value (valid for Int, Double, Index, ReturnCode).
	DupIntRep func(dst, src *Value)
}

// Value is the universal tagged, refcounted, dual-representation unit of
// data handled by the Engine. Every Value is owned by exactly one
// Registry (== one Interp); Values are never shared across Registries.
type Value struct {
	refCount int
	freed    bool // set once refCount drops to/below 0; re-entry is a programming error

	str      string
	strValid bool

	Type     *ObjType
	Internal any // interpretation depends on Type; nil when Type is nil

	// prev/next thread this Value into its owning Registry's live list,
	// which the Reference GC's mark phase walks.
	prev, next *Value

	reg *Registry
}

// sharedEmptyString is the conceptual "empty string sentinel": a single
// shared empty-string representation so that the overwhelmingly common
// empty Value never needs a distinct allocation. Go string header
// copies are already cheap/alloc-free for "", so this exists to
// document the invariant rather than to avoid a real allocation;
// FreeIntRep-adjacent code must still recognize it.
const sharedEmptyString = ""

// InvariantViolation is panicked when a caller breaks one of the
// Value invariants: mutating a shared Value, or re-entering a freed
// Value. Recovering at the embedding boundary distinguishes this
// from a script-level error.
type InvariantViolation struct {
	File string
	Line int
	Kind string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("%s:%d: value invariant violated: %s", e.File, e.Line, e.Kind)
}

func panicInvariant(kind string) {
	panic(&InvariantViolation{Kind: kind})
}

// IsShared reports whether v has more than one owner (refcount > 1),
// meaning mutators must clone before writing.
func (v *Value) IsShared() bool {
	return v.refCount > 1
}

// RefCount returns the current reference count.
func (v *Value) RefCount() int {
	return v.refCount
}

// IncrRef increments the reference count and returns v, for chaining.
func (v *Value) IncrRef() *Value {
	if v.freed {
		panicInvariant("incrRef on freed value")
	}
	v.refCount++
	return v
}

// DecrRef decrements the reference count. At zero (or below, which is
// a defensive clamp) the Value is unlinked from the live list, its
// internal representation is released via FreeIntRep, and it is
// marked freed so any further use panics.
func (v *Value) DecrRef() {
	if v.freed {
		panicInvariant("decrRef on already-freed value")
	}
	v.refCount--
	if v.refCount > 0 {
		return
	}
	if v.Type != nil && v.Type.FreeIntRep != nil {
		v.Type.FreeIntRep(v)
	}
	if v.reg != nil {
		v.reg.unlink(v)
	}
	v.freed = true
	v.Internal = nil
}

// mustNotBeShared panics if v is shared; call before any in-place mutation.
func (v *Value) mustNotBeShared() {
	if v.freed {
		panicInvariant("mutate on freed value")
	}
	if v.IsShared() {
		panicInvariant("mutate on shared value (refcount > 1); clone first")
	}
}

// SetType installs a new Type/Internal pair, releasing whatever the
// Value previously held. The string side is preserved: it is still
// valid for the *previous* type, since SetType is the moment of first
// conversion from the string side, so bytes stays valid as the ground
// truth until a later Set* call mutates the internal rep.
func (v *Value) SetType(t *ObjType, internal any) {
	v.mustNotBeShared()
	if v.Type != nil && v.Type.FreeIntRep != nil {
		v.Type.FreeIntRep(v)
	}
	v.Type = t
	v.Internal = internal
}

// InvalidateString drops the cached string side after an in-place
// mutation of the internal representation. The next caller of
// String() regenerates it via Type.UpdateString.
func (v *Value) InvalidateString() {
	v.mustNotBeShared()
	if v.strValid && v.str != sharedEmptyString {
		v.str = ""
	}
	v.strValid = false
}

// String returns the Value's string representation, materializing it
// from the internal representation via Type.UpdateString if necessary.
// This is the "shimmering" read path: requesting the string side of a
// Value never errors and never requires a distinct type, unlike
// requesting a particular internal type.
func (v *Value) String() string {
	if v.strValid {
		return v.str
	}
	if v.Type == nil || v.Type.UpdateString == nil {
		// No internal representation and no cached string: treat as empty.
		v.str = sharedEmptyString
		v.strValid = true
		return v.str
	}
	v.str = v.Type.UpdateString(v)
	v.strValid = true
	return v.str
}

// SetString replaces the string side directly and drops any internal
// representation (a fresh string-only Value: nil type means "string
// only").
func (v *Value) SetString(s string) {
	v.mustNotBeShared()
	if v.Type != nil && v.Type.FreeIntRep != nil {
		v.Type.FreeIntRep(v)
	}
	v.Type = nil
	v.Internal = nil
	v.str = s
	v.strValid = true
}

// HasStringRep reports whether the string side is already materialized,
// without triggering UpdateString (used by fast paths that want to
// avoid forcing a shimmer).
func (v *Value) HasStringRep() bool {
	return v.strValid
}

// Dup produces an independent clone of v: same string/internal content,
// refcount reset to 0, freshly linked into the same Registry's live
// list. Honors Type.DupIntRep when present; otherwise bit-copies
// Internal, which is sound for the value-typed internal reps (Int,
// Double, Index, ReturnCode).
func (v *Value) Dup() *Value {
	dst := v.reg.alloc()
	dst.str = v.str
	dst.strValid = v.strValid
	dst.Type = v.Type
	if v.Type != nil && v.Type.DupIntRep != nil {
		v.Type.DupIntRep(dst, v)
	} else {
		dst.Internal = v.Internal
	}
	return dst
}
