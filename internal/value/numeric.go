package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// The Int, Double, Index and ReturnCode internal reps are copied by
// value (no DupIntRep hook needed): bit-copying an int64 or float64 preserves the type's
// invariants for Int, Double, Index, ReturnCode.

var IntType = &ObjType{
	Name:         "int",
	UpdateString: func(v *Value) string { return strconv.FormatInt(v.Internal.(int64), 10) },
}

var DoubleType = &ObjType{
	Name: "double",
	UpdateString: func(v *Value) string {
		f := v.Internal.(float64)
		if math.IsInf(f, 1) {
			return "inf"
		}
		if math.IsInf(f, -1) {
			return "-inf"
		}
		if math.IsNaN(f) {
			return "nan"
		}
		s := strconv.FormatFloat(f, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEnN") {
			s += ".0"
		}
		return s
	},
}

// CoercedDoubleType marks an Int internal rep that must be
// *advertised* as double-compatible: the numeric value is exact
// (stored as int64) but a reader asking "is this a double" should get
// true without losing integer exactness across loops that alternate
// int/double reads of the same Value.
var CoercedDoubleType = &ObjType{
	Name:         "coerced-double",
	UpdateString: func(v *Value) string { return strconv.FormatInt(v.Internal.(int64), 10) },
}

// IndexEnd / IndexBeforeAll are integer sentinels for "last element" and
// "before start". ParseIndex and Resolve do not use them: they express
// "end"/"end-k" through IndexRep.End and saturate to -1 / length.
const (
	IndexEnd       = math.MinInt64 + 1 // sentinel meaning "last element"
	IndexBeforeAll = math.MinInt64     // saturated "-N before start"
)

// IndexRep is the resolved form of an index literal: either a concrete
// offset, or an offset relative to "end" (End=true, Offset added/subtracted).
type IndexRep struct {
	End    bool
	Offset int64 // when End, the signed delta from the last element
	Abs    int64 // when !End, the absolute index
}

var IndexType = &ObjType{
	Name: "index",
	UpdateString: func(v *Value) string {
		ix := v.Internal.(IndexRep)
		if ix.End {
			if ix.Offset == 0 {
				return "end"
			}
			if ix.Offset > 0 {
				return fmt.Sprintf("end+%d", ix.Offset)
			}
			return fmt.Sprintf("end%d", ix.Offset)
		}
		return strconv.FormatInt(ix.Abs, 10)
	},
}

// ReturnCode mirrors the small enum of Evaluator outputs.
type ReturnCode int

const (
	Ok ReturnCode = iota
	Error
	Return
	Break
	Continue
	Signal
	Exit
	Eval
)

func (rc ReturnCode) String() string {
	switch rc {
	case Ok:
		return "ok"
	case Error:
		return "error"
	case Return:
		return "return"
	case Break:
		return "break"
	case Continue:
		return "continue"
	case Signal:
		return "signal"
	case Exit:
		return "exit"
	case Eval:
		return "eval"
	default:
		return fmt.Sprintf("returncode(%d)", int(rc))
	}
}

var ReturnCodeType = &ObjType{
	Name:         "returncode",
	UpdateString: func(v *Value) string { return v.Internal.(ReturnCode).String() },
}

// NewInt creates a Value whose internal representation is an exact int64
// and whose string side is not yet materialized.
func (r *Registry) NewInt(n int64) *Value {
	v := r.alloc()
	v.Type = IntType
	v.Internal = n
	return v
}

// NewDouble creates a Value whose internal representation is a float64.
func (r *Registry) NewDouble(f float64) *Value {
	v := r.alloc()
	v.Type = DoubleType
	v.Internal = f
	return v
}

// NewReturnCode creates a Value wrapping a ReturnCode enum member.
func (r *Registry) NewReturnCode(rc ReturnCode) *Value {
	v := r.alloc()
	v.Type = ReturnCodeType
	v.Internal = rc
	return v
}

// GetInt shimmers v to an Int internal representation if necessary
// (parsing its string side) and returns the int64 it holds. This is the
// generic conversion path: reading a typed view of an untyped Value is
// itself a legal mutation of its Type.
func (v *Value) GetInt() (int64, error) {
	if v.Type == IntType {
		return v.Internal.(int64), nil
	}
	if v.Type == CoercedDoubleType {
		return v.Internal.(int64), nil
	}
	s := strings.TrimSpace(v.String())
	n, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("expected integer but got %q", v.String())
	}
	v.SetType(IntType, n)
	return n, nil
}

// GetDouble shimmers v to a Double/CoercedDouble internal representation
// and returns its float64 value.
func (v *Value) GetDouble() (float64, error) {
	switch v.Type {
	case DoubleType:
		return v.Internal.(float64), nil
	case IntType, CoercedDoubleType:
		return float64(v.Internal.(int64)), nil
	}
	s := strings.TrimSpace(v.String())
	if n, err := strconv.ParseInt(s, 0, 64); err == nil {
		v.SetType(CoercedDoubleType, n)
		return float64(n), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("expected number but got %q", v.String())
	}
	v.SetType(DoubleType, f)
	return f, nil
}

// ParseIndex parses the index syntax: an integer literal (a negative one
// is kept as is and saturates to "before start" in Resolve); "end";
// "end-N"/"end+N". Resolve must be called with the sequence length to
// obtain a concrete offset.
func ParseIndex(s string) (IndexRep, error) {
	if s == "end" {
		return IndexRep{End: true, Offset: 0}, nil
	}
	if strings.HasPrefix(s, "end+") || strings.HasPrefix(s, "end-") {
		n, err := strconv.ParseInt(s[3:], 10, 64)
		if err != nil {
			return IndexRep{}, fmt.Errorf(`bad index %q: must be integer?[+-]integer? or end?[+-]integer?`, s)
		}
		return IndexRep{End: true, Offset: n}, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return IndexRep{}, fmt.Errorf(`bad index %q: must be integer?[+-]integer? or end?[+-]integer?`, s)
	}
	return IndexRep{End: false, Abs: n}, nil
}

// Resolve turns an IndexRep into a concrete 0-based offset against a
// sequence of the given length, saturating at "before start" (-1) and
// "past end" (length) rather than erroring.
func (ix IndexRep) Resolve(length int) int {
	if ix.End {
		n := int64(length-1) + ix.Offset
		if n < -1 {
			return -1
		}
		if n > int64(length) {
			return length
		}
		return int(n)
	}
	if ix.Abs < 0 {
		return -1
	}
	if ix.Abs > int64(length) {
		return length
	}
	return int(ix.Abs)
}

// IsIntRep reports whether v's internal representation is currently Int
// or CoercedDouble (both an exact int64), whether or not its string side
// is materialized -- the guard checked before preferring integer
// arithmetic over doubles for a binary operator. A Double's string never
// parses as an integer (it always carries '.', an exponent, or inf/nan),
// so a Value whose string came from a Double does not reach an Int rep.
func (v *Value) IsIntRep() bool {
	return v.Type == IntType || v.Type == CoercedDoubleType
}
