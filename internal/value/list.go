package value

import "strings"

// ListRep is the growable vector of Value handles backing a List
// Value. Every element is retained (IncrRef'd) while it is a member
// of the list and released on removal/free, so that the sum over a
// list of its elements' ref contributions always equals the list's
// length.
type ListRep struct {
	Elems []*Value
}

var ListType = &ObjType{
	Name: "list",
	UpdateString: func(v *Value) string {
		l := v.Internal.(*ListRep)
		parts := make([]string, len(l.Elems))
		for i, e := range l.Elems {
			parts[i] = quoteListElement(e.String())
		}
		return strings.Join(parts, " ")
	},
	FreeIntRep: func(v *Value) {
		l := v.Internal.(*ListRep)
		for _, e := range l.Elems {
			e.DecrRef()
		}
	},
	DupIntRep: func(dst, src *Value) {
		l := src.Internal.(*ListRep)
		elems := make([]*Value, len(l.Elems))
		for i, e := range l.Elems {
			elems[i] = e.IncrRef()
		}
		dst.Internal = &ListRep{Elems: elems}
	},
}

// quoteListElement applies the minimal braces-quoting a list
// serialization needs so that splitting the joined string with the
// list tokenizer reproduces the element exactly. An element needs
// braces if it is empty, or contains whitespace, a brace, a bracket, a
// dollar sign, a double quote, a semicolon, or a backslash.
func quoteListElement(s string) string {
	if s == "" {
		return "{}"
	}
	needsQuote := false
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r', '{', '}', '[', ']', '$', '"', ';', '\\':
			needsQuote = true
		}
	}
	if !needsQuote {
		return s
	}
	if strings.Contains(s, "{") || strings.Contains(s, "}") {
		depth, balanced := 0, true
		for i := 0; i < len(s) && balanced; i++ {
			switch s[i] {
			case '\\':
				balanced = i+1 < len(s)
				i++
			case '{':
				depth++
			case '}':
				depth--
				balanced = depth >= 0
			}
		}
		if balanced && depth == 0 {
			return "{" + s + "}"
		}
		// Fall back to backslash-escaping braces rather than nesting
		// them unbalanced.
		var b strings.Builder
		b.WriteByte('{')
		for _, r := range s {
			if r == '{' || r == '}' || r == '\\' {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		}
		b.WriteByte('}')
		return b.String()
	}
	return "{" + s + "}"
}

// NewList creates a List Value taking ownership of (retaining) elems.
func (r *Registry) NewList(elems []*Value) *Value {
	retained := make([]*Value, len(elems))
	for i, e := range elems {
		retained[i] = e.IncrRef()
	}
	v := r.alloc()
	v.Type = ListType
	v.Internal = &ListRep{Elems: retained}
	return v
}

// AsListRep shimmers v into a List internal representation, parsing
// its string side with the list tokenizer if it was not already a
// list. parse is supplied by the caller (internal/lexer) to avoid an
// import cycle.
func (v *Value) AsListRep(parse func(s string) ([]string, error)) (*ListRep, error) {
	if l, ok := v.Internal.(*ListRep); ok && v.Type == ListType {
		return l, nil
	}
	elems, err := parse(v.String())
	if err != nil {
		return nil, err
	}
	vals := make([]*Value, len(elems))
	for i, e := range elems {
		vals[i] = v.reg.NewString(e).IncrRef()
	}
	rep := &ListRep{Elems: vals}
	v.SetType(ListType, rep)
	return rep, nil
}

// Length returns len(Elems) for a List-shimmered Value without forcing
// re-parse if the string side is absent.
func (l *ListRep) Length() int { return len(l.Elems) }

// Append retains and appends val; caller must hold exclusive access
// (IsShared == false).
func (l *ListRep) Append(val *Value) {
	l.Elems = append(l.Elems, val.IncrRef())
}
