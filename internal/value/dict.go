package value

import "strings"

// DictRep is the internal representation of a Dict Value: a HashTable
// keyed by the string form of the key Value, mapping to retained
// Value->Value pairs, with insertion order preserved for iteration.
type DictRep struct {
	table *HashTable[string, dictEntry]
}

type dictEntry struct {
	key, val *Value
}

func newDictRep() *DictRep {
	d := &DictRep{table: NewHashTable[string, dictEntry]()}
	d.table.OnDelete = func(_ string, e dictEntry) {
		e.key.DecrRef()
		e.val.DecrRef()
	}
	return d
}

var DictType = &ObjType{
	Name: "dict",
	UpdateString: func(v *Value) string {
		d := v.Internal.(*DictRep)
		parts := make([]string, 0, d.table.Len()*2)
		d.table.Range(func(_ string, e dictEntry) bool {
			parts = append(parts, quoteListElement(e.key.String()), quoteListElement(e.val.String()))
			return true
		})
		return strings.Join(parts, " ")
	},
	FreeIntRep: func(v *Value) {
		d := v.Internal.(*DictRep)
		d.table.Range(func(_ string, e dictEntry) bool {
			e.key.DecrRef()
			e.val.DecrRef()
			return true
		})
	},
	DupIntRep: func(dst, src *Value) {
		sd := src.Internal.(*DictRep)
		nd := newDictRep()
		sd.table.Range(func(k string, e dictEntry) bool {
			nd.table.Set(k, dictEntry{key: e.key.IncrRef(), val: e.val.IncrRef()})
			return true
		})
		dst.Internal = nd
	},
}

// NewDict creates an empty Dict Value.
func (r *Registry) NewDict() *Value {
	v := r.alloc()
	v.Type = DictType
	v.Internal = newDictRep()
	return v
}

// AsDictRep shimmers v into a Dict internal representation, parsing
// its string side as an alternating key/value list if necessary (a
// dict's wire format is exactly a list).
func (v *Value) AsDictRep(parse func(s string) ([]string, error)) (*DictRep, error) {
	if d, ok := v.Internal.(*DictRep); ok && v.Type == DictType {
		return d, nil
	}
	elems, err := parse(v.String())
	if err != nil {
		return nil, err
	}
	if len(elems)%2 != 0 {
		return nil, errOddDictList
	}
	d := newDictRep()
	for i := 0; i < len(elems); i += 2 {
		k := v.reg.NewString(elems[i])
		val := v.reg.NewString(elems[i+1])
		d.table.Set(k.String(), dictEntry{key: k.IncrRef(), val: val.IncrRef()})
	}
	v.SetType(DictType, d)
	return d, nil
}

var errOddDictList = &dictError{"missing value to go with key"}

type dictError struct{ msg string }

func (e *dictError) Error() string { return e.msg }

// Get looks up key's string form in the dict, returning the value
// Value and whether it was present.
func (d *DictRep) Get(key *Value) (*Value, bool) {
	e, ok := d.table.Get(key.String())
	if !ok {
		return nil, false
	}
	return e.val, true
}

// Set inserts or updates key -> val, retaining both.
func (d *DictRep) Set(key, val *Value) {
	ks := key.String()
	if old, ok := d.table.Get(ks); ok {
		old.key.DecrRef()
		old.val.DecrRef()
	}
	d.table.Set(ks, dictEntry{key: key.IncrRef(), val: val.IncrRef()})
}

// Unset removes key, reporting whether it was present.
func (d *DictRep) Unset(key *Value) bool {
	return d.table.Delete(key.String())
}

// Len returns the number of key/value pairs.
func (d *DictRep) Len() int { return d.table.Len() }

// Keys returns the live keys in insertion order.
func (d *DictRep) Keys() []*Value {
	out := make([]*Value, 0, d.table.Len())
	d.table.Range(func(_ string, e dictEntry) bool {
		out = append(out, e.key)
		return true
	})
	return out
}

// Pairs returns (key, value) Values in insertion order.
func (d *DictRep) Pairs() [][2]*Value {
	out := make([][2]*Value, 0, d.table.Len())
	d.table.Range(func(_ string, e dictEntry) bool {
		out = append(out, [2]*Value{e.key, e.val})
		return true
	})
	return out
}
