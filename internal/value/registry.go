package value

// Registry owns every Value created for one Interp: an intrusive
// doubly linked list of every currently-live Value. Go's garbage
// collector reclaims the backing memory once a Value becomes
// unreachable, so Registry does not need a real free list for
// allocation reuse; what it must still provide faithfully is the
// walkable live-list the Reference GC's mark phase scans, since that
// scan is a semantic requirement (find every reference token embedded
// in a live Value's string), not a memory-management one.
//
// Values are never shared between Registries (one per Interp); doing
// so would violate the single-threaded, per-Interp ownership model.
type Registry struct {
	head, tail *Value
	count      int
}

// NewRegistry creates an empty Value registry for one Interp.
func NewRegistry() *Registry {
	return &Registry{}
}

// alloc creates a fresh, refcount-0 Value linked at the tail of the
// live list and returns it. Every New* constructor in this package
// funnels through here.
func (r *Registry) alloc() *Value {
	v := &Value{reg: r}
	if r.tail == nil {
		r.head, r.tail = v, v
	} else {
		r.tail.next = v
		v.prev = r.tail
		r.tail = v
	}
	r.count++
	return v
}

func (r *Registry) unlink(v *Value) {
	if v.prev != nil {
		v.prev.next = v.next
	} else if r.head == v {
		r.head = v.next
	}
	if v.next != nil {
		v.next.prev = v.prev
	} else if r.tail == v {
		r.tail = v.prev
	}
	v.prev, v.next = nil, nil
	r.count--
}

// Len returns the number of live Values currently tracked.
func (r *Registry) Len() int {
	return r.count
}

// Walk invokes f for every live Value, oldest first. The Reference
// GC's mark phase uses this to scan string representations for
// embedded reference tokens.
func (r *Registry) Walk(f func(v *Value)) {
	for v := r.head; v != nil; v = v.next {
		f(v)
	}
}

// NewEmptyString returns a freshly allocated, refcount-0 Value holding
// the shared empty string sentinel.
func (r *Registry) NewEmptyString() *Value {
	v := r.alloc()
	v.str = sharedEmptyString
	v.strValid = true
	return v
}

// NewString creates a fresh string-only Value (nil Type).
func (r *Registry) NewString(s string) *Value {
	v := r.alloc()
	v.str = s
	v.strValid = true
	return v
}
