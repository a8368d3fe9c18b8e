package value

// Map is a hash-map from Value to Value with auto-extend read semantics: a
// missing key is inserted with Int(0) rather than failing (spec §4.3,
// §8 scenario S3). Entries are bucketed by Hash() with a linear scan
// within the bucket to resolve collisions via Equal, since Value is not a
// Go-comparable type in general (arrays/structs/etc).
type Map struct {
	buckets map[uint64][]*mapEntry
	order   []*mapEntry // insertion order, for deterministic iteration
}

type mapEntry struct {
	key Value
	val Value
}

func NewMap() *Map {
	return &Map{buckets: map[uint64][]*mapEntry{}}
}

func (m *Map) Kind() Kind    { return MapKind }
func (m *Map) TypeID() int64 { return builtinTypeID(MapKind) }

func (m *Map) Copy() Value {
	out := NewMap()
	for _, e := range m.order {
		out.Put(e.key.Copy(), e.val.Copy())
	}
	return out
}

func (m *Map) Equal(o Value) bool {
	om, ok := o.(*Map)
	if !ok || len(om.order) != len(m.order) {
		return false
	}
	for _, e := range m.order {
		v, ok := om.Lookup(e.key)
		if !ok || !v.Equal(e.val) {
			return false
		}
	}
	return true
}

func (m *Map) Hash() uint64 {
	var h uint64
	for _, e := range m.order {
		// XOR so hash is independent of insertion order, matching Equal.
		h ^= e.key.Hash()*31 + e.val.Hash()
	}
	return h
}

func (m *Map) String() (string, error) { return "", ErrNoStringRepr }

func (m *Map) entry(key Value) *mapEntry {
	for _, e := range m.buckets[key.Hash()] {
		if e.key.Equal(key) {
			return e
		}
	}
	return nil
}

// Lookup returns the value bound to key without inserting anything.
func (m *Map) Lookup(key Value) (Value, bool) {
	if e := m.entry(key); e != nil {
		return e.val, true
	}
	return nil, false
}

// Put inserts or overwrites the binding for key.
func (m *Map) Put(key, val Value) {
	if e := m.entry(key); e != nil {
		e.val = val
		return
	}
	e := &mapEntry{key: key, val: val}
	h := key.Hash()
	m.buckets[h] = append(m.buckets[h], e)
	m.order = append(m.order, e)
}

// Get implements the auto-extend `m[key]` read contract (spec §4.3,
// §8 scenario S3): a missing key is inserted with Int(0) and that zero is
// returned.
func (m *Map) Get(key Value) Value {
	if e := m.entry(key); e != nil {
		return e.val
	}
	m.Put(key, Int(0))
	return Int(0)
}

func (m *Map) Len() int { return len(m.order) }

// Keys returns the keys in insertion order.
func (m *Map) Keys() []Value {
	out := make([]Value, len(m.order))
	for i, e := range m.order {
		out[i] = e.key
	}
	return out
}
