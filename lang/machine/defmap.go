package machine

// defMap is a Value-keyed map used for a clip's self-dictionary (defs). A
// generic swiss.Map (as the teacher's lang/machine/map.go uses for its own
// Map type) requires a comparable key type; Value cannot be comparable
// because its Tuple variant holds a slice. This hand-rolled hash-bucket map
// is the one stdlib-only component in the runtime (see DESIGN.md) — it
// uses Value.Hash for bucketing and Value.Equals to resolve collisions
// within a bucket, the same two operations a comparable-keyed map would
// get for free from Go's built-in equality.
type defMap struct {
	buckets map[uint64][]defEntry
	size    int
}

type defEntry struct {
	key Value
	val Value
}

func newDefMap() *defMap {
	return &defMap{buckets: make(map[uint64][]defEntry)}
}

func (m *defMap) get(key Value) (Value, bool) {
	for _, e := range m.buckets[key.Hash()] {
		if e.key.Equals(key) {
			return e.val, true
		}
	}
	return Nil, false
}

func (m *defMap) set(key, val Value) {
	h := key.Hash()
	bucket := m.buckets[h]
	for i, e := range bucket {
		if e.key.Equals(key) {
			bucket[i].val = val
			return
		}
	}
	m.buckets[h] = append(bucket, defEntry{key: key, val: val})
	m.size++
}

func (m *defMap) len() int { return m.size }

// keys returns every key currently stored, in arbitrary order. Its caller,
// Thread.RunProgram, copies the entries into a Go map, so no order is
// needed there.
func (m *defMap) keys() []Value {
	out := make([]Value, 0, m.size)
	for _, bucket := range m.buckets {
		for _, e := range bucket {
			out = append(out, e.key)
		}
	}
	return out
}
