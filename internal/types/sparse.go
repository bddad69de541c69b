package types

import "github.com/talgya/grandsim/internal/fixed"

// SparsePoints is an insertion-ordered sparse (key -> fixed-point) map,
// backed by an entry slice plus a key index. Iteration order is the order
// keys were first inserted.
type SparsePoints[K comparable] struct {
	entries []SparseEntry[K]
	index   map[K]int
}

// SparseEntry is one (key, value) pair of a SparsePoints map.
type SparseEntry[K comparable] struct {
	Key   K
	Value fixed.Point
}

// NewSparsePoints returns an empty map.
func NewSparsePoints[K comparable]() *SparsePoints[K] {
	return &SparsePoints[K]{index: make(map[K]int)}
}

// Len returns the number of distinct keys.
func (m *SparsePoints[K]) Len() int { return len(m.entries) }

// Get returns the value for k, zero when absent.
func (m *SparsePoints[K]) Get(k K) fixed.Point {
	if i, ok := m.index[k]; ok {
		return m.entries[i].Value
	}
	return 0
}

// Has reports whether k is present.
func (m *SparsePoints[K]) Has(k K) bool {
	_, ok := m.index[k]
	return ok
}

// Set stores v for k, inserting at the back when k is new.
func (m *SparsePoints[K]) Set(k K, v fixed.Point) {
	if i, ok := m.index[k]; ok {
		m.entries[i].Value = v
		return
	}
	m.index[k] = len(m.entries)
	m.entries = append(m.entries, SparseEntry[K]{Key: k, Value: v})
}

// Add adds v to the value for k, inserting when absent.
func (m *SparsePoints[K]) Add(k K, v fixed.Point) {
	if i, ok := m.index[k]; ok {
		m.entries[i].Value += v
		return
	}
	m.Set(k, v)
}

// Clear removes every entry but keeps the allocations.
func (m *SparsePoints[K]) Clear() {
	m.entries = m.entries[:0]
	for k := range m.index {
		delete(m.index, k)
	}
}

// Entries exposes the backing slice in insertion order. Mutating values
// through it is allowed; keys must not change.
func (m *SparsePoints[K]) Entries() []SparseEntry[K] { return m.entries }

// Total sums all values.
func (m *SparsePoints[K]) Total() fixed.Point {
	var sum fixed.Point
	for _, e := range m.entries {
		sum += e.Value
	}
	return sum
}

// Largest returns the entry with the greatest value. ok is false when the
// map is empty. Earlier insertion wins ties.
func (m *SparsePoints[K]) Largest() (SparseEntry[K], bool) {
	if len(m.entries) == 0 {
		var zero SparseEntry[K]
		return zero, false
	}
	best := m.entries[0]
	for _, e := range m.entries[1:] {
		if e.Value > best.Value {
			best = e
		}
	}
	return best, true
}

// LargestTieBreak is Largest but equal values are resolved by pred(challenger
// key, incumbent key) returning true when the challenger should win.
func (m *SparsePoints[K]) LargestTieBreak(pred func(challenger, incumbent K) bool) (SparseEntry[K], bool) {
	if len(m.entries) == 0 {
		var zero SparseEntry[K]
		return zero, false
	}
	best := m.entries[0]
	for _, e := range m.entries[1:] {
		if e.Value > best.Value || (e.Value == best.Value && pred(e.Key, best.Key)) {
			best = e
		}
	}
	return best, true
}

// LargestTwo returns the two greatest entries in one pass. Either ok flag is
// false when the corresponding entry does not exist.
func (m *SparsePoints[K]) LargestTwo() (first SparseEntry[K], firstOK bool, second SparseEntry[K], secondOK bool) {
	for _, e := range m.entries {
		switch {
		case !firstOK || e.Value > first.Value:
			if firstOK {
				second, secondOK = first, true
			}
			first, firstOK = e, true
		case !secondOK || e.Value > second.Value:
			second, secondOK = e, true
		}
	}
	return
}

// AddAssign adds other element-wise, inserting keys absent from m.
func (m *SparsePoints[K]) AddAssign(other *SparsePoints[K]) {
	for _, e := range other.entries {
		m.Add(e.Key, e.Value)
	}
}

// SubAssign subtracts other element-wise.
func (m *SparsePoints[K]) SubAssign(other *SparsePoints[K]) {
	for _, e := range other.entries {
		m.Add(e.Key, -e.Value)
	}
}

// MulScalar multiplies every value by s.
func (m *SparsePoints[K]) MulScalar(s fixed.Point) {
	for i := range m.entries {
		m.entries[i].Value = m.entries[i].Value.Mul(s)
	}
}

// DivScalar divides every value by s.
func (m *SparsePoints[K]) DivScalar(s fixed.Point) {
	for i := range m.entries {
		m.entries[i].Value = m.entries[i].Value.Div(s)
	}
}

// Rescale scales all values so the total equals target. No-op when the
// current total is zero.
func (m *SparsePoints[K]) Rescale(target fixed.Point) {
	total := m.Total()
	if total == 0 {
		return
	}
	for i := range m.entries {
		m.entries[i].Value = fixed.MulDiv(m.entries[i].Value, target, total)
	}
}

// Clone returns a deep copy of m.
func (m *SparsePoints[K]) Clone() *SparsePoints[K] {
	c := &SparsePoints[K]{
		entries: make([]SparseEntry[K], len(m.entries)),
		index:   make(map[K]int, len(m.index)),
	}
	copy(c.entries, m.entries)
	for k, i := range m.index {
		c.index[k] = i
	}
	return c
}
