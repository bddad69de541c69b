package types

import "github.com/talgya/grandsim/internal/fixed"

// IndexedMap is a dense array holding one V per registered member of entity
// class K. Order matches registration order; access is O(1).
type IndexedMap[K Index, V any] struct {
	items []V
}

// NewIndexedMap sizes a map for n registered keys.
func NewIndexedMap[K Index, V any](n int) IndexedMap[K, V] {
	return IndexedMap[K, V]{items: make([]V, n)}
}

// Len returns |K|.
func (m *IndexedMap[K, V]) Len() int { return len(m.items) }

// At returns the value for k.
func (m *IndexedMap[K, V]) At(k K) V { return m.items[k] }

// Ref returns a pointer to the value for k.
func (m *IndexedMap[K, V]) Ref(k K) *V { return &m.items[k] }

// Set stores v for k.
func (m *IndexedMap[K, V]) Set(k K, v V) { m.items[k] = v }

// Fill sets every slot to v.
func (m *IndexedMap[K, V]) Fill(v V) {
	for i := range m.items {
		m.items[i] = v
	}
}

// Values exposes the backing slice in registration order.
func (m *IndexedMap[K, V]) Values() []V { return m.items }

// IndexedPoints is an IndexedMap specialised to fixed-point values, with the
// element-wise arithmetic the share-distribution code relies on.
type IndexedPoints[K Index] struct {
	items []fixed.Point
}

// NewIndexedPoints sizes a dense fixed-point map for n registered keys.
func NewIndexedPoints[K Index](n int) IndexedPoints[K] {
	return IndexedPoints[K]{items: make([]fixed.Point, n)}
}

// Len returns |K|.
func (m *IndexedPoints[K]) Len() int { return len(m.items) }

// At returns the value for k, or zero when the map is unsized.
func (m *IndexedPoints[K]) At(k K) fixed.Point {
	if int(k) >= len(m.items) || k < 0 {
		return 0
	}
	return m.items[k]
}

// Set stores v for k.
func (m *IndexedPoints[K]) Set(k K, v fixed.Point) { m.items[k] = v }

// AddAt adds v to the slot for k.
func (m *IndexedPoints[K]) AddAt(k K, v fixed.Point) { m.items[k] += v }

// Fill sets every slot to v.
func (m *IndexedPoints[K]) Fill(v fixed.Point) {
	for i := range m.items {
		m.items[i] = v
	}
}

// Clear zeroes the map.
func (m *IndexedPoints[K]) Clear() { m.Fill(0) }

// Values exposes the backing slice in registration order.
func (m *IndexedPoints[K]) Values() []fixed.Point { return m.items }

// AddAssign adds other element-wise. Both maps must be sized for the same
// key set.
func (m *IndexedPoints[K]) AddAssign(other *IndexedPoints[K]) {
	for i, v := range other.items {
		m.items[i] += v
	}
}

// SubAssign subtracts other element-wise.
func (m *IndexedPoints[K]) SubAssign(other *IndexedPoints[K]) {
	for i, v := range other.items {
		m.items[i] -= v
	}
}

// MulScalar multiplies every element by s.
func (m *IndexedPoints[K]) MulScalar(s fixed.Point) {
	for i := range m.items {
		m.items[i] = m.items[i].Mul(s)
	}
}

// DivScalar divides every element by s.
func (m *IndexedPoints[K]) DivScalar(s fixed.Point) {
	for i := range m.items {
		m.items[i] = m.items[i].Div(s)
	}
}

// Total sums all elements.
func (m *IndexedPoints[K]) Total() fixed.Point {
	var sum fixed.Point
	for _, v := range m.items {
		sum += v
	}
	return sum
}

// NormaliseTo scales the map so its total equals target. A zero current total
// leaves the map unchanged.
func (m *IndexedPoints[K]) NormaliseTo(target fixed.Point) {
	total := m.Total()
	if total == 0 {
		return
	}
	for i := range m.items {
		m.items[i] = fixed.MulDiv(m.items[i], target, total)
	}
}

// Rescale re-normalises a drifted share distribution back to target, the
// operation used to pin pop ideology distributions to pop size.
func (m *IndexedPoints[K]) Rescale(target fixed.Point) { m.NormaliseTo(target) }
