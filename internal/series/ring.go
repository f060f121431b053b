package series

// DefaultCapacity is the number of points the dashboard keeps on screen.
const DefaultCapacity = 20

// Ring is a fixed-capacity circular buffer. Push is O(1); once full, each push
// overwrites the oldest element. Ring is not safe for concurrent use.
type Ring[T any] struct {
	data  []T
	head  int
	count int
}

// NewRing creates a ring holding at most size elements.
func NewRing[T any](size int) *Ring[T] {
	if size <= 0 {
		size = DefaultCapacity
	}
	return &Ring[T]{data: make([]T, size)}
}

// Push appends v, evicting the oldest element when the ring is full.
// It reports whether an element was evicted.
func (r *Ring[T]) Push(v T) bool {
	evicted := r.count == len(r.data)
	r.data[r.head] = v
	r.head = (r.head + 1) % len(r.data)
	if !evicted {
		r.count++
	}
	return evicted
}

// Last returns the last n elements in chronological order (oldest first).
// It returns fewer when the ring holds less than n.
func (r *Ring[T]) Last(n int) []T {
	if n > r.count {
		n = r.count
	}
	if n <= 0 {
		return []T{}
	}

	out := make([]T, n)
	// head is the next write slot, so the newest element sits at head-1.
	start := (r.head - n + len(r.data)) % len(r.data)
	for i := range n {
		out[i] = r.data[(start+i)%len(r.data)]
	}
	return out
}

// All returns every element in chronological order.
func (r *Ring[T]) All() []T {
	return r.Last(r.count)
}

// Newest returns the most recently pushed element.
func (r *Ring[T]) Newest() (T, bool) {
	var zero T
	if r.count == 0 {
		return zero, false
	}
	return r.data[(r.head-1+len(r.data))%len(r.data)], true
}

// Len returns the number of stored elements.
func (r *Ring[T]) Len() int { return r.count }

// Cap returns the ring capacity.
func (r *Ring[T]) Cap() int { return len(r.data) }

// Clear drops every element without reallocating.
func (r *Ring[T]) Clear() {
	clear(r.data)
	r.head = 0
	r.count = 0
}
