package series

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRing(t *testing.T) {
	tests := []struct {
		name     string
		size     int
		expected int
	}{
		{"default size", 0, DefaultCapacity},
		{"negative size", -3, DefaultCapacity},
		{"custom size", 5, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRing[int](tt.size)
			assert.Equal(t, tt.expected, r.Cap())
			assert.Equal(t, 0, r.Len())
			assert.Empty(t, r.All())
			assert.NotNil(t, r.All())
		})
	}
}

func TestRingPushAndOverflow(t *testing.T) {
	r := NewRing[int](3)

	assert.False(t, r.Push(1))
	assert.False(t, r.Push(2))
	assert.False(t, r.Push(3))
	assert.Equal(t, []int{1, 2, 3}, r.All())

	assert.True(t, r.Push(4))
	assert.True(t, r.Push(5))
	assert.Equal(t, []int{3, 4, 5}, r.All())
	assert.Equal(t, 3, r.Len())
}

func TestRingLast(t *testing.T) {
	r := NewRing[int](5)
	for i := 1; i <= 7; i++ {
		r.Push(i)
	}

	tests := []struct {
		name     string
		n        int
		expected []int
	}{
		{"zero", 0, []int{}},
		{"negative", -1, []int{}},
		{"two", 2, []int{6, 7}},
		{"all", 5, []int{3, 4, 5, 6, 7}},
		{"more than stored", 10, []int{3, 4, 5, 6, 7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, r.Last(tt.n))
		})
	}
}

func TestRingNewest(t *testing.T) {
	r := NewRing[string](2)

	_, ok := r.Newest()
	assert.False(t, ok)

	r.Push("a")
	r.Push("b")
	r.Push("c")
	v, ok := r.Newest()
	assert.True(t, ok)
	assert.Equal(t, "c", v)
}

func TestRingClear(t *testing.T) {
	r := NewRing[int](3)
	r.Push(1)
	r.Push(2)
	r.Clear()

	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.All())

	r.Push(9)
	assert.Equal(t, []int{9}, r.All())
}

func TestRingReturnsCopies(t *testing.T) {
	r := NewRing[int](3)
	r.Push(1)

	out := r.All()
	out[0] = 100
	assert.Equal(t, []int{1}, r.All())
}
