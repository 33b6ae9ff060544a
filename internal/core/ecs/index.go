package ecs

// Index is a sparse id → value table. Ids are small non-negative integers that
// index a slice directly; unused slots hold the zero value. Len reports the
// slice length (highest assigned id + 1), not the number of occupied slots.
type Index[T comparable] struct {
	slots []T
	count int
}

func NewIndex[T comparable](capacity int) *Index[T] {
	return &Index[T]{slots: make([]T, 0, capacity)}
}

// Set stores v at id and returns the value it replaced, if any.
func (x *Index[T]) Set(id int32, v T) (prev T, replaced bool) {
	if id < 0 {
		panic("ecs: negative index id")
	}
	var zero T
	if int(id) >= len(x.slots) {
		x.grow(int(id) + 1)
	}
	prev = x.slots[id]
	replaced = prev != zero
	x.slots[id] = v
	switch {
	case !replaced && v != zero:
		x.count++
	case replaced && v == zero:
		x.count--
	}
	return prev, replaced
}

func (x *Index[T]) Get(id int32) (T, bool) {
	var zero T
	if id < 0 || int(id) >= len(x.slots) {
		return zero, false
	}
	v := x.slots[id]
	return v, v != zero
}

// Remove clears id. The slice keeps its length so Len does not shrink.
func (x *Index[T]) Remove(id int32) {
	var zero T
	if id < 0 || int(id) >= len(x.slots) {
		return
	}
	if x.slots[id] != zero {
		x.slots[id] = zero
		x.count--
	}
}

func (x *Index[T]) Has(id int32) bool {
	_, ok := x.Get(id)
	return ok
}

func (x *Index[T]) Len() int { return len(x.slots) }

// Count returns the number of occupied slots.
func (x *Index[T]) Count() int { return x.count }

// Each visits occupied slots in ascending id order. Returning false stops.
func (x *Index[T]) Each(fn func(id int32, v T) bool) {
	var zero T
	for i, v := range x.slots {
		if v == zero {
			continue
		}
		if !fn(int32(i), v) {
			return
		}
	}
}

func (x *Index[T]) grow(n int) {
	if n <= cap(x.slots) {
		x.slots = x.slots[:n]
		return
	}
	next := make([]T, n, n+n/2)
	copy(next, x.slots)
	x.slots = next
}
