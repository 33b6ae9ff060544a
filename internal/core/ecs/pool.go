package ecs

// Pool is a LIFO store of retired values waiting for reuse. The most recently
// retired value is handed out first, like a free list.
type Pool[T any] struct {
	items []T
}

func NewPool[T any](capacity int) *Pool[T] {
	return &Pool[T]{items: make([]T, 0, capacity)}
}

func (p *Pool[T]) Push(v T) {
	p.items = append(p.items, v)
}

func (p *Pool[T]) Pop() (T, bool) {
	var zero T
	if len(p.items) == 0 {
		return zero, false
	}
	last := len(p.items) - 1
	v := p.items[last]
	p.items[last] = zero
	p.items = p.items[:last]
	return v, true
}

func (p *Pool[T]) Len() int { return len(p.items) }

// Clear drops every pooled value.
func (p *Pool[T]) Clear() {
	var zero T
	for i := range p.items {
		p.items[i] = zero
	}
	p.items = p.items[:0]
}
