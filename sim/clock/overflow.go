package clock

import "container/heap"

// overflow is a min-heap of items beyond the wheel horizon.
// Ordering: due time → sequence number.
type overflow[T Item] struct {
	items []T
}

// Len implements heap.Interface
func (o *overflow[T]) Len() int {
	return len(o.items)
}

// Less implements heap.Interface with deterministic ordering
func (o *overflow[T]) Less(i, j int) bool {
	return before(o.items[i], o.items[j])
}

// Swap implements heap.Interface
func (o *overflow[T]) Swap(i, j int) {
	o.items[i], o.items[j] = o.items[j], o.items[i]
}

// Push implements heap.Interface
func (o *overflow[T]) Push(x any) {
	o.items = append(o.items, x.(T))
}

// Pop implements heap.Interface
func (o *overflow[T]) Pop() any {
	old := o.items
	n := len(old)
	item := old[n-1]
	var zero T
	old[n-1] = zero
	o.items = old[:n-1]
	return item
}

func (o *overflow[T]) push(item T) {
	heap.Push(o, item)
}

func (o *overflow[T]) pop() T {
	return heap.Pop(o).(T)
}

// peek returns the minimum item. Caller checks Len first.
func (o *overflow[T]) peek() T {
	return o.items[0]
}

func (o *overflow[T]) clone() overflow[T] {
	return overflow[T]{items: append([]T(nil), o.items...)}
}

// before reports whether a is ordered ahead of b.
func before[T Item](a, b T) bool {
	if a.DueTime() != b.DueTime() {
		return a.DueTime() < b.DueTime()
	}
	return a.Sequence() < b.Sequence()
}
