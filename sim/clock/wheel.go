// Package clock provides the hierarchical timing wheel that orders pending
// work inside a World.
//
// A Wheel has HEIGHT layers of SLOTS buckets each. Layer k buckets are SLOTS^k
// ticks wide, so layer 0 resolves single ticks and the top layer spans
// SLOTS^HEIGHT ticks. Items further out than the top layer can address wait in
// an overflow heap and are migrated into the wheel as time reaches them.
//
// The wheel does not know what it stores. Anything with a due time and a
// sequence number can be scheduled; equal-time items come back in sequence order.
package clock

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"slices"
)

// Time is a simulation timestamp in ticks.
type Time uint64

// Item is the contract for anything stored in a Wheel.
// Items are stored by value.
type Item interface {
	DueTime() Time
	Sequence() uint64
}

// ErrOutOfRange is returned when an item is due before the wheel's current time.
var ErrOutOfRange = errors.New("clock: due time is in the past")

// OutOfRangeError reports a rejected schedule.
type OutOfRangeError struct {
	Due Time
	Now Time
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("clock: due time %d is before current time %d", e.Due, e.Now)
}

func (e *OutOfRangeError) Unwrap() error { return ErrOutOfRange }

// Wheel is a hierarchical timing wheel with an overflow heap.
//
// Thread-safety: NOT thread-safe. Owned by a single World.
type Wheel[T Item] struct {
	slots  Time
	height int
	widths []Time // widths[k] = slots^k

	layers [][][]T // layers[k][slot]
	counts []int   // items held per layer
	over   overflow[T]

	now  Time
	size int
}

// New creates an empty wheel at time 0.
func New[T Item](slots, height int) (*Wheel[T], error) {
	if slots < 2 {
		return nil, fmt.Errorf("clock: slots must be >= 2, got %d", slots)
	}
	if height < 1 {
		return nil, fmt.Errorf("clock: height must be >= 1, got %d", height)
	}
	widths := make([]Time, height)
	widths[0] = 1
	span := uint64(1)
	for k := 1; k <= height; k++ {
		hi, lo := bits.Mul64(span, uint64(slots))
		if hi != 0 {
			return nil, fmt.Errorf("clock: %d^%d slots overflow the time range", slots, height)
		}
		span = lo
		if k < height {
			widths[k] = Time(span)
		}
	}
	w := &Wheel[T]{
		slots:  Time(slots),
		height: height,
		widths: widths,
		layers: make([][][]T, height),
		counts: make([]int, height),
	}
	for k := range w.layers {
		w.layers[k] = make([][]T, slots)
	}
	return w, nil
}

// Now returns the wheel's current time.
func (w *Wheel[T]) Now() Time { return w.now }

// Len returns the number of pending items, overflow included.
func (w *Wheel[T]) Len() int { return w.size }

// Horizon returns the width of the top layer window, SLOTS^HEIGHT ticks.
// An item due less than Horizon()-SLOTS^(HEIGHT-1) ticks ahead is always held
// in the wheel; one due Horizon() or more ticks ahead always goes to overflow.
func (w *Wheel[T]) Horizon() Time {
	return w.widths[w.height-1] * w.slots
}

// Overflowed returns how many items are currently parked beyond the horizon.
func (w *Wheel[T]) Overflowed() int { return w.over.Len() }

// Layer returns the layer that holds item with the given due time and
// sequence, or -1 when it sits in overflow or is not pending.
func (w *Wheel[T]) Layer(due Time, seq uint64) int {
	for k := 0; k < w.height; k++ {
		slot := w.layers[k][(due/w.widths[k])%w.slots]
		for _, it := range slot {
			if it.DueTime() == due && it.Sequence() == seq {
				return k
			}
		}
	}
	return -1
}

// Schedule inserts an item. Items due before Now are rejected.
func (w *Wheel[T]) Schedule(item T) error {
	if item.DueTime() < w.now {
		return &OutOfRangeError{Due: item.DueTime(), Now: w.now}
	}
	w.place(item)
	w.size++
	return nil
}

// place bins an item into the lowest layer whose window contains it.
func (w *Wheel[T]) place(item T) {
	due := item.DueTime()
	for k := 0; k < w.height; k++ {
		if due/w.widths[k]-w.now/w.widths[k] < w.slots {
			w.put(k, item)
			return
		}
	}
	w.over.push(item)
}

func (w *Wheel[T]) put(k int, item T) {
	slot := (item.DueTime() / w.widths[k]) % w.slots
	w.layers[k][slot] = append(w.layers[k][slot], item)
	w.counts[k]++
}

// Advance moves to the next tick with due items and returns them in
// sequence order. It returns false when nothing is pending.
func (w *Wheel[T]) Advance() (Time, []T, bool) {
	for {
		if w.size == 0 {
			return w.now, nil, false
		}
		slot := w.now % w.slots
		if batch := w.layers[0][slot]; len(batch) > 0 {
			w.layers[0][slot] = nil
			w.counts[0] -= len(batch)
			w.size -= len(batch)
			slices.SortFunc(batch, func(a, b T) int {
				switch {
				case a.Sequence() < b.Sequence():
					return -1
				case a.Sequence() > b.Sequence():
					return 1
				}
				return 0
			})
			return w.now, batch, true
		}
		w.now = w.nextStop()
		w.rotate()
	}
}

// PeekNext returns the earliest pending due time without consuming anything.
func (w *Wheel[T]) PeekNext() (Time, bool) {
	if w.size == 0 {
		return 0, false
	}
	best, found := Time(0), false
	consider := func(t Time) {
		if !found || t < best {
			best, found = t, true
		}
	}
	if w.counts[0] > 0 {
		for i := Time(0); i < w.slots; i++ {
			if len(w.layers[0][(w.now+i)%w.slots]) > 0 {
				consider(w.now + i)
				break
			}
		}
	}
	for k := 1; k < w.height; k++ {
		if w.counts[k] == 0 {
			continue
		}
		cur := w.now / w.widths[k]
		for i := Time(1); i < w.slots; i++ {
			bucket := w.layers[k][(cur+i)%w.slots]
			if len(bucket) == 0 {
				continue
			}
			for _, it := range bucket {
				consider(it.DueTime())
			}
			break
		}
	}
	if w.over.Len() > 0 {
		consider(w.over.peek().DueTime())
	}
	return best, found
}

// nextStop returns the next tick after now at which a layer-0 slot is due,
// a layer cascades, or an overflow item becomes addressable.
func (w *Wheel[T]) nextStop() Time {
	best := Time(math.MaxUint64)
	if w.counts[0] > 0 {
		for i := Time(1); i < w.slots; i++ {
			if len(w.layers[0][(w.now+i)%w.slots]) > 0 {
				best = w.now + i
				break
			}
		}
	}
	for k := 1; k < w.height; k++ {
		if w.counts[k] == 0 {
			continue
		}
		cur := w.now / w.widths[k]
		for i := Time(1); i < w.slots; i++ {
			if len(w.layers[k][(cur+i)%w.slots]) > 0 {
				best = min(best, (cur+i)*w.widths[k])
				break
			}
		}
	}
	if w.over.Len() > 0 {
		top := w.widths[w.height-1]
		idx := w.over.peek().DueTime() / top
		var at Time
		if idx >= w.slots-1 {
			at = (idx - (w.slots - 1)) * top
		}
		if at <= w.now {
			at = (w.now/top + 1) * top
		}
		best = min(best, at)
	}
	return best
}

// rotate performs the overflow migration and cascades due at w.now.
// Cascades go one layer down at a time, coarsest first, so an item moving
// from layer 2 passes through layer 1 before it reaches layer 0.
func (w *Wheel[T]) rotate() {
	top := w.height - 1
	if w.now%w.widths[top] == 0 {
		for w.over.Len() > 0 {
			due := w.over.peek().DueTime()
			if due/w.widths[top]-w.now/w.widths[top] >= w.slots {
				break
			}
			w.place(w.over.pop())
		}
	}
	for k := top; k >= 1; k-- {
		if w.now%w.widths[k] != 0 {
			continue
		}
		slot := (w.now / w.widths[k]) % w.slots
		bucket := w.layers[k][slot]
		if len(bucket) == 0 {
			continue
		}
		w.layers[k][slot] = nil
		w.counts[k] -= len(bucket)
		for _, it := range bucket {
			w.put(k-1, it)
		}
	}
}

// Clone returns an independent copy of the wheel. Items are copied by value.
func (w *Wheel[T]) Clone() *Wheel[T] {
	c := &Wheel[T]{
		slots:  w.slots,
		height: w.height,
		widths: w.widths,
		layers: make([][][]T, w.height),
		counts: slices.Clone(w.counts),
		over:   w.over.clone(),
		now:    w.now,
		size:   w.size,
	}
	for k, layer := range w.layers {
		c.layers[k] = make([][]T, len(layer))
		for s, bucket := range layer {
			if len(bucket) > 0 {
				c.layers[k][s] = slices.Clone(bucket)
			}
		}
	}
	return c
}
