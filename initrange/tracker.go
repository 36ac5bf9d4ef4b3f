// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package initrange

import (
	"fmt"
	"iter"
	"slices"
	"sort"
)

// Tracker records which indices of the domain [0, Size) are uninitialized.
//
// The zero value tracks an empty domain. Use [New] or [Tracker.Reset] to set
// the domain size; every index then starts uninitialized.
type Tracker[T Index] struct {
	// size is the domain size, fixed until the next Reset.
	size T

	// ranges holds the uninitialized indices as sorted, disjoint,
	// non-adjacent, non-empty ranges.
	ranges []Range[T]
}

// New creates a tracker over [0, size) with every index uninitialized.
func New[T Index](size T) *Tracker[T] {
	t := &Tracker[T]{}
	t.Reset(size)
	return t
}

// Reset re-initializes the tracker over [0, size) with every index
// uninitialized. The range storage is reused.
func (t *Tracker[T]) Reset(size T) {
	t.size = size
	t.ranges = t.ranges[:0]
	if size > 0 {
		t.ranges = append(t.ranges, Range[T]{Start: 0, End: size})
	}
}

// Size returns the domain size.
func (t *Tracker[T]) Size() T {
	return t.size
}

// IsFullyInitialized reports whether no index is uninitialized.
func (t *Tracker[T]) IsFullyInitialized() bool {
	return len(t.ranges) == 0
}

// Ranges iterates over the uninitialized ranges in ascending order.
// The tracker must not be modified during iteration.
func (t *Tracker[T]) Ranges() iter.Seq[Range[T]] {
	return func(yield func(Range[T]) bool) {
		for _, r := range t.ranges {
			if !yield(r) {
				return
			}
		}
	}
}

// Check returns the smallest range enclosing every uninitialized index in
// query. It returns false when query holds no uninitialized index.
//
// The returned range lies within query. Indices strictly inside it may
// already be initialized when the uninitialized set is fragmented.
//
// Check does not modify the tracker. It panics if query extends past the
// domain.
func (t *Tracker[T]) Check(query Range[T]) (Range[T], bool) {
	if query.IsEmpty() {
		return Range[T]{}, false
	}
	t.mustContain(query)

	first := t.lowerBound(query.Start)
	if first == len(t.ranges) || t.ranges[first].Start >= query.End {
		return Range[T]{}, false
	}
	last := t.upperBound(first, query.End) - 1

	return Range[T]{
		Start: max(t.ranges[first].Start, query.Start),
		End:   min(t.ranges[last].End, query.End),
	}, true
}

// Commit marks every index in r as initialized.
// It panics if r extends past the domain.
func (t *Tracker[T]) Commit(r Range[T]) {
	t.drain(r, nil)
}

// Drain marks every index in r as initialized and returns the exact
// uninitialized pieces of r it removed, in ascending order.
// It panics if r extends past the domain.
func (t *Tracker[T]) Drain(r Range[T]) []Range[T] {
	var drained []Range[T]
	t.drain(r, func(piece Range[T]) {
		drained = append(drained, piece)
	})
	return drained
}

// Discard marks index i as uninitialized. Discarding an index that is
// already uninitialized has no effect. It panics if i is outside the domain.
func (t *Tracker[T]) Discard(i T) {
	if i >= t.size {
		panic(fmt.Sprintf("initrange: discard index %d out of range for domain of size %d", i, t.size))
	}

	// First range ending at or after i: either holds i, touches it from the
	// left, touches it from the right, or lies entirely after it.
	k := sort.Search(len(t.ranges), func(k int) bool { return t.ranges[k].End >= i })
	if k < len(t.ranges) {
		r := &t.ranges[k]
		switch {
		case r.Contains(i):
			return
		case r.End == i:
			r.End = i + 1
			if k+1 < len(t.ranges) && t.ranges[k+1].Start == r.End {
				r.End = t.ranges[k+1].End
				t.ranges = slices.Delete(t.ranges, k+1, k+2)
			}
			return
		case r.Start == i+1:
			r.Start = i
			return
		}
	}
	t.ranges = slices.Insert(t.ranges, k, Single(i))
}

// String returns the uninitialized ranges, for debugging.
func (t *Tracker[T]) String() string {
	return fmt.Sprintf("initrange.Tracker{size: %d, uninitialized: %v}", t.size, t.ranges)
}

// drain removes r from the uninitialized set, passing each removed piece to
// yield when it is non-nil.
func (t *Tracker[T]) drain(r Range[T], yield func(Range[T])) {
	if r.IsEmpty() {
		return
	}
	t.mustContain(r)

	first := t.lowerBound(r.Start)
	end := first
	for end < len(t.ranges) && t.ranges[end].Start < r.End {
		if yield != nil {
			yield(t.ranges[end].Intersect(r))
		}
		end++
	}
	if first == end {
		return
	}

	// At most the head of the first range and the tail of the last range
	// survive.
	var keep [2]Range[T]
	n := 0
	if head := t.ranges[first]; head.Start < r.Start {
		keep[n] = Range[T]{Start: head.Start, End: r.Start}
		n++
	}
	if tail := t.ranges[end-1]; tail.End > r.End {
		keep[n] = Range[T]{Start: r.End, End: tail.End}
		n++
	}
	t.ranges = slices.Replace(t.ranges, first, end, keep[:n]...)
}

// lowerBound returns the index of the first range ending after i.
func (t *Tracker[T]) lowerBound(i T) int {
	return sort.Search(len(t.ranges), func(k int) bool { return t.ranges[k].End > i })
}

// upperBound returns the index of the first range at or after from that
// starts at or after end.
func (t *Tracker[T]) upperBound(from int, end T) int {
	return from + sort.Search(len(t.ranges)-from, func(k int) bool {
		return t.ranges[from+k].Start >= end
	})
}

func (t *Tracker[T]) mustContain(r Range[T]) {
	if r.End > t.size {
		panic(fmt.Sprintf("initrange: range %v out of range for domain of size %d", r, t.size))
	}
}
