// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package initrange

import (
	"fmt"

	"golang.org/x/exp/constraints"
)

// Index is the element type of a tracked domain.
type Index interface {
	constraints.Unsigned
}

// Range is a half-open interval [Start, End).
// A range with Start >= End selects nothing.
type Range[T Index] struct {
	Start T
	End   T
}

// Span returns the range [start, end).
func Span[T Index](start, end T) Range[T] {
	return Range[T]{Start: start, End: end}
}

// Single returns the range holding only i.
func Single[T Index](i T) Range[T] {
	return Range[T]{Start: i, End: i + 1}
}

// IsEmpty reports whether the range selects no index.
func (r Range[T]) IsEmpty() bool {
	return r.Start >= r.End
}

// Len returns the number of indices in the range.
func (r Range[T]) Len() T {
	if r.IsEmpty() {
		return 0
	}
	return r.End - r.Start
}

// Contains reports whether i lies in the range.
func (r Range[T]) Contains(i T) bool {
	return r.Start <= i && i < r.End
}

// Overlaps reports whether r and o share at least one index.
func (r Range[T]) Overlaps(o Range[T]) bool {
	return !r.Intersect(o).IsEmpty()
}

// Intersect returns the overlap of r and o.
// The result is empty when they do not overlap.
func (r Range[T]) Intersect(o Range[T]) Range[T] {
	return Range[T]{Start: max(r.Start, o.Start), End: min(r.End, o.End)}
}

// Union returns the smallest range enclosing both r and o.
// Empty operands are ignored.
func (r Range[T]) Union(o Range[T]) Range[T] {
	switch {
	case r.IsEmpty():
		return o
	case o.IsEmpty():
		return r
	}
	return Range[T]{Start: min(r.Start, o.Start), End: max(r.End, o.End)}
}

// String returns the range in "[start, end)" notation.
func (r Range[T]) String() string {
	return fmt.Sprintf("[%d, %d)", r.Start, r.End)
}
