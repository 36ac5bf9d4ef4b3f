// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package initrange tracks which indices of a fixed linear domain still hold
// undefined content.
//
// A [Tracker] starts with every index uninitialized. Queries and commits are
// split into two phases:
//
//	if r, ok := t.Check(query); ok {
//	    // record a clear covering r ...
//	    t.Commit(r)
//	}
//
// [Tracker.Check] never mutates, so it can be called from read-only contexts.
// [Tracker.Commit] is called only after the corresponding initialization has
// actually been recorded. [Tracker.Discard] returns a single index to the
// uninitialized state.
//
// The uninitialized set is stored as a sorted list of disjoint, non-adjacent
// half-open ranges. The expected case is a handful of ranges, so queries are a
// binary search plus a constant amount of work.
//
// # Thread Safety
//
// Tracker is not safe for concurrent use. The owner serializes access.
package initrange
