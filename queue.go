// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package texinit

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrNilCommandBuffer is returned when a nil command buffer is submitted.
var ErrNilCommandBuffer = errors.New("texinit: command buffer is nil")

// Queue resolves the initialization work of submitted command buffers in
// submission order.
//
// Queue is safe for concurrent use. Submissions are serialized, so the
// trackers see command buffers in the order they are submitted.
type Queue struct {
	mu      sync.Mutex
	clearer Clearer
	opts    options

	submitted uint64
	total     ResolveStats
}

// NewQueue creates a queue that issues submission-time clears through
// clearer.
func NewQueue(clearer Clearer, opts ...Option) *Queue {
	return &Queue{
		clearer: clearer,
		opts:    applyOptions(opts),
	}
}

// Submit resolves buffers in order. Each buffer can be submitted once,
// so passing the same buffer twice in one call is rejected as well.
//
// On error, buffers before the failing one stay resolved and the failing
// buffer and those after it are not marked submitted.
func (q *Queue) Submit(buffers ...*CommandBuffer) (ResolveStats, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, cb := range buffers {
		if cb == nil {
			return ResolveStats{}, fmt.Errorf("submit: buffer %d: %w", i, ErrNilCommandBuffer)
		}
		if cb.submitted || slices.Contains(buffers[:i], cb) {
			return ResolveStats{}, fmt.Errorf("submit: buffer %d %q: %w", i, cb.label, ErrCommandBufferConsumed)
		}
	}

	log := q.opts.log()
	var stats ResolveStats
	for i, cb := range buffers {
		s, err := resolve(&cb.actions, q.clearer, log)
		stats.add(s)
		if err != nil {
			q.total.add(stats)
			return stats, fmt.Errorf("submit: buffer %d %q: %w", i, cb.label, err)
		}
		cb.submitted = true
		q.submitted++
	}

	q.total.add(stats)
	log.Debug("texinit: submitted", "buffers", len(buffers),
		"clears", stats.Clears, "commits", stats.Commits, "discards", stats.Discards)
	return stats, nil
}

// Submitted returns the number of command buffers resolved so far.
func (q *Queue) Submitted() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.submitted
}

// Stats returns the accumulated statistics of every submission.
func (q *Queue) Stats() ResolveStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.total
}
