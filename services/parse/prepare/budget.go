// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package prepare

import (
	"context"
	"fmt"
	"runtime/metrics"
	"time"
)

// heapObjectsMetric is the live heap figure compared against MaxHeapBytes.
const heapObjectsMetric = "/memory/classes/heap/objects:bytes"

// budget evaluates every configured resource limit for one Prepare call.
type budget struct {
	ctx      context.Context
	deadline time.Time
	maxHeap  uint64
	fn       BudgetFunc
	sample   []metrics.Sample
}

func newBudget(ctx context.Context, opts Options, start time.Time) *budget {
	b := &budget{ctx: ctx, maxHeap: opts.MaxHeapBytes, fn: opts.Budget}
	if opts.MaxDuration > 0 {
		b.deadline = start.Add(opts.MaxDuration)
	}
	if b.maxHeap > 0 {
		b.sample = []metrics.Sample{{Name: heapObjectsMetric}}
	}
	return b
}

// check returns nil while preparation may continue past word w, otherwise
// an error wrapping ErrResourceExhausted that names the limit hit.
func (b *budget) check(w int) error {
	if err := b.ctx.Err(); err != nil {
		return fmt.Errorf("%w: word %d: %w", ErrResourceExhausted, w, err)
	}
	if !b.deadline.IsZero() && time.Now().After(b.deadline) {
		return fmt.Errorf("%w: word %d: deadline exceeded", ErrResourceExhausted, w)
	}
	if b.sample != nil {
		metrics.Read(b.sample)
		if b.sample[0].Value.Kind() == metrics.KindUint64 {
			if heap := b.sample[0].Value.Uint64(); heap > b.maxHeap {
				return fmt.Errorf("%w: word %d: heap %d bytes exceeds %d",
					ErrResourceExhausted, w, heap, b.maxHeap)
			}
		}
	}
	if b.fn != nil && b.fn(w) {
		return fmt.Errorf("%w: word %d: budget predicate", ErrResourceExhausted, w)
	}
	return nil
}
