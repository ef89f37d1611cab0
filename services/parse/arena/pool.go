// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package arena provides a block-pooled allocator for fixed-size records.
//
// A Pool hands out records by Index rather than by pointer. Records live in
// fixed-size blocks that are never reallocated, so a pointer obtained via At()
// stays valid until the pool is released. There is no per-record free: the
// whole pool is torn down in one Release() call.
//
// # Index Model
//
// Index 0 is reserved as Nil and never refers to a record. Zero-valued records
// therefore carry empty links, and a linked structure expressed with Index
// fields needs no explicit initialization.
//
// # Thread Safety
//
// Pool is NOT safe for concurrent allocation. A pool is owned by a single
// sentence and is filled by one goroutine; read-only access after filling is
// safe from multiple goroutines.
package arena

import (
	"fmt"
)

// Index identifies a record within a Pool. Nil is the empty reference.
type Index uint32

// Nil is the reserved empty reference.
const Nil Index = 0

// DefaultBlockElements is used when PoolOptions.Hint is not positive.
const DefaultBlockElements = 1024

// maxIndex bounds the number of records a pool can ever address.
const maxIndex = int(^uint32(0))

// PoolOptions configures a Pool.
type PoolOptions struct {
	// Hint is the expected element count. It sizes every block, so the
	// common case fits into a single block.
	Hint int

	// MaxElements caps the number of records. Alloc returns ErrExhausted
	// once the cap is reached. 0 means unlimited.
	MaxElements int
}

// PoolStats is a read-only snapshot of a pool's bookkeeping.
type PoolStats struct {
	Name            string
	Elements        int
	BlockElements   int
	BlocksAllocated int
	BlocksReleased  int
	Released        bool
}

// Pool is a bulk allocator for records of type T.
type Pool[T any] struct {
	name      string
	blockSize int
	limit     int

	blocks [][]T
	n      int // records handed out, excluding the reserved slot

	blocksAllocated int
	blocksReleased  int
	released        bool
}

// NewPool creates an empty pool. No block is allocated until the first Alloc.
func NewPool[T any](name string, opts PoolOptions) *Pool[T] {
	size := opts.Hint
	if size <= 0 {
		size = DefaultBlockElements
	}
	// Slot 0 of the first block is reserved, so the hint needs one more.
	size++
	limit := opts.MaxElements
	if limit < 0 {
		limit = 0
	}
	return &Pool[T]{
		name:      name,
		blockSize: size,
		limit:     limit,
	}
}

// Name returns the pool's diagnostic name.
func (p *Pool[T]) Name() string {
	return p.name
}

// Alloc returns a fresh zero-valued record and its index.
//
// Growth appends a new block; existing blocks are untouched, so every
// previously returned pointer remains valid.
//
// Outputs:
//   - Index: never Nil on success.
//   - *T: pointer into the pool, valid until Release.
//   - error: ErrExhausted when MaxElements is reached, ErrReleased after Release.
func (p *Pool[T]) Alloc() (Index, *T, error) {
	if p.released {
		return Nil, nil, fmt.Errorf("pool %s: %w", p.name, ErrReleased)
	}
	if p.limit > 0 && p.n >= p.limit {
		return Nil, nil, fmt.Errorf("pool %s: %d elements: %w", p.name, p.n, ErrExhausted)
	}
	if p.n+1 >= maxIndex {
		return Nil, nil, fmt.Errorf("pool %s: index space: %w", p.name, ErrExhausted)
	}

	slot := p.n + 1
	block, off := slot/p.blockSize, slot%p.blockSize
	if block == len(p.blocks) {
		p.blocks = append(p.blocks, make([]T, p.blockSize))
		p.blocksAllocated++
	}
	p.n++
	return Index(slot), &p.blocks[block][off], nil
}

// At returns the record for i, or nil for Nil, out-of-range indexes and
// released pools.
func (p *Pool[T]) At(i Index) *T {
	if i == Nil || p.released || int(i) > p.n {
		return nil
	}
	slot := int(i)
	return &p.blocks[slot/p.blockSize][slot%p.blockSize]
}

// Len returns the number of records allocated so far.
func (p *Pool[T]) Len() int {
	if p.released {
		return 0
	}
	return p.n
}

// Each calls fn for every allocated record in allocation order. Iteration
// stops early when fn returns false.
func (p *Pool[T]) Each(fn func(Index, *T) bool) {
	if p.released {
		return
	}
	for slot := 1; slot <= p.n; slot++ {
		if !fn(Index(slot), &p.blocks[slot/p.blockSize][slot%p.blockSize]) {
			return
		}
	}
}

// Release drops every block. It is idempotent: a second call releases
// nothing and does not change the statistics.
func (p *Pool[T]) Release() {
	if p.released {
		return
	}
	p.blocksReleased += len(p.blocks)
	p.blocks = nil
	p.n = 0
	p.released = true
}

// Released reports whether Release has been called.
func (p *Pool[T]) Released() bool {
	return p.released
}

// Stats returns a snapshot of the pool's bookkeeping.
func (p *Pool[T]) Stats() PoolStats {
	return PoolStats{
		Name:            p.name,
		Elements:        p.n,
		BlockElements:   p.blockSize,
		BlocksAllocated: p.blocksAllocated,
		BlocksReleased:  p.blocksReleased,
		Released:        p.released,
	}
}

// Balanced reports whether every block ever allocated has been released
// exactly once.
func (s PoolStats) Balanced() bool {
	return s.Released && s.BlocksAllocated == s.BlocksReleased
}
