// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package dedup collapses structurally identical disjuncts of one word.
//
// Two disjuncts are duplicates when they have the same cost and the same
// connector signature: equal chain lengths and, position by position, equal
// connector name, multi flag and length limit, on both the left and the
// right chain. The first occurrence in list order is kept; survivors keep
// their relative order. Eliminating twice yields the same list as once.
package dedup

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/AleutianAI/linkprep/services/parse/arena"
	"github.com/AleutianAI/linkprep/services/parse/sentence"
)

// chainSeparator splits the left and right chain in the hashed signature.
const chainSeparator = 0xff

// Eliminator removes duplicate disjuncts from a word list.
//
// Thread Safety: safe for concurrent use. Each call borrows its hash buckets
// from an internal pool.
type Eliminator struct {
	pool sync.Pool
}

// scratch is the per-call working state of Eliminate.
type scratch struct {
	buckets map[uint64][]arena.Index
	digest  *xxhash.Digest
	buf     [8]byte
}

// New creates an Eliminator.
func New() *Eliminator {
	return &Eliminator{
		pool: sync.Pool{
			New: func() any {
				return &scratch{
					buckets: make(map[uint64][]arena.Index),
					digest:  xxhash.New(),
				}
			},
		},
	}
}

// Eliminate returns the head of the deduplicated list starting at head and
// the number of disjuncts removed. Removed disjuncts stay in the sentence
// pool; only the list links change.
func (e *Eliminator) Eliminate(s *sentence.Sentence, head arena.Index) (arena.Index, int) {
	st := e.pool.Get().(*scratch)
	defer func() {
		clear(st.buckets)
		e.pool.Put(st)
	}()

	newHead := arena.Nil
	var tail *sentence.Disjunct
	removed := 0

	for id := head; id != arena.Nil; {
		d := s.Disjunct(id)
		next := d.Next

		h := st.signature(s, d)
		if isDuplicate(s, d, st.buckets[h]) {
			removed++
		} else {
			st.buckets[h] = append(st.buckets[h], id)
			d.Next = arena.Nil
			if tail == nil {
				newHead = id
			} else {
				tail.Next = id
			}
			tail = d
		}
		id = next
	}
	return newHead, removed
}

func isDuplicate(s *sentence.Sentence, d *sentence.Disjunct, candidates []arena.Index) bool {
	for _, id := range candidates {
		if Equal(s, d, s.Disjunct(id)) {
			return true
		}
	}
	return false
}

// signature hashes the cost and both chains of d.
func (st *scratch) signature(s *sentence.Sentence, d *sentence.Disjunct) uint64 {
	st.digest.Reset()
	st.writeUint64(math.Float64bits(d.Cost))
	st.writeChain(s, d.Left)
	_, _ = st.digest.Write([]byte{chainSeparator})
	st.writeChain(s, d.Right)
	return st.digest.Sum64()
}

func (st *scratch) writeChain(s *sentence.Sentence, head arena.Index) {
	for c := s.Connector(head); c != nil; c = s.Connector(c.Next) {
		_, _ = st.digest.WriteString(c.Name)
		flags := uint64(0)
		if c.Multi {
			flags = 1
		}
		st.writeUint64(flags<<32 | uint64(uint32(c.LengthLimit)))
	}
}

func (st *scratch) writeUint64(v uint64) {
	binary.LittleEndian.PutUint64(st.buf[:], v)
	_, _ = st.digest.Write(st.buf[:])
}

// Equal reports whether a and b have the same cost and connector signature.
func Equal(s *sentence.Sentence, a, b *sentence.Disjunct) bool {
	if a.Cost != b.Cost {
		return false
	}
	return chainsEqual(s, a.Left, b.Left) && chainsEqual(s, a.Right, b.Right)
}

func chainsEqual(s *sentence.Sentence, x, y arena.Index) bool {
	cx, cy := s.Connector(x), s.Connector(y)
	for cx != nil && cy != nil {
		if cx.Name != cy.Name || cx.Multi != cy.Multi || cx.LengthLimit != cy.LengthLimit {
			return false
		}
		cx, cy = s.Connector(cx.Next), s.Connector(cy.Next)
	}
	return cx == nil && cy == nil
}
