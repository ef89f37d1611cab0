// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package sentence holds the data model of disjunct preparation.
//
// A Sentence owns two arena pools, one for connectors and one for disjuncts,
// for its whole preparation and parse lifetime. Words, disjunct lists and
// connector chains refer to pool records by arena.Index. Releasing the
// sentence tears both pools down as one unit.
//
// # Ownership Model
//
//   - The Sentence owns every Disjunct and Connector record.
//   - A Word only holds the head index of its candidate list.
//   - A chain head owns its tail transitively; chains are never shared.
//   - Origin fields are lookup keys into the word graph, never owners.
//
// # Thread Safety
//
// Sentence is NOT safe for concurrent mutation. Independent sentences may be
// prepared on different goroutines.
package sentence

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/AleutianAI/linkprep/services/parse/arena"
)

// Default pool hints, sized for a typical sentence.
const (
	DefaultDisjunctHint  = 2048
	DefaultConnectorHint = 8192
)

// PoolOptions configures the two pools a Sentence owns.
type PoolOptions struct {
	Disjuncts  arena.PoolOptions
	Connectors arena.PoolOptions
}

// DefaultPoolOptions returns the default pool sizing.
func DefaultPoolOptions() PoolOptions {
	return PoolOptions{
		Disjuncts:  arena.PoolOptions{Hint: DefaultDisjunctHint},
		Connectors: arena.PoolOptions{Hint: DefaultConnectorHint},
	}
}

// ArenaStats reports both pools of a sentence.
type ArenaStats struct {
	Disjuncts  arena.PoolStats
	Connectors arena.PoolStats
}

// Balanced reports whether both pools released every block exactly once.
func (s ArenaStats) Balanced() bool {
	return s.Disjuncts.Balanced() && s.Connectors.Balanced()
}

// Sentence is an ordered sequence of words plus the pools backing their
// disjuncts.
type Sentence struct {
	id         string
	words      []Word
	disjuncts  *arena.Pool[Disjunct]
	connectors *arena.Pool[Connector]
}

// New creates a sentence with one word per entry of alternatives. The
// alternatives slices are retained as read-only input.
func New(alternatives [][]Alternative, opts PoolOptions) *Sentence {
	words := make([]Word, len(alternatives))
	for i, alts := range alternatives {
		words[i].Alternatives = alts
	}
	return &Sentence{
		id:         uuid.NewString(),
		words:      words,
		disjuncts:  arena.NewPool[Disjunct]("Disjunct", opts.Disjuncts),
		connectors: arena.NewPool[Connector]("Connector", opts.Connectors),
	}
}

// ID returns the sentence's unique identifier.
func (s *Sentence) ID() string {
	return s.id
}

// Length returns the number of words.
func (s *Sentence) Length() int {
	return len(s.words)
}

// Word returns the word at position w, or nil when w is out of range.
func (s *Sentence) Word(w int) *Word {
	if w < 0 || w >= len(s.words) {
		return nil
	}
	return &s.words[w]
}

// Connector returns the connector record for i, or nil for arena.Nil.
func (s *Sentence) Connector(i arena.Index) *Connector {
	return s.connectors.At(i)
}

// Disjunct returns the disjunct record for i, or nil for arena.Nil.
func (s *Sentence) Disjunct(i arena.Index) *Disjunct {
	return s.disjuncts.At(i)
}

// NewConnector allocates a zero-valued connector.
func (s *Sentence) NewConnector() (arena.Index, *Connector, error) {
	return s.connectors.Alloc()
}

// NewChain allocates a connector chain. specs[0] becomes the head.
// An empty specs slice yields arena.Nil.
func (s *Sentence) NewChain(specs []ConnectorSpec) (arena.Index, error) {
	head := arena.Nil
	var prev *Connector
	for _, spec := range specs {
		idx, c, err := s.connectors.Alloc()
		if err != nil {
			return arena.Nil, fmt.Errorf("allocate connector %s: %w", spec.Name, err)
		}
		c.Name = spec.Name
		c.Multi = spec.Multi
		c.LengthLimit = spec.LengthLimit
		if prev == nil {
			head = idx
		} else {
			prev.Next = idx
		}
		prev = c
	}
	return head, nil
}

// NewDisjunct allocates a disjunct together with its two chains.
func (s *Sentence) NewDisjunct(spec DisjunctSpec) (arena.Index, error) {
	left, err := s.NewChain(spec.Left)
	if err != nil {
		return arena.Nil, err
	}
	right, err := s.NewChain(spec.Right)
	if err != nil {
		return arena.Nil, err
	}
	idx, d, err := s.disjuncts.Alloc()
	if err != nil {
		return arena.Nil, fmt.Errorf("allocate disjunct: %w", err)
	}
	d.Left = left
	d.Right = right
	d.Cost = spec.Cost
	d.Origin = spec.Origin
	d.Label = spec.Label
	return idx, nil
}

// Catenate appends list b to the end of list a and returns the head of the
// combined list.
func (s *Sentence) Catenate(a, b arena.Index) arena.Index {
	if a == arena.Nil {
		return b
	}
	if b == arena.Nil {
		return a
	}
	tail := s.disjuncts.At(a)
	for tail.Next != arena.Nil {
		tail = s.disjuncts.At(tail.Next)
	}
	tail.Next = b
	return a
}

// Append links list b after tail, the last element of the list starting at
// head, and returns the combined head and last element. Only b is walked,
// so a list assembled from many pieces is built in linear time. Pass
// arena.Nil for both head and tail to start a new list.
func (s *Sentence) Append(head, tail, b arena.Index) (arena.Index, arena.Index) {
	if b == arena.Nil {
		return head, tail
	}
	if head == arena.Nil {
		head = b
	} else {
		s.disjuncts.At(tail).Next = b
	}
	tail = b
	for next := s.disjuncts.At(tail).Next; next != arena.Nil; next = s.disjuncts.At(tail).Next {
		tail = next
	}
	return head, tail
}

// SetHead replaces word w's candidate list.
func (s *Sentence) SetHead(w int, head arena.Index) {
	s.words[w].Head = head
}

// Disjuncts returns the indexes of word w's candidate list in list order.
func (s *Sentence) Disjuncts(w int) []arena.Index {
	word := s.Word(w)
	if word == nil {
		return nil
	}
	var out []arena.Index
	for id := word.Head; id != arena.Nil; id = s.disjuncts.At(id).Next {
		out = append(out, id)
	}
	return out
}

// Count returns the length of word w's candidate list.
func (s *Sentence) Count(w int) int {
	word := s.Word(w)
	if word == nil {
		return 0
	}
	return s.CountList(word.Head)
}

// CountList returns the length of the disjunct list starting at head.
func (s *Sentence) CountList(head arena.Index) int {
	n := 0
	for id := head; id != arena.Nil; id = s.disjuncts.At(id).Next {
		n++
	}
	return n
}

// ChainLength returns the number of connectors in the chain at head.
func (s *Sentence) ChainLength(head arena.Index) int {
	n := 0
	for c := s.connectors.At(head); c != nil; c = s.connectors.At(c.Next) {
		n++
	}
	return n
}

// ChainSpecs returns the specs of the chain at head, head first.
func (s *Sentence) ChainSpecs(head arena.Index) []ConnectorSpec {
	var out []ConnectorSpec
	for c := s.connectors.At(head); c != nil; c = s.connectors.At(c.Next) {
		out = append(out, ConnectorSpec{Name: c.Name, Multi: c.Multi, LengthLimit: c.LengthLimit})
	}
	return out
}

// EachAllocated calls fn for every disjunct ever allocated for the sentence,
// in allocation order, whether or not it is still on a word list.
func (s *Sentence) EachAllocated(fn func(arena.Index, *Disjunct) bool) {
	s.disjuncts.Each(fn)
}

// NumAllocated returns the number of disjuncts allocated so far.
func (s *Sentence) NumAllocated() int {
	return s.disjuncts.Len()
}

// Release tears down both pools and clears every word's list. It is
// idempotent.
func (s *Sentence) Release() {
	for i := range s.words {
		s.words[i].Head = arena.Nil
	}
	s.disjuncts.Release()
	s.connectors.Release()
}

// Released reports whether Release has been called.
func (s *Sentence) Released() bool {
	return s.disjuncts.Released() || s.connectors.Released()
}

// Stats returns the bookkeeping of both pools.
func (s *Sentence) Stats() ArenaStats {
	return ArenaStats{
		Disjuncts:  s.disjuncts.Stats(),
		Connectors: s.connectors.Stats(),
	}
}
