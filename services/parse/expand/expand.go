// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package expand turns a linking expression into the elementary disjuncts
// it denotes.
//
// # Denotation
//
//   - A connector leaf denotes one clause holding that connector.
//   - (a or b) denotes the union of the clauses of a and b.
//   - (a & b) denotes every concatenation of a clause of a with a clause
//     of b, in operand order.
//   - A node's cost is added to every clause it produces.
//
// The empty conjunction denotes a single empty clause, the empty disjunction
// denotes nothing.
//
// # Connector Order
//
// Right-pointing connectors keep expression order, so the first one listed
// becomes the chain head and links to the nearest word. Left-pointing
// connectors are reversed: the last one listed is the head.
package expand

import (
	"fmt"
	"math"

	"github.com/AleutianAI/linkprep/pkg/validation"
	"github.com/AleutianAI/linkprep/services/parse/arena"
	"github.com/AleutianAI/linkprep/services/parse/sentence"
)

// Options configures an Expander.
type Options struct {
	// DefaultLengthLimit applies to connector leaves whose LengthLimit is
	// negative (sentence.DefaultLimit).
	// Default: sentence.UnlimitedLength
	DefaultLengthLimit int

	// MaxClauses caps the clauses produced for a single expression.
	// 0 means unlimited.
	MaxClauses int
}

// DefaultOptions returns the default expander configuration.
func DefaultOptions() Options {
	return Options{
		DefaultLengthLimit: sentence.UnlimitedLength,
	}
}

// Option is a functional option for configuring an Expander.
type Option func(*Options)

// WithDefaultLengthLimit sets the length limit of leaves that carry none.
func WithDefaultLengthLimit(n int) Option {
	return func(o *Options) {
		o.DefaultLengthLimit = n
	}
}

// WithMaxClauses caps the clause count per expression.
func WithMaxClauses(n int) Option {
	return func(o *Options) {
		o.MaxClauses = n
	}
}

// Expander is the reference disjunct expander.
//
// Thread Safety: Expander holds no mutable state and is safe for concurrent
// use on different sentences.
type Expander struct {
	opts Options
}

// New creates an Expander.
func New(opts ...Option) *Expander {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.DefaultLengthLimit <= 0 {
		o.DefaultLengthLimit = sentence.UnlimitedLength
	}
	return &Expander{opts: o}
}

// Options returns the expander's configuration.
func (x *Expander) Options() Options {
	return x.opts
}

// clause is one conjunction of connectors with its accumulated cost.
type clause struct {
	cost float64
	cons []*sentence.Exp
}

// Expand allocates the disjuncts denoted by alt.Exp in s and returns the head
// of the resulting list. Clauses whose cost exceeds costCutoff are dropped.
//
// Outputs:
//   - arena.Index: head of the new list, arena.Nil when nothing survives.
//   - error: allocation errors from the sentence pools, ErrTooManyClauses,
//     or ErrInvalidExpression.
func (x *Expander) Expand(s *sentence.Sentence, alt sentence.Alternative, costCutoff float64) (arena.Index, error) {
	if alt.Exp == nil {
		return arena.Nil, nil
	}
	clauses, err := x.clauses(alt.Exp)
	if err != nil {
		return arena.Nil, fmt.Errorf("expand %q: %w", alt.Label, err)
	}

	head, tail := arena.Nil, (*sentence.Disjunct)(nil)
	for _, cl := range clauses {
		if cl.cost > costCutoff {
			continue
		}
		id, err := s.NewDisjunct(x.spec(cl, alt))
		if err != nil {
			return arena.Nil, err
		}
		if tail == nil {
			head = id
		} else {
			tail.Next = id
		}
		tail = s.Disjunct(id)
	}
	return head, nil
}

func (x *Expander) spec(cl clause, alt sentence.Alternative) sentence.DisjunctSpec {
	spec := sentence.DisjunctSpec{
		Cost:   cl.cost,
		Origin: alt.Gword,
		Label:  alt.Label,
	}
	for _, c := range cl.cons {
		cs := sentence.ConnectorSpec{Name: c.Name, Multi: c.Multi, LengthLimit: c.LengthLimit}
		if cs.LengthLimit < 0 {
			cs.LengthLimit = x.opts.DefaultLengthLimit
		}
		if c.Dir == sentence.DirRight {
			spec.Right = append(spec.Right, cs)
		} else {
			spec.Left = append(spec.Left, cs)
		}
	}
	for i, j := 0, len(spec.Left)-1; i < j; i, j = i+1, j-1 {
		spec.Left[i], spec.Left[j] = spec.Left[j], spec.Left[i]
	}
	return spec
}

func (x *Expander) clauses(e *sentence.Exp) ([]clause, error) {
	// A nil operand prints as "()" and behaves like the empty conjunction.
	if e == nil {
		return []clause{{}}, nil
	}
	if math.IsNaN(e.Cost) {
		return nil, fmt.Errorf("%w: %s node has NaN cost", ErrInvalidExpression, e.Kind)
	}
	var out []clause
	switch e.Kind {
	case sentence.ExpConnector:
		if err := validation.ValidateConnectorName(e.Name); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidExpression, err)
		}
		if e.Dir != sentence.DirLeft && e.Dir != sentence.DirRight {
			return nil, fmt.Errorf("%w: connector %s has direction %q", ErrInvalidExpression, e.Name, byte(e.Dir))
		}
		out = []clause{{cons: []*sentence.Exp{e}}}

	case sentence.ExpOr:
		for _, op := range e.Operands {
			sub, err := x.clauses(op)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
			if err := x.checkLimit(len(out)); err != nil {
				return nil, err
			}
		}

	case sentence.ExpAnd:
		out = []clause{{}}
		for _, op := range e.Operands {
			sub, err := x.clauses(op)
			if err != nil {
				return nil, err
			}
			if err := x.checkLimit(len(out) * len(sub)); err != nil {
				return nil, err
			}
			next := make([]clause, 0, len(out)*len(sub))
			for _, a := range out {
				for _, b := range sub {
					cons := make([]*sentence.Exp, 0, len(a.cons)+len(b.cons))
					cons = append(cons, a.cons...)
					cons = append(cons, b.cons...)
					next = append(next, clause{cost: a.cost + b.cost, cons: cons})
				}
			}
			out = next
		}

	default:
		return nil, fmt.Errorf("%w: kind %d", ErrInvalidExpression, int(e.Kind))
	}

	if e.Cost != 0 {
		for i := range out {
			out[i].cost += e.Cost
		}
	}
	return out, nil
}

func (x *Expander) checkLimit(n int) error {
	if x.opts.MaxClauses > 0 && n > x.opts.MaxClauses {
		return fmt.Errorf("%w: %d > %d", ErrTooManyClauses, n, x.opts.MaxClauses)
	}
	return nil
}
