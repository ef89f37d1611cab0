// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sentence

import (
	"strconv"
	"strings"
)

// ExpKind is the node type of a linking expression.
type ExpKind int

const (
	// ExpConnector is a leaf naming a single connector.
	ExpConnector ExpKind = iota

	// ExpAnd requires all operands, in order.
	ExpAnd

	// ExpOr chooses exactly one operand.
	ExpOr
)

// String returns the string representation of the ExpKind.
func (k ExpKind) String() string {
	switch k {
	case ExpConnector:
		return "connector"
	case ExpAnd:
		return "and"
	case ExpOr:
		return "or"
	default:
		return "unknown"
	}
}

// Exp is a node of a linking expression tree.
//
// Expression trees are built by the expression builder and are read-only
// for the preparation stage.
type Exp struct {
	Kind     ExpKind
	Cost     float64
	Operands []*Exp

	// Connector leaf fields.
	Name  string
	Dir   Direction
	Multi bool

	// LengthLimit is the maximum word distance of the connector. 0 is a
	// real limit; DefaultLimit defers to the expander's default.
	LengthLimit int
}

// DefaultLimit marks a connector leaf whose length limit is left to the
// expander.
const DefaultLimit = -1

// Con returns a connector leaf with LengthLimit DefaultLimit.
func Con(name string, dir Direction) *Exp {
	return &Exp{Kind: ExpConnector, Name: name, Dir: dir, LengthLimit: DefaultLimit}
}

// And returns a conjunction of ops.
func And(ops ...*Exp) *Exp {
	return &Exp{Kind: ExpAnd, Operands: ops}
}

// Or returns a disjunction of ops.
func Or(ops ...*Exp) *Exp {
	return &Exp{Kind: ExpOr, Operands: ops}
}

// Opt returns the optional expression {e}, i.e. (() or e).
func Opt(e *Exp) *Exp {
	return Or(And(), e)
}

// WithCost sets the node cost and returns e.
func (e *Exp) WithCost(cost float64) *Exp {
	e.Cost = cost
	return e
}

// WithLimit sets the connector length limit and returns e.
func (e *Exp) WithLimit(n int) *Exp {
	e.LengthLimit = n
	return e
}

// AsMulti marks the connector as a multi-connector and returns e.
func (e *Exp) AsMulti() *Exp {
	e.Multi = true
	return e
}

// String renders the expression in dictionary-like notation.
func (e *Exp) String() string {
	var sb strings.Builder
	e.write(&sb)
	return sb.String()
}

func (e *Exp) write(sb *strings.Builder) {
	if e == nil {
		sb.WriteString("()")
		return
	}
	if e.Cost != 0 {
		sb.WriteByte('[')
	}
	switch e.Kind {
	case ExpConnector:
		if e.Multi {
			sb.WriteByte('@')
		}
		sb.WriteString(e.Name)
		sb.WriteString(e.Dir.String())
	case ExpAnd, ExpOr:
		sep := " & "
		if e.Kind == ExpOr {
			sep = " or "
		}
		sb.WriteByte('(')
		for i, op := range e.Operands {
			if i > 0 {
				sb.WriteString(sep)
			}
			op.write(sb)
		}
		sb.WriteByte(')')
	}
	if e.Cost != 0 {
		sb.WriteByte(']')
		sb.WriteString(strconv.FormatFloat(e.Cost, 'g', -1, 64))
	}
}
