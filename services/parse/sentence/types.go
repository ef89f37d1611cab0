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

	"github.com/AleutianAI/linkprep/services/parse/arena"
)

// UnlimitedLength is the length limit of a connector that may reach any
// word in the sentence.
const UnlimitedLength = 1 << 30

// GwordID identifies a word-graph node, i.e. one tokenization alternative of
// a word. It is a lookup key, never an owning handle. NoGword is the zero
// value.
type GwordID uint32

// NoGword means "no originating word-graph node recorded".
const NoGword GwordID = 0

// Direction is the side a connector attaches to.
type Direction byte

const (
	// DirLeft connectors attach to words before the owning word.
	DirLeft Direction = '-'

	// DirRight connectors attach to words after the owning word.
	DirRight Direction = '+'
)

// String returns "-" or "+".
func (d Direction) String() string {
	switch d {
	case DirLeft:
		return "-"
	case DirRight:
		return "+"
	default:
		return "?"
	}
}

// Connector is one attachment point in a chain.
//
// Next refers to the following, more distant connector of the same chain.
// The chain head owns its tail; chains are never shared between disjuncts.
type Connector struct {
	Next arena.Index

	// Name is the connector type, e.g. "S" or "Ds".
	Name string

	// Multi marks an "@" connector that may attach to several words.
	Multi bool

	// LengthLimit is the maximum word distance this connector may span.
	LengthLimit int

	// NearestWord and FarthestWord are written by bound propagation only.
	NearestWord  int
	FarthestWord int

	// Shallow is set on the chain head of a surviving disjunct.
	Shallow bool

	// Origin is copied from the owning disjunct after pruning.
	Origin GwordID
}

// Disjunct is one candidate attachment pattern for a word.
//
// Next chains disjuncts within a single word's candidate list and has no
// other meaning.
type Disjunct struct {
	Next  arena.Index
	Left  arena.Index
	Right arena.Index
	Cost  float64

	// Origin is a weak reference to the word-graph node that produced the
	// disjunct.
	Origin GwordID

	// Label is the label string of the alternative this disjunct was
	// expanded from.
	Label string
}

// ConnectorSpec describes a connector to allocate.
type ConnectorSpec struct {
	Name        string
	Multi       bool
	LengthLimit int
}

// String renders the spec in dictionary notation, without direction.
func (c ConnectorSpec) String() string {
	var sb strings.Builder
	if c.Multi {
		sb.WriteByte('@')
	}
	sb.WriteString(c.Name)
	if c.LengthLimit != UnlimitedLength {
		sb.WriteByte('<')
		sb.WriteString(strconv.Itoa(c.LengthLimit))
		sb.WriteByte('>')
	}
	return sb.String()
}

// DisjunctSpec describes a disjunct to allocate. Left and Right list the
// connectors nearest first: index 0 becomes the chain head.
type DisjunctSpec struct {
	Cost   float64
	Origin GwordID
	Label  string
	Left   []ConnectorSpec
	Right  []ConnectorSpec
}

// Alternative is one linking expression supplied for a word, together with
// its label and originating word-graph node.
type Alternative struct {
	Exp   *Exp
	Label string
	Gword GwordID
}

// Word is one sentence position.
type Word struct {
	// Alternatives is read-only input from the expression builder.
	Alternatives []Alternative

	// Head is the first disjunct of the word's current candidate list.
	Head arena.Index
}
