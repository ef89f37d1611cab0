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
	"github.com/AleutianAI/linkprep/services/parse/arena"
	"github.com/AleutianAI/linkprep/services/parse/sentence"
)

// pruneWord drops the disjuncts of word w that would have to link past
// either end of the sentence and marks the chain heads of the survivors as
// shallow. Survivors keep their relative order. It returns the number of
// disjuncts dropped.
func pruneWord(s *sentence.Sentence, w int) int {
	last := s.Length() - 1
	newHead := arena.Nil
	var tail *sentence.Disjunct
	pruned := 0

	for id := s.Word(w).Head; id != arena.Nil; {
		d := s.Disjunct(id)
		next := d.Next

		if PropagateBounds(s, d.Left, w, -1, 0) < 0 ||
			PropagateBounds(s, d.Right, w, 1, last) > last {
			pruned++
			id = next
			continue
		}

		if c := s.Connector(d.Left); c != nil {
			c.Shallow = true
		}
		if c := s.Connector(d.Right); c != nil {
			c.Shallow = true
		}

		d.Next = arena.Nil
		if tail == nil {
			newHead = id
		} else {
			tail.Next = id
		}
		tail = d
		id = next
	}

	s.SetHead(w, newHead)
	return pruned
}

// annotateOrigins copies each disjunct's word-graph origin into every
// connector of both its chains. It scans the flat pool, so disjuncts
// dropped by earlier stages are annotated too; nothing reaches them through
// a word list.
func annotateOrigins(s *sentence.Sentence) {
	s.EachAllocated(func(_ arena.Index, d *sentence.Disjunct) bool {
		for c := s.Connector(d.Right); c != nil; c = s.Connector(c.Next) {
			c.Origin = d.Origin
		}
		for c := s.Connector(d.Left); c != nil; c = s.Connector(c.Next) {
			c.Origin = d.Origin
		}
		return true
	})
}
