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

// chainStackSize covers every chain the reference dictionaries produce
// without a heap allocation.
const chainStackSize = 16

// PropagateBounds computes NearestWord and FarthestWord for every connector
// of the chain at head, owned by word w.
//
// delta is -1 for a left chain and +1 for a right chain; clamp is the
// sentence edge on that side (0 or length-1). The chain is folded from the
// tail toward the head: the tail sits one step from w and every connector
// closer to the head sits one step further than its successor. FarthestWord
// is w+delta*LengthLimit, clamped to the edge when it overshoots.
//
// The return value is the head's NearestWord, or w for an empty chain. A
// result outside [0, length) means the chain cannot fit in the sentence.
func PropagateBounds(s *sentence.Sentence, head arena.Index, w, delta, clamp int) int {
	var stack [chainStackSize]*sentence.Connector
	chain := stack[:0]
	for c := s.Connector(head); c != nil; c = s.Connector(c.Next) {
		chain = append(chain, c)
	}

	i := w
	for k := len(chain) - 1; k >= 0; k-- {
		c := chain[k]
		i += delta
		c.NearestWord = i

		farthest := w + delta*c.LengthLimit
		if delta*farthest > delta*clamp {
			farthest = clamp
		}
		c.FarthestWord = farthest
	}
	return i
}
