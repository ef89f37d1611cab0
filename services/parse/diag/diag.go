// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package diag observes prepared sentences: it counts disjuncts per word and
// formats human-readable dumps. Everything here is read-only with respect to
// the sentence.
package diag

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/AleutianAI/linkprep/services/parse/arena"
	"github.com/AleutianAI/linkprep/services/parse/sentence"
)

// Stage names a checkpoint of the preparation pipeline.
type Stage string

const (
	// StageExpanded follows expression expansion.
	StageExpanded Stage = "expanded"

	// StageDeduplicated follows duplicate elimination.
	StageDeduplicated Stage = "deduplicated"

	// StagePruned follows edge pruning.
	StagePruned Stage = "pruned"

	// StagePrepared is the final state handed to the linkage solver.
	StagePrepared Stage = "prepared"
)

// Counts holds disjunct counts per word.
type Counts struct {
	PerWord []int
	Total   int
}

// Count walks every word list of s.
func Count(s *sentence.Sentence) Counts {
	c := Counts{PerWord: make([]int, s.Length())}
	for w := range c.PerWord {
		n := s.Count(w)
		c.PerWord[w] = n
		c.Total += n
	}
	return c
}

// Max returns the largest per-word count.
func (c Counts) Max() int {
	if len(c.PerWord) == 0 {
		return 0
	}
	return slices.Max(c.PerWord)
}

// wordName picks a printable name for word w.
func wordName(s *sentence.Sentence, w int) string {
	word := s.Word(w)
	if word != nil && len(word.Alternatives) > 0 && word.Alternatives[0].Label != "" {
		return word.Alternatives[0].Label
	}
	return "w" + strconv.Itoa(w)
}

// WriteCounts writes "name(count)" per word followed by the total.
func WriteCounts(out io.Writer, s *sentence.Sentence, c Counts) error {
	var sb strings.Builder
	for w, n := range c.PerWord {
		if w > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%s(%d)", wordName(s, w), n)
	}
	fmt.Fprintf(&sb, "\nTotal: %d disjuncts\n", c.Total)
	_, err := io.WriteString(out, sb.String())
	return err
}

// Dump writes every word's disjunct list.
//
// Each line reads "cost label: left <> right". Left connectors are printed
// farthest first so the line reads in sentence order. Computed bounds are
// shown as (nearest,farthest); a trailing "s" marks a shallow connector.
func Dump(out io.Writer, s *sentence.Sentence) error {
	bw := bufio.NewWriter(out)
	for w := 0; w < s.Length(); w++ {
		fmt.Fprintf(bw, "[%d] %s: %d disjuncts\n", w, wordName(s, w), s.Count(w))
		for _, id := range s.Disjuncts(w) {
			d := s.Disjunct(id)
			fmt.Fprintf(bw, "    %.3f %s: %s <> %s\n",
				d.Cost, d.Label,
				formatChain(s, d.Left, sentence.DirLeft),
				formatChain(s, d.Right, sentence.DirRight))
		}
	}
	return bw.Flush()
}

func formatChain(s *sentence.Sentence, head arena.Index, dir sentence.Direction) string {
	var parts []string
	for c := s.Connector(head); c != nil; c = s.Connector(c.Next) {
		parts = append(parts, formatConnector(c, dir))
	}
	if dir == sentence.DirLeft {
		slices.Reverse(parts)
	}
	return strings.Join(parts, " ")
}

func formatConnector(c *sentence.Connector, dir sentence.Direction) string {
	var sb strings.Builder
	if c.Multi {
		sb.WriteByte('@')
	}
	sb.WriteString(c.Name)
	sb.WriteString(dir.String())
	fmt.Fprintf(&sb, "(%d,%d)", c.NearestWord, c.FarthestWord)
	if c.Shallow {
		sb.WriteByte('s')
	}
	return sb.String()
}

// LogObserver reports checkpoints through slog and writes the full dump of
// the prepared sentence to Out.
type LogObserver struct {
	Logger *slog.Logger
	Out    io.Writer
}

// Checkpoint logs the counts of s at stage. At StagePrepared the full dump
// is written to Out when Out is set.
func (o *LogObserver) Checkpoint(ctx context.Context, stage Stage, s *sentence.Sentence) {
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := Count(s)
	logger.InfoContext(ctx, "disjunct counts",
		slog.String("sentence_id", s.ID()),
		slog.String("stage", string(stage)),
		slog.Int("total", c.Total),
		slog.Int("max_per_word", c.Max()),
		slog.Any("per_word", c.PerWord),
	)
	if stage == StagePrepared && o.Out != nil {
		if err := Dump(o.Out, s); err != nil {
			logger.WarnContext(ctx, "disjunct dump failed",
				slog.String("sentence_id", s.ID()),
				slog.String("error", err.Error()),
			)
		}
	}
}
