// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package prepare turns each word's linking expressions into the pruned,
// deduplicated and origin-annotated disjunct lists the linkage solver
// consumes.
//
// # Pipeline
//
// For one sentence, Prepare runs:
//  1. EXPAND: every alternative of every word, in input order, through the
//     Expander; results are concatenated into the word's list.
//  2. DEDUP: every word list through the Eliminator, with the resource
//     budget consulted per word.
//  3. PRUNE: connector bounds are computed with PropagateBounds; disjuncts
//     that cannot fit inside the sentence are dropped and chain heads of
//     survivors are marked shallow.
//  4. ANNOTATE: word-graph origins are copied into every connector.
//
// Steps 2 and 3 may be swapped with Options.Order.
//
// # Thread Safety
//
// A Sentence is owned by a single Prepare call. A Preparer is safe for
// concurrent use on distinct sentences when its Expander, Eliminator and
// Observer are.
package prepare

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/linkprep/services/parse/arena"
	"github.com/AleutianAI/linkprep/services/parse/dedup"
	"github.com/AleutianAI/linkprep/services/parse/diag"
	"github.com/AleutianAI/linkprep/services/parse/expand"
	"github.com/AleutianAI/linkprep/services/parse/sentence"
)

// Checkpoint is the disjunct count of a sentence after one stage.
type Checkpoint struct {
	Stage  diag.Stage
	Counts diag.Counts
}

// Report describes one Prepare call.
type Report struct {
	SentenceID string

	// Checkpoints lists counts in the order stages completed.
	Checkpoints []Checkpoint

	// DuplicatesRemoved sums the Eliminator's removals over all words.
	DuplicatesRemoved int

	// Pruned is the number of disjuncts dropped at sentence edges.
	Pruned int

	// AbortedAt is the word at which a resource budget stopped
	// preparation, or -1.
	AbortedAt int

	// Completed is the number of leading words whose lists are final:
	// deduplicated, pruned, bounded, shallow-marked and annotated. It
	// equals the sentence length on success.
	Completed int

	Duration time.Duration
}

// Counts returns the counts recorded for stage.
func (r *Report) Counts(stage diag.Stage) (diag.Counts, bool) {
	for _, cp := range r.Checkpoints {
		if cp.Stage == stage {
			return cp.Counts, true
		}
	}
	return diag.Counts{}, false
}

// Preparer runs the preparation pipeline.
type Preparer struct {
	opts   Options
	logger *slog.Logger
}

// New creates a Preparer. A nil Eliminator defaults to dedup.New() and a
// nil Logger to slog.Default().
func New(opts Options) (*Preparer, error) {
	if opts.Eliminator == nil {
		opts.Eliminator = dedup.New()
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Preparer{opts: opts, logger: logger}, nil
}

// Options returns the options the Preparer runs with.
func (p *Preparer) Options() Options {
	return p.opts
}

// Prepare builds the final disjunct lists of every word of s.
//
// Description:
//
//	Expands, deduplicates, prunes and annotates s in place. An empty word
//	list is a valid result: the word admits no in-bounds attachment.
//
// Inputs:
//
//	ctx - Carries the trace span. Cancellation is honoured only at budget
//	      checks, between words.
//	s - The sentence. Must not be shared with another goroutine.
//
// Outputs:
//
//	*Report - Always non-nil, filled up to the point preparation stopped.
//	error - ErrAllocationFailed (s has been released), ErrResourceExhausted
//	        (words before Report.Completed are fully prepared, later words
//	        are not usable), ErrSentenceReleased, or an expander error
//	        (s has been released).
func (p *Preparer) Prepare(ctx context.Context, s *sentence.Sentence) (*Report, error) {
	if s == nil {
		return &Report{AbortedAt: -1}, ErrSentenceReleased
	}
	start := time.Now()
	report := &Report{SentenceID: s.ID(), AbortedAt: -1}

	ctx, span := startPrepareSpan(ctx, s.ID(), s.Length())
	defer span.End()

	err := p.run(ctx, s, report, start)
	report.Duration = time.Since(start)

	outcome := Classify(err)
	setPrepareSpanResult(span, report, outcome, report.Duration)
	recordPrepareMetrics(ctx, report, outcome)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logger.WarnContext(ctx, "sentence preparation failed",
			slog.String("sentence_id", report.SentenceID),
			slog.String("outcome", string(outcome)),
			slog.Int("aborted_at", report.AbortedAt),
			slog.String("error", err.Error()),
		)
		return report, err
	}

	p.logger.DebugContext(ctx, "sentence prepared",
		slog.String("sentence_id", report.SentenceID),
		slog.Int("words", s.Length()),
		slog.Int("duplicates_removed", report.DuplicatesRemoved),
		slog.Int("pruned", report.Pruned),
		slog.Duration("duration", report.Duration),
	)
	return report, nil
}

func (p *Preparer) run(ctx context.Context, s *sentence.Sentence, r *Report, start time.Time) error {
	if s.Released() {
		return ErrSentenceReleased
	}

	if err := p.expandAll(s, r); err != nil {
		if errors.Is(err, ErrResourceExhausted) {
			p.settle(s, r, r.AbortedAt, true, true)
		} else {
			s.Release()
		}
		return err
	}
	p.checkpoint(ctx, r, diag.StageExpanded, s)

	b := newBudget(ctx, p.opts, start)
	dedupFirst := p.opts.Order == OrderDedupThenPrune
	if !dedupFirst {
		p.pruneAll(ctx, s, r)
	}
	if err := p.dedupAll(ctx, s, r, b); err != nil {
		deduped := r.AbortedAt
		if p.opts.BudgetCheck == BudgetCheckAfterDedup {
			deduped++
		}
		p.settle(s, r, deduped, false, dedupFirst)
		return err
	}
	if dedupFirst {
		p.pruneAll(ctx, s, r)
	}

	annotateOrigins(s)
	r.Completed = s.Length()
	p.checkpoint(ctx, r, diag.StagePrepared, s)
	return nil
}

// settle finishes words [0,n) after a budget abort so their lists are
// final. needDedup and needPrune name the stages those words still lack.
// Words from n on keep whatever the aborted stage left.
func (p *Preparer) settle(s *sentence.Sentence, r *Report, n int, needDedup, needPrune bool) {
	for w := 0; w < n; w++ {
		if needDedup {
			head, removed := p.opts.Eliminator.Eliminate(s, s.Word(w).Head)
			s.SetHead(w, head)
			r.DuplicatesRemoved += removed
		}
		if needPrune {
			r.Pruned += pruneWord(s, w)
		}
	}
	annotateOrigins(s)
	r.Completed = n
}

func (p *Preparer) expandAll(s *sentence.Sentence, r *Report) error {
	for w := 0; w < s.Length(); w++ {
		head, tail := arena.Nil, arena.Nil
		for k, alt := range s.Word(w).Alternatives {
			list, err := p.opts.Expander.Expand(s, alt, p.opts.CostCutoff)
			if err != nil {
				return expandError(r, w, k, err)
			}
			head, tail = s.Append(head, tail, list)
		}
		s.SetHead(w, head)
	}
	return nil
}

func expandError(r *Report, w, alt int, err error) error {
	switch {
	case errors.Is(err, arena.ErrExhausted):
		return fmt.Errorf("%w: word %d alternative %d: %w", ErrAllocationFailed, w, alt, err)
	case errors.Is(err, expand.ErrTooManyClauses):
		r.AbortedAt = w
		return fmt.Errorf("%w: word %d alternative %d: %w", ErrResourceExhausted, w, alt, err)
	default:
		return fmt.Errorf("expand word %d alternative %d: %w", w, alt, err)
	}
}

func (p *Preparer) dedupAll(ctx context.Context, s *sentence.Sentence, r *Report, b *budget) error {
	for w := 0; w < s.Length(); w++ {
		if p.opts.BudgetCheck == BudgetCheckBeforeDedup {
			if err := b.check(w); err != nil {
				r.AbortedAt = w
				return err
			}
		}

		head, removed := p.opts.Eliminator.Eliminate(s, s.Word(w).Head)
		s.SetHead(w, head)
		r.DuplicatesRemoved += removed

		if p.opts.BudgetCheck == BudgetCheckAfterDedup {
			if err := b.check(w); err != nil {
				r.AbortedAt = w
				return err
			}
		}
	}
	p.checkpoint(ctx, r, diag.StageDeduplicated, s)
	return nil
}

func (p *Preparer) pruneAll(ctx context.Context, s *sentence.Sentence, r *Report) {
	for w := 0; w < s.Length(); w++ {
		r.Pruned += pruneWord(s, w)
	}
	p.checkpoint(ctx, r, diag.StagePruned, s)
}

// checkpoint records the counts of stage in r and on the span, and hands
// s to the Observer when the verbosity asks for it.
func (p *Preparer) checkpoint(ctx context.Context, r *Report, stage diag.Stage, s *sentence.Sentence) {
	counts := diag.Count(s)
	r.Checkpoints = append(r.Checkpoints, Checkpoint{Stage: stage, Counts: counts})

	trace.SpanFromContext(ctx).AddEvent(string(stage), trace.WithAttributes(
		attribute.Int("disjuncts", counts.Total),
		attribute.Int("max_per_word", counts.Max()),
	))

	if p.opts.Observer == nil {
		return
	}
	threshold := VerbosityCounts
	if stage == diag.StagePrepared {
		threshold = VerbosityDump
	}
	if p.opts.Verbosity >= threshold {
		p.opts.Observer.Checkpoint(ctx, stage, s)
	}
}
