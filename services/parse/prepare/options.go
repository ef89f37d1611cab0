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
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/AleutianAI/linkprep/services/parse/arena"
	"github.com/AleutianAI/linkprep/services/parse/dedup"
	"github.com/AleutianAI/linkprep/services/parse/diag"
	"github.com/AleutianAI/linkprep/services/parse/expand"
	"github.com/AleutianAI/linkprep/services/parse/sentence"
)

const (
	// DefaultCostCutoff discards expanded disjuncts costlier than 2.7.
	DefaultCostCutoff = 2.7

	// VerbosityCounts enables the per-stage count checkpoints.
	VerbosityCounts = 5

	// VerbosityDump additionally requests the full dump of the prepared
	// sentence.
	VerbosityDump = 102
)

// Order selects whether duplicates are removed before or after pruning.
// Both orders produce a pruned and duplicate-free list.
type Order int

const (
	// OrderDedupThenPrune removes duplicates from the larger expanded set
	// first.
	OrderDedupThenPrune Order = iota

	// OrderPruneThenDedup prunes first and deduplicates the survivors.
	OrderPruneThenDedup
)

// String returns the configuration name of the order.
func (o Order) String() string {
	switch o {
	case OrderDedupThenPrune:
		return "dedup_then_prune"
	case OrderPruneThenDedup:
		return "prune_then_dedup"
	default:
		return "unknown"
	}
}

// ParseOrder parses a configuration name produced by Order.String.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "dedup_then_prune":
		return OrderDedupThenPrune, nil
	case "prune_then_dedup":
		return OrderPruneThenDedup, nil
	default:
		return 0, fmt.Errorf("%w: unknown order %q", ErrInvalidOptions, s)
	}
}

// BudgetCheck selects where in the per-word dedup loop the resource budget
// is consulted.
type BudgetCheck int

const (
	// BudgetCheckNone never consults the budget.
	BudgetCheckNone BudgetCheck = iota

	// BudgetCheckBeforeDedup consults the budget before each word is
	// deduplicated.
	BudgetCheckBeforeDedup

	// BudgetCheckAfterDedup consults the budget after each word is
	// deduplicated.
	BudgetCheckAfterDedup
)

// String returns the configuration name of the check position.
func (b BudgetCheck) String() string {
	switch b {
	case BudgetCheckNone:
		return "none"
	case BudgetCheckBeforeDedup:
		return "before_dedup"
	case BudgetCheckAfterDedup:
		return "after_dedup"
	default:
		return "unknown"
	}
}

// ParseBudgetCheck parses a configuration name produced by
// BudgetCheck.String.
func ParseBudgetCheck(s string) (BudgetCheck, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return BudgetCheckNone, nil
	case "before_dedup":
		return BudgetCheckBeforeDedup, nil
	case "", "after_dedup":
		return BudgetCheckAfterDedup, nil
	default:
		return 0, fmt.Errorf("%w: unknown budget check %q", ErrInvalidOptions, s)
	}
}

// BudgetFunc is consulted between words. Returning true aborts the rest of
// the preparation with ErrResourceExhausted.
type BudgetFunc func(word int) bool

// Expander turns one alternative of a word into a disjunct list allocated
// from the sentence pools. expand.Expander is the reference implementation.
type Expander interface {
	Expand(s *sentence.Sentence, alt sentence.Alternative, costCutoff float64) (arena.Index, error)
}

// Eliminator removes duplicate disjuncts from a word list and reports how
// many were removed. It must be idempotent and, when used from PrepareAll,
// safe for concurrent use. dedup.Eliminator is the reference implementation.
type Eliminator interface {
	Eliminate(s *sentence.Sentence, head arena.Index) (arena.Index, int)
}

// Observer receives read-only checkpoints of the sentence.
// diag.LogObserver is the reference implementation.
type Observer interface {
	Checkpoint(ctx context.Context, stage diag.Stage, s *sentence.Sentence)
}

// Options configures a Preparer.
type Options struct {
	// CostCutoff is passed to the Expander; costlier disjuncts are dropped.
	CostCutoff float64

	// Verbosity gates Observer checkpoints: VerbosityCounts and above for
	// stage counts, VerbosityDump and above for the final dump.
	Verbosity int

	// Order of duplicate elimination relative to pruning.
	Order Order

	// BudgetCheck positions the budget check in the dedup loop.
	BudgetCheck BudgetCheck

	// Budget is an optional caller predicate.
	Budget BudgetFunc

	// MaxDuration aborts preparation once this much time has passed since
	// Prepare started. Zero disables it.
	MaxDuration time.Duration

	// MaxHeapBytes aborts preparation once live heap objects exceed this
	// many bytes. Zero disables it.
	MaxHeapBytes uint64

	// Concurrency bounds PrepareAll when its own argument is not positive.
	// Zero means runtime.NumCPU().
	Concurrency int

	Expander   Expander
	Eliminator Eliminator

	// Observer may be nil.
	Observer Observer

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns options wired to the reference expander and
// duplicate eliminator.
func DefaultOptions() Options {
	return Options{
		CostCutoff:  DefaultCostCutoff,
		Order:       OrderDedupThenPrune,
		BudgetCheck: BudgetCheckAfterDedup,
		Expander:    expand.New(),
		Eliminator:  dedup.New(),
	}
}

func (o Options) validate() error {
	if o.Expander == nil {
		return ErrNoExpander
	}
	if math.IsNaN(o.CostCutoff) {
		return fmt.Errorf("%w: cost cutoff is NaN", ErrInvalidOptions)
	}
	if o.Order != OrderDedupThenPrune && o.Order != OrderPruneThenDedup {
		return fmt.Errorf("%w: order %d", ErrInvalidOptions, o.Order)
	}
	if o.BudgetCheck < BudgetCheckNone || o.BudgetCheck > BudgetCheckAfterDedup {
		return fmt.Errorf("%w: budget check %d", ErrInvalidOptions, o.BudgetCheck)
	}
	if o.MaxDuration < 0 {
		return fmt.Errorf("%w: negative max duration %s", ErrInvalidOptions, o.MaxDuration)
	}
	if o.Concurrency < 0 {
		return fmt.Errorf("%w: negative concurrency %d", ErrInvalidOptions, o.Concurrency)
	}
	return nil
}
