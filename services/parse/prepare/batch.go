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
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/linkprep/services/parse/sentence"
)

// BatchResult is the outcome of one sentence of PrepareAll.
type BatchResult struct {
	Report *Report
	Err    error
}

// PrepareAll prepares independent sentences concurrently.
//
// Description:
//
//	Runs Prepare on every sentence with at most concurrency sentences in
//	flight. Sentences share no state, so one failure never affects the
//	others; errors are reported per sentence, never propagated.
//
// Inputs:
//
//	ctx - Passed to every Prepare call.
//	sentences - Must be distinct. Nil entries yield ErrSentenceReleased.
//	concurrency - Maximum parallel sentences. <= 0 falls back to
//	              Options.Concurrency, then to runtime.NumCPU().
//
// Outputs:
//
//	[]BatchResult - One entry per sentence, in input order.
func (p *Preparer) PrepareAll(ctx context.Context, sentences []*sentence.Sentence, concurrency int) []BatchResult {
	if concurrency <= 0 {
		concurrency = p.opts.Concurrency
	}
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	results := make([]BatchResult, len(sentences))

	var g errgroup.Group
	g.SetLimit(concurrency)

	for i, s := range sentences {
		if s == nil {
			results[i] = BatchResult{Err: ErrSentenceReleased}
			continue
		}
		g.Go(func() error {
			report, err := p.Prepare(ctx, s)
			results[i] = BatchResult{Report: report, Err: err}
			return nil // per-sentence errors live in results
		})
	}

	_ = g.Wait()
	return results
}
