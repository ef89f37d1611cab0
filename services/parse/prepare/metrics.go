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
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for preparation.
var (
	tracer = otel.Tracer("linkprep.prepare")
	meter  = otel.Meter("linkprep.prepare")
)

var (
	sentencesTotal   metric.Int64Counter
	prepareLatency   metric.Float64Histogram
	disjunctsByStage metric.Int64Histogram
	prunedTotal      metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		sentencesTotal, err = meter.Int64Counter(
			"linkprep_sentences_prepared_total",
			metric.WithDescription("Sentences prepared, by outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		prepareLatency, err = meter.Float64Histogram(
			"linkprep_prepare_duration_seconds",
			metric.WithDescription("Duration of sentence preparation"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		disjunctsByStage, err = meter.Int64Histogram(
			"linkprep_disjuncts_per_sentence",
			metric.WithDescription("Disjuncts in a sentence after each stage"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		prunedTotal, err = meter.Int64Counter(
			"linkprep_disjuncts_pruned_total",
			metric.WithDescription("Disjuncts dropped for reaching past a sentence edge"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordPrepareMetrics records one Prepare call.
func recordPrepareMetrics(ctx context.Context, r *Report, outcome Outcome) {
	if err := initMetrics(); err != nil {
		return
	}

	sentencesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(outcome))))
	prepareLatency.Record(ctx, r.Duration.Seconds())

	for _, cp := range r.Checkpoints {
		disjunctsByStage.Record(ctx, int64(cp.Counts.Total),
			metric.WithAttributes(attribute.String("stage", string(cp.Stage))))
	}
	if r.Pruned > 0 {
		prunedTotal.Add(ctx, int64(r.Pruned))
	}
}

// startPrepareSpan creates a span for a Prepare call.
func startPrepareSpan(ctx context.Context, sentenceID string, words int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "prepare.Prepare",
		trace.WithAttributes(
			attribute.String("prepare.sentence_id", sentenceID),
			attribute.Int("prepare.words", words),
		),
	)
}

// setPrepareSpanResult sets the result attributes on a Prepare span.
func setPrepareSpanResult(span trace.Span, r *Report, outcome Outcome, d time.Duration) {
	span.SetAttributes(
		attribute.String("prepare.outcome", string(outcome)),
		attribute.Int("prepare.duplicates_removed", r.DuplicatesRemoved),
		attribute.Int("prepare.pruned", r.Pruned),
		attribute.Int64("prepare.duration_us", d.Microseconds()),
	)
}
