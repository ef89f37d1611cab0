// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/linkprep/services/parse/arena"
	"github.com/AleutianAI/linkprep/services/parse/diag"
	"github.com/AleutianAI/linkprep/services/parse/expand"
	"github.com/AleutianAI/linkprep/services/parse/prepare"
	"github.com/AleutianAI/linkprep/services/parse/sentence"
)

func TestDefault(t *testing.T) {
	o := Default()

	assert.Equal(t, 2.7, o.CostCutoff)
	assert.Equal(t, 0, o.Verbosity)
	assert.Equal(t, "dedup_then_prune", o.Order)
	assert.Equal(t, "after_dedup", o.Budget.Check)
	assert.Equal(t, time.Duration(0), o.Budget.MaxDuration)
	assert.Equal(t, 2048, o.Pools.DisjunctHint)
	assert.Equal(t, "info", o.Logging.Level)
	assert.Equal(t, "linkprep", o.Telemetry.ServiceName)
	assert.Equal(t, "none", o.Telemetry.MetricExporter)
	require.NoError(t, o.Validate())
}

func TestParse_Overlay(t *testing.T) {
	doc := `
cost_cutoff: 1.5
order: prune_then_dedup
budget:
  check: before_dedup
  max_duration: 250ms
expander:
  max_clauses: 100
`
	o, err := Parse(context.Background(), []byte(doc))
	require.NoError(t, err)

	assert.Equal(t, 1.5, o.CostCutoff)
	assert.Equal(t, "prune_then_dedup", o.Order)
	assert.Equal(t, "before_dedup", o.Budget.Check)
	assert.Equal(t, 250*time.Millisecond, o.Budget.MaxDuration)
	assert.Equal(t, 100, o.Expander.MaxClauses)

	// Untouched keys keep their defaults.
	assert.Equal(t, 8192, o.Pools.ConnectorHint)
	assert.Equal(t, "info", o.Logging.Level)
}

func TestParse_Empty(t *testing.T) {
	for _, doc := range []string{"", "   \n", "# comment only\n"} {
		o, err := Parse(context.Background(), []byte(doc))
		require.NoError(t, err, "doc %q", doc)
		assert.Equal(t, Default(), o)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"bad order", "order: sideways\n"},
		{"bad budget check", "budget:\n  check: sometimes\n"},
		{"negative cutoff", "cost_cutoff: -1\n"},
		{"negative verbosity", "verbosity: -5\n"},
		{"negative hint", "pools:\n  disjunct_hint: -1\n"},
		{"bad level", "logging:\n  level: loud\n"},
		{"bad exporter", "telemetry:\n  trace_exporter: carrier-pigeon\n"},
		{"unknown key", "colour: blue\n"},
		{"bad duration", "budget:\n  max_duration: soon\n"},
		{"malformed", "order: [unclosed\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(context.Background(), []byte(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "linkprep.yaml")
	require.NoError(t, os.WriteFile(path, []byte("verbosity: 5\nconcurrency: 3\n"), 0o600))

	o, err := Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 5, o.Verbosity)
	assert.Equal(t, 3, o.Concurrency)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_TooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.yaml")
	big := "# " + strings.Repeat("x", MaxYAMLFileSize) + "\n"
	require.NoError(t, os.WriteFile(path, []byte(big), 0o600))

	_, err := Load(context.Background(), path)
	assert.ErrorIs(t, err, ErrConfigTooLarge)
}

func TestPoolOptions(t *testing.T) {
	o := Default()
	o.Pools.MaxConnectors = 10

	p := o.PoolOptions()
	assert.Equal(t, 2048, p.Disjuncts.Hint)
	assert.Equal(t, 0, p.Disjuncts.MaxElements)
	assert.Equal(t, 8192, p.Connectors.Hint)
	assert.Equal(t, 10, p.Connectors.MaxElements)
}

func TestPrepareOptions(t *testing.T) {
	o := Default()
	o.Order = "prune_then_dedup"
	o.Budget.Check = "none"
	o.Budget.MaxDuration = time.Second
	o.Expander.DefaultLengthLimit = 3
	o.Expander.MaxClauses = 50

	opts, err := o.PrepareOptions(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, prepare.OrderPruneThenDedup, opts.Order)
	assert.Equal(t, prepare.BudgetCheckNone, opts.BudgetCheck)
	assert.Equal(t, time.Second, opts.MaxDuration)
	assert.NotNil(t, opts.Logger)
	assert.NotNil(t, opts.Eliminator)
	assert.Nil(t, opts.Observer, "verbosity 0 attaches no observer")

	x, ok := opts.Expander.(*expand.Expander)
	require.True(t, ok)
	assert.Equal(t, 3, x.Options().DefaultLengthLimit)
	assert.Equal(t, 50, x.Options().MaxClauses)
}

func TestNewPreparer_EndToEnd(t *testing.T) {
	doc := "verbosity: 102\n"
	o, err := Parse(context.Background(), []byte(doc))
	require.NoError(t, err)

	var dump bytes.Buffer
	p, err := o.NewPreparer(nil, &dump)
	require.NoError(t, err)

	s := sentence.New([][]sentence.Alternative{
		{{Exp: sentence.Con("D", sentence.DirRight), Label: "the"}},
		{{Exp: sentence.Con("D", sentence.DirLeft), Label: "dog"}},
	}, o.PoolOptions())

	report, err := p.Prepare(context.Background(), s)
	require.NoError(t, err)
	counts, ok := report.Counts(diag.StagePrepared)
	require.True(t, ok)
	assert.Equal(t, 2, counts.Total)
	assert.Contains(t, dump.String(), "the: 1 disjuncts")
}

func TestNewLogger(t *testing.T) {
	o := Default()
	o.Logging.Dir = t.TempDir()
	o.Logging.Level = "debug"

	logger, err := o.NewLogger()
	require.NoError(t, err)
	defer logger.Close()

	logger.Debug("hello")
	entries, err := os.ReadDir(o.Logging.Dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

// countingExpander records the largest number of Expand calls in flight.
type countingExpander struct {
	*expand.Expander
	cur, peak atomic.Int32
}

func (x *countingExpander) Expand(s *sentence.Sentence, alt sentence.Alternative, cutoff float64) (arena.Index, error) {
	n := x.cur.Add(1)
	defer x.cur.Add(-1)
	for {
		p := x.peak.Load()
		if n <= p || x.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(2 * time.Millisecond)
	return x.Expander.Expand(s, alt, cutoff)
}

func TestPrepareOptions_Concurrency(t *testing.T) {
	o, err := Parse(context.Background(), []byte("concurrency: 1\n"))
	require.NoError(t, err)

	opts, err := o.PrepareOptions(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, opts.Concurrency)

	x := &countingExpander{Expander: expand.New()}
	opts.Expander = x
	p, err := prepare.New(opts)
	require.NoError(t, err)

	sentences := make([]*sentence.Sentence, 6)
	for i := range sentences {
		sentences[i] = sentence.New([][]sentence.Alternative{
			{{Exp: sentence.Con("D", sentence.DirRight), Label: "the"}},
			{{Exp: sentence.Con("D", sentence.DirLeft), Label: "dog"}},
		}, o.PoolOptions())
	}

	for _, res := range p.PrepareAll(context.Background(), sentences, 0) {
		require.NoError(t, res.Err)
	}
	assert.Equal(t, int32(1), x.peak.Load())
}
