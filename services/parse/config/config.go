// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads linkprep settings from YAML and turns them into
// pipeline options.
//
// Thread Safety:
//
//	All exported functions are safe for concurrent use. An Options value
//	must not be modified while another goroutine reads it.
package config

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/linkprep/pkg/logging"
	"github.com/AleutianAI/linkprep/services/parse/arena"
	"github.com/AleutianAI/linkprep/services/parse/dedup"
	"github.com/AleutianAI/linkprep/services/parse/diag"
	"github.com/AleutianAI/linkprep/services/parse/expand"
	"github.com/AleutianAI/linkprep/services/parse/prepare"
	"github.com/AleutianAI/linkprep/services/parse/sentence"
	"github.com/AleutianAI/linkprep/services/parse/telemetry"
)

// MaxYAMLFileSize is the largest configuration file Load accepts (1MB).
const MaxYAMLFileSize = 1024 * 1024

//go:embed defaults.yaml
var defaultYAML []byte

// Sentinel errors for configuration loading.
var (
	// ErrInvalidConfig is returned when a document fails to decode or
	// validate.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrConfigTooLarge is returned when a file exceeds MaxYAMLFileSize.
	ErrConfigTooLarge = errors.New("configuration file too large")
)

var (
	configLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linkprep_config_loads_total",
		Help: "Configuration loads by source and result",
	}, []string{"source", "result"})

	configLoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "linkprep_config_load_duration_seconds",
		Help:    "Duration of configuration loading",
		Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1},
	})
)

var tracer = otel.Tracer("linkprep.config")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Options is the root YAML document.
type Options struct {
	CostCutoff  float64          `yaml:"cost_cutoff" validate:"gte=0"`
	Verbosity   int              `yaml:"verbosity" validate:"gte=0"`
	Order       string           `yaml:"order" validate:"oneof=dedup_then_prune prune_then_dedup"`
	Concurrency int              `yaml:"concurrency" validate:"gte=0,lte=4096"`
	Pools       PoolConfig       `yaml:"pools"`
	Budget      BudgetConfig     `yaml:"budget"`
	Expander    ExpanderConfig   `yaml:"expander"`
	Logging     LoggingConfig    `yaml:"logging"`
	Telemetry   telemetry.Config `yaml:"telemetry"`
}

// PoolConfig sizes the per-sentence pools. Max values of 0 are unlimited.
type PoolConfig struct {
	DisjunctHint  int `yaml:"disjunct_hint" validate:"gte=0"`
	ConnectorHint int `yaml:"connector_hint" validate:"gte=0"`
	MaxDisjuncts  int `yaml:"max_disjuncts" validate:"gte=0"`
	MaxConnectors int `yaml:"max_connectors" validate:"gte=0"`
}

// BudgetConfig bounds the work spent on one sentence.
type BudgetConfig struct {
	Check        string        `yaml:"check" validate:"oneof=none before_dedup after_dedup"`
	MaxDuration  time.Duration `yaml:"max_duration" validate:"gte=0"`
	MaxHeapBytes uint64        `yaml:"max_heap_bytes"`
}

// ExpanderConfig configures the reference expander.
type ExpanderConfig struct {
	DefaultLengthLimit int `yaml:"default_length_limit" validate:"gte=0"`
	MaxClauses         int `yaml:"max_clauses" validate:"gte=0"`
}

// LoggingConfig configures pkg/logging.
type LoggingConfig struct {
	Level   string `yaml:"level" validate:"oneof=debug info warn error"`
	JSON    bool   `yaml:"json"`
	Service string `yaml:"service"`
	Dir     string `yaml:"dir"`
}

// Default returns the embedded defaults.
func Default() *Options {
	o, err := decode(nil)
	if err != nil {
		// The embedded document is covered by tests.
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return o
}

// Parse overlays data on the embedded defaults and validates the result.
// Unknown keys are rejected.
func Parse(ctx context.Context, data []byte) (*Options, error) {
	_, span := tracer.Start(ctx, "config.Parse",
		trace.WithAttributes(attribute.Int("config.yaml_size", len(data))),
	)
	defer span.End()

	o, err := decode(data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse failed")
		return nil, err
	}
	return o, nil
}

func decode(data []byte) (*Options, error) {
	var o Options
	if err := yaml.Unmarshal(defaultYAML, &o); err != nil {
		return nil, fmt.Errorf("%w: defaults: %w", ErrInvalidConfig, err)
	}
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&o); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return &o, nil
}

// Load reads the YAML file at path and overlays it on the defaults.
func Load(ctx context.Context, path string) (*Options, error) {
	ctx, span := tracer.Start(ctx, "config.Load",
		trace.WithAttributes(attribute.String("config.path", path)),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		configLoadDuration.Observe(time.Since(start).Seconds())
	}()

	o, err := load(ctx, path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		configLoads.WithLabelValues("file", "error").Inc()
		return nil, err
	}
	configLoads.WithLabelValues("file", "ok").Inc()

	slog.DebugContext(ctx, "configuration loaded",
		slog.String("path", path),
		slog.String("order", o.Order),
		slog.String("budget_check", o.Budget.Check),
	)
	return o, nil
}

func load(ctx context.Context, path string) (*Options, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat config: %w", err)
	}
	if info.Size() > MaxYAMLFileSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrConfigTooLarge, info.Size(), MaxYAMLFileSize)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(ctx, data)
}

// Validate checks field ranges and enumerations.
func (o *Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// PoolOptions returns the pool sizing for new sentences.
func (o *Options) PoolOptions() sentence.PoolOptions {
	return sentence.PoolOptions{
		Disjuncts:  arena.PoolOptions{Hint: o.Pools.DisjunctHint, MaxElements: o.Pools.MaxDisjuncts},
		Connectors: arena.PoolOptions{Hint: o.Pools.ConnectorHint, MaxElements: o.Pools.MaxConnectors},
	}
}

// NewLogger builds the logger described by the logging section.
func (o *Options) NewLogger() (*logging.Logger, error) {
	level, err := logging.ParseLevel(o.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return logging.New(logging.Config{
		Level:   level,
		JSON:    o.Logging.JSON,
		Service: o.Logging.Service,
		LogDir:  o.Logging.Dir,
	}), nil
}

// PrepareOptions builds pipeline options wired to the reference expander
// and duplicate eliminator. Log records gain trace correlation; a
// non-zero verbosity attaches a diag.LogObserver that dumps to dump.
func (o *Options) PrepareOptions(logger *slog.Logger, dump io.Writer) (prepare.Options, error) {
	order, err := prepare.ParseOrder(o.Order)
	if err != nil {
		return prepare.Options{}, err
	}
	check, err := prepare.ParseBudgetCheck(o.Budget.Check)
	if err != nil {
		return prepare.Options{}, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = slog.New(telemetry.NewTraceHandler(logger.Handler()))

	opts := prepare.Options{
		CostCutoff:   o.CostCutoff,
		Verbosity:    o.Verbosity,
		Order:        order,
		BudgetCheck:  check,
		MaxDuration:  o.Budget.MaxDuration,
		MaxHeapBytes: o.Budget.MaxHeapBytes,
		Concurrency:  o.Concurrency,
		Expander: expand.New(
			expand.WithDefaultLengthLimit(o.Expander.DefaultLengthLimit),
			expand.WithMaxClauses(o.Expander.MaxClauses),
		),
		Eliminator: dedup.New(),
		Logger:     logger,
	}
	if o.Verbosity > 0 {
		opts.Observer = &diag.LogObserver{Logger: logger, Out: dump}
	}
	return opts, nil
}

// NewPreparer is PrepareOptions followed by prepare.New.
func (o *Options) NewPreparer(logger *slog.Logger, dump io.Writer) (*prepare.Preparer, error) {
	opts, err := o.PrepareOptions(logger, dump)
	if err != nil {
		return nil, err
	}
	return prepare.New(opts)
}
