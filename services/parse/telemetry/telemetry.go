// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry wires OpenTelemetry for linkprep.
//
// Pipeline packages use otel.Tracer and otel.Meter directly; Init only
// chooses where spans and metrics go:
//
//	shutdown, err := telemetry.Init(ctx, telemetry.DefaultConfig())
//	if err != nil {
//	    return fmt.Errorf("init telemetry: %w", err)
//	}
//	defer shutdown(context.Background())
//
// Trace exporters: "otlp" (gRPC), "stdout", "none". Metric exporters:
// "prometheus" (served by MetricsHandler), "stdout", "none".
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Sentinel errors for telemetry setup.
var (
	// ErrNilContext is returned when Init is called with a nil context.
	ErrNilContext = errors.New("context must not be nil")

	// ErrUnknownExporter is returned for an exporter name Init does not know.
	ErrUnknownExporter = errors.New("unknown exporter")
)

// Exporter names.
const (
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterPrometheus = "prometheus"
	ExporterNone       = "none"
)

// Config selects exporters and the resource attributes attached to them.
type Config struct {
	// ServiceName is the service.name resource attribute.
	ServiceName string `yaml:"service_name"`

	// ServiceVersion is the service.version resource attribute.
	ServiceVersion string `yaml:"service_version"`

	// Environment identifies the deployment environment.
	Environment string `yaml:"environment"`

	// TraceExporter is one of ExporterOTLP, ExporterStdout or ExporterNone.
	TraceExporter string `yaml:"trace_exporter" validate:"omitempty,oneof=otlp stdout none"`

	// MetricExporter is one of ExporterPrometheus, ExporterStdout or ExporterNone.
	MetricExporter string `yaml:"metric_exporter" validate:"omitempty,oneof=prometheus stdout none"`

	// OTLPEndpoint is the OTLP gRPC receiver for traces.
	OTLPEndpoint string `yaml:"otlp_endpoint"`

	// OTLPInsecure disables TLS for the OTLP connection.
	OTLPInsecure bool `yaml:"otlp_insecure"`

	// Writer receives stdout exporter output. Defaults to os.Stdout.
	Writer io.Writer `yaml:"-"`
}

// DefaultConfig returns development defaults. Environment variables
// override them:
//   - LINKPREP_ENV: environment name
//   - OTEL_TRACES_EXPORTER: trace exporter
//   - OTEL_METRICS_EXPORTER: metric exporter
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint
func DefaultConfig() Config {
	return Config{
		ServiceName:    "linkprep",
		ServiceVersion: "1.0.0",
		Environment:    getEnvOr("LINKPREP_ENV", "development"),
		TraceExporter:  getEnvOr("OTEL_TRACES_EXPORTER", ExporterNone),
		MetricExporter: getEnvOr("OTEL_METRICS_EXPORTER", ExporterPrometheus),
		OTLPEndpoint:   getEnvOr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTLPInsecure:   true,
	}
}

// Init installs the global TracerProvider and MeterProvider.
//
// Description:
//
//	Builds providers for the configured exporters and registers them with
//	otel. An empty exporter name counts as "none".
//
// Inputs:
//
//	ctx - Used for exporter connections. Must not be nil.
//	cfg - Telemetry configuration.
//
// Outputs:
//
//	shutdown - Flushes and stops every provider Init created. Must be called.
//	error - ErrNilContext, ErrUnknownExporter, or an exporter error.
//
// Thread Safety: Call once at startup. The prometheus exporter registers
// with the default prometheus registry, which accepts it only once per
// process.
func Init(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}

	var stops stoppers
	res := cfg.resource()

	if enabled(cfg.TraceExporter) {
		spans, err := newSpanExporter(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("trace exporter %q: %w", cfg.TraceExporter, err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(spans),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
		)
		otel.SetTracerProvider(tp)
		stops = append(stops, tp.Shutdown)
	}

	if enabled(cfg.MetricExporter) {
		reader, err := newMetricReader(cfg)
		if err != nil {
			_ = stops.stop(ctx)
			return nil, fmt.Errorf("metric exporter %q: %w", cfg.MetricExporter, err)
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(reader),
		)
		otel.SetMeterProvider(mp)
		stops = append(stops, mp.Shutdown)
	}

	return stops.stop, nil
}

// stoppers shuts providers down in creation order and joins their errors.
type stoppers []func(context.Context) error

func (s stoppers) stop(ctx context.Context) error {
	errs := make([]error, 0, len(s))
	for _, fn := range s {
		errs = append(errs, fn(ctx))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("telemetry shutdown: %w", err)
	}
	return nil
}

func enabled(exporter string) bool {
	return exporter != "" && exporter != ExporterNone
}

func (c Config) writer() io.Writer {
	if c.Writer != nil {
		return c.Writer
	}
	return os.Stdout
}

func (c Config) resource() *resource.Resource {
	return resource.NewWithAttributes("",
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.ServiceVersion),
		attribute.String("deployment.environment", c.Environment),
	)
}

func newSpanExporter(ctx context.Context, c Config) (sdktrace.SpanExporter, error) {
	switch c.TraceExporter {
	case ExporterOTLP:
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(c.OTLPEndpoint)}
		if c.OTLPInsecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		// Connects lazily: an unreachable collector only fails exports.
		return otlptracegrpc.New(ctx, opts...)
	case ExporterStdout:
		return stdouttrace.New(stdouttrace.WithWriter(c.writer()), stdouttrace.WithPrettyPrint())
	default:
		return nil, ErrUnknownExporter
	}
}

// metricsHandler holds the promhttp handler once the prometheus reader is
// installed.
var metricsHandler atomic.Pointer[http.Handler]

// MetricsHandler returns the /metrics handler when the prometheus exporter
// is active, nil otherwise.
func MetricsHandler() http.Handler {
	if h := metricsHandler.Load(); h != nil {
		return *h
	}
	return nil
}

func newMetricReader(c Config) (sdkmetric.Reader, error) {
	switch c.MetricExporter {
	case ExporterPrometheus:
		reader, err := promexporter.New()
		if err != nil {
			return nil, err
		}
		h := promhttp.Handler()
		metricsHandler.Store(&h)
		return reader, nil
	case ExporterStdout:
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(c.writer()), stdoutmetric.WithPrettyPrint())
		if err != nil {
			return nil, err
		}
		return sdkmetric.NewPeriodicReader(exp), nil
	default:
		return nil, ErrUnknownExporter
	}
}

func getEnvOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
