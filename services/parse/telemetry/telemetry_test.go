// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv("OTEL_TRACES_EXPORTER", "")
	t.Setenv("OTEL_METRICS_EXPORTER", "")
	cfg := DefaultConfig()

	assert.Equal(t, "linkprep", cfg.ServiceName)
	assert.Equal(t, ExporterNone, cfg.TraceExporter)
	assert.Equal(t, ExporterPrometheus, cfg.MetricExporter)
	assert.Equal(t, "localhost:4317", cfg.OTLPEndpoint)
}

func TestDefaultConfig_Env(t *testing.T) {
	t.Setenv("OTEL_TRACES_EXPORTER", "stdout")
	t.Setenv("LINKPREP_ENV", "production")

	cfg := DefaultConfig()
	assert.Equal(t, ExporterStdout, cfg.TraceExporter)
	assert.Equal(t, "production", cfg.Environment)
}

func TestInit_NilContext(t *testing.T) {
	//nolint:staticcheck // nil context is the case under test
	_, err := Init(nil, Config{})
	assert.ErrorIs(t, err, ErrNilContext)
}

func TestInit_None(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{TraceExporter: ExporterNone})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInit_UnknownExporter(t *testing.T) {
	_, err := Init(context.Background(), Config{TraceExporter: "jaeger-thrift"})
	assert.ErrorIs(t, err, ErrUnknownExporter)

	_, err = Init(context.Background(), Config{MetricExporter: "statsd"})
	assert.ErrorIs(t, err, ErrUnknownExporter)
}

func TestInit_Stdout(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := Init(context.Background(), Config{
		ServiceName:    "linkprep-test",
		TraceExporter:  ExporterStdout,
		MetricExporter: ExporterStdout,
		Writer:         &buf,
	})
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "prepare.Prepare")
	span.End()
	counter, err := otel.Meter("test").Int64Counter("linkprep_test_total")
	require.NoError(t, err)
	counter.Add(context.Background(), 1)

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "prepare.Prepare")
	assert.Contains(t, buf.String(), "linkprep_test_total")
}

func TestInit_OTLP(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{
		TraceExporter: ExporterOTLP,
		OTLPEndpoint:  "127.0.0.1:1",
		OTLPInsecure:  true,
	})
	require.NoError(t, err, "the gRPC exporter connects lazily")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}

func TestInit_Prometheus(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{MetricExporter: ExporterPrometheus})
	require.NoError(t, err)
	defer func() { _ = shutdown(context.Background()) }()

	handler := MetricsHandler()
	require.NotNil(t, handler)

	counter, err := otel.Meter("test").Int64Counter("linkprep_scrape_probe")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), "linkprep_scrape_probe")
}

func TestTraceHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewTraceHandler(slog.NewJSONHandler(&buf, nil))).With("service", "linkprep")

	logger.InfoContext(context.Background(), "no span")
	assert.NotContains(t, buf.String(), "trace_id")
	buf.Reset()

	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(tracetest.NewSpanRecorder()))
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	logger.WithGroup("g").InfoContext(ctx, "with span", "k", "v")
	assert.Contains(t, buf.String(), TraceID(ctx))
	assert.Contains(t, buf.String(), `"service":"linkprep"`)
	assert.NotEmpty(t, TraceID(ctx))
	assert.Empty(t, TraceID(context.Background()))
}
