// Copyright (c) 2026 Khaled Abbas
//
// This source code is licensed under the Business Source License 1.1.
//
// Change Date: 4 years after the first public release of this version.
// Change License: MIT
//
// On the Change Date, this version of the code automatically converts
// to the MIT License. Prior to that date, use is subject to the
// Additional Use Grant. See the LICENSE file for details.

package logging

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "go.opentelemetry.io/otel/todoservice/api"

// Counter names used across the service.
const (
	RequestsCounter           = "todo_requests_total"
	ValidationFailuresCounter = "todo_validation_failures_total"
	StoreErrorsCounter        = "todo_store_errors_total"
)

var (
	meter  = otel.Meter(instrumentationName)
	logger = otelslog.NewLogger(instrumentationName)
	tracer = otel.Tracer(instrumentationName)

	countersMu sync.RWMutex
	counters   = map[string]metric.Float64Counter{}
)

type requestIDKey struct{}

func Log(content string, level slog.Level) {
	logger.Log(context.Background(), level, content)
}

// LogContext logs with the request id carried by ctx, if any.
func LogContext(ctx context.Context, level slog.Level, msg string, attrs ...any) {
	if id := RequestID(ctx); id != "" {
		attrs = append(attrs, slog.String("request_id", id))
	}
	logger.Log(ctx, level, msg, attrs...)
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Tracer returns the service tracer.
func Tracer() trace.Tracer {
	return tracer
}

func InitializeFloatCounter(name, description, unit string) (metric.Float64Counter, error) {
	counter, err := meter.Float64Counter(name,
		metric.WithDescription(description),
		metric.WithUnit(unit))
	if err != nil {
		Log("Failed to create metric: "+err.Error(), slog.LevelError)
		return nil, err
	}
	countersMu.Lock()
	counters[name] = counter
	countersMu.Unlock()
	return counter, nil
}

// AddToCounter is a no-op for counters that were never initialized.
func AddToCounter(ctx context.Context, name string, value float64, attrs ...attribute.KeyValue) {
	countersMu.RLock()
	counter, ok := counters[name]
	countersMu.RUnlock()
	if !ok {
		return
	}
	counter.Add(ctx, value, metric.WithAttributes(attrs...))
}

// InitializeCounters registers every counter the service reports.
func InitializeCounters() error {
	if _, err := InitializeFloatCounter(RequestsCounter, "Total number of API requests", "Request"); err != nil {
		return err
	}
	if _, err := InitializeFloatCounter(ValidationFailuresCounter, "Number of rejected task payloads", "Request"); err != nil {
		return err
	}
	if _, err := InitializeFloatCounter(StoreErrorsCounter, "Number of failed store operations", "Operation"); err != nil {
		return err
	}
	return nil
}

func UpdateSpanValue(ctx context.Context, key string, value float64) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.Float64(key, value))
}
