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
	"errors"
	"log/slog"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"todoservice/src/model"
)

// Reporter receives every error caught at the handler boundary.
type Reporter interface {
	CaptureError(ctx context.Context, err error)
}

// OTelReporter records errors on the active span and the log stream.
// Client errors (validation, not found) are logged at WARN and leave the
// span status alone; anything else marks the span failed, is logged at
// ERROR and counts as a store error.
type OTelReporter struct{}

func (OTelReporter) CaptureError(ctx context.Context, err error) {
	if err == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	span.RecordError(err)

	attrs := []any{slog.String("error", err.Error())}
	if isClientError(err) {
		LogContext(ctx, slog.LevelWarn, "captured client error", attrs...)
		return
	}

	span.SetStatus(codes.Error, err.Error())
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		attrs = append(attrs,
			slog.String("sqlstate", string(pqErr.Code)),
			slog.String("sqlstate_class", pqErr.Code.Class().Name()),
		)
		span.SetAttributes(attribute.String("db.response.status_code", string(pqErr.Code)))
	}
	LogContext(ctx, slog.LevelError, "captured error", attrs...)

	AddToCounter(ctx, StoreErrorsCounter, 1)
}

func isClientError(err error) bool {
	var (
		vErr  *model.ValidationError
		nfErr *model.NotFoundError
	)
	return errors.As(err, &vErr) || errors.As(err, &nfErr)
}
