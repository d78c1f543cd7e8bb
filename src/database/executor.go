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

package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"todoservice/src/logging"
	"todoservice/src/model"
)

// RowScanner is the part of *sql.Rows a scan callback may touch.
type RowScanner interface {
	Scan(dest ...any) error
}

type Reader interface {
	Read(ctx context.Context, query string, args []any, scan func(RowScanner) error) error
}

type Writer interface {
	Write(ctx context.Context, query string, args ...any) (int64, error)
}

// Executor runs one parameterized statement per call on a connection that
// is acquired for that call and released before it returns.
type Executor struct {
	db *sql.DB
}

func NewExecutor(db *sql.DB) *Executor {
	return &Executor{db: db}
}

// Read runs a row-returning statement and hands each row to scan, in store
// order. Rows and the connection are released on every path.
func (e *Executor) Read(ctx context.Context, query string, args []any, scan func(RowScanner) error) (err error) {
	ctx, span := logging.Tracer().Start(ctx, "db.read", trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("db.statement", query)))
	defer func() { endSpan(span, err) }()

	conn, err := e.acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return queryError(ctx, query, err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		if err := scan(rows); err != nil {
			return queryError(ctx, query, fmt.Errorf("scan row: %w", err))
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return queryError(ctx, query, err)
	}

	span.SetAttributes(attribute.Int("db.rows", count))
	return nil
}

// Write runs a mutating statement inside its own transaction and commits
// before the connection is released. It returns the rows affected.
func (e *Executor) Write(ctx context.Context, query string, args ...any) (affected int64, err error) {
	ctx, span := logging.Tracer().Start(ctx, "db.write", trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("db.statement", query)))
	defer func() { endSpan(span, err) }()

	conn, err := e.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, queryError(ctx, query, fmt.Errorf("begin: %w", err))
	}
	// No-op once committed.
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, queryError(ctx, query, err)
	}

	affected, err = res.RowsAffected()
	if err != nil {
		return 0, queryError(ctx, query, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, queryError(ctx, query, fmt.Errorf("commit: %w", err))
	}

	span.SetAttributes(attribute.Int64("db.rows_affected", affected))
	return affected, nil
}

// Ping checks that a connection can be acquired and answers.
func (e *Executor) Ping(ctx context.Context) error {
	if err := e.db.PingContext(ctx); err != nil {
		return &model.ConnectionError{Err: err}
	}
	return nil
}

func (e *Executor) acquire(ctx context.Context) (*sql.Conn, error) {
	conn, err := e.db.Conn(ctx)
	if err != nil {
		logging.LogContext(ctx, slog.LevelError, "failed to acquire database connection", slog.String("error", err.Error()))
		return nil, &model.ConnectionError{Err: err}
	}
	return conn, nil
}

func queryError(ctx context.Context, query string, err error) error {
	logging.LogContext(ctx, slog.LevelError, "statement failed",
		slog.String("query", query),
		slog.String("error", err.Error()))
	return &model.QueryError{Query: query, Err: err}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
