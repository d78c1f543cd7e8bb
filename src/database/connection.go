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

	_ "github.com/lib/pq"

	"todoservice/src/config"
	"todoservice/src/logging"
	"todoservice/src/model"
)

// Connect opens the store and verifies it answers. No retries: an
// unreachable store is reported immediately as a ConnectionError.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, &model.ConnectionError{Err: fmt.Errorf("open: %w", err)}
	}

	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, &model.ConnectionError{Err: fmt.Errorf("ping %s:%d: %w", cfg.Host, cfg.Port, err)}
	}

	logging.Log(fmt.Sprintf("Connected to database %s at %s:%d", cfg.Name, cfg.Host, cfg.Port), slog.LevelInfo)
	return db, nil
}
