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
	"fmt"
	"log/slog"

	"todoservice/src/logging"
)

const createTodosTable = `
	CREATE TABLE IF NOT EXISTS todos (
		id SERIAL PRIMARY KEY,
		todo TEXT NOT NULL,
		completed BOOLEAN NOT NULL DEFAULT FALSE
	)`

// InitializeSchema creates the todos table if it does not exist yet.
// Callers treat a failure as fatal.
func InitializeSchema(ctx context.Context, w Writer) error {
	if _, err := w.Write(ctx, createTodosTable); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}
	logging.Log("Database schema ready", slog.LevelInfo)
	return nil
}
