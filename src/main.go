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

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"todoservice/src/config"
	"todoservice/src/database"
	"todoservice/src/logging"
	"todoservice/src/repository"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "todo api: %v\n", err)
		os.Exit(1)
	}
}

// run refuses to serve traffic if configuration, the store or the schema
// is not usable.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Setup Graceful Shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := logging.SetupOTelSDK(ctx, logging.Options{
		ServiceName:   "todo-api",
		Environment:   cfg.Environment,
		StdoutTraces:  cfg.StdoutTraces,
		StdoutMetrics: cfg.StdoutMetrics,
	})
	if err != nil {
		return fmt.Errorf("failed to setup OTel SDK: %w", err)
	}
	defer func() {
		// Flush spans and logs before exiting
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "OTel shutdown error: %v\n", err)
		}
	}()

	if err := logging.InitializeCounters(); err != nil {
		return err
	}

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logging.Log(err.Error(), slog.LevelError)
		return err
	}
	defer db.Close()

	exec := database.NewExecutor(db)

	if cfg.SkipSchemaInit {
		logging.Log("TEST_ENV is set, skipping schema initialization", slog.LevelInfo)
	} else if err := database.InitializeSchema(ctx, exec); err != nil {
		logging.Log(err.Error(), slog.LevelError)
		return err
	}

	srv := NewAPIServer(repository.NewTodoRepository(exec), exec, logging.OTelReporter{})
	return StartAPIServer(ctx, ":"+cfg.APIPort, srv.Routes(cfg.AllowedOrigins), cfg.ShutdownTimeout)
}
