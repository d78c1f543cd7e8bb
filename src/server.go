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
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"

	"todoservice/src/logging"
)

const requestIDHeader = "X-Request-ID"

// Routes builds the router with request id, recovery and CORS middleware.
func (s *APIServer) Routes(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestIDMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(allowedOrigins))

	r.Get("/", s.helloHandler)
	r.Get("/healthz", s.healthHandler)
	r.Get("/api/todos", s.listTodosHandler)
	r.Post("/api/todos", s.createTodoHandler)
	r.Put("/api/todos/{id}", s.updateTodoHandler)

	return r
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		ctx := logging.WithRequestID(r.Context(), id)
		logging.AddToCounter(ctx, logging.RequestsCounter, 1, attribute.String("http.method", r.Method))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// corsMiddleware allows the configured origins ("*" allows any), every
// method and header, and credentials. A wildcard goes through
// AllowOriginFunc so the request origin is echoed instead of "*".
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedMethods: []string{
			http.MethodDelete, http.MethodGet, http.MethodHead, http.MethodOptions,
			http.MethodPatch, http.MethodPost, http.MethodPut,
		},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           600,
	}

	origins := make([]string, 0, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			opts.AllowOriginFunc = func(*http.Request, string) bool { return true }
			origins = nil
			break
		}
		origins = append(origins, strings.TrimRight(o, "/"))
	}
	opts.AllowedOrigins = origins
	// cors treats an empty origin list as "allow all".
	if len(origins) == 0 && opts.AllowOriginFunc == nil {
		opts.AllowOriginFunc = func(*http.Request, string) bool { return false }
	}

	return cors.Handler(opts)
}

// StartAPIServer serves handler on addr until ctx is cancelled, then shuts
// down gracefully within shutdownTimeout.
func StartAPIServer(ctx context.Context, addr string, handler http.Handler, shutdownTimeout time.Duration) error {
	otelHandler := otelhttp.NewHandler(handler, "todo-api")

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           otelHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		fmt.Printf("API Server starting on %s\n", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server startup failed: %w", err)
	case <-ctx.Done():
		logging.Log("Shutdown signal received, closing server...", slog.LevelInfo)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		logging.Log("Server exited cleanly", slog.LevelInfo)
	}

	return nil
}
