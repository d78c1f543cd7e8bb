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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"todoservice/src/logging"
	"todoservice/src/model"
	"todoservice/src/validation"
)

const maxBodyBytes = 1 << 20

// TodoStore is implemented by repository.TodoRepository.
type TodoStore interface {
	List(ctx context.Context) ([]model.Task, error)
	Create(ctx context.Context, input model.TaskInput) (model.CreatedTask, error)
	Update(ctx context.Context, id int64, input model.TaskInput) (model.Task, error)
}

type HealthChecker interface {
	Ping(ctx context.Context) error
}

// APIServer holds dependencies for the HTTP handlers
type APIServer struct {
	todos    TodoStore
	health   HealthChecker
	reporter logging.Reporter
}

func NewAPIServer(todos TodoStore, health HealthChecker, reporter logging.Reporter) *APIServer {
	return &APIServer{
		todos:    todos,
		health:   health,
		reporter: reporter,
	}
}

type errorResponse struct {
	Detail any `json:"detail"`
}

func (s *APIServer) helloHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Hello, World!"})
}

func (s *APIServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.health.Ping(r.Context()); err != nil {
		logging.LogContext(r.Context(), slog.LevelWarn, "health check failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *APIServer) listTodosHandler(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.todos.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	logging.UpdateSpanValue(r.Context(), "todos.count", float64(len(tasks)))
	writeJSON(w, http.StatusOK, tasks)
}

func (s *APIServer) createTodoHandler(w http.ResponseWriter, r *http.Request) {
	input, err := decodeTask(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	created, err := s.todos.Create(r.Context(), input)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	logging.LogContext(r.Context(), slog.LevelInfo, "task created", slog.Int64("task_id", created.ID))
	writeJSON(w, http.StatusOK, created)
}

func (s *APIServer) updateTodoHandler(w http.ResponseWriter, r *http.Request) {
	var violations []string

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		violations = append(violations, "id: must be an integer")
	}

	input, err := decodeTask(w, r)
	if err != nil {
		var vErr *model.ValidationError
		if !errors.As(err, &vErr) {
			s.writeError(w, r, err)
			return
		}
		violations = append(violations, vErr.Violations...)
	}
	if len(violations) > 0 {
		s.writeError(w, r, &model.ValidationError{Violations: violations})
		return
	}

	task, err := s.todos.Update(r.Context(), id, input)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	logging.LogContext(r.Context(), slog.LevelInfo, "task updated", slog.Int64("task_id", task.ID))
	writeJSON(w, http.StatusOK, task)
}

// decodeTask reads and validates a task body. Every failure is a
// ValidationError so it never reaches the store.
func decodeTask(w http.ResponseWriter, r *http.Request) (model.TaskInput, error) {
	var req model.TaskRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return model.TaskInput{}, &model.ValidationError{Violations: []string{"body: field required"}}
		}
		return model.TaskInput{}, &model.ValidationError{Violations: []string{fmt.Sprintf("body: invalid JSON: %v", err)}}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return model.TaskInput{}, &model.ValidationError{Violations: []string{"body: unexpected data after JSON object"}}
	}
	return validation.ValidateTask(req)
}

// writeError maps the error taxonomy onto HTTP statuses. Every error is
// reported; only store failures get the generic message.
func (s *APIServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		vErr  *model.ValidationError
		nfErr *model.NotFoundError
	)

	s.reporter.CaptureError(r.Context(), err)

	switch {
	case errors.As(err, &vErr):
		logging.AddToCounter(r.Context(), logging.ValidationFailuresCounter, 1)
		logging.LogContext(r.Context(), slog.LevelWarn, "rejected task payload", slog.Any("violations", vErr.Violations))
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: vErr.Violations})
	case errors.As(err, &nfErr):
		logging.LogContext(r.Context(), slog.LevelWarn, "task not found", slog.Int64("task_id", nfErr.ID))
		writeJSON(w, http.StatusNotFound, errorResponse{Detail: "Task not found"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: "Unexpected server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
