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

package repository

import (
	"context"
	"fmt"
	"math"

	"todoservice/src/database"
	"todoservice/src/model"
)

const (
	selectTodos    = `SELECT id, todo, completed FROM todos ORDER BY id`
	selectTodoByID = `SELECT id, todo, completed FROM todos WHERE id = $1`
	insertTodo     = `INSERT INTO todos (todo, completed) VALUES ($1, $2) RETURNING id`
	updateTodo     = `UPDATE todos SET todo = $1, completed = $2 WHERE id = $3`
)

// Executor is the subset of database.Executor the repository needs.
type Executor interface {
	database.Reader
	database.Writer
}

// TodoRepository maps todos rows to model.Task values.
type TodoRepository struct {
	exec Executor
}

func NewTodoRepository(exec Executor) *TodoRepository {
	return &TodoRepository{exec: exec}
}

// List returns every stored task. The result is never nil.
func (r *TodoRepository) List(ctx context.Context) ([]model.Task, error) {
	tasks := []model.Task{}
	err := r.exec.Read(ctx, selectTodos, nil, func(row database.RowScanner) error {
		task, err := scanTask(row)
		if err != nil {
			return err
		}
		tasks = append(tasks, task)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// Create inserts a task and returns the id the store assigned.
func (r *TodoRepository) Create(ctx context.Context, input model.TaskInput) (model.CreatedTask, error) {
	var id int64
	found := false
	err := r.exec.Read(ctx, insertTodo, []any{input.Description, input.Completed}, func(row database.RowScanner) error {
		found = true
		return row.Scan(&id)
	})
	if err != nil {
		return model.CreatedTask{}, err
	}
	if !found {
		return model.CreatedTask{}, &model.QueryError{Query: insertTodo, Err: fmt.Errorf("insert returned no id")}
	}
	return model.CreatedTask{ID: id, Description: input.Description}, nil
}

// Update overwrites a task and reads it back. A missing row yields
// NotFoundError and nothing is inserted.
func (r *TodoRepository) Update(ctx context.Context, id int64, input model.TaskInput) (model.Task, error) {
	// id is a serial (int4) column, so nothing outside that range can match.
	if id < 1 || id > math.MaxInt32 {
		return model.Task{}, &model.NotFoundError{ID: id}
	}

	if _, err := r.exec.Write(ctx, updateTodo, input.Description, input.Completed, id); err != nil {
		return model.Task{}, err
	}

	task, found, err := r.get(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	if !found {
		return model.Task{}, &model.NotFoundError{ID: id}
	}
	return task, nil
}

func (r *TodoRepository) get(ctx context.Context, id int64) (model.Task, bool, error) {
	var (
		task  model.Task
		found bool
	)
	err := r.exec.Read(ctx, selectTodoByID, []any{id}, func(row database.RowScanner) error {
		t, err := scanTask(row)
		if err != nil {
			return err
		}
		task, found = t, true
		return nil
	})
	return task, found, err
}

func scanTask(row database.RowScanner) (model.Task, error) {
	var task model.Task
	if err := row.Scan(&task.ID, &task.Description, &task.Completed); err != nil {
		return model.Task{}, err
	}
	return task, nil
}
