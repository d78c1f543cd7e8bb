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

package model

// Task is a persisted to-do record. Description is stored in the "todo" column.
type Task struct {
	ID          int64  `json:"id"`
	Description string `json:"todo"`
	Completed   bool   `json:"completed"`
}

// TaskRequest is the raw inbound body for create and update.
// Pointers distinguish an absent field from its zero value.
type TaskRequest struct {
	Todo      *string `json:"todo"`
	Completed *bool   `json:"completed"`
}

// TaskInput is a validated payload, produced only by the validator.
type TaskInput struct {
	Description string
	Completed   bool
}

// CreatedTask is the create response body.
type CreatedTask struct {
	ID          int64  `json:"id"`
	Description string `json:"todo"`
}
