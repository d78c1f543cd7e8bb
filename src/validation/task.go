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

package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"todoservice/src/model"
)

const (
	MinDescriptionLength = 1
	MaxDescriptionLength = 200
)

// ForbiddenCharacters may not appear anywhere in a task description.
const ForbiddenCharacters = "$@#%"

// ValidateTask checks a raw task body and returns the payload that may be
// written. Every violated constraint is reported, never just the first.
func ValidateTask(req model.TaskRequest) (model.TaskInput, error) {
	var violations []string

	if req.Todo == nil {
		violations = append(violations, "todo: field required")
	} else {
		desc := *req.Todo
		length := utf8.RuneCountInString(desc)
		switch {
		case length < MinDescriptionLength:
			violations = append(violations, "todo: required field empty")
		case length > MaxDescriptionLength:
			violations = append(violations, fmt.Sprintf("todo: must be at most %d characters", MaxDescriptionLength))
		}
		if !utf8.ValidString(desc) {
			violations = append(violations, "todo: must be valid UTF-8")
		}
		// PostgreSQL text columns cannot hold NUL.
		if strings.ContainsRune(desc, 0) {
			violations = append(violations, "todo: must not contain NUL characters")
		}
		for _, c := range ForbiddenCharacters {
			if strings.ContainsRune(desc, c) {
				violations = append(violations, fmt.Sprintf("todo: contains forbidden character '%c'", c))
			}
		}
	}

	if len(violations) > 0 {
		return model.TaskInput{}, &model.ValidationError{Violations: violations}
	}

	input := model.TaskInput{Description: *req.Todo}
	if req.Completed != nil {
		input.Completed = *req.Completed
	}
	return input, nil
}
