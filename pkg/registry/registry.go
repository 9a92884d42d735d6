// Package registry reads the activity registry that documents every job
// type the worker manager serves.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"clarity-workers/internal/common/validation"
)

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*ActivityRegistry, error) {
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse activity registry: %w", err)
	}
	return &reg, nil
}

// Save writes the registry as indented JSON, stamping LastUpdated.
func (r *ActivityRegistry) Save(path string, now time.Time) error {
	r.LastUpdated = now.Format(time.RFC3339)
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

// Upsert replaces the activity with the same task type or appends a. It
// reports whether a was new.
func (r *ActivityRegistry) Upsert(a Activity) bool {
	for i := range r.Activities {
		if r.Activities[i].TaskType == a.TaskType {
			r.Activities[i] = a
			return false
		}
	}
	r.Activities = append(r.Activities, a)
	return true
}

// SetField updates one scalar field of the activity with the given id.
func (r *ActivityRegistry) SetField(id, field, value string) error {
	for i := range r.Activities {
		a := &r.Activities[i]
		if a.ID != id {
			continue
		}
		switch field {
		case "status":
			a.ImplementationStatus = value
		case "version":
			a.Version = value
		case "displayName":
			a.DisplayName = value
		case "description":
			a.Description = value
		case "category":
			a.Category = value
		case "timeout":
			a.Timeout = value
		case "retries":
			n, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("invalid retries value: %w", err)
			}
			a.Retries = n
		default:
			return fmt.Errorf("unknown field: %s", field)
		}
		return nil
	}
	return fmt.Errorf("activity with ID %s not found", id)
}

// Find returns the activity bound to taskType.
func (r *ActivityRegistry) Find(taskType string) (Activity, bool) {
	for _, a := range r.Activities {
		if a.TaskType == taskType {
			return a, true
		}
	}
	return Activity{}, false
}

// TaskTypes lists the task types of activities that are not planned.
func (r *ActivityRegistry) TaskTypes() []string {
	var out []string
	for _, a := range r.Activities {
		if a.ImplementationStatus != StatusPlanned {
			out = append(out, a.TaskType)
		}
	}
	return out
}

// Validate checks naming, uniqueness, timeouts and that every declared
// input schema is itself a usable JSON schema.
func (r *ActivityRegistry) Validate() error {
	var problems []string
	ids := map[string]bool{}
	taskTypes := map[string]bool{}

	for i, a := range r.Activities {
		where := fmt.Sprintf("activities[%d] (%s)", i, a.ID)
		if err := validation.ValidateActivityNaming(a.ID); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", where, err))
		}
		if ids[a.ID] {
			problems = append(problems, where+": duplicate id")
		}
		ids[a.ID] = true

		if a.TaskType == "" {
			problems = append(problems, where+": taskType is required")
		} else if taskTypes[a.TaskType] {
			problems = append(problems, where+": duplicate taskType "+a.TaskType)
		}
		taskTypes[a.TaskType] = true

		if a.Timeout != "" {
			if _, err := a.TimeoutDuration(); err != nil {
				problems = append(problems, fmt.Sprintf("%s: %v", where, err))
			}
		}
		if len(a.InputSchema) > 0 {
			if _, err := validation.Validate(a.InputSchema, map[string]interface{}{}); err != nil {
				problems = append(problems, fmt.Sprintf("%s: inputSchema: %v", where, err))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("activity registry invalid:\n  %s", strings.Join(problems, "\n  "))
	}
	return nil
}

func (a Activity) TimeoutDuration() (time.Duration, error) {
	d, err := time.ParseDuration(a.Timeout)
	if err != nil {
		return 0, fmt.Errorf("timeout %q: %w", a.Timeout, err)
	}
	return d, nil
}

// ValidateInput checks job variables against the activity's input schema.
// Activities without a schema accept anything.
func (a Activity) ValidateInput(input map[string]interface{}) *validation.ValidationResult {
	if len(a.InputSchema) == 0 {
		return &validation.ValidationResult{Valid: true}
	}
	return validation.ValidateInput(input, a.InputSchema)
}
