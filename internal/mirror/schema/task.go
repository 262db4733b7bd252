package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxTitleLength is the longest title the mirror stores, in characters.
const MaxTitleLength = 500

// ErrNotFound is returned when a task does not exist in the mirror or upstream.
// It is a value, not a failure: callers map it to 404 and never log it as an error.
var ErrNotFound = errors.New("task not found")

var validate = validator.New()

// Task is the single record mirrored from the remote todo API.
type Task struct {
	ID        int    `json:"id" validate:"gt=0"`
	UserID    int    `json:"userId" validate:"gte=0"`
	Title     string `json:"title" validate:"max=500"`
	Completed bool   `json:"completed"`
}

// Validate checks if the Task has valid field values.
func (t *Task) Validate() error {
	if err := validate.Struct(t); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid task %d: field %s failed %q (value %v)", t.ID, fe.Field(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid task %d: %w", t.ID, err)
	}
	return nil
}

// DecodeTasks parses a JSON array, a single JSON object, or JSON null into tasks.
//
// Every decoded record is validated; the first invalid record fails the whole
// decode so that a bad payload never reaches the mirror. A null payload yields
// an empty slice.
func DecodeTasks(data []byte) ([]Task, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("failed to decode tasks: empty body")
	}

	var tasks []Task
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &tasks); err != nil {
			return nil, fmt.Errorf("failed to decode task list: %w", err)
		}
	case '{':
		var task Task
		if err := json.Unmarshal(trimmed, &task); err != nil {
			return nil, fmt.Errorf("failed to decode task: %w", err)
		}
		tasks = []Task{task}
	default:
		if bytes.Equal(trimmed, []byte("null")) {
			return []Task{}, nil
		}
		return nil, fmt.Errorf("failed to decode tasks: unexpected JSON starting with %q", trimmed[0])
	}

	for i := range tasks {
		if err := tasks[i].Validate(); err != nil {
			return nil, err
		}
	}
	if tasks == nil {
		tasks = []Task{}
	}
	return tasks, nil
}

// DecodeTask parses a single JSON object into a validated task.
func DecodeTask(data []byte) (*Task, error) {
	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("failed to decode task: %w", err)
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}
	return &task, nil
}

// TitleContains reports whether title contains filter, ignoring case.
// An empty filter matches every title.
func TitleContains(title, filter string) bool {
	if filter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(title), strings.ToLower(filter))
}

// FilterByTitle returns the tasks whose title contains filter, ignoring case.
// The input slice is not modified.
func FilterByTitle(tasks []Task, filter string) []Task {
	if filter == "" {
		return tasks
	}
	matched := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if TitleContains(t.Title, filter) {
			matched = append(matched, t)
		}
	}
	return matched
}

// IDs returns the identifiers of tasks in order.
func IDs(tasks []Task) []int {
	ids := make([]int, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}
