package domain

import "time"

// Status identifies the board column a task lives in.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
)

// Statuses lists the known columns in board order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusDone}

// Valid reports whether s names a known column.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Priority marks how urgent a task is.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

const (
	maxTitleLen       = 200
	maxDescriptionLen = 1000
)

// Task is a single unit of work on a board. Position is owned by the store:
// within one (board, status) column live tasks always occupy 0..count-1.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      Status     `json:"status"`
	Board       string     `json:"board"`
	AssignedTo  string     `json:"assignedTo,omitempty"`
	CreatedBy   string     `json:"createdBy"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Tags        []string   `json:"tags"`
	Position    int        `json:"position"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Validate checks the field constraints for a task about to be persisted.
func (t *Task) Validate() error {
	if t.Title == "" {
		return ValidationError{Field: "title", Message: "required"}
	}
	if len(t.Title) > maxTitleLen {
		return ValidationError{Field: "title", Message: "must be at most 200 characters"}
	}
	if len(t.Description) > maxDescriptionLen {
		return ValidationError{Field: "description", Message: "must be at most 1000 characters"}
	}
	if t.Board == "" {
		return ValidationError{Field: "board", Message: "required"}
	}
	if !t.Status.Valid() {
		return ValidationError{Field: "status", Message: "must be one of todo, in-progress, done"}
	}
	if !t.Priority.Valid() {
		return ValidationError{Field: "priority", Message: "must be one of low, medium, high"}
	}
	if t.Position < 0 {
		return ValidationError{Field: "position", Message: "must not be negative"}
	}
	return nil
}

// TaskFilter narrows a board task listing. Zero values mean "no filter".
type TaskFilter struct {
	Status     Status
	AssignedTo string
	Search     string
}

// TaskPatch carries a partial update. Nil fields are left untouched.
// Board and CreatedBy are immutable and deliberately absent.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *Status
	AssignedTo  *string
	Priority    *Priority
	DueDate     *time.Time
	ClearDue    bool
	Tags        []string
	SetTags     bool
	Position    *int
}

// Validate checks the provided fields of a patch.
func (p TaskPatch) Validate() error {
	if p.Title != nil {
		if *p.Title == "" {
			return ValidationError{Field: "title", Message: "cannot be empty"}
		}
		if len(*p.Title) > maxTitleLen {
			return ValidationError{Field: "title", Message: "must be at most 200 characters"}
		}
	}
	if p.Description != nil && len(*p.Description) > maxDescriptionLen {
		return ValidationError{Field: "description", Message: "must be at most 1000 characters"}
	}
	if p.Status != nil && !p.Status.Valid() {
		return ValidationError{Field: "status", Message: "must be one of todo, in-progress, done"}
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return ValidationError{Field: "priority", Message: "must be one of low, medium, high"}
	}
	if p.Position != nil && *p.Position < 0 {
		return ValidationError{Field: "position", Message: "must not be negative"}
	}
	return nil
}

// Apply merges the non-positional fields of the patch into t.
// Status and Position are handled by the reconciler, not here.
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.AssignedTo != nil {
		t.AssignedTo = *p.AssignedTo
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.ClearDue {
		t.DueDate = nil
	} else if p.DueDate != nil {
		t.DueDate = p.DueDate
	}
	if p.SetTags {
		t.Tags = p.Tags
	}
}
