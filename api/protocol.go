package api

import (
	"time"

	"kanban-api/domain"
)

const requestBodyMaxSize = 64 * 1024 // 64 KiB

const (
	// HeaderConnectionID names the realtime connection that issued the
	// mutation; the hub skips it during fan-out so the origin never hears
	// its own echo.
	HeaderConnectionID = "X-Connection-ID"

	// HeaderIdempotencyKey lets clients retry a mutation safely. Replays
	// within the deduper TTL are rejected with 409.
	HeaderIdempotencyKey = "Idempotency-Key"
)

type createTaskRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Status      domain.Status   `json:"status"`
	Board       string          `json:"board"`
	AssignedTo  string          `json:"assignedTo"`
	Priority    domain.Priority `json:"priority"`
	DueDate     *time.Time      `json:"dueDate"`
	Tags        []string        `json:"tags"`
}

// updateTaskRequest is a partial update: absent fields stay untouched.
// A present "tags" replaces the whole tag list; clearDueDate wins over dueDate.
type updateTaskRequest struct {
	Title        *string          `json:"title"`
	Description  *string          `json:"description"`
	Status       *domain.Status   `json:"status"`
	AssignedTo   *string          `json:"assignedTo"`
	Priority     *domain.Priority `json:"priority"`
	DueDate      *time.Time       `json:"dueDate"`
	ClearDueDate bool             `json:"clearDueDate"`
	Tags         []string         `json:"tags"`
	Position     *int             `json:"position"`
}

func (r updateTaskRequest) patch() domain.TaskPatch {
	return domain.TaskPatch{
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
		AssignedTo:  r.AssignedTo,
		Priority:    r.Priority,
		DueDate:     r.DueDate,
		ClearDue:    r.ClearDueDate,
		Tags:        r.Tags,
		SetTags:     r.Tags != nil,
		Position:    r.Position,
	}
}

type moveTaskRequest struct {
	Status   domain.Status `json:"status"`
	Position int           `json:"position"`
}

type boardRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	IsPublic    bool   `json:"isPublic"`
}

type memberRequest struct {
	UserID string `json:"userId"`
}
