package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"kanban-api/domain"
)

// Storage abstracts persistence for handlers.
type Storage interface {
	CreateTask(ctx context.Context, t *domain.Task) error
	GetTask(ctx context.Context, id string) (*domain.Task, error)
	ListBoardTasks(ctx context.Context, boardID string, filter domain.TaskFilter) ([]domain.Task, error)
	ListAssignedTasks(ctx context.Context, userID string) ([]domain.Task, error)
	MoveTask(ctx context.Context, id string, target domain.Status, position int) (*domain.Task, error)
	UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error)
	DeleteTask(ctx context.Context, id string) (*domain.Task, error)

	CreateBoard(ctx context.Context, b *domain.Board) error
	GetBoard(ctx context.Context, id string) (*domain.Board, error)
	ListBoards(ctx context.Context, userID string) ([]domain.Board, error)
	UpdateBoard(ctx context.Context, b *domain.Board) error
	DeleteBoard(ctx context.Context, id string) error
}

// Authenticator is implemented by types able to extract user IDs from headers.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}

// Access resolves board rights before a handler touches the store. Mutations
// and reads always check against the task's board, never the task itself.
type Access interface {
	Authorize(ctx context.Context, boardID, actor string) (*domain.Board, error)
}

// Publisher fans one board event out to channel subscribers. excludeConnID
// names the mutation's own realtime connection, which must not hear its echo.
type Publisher interface {
	Publish(ev domain.Event, excludeConnID string)
}

// Deduper prevents double-application of retried mutations.
type Deduper interface {
	// Add records the idempotency key and returns true if it was newly added.
	Add(ctx context.Context, userID, key string) (bool, error)
	// Remove deletes a previously added key, used when the mutation fails so
	// the client may retry with the same key.
	Remove(ctx context.Context, userID, key string) error
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// writeError maps domain errors onto HTTP responses.
func writeError(c echo.Context, err error) error {
	var verr domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: verr.Message, Field: verr.Field})
	case errors.Is(err, domain.ErrForbidden):
		return c.JSON(http.StatusForbidden, errorResponse{Error: "access denied"})
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, domain.ErrConflict):
		return c.JSON(http.StatusConflict, errorResponse{Error: "conflict, retry against fresh state"})
	case domain.Retryable(err):
		c.Logger().Error(err)
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "storage busy, retry"})
	default:
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
