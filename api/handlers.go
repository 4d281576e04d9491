package api

import (
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"kanban-api/domain"
)

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, store Storage, auth Authenticator, access Access, hub Publisher, dedupe Deduper, logger *log.Logger) {
	e.GET("/healthz", healthz())

	e.GET("/api/tasks/board/:boardId", getBoardTasks(store, auth, access))
	e.GET("/api/tasks/my-tasks", getMyTasks(store, auth))
	e.GET("/api/tasks/:id", getTask(store, auth, access))
	e.POST("/api/tasks", postTask(store, auth, access, hub, dedupe))
	e.PUT("/api/tasks/:id", putTask(store, auth, access, hub, dedupe))
	e.PUT("/api/tasks/:id/move", moveTask(store, auth, access, hub, dedupe, logger))
	e.DELETE("/api/tasks/:id", deleteTask(store, auth, access, hub, dedupe))

	registerBoards(e, store, auth)
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func decodeBody(c echo.Context, v any) error {
	lr := io.LimitReader(c.Request().Body, requestBodyMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// claimIdempotency records the request's Idempotency-Key, if present. The
// returned release func undoes the claim when the mutation fails, so the
// client may retry with the same key. Deduper failures do not block the
// request: without Redis the key is simply not enforced.
func claimIdempotency(c echo.Context, dedupe Deduper, userID string) (release func(), duplicate bool) {
	release = func() {}
	key := c.Request().Header.Get(HeaderIdempotencyKey)
	if key == "" || dedupe == nil {
		return release, false
	}
	ctx := c.Request().Context()
	added, err := dedupe.Add(ctx, userID, key)
	if err != nil {
		c.Logger().Warnf("idempotency claim failed: %v", err)
		return release, false
	}
	if !added {
		return release, true
	}
	release = func() {
		if remErr := dedupe.Remove(ctx, userID, key); remErr != nil {
			c.Logger().Warnf("idempotency release failed: %v", remErr)
		}
	}
	return release, false
}

func originConnID(c echo.Context) string {
	return c.Request().Header.Get(HeaderConnectionID)
}

func getBoardTasks(store Storage, auth Authenticator, access Access) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		boardID := c.Param("boardId")
		if _, err := access.Authorize(ctx, boardID, userID); err != nil {
			return writeError(c, err)
		}
		filter := domain.TaskFilter{
			Status:     domain.Status(c.QueryParam("status")),
			AssignedTo: c.QueryParam("assignedTo"),
			Search:     c.QueryParam("search"),
		}
		if filter.Status != "" && !filter.Status.Valid() {
			return writeError(c, domain.ValidationError{Field: "status", Message: "must be one of todo, in-progress, done"})
		}
		tasks, err := store.ListBoardTasks(ctx, boardID, filter)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, tasks)
	}
}

func getMyTasks(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		tasks, err := store.ListAssignedTasks(ctx, userID)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, tasks)
	}
}

func getTask(store Storage, auth Authenticator, access Access) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		task, err := store.GetTask(ctx, c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		if _, err := access.Authorize(ctx, task.Board, userID); err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, task)
	}
}

func postTask(store Storage, auth Authenticator, access Access, hub Publisher, dedupe Deduper) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		var req createTaskRequest
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		task := domain.Task{
			ID:          uuid.NewString(),
			Title:       req.Title,
			Description: req.Description,
			Status:      req.Status,
			Board:       req.Board,
			AssignedTo:  req.AssignedTo,
			CreatedBy:   userID,
			Priority:    req.Priority,
			DueDate:     req.DueDate,
			Tags:        req.Tags,
		}
		if task.Status == "" {
			task.Status = domain.StatusTodo
		}
		if task.Priority == "" {
			task.Priority = domain.PriorityMedium
		}
		if task.Tags == nil {
			task.Tags = []string{}
		}
		if err := task.Validate(); err != nil {
			return writeError(c, err)
		}
		if _, err := access.Authorize(ctx, task.Board, userID); err != nil {
			return writeError(c, err)
		}
		release, duplicate := claimIdempotency(c, dedupe, userID)
		if duplicate {
			return c.JSON(http.StatusConflict, errorResponse{Error: "duplicate request"})
		}
		if err := store.CreateTask(ctx, &task); err != nil {
			release()
			return writeError(c, err)
		}
		hub.Publish(domain.NewTaskEvent(domain.TaskCreated, task), originConnID(c))
		return c.JSON(http.StatusCreated, task)
	}
}

func putTask(store Storage, auth Authenticator, access Access, hub Publisher, dedupe Deduper) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		var req updateTaskRequest
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		patch := req.patch()
		if err := patch.Validate(); err != nil {
			return writeError(c, err)
		}
		task, err := store.GetTask(ctx, c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		if _, err := access.Authorize(ctx, task.Board, userID); err != nil {
			return writeError(c, err)
		}
		release, duplicate := claimIdempotency(c, dedupe, userID)
		if duplicate {
			return c.JSON(http.StatusConflict, errorResponse{Error: "duplicate request"})
		}
		updated, err := store.UpdateTask(ctx, task.ID, patch)
		if err != nil {
			release()
			return writeError(c, err)
		}
		hub.Publish(domain.NewTaskEvent(domain.TaskUpdated, *updated), originConnID(c))
		return c.JSON(http.StatusOK, updated)
	}
}

func moveTask(store Storage, auth Authenticator, access Access, hub Publisher, dedupe Deduper, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics := newMoveRequestMetrics(logger)
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		userID, authErr := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			err = c.JSON(http.StatusUnauthorized, errorResponse{Error: authErr.Error()})
			return err
		}

		var req moveTaskRequest
		if err := decodeBody(c, &req); err != nil {
			metrics.SetErrorStage("decode")
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		if !req.Status.Valid() {
			metrics.SetErrorStage("validate")
			err = writeError(c, domain.ValidationError{Field: "status", Message: "must be one of todo, in-progress, done"})
			return err
		}
		if req.Position < 0 {
			metrics.SetErrorStage("validate")
			err = writeError(c, domain.ValidationError{Field: "position", Message: "must not be negative"})
			return err
		}

		task, getErr := store.GetTask(ctx, c.Param("id"))
		if getErr != nil {
			metrics.SetErrorStage("lookup")
			err = writeError(c, getErr)
			return err
		}
		if _, authzErr := access.Authorize(ctx, task.Board, userID); authzErr != nil {
			metrics.SetErrorStage("access")
			err = writeError(c, authzErr)
			return err
		}
		metrics.SetColumns(task.Status, req.Status)

		release, duplicate := claimIdempotency(c, dedupe, userID)
		if duplicate {
			metrics.SetErrorStage("duplicate")
			err = c.JSON(http.StatusConflict, errorResponse{Error: "duplicate request"})
			return err
		}

		moveStart := time.Now()
		moved, moveErr := store.MoveTask(ctx, task.ID, req.Status, req.Position)
		metrics.ObserveMove(time.Since(moveStart))
		if moveErr != nil {
			release()
			metrics.SetErrorStage("storage")
			err = writeError(c, moveErr)
			return err
		}

		hub.Publish(domain.NewTaskEvent(domain.TaskUpdated, *moved), originConnID(c))
		err = c.JSON(http.StatusOK, moved)
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func deleteTask(store Storage, auth Authenticator, access Access, hub Publisher, dedupe Deduper) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		task, err := store.GetTask(ctx, c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		if _, err := access.Authorize(ctx, task.Board, userID); err != nil {
			return writeError(c, err)
		}
		release, duplicate := claimIdempotency(c, dedupe, userID)
		if duplicate {
			return c.JSON(http.StatusConflict, errorResponse{Error: "duplicate request"})
		}
		deleted, err := store.DeleteTask(ctx, task.ID)
		if err != nil {
			release()
			return writeError(c, err)
		}
		hub.Publish(domain.NewDeletionEvent(deleted.Board, deleted.ID), originConnID(c))
		return c.JSON(http.StatusOK, deleted)
	}
}
