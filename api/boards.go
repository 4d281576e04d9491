package api

import (
	"net/http"
	"slices"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"kanban-api/domain"
)

// Board reads are open to owner, members and the public flag; every other
// verb is owner-only. Member management goes through the dedicated member
// routes, not the board update.
func registerBoards(e *echo.Echo, store Storage, auth Authenticator) {
	e.GET("/api/boards", listBoards(store, auth))
	e.POST("/api/boards", postBoard(store, auth))
	e.GET("/api/boards/:id", getBoard(store, auth))
	e.PUT("/api/boards/:id", putBoard(store, auth))
	e.DELETE("/api/boards/:id", deleteBoard(store, auth))
	e.POST("/api/boards/:id/members", postMember(store, auth))
	e.DELETE("/api/boards/:id/members/:userId", deleteMember(store, auth))
}

func listBoards(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		boards, err := store.ListBoards(ctx, userID)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, boards)
	}
}

func postBoard(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		var req boardRequest
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		board := domain.Board{
			ID:          uuid.NewString(),
			Title:       req.Title,
			Description: req.Description,
			Owner:       userID,
			Members:     []string{},
			IsPublic:    req.IsPublic,
		}
		if err := board.Validate(); err != nil {
			return writeError(c, err)
		}
		if err := store.CreateBoard(ctx, &board); err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusCreated, board)
	}
}

func getBoard(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		board, err := store.GetBoard(ctx, c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		if !board.CanAccess(userID) {
			return writeError(c, domain.ErrForbidden)
		}
		return c.JSON(http.StatusOK, board)
	}
}

func putBoard(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		var req boardRequest
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		board, err := store.GetBoard(ctx, c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		if !board.IsOwner(userID) {
			return writeError(c, domain.ErrForbidden)
		}
		board.Title = req.Title
		board.Description = req.Description
		board.IsPublic = req.IsPublic
		if err := board.Validate(); err != nil {
			return writeError(c, err)
		}
		if err := store.UpdateBoard(ctx, board); err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, board)
	}
}

func deleteBoard(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		board, err := store.GetBoard(ctx, c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		if !board.IsOwner(userID) {
			return writeError(c, domain.ErrForbidden)
		}
		if err := store.DeleteBoard(ctx, board.ID); err != nil {
			return writeError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func postMember(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		var req memberRequest
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		if req.UserID == "" {
			return writeError(c, domain.ValidationError{Field: "userId", Message: "required"})
		}
		board, err := store.GetBoard(ctx, c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		if !board.IsOwner(userID) {
			return writeError(c, domain.ErrForbidden)
		}
		// The owner is implicitly a member, never listed.
		if req.UserID != board.Owner && !slices.Contains(board.Members, req.UserID) {
			board.Members = append(board.Members, req.UserID)
			if err := store.UpdateBoard(ctx, board); err != nil {
				return writeError(c, err)
			}
		}
		return c.JSON(http.StatusOK, board)
	}
}

func deleteMember(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		board, err := store.GetBoard(ctx, c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		if !board.IsOwner(userID) {
			return writeError(c, domain.ErrForbidden)
		}
		member := c.Param("userId")
		if i := slices.Index(board.Members, member); i >= 0 {
			board.Members = slices.Delete(board.Members, i, i+1)
			if err := store.UpdateBoard(ctx, board); err != nil {
				return writeError(c, err)
			}
		}
		return c.JSON(http.StatusOK, board)
	}
}
