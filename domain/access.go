package domain

import (
	"context"
	"errors"
)

// BoardGetter loads board records for access checks.
type BoardGetter interface {
	GetBoard(ctx context.Context, id string) (*Board, error)
}

// Guard answers whether an actor may touch a board's tasks. Every task read
// and mutation passes through here before the store is written; the check is
// always made against the task's board, never the task itself.
type Guard struct {
	boards BoardGetter
}

func NewGuard(boards BoardGetter) *Guard {
	return &Guard{boards: boards}
}

// CanAccess reports whether actor has rights on the board. A missing board is
// false, not an error, so subscription paths can treat it as a plain denial.
func (g *Guard) CanAccess(ctx context.Context, boardID, actor string) (bool, error) {
	board, err := g.boards.GetBoard(ctx, boardID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return board.CanAccess(actor), nil
}

// Authorize resolves the board and distinguishes "no such board" from "no
// rights": callers map the former to a not-found outcome, the latter to
// forbidden.
func (g *Guard) Authorize(ctx context.Context, boardID, actor string) (*Board, error) {
	board, err := g.boards.GetBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if !board.CanAccess(actor) {
		return nil, ErrForbidden
	}
	return board, nil
}
