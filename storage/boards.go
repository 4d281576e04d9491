package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"kanban-api/domain"
)

func scanBoard(row rowScanner) (domain.Board, error) {
	var b domain.Board
	var members string
	err := row.Scan(&b.ID, &b.Title, &b.Description, &b.Owner, &members, &b.IsPublic, &b.CreatedAt)
	if err != nil {
		return domain.Board{}, err
	}
	if err := json.Unmarshal([]byte(members), &b.Members); err != nil {
		return domain.Board{}, fmt.Errorf("decode members for board %s: %w", b.ID, err)
	}
	if b.Members == nil {
		b.Members = []string{}
	}
	return b, nil
}

const boardColumns = `id, title, description, owner, members, is_public, created_at`

// CreateBoard persists a new board.
func (s *Store) CreateBoard(ctx context.Context, b *domain.Board) error {
	members, err := json.Marshal(b.Members)
	if err != nil {
		return fmt.Errorf("encode members: %w", err)
	}
	b.CreatedAt = time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO boards (`+boardColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?);
	`, b.ID, b.Title, b.Description, b.Owner, string(members), b.IsPublic, b.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert board: %w", err)
	}
	return nil
}

// GetBoard loads a board by id. The access guard reads through here.
func (s *Store) GetBoard(ctx context.Context, id string) (*domain.Board, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+boardColumns+` FROM boards WHERE id = ?;`, id)
	b, err := scanBoard(row)
	if err != nil {
		return nil, notFoundAs(err)
	}
	return &b, nil
}

// ListBoards returns every board the user owns or is a member of, newest first.
func (s *Store) ListBoards(ctx context.Context, userID string) ([]domain.Board, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+boardColumns+` FROM boards
		WHERE owner = ?
			OR EXISTS (SELECT 1 FROM json_each(boards.members) WHERE json_each.value = ?)
		ORDER BY created_at DESC;
	`, userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	boards := []domain.Board{}
	for rows.Next() {
		b, err := scanBoard(rows)
		if err != nil {
			return nil, err
		}
		boards = append(boards, b)
	}
	return boards, rows.Err()
}

// UpdateBoard rewrites a board's mutable fields.
func (s *Store) UpdateBoard(ctx context.Context, b *domain.Board) error {
	members, err := json.Marshal(b.Members)
	if err != nil {
		return fmt.Errorf("encode members: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE boards SET title = ?, description = ?, members = ?, is_public = ? WHERE id = ?;
	`, b.Title, b.Description, string(members), b.IsPublic, b.ID)
	if err != nil {
		return fmt.Errorf("update board: %w", err)
	}
	return requireRow(res)
}

// DeleteBoard removes a board and all of its tasks.
func (s *Store) DeleteBoard(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE board = ?;`, id); err != nil {
			return fmt.Errorf("delete board tasks: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM boards WHERE id = ?;`, id)
		if err != nil {
			return fmt.Errorf("delete board: %w", err)
		}
		return requireRow(res)
	})
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
