package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"kanban-api/domain"
)

const taskColumns = `id, board, title, description, status, assigned_to, created_by, priority, due_date, tags, position, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (domain.Task, error) {
	var t domain.Task
	var due sql.NullTime
	var tags string
	err := row.Scan(&t.ID, &t.Board, &t.Title, &t.Description, &t.Status, &t.AssignedTo,
		&t.CreatedBy, &t.Priority, &due, &tags, &t.Position, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return domain.Task{}, err
	}
	if due.Valid {
		d := due.Time
		t.DueDate = &d
	}
	if err := json.Unmarshal([]byte(tags), &t.Tags); err != nil {
		return domain.Task{}, fmt.Errorf("decode tags for task %s: %w", t.ID, err)
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	return t, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(data), nil
}

// CreateTask appends t to the tail of its (board, status) column and persists
// it. The assigned position is written back into t.
func (s *Store) CreateTask(ctx context.Context, t *domain.Task) error {
	tags, err := encodeTags(t.Tags)
	if err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		count, err := columnCount(ctx, tx, t.Board, t.Status)
		if err != nil {
			return err
		}
		t.Position = domain.AppendPosition(count)
		now := time.Now().UTC()
		t.CreatedAt = now
		t.UpdatedAt = now
		_, err = tx.ExecContext(ctx, `
			INSERT INTO tasks (`+taskColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
		`, t.ID, t.Board, t.Title, t.Description, t.Status, t.AssignedTo,
			t.CreatedBy, t.Priority, nullableTime(t.DueDate), tags, t.Position, now, now)
		if err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		return nil
	})
}

// GetTask loads a single task by id.
func (s *Store) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?;`, id)
	t, err := scanTask(row)
	if err != nil {
		return nil, notFoundAs(err)
	}
	return &t, nil
}

// ListBoardTasks returns a board's tasks ordered by column position.
func (s *Store) ListBoardTasks(ctx context.Context, boardID string, filter domain.TaskFilter) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE board = ?`
	args := []any{boardID}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.AssignedTo != "" {
		query += ` AND assigned_to = ?`
		args = append(args, filter.AssignedTo)
	}
	if filter.Search != "" {
		query += ` AND (title LIKE '%' || ? || '%' OR description LIKE '%' || ? || '%' OR tags LIKE '%' || ? || '%')`
		args = append(args, filter.Search, filter.Search, filter.Search)
	}
	query += ` ORDER BY status, position, created_at DESC;`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// ListAssignedTasks returns every task assigned to the given user, newest first.
func (s *Store) ListAssignedTasks(ctx context.Context, userID string) ([]domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE assigned_to = ? ORDER BY created_at DESC;
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// MoveTask relocates a task to (target, position), shifting neighbours so both
// touched columns stay densely ordered. The whole reorder is one transaction.
func (s *Store) MoveTask(ctx context.Context, id string, target domain.Status, position int) (*domain.Task, error) {
	var moved domain.Task
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		t, err := getTaskTx(ctx, tx, id)
		if err != nil {
			return err
		}
		count, err := columnCount(ctx, tx, t.Board, target)
		if err != nil {
			return err
		}
		plan := domain.PlanMove(t, target, position, count)
		if plan.Empty() {
			moved = t
			return nil
		}
		if err := applyPlan(ctx, tx, plan); err != nil {
			return err
		}
		t.Status = plan.Place.Status
		t.Position = plan.Place.Position
		t.UpdatedAt = time.Now().UTC()
		if _, err := tx.ExecContext(ctx,
			`UPDATE tasks SET updated_at = ? WHERE id = ?;`, t.UpdatedAt, t.ID); err != nil {
			return fmt.Errorf("touch moved task: %w", err)
		}
		moved = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &moved, nil
}

// UpdateTask applies a partial update. A status change without an explicit
// position appends to the destination column; an explicit position without a
// status change is a same-column move.
func (s *Store) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error) {
	var updated domain.Task
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		t, err := getTaskTx(ctx, tx, id)
		if err != nil {
			return err
		}

		statusChanged := patch.Status != nil && *patch.Status != t.Status
		if statusChanged || patch.Position != nil {
			target := t.Status
			if statusChanged {
				target = *patch.Status
			}
			count, err := columnCount(ctx, tx, t.Board, target)
			if err != nil {
				return err
			}
			requested := count // append to end when no position given
			if patch.Position != nil {
				requested = *patch.Position
			}
			plan := domain.PlanMove(t, target, requested, count)
			if !plan.Empty() {
				if err := applyPlan(ctx, tx, plan); err != nil {
					return err
				}
				t.Status = plan.Place.Status
				t.Position = plan.Place.Position
			}
		}

		patch.Apply(&t)
		t.UpdatedAt = time.Now().UTC()
		tags, err := encodeTags(t.Tags)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE tasks
			SET title = ?, description = ?, status = ?, assigned_to = ?, priority = ?,
				due_date = ?, tags = ?, position = ?, updated_at = ?
			WHERE id = ?;
		`, t.Title, t.Description, t.Status, t.AssignedTo, t.Priority,
			nullableTime(t.DueDate), tags, t.Position, t.UpdatedAt, t.ID)
		if err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		updated = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteTask removes a task and closes the gap it leaves in its column. The
// deleted state is returned so callers can broadcast the deletion.
func (s *Store) DeleteTask(ctx context.Context, id string) (*domain.Task, error) {
	var deleted domain.Task
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		t, err := getTaskTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?;`, t.ID); err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		if err := applyPlan(ctx, tx, domain.PlanRemoval(t)); err != nil {
			return err
		}
		deleted = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &deleted, nil
}

func getTaskTx(ctx context.Context, tx *sql.Tx, id string) (domain.Task, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?;`, id)
	t, err := scanTask(row)
	if err != nil {
		return domain.Task{}, notFoundAs(err)
	}
	return t, nil
}

func columnCount(ctx context.Context, tx *sql.Tx, board string, status domain.Status) (int, error) {
	var count int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks WHERE board = ? AND status = ?;`, board, status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count column (%s, %s): %w", board, status, err)
	}
	return count, nil
}

// applyPlan executes each shift as one bulk update, then pins the moved task.
func applyPlan(ctx context.Context, tx *sql.Tx, plan domain.Plan) error {
	for _, sh := range plan.Shifts {
		query := `UPDATE tasks SET position = position + ? WHERE board = ? AND status = ? AND position >= ? AND id <> ?`
		args := []any{sh.Delta, sh.Column.Board, sh.Column.Status, sh.From, sh.ExcludeID}
		if sh.To >= 0 {
			query += ` AND position <= ?`
			args = append(args, sh.To)
		}
		if _, err := tx.ExecContext(ctx, query+";", args...); err != nil {
			return fmt.Errorf("shift column (%s, %s): %w", sh.Column.Board, sh.Column.Status, err)
		}
	}
	if plan.Place != nil {
		_, err := tx.ExecContext(ctx,
			`UPDATE tasks SET status = ?, position = ? WHERE id = ?;`,
			plan.Place.Status, plan.Place.Position, plan.Place.TaskID)
		if err != nil {
			return fmt.Errorf("place task %s: %w", plan.Place.TaskID, err)
		}
	}
	return nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
