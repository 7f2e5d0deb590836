package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/domain"
)

const taskColumns = `id, title, description, status, created_by, assigned_to, tags, created_at, updated_at`

type tasksRepo struct {
	db  *sql.DB
	now func() time.Time
}

func scanTask(row rowScanner) (domain.Task, error) {
	var (
		t          domain.Task
		assignedTo sql.NullString
		tags       string
	)
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.CreatedBy,
		&assignedTo, &tags, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return domain.Task{}, err
	}
	t.AssignedTo = mapNullString(assignedTo)
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	if err := json.Unmarshal([]byte(tags), &t.Tags); err != nil {
		return domain.Task{}, err
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
	b, err := json.Marshal(tags)
	return string(b), err
}

func (r *tasksRepo) GetTaskByID(ctx context.Context, id string) (domain.Task, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err != nil {
		return domain.Task{}, mapNotFound(err)
	}
	return t, nil
}

func (r *tasksRepo) ListTasks(ctx context.Context, f domain.TaskFilter) ([]domain.Task, error) {
	var (
		where []string
		args  []any
	)

	if f.Viewer != "" {
		where = append(where, `(created_by = ? OR assigned_to = ?)`)
		args = append(args, f.Viewer, f.Viewer)
	}
	if f.Status != "" {
		where = append(where, `status = ?`)
		args = append(args, f.Status)
	}
	if f.AssignedTo != "" {
		where = append(where, `assigned_to = ?`)
		args = append(args, f.AssignedTo)
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		where = append(where, `(instr(lower(title), ?) > 0 OR instr(lower(description), ?) > 0)`)
		args = append(args, needle, needle)
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
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

func (r *tasksRepo) CreateTask(ctx context.Context, t domain.Task) error {
	tags, err := encodeTags(t.Tags)
	if err != nil {
		return err
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = r.now()
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}

	_, err = r.db.ExecContext(ctx, `INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Description, t.Status, t.CreatedBy, mapStringNull(t.AssignedTo),
		tags, t.CreatedAt.UTC(), t.UpdatedAt.UTC(),
	)
	return mapConstraint(err)
}

func (r *tasksRepo) UpdateTask(ctx context.Context, t domain.Task) error {
	tags, err := encodeTags(t.Tags)
	if err != nil {
		return err
	}
	return requireRow(r.db.ExecContext(ctx, `UPDATE tasks
		SET title = ?, description = ?, status = ?, assigned_to = ?, tags = ?, updated_at = ?
		WHERE id = ?`,
		t.Title, t.Description, t.Status, mapStringNull(t.AssignedTo), tags, r.now(), t.ID))
}

func (r *tasksRepo) DeleteTask(ctx context.Context, id string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		return deleteTask(ctx, tx, id)
	})
}

func deleteTask(ctx context.Context, q dbtx, id string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM comments WHERE task_id = ?`, id); err != nil {
		return err
	}
	return requireRow(q.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id))
}
