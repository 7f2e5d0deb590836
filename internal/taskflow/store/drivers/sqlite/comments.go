package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/domain"
)

const commentColumns = `id, task_id, user_id, content, created_at, updated_at`

type commentsRepo struct {
	db  *sql.DB
	now func() time.Time
}

func scanComment(row rowScanner) (domain.Comment, error) {
	var c domain.Comment
	if err := row.Scan(&c.ID, &c.TaskID, &c.UserID, &c.Content, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return domain.Comment{}, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c, nil
}

func (r *commentsRepo) GetCommentByID(ctx context.Context, id string) (domain.Comment, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = ?`, id)
	c, err := scanComment(row)
	if err != nil {
		return domain.Comment{}, mapNotFound(err)
	}
	return c, nil
}

func (r *commentsRepo) ListCommentsByTask(ctx context.Context, taskID string) ([]domain.Comment, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+commentColumns+` FROM comments
		WHERE task_id = ? ORDER BY created_at DESC, id DESC`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []domain.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (r *commentsRepo) CreateComment(ctx context.Context, c domain.Comment) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = r.now()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO comments (`+commentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.TaskID, c.UserID, c.Content, c.CreatedAt.UTC(), c.UpdatedAt.UTC())
	return mapConstraint(err)
}

func (r *commentsRepo) UpdateCommentContent(ctx context.Context, id, content string) error {
	return requireRow(r.db.ExecContext(ctx,
		`UPDATE comments SET content = ?, updated_at = ? WHERE id = ?`,
		content, r.now(), id))
}

func (r *commentsRepo) DeleteComment(ctx context.Context, id string) error {
	return requireRow(r.db.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id))
}
