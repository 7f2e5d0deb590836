package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/domain"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/store"
)

const userColumns = `id, name, email, password_hash, role, force_password_change,
	password_reset_requested, reset_token_hash, reset_token_expires, created_at, updated_at`

type usersRepo struct {
	db  *sql.DB
	now func() time.Time
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (domain.User, error) {
	var (
		u         domain.User
		tokenHash sql.NullString
		expires   sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role,
		&u.ForcePasswordChange, &u.PasswordResetRequested, &tokenHash, &expires,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return domain.User{}, err
	}
	u.ResetTokenHash = mapNullStringPtr(tokenHash)
	u.ResetTokenExpires = mapNullTimePtr(expires)
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}

func (r *usersRepo) getOne(ctx context.Context, where string, arg any) (domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg)
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return r.getOne(ctx, `id = ?`, id)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.getOne(ctx, `email = ?`, email)
}

func (r *usersRepo) GetUserByResetToken(ctx context.Context, tokenHash string) (domain.User, error) {
	return r.getOne(ctx, `reset_token_hash = ?`, tokenHash)
}

func (r *usersRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	now := r.now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}
	if u.Role == "" {
		u.Role = domain.RoleUser
	}

	_, err := r.db.ExecContext(ctx, `INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Role,
		u.ForcePasswordChange, u.PasswordResetRequested,
		optionalString(u.ResetTokenHash), optionalTime(u.ResetTokenExpires),
		u.CreatedAt.UTC(), u.UpdatedAt.UTC(),
	)
	return mapConstraint(err)
}

func (r *usersRepo) UpdateRole(ctx context.Context, id, role string) error {
	return requireRow(r.db.ExecContext(ctx,
		`UPDATE users SET role = ?, updated_at = ? WHERE id = ?`,
		role, r.now(), id))
}

func (r *usersRepo) UpdatePassword(ctx context.Context, id string, p store.PasswordUpdate) error {
	query := `UPDATE users SET password_hash = ?, force_password_change = ?, updated_at = ?`
	args := []any{p.Hash, p.ForceChange, r.now()}
	if p.ClearReset {
		query += `, password_reset_requested = 0, reset_token_hash = NULL, reset_token_expires = NULL`
	}
	query += ` WHERE id = ?`
	args = append(args, id)
	if p.ResetTokenHash != "" {
		query += ` AND reset_token_hash = ?`
		args = append(args, p.ResetTokenHash)
	}
	return requireRow(r.db.ExecContext(ctx, query, args...))
}

func (r *usersRepo) SetResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error {
	return requireRow(r.db.ExecContext(ctx, `UPDATE users
		SET reset_token_hash = ?, reset_token_expires = ?, password_reset_requested = 1, updated_at = ?
		WHERE id = ?`,
		tokenHash, expires.UTC(), r.now(), id))
}

func (r *usersRepo) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE users
		SET reset_token_hash = NULL, reset_token_expires = NULL, updated_at = ?
		WHERE reset_token_expires IS NOT NULL AND reset_token_expires < ?`,
		r.now(), now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return false, err
	}
	return count == 0, nil
}

func optionalString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: *s, Valid: true}
}

func optionalTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
