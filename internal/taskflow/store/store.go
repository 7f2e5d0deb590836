package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, mongo)
// implement this and expose sub-repositories per aggregate. Every mutation
// targets a single row or document, so there is no transaction API: the
// last write wins.
type Store interface {
	Users() Users
	Tasks() Tasks
	Comments() Comments

	ApplyMigrations() error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail is the login lookup. Emails match exactly as stored.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// GetUserByResetToken returns the user holding the reset token fingerprint,
	// regardless of expiry.
	GetUserByResetToken(ctx context.Context, tokenHash string) (domain.User, error)

	// ListUsers returns all users, oldest first.
	ListUsers(ctx context.Context) ([]domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	// Returns ErrAlreadyExists on a duplicate email.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateRole sets the role and bumps updated_at.
	UpdateRole(ctx context.Context, id, role string) error

	// UpdatePassword applies a password change and bumps updated_at.
	UpdatePassword(ctx context.Context, id string, p PasswordUpdate) error

	// SetResetToken stores a reset token fingerprint with its expiry and marks
	// the reset as requested.
	SetResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error

	// ClearExpiredResetTokens drops token fields whose expiry is before now.
	// The reset-requested flag is left alone for administrator visibility.
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)

	// IsEmpty returns true if there are no users.
	IsEmpty(ctx context.Context) (bool, error)
}

// PasswordUpdate describes a password change.
type PasswordUpdate struct {
	Hash        string
	ForceChange bool

	// ClearReset clears the reset-requested flag and any reset token.
	ClearReset bool

	// ResetTokenHash, when set, applies the change only while this token
	// fingerprint is still stored. A spent or replaced token yields
	// ErrNotFound.
	ResetTokenHash string
}

type Tasks interface {
	GetTaskByID(ctx context.Context, id string) (domain.Task, error)

	// ListTasks returns tasks matching f, newest first.
	ListTasks(ctx context.Context, f domain.TaskFilter) ([]domain.Task, error)

	CreateTask(ctx context.Context, t domain.Task) error

	// UpdateTask replaces the mutable fields of t and bumps updated_at.
	UpdateTask(ctx context.Context, t domain.Task) error

	// DeleteTask removes the task and its comments.
	DeleteTask(ctx context.Context, id string) error
}

type Comments interface {
	GetCommentByID(ctx context.Context, id string) (domain.Comment, error)

	// ListCommentsByTask returns a task's comments, newest first.
	ListCommentsByTask(ctx context.Context, taskID string) ([]domain.Comment, error)

	CreateComment(ctx context.Context, c domain.Comment) error
	UpdateCommentContent(ctx context.Context, id, content string) error
	DeleteComment(ctx context.Context, id string) error
}
