// Package storetest is a conformance suite every store driver must pass.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/domain"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/store"
	"github.com/aussiebroadwan/taskflow/pkg/idx"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty, migrated store. Cleanup is the factory's job.
type Factory func(t *testing.T) store.Store

// Run executes the suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("ResetTokens", func(t *testing.T) { testResetTokens(t, newStore(t)) })
	t.Run("Tasks", func(t *testing.T) { testTasks(t, newStore(t)) })
	t.Run("Comments", func(t *testing.T) { testComments(t, newStore(t)) })
}

// NewUser builds a user with a fresh id.
func NewUser(name, email, role string) domain.User {
	return domain.User{
		ID:           idx.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		Role:         role,
	}
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()
	users := s.Users()

	empty, err := users.IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	ann := NewUser("Ann Lee", "ann@x.com", domain.RoleUser)
	require.NoError(t, users.CreateUser(ctx, ann))

	dup := NewUser("Other Ann", "ann@x.com", domain.RoleUser)
	require.ErrorIs(t, users.CreateUser(ctx, dup), store.ErrAlreadyExists)

	empty, err = users.IsEmpty(ctx)
	require.NoError(t, err)
	require.False(t, empty)

	got, err := users.GetUserByEmail(ctx, "ann@x.com")
	require.NoError(t, err)
	require.Equal(t, ann.ID, got.ID)
	require.Equal(t, "Ann Lee", got.Name)
	require.Equal(t, domain.RoleUser, got.Role)
	require.False(t, got.CreatedAt.IsZero())

	_, err = users.GetUserByEmail(ctx, "ANN@x.com")
	require.ErrorIs(t, err, store.ErrNotFound, "emails match exactly")

	_, err = users.GetUserByID(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, users.UpdateRole(ctx, ann.ID, domain.RoleAdmin))
	got, err = users.GetUserByID(ctx, ann.ID)
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, got.Role)
	require.ErrorIs(t, users.UpdateRole(ctx, "missing", domain.RoleAdmin), store.ErrNotFound)

	require.NoError(t, users.UpdatePassword(ctx, ann.ID, store.PasswordUpdate{Hash: "new-hash", ForceChange: true}))
	got, err = users.GetUserByID(ctx, ann.ID)
	require.NoError(t, err)
	require.Equal(t, "new-hash", got.PasswordHash)
	require.True(t, got.ForcePasswordChange)
	require.ErrorIs(t, users.UpdatePassword(ctx, "missing", store.PasswordUpdate{Hash: "x"}), store.ErrNotFound)

	bob := NewUser("Bob", "bob@x.com", domain.RoleUser)
	require.NoError(t, users.CreateUser(ctx, bob))

	all, err := users.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, ann.ID, all[0].ID)
	require.Equal(t, bob.ID, all[1].ID)
}

func testResetTokens(t *testing.T, s store.Store) {
	ctx := context.Background()
	users := s.Users()

	carl := NewUser("Carl", "carl@x.com", domain.RoleUser)
	require.NoError(t, users.CreateUser(ctx, carl))

	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Millisecond)
	require.NoError(t, users.SetResetToken(ctx, carl.ID, "fp-1", expires))
	require.ErrorIs(t, users.SetResetToken(ctx, "missing", "fp-2", expires), store.ErrNotFound)

	got, err := users.GetUserByResetToken(ctx, "fp-1")
	require.NoError(t, err)
	require.Equal(t, carl.ID, got.ID)
	require.True(t, got.PasswordResetRequested)
	require.NotNil(t, got.ResetTokenExpires)
	require.WithinDuration(t, expires, *got.ResetTokenExpires, time.Millisecond)
	require.True(t, got.HasValidResetToken(time.Now()))

	// Nothing has expired yet
	n, err := users.ClearExpiredResetTokens(ctx, time.Now())
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = users.ClearExpiredResetTokens(ctx, time.Now().Add(2*time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = users.GetUserByResetToken(ctx, "fp-1")
	require.ErrorIs(t, err, store.ErrNotFound)

	got, err = users.GetUserByID(ctx, carl.ID)
	require.NoError(t, err)
	require.Nil(t, got.ResetTokenHash)
	require.True(t, got.PasswordResetRequested, "flag stays for administrator visibility")

	// Completing a reset clears everything
	require.NoError(t, users.SetResetToken(ctx, carl.ID, "fp-3", expires))
	redeem := store.PasswordUpdate{Hash: "h", ClearReset: true, ResetTokenHash: "fp-3"}
	require.ErrorIs(t, users.UpdatePassword(ctx, carl.ID, store.PasswordUpdate{Hash: "h", ClearReset: true, ResetTokenHash: "fp-other"}), store.ErrNotFound)
	require.NoError(t, users.UpdatePassword(ctx, carl.ID, redeem))
	got, err = users.GetUserByID(ctx, carl.ID)
	require.NoError(t, err)
	require.False(t, got.PasswordResetRequested)
	require.Nil(t, got.ResetTokenHash)
	require.Nil(t, got.ResetTokenExpires)
	_, err = users.GetUserByResetToken(ctx, "fp-3")
	require.ErrorIs(t, err, store.ErrNotFound)

	// The same token cannot be redeemed twice
	require.ErrorIs(t, users.UpdatePassword(ctx, carl.ID, redeem), store.ErrNotFound)
}

func newTask(title, createdBy, assignedTo string) domain.Task {
	return domain.Task{
		ID:          idx.New().String(),
		Title:       title,
		Description: "some description",
		Status:      domain.StatusPending,
		CreatedBy:   createdBy,
		AssignedTo:  assignedTo,
		Tags:        []string{"a", "b"},
	}
}

func testTasks(t *testing.T, s store.Store) {
	ctx := context.Background()

	ann := NewUser("Ann", "ann@x.com", domain.RoleUser)
	bob := NewUser("Bob", "bob@x.com", domain.RoleUser)
	eve := NewUser("Eve", "eve@x.com", domain.RoleUser)
	for _, u := range []domain.User{ann, bob, eve} {
		require.NoError(t, s.Users().CreateUser(ctx, u))
	}

	tasks := s.Tasks()
	t1 := newTask("Write report", ann.ID, "")
	t2 := newTask("Review (draft) report", bob.ID, ann.ID)
	t2.Status = domain.StatusInProgress
	t3 := newTask("Eve's private task", eve.ID, "")
	for _, tk := range []domain.Task{t1, t2, t3} {
		require.NoError(t, tasks.CreateTask(ctx, tk))
		time.Sleep(2 * time.Millisecond)
	}

	got, err := tasks.GetTaskByID(ctx, t1.ID)
	require.NoError(t, err)
	require.Equal(t, "Write report", got.Title)
	require.Equal(t, []string{"a", "b"}, got.Tags)
	require.Empty(t, got.AssignedTo)

	_, err = tasks.GetTaskByID(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)

	list, err := tasks.ListTasks(ctx, domain.TaskFilter{Viewer: ann.ID})
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, t2.ID, list[0].ID, "newest first")
	require.Equal(t, t1.ID, list[1].ID)

	list, err = tasks.ListTasks(ctx, domain.TaskFilter{Viewer: ann.ID, Status: domain.StatusInProgress})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, t2.ID, list[0].ID)

	list, err = tasks.ListTasks(ctx, domain.TaskFilter{Viewer: ann.ID, AssignedTo: ann.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)

	// Search is literal and case-insensitive, and never widens visibility
	list, err = tasks.ListTasks(ctx, domain.TaskFilter{Viewer: ann.ID, Search: "(DRAFT)"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, t2.ID, list[0].ID)

	list, err = tasks.ListTasks(ctx, domain.TaskFilter{Viewer: ann.ID, Search: "private"})
	require.NoError(t, err)
	require.Empty(t, list)

	list, err = tasks.ListTasks(ctx, domain.TaskFilter{Viewer: ann.ID, Search: ".*"})
	require.NoError(t, err)
	require.Empty(t, list)

	got.Title = "Write final report"
	got.Status = domain.StatusCompleted
	got.AssignedTo = bob.ID
	got.Tags = nil
	require.NoError(t, tasks.UpdateTask(ctx, got))

	got, err = tasks.GetTaskByID(ctx, t1.ID)
	require.NoError(t, err)
	require.Equal(t, "Write final report", got.Title)
	require.Equal(t, domain.StatusCompleted, got.Status)
	require.Equal(t, bob.ID, got.AssignedTo)
	require.Empty(t, got.Tags)

	require.ErrorIs(t, tasks.UpdateTask(ctx, domain.Task{ID: "missing", Status: domain.StatusPending}), store.ErrNotFound)

	require.NoError(t, tasks.DeleteTask(ctx, t3.ID))
	_, err = tasks.GetTaskByID(ctx, t3.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.ErrorIs(t, tasks.DeleteTask(ctx, t3.ID), store.ErrNotFound)
}

func testComments(t *testing.T, s store.Store) {
	ctx := context.Background()

	ann := NewUser("Ann", "ann@x.com", domain.RoleUser)
	require.NoError(t, s.Users().CreateUser(ctx, ann))
	task := newTask("Task with comments", ann.ID, "")
	require.NoError(t, s.Tasks().CreateTask(ctx, task))

	comments := s.Comments()
	c1 := domain.Comment{ID: idx.New().String(), TaskID: task.ID, UserID: ann.ID, Content: "first"}
	require.NoError(t, comments.CreateComment(ctx, c1))
	time.Sleep(2 * time.Millisecond)
	c2 := domain.Comment{ID: idx.New().String(), TaskID: task.ID, UserID: ann.ID, Content: "second"}
	require.NoError(t, comments.CreateComment(ctx, c2))

	list, err := comments.ListCommentsByTask(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, c2.ID, list[0].ID, "newest first")

	require.NoError(t, comments.UpdateCommentContent(ctx, c1.ID, "edited"))
	got, err := comments.GetCommentByID(ctx, c1.ID)
	require.NoError(t, err)
	require.Equal(t, "edited", got.Content)
	require.ErrorIs(t, comments.UpdateCommentContent(ctx, "missing", "x"), store.ErrNotFound)

	require.NoError(t, comments.DeleteComment(ctx, c1.ID))
	_, err = comments.GetCommentByID(ctx, c1.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.ErrorIs(t, comments.DeleteComment(ctx, c1.ID), store.ErrNotFound)

	// Deleting the task takes its comments with it
	require.NoError(t, s.Tasks().DeleteTask(ctx, task.ID))
	list, err = comments.ListCommentsByTask(ctx, task.ID)
	require.NoError(t, err)
	require.Empty(t, list)
	_, err = comments.GetCommentByID(ctx, c2.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}
