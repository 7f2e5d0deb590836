package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/domain"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/store"
	"github.com/aussiebroadwan/taskflow/pkg/idx"
	"github.com/aussiebroadwan/taskflow/pkg/slogx"
)

// CommentService manages the discussion thread on a task. Reading or adding
// comments requires the same visibility as the task itself.
type CommentService struct {
	Store    store.Store
	Notifier Notifier
}

func (s *CommentService) publish(ctx context.Context, typ, taskID string, data any) {
	if s.Notifier == nil {
		return
	}
	s.Notifier.Publish(ctx, domain.Event{Type: typ, Topic: domain.TaskTopic(taskID), Data: data, At: timestamp()})
}

func checkContent(content string) error {
	var v ValidationError
	if strings.TrimSpace(content) == "" {
		v.add("content", "comment content is required")
	}
	return v.err()
}

func (s *CommentService) ListComments(ctx context.Context, userID, taskID string) ([]domain.CommentView, error) {
	if _, err := visibleTask(ctx, s.Store, userID, taskID); err != nil {
		return nil, err
	}

	comments, err := s.Store.Comments().ListCommentsByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	refs := newRefResolver(s.Store)
	out := make([]domain.CommentView, 0, len(comments))
	for _, c := range comments {
		v, err := refs.comment(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("populate comment: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *CommentService) CreateComment(ctx context.Context, userID, taskID, content string) (domain.CommentView, error) {
	if err := checkContent(content); err != nil {
		return domain.CommentView{}, err
	}
	if _, err := visibleTask(ctx, s.Store, userID, taskID); err != nil {
		return domain.CommentView{}, err
	}

	now := timestamp()
	c := domain.Comment{
		ID:        idx.New().String(),
		TaskID:    taskID,
		UserID:    userID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.Store.Comments().CreateComment(ctx, c)
	if errors.Is(err, store.ErrNotFound) {
		// Task deleted between the visibility check and the insert.
		return domain.CommentView{}, ErrTaskNotFound
	}
	if err != nil {
		return domain.CommentView{}, fmt.Errorf("create comment: %w", err)
	}

	v, err := newRefResolver(s.Store).comment(ctx, c)
	if err != nil {
		return domain.CommentView{}, fmt.Errorf("populate comment: %w", err)
	}

	slogx.FromContext(ctx).Info("comment created", "task_id", taskID, "comment_id", c.ID)
	s.publish(ctx, domain.EventCommentCreated, taskID, v)
	return v, nil
}

func (s *CommentService) getComment(ctx context.Context, id string) (domain.Comment, error) {
	c, err := s.Store.Comments().GetCommentByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Comment{}, ErrCommentNotFound
	}
	if err != nil {
		return domain.Comment{}, fmt.Errorf("get comment: %w", err)
	}
	return c, nil
}

// UpdateComment edits a comment. Only its author may.
func (s *CommentService) UpdateComment(ctx context.Context, userID, id, content string) (domain.CommentView, error) {
	if err := checkContent(content); err != nil {
		return domain.CommentView{}, err
	}

	c, err := s.getComment(ctx, id)
	if err != nil {
		return domain.CommentView{}, err
	}
	if c.UserID != userID {
		return domain.CommentView{}, ErrForbidden
	}

	err = s.Store.Comments().UpdateCommentContent(ctx, id, content)
	if errors.Is(err, store.ErrNotFound) {
		return domain.CommentView{}, ErrCommentNotFound
	}
	if err != nil {
		return domain.CommentView{}, fmt.Errorf("update comment: %w", err)
	}

	c, err = s.getComment(ctx, id)
	if err != nil {
		return domain.CommentView{}, err
	}
	v, err := newRefResolver(s.Store).comment(ctx, c)
	if err != nil {
		return domain.CommentView{}, fmt.Errorf("populate comment: %w", err)
	}

	slogx.FromContext(ctx).Info("comment updated", "comment_id", id)
	s.publish(ctx, domain.EventCommentUpdated, c.TaskID, v)
	return v, nil
}

// DeleteComment removes a comment. Its author and the task's creator may.
func (s *CommentService) DeleteComment(ctx context.Context, userID, id string) error {
	c, err := s.getComment(ctx, id)
	if err != nil {
		return err
	}

	if c.UserID != userID {
		t, err := s.Store.Tasks().GetTaskByID(ctx, c.TaskID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("get task: %w", err)
		}
		if err != nil || t.CreatedBy != userID {
			return ErrForbidden
		}
	}

	err = s.Store.Comments().DeleteComment(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrCommentNotFound
	}
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}

	slogx.FromContext(ctx).Info("comment deleted", "comment_id", id)
	s.publish(ctx, domain.EventCommentDeleted, c.TaskID, map[string]string{"id": id, "taskId": c.TaskID})
	return nil
}
