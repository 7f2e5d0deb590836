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

// TaskQuery is the caller supplied part of a task listing.
type TaskQuery struct {
	Status     string
	AssignedTo string
	Search     string
}

type CreateTaskInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      string   `json:"status,omitempty"`
	AssignedTo  string   `json:"assignedTo,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// UpdateTaskInput is a partial update. Nil or empty title, description and
// status keep the stored value. AssignedTo set to "" unassigns.
type UpdateTaskInput struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Status      *string   `json:"status,omitempty"`
	AssignedTo  *string   `json:"assignedTo,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
}

type TaskService struct {
	Store    store.Store
	Notifier Notifier
}

func (s *TaskService) publish(ctx context.Context, typ, taskID string, data any) {
	if s.Notifier == nil {
		return
	}
	s.Notifier.Publish(ctx, domain.Event{Type: typ, Topic: domain.TaskTopic(taskID), Data: data, At: timestamp()})
}

// ListTasks returns the tasks userID created or is assigned to, newest first.
// An unknown status filter is ignored rather than rejected.
func (s *TaskService) ListTasks(ctx context.Context, userID string, q TaskQuery) ([]domain.TaskView, error) {
	f := domain.TaskFilter{
		Viewer:     userID,
		AssignedTo: strings.TrimSpace(q.AssignedTo),
		Search:     strings.TrimSpace(q.Search),
	}
	if domain.ValidStatus(q.Status) {
		f.Status = q.Status
	}

	tasks, err := s.Store.Tasks().ListTasks(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	refs := newRefResolver(s.Store)
	out := make([]domain.TaskView, 0, len(tasks))
	for _, t := range tasks {
		v, err := refs.task(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("populate task: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}

// visibleTask loads a task the caller may see.
func visibleTask(ctx context.Context, st store.Store, userID, id string) (domain.Task, error) {
	t, err := st.Tasks().GetTaskByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Task{}, ErrTaskNotFound
	}
	if err != nil {
		return domain.Task{}, fmt.Errorf("get task: %w", err)
	}
	if !t.VisibleTo(userID) {
		return domain.Task{}, ErrForbidden
	}
	return t, nil
}

func (s *TaskService) view(ctx context.Context, t domain.Task) (domain.TaskView, error) {
	v, err := newRefResolver(s.Store).task(ctx, t)
	if err != nil {
		return domain.TaskView{}, fmt.Errorf("populate task: %w", err)
	}
	return v, nil
}

func (s *TaskService) GetTask(ctx context.Context, userID, id string) (domain.TaskView, error) {
	t, err := visibleTask(ctx, s.Store, userID, id)
	if err != nil {
		return domain.TaskView{}, err
	}
	return s.view(ctx, t)
}

func (s *TaskService) CreateTask(ctx context.Context, userID string, in CreateTaskInput) (domain.TaskView, error) {
	now := timestamp()
	t := domain.Task{
		ID:          idx.New().String(),
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Status:      in.Status,
		CreatedBy:   userID,
		AssignedTo:  strings.TrimSpace(in.AssignedTo),
		Tags:        normaliseTags(in.Tags),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if t.Status == "" {
		t.Status = domain.StatusPending
	}

	if err := s.validate(ctx, t, t.AssignedTo != ""); err != nil {
		return domain.TaskView{}, err
	}

	if err := s.Store.Tasks().CreateTask(ctx, t); err != nil {
		return domain.TaskView{}, fmt.Errorf("create task: %w", err)
	}

	slogx.FromContext(ctx).Info("task created", "task_id", t.ID)
	return s.view(ctx, t)
}

func (s *TaskService) UpdateTask(ctx context.Context, userID, id string, in UpdateTaskInput) (domain.TaskView, error) {
	t, err := visibleTask(ctx, s.Store, userID, id)
	if err != nil {
		return domain.TaskView{}, err
	}

	if in.Title != nil && strings.TrimSpace(*in.Title) != "" {
		t.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil && strings.TrimSpace(*in.Description) != "" {
		t.Description = strings.TrimSpace(*in.Description)
	}
	if in.Status != nil && *in.Status != "" {
		t.Status = *in.Status
	}
	assigneeChanged := false
	if in.AssignedTo != nil {
		next := strings.TrimSpace(*in.AssignedTo)
		assigneeChanged = next != t.AssignedTo && next != ""
		t.AssignedTo = next
	}
	if in.Tags != nil {
		t.Tags = normaliseTags(*in.Tags)
	}

	if err := s.validate(ctx, t, assigneeChanged); err != nil {
		return domain.TaskView{}, err
	}

	err = s.Store.Tasks().UpdateTask(ctx, t)
	if errors.Is(err, store.ErrNotFound) {
		return domain.TaskView{}, ErrTaskNotFound
	}
	if err != nil {
		return domain.TaskView{}, fmt.Errorf("update task: %w", err)
	}

	// Reload for the store's updated_at.
	t, err = s.Store.Tasks().GetTaskByID(ctx, id)
	if err != nil {
		return domain.TaskView{}, fmt.Errorf("reload task: %w", err)
	}
	v, err := s.view(ctx, t)
	if err != nil {
		return domain.TaskView{}, err
	}

	slogx.FromContext(ctx).Info("task updated", "task_id", id)
	s.publish(ctx, domain.EventTaskUpdated, id, v)
	return v, nil
}

// DeleteTask removes a task and its comments. Only the creator may delete.
func (s *TaskService) DeleteTask(ctx context.Context, userID, id string) error {
	t, err := s.Store.Tasks().GetTaskByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrTaskNotFound
	}
	if err != nil {
		return fmt.Errorf("get task: %w", err)
	}
	if t.CreatedBy != userID {
		return ErrForbidden
	}

	err = s.Store.Tasks().DeleteTask(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrTaskNotFound
	}
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	slogx.FromContext(ctx).Info("task deleted", "task_id", id)
	s.publish(ctx, domain.EventTaskDeleted, id, map[string]string{"id": id})
	return nil
}

// validate checks a task about to be written. checkAssignee is set when the
// assignee is new, so an existing reference to a since-deleted user does not
// block unrelated edits.
func (s *TaskService) validate(ctx context.Context, t domain.Task, checkAssignee bool) error {
	var v ValidationError
	if !minLen(t.Title, minTitleLength) {
		v.add("title", "title must be at least 2 characters")
	}
	if !minLen(t.Description, minDescriptionLength) {
		v.add("description", "description must be at least 5 characters")
	}
	if !domain.ValidStatus(t.Status) {
		v.add("status", "status must be one of: pending, in-progress, completed")
	}
	if checkAssignee {
		_, err := s.Store.Users().GetUserByID(ctx, t.AssignedTo)
		switch {
		case errors.Is(err, store.ErrNotFound):
			v.add("assignedTo", "assigned user does not exist")
		case err != nil:
			return fmt.Errorf("lookup assignee: %w", err)
		}
	}
	return v.err()
}

func normaliseTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// CanView reports whether userID may see task id. A missing task is simply
// not visible.
func (s *TaskService) CanView(ctx context.Context, userID, id string) (bool, error) {
	_, err := visibleTask(ctx, s.Store, userID, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrTaskNotFound):
		return false, nil
	default:
		return false, err
	}
}
