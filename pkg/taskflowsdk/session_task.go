package taskflowsdk

import (
	"context"
	"net/http"
	"net/url"
)

func (s *Session) ListTasks(ctx context.Context, q TaskQuery) ([]Task, error) {
	v := url.Values{}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if q.AssignedTo != "" {
		v.Set("assignedTo", q.AssignedTo)
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	path := "/api/tasks"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}

	var tasks []Task
	if err := s.call(ctx, http.MethodGet, path, nil, &tasks, http.StatusOK); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *Session) GetTask(ctx context.Context, id string) (*Task, error) {
	var task Task
	if err := s.call(ctx, http.MethodGet, "/api/tasks/"+escape(id), nil, &task, http.StatusOK); err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *Session) CreateTask(ctx context.Context, req TaskRequest) (*Task, error) {
	var task Task
	if err := s.call(ctx, http.MethodPost, "/api/tasks", req, &task, http.StatusCreated); err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *Session) UpdateTask(ctx context.Context, id string, req TaskRequest) (*Task, error) {
	var task Task
	if err := s.call(ctx, http.MethodPut, "/api/tasks/"+escape(id), req, &task, http.StatusOK); err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *Session) DeleteTask(ctx context.Context, id string) error {
	return s.call(ctx, http.MethodDelete, "/api/tasks/"+escape(id), nil, nil, http.StatusOK)
}

func (s *Session) ListComments(ctx context.Context, taskID string) ([]Comment, error) {
	var comments []Comment
	if err := s.call(ctx, http.MethodGet, "/api/comments/task/"+escape(taskID), nil, &comments, http.StatusOK); err != nil {
		return nil, err
	}
	return comments, nil
}

func (s *Session) CreateComment(ctx context.Context, taskID, content string) (*Comment, error) {
	var c Comment
	err := s.call(ctx, http.MethodPost, "/api/comments/task/"+escape(taskID), CommentRequest{Content: content}, &c, http.StatusCreated)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Session) UpdateComment(ctx context.Context, id, content string) (*Comment, error) {
	var c Comment
	err := s.call(ctx, http.MethodPut, "/api/comments/"+escape(id), CommentRequest{Content: content}, &c, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Session) DeleteComment(ctx context.Context, id string) error {
	return s.call(ctx, http.MethodDelete, "/api/comments/"+escape(id), nil, nil, http.StatusOK)
}
