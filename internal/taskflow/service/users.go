package service

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/domain"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/store"
)

// refResolver populates user references for one response, looking each user
// up at most once. A user deleted out from under a task resolves to a bare id.
type refResolver struct {
	users store.Users
	seen  map[string]domain.UserRef
}

func newRefResolver(st store.Store) *refResolver {
	return &refResolver{users: st.Users(), seen: map[string]domain.UserRef{}}
}

func (r *refResolver) ref(ctx context.Context, id string) (domain.UserRef, error) {
	if ref, ok := r.seen[id]; ok {
		return ref, nil
	}
	u, err := r.users.GetUserByID(ctx, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		r.seen[id] = domain.UserRef{ID: id}
	case err != nil:
		return domain.UserRef{}, err
	default:
		r.seen[id] = u.Ref()
	}
	return r.seen[id], nil
}

func (r *refResolver) task(ctx context.Context, t domain.Task) (domain.TaskView, error) {
	createdBy, err := r.ref(ctx, t.CreatedBy)
	if err != nil {
		return domain.TaskView{}, err
	}
	view := domain.TaskView{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		CreatedBy:   createdBy,
		Tags:        t.Tags,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if view.Tags == nil {
		view.Tags = []string{}
	}
	if t.AssignedTo != "" {
		assignee, err := r.ref(ctx, t.AssignedTo)
		if err != nil {
			return domain.TaskView{}, err
		}
		view.AssignedTo = &assignee
	}
	return view, nil
}

func (r *refResolver) comment(ctx context.Context, c domain.Comment) (domain.CommentView, error) {
	author, err := r.ref(ctx, c.UserID)
	if err != nil {
		return domain.CommentView{}, err
	}
	return domain.CommentView{
		ID:        c.ID,
		TaskID:    c.TaskID,
		User:      author,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}, nil
}
