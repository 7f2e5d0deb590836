package http

import (
	"net/http"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/service"
	"github.com/aussiebroadwan/taskflow/pkg/httpx"
	"github.com/aussiebroadwan/taskflow/pkg/idx"
	"github.com/aussiebroadwan/taskflow/pkg/taskflowsdk"
)

type TaskHandler struct {
	Tasks *service.TaskService
}

// pathID returns a path value that must be a ULID or an imported ObjectID,
// answering 404 with notFound itself otherwise.
func pathID(w http.ResponseWriter, r *http.Request, name string, notFound error) (string, bool) {
	id := r.PathValue(name)
	if !idx.Known(id) {
		httpx.WriteError(w, http.StatusNotFound, httpx.CodeNotFound, notFound.Error())
		return "", false
	}
	return id, true
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// HandleList godoc
//
//	@Summary		List tasks
//	@Description	Tasks the caller created or is assigned to, newest first. An unknown status is ignored. search is a literal, case-insensitive match on title or description.
//	@Tags			Tasks
//	@Produce		json
//	@Security		BearerAuth
//	@Param			status		query		string	false	"pending, in-progress or completed"
//	@Param			assignedTo	query		string	false	"Assignee user ID"
//	@Param			search		query		string	false	"Substring of title or description"
//	@Success		200			{array}		taskflowsdk.Task
//	@Failure		401			{object}	httpx.ErrorResponse
//	@Router			/api/tasks [get].
func (h *TaskHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	id := httpx.MustIdentity(r.Context())
	q := r.URL.Query()
	tasks, err := h.Tasks.ListTasks(r.Context(), id.UserID, service.TaskQuery{
		Status:     q.Get("status"),
		AssignedTo: q.Get("assignedTo"),
		Search:     q.Get("search"),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tasks)
}

// HandleGet godoc
//
//	@Summary	Get a task
//	@Tags		Tasks
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"Task ID"
//	@Success	200	{object}	taskflowsdk.Task
//	@Failure	403	{object}	httpx.ErrorResponse
//	@Failure	404	{object}	httpx.ErrorResponse
//	@Router		/api/tasks/{id} [get].
func (h *TaskHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathID(w, r, "id", service.ErrTaskNotFound)
	if !ok {
		return
	}
	id := httpx.MustIdentity(r.Context())
	task, err := h.Tasks.GetTask(r.Context(), id.UserID, taskID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, task)
}

// HandleCreate godoc
//
//	@Summary	Create a task
//	@Tags		Tasks
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		request	body		taskflowsdk.TaskRequest	true	"Task"
//	@Success	201		{object}	taskflowsdk.Task
//	@Failure	400		{object}	httpx.ErrorResponse
//	@Router		/api/tasks [post].
func (h *TaskHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req taskflowsdk.TaskRequest
	if !decode(w, r, &req) {
		return
	}
	id := httpx.MustIdentity(r.Context())
	task, err := h.Tasks.CreateTask(r.Context(), id.UserID, service.CreateTaskInput{
		Title:       deref(req.Title),
		Description: deref(req.Description),
		Status:      deref(req.Status),
		AssignedTo:  deref(req.AssignedTo),
		Tags:        deref(req.Tags),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, task)
}

// HandleUpdate godoc
//
//	@Summary		Update a task
//	@Description	Creator or assignee only. Omitted fields keep their values; an empty assignedTo unassigns.
//	@Tags			Tasks
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string					true	"Task ID"
//	@Param			request	body		taskflowsdk.TaskRequest	true	"Fields to change"
//	@Success		200		{object}	taskflowsdk.Task
//	@Failure		400		{object}	httpx.ErrorResponse
//	@Failure		403		{object}	httpx.ErrorResponse
//	@Failure		404		{object}	httpx.ErrorResponse
//	@Router			/api/tasks/{id} [put].
func (h *TaskHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathID(w, r, "id", service.ErrTaskNotFound)
	if !ok {
		return
	}
	var req taskflowsdk.TaskRequest
	if !decode(w, r, &req) {
		return
	}
	id := httpx.MustIdentity(r.Context())
	task, err := h.Tasks.UpdateTask(r.Context(), id.UserID, taskID, service.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		AssignedTo:  req.AssignedTo,
		Tags:        req.Tags,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, task)
}

// HandleDelete godoc
//
//	@Summary	Delete a task and its comments
//	@Tags		Tasks
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"Task ID"
//	@Success	200	{object}	taskflowsdk.MessageResponse
//	@Failure	403	{object}	httpx.ErrorResponse	"only the creator may delete"
//	@Failure	404	{object}	httpx.ErrorResponse
//	@Router		/api/tasks/{id} [delete].
func (h *TaskHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathID(w, r, "id", service.ErrTaskNotFound)
	if !ok {
		return
	}
	id := httpx.MustIdentity(r.Context())
	if err := h.Tasks.DeleteTask(r.Context(), id.UserID, taskID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, taskflowsdk.MessageResponse{Message: "task removed"})
}
