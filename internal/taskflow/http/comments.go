package http

import (
	"net/http"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/service"
	"github.com/aussiebroadwan/taskflow/pkg/httpx"
	"github.com/aussiebroadwan/taskflow/pkg/taskflowsdk"
)

type CommentHandler struct {
	Comments *service.CommentService
}

// HandleList godoc
//
//	@Summary	List a task's comments
//	@Tags		Comments
//	@Produce	json
//	@Security	BearerAuth
//	@Param		taskId	path		string	true	"Task ID"
//	@Success	200		{array}		taskflowsdk.Comment
//	@Failure	403		{object}	httpx.ErrorResponse
//	@Failure	404		{object}	httpx.ErrorResponse
//	@Router		/api/comments/task/{taskId} [get].
func (h *CommentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathID(w, r, "taskId", service.ErrTaskNotFound)
	if !ok {
		return
	}
	id := httpx.MustIdentity(r.Context())
	comments, err := h.Comments.ListComments(r.Context(), id.UserID, taskID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, comments)
}

// HandleCreate godoc
//
//	@Summary	Comment on a task
//	@Tags		Comments
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		taskId	path		string						true	"Task ID"
//	@Param		request	body		taskflowsdk.CommentRequest	true	"Comment"
//	@Success	201		{object}	taskflowsdk.Comment
//	@Failure	400		{object}	httpx.ErrorResponse
//	@Failure	403		{object}	httpx.ErrorResponse
//	@Failure	404		{object}	httpx.ErrorResponse
//	@Router		/api/comments/task/{taskId} [post].
func (h *CommentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathID(w, r, "taskId", service.ErrTaskNotFound)
	if !ok {
		return
	}
	var req taskflowsdk.CommentRequest
	if !decode(w, r, &req) {
		return
	}
	id := httpx.MustIdentity(r.Context())
	c, err := h.Comments.CreateComment(r.Context(), id.UserID, taskID, req.Content)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, c)
}

// HandleUpdate godoc
//
//	@Summary	Edit a comment
//	@Tags		Comments
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		commentId	path		string						true	"Comment ID"
//	@Param		request		body		taskflowsdk.CommentRequest	true	"New content"
//	@Success	200			{object}	taskflowsdk.Comment
//	@Failure	403			{object}	httpx.ErrorResponse	"only the author may edit"
//	@Failure	404			{object}	httpx.ErrorResponse
//	@Router		/api/comments/{commentId} [put].
func (h *CommentHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	commentID, ok := pathID(w, r, "commentId", service.ErrCommentNotFound)
	if !ok {
		return
	}
	var req taskflowsdk.CommentRequest
	if !decode(w, r, &req) {
		return
	}
	id := httpx.MustIdentity(r.Context())
	c, err := h.Comments.UpdateComment(r.Context(), id.UserID, commentID, req.Content)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, c)
}

// HandleDelete godoc
//
//	@Summary	Delete a comment
//	@Tags		Comments
//	@Produce	json
//	@Security	BearerAuth
//	@Param		commentId	path		string	true	"Comment ID"
//	@Success	200			{object}	taskflowsdk.MessageResponse
//	@Failure	403			{object}	httpx.ErrorResponse	"only the author or the task creator may delete"
//	@Failure	404			{object}	httpx.ErrorResponse
//	@Router		/api/comments/{commentId} [delete].
func (h *CommentHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	commentID, ok := pathID(w, r, "commentId", service.ErrCommentNotFound)
	if !ok {
		return
	}
	id := httpx.MustIdentity(r.Context())
	if err := h.Comments.DeleteComment(r.Context(), id.UserID, commentID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, taskflowsdk.MessageResponse{Message: "comment removed"})
}
