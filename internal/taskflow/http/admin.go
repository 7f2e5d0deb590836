package http

import (
	"net/http"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/domain"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/service"
	"github.com/aussiebroadwan/taskflow/pkg/httpx"
	"github.com/aussiebroadwan/taskflow/pkg/idx"
	"github.com/aussiebroadwan/taskflow/pkg/taskflowsdk"
)

type userEnvelope struct {
	User domain.PublicUser `json:"user"`
}

type AdminHandler struct {
	Admin *service.AdminService
}

// userID returns the {id} path value, answering 404 itself for ids that
// cannot exist.
func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	return pathID(w, r, "id", service.ErrUserNotFound)
}

// HandleListUsers godoc
//
//	@Summary	List users
//	@Tags		Admin
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	taskflowsdk.UsersResponse
//	@Failure	401	{object}	httpx.ErrorResponse
//	@Failure	403	{object}	httpx.ErrorResponse
//	@Router		/api/admin/users [get].
func (h *AdminHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Admin.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, struct {
		Users []domain.PublicUser `json:"users"`
	}{users})
}

// HandleGetUser godoc
//
//	@Summary	Get a user
//	@Tags		Admin
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"User ID"
//	@Success	200	{object}	taskflowsdk.UserResponse
//	@Failure	404	{object}	httpx.ErrorResponse
//	@Router		/api/admin/users/{id} [get].
func (h *AdminHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	user, err := h.Admin.GetUser(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, userEnvelope{User: user})
}

// HandleUpdateRole godoc
//
//	@Summary	Change a user's role
//	@Tags		Admin
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		string							true	"User ID"
//	@Param		request	body		taskflowsdk.UpdateRoleRequest	true	"New role"
//	@Success	200		{object}	taskflowsdk.RoleUpdateResponse
//	@Failure	400		{object}	httpx.ErrorResponse	"role is not user or admin"
//	@Failure	404		{object}	httpx.ErrorResponse
//	@Router		/api/admin/users/{id}/role [put].
func (h *AdminHandler) HandleUpdateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	var req taskflowsdk.UpdateRoleRequest
	if !decode(w, r, &req) {
		return
	}
	user, err := h.Admin.UpdateRole(r.Context(), id, req.Role)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, struct {
		Message string            `json:"message"`
		User    domain.PublicUser `json:"user"`
	}{"user role updated to " + user.Role, user})
}

// HandleResetPassword godoc
//
//	@Summary		Set a temporary password
//	@Description	The user must change it at next login.
//	@Tags			Admin
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string								true	"User ID"
//	@Param			request	body		taskflowsdk.AdminPasswordRequest	true	"Temporary password"
//	@Success		200		{object}	taskflowsdk.MessageResponse
//	@Failure		400		{object}	httpx.ErrorResponse
//	@Failure		404		{object}	httpx.ErrorResponse
//	@Router			/api/admin/users/{id}/password [put].
func (h *AdminHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	var req taskflowsdk.AdminPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	h.resetPassword(w, r, id, req.NewPassword)
}

// HandleResetPasswordByBody godoc
//
//	@Summary		Set a temporary password, user named in the body
//	@Tags			Admin
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		taskflowsdk.AdminPasswordRequest	true	"User ID and temporary password"
//	@Success		200		{object}	taskflowsdk.MessageResponse
//	@Failure		400		{object}	httpx.ErrorResponse
//	@Failure		404		{object}	httpx.ErrorResponse
//	@Router			/api/admin/users/reset-password [post].
func (h *AdminHandler) HandleResetPasswordByBody(w http.ResponseWriter, r *http.Request) {
	var req taskflowsdk.AdminPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if !idx.Known(req.UserID) {
		httpx.WriteError(w, http.StatusNotFound, httpx.CodeNotFound, service.ErrUserNotFound.Error())
		return
	}
	h.resetPassword(w, r, req.UserID, req.NewPassword)
}

func (h *AdminHandler) resetPassword(w http.ResponseWriter, r *http.Request, id, password string) {
	msg, err := h.Admin.ResetPassword(r.Context(), id, password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, taskflowsdk.MessageResponse{Message: msg})
}

// HandleResetLink godoc
//
//	@Summary		Issue a password reset link
//	@Description	Emails the link when mail is configured and notifies connected administrators. Token and link are returned only outside production.
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"User ID"
//	@Success		200	{object}	taskflowsdk.ResetLinkResponse
//	@Failure		404	{object}	httpx.ErrorResponse
//	@Router			/api/admin/users/{id}/reset-password-email [post].
func (h *AdminHandler) HandleResetLink(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	link, err := h.Admin.RequestPasswordResetLink(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, link)
}
