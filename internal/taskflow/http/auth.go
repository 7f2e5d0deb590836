package http

import (
	"net/http"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/service"
	"github.com/aussiebroadwan/taskflow/pkg/httpx"
	"github.com/aussiebroadwan/taskflow/pkg/taskflowsdk"
)

type AuthHandler struct {
	Accounts *service.AccountService
	Resets   *service.ResetService
}

// HandleRegister creates an account with role user.
//
//	@Summary		Register
//	@Description	Creates a user account and returns a session token. All field violations are reported together.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		taskflowsdk.RegisterRequest	true	"New account"
//	@Success		201		{object}	taskflowsdk.AuthResponse
//	@Failure		400		{object}	httpx.ErrorResponse	"validation failed or email already registered"
//	@Router			/api/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req taskflowsdk.RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.Accounts.Register(r.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, res)
}

// HandleLogin exchanges credentials for a session token.
//
//	@Summary		Login
//	@Description	Unknown email and wrong password produce the same 401.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		taskflowsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	taskflowsdk.AuthResponse
//	@Failure		400		{object}	httpx.ErrorResponse
//	@Failure		401		{object}	httpx.ErrorResponse
//	@Failure		429		{object}	httpx.ErrorResponse
//	@Router			/api/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req taskflowsdk.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.Accounts.Login(r.Context(), service.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

// HandleProfile returns the caller's account.
//
//	@Summary	Current user profile
//	@Tags		Auth
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	taskflowsdk.UserResponse
//	@Failure	401	{object}	httpx.ErrorResponse
//	@Failure	404	{object}	httpx.ErrorResponse
//	@Router		/api/auth/profile [get].
func (h *AuthHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	id := httpx.MustIdentity(r.Context())
	user, err := h.Accounts.GetProfile(r.Context(), id.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, userEnvelope{User: user})
}

// HandleChangePassword replaces the caller's password.
//
//	@Summary	Change password
//	@Tags		Auth
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		request	body		taskflowsdk.ChangePasswordRequest	true	"Current and new password"
//	@Success	200		{object}	taskflowsdk.MessageResponse
//	@Failure	400		{object}	httpx.ErrorResponse
//	@Failure	401		{object}	httpx.ErrorResponse
//	@Router		/api/auth/change-password [put].
func (h *AuthHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req taskflowsdk.ChangePasswordRequest
	if !decode(w, r, &req) {
		return
	}
	id := httpx.MustIdentity(r.Context())
	err := h.Accounts.ChangePassword(r.Context(), id.UserID, service.ChangePasswordInput{
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, taskflowsdk.MessageResponse{Message: "password updated successfully"})
}

// HandleForgotPassword starts a self-service reset.
//
//	@Summary		Request a password reset link
//	@Description	The response is the same whether or not the email is registered. Token and link are echoed only outside production.
//	@Tags			Password Reset
//	@Accept			json
//	@Produce		json
//	@Param			request	body		taskflowsdk.ForgotPasswordRequest	true	"Account email"
//	@Success		200		{object}	taskflowsdk.ForgotPasswordResponse
//	@Failure		400		{object}	httpx.ErrorResponse
//	@Router			/api/auth/forgot-password [post].
func (h *AuthHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req taskflowsdk.ForgotPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.Resets.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

// HandleVerifyReset checks a reset token without consuming it.
//
//	@Summary	Verify a reset token
//	@Tags		Password Reset
//	@Produce	json
//	@Param		token	path		string	true	"Reset token"
//	@Success	200		{object}	taskflowsdk.VerifyResetResponse
//	@Failure	400		{object}	httpx.ErrorResponse	"token unknown or expired"
//	@Router		/api/auth/reset-password/{token} [get].
func (h *AuthHandler) HandleVerifyReset(w http.ResponseWriter, r *http.Request) {
	if err := h.Resets.VerifyResetToken(r.Context(), r.PathValue("token")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, taskflowsdk.VerifyResetResponse{Valid: true})
}

// HandleCompleteReset sets a new password using a reset token.
//
//	@Summary	Complete a password reset
//	@Tags		Password Reset
//	@Accept		json
//	@Produce	json
//	@Param		token	path		string						true	"Reset token"
//	@Param		request	body		taskflowsdk.PasswordRequest	true	"New password"
//	@Success	200		{object}	taskflowsdk.MessageResponse
//	@Failure	400		{object}	httpx.ErrorResponse
//	@Router		/api/auth/reset-password/{token} [post].
func (h *AuthHandler) HandleCompleteReset(w http.ResponseWriter, r *http.Request) {
	var req taskflowsdk.PasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.Resets.CompleteReset(r.Context(), r.PathValue("token"), req.Password); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, taskflowsdk.MessageResponse{Message: "password has been reset"})
}
