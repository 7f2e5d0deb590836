package http

import (
	"net/http"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/domain"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/service"
	"github.com/aussiebroadwan/taskflow/pkg/httpx"
	"github.com/aussiebroadwan/taskflow/pkg/slogx"
	"github.com/aussiebroadwan/taskflow/pkg/taskflowsdk"
)

type BootstrapHandler struct {
	BootstrapService *service.BootstrapService
}

// ServeHTTP creates the first administrator.
//
//	@Summary		Bootstrap the first administrator
//	@Description	Only succeeds while no users exist, and only with the configured bootstrap token when one is set.
//	@Tags			Bootstrap
//	@Accept			json
//	@Produce		json
//	@Param			request	body		taskflowsdk.BootstrapRequest	true	"Bootstrap token and administrator account"
//	@Success		201		{object}	taskflowsdk.AuthResponse
//	@Failure		400		{object}	httpx.ErrorResponse
//	@Failure		403		{object}	httpx.ErrorResponse	"bootstrap token mismatch"
//	@Failure		409		{object}	httpx.ErrorResponse	"already bootstrapped"
//	@Router			/api/bootstrap [post].
func (h *BootstrapHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	slogx.FromContext(r.Context()).Info("bootstrap requested")

	var req taskflowsdk.BootstrapRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Token == "" {
		req.Token = r.Header.Get("X-Bootstrap-Token")
	}

	res, err := h.BootstrapService.Bootstrap(r.Context(), domain.BootstrapData{
		Token:    req.Token,
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
