package profile

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/linkup-hub/internal"
	"github.com/frahmantamala/linkup-hub/internal/transport"
)

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	Logger  *slog.Logger
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
		Logger:      logger,
	}
}

// GetMe handles GET /api/v1/profiles/me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := internal.UserIDFromContext(r.Context())
	if userID == "" {
		h.HandleError(w, internal.NewUnauthorizedError("Not authorized, no token", internal.ErrCodeInvalidToken))
		return
	}

	p, err := h.Service.GetByID(r.Context(), userID)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ToProfileResponse(p))
}

// UpdateMe handles PUT /api/v1/profiles/me
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID := internal.UserIDFromContext(r.Context())
	if userID == "" {
		h.HandleError(w, internal.NewUnauthorizedError("Not authorized, no token", internal.ErrCodeInvalidToken))
		return
	}

	var req UpdateProfileRequest
	if err := h.DecodeJSON(w, r, &req); err != nil {
		h.HandleError(w, err)
		return
	}

	p, err := h.Service.UpdateMe(r.Context(), userID, &req)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ToProfileResponse(p))
}
