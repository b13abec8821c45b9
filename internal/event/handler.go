package event

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/linkup-hub/internal"
	"github.com/frahmantamala/linkup-hub/internal/transport"
	"github.com/go-chi/chi"
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

// List handles GET /api/v1/events
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	events, err := h.Service.List(r.Context())
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ToEventResponses(events))
}

// Get handles GET /api/v1/events/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	e, err := h.Service.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ToEventResponse(e))
}

// Create handles POST /api/v1/events
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if err := h.DecodeJSON(w, r, &req); err != nil {
		h.HandleError(w, err)
		return
	}

	e, err := h.Service.Create(r.Context(), internal.UserIDFromContext(r.Context()), &req)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, ToEventResponse(e))
}

// Update handles PUT /api/v1/events/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if err := h.DecodeJSON(w, r, &req); err != nil {
		h.HandleError(w, err)
		return
	}

	e, err := h.Service.Update(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ToEventResponse(e))
}

// Delete handles DELETE /api/v1/events/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.HandleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
