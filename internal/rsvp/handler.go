package rsvp

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

// RSVP handles POST /api/v1/events/{id}/rsvp
func (h *Handler) RSVP(w http.ResponseWriter, r *http.Request) {
	userID := internal.UserIDFromContext(r.Context())
	if userID == "" {
		h.HandleError(w, internal.NewUnauthorizedError("Not authorized, no token", internal.ErrCodeInvalidToken))
		return
	}

	grant, err := h.Service.RSVP(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, ToTicketResponse(grant))
}

// ListMine handles GET /api/v1/rsvps/me
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID := internal.UserIDFromContext(r.Context())
	if userID == "" {
		h.HandleError(w, internal.NewUnauthorizedError("Not authorized, no token", internal.ErrCodeInvalidToken))
		return
	}

	grants, err := h.Service.ListMine(r.Context(), userID)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ToTicketResponses(grants))
}

// Verify handles POST /api/v1/rsvps/verify
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := h.DecodeJSON(w, r, &req); err != nil {
		h.HandleError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.HandleError(w, err)
		return
	}

	ticket, err := h.Service.Verify(r.Context(), req.Token)
	if err != nil {
		h.Logger.Info("ticket rejected", "error", err)
		h.HandleError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, VerifyResponse{
		Valid:      true,
		TicketCode: ticket.Grant.TicketCode,
		EventID:    ticket.Grant.EventID,
		UserID:     ticket.Grant.UserID,
		PaymentID:  ticket.Payload.PaymentID,
	})
}
