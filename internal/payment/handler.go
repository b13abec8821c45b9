package payment

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/linkup-hub/internal"
	"github.com/frahmantamala/linkup-hub/internal/transport"
	"github.com/go-chi/chi"
)

type Handler struct {
	*transport.BaseHandler
	PaymentService ServiceAPI
	Logger         *slog.Logger
}

func NewHandler(baseHandler *transport.BaseHandler, paymentService ServiceAPI, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler:    baseHandler,
		PaymentService: paymentService,
		Logger:         logger,
	}
}

// InitiatePayment handles POST /api/v1/payments/initiate
func (h *Handler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	userID := internal.UserIDFromContext(r.Context())
	if userID == "" {
		h.HandleError(w, internal.NewUnauthorizedError("Not authorized, no token", internal.ErrCodeInvalidToken))
		return
	}

	var req InitiatePaymentRequest
	if err := h.DecodeJSON(w, r, &req); err != nil {
		h.HandleError(w, err)
		return
	}

	result, err := h.PaymentService.InitiatePayment(r.Context(), userID, &req)
	if err != nil {
		h.Logger.Warn("InitiatePayment: rejected", "error", err, "user_id", userID, "event_id", req.EventID)
		h.HandleError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, InitiatePaymentResponse{
		Message:        "STK push initiated. Please check your phone.",
		InitiateResult: result,
	})
}

// ListPayments handles GET /api/v1/payments
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	userID := internal.UserIDFromContext(r.Context())
	if userID == "" {
		h.HandleError(w, internal.NewUnauthorizedError("Not authorized, no token", internal.ErrCodeInvalidToken))
		return
	}

	payments, err := h.PaymentService.ListPayments(r.Context(), userID)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ToPaymentResponses(payments))
}

// GetPayment handles GET /api/v1/payments/{id}
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	userID := internal.UserIDFromContext(r.Context())
	if userID == "" {
		h.HandleError(w, internal.NewUnauthorizedError("Not authorized, no token", internal.ErrCodeInvalidToken))
		return
	}

	p, err := h.PaymentService.GetPayment(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ToPaymentResponse(p))
}
