package payment

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/frahmantamala/linkup-hub/internal/transport"
)

const (
	maxCallbackBytes = 1 << 20
	callbackTimeout  = 15 * time.Second
)

type CallbackReconciler interface {
	Reconcile(ctx context.Context, raw []byte) ReconcileResult
}

type WebhookHandler struct {
	*transport.BaseHandler
	reconciler CallbackReconciler
	metrics    *Metrics
	logger     *slog.Logger
}

func NewWebhookHandler(baseHandler *transport.BaseHandler, reconciler CallbackReconciler, metrics *Metrics, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler: baseHandler,
		reconciler:  reconciler,
		metrics:     metrics,
		logger:      logger,
	}
}

// HandleCallback handles POST /api/v1/payments/callback. The provider retries
// anything other than 200 + Accepted, so that is the only answer it ever gets.
func (h *WebhookHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCallbackBytes))
	if err != nil {
		h.logger.Warn("failed to read callback body", "error", err)
		raw = nil
	}

	// The provider may hang up before we finish; the settlement must not stop with it.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), callbackTimeout)
	defer cancel()

	result := h.reconciler.Reconcile(ctx, raw)
	h.metrics.IncCallback(result.Outcome)
	h.log(result)

	h.WriteJSON(w, http.StatusOK, result.Ack())
}

func (h *WebhookHandler) log(result ReconcileResult) {
	attrs := []any{
		"checkout_request_id", result.CheckoutRequestID,
		"outcome", string(result.Outcome),
	}
	if result.ResultCode != nil {
		attrs = append(attrs, "result_code", *result.ResultCode)
	}
	if result.Err != nil {
		attrs = append(attrs, "error", result.Err)
	}

	switch result.Outcome {
	case OutcomeCompleted, OutcomeFailed, OutcomeDuplicate:
		h.logger.Info("payment callback processed", attrs...)
	case OutcomeMalformed, OutcomeUnknownTransaction:
		h.logger.Warn("payment callback not applied", attrs...)
	case OutcomeInconsistentState:
		h.logger.Error("payment completed without access grant", append(attrs, "inconsistent_state", true)...)
	default:
		h.logger.Error("payment callback failed", attrs...)
	}
}
