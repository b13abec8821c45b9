package payment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/linkup-hub/internal/core/datamodel/payment"
	"github.com/frahmantamala/linkup-hub/internal/core/events"
)

type EventHandler struct {
	metrics *Metrics
	logger  *slog.Logger
}

func NewEventHandler(metrics *Metrics, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		metrics: metrics,
		logger:  logger,
	}
}

func (h *EventHandler) HandlePaymentCompleted(ctx context.Context, event events.Event) error {
	completed, ok := event.(*events.PaymentCompletedEvent)
	if !ok {
		h.logger.Error("invalid event type for payment completed handler", "event_type", event.EventType())
		return fmt.Errorf("expected PaymentCompletedEvent, got %T", event)
	}

	h.metrics.AddSettled(payment.StatusCompleted, completed.Amount)
	h.logger.Info("payment settled",
		"payment_id", completed.PaymentID,
		"checkout_request_id", completed.CheckoutRequestID,
		"event_id", completed.HubEventID,
		"user_id", completed.UserID,
		"amount", completed.Amount.String(),
		"receipt_number", completed.ReceiptNumber)
	return nil
}

func (h *EventHandler) HandlePaymentFailed(ctx context.Context, event events.Event) error {
	failed, ok := event.(*events.PaymentFailedEvent)
	if !ok {
		h.logger.Error("invalid event type for payment failed handler", "event_type", event.EventType())
		return fmt.Errorf("expected PaymentFailedEvent, got %T", event)
	}

	h.metrics.AddSettled(payment.StatusFailed, failed.Amount)
	h.logger.Info("payment failed",
		"payment_id", failed.PaymentID,
		"checkout_request_id", failed.CheckoutRequestID,
		"event_id", failed.HubEventID,
		"result_code", failed.ResultCode,
		"result_desc", failed.ResultDesc)
	return nil
}

func (h *EventHandler) HandleAccessGranted(ctx context.Context, event events.Event) error {
	granted, ok := event.(*events.AccessGrantedEvent)
	if !ok {
		return fmt.Errorf("expected AccessGrantedEvent, got %T", event)
	}

	h.logger.Info("access granted",
		"grant_id", granted.GrantID,
		"event_id", granted.HubEventID,
		"user_id", granted.UserID,
		"payment_id", granted.PaymentID)
	return nil
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(events.EventTypePaymentCompleted, h.HandlePaymentCompleted)
	eventBus.Subscribe(events.EventTypePaymentFailed, h.HandlePaymentFailed)
	eventBus.Subscribe(events.EventTypeAccessGranted, h.HandleAccessGranted)

	h.logger.Info("payment event handlers registered",
		"handlers", []string{events.EventTypePaymentCompleted, events.EventTypePaymentFailed, events.EventTypeAccessGranted})
}
