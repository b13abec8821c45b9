package payment

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/frahmantamala/linkup-hub/internal/core/datamodel/payment"
	"github.com/frahmantamala/linkup-hub/internal/core/datamodel/rsvp"
	"github.com/frahmantamala/linkup-hub/internal/core/events"
	"github.com/frahmantamala/linkup-hub/internal/daraja"
	"go.opentelemetry.io/otel/attribute"
)

const guardReleaseTimeout = 2 * time.Second

type ReconcileResult struct {
	Outcome           Outcome
	CheckoutRequestID string
	ResultCode        *int
	Err               error
}

// Ack is the body returned to the provider whatever the outcome.
func (ReconcileResult) Ack() daraja.Acknowledgement {
	return daraja.Accepted
}

type Reconciler struct {
	repo     RepositoryAPI
	grants   GrantIssuer
	guard    CallbackGuard
	eventBus *events.EventBus
	metrics  *Metrics
	logger   *slog.Logger
}

type ReconcilerParams struct {
	Repository RepositoryAPI
	Grants     GrantIssuer
	Guard      CallbackGuard
	EventBus   *events.EventBus
	Metrics    *Metrics
	Logger     *slog.Logger
}

func NewReconciler(params ReconcilerParams) *Reconciler {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		repo:     params.Repository,
		grants:   params.Grants,
		guard:    params.Guard,
		eventBus: params.EventBus,
		metrics:  params.Metrics,
		logger:   logger,
	}
}

// Reconcile applies one provider callback. It never fails: every problem is
// reported through the Outcome so the caller can always acknowledge.
func (r *Reconciler) Reconcile(ctx context.Context, raw []byte) ReconcileResult {
	ctx, span := tracer.Start(ctx, "payment.reconcile")
	defer span.End()

	start := time.Now()
	result := r.reconcile(ctx, raw)
	r.metrics.ObserveReconcile(time.Since(start))

	span.SetAttributes(
		attribute.String("outcome", string(result.Outcome)),
		attribute.String("checkout_request_id", result.CheckoutRequestID),
	)
	r.audit(context.WithoutCancel(ctx), raw, result)
	return result
}

func (r *Reconciler) reconcile(ctx context.Context, raw []byte) ReconcileResult {
	cb, err := daraja.ParseCallback(raw)
	if err != nil {
		return ReconcileResult{Outcome: OutcomeMalformed, Err: err}
	}

	code := cb.ResultCode
	result := ReconcileResult{CheckoutRequestID: cb.CheckoutRequestID, ResultCode: &code}

	claimed := false
	if r.guard != nil {
		first, err := r.guard.Claim(ctx, cb.CheckoutRequestID)
		switch {
		case err != nil:
			r.logger.Warn("callback guard unavailable, continuing without it",
				"checkout_request_id", cb.CheckoutRequestID, "error", err)
		case !first:
			result.Outcome = OutcomeDuplicate
			return result
		default:
			claimed = true
		}
	}

	result.Outcome, result.Err = r.apply(ctx, cb, raw)

	if claimed {
		switch result.Outcome {
		case OutcomeError, OutcomeUnknownTransaction, OutcomeInconsistentState:
			// let a redelivery or the sweeper try again, even if ctx is already done
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), guardReleaseTimeout)
			err := r.guard.Release(releaseCtx, cb.CheckoutRequestID)
			cancel()
			if err != nil {
				r.logger.Warn("failed to release callback guard",
					"checkout_request_id", cb.CheckoutRequestID, "error", err)
			}
		}
	}
	return result
}

func (r *Reconciler) apply(ctx context.Context, cb *daraja.Callback, raw []byte) (Outcome, error) {
	p, err := r.repo.GetByCheckoutRequestID(ctx, cb.CheckoutRequestID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return OutcomeUnknownTransaction, err
		}
		return OutcomeError, err
	}
	if p.IsTerminal() {
		return OutcomeDuplicate, nil
	}

	return r.Settle(ctx, p, Transition{
		CheckoutRequestID: cb.CheckoutRequestID,
		ResultCode:        cb.ResultCode,
		ResultDesc:        cb.ResultDesc,
		ReceiptNumber:     cb.ReceiptNumber(),
		RawCallback:       json.RawMessage(raw),
	})
}

// Settle moves a Pending payment to its final state. The callback path and
// the stale-payment sweep both go through here.
func (r *Reconciler) Settle(ctx context.Context, p *payment.Payment, t Transition) (Outcome, error) {
	if t.ResultCode != daraja.ResultCodeSuccess {
		if err := r.repo.MarkFailed(ctx, t); err != nil {
			if errors.Is(err, ErrAlreadyResolved) {
				return OutcomeDuplicate, nil
			}
			return OutcomeError, err
		}
		r.publish(ctx, events.NewPaymentFailedEvent(p.ID, p.CheckoutRequestID, p.EventID, p.UserID, p.Amount, t.ResultCode, t.ResultDesc))
		return OutcomeFailed, nil
	}

	grant, err := r.grants.Issue(p.EventID, p.UserID, &p.ID)
	if err != nil {
		return OutcomeError, err
	}

	granted, err := r.repo.MarkCompleted(ctx, t, grant)
	switch {
	case errors.Is(err, ErrAlreadyResolved):
		return OutcomeDuplicate, nil
	case errors.Is(err, ErrGrantWrite):
		r.publish(ctx, events.NewPaymentCompletedEvent(p.ID, p.CheckoutRequestID, p.EventID, p.UserID, p.Amount, t.ReceiptNumber))
		return OutcomeInconsistentState, err
	case err != nil:
		return OutcomeError, err
	}

	r.publish(ctx, events.NewPaymentCompletedEvent(p.ID, p.CheckoutRequestID, p.EventID, p.UserID, p.Amount, t.ReceiptNumber))
	if granted {
		r.publishGrant(ctx, grant)
	}
	return OutcomeCompleted, nil
}

func (r *Reconciler) publishGrant(ctx context.Context, grant *rsvp.AccessGrant) {
	paymentID := ""
	if grant.PaymentID != nil {
		paymentID = *grant.PaymentID
	}
	r.publish(ctx, events.NewAccessGrantedEvent(grant.ID, grant.EventID, grant.UserID, paymentID))
}

func (r *Reconciler) publish(ctx context.Context, event events.Event) {
	if r.eventBus == nil {
		return
	}
	if err := r.eventBus.Publish(ctx, event); err != nil {
		r.logger.Warn("failed to publish event", "event_type", event.EventType(), "error", err)
	}
}

func (r *Reconciler) audit(ctx context.Context, raw []byte, result ReconcileResult) {
	payload := json.RawMessage(raw)
	if !json.Valid(raw) {
		// keep unparseable bodies as a JSON string so the column stays valid
		quoted, _ := json.Marshal(string(raw))
		payload = quoted
	}

	entry := &payment.CallbackLog{
		CheckoutRequestID: result.CheckoutRequestID,
		ResultCode:        result.ResultCode,
		Outcome:           string(result.Outcome),
		Payload:           payload,
	}
	if err := r.repo.RecordCallback(ctx, entry); err != nil {
		r.logger.Warn("failed to record callback audit entry",
			"checkout_request_id", result.CheckoutRequestID, "error", err)
	}
}
