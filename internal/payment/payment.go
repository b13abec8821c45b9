package payment

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/frahmantamala/linkup-hub/internal/core/datamodel/event"
	"github.com/frahmantamala/linkup-hub/internal/core/datamodel/payment"
	"github.com/frahmantamala/linkup-hub/internal/core/datamodel/rsvp"
	"github.com/frahmantamala/linkup-hub/internal/daraja"
	"go.opentelemetry.io/otel"
)

var (
	ErrNotFound        = errors.New("payment not found")
	ErrAlreadyResolved = errors.New("payment already resolved")
	// ErrGrantWrite means the payment was marked Completed but its access grant was not stored.
	ErrGrantWrite = errors.New("access grant write failed")
)

const (
	// sweeper expiry marker; provider result codes are never negative
	ResultCodeExpired = -1
	ResultDescExpired = "expired without callback"
)

var tracer = otel.Tracer("github.com/frahmantamala/linkup-hub/internal/payment")

type Outcome string

const (
	OutcomeCompleted          Outcome = "completed"
	OutcomeFailed             Outcome = "failed"
	OutcomeDuplicate          Outcome = "duplicate"
	OutcomeUnknownTransaction Outcome = "unknown_transaction"
	OutcomeMalformed          Outcome = "malformed"
	OutcomeInconsistentState  Outcome = "inconsistent_state"
	OutcomeError              Outcome = "error"
)

// Transition carries the provider result written onto a Pending payment.
type Transition struct {
	CheckoutRequestID string
	ResultCode        int
	ResultDesc        string
	ReceiptNumber     string
	RawCallback       json.RawMessage
}

type Gateway interface {
	STKPush(ctx context.Context, req daraja.STKPushRequest) (*daraja.STKPushResponse, error)
	QueryStatus(ctx context.Context, checkoutRequestID string) (*daraja.QueryResult, error)
}

type RepositoryAPI interface {
	Create(ctx context.Context, p *payment.Payment) error
	GetByID(ctx context.Context, id string) (*payment.Payment, error)
	GetByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*payment.Payment, error)
	ListByUser(ctx context.Context, userID string) ([]*payment.Payment, error)
	// MarkCompleted moves a Pending payment to Completed and stores grant in the
	// same transaction. granted is false when the user already held a grant.
	MarkCompleted(ctx context.Context, t Transition, grant *rsvp.AccessGrant) (granted bool, err error)
	MarkFailed(ctx context.Context, t Transition) error
	ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*payment.Payment, error)
	ListCompletedWithoutGrant(ctx context.Context, limit int) ([]*payment.Payment, error)
	EnsureGrant(ctx context.Context, grant *rsvp.AccessGrant) (bool, error)
	RecordCallback(ctx context.Context, entry *payment.CallbackLog) error
}

type ServiceAPI interface {
	InitiatePayment(ctx context.Context, payerID string, req *InitiatePaymentRequest) (*InitiateResult, error)
	GetPayment(ctx context.Context, payerID, id string) (*payment.Payment, error)
	ListPayments(ctx context.Context, payerID string) ([]*payment.Payment, error)
}

type EventLookup interface {
	GetByID(ctx context.Context, id string) (*event.Event, error)
}

type GrantChecker interface {
	HasGrant(ctx context.Context, eventID, userID string) (bool, error)
}

// GrantIssuer builds a signed access grant; it does not persist anything.
type GrantIssuer interface {
	Issue(eventID, userID string, paymentID *string) (*rsvp.AccessGrant, error)
}

// CallbackGuard drops provider redeliveries before they reach the database.
type CallbackGuard interface {
	Claim(ctx context.Context, checkoutRequestID string) (bool, error)
	Release(ctx context.Context, checkoutRequestID string) error
}
