package payment_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/frahmantamala/linkup-hub/internal/core/datamodel/event"
	"github.com/frahmantamala/linkup-hub/internal/core/datamodel/payment"
	"github.com/frahmantamala/linkup-hub/internal/core/datamodel/rsvp"
	"github.com/frahmantamala/linkup-hub/internal/daraja"
	paymentpkg "github.com/frahmantamala/linkup-hub/internal/payment"
	"github.com/google/uuid"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRepository keeps payments in memory and applies the same
// only-from-Pending rule as the database.
type fakeRepository struct {
	mu        sync.Mutex
	payments  map[string]*payment.Payment
	grants    map[string]*rsvp.AccessGrant
	callbacks []*payment.CallbackLog

	createErr   error
	lookupErr   error
	grantErr    error
	markCalls    int
	recordCalls  int
	getByIDCalls int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		payments: make(map[string]*payment.Payment),
		grants:   make(map[string]*rsvp.AccessGrant),
	}
}

func grantKey(eventID, userID string) string {
	return eventID + "/" + userID
}

func (f *fakeRepository) seed(p *payment.Payment) *payment.Payment {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	f.payments[p.CheckoutRequestID] = p
	return p
}

func (f *fakeRepository) get(checkoutRequestID string) *payment.Payment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.payments[checkoutRequestID]
}

func (f *fakeRepository) grantCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.grants)
}

func (f *fakeRepository) Create(ctx context.Context, p *payment.Payment) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.seed(p)
	return nil
}

func (f *fakeRepository) GetByID(ctx context.Context, id string) (*payment.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getByIDCalls++
	for _, p := range f.payments {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, paymentpkg.ErrNotFound
}

func (f *fakeRepository) GetByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*payment.Payment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[checkoutRequestID]
	if !ok {
		return nil, paymentpkg.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (f *fakeRepository) ListByUser(ctx context.Context, userID string) ([]*payment.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*payment.Payment
	for _, p := range f.payments {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRepository) resolve(status string, t paymentpkg.Transition) error {
	f.markCalls++
	p, ok := f.payments[t.CheckoutRequestID]
	if !ok || p.Status != payment.StatusPending {
		return paymentpkg.ErrAlreadyResolved
	}
	code, desc := t.ResultCode, t.ResultDesc
	p.Status = status
	p.ResultCode = &code
	p.ResultDesc = &desc
	if t.ReceiptNumber != "" {
		receipt := t.ReceiptNumber
		p.MpesaReceiptNumber = &receipt
	}
	p.RawCallback = t.RawCallback
	return nil
}

func (f *fakeRepository) MarkCompleted(ctx context.Context, t paymentpkg.Transition, grant *rsvp.AccessGrant) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.resolve(payment.StatusCompleted, t); err != nil {
		return false, err
	}
	if f.grantErr != nil {
		return false, fmt.Errorf("%w: %v", paymentpkg.ErrGrantWrite, f.grantErr)
	}
	key := grantKey(grant.EventID, grant.UserID)
	if _, exists := f.grants[key]; exists {
		return false, nil
	}
	f.grants[key] = grant
	return true, nil
}

func (f *fakeRepository) MarkFailed(ctx context.Context, t paymentpkg.Transition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resolve(payment.StatusFailed, t)
}

func (f *fakeRepository) ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*payment.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*payment.Payment
	for _, p := range f.payments {
		if p.Status == payment.StatusPending && p.CreatedAt.Before(cutoff) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRepository) ListCompletedWithoutGrant(ctx context.Context, limit int) ([]*payment.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*payment.Payment
	for _, p := range f.payments {
		if p.Status != payment.StatusCompleted {
			continue
		}
		if _, ok := f.grants[grantKey(p.EventID, p.UserID)]; !ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRepository) EnsureGrant(ctx context.Context, grant *rsvp.AccessGrant) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.grantErr != nil {
		return false, f.grantErr
	}
	key := grantKey(grant.EventID, grant.UserID)
	if _, ok := f.grants[key]; ok {
		return false, nil
	}
	f.grants[key] = grant
	return true, nil
}

func (f *fakeRepository) RecordCallback(ctx context.Context, entry *payment.CallbackLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recordCalls++
	f.callbacks = append(f.callbacks, entry)
	return nil
}

type fakeGateway struct {
	mu         sync.Mutex
	pushErr    error
	pushReq    *daraja.STKPushRequest
	pushCalls  int
	queryErr   error
	queryCode  int
	queryCalls int
}

func (g *fakeGateway) STKPush(ctx context.Context, req daraja.STKPushRequest) (*daraja.STKPushResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pushCalls++
	g.pushReq = &req
	if g.pushErr != nil {
		return nil, g.pushErr
	}
	return &daraja.STKPushResponse{
		MerchantRequestID:   "29115-34620561-1",
		CheckoutRequestID:   "ws_CO_" + uuid.NewString(),
		ResponseCode:        "0",
		ResponseDescription: "Success. Request accepted for processing",
		CustomerMessage:     "Success. Request accepted for processing",
	}, nil
}

func (g *fakeGateway) QueryStatus(ctx context.Context, checkoutRequestID string) (*daraja.QueryResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queryCalls++
	if g.queryErr != nil {
		return nil, g.queryErr
	}
	return &daraja.QueryResult{
		CheckoutRequestID: checkoutRequestID,
		ResultCode:        g.queryCode,
		ResultDesc:        fmt.Sprintf("result %d", g.queryCode),
	}, nil
}

type fakeIssuer struct {
	err error
}

func (i *fakeIssuer) Issue(eventID, userID string, paymentID *string) (*rsvp.AccessGrant, error) {
	if i.err != nil {
		return nil, i.err
	}
	return &rsvp.AccessGrant{
		ID:                  uuid.NewString(),
		EventID:             eventID,
		UserID:              userID,
		PaymentID:           paymentID,
		TicketCode:          "TCK-" + uuid.NewString()[:8],
		VerificationPayload: "signed",
	}, nil
}

type fakeGuard struct {
	mu       sync.Mutex
	seen     map[string]bool
	err      error
	released []string
}

func newFakeGuard() *fakeGuard {
	return &fakeGuard{seen: make(map[string]bool)}
}

func (g *fakeGuard) Claim(ctx context.Context, checkoutRequestID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return false, g.err
	}
	if g.seen[checkoutRequestID] {
		return false, nil
	}
	g.seen[checkoutRequestID] = true
	return true, nil
}

func (g *fakeGuard) Release(ctx context.Context, checkoutRequestID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.seen, checkoutRequestID)
	g.released = append(g.released, checkoutRequestID)
	return nil
}

type fakeEvents struct {
	events map[string]*event.Event
	err    error
}

func (f *fakeEvents) GetByID(ctx context.Context, id string) (*event.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	ev, ok := f.events[id]
	if !ok {
		return nil, errors.New("event not found")
	}
	return ev, nil
}

type fakeGrantChecker struct {
	has bool
	err error
}

func (f *fakeGrantChecker) HasGrant(ctx context.Context, eventID, userID string) (bool, error) {
	return f.has, f.err
}

func newPending(checkoutID string) *payment.Payment {
	return &payment.Payment{
		ID:                uuid.NewString(),
		UserID:            uuid.NewString(),
		EventID:           uuid.NewString(),
		PhoneNumber:       "254712345678",
		CheckoutRequestID: checkoutID,
		Status:            payment.StatusPending,
	}
}
