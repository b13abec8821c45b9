package payment

import (
	"context"
	"errors"
	"log/slog"

	"github.com/frahmantamala/linkup-hub/internal"
	"github.com/frahmantamala/linkup-hub/internal/core/datamodel/payment"
	"github.com/google/uuid"
)

// Service checks a payment request against the event before handing it to the Initiator.
type Service struct {
	initiator *Initiator
	repo      RepositoryAPI
	events    EventLookup
	grants    GrantChecker
	logger    *slog.Logger
}

func NewService(initiator *Initiator, repo RepositoryAPI, events EventLookup, grants GrantChecker, logger *slog.Logger) *Service {
	return &Service{
		initiator: initiator,
		repo:      repo,
		events:    events,
		grants:    grants,
		logger:    logger,
	}
}

func (s *Service) InitiatePayment(ctx context.Context, payerID string, req *InitiatePaymentRequest) (*InitiateResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ev, err := s.events.GetByID(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	if ev.IsFree {
		return nil, internal.NewValidationError("This event is free. RSVP instead of paying.", internal.ErrCodeEventIsFree)
	}
	if !req.Amount.Equal(ev.Price) {
		return nil, internal.NewValidationError("Amount does not match the event price.", internal.ErrCodeAmountMismatch).
			WithDetails(map[string]string{"expected": ev.Price.String(), "received": req.Amount.String()})
	}

	has, err := s.grants.HasGrant(ctx, ev.ID, payerID)
	if err != nil {
		return nil, internal.NewInternalError("failed to check existing ticket", err)
	}
	if has {
		return nil, internal.NewConflictError("You already have a ticket for this event.", internal.ErrCodeAlreadyHasTicket)
	}

	return s.initiator.Initiate(ctx, InitiateCommand{
		Amount:      *req.Amount,
		PhoneNumber: req.PhoneNumber,
		EventID:     ev.ID,
		PayerID:     payerID,
	})
}

// GetPayment hides other users' payments behind the same 404 as missing ones.
func (s *Service) GetPayment(ctx context.Context, payerID, id string) (*payment.Payment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, internal.NewNotFoundError("Payment not found", internal.ErrCodePaymentNotFound)
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, internal.NewNotFoundError("Payment not found", internal.ErrCodePaymentNotFound)
		}
		return nil, internal.NewInternalError("failed to load payment", err)
	}
	if p.UserID != payerID {
		return nil, internal.NewNotFoundError("Payment not found", internal.ErrCodePaymentNotFound)
	}
	return p, nil
}

func (s *Service) ListPayments(ctx context.Context, payerID string) ([]*payment.Payment, error) {
	payments, err := s.repo.ListByUser(ctx, payerID)
	if err != nil {
		return nil, internal.NewInternalError("failed to list payments", err)
	}
	return payments, nil
}
