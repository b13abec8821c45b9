package rsvp

import (
	"context"
	"errors"
	"log/slog"

	"github.com/frahmantamala/linkup-hub/internal"
	"github.com/frahmantamala/linkup-hub/internal/core/datamodel/rsvp"
	"github.com/frahmantamala/linkup-hub/internal/core/events"
)

var ErrNotFound = errors.New("access grant not found")

type Service struct {
	repo     RepositoryAPI
	events   EventLookup
	signer   *Signer
	eventBus *events.EventBus
	logger   *slog.Logger
}

func NewService(repo RepositoryAPI, eventLookup EventLookup, signer *Signer, eventBus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		events:   eventLookup,
		signer:   signer,
		eventBus: eventBus,
		logger:   logger,
	}
}

// RSVP grants access to a free event. Paid events go through the payment flow.
func (s *Service) RSVP(ctx context.Context, userID, eventID string) (*rsvp.AccessGrant, error) {
	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !ev.IsFree {
		return nil, internal.NewValidationError("This event requires payment.", internal.ErrCodeEventRequiresPayment)
	}

	grant, err := NewGrant(ev.ID, userID, nil, s.signer)
	if err != nil {
		return nil, internal.NewInternalError("failed to issue ticket", err)
	}

	created, err := s.repo.Create(ctx, grant)
	if err != nil {
		return nil, internal.NewInternalError("failed to save ticket", err)
	}
	if !created {
		return nil, internal.NewConflictError("You have already RSVP'd to this event.", internal.ErrCodeAlreadyHasTicket)
	}

	s.logger.Info("rsvp created", "grant_id", grant.ID, "event_id", grant.EventID, "user_id", userID)
	if s.eventBus != nil {
		if err := s.eventBus.Publish(ctx, events.NewAccessGrantedEvent(grant.ID, grant.EventID, grant.UserID, "")); err != nil {
			s.logger.Warn("failed to publish access granted event", "error", err)
		}
	}
	return grant, nil
}

func (s *Service) ListMine(ctx context.Context, userID string) ([]*GrantWithEvent, error) {
	grants, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, internal.NewInternalError("failed to list tickets", err)
	}
	return grants, nil
}

func (s *Service) HasGrant(ctx context.Context, eventID, userID string) (bool, error) {
	return s.repo.Exists(ctx, eventID, userID)
}

// Verify checks the ticket signature and that the grant it names still exists.
func (s *Service) Verify(ctx context.Context, token string) (*VerifiedTicket, error) {
	invalid := internal.NewValidationError("Ticket is not valid.", internal.ErrCodeInvalidTicket)

	payload, err := s.signer.Verify(token)
	if err != nil {
		return nil, invalid
	}

	grant, err := s.repo.GetByTicketCode(ctx, payload.TicketCode)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, invalid
		}
		return nil, internal.NewInternalError("failed to load ticket", err)
	}
	if grant.EventID != payload.EventID || grant.UserID != payload.UserID {
		s.logger.Warn("ticket payload does not match stored grant", "ticket_code", payload.TicketCode)
		return nil, invalid
	}

	return &VerifiedTicket{Grant: grant, Payload: payload}, nil
}
