package event

import (
	"context"
	"errors"
	"log/slog"

	"github.com/frahmantamala/linkup-hub/internal"
	"github.com/frahmantamala/linkup-hub/internal/core/datamodel/event"
	"github.com/google/uuid"
)

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) List(ctx context.Context) ([]*event.Event, error) {
	events, err := s.repo.List(ctx)
	if err != nil {
		return nil, internal.NewInternalError("failed to list events", err)
	}
	return events, nil
}

// GetByID returns a 404 AppError for unknown ids; the payment and rsvp
// services pass it through unchanged.
func (s *Service) GetByID(ctx context.Context, id string) (*event.Event, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, internal.NewNotFoundError("Event not found", internal.ErrCodeEventNotFound)
	}

	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, internal.NewNotFoundError("Event not found", internal.ErrCodeEventNotFound)
		}
		return nil, internal.NewInternalError("failed to load event", err)
	}
	return e, nil
}

func (s *Service) Create(ctx context.Context, createdBy string, req *EventRequest) (*event.Event, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	e := &event.Event{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		PosterURL:   req.PosterURL,
		EventDate:   req.EventDate,
		Location:    req.Location,
		IsFree:      req.IsFree,
		Price:       req.price(),
		CreatedBy:   createdBy,
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, internal.NewInternalError("failed to create event", err)
	}

	s.logger.Info("event created", "event_id", e.ID, "created_by", createdBy, "is_free", e.IsFree)
	return e, nil
}

func (s *Service) Update(ctx context.Context, id string, req *EventRequest) (*event.Event, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	e, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	e.Title = req.Title
	e.Description = req.Description
	e.PosterURL = req.PosterURL
	e.EventDate = req.EventDate
	e.Location = req.Location
	e.IsFree = req.IsFree
	e.Price = req.price()

	if err := s.repo.Update(ctx, e); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, internal.NewNotFoundError("Event not found", internal.ErrCodeEventNotFound)
		}
		return nil, internal.NewInternalError("failed to update event", err)
	}
	return e, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return internal.NewNotFoundError("Event not found", internal.ErrCodeEventNotFound)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return internal.NewNotFoundError("Event not found", internal.ErrCodeEventNotFound)
		}
		return internal.NewInternalError("failed to delete event", err)
	}
	s.logger.Info("event deleted", "event_id", id)
	return nil
}
