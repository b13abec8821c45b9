package event

import (
	"context"
	"errors"

	"github.com/frahmantamala/linkup-hub/internal/core/datamodel/event"
)

var ErrNotFound = errors.New("event not found")

type RepositoryAPI interface {
	List(ctx context.Context) ([]*event.Event, error)
	GetByID(ctx context.Context, id string) (*event.Event, error)
	Create(ctx context.Context, e *event.Event) error
	Update(ctx context.Context, e *event.Event) error
	Delete(ctx context.Context, id string) error
}

type ServiceAPI interface {
	List(ctx context.Context) ([]*event.Event, error)
	GetByID(ctx context.Context, id string) (*event.Event, error)
	Create(ctx context.Context, createdBy string, req *EventRequest) (*event.Event, error)
	Update(ctx context.Context, id string, req *EventRequest) (*event.Event, error)
	Delete(ctx context.Context, id string) error
}
