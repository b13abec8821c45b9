package rsvp

import (
	"context"
	"time"

	"github.com/frahmantamala/linkup-hub/internal/core/datamodel/event"
	"github.com/frahmantamala/linkup-hub/internal/core/datamodel/rsvp"
)

type RepositoryAPI interface {
	// Create stores grant unless the user already has one for the event.
	Create(ctx context.Context, grant *rsvp.AccessGrant) (bool, error)
	Exists(ctx context.Context, eventID, userID string) (bool, error)
	GetByTicketCode(ctx context.Context, ticketCode string) (*rsvp.AccessGrant, error)
	ListByUser(ctx context.Context, userID string) ([]*GrantWithEvent, error)
}

type ServiceAPI interface {
	RSVP(ctx context.Context, userID, eventID string) (*rsvp.AccessGrant, error)
	ListMine(ctx context.Context, userID string) ([]*GrantWithEvent, error)
	HasGrant(ctx context.Context, eventID, userID string) (bool, error)
	Verify(ctx context.Context, token string) (*VerifiedTicket, error)
}

type EventLookup interface {
	GetByID(ctx context.Context, id string) (*event.Event, error)
}

// GrantWithEvent is a grant joined with the event it admits to.
type GrantWithEvent struct {
	rsvp.AccessGrant
	EventTitle    string    `gorm:"column:event_title"`
	EventDate     time.Time `gorm:"column:event_date"`
	EventLocation string    `gorm:"column:event_location"`
}

type VerifiedTicket struct {
	Grant   *rsvp.AccessGrant
	Payload *VerificationPayload
}
