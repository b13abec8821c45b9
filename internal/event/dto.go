package event

import (
	"time"

	"github.com/frahmantamala/linkup-hub/internal"
	"github.com/frahmantamala/linkup-hub/internal/core/common/validation"
	"github.com/frahmantamala/linkup-hub/internal/core/datamodel/event"
	"github.com/shopspring/decimal"
)

// EventRequest is the body of both POST /events and PUT /events/{id}.
type EventRequest struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	PosterURL   *string          `json:"posterUrl,omitempty"`
	EventDate   time.Time        `json:"eventDate"`
	Location    string           `json:"location"`
	IsFree      bool             `json:"isFree"`
	Price       *decimal.Decimal `json:"price,omitempty"`
}

func (r *EventRequest) Validate() error {
	v := validation.NewValidator()
	v.Field("title", r.Title).Required().MaxLength(200)
	v.Field("description", r.Description).Required()
	v.Field("eventDate", r.EventDate).Required()
	v.Field("location", r.Location).Required().MaxLength(255)
	if !r.IsFree {
		v.Field("price", r.Price).Required().Positive(internal.ErrCodeInvalidAmount)
	}

	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// price is zero for free events whatever the client sent.
func (r *EventRequest) price() decimal.Decimal {
	if r.IsFree || r.Price == nil {
		return decimal.Zero
	}
	return *r.Price
}

type EventResponse struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	PosterURL   *string         `json:"posterUrl,omitempty"`
	EventDate   time.Time       `json:"eventDate"`
	Location    string          `json:"location"`
	IsFree      bool            `json:"isFree"`
	Price       decimal.Decimal `json:"price"`
	CreatedBy   string          `json:"createdBy"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func ToEventResponse(e *event.Event) EventResponse {
	return EventResponse{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		PosterURL:   e.PosterURL,
		EventDate:   e.EventDate,
		Location:    e.Location,
		IsFree:      e.IsFree,
		Price:       e.Price,
		CreatedBy:   e.CreatedBy,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func ToEventResponses(events []*event.Event) []EventResponse {
	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, ToEventResponse(e))
	}
	return out
}
