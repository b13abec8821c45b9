package rsvp

import (
	"time"

	"github.com/frahmantamala/linkup-hub/internal/core/common/validation"
	"github.com/frahmantamala/linkup-hub/internal/core/datamodel/rsvp"
)

type VerifyRequest struct {
	Token string `json:"token"`
}

func (r *VerifyRequest) Validate() error {
	v := validation.NewValidator()
	v.Field("token", r.Token).Required()
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type TicketResponse struct {
	ID                  string     `json:"id"`
	EventID             string     `json:"eventId"`
	PaymentID           *string    `json:"paymentId,omitempty"`
	TicketCode          string     `json:"ticketCode"`
	VerificationPayload string     `json:"verificationPayload"`
	EventTitle          string     `json:"eventTitle,omitempty"`
	EventDate           *time.Time `json:"eventDate,omitempty"`
	EventLocation       string     `json:"eventLocation,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
}

type VerifyResponse struct {
	Valid      bool   `json:"valid"`
	TicketCode string `json:"ticketCode"`
	EventID    string `json:"eventId"`
	UserID     string `json:"userId"`
	PaymentID  string `json:"paymentId,omitempty"`
}

func ToTicketResponse(g *rsvp.AccessGrant) TicketResponse {
	return TicketResponse{
		ID:                  g.ID,
		EventID:             g.EventID,
		PaymentID:           g.PaymentID,
		TicketCode:          g.TicketCode,
		VerificationPayload: g.VerificationPayload,
		CreatedAt:           g.CreatedAt,
	}
}

func ToTicketResponses(grants []*GrantWithEvent) []TicketResponse {
	out := make([]TicketResponse, 0, len(grants))
	for _, g := range grants {
		resp := ToTicketResponse(&g.AccessGrant)
		resp.EventTitle = g.EventTitle
		resp.EventLocation = g.EventLocation
		if !g.EventDate.IsZero() {
			date := g.EventDate
			resp.EventDate = &date
		}
		out = append(out, resp)
	}
	return out
}
