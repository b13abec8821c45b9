package rsvp

import (
	"errors"
	"strings"
	"time"

	"github.com/frahmantamala/linkup-hub/internal/core/datamodel/rsvp"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

const ticketIssuer = "linkup-hub/tickets"

var ErrInvalidTicket = errors.New("invalid ticket")

// VerificationPayload is what the door scanner reads back from a ticket.
type VerificationPayload struct {
	TicketCode string `json:"ticketCode"`
	EventID    string `json:"eventId"`
	UserID     string `json:"userId"`
	PaymentID  string `json:"paymentId,omitempty"`
}

type ticketClaims struct {
	VerificationPayload
	jwt.RegisteredClaims
}

// Signer issues and checks ticket tokens as HS256 JWTs. Tickets carry no
// expiry; a deleted grant is what revokes one.
type Signer struct {
	secret []byte
	parser *jwt.Parser
}

func NewSigner(secret string) (*Signer, error) {
	if len(secret) < 32 {
		return nil, errors.New("ticket secret must be at least 32 characters")
	}
	return &Signer{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(ticketIssuer),
		),
	}, nil
}

func (s *Signer) Sign(payload VerificationPayload) (string, error) {
	claims := ticketClaims{
		VerificationPayload: payload,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   ticketIssuer,
			Subject:  payload.UserID,
			ID:       payload.TicketCode,
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Signer) Verify(token string) (*VerificationPayload, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidTicket
	}

	claims := &ticketClaims{}
	parsed, err := s.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidTicket
	}

	payload := claims.VerificationPayload
	if payload.TicketCode == "" || payload.EventID == "" || payload.UserID == "" || claims.ID != payload.TicketCode {
		return nil, ErrInvalidTicket
	}
	return &payload, nil
}

// Issue builds a signed grant for a settled payment or a free RSVP.
func (s *Signer) Issue(eventID, userID string, paymentID *string) (*rsvp.AccessGrant, error) {
	return NewGrant(eventID, userID, paymentID, s)
}

// NewGrant returns an unsaved grant with a fresh ticket code and its signed payload.
func NewGrant(eventID, userID string, paymentID *string, signer *Signer) (*rsvp.AccessGrant, error) {
	if eventID == "" || userID == "" {
		return nil, errors.New("event id and user id are required")
	}

	payload := VerificationPayload{
		TicketCode: NewTicketCode(),
		EventID:    eventID,
		UserID:     userID,
	}
	if paymentID != nil {
		payload.PaymentID = *paymentID
	}

	token, err := signer.Sign(payload)
	if err != nil {
		return nil, err
	}

	return &rsvp.AccessGrant{
		ID:                  uuid.NewString(),
		EventID:             eventID,
		UserID:              userID,
		PaymentID:           paymentID,
		TicketCode:          payload.TicketCode,
		VerificationPayload: token,
	}, nil
}

// NewTicketCode is a ULID: sortable by issue time and safe to print on a ticket.
func NewTicketCode() string {
	return ulid.Make().String()
}
