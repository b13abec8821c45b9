package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventTypePaymentCompleted = "payment.completed"
	EventTypePaymentFailed    = "payment.failed"
	EventTypeAccessGranted    = "access.granted"
)

type PaymentCompletedEvent struct {
	BaseEvent
	PaymentID         string          `json:"payment_id"`
	CheckoutRequestID string          `json:"checkout_request_id"`
	HubEventID        string          `json:"event_id"`
	UserID            string          `json:"user_id"`
	Amount            decimal.Decimal `json:"amount"`
	ReceiptNumber     string          `json:"receipt_number"`
}

func NewPaymentCompletedEvent(paymentID, checkoutRequestID, eventID, userID string, amount decimal.Decimal, receipt string) *PaymentCompletedEvent {
	return &PaymentCompletedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentCompleted,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id":          paymentID,
				"checkout_request_id": checkoutRequestID,
				"event_id":            eventID,
				"user_id":             userID,
				"amount":              amount.String(),
				"receipt_number":      receipt,
			},
		},
		PaymentID:         paymentID,
		CheckoutRequestID: checkoutRequestID,
		HubEventID:        eventID,
		UserID:            userID,
		Amount:            amount,
		ReceiptNumber:     receipt,
	}
}

type PaymentFailedEvent struct {
	BaseEvent
	PaymentID         string          `json:"payment_id"`
	CheckoutRequestID string          `json:"checkout_request_id"`
	HubEventID        string          `json:"event_id"`
	UserID            string          `json:"user_id"`
	Amount            decimal.Decimal `json:"amount"`
	ResultCode        int             `json:"result_code"`
	ResultDesc        string          `json:"result_desc"`
}

func NewPaymentFailedEvent(paymentID, checkoutRequestID, eventID, userID string, amount decimal.Decimal, resultCode int, resultDesc string) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentFailed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id":          paymentID,
				"checkout_request_id": checkoutRequestID,
				"event_id":            eventID,
				"user_id":             userID,
				"amount":              amount.String(),
				"result_code":         resultCode,
				"result_desc":         resultDesc,
			},
		},
		PaymentID:         paymentID,
		CheckoutRequestID: checkoutRequestID,
		HubEventID:        eventID,
		UserID:            userID,
		Amount:            amount,
		ResultCode:        resultCode,
		ResultDesc:        resultDesc,
	}
}

type AccessGrantedEvent struct {
	BaseEvent
	GrantID    string `json:"grant_id"`
	HubEventID string `json:"event_id"`
	UserID     string `json:"user_id"`
	PaymentID  string `json:"payment_id,omitempty"`
}

func NewAccessGrantedEvent(grantID, eventID, userID, paymentID string) *AccessGrantedEvent {
	return &AccessGrantedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeAccessGranted,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"grant_id":   grantID,
				"event_id":   eventID,
				"user_id":    userID,
				"payment_id": paymentID,
			},
		},
		GrantID:    grantID,
		HubEventID: eventID,
		UserID:     userID,
		PaymentID:  paymentID,
	}
}
