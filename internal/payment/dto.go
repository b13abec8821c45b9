package payment

import (
	"time"

	"github.com/frahmantamala/linkup-hub/internal"
	"github.com/frahmantamala/linkup-hub/internal/core/common/validation"
	"github.com/frahmantamala/linkup-hub/internal/core/datamodel/payment"
	"github.com/shopspring/decimal"
)

// InitiatePaymentRequest is the body of POST /payments/initiate
type InitiatePaymentRequest struct {
	Amount      *decimal.Decimal `json:"amount"`
	PhoneNumber string           `json:"phoneNumber"`
	EventID     string           `json:"eventId"`
}

func (r *InitiatePaymentRequest) Validate() error {
	validator := validation.NewValidator()

	validator.Field("amount", r.Amount).Required().
		Positive(internal.ErrCodeInvalidAmount).
		WholeNumber(internal.ErrCodeInvalidAmount)
	validator.Field("phoneNumber", r.PhoneNumber).Required()
	validator.Field("eventId", r.EventID).Required()

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type InitiatePaymentResponse struct {
	Message string `json:"message"`
	*InitiateResult
}

type PaymentResponse struct {
	ID                 string          `json:"id"`
	EventID            string          `json:"eventId"`
	Amount             decimal.Decimal `json:"amount"`
	PhoneNumber        string          `json:"phoneNumber"`
	CheckoutRequestID  string          `json:"checkoutRequestId"`
	Status             string          `json:"status"`
	ResultCode         *int            `json:"resultCode,omitempty"`
	ResultDesc         *string         `json:"resultDesc,omitempty"`
	MpesaReceiptNumber *string         `json:"mpesaReceiptNumber,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

func ToPaymentResponse(p *payment.Payment) PaymentResponse {
	return PaymentResponse{
		ID:                 p.ID,
		EventID:            p.EventID,
		Amount:             p.Amount,
		PhoneNumber:        p.PhoneNumber,
		CheckoutRequestID:  p.CheckoutRequestID,
		Status:             p.Status,
		ResultCode:         p.ResultCode,
		ResultDesc:         p.ResultDesc,
		MpesaReceiptNumber: p.MpesaReceiptNumber,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

func ToPaymentResponses(payments []*payment.Payment) []PaymentResponse {
	out := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, ToPaymentResponse(p))
	}
	return out
}
