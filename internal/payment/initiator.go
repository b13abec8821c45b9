package payment

import (
	"context"
	"errors"
	"log/slog"

	"github.com/frahmantamala/linkup-hub/internal"
	"github.com/frahmantamala/linkup-hub/internal/core/common/validation"
	"github.com/frahmantamala/linkup-hub/internal/core/datamodel/payment"
	"github.com/frahmantamala/linkup-hub/internal/daraja"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type InitiateCommand struct {
	Amount      decimal.Decimal
	PhoneNumber string
	EventID     string
	PayerID     string
}

type InitiateResult struct {
	PaymentID         string `json:"paymentId"`
	CheckoutRequestID string `json:"checkoutRequestId"`
	MerchantRequestID string `json:"merchantRequestId"`
	CustomerMessage   string `json:"customerMessage"`
}

type InitiatorConfig struct {
	CountryCode            string
	AccountReferencePrefix string
	TransactionDesc        string
}

// Initiator starts an STK push and records the Pending payment it creates.
type Initiator struct {
	gateway Gateway
	repo    RepositoryAPI
	cfg     InitiatorConfig
	metrics *Metrics
	logger  *slog.Logger
	newID   func() string
}

func NewInitiator(gateway Gateway, repo RepositoryAPI, cfg InitiatorConfig, metrics *Metrics, logger *slog.Logger) *Initiator {
	if cfg.CountryCode == "" {
		cfg.CountryCode = "254"
	}
	if cfg.AccountReferencePrefix == "" {
		cfg.AccountReferencePrefix = "LHU"
	}
	if cfg.TransactionDesc == "" {
		cfg.TransactionDesc = "Payment for Link Up Hub Event"
	}
	return &Initiator{
		gateway: gateway,
		repo:    repo,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
		newID:   uuid.NewString,
	}
}

// AccountReference is the prefix joined with the first eight characters of the event id.
func AccountReference(prefix, eventID string) string {
	ref := eventID
	if len(ref) > 8 {
		ref = ref[:8]
	}
	return prefix + "-" + ref
}

func (i *Initiator) Initiate(ctx context.Context, cmd InitiateCommand) (*InitiateResult, error) {
	phone, appErr := i.validate(cmd)
	if appErr != nil {
		i.metrics.IncInitiation("invalid")
		return nil, appErr
	}

	resp, err := i.gateway.STKPush(ctx, daraja.STKPushRequest{
		Amount:           cmd.Amount,
		PhoneNumber:      phone,
		AccountReference: AccountReference(i.cfg.AccountReferencePrefix, cmd.EventID),
		Description:      i.cfg.TransactionDesc,
	})
	if err != nil {
		switch {
		case errors.Is(err, daraja.ErrTokenAcquisition):
			i.logger.Error("could not obtain provider token", "error", err, "event_id", cmd.EventID)
			i.metrics.IncInitiation("token_failed")
			return nil, internal.NewExternalError("Could not reach the payment provider. Please try again.", internal.ErrCodeTokenAcquisitionFailed, err)
		case errors.Is(err, daraja.ErrInvalidPhone):
			i.metrics.IncInitiation("invalid")
			return nil, internal.NewValidationFieldError("phoneNumber", "phoneNumber is not a valid mobile number", internal.ErrCodeInvalidPhone)
		default:
			i.logger.Error("stk push failed", "error", err, "event_id", cmd.EventID)
			i.metrics.IncInitiation("initiation_failed")
			return nil, internal.NewExternalError("Failed to initiate payment.", internal.ErrCodeInitiationFailed, err)
		}
	}

	p := &payment.Payment{
		ID:                i.newID(),
		UserID:            cmd.PayerID,
		EventID:           cmd.EventID,
		Amount:            cmd.Amount,
		PhoneNumber:       phone,
		CheckoutRequestID: resp.CheckoutRequestID,
		MerchantRequestID: resp.MerchantRequestID,
		Status:            payment.StatusPending,
	}

	if err := i.repo.Create(ctx, p); err != nil {
		// the customer is being prompted but no record exists to reconcile against
		i.logger.Error("payment initiated but not recorded",
			"inconsistent_state", true,
			"checkout_request_id", resp.CheckoutRequestID,
			"merchant_request_id", resp.MerchantRequestID,
			"event_id", cmd.EventID,
			"user_id", cmd.PayerID,
			"error", err)
		i.metrics.IncOrphaned()
		return nil, internal.NewInternalError("Payment was initiated but could not be recorded.", err)
	}

	i.metrics.IncInitiation("accepted")
	i.logger.Info("payment initiated",
		"payment_id", p.ID,
		"checkout_request_id", p.CheckoutRequestID,
		"event_id", p.EventID,
		"user_id", p.UserID,
		"amount", p.Amount.String())

	return &InitiateResult{
		PaymentID:         p.ID,
		CheckoutRequestID: resp.CheckoutRequestID,
		MerchantRequestID: resp.MerchantRequestID,
		CustomerMessage:   resp.CustomerMessage,
	}, nil
}

func (i *Initiator) validate(cmd InitiateCommand) (string, *internal.AppError) {
	var normalized string

	v := validation.NewValidator()
	v.Field("amount", cmd.Amount).
		Positive(internal.ErrCodeInvalidAmount).
		WholeNumber(internal.ErrCodeInvalidAmount)
	v.Field("phoneNumber", cmd.PhoneNumber).
		Required().
		Custom(func(value interface{}) *internal.AppError {
			phone, err := daraja.NormalizePhone(value.(string), i.cfg.CountryCode)
			if err != nil {
				return internal.NewValidationFieldError("phoneNumber", "phoneNumber is not a valid mobile number", internal.ErrCodeInvalidPhone)
			}
			normalized = phone
			return nil
		})
	v.Field("eventId", cmd.EventID).Required()
	v.Field("payerId", cmd.PayerID).Required()

	if appErr := v.Validate(); appErr != nil {
		return "", appErr
	}
	return normalized, nil
}
