package payment_test

import (
	"context"
	"errors"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/linkup-hub/internal"
	"github.com/frahmantamala/linkup-hub/internal/core/datamodel/event"
	paymentpkg "github.com/frahmantamala/linkup-hub/internal/payment"
	"github.com/google/uuid"
)

var _ = Describe("Service", func() {
	const (
		paidEventID = "9b2d3b52-2a6f-4a57-9a0e-4d2fbd3c8f11"
		freeEventID = "e3c5a0a4-0d37-4a8c-8f0e-2b7ad1f0e6c2"
		payerID     = "c1d2e3f4-a5b6-4c7d-8e9f-0a1b2c3d4e5f"
	)

	var (
		ctx     context.Context
		repo    *fakeRepository
		gateway *fakeGateway
		lookups *fakeEvents
		checker *fakeGrantChecker
		service *paymentpkg.Service
		price   decimal.Decimal
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = newFakeRepository()
		gateway = &fakeGateway{}
		price = decimal.NewFromInt(1500)
		lookups = &fakeEvents{events: map[string]*event.Event{
			paidEventID: {ID: paidEventID, Title: "Nairobi Tech Night", Price: price},
			freeEventID: {ID: freeEventID, Title: "Open Mic", IsFree: true},
		}}
		checker = &fakeGrantChecker{}
		initiator := paymentpkg.NewInitiator(gateway, repo, paymentpkg.InitiatorConfig{}, nil, discardLogger())
		service = paymentpkg.NewService(initiator, repo, lookups, checker, discardLogger())
	})

	request := func(eventID string, amount decimal.Decimal) *paymentpkg.InitiatePaymentRequest {
		return &paymentpkg.InitiatePaymentRequest{
			Amount:      &amount,
			PhoneNumber: "254712345678",
			EventID:     eventID,
		}
	}

	expectAppError := func(err error, status int, code internal.ErrorCode) {
		appErr, ok := internal.IsAppError(err)
		ExpectWithOffset(1, ok).To(BeTrue())
		ExpectWithOffset(1, appErr.StatusCode).To(Equal(status))
		ExpectWithOffset(1, appErr.Code).To(Equal(code))
	}

	Describe("InitiatePayment", func() {
		It("should initiate when the amount matches the event price", func() {
			// When
			result, err := service.InitiatePayment(ctx, payerID, request(paidEventID, price))

			// Then
			Expect(err).ToNot(HaveOccurred())
			Expect(result.PaymentID).ToNot(BeEmpty())
			Expect(gateway.pushCalls).To(Equal(1))
		})

		It("should reject free events", func() {
			_, err := service.InitiatePayment(ctx, payerID, request(freeEventID, price))

			expectAppError(err, http.StatusBadRequest, internal.ErrCodeEventIsFree)
			Expect(gateway.pushCalls).To(Equal(0))
		})

		It("should reject an amount that differs from the price", func() {
			_, err := service.InitiatePayment(ctx, payerID, request(paidEventID, decimal.NewFromInt(10)))

			expectAppError(err, http.StatusBadRequest, internal.ErrCodeAmountMismatch)
			Expect(gateway.pushCalls).To(Equal(0))
		})

		It("should reject payers who already hold a ticket", func() {
			checker.has = true

			_, err := service.InitiatePayment(ctx, payerID, request(paidEventID, price))

			expectAppError(err, http.StatusConflict, internal.ErrCodeAlreadyHasTicket)
			Expect(gateway.pushCalls).To(Equal(0))
		})

		It("should pass event lookup errors through", func() {
			lookups.err = internal.NewNotFoundError("Event not found", internal.ErrCodeEventNotFound)

			_, err := service.InitiatePayment(ctx, payerID, request(paidEventID, price))

			expectAppError(err, http.StatusNotFound, internal.ErrCodeEventNotFound)
		})

		It("should require an amount", func() {
			req := request(paidEventID, price)
			req.Amount = nil

			_, err := service.InitiatePayment(ctx, payerID, req)

			expectAppError(err, http.StatusBadRequest, internal.ErrCodeValidationFailed)
		})

		It("should surface grant lookup failures as internal errors", func() {
			checker.err = errors.New("timeout")

			_, err := service.InitiatePayment(ctx, payerID, request(paidEventID, price))

			expectAppError(err, http.StatusInternalServerError, "INTERNAL_ERROR")
		})
	})

	Describe("GetPayment", func() {
		It("should return the payer's own payment", func() {
			// Given
			p := newPending("ws_CO_mine")
			p.UserID = payerID
			repo.seed(p)

			// When
			found, err := service.GetPayment(ctx, payerID, p.ID)

			// Then
			Expect(err).ToNot(HaveOccurred())
			Expect(found.CheckoutRequestID).To(Equal("ws_CO_mine"))
		})

		It("should hide other users' payments", func() {
			p := repo.seed(newPending("ws_CO_theirs"))

			_, err := service.GetPayment(ctx, payerID, p.ID)

			expectAppError(err, http.StatusNotFound, internal.ErrCodePaymentNotFound)
		})

		It("should return not found for unknown ids", func() {
			_, err := service.GetPayment(ctx, payerID, uuid.NewString())

			expectAppError(err, http.StatusNotFound, internal.ErrCodePaymentNotFound)
			Expect(repo.getByIDCalls).To(Equal(1))
		})

		It("should return not found for malformed ids without querying the store", func() {
			_, err := service.GetPayment(ctx, payerID, "not-a-uuid")

			expectAppError(err, http.StatusNotFound, internal.ErrCodePaymentNotFound)
			Expect(repo.getByIDCalls).To(Equal(0))
		})
	})

	Describe("ListPayments", func() {
		It("should list only the payer's payments", func() {
			mine := newPending("ws_CO_a")
			mine.UserID = payerID
			repo.seed(mine)
			repo.seed(newPending("ws_CO_b"))

			payments, err := service.ListPayments(ctx, payerID)

			Expect(err).ToNot(HaveOccurred())
			Expect(payments).To(HaveLen(1))
		})
	})
})
