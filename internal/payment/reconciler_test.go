package payment_test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/linkup-hub/internal/core/datamodel/payment"
	"github.com/frahmantamala/linkup-hub/internal/core/events"
	paymentpkg "github.com/frahmantamala/linkup-hub/internal/payment"
)

func successCallback(checkoutID string) []byte {
	return []byte(fmt.Sprintf(`{"Body":{"stkCallback":{
		"MerchantRequestID":"29115-34620561-1",
		"CheckoutRequestID":%q,
		"ResultCode":0,
		"ResultDesc":"The service request is processed successfully.",
		"CallbackMetadata":{"Item":[
			{"Name":"Amount","Value":500},
			{"Name":"MpesaReceiptNumber","Value":"NLJ7RT61SV"},
			{"Name":"TransactionDate","Value":20191219102115},
			{"Name":"PhoneNumber","Value":254712345678}
		]}}}}`, checkoutID))
}

func failureCallback(checkoutID string, code int) []byte {
	return []byte(fmt.Sprintf(`{"Body":{"stkCallback":{
		"MerchantRequestID":"29115-34620561-1",
		"CheckoutRequestID":%q,
		"ResultCode":%d,
		"ResultDesc":"Request cancelled by user"}}}`, checkoutID, code))
}

var _ = Describe("Reconciler", func() {
	var (
		ctx        context.Context
		repo       *fakeRepository
		guard      *fakeGuard
		issuer     *fakeIssuer
		bus        *events.EventBus
		received   chan events.Event
		reconciler *paymentpkg.Reconciler
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = newFakeRepository()
		guard = newFakeGuard()
		issuer = &fakeIssuer{}
		bus = events.NewEventBus(discardLogger())
		received = make(chan events.Event, 10)
		collect := func(ctx context.Context, e events.Event) error {
			received <- e
			return nil
		}
		bus.Subscribe(events.EventTypePaymentCompleted, collect)
		bus.Subscribe(events.EventTypePaymentFailed, collect)
		bus.Subscribe(events.EventTypeAccessGranted, collect)

		reconciler = paymentpkg.NewReconciler(paymentpkg.ReconcilerParams{
			Repository: repo,
			Grants:     issuer,
			Guard:      guard,
			EventBus:   bus,
			Metrics:    paymentpkg.NewMetrics(nil),
			Logger:     discardLogger(),
		})
	})

	Context("when a success callback arrives for a Pending payment", func() {
		It("should complete the payment and issue exactly one grant", func() {
			// Given
			p := repo.seed(newPending("ws_CO_success"))

			// When
			result := reconciler.Reconcile(ctx, successCallback("ws_CO_success"))

			// Then
			Expect(result.Outcome).To(Equal(paymentpkg.OutcomeCompleted))
			Expect(result.Err).ToNot(HaveOccurred())
			Expect(*result.ResultCode).To(Equal(0))

			stored := repo.get("ws_CO_success")
			Expect(stored.Status).To(Equal(payment.StatusCompleted))
			Expect(*stored.MpesaReceiptNumber).To(Equal("NLJ7RT61SV"))
			Expect(stored.RawCallback).ToNot(BeEmpty())
			Expect(repo.grantCount()).To(Equal(1))

			types := map[string]bool{}
			for i := 0; i < 2; i++ {
				var e events.Event
				Eventually(received).Should(Receive(&e))
				types[e.EventType()] = true
			}
			Expect(types).To(HaveKey(events.EventTypePaymentCompleted))
			Expect(types).To(HaveKey(events.EventTypeAccessGranted))
			Expect(p.ID).ToNot(BeEmpty())
		})
	})

	Context("when the payer already holds a grant for the event", func() {
		It("should complete the payment without announcing a new grant", func() {
			// Given
			p := repo.seed(newPending("ws_CO_second_ticket"))
			existing, err := issuer.Issue(p.EventID, p.UserID, nil)
			Expect(err).ToNot(HaveOccurred())
			_, err = repo.EnsureGrant(ctx, existing)
			Expect(err).ToNot(HaveOccurred())

			// When
			result := reconciler.Reconcile(ctx, successCallback("ws_CO_second_ticket"))
			Expect(bus.Drain(ctx)).To(Succeed())
			close(received)

			// Then
			Expect(result.Outcome).To(Equal(paymentpkg.OutcomeCompleted))
			Expect(repo.get("ws_CO_second_ticket").Status).To(Equal(payment.StatusCompleted))
			Expect(repo.grantCount()).To(Equal(1))

			var types []string
			for e := range received {
				types = append(types, e.EventType())
			}
			Expect(types).To(ConsistOf(events.EventTypePaymentCompleted))
		})
	})

	Context("when a failure callback arrives", func() {
		It("should fail the payment without a grant", func() {
			// Given
			repo.seed(newPending("ws_CO_cancelled"))

			// When
			result := reconciler.Reconcile(ctx, failureCallback("ws_CO_cancelled", 1032))

			// Then
			Expect(result.Outcome).To(Equal(paymentpkg.OutcomeFailed))
			stored := repo.get("ws_CO_cancelled")
			Expect(stored.Status).To(Equal(payment.StatusFailed))
			Expect(*stored.ResultCode).To(Equal(1032))
			Expect(stored.MpesaReceiptNumber).To(BeNil())
			Expect(repo.grantCount()).To(Equal(0))

			var e events.Event
			Eventually(received).Should(Receive(&e))
			Expect(e.EventType()).To(Equal(events.EventTypePaymentFailed))
		})

		It("should accept a result code sent as a string", func() {
			// Given
			repo.seed(newPending("ws_CO_string"))
			raw := []byte(`{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_string","ResultCode":"1","ResultDesc":"insufficient balance"}}}`)

			// When
			result := reconciler.Reconcile(ctx, raw)

			// Then
			Expect(result.Outcome).To(Equal(paymentpkg.OutcomeFailed))
			Expect(*repo.get("ws_CO_string").ResultCode).To(Equal(1))
		})
	})

	Context("when the same callback is delivered twice", func() {
		It("should report the second delivery as a duplicate", func() {
			// Given
			repo.seed(newPending("ws_CO_redelivered"))
			first := reconciler.Reconcile(ctx, successCallback("ws_CO_redelivered"))

			// When
			second := reconciler.Reconcile(ctx, successCallback("ws_CO_redelivered"))

			// Then
			Expect(first.Outcome).To(Equal(paymentpkg.OutcomeCompleted))
			Expect(second.Outcome).To(Equal(paymentpkg.OutcomeDuplicate))
			Expect(repo.grantCount()).To(Equal(1))
		})

		It("should stay idempotent without the guard", func() {
			// Given
			reconciler = paymentpkg.NewReconciler(paymentpkg.ReconcilerParams{
				Repository: repo,
				Grants:     issuer,
				Logger:     discardLogger(),
			})
			repo.seed(newPending("ws_CO_noguard"))
			reconciler.Reconcile(ctx, successCallback("ws_CO_noguard"))

			// When
			second := reconciler.Reconcile(ctx, failureCallback("ws_CO_noguard", 1))

			// Then
			Expect(second.Outcome).To(Equal(paymentpkg.OutcomeDuplicate))
			Expect(repo.get("ws_CO_noguard").Status).To(Equal(payment.StatusCompleted))
		})

		It("should settle concurrent deliveries exactly once", func() {
			// Given
			reconciler = paymentpkg.NewReconciler(paymentpkg.ReconcilerParams{
				Repository: repo,
				Grants:     issuer,
				Logger:     discardLogger(),
			})
			repo.seed(newPending("ws_CO_race"))

			// When
			var wg sync.WaitGroup
			outcomes := make(chan paymentpkg.Outcome, 10)
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					outcomes <- reconciler.Reconcile(ctx, successCallback("ws_CO_race")).Outcome
				}()
			}
			wg.Wait()
			close(outcomes)

			// Then
			completed := 0
			for o := range outcomes {
				if o == paymentpkg.OutcomeCompleted {
					completed++
				} else {
					Expect(o).To(Equal(paymentpkg.OutcomeDuplicate))
				}
			}
			Expect(completed).To(Equal(1))
			Expect(repo.grantCount()).To(Equal(1))
		})
	})

	Context("when the callback cannot be applied", func() {
		It("should report malformed bodies without touching payments", func() {
			for _, body := range []string{``, `not json`, `{"Body":{}}`, `{"Body":{"stkCallback":{"ResultCode":0}}}`} {
				result := reconciler.Reconcile(ctx, []byte(body))
				Expect(result.Outcome).To(Equal(paymentpkg.OutcomeMalformed), body)
			}
			Expect(repo.markCalls).To(Equal(0))
			Expect(repo.recordCalls).To(Equal(4))
		})

		It("should report unknown checkout ids and release the guard", func() {
			// When
			result := reconciler.Reconcile(ctx, successCallback("ws_CO_nobody"))

			// Then
			Expect(result.Outcome).To(Equal(paymentpkg.OutcomeUnknownTransaction))
			Expect(guard.released).To(ContainElement("ws_CO_nobody"))
			Expect(repo.callbacks).To(HaveLen(1))
			Expect(repo.callbacks[0].Outcome).To(Equal(string(paymentpkg.OutcomeUnknownTransaction)))
		})

		It("should report lookup failures as errors and let a redelivery retry", func() {
			// Given
			repo.seed(newPending("ws_CO_dbdown"))
			repo.lookupErr = errors.New("connection refused")

			// When
			first := reconciler.Reconcile(ctx, successCallback("ws_CO_dbdown"))
			repo.lookupErr = nil
			second := reconciler.Reconcile(ctx, successCallback("ws_CO_dbdown"))

			// Then
			Expect(first.Outcome).To(Equal(paymentpkg.OutcomeError))
			Expect(first.Err).To(HaveOccurred())
			Expect(second.Outcome).To(Equal(paymentpkg.OutcomeCompleted))
		})

		It("should release the guard when the caller's context is cancelled mid-flight", func() {
			// Given
			repo.seed(newPending("ws_CO_hangup"))
			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			// When
			first := reconciler.Reconcile(cancelled, successCallback("ws_CO_hangup"))
			second := reconciler.Reconcile(ctx, successCallback("ws_CO_hangup"))

			// Then
			Expect(first.Outcome).To(Equal(paymentpkg.OutcomeError))
			Expect(first.Err).To(MatchError(context.Canceled))
			Expect(guard.released).To(ContainElement("ws_CO_hangup"))
			Expect(second.Outcome).To(Equal(paymentpkg.OutcomeCompleted))
			Expect(repo.get("ws_CO_hangup").Status).To(Equal(payment.StatusCompleted))
			Expect(repo.callbacks).To(HaveLen(2))
		})

		It("should report an inconsistent state when the grant is not stored", func() {
			// Given
			repo.seed(newPending("ws_CO_nogrant"))
			repo.grantErr = errors.New("disk full")

			// When
			result := reconciler.Reconcile(ctx, successCallback("ws_CO_nogrant"))

			// Then
			Expect(result.Outcome).To(Equal(paymentpkg.OutcomeInconsistentState))
			Expect(result.Err).To(MatchError(paymentpkg.ErrGrantWrite))
			Expect(repo.get("ws_CO_nogrant").Status).To(Equal(payment.StatusCompleted))
			Expect(guard.released).To(ContainElement("ws_CO_nogrant"))
		})

		It("should continue without the guard when redis is unavailable", func() {
			// Given
			repo.seed(newPending("ws_CO_redisdown"))
			guard.err = errors.New("redis: connection refused")

			// When
			result := reconciler.Reconcile(ctx, successCallback("ws_CO_redisdown"))

			// Then
			Expect(result.Outcome).To(Equal(paymentpkg.OutcomeCompleted))
		})
	})

	It("should always acknowledge with ResultCode 0", func() {
		result := reconciler.Reconcile(ctx, []byte(`garbage`))
		ack := result.Ack()
		Expect(ack.ResultCode).To(Equal(0))
		Expect(ack.ResultDesc).To(Equal("Accepted"))
	})
})
