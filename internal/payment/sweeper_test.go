package payment_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/linkup-hub/internal/core/datamodel/payment"
	"github.com/frahmantamala/linkup-hub/internal/daraja"
	paymentpkg "github.com/frahmantamala/linkup-hub/internal/payment"
	"github.com/frahmantamala/linkup-hub/internal/scheduler"
)

var _ = Describe("Sweeper", func() {
	var (
		ctx     context.Context
		repo    *fakeRepository
		gateway *fakeGateway
		issuer  *fakeIssuer
		sweeper *paymentpkg.Sweeper
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = newFakeRepository()
		gateway = &fakeGateway{}
		issuer = &fakeIssuer{}
		reconciler := paymentpkg.NewReconciler(paymentpkg.ReconcilerParams{
			Repository: repo,
			Grants:     issuer,
			Logger:     discardLogger(),
		})
		sweeper = paymentpkg.NewSweeper(repo, gateway, issuer, reconciler, paymentpkg.SweeperConfig{
			QueryAfter:  2 * time.Minute,
			ExpireAfter: 30 * time.Minute,
		}, nil, discardLogger())
	})

	aged := func(checkoutID string, age time.Duration) *payment.Payment {
		p := newPending(checkoutID)
		p.CreatedAt = time.Now().Add(-age)
		return repo.seed(p)
	}

	Describe("RepairGrants", func() {
		It("should write the missing grant once", func() {
			// Given
			aged("ws_CO_repair", time.Minute)
			repo.grantErr = errors.New("disk full")
			reconciler := paymentpkg.NewReconciler(paymentpkg.ReconcilerParams{Repository: repo, Grants: issuer, Logger: discardLogger()})
			result := reconciler.Reconcile(ctx, successCallback("ws_CO_repair"))
			Expect(result.Outcome).To(Equal(paymentpkg.OutcomeInconsistentState))
			repo.grantErr = nil

			// When
			first, err := sweeper.RepairGrants(ctx)
			Expect(err).ToNot(HaveOccurred())
			second, err := sweeper.RepairGrants(ctx)
			Expect(err).ToNot(HaveOccurred())

			// Then
			Expect(first).To(Equal(1))
			Expect(second).To(Equal(0))
			Expect(repo.grantCount()).To(Equal(1))
		})

		It("should keep going past individual failures", func() {
			// Given
			p := aged("ws_CO_broken", time.Minute)
			p.Status = payment.StatusCompleted
			issuer.err = errors.New("signing key missing")

			// When
			repaired, err := sweeper.RepairGrants(ctx)

			// Then
			Expect(repaired).To(Equal(0))
			Expect(err).To(MatchError(ContainSubstring("signing key missing")))
		})
	})

	Describe("ResolveStale", func() {
		It("should settle stale payments from the provider's answer", func() {
			// Given
			aged("ws_CO_query", 5*time.Minute)
			gateway.queryCode = 0

			// When
			report, err := sweeper.ResolveStale(ctx)

			// Then
			Expect(err).ToNot(HaveOccurred())
			Expect(report.Completed).To(Equal(1))
			stored := repo.get("ws_CO_query")
			Expect(stored.Status).To(Equal(payment.StatusCompleted))
			Expect(string(stored.RawCallback)).To(ContainSubstring("stkpushquery"))
			Expect(repo.grantCount()).To(Equal(1))
		})

		It("should fail payments the provider reports as cancelled", func() {
			aged("ws_CO_query_cancel", 5*time.Minute)
			gateway.queryCode = daraja.ResultCodeCancelledByUser

			report, err := sweeper.ResolveStale(ctx)

			Expect(err).ToNot(HaveOccurred())
			Expect(report.Failed).To(Equal(1))
			Expect(repo.get("ws_CO_query_cancel").Status).To(Equal(payment.StatusFailed))
		})

		It("should leave young payments Pending while the provider is still processing", func() {
			aged("ws_CO_young", 5*time.Minute)
			gateway.queryErr = fmt.Errorf("%w: 500.001.1001", daraja.ErrStillProcessing)

			report, err := sweeper.ResolveStale(ctx)

			Expect(err).ToNot(HaveOccurred())
			Expect(report.StillPending).To(Equal(1))
			Expect(repo.get("ws_CO_young").Status).To(Equal(payment.StatusPending))
		})

		It("should expire payments older than the expiry window", func() {
			aged("ws_CO_ancient", time.Hour)
			gateway.queryErr = fmt.Errorf("%w: timeout", daraja.ErrQuery)

			report, err := sweeper.ResolveStale(ctx)

			Expect(err).ToNot(HaveOccurred())
			Expect(report.Expired).To(Equal(1))
			stored := repo.get("ws_CO_ancient")
			Expect(stored.Status).To(Equal(payment.StatusFailed))
			Expect(*stored.ResultCode).To(Equal(paymentpkg.ResultCodeExpired))
			Expect(*stored.ResultDesc).To(Equal(paymentpkg.ResultDescExpired))
		})

		It("should ignore payments younger than the query window", func() {
			aged("ws_CO_fresh", 30*time.Second)

			report, err := sweeper.ResolveStale(ctx)

			Expect(err).ToNot(HaveOccurred())
			Expect(report).To(Equal(paymentpkg.SweepReport{}))
			Expect(gateway.queryCalls).To(Equal(0))
		})

		It("should not override a callback that landed first", func() {
			// Given
			aged("ws_CO_late", 5*time.Minute)
			reconciler := paymentpkg.NewReconciler(paymentpkg.ReconcilerParams{Repository: repo, Grants: issuer, Logger: discardLogger()})
			reconciler.Reconcile(ctx, failureCallback("ws_CO_late", 1032))
			gateway.queryCode = 0

			// When
			report, err := sweeper.ResolveStale(ctx)

			// Then
			Expect(err).ToNot(HaveOccurred())
			Expect(report.Completed).To(Equal(0))
			Expect(repo.get("ws_CO_late").Status).To(Equal(payment.StatusFailed))
		})
	})

	It("should expose both sweeps as scheduler jobs", func() {
		registry := scheduler.NewRegistry(sweeper.Jobs()...)

		names := []string{}
		for _, job := range registry.Jobs() {
			names = append(names, job.Name())
		}
		Expect(names).To(ConsistOf(paymentpkg.JobRepairGrants, paymentpkg.JobResolveStale))
	})
})
