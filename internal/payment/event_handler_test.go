package payment_test

import (
	"context"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/linkup-hub/internal/core/events"
	paymentpkg "github.com/frahmantamala/linkup-hub/internal/payment"
)

var _ = Describe("EventHandler", func() {
	It("should sum settled amounts by final status", func() {
		// Given
		registry := prometheus.NewRegistry()
		handler := paymentpkg.NewEventHandler(paymentpkg.NewMetrics(registry), discardLogger())
		bus := events.NewEventBus(discardLogger())
		handler.RegisterEventHandlers(bus)
		ctx := context.Background()

		// When
		Expect(bus.PublishSync(ctx, events.NewPaymentCompletedEvent("p1", "ws_CO_1", "e1", "u1", decimal.NewFromInt(1500), "R1"))).To(Succeed())
		Expect(bus.PublishSync(ctx, events.NewPaymentCompletedEvent("p2", "ws_CO_2", "e1", "u2", decimal.NewFromInt(500), "R2"))).To(Succeed())
		Expect(bus.PublishSync(ctx, events.NewPaymentFailedEvent("p3", "ws_CO_3", "e1", "u3", decimal.NewFromInt(700), 1032, "cancelled"))).To(Succeed())

		// Then
		expected := `
# HELP payment_settled_amount_total Sum of settled payment amounts by final status.
# TYPE payment_settled_amount_total counter
payment_settled_amount_total{status="Completed"} 2000
payment_settled_amount_total{status="Failed"} 700
`
		Expect(testutil.GatherAndCompare(registry, strings.NewReader(expected), "payment_settled_amount_total")).To(Succeed())
	})

	It("should reject events of the wrong type", func() {
		handler := paymentpkg.NewEventHandler(nil, discardLogger())

		err := handler.HandlePaymentCompleted(context.Background(), events.NewAccessGrantedEvent("g1", "e1", "u1", "p1"))

		Expect(err).To(HaveOccurred())
	})
})
