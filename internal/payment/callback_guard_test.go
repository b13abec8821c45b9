package payment_test

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redismock/v9"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	paymentpkg "github.com/frahmantamala/linkup-hub/internal/payment"
	linkupredis "github.com/frahmantamala/linkup-hub/pkg/redis"
)

var _ = Describe("RedisCallbackGuard", func() {
	var (
		ctx   context.Context
		mock  redismock.ClientMock
		guard *paymentpkg.RedisCallbackGuard
	)

	BeforeEach(func() {
		ctx = context.Background()
		raw, m := redismock.NewClientMock()
		mock = m
		var err error
		guard, err = paymentpkg.NewRedisCallbackGuard(linkupredis.Wrap(raw), time.Hour)
		Expect(err).ToNot(HaveOccurred())
	})

	AfterEach(func() {
		Expect(mock.ExpectationsWereMet()).To(Succeed())
	})

	It("should claim a checkout id only once", func() {
		// Given
		mock.ExpectSetNX("daraja:callback:ws_CO_1", "1", time.Hour).SetVal(true)
		mock.ExpectSetNX("daraja:callback:ws_CO_1", "1", time.Hour).SetVal(false)

		// When
		first, err1 := guard.Claim(ctx, "ws_CO_1")
		second, err2 := guard.Claim(ctx, "ws_CO_1")

		// Then
		Expect(err1).ToNot(HaveOccurred())
		Expect(err2).ToNot(HaveOccurred())
		Expect(first).To(BeTrue())
		Expect(second).To(BeFalse())
	})

	It("should report redis failures to the caller", func() {
		mock.ExpectSetNX("daraja:callback:ws_CO_2", "1", time.Hour).SetErr(errors.New("connection refused"))

		_, err := guard.Claim(ctx, "ws_CO_2")

		Expect(err).To(MatchError(ContainSubstring("connection refused")))
	})

	It("should release a claimed checkout id", func() {
		mock.ExpectDel("daraja:callback:ws_CO_3").SetVal(1)

		Expect(guard.Release(ctx, "ws_CO_3")).To(Succeed())
	})

	It("should refuse an empty checkout id", func() {
		_, err := guard.Claim(ctx, "")

		Expect(err).To(HaveOccurred())
	})
})
