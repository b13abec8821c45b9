package daraja_test

import (
	"encoding/base64"
	"errors"
	"time"

	"github.com/frahmantamala/linkup-hub/internal/daraja"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Password and Timestamp", func() {
	It("formats the timestamp in the provider's zone", func() {
		nairobi := time.FixedZone("EAT", 3*60*60)
		t := time.Date(2024, 3, 1, 21, 30, 5, 0, time.UTC)

		Expect(daraja.Timestamp(t, nairobi)).To(Equal("20240302003005"))
	})

	It("encodes shortcode, passkey and timestamp", func() {
		pw := daraja.Password("174379", "passkey", "20240101120000")

		decoded, err := base64.StdEncoding.DecodeString(pw)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(decoded)).To(Equal("174379passkey20240101120000"))
	})
})

var _ = Describe("NormalizePhone", func() {
	DescribeTable("accepted numbers",
		func(raw, expected string) {
			phone, err := daraja.NormalizePhone(raw, "254")
			Expect(err).NotTo(HaveOccurred())
			Expect(phone).To(Equal(expected))
		},
		Entry("local format", "0712345678", "254712345678"),
		Entry("international format", "254712345678", "254712345678"),
		Entry("leading plus", "+254712345678", "254712345678"),
		Entry("surrounding spaces", "  0712345678 ", "254712345678"),
	)

	DescribeTable("rejected numbers",
		func(raw string) {
			_, err := daraja.NormalizePhone(raw, "254")
			Expect(errors.Is(err, daraja.ErrInvalidPhone)).To(BeTrue())
		},
		Entry("empty", ""),
		Entry("too short", "07123"),
		Entry("too long", "2547123456789012"),
		Entry("letters", "07123abc78"),
	)
})
