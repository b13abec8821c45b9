package rsvp_test

import (
	"encoding/base64"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/linkup-hub/internal/rsvp"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var _ = Describe("Signer", func() {
	var signer *rsvp.Signer

	BeforeEach(func() {
		var err error
		signer, err = rsvp.NewSigner(testSecret)
		Expect(err).ToNot(HaveOccurred())
	})

	It("should refuse short secrets", func() {
		_, err := rsvp.NewSigner("short")
		Expect(err).To(HaveOccurred())
	})

	It("should verify the payloads it signs", func() {
		// Given
		token, err := signer.Sign(rsvp.VerificationPayload{TicketCode: "01HZX", EventID: "evt", UserID: "usr", PaymentID: "pay"})
		Expect(err).ToNot(HaveOccurred())

		// When
		payload, err := signer.Verify(token)

		// Then
		Expect(err).ToNot(HaveOccurred())
		Expect(payload.TicketCode).To(Equal("01HZX"))
		Expect(payload.PaymentID).To(Equal("pay"))
	})

	It("should reject a token whose payload was edited", func() {
		// Given
		token, _ := signer.Sign(rsvp.VerificationPayload{TicketCode: "01HZX", EventID: "evt", UserID: "usr"})
		parts := strings.Split(token, ".")
		Expect(parts).To(HaveLen(3))
		parts[1] = base64.RawURLEncoding.EncodeToString([]byte(`{"ticketCode":"01HZX","eventId":"evt","userId":"someone-else","iss":"linkup-hub/tickets","jti":"01HZX"}`))

		// When
		_, err := signer.Verify(strings.Join(parts, "."))

		// Then
		Expect(err).To(MatchError(rsvp.ErrInvalidTicket))
	})

	It("should reject tokens signed with another secret", func() {
		other, _ := rsvp.NewSigner("fedcba9876543210fedcba9876543210")
		token, _ := other.Sign(rsvp.VerificationPayload{TicketCode: "01HZX", EventID: "evt", UserID: "usr"})

		_, err := signer.Verify(token)

		Expect(err).To(MatchError(rsvp.ErrInvalidTicket))
	})

	It("should reject tokens using another algorithm", func() {
		claims := jwt.MapClaims{"ticketCode": "01HZX", "eventId": "evt", "userId": "usr", "iss": "linkup-hub/tickets", "jti": "01HZX"}

		hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
		Expect(err).ToNot(HaveOccurred())
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		Expect(err).ToNot(HaveOccurred())

		for _, token := range []string{hs512, unsigned} {
			_, err := signer.Verify(token)
			Expect(err).To(MatchError(rsvp.ErrInvalidTicket))
		}
	})

	It("should reject a session token signed with the same secret", func() {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"userId": "usr", "role": "User"}).SignedString([]byte(testSecret))
		Expect(err).ToNot(HaveOccurred())

		_, err = signer.Verify(token)

		Expect(err).To(MatchError(rsvp.ErrInvalidTicket))
	})

	DescribeTable("rejecting garbage",
		func(token string) {
			_, err := signer.Verify(token)
			Expect(err).To(MatchError(rsvp.ErrInvalidTicket))
		},
		Entry("empty", ""),
		Entry("no separators", "abcdef"),
		Entry("two segments", "e30.abcd"),
		Entry("bad base64", "!!!.e30.abcd"),
	)

	It("should issue grants with unique ticket codes and a verifiable payload", func() {
		// Given
		paymentID := "pay-1"

		// When
		first, err := signer.Issue("evt-1", "usr-1", &paymentID)
		Expect(err).ToNot(HaveOccurred())
		second, err := signer.Issue("evt-1", "usr-2", nil)
		Expect(err).ToNot(HaveOccurred())

		// Then
		Expect(first.TicketCode).To(HaveLen(26))
		Expect(first.TicketCode).ToNot(Equal(second.TicketCode))
		Expect(*first.PaymentID).To(Equal("pay-1"))
		Expect(second.PaymentID).To(BeNil())

		payload, err := signer.Verify(first.VerificationPayload)
		Expect(err).ToNot(HaveOccurred())
		Expect(payload.TicketCode).To(Equal(first.TicketCode))
		Expect(payload.PaymentID).To(Equal("pay-1"))
	})
})
