package rsvp_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/frahmantamala/linkup-hub/internal"
	"github.com/frahmantamala/linkup-hub/internal/core/datamodel/event"
	datamodel "github.com/frahmantamala/linkup-hub/internal/core/datamodel/rsvp"
	"github.com/frahmantamala/linkup-hub/internal/rsvp"
	"github.com/frahmantamala/linkup-hub/internal/rsvp/postgres"
)

type stubEvents struct {
	events map[string]*event.Event
}

func (s *stubEvents) GetByID(ctx context.Context, id string) (*event.Event, error) {
	ev, ok := s.events[id]
	if !ok {
		return nil, internal.NewNotFoundError("Event not found", internal.ErrCodeEventNotFound)
	}
	return ev, nil
}

const eventsDDL = `CREATE TABLE events (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	poster_url TEXT,
	event_date DATETIME NOT NULL,
	location TEXT NOT NULL,
	is_free BOOLEAN NOT NULL DEFAULT 0,
	price NUMERIC(12,2) NOT NULL DEFAULT 0,
	created_by TEXT,
	created_at DATETIME,
	updated_at DATETIME
)`

var _ = Describe("Service", func() {
	var (
		ctx     context.Context
		db      *gorm.DB
		service *rsvp.Service
		signer  *rsvp.Signer
		free    *event.Event
		paid    *event.Event
		userID  string
	)

	expectAppError := func(err error, status int, code internal.ErrorCode) {
		appErr, ok := internal.IsAppError(err)
		ExpectWithOffset(1, ok).To(BeTrue())
		ExpectWithOffset(1, appErr.StatusCode).To(Equal(status))
		ExpectWithOffset(1, appErr.Code).To(Equal(code))
	}

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
		Expect(err).ToNot(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).ToNot(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)
		Expect(db.AutoMigrate(&datamodel.AccessGrant{})).To(Succeed())
		Expect(db.Exec(eventsDDL).Error).To(Succeed())

		free = &event.Event{ID: uuid.NewString(), Title: "Open Mic", Description: "d", Location: "Nairobi", EventDate: time.Now().UTC().Add(48 * time.Hour), IsFree: true}
		paid = &event.Event{ID: uuid.NewString(), Title: "Gala", Description: "d", Location: "Mombasa", EventDate: time.Now().UTC().Add(72 * time.Hour), Price: decimal.NewFromInt(2000)}
		for _, ev := range []*event.Event{free, paid} {
			Expect(db.Exec(`INSERT INTO events (id, title, description, event_date, location, is_free, price) VALUES (?, ?, ?, ?, ?, ?, ?)`,
				ev.ID, ev.Title, ev.Description, ev.EventDate, ev.Location, ev.IsFree, ev.Price).Error).To(Succeed())
		}

		signer, err = rsvp.NewSigner(testSecret)
		Expect(err).ToNot(HaveOccurred())
		lookups := &stubEvents{events: map[string]*event.Event{free.ID: free, paid.ID: paid}}
		service = rsvp.NewService(postgres.NewAccessGrantRepository(db), lookups, signer, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
		userID = uuid.NewString()
	})

	Describe("RSVP", func() {
		It("should grant access to a free event once", func() {
			// When
			grant, err := service.RSVP(ctx, userID, free.ID)

			// Then
			Expect(err).ToNot(HaveOccurred())
			Expect(grant.PaymentID).To(BeNil())
			has, err := service.HasGrant(ctx, free.ID, userID)
			Expect(err).ToNot(HaveOccurred())
			Expect(has).To(BeTrue())

			_, err = service.RSVP(ctx, userID, free.ID)
			expectAppError(err, http.StatusConflict, internal.ErrCodeAlreadyHasTicket)
		})

		It("should send paid events to the payment flow", func() {
			_, err := service.RSVP(ctx, userID, paid.ID)

			expectAppError(err, http.StatusBadRequest, internal.ErrCodeEventRequiresPayment)
		})

		It("should return not found for unknown events", func() {
			_, err := service.RSVP(ctx, userID, uuid.NewString())

			expectAppError(err, http.StatusNotFound, internal.ErrCodeEventNotFound)
		})
	})

	Describe("ListMine", func() {
		It("should include the event details", func() {
			// Given
			_, err := service.RSVP(ctx, userID, free.ID)
			Expect(err).ToNot(HaveOccurred())
			_, err = service.RSVP(ctx, uuid.NewString(), free.ID)
			Expect(err).ToNot(HaveOccurred())

			// When
			grants, err := service.ListMine(ctx, userID)

			// Then
			Expect(err).ToNot(HaveOccurred())
			Expect(grants).To(HaveLen(1))
			Expect(grants[0].EventTitle).To(Equal("Open Mic"))
			Expect(grants[0].EventLocation).To(Equal("Nairobi"))
		})
	})

	Describe("Verify", func() {
		It("should accept a stored ticket", func() {
			// Given
			grant, err := service.RSVP(ctx, userID, free.ID)
			Expect(err).ToNot(HaveOccurred())

			// When
			ticket, err := service.Verify(ctx, grant.VerificationPayload)

			// Then
			Expect(err).ToNot(HaveOccurred())
			Expect(ticket.Grant.ID).To(Equal(grant.ID))
			Expect(ticket.Payload.UserID).To(Equal(userID))
		})

		It("should reject a correctly signed ticket that was never stored", func() {
			// Given
			orphan, err := signer.Issue(free.ID, userID, nil)
			Expect(err).ToNot(HaveOccurred())

			// When
			_, err = service.Verify(ctx, orphan.VerificationPayload)

			// Then
			expectAppError(err, http.StatusBadRequest, internal.ErrCodeInvalidTicket)
		})

		It("should reject a tampered ticket", func() {
			_, err := service.Verify(ctx, "e30.00")

			expectAppError(err, http.StatusBadRequest, internal.ErrCodeInvalidTicket)
		})
	})
})
