package profile_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/frahmantamala/linkup-hub/internal"
	datamodel "github.com/frahmantamala/linkup-hub/internal/core/datamodel/profile"
	"github.com/frahmantamala/linkup-hub/internal/profile"
	"github.com/frahmantamala/linkup-hub/internal/profile/postgres"
	"github.com/frahmantamala/linkup-hub/internal/transport"
)

func strPtr(s string) *string { return &s }

var _ = Describe("Profile", func() {
	var (
		ctx     context.Context
		repo    *postgres.ProfileRepository
		service *profile.Service
		amina   *datamodel.Profile
		brian   *datamodel.Profile
	)

	BeforeEach(func() {
		ctx = context.Background()

		db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)
		DeferCleanup(sqlDB.Close)
		Expect(db.AutoMigrate(&datamodel.Profile{})).To(Succeed())

		repo = postgres.NewProfileRepository(db)
		service = profile.NewService(repo, "254", slog.New(slog.NewTextHandler(io.Discard, nil)))

		amina = &datamodel.Profile{ID: uuid.NewString(), Email: "amina@example.com", PasswordHash: "x", Username: "amina", Role: datamodel.RoleUser}
		brian = &datamodel.Profile{ID: uuid.NewString(), Email: "brian@example.com", PasswordHash: "x", Username: "brian", Role: datamodel.RoleAdmin}
		Expect(repo.Create(ctx, amina)).To(Succeed())
		Expect(repo.Create(ctx, brian)).To(Succeed())
	})

	Describe("Repository", func() {
		It("finds profiles by email regardless of case", func() {
			p, err := repo.GetByEmail(ctx, "AMINA@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(p.ID).To(Equal(amina.ID))
		})

		It("returns ErrNotFound for an unknown id", func() {
			_, err := repo.GetByID(ctx, uuid.NewString())
			Expect(err).To(MatchError(profile.ErrNotFound))
		})

		It("excludes the caller from the username check", func() {
			taken, err := repo.UsernameTaken(ctx, "Amina", amina.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(taken).To(BeFalse())

			taken, err = repo.UsernameTaken(ctx, "Amina", brian.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(taken).To(BeTrue())
		})

		It("maps a unique violation on create to a domain error", func() {
			dup := &datamodel.Profile{ID: uuid.NewString(), Email: "other@example.com", PasswordHash: "x", Username: "amina", Role: datamodel.RoleUser}
			Expect(repo.Create(ctx, dup)).To(MatchError(profile.ErrUsernameTaken))
		})
	})

	Describe("UpdateMe", func() {
		It("stores the phone number in international form", func() {
			req := &profile.UpdateProfileRequest{Username: "amina", FullName: strPtr("Amina Odhiambo"), PhoneNumber: strPtr("0712345678")}

			p, err := service.UpdateMe(ctx, amina.ID, req)

			Expect(err).NotTo(HaveOccurred())
			Expect(*p.PhoneNumber).To(Equal("254712345678"))

			stored, err := repo.GetByID(ctx, amina.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(*stored.FullName).To(Equal("Amina Odhiambo"))
			Expect(*stored.PhoneNumber).To(Equal("254712345678"))
		})

		It("rejects a username held by someone else", func() {
			_, err := service.UpdateMe(ctx, amina.ID, &profile.UpdateProfileRequest{Username: "Brian"})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(http.StatusConflict))
			Expect(appErr.Code).To(Equal(internal.ErrCodeUsernameTaken))
		})

		It("rejects a phone number that is not a mobile number", func() {
			_, err := service.UpdateMe(ctx, amina.ID, &profile.UpdateProfileRequest{Username: "amina", PhoneNumber: strPtr("07-12")})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("rejects a short username", func() {
			_, err := service.UpdateMe(ctx, amina.ID, &profile.UpdateProfileRequest{Username: "am"})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeValidationFailed))
		})

		It("returns 404 for an unknown profile", func() {
			_, err := service.UpdateMe(ctx, uuid.NewString(), &profile.UpdateProfileRequest{Username: "ghost"})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeProfileNotFound))
		})
	})

	Describe("Handler", func() {
		var handler *profile.Handler

		BeforeEach(func() {
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			handler = profile.NewHandler(transport.NewBaseHandler(logger), service, logger)
		})

		It("requires an authenticated caller", func() {
			rec := httptest.NewRecorder()
			handler.GetMe(rec, httptest.NewRequest(http.MethodGet, "/api/v1/profiles/me", nil))
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})

		It("returns the caller's profile without secrets", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/profiles/me", nil)
			req = req.WithContext(internal.ContextWithIdentity(req.Context(), amina.ID, amina.Role))
			rec := httptest.NewRecorder()

			handler.GetMe(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).NotTo(ContainSubstring("password"))
			var body profile.ProfileResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body.Username).To(Equal("amina"))
		})

		It("updates the caller's profile", func() {
			req := httptest.NewRequest(http.MethodPut, "/api/v1/profiles/me", strings.NewReader(`{"username":"amina_o","bio":"Nairobi"}`))
			req = req.WithContext(internal.ContextWithIdentity(req.Context(), amina.ID, amina.Role))
			rec := httptest.NewRecorder()

			handler.UpdateMe(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			var body profile.ProfileResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body.Username).To(Equal("amina_o"))
			Expect(*body.Bio).To(Equal("Nairobi"))
		})
	})
})
