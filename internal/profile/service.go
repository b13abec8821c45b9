package profile

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/frahmantamala/linkup-hub/internal"
	"github.com/frahmantamala/linkup-hub/internal/core/datamodel/profile"
	"github.com/frahmantamala/linkup-hub/internal/daraja"
)

type Service struct {
	repo        RepositoryAPI
	countryCode string
	logger      *slog.Logger
}

func NewService(repo RepositoryAPI, countryCode string, logger *slog.Logger) *Service {
	if countryCode == "" {
		countryCode = "254"
	}
	return &Service{
		repo:        repo,
		countryCode: countryCode,
		logger:      logger,
	}
}

func (s *Service) GetByID(ctx context.Context, id string) (*profile.Profile, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, internal.NewNotFoundError("Profile not found", internal.ErrCodeProfileNotFound)
		}
		return nil, internal.NewInternalError("failed to load profile", err)
	}
	return p, nil
}

// UpdateMe replaces the editable fields. The phone number is stored in the
// same form the payment provider expects.
func (s *Service) UpdateMe(ctx context.Context, id string, req *UpdateProfileRequest) (*profile.Profile, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !strings.EqualFold(p.Username, req.Username) {
		taken, err := s.repo.UsernameTaken(ctx, req.Username, id)
		if err != nil {
			return nil, internal.NewInternalError("failed to check username", err)
		}
		if taken {
			return nil, internal.NewConflictError("Username is already taken.", internal.ErrCodeUsernameTaken)
		}
	}

	var phone *string
	if req.PhoneNumber != nil && strings.TrimSpace(*req.PhoneNumber) != "" {
		normalized, err := daraja.NormalizePhone(*req.PhoneNumber, s.countryCode)
		if err != nil {
			return nil, internal.NewValidationFieldError("phoneNumber", "phoneNumber is not a valid mobile number", internal.ErrCodeInvalidPhone)
		}
		phone = &normalized
	}

	p.Username = req.Username
	p.FullName = req.FullName
	p.Bio = req.Bio
	p.PhoneNumber = phone
	p.AvatarURL = req.AvatarURL

	if err := s.repo.Update(ctx, p); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return nil, internal.NewConflictError("Username is already taken.", internal.ErrCodeUsernameTaken)
		}
		return nil, internal.NewInternalError("failed to update profile", err)
	}

	s.logger.Info("profile updated", "user_id", id)
	return p, nil
}
