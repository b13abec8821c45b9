package profile

import (
	"strings"
	"time"

	"github.com/frahmantamala/linkup-hub/internal/core/common/validation"
	"github.com/frahmantamala/linkup-hub/internal/core/datamodel/profile"
)

type UpdateProfileRequest struct {
	Username    string  `json:"username"`
	FullName    *string `json:"fullName,omitempty"`
	Bio         *string `json:"bio,omitempty"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
	AvatarURL   *string `json:"avatarUrl,omitempty"`
}

func (r *UpdateProfileRequest) Validate() error {
	r.Username = strings.TrimSpace(r.Username)

	v := validation.NewValidator()
	v.Field("username", r.Username).Required().MinLength(3).MaxLength(30)
	v.Field("fullName", valueOf(r.FullName)).MaxLength(100)
	v.Field("bio", valueOf(r.Bio)).MaxLength(500)

	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

func valueOf(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ProfileResponse never carries the password hash or the shadow-ban flag.
type ProfileResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	FullName    *string   `json:"fullName,omitempty"`
	Bio         *string   `json:"bio,omitempty"`
	PhoneNumber *string   `json:"phoneNumber,omitempty"`
	AvatarURL   *string   `json:"avatarUrl,omitempty"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
}

func ToProfileResponse(p *profile.Profile) ProfileResponse {
	return ProfileResponse{
		ID:          p.ID,
		Email:       p.Email,
		Username:    p.Username,
		FullName:    p.FullName,
		Bio:         p.Bio,
		PhoneNumber: p.PhoneNumber,
		AvatarURL:   p.AvatarURL,
		Role:        p.Role,
		CreatedAt:   p.CreatedAt,
	}
}
