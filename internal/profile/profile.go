package profile

import (
	"context"
	"errors"

	"github.com/frahmantamala/linkup-hub/internal/core/datamodel/profile"
)

var (
	ErrNotFound      = errors.New("profile not found")
	ErrUsernameTaken = errors.New("username taken")
	ErrEmailTaken    = errors.New("email taken")
)

type RepositoryAPI interface {
	Create(ctx context.Context, p *profile.Profile) error
	GetByID(ctx context.Context, id string) (*profile.Profile, error)
	GetByEmail(ctx context.Context, email string) (*profile.Profile, error)
	Update(ctx context.Context, p *profile.Profile) error
	UsernameTaken(ctx context.Context, username, excludeID string) (bool, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
}

type ServiceAPI interface {
	GetByID(ctx context.Context, id string) (*profile.Profile, error)
	UpdateMe(ctx context.Context, id string, req *UpdateProfileRequest) (*profile.Profile, error)
}
