package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/frahmantamala/linkup-hub/internal/core/datamodel/profile"
	profilepkg "github.com/frahmantamala/linkup-hub/internal/profile"
	"gorm.io/gorm"
)

type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

var _ profilepkg.RepositoryAPI = (*ProfileRepository)(nil)

func (r *ProfileRepository) Create(ctx context.Context, p *profile.Profile) error {
	return mapUniqueViolation(r.db.WithContext(ctx).Create(p).Error)
}

func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*profile.Profile, error) {
	var p profile.Profile
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*profile.Profile, error) {
	var p profile.Profile
	if err := r.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *ProfileRepository) Update(ctx context.Context, p *profile.Profile) error {
	err := r.db.WithContext(ctx).Model(p).Select("username", "full_name", "bio", "phone_number", "avatar_url", "updated_at").Updates(p).Error
	return mapUniqueViolation(err)
}

func (r *ProfileRepository) UsernameTaken(ctx context.Context, username, excludeID string) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&profile.Profile{}).Where("LOWER(username) = LOWER(?)", username)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.Count(&count).Error
	return count > 0, err
}

func (r *ProfileRepository) EmailTaken(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&profile.Profile{}).Where("LOWER(email) = LOWER(?)", email).Count(&count).Error
	return count > 0, err
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return profilepkg.ErrNotFound
	}
	return err
}

// mapUniqueViolation turns a lost race on the unique indexes into the
// domain errors the existence checks would have produced.
func mapUniqueViolation(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(strings.ToLower(err.Error()), "unique") {
		msg := strings.ToLower(err.Error())
		switch {
		case strings.Contains(msg, "email"):
			return profilepkg.ErrEmailTaken
		case strings.Contains(msg, "username"):
			return profilepkg.ErrUsernameTaken
		}
	}
	return err
}
