package postgres

import (
	"context"
	"errors"

	"github.com/frahmantamala/linkup-hub/internal/core/datamodel/rsvp"
	rsvppkg "github.com/frahmantamala/linkup-hub/internal/rsvp"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AccessGrantRepository struct {
	db *gorm.DB
}

func NewAccessGrantRepository(db *gorm.DB) *AccessGrantRepository {
	return &AccessGrantRepository{db: db}
}

var _ rsvppkg.RepositoryAPI = (*AccessGrantRepository)(nil)

func (r *AccessGrantRepository) Create(ctx context.Context, grant *rsvp.AccessGrant) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(grant)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *AccessGrantRepository) Exists(ctx context.Context, eventID, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&rsvp.AccessGrant{}).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *AccessGrantRepository) GetByTicketCode(ctx context.Context, ticketCode string) (*rsvp.AccessGrant, error) {
	var grant rsvp.AccessGrant
	err := r.db.WithContext(ctx).Where("ticket_code = ?", ticketCode).First(&grant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, rsvppkg.ErrNotFound
		}
		return nil, err
	}
	return &grant, nil
}

func (r *AccessGrantRepository) ListByUser(ctx context.Context, userID string) ([]*rsvppkg.GrantWithEvent, error) {
	var grants []*rsvppkg.GrantWithEvent
	err := r.db.WithContext(ctx).
		Table("access_grants AS g").
		Select("g.*, e.title AS event_title, e.event_date AS event_date, e.location AS event_location").
		Joins("JOIN events e ON e.id = g.event_id").
		Where("g.user_id = ?", userID).
		Order("g.created_at DESC").
		Scan(&grants).Error
	return grants, err
}
