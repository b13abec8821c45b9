package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/frahmantamala/linkup-hub/internal/core/datamodel/payment"
	"github.com/frahmantamala/linkup-hub/internal/core/datamodel/rsvp"
	paymentpkg "github.com/frahmantamala/linkup-hub/internal/payment"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const grantSavePoint = "access_grant"

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{
		db: db,
	}
}

var _ paymentpkg.RepositoryAPI = (*PaymentRepository)(nil)

func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*payment.Payment, error) {
	var p payment.Payment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *PaymentRepository) GetByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*payment.Payment, error) {
	var p payment.Payment
	err := r.db.WithContext(ctx).Where("checkout_request_id = ?", checkoutRequestID).First(&p).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *PaymentRepository) ListByUser(ctx context.Context, userID string) ([]*payment.Payment, error) {
	var payments []*payment.Payment
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&payments).Error
	return payments, err
}

// MarkCompleted flips the payment and inserts its grant in one transaction.
// The grant insert runs behind a savepoint: if it fails the payment still
// commits as Completed and ErrGrantWrite is returned for the sweeper to repair.
func (r *PaymentRepository) MarkCompleted(ctx context.Context, t paymentpkg.Transition, grant *rsvp.AccessGrant) (bool, error) {
	var (
		granted  bool
		grantErr error
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := resolve(tx, payment.StatusCompleted, t); err != nil {
			return err
		}
		if grant == nil {
			return nil
		}

		if err := tx.SavePoint(grantSavePoint).Error; err != nil {
			return err
		}
		res := insertGrant(tx, grant)
		if res.Error != nil {
			grantErr = res.Error
			return tx.RollbackTo(grantSavePoint).Error
		}
		granted = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	if grantErr != nil {
		return false, fmt.Errorf("%w: %v", paymentpkg.ErrGrantWrite, grantErr)
	}
	return granted, nil
}

func (r *PaymentRepository) MarkFailed(ctx context.Context, t paymentpkg.Transition) error {
	return resolve(r.db.WithContext(ctx), payment.StatusFailed, t)
}

func (r *PaymentRepository) ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*payment.Payment, error) {
	var payments []*payment.Payment
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", payment.StatusPending, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&payments).Error
	return payments, err
}

func (r *PaymentRepository) ListCompletedWithoutGrant(ctx context.Context, limit int) ([]*payment.Payment, error) {
	var payments []*payment.Payment
	err := r.db.WithContext(ctx).
		Where("status = ?", payment.StatusCompleted).
		Where("NOT EXISTS (SELECT 1 FROM access_grants g WHERE g.event_id = payments.event_id AND g.user_id = payments.user_id)").
		Order("created_at ASC").
		Limit(limit).
		Find(&payments).Error
	return payments, err
}

// EnsureGrant inserts grant unless the user already holds one for the event.
func (r *PaymentRepository) EnsureGrant(ctx context.Context, grant *rsvp.AccessGrant) (bool, error) {
	res := insertGrant(r.db.WithContext(ctx), grant)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *PaymentRepository) RecordCallback(ctx context.Context, entry *payment.CallbackLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// resolve only touches a row that is still Pending, which makes every
// transition safe against redelivery and concurrent sweeps.
func resolve(db *gorm.DB, status string, t paymentpkg.Transition) error {
	updates := map[string]interface{}{
		"status":      status,
		"result_code": t.ResultCode,
		"result_desc": t.ResultDesc,
		"updated_at":  time.Now(),
	}
	if t.ReceiptNumber != "" {
		updates["mpesa_receipt_number"] = t.ReceiptNumber
	}
	if len(t.RawCallback) > 0 {
		updates["raw_callback"] = t.RawCallback
	}

	res := db.Model(&payment.Payment{}).
		Where("checkout_request_id = ? AND status = ?", t.CheckoutRequestID, payment.StatusPending).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return paymentpkg.ErrAlreadyResolved
	}
	return nil
}

func insertGrant(db *gorm.DB, grant *rsvp.AccessGrant) *gorm.DB {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(grant)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return paymentpkg.ErrNotFound
	}
	return err
}
