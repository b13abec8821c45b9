package rsvp

import "time"

type AccessGrant struct {
	ID                  string    `gorm:"column:id;primaryKey;type:uuid"`
	EventID             string    `gorm:"column:event_id;type:uuid;not null;uniqueIndex:idx_access_grants_event_user,priority:1"`
	UserID              string    `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_access_grants_event_user,priority:2"`
	PaymentID           *string   `gorm:"column:payment_id;type:uuid;uniqueIndex"`
	TicketCode          string    `gorm:"column:ticket_code;not null;uniqueIndex"`
	VerificationPayload string    `gorm:"column:verification_payload;not null"`
	CreatedAt           time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (AccessGrant) TableName() string {
	return "access_grants"
}
