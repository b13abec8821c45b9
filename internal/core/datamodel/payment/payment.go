package payment

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPending   = "Pending"
	StatusCompleted = "Completed"
	StatusFailed    = "Failed"
)

type Payment struct {
	ID                 string          `gorm:"column:id;primaryKey;type:uuid"`
	UserID             string          `gorm:"column:user_id;type:uuid;not null;index:idx_payments_user_created,priority:1"`
	EventID            string          `gorm:"column:event_id;type:uuid;not null"`
	Amount             decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	PhoneNumber        string          `gorm:"column:phone_number;not null"`
	CheckoutRequestID  string          `gorm:"column:checkout_request_id;not null;uniqueIndex"`
	MerchantRequestID  string          `gorm:"column:merchant_request_id"`
	Status             string          `gorm:"column:status;not null;index:idx_payments_status_created,priority:1"`
	ResultCode         *int            `gorm:"column:result_code"`
	ResultDesc         *string         `gorm:"column:result_desc"`
	MpesaReceiptNumber *string         `gorm:"column:mpesa_receipt_number"`
	RawCallback        json.RawMessage `gorm:"column:raw_callback;type:jsonb"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime;index:idx_payments_status_created,priority:2;index:idx_payments_user_created,priority:2"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Payment) TableName() string {
	return "payments"
}

func (p *Payment) IsTerminal() bool {
	return p.Status == StatusCompleted || p.Status == StatusFailed
}

// CallbackLog is the audit trail of every provider callback received,
// including the ones that matched no payment.
type CallbackLog struct {
	ID                int64           `gorm:"column:id;primaryKey;autoIncrement"`
	CheckoutRequestID string          `gorm:"column:checkout_request_id;index"`
	ResultCode        *int            `gorm:"column:result_code"`
	Outcome           string          `gorm:"column:outcome;not null"`
	Payload           json.RawMessage `gorm:"column:payload;type:jsonb"`
	ReceivedAt        time.Time       `gorm:"column:received_at;autoCreateTime"`
}

func (CallbackLog) TableName() string {
	return "payment_callbacks"
}
