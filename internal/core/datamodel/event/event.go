package event

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event rows are read and written through sqlx, hence db tags.
type Event struct {
	ID          string          `db:"id"`
	Title       string          `db:"title"`
	Description string          `db:"description"`
	PosterURL   *string         `db:"poster_url"`
	EventDate   time.Time       `db:"event_date"`
	Location    string          `db:"location"`
	IsFree      bool            `db:"is_free"`
	Price       decimal.Decimal `db:"price"`
	CreatedBy   string          `db:"created_by"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}
