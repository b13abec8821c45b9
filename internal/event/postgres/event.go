package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/frahmantamala/linkup-hub/internal/core/datamodel/event"
	eventpkg "github.com/frahmantamala/linkup-hub/internal/event"
	"github.com/jmoiron/sqlx"
)

const eventColumns = `id, title, description, poster_url, event_date, location, is_free, price, created_by, created_at, updated_at`

// EventRepository writes plain SQL through sqlx. Queries use ? and are
// rebound for the driver, so they run on both pgx and sqlite.
type EventRepository struct {
	db *sqlx.DB
}

func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

var _ eventpkg.RepositoryAPI = (*EventRepository)(nil)

func (r *EventRepository) List(ctx context.Context) ([]*event.Event, error) {
	events := []*event.Event{}
	query := r.db.Rebind(`SELECT ` + eventColumns + ` FROM events ORDER BY created_at DESC`)
	if err := r.db.SelectContext(ctx, &events, query); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func (r *EventRepository) GetByID(ctx context.Context, id string) (*event.Event, error) {
	var e event.Event
	query := r.db.Rebind(`SELECT ` + eventColumns + ` FROM events WHERE id = ?`)
	if err := r.db.GetContext(ctx, &e, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eventpkg.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &e, nil
}

func (r *EventRepository) Create(ctx context.Context, e *event.Event) error {
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now

	query := r.db.Rebind(`INSERT INTO events (` + eventColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.Title, e.Description, e.PosterURL, e.EventDate, e.Location, e.IsFree, e.Price, e.CreatedBy, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (r *EventRepository) Update(ctx context.Context, e *event.Event) error {
	e.UpdatedAt = time.Now().UTC()

	query := r.db.Rebind(`UPDATE events
SET title = ?, description = ?, poster_url = ?, event_date = ?, location = ?, is_free = ?, price = ?, updated_at = ?
WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query,
		e.Title, e.Description, e.PosterURL, e.EventDate, e.Location, e.IsFree, e.Price, e.UpdatedAt, e.ID)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return requireRow(res)
}

func (r *EventRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM events WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return eventpkg.ErrNotFound
	}
	return nil
}
