package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Shivanand-hulikatti/volunteer-enrollment/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EventRepository reads events owned by the directory.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// GetEvent returns a single event or model.ErrEventNotFound.
func (r *EventRepository) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	var e model.Event
	err := r.db.QueryRow(ctx,
		`SELECT id, title, start_at, end_at, capacity, registration_open, created_at
		 FROM events WHERE id = $1`,
		id,
	).Scan(&e.ID, &e.Title, &e.StartAt, &e.EndAt, &e.Capacity, &e.RegistrationOpen, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrEventNotFound
		}
		return nil, classify("get event", err)
	}
	return &e, nil
}

// Upsert writes a fixture event. Used only to seed local databases.
func (r *EventRepository) Upsert(ctx context.Context, e model.Event) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO events (id, title, start_at, end_at, capacity, registration_open, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
		   title = EXCLUDED.title,
		   start_at = EXCLUDED.start_at,
		   end_at = EXCLUDED.end_at,
		   capacity = EXCLUDED.capacity,
		   registration_open = EXCLUDED.registration_open`,
		e.ID, e.Title, e.StartAt, e.EndAt, e.Capacity, e.RegistrationOpen, e.CreatedAt,
	)
	return classify("upsert event", err)
}
