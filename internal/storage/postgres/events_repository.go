package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/campusmate/server/internal/domain/events"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ events.Repository = (*EventRepository)(nil)

type EventRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func (r *EventRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

func (r *EventRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]events.Event, error) {
	rows, err := r.queryer().Query(ctx, `
SELECT id, user_id, title, start_time, end_time, event_type, created_at, updated_at
  FROM events
 WHERE user_id = $1
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

func (r *EventRepository) GetByID(ctx context.Context, id string) (events.Event, error) {
	row := r.queryer().QueryRow(ctx, `
SELECT id, user_id, title, start_time, end_time, event_type, created_at, updated_at
  FROM events
 WHERE id = $1
`, id)

	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return events.Event{}, events.ErrNotFound
		}
		return events.Event{}, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

func (r *EventRepository) Create(ctx context.Context, event events.Event) (events.Event, error) {
	row := r.queryer().QueryRow(ctx, `
INSERT INTO events (id, user_id, title, start_time, end_time, event_type, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, now(), now())
RETURNING id, user_id, title, start_time, end_time, event_type, created_at, updated_at
`, event.ID, event.UserID, event.Title, event.Start, event.End, event.Type)

	created, err := scanEvent(row)
	if err != nil {
		return events.Event{}, fmt.Errorf("create event: %w", err)
	}
	return created, nil
}

func (r *EventRepository) Update(ctx context.Context, event events.Event) error {
	tag, err := r.queryer().Exec(ctx, `
UPDATE events
   SET title = $2, start_time = $3, end_time = $4, event_type = $5, updated_at = now()
 WHERE id = $1
`, event.ID, event.Title, event.Start, event.End, event.Type)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return events.ErrNotFound
	}
	return nil
}

func (r *EventRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.queryer().Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return events.ErrNotFound
	}
	return nil
}

func scanEvent(row pgx.Row) (events.Event, error) {
	var (
		event     events.Event
		endTime   pgtype.Timestamptz
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	if err := row.Scan(
		&event.ID,
		&event.UserID,
		&event.Title,
		&event.Start,
		&endTime,
		&event.Type,
		&createdAt,
		&updatedAt,
	); err != nil {
		return events.Event{}, err
	}
	if endTime.Valid {
		end := endTime.Time
		event.End = &end
	}
	if createdAt.Valid {
		event.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		event.UpdatedAt = updatedAt.Time
	}
	return event, nil
}
