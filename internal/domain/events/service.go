// Package events implements the ownership-scoped calendar event store.
// Every operation takes the authenticated caller's identity and either
// filters by it (List) or verifies it against the record's owner
// (Update, Delete).
package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/campusmate/server/internal/domain/ids"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrNotFound is returned when an event does not exist. Only Update
	// discloses absence; Delete maps absence to ErrForbidden.
	ErrNotFound = errors.New("event not found")

	// ErrForbidden is returned when the caller does not own the event.
	ErrForbidden = errors.New("not allowed to access this event")

	// ErrValidation is returned when a required field is missing or
	// malformed.
	ErrValidation = errors.New("invalid event")
)

// DefaultType is assigned when no event type is supplied. The client uses
// the "task" type to flag items that need urgency highlighting.
const DefaultType = "event"

// Event is a calendar entry owned by exactly one user.
type Event struct {
	ID        string
	UserID    uuid.UUID
	Title     string
	Start     time.Time
	End       *time.Time
	Type      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository is the persistence contract for events. GetByID returns
// ErrNotFound when no row exists; ownership checks live in the service.
type Repository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Event, error)
	GetByID(ctx context.Context, id string) (Event, error)
	Create(ctx context.Context, event Event) (Event, error)
	Update(ctx context.Context, event Event) error
	Delete(ctx context.Context, id string) error
}

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("component", "events").Logger(),
	}
}

// Params are the mutable event fields, shared by Create and Update.
type Params struct {
	Title string
	Start time.Time
	End   *time.Time
	Type  string
}

func (p Params) validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if p.Start.IsZero() {
		return fmt.Errorf("%w: start is required", ErrValidation)
	}
	if p.End != nil && p.End.Before(p.Start) {
		return fmt.Errorf("%w: end must not be before start", ErrValidation)
	}
	return nil
}

// List returns all events owned by the caller, in no guaranteed order.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]Event, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Create persists a new event owned by the caller.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, params Params) (Event, error) {
	if err := params.validate(); err != nil {
		return Event{}, err
	}

	id, err := ids.NewULID()
	if err != nil {
		return Event{}, fmt.Errorf("mint event id: %w", err)
	}

	eventType := strings.TrimSpace(params.Type)
	if eventType == "" {
		eventType = DefaultType
	}

	created, err := s.repo.Create(ctx, Event{
		ID:     id,
		UserID: userID,
		Title:  strings.TrimSpace(params.Title),
		Start:  params.Start,
		End:    params.End,
		Type:   eventType,
	})
	if err != nil {
		return Event{}, fmt.Errorf("create event: %w", err)
	}
	return created, nil
}

// Update overwrites all mutable fields of the caller's event. Returns
// ErrNotFound if the event does not exist and ErrForbidden if it belongs
// to another user. Concurrent updates are last-writer-wins; there is no
// optimistic locking at this scale.
func (s *Service) Update(ctx context.Context, userID uuid.UUID, id string, params Params) (Event, error) {
	if err := params.validate(); err != nil {
		return Event{}, err
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Event{}, err
	}
	if existing.UserID != userID {
		s.logger.Warn().Str("event_id", id).Str("owner", existing.UserID.String()).
			Str("caller", userID.String()).Msg("cross-user event update rejected")
		return Event{}, ErrForbidden
	}

	existing.Title = strings.TrimSpace(params.Title)
	existing.Start = params.Start
	existing.End = params.End
	existing.Type = strings.TrimSpace(params.Type)
	if existing.Type == "" {
		existing.Type = DefaultType
	}

	if err := s.repo.Update(ctx, existing); err != nil {
		return Event{}, fmt.Errorf("update event: %w", err)
	}
	return existing, nil
}

// Delete removes the caller's event. Absent and unowned events both fail
// with ErrForbidden so a delete probe cannot confirm existence.
func (s *Service) Delete(ctx context.Context, userID uuid.UUID, id string) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrForbidden
		}
		return err
	}
	if existing.UserID != userID {
		s.logger.Warn().Str("event_id", id).Str("owner", existing.UserID.String()).
			Str("caller", userID.String()).Msg("cross-user event delete rejected")
		return ErrForbidden
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}
