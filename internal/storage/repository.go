package storage

import (
	"context"

	"github.com/campusmate/server/internal/domain/events"
	"github.com/campusmate/server/internal/domain/groups"
	"github.com/campusmate/server/internal/domain/users"
)

// Repository groups data access by domain.
type Repository interface {
	Users() users.Repository
	Events() events.Repository
	Groups() groups.Repository

	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
}
