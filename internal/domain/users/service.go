// Package users implements the credential store: registration with salted
// password hashing and username/password verification. Identities returned
// from this package never carry the password hash.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/campusmate/server/internal/auth"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrUsernameTaken is returned when registering an existing username.
	ErrUsernameTaken = errors.New("username is already taken")

	// ErrEmailTaken is returned when registering an existing email.
	ErrEmailTaken = errors.New("email is already taken")

	// ErrInvalidCredentials is returned on any login failure. The same
	// error covers unknown usernames and wrong passwords so the response
	// carries no signal about which one it was.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrInvalidInput is returned when a required registration field is
	// empty or malformed.
	ErrInvalidInput = errors.New("username, email and password are required")

	// ErrNotFound is returned when a user lookup by id fails.
	ErrNotFound = errors.New("user not found")
)

// User is a stored identity record. PasswordHash stays inside the storage
// and service layers; Identity is the outward-facing shape.
type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Identity is the minimal public identity: what goes into tokens and
// API responses.
type Identity struct {
	ID       uuid.UUID
	Username string
	Email    string
}

func (u User) Identity() Identity {
	return Identity{ID: u.ID, Username: u.Username, Email: u.Email}
}

// Repository is the persistence contract for user records.
type Repository interface {
	Create(ctx context.Context, user User) (User, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	List(ctx context.Context) ([]User, error)
}

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("component", "users").Logger(),
	}
}

// RegisterParams are the explicit registration fields.
type RegisterParams struct {
	Username string
	Email    string
	Password string
}

// Register creates a new user with a bcrypt-hashed password and returns
// the public identity.
func (s *Service) Register(ctx context.Context, params RegisterParams) (Identity, error) {
	username := strings.TrimSpace(params.Username)
	email := strings.TrimSpace(strings.ToLower(params.Email))
	if username == "" || email == "" || params.Password == "" {
		return Identity{}, ErrInvalidInput
	}
	if err := auth.ValidatePassword(params.Password); err != nil {
		return Identity{}, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return Identity{}, ErrUsernameTaken
	} else if !errors.Is(err, ErrNotFound) {
		return Identity{}, fmt.Errorf("check username: %w", err)
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return Identity{}, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return Identity{}, fmt.Errorf("check email: %w", err)
	}

	hash, err := auth.HashPassword(params.Password)
	if err != nil {
		return Identity{}, fmt.Errorf("hash password: %w", err)
	}

	created, err := s.repo.Create(ctx, User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		return Identity{}, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info().Str("username", created.Username).Msg("user registered")
	return created.Identity(), nil
}

// Authenticate verifies username/password and returns the identity. All
// failure paths return ErrInvalidCredentials; for unknown usernames the
// password check still runs against a dummy hash so response timing does
// not reveal whether the username exists.
func (s *Service) Authenticate(ctx context.Context, username, password string) (Identity, error) {
	user, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			auth.CheckPassword("", password)
			return Identity{}, ErrInvalidCredentials
		}
		return Identity{}, fmt.Errorf("lookup user: %w", err)
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		return Identity{}, ErrInvalidCredentials
	}
	return user.Identity(), nil
}

// GetByID returns the public identity for a user id.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (Identity, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Identity{}, err
	}
	return user.Identity(), nil
}

// Directory lists all identities (id and username only) for member pickers.
func (s *Service) Directory(ctx context.Context) ([]Identity, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	identities := make([]Identity, 0, len(all))
	for _, u := range all {
		identities = append(identities, Identity{ID: u.ID, Username: u.Username})
	}
	return identities, nil
}
