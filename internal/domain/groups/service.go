// Package groups implements named member collections with membership-based
// authorization. A group's detail view, invite, and email broadcast are all
// gated on the caller being a member; membership is append-only.
package groups

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/campusmate/server/internal/domain/ids"
	"github.com/campusmate/server/internal/domain/users"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrNotFound is the repository-level miss. The service never exposes
	// it for gated operations; absence surfaces as ErrForbidden there.
	ErrNotFound = errors.New("group not found")

	// ErrForbidden is returned when the caller is not a member.
	ErrForbidden = errors.New("not a member of this group")

	// ErrValidation is returned when a required field is missing.
	ErrValidation = errors.New("invalid group")
)

// Group is a named collection of user identities.
type Group struct {
	ID      string
	Title   string
	Members []uuid.UUID
}

// Member is a group member as shown in the detail view.
type Member struct {
	ID       uuid.UUID
	Username string
}

// Detail is a group with its membership resolved to identities.
type Detail struct {
	ID      string
	Title   string
	Members []Member
}

// HasMember reports whether userID is in the group's member set.
func (g Group) HasMember(userID uuid.UUID) bool {
	for _, m := range g.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// Repository is the persistence contract for groups. AddMember must be
// idempotent: adding an existing member is a no-op.
type Repository interface {
	ListByMember(ctx context.Context, userID uuid.UUID) ([]Group, error)
	GetByID(ctx context.Context, id string) (Group, error)
	Create(ctx context.Context, group Group) (Group, error)
	AddMember(ctx context.Context, groupID string, userID uuid.UUID) error
}

// Directory resolves member ids to identities for the detail view and
// for collecting broadcast recipients.
type Directory interface {
	GetByID(ctx context.Context, id uuid.UUID) (users.Identity, error)
}

// Sender is the external mail-delivery collaborator used by Broadcast.
type Sender interface {
	Send(ctx context.Context, to []string, subject, body string) error
}

type Service struct {
	repo      Repository
	directory Directory
	sender    Sender
	logger    zerolog.Logger
}

func NewService(repo Repository, directory Directory, sender Sender, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		directory: directory,
		sender:    sender,
		logger:    logger.With().Str("component", "groups").Logger(),
	}
}

// ListMine returns all groups the caller belongs to.
func (s *Service) ListMine(ctx context.Context, userID uuid.UUID) ([]Group, error) {
	return s.repo.ListByMember(ctx, userID)
}

// Create persists a new group. The creator is always a member, whether or
// not the initial member list names them; duplicates in the input collapse.
func (s *Service) Create(ctx context.Context, creator uuid.UUID, title string, initialMembers []uuid.UUID) (Group, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Group{}, fmt.Errorf("%w: title is required", ErrValidation)
	}

	id, err := ids.NewULID()
	if err != nil {
		return Group{}, fmt.Errorf("mint group id: %w", err)
	}

	members := []uuid.UUID{creator}
	seen := map[uuid.UUID]bool{creator: true}
	for _, m := range initialMembers {
		if m == uuid.Nil || seen[m] {
			continue
		}
		seen[m] = true
		members = append(members, m)
	}

	created, err := s.repo.Create(ctx, Group{ID: id, Title: title, Members: members})
	if err != nil {
		return Group{}, fmt.Errorf("create group: %w", err)
	}

	s.logger.Info().Str("group_id", created.ID).Int("members", len(created.Members)).Msg("group created")
	return created, nil
}

// Invite adds userID to the group. The caller must be a member. Inviting
// an existing member is a no-op success.
func (s *Service) Invite(ctx context.Context, caller uuid.UUID, groupID string, userID uuid.UUID) error {
	group, err := s.authorize(ctx, caller, groupID)
	if err != nil {
		return err
	}
	if group.HasMember(userID) {
		return nil
	}
	if _, err := s.directory.GetByID(ctx, userID); err != nil {
		return fmt.Errorf("%w: unknown user", ErrValidation)
	}

	if err := s.repo.AddMember(ctx, groupID, userID); err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

// Get returns the group detail with resolved member identities. The caller
// must be a member.
func (s *Service) Get(ctx context.Context, caller uuid.UUID, groupID string) (Detail, error) {
	group, err := s.authorize(ctx, caller, groupID)
	if err != nil {
		return Detail{}, err
	}

	detail := Detail{ID: group.ID, Title: group.Title, Members: make([]Member, 0, len(group.Members))}
	for _, memberID := range group.Members {
		identity, err := s.directory.GetByID(ctx, memberID)
		if err != nil {
			return Detail{}, fmt.Errorf("resolve member %s: %w", memberID, err)
		}
		detail.Members = append(detail.Members, Member{ID: identity.ID, Username: identity.Username})
	}
	return detail, nil
}

// Broadcast fans a message out to every member's registered email address
// through the external sender. The caller must be a member. A sender
// failure propagates unwrapped in kind so the API layer can report it as
// a delivery error, distinct from authorization failures.
func (s *Service) Broadcast(ctx context.Context, caller uuid.UUID, groupID, subject, body string) error {
	group, err := s.authorize(ctx, caller, groupID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(subject) == "" {
		return fmt.Errorf("%w: subject is required", ErrValidation)
	}

	recipients := make([]string, 0, len(group.Members))
	for _, memberID := range group.Members {
		identity, err := s.directory.GetByID(ctx, memberID)
		if err != nil {
			return fmt.Errorf("resolve member %s: %w", memberID, err)
		}
		recipients = append(recipients, identity.Email)
	}

	if err := s.sender.Send(ctx, recipients, subject, body); err != nil {
		return err
	}

	s.logger.Info().Str("group_id", groupID).Int("recipients", len(recipients)).Msg("group broadcast sent")
	return nil
}

// authorize loads the group and verifies the caller's membership. An
// absent group fails the same way as a membership miss, so probing group
// ids cannot confirm existence.
func (s *Service) authorize(ctx context.Context, caller uuid.UUID, groupID string) (Group, error) {
	group, err := s.repo.GetByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Group{}, ErrForbidden
		}
		return Group{}, err
	}
	if !group.HasMember(caller) {
		s.logger.Warn().Str("group_id", groupID).Str("caller", caller.String()).
			Msg("non-member group access rejected")
		return Group{}, ErrForbidden
	}
	return group, nil
}
