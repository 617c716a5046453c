package groups

import (
	"context"
	"testing"

	"github.com/campusmate/server/internal/domain/users"
	"github.com/campusmate/server/internal/email"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	groups map[string]Group
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{groups: map[string]Group{}}
}

func (m *memoryRepo) ListByMember(_ context.Context, userID uuid.UUID) ([]Group, error) {
	var out []Group
	for _, g := range m.groups {
		if g.HasMember(userID) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *memoryRepo) GetByID(_ context.Context, id string) (Group, error) {
	if g, ok := m.groups[id]; ok {
		return g, nil
	}
	return Group{}, ErrNotFound
}

func (m *memoryRepo) Create(_ context.Context, group Group) (Group, error) {
	m.groups[group.ID] = group
	return group, nil
}

func (m *memoryRepo) AddMember(_ context.Context, groupID string, userID uuid.UUID) error {
	g, ok := m.groups[groupID]
	if !ok {
		return ErrNotFound
	}
	if !g.HasMember(userID) {
		g.Members = append(g.Members, userID)
		m.groups[groupID] = g
	}
	return nil
}

type stubDirectory struct {
	identities map[uuid.UUID]users.Identity
}

func (s stubDirectory) GetByID(_ context.Context, id uuid.UUID) (users.Identity, error) {
	if identity, ok := s.identities[id]; ok {
		return identity, nil
	}
	return users.Identity{}, users.ErrNotFound
}

type stubSender struct {
	sent [][]string
	err  error
}

func (s *stubSender) Send(_ context.Context, to []string, _, _ string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, to)
	return nil
}

type fixture struct {
	svc    *Service
	repo   *memoryRepo
	sender *stubSender
	alice  uuid.UUID
	bob    uuid.UUID
	carol  uuid.UUID
}

func newFixture() *fixture {
	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()
	directory := stubDirectory{identities: map[uuid.UUID]users.Identity{
		alice: {ID: alice, Username: "alice", Email: "alice@example.edu"},
		bob:   {ID: bob, Username: "bob", Email: "bob@example.edu"},
		carol: {ID: carol, Username: "carol", Email: "carol@example.edu"},
	}}
	repo := newMemoryRepo()
	sender := &stubSender{}
	return &fixture{
		svc:    NewService(repo, directory, sender, zerolog.Nop()),
		repo:   repo,
		sender: sender,
		alice:  alice,
		bob:    bob,
		carol:  carol,
	}
}

func TestCreateCreatorIsMember(t *testing.T) {
	f := newFixture()

	group, err := f.svc.Create(context.Background(), f.alice, "Study group", nil)
	require.NoError(t, err)
	require.True(t, group.HasMember(f.alice), "creator must always be a member")

	// Creator listed in the input does not duplicate.
	group2, err := f.svc.Create(context.Background(), f.alice, "Second", []uuid.UUID{f.alice, f.bob, f.bob})
	require.NoError(t, err)
	require.Len(t, group2.Members, 2)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Create(context.Background(), f.alice, "  ", nil)
	require.ErrorIs(t, err, ErrValidation)
}

func TestInviteIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	group, err := f.svc.Create(ctx, f.alice, "Study group", nil)
	require.NoError(t, err)

	require.NoError(t, f.svc.Invite(ctx, f.alice, group.ID, f.bob))
	require.NoError(t, f.svc.Invite(ctx, f.alice, group.ID, f.bob))

	stored, err := f.repo.GetByID(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, stored.Members, 2)
}

func TestInviteRequiresMembership(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	group, err := f.svc.Create(ctx, f.alice, "Study group", nil)
	require.NoError(t, err)

	err = f.svc.Invite(ctx, f.carol, group.ID, f.bob)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestInviteUnknownUser(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	group, err := f.svc.Create(ctx, f.alice, "Study group", nil)
	require.NoError(t, err)

	err = f.svc.Invite(ctx, f.alice, group.ID, uuid.New())
	require.ErrorIs(t, err, ErrValidation)
}

func TestGetMembershipGate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	group, err := f.svc.Create(ctx, f.alice, "Study group", nil)
	require.NoError(t, err)
	require.NoError(t, f.svc.Invite(ctx, f.alice, group.ID, f.bob))

	detail, err := f.svc.Get(ctx, f.bob, group.ID)
	require.NoError(t, err)
	require.Len(t, detail.Members, 2)

	_, err = f.svc.Get(ctx, f.carol, group.ID)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestAbsentGroupIndistinguishableFromForbidden(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	group, err := f.svc.Create(ctx, f.alice, "Study group", nil)
	require.NoError(t, err)

	const missingID = "01HQZX3Y4K6F7G8H9J0K1M2N3P"

	// A non-member hitting a real group and anyone hitting a missing
	// group get the same error, for every gated operation.
	_, absentErr := f.svc.Get(ctx, f.alice, missingID)
	_, memberErr := f.svc.Get(ctx, f.carol, group.ID)
	require.ErrorIs(t, absentErr, ErrForbidden)
	require.ErrorIs(t, memberErr, ErrForbidden)

	require.ErrorIs(t, f.svc.Invite(ctx, f.alice, missingID, f.bob), ErrForbidden)
	require.ErrorIs(t, f.svc.Broadcast(ctx, f.alice, missingID, "subject", "body"), ErrForbidden)
}

func TestListMine(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	group, err := f.svc.Create(ctx, f.alice, "Study group", []uuid.UUID{f.bob})
	require.NoError(t, err)

	mine, err := f.svc.ListMine(ctx, f.bob)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, group.ID, mine[0].ID)

	none, err := f.svc.ListMine(ctx, f.carol)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestBroadcastFanOut(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	group, err := f.svc.Create(ctx, f.alice, "Study group", []uuid.UUID{f.bob})
	require.NoError(t, err)

	require.NoError(t, f.svc.Broadcast(ctx, f.alice, group.ID, "Exam prep", "Library at 6pm"))
	require.Len(t, f.sender.sent, 1)
	require.ElementsMatch(t, []string{"alice@example.edu", "bob@example.edu"}, f.sender.sent[0])
}

func TestBroadcastRequiresMembership(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	group, err := f.svc.Create(ctx, f.alice, "Study group", nil)
	require.NoError(t, err)

	err = f.svc.Broadcast(ctx, f.carol, group.ID, "Exam prep", "Library at 6pm")
	require.ErrorIs(t, err, ErrForbidden)
	require.Empty(t, f.sender.sent)
}

func TestBroadcastDeliveryFailure(t *testing.T) {
	f := newFixture()
	f.sender.err = email.ErrDelivery
	ctx := context.Background()

	group, err := f.svc.Create(ctx, f.alice, "Study group", nil)
	require.NoError(t, err)

	err = f.svc.Broadcast(ctx, f.alice, group.ID, "Exam prep", "Library at 6pm")
	require.ErrorIs(t, err, email.ErrDelivery)
	require.NotErrorIs(t, err, ErrForbidden)
}
