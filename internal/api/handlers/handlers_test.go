package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/campusmate/server/internal/api/middleware"
	"github.com/campusmate/server/internal/auth"
	"github.com/campusmate/server/internal/domain/events"
	"github.com/campusmate/server/internal/domain/groups"
	"github.com/campusmate/server/internal/domain/users"
)

// In-memory repositories backing the handler tests. They mirror the
// postgres implementations' contracts: sentinel errors on missing rows,
// idempotent member adds.

type memoryUserRepo struct {
	users map[uuid.UUID]users.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: map[uuid.UUID]users.User{}}
}

func (m *memoryUserRepo) Create(_ context.Context, user users.User) (users.User, error) {
	m.users[user.ID] = user
	return user, nil
}

func (m *memoryUserRepo) GetByID(_ context.Context, id uuid.UUID) (users.User, error) {
	user, ok := m.users[id]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	return user, nil
}

func (m *memoryUserRepo) GetByUsername(_ context.Context, username string) (users.User, error) {
	for _, user := range m.users {
		if user.Username == username {
			return user, nil
		}
	}
	return users.User{}, users.ErrNotFound
}

func (m *memoryUserRepo) GetByEmail(_ context.Context, email string) (users.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return users.User{}, users.ErrNotFound
}

func (m *memoryUserRepo) List(_ context.Context) ([]users.User, error) {
	out := make([]users.User, 0, len(m.users))
	for _, user := range m.users {
		out = append(out, user)
	}
	return out, nil
}

type memoryEventRepo struct {
	events map[string]events.Event
}

func newMemoryEventRepo() *memoryEventRepo {
	return &memoryEventRepo{events: map[string]events.Event{}}
}

func (m *memoryEventRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]events.Event, error) {
	var out []events.Event
	for _, event := range m.events {
		if event.UserID == userID {
			out = append(out, event)
		}
	}
	return out, nil
}

func (m *memoryEventRepo) GetByID(_ context.Context, id string) (events.Event, error) {
	event, ok := m.events[id]
	if !ok {
		return events.Event{}, events.ErrNotFound
	}
	return event, nil
}

func (m *memoryEventRepo) Create(_ context.Context, event events.Event) (events.Event, error) {
	m.events[event.ID] = event
	return event, nil
}

func (m *memoryEventRepo) Update(_ context.Context, event events.Event) error {
	if _, ok := m.events[event.ID]; !ok {
		return events.ErrNotFound
	}
	m.events[event.ID] = event
	return nil
}

func (m *memoryEventRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.events[id]; !ok {
		return events.ErrNotFound
	}
	delete(m.events, id)
	return nil
}

type memoryGroupRepo struct {
	groups map[string]groups.Group
}

func newMemoryGroupRepo() *memoryGroupRepo {
	return &memoryGroupRepo{groups: map[string]groups.Group{}}
}

func (m *memoryGroupRepo) ListByMember(_ context.Context, userID uuid.UUID) ([]groups.Group, error) {
	var out []groups.Group
	for _, group := range m.groups {
		if group.HasMember(userID) {
			out = append(out, group)
		}
	}
	return out, nil
}

func (m *memoryGroupRepo) GetByID(_ context.Context, id string) (groups.Group, error) {
	group, ok := m.groups[id]
	if !ok {
		return groups.Group{}, groups.ErrNotFound
	}
	return group, nil
}

func (m *memoryGroupRepo) Create(_ context.Context, group groups.Group) (groups.Group, error) {
	m.groups[group.ID] = group
	return group, nil
}

func (m *memoryGroupRepo) AddMember(_ context.Context, groupID string, userID uuid.UUID) error {
	group, ok := m.groups[groupID]
	if !ok {
		return groups.ErrNotFound
	}
	if !group.HasMember(userID) {
		group.Members = append(group.Members, userID)
		m.groups[groupID] = group
	}
	return nil
}

type recordingSender struct {
	to      [][]string
	subject string
	err     error
}

func (s *recordingSender) Send(_ context.Context, to []string, subject, body string) error {
	if s.err != nil {
		return s.err
	}
	s.to = append(s.to, to)
	s.subject = subject
	return nil
}

// fixture wires services against memory repos, the way the server does
// against postgres.
type fixture struct {
	tokens    *auth.TokenManager
	users     *users.Service
	events    *events.Service
	groups    *groups.Service
	userRepo  *memoryUserRepo
	groupRepo *memoryGroupRepo
	sender    *recordingSender
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	tokens, err := auth.NewTokenManager("handler-test-master-secret", "campusmate-test")
	require.NoError(t, err)

	userRepo := newMemoryUserRepo()
	groupRepo := newMemoryGroupRepo()
	sender := &recordingSender{}

	logger := zerolog.Nop()
	userService := users.NewService(userRepo, logger)

	return &fixture{
		tokens:    tokens,
		users:     userService,
		events:    events.NewService(newMemoryEventRepo(), logger),
		groups:    groups.NewService(groupRepo, userService, sender, logger),
		userRepo:  userRepo,
		groupRepo: groupRepo,
		sender:    sender,
	}
}

// register creates a user through the service and returns its identity
// and a valid session token.
func (f *fixture) register(t *testing.T, username, email string) (users.Identity, string) {
	t.Helper()
	identity, err := f.users.Register(context.Background(), users.RegisterParams{
		Username: username,
		Email:    email,
		Password: "correct horse battery",
	})
	require.NoError(t, err)

	token, _, err := f.tokens.Issue(identity.ID.String(), identity.Username, time.Hour)
	require.NoError(t, err)
	return identity, token
}

// protect wraps a handler in the session middleware so callerID resolves.
func (f *fixture) protect(handler http.HandlerFunc) http.Handler {
	return middleware.SessionAuth(f.tokens, "test")(handler)
}

func jsonBody(t *testing.T, payload any) io.Reader {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func doRequest(handler http.Handler, method, target, token string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
}
