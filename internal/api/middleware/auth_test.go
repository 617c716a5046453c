package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusmate/server/internal/api/problem"
	"github.com/campusmate/server/internal/auth"
)

const testMasterSecret = "test-master-secret-with-enough-entropy"

func newTestManager(t *testing.T) *auth.TokenManager {
	t.Helper()
	manager, err := auth.NewTokenManager(testMasterSecret, "campusmate-test")
	require.NoError(t, err)
	return manager
}

func protectedHandler(t *testing.T, gotClaims **auth.Claims) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*gotClaims = SessionClaims(r)
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestSessionAuthValidToken(t *testing.T) {
	manager := newTestManager(t)
	token, _, err := manager.Issue("9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d", "alice", time.Hour)
	require.NoError(t, err)

	var claims *auth.Claims
	handler := SessionAuth(manager, "test")(protectedHandler(t, &claims))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, claims)
	assert.Equal(t, "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
}

func TestSessionAuthUniformRejection(t *testing.T) {
	manager := newTestManager(t)

	expired, _, err := manager.Issue("9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d", "alice", -time.Minute)
	require.NoError(t, err)

	otherManager, err := auth.NewTokenManager("a-completely-different-master-secret", "campusmate-test")
	require.NoError(t, err)
	foreign, _, err := otherManager.Issue("9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d", "alice", time.Hour)
	require.NoError(t, err)

	cases := map[string]string{
		"missing header":  "",
		"not bearer":      "Basic abc123",
		"garbage token":   "Bearer not.a.jwt",
		"expired token":   "Bearer " + expired,
		"foreign signer":  "Bearer " + foreign,
	}

	var bodies []problem.ProblemDetails
	for name, header := range cases {
		var claims *auth.Claims
		handler := SessionAuth(manager, "production")(protectedHandler(t, &claims))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code, name)
		require.Nil(t, claims, name)
		assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"), name)

		var body problem.ProblemDetails
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), name)
		bodies = append(bodies, body)
	}

	// Every failure mode produces the same response body.
	for i := 1; i < len(bodies); i++ {
		assert.Equal(t, bodies[0], bodies[i])
	}
	assert.Equal(t, problem.TypeUnauthorized, bodies[0].Type)
}

func TestSessionClaimsWithoutAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, SessionClaims(req))
}
