package auth

import (
	"errors"
	"testing"
	"time"
)

func newTestManager(t *testing.T) *TokenManager {
	t.Helper()
	manager, err := NewTokenManager("test-master-secret", "campusmate-test")
	if err != nil {
		t.Fatalf("new token manager: %v", err)
	}
	return manager
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	manager := newTestManager(t)

	token, expiresAt, err := manager.Issue("user-1", "alice", time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if time.Until(expiresAt) > time.Hour || time.Until(expiresAt) < 59*time.Minute {
		t.Fatalf("unexpected expiry: %s", expiresAt)
	}

	claims, err := manager.Verify(token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if claims.UserID != "user-1" || claims.Username != "alice" {
		t.Fatalf("unexpected claims: %#v", claims)
	}
}

func TestIssueEmptyIdentity(t *testing.T) {
	manager := newTestManager(t)
	if _, _, err := manager.Issue("", "alice", time.Hour); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token error, got %v", err)
	}
	if _, _, err := manager.Issue("user-1", "", time.Hour); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token error, got %v", err)
	}
}

func TestVerifyMissing(t *testing.T) {
	manager := newTestManager(t)
	if _, err := manager.Verify(""); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected missing token error, got %v", err)
	}
	if _, err := manager.Verify("   "); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected missing token error, got %v", err)
	}
}

func TestVerifyExpired(t *testing.T) {
	manager := newTestManager(t)
	token, _, err := manager.Issue("user-1", "alice", -time.Minute)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, err := manager.Verify(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected expired token error, got %v", err)
	}
}

func TestVerifyTampered(t *testing.T) {
	manager := newTestManager(t)
	token, _, err := manager.Issue("user-1", "alice", time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, err := manager.Verify(token + "x"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token error, got %v", err)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	manager := newTestManager(t)
	other, err := NewTokenManager("different-secret", "campusmate-test")
	if err != nil {
		t.Fatalf("new token manager: %v", err)
	}

	token, _, err := manager.Issue("user-1", "alice", time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, err := other.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token error, got %v", err)
	}
}

func TestTokenFromHeader(t *testing.T) {
	if _, err := TokenFromHeader("nope"); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected missing token error, got %v", err)
	}
	if _, err := TokenFromHeader(""); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected missing token error, got %v", err)
	}
	if token, err := TokenFromHeader("Bearer token"); err != nil || token != "token" {
		t.Fatalf("expected token, got %s err %v", token, err)
	}
	if token, err := TokenFromHeader("bearer token"); err != nil || token != "token" {
		t.Fatalf("expected case-insensitive scheme, got %s err %v", token, err)
	}
}
