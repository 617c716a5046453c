package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/campusmate/server/internal/api/problem"
	"github.com/campusmate/server/internal/auth"
	"github.com/campusmate/server/internal/domain/users"
)

// AuthHandler serves registration, login and logout. Tokens are stateless,
// so logout is an acknowledgement only; the client discards its copy.
type AuthHandler struct {
	Users       *users.Service
	Tokens      *auth.TokenManager
	TokenTTL    time.Duration
	RememberTTL time.Duration
	Env         string
}

func NewAuthHandler(userService *users.Service, tokens *auth.TokenManager, tokenTTL, rememberTTL time.Duration, env string) *AuthHandler {
	return &AuthHandler{
		Users:       userService,
		Tokens:      tokens,
		TokenTTL:    tokenTTL,
		RememberTTL: rememberTTL,
		Env:         env,
	}
}

type registerRequest struct {
	Username string `json:"username" validate:"required,max=32"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	Remember bool   `json:"remember"`
}

type sessionResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      userPayload  `json:"user"`
}

type userPayload struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

func identityPayload(identity users.Identity) userPayload {
	return userPayload{
		ID:       identity.ID.String(),
		Username: identity.Username,
		Email:    identity.Email,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeValidationProblem(w, r, err, h.Env)
		return
	}

	identity, err := h.Users.Register(r.Context(), users.RegisterParams{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, users.ErrUsernameTaken), errors.Is(err, users.ErrEmailTaken):
			problem.Write(w, r, http.StatusConflict, problem.TypeConflict, "Conflict", err, h.Env)
		case errors.Is(err, users.ErrInvalidInput):
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		default:
			problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		}
		return
	}

	h.issueSession(w, r, identity, h.TokenTTL, http.StatusCreated)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeValidationProblem(w, r, err, h.Env)
		return
	}

	identity, err := h.Users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Invalid credentials", err, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	ttl := h.TokenTTL
	if req.Remember {
		ttl = h.RememberTTL
	}
	h.issueSession(w, r, identity, ttl, http.StatusOK)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (h *AuthHandler) issueSession(w http.ResponseWriter, r *http.Request, identity users.Identity, ttl time.Duration, status int) {
	token, expiresAt, err := h.Tokens.Issue(identity.ID.String(), identity.Username, ttl)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	writeJSON(w, status, sessionResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      identityPayload(identity),
	})
}
