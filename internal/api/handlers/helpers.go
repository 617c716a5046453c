package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/campusmate/server/internal/api/middleware"
	"github.com/campusmate/server/internal/api/problem"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// decodeJSON decodes and validates a request body into dst. dst must be a
// pointer to a struct carrying validate tags.
func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return validate.Struct(dst)
}

func pathParam(r *http.Request, key string) string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(r.PathValue(key))
}

// callerID returns the authenticated user's id. The session middleware
// guarantees claims are present on protected routes, so a miss here is a
// wiring bug and surfaces as a 401 rather than a panic.
func callerID(r *http.Request) (uuid.UUID, error) {
	claims := middleware.SessionClaims(r)
	if claims == nil {
		return uuid.Nil, problem.ErrUnauthorized
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, problem.ErrUnauthorized
	}
	return id, nil
}

// writeValidationProblem renders a 400 with per-field errors when err is a
// validator error set, and a plain 400 otherwise.
func writeValidationProblem(w http.ResponseWriter, r *http.Request, err error, env string) {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		details := make(map[string]interface{}, len(fieldErrs))
		for _, fe := range fieldErrs {
			details[strings.ToLower(fe.Field())] = fe.Tag()
		}
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, env, problem.WithErrors(details))
		return
	}
	problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, env)
}
