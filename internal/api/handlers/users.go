package handlers

import (
	"net/http"

	"github.com/campusmate/server/internal/api/problem"
	"github.com/campusmate/server/internal/domain/users"
)

type UsersHandler struct {
	Service *users.Service
	Env     string
}

func NewUsersHandler(service *users.Service, env string) *UsersHandler {
	return &UsersHandler{Service: service, Env: env}
}

type directoryEntry struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// List serves the member directory used when picking group invitees. It
// exposes ids and usernames only, never email addresses.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, err := callerID(r); err != nil {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", err, h.Env)
		return
	}

	identities, err := h.Service.Directory(r.Context())
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	items := make([]directoryEntry, 0, len(identities))
	for _, identity := range identities {
		items = append(items, directoryEntry{ID: identity.ID.String(), Username: identity.Username})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}
