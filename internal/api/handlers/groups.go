package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/campusmate/server/internal/api/problem"
	"github.com/campusmate/server/internal/domain/groups"
	"github.com/campusmate/server/internal/domain/ids"
	"github.com/campusmate/server/internal/email"
)

type GroupsHandler struct {
	Service *groups.Service
	Env     string
}

func NewGroupsHandler(service *groups.Service, env string) *GroupsHandler {
	return &GroupsHandler{Service: service, Env: env}
}

type createGroupRequest struct {
	Title   string   `json:"title" validate:"required,max=255"`
	Members []string `json:"members" validate:"omitempty,dive,uuid"`
}

type inviteRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

type broadcastRequest struct {
	Subject string `json:"subject" validate:"required,max=255"`
	Body    string `json:"body"`
}

type groupPayload struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Members []string `json:"members"`
}

type memberPayload struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type groupDetailPayload struct {
	ID      string          `json:"id"`
	Title   string          `json:"title"`
	Members []memberPayload `json:"members"`
}

func toGroupPayload(group groups.Group) groupPayload {
	members := make([]string, 0, len(group.Members))
	for _, m := range group.Members {
		members = append(members, m.String())
	}
	return groupPayload{ID: group.ID, Title: group.Title, Members: members}
}

func (h *GroupsHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", err, h.Env)
		return
	}

	items, err := h.Service.ListMine(r.Context(), caller)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	payload := make([]groupPayload, 0, len(items))
	for _, group := range items {
		payload = append(payload, toGroupPayload(group))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": payload})
}

func (h *GroupsHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", err, h.Env)
		return
	}

	var req createGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeValidationProblem(w, r, err, h.Env)
		return
	}

	members := make([]uuid.UUID, 0, len(req.Members))
	for _, raw := range req.Members {
		id, err := uuid.Parse(raw)
		if err != nil {
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
			return
		}
		members = append(members, id)
	}

	group, err := h.Service.Create(r.Context(), caller, req.Title, members)
	if err != nil {
		h.writeGroupError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toGroupPayload(group))
}

func (h *GroupsHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", err, h.Env)
		return
	}

	id := pathParam(r, "id")
	if err := ids.ValidateULID(id); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	detail, err := h.Service.Get(r.Context(), caller, id)
	if err != nil {
		h.writeGroupError(w, r, err)
		return
	}

	members := make([]memberPayload, 0, len(detail.Members))
	for _, m := range detail.Members {
		members = append(members, memberPayload{ID: m.ID.String(), Username: m.Username})
	}
	writeJSON(w, http.StatusOK, groupDetailPayload{ID: detail.ID, Title: detail.Title, Members: members})
}

func (h *GroupsHandler) Invite(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", err, h.Env)
		return
	}

	groupID := pathParam(r, "id")
	if err := ids.ValidateULID(groupID); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	var req inviteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeValidationProblem(w, r, err, h.Env)
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	if err := h.Service.Invite(r.Context(), caller, groupID, userID); err != nil {
		h.writeGroupError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "invited"})
}

func (h *GroupsHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", err, h.Env)
		return
	}

	groupID := pathParam(r, "id")
	if err := ids.ValidateULID(groupID); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	var req broadcastRequest
	if err := decodeJSON(r, &req); err != nil {
		writeValidationProblem(w, r, err, h.Env)
		return
	}

	if err := h.Service.Broadcast(r.Context(), caller, groupID, req.Subject, req.Body); err != nil {
		if errors.Is(err, email.ErrDelivery) {
			problem.Write(w, r, http.StatusBadGateway, problem.TypeDelivery, "Delivery failed", err, h.Env)
			return
		}
		h.writeGroupError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (h *GroupsHandler) writeGroupError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, groups.ErrValidation):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
	case errors.Is(err, groups.ErrForbidden):
		problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Forbidden", err, h.Env)
	case errors.Is(err, groups.ErrNotFound):
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", err, h.Env)
	default:
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
	}
}
