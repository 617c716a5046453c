package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/campusmate/server/internal/api/problem"
	"github.com/campusmate/server/internal/domain/events"
	"github.com/campusmate/server/internal/domain/ids"
)

type EventsHandler struct {
	Service *events.Service
	Env     string
}

func NewEventsHandler(service *events.Service, env string) *EventsHandler {
	return &EventsHandler{Service: service, Env: env}
}

type eventRequest struct {
	Title string     `json:"title" validate:"required,max=255"`
	Start time.Time  `json:"start" validate:"required"`
	End   *time.Time `json:"end"`
	Type  string     `json:"type" validate:"omitempty,max=64"`
}

type eventPayload struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Start     time.Time  `json:"start"`
	End       *time.Time `json:"end,omitempty"`
	Type      string     `json:"type"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func toEventPayload(event events.Event) eventPayload {
	return eventPayload{
		ID:        event.ID,
		Title:     event.Title,
		Start:     event.Start,
		End:       event.End,
		Type:      event.Type,
		CreatedAt: event.CreatedAt,
		UpdatedAt: event.UpdatedAt,
	}
}

func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", err, h.Env)
		return
	}

	items, err := h.Service.List(r.Context(), caller)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	payload := make([]eventPayload, 0, len(items))
	for _, event := range items {
		payload = append(payload, toEventPayload(event))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": payload})
}

func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", err, h.Env)
		return
	}

	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeValidationProblem(w, r, err, h.Env)
		return
	}

	event, err := h.Service.Create(r.Context(), caller, events.Params{
		Title: req.Title,
		Start: req.Start,
		End:   req.End,
		Type:  req.Type,
	})
	if err != nil {
		h.writeEventError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toEventPayload(event))
}

func (h *EventsHandler) Update(w http.ResponseWriter, r *http.Request) {
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

	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeValidationProblem(w, r, err, h.Env)
		return
	}

	event, err := h.Service.Update(r.Context(), caller, id, events.Params{
		Title: req.Title,
		Start: req.Start,
		End:   req.End,
		Type:  req.Type,
	})
	if err != nil {
		h.writeEventError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toEventPayload(event))
}

func (h *EventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.Service.Delete(r.Context(), caller, id); err != nil {
		h.writeEventError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *EventsHandler) writeEventError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, events.ErrValidation):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
	case errors.Is(err, events.ErrForbidden):
		problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Forbidden", err, h.Env)
	case errors.Is(err, events.ErrNotFound):
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", err, h.Env)
	default:
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
	}
}
