package handlers

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/campusmate/server/internal/api/problem"
	"github.com/campusmate/server/internal/feeds"
)

// FeedsHandler relays the campus data feeds. Both endpoints are public:
// the upstreams are public too and carry no user data.
type FeedsHandler struct {
	Client *feeds.Client
	Env    string
}

func NewFeedsHandler(client *feeds.Client, env string) *FeedsHandler {
	return &FeedsHandler{Client: client, Env: env}
}

// Parking proxies the upstream parking-deck SSE stream. The connection
// stays open until the client disconnects or the upstream closes.
func (h *FeedsHandler) Parking(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", errors.New("streaming unsupported"), h.Env)
		return
	}

	sink := &sseWriter{w: w, flusher: flusher}
	if err := h.Client.RelayParking(r.Context(), sink, sink.flush); err != nil {
		if !sink.started {
			problem.Write(w, r, http.StatusBadGateway, problem.TypeUpstream, "Upstream unavailable", err, h.Env)
			return
		}
		// Headers are already out; all we can do is log and close.
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("parking relay ended")
	}
}

// sseWriter defers the event-stream headers until the first byte arrives
// from upstream, so connect failures can still produce a problem response.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func (s *sseWriter) Write(p []byte) (int, error) {
	s.start()
	return s.w.Write(p)
}

func (s *sseWriter) flush() {
	s.start()
	s.flusher.Flush()
}

func (s *sseWriter) start() {
	if s.started {
		return
	}
	s.started = true
	s.w.Header().Set("Content-Type", "text/event-stream")
	s.w.Header().Set("Cache-Control", "no-cache")
	s.w.Header().Set("Connection", "keep-alive")
	s.w.WriteHeader(http.StatusOK)
}

// Occupancy reports the current library occupancy count.
func (h *FeedsHandler) Occupancy(w http.ResponseWriter, r *http.Request) {
	count, err := h.Client.Occupancy(r.Context())
	if err != nil {
		if errors.Is(err, feeds.ErrUpstream) {
			problem.Write(w, r, http.StatusBadGateway, problem.TypeUpstream, "Upstream unavailable", err, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"occupancy": count})
}
