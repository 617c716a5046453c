// Package feeds relays two read-only campus data sources: the parking
// deck availability stream (server-sent events) and the library occupancy
// poll. The server does not transform either payload, it only forwards it.
package feeds

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/campusmate/server/internal/config"
	"github.com/rs/zerolog"
)

// ErrUpstream is returned when an external feed cannot be reached or
// returns a non-success status. Distinct from any authorization or
// validation failure.
var ErrUpstream = errors.New("upstream feed unavailable")

type Client struct {
	cfg    config.FeedsConfig
	poll   *http.Client
	stream *http.Client
	logger zerolog.Logger
}

func NewClient(cfg config.FeedsConfig, logger zerolog.Logger) *Client {
	return &Client{
		cfg: cfg,
		// Polls are bounded by a hard client timeout; the stream stays
		// open for the life of the request context, so only its dial and
		// header phases are bounded (via the request context set up by
		// the caller).
		poll:   &http.Client{Timeout: cfg.RequestTimeout},
		stream: &http.Client{},
		logger: logger.With().Str("component", "feeds").Logger(),
	}
}

type occupancyPayload struct {
	CurrentOccupancy string `json:"atkins_current_occupancy"`
}

// Occupancy polls the library occupancy endpoint and returns the current
// head count. Unparseable counts relay as zero, matching the upstream
// contract of "unknown means empty".
func (c *Client) Occupancy(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.OccupancyURL, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrUpstream, err)
	}

	resp, err := c.poll.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var payload occupancyPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("%w: decode body: %s", ErrUpstream, err)
	}

	occupancy, err := strconv.Atoi(strings.TrimSpace(payload.CurrentOccupancy))
	if err != nil {
		occupancy = 0
	}
	return occupancy, nil
}

// RelayParking copies SSE data events from the upstream parking stream to
// w until the request context is cancelled or the upstream closes. The
// payload passes through untouched.
func (c *Client) RelayParking(ctx context.Context, w io.Writer, flush func()) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.ParkingStreamURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUpstream, err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.stream.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		if _, err := fmt.Fprintf(w, "%s\n\n", line); err != nil {
			// Client went away; not an upstream failure.
			return nil
		}
		if flush != nil {
			flush()
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("%w: read stream: %s", ErrUpstream, err)
	}
	return nil
}
