package api

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/campusmate/server/internal/api/handlers"
	"github.com/campusmate/server/internal/api/middleware"
	"github.com/campusmate/server/internal/auth"
	"github.com/campusmate/server/internal/config"
	"github.com/campusmate/server/internal/domain/events"
	"github.com/campusmate/server/internal/domain/groups"
	"github.com/campusmate/server/internal/domain/users"
	"github.com/campusmate/server/internal/feeds"
	"github.com/campusmate/server/internal/metrics"
	"github.com/campusmate/server/internal/storage"
)

// RouterDeps carries the externally-managed collaborators. The caller
// owns their lifecycle; the router only wires them together.
type RouterDeps struct {
	Repo    storage.Repository
	Tokens  *auth.TokenManager
	Mailer  groups.Sender
	Feeds   *feeds.Client
	DB      handlers.Pinger
	Version string
}

func NewRouter(cfg config.Config, logger zerolog.Logger, deps RouterDeps) http.Handler {
	userService := users.NewService(deps.Repo.Users(), logger)
	eventService := events.NewService(deps.Repo.Events(), logger)
	groupService := groups.NewService(deps.Repo.Groups(), userService, deps.Mailer, logger)

	env := cfg.Environment
	authHandler := handlers.NewAuthHandler(userService, deps.Tokens, cfg.Auth.TokenTTL, cfg.Auth.RememberTTL, env)
	eventsHandler := handlers.NewEventsHandler(eventService, env)
	groupsHandler := handlers.NewGroupsHandler(groupService, env)
	usersHandler := handlers.NewUsersHandler(userService, env)
	feedsHandler := handlers.NewFeedsHandler(deps.Feeds, env)
	healthHandler := handlers.NewHealthHandler(deps.DB, deps.Version)

	session := middleware.SessionAuth(deps.Tokens, env)

	mux := http.NewServeMux()

	mux.Handle("/healthz", http.HandlerFunc(healthHandler.Healthz))
	mux.Handle("/readyz", http.HandlerFunc(healthHandler.Readyz))
	mux.Handle("/version", VersionHandler(deps.Version, "", ""))
	mux.Handle("/metrics", metrics.Handler())

	mux.Handle("/api/v1/auth/register", methodMux(map[string]http.Handler{
		http.MethodPost: http.HandlerFunc(authHandler.Register),
	}))
	mux.Handle("/api/v1/auth/login", methodMux(map[string]http.Handler{
		http.MethodPost: http.HandlerFunc(authHandler.Login),
	}))
	mux.Handle("/api/v1/auth/logout", methodMux(map[string]http.Handler{
		http.MethodPost: session(http.HandlerFunc(authHandler.Logout)),
	}))

	mux.Handle("/api/v1/events", methodMux(map[string]http.Handler{
		http.MethodGet:  session(http.HandlerFunc(eventsHandler.List)),
		http.MethodPost: session(http.HandlerFunc(eventsHandler.Create)),
	}))
	mux.Handle("/api/v1/events/{id}", methodMux(map[string]http.Handler{
		http.MethodPut:    session(http.HandlerFunc(eventsHandler.Update)),
		http.MethodDelete: session(http.HandlerFunc(eventsHandler.Delete)),
	}))

	mux.Handle("/api/v1/groups", methodMux(map[string]http.Handler{
		http.MethodGet:  session(http.HandlerFunc(groupsHandler.List)),
		http.MethodPost: session(http.HandlerFunc(groupsHandler.Create)),
	}))
	mux.Handle("/api/v1/groups/{id}", methodMux(map[string]http.Handler{
		http.MethodGet: session(http.HandlerFunc(groupsHandler.Get)),
	}))
	mux.Handle("/api/v1/groups/{id}/invite", methodMux(map[string]http.Handler{
		http.MethodPost: session(http.HandlerFunc(groupsHandler.Invite)),
	}))
	mux.Handle("/api/v1/groups/{id}/broadcast", methodMux(map[string]http.Handler{
		http.MethodPost: session(http.HandlerFunc(groupsHandler.Broadcast)),
	}))

	mux.Handle("/api/v1/users", methodMux(map[string]http.Handler{
		http.MethodGet: session(http.HandlerFunc(usersHandler.List)),
	}))

	// Feed relays are public; the upstreams carry no user data.
	mux.Handle("/api/v1/feeds/parking", methodMux(map[string]http.Handler{
		http.MethodGet: http.HandlerFunc(feedsHandler.Parking),
	}))
	mux.Handle("/api/v1/feeds/occupancy", methodMux(map[string]http.Handler{
		http.MethodGet: http.HandlerFunc(feedsHandler.Occupancy),
	}))

	var handler http.Handler = mux
	handler = metrics.HTTPMiddleware(handler)
	handler = middleware.RequestLogging(logger)(handler)
	handler = middleware.CorrelationID(logger)(handler)
	return handler
}

// Server wraps http.Server with the timeouts used in every environment.
func Server(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// WriteTimeout stays unset: the parking relay holds its
		// response open indefinitely.
		IdleTimeout: 120 * time.Second,
	}
}

func methodMux(routes map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := routes[r.Method]; ok {
			handler.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Allow", allowedMethods(routes))
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
}

func allowedMethods(routes map[string]http.Handler) string {
	methods := make([]string, 0, len(routes))
	for method := range routes {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
