package web

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"health-premium-service/internal/usecase"
)

// Server is the operator-facing admin API, served on its own port.
type Server struct {
	statsUC usecase.StatsUseCase
	apiKey  string
	log     *zerolog.Logger
}

func NewServer(statsUC usecase.StatsUseCase, apiKey string, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "AdminAPI").Logger()
	return &Server{
		statsUC: statsUC,
		apiKey:  apiKey,
		log:     &l,
	}
}

// RegisterRoutes mounts the admin routes on mux, all behind the API key.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	routes := map[string]http.Handler{
		"/admin/v1/stats":            statsHandler(s.statsUC),
		"/admin/v1/payments/pending": pendingPaymentsHandler(s.statsUC),
		"/admin/v1/users/":           s.usersRouter(),
	}
	for pattern, h := range routes {
		mux.Handle(pattern, s.requireAPIKey(h))
	}
}

// requireAPIKey answers 401 for a missing or malformed bearer header and 403
// for a wrong key. An unconfigured key locks the API entirely.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			s.log.Error().Msg("admin api key is not configured")
			writeError(w, http.StatusForbidden, "admin api disabled")
			return
		}

		scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
			writeError(w, http.StatusUnauthorized, "bearer api key required")
			return
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(s.apiKey)) != 1 {
			s.log.Warn().Str("remote", r.RemoteAddr).Str("path", r.URL.Path).Msg("rejected admin api key")
			writeError(w, http.StatusForbidden, "invalid api key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// usersRouter serves /admin/v1/users/{id}/subscriptions.
func (s *Server) usersRouter() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/admin/v1/users/"), "/")

		userID, rest, ok := strings.Cut(path, "/")
		if !ok || userID == "" || rest != "subscriptions" {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		userSubscriptionsHandler(s.statsUC, userID)(w, r)
	})
}
