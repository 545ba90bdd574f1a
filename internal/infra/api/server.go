package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"health-premium-service/internal/config"
)

type RouterOptions struct {
	CORSOrigins    []string
	RequestTimeout time.Duration
	RateLimit      int
	RateWindow     time.Duration
}

// RouterOptionsFrom copies the http section of the config.
func RouterOptionsFrom(cfg config.HTTPConfig) RouterOptions {
	return RouterOptions{
		CORSOrigins:    cfg.CORSOrigins,
		RequestTimeout: cfg.RequestTimeout,
		RateLimit:      cfg.RateLimit,
		RateWindow:     cfg.RateLimitWin,
	}
}

// NewRouter builds the public API. limiter may be nil to disable throttling.
func NewRouter(h *Handlers, auth *AuthManager, limiter Limiter, opts RouterOptions, logger *zerolog.Logger) http.Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	r := chi.NewRouter()

	r.Use(
		TraceID(),
		Observe(logger),
		Recover(logger),
	)
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", requestIDHeader},
			ExposedHeaders:   []string{requestIDHeader},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	throttle := RateLimit(limiter, "billing", opts.RateLimit, opts.RateWindow, logger)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(Timeout(opts.RequestTimeout), auth.OptionalAuth())

		api.With(throttle).Post("/payments", h.CreatePayment)
		api.Get("/payments", h.ListPayments)
		api.With(throttle).Post("/subscriptions/renew", h.RenewSubscription)

		api.Get("/premium/status", h.PremiumStatus)
		api.With(RequirePremium(h.premium, "benefits", nil)).Get("/premium/benefits", h.Benefits)
		api.Get("/features/{feature}/access", h.FeatureAccess)
	})
	return r
}

type Server struct {
	srv *http.Server
	log *zerolog.Logger
}

func NewServer(port int, handler http.Handler, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "HTTPServer").Logger()
	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: &l,
	}
}

// Start blocks until the server stops. A graceful shutdown returns nil.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("http server listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
