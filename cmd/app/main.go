// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"health-premium-service/internal/config"
	"health-premium-service/internal/domain/model"
	"health-premium-service/internal/domain/ports/adapter"
	"health-premium-service/internal/domain/ports/repository"
	portsuc "health-premium-service/internal/domain/ports/usecase"
	"health-premium-service/internal/infra/adapters/notify"
	payAdapters "health-premium-service/internal/infra/adapters/payment"
	"health-premium-service/internal/infra/api"
	"health-premium-service/internal/infra/db/memory"
	pg "health-premium-service/internal/infra/db/postgres"
	"health-premium-service/internal/infra/events"
	"health-premium-service/internal/infra/i18n"
	"health-premium-service/internal/infra/logging"
	"health-premium-service/internal/infra/metrics"
	red "health-premium-service/internal/infra/redis"
	"health-premium-service/internal/infra/sched"
	"health-premium-service/internal/infra/web"
	"health-premium-service/internal/infra/worker"
	"health-premium-service/internal/usecase"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
)

type storage struct {
	payments repository.PaymentRepository
	subs     repository.SubscriptionRepository
	legacy   repository.LegacyPremiumRepository
	renewal  repository.RenewalProcedure
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	policy, err := model.ParseStalePolicy(cfg.Subscription.StalePolicy)
	if err != nil {
		logger.Fatal().Err(err).Msg("stale policy")
	}

	// ---- Storage (Postgres, or in-memory when no url is set) ----
	var st storage
	if cfg.Database.URL == "" {
		logger.Warn().Msg("database.url is empty; using the in-memory store, data is lost on exit")
		store := memory.NewStore(memory.Options{
			Period:      cfg.Subscription.Period(),
			PlanType:    cfg.Subscription.PlanType,
			StalePolicy: policy,
		})
		st = storage{store.Payments(), store.Subscriptions(), store.Legacy(), store.Renewal()}
	} else {
		pool, err := pg.ConnectPostgres(ctx, cfg.Database.URL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres")
		}
		defer pool.Close()
		go pg.ReportPoolStats(ctx, pool, 15*time.Second)

		renewal := pg.NewRenewalProcedure(pool, pg.NewTxManager(pool), pg.RenewalOptions{
			Period:      cfg.Subscription.Period(),
			PlanType:    cfg.Subscription.PlanType,
			StalePolicy: policy,
		}, logger)
		st = storage{pg.NewPaymentRepo(pool), pg.NewSubscriptionRepo(pool), pg.NewLegacyPremiumRepo(pool), renewal}
	}

	// ---- Premium resolution and events ----
	bus := events.NewBus(logger)
	premUC := usecase.NewPremiumUseCase(st.subs, st.legacy, nil, logger)

	var (
		resolver  portsuc.PremiumResolver = premUC
		publisher adapter.EventPublisher  = bus
		limiter   api.Limiter
		locker    sched.Locker
	)

	// ---- Redis (optional) ----
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()

		cache := red.NewPremiumStatusCache(premUC, redisClient, cfg.Redis.TTL, logger)
		bus.Subscribe(cache.HandleSubscriptionChanged)
		resolver = cache
		limiter = red.NewRateLimiter(redisClient)
		locker = red.NewLocker(redisClient)

		// Publish through redis so every instance hears about the change,
		// including this one via the relay.
		publisher = red.NewEventPublisher(redisClient, cfg.Redis.Channel)
		go func() {
			deliver := func(ctx context.Context, evt model.SubscriptionChanged) {
				_ = bus.PublishSubscriptionChanged(ctx, evt)
			}
			if err := red.Relay(ctx, redisClient, cfg.Redis.Channel, deliver, logger); err != nil {
				logger.Error().Err(err).Msg("event relay stopped")
			}
		}()
	} else {
		local := api.NewLocalLimiter()
		go local.RunCleanup(ctx, time.Minute)
		limiter = local
	}

	watcher := usecase.NewStatusWatcher(resolver, logger)
	bus.Subscribe(watcher.HandleSubscriptionChanged)

	// Notifications are delivered off the request path. The pool outlives ctx
	// so queued messages drain during shutdown.
	notifyPool := worker.NewPool(2, logger)
	notifyPool.Start(context.Background())
	defer notifyPool.Stop()

	catalog, err := i18n.LoadCatalog(i18n.LocalesFS)
	if err != nil {
		logger.Fatal().Err(err).Msg("notification catalog")
	}

	// ---- Use cases ----
	paymentUC := usecase.NewPaymentUseCase(
		st.payments, st.subs, st.renewal,
		payAdapters.NewSimulatedAuthorizer(),
		notify.NewQueuedNotifier(notify.NewLogNotifier(logger), notifyPool, logger),
		publisher,
		catalog.For(cfg.Language),
		usecase.PaymentOptions{SupportedCurrencies: cfg.Subscription.SupportedCurrencies},
		logger,
	)
	statsUC := usecase.NewStatsUseCase(st.subs, st.payments, cfg.Reconciler.StaleAfter, logger)

	// ---- Public API ----
	handlers := api.NewHandlers(paymentUC, resolver, watcher, cfg.Premium.Features, logger)
	router := api.NewRouter(handlers, api.NewAuthManager(cfg.Auth), limiter, api.RouterOptionsFrom(cfg.HTTP), logger)
	publicSrv := api.NewServer(cfg.HTTP.Port, router, logger)
	go func() {
		if err := publicSrv.Start(); err != nil {
			logger.Error().Err(err).Msg("public http server error")
			cancel()
		}
	}()

	// ---- Admin API ----
	adminMux := http.NewServeMux()
	web.NewServer(statsUC, cfg.Admin.APIKey, logger).RegisterRoutes(adminMux)
	adminSrv := api.NewServer(cfg.Admin.Port, adminMux, logger)
	go func() {
		if err := adminSrv.Start(); err != nil {
			logger.Error().Err(err).Msg("admin http server error")
			cancel()
		}
	}()

	// ---- Stale pending payment report ----
	reconciler := sched.NewPaymentReconciler(statsUC, locker, cfg.Reconciler.Interval, cfg.Reconciler.StaleAfter, logger)
	go func() { _ = reconciler.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		logger.Info().Msg("shutdown requested")
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := publicSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("public http shutdown")
	}
	if err := adminSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("admin http shutdown")
	}
}
