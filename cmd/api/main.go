package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadintake_backend/internal/events"
	apphttp "leadintake_backend/internal/http"
	"leadintake_backend/internal/http/router"
	"leadintake_backend/internal/integrations"
	"leadintake_backend/internal/leads"
	"leadintake_backend/internal/leads/assignment"
	"leadintake_backend/internal/ledger"
	"leadintake_backend/internal/notification"
	"leadintake_backend/internal/scheduler"
	"leadintake_backend/internal/sources"
	"leadintake_backend/internal/sources/facebook"
	"leadintake_backend/internal/sources/indiamart"
	"leadintake_backend/internal/sources/mailbox"
	"leadintake_backend/internal/sources/mailparse"
	"leadintake_backend/internal/webhook"
	"leadintake_backend/migrations"
	"leadintake_backend/platform/config"
	"leadintake_backend/platform/db"
	"leadintake_backend/platform/logger"
	"leadintake_backend/platform/secretbox"
	"leadintake_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// manualSyncTimeout bounds an in-process sync started from the API when no
// task queue is configured.
const manualSyncTimeout = 5 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, pool, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	box, err := secretbox.New(cfg.GetCredentialsSecret())
	if err != nil {
		log.Error("failed to initialize credential sealing", "error", err)
		panic("failed to initialize credential sealing: " + err.Error())
	}

	locker, closeLocker := initScopeLocker(cfg, log)
	if closeLocker != nil {
		defer closeLocker()
	}

	taskClient := initTaskClient(cfg, log)
	if taskClient != nil {
		defer func() { _ = taskClient.Close() }()
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Without a task queue, assignment notifications are delivered inline.
	var enqueuer notification.Enqueuer
	if taskClient != nil {
		enqueuer = taskClient
	}
	notificationModule := notification.NewModule(cfg, enqueuer, log)
	notificationModule.RegisterHandlers(eventBus)

	leadsModule := leads.NewModule(pool, locker, notificationModule.Dispatcher(), eventBus, val, cfg, log)

	processor := sources.NewProcessor(ledger.New(pool), leadsModule.Repository(), leadsModule.Service(), log)

	mailAdapters, err := mailparse.NewAdapters()
	if err != nil {
		log.Error("failed to load mail parser profiles", "error", err)
		panic("failed to load mail parser profiles: " + err.Error())
	}
	registry := sources.NewRegistry(indiamart.Adapter{})
	for _, a := range mailAdapters {
		registry.Register(a)
	}

	integrationRepo := integrations.NewRepository(pool)
	runner := integrations.NewRunner(integrations.RunnerDeps{
		Store:       integrationRepo,
		Secrets:     box,
		Registry:    registry,
		Processor:   processor,
		Inquiries:   indiamart.NewClient(cfg.GetIndiaMARTAPIURL()),
		Mail:        mailbox.NewPoller(mailbox.IMAPDialer{}, cfg.GetMailboxBatchLimit()),
		Bus:         eventBus,
		Log:         log,
		Concurrency: cfg.GetSyncConcurrency(),
	})

	var syncTrigger integrations.SyncTrigger = integrations.NewRunnerTrigger(runner, manualSyncTimeout)
	if taskClient != nil {
		syncTrigger = taskClient
	}
	integrationsModule := integrations.NewModule(
		integrations.NewHandler(integrationRepo, syncTrigger, box, leadsModule.Agents(), val),
	)

	pages := facebook.NewPageRepository(pool)
	facebookService := facebook.NewService(pages, facebook.NewGraphClient(cfg.GetFacebookGraphURL()), box, processor, log)

	webhookKeys := webhook.NewRepository(pool)
	webhookModule := webhook.NewModule(webhook.NewHandler(webhook.HandlerDeps{
		Keys:        webhookKeys,
		Campaigns:   leadsModule.Agents(),
		Processor:   processor,
		Facebook:    facebookService,
		Pages:       pages,
		Sealer:      box,
		VerifyToken: cfg.GetFacebookVerifyToken(),
		Validator:   val,
		Log:         log,
	}), webhookKeys)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: pool,
		Modules: []apphttp.Module{
			leadsModule,
			webhookModule,
			integrationsModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initTaskClient(cfg *config.Config, log *logger.Logger) *scheduler.Client {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; notifications and syncs run in-process")
		return nil
	}

	client, err := scheduler.NewClient(cfg, cfg.GetSyncInterval())
	if err != nil {
		log.Error("failed to initialize task client", "error", err)
		return nil
	}
	return client
}

func initScopeLocker(cfg *config.Config, log *logger.Logger) (assignment.ScopeLocker, func()) {
	if cfg.GetAssignmentLockMode() != "redis" {
		return assignment.NewKeyedMutex(), nil
	}

	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		log.Error("failed to parse redis url", "error", err)
		panic("failed to parse redis url: " + err.Error())
	}
	if cfg.GetRedisTLSInsecure() && opt.TLSConfig != nil {
		opt.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12, InsecureSkipVerify: true} //nolint:gosec // explicit opt-in
	}
	client := redis.NewClient(opt)
	log.Info("assignment lock shared through redis", "ttl", cfg.GetAssignmentLockTTL())

	return assignment.NewRedisLocker(client, cfg.GetAssignmentLockTTL()), func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
