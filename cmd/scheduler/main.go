package main

import (
	"context"
	"crypto/tls"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadintake_backend/internal/events"
	"leadintake_backend/internal/integrations"
	"leadintake_backend/internal/leads"
	"leadintake_backend/internal/leads/assignment"
	"leadintake_backend/internal/ledger"
	"leadintake_backend/internal/notification"
	"leadintake_backend/internal/scheduler"
	"leadintake_backend/internal/sources"
	"leadintake_backend/internal/sources/indiamart"
	"leadintake_backend/internal/sources/mailbox"
	"leadintake_backend/internal/sources/mailparse"
	"leadintake_backend/platform/config"
	"leadintake_backend/platform/db"
	"leadintake_backend/platform/logger"
	"leadintake_backend/platform/secretbox"
	"leadintake_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env, "syncInterval", cfg.GetSyncInterval())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)

	box, err := secretbox.New(cfg.GetCredentialsSecret())
	if err != nil {
		log.Error("failed to initialize credential sealing", "error", err)
		panic("failed to initialize credential sealing: " + err.Error())
	}

	// Leads ingested by a sync queue their notifications like any other.
	taskClient, err := scheduler.NewClient(cfg, cfg.GetSyncInterval())
	if err != nil {
		log.Error("failed to initialize task client", "error", err)
		panic("failed to initialize task client: " + err.Error())
	}
	defer func() { _ = taskClient.Close() }()

	notificationModule := notification.NewModule(cfg, taskClient, log)
	notificationModule.RegisterHandlers(eventBus)

	locker, closeLocker := initScopeLocker(cfg, log)
	if closeLocker != nil {
		defer closeLocker()
	}

	// The worker has no HTTP surface; the leads module only supplies the
	// ingestion pipeline.
	leadsModule := leads.NewModule(pool, locker, notificationModule.Dispatcher(), eventBus, validator.New(), cfg, log)

	mailAdapters, err := mailparse.NewAdapters()
	if err != nil {
		log.Error("failed to load mail parser profiles", "error", err)
		panic("failed to load mail parser profiles: " + err.Error())
	}
	registry := sources.NewRegistry(indiamart.Adapter{})
	for _, a := range mailAdapters {
		registry.Register(a)
	}

	runner := integrations.NewRunner(integrations.RunnerDeps{
		Store:       integrations.NewRepository(pool),
		Secrets:     box,
		Registry:    registry,
		Processor:   sources.NewProcessor(ledger.New(pool), leadsModule.Repository(), leadsModule.Service(), log),
		Inquiries:   indiamart.NewClient(cfg.GetIndiaMARTAPIURL()),
		Mail:        mailbox.NewPoller(mailbox.IMAPDialer{}, cfg.GetMailboxBatchLimit()),
		Bus:         eventBus,
		Log:         log,
		Concurrency: cfg.GetSyncConcurrency(),
	})

	handlers := scheduler.NewHandlers(notificationModule.Sender(), runner, log)
	worker, err := scheduler.NewWorker(cfg, handlers, cfg.GetSyncInterval(), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func initScopeLocker(cfg *config.Config, log *logger.Logger) (assignment.ScopeLocker, func()) {
	if cfg.GetAssignmentLockMode() != "redis" {
		log.Warn("assignment lock is process-local; run a single ingesting process or set INGEST_LOCK_MODE=redis")
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

	return assignment.NewRedisLocker(client, cfg.GetAssignmentLockTTL()), func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
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
