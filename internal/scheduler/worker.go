package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadintake_backend/internal/integrations"
	"leadintake_backend/internal/notification"
	"leadintake_backend/platform/config"
	"leadintake_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// AssignmentSender delivers assignment notifications.
type AssignmentSender interface {
	Send(ctx context.Context, a notification.Assignment) error
}

// Syncer runs integration syncs.
type Syncer interface {
	SyncOne(ctx context.Context, id int64) (integrations.Summary, error)
	SyncAll(ctx context.Context) error
}

// Handlers processes queued tasks.
type Handlers struct {
	sender AssignmentSender
	syncer Syncer
	log    *logger.Logger
}

func NewHandlers(sender AssignmentSender, syncer Syncer, log *logger.Logger) *Handlers {
	return &Handlers{sender: sender, syncer: syncer, log: log}
}

// Register binds every task type to mux.
func (h *Handlers) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskLeadAssignedNotify, h.handleLeadAssigned)
	mux.HandleFunc(TaskIntegrationSync, h.handleIntegrationSync)
	mux.HandleFunc(TaskIntegrationSweep, h.handleIntegrationSweep)
}

func (h *Handlers) handleLeadAssigned(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseLeadAssignedPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	if h.sender == nil {
		return nil
	}
	return h.sender.Send(ctx, payload)
}

func (h *Handlers) handleIntegrationSync(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseIntegrationSyncPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	_, err = h.syncer.SyncOne(ctx, payload.IntegrationID)
	if errors.Is(err, integrations.ErrBusy) {
		h.log.Info("integration sync already running", "integrationId", payload.IntegrationID)
		return nil
	}
	return err
}

func (h *Handlers) handleIntegrationSweep(ctx context.Context, _ *asynq.Task) error {
	return h.syncer.SyncAll(ctx)
}

type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
	log       *logger.Logger
}

// NewWorker builds the task server and, when syncInterval is positive, the
// periodic sweep that syncs every active integration.
func NewWorker(cfg config.SchedulerConfig, handlers *Handlers, syncInterval time.Duration, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	handlers.Register(mux)

	w := &Worker{server: server, mux: mux, log: log}

	if syncInterval > 0 {
		w.scheduler = asynq.NewScheduler(opt, &asynq.SchedulerOpts{Location: time.UTC})
		cronspec := "@every " + syncInterval.String()
		if _, err := w.scheduler.Register(cronspec, NewIntegrationSweepTask(), asynq.Queue(queue), asynq.MaxRetry(0), asynq.Unique(syncInterval)); err != nil {
			return nil, fmt.Errorf("register integration sweep: %w", err)
		}
	}

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			w.log.Error("periodic scheduler failed to start", "error", err)
		}
	}

	go func() {
		<-ctx.Done()
		if w.scheduler != nil {
			w.scheduler.Shutdown()
		}
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
