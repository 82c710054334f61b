package scheduler

import (
	"context"
	"errors"
	"testing"

	"leadintake_backend/internal/integrations"
	"leadintake_backend/internal/notification"
	"leadintake_backend/platform/logger"

	"github.com/hibiken/asynq"
)

type recordingSender struct {
	sent []notification.Assignment
	err  error
}

func (s *recordingSender) Send(_ context.Context, a notification.Assignment) error {
	s.sent = append(s.sent, a)
	return s.err
}

type fakeSyncer struct {
	synced   []int64
	sweeps   int
	syncErr  error
	sweepErr error
}

func (f *fakeSyncer) SyncOne(_ context.Context, id int64) (integrations.Summary, error) {
	f.synced = append(f.synced, id)
	return integrations.Summary{IntegrationID: id}, f.syncErr
}

func (f *fakeSyncer) SyncAll(context.Context) error {
	f.sweeps++
	return f.sweepErr
}

func TestLeadAssignedHandlerSendsPayload(t *testing.T) {
	sender := &recordingSender{}
	h := NewHandlers(sender, &fakeSyncer{}, logger.Nop())

	task, err := NewLeadAssignedTask(notification.Assignment{TenantID: 3, LeadID: 41, AgentName: "Asha", LeadPhone: "9876543210"})
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	if err := h.handleLeadAssigned(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(sender.sent) != 1 || sender.sent[0].LeadID != 41 || sender.sent[0].AgentName != "Asha" {
		t.Fatalf("unexpected deliveries %+v", sender.sent)
	}
}

func TestLeadAssignedHandlerReturnsSendFailure(t *testing.T) {
	sender := &recordingSender{err: errors.New("smtp down")}
	h := NewHandlers(sender, &fakeSyncer{}, logger.Nop())

	task, _ := NewLeadAssignedTask(notification.Assignment{LeadID: 1})
	if err := h.handleLeadAssigned(context.Background(), task); err == nil {
		t.Fatal("send failures must surface so the task is retried")
	}
}

func TestMalformedPayloadSkipsRetry(t *testing.T) {
	h := NewHandlers(&recordingSender{}, &fakeSyncer{}, logger.Nop())

	err := h.handleIntegrationSync(context.Background(), asynq.NewTask(TaskIntegrationSync, []byte("{")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}

func TestIntegrationSyncHandler(t *testing.T) {
	syncer := &fakeSyncer{}
	h := NewHandlers(nil, syncer, logger.Nop())

	task, err := NewIntegrationSyncTask(IntegrationSyncPayload{IntegrationID: 7})
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	if err := h.handleIntegrationSync(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(syncer.synced) != 1 || syncer.synced[0] != 7 {
		t.Fatalf("unexpected syncs %v", syncer.synced)
	}

	syncer.syncErr = integrations.ErrBusy
	if err := h.handleIntegrationSync(context.Background(), task); err != nil {
		t.Fatalf("a busy integration is not a failure, got %v", err)
	}
}

func TestIntegrationSweepHandler(t *testing.T) {
	syncer := &fakeSyncer{}
	h := NewHandlers(nil, syncer, logger.Nop())

	if err := h.handleIntegrationSweep(context.Background(), NewIntegrationSweepTask()); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if syncer.sweeps != 1 {
		t.Fatalf("expected one sweep, got %d", syncer.sweeps)
	}
}
