package scheduler

import (
	"encoding/json"
	"fmt"

	"leadintake_backend/internal/notification"

	"github.com/hibiken/asynq"
)

const TaskLeadAssignedNotify = "leads.assigned.notify"

const TaskIntegrationSync = "integrations.sync"

const TaskIntegrationSweep = "integrations.sweep"

type IntegrationSyncPayload struct {
	IntegrationID int64 `json:"integrationId"`
}

func NewLeadAssignedTask(payload notification.Assignment) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLeadAssignedNotify, data), nil
}

func ParseLeadAssignedPayload(task *asynq.Task) (notification.Assignment, error) {
	var payload notification.Assignment
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return notification.Assignment{}, fmt.Errorf("decode %s payload: %w", task.Type(), err)
	}
	return payload, nil
}

func NewIntegrationSyncTask(payload IntegrationSyncPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIntegrationSync, data), nil
}

func ParseIntegrationSyncPayload(task *asynq.Task) (IntegrationSyncPayload, error) {
	var payload IntegrationSyncPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return IntegrationSyncPayload{}, fmt.Errorf("decode %s payload: %w", task.Type(), err)
	}
	return payload, nil
}

func NewIntegrationSweepTask() *asynq.Task {
	return asynq.NewTask(TaskIntegrationSweep, nil)
}
