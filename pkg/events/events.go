// Package events emits task lifecycle events for downstream consumers
package events

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	fernctx "github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/models"
)

const (
	TypeTaskCreated           = "task.created"
	TypeTaskMerged            = "task.merged"
	TypeTaskCarrierOverridden = "task.carrier_overridden"
)

type TaskEvent struct {
	Type                 string    `json:"type"`
	TaskID               string    `json:"task_id"`
	ExternalID           *string   `json:"external_id,omitempty"`
	CarrierID            *string   `json:"carrier_id,omitempty"`
	StartTime            time.Time `json:"start_time"`
	EndTime              time.Time `json:"end_time"`
	TaskType             string    `json:"task_type"`
	ServiceIDs           []string  `json:"service_ids,omitempty"`
	PendingServiceTokens []string  `json:"pending_service_tokens,omitempty"`
	Discrepancies        []string  `json:"discrepancies,omitempty"`
	Client               string    `json:"client,omitempty"`
	Source               string    `json:"source,omitempty"`
	Timestamp            time.Time `json:"timestamp"`
}

type Publisher interface {
	Publish(ctx context.Context, key string, value any, headers map[string]string) error
}

// Emitter publishes task events. A nil Emitter or one without a publisher does nothing.
// Publishing failures are logged and never fail the operation that produced the event.
type Emitter struct {
	publisher Publisher
	logger    ectologger.Logger
	now       func() time.Time
}

func NewEmitter(publisher Publisher, logger ectologger.Logger) *Emitter {
	return &Emitter{publisher: publisher, logger: logger, now: time.Now}
}

// Processed emits task.created or task.merged for a processed notification
func (e *Emitter) Processed(ctx context.Context, result *models.ProcessResult) {
	if result == nil || result.Task == nil {
		return
	}
	eventType := TypeTaskMerged
	if result.Created {
		eventType = TypeTaskCreated
	}

	event := e.taskEvent(ctx, eventType, result.Task)
	for _, svc := range result.Services {
		event.ServiceIDs = append(event.ServiceIDs, svc.ID)
	}
	event.PendingServiceTokens = result.PendingServiceTokens
	event.Discrepancies = result.Discrepancies
	e.publish(ctx, event)
}

func (e *Emitter) CarrierOverridden(ctx context.Context, task *models.ScheduledTask) {
	if task == nil {
		return
	}
	e.publish(ctx, e.taskEvent(ctx, TypeTaskCarrierOverridden, task))
}

func (e *Emitter) taskEvent(ctx context.Context, eventType string, task *models.ScheduledTask) *TaskEvent {
	now := time.Now
	if e != nil && e.now != nil {
		now = e.now
	}
	return &TaskEvent{
		Type:       eventType,
		TaskID:     task.ID,
		ExternalID: task.ExternalID,
		CarrierID:  task.CarrierID,
		StartTime:  task.StartTime.UTC(),
		EndTime:    task.EndTime.UTC(),
		TaskType:   task.TaskType,
		Client:     fernctx.GetClient(ctx),
		Source:     fernctx.GetSource(ctx),
		Timestamp:  now().UTC(),
	}
}

func (e *Emitter) publish(ctx context.Context, event *TaskEvent) {
	if e == nil || e.publisher == nil {
		return
	}
	err := e.publisher.Publish(ctx, event.TaskID, event, map[string]string{"type": event.Type})
	if err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"type":    event.Type,
			"task_id": event.TaskID,
		}).Warn("Failed to publish task event")
	}
}
