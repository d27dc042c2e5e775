package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kirillkom/vision-client/internal/core/domain"
)

// EventSubject is the subject a run event of type t is published on.
func EventSubject(base string, t domain.RunEventType) string {
	return base + "." + string(t)
}

// RunStarted, StepChanged and RunFinished make the queue a run observer.
// Publish failures are logged; they never interrupt a run.
func (q *Queue) RunStarted(ctx context.Context, run domain.Run) {
	q.emit(ctx, domain.RunEvent{Type: domain.RunStarted, Run: run})
}

func (q *Queue) StepChanged(ctx context.Context, run domain.Run, step domain.ProcessingStep) {
	q.emit(ctx, domain.RunEvent{Type: domain.RunStep, Run: run, Step: &step})
}

func (q *Queue) RunFinished(ctx context.Context, run domain.Run) {
	q.emit(ctx, domain.RunEvent{Type: domain.RunFinished, Run: run})
}

func (q *Queue) PublishEvent(ctx context.Context, event domain.RunEvent) error {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode run event: %w", err)
	}
	return q.send(ctx, "nats.publish_event", EventSubject(q.eventsSubject, event.Type), data)
}

func (q *Queue) emit(ctx context.Context, event domain.RunEvent) {
	if err := q.PublishEvent(context.WithoutCancel(ctx), event); err != nil {
		q.logger.Warn("run_event_publish_failed", "type", event.Type, "run_id", event.Run.ID, "error", err)
	}
}
