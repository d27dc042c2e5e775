package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/vision-client/internal/core/domain"
)

func (q *Queue) PublishJob(ctx context.Context, job domain.ProcessingJob) error {
	if strings.TrimSpace(job.Path) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "nats publish job", errors.New("job path is empty"))
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	return q.send(ctx, "nats.publish_job", q.jobSubject, data)
}

// SubscribeJobs consumes jobs in the queue group until ctx is done, then
// drains the subscription.
func (q *Queue) SubscribeJobs(ctx context.Context, handler func(context.Context, domain.ProcessingJob) error) error {
	if q.conn == nil {
		return fmt.Errorf("nats subscribe: no connection")
	}
	sub, err := q.conn.QueueSubscribe(q.jobSubject, q.queueGroup, func(msg *nats.Msg) {
		q.handleJob(ctx, msg.Data, handler)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func (q *Queue) handleJob(ctx context.Context, data []byte, handler func(context.Context, domain.ProcessingJob) error) {
	if errors.Is(ctx.Err(), context.Canceled) {
		return
	}
	job, err := DecodeJob(data)
	if err != nil {
		q.logger.Error("job_decode_failed", "error", err)
		return
	}

	handlerCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := handler(handlerCtx, job); err != nil {
		q.logger.Error("job_handler_failed", "job_id", job.ID, "path", job.Path, "error", err)
	}
}

// DecodeJob accepts a JSON job; a missing options object means the
// default capability set.
func DecodeJob(data []byte) (domain.ProcessingJob, error) {
	var raw struct {
		domain.ProcessingJob
		Options *domain.ProcessingOptions `json:"options"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.ProcessingJob{}, domain.WrapError(domain.ErrInvalidInput, "decode job", err)
	}
	job := raw.ProcessingJob
	if strings.TrimSpace(job.Path) == "" {
		return domain.ProcessingJob{}, domain.WrapError(domain.ErrInvalidInput, "decode job", errors.New("path is required"))
	}
	job.Options = domain.DefaultProcessingOptions()
	if raw.Options != nil {
		job.Options = *raw.Options
	}
	return job, nil
}
