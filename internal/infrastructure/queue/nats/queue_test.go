package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/vision-client/internal/core/domain"
	"github.com/kirillkom/vision-client/internal/infrastructure/resilience"
	"github.com/kirillkom/vision-client/internal/observability/logging"
)

type published struct {
	subject string
	data    []byte
}

type publisherFake struct {
	msgs []published
	errs []error
}

func (p *publisherFake) Publish(subject string, data []byte) error {
	p.msgs = append(p.msgs, published{subject: subject, data: data})
	if len(p.errs) > 0 {
		err := p.errs[0]
		p.errs = p.errs[1:]
		return err
	}
	return nil
}

func testQueue(p *publisherFake, exec *resilience.Executor) *Queue {
	return newQueue(p.Publish, Options{ResilienceExecutor: exec, Logger: logging.Discard()})
}

func TestPublishJobEncodesJob(t *testing.T) {
	p := &publisherFake{}
	q := testQueue(p, nil)

	job := domain.ProcessingJob{ID: "j1", Path: "/data/id.png", MimeType: "image/png", Options: domain.ProcessingOptions{EnableMRZ: true}}
	if err := q.PublishJob(context.Background(), job); err != nil {
		t.Fatalf("PublishJob() error = %v", err)
	}
	if len(p.msgs) != 1 || p.msgs[0].subject != "vision.jobs" {
		t.Fatalf("messages = %+v", p.msgs)
	}
	got, err := DecodeJob(p.msgs[0].data)
	if err != nil {
		t.Fatalf("DecodeJob() error = %v", err)
	}
	if got.ID != "j1" || !got.Options.EnableMRZ || got.Options.EnableOCR || got.EnqueuedAt.IsZero() {
		t.Fatalf("decoded job = %+v", got)
	}
}

func TestPublishJobRejectsEmptyPath(t *testing.T) {
	q := testQueue(&publisherFake{}, nil)
	if err := q.PublishJob(context.Background(), domain.ProcessingJob{}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("PublishJob() error = %v, want ErrInvalidInput", err)
	}
}

func TestDecodeJobDefaultsOptions(t *testing.T) {
	job, err := DecodeJob([]byte(`{"path":"/tmp/a.pdf"}`))
	if err != nil {
		t.Fatalf("DecodeJob() error = %v", err)
	}
	if job.Options != domain.DefaultProcessingOptions() {
		t.Fatalf("options = %+v", job.Options)
	}
	if _, err := DecodeJob([]byte(`{"options":{}}`)); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("missing path error = %v", err)
	}
	if _, err := DecodeJob([]byte(`not json`)); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("bad json error = %v", err)
	}
}

func TestRunEventsUseTypedSubjects(t *testing.T) {
	p := &publisherFake{}
	q := testQueue(p, nil)
	ctx := context.Background()
	run := domain.Run{ID: "r1", FileName: "id.png"}

	q.RunStarted(ctx, run)
	q.StepChanged(ctx, run, domain.ProcessingStep{ID: domain.CapabilityOCR, Status: domain.StepProcessing})
	q.RunFinished(ctx, run)

	want := []string{"vision.runs.started", "vision.runs.step", "vision.runs.finished"}
	if len(p.msgs) != len(want) {
		t.Fatalf("messages = %d", len(p.msgs))
	}
	for i, m := range p.msgs {
		if m.subject != want[i] {
			t.Fatalf("subject %d = %s, want %s", i, m.subject, want[i])
		}
	}
	var event domain.RunEvent
	if err := json.Unmarshal(p.msgs[1].data, &event); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if event.Type != domain.RunStep || event.Step == nil || event.Step.ID != domain.CapabilityOCR || event.Run.ID != "r1" {
		t.Fatalf("event = %+v", event)
	}
}

func TestPublishRetriesTransientErrors(t *testing.T) {
	p := &publisherFake{errs: []error{nats.ErrTimeout}}
	cfg := resilience.DefaultConfig()
	cfg.RetryInitialBackoff = 1
	cfg.RetryMaxBackoff = 1
	q := testQueue(p, resilience.NewExecutor(cfg))

	if err := q.PublishJob(context.Background(), domain.ProcessingJob{Path: "/a.png"}); err != nil {
		t.Fatalf("PublishJob() error = %v", err)
	}
	if len(p.msgs) != 2 {
		t.Fatalf("attempts = %d, want 2", len(p.msgs))
	}
}

func TestPublishMarksExhaustedTransientErrorsTemporary(t *testing.T) {
	p := &publisherFake{errs: []error{nats.ErrNoServers}}
	q := testQueue(p, nil)

	err := q.PublishJob(context.Background(), domain.ProcessingJob{Path: "/a.png"})
	if !errors.Is(err, domain.ErrTemporary) || !errors.Is(err, nats.ErrNoServers) {
		t.Fatalf("PublishJob() error = %v", err)
	}
}

func TestClassifyNATSError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want resilience.ErrorClassification
	}{
		{name: "nil", err: nil, want: resilience.ErrorClassification{}},
		{name: "canceled", err: context.Canceled, want: resilience.ErrorClassification{}},
		{name: "timeout", err: nats.ErrTimeout, want: resilience.ErrorClassification{Retryable: true, RecordFailure: true}},
		{name: "closed", err: nats.ErrConnectionClosed, want: resilience.ErrorClassification{Retryable: true, RecordFailure: true}},
		{name: "payload", err: nats.ErrMaxPayload, want: resilience.ErrorClassification{RecordFailure: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyNATSError(tt.err); got != tt.want {
				t.Fatalf("classifyNATSError() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
