package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/vision-client/internal/core/domain"
	"github.com/kirillkom/vision-client/internal/core/ports"
)

const DefaultStepDelay = 500 * time.Millisecond

// StepRecorder receives step and run outcomes for metrics.
type StepRecorder interface {
	RecordStep(capability, status string, duration time.Duration)
	RecordRun(status string, duration time.Duration)
}

type OrchestratorOptions struct {
	// StepDelay is the pause between two consecutive steps. Zero uses
	// DefaultStepDelay, a negative value disables the pause.
	StepDelay time.Duration
	Messages  ports.Translator
	Notifier  ports.Notifier
	Metrics   StepRecorder
	Logger    *slog.Logger
	NewRunID  func() string
	Now       func() time.Time
}

type stepHandler struct {
	accepts func(file domain.FileRef) bool
	call    func(ctx context.Context, file domain.FileRef, opts domain.ProcessingOptions) (domain.Result, error)
	failKey string
}

// Orchestrator runs the enabled capabilities over one file, one step at a
// time, and keeps the step list and results of the latest run.
type Orchestrator struct {
	processor ports.CapabilityProcessor
	observer  ports.RunObserver
	handlers  map[domain.Capability]stepHandler
	delay     time.Duration
	messages  ports.Translator
	notifier  ports.Notifier
	metrics   StepRecorder
	logger    *slog.Logger
	newRunID  func() string
	now       func() time.Time

	mu      sync.Mutex
	run     domain.Run
	busy    bool
	current domain.Capability
}

func NewOrchestrator(processor ports.CapabilityProcessor, observer ports.RunObserver, opts OrchestratorOptions) *Orchestrator {
	delay := opts.StepDelay
	switch {
	case delay == 0:
		delay = DefaultStepDelay
	case delay < 0:
		delay = 0
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	newRunID := opts.NewRunID
	if newRunID == nil {
		newRunID = uuid.NewString
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	if observer == nil {
		observer = NoopObserver{}
	}

	o := &Orchestrator{
		processor: processor,
		observer:  observer,
		delay:     delay,
		messages:  messagesOr(opts.Messages),
		notifier:  notifierOr(opts.Notifier),
		metrics:   opts.Metrics,
		logger:    logger,
		newRunID:  newRunID,
		now:       now,
		run:       domain.Run{Results: domain.NewResultsAggregate()},
	}
	o.handlers = o.buildHandlers()
	return o
}

func (o *Orchestrator) buildHandlers() map[domain.Capability]stepHandler {
	always := func(domain.FileRef) bool { return true }
	pdfOnly := domain.FileRef.IsPDF
	imageOnly := domain.FileRef.IsImage

	return map[domain.Capability]stepHandler{
		domain.CapabilityOCR: {
			accepts: always,
			failKey: "processing.ocr_failed",
			call: func(ctx context.Context, f domain.FileRef, opts domain.ProcessingOptions) (domain.Result, error) {
				r, err := o.processor.ExtractText(ctx, f, opts.TargetLanguage)
				return optional(r), err
			},
		},
		domain.CapabilityPDF: {
			accepts: pdfOnly,
			failKey: "processing.pdf_failed",
			call: func(ctx context.Context, f domain.FileRef, _ domain.ProcessingOptions) (domain.Result, error) {
				r, err := o.processor.ProcessPDF(ctx, f)
				return optional(r), err
			},
		},
		domain.CapabilityBarcode: {
			accepts: imageOnly,
			failKey: "processing.barcode_failed",
			call: func(ctx context.Context, f domain.FileRef, _ domain.ProcessingOptions) (domain.Result, error) {
				r, err := o.processor.ReadBarcodes(ctx, f)
				return optional(r), err
			},
		},
		domain.CapabilityMRZ: {
			accepts: imageOnly,
			failKey: "processing.mrz_failed",
			call: func(ctx context.Context, f domain.FileRef, _ domain.ProcessingOptions) (domain.Result, error) {
				r, err := o.processor.ExtractMRZ(ctx, f)
				return optional(r), err
			},
		},
		domain.CapabilityOllama: {
			accepts: imageOnly,
			failKey: "processing.ollama_failed",
			call: func(ctx context.Context, f domain.FileRef, opts domain.ProcessingOptions) (domain.Result, error) {
				r, err := o.processor.Analyze(ctx, f, opts.CustomPrompt)
				return optional(r), err
			},
		},
	}
}

// optional keeps a nil typed pointer from becoming a non-nil Result.
func optional[R any, P interface {
	*R
	domain.Result
}](r P) domain.Result {
	if r == nil {
		return nil
	}
	return r
}

// Prepare resets the latest run and returns the pending steps for opts.
func (o *Orchestrator) Prepare(opts domain.ProcessingOptions) ([]domain.ProcessingStep, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.busy {
		return nil, domain.WrapError(domain.ErrBusy, "prepare run", errors.New("a run is in progress"))
	}
	o.run = domain.Run{
		Options: opts,
		Steps:   domain.NewPendingSteps(opts),
		Results: domain.NewResultsAggregate(),
	}
	o.current = ""
	return cloneSteps(o.run.Steps), nil
}

// Start runs every enabled capability over input. Step failures are
// recorded on the step and do not abort the run. It returns ctx.Err() when
// the run was cut short by cancellation.
//
// On cancellation every step that has not started moves straight from
// pending to error with the cancelled message; it never reports processing.
// A step already in flight passes through processing as usual.
func (o *Orchestrator) Start(ctx context.Context, input domain.ProcessingInput, opts domain.ProcessingOptions) error {
	var file domain.FileRef
	switch in := input.(type) {
	case nil:
		return nil
	case domain.LocalFile:
		file = in.File
	case *domain.LocalFile:
		if in == nil {
			return nil
		}
		file = in.File
	case domain.StoredDocument, *domain.StoredDocument:
		return domain.WrapError(domain.ErrUnsupported, "start run", domain.ErrStoredDocument)
	default:
		return domain.WrapError(domain.ErrUnsupported, "start run", fmt.Errorf("input %T", input))
	}

	run, err := o.begin(file, opts)
	if err != nil {
		return err
	}
	o.logger.Info("processing_run_started", "run_id", run.ID, "file", file.Name, "mime_type", file.MimeType, "steps", len(run.Steps))
	o.observer.RunStarted(ctx, run)

	caps := opts.Capabilities()
	for i, c := range caps {
		if ctx.Err() != nil {
			o.cancelRemaining(ctx, caps[i:])
			break
		}
		o.execute(ctx, c, file, opts)
		if i < len(caps)-1 && !o.pause(ctx) {
			o.cancelRemaining(ctx, caps[i+1:])
			break
		}
	}

	final := o.finish()
	o.observer.RunFinished(ctx, final)
	o.report(final)
	return ctx.Err()
}

func (o *Orchestrator) begin(file domain.FileRef, opts domain.ProcessingOptions) (domain.Run, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.busy {
		return domain.Run{}, domain.WrapError(domain.ErrBusy, "start run", errors.New("a run is in progress"))
	}
	o.busy = true
	o.current = ""
	o.run = domain.Run{
		ID:        o.newRunID(),
		FileName:  file.Name,
		MimeType:  file.MimeType,
		FileSize:  file.Size,
		Options:   opts,
		Steps:     domain.NewPendingSteps(opts),
		Results:   domain.NewResultsAggregate(),
		StartedAt: o.now(),
	}
	return o.snapshotLocked(), nil
}

func (o *Orchestrator) execute(ctx context.Context, c domain.Capability, file domain.FileRef, opts domain.ProcessingOptions) {
	h, ok := o.handlers[c]
	started := o.now()
	o.transition(ctx, c, func(s *domain.ProcessingStep) { s.Status = domain.StepProcessing }, true)

	if !ok || !h.accepts(file) {
		o.transition(ctx, c, func(s *domain.ProcessingStep) { s.Status = domain.StepCompleted }, false)
		o.recordStep(c, "skipped", started)
		return
	}

	result, err := h.call(ctx, file, opts)
	var msg string
	switch {
	case err != nil && ctx.Err() != nil:
		msg = o.messages.Translate("processing.cancelled")
	case err != nil:
		msg = domain.ErrorMessage(err, o.messages.Translate(h.failKey))
	case result == nil:
		msg = o.messages.Translate("processing.empty_response")
	case !result.Succeeded():
		msg = result.Failure()
		if msg == "" {
			msg = o.messages.Translate(h.failKey)
		}
	}

	if msg != "" {
		o.logger.Warn("processing_step_failed", "capability", c, "error", msg)
		o.transition(ctx, c, func(s *domain.ProcessingStep) {
			s.Status = domain.StepError
			s.Error = msg
		}, false)
		o.recordStep(c, string(domain.StepError), started)
		return
	}

	o.mu.Lock()
	o.run.Results.Set(result)
	o.mu.Unlock()
	o.transition(ctx, c, func(s *domain.ProcessingStep) {
		s.Status = domain.StepCompleted
		s.Result = result
	}, false)
	o.logger.Info("processing_step", "capability", c, "duration_ms", o.now().Sub(started).Milliseconds())
	o.recordStep(c, string(domain.StepCompleted), started)
}

// transition applies mutate to the step of c and notifies the observer
// outside the lock.
func (o *Orchestrator) transition(ctx context.Context, c domain.Capability, mutate func(*domain.ProcessingStep), enter bool) {
	o.mu.Lock()
	idx := -1
	for i := range o.run.Steps {
		if o.run.Steps[i].ID == c {
			idx = i
			break
		}
	}
	if idx < 0 {
		o.mu.Unlock()
		return
	}
	mutate(&o.run.Steps[idx])
	if enter {
		o.current = c
	}
	step := o.run.Steps[idx]
	run := o.snapshotLocked()
	o.mu.Unlock()

	o.observer.StepChanged(ctx, run, step)
}

func (o *Orchestrator) cancelRemaining(ctx context.Context, caps []domain.Capability) {
	msg := o.messages.Translate("processing.cancelled")
	for _, c := range caps {
		o.transition(ctx, c, func(s *domain.ProcessingStep) {
			if s.Done() {
				return
			}
			s.Status = domain.StepError
			s.Error = msg
		}, false)
	}
}

func (o *Orchestrator) pause(ctx context.Context) bool {
	if o.delay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(o.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (o *Orchestrator) finish() domain.Run {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.busy = false
	o.current = ""
	o.run.FinishedAt = o.now()
	return o.snapshotLocked()
}

func (o *Orchestrator) report(run domain.Run) {
	succeeded, failed := run.Counts()
	status := run.Status()
	duration := run.FinishedAt.Sub(run.StartedAt)
	if o.metrics != nil {
		o.metrics.RecordRun(status, duration)
	}
	o.logger.Info("processing_run_finished",
		"run_id", run.ID,
		"status", status,
		"succeeded", succeeded,
		"failed", failed,
		"duration_ms", duration.Milliseconds(),
	)

	title := o.messages.Translate("processing.done")
	if failed > 0 {
		o.notifier.Notify(domain.Notification{
			Type:    domain.NotificationWarning,
			Title:   title,
			Message: o.messages.Translate("processing.done_with_errors", failed),
		})
		return
	}
	o.notifier.Notify(domain.Notification{
		Type:    domain.NotificationSuccess,
		Title:   title,
		Message: run.FileName,
	})
}

func (o *Orchestrator) recordStep(c domain.Capability, status string, started time.Time) {
	if o.metrics != nil {
		o.metrics.RecordStep(string(c), status, o.now().Sub(started))
	}
}

func (o *Orchestrator) snapshotLocked() domain.Run {
	out := o.run
	out.Steps = cloneSteps(o.run.Steps)
	out.Results = o.run.Results.Clone()
	return out
}

func (o *Orchestrator) Steps() []domain.ProcessingStep {
	o.mu.Lock()
	defer o.mu.Unlock()
	return cloneSteps(o.run.Steps)
}

func (o *Orchestrator) Results() domain.ResultsAggregate {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.run.Results.Clone()
}

func (o *Orchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.busy
}

// CurrentStep is the capability being executed, or "" when idle.
func (o *Orchestrator) CurrentStep() domain.Capability {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// LastRun is a snapshot of the latest run, finished or not.
func (o *Orchestrator) LastRun() domain.Run {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func cloneSteps(steps []domain.ProcessingStep) []domain.ProcessingStep {
	if steps == nil {
		return nil
	}
	return append([]domain.ProcessingStep(nil), steps...)
}
