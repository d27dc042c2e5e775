package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kirillkom/vision-client/internal/bootstrap"
	"github.com/kirillkom/vision-client/internal/config"
	"github.com/kirillkom/vision-client/internal/core/domain"
	"github.com/kirillkom/vision-client/internal/core/usecase"
	"github.com/kirillkom/vision-client/internal/infrastructure/export"
	"github.com/kirillkom/vision-client/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/vision-client/internal/observability/logging"
	"github.com/kirillkom/vision-client/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("vision-worker", cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if app.Queue == nil {
		logger.Error("worker_requires_nats", "hint", "set VISION_NATS_URL")
		os.Exit(1)
	}
	if err := app.Initialize(ctx); err != nil {
		logger.Error("initialize_failed", "error", err)
		os.Exit(1)
	}
	if !app.Session.IsAuthenticated() {
		logger.Warn("worker_session_anonymous")
	}

	workerMetrics := metrics.NewWorkerMetrics("vision-worker", app.Metrics.Registry())
	server := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           app.Metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("metrics_listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics_server_failed", "error", err)
		}
	}()

	w := &worker{
		ctx:     ctx,
		app:     app,
		metrics: workerMetrics,
		sem:     make(chan struct{}, max(cfg.WorkerConcurrent, 1)),
	}

	logger.Info("worker_subscribed", "subject", cfg.NATSJobSubject, "queue_group", cfg.NATSQueueGroup)
	if err := app.Queue.SubscribeJobs(ctx, w.dispatch); err != nil {
		logger.Error("worker_subscribe_failed", "error", err)
	}
	w.wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics_shutdown_failed", "error", err)
	}
}

type worker struct {
	// ctx outlives a single message callback; jobs stop on shutdown only.
	ctx     context.Context
	app     *bootstrap.App
	metrics *metrics.WorkerMetrics
	sem     chan struct{}
	wg      sync.WaitGroup
}

// dispatch blocks until a slot frees up, then runs the job in the background.
// The callback context is cancelled when dispatch returns, so the job runs
// under the worker context.
func (w *worker) dispatch(ctx context.Context, job domain.ProcessingJob) error {
	select {
	case w.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() { <-w.sem }()
		if err := w.run(w.ctx, job); err != nil {
			w.app.Logger.Error("job_failed", "job_id", job.ID, "path", job.Path, "error", err)
		}
	}()
	return nil
}

func (w *worker) run(ctx context.Context, job domain.ProcessingJob) error {
	if !job.EnqueuedAt.IsZero() {
		w.metrics.ObserveQueueLag(time.Since(job.EnqueuedAt))
	}
	w.metrics.StartJob()
	started := time.Now()
	err := w.process(ctx, job)
	w.metrics.FinishJob(time.Since(started), err)
	return err
}

func (w *worker) process(ctx context.Context, job domain.ProcessingJob) error {
	file, err := localfs.OpenFile(job.Path)
	if err != nil {
		return err
	}
	if job.FileName != "" {
		file.Name = job.FileName
	}
	if job.MimeType != "" {
		file.MimeType = job.MimeType
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.app.Config.JobTimeout)
	defer cancel()

	orchestrator, err := w.orchestratorFor(jobCtx, job)
	if err != nil || orchestrator == nil {
		return err
	}
	if err := orchestrator.Start(jobCtx, domain.LocalFile{File: file}, job.Options); err != nil {
		return err
	}

	results := orchestrator.Results()
	path, err := export.Save(ctx, w.app.Exports, export.FormatJSON, results, time.Now())
	if err != nil {
		return err
	}
	w.app.Logger.Info("job_completed",
		"job_id", job.ID,
		"document_id", job.DocumentID,
		"file_name", file.Name,
		"capabilities", results.Len(),
		"export_path", path,
	)
	return nil
}

// orchestratorFor links document jobs to the catalog. It returns nil when
// the document already has a cached result and the job is not forced.
func (w *worker) orchestratorFor(ctx context.Context, job domain.ProcessingJob) (*usecase.Orchestrator, error) {
	if job.DocumentID == 0 {
		return w.app.NewOrchestrator(), nil
	}
	if _, cached := w.app.Catalog.ProcessingResult(job.DocumentID); cached && !job.Force {
		w.app.Logger.Info("job_skipped_cached", "job_id", job.ID, "document_id", job.DocumentID)
		return nil, nil
	}
	return w.app.NewDocumentRun(ctx, job.DocumentID)
}
