package usecase

import (
	"context"
	"log/slog"

	"github.com/kirillkom/vision-client/internal/core/domain"
	"github.com/kirillkom/vision-client/internal/core/ports"
)

type NoopObserver struct{}

func (NoopObserver) RunStarted(context.Context, domain.Run)                         {}
func (NoopObserver) StepChanged(context.Context, domain.Run, domain.ProcessingStep) {}
func (NoopObserver) RunFinished(context.Context, domain.Run)                        {}

// MultiObserver fans run events out in order. Nil entries are skipped.
type MultiObserver []ports.RunObserver

func (m MultiObserver) RunStarted(ctx context.Context, run domain.Run) {
	for _, o := range m {
		if o != nil {
			o.RunStarted(ctx, run)
		}
	}
}

func (m MultiObserver) StepChanged(ctx context.Context, run domain.Run, step domain.ProcessingStep) {
	for _, o := range m {
		if o != nil {
			o.StepChanged(ctx, run, step)
		}
	}
}

func (m MultiObserver) RunFinished(ctx context.Context, run domain.Run) {
	for _, o := range m {
		if o != nil {
			o.RunFinished(ctx, run)
		}
	}
}

// HistoryObserver persists every finished run.
type HistoryObserver struct {
	NoopObserver
	repo   ports.RunRepository
	logger *slog.Logger
}

func NewHistoryObserver(repo ports.RunRepository, logger *slog.Logger) *HistoryObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryObserver{repo: repo, logger: logger}
}

func (h *HistoryObserver) RunFinished(ctx context.Context, run domain.Run) {
	if err := h.repo.SaveRun(context.WithoutCancel(ctx), run); err != nil {
		h.logger.Error("run_history_save_failed", "run_id", run.ID, "error", err)
	}
}

// CatalogResultObserver ties a run to a catalog document: the document is
// marked PROCESSING when the run starts, and when it ends the results are
// cached under its id and the status becomes PROCESSED, or ERROR when no
// step produced a result.
type CatalogResultObserver struct {
	NoopObserver
	catalog    *CatalogStore
	documentID int64
}

func NewCatalogResultObserver(catalog *CatalogStore, documentID int64) *CatalogResultObserver {
	return &CatalogResultObserver{catalog: catalog, documentID: documentID}
}

func (c *CatalogResultObserver) RunStarted(context.Context, domain.Run) {
	c.catalog.UpdateStatus(c.documentID, domain.DocumentProcessing)
}

func (c *CatalogResultObserver) RunFinished(_ context.Context, run domain.Run) {
	if run.Results.Len() > 0 {
		c.catalog.SetProcessingResult(c.documentID, run.Results)
	}
	status := domain.DocumentProcessed
	if run.Status() == "failed" || run.Results.Len() == 0 {
		status = domain.DocumentError
	}
	c.catalog.UpdateStatus(c.documentID, status)
}
