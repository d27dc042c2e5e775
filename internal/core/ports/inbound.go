package ports

import (
	"context"

	"github.com/kirillkom/vision-client/internal/core/domain"
)

// SessionService is the inbound contract for authentication state.
type SessionService interface {
	Login(ctx context.Context, req domain.LoginRequest) error
	Register(ctx context.Context, req domain.RegisterRequest) error
	Logout(ctx context.Context) error
	Refresh(ctx context.Context) error
	Snapshot() domain.Session
}

// ProcessingRunner is the inbound contract for a multi-capability run over one file.
type ProcessingRunner interface {
	Prepare(opts domain.ProcessingOptions) ([]domain.ProcessingStep, error)
	Start(ctx context.Context, input domain.ProcessingInput, opts domain.ProcessingOptions) error
	Steps() []domain.ProcessingStep
	Results() domain.ResultsAggregate
	Busy() bool
}

// DocumentCatalog is the inbound read model for the paged document list.
type DocumentCatalog interface {
	LoadPage(ctx context.Context, req domain.PageRequest) error
	Reload(ctx context.Context) error
	Fetch(ctx context.Context, id int64) (domain.Document, error)
	Upload(ctx context.Context, file domain.FileRef) (domain.ProcessedDocument, error)
	Documents() []domain.Document
}
