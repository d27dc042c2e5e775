package ports

import (
	"context"

	"github.com/kirillkom/vision-client/internal/core/domain"
)

// KeyValueStore is the durable client-side store for the token, the user
// profile and UI preferences. A missing key is reported with ok=false.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

type AuthAPI interface {
	Login(ctx context.Context, req domain.LoginRequest) (domain.AuthResponse, error)
	Register(ctx context.Context, req domain.RegisterRequest) (domain.AuthResponse, error)
	Refresh(ctx context.Context) (domain.AuthResponse, error)
	CurrentUser(ctx context.Context) (domain.UserProfile, error)
	UpdateProfile(ctx context.Context, user domain.UserProfile) (domain.UserProfile, error)
}

type CatalogAPI interface {
	ListDocuments(ctx context.Context, req domain.PageRequest) (domain.DocumentPage, error)
	GetDocument(ctx context.Context, id int64) (domain.Document, error)
	ProcessDocument(ctx context.Context, file domain.FileRef) (domain.ProcessedDocument, error)
}

type UploadAPI interface {
	TestUpload(ctx context.Context, file domain.FileRef) (domain.UploadReceipt, error)
}

// CapabilityProcessor calls the backend once per capability.
type CapabilityProcessor interface {
	ExtractText(ctx context.Context, file domain.FileRef, language string) (*domain.OcrResult, error)
	ProcessPDF(ctx context.Context, file domain.FileRef) (*domain.PdfResult, error)
	ReadBarcodes(ctx context.Context, file domain.FileRef) (*domain.BarcodeResult, error)
	ExtractMRZ(ctx context.Context, file domain.FileRef) (*domain.MrzResult, error)
	Analyze(ctx context.Context, file domain.FileRef, prompt string) (*domain.OllamaResult, error)
}

type Navigator interface {
	Navigate(view string)
	CurrentView() string
}

// Notifier queues a user-visible notification and returns its id.
type Notifier interface {
	Notify(n domain.Notification) string
}

type Translator interface {
	Translate(key string, args ...any) string
}

type RunObserver interface {
	RunStarted(ctx context.Context, run domain.Run)
	StepChanged(ctx context.Context, run domain.Run, step domain.ProcessingStep)
	RunFinished(ctx context.Context, run domain.Run)
}

type RunRepository interface {
	SaveRun(ctx context.Context, run domain.Run) error
	GetRun(ctx context.Context, id string) (*domain.Run, error)
	ListRuns(ctx context.Context, limit int) ([]domain.Run, error)
}

type JobQueue interface {
	PublishJob(ctx context.Context, job domain.ProcessingJob) error
	SubscribeJobs(ctx context.Context, handler func(context.Context, domain.ProcessingJob) error) error
}

type FileInspector interface {
	InspectPDF(ctx context.Context, file domain.FileRef) (domain.PdfPreflight, error)
}
