package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/kirillkom/vision-client/internal/core/domain"
	"github.com/kirillkom/vision-client/internal/observability/logging"
)

var testLogger = logging.Discard()

type memoryKV struct {
	mu     sync.Mutex
	values map[string]string
	setErr error
}

func newMemoryKV() *memoryKV {
	return &memoryKV{values: make(map[string]string)}
}

func (m *memoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	return nil
}

func (m *memoryKV) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func (m *memoryKV) has(key string) bool {
	_, ok, _ := m.Get(context.Background(), key)
	return ok
}

type notifierFake struct {
	mu    sync.Mutex
	items []domain.Notification
}

func (n *notifierFake) Notify(item domain.Notification) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, item)
	return "id"
}

func (n *notifierFake) last() domain.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.items) == 0 {
		return domain.Notification{}
	}
	return n.items[len(n.items)-1]
}

type authAPIFake struct {
	loginResp    domain.AuthResponse
	loginErr     error
	registerResp domain.AuthResponse
	registerErr  error
	refreshResp  domain.AuthResponse
	refreshErr   error
	me           domain.UserProfile
	meErr        error
	meCalls      int
	updateErr    error
	updated      []domain.UserProfile
}

func (f *authAPIFake) Login(context.Context, domain.LoginRequest) (domain.AuthResponse, error) {
	return f.loginResp, f.loginErr
}

func (f *authAPIFake) Register(context.Context, domain.RegisterRequest) (domain.AuthResponse, error) {
	return f.registerResp, f.registerErr
}

func (f *authAPIFake) Refresh(context.Context) (domain.AuthResponse, error) {
	return f.refreshResp, f.refreshErr
}

func (f *authAPIFake) CurrentUser(context.Context) (domain.UserProfile, error) {
	f.meCalls++
	return f.me, f.meErr
}

func (f *authAPIFake) UpdateProfile(_ context.Context, user domain.UserProfile) (domain.UserProfile, error) {
	f.updated = append(f.updated, user)
	if f.updateErr != nil {
		return domain.UserProfile{}, f.updateErr
	}
	return user, nil
}

type catalogAPIFake struct {
	page     domain.DocumentPage
	err      error
	requests []domain.PageRequest

	docs       map[int64]domain.Document
	processed  domain.ProcessedDocument
	processErr error
	uploads    []string
}

func (f *catalogAPIFake) ListDocuments(_ context.Context, req domain.PageRequest) (domain.DocumentPage, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return domain.DocumentPage{}, f.err
	}
	return f.page, nil
}

func (f *catalogAPIFake) GetDocument(_ context.Context, id int64) (domain.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return domain.Document{}, domain.WrapError(domain.ErrNotFound, "get document", errors.New("no such document"))
	}
	return doc, nil
}

func (f *catalogAPIFake) ProcessDocument(_ context.Context, file domain.FileRef) (domain.ProcessedDocument, error) {
	f.uploads = append(f.uploads, file.Name)
	if f.processErr != nil {
		return domain.ProcessedDocument{}, f.processErr
	}
	return f.processed, nil
}

// processorFake answers every capability with configurable payloads and
// records the order of calls.
type processorFake struct {
	mu       sync.Mutex
	calls    []domain.Capability
	language string
	prompt   string

	ocr     *domain.OcrResult
	pdf     *domain.PdfResult
	barcode *domain.BarcodeResult
	mrz     *domain.MrzResult
	ollama  *domain.OllamaResult
	errs    map[domain.Capability]error

	// during runs inside the call before it returns.
	during func(domain.Capability)
}

func (f *processorFake) record(ctx context.Context, c domain.Capability) error {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	during := f.during
	f.mu.Unlock()
	if during != nil {
		during(c)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.errs[c]
}

func (f *processorFake) ExtractText(ctx context.Context, _ domain.FileRef, language string) (*domain.OcrResult, error) {
	f.language = language
	if err := f.record(ctx, domain.CapabilityOCR); err != nil {
		return nil, err
	}
	return f.ocr, nil
}

func (f *processorFake) ProcessPDF(ctx context.Context, _ domain.FileRef) (*domain.PdfResult, error) {
	if err := f.record(ctx, domain.CapabilityPDF); err != nil {
		return nil, err
	}
	return f.pdf, nil
}

func (f *processorFake) ReadBarcodes(ctx context.Context, _ domain.FileRef) (*domain.BarcodeResult, error) {
	if err := f.record(ctx, domain.CapabilityBarcode); err != nil {
		return nil, err
	}
	return f.barcode, nil
}

func (f *processorFake) ExtractMRZ(ctx context.Context, _ domain.FileRef) (*domain.MrzResult, error) {
	if err := f.record(ctx, domain.CapabilityMRZ); err != nil {
		return nil, err
	}
	return f.mrz, nil
}

func (f *processorFake) Analyze(ctx context.Context, _ domain.FileRef, prompt string) (*domain.OllamaResult, error) {
	f.prompt = prompt
	if err := f.record(ctx, domain.CapabilityOllama); err != nil {
		return nil, err
	}
	return f.ollama, nil
}

func (f *processorFake) callOrder() []domain.Capability {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Capability(nil), f.calls...)
}

type observerFake struct {
	mu       sync.Mutex
	started  int
	steps    []domain.ProcessingStep
	finished []domain.Run
}

func (o *observerFake) RunStarted(context.Context, domain.Run) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started++
}

func (o *observerFake) StepChanged(_ context.Context, _ domain.Run, step domain.ProcessingStep) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.steps = append(o.steps, step)
}

func (o *observerFake) RunFinished(_ context.Context, run domain.Run) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = append(o.finished, run)
}

type runRepoFake struct {
	saved []domain.Run
	err   error
}

func (r *runRepoFake) SaveRun(_ context.Context, run domain.Run) error {
	r.saved = append(r.saved, run)
	return r.err
}

func (r *runRepoFake) GetRun(context.Context, string) (*domain.Run, error) {
	return nil, domain.ErrNotFound
}

func (r *runRepoFake) ListRuns(context.Context, int) ([]domain.Run, error) {
	return r.saved, nil
}
