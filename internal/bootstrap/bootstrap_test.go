package bootstrap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/kirillkom/vision-client/internal/config"
	"github.com/kirillkom/vision-client/internal/core/domain"
	"github.com/kirillkom/vision-client/internal/observability/logging"
)

func testConfig(t *testing.T, baseURL string) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		APIBaseURL:       baseURL,
		StatePath:        filepath.Join(dir, "state"),
		ExportPath:       filepath.Join(dir, "exports"),
		RetryMaxAttempts: 1,
		CatalogPageSize:  20,
		ResultCacheSize:  8,
		ResultCacheTTL:   time.Minute,
		AcceptedTypes:    []string{"image/*", "application/pdf"},
		MaxFiles:         1,
		MaxFileSizeMB:    25,
		StepDelay:        -1,
	}
}

type backendFake struct {
	mu        sync.Mutex
	refreshes int
	listings  int
	auth      []string
}

func (b *backendFake) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.refreshes++
		b.auth = append(b.auth, r.Header.Get("Authorization"))
		b.mu.Unlock()
		_ = json.NewEncoder(w).Encode(domain.AuthResponse{
			Token: "tok-new",
			User:  &domain.UserProfile{ID: 1, Username: "alice"},
		})
	})
	mux.HandleFunc("GET /documents", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.listings++
		b.mu.Unlock()
		_ = json.NewEncoder(w).Encode(domain.DocumentPage{
			Content:       []domain.Document{{ID: 5, FileName: "scan.png", Status: domain.DocumentProcessed}},
			TotalElements: 1,
			TotalPages:    1,
			Size:          20,
		})
	})
	return mux
}

func TestInitializeAnonymousSkipsBackend(t *testing.T) {
	backend := &backendFake{}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	app, err := New(context.Background(), testConfig(t, srv.URL), logging.Discard())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer app.Close()

	if err := app.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if backend.refreshes != 0 || backend.listings != 0 {
		t.Fatalf("anonymous start contacted backend: %+v", backend)
	}
	if app.Session.IsAuthenticated() {
		t.Fatalf("unexpected session")
	}
}

func TestInitializeRestoresRefreshesAndLoadsCatalog(t *testing.T) {
	backend := &backendFake{}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()
	cfg := testConfig(t, srv.URL)
	ctx := context.Background()

	app, err := New(ctx, cfg, logging.Discard())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer app.Close()

	user, _ := json.Marshal(domain.UserProfile{ID: 1, Username: "alice"})
	if err := app.Store.Set(ctx, domain.TokenStorageKey, "tok-old"); err != nil {
		t.Fatalf("seed token: %v", err)
	}
	if err := app.Store.Set(ctx, domain.UserStorageKey, string(user)); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if err := app.Store.Set(ctx, "theme", "dark"); err != nil {
		t.Fatalf("seed theme: %v", err)
	}

	if err := app.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if backend.refreshes != 1 || backend.auth[0] != "Bearer tok-old" {
		t.Fatalf("refresh calls = %d auth = %v", backend.refreshes, backend.auth)
	}
	if backend.listings != 1 || len(app.Catalog.Documents()) != 1 {
		t.Fatalf("catalog listings = %d docs = %d", backend.listings, len(app.Catalog.Documents()))
	}
	if token, _, _ := app.Store.Get(ctx, domain.TokenStorageKey); token != "tok-new" {
		t.Fatalf("token = %q", token)
	}
	if app.Preferences.Theme() != "dark" {
		t.Fatalf("theme = %s", app.Preferences.Theme())
	}
}

func TestNewOrchestratorRunsAgainstGateway(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /documents/ocr", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    domain.OcrResult{Text: "bonjour", Confidence: 0.9, Success: true},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	app, err := New(context.Background(), testConfig(t, srv.URL), logging.Discard())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer app.Close()

	o := app.NewOrchestrator()
	file := domain.FileFromBytes("doc.pdf", "application/pdf", []byte("%PDF-1.4"))
	opts := domain.ProcessingOptions{EnableOCR: true}
	if err := o.Start(context.Background(), domain.LocalFile{File: file}, opts); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	ocr, ok := o.Results().OCR()
	if !ok || ocr.Text != "bonjour" {
		t.Fatalf("ocr = %+v, %v", ocr, ok)
	}
	if len(app.Preferences.Notifications()) != 1 {
		t.Fatalf("expected completion notification")
	}
}
