package bootstrap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/kirillkom/vision-client/internal/core/domain"
	"github.com/kirillkom/vision-client/internal/observability/logging"
)

func writeBody(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestApp(t *testing.T, handler http.Handler) *App {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	app, err := New(context.Background(), testConfig(t, srv.URL), logging.Discard())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(app.Close)
	return app
}

func TestCatalogKeepsBackendPagePosition(t *testing.T) {
	var (
		mu    sync.Mutex
		pages []string
	)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /documents", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		pages = append(pages, r.URL.Query().Get("page"))
		mu.Unlock()
		writeBody(w, http.StatusOK, map[string]any{
			"content":       []map[string]any{{"id": 41, "fileName": "last.pdf", "status": "PROCESSED"}},
			"totalElements": 41,
			"totalPages":    3,
			"currentPage":   2,
			"size":          20,
			"first":         false,
			"last":          true,
		})
	})
	app := newTestApp(t, mux)
	ctx := context.Background()

	if err := app.Catalog.LoadPage(ctx, domain.PageRequest{Page: 2}); err != nil {
		t.Fatalf("LoadPage() error = %v", err)
	}
	st := app.Catalog.State()
	if st.Page != 2 || st.First || !st.Last || st.TotalPages != 3 {
		t.Fatalf("catalog state = %+v", st)
	}

	if err := app.Catalog.Reload(ctx); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if len(pages) != 2 || pages[0] != "2" || pages[1] != "2" {
		t.Fatalf("requested pages = %v", pages)
	}
}

func TestOrchestratorShowsBackendMRZFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /documents/mrz", func(w http.ResponseWriter, _ *http.Request) {
		writeBody(w, http.StatusBadRequest, map[string]any{"success": false, "errorMessage": "Aucune zone MRZ détectée"})
	})
	app := newTestApp(t, mux)

	o := app.NewOrchestrator()
	file := domain.FileFromBytes("id.png", "image/png", []byte("png"))
	if err := o.Start(context.Background(), domain.LocalFile{File: file}, domain.ProcessingOptions{EnableMRZ: true}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	steps := o.Steps()
	if len(steps) != 1 || steps[0].Status != domain.StepError || steps[0].Error != "Aucune zone MRZ détectée" {
		t.Fatalf("steps = %+v", steps)
	}
}

func TestOrchestratorKeepsMRZDataFromBarePayload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /documents/mrz", func(w http.ResponseWriter, _ *http.Request) {
		writeBody(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"surname": "DUPONT"}})
	})
	app := newTestApp(t, mux)

	o := app.NewOrchestrator()
	file := domain.FileFromBytes("id.png", "image/png", []byte("png"))
	if err := o.Start(context.Background(), domain.LocalFile{File: file}, domain.ProcessingOptions{EnableMRZ: true}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	mrz, ok := o.Results().MRZ()
	if !ok || !mrz.Success || mrz.Data == nil || mrz.Data.Surname != "DUPONT" {
		t.Fatalf("mrz = %+v, %v", mrz, ok)
	}
}

func TestDocumentRunUpdatesCatalogEntry(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /documents", func(w http.ResponseWriter, _ *http.Request) {
		writeBody(w, http.StatusOK, map[string]any{
			"content":       []map[string]any{{"id": 7, "fileName": "id.png", "status": "PENDING"}},
			"totalElements": 1,
			"totalPages":    1,
			"currentPage":   0,
			"size":          20,
		})
	})
	mux.HandleFunc("GET /documents/7", func(w http.ResponseWriter, _ *http.Request) {
		writeBody(w, http.StatusOK, map[string]any{"id": 7, "fileName": "id.png", "status": "PENDING"})
	})
	mux.HandleFunc("POST /documents/ocr", func(w http.ResponseWriter, _ *http.Request) {
		writeBody(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"text": "bonjour", "success": true}})
	})
	app := newTestApp(t, mux)
	ctx := context.Background()

	if err := app.Catalog.LoadPage(ctx, domain.PageRequest{}); err != nil {
		t.Fatalf("LoadPage() error = %v", err)
	}
	o, err := app.NewDocumentRun(ctx, 7)
	if err != nil {
		t.Fatalf("NewDocumentRun() error = %v", err)
	}
	file := domain.FileFromBytes("id.png", "image/png", []byte("png"))
	if err := o.Start(ctx, domain.LocalFile{File: file}, domain.ProcessingOptions{EnableOCR: true}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if cur, ok := app.Catalog.Current(); !ok || cur.ID != 7 {
		t.Fatalf("current = %+v, %v", cur, ok)
	}
	docs := app.Catalog.Documents()
	if len(docs) != 1 || docs[0].Status != domain.DocumentProcessed {
		t.Fatalf("documents = %+v", docs)
	}
	if got, ok := app.Catalog.ProcessingResult(7); !ok || !got.Has(domain.CapabilityOCR) {
		t.Fatalf("cached result = %v, %v", got.Capabilities(), ok)
	}
}

func TestDocumentRunRejectsUnknownDocument(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /documents/8", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	app := newTestApp(t, mux)

	if _, err := app.NewDocumentRun(context.Background(), 8); !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("NewDocumentRun() error = %v", err)
	}
}

func TestBreakerStatesCoverGatewayOperations(t *testing.T) {
	app := newTestApp(t, http.NewServeMux())

	states := app.BreakerStates()
	for _, op := range []string{"auth.me", "documents.process", "documents.mrz", "services.status"} {
		if states[op] != "closed" {
			t.Fatalf("breaker %s = %q", op, states[op])
		}
	}
}
