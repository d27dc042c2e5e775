package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kirillkom/vision-client/internal/core/domain"
)

func docAt(id int64, name, fileType string, status domain.DocumentStatus, uploaded time.Time) domain.Document {
	return domain.Document{
		ID:         id,
		FileName:   name,
		FileType:   fileType,
		Status:     status,
		UploadedAt: domain.NewTimestamp(uploaded),
	}
}

func loadedCatalog(t *testing.T) (*CatalogStore, *catalogAPIFake) {
	t.Helper()
	day := func(d int) time.Time { return time.Date(2024, 3, d, 10, 0, 0, 0, time.UTC) }
	api := &catalogAPIFake{page: domain.DocumentPage{
		Content: []domain.Document{
			docAt(1, "Passport_Scan.png", "image/png", domain.DocumentProcessed, day(1)),
			docAt(2, "invoice.pdf", "application/pdf", domain.DocumentPending, day(5)),
			docAt(3, "receipt.jpg", "image/jpeg", domain.DocumentError, day(10)),
		},
		TotalElements: 3,
		TotalPages:    1,
		CurrentPage:   0,
		Size:          20,
	}}
	c := NewCatalogStore(api, CatalogOptions{Logger: testLogger})
	if err := c.LoadPage(context.Background(), domain.PageRequest{}); err != nil {
		t.Fatalf("LoadPage() error = %v", err)
	}
	return c, api
}

func TestCatalogLoadPageAppliesDefaults(t *testing.T) {
	c, api := loadedCatalog(t)

	req := api.requests[0]
	if req.Page != 0 || req.Size != 20 || req.SortBy != "uploadedAt" || req.SortDir != "desc" {
		t.Fatalf("request = %+v", req)
	}
	state := c.State()
	if state.TotalElements != 3 || state.TotalPages != 1 || state.Loading || state.Error != "" {
		t.Fatalf("state = %+v", state)
	}
	if len(c.Documents()) != 3 {
		t.Fatalf("documents = %d", len(c.Documents()))
	}
}

func TestCatalogLoadFailureKeepsPreviousList(t *testing.T) {
	c, api := loadedCatalog(t)
	api.err = errors.New("")

	if err := c.LoadPage(context.Background(), domain.PageRequest{Page: 1}); err == nil {
		t.Fatalf("expected error")
	}
	if len(c.Documents()) != 3 {
		t.Fatalf("previous list dropped")
	}
	if got := c.State().Error; got != "Erreur de chargement des documents" {
		t.Fatalf("error = %q", got)
	}

	c.ClearError()
	if c.State().Error != "" {
		t.Fatalf("ClearError() left %q", c.State().Error)
	}
}

func TestCatalogReloadUsesHeldFiltersAndSort(t *testing.T) {
	c, api := loadedCatalog(t)
	c.SetFilters(domain.DocumentFilters{Status: domain.DocumentPending})
	c.SetFilters(domain.DocumentFilters{SearchQuery: " invoice "})
	c.SetSort("fileName", "asc")

	if err := c.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	req := api.requests[len(api.requests)-1]
	if req.Filters.Status != domain.DocumentPending || req.Filters.SearchQuery != "invoice" {
		t.Fatalf("filters = %+v", req.Filters)
	}
	if req.SortBy != "fileName" || req.SortDir != "asc" {
		t.Fatalf("sort = %s %s", req.SortBy, req.SortDir)
	}

	c.ClearFilters()
	if !c.State().Filters.IsZero() {
		t.Fatalf("ClearFilters() left %+v", c.State().Filters)
	}
}

func TestCatalogDerivedViews(t *testing.T) {
	c, _ := loadedCatalog(t)

	if got := c.Search("passport"); len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("Search(passport) = %+v", got)
	}
	if got := c.Search("IMAGE/"); len(got) != 2 {
		t.Fatalf("Search(IMAGE/) = %d, want 2", len(got))
	}
	if got := c.Search(""); len(got) != 3 {
		t.Fatalf("Search(\"\") = %d", len(got))
	}
	if got := c.ByStatus(domain.DocumentError); len(got) != 1 || got[0].ID != 3 {
		t.Fatalf("ByStatus = %+v", got)
	}
	if got := c.ByType("application/pdf"); len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("ByType = %+v", got)
	}
	from := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)
	if got := c.ByDateRange(from, to); len(got) != 2 {
		t.Fatalf("ByDateRange inclusive = %d, want 2", len(got))
	}
	if got := c.ByDateRange(time.Time{}, from.Add(-time.Second)); len(got) != 1 {
		t.Fatalf("ByDateRange open start = %d, want 1", len(got))
	}
}

func TestCatalogMutations(t *testing.T) {
	c, _ := loadedCatalog(t)

	c.AddDocument(domain.Document{ID: 9, FileName: "new.png"})
	if docs := c.Documents(); docs[0].ID != 9 || len(docs) != 4 {
		t.Fatalf("AddDocument did not prepend: %+v", docs)
	}

	c.SetCurrent(&domain.Document{ID: 2, FileName: "invoice.pdf"})
	if !c.UpdateStatus(2, domain.DocumentProcessing) {
		t.Fatalf("UpdateStatus() = false")
	}
	cur, ok := c.Current()
	if !ok || cur.Status != domain.DocumentProcessing {
		t.Fatalf("current = %+v, %v", cur, ok)
	}

	if !c.UpdateDocument(domain.Document{ID: 3, FileName: "renamed.jpg"}) {
		t.Fatalf("UpdateDocument() = false")
	}
	if c.UpdateDocument(domain.Document{ID: 42}) {
		t.Fatalf("UpdateDocument() of unknown id = true")
	}

	results := domain.NewResultsAggregate()
	results.Set(&domain.OcrResult{Text: "x", Success: true})
	c.SetProcessingResult(2, results)
	if got, ok := c.ProcessingResult(2); !ok || !got.Has(domain.CapabilityOCR) {
		t.Fatalf("cached result = %v, %v", got.Capabilities(), ok)
	}

	if !c.RemoveDocument(2) {
		t.Fatalf("RemoveDocument() = false")
	}
	if _, ok := c.Current(); ok {
		t.Fatalf("current not cleared on removal")
	}
	if _, ok := c.ProcessingResult(2); ok {
		t.Fatalf("cached result not evicted")
	}
	if c.State().TotalElements != 3 {
		t.Fatalf("total = %d, want 3", c.State().TotalElements)
	}
}

func statusOf(c *CatalogStore, id int64) domain.DocumentStatus {
	for _, d := range c.Documents() {
		if d.ID == id {
			return d.Status
		}
	}
	return ""
}

func TestCatalogResultObserverCachesFinishedRun(t *testing.T) {
	c, _ := loadedCatalog(t)
	obs := NewCatalogResultObserver(c, 2)
	ctx := context.Background()

	obs.RunStarted(ctx, domain.Run{})
	if got := statusOf(c, 2); got != domain.DocumentProcessing {
		t.Fatalf("status after start = %q", got)
	}

	results := domain.NewResultsAggregate()
	results.Set(&domain.MrzResult{Success: true})
	obs.RunFinished(ctx, domain.Run{Results: results, FinishedAt: time.Now()})

	if got, ok := c.ProcessingResult(2); !ok || !got.Has(domain.CapabilityMRZ) {
		t.Fatalf("cached = %v, %v", got.Capabilities(), ok)
	}
	if got := statusOf(c, 2); got != domain.DocumentProcessed {
		t.Fatalf("status after finish = %q", got)
	}
}

func TestCatalogResultObserverMarksFailedRun(t *testing.T) {
	c, _ := loadedCatalog(t)
	obs := NewCatalogResultObserver(c, 1)

	obs.RunFinished(context.Background(), domain.Run{
		Steps:      []domain.ProcessingStep{{ID: domain.CapabilityOCR, Status: domain.StepError}},
		Results:    domain.NewResultsAggregate(),
		FinishedAt: time.Now(),
	})
	if got := statusOf(c, 1); got != domain.DocumentError {
		t.Fatalf("status = %q, want ERROR", got)
	}
	if _, ok := c.ProcessingResult(1); ok {
		t.Fatalf("empty run cached a result")
	}
}

func TestCatalogFetchRefreshesAndSetsCurrent(t *testing.T) {
	c, api := loadedCatalog(t)
	updated := docAt(2, "invoice.pdf", "application/pdf", domain.DocumentProcessed, time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC))
	api.docs = map[int64]domain.Document{2: updated}

	doc, err := c.Fetch(context.Background(), 2)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if doc.Status != domain.DocumentProcessed || statusOf(c, 2) != domain.DocumentProcessed {
		t.Fatalf("fetched = %+v, page status = %q", doc, statusOf(c, 2))
	}
	if cur, ok := c.Current(); !ok || cur.ID != 2 {
		t.Fatalf("current = %+v, %v", cur, ok)
	}
}

func TestCatalogFetchDropsMissingDocument(t *testing.T) {
	c, _ := loadedCatalog(t)
	c.SetProcessingResult(3, domain.NewResultsAggregate())

	if _, err := c.Fetch(context.Background(), 3); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Fetch() error = %v", err)
	}
	if statusOf(c, 3) != "" {
		t.Fatalf("missing document still on page")
	}
	if _, ok := c.ProcessingResult(3); ok {
		t.Fatalf("missing document result still cached")
	}
	if st := c.State(); st.TotalElements != 2 || st.Error == "" {
		t.Fatalf("state = %+v", st)
	}
}

func TestCatalogUploadReplacesPlaceholder(t *testing.T) {
	c, api := loadedCatalog(t)
	conf := 0.91
	api.processed = domain.ProcessedDocument{
		FileName:      "scan.png",
		FileType:      "image/png",
		Success:       true,
		ExtractedText: "hello",
		OCRConfidence: &conf,
		OCR:           &domain.OcrResult{Success: true, Text: "hello"},
	}

	res, err := c.Upload(context.Background(), domain.FileFromBytes("scan.png", "image/png", []byte("png")))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if !res.Success || res.FileSize != 3 {
		t.Fatalf("result = %+v", res)
	}

	docs := c.Documents()
	if len(docs) != 4 || docs[0].ID >= 0 {
		t.Fatalf("documents = %+v", docs)
	}
	if docs[0].Status != domain.DocumentProcessed || docs[0].ExtractedText != "hello" {
		t.Fatalf("uploaded entry = %+v", docs[0])
	}
	if got, ok := c.ProcessingResult(docs[0].ID); !ok || !got.Has(domain.CapabilityOCR) {
		t.Fatalf("cached = %v, %v", got.Capabilities(), ok)
	}
	if c.State().TotalElements != 4 {
		t.Fatalf("total = %d", c.State().TotalElements)
	}
}

func TestCatalogUploadFailureMarksPlaceholder(t *testing.T) {
	c, api := loadedCatalog(t)
	api.processErr = domain.WrapError(domain.ErrServer, "process", errors.New("boom"))

	if _, err := c.Upload(context.Background(), domain.FileFromBytes("a.png", "image/png", []byte("x"))); !errors.Is(err, domain.ErrServer) {
		t.Fatalf("Upload() error = %v", err)
	}
	docs := c.Documents()
	if docs[0].Status != domain.DocumentError || docs[0].FileName != "a.png" {
		t.Fatalf("placeholder = %+v", docs[0])
	}
	if c.State().Error == "" {
		t.Fatalf("upload failure not recorded")
	}
	if len(api.uploads) != 1 {
		t.Fatalf("uploads = %v", api.uploads)
	}
}
