package usecase

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/kirillkom/vision-client/internal/core/domain"
	"github.com/kirillkom/vision-client/internal/core/ports"
)

const (
	DefaultPageSize = 20
	DefaultSortBy   = "uploadedAt"
	DefaultSortDir  = domain.SortDescending
)

type CatalogOptions struct {
	PageSize  int
	CacheSize int
	CacheTTL  time.Duration
	Messages  ports.Translator
	Logger    *slog.Logger
}

// CatalogStore caches one page of the remote document list, the active
// filters and sort, and processing results per document.
type CatalogStore struct {
	api      ports.CatalogAPI
	results  *expirable.LRU[int64, domain.ResultsAggregate]
	messages ports.Translator
	logger   *slog.Logger
	pageSize int

	mu            sync.Mutex
	documents     []domain.Document
	current       *domain.Document
	page          int
	size          int
	totalElements int64
	totalPages    int
	first         bool
	last          bool
	filters       domain.DocumentFilters
	sortBy        string
	sortDir       string
	loading       bool
	err           string
	localID       int64
}

func NewCatalogStore(api ports.CatalogAPI, opts CatalogOptions) *CatalogStore {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	cacheSize := opts.CacheSize
	if cacheSize <= 0 {
		cacheSize = 128
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogStore{
		api:      api,
		results:  expirable.NewLRU[int64, domain.ResultsAggregate](cacheSize, nil, ttl),
		messages: messagesOr(opts.Messages),
		logger:   logger,
		pageSize: pageSize,
		size:     pageSize,
		sortBy:   DefaultSortBy,
		sortDir:  DefaultSortDir,
	}
}

func (c *CatalogStore) withDefaults(req domain.PageRequest) domain.PageRequest {
	if req.Page < 0 {
		req.Page = 0
	}
	if req.Size <= 0 {
		req.Size = c.pageSize
	}
	if req.SortBy == "" {
		req.SortBy = DefaultSortBy
	}
	if req.SortDir != domain.SortAscending && req.SortDir != domain.SortDescending {
		req.SortDir = DefaultSortDir
	}
	return req
}

// LoadPage fetches one page. On success the list, page and totals are
// replaced together; on failure the previous list is kept and the error
// message recorded.
func (c *CatalogStore) LoadPage(ctx context.Context, req domain.PageRequest) error {
	req = c.withDefaults(req)

	c.mu.Lock()
	c.loading = true
	c.err = ""
	c.mu.Unlock()

	page, err := c.api.ListDocuments(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	if err != nil {
		c.err = domain.ErrorMessage(err, c.messages.Translate("catalog.load_failed"))
		c.logger.Warn("catalog_load_failed", "page", req.Page, "error", err)
		return err
	}

	c.documents = append([]domain.Document(nil), page.Content...)
	c.page = page.CurrentPage
	c.first = page.First
	c.last = page.Last
	c.size = page.Size
	if c.size <= 0 {
		c.size = req.Size
	}
	c.totalElements = page.TotalElements
	c.totalPages = page.TotalPages
	c.sortBy = req.SortBy
	c.sortDir = req.SortDir
	c.filters = req.Filters
	return nil
}

// Fetch loads one document by id, refreshes its entry on the loaded page and
// makes it current. A document the backend no longer has is dropped from the
// page together with its cached result.
func (c *CatalogStore) Fetch(ctx context.Context, id int64) (domain.Document, error) {
	doc, err := c.api.GetDocument(ctx, id)
	if err != nil {
		if domain.IsKind(err, domain.ErrNotFound) {
			c.RemoveDocument(id)
		}
		c.setError(domain.ErrorMessage(err, c.messages.Translate("catalog.fetch_failed")))
		c.logger.Warn("catalog_fetch_failed", "document_id", id, "error", err)
		return domain.Document{}, err
	}
	c.UpdateDocument(doc)
	c.SetCurrent(&doc)
	return doc, nil
}

// Upload sends file to the upload-and-process endpoint. While the request
// runs the page holds a PROCESSING placeholder under a negative local id;
// the result replaces it and its capability results are cached under that
// id. The server-assigned id arrives with the next reload.
func (c *CatalogStore) Upload(ctx context.Context, file domain.FileRef) (domain.ProcessedDocument, error) {
	c.mu.Lock()
	c.localID--
	id := c.localID
	c.mu.Unlock()

	now := time.Now()
	c.AddDocument(domain.Document{
		ID:               id,
		FileName:         file.Name,
		OriginalFileName: file.Name,
		FileType:         file.MimeType,
		FileSize:         file.Size,
		Status:           domain.DocumentProcessing,
		UploadedAt:       domain.NewTimestamp(now),
	})

	res, err := c.api.ProcessDocument(ctx, file)
	if err != nil {
		c.UpdateStatus(id, domain.DocumentError)
		c.setError(domain.ErrorMessage(err, c.messages.Translate("catalog.upload_failed")))
		c.logger.Warn("catalog_upload_failed", "file", file.Name, "error", err)
		return domain.ProcessedDocument{}, err
	}

	if res.FileName == "" {
		res.FileName = file.Name
	}
	if res.FileType == "" {
		res.FileType = file.MimeType
	}
	if res.FileSize == 0 {
		res.FileSize = file.Size
	}
	c.UpdateDocument(res.Document(id, now))
	if results := res.Results(); results.Len() > 0 {
		c.SetProcessingResult(id, results)
	}
	c.logger.Info("catalog_upload_done", "file", res.FileName, "success", res.Success)
	return res, nil
}

func (c *CatalogStore) setError(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = msg
}

// Reload refetches the current page with the held filters and sort.
func (c *CatalogStore) Reload(ctx context.Context) error {
	c.mu.Lock()
	req := domain.PageRequest{
		Page:    c.page,
		Size:    c.size,
		SortBy:  c.sortBy,
		SortDir: c.sortDir,
		Filters: c.filters,
	}
	c.mu.Unlock()
	return c.LoadPage(ctx, req)
}

func (c *CatalogStore) Documents() []domain.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Document(nil), c.documents...)
}

type CatalogState struct {
	Page          int
	Size          int
	TotalElements int64
	TotalPages    int
	First         bool
	Last          bool
	SortBy        string
	SortDir       string
	Filters       domain.DocumentFilters
	Loading       bool
	Error         string
}

func (c *CatalogStore) State() CatalogState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CatalogState{
		Page:          c.page,
		Size:          c.size,
		TotalElements: c.totalElements,
		TotalPages:    c.totalPages,
		First:         c.first,
		Last:          c.last,
		SortBy:        c.sortBy,
		SortDir:       c.sortDir,
		Filters:       c.filters,
		Loading:       c.loading,
		Error:         c.err,
	}
}

func (c *CatalogStore) SetFilters(patch domain.DocumentFilters) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters = c.filters.Merge(patch)
}

func (c *CatalogStore) ClearFilters() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters = domain.DocumentFilters{}
}

func (c *CatalogStore) SetSort(sortBy, sortDir string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sortBy != "" {
		c.sortBy = sortBy
	}
	if sortDir == domain.SortAscending || sortDir == domain.SortDescending {
		c.sortDir = sortDir
	}
}

func (c *CatalogStore) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = ""
}

// AddDocument prepends doc to the loaded page.
func (c *CatalogStore) AddDocument(doc domain.Document) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.documents = append([]domain.Document{doc}, c.documents...)
	c.totalElements++
}

func (c *CatalogStore) UpdateDocument(doc domain.Document) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil && c.current.ID == doc.ID {
		d := doc
		c.current = &d
	}
	for i := range c.documents {
		if c.documents[i].ID == doc.ID {
			c.documents[i] = doc
			return true
		}
	}
	return false
}

func (c *CatalogStore) UpdateStatus(id int64, status domain.DocumentStatus) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil && c.current.ID == id {
		c.current.Status = status
	}
	for i := range c.documents {
		if c.documents[i].ID == id {
			c.documents[i].Status = status
			return true
		}
	}
	return false
}

func (c *CatalogStore) RemoveDocument(id int64) bool {
	c.results.Remove(id)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil && c.current.ID == id {
		c.current = nil
	}
	for i := range c.documents {
		if c.documents[i].ID == id {
			c.documents = append(c.documents[:i:i], c.documents[i+1:]...)
			if c.totalElements > 0 {
				c.totalElements--
			}
			return true
		}
	}
	return false
}

func (c *CatalogStore) SetCurrent(doc *domain.Document) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if doc == nil {
		c.current = nil
		return
	}
	d := *doc
	c.current = &d
}

func (c *CatalogStore) Current() (domain.Document, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return domain.Document{}, false
	}
	return *c.current, true
}

func (c *CatalogStore) SetProcessingResult(documentID int64, results domain.ResultsAggregate) {
	c.results.Add(documentID, results.Clone())
}

func (c *CatalogStore) ProcessingResult(documentID int64) (domain.ResultsAggregate, bool) {
	r, ok := c.results.Get(documentID)
	if !ok {
		return domain.ResultsAggregate{}, false
	}
	return r.Clone(), true
}

// Search matches file name or file type, case-insensitively. An empty
// query returns the whole loaded page.
func (c *CatalogStore) Search(query string) []domain.Document {
	q := strings.ToLower(strings.TrimSpace(query))
	return c.filter(func(d domain.Document) bool {
		if q == "" {
			return true
		}
		return strings.Contains(strings.ToLower(d.FileName), q) ||
			strings.Contains(strings.ToLower(d.OriginalFileName), q) ||
			strings.Contains(strings.ToLower(d.FileType), q)
	})
}

func (c *CatalogStore) ByStatus(status domain.DocumentStatus) []domain.Document {
	return c.filter(func(d domain.Document) bool { return d.Status == status })
}

func (c *CatalogStore) ByType(fileType string) []domain.Document {
	return c.filter(func(d domain.Document) bool { return d.FileType == fileType })
}

// ByDateRange is inclusive on both ends; a zero bound is open.
func (c *CatalogStore) ByDateRange(from, to time.Time) []domain.Document {
	return c.filter(func(d domain.Document) bool {
		at := d.UploadedAt.Time
		if !from.IsZero() && at.Before(from) {
			return false
		}
		if !to.IsZero() && at.After(to) {
			return false
		}
		return true
	})
}

func (c *CatalogStore) filter(keep func(domain.Document) bool) []domain.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Document, 0, len(c.documents))
	for _, d := range c.documents {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}
