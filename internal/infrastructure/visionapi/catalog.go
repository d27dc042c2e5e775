package visionapi

import (
	"context"
	"net/url"
	"strconv"

	"github.com/kirillkom/vision-client/internal/core/domain"
)

const queryTimeLayout = "2006-01-02T15:04:05"

func (c *Client) ListDocuments(ctx context.Context, req domain.PageRequest) (domain.DocumentPage, error) {
	var out domain.DocumentPage
	if err := c.call(ctx, endpointDocuments, pageQuery(req), nil, &out); err != nil {
		return domain.DocumentPage{}, err
	}
	return out, nil
}

func (c *Client) GetDocument(ctx context.Context, id int64) (domain.Document, error) {
	var out domain.Document
	if err := c.call(ctx, endpointDocument.at(id), nil, nil, &out); err != nil {
		return domain.Document{}, err
	}
	return out, nil
}

// ProcessDocument uploads file and runs every capability the backend
// supports for its type in one request.
func (c *Client) ProcessDocument(ctx context.Context, file domain.FileRef) (domain.ProcessedDocument, error) {
	var out domain.ProcessedDocument
	if err := c.call(ctx, endpointProcess, nil, multipartBody(file, nil), &out); err != nil {
		return domain.ProcessedDocument{}, err
	}
	return out, nil
}

func pageQuery(req domain.PageRequest) url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(req.Page))
	q.Set("size", strconv.Itoa(req.Size))
	if req.SortBy != "" {
		q.Set("sortBy", req.SortBy)
	}
	if req.SortDir != "" {
		q.Set("sortDir", req.SortDir)
	}

	f := req.Filters
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.FileType != "" {
		q.Set("fileType", f.FileType)
	}
	if f.SearchQuery != "" {
		q.Set("searchQuery", f.SearchQuery)
	}
	if !f.DateFrom.IsZero() {
		q.Set("dateFrom", f.DateFrom.UTC().Format(queryTimeLayout))
	}
	if !f.DateTo.IsZero() {
		q.Set("dateTo", f.DateTo.UTC().Format(queryTimeLayout))
	}
	return q
}
