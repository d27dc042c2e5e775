package domain

import (
	"strings"
	"time"
)

type DocumentStatus string

const (
	DocumentPending    DocumentStatus = "PENDING"
	DocumentProcessing DocumentStatus = "PROCESSING"
	DocumentCompleted  DocumentStatus = "COMPLETED"
	DocumentProcessed  DocumentStatus = "PROCESSED"
	DocumentError      DocumentStatus = "ERROR"
)

type Document struct {
	ID                 int64          `json:"id"`
	FileName           string         `json:"fileName"`
	OriginalFileName   string         `json:"originalFileName"`
	FileType           string         `json:"fileType"`
	FileSize           int64          `json:"fileSize"`
	Status             DocumentStatus `json:"status"`
	UploadedByID       int64          `json:"uploadedById"`
	UploadedByUsername string         `json:"uploadedByUsername"`
	UploadedAt         Timestamp      `json:"uploadedAt"`
	ProcessedAt        Timestamp      `json:"processedAt"`
	UpdatedAt          Timestamp      `json:"updatedAt"`
	ExtractedText      string         `json:"extractedText,omitempty"`
	Metadata           string         `json:"metadata,omitempty"`
	OCRConfidence      *float64       `json:"ocrConfidence,omitempty"`
	DetectedLanguage   string         `json:"detectedLanguage,omitempty"`
	ProcessingErrors   string         `json:"processingErrors,omitempty"`
}

// DocumentPage mirrors the paged list returned by the catalog endpoint.
type DocumentPage struct {
	Content       []Document `json:"content"`
	TotalElements int64      `json:"totalElements"`
	TotalPages    int        `json:"totalPages"`
	CurrentPage   int        `json:"currentPage"`
	Size          int        `json:"size"`
	First         bool       `json:"first"`
	Last          bool       `json:"last"`
}

type DocumentFilters struct {
	Status      DocumentStatus
	FileType    string
	DateFrom    time.Time
	DateTo      time.Time
	SearchQuery string
}

// Merge overlays the non-zero fields of patch.
func (f DocumentFilters) Merge(patch DocumentFilters) DocumentFilters {
	if patch.Status != "" {
		f.Status = patch.Status
	}
	if patch.FileType != "" {
		f.FileType = patch.FileType
	}
	if !patch.DateFrom.IsZero() {
		f.DateFrom = patch.DateFrom
	}
	if !patch.DateTo.IsZero() {
		f.DateTo = patch.DateTo
	}
	if patch.SearchQuery != "" {
		f.SearchQuery = strings.TrimSpace(patch.SearchQuery)
	}
	return f
}

func (f DocumentFilters) IsZero() bool {
	return f == DocumentFilters{}
}

const (
	SortAscending  = "asc"
	SortDescending = "desc"
)

type PageRequest struct {
	Page    int
	Size    int
	SortBy  string
	SortDir string
	Filters DocumentFilters
}

// UploadReceipt is the acknowledgement of the diagnostic upload endpoint.
type UploadReceipt struct {
	Success     bool   `json:"success"`
	FileName    string `json:"fileName"`
	FileSize    int64  `json:"fileSize"`
	ContentType string `json:"contentType"`
	Message     string `json:"message"`
}

// ProcessedDocument is the combined result of the upload-and-process
// endpoint. Capability results are present only for the capabilities the
// backend ran for the file type.
type ProcessedDocument struct {
	FileName         string   `json:"fileName"`
	FileSize         int64    `json:"fileSize"`
	FileType         string   `json:"fileType"`
	Success          bool     `json:"success"`
	ErrorMessage     string   `json:"errorMessage,omitempty"`
	ExtractedText    string   `json:"extractedText,omitempty"`
	DetectedLanguage string   `json:"detectedLanguage,omitempty"`
	OCRConfidence    *float64 `json:"ocrConfidence,omitempty"`
	PageCount        int      `json:"pageCount,omitempty"`

	OCR            *OcrResult     `json:"ocrResult,omitempty"`
	PDF            *PdfResult     `json:"pdfResult,omitempty"`
	Barcode        *BarcodeResult `json:"barcodeResult,omitempty"`
	Summary        *OllamaResult  `json:"summaryResult,omitempty"`
	Classification *OllamaResult  `json:"classificationResult,omitempty"`
	Structured     *OllamaResult  `json:"structuredExtractionResult,omitempty"`

	OllamaAnalysisSuccess bool   `json:"ollamaAnalysisSuccess"`
	OllamaErrorMessage    string `json:"ollamaErrorMessage,omitempty"`
}

// Results collects the capability results carried by p. The summary stands
// in for the Ollama capability.
func (p ProcessedDocument) Results() ResultsAggregate {
	agg := NewResultsAggregate()
	if p.OCR != nil {
		agg.Set(p.OCR)
	}
	if p.PDF != nil {
		agg.Set(p.PDF)
	}
	if p.Barcode != nil {
		agg.Set(p.Barcode)
	}
	if p.Summary != nil {
		agg.Set(p.Summary)
	}
	return agg
}

// Document builds the catalog entry for p under id, uploaded at.
func (p ProcessedDocument) Document(id int64, at time.Time) Document {
	doc := Document{
		ID:               id,
		FileName:         p.FileName,
		OriginalFileName: p.FileName,
		FileType:         p.FileType,
		FileSize:         p.FileSize,
		Status:           DocumentProcessed,
		UploadedAt:       NewTimestamp(at),
		ProcessedAt:      NewTimestamp(at),
		ExtractedText:    p.ExtractedText,
		OCRConfidence:    p.OCRConfidence,
		DetectedLanguage: p.DetectedLanguage,
	}
	if !p.Success {
		doc.Status = DocumentError
		doc.ProcessingErrors = p.ErrorMessage
	}
	return doc
}
