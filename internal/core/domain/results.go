package domain

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Result is the payload of one capability call.
type Result interface {
	Capability() Capability
	Succeeded() bool
	Failure() string
}

type OcrResult struct {
	Text         string  `json:"text"`
	Language     string  `json:"language,omitempty"`
	Confidence   float64 `json:"confidence"`
	ImageWidth   int     `json:"imageWidth,omitempty"`
	ImageHeight  int     `json:"imageHeight,omitempty"`
	FileSize     int64   `json:"fileSize,omitempty"`
	FileName     string  `json:"fileName,omitempty"`
	Success      bool    `json:"success"`
	ErrorMessage string  `json:"errorMessage,omitempty"`
}

func (r *OcrResult) Capability() Capability { return CapabilityOCR }
func (r *OcrResult) Succeeded() bool        { return r.Success }
func (r *OcrResult) Failure() string        { return r.ErrorMessage }

type PdfPage struct {
	PageNumber int     `json:"pageNumber"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Rotation   int     `json:"rotation"`
	TextLength int     `json:"textLength"`
	HasText    bool    `json:"hasText"`
}

type PdfResult struct {
	FileName         string         `json:"fileName,omitempty"`
	FileSize         int64          `json:"fileSize,omitempty"`
	PageCount        int            `json:"pageCount"`
	Text             string         `json:"text"`
	DetectedLanguage string         `json:"detectedLanguage,omitempty"`
	HasText          bool           `json:"hasText"`
	HasImages        bool           `json:"hasImages"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	Pages            []PdfPage      `json:"pages,omitempty"`
	Success          bool           `json:"success"`
	ErrorMessage     string         `json:"errorMessage,omitempty"`
}

func (r *PdfResult) Capability() Capability { return CapabilityPDF }
func (r *PdfResult) Succeeded() bool        { return r.Success }
func (r *PdfResult) Failure() string        { return r.ErrorMessage }

type Barcode struct {
	Text       string  `json:"text"`
	Format     string  `json:"format"`
	Confidence float64 `json:"confidence,omitempty"`
	TopLeftX   float64 `json:"topLeftX,omitempty"`
	TopLeftY   float64 `json:"topLeftY,omitempty"`
}

type BarcodeResult struct {
	FileName     string         `json:"fileName,omitempty"`
	FileSize     int64          `json:"fileSize,omitempty"`
	ImageWidth   int            `json:"imageWidth,omitempty"`
	ImageHeight  int            `json:"imageHeight,omitempty"`
	Barcodes     []Barcode      `json:"barcodes,omitempty"`
	BarcodeCount int            `json:"barcodeCount"`
	TypeCounts   map[string]int `json:"typeCounts,omitempty"`
	Success      bool           `json:"success"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
}

func (r *BarcodeResult) Capability() Capability { return CapabilityBarcode }
func (r *BarcodeResult) Succeeded() bool        { return r.Success }
func (r *BarcodeResult) Failure() string        { return r.ErrorMessage }

type MrzDocumentType string

const (
	MrzPassport      MrzDocumentType = "PASSPORT"
	MrzIDCard        MrzDocumentType = "ID_CARD"
	MrzResidenceCard MrzDocumentType = "RESIDENCE_CARD"
	MrzUnknown       MrzDocumentType = "UNKNOWN"
)

type MrzData struct {
	DocumentType   MrzDocumentType `json:"documentType"`
	IssuingCountry string          `json:"issuingCountry"`
	Surname        string          `json:"surname"`
	GivenNames     string          `json:"givenNames"`
	DocumentNumber string          `json:"documentNumber"`
	Nationality    string          `json:"nationality"`
	DateOfBirth    string          `json:"dateOfBirth"`
	Gender         string          `json:"gender"`
	ExpiryDate     string          `json:"expiryDate"`
	PersonalNumber string          `json:"personalNumber,omitempty"`
}

type MrzResult struct {
	FileName     string   `json:"fileName,omitempty"`
	MrzText      string   `json:"mrzText,omitempty"`
	Data         *MrzData `json:"data,omitempty"`
	Success      bool     `json:"success"`
	ErrorMessage string   `json:"errorMessage,omitempty"`
}

func (r *MrzResult) Capability() Capability { return CapabilityMRZ }
func (r *MrzResult) Succeeded() bool        { return r.Success }
func (r *MrzResult) Failure() string        { return r.ErrorMessage }

// OllamaMetadata durations are expressed in nanoseconds.
type OllamaMetadata struct {
	TotalDuration int64 `json:"totalDuration,omitempty"`
	EvalDuration  int64 `json:"evalDuration,omitempty"`
	EvalCount     int   `json:"evalCount,omitempty"`
}

type OllamaResult struct {
	Model        string          `json:"model,omitempty"`
	Prompt       string          `json:"prompt,omitempty"`
	Response     string          `json:"response"`
	Done         bool            `json:"done"`
	Metadata     *OllamaMetadata `json:"metadata,omitempty"`
	Success      bool            `json:"success"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
}

func (r *OllamaResult) Capability() Capability { return CapabilityOllama }
func (r *OllamaResult) Succeeded() bool        { return r.Success }
func (r *OllamaResult) Failure() string        { return r.ErrorMessage }

// FormatNanos renders a nanosecond duration with the largest unit under
// which it stays at least 1.
func FormatNanos(ns int64) string {
	switch {
	case ns < 1_000:
		return fmt.Sprintf("%dns", ns)
	case ns < 1_000_000:
		return fmt.Sprintf("%.2fμs", float64(ns)/1e3)
	case ns < 1_000_000_000:
		return fmt.Sprintf("%.2fms", float64(ns)/1e6)
	default:
		return fmt.Sprintf("%.2fs", float64(ns)/1e9)
	}
}

// ResultsAggregate holds at most one result per capability. Only
// capabilities that produced a payload have an entry.
type ResultsAggregate struct {
	entries map[Capability]Result
}

func NewResultsAggregate() ResultsAggregate {
	return ResultsAggregate{entries: make(map[Capability]Result)}
}

func (a *ResultsAggregate) Set(r Result) {
	if r == nil {
		return
	}
	if a.entries == nil {
		a.entries = make(map[Capability]Result)
	}
	a.entries[r.Capability()] = r
}

func (a ResultsAggregate) Get(c Capability) (Result, bool) {
	r, ok := a.entries[c]
	return r, ok
}

func (a ResultsAggregate) Has(c Capability) bool {
	_, ok := a.entries[c]
	return ok
}

func (a ResultsAggregate) Len() int {
	return len(a.entries)
}

// Capabilities present in the aggregate, in execution order.
func (a ResultsAggregate) Capabilities() []Capability {
	out := make([]Capability, 0, len(a.entries))
	for _, c := range CapabilityOrder {
		if _, ok := a.entries[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

func (a ResultsAggregate) Clone() ResultsAggregate {
	out := NewResultsAggregate()
	for c, r := range a.entries {
		out.entries[c] = r
	}
	return out
}

func (a ResultsAggregate) OCR() (*OcrResult, bool) {
	r, ok := a.entries[CapabilityOCR].(*OcrResult)
	return r, ok
}

func (a ResultsAggregate) PDF() (*PdfResult, bool) {
	r, ok := a.entries[CapabilityPDF].(*PdfResult)
	return r, ok
}

func (a ResultsAggregate) Barcode() (*BarcodeResult, bool) {
	r, ok := a.entries[CapabilityBarcode].(*BarcodeResult)
	return r, ok
}

func (a ResultsAggregate) MRZ() (*MrzResult, bool) {
	r, ok := a.entries[CapabilityMRZ].(*MrzResult)
	return r, ok
}

func (a ResultsAggregate) Ollama() (*OllamaResult, bool) {
	r, ok := a.entries[CapabilityOllama].(*OllamaResult)
	return r, ok
}

func (a ResultsAggregate) MarshalJSON() ([]byte, error) {
	out := make(map[string]Result, len(a.entries))
	for c, r := range a.entries {
		out[string(c)] = r
	}
	return json.Marshal(out)
}

func (a *ResultsAggregate) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode results: %w", err)
	}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := NewResultsAggregate()
	for _, k := range keys {
		c, ok := ParseCapability(k)
		if !ok {
			return fmt.Errorf("decode results: capability %q: %w", k, ErrInvalidInput)
		}
		r := newResult(c)
		if err := json.Unmarshal(raw[k], r); err != nil {
			return fmt.Errorf("decode %s result: %w", c, err)
		}
		out.entries[c] = r
	}
	*a = out
	return nil
}

func newResult(c Capability) Result {
	switch c {
	case CapabilityOCR:
		return &OcrResult{}
	case CapabilityPDF:
		return &PdfResult{}
	case CapabilityBarcode:
		return &BarcodeResult{}
	case CapabilityMRZ:
		return &MrzResult{}
	default:
		return &OllamaResult{}
	}
}
