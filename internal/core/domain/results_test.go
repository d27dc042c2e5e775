package domain

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

func TestResultsAggregateJSONRoundTrip(t *testing.T) {
	agg := NewResultsAggregate()
	agg.Set(&OcrResult{Text: "bonjour", Confidence: 91.5, Success: true})
	agg.Set(&BarcodeResult{
		Barcodes:     []Barcode{{Text: "123", Format: "EAN_13"}},
		BarcodeCount: 1,
		Success:      true,
	})
	agg.Set(&MrzResult{
		Success: true,
		Data:    &MrzData{DocumentType: MrzPassport, Surname: "DUPONT", GivenNames: "JEAN"},
	})

	raw, err := json.Marshal(agg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded ResultsAggregate
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(agg, decoded) {
		t.Fatalf("round trip mismatch:\nwant %#v\ngot  %#v", agg, decoded)
	}
	if decoded.Has(CapabilityPDF) {
		t.Fatalf("absent capability must not appear after decoding")
	}
}

func TestResultsAggregateRejectsUnknownCapability(t *testing.T) {
	var decoded ResultsAggregate
	err := json.Unmarshal([]byte(`{"fax":{"success":true}}`), &decoded)
	if !IsKind(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestResultsAggregateCapabilitiesFollowExecutionOrder(t *testing.T) {
	agg := NewResultsAggregate()
	agg.Set(&OllamaResult{Success: true})
	agg.Set(&OcrResult{Success: true})

	got := agg.Capabilities()
	want := []Capability{CapabilityOCR, CapabilityOllama}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestSessionAuthenticatedRequiresUserAndToken(t *testing.T) {
	cases := []struct {
		name    string
		session Session
		want    bool
	}{
		{name: "empty", session: Session{}, want: false},
		{name: "token only", session: Session{Token: "t"}, want: false},
		{name: "user only", session: Session{User: &UserProfile{Username: "a"}}, want: false},
		{name: "both", session: Session{Token: "t", User: &UserProfile{Username: "a"}}, want: true},
	}
	for _, tc := range cases {
		if got := tc.session.IsAuthenticated(); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestNewPendingStepsUsesDefaultsInOrder(t *testing.T) {
	steps := NewPendingSteps(DefaultProcessingOptions())
	got := make([]Capability, 0, len(steps))
	for _, s := range steps {
		if s.Status != StepPending {
			t.Fatalf("expected pending step, got %s", s.Status)
		}
		got = append(got, s.ID)
	}
	want := []Capability{CapabilityOCR, CapabilityBarcode, CapabilityOllama}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if steps[0].Name != "Extraction OCR" {
		t.Fatalf("unexpected step name %q", steps[0].Name)
	}
}

func TestKindOf(t *testing.T) {
	cases := map[string]FileKind{
		"image/png":       KindImage,
		"application/pdf": KindPDF,
		"text/plain":      KindDocument,
		"":                KindDocument,
	}
	for mime, want := range cases {
		if got := KindOf(mime); got != want {
			t.Fatalf("KindOf(%q) = %s, want %s", mime, got, want)
		}
	}
}

func TestFormatNanos(t *testing.T) {
	cases := map[int64]string{
		500:           "500ns",
		1_500:         "1.50μs",
		2_500_000:     "2.50ms",
		3_250_000_000: "3.25s",
	}
	for in, want := range cases {
		if got := FormatNanos(in); got != want {
			t.Fatalf("FormatNanos(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestTimestampAcceptsZonelessLocalDateTime(t *testing.T) {
	var doc Document
	if err := json.Unmarshal([]byte(`{"id":1,"uploadedAt":"2024-03-05T10:20:30","processedAt":null}`), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.UploadedAt.Year() != 2024 || doc.UploadedAt.Hour() != 10 {
		t.Fatalf("unexpected uploadedAt %v", doc.UploadedAt)
	}
	if !doc.ProcessedAt.IsZero() {
		t.Fatalf("expected zero processedAt")
	}
}

func TestErrorMessagePrefersBackendMessage(t *testing.T) {
	err := WrapError(ErrInvalidInput, "op", backendErr("champ manquant"))
	if got := ErrorMessage(err, "fallback"); got != "champ manquant" {
		t.Fatalf("expected backend message, got %q", got)
	}
	if got := ErrorMessage(nil, "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
}

type backendErr string

func (e backendErr) Error() string          { return "status 400" }
func (e backendErr) BackendMessage() string { return string(e) }

func TestProcessedDocumentBuildsCatalogEntry(t *testing.T) {
	at := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	ok := ProcessedDocument{FileName: "scan.png", FileType: "image/png", FileSize: 3, Success: true, ExtractedText: "hi"}
	doc := ok.Document(-1, at)
	if doc.ID != -1 || doc.Status != DocumentProcessed || doc.ExtractedText != "hi" || !doc.UploadedAt.Equal(at) {
		t.Fatalf("document = %+v", doc)
	}

	failed := ProcessedDocument{FileName: "scan.png", ErrorMessage: "Format non supporté"}
	doc = failed.Document(-2, at)
	if doc.Status != DocumentError || doc.ProcessingErrors != "Format non supporté" {
		t.Fatalf("failed document = %+v", doc)
	}
}

func TestServiceStatusOCRAvailability(t *testing.T) {
	cases := []struct {
		name string
		ocr  map[string]any
		want bool
	}{
		{name: "missing", ocr: nil, want: false},
		{name: "available", ocr: map[string]any{"available": true}, want: true},
		{name: "unavailable", ocr: map[string]any{"available": false}, want: false},
		{name: "error", ocr: map[string]any{"available": false, "error": "tessdata missing"}, want: false},
		{name: "config only", ocr: map[string]any{"language": "fra"}, want: true},
	}
	for _, tc := range cases {
		if got := (ServiceStatus{OCR: tc.ocr}).OCRAvailable(); got != tc.want {
			t.Fatalf("%s: OCRAvailable() = %v, want %v", tc.name, got, tc.want)
		}
	}
	if !(ServiceStatus{}).CheckedAt().IsZero() {
		t.Fatalf("zero timestamp should be unknown")
	}
}
