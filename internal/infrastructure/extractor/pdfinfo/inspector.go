// Package pdfinfo inspects PDF files locally before they are sent for
// processing.
package pdfinfo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/vision-client/internal/core/domain"
)

// Inspector reports the page count of a PDF and how many pages carry an
// extractable text layer. MaxBytes bounds how much is read; zero means no
// bound.
type Inspector struct {
	MaxBytes int64
}

func NewInspector(maxBytes int64) *Inspector {
	return &Inspector{MaxBytes: maxBytes}
}

func (i *Inspector) InspectPDF(ctx context.Context, file domain.FileRef) (domain.PdfPreflight, error) {
	if !file.IsPDF() {
		return domain.PdfPreflight{}, domain.WrapError(domain.ErrUnsupported, "inspect pdf", fmt.Errorf("%s is %s", file.Name, file.MimeType))
	}

	rc, err := file.Open()
	if err != nil {
		return domain.PdfPreflight{}, fmt.Errorf("open %s: %w", file.Name, err)
	}
	defer rc.Close()

	var src io.Reader = rc
	if i.MaxBytes > 0 {
		src = io.LimitReader(rc, i.MaxBytes+1)
	}
	raw, err := io.ReadAll(src)
	if err != nil {
		return domain.PdfPreflight{}, fmt.Errorf("read %s: %w", file.Name, err)
	}
	if i.MaxBytes > 0 && int64(len(raw)) > i.MaxBytes {
		return domain.PdfPreflight{}, domain.WrapError(domain.ErrInvalidInput, "inspect pdf", fmt.Errorf("%s exceeds %d bytes", file.Name, i.MaxBytes))
	}

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		if errors.Is(err, pdf.ErrInvalidPassword) {
			return domain.PdfPreflight{Encrypted: true}, nil
		}
		return domain.PdfPreflight{}, domain.WrapError(domain.ErrInvalidInput, "inspect pdf", err)
	}

	out := domain.PdfPreflight{PageCount: reader.NumPage()}
	for n := 1; n <= out.PageCount; n++ {
		if err := ctx.Err(); err != nil {
			return domain.PdfPreflight{}, err
		}
		if pageHasText(reader, n) {
			out.TextPages++
		}
	}
	return out, nil
}

// pageHasText treats a page the parser cannot decode as image-only.
func pageHasText(r *pdf.Reader, n int) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	page := r.Page(n)
	if page.V.IsNull() {
		return false
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return false
	}
	return strings.TrimSpace(text) != ""
}
