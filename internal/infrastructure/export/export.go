// Package export renders a results aggregate as a downloadable file.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kirillkom/vision-client/internal/core/domain"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "txt"
	FormatXLSX Format = "xlsx"
)

func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case FormatJSON, FormatText, FormatXLSX:
		return f, nil
	case "text":
		return FormatText, nil
	default:
		return "", domain.WrapError(domain.ErrInvalidInput, "export format", fmt.Errorf("unknown format %q", raw))
	}
}

// FileName is results_<unix millis>.<ext>.
func FileName(format Format, now time.Time) string {
	return fmt.Sprintf("results_%d.%s", now.UnixMilli(), format)
}

func Write(w io.Writer, format Format, results domain.ResultsAggregate) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, results)
	case FormatText:
		return WriteText(w, results)
	case FormatXLSX:
		return WriteXLSX(w, results)
	default:
		return domain.WrapError(domain.ErrInvalidInput, "export", fmt.Errorf("unknown format %q", format))
	}
}

func WriteJSON(w io.Writer, results domain.ResultsAggregate) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	return nil
}

type Saver interface {
	Save(ctx context.Context, key string, data io.Reader) (string, error)
}

// Save renders results and hands the file to saver under its generated name.
func Save(ctx context.Context, saver Saver, format Format, results domain.ResultsAggregate, now time.Time) (string, error) {
	var buf bytes.Buffer
	if err := Write(&buf, format, results); err != nil {
		return "", err
	}
	path, err := saver.Save(ctx, FileName(format, now), &buf)
	if err != nil {
		return "", fmt.Errorf("save export: %w", err)
	}
	return path, nil
}
