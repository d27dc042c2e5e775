package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/kirillkom/vision-client/internal/core/domain"
	"github.com/kirillkom/vision-client/internal/core/usecase"
	"github.com/kirillkom/vision-client/internal/infrastructure/export"
)

// stepPrinter streams step transitions while a run is in progress.
type stepPrinter struct {
	usecase.NoopObserver
	w io.Writer
}

func (p stepPrinter) StepChanged(_ context.Context, _ domain.Run, step domain.ProcessingStep) {
	switch step.Status {
	case domain.StepProcessing:
		fmt.Fprintf(p.w, "… %s\n", step.Name)
	case domain.StepError:
		fmt.Fprintf(p.w, "✗ %s: %s\n", step.Name, step.Error)
	case domain.StepCompleted:
		fmt.Fprintf(p.w, "✓ %s\n", step.Name)
	}
}

func printUser(s domain.Session) error {
	if s.User == nil {
		return nil
	}
	u := s.User
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "user\t%s\n", u.DisplayName())
	fmt.Fprintf(tw, "username\t%s\n", u.Username)
	fmt.Fprintf(tw, "email\t%s\n", u.Email)
	fmt.Fprintf(tw, "role\t%s\n", u.Role)
	return tw.Flush()
}

func printDocuments(docs []domain.Document, state usecase.CatalogState) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tSIZE\tSTATUS\tUPLOADED")
	for _, d := range docs {
		uploaded := ""
		if !d.UploadedAt.IsZero() {
			uploaded = d.UploadedAt.Local().Format("2006-01-02 15:04")
		}
		name := d.OriginalFileName
		if name == "" {
			name = d.FileName
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", d.ID, name, d.FileType, formatSize(d.FileSize), d.Status, uploaded)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "page %d/%d, %d document(s)\n", state.Page+1, max(state.TotalPages, 1), state.TotalElements)
	return nil
}

func printStatus(status domain.ServiceStatus, breakers map[string]string) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SERVICE\tAVAILABLE\tDETAIL")
	ocrDetail := status.OCRError()
	if ocrDetail == "" {
		ocrDetail, _ = status.OCR["version"].(string)
	}
	fmt.Fprintf(tw, "ocr\t%t\t%s\n", status.OCRAvailable(), ocrDetail)
	ollamaDetail := status.Ollama.Error
	if ollamaDetail == "" {
		ollamaDetail = strings.TrimSpace(status.Ollama.Model + " " + status.Ollama.URL)
	}
	fmt.Fprintf(tw, "ollama\t%t\t%s\n", status.Ollama.Available, ollamaDetail)
	_ = tw.Flush()

	if at := status.CheckedAt(); !at.IsZero() {
		fmt.Fprintf(out, "backend %s, checked %s\n", status.Version, at.Local().Format("2006-01-02 15:04:05"))
	}

	ops := make([]string, 0, len(breakers))
	for op, state := range breakers {
		if state != "closed" {
			ops = append(ops, op)
		}
	}
	if len(ops) == 0 {
		fmt.Fprintln(out, "all circuit breakers closed")
		return
	}
	sort.Strings(ops)
	for _, op := range ops {
		fmt.Fprintf(out, "breaker %s: %s\n", op, breakers[op])
	}
}

func printOverview(ov usecase.Overview) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CAPABILITY\tSTATUS\tDETAIL")
	for _, o := range ov.Outcomes {
		detail := o.Error
		if o.Status == domain.StepCompleted && !o.HasResult {
			detail = "skipped"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", o.Name, o.Status, detail)
	}
	_ = tw.Flush()
	fmt.Fprintf(out, "%d succeeded, %d failed, %d skipped\n", ov.Succeeded, ov.Failed, ov.Skipped)
}

func printResults(results domain.ResultsAggregate) error {
	if results.Len() == 0 {
		return nil
	}
	fmt.Fprintln(out)
	return export.Write(out, export.FormatText, results)
}

func printRuns(runs []domain.Run) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILE\tSTATUS\tOK\tERR\tSTARTED\tDURATION")
	for _, r := range runs {
		succeeded, failed := r.Counts()
		duration := ""
		if r.Finished() {
			duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			r.ID, r.FileName, r.Status(), succeeded, failed,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"), duration)
	}
	return tw.Flush()
}

func printJSON(v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
