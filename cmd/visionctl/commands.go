package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/vision-client/internal/bootstrap"
	"github.com/kirillkom/vision-client/internal/core/domain"
	"github.com/kirillkom/vision-client/internal/core/usecase"
	"github.com/kirillkom/vision-client/internal/infrastructure/export"
	"github.com/kirillkom/vision-client/internal/infrastructure/storage/localfs"
)

var out io.Writer = os.Stdout

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func passwordOr(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv("VISION_PASSWORD")
}

func runLogin(ctx context.Context, app *bootstrap.App, args []string) error {
	fs := newFlagSet("login")
	username := fs.String("u", "", "username")
	password := fs.String("p", "", "password (defaults to VISION_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	req := domain.LoginRequest{Username: *username, Password: passwordOr(*password)}
	if req.Username == "" || req.Password == "" {
		return errUsage
	}
	if err := app.Session.Login(ctx, req); err != nil {
		return err
	}
	return printUser(app.Session.Snapshot())
}

func runRegister(ctx context.Context, app *bootstrap.App, args []string) error {
	fs := newFlagSet("register")
	var req domain.RegisterRequest
	fs.StringVar(&req.Username, "u", "", "username")
	fs.StringVar(&req.Email, "email", "", "email")
	fs.StringVar(&req.FirstName, "first", "", "first name")
	fs.StringVar(&req.LastName, "last", "", "last name")
	password := fs.String("p", "", "password (defaults to VISION_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	req.Password = passwordOr(*password)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return errUsage
	}
	if err := app.Session.Register(ctx, req); err != nil {
		return err
	}
	return printUser(app.Session.Snapshot())
}

func runLogout(ctx context.Context, app *bootstrap.App, _ []string) error {
	return app.Session.Logout(ctx)
}

func runWhoami(_ context.Context, app *bootstrap.App, _ []string) error {
	s := app.Session.Snapshot()
	if !s.IsAuthenticated() {
		fmt.Fprintln(out, "anonymous")
		return nil
	}
	if err := printUser(s); err != nil {
		return err
	}
	if exp, ok := app.Session.TokenExpiry(); ok {
		fmt.Fprintf(out, "token expires %s (in %s)\n", exp.Local().Format(time.RFC3339), time.Until(exp).Round(time.Second))
	}
	return nil
}

func runDocuments(ctx context.Context, app *bootstrap.App, args []string) error {
	fs := newFlagSet("documents")
	page := fs.Int("page", 0, "zero-based page")
	size := fs.Int("size", 0, "page size")
	sortBy := fs.String("sort", "", "sort field")
	sortDir := fs.String("dir", "", "asc or desc")
	status := fs.String("status", "", "status filter")
	fileType := fs.String("type", "", "file type filter")
	query := fs.String("q", "", "search text")
	fromRaw := fs.String("from", "", "uploaded on or after, YYYY-MM-DD")
	toRaw := fs.String("to", "", "uploaded on or before, YYYY-MM-DD")
	id := fs.Int64("id", 0, "show one document")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !app.Session.IsAuthenticated() {
		return domain.WrapError(domain.ErrUnauthorized, "documents", errors.New("login required"))
	}
	if *id != 0 {
		doc, err := app.Catalog.Fetch(ctx, *id)
		if err != nil {
			return err
		}
		return printJSON(doc)
	}

	from, err := parseDay(*fromRaw, false)
	if err != nil {
		return err
	}
	to, err := parseDay(*toRaw, true)
	if err != nil {
		return err
	}
	req := domain.PageRequest{
		Page:    *page,
		Size:    *size,
		SortBy:  *sortBy,
		SortDir: *sortDir,
		Filters: domain.DocumentFilters{
			Status:      domain.DocumentStatus(strings.ToUpper(*status)),
			FileType:    *fileType,
			SearchQuery: *query,
			DateFrom:    from,
			DateTo:      to,
		},
	}
	if err := app.Catalog.LoadPage(ctx, req); err != nil {
		return err
	}
	// The backend may ignore the date filters; the page is narrowed locally too.
	return printDocuments(app.Catalog.ByDateRange(from, to), app.Catalog.State())
}

// parseDay reads a date or date-time; a bare date used as an upper bound
// covers the whole day.
func parseDay(raw string, endOfDay bool) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	ts, err := domain.ParseTimestamp(raw)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay && len(raw) == len("2006-01-02") {
		return ts.Add(24*time.Hour - time.Nanosecond), nil
	}
	return ts.Time, nil
}

func runProcess(ctx context.Context, app *bootstrap.App, args []string) error {
	opts, err := app.ProcessingOptions()
	if err != nil {
		return err
	}

	fs := newFlagSet("process")
	fs.BoolVar(&opts.EnableOCR, "ocr", opts.EnableOCR, "text extraction")
	fs.BoolVar(&opts.EnablePDF, "pdf", opts.EnablePDF, "PDF processing")
	fs.BoolVar(&opts.EnableBarcode, "barcode", opts.EnableBarcode, "barcode reading")
	fs.BoolVar(&opts.EnableMRZ, "mrz", opts.EnableMRZ, "MRZ extraction")
	fs.BoolVar(&opts.EnableOllama, "ollama", opts.EnableOllama, "AI analysis")
	fs.StringVar(&opts.CustomPrompt, "prompt", opts.CustomPrompt, "AI analysis prompt")
	fs.StringVar(&opts.TargetLanguage, "lang", opts.TargetLanguage, "OCR language")
	exportFormat := fs.String("export", "", "json, txt or xlsx")
	documentID := fs.Int64("doc", 0, "catalog document the file belongs to")
	force := fs.Bool("force", false, "with -doc and -enqueue, reprocess a document that already has results")
	enqueue := fs.Bool("enqueue", false, "publish a job for the worker instead of running locally")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errUsage
	}
	var format export.Format
	if *exportFormat != "" {
		if format, err = export.ParseFormat(*exportFormat); err != nil {
			return err
		}
	}

	file, err := localfs.OpenFile(fs.Arg(0))
	if err != nil {
		return err
	}
	intake := app.NewIntake()
	accepted := intake.Add([]domain.FileRef{file})
	for _, msg := range intake.Errors() {
		fmt.Fprintln(out, msg)
	}
	if len(accepted) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "process", errors.New("file rejected"))
	}
	candidate := accepted[0]

	if candidate.Kind == domain.KindPDF {
		preflight, err := app.Inspector.InspectPDF(ctx, candidate.File)
		switch {
		case err != nil:
			app.Logger.Warn("pdf_preflight_failed", "file_name", candidate.File.Name, "error", err)
		case preflight.Encrypted:
			fmt.Fprintln(out, "PDF is encrypted; server-side processing may fail")
		default:
			fmt.Fprintf(out, "PDF: %d page(s), %d with text\n", preflight.PageCount, preflight.TextPages)
		}
	}

	if *enqueue {
		return enqueueJob(ctx, app, fs.Arg(0), candidate.File, opts, *documentID, *force)
	}

	var orchestrator *usecase.Orchestrator
	if *documentID != 0 {
		if orchestrator, err = app.NewDocumentRun(ctx, *documentID, stepPrinter{w: out}); err != nil {
			return err
		}
	} else {
		orchestrator = app.NewOrchestrator(stepPrinter{w: out})
	}
	steps, err := orchestrator.Prepare(opts)
	if err != nil {
		return err
	}
	if len(steps) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "process", errors.New("no capability enabled"))
	}
	if err := orchestrator.Start(ctx, domain.LocalFile{File: candidate.File}, opts); err != nil {
		return err
	}
	intake.SetProgress(candidate.File.Name, 100)

	results := orchestrator.Results()
	if *documentID != 0 {
		if cached, ok := app.Catalog.ProcessingResult(*documentID); ok {
			results = cached
		}
		if doc, ok := app.Catalog.Current(); ok {
			fmt.Fprintf(out, "document %d: %s\n", doc.ID, doc.Status)
		}
	}
	printOverview(usecase.BuildOverview(orchestrator.Steps(), results))
	if err := printResults(results); err != nil {
		return err
	}
	if format != "" {
		path, err := export.Save(ctx, app.Exports, format, results, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "exported %s\n", path)
	}
	return nil
}

func enqueueJob(ctx context.Context, app *bootstrap.App, path string, file domain.FileRef, opts domain.ProcessingOptions, documentID int64, force bool) error {
	if app.Queue == nil {
		return domain.WrapError(domain.ErrUnsupported, "enqueue", errors.New("VISION_NATS_URL is not set"))
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	job := domain.ProcessingJob{
		ID:         uuid.NewString(),
		Path:       abs,
		FileName:   file.Name,
		MimeType:   file.MimeType,
		Options:    opts,
		DocumentID: documentID,
		Force:      force,
	}
	if err := app.Queue.PublishJob(ctx, job); err != nil {
		return err
	}
	fmt.Fprintf(out, "enqueued job %s\n", job.ID)
	return nil
}

// runUpload sends each file to the upload-and-process endpoint, then
// reloads the first catalog page so the server-assigned ids show up.
func runUpload(ctx context.Context, app *bootstrap.App, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	if !app.Session.IsAuthenticated() {
		return domain.WrapError(domain.ErrUnauthorized, "upload", errors.New("login required"))
	}
	cfg := usecase.IntakeConfig{
		AcceptedTypes: app.Config.AcceptedTypes,
		MaxFileSizeMB: app.Config.MaxFileSizeMB,
	}

	var failed int
	for _, path := range args {
		file, err := localfs.OpenFile(path)
		if err != nil {
			return err
		}
		if msg := usecase.ValidateFile(cfg, file); msg != "" {
			fmt.Fprintln(out, msg)
			failed++
			continue
		}
		res, err := app.Catalog.Upload(ctx, file)
		switch {
		case err != nil:
			fmt.Fprintf(out, "✗ %s: %s\n", file.Name, domain.ErrorMessage(err, app.Preferences.Messages().Translate("catalog.upload_failed")))
			failed++
		case !res.Success:
			fmt.Fprintf(out, "✗ %s: %s\n", file.Name, res.ErrorMessage)
			failed++
		default:
			fmt.Fprintf(out, "✓ %s\n", app.Preferences.Messages().Translate("catalog.upload_done", res.FileName))
			if err := printResults(res.Results()); err != nil {
				return err
			}
		}
	}

	if err := app.Catalog.LoadPage(ctx, domain.PageRequest{}); err != nil {
		return err
	}
	if err := printDocuments(app.Catalog.Documents(), app.Catalog.State()); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d upload(s) failed", failed, len(args))
	}
	return nil
}

func runStatus(ctx context.Context, app *bootstrap.App, _ []string) error {
	status, err := app.API.ServiceStatus(ctx)
	if err != nil {
		return err
	}
	printStatus(status, app.BreakerStates())
	return nil
}

func runProfile(ctx context.Context, app *bootstrap.App, args []string) error {
	fs := newFlagSet("profile")
	var patch domain.ProfileUpdate
	fs.StringVar(&patch.Email, "email", "", "email")
	fs.StringVar(&patch.FirstName, "first", "", "first name")
	fs.StringVar(&patch.LastName, "last", "", "last name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !app.Session.IsAuthenticated() {
		return domain.WrapError(domain.ErrUnauthorized, "profile", errors.New("login required"))
	}
	if patch != (domain.ProfileUpdate{}) {
		if err := app.Session.UpdateProfile(ctx, patch); err != nil {
			return err
		}
	}
	return printUser(app.Session.Snapshot())
}

func runTestUpload(ctx context.Context, app *bootstrap.App, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	file, err := localfs.OpenFile(args[0])
	if err != nil {
		return err
	}
	if msg := usecase.ValidateFile(usecase.DefaultIntakeConfig(), file); msg != "" {
		return domain.WrapError(domain.ErrInvalidInput, "test upload", errors.New(msg))
	}
	receipt, err := app.API.TestUpload(ctx, file)
	if err != nil {
		return err
	}
	return printJSON(receipt)
}

func runPrefs(ctx context.Context, app *bootstrap.App, args []string) error {
	fs := newFlagSet("prefs")
	theme := fs.String("theme", "", "light, dark or toggle")
	lang := fs.String("lang", "", "language preference, e.g. fr or en-US")
	if err := fs.Parse(args); err != nil {
		return err
	}
	switch *theme {
	case "":
	case "toggle":
		if _, err := app.Preferences.ToggleTheme(ctx); err != nil {
			return err
		}
	case string(usecase.ThemeLight), string(usecase.ThemeDark):
		if err := app.Preferences.SetTheme(ctx, usecase.Theme(*theme)); err != nil {
			return err
		}
	default:
		return errUsage
	}
	if *lang != "" {
		if _, err := app.Preferences.SetLanguage(ctx, *lang); err != nil {
			return err
		}
	}
	fmt.Fprintf(out, "theme=%s language=%s\n", app.Preferences.Theme(), app.Preferences.Language())
	return nil
}

func runRuns(ctx context.Context, app *bootstrap.App, args []string) error {
	fs := newFlagSet("runs")
	limit := fs.Int("limit", 20, "number of runs")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if app.Runs == nil {
		return domain.WrapError(domain.ErrUnsupported, "runs", errors.New("VISION_POSTGRES_DSN is not set"))
	}
	if fs.NArg() == 1 {
		run, err := app.Runs.GetRun(ctx, fs.Arg(0))
		if err != nil {
			return err
		}
		printOverview(usecase.BuildOverview(run.Steps, run.Results))
		return printResults(run.Results)
	}
	runs, err := app.Runs.ListRuns(ctx, *limit)
	if err != nil {
		return err
	}
	return printRuns(runs)
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return strconv.FormatFloat(float64(n)/(1<<20), 'f', 1, 64) + " MB"
	case n >= 1<<10:
		return strconv.FormatFloat(float64(n)/(1<<10), 'f', 1, 64) + " KB"
	}
	return strconv.FormatInt(n, 10) + " B"
}
