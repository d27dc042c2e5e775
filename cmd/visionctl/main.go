package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/kirillkom/vision-client/internal/bootstrap"
	"github.com/kirillkom/vision-client/internal/config"
	"github.com/kirillkom/vision-client/internal/observability/logging"
)

type command struct {
	usage string
	run   func(ctx context.Context, app *bootstrap.App, args []string) error
}

var commands = map[string]command{
	"login":       {"login -u USER [-p PASSWORD]", runLogin},
	"register":    {"register -u USER -email EMAIL [-p PASSWORD] [-first NAME] [-last NAME]", runRegister},
	"logout":      {"logout", runLogout},
	"whoami":      {"whoami", runWhoami},
	"profile":     {"profile [-email EMAIL] [-first NAME] [-last NAME]", runProfile},
	"documents":   {"documents [-page N] [-size N] [-sort FIELD] [-dir asc|desc] [-status S] [-type T] [-q TEXT] [-from DATE] [-to DATE] [-id ID]", runDocuments},
	"process":     {"process [-ocr] [-pdf] [-barcode] [-mrz] [-ollama] [-prompt P] [-lang L] [-export json|txt|xlsx] [-doc ID] [-force] [-enqueue] FILE", runProcess},
	"upload":      {"upload FILE...", runUpload},
	"status":      {"status", runStatus},
	"test-upload": {"test-upload FILE", runTestUpload},
	"prefs":       {"prefs [-theme light|dark|toggle] [-lang LANG]", runPrefs},
	"runs":        {"runs [-limit N] [RUN_ID]", runRuns},
}

var errUsage = errors.New("usage")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return 2
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n", args[0])
		printUsage(stderr)
		return 2
	}

	cfg := config.Load()
	logger := logging.NewJSONLoggerTo(stderr, "visionctl", cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		return 1
	}
	defer app.Close()

	if err := app.Initialize(ctx); err != nil {
		logger.Error("initialize_failed", "error", err)
		return 1
	}

	out = stdout
	err = cmd.run(ctx, app, args[1:])
	printNotifications(stderr, app)
	switch {
	case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
		fmt.Fprintf(stderr, "usage: visionctl %s\n", cmd.usage)
		return 2
	case err != nil:
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(w, "usage: visionctl <command> [flags]")
	for _, name := range names {
		fmt.Fprintf(w, "  %s\n", commands[name].usage)
	}
}

func printNotifications(w io.Writer, app *bootstrap.App) {
	for _, n := range app.Preferences.Notifications() {
		fmt.Fprintf(w, "[%s] %s: %s\n", n.Type, n.Title, n.Message)
	}
}
