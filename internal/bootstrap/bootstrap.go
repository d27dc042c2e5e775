package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/kirillkom/vision-client/internal/config"
	"github.com/kirillkom/vision-client/internal/core/domain"
	"github.com/kirillkom/vision-client/internal/core/ports"
	"github.com/kirillkom/vision-client/internal/core/usecase"
	"github.com/kirillkom/vision-client/internal/infrastructure/extractor/pdfinfo"
	"github.com/kirillkom/vision-client/internal/infrastructure/queue/nats"
	"github.com/kirillkom/vision-client/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/vision-client/internal/infrastructure/resilience"
	"github.com/kirillkom/vision-client/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/vision-client/internal/infrastructure/storage/redis"
	"github.com/kirillkom/vision-client/internal/infrastructure/visionapi"
	"github.com/kirillkom/vision-client/internal/observability/metrics"
)

type App struct {
	Config  config.Config
	Logger  *slog.Logger
	Metrics *metrics.ClientMetrics

	Store       ports.KeyValueStore
	API         *visionapi.Client
	Preferences *usecase.PreferencesStore
	Session     *usecase.SessionStore
	Catalog     *usecase.CatalogStore
	Inspector   *pdfinfo.Inspector
	Exports     *localfs.Storage
	Breakers    *resilience.Executor

	// Optional backends; nil when not configured.
	Queue *nats.Queue
	Runs  *postgres.RunRepository

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	closers = append(closers, closeStore)

	exports, err := localfs.New(cfg.ExportPath)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("init export storage: %w", err)
	}

	clientMetrics := metrics.NewClientMetrics("vision-client")
	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    cfg.RetryMaxAttempts,
		RetryInitialBackoff: cfg.RetryInitialBackoff,
		RetryMaxBackoff:     cfg.RetryMaxBackoff,
		BreakerEnabled:      cfg.BreakerEnabled,
		BreakerMinRequests:  uint32(max(cfg.BreakerMinRequests, 0)),
		BreakerOpenTimeout:  cfg.BreakerOpenTimeout,
		Logger:              logger,
		OnRetry: func(operation string, _ int, _ error) {
			clientMetrics.RecordRetry(operation)
		},
	})

	prefs := usecase.NewPreferencesStore(store, nil, logger)
	messages := prefs.Messages()

	var limiter *rate.Limiter
	if cfg.RateLimitPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitPerSecond), max(cfg.RateLimitBurst, 1))
	}
	api, err := visionapi.New(visionapi.Options{
		BaseURL:       cfg.APIBaseURL,
		Store:         store,
		Navigator:     prefs,
		Executor:      executor,
		Limiter:       limiter,
		Metrics:       clientMetrics,
		Logger:        logger,
		ShortTimeout:  cfg.ShortTimeout,
		MediumTimeout: cfg.MediumTimeout,
		LongTimeout:   cfg.LongTimeout,
	})
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("init api client: %w", err)
	}

	session := usecase.NewSessionStore(api, store, usecase.SessionOptions{
		Notifier: prefs,
		Messages: messages,
		Logger:   logger,
	})
	api.OnUnauthorized(session.ForceLogout)

	catalog := usecase.NewCatalogStore(api, usecase.CatalogOptions{
		PageSize:  cfg.CatalogPageSize,
		CacheSize: cfg.ResultCacheSize,
		CacheTTL:  cfg.ResultCacheTTL,
		Messages:  messages,
		Logger:    logger,
	})

	app := &App{
		Config:      cfg,
		Logger:      logger,
		Metrics:     clientMetrics,
		Store:       store,
		API:         api,
		Preferences: prefs,
		Session:     session,
		Catalog:     catalog,
		Inspector:   pdfinfo.NewInspector(int64(cfg.MaxFileSizeMB) * 1024 * 1024),
		Exports:     exports,
		Breakers:    executor,
	}

	if cfg.NATSURL != "" {
		queue, err := nats.New(cfg.NATSURL, nats.Options{
			JobSubject:         cfg.NATSJobSubject,
			EventsSubject:      cfg.NATSEventsSubject,
			QueueGroup:         cfg.NATSQueueGroup,
			ResilienceExecutor: executor,
			Logger:             logger,
		})
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		app.Queue = queue
		closers = append(closers, queue.Close)
	}

	if cfg.PostgresDSN != "" {
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		closers = append(closers, func() { _ = db.Close() })
		runs := postgres.NewRunRepository(db)
		if err := runs.EnsureSchema(ctx); err != nil {
			closeAll()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		app.Runs = runs
	}

	app.closeFn = closeAll
	return app, nil
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (ports.KeyValueStore, func(), error) {
	if cfg.RedisAddr != "" {
		store := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisPrefix, logger)
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("init redis store: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	}
	store, err := localfs.NewKVStore(cfg.StatePath)
	if err != nil {
		return nil, nil, fmt.Errorf("init state store: %w", err)
	}
	return store, func() {}, nil
}

// Initialize applies persisted preferences and restores the session. An
// authenticated session is refreshed and the first catalog page loaded;
// failures there are logged, not returned.
func (a *App) Initialize(ctx context.Context) error {
	if err := a.Preferences.Load(ctx); err != nil {
		return fmt.Errorf("load preferences: %w", err)
	}
	if a.Config.Language != "" && a.Config.Language != a.Preferences.Language() {
		if _, err := a.Preferences.SetLanguage(ctx, a.Config.Language); err != nil {
			a.Logger.Warn("language_persist_failed", "error", err)
		}
	}

	authenticated, err := a.Session.Restore(ctx)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	if !authenticated {
		a.Logger.Debug("session_anonymous")
		return nil
	}

	if err := a.Session.Refresh(ctx); err != nil {
		a.Logger.Warn("session_refresh_failed", "error", err)
		return nil
	}
	if err := a.Catalog.LoadPage(ctx, domain.PageRequest{}); err != nil {
		a.Logger.Warn("initial_catalog_load_failed", "error", err)
	}
	return nil
}

// NewOrchestrator builds a run orchestrator publishing to the configured
// queue and history, plus any extra observers.
func (a *App) NewOrchestrator(extra ...ports.RunObserver) *usecase.Orchestrator {
	observers := usecase.MultiObserver{}
	if a.Queue != nil {
		observers = append(observers, a.Queue)
	}
	if a.Runs != nil {
		observers = append(observers, usecase.NewHistoryObserver(a.Runs, a.Logger))
	}
	observers = append(observers, extra...)

	return usecase.NewOrchestrator(a.API, observers, usecase.OrchestratorOptions{
		StepDelay: a.Config.StepDelay,
		Messages:  a.Preferences.Messages(),
		Notifier:  a.Preferences,
		Metrics:   a.Metrics,
		Logger:    a.Logger,
	})
}

// NewDocumentRun fetches catalog document id and returns an orchestrator
// whose run updates that document's status and cached results.
func (a *App) NewDocumentRun(ctx context.Context, id int64, extra ...ports.RunObserver) (*usecase.Orchestrator, error) {
	if _, err := a.Catalog.Fetch(ctx, id); err != nil {
		return nil, fmt.Errorf("fetch document %d: %w", id, err)
	}
	observers := append([]ports.RunObserver{usecase.NewCatalogResultObserver(a.Catalog, id)}, extra...)
	return a.NewOrchestrator(observers...), nil
}

// BreakerStates reports the circuit breaker state of every gateway
// operation, keyed by operation name.
func (a *App) BreakerStates() map[string]string {
	out := make(map[string]string)
	for _, op := range visionapi.Operations() {
		out[op] = a.Breakers.State(op).String()
	}
	return out
}

// NewIntake uses the configured processing profile.
func (a *App) NewIntake() *usecase.Intake {
	return usecase.NewIntake(usecase.IntakeConfig{
		MaxFiles:      a.Config.MaxFiles,
		AcceptedTypes: a.Config.AcceptedTypes,
		MaxFileSizeMB: a.Config.MaxFileSizeMB,
	}, a.Preferences.Messages())
}

func (a *App) ProcessingOptions() (domain.ProcessingOptions, error) {
	return config.LoadProcessingOptions(a.Config.OptionsFile)
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
