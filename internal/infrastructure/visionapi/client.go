// Package visionapi is the single HTTP gateway to the document-processing
// backend. Every store and capability processor shares one Client so that
// authentication, timeouts and 401 handling are uniform.
package visionapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"github.com/kirillkom/vision-client/internal/core/domain"
	"github.com/kirillkom/vision-client/internal/core/ports"
	"github.com/kirillkom/vision-client/internal/infrastructure/resilience"
)

const (
	DefaultShortTimeout  = 30 * time.Second
	DefaultMediumTimeout = 60 * time.Second
	DefaultLongTimeout   = 360 * time.Second
)

// RequestObserver receives one StartRequest/ObserveRequest pair per attempt.
type RequestObserver interface {
	StartRequest()
	ObserveRequest(endpoint string, status int, duration time.Duration)
}

type Options struct {
	BaseURL   string
	Store     ports.KeyValueStore
	Navigator ports.Navigator

	HTTPClient *http.Client
	Executor   *resilience.Executor
	Limiter    *rate.Limiter
	Metrics    RequestObserver
	Logger     *slog.Logger

	ShortTimeout  time.Duration
	MediumTimeout time.Duration
	LongTimeout   time.Duration
}

type Client struct {
	baseURL    string
	store      ports.KeyValueStore
	navigator  ports.Navigator
	httpClient *http.Client
	executor   *resilience.Executor
	limiter    *rate.Limiter
	metrics    RequestObserver
	logger     *slog.Logger
	timeouts   map[timeoutClass]time.Duration

	mu           sync.Mutex
	unauthorized []func(context.Context)
}

func New(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "visionapi.new", fmt.Errorf("base url is required"))
	}
	if opts.Store == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "visionapi.new", fmt.Errorf("key-value store is required"))
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		httpClient = &http.Client{Jar: jar}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    baseURL,
		store:      opts.Store,
		navigator:  opts.Navigator,
		httpClient: httpClient,
		executor:   opts.Executor,
		limiter:    opts.Limiter,
		metrics:    opts.Metrics,
		logger:     logger,
		timeouts: map[timeoutClass]time.Duration{
			timeoutShort:  positiveOr(opts.ShortTimeout, DefaultShortTimeout),
			timeoutMedium: positiveOr(opts.MediumTimeout, DefaultMediumTimeout),
			timeoutLong:   positiveOr(opts.LongTimeout, DefaultLongTimeout),
		},
	}, nil
}

// OnUnauthorized registers a hook run after any 401 response, once the
// stored token has been removed.
func (c *Client) OnUnauthorized(fn func(context.Context)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unauthorized = append(c.unauthorized, fn)
}

func (c *Client) handleUnauthorized(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	if err := c.store.Delete(ctx, domain.TokenStorageKey, domain.LegacyTokenStorageKey); err != nil {
		c.logger.Warn("token_cleanup_failed", "error", err)
	}

	c.mu.Lock()
	hooks := append([]func(context.Context){}, c.unauthorized...)
	c.mu.Unlock()
	for _, hook := range hooks {
		hook(ctx)
	}

	if c.navigator != nil && c.navigator.CurrentView() != domain.ViewLogin {
		c.navigator.Navigate(domain.ViewLogin)
	}
}

func positiveOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
