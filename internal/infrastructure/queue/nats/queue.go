package nats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/vision-client/internal/infrastructure/resilience"
)

type Options struct {
	Name                 string
	JobSubject           string
	EventsSubject        string
	QueueGroup           string
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	Logger               *slog.Logger
}

// Queue carries processing jobs to workers and publishes run events.
type Queue struct {
	conn          *nats.Conn
	publish       func(subject string, data []byte) error
	jobSubject    string
	eventsSubject string
	queueGroup    string
	executor      *resilience.Executor
	logger        *slog.Logger
}

func New(url string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	name := options.Name
	if name == "" {
		name = "vision-client"
	}
	logger := loggerOr(options.Logger)

	conn, err := nats.Connect(
		url,
		nats.Name(name),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	q := newQueue(conn.Publish, options)
	q.conn = conn
	return q, nil
}

func newQueue(publish func(string, []byte) error, options Options) *Queue {
	jobSubject := options.JobSubject
	if jobSubject == "" {
		jobSubject = "vision.jobs"
	}
	eventsSubject := options.EventsSubject
	if eventsSubject == "" {
		eventsSubject = "vision.runs"
	}
	queueGroup := options.QueueGroup
	if queueGroup == "" {
		queueGroup = "vision-workers"
	}
	return &Queue{
		publish:       publish,
		jobSubject:    jobSubject,
		eventsSubject: eventsSubject,
		queueGroup:    queueGroup,
		executor:      options.ResilienceExecutor,
		logger:        loggerOr(options.Logger),
	}
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) send(ctx context.Context, operation, subject string, data []byte) error {
	call := func(_ context.Context) error {
		if err := q.publish(subject, data); err != nil {
			return fmt.Errorf("nats publish %s: %w", subject, err)
		}
		return nil
	}

	var err error
	if q.executor != nil {
		err = q.executor.Execute(ctx, operation, call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	return wrapTemporaryIfNeeded(err)
}

func loggerOr(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
