package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/askerfotball/club-assistant/internal/infrastructure/resilience"
)

// DefaultSubject carries reindex requests from the API to the indexer.
const DefaultSubject = "club.index.reindex"

// indexerGroup makes subscribed indexers compete for requests, so a
// request triggers exactly one rebuild even with several replicas.
const indexerGroup = "indexers"

type Options struct {
	Subject        string
	ConnectTimeout time.Duration
	ReconnectWait  time.Duration
	MaxReconnects  int
	Executor       *resilience.Executor
}

// Queue is the NATS transport for reindex requests. The payload is the
// build id assigned by the requester.
type Queue struct {
	conn    *nats.Conn
	subject string
	exec    *resilience.Executor
	log     *slog.Logger
}

func Connect(url string, options Options, log *slog.Logger) (*Queue, error) {
	subject := options.Subject
	if subject == "" {
		subject = DefaultSubject
	}
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

	conn, err := nats.Connect(
		url,
		nats.Name("club-assistant"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{conn: conn, subject: subject, exec: options.Executor, log: log}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishReindexRequested(ctx context.Context, buildID string) error {
	publish := func(context.Context) error {
		if err := q.conn.Publish(q.subject, []byte(buildID)); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	var err error
	if q.exec != nil {
		err = q.exec.Do(ctx, "nats.publish", classify, publish)
	} else {
		err = publish(ctx)
	}
	return markTemporary(err)
}

// SubscribeReindexRequested blocks until ctx is done, invoking handler
// for each request. Handler failures are logged, not redelivered; the
// next reindex request supersedes a failed one anyway.
func (q *Queue) SubscribeReindexRequested(ctx context.Context, handler func(context.Context, string) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, indexerGroup, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		buildID := string(msg.Data)
		if err := handler(ctx, buildID); err != nil {
			q.log.Error("reindex handler failed", "build_id", buildID, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}
