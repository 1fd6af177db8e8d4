// Package outbox relays committed notification events to Kafka.
package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	notificationmetrics "spendwise/internal/notification/metrics"
	"spendwise/internal/notification/models"
	"spendwise/internal/platform/kafka"
	"spendwise/pkg/platform/audit"
	"spendwise/pkg/platform/tx"
)

const (
	DefaultPollInterval = time.Second
	DefaultBatchSize    = 100
	DefaultTopic        = "notifications"
)

type Store interface {
	FetchUnpublished(ctx context.Context, limit int) ([]*models.OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
	CountUnpublished(ctx context.Context) (int, error)
}

type Publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// Relay polls the outbox and publishes unpublished entries in creation order.
// A failed publish ends the batch so later events for the same recipient are not
// delivered ahead of it; the remaining rows are retried on the next tick.
type Relay struct {
	store     Store
	tx        tx.Runner
	publisher Publisher
	topic     string
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
	audit     *audit.Logger
	metrics   *notificationmetrics.Metrics
	now       func() time.Time
}

type Option func(*Relay)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
		r.audit = audit.NewLogger(logger)
	}
}

func WithMetrics(m *notificationmetrics.Metrics) Option {
	return func(r *Relay) {
		r.metrics = m
	}
}

func WithTopic(topic string) Option {
	return func(r *Relay) {
		if topic != "" {
			r.topic = topic
		}
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Relay) {
		r.now = now
	}
}

func NewRelay(store Store, runner tx.Runner, publisher Publisher, opts ...Option) *Relay {
	r := &Relay{
		store:     store,
		tx:        runner,
		publisher: publisher,
		topic:     DefaultTopic,
		interval:  DefaultPollInterval,
		batchSize: DefaultBatchSize,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.audit == nil {
		r.audit = audit.NewLogger(r.logger)
	}
	return r
}

// Run relays on every tick until ctx is cancelled. It returns nil on cancellation.
func (r *Relay) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "outbox relay started", "topic", r.topic, "interval", r.interval, "batch_size", r.batchSize)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay stopped")
			return nil
		case <-ticker.C:
			if _, err := r.RelayOnce(ctx); err != nil && ctx.Err() == nil {
				r.logger.ErrorContext(ctx, "outbox relay tick failed", "error", err)
			}
		}
	}
}

// RelayOnce publishes one batch and returns how many entries were marked published.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	start := time.Now()
	published := 0
	err := r.tx.RunInTx(ctx, func(txCtx context.Context) error {
		entries, err := r.store.FetchUnpublished(txCtx, r.batchSize)
		if err != nil {
			return err
		}
		done := make([]uuid.UUID, 0, len(entries))
		for _, e := range entries {
			if err := r.publisher.Publish(txCtx, r.message(e)); err != nil {
				if r.metrics != nil {
					r.metrics.IncrementOutboxFailed()
				}
				r.logger.WarnContext(txCtx, "outbox publish failed, will retry",
					"outbox_id", e.ID.String(),
					"event_type", e.EventType,
					"error", err,
				)
				break
			}
			done = append(done, e.ID)
		}
		if err := r.store.MarkPublished(txCtx, done, r.now()); err != nil {
			return err
		}
		published = len(done)
		return nil
	})
	if r.metrics != nil {
		r.metrics.ObserveRelay(start)
	}
	if err != nil {
		return 0, err
	}
	if published > 0 {
		r.audit.Log(ctx, audit.EventOutboxPublished, "count", published, "topic", r.topic)
	}
	if r.metrics != nil {
		r.metrics.AddOutboxPublished(published)
		if backlog, err := r.store.CountUnpublished(ctx); err == nil {
			r.metrics.SetOutboxBacklog(backlog)
		}
	}
	return published, nil
}

func (r *Relay) message(e *models.OutboxEntry) kafka.Message {
	return kafka.Message{
		Topic: r.topic,
		Key:   []byte(e.AggregateID),
		Value: e.Payload,
		Headers: map[string]string{
			"event_type":     e.EventType,
			"aggregate_type": e.AggregateType,
			"outbox_id":      e.ID.String(),
		},
	}
}

// LogPublisher writes messages to the log. It stands in for Kafka when no brokers
// are configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, msg kafka.Message) error {
	p.logger.InfoContext(ctx, "outbox message",
		"topic", msg.Topic,
		"key", string(msg.Key),
		"event_type", msg.Headers["event_type"],
		"payload", string(msg.Value),
	)
	return nil
}
