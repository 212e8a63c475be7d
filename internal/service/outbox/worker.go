package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

const (
	defaultPollInterval   = 1 * time.Second
	defaultBatchSize      = 100
	defaultMaxAttempts    = 3
	defaultRetryBaseDelay = 50 * time.Millisecond
)

var (
	outboxPublishAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_outbox_publish_attempts_total",
		Help: "Total number of outbox publish attempts grouped by result.",
	}, []string{"result"})
	outboxPendingRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "marketplace_outbox_pending_records",
		Help: "Current number of pending records in transactional outbox.",
	})
	outboxOldestPendingAge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "marketplace_outbox_oldest_pending_age_seconds",
		Help: "Age in seconds of the oldest pending outbox record.",
	})
)

// WorkerOptions задаёт параметры outbox worker.
type WorkerOptions struct {
	Logger         *log.Entry
	DLQPublisher   domain.OutboxPublisher
	PollInterval   time.Duration
	BatchSize      int
	MaxAttempts    int
	RetryBaseDelay time.Duration
}

// normalize подставляет дефолты вместо нулевых и отрицательных значений.
func (o *WorkerOptions) normalize() {
	if o.Logger == nil {
		o.Logger = log.WithField("component", "outbox-worker")
	}
	if o.PollInterval <= 0 {
		o.PollInterval = defaultPollInterval
	}
	if o.BatchSize <= 0 {
		o.BatchSize = defaultBatchSize
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = defaultMaxAttempts
	}
	if o.RetryBaseDelay < 0 {
		o.RetryBaseDelay = 0
	}
}

// Option настраивает Worker.
type Option func(*WorkerOptions)

// WithLogger задаёт logger для воркера.
func WithLogger(logger *log.Entry) Option {
	return func(opts *WorkerOptions) {
		opts.Logger = logger
	}
}

// WithDLQPublisher задаёт publisher для отправки в DLQ после исчерпания retry.
func WithDLQPublisher(publisher domain.OutboxPublisher) Option {
	return func(opts *WorkerOptions) {
		opts.DLQPublisher = publisher
	}
}

// WithPollInterval задаёт частоту опроса outbox.
func WithPollInterval(interval time.Duration) Option {
	return func(opts *WorkerOptions) {
		opts.PollInterval = interval
	}
}

// WithBatchSize задаёт размер батча из outbox.
func WithBatchSize(batchSize int) Option {
	return func(opts *WorkerOptions) {
		opts.BatchSize = batchSize
	}
}

// WithMaxAttempts задаёт число попыток публикации перед failed/DLQ.
func WithMaxAttempts(maxAttempts int) Option {
	return func(opts *WorkerOptions) {
		opts.MaxAttempts = maxAttempts
	}
}

// WithRetryBaseDelay задаёт базовый delay для exponential backoff.
func WithRetryBaseDelay(delay time.Duration) Option {
	return func(opts *WorkerOptions) {
		opts.RetryBaseDelay = delay
	}
}

// Worker перекладывает pending-события заказов и B2B-закупок из outbox
// в Kafka. Событие помечается sent только после успешной публикации,
// после исчерпания retry уходит в DLQ и помечается failed.
type Worker struct {
	repo           domain.OutboxRepository
	publisher      domain.OutboxPublisher
	dlqPublisher   domain.OutboxPublisher
	logger         *log.Entry
	pollInterval   time.Duration
	batchSize      int
	maxAttempts    int
	retryBaseDelay time.Duration
}

// NewWorker создаёт outbox worker.
func NewWorker(repo domain.OutboxRepository, publisher domain.OutboxPublisher, options ...Option) *Worker {
	opts := WorkerOptions{}
	for _, option := range options {
		option(&opts)
	}
	opts.normalize()

	return &Worker{
		repo:           repo,
		publisher:      publisher,
		dlqPublisher:   opts.DLQPublisher,
		logger:         opts.Logger,
		pollInterval:   opts.PollInterval,
		batchSize:      opts.BatchSize,
		maxAttempts:    opts.MaxAttempts,
		retryBaseDelay: opts.RetryBaseDelay,
	}
}

// Run опрашивает outbox до отмены ctx. Первый цикл выполняется сразу,
// не дожидаясь тикера.
func (w *Worker) Run(ctx context.Context) {
	if w.repo == nil || w.publisher == nil {
		w.logger.Warn("outbox worker отключён: нет repo или publisher")
		return
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.ProcessOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.ProcessOnce(ctx)
		}
	}
}

// ProcessOnce выполняет один polling-цикл: пачка pending, доставка,
// отметки sent/failed.
func (w *Worker) ProcessOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	w.observeBacklog()

	batch, err := w.repo.PullPending(w.batchSize)
	if err != nil {
		w.logger.WithError(err).Warn("не удалось получить pending-события из outbox")
		return
	}

	for _, msg := range batch {
		if ctx.Err() != nil {
			return
		}
		w.handleMessage(ctx, msg)
	}

	if len(batch) > 0 {
		w.observeBacklog()
	}
}

func (w *Worker) handleMessage(ctx context.Context, msg domain.OutboxMessage) {
	if err := w.deliver(ctx, msg); err != nil {
		w.logger.WithError(err).WithFields(log.Fields{
			"outbox_id":  msg.ID,
			"event_type": msg.EventType,
		}).Error("публикация outbox-события не удалась после всех retry")
		outboxPublishAttempts.WithLabelValues("failed").Inc()

		if dlqErr := w.sendToDLQ(msg, err); dlqErr != nil {
			w.logger.WithError(dlqErr).WithField("outbox_id", msg.ID).Warn("не удалось отправить событие в DLQ")
			outboxPublishAttempts.WithLabelValues("dlq_failed").Inc()
		}
		if markErr := w.repo.MarkFailed(msg.ID); markErr != nil {
			w.logger.WithError(markErr).WithField("outbox_id", msg.ID).Warn("не удалось пометить событие failed")
		}
		return
	}

	if err := w.repo.MarkSent(msg.ID); err != nil {
		w.logger.WithError(err).WithField("outbox_id", msg.ID).Warn("не удалось пометить событие sent")
	}
}

// deliver пытается опубликовать событие с exponential backoff между попытками.
func (w *Worker) deliver(ctx context.Context, msg domain.OutboxMessage) error {
	var lastErr error

	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		err := w.publisher.Publish(msg)
		if err == nil {
			outboxPublishAttempts.WithLabelValues("sent").Inc()
			return nil
		}
		lastErr = err
		outboxPublishAttempts.WithLabelValues("retry_error").Inc()

		if attempt >= w.maxAttempts {
			break
		}

		delay := w.backoffDelay(attempt)
		if delay <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("publish failed after %d attempts: %w", w.maxAttempts, lastErr)
}

// observeBacklog обновляет gauge-метрики по размеру и возрасту backlog-а.
func (w *Worker) observeBacklog() {
	stats, err := w.repo.Stats()
	if err != nil {
		w.logger.WithError(err).Warn("не удалось собрать статистику outbox")
		return
	}

	outboxPendingRecords.Set(float64(stats.PendingCount))
	if stats.PendingCount == 0 || stats.OldestPendingAt.IsZero() {
		outboxOldestPendingAge.Set(0)
		return
	}

	age := time.Since(stats.OldestPendingAt).Seconds()
	if age < 0 {
		age = 0
	}
	outboxOldestPendingAge.Set(age)
}

func (w *Worker) backoffDelay(attempt int) time.Duration {
	if w.retryBaseDelay <= 0 {
		return 0
	}

	const maxDelay = time.Duration(1<<63 - 1)
	delay := w.retryBaseDelay
	for i := 1; i < attempt; i++ {
		if delay > maxDelay/2 {
			return maxDelay
		}
		delay *= 2
	}
	return delay
}

// sendToDLQ оборачивает событие в DLQ-конверт с текстом ошибки публикации.
func (w *Worker) sendToDLQ(msg domain.OutboxMessage, publishErr error) error {
	if w.dlqPublisher == nil {
		return nil
	}

	envelope, err := json.Marshal(map[string]any{
		"outbox_id":        msg.ID,
		"aggregate_type":   msg.AggregateType,
		"aggregate_id":     msg.AggregateID,
		"event_type":       msg.EventType,
		"payload":          json.RawMessage(msg.Payload),
		"publish_error":    publishErr.Error(),
		"dlq_published_at": time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal dlq envelope: %w", err)
	}

	dlqMsg := domain.OutboxMessage{
		ID:            msg.ID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     msg.EventType,
		Payload:       envelope,
	}
	if err := w.dlqPublisher.Publish(dlqMsg); err != nil {
		return fmt.Errorf("publish to dlq: %w", err)
	}

	return nil
}
