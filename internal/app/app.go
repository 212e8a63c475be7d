package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/marketplace/internal/health"
	"github.com/vladislavdragonenkov/marketplace/internal/httpx"
	"github.com/vladislavdragonenkov/marketplace/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/marketplace/internal/service/idempotency"
	"github.com/vladislavdragonenkov/marketplace/internal/service/outbox"
	"github.com/vladislavdragonenkov/marketplace/internal/version"
)

// Run запускает приложение: хранилище, фоновые воркеры, HTTP API и метрики.
// Блокируется до отмены ctx или фатальной ошибки сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	storage, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := storage.Close(); closeErr != nil {
			logger.WithError(closeErr).Warn("failed to close storage")
		}
	}()

	deps := NewDependencies(cfg, storage, logger)

	// Kafka опционален: без брокеров outbox копится в хранилище,
	// воркер публикации при этом не стартует.
	kafkaProducer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)
	defer closeKafka(kafkaProducer, logger)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	var workers sync.WaitGroup

	if kafkaProducer != nil {
		publisher := kafka.NewOutboxPublisher(kafkaProducer, cfg.OrderEventsTopic, cfg.WholesaleEventsTopic)
		dlqPublisher := kafka.NewOutboxPublisher(kafkaProducer, cfg.DLQTopic, cfg.DLQTopic)
		outboxWorker := outbox.NewWorker(storage.Outbox, publisher,
			outbox.WithLogger(logger.WithField("component", "outbox-worker")),
			outbox.WithDLQPublisher(dlqPublisher),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
			outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
			outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
		)
		workers.Add(1)
		go func() {
			defer workers.Done()
			outboxWorker.Run(workerCtx)
		}()
	}

	cleanupWorker := idempotency.NewCleanupWorker(storage.Idempotency,
		idempotency.WithLogger(logger.WithField("component", "idempotency-cleanup-worker")),
		idempotency.WithInterval(cfg.IdempotencyCleanupInterval),
		idempotency.WithBatchSize(cfg.IdempotencyCleanupBatchSize),
	)
	workers.Add(1)
	go func() {
		defer workers.Done()
		cleanupWorker.Run(workerCtx)
	}()

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	if storage.Store != nil {
		store := storage.Store
		healthHandler.RegisterChecker("postgres", healthcheck.NewSimpleChecker("postgres", func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return store.Ping(pingCtx)
		}))
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	idem := httpx.NewIdempotency(storage.Idempotency, cfg.IdempotencyTTL,
		logger.WithField("component", "idempotency"))
	router := httpx.NewRouter(healthHandler,
		httpx.NewOrdersHandler(deps.Checkout, deps.Orders, idem),
		httpx.NewWholesaleHandler(deps.Wholesale, idem),
		httpx.NewInventoryHandler(storage.Inventory),
	)

	apiSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API слушает %s", cfg.HTTPAddr)
		errCh <- apiSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP сервер")
		shutdownHTTP(apiSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		stopWorkers()
		workers.Wait()
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		stopWorkers()
		workers.Wait()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/readyz, %s/livez", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
