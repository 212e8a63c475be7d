package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// FulfillmentMetrics содержит метрики ядра исполнения заказов.
type FulfillmentMetrics struct {
	// Счётчики checkout.
	checkoutsTotal   prometheus.Counter
	checkoutsFailed  prometheus.Counter
	subOrdersCreated prometheus.Counter

	// Резервы: результат в лейбле (reserved/released/committed/insufficient).
	reservationOps *prometheus.CounterVec

	// Жизненный цикл оптовых заказов.
	wholesaleCreated   prometheus.Counter
	wholesaleCancelled prometheus.Counter
	wholesaleRejected  prometheus.Counter
	wholesaleCompleted prometheus.Counter

	// Переносы стока.
	transfersTotal  prometheus.Counter
	transfersFailed prometheus.Counter

	// Гистограммы времени выполнения.
	checkoutDuration prometheus.Histogram
	transferDuration prometheus.Histogram

	// Gauge незакрытых оптовых заказов с просроченной оплатой не держим:
	// флаг просрочки производный и вычисляется на чтении.
	outboxEvents prometheus.Counter
}

// NewFulfillmentMetrics создаёт и регистрирует метрики в DefaultRegisterer.
func NewFulfillmentMetrics() *FulfillmentMetrics {
	return newFulfillmentMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newFulfillmentMetricsWithRegisterer(registerer prometheus.Registerer) *FulfillmentMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &FulfillmentMetrics{
		checkoutsTotal: registerCounter(registerer, prometheus.CounterOpts{
			Name: "marketplace_checkouts_total",
			Help: "Total number of multi-vendor checkouts processed",
		}),
		checkoutsFailed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "marketplace_checkouts_failed_total",
			Help: "Total number of checkouts rejected or failed",
		}),
		subOrdersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "marketplace_sub_orders_created_total",
			Help: "Total number of per-retailer sub-orders created",
		}),
		reservationOps: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "marketplace_inventory_reservation_ops_total",
			Help: "Total number of inventory reservation operations grouped by result",
		}, []string{"result"}),
		wholesaleCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "marketplace_wholesale_orders_created_total",
			Help: "Total number of wholesale (B2B) orders created",
		}),
		wholesaleCancelled: registerCounter(registerer, prometheus.CounterOpts{
			Name: "marketplace_wholesale_orders_cancelled_total",
			Help: "Total number of wholesale orders cancelled by retailers",
		}),
		wholesaleRejected: registerCounter(registerer, prometheus.CounterOpts{
			Name: "marketplace_wholesale_orders_rejected_total",
			Help: "Total number of wholesale orders rejected by wholesalers",
		}),
		wholesaleCompleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "marketplace_wholesale_orders_completed_total",
			Help: "Total number of wholesale orders completed with stock transfer",
		}),
		transfersTotal: registerCounter(registerer, prometheus.CounterOpts{
			Name: "marketplace_inventory_transfers_total",
			Help: "Total number of wholesaler-to-retailer stock transfers",
		}),
		transfersFailed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "marketplace_inventory_transfers_failed_total",
			Help: "Total number of stock transfers that failed and were compensated",
		}),
		checkoutDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "marketplace_checkout_duration_seconds",
			Help:    "Duration of checkout processing in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		transferDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "marketplace_transfer_duration_seconds",
			Help:    "Duration of inventory transfers in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "marketplace_outbox_events_total",
			Help: "Total number of notification events enqueued into the outbox",
		}),
	}
}

// RecordCheckout увеличивает счётчик обработанных checkout.
func (m *FulfillmentMetrics) RecordCheckout() {
	m.checkoutsTotal.Inc()
}

// RecordCheckoutFailed увеличивает счётчик неудачных checkout.
func (m *FulfillmentMetrics) RecordCheckoutFailed() {
	m.checkoutsFailed.Inc()
}

// RecordSubOrders увеличивает счётчик созданных sub-заказов.
func (m *FulfillmentMetrics) RecordSubOrders(n int) {
	m.subOrdersCreated.Add(float64(n))
}

// RecordReservationOp фиксирует исход операции над резервом.
func (m *FulfillmentMetrics) RecordReservationOp(result string) {
	m.reservationOps.WithLabelValues(result).Inc()
}

// RecordWholesaleCreated увеличивает счётчик созданных оптовых заказов.
func (m *FulfillmentMetrics) RecordWholesaleCreated() {
	m.wholesaleCreated.Inc()
}

// RecordWholesaleCancelled увеличивает счётчик отменённых оптовых заказов.
func (m *FulfillmentMetrics) RecordWholesaleCancelled() {
	m.wholesaleCancelled.Inc()
}

// RecordWholesaleRejected увеличивает счётчик отклонённых оптовых заказов.
func (m *FulfillmentMetrics) RecordWholesaleRejected() {
	m.wholesaleRejected.Inc()
}

// RecordWholesaleCompleted увеличивает счётчик завершённых оптовых заказов.
func (m *FulfillmentMetrics) RecordWholesaleCompleted() {
	m.wholesaleCompleted.Inc()
}

// RecordTransfer фиксирует успешный перенос стока.
func (m *FulfillmentMetrics) RecordTransfer() {
	m.transfersTotal.Inc()
}

// RecordTransferFailed фиксирует компенсированный перенос.
func (m *FulfillmentMetrics) RecordTransferFailed() {
	m.transfersFailed.Inc()
}

// RecordCheckoutDuration записывает время обработки checkout.
func (m *FulfillmentMetrics) RecordCheckoutDuration(duration time.Duration) {
	m.checkoutDuration.Observe(duration.Seconds())
}

// RecordTransferDuration записывает время переноса стока.
func (m *FulfillmentMetrics) RecordTransferDuration(duration time.Duration) {
	m.transferDuration.Observe(duration.Seconds())
}

// RecordOutboxEvent увеличивает счётчик поставленных в outbox событий.
func (m *FulfillmentMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}
