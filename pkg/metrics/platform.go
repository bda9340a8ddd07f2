package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics tracks order lifecycle outcomes.
type OrderMetrics struct {
	created        prometheus.Counter
	cancelled      *prometheus.CounterVec
	createDuration prometheus.Histogram
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	created := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders successfully created.",
	})
	cancelled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Orders cancelled, by reason.",
	}, []string{"reason"})
	createDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_create_duration_seconds",
		Help:    "Duration of order creation transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(created, cancelled, createDuration)
	return &OrderMetrics{
		created:        created,
		cancelled:      cancelled,
		createDuration: createDuration,
	}
}

// IncCreated counts a successful order creation.
func (m *OrderMetrics) IncCreated() {
	if m == nil || m.created == nil {
		return
	}
	m.created.Inc()
}

// IncCancelled counts a cancellation with its reason label.
func (m *OrderMetrics) IncCancelled(reason string) {
	if m == nil || m.cancelled == nil {
		return
	}
	m.cancelled.WithLabelValues(normalizeLabel(reason)).Inc()
}

// ObserveCreateDuration records how long the create transaction took.
func (m *OrderMetrics) ObserveCreateDuration(duration time.Duration) {
	if m == nil || m.createDuration == nil {
		return
	}
	m.createDuration.Observe(duration.Seconds())
}

// StockMetrics tracks inventory movements and contention.
type StockMetrics struct {
	movements         *prometheus.CounterVec
	insufficientStock prometheus.Counter
	lowStockAlerts    prometheus.Counter
}

// NewStockMetrics registers the stock metrics on the provided registerer.
func NewStockMetrics(reg prometheus.Registerer) *StockMetrics {
	if reg == nil {
		return &StockMetrics{}
	}
	movements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_movements_total",
		Help: "Stock movements applied, by type.",
	}, []string{"type"})
	insufficient := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stock_insufficient_total",
		Help: "Decrements rejected for insufficient stock.",
	})
	lowStock := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stock_low_alerts_total",
		Help: "Low-stock alerts queued.",
	})
	reg.MustRegister(movements, insufficient, lowStock)
	return &StockMetrics{
		movements:         movements,
		insufficientStock: insufficient,
		lowStockAlerts:    lowStock,
	}
}

// IncMovement counts one applied movement of the given type.
func (m *StockMetrics) IncMovement(movementType string) {
	if m == nil || m.movements == nil {
		return
	}
	m.movements.WithLabelValues(normalizeLabel(movementType)).Inc()
}

// IncInsufficient counts a rejected decrement.
func (m *StockMetrics) IncInsufficient() {
	if m == nil || m.insufficientStock == nil {
		return
	}
	m.insufficientStock.Inc()
}

// IncLowStockAlert counts a queued low-stock alert.
func (m *StockMetrics) IncLowStockAlert() {
	if m == nil || m.lowStockAlerts == nil {
		return
	}
	m.lowStockAlerts.Inc()
}

// OutboxMetrics tracks the relay loop.
type OutboxMetrics struct {
	published     prometheus.Counter
	failed        prometheus.Counter
	deadLettered  prometheus.Counter
	batchDuration prometheus.Histogram
}

// NewOutboxMetrics registers the outbox metrics on the provided registerer.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	published := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_published_total",
		Help: "Outbox events published to Pub/Sub.",
	})
	failed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_publish_failures_total",
		Help: "Outbox publish attempts that failed.",
	})
	deadLettered := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_dead_lettered_total",
		Help: "Outbox events routed to the DLQ.",
	})
	batchDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "outbox_batch_duration_seconds",
		Help:    "Duration of outbox publish batches in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(published, failed, deadLettered, batchDuration)
	return &OutboxMetrics{
		published:     published,
		failed:        failed,
		deadLettered:  deadLettered,
		batchDuration: batchDuration,
	}
}

// IncPublished counts a published event.
func (m *OutboxMetrics) IncPublished() {
	if m == nil || m.published == nil {
		return
	}
	m.published.Inc()
}

// IncFailed counts a failed publish attempt.
func (m *OutboxMetrics) IncFailed() {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.Inc()
}

// IncDeadLettered counts an event parked in the DLQ.
func (m *OutboxMetrics) IncDeadLettered() {
	if m == nil || m.deadLettered == nil {
		return
	}
	m.deadLettered.Inc()
}

// ObserveBatchDuration records one publish batch.
func (m *OutboxMetrics) ObserveBatchDuration(duration time.Duration) {
	if m == nil || m.batchDuration == nil {
		return
	}
	m.batchDuration.Observe(duration.Seconds())
}
