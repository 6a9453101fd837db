// Package metrics содержит Prometheus-метрики подписок и записей заявок.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Результаты попытки закрытия заявки.
const (
	CloseResultOK            = "ok"
	CloseResultValidation    = "validation"
	CloseResultAlreadyClosed = "already_closed"
	CloseResultNotFound      = "not_found"
	CloseResultError         = "error"
)

// OrderMetrics содержит метрики репозитория заявок. Все методы безопасны
// для nil-получателя.
type OrderMetrics struct {
	// Живые выборки
	feedsOpened  prometheus.Counter
	feedsActive  prometheus.Gauge
	feedFailures prometheus.Counter
	snapshots    prometheus.Counter

	malformedRecords prometheus.Counter

	// Закрытие заявок
	closeAttempts *prometheus.CounterVec
	closeDuration prometheus.Histogram

	eventsPublished *prometheus.CounterVec
}

// NewOrderMetrics регистрирует метрики в prometheus.DefaultRegisterer.
func NewOrderMetrics() *OrderMetrics {
	return NewOrderMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewOrderMetricsWithRegisterer регистрирует метрики в registerer.
func NewOrderMetricsWithRegisterer(registerer prometheus.Registerer) *OrderMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &OrderMetrics{
		feedsOpened: registerCounter(registerer, prometheus.CounterOpts{
			Name: "helpdesk_order_feeds_opened_total",
			Help: "Total number of order feeds opened",
		}),
		feedsActive: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "helpdesk_order_feeds_active",
			Help: "Number of currently active order feeds",
		}),
		feedFailures: registerCounter(registerer, prometheus.CounterOpts{
			Name: "helpdesk_order_feed_failures_total",
			Help: "Total number of order feeds terminated by an error",
		}),
		snapshots: registerCounter(registerer, prometheus.CounterOpts{
			Name: "helpdesk_order_snapshots_total",
			Help: "Total number of order snapshots delivered to subscribers",
		}),
		malformedRecords: registerCounter(registerer, prometheus.CounterOpts{
			Name: "helpdesk_order_malformed_records_total",
			Help: "Total number of order documents rejected by the mapper",
		}),
		closeAttempts: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "helpdesk_order_close_total",
			Help: "Total number of order close attempts by result",
		}, []string{"result"}),
		closeDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "helpdesk_order_close_duration_seconds",
			Help:    "Duration of the order close write in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}),
		eventsPublished: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "helpdesk_order_events_total",
			Help: "Total number of order events handed to the publisher by result",
		}, []string{"type", "result"}),
	}
}

// RecordFeedOpened учитывает новую живую выборку.
func (m *OrderMetrics) RecordFeedOpened() {
	if m == nil {
		return
	}
	m.feedsOpened.Inc()
	m.feedsActive.Inc()
}

// RecordFeedClosed уменьшает число активных выборок.
func (m *OrderMetrics) RecordFeedClosed() {
	if m == nil {
		return
	}
	m.feedsActive.Dec()
}

// RecordFeedFailure учитывает выборку, завершившуюся ошибкой.
func (m *OrderMetrics) RecordFeedFailure() {
	if m == nil {
		return
	}
	m.feedFailures.Inc()
}

// RecordSnapshot учитывает доставленный снимок.
func (m *OrderMetrics) RecordSnapshot() {
	if m == nil {
		return
	}
	m.snapshots.Inc()
}

// RecordMalformedRecord учитывает отбракованный документ.
func (m *OrderMetrics) RecordMalformedRecord() {
	if m == nil {
		return
	}
	m.malformedRecords.Inc()
}

// RecordClose учитывает попытку закрытия с результатом result.
func (m *OrderMetrics) RecordClose(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.closeAttempts.WithLabelValues(result).Inc()
	if duration > 0 {
		m.closeDuration.Observe(duration.Seconds())
	}
}

// RecordEvent учитывает публикацию события.
func (m *OrderMetrics) RecordEvent(eventType string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.eventsPublished.WithLabelValues(eventType, result).Inc()
}
