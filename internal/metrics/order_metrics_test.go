package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("write gauge: %v", err)
	}
	return m.GetGauge().GetValue()
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("write counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestNewOrderMetricsWithRegisterer(t *testing.T) {
	metrics := NewOrderMetricsWithRegisterer(prometheus.NewRegistry())

	if metrics.feedsOpened == nil || metrics.feedsActive == nil || metrics.feedFailures == nil {
		t.Fatal("feed collectors should not be nil")
	}
	if metrics.closeAttempts == nil || metrics.closeDuration == nil {
		t.Fatal("close collectors should not be nil")
	}
}

func TestNewOrderMetrics_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewOrderMetricsWithRegisterer(reg)
	second := NewOrderMetricsWithRegisterer(reg)

	first.RecordFeedOpened()
	second.RecordFeedOpened()

	if got := gaugeValue(t, first.feedsActive); got != 2 {
		t.Fatalf("expected shared gauge value 2, got %v", got)
	}
}

func TestFeedLifecycle(t *testing.T) {
	metrics := NewOrderMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordFeedOpened()
	metrics.RecordFeedOpened()
	metrics.RecordFeedClosed()
	metrics.RecordSnapshot()
	metrics.RecordMalformedRecord()
	metrics.RecordFeedFailure()

	if got := gaugeValue(t, metrics.feedsActive); got != 1 {
		t.Fatalf("expected 1 active feed, got %v", got)
	}
	if got := counterValue(t, metrics.feedsOpened); got != 2 {
		t.Fatalf("expected 2 opened feeds, got %v", got)
	}
	if got := counterValue(t, metrics.snapshots); got != 1 {
		t.Fatalf("expected 1 snapshot, got %v", got)
	}
	if got := counterValue(t, metrics.malformedRecords); got != 1 {
		t.Fatalf("expected 1 malformed record, got %v", got)
	}
	if got := counterValue(t, metrics.feedFailures); got != 1 {
		t.Fatalf("expected 1 feed failure, got %v", got)
	}
}

func TestRecordClose(t *testing.T) {
	metrics := NewOrderMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordClose(CloseResultOK, 20*time.Millisecond)
	metrics.RecordClose(CloseResultValidation, 0)

	if got := counterValue(t, metrics.closeAttempts.WithLabelValues(CloseResultOK)); got != 1 {
		t.Fatalf("expected 1 ok close, got %v", got)
	}
	if got := counterValue(t, metrics.closeAttempts.WithLabelValues(CloseResultValidation)); got != 1 {
		t.Fatalf("expected 1 validation close, got %v", got)
	}

	var m dto.Metric
	if err := metrics.closeDuration.Write(&m); err != nil {
		t.Fatalf("write histogram: %v", err)
	}
	if m.GetHistogram().GetSampleCount() != 1 {
		t.Fatalf("expected 1 duration sample, got %d", m.GetHistogram().GetSampleCount())
	}
}

func TestRecordEvent(t *testing.T) {
	metrics := NewOrderMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordEvent("order.closed", true)
	metrics.RecordEvent("order.closed", false)

	if got := counterValue(t, metrics.eventsPublished.WithLabelValues("order.closed", "error")); got != 1 {
		t.Fatalf("expected 1 failed event, got %v", got)
	}
}

func TestNilMetricsAreNoop(t *testing.T) {
	var metrics *OrderMetrics

	metrics.RecordFeedOpened()
	metrics.RecordFeedClosed()
	metrics.RecordFeedFailure()
	metrics.RecordSnapshot()
	metrics.RecordMalformedRecord()
	metrics.RecordClose(CloseResultOK, time.Second)
	metrics.RecordEvent("order.closed", true)
}
