package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	var metric dto.Metric
	if err := (<-ch).Write(&metric); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return metric.GetCounter().GetValue()
}

func TestBookingMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)
	m.ObserveOperation("create", "ok", 0.02)
	m.ObserveOperation("create", "ok", 0.03)
	m.ObserveOperation("create", "conflict", 0.01)
	m.ObserveRetry("create")
	m.ObserveSlots(7)

	if got := counterValue(t, m.operationsTotal.WithLabelValues("create", "ok")); got != 2 {
		t.Fatalf("expected 2 successful creates, got %v", got)
	}
	if got := counterValue(t, m.retriesTotal.WithLabelValues("create")); got != 1 {
		t.Fatalf("expected 1 retry, got %v", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"clinic_booking_operations_total",
		"clinic_booking_retries_total",
		"clinic_booking_operation_seconds",
		"clinic_booking_slots_returned",
	} {
		if !names[want] {
			t.Fatalf("expected metric %s to be registered", want)
		}
	}
}

func TestBookingMetricsNilSafe(t *testing.T) {
	var m *BookingMetrics
	m.ObserveOperation("create", "ok", 0.1)
	m.ObserveRetry("create")
	m.ObserveSlots(3)
}
