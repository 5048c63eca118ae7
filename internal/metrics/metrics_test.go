package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Checkout("success")
	m.Checkout("success")
	m.Checkout("insufficient_stock")
	m.Gateway("create_invoice", "error", 0.2)
	m.Reconcile("paid")
	m.ObserveHTTP("GET", "/products", "200", 0.01)

	if got := testutil.ToFloat64(m.Checkouts.WithLabelValues("success")); got != 2 {
		t.Errorf("expected 2 successful checkouts, got %v", got)
	}
	if got := testutil.ToFloat64(m.GatewayRequests.WithLabelValues("create_invoice", "error")); got != 1 {
		t.Errorf("expected 1 gateway error, got %v", got)
	}
	if got := testutil.ToFloat64(m.Reconciled.WithLabelValues("paid")); got != 1 {
		t.Errorf("expected 1 reconciled order, got %v", got)
	}
	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/products", "200")); got != 1 {
		t.Errorf("expected 1 request, got %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Checkout("success")
	m.Gateway("get_invoice", "ok", 1)
	m.Reconcile("failed")
	m.ObserveHTTP("GET", "/", "200", 0)
}
