package lacpmetrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/dantte-lp/lacpd/internal/lacp"
	lacpmetrics "github.com/dantte-lp/lacpd/internal/metrics"
)

const testPort lacp.PortHandle = 7

func TestNewCollector(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := lacpmetrics.NewCollector(reg)

	if c.LAGCount == nil {
		t.Error("LAGCount is nil")
	}
	if c.LACPDUSent == nil {
		t.Error("LACPDUSent is nil")
	}
	if c.LACPDURecv == nil {
		t.Error("LACPDURecv is nil")
	}
	if c.MarkerRecv == nil {
		t.Error("MarkerRecv is nil")
	}
	if c.MarkerRespSent == nil {
		t.Error("MarkerRespSent is nil")
	}
	if c.FSMTransitions == nil {
		t.Error("FSMTransitions is nil")
	}

	// Verify all metrics are registered by gathering them.
	if _, err := reg.Gather(); err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
}

// A Collector must satisfy lacp.MetricsSink so the Engine can report to
// it directly with no adapter layer.
var _ lacp.MetricsSink = (*lacpmetrics.Collector)(nil)

func TestLACPDUCounters(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := lacpmetrics.NewCollector(reg)

	c.IncLACPDUSent(testPort)
	c.IncLACPDUSent(testPort)
	c.IncLACPDUSent(testPort)

	if val := counterValue(t, c.LACPDUSent, "7"); val != 3 {
		t.Errorf("LACPDUSent = %v, want 3", val)
	}

	c.IncLACPDURecv(testPort)
	c.IncLACPDURecv(testPort)

	if val := counterValue(t, c.LACPDURecv, "7"); val != 2 {
		t.Errorf("LACPDURecv = %v, want 2", val)
	}
}

func TestMarkerCounters(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := lacpmetrics.NewCollector(reg)

	c.IncMarkerRecv(testPort)
	c.IncMarkerRespSent(testPort)
	c.IncMarkerRespSent(testPort)

	if val := counterValue(t, c.MarkerRecv, "7"); val != 1 {
		t.Errorf("MarkerRecv = %v, want 1", val)
	}
	if val := counterValue(t, c.MarkerRespSent, "7"); val != 2 {
		t.Errorf("MarkerRespSent = %v, want 2", val)
	}
}

func TestFSMTransitions(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := lacpmetrics.NewCollector(reg)

	c.RecordFSMTransition("receive", testPort)
	c.RecordFSMTransition("receive", testPort)
	c.RecordFSMTransition("mux", testPort)

	if val := counterValue(t, c.FSMTransitions, "7", "receive"); val != 2 {
		t.Errorf("FSMTransitions(receive) = %v, want 2", val)
	}
	if val := counterValue(t, c.FSMTransitions, "7", "mux"); val != 1 {
		t.Errorf("FSMTransitions(mux) = %v, want 1", val)
	}
}

func TestLAGCountGauge(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := lacpmetrics.NewCollector(reg)

	c.SetLAGCount(3)
	if val := gaugeValue(t, c.LAGCount); val != 3 {
		t.Errorf("LAGCount = %v, want 3", val)
	}

	c.SetLAGCount(1)
	if val := gaugeValue(t, c.LAGCount); val != 1 {
		t.Errorf("LAGCount = %v, want 1 after update", val)
	}
}

// -------------------------------------------------------------------------
// Helpers
// -------------------------------------------------------------------------

func gaugeValue(t *testing.T, vec *prometheus.GaugeVec, labels ...string) float64 {
	t.Helper()

	gauge, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%v): %v", labels, err)
	}

	m := &dto.Metric{}
	if err := gauge.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}

	return m.GetGauge().GetValue()
}

func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()

	counter, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%v): %v", labels, err)
	}

	m := &dto.Metric{}
	if err := counter.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}

	return m.GetCounter().GetValue()
}
