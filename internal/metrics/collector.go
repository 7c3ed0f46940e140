package lacpmetrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dantte-lp/lacpd/internal/lacp"
)

// -------------------------------------------------------------------------
// Prometheus Metric Constants
// -------------------------------------------------------------------------

const (
	namespace = "lacpd"
	subsystem = "lacp"
)

// Label names for LACP metrics.
const (
	labelPort = "port"
	labelFSM  = "fsm"
)

// -------------------------------------------------------------------------
// Collector — Prometheus LACP Metrics
// -------------------------------------------------------------------------

// Collector holds all LACP Prometheus metrics and implements
// lacp.MetricsSink so the Engine can report directly to it without any
// intermediate adapter.
//
//   - LAGCount tracks the number of currently formed LAGs.
//   - LACPDU counters track TX/RX volumes per port.
//   - Marker counters track Marker Protocol exchanges per port.
//   - FSMTransitions counts transitions per FSM (receive/periodic/mux)
//     per port, for alerting on flapping aggregates.
type Collector struct {
	LAGCount *prometheus.GaugeVec

	LACPDUSent *prometheus.CounterVec
	LACPDURecv *prometheus.CounterVec

	MarkerRecv     *prometheus.CounterVec
	MarkerRespSent *prometheus.CounterVec

	FSMTransitions *prometheus.CounterVec
}

// NewCollector creates a Collector with all LACP metrics registered
// against the provided prometheus.Registerer. If reg is nil,
// prometheus.DefaultRegisterer is used.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := newMetrics()

	reg.MustRegister(
		c.LAGCount,
		c.LACPDUSent,
		c.LACPDURecv,
		c.MarkerRecv,
		c.MarkerRespSent,
		c.FSMTransitions,
	)

	return c
}

func newMetrics() *Collector {
	portLabels := []string{labelPort}
	fsmLabels := []string{labelPort, labelFSM}

	return &Collector{
		LAGCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "lag_count",
			Help:      "Number of currently formed LAGs.",
		}, nil),

		LACPDUSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "lacpdu_sent_total",
			Help:      "Total LACPDUs transmitted per port.",
		}, portLabels),

		LACPDURecv: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "lacpdu_received_total",
			Help:      "Total LACPDUs received per port.",
		}, portLabels),

		MarkerRecv: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "marker_received_total",
			Help:      "Total Marker Protocol requests received per port.",
		}, portLabels),

		MarkerRespSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "marker_response_sent_total",
			Help:      "Total Marker Protocol responses transmitted per port.",
		}, portLabels),

		FSMTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "fsm_transitions_total",
			Help:      "Total FSM state transitions, labeled by machine (receive/periodic/mux).",
		}, fsmLabels),
	}
}

// -------------------------------------------------------------------------
// lacp.MetricsSink
// -------------------------------------------------------------------------

func portLabel(p lacp.PortHandle) string {
	return strconv.FormatUint(uint64(p), 10)
}

func (c *Collector) IncLACPDUSent(port lacp.PortHandle) {
	c.LACPDUSent.WithLabelValues(portLabel(port)).Inc()
}

func (c *Collector) IncLACPDURecv(port lacp.PortHandle) {
	c.LACPDURecv.WithLabelValues(portLabel(port)).Inc()
}

func (c *Collector) IncMarkerRecv(port lacp.PortHandle) {
	c.MarkerRecv.WithLabelValues(portLabel(port)).Inc()
}

func (c *Collector) IncMarkerRespSent(port lacp.PortHandle) {
	c.MarkerRespSent.WithLabelValues(portLabel(port)).Inc()
}

func (c *Collector) RecordFSMTransition(fsm string, port lacp.PortHandle) {
	c.FSMTransitions.WithLabelValues(portLabel(port), fsm).Inc()
}

func (c *Collector) SetLAGCount(n int) {
	c.LAGCount.WithLabelValues().Set(float64(n))
}
