package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "trader"

// Worker run results.
const (
	ResultOK    = "ok"
	ResultError = "error"
	ResultPanic = "panic"
)

// Metrics holds every collector the trader exports. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	WorkerRuns     *prometheus.CounterVec
	WorkerDuration *prometheus.HistogramVec

	QueueDepth      prometheus.Gauge
	EventsPublished *prometheus.CounterVec

	Instructions *prometheus.CounterVec

	ControlLogWritten prometheus.Counter
	ControlLogErrors  prometheus.Counter
	ControlLogDropped prometheus.Counter

	StreamMessages   prometheus.Counter
	StreamReconnects prometheus.Counter
}

// New creates the collectors and registers them with reg. A nil reg skips
// registration.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		WorkerRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "runs_total",
			Help:      "Background worker invocations by result.",
		}, []string{"worker", "result"}),
		WorkerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "run_duration_seconds",
			Help:      "Background worker invocation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"worker"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "depth",
			Help:      "Events waiting on the handler queue.",
		}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "events_published_total",
			Help:      "Events put on the handler queue by kind.",
		}, []string{"kind"}),
		Instructions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "instructions_total",
			Help:      "Order instructions by operation and report status.",
		}, []string{"operation", "status"}),
		ControlLogWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "control_log",
			Name:      "written_total",
			Help:      "Control log rows written.",
		}),
		ControlLogErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "control_log",
			Name:      "errors_total",
			Help:      "Control log batch write failures.",
		}),
		ControlLogDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "control_log",
			Name:      "dropped_total",
			Help:      "Control log entries dropped because the buffer was full.",
		}),
		StreamMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "messages_total",
			Help:      "Market change messages received.",
		}),
		StreamReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "reconnects_total",
			Help:      "Market stream reconnect attempts.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.WorkerRuns,
			m.WorkerDuration,
			m.QueueDepth,
			m.EventsPublished,
			m.Instructions,
			m.ControlLogWritten,
			m.ControlLogErrors,
			m.ControlLogDropped,
			m.StreamMessages,
			m.StreamReconnects,
		)
	}

	return m
}

// ObserveWorkerRun records one worker invocation.
func (m *Metrics) ObserveWorkerRun(worker, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.WorkerRuns.WithLabelValues(worker, result).Inc()
	m.WorkerDuration.WithLabelValues(worker).Observe(d.Seconds())
}

// EventPublished records an event put on the handler queue.
func (m *Metrics) EventPublished(kind string, depth int) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(kind).Inc()
	m.QueueDepth.Set(float64(depth))
}

// SetQueueDepth records the handler queue length.
func (m *Metrics) SetQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(depth))
}

// InstructionReported records one instruction report.
func (m *Metrics) InstructionReported(operation, status string) {
	if m == nil {
		return
	}
	m.Instructions.WithLabelValues(operation, status).Inc()
}

// ControlLogBatch records a control log flush.
func (m *Metrics) ControlLogBatch(rows int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.ControlLogErrors.Inc()
		return
	}
	m.ControlLogWritten.Add(float64(rows))
}

// ControlLogDrop records a dropped control log entry.
func (m *Metrics) ControlLogDrop() {
	if m == nil {
		return
	}
	m.ControlLogDropped.Inc()
}

// StreamMessage records a received stream message.
func (m *Metrics) StreamMessage() {
	if m == nil {
		return
	}
	m.StreamMessages.Inc()
}

// StreamReconnect records a stream reconnect attempt.
func (m *Metrics) StreamReconnect() {
	if m == nil {
		return
	}
	m.StreamReconnects.Inc()
}
