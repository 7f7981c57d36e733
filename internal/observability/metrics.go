package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chatstream"

// StreamingMetrics holds the Prometheus collectors of the chat sockets.
// All metrics use the "chatstream_" prefix.
type StreamingMetrics struct {
	registry *prometheus.Registry

	// TurnsTotal counts finished turns by outcome (completed, cancelled,
	// failed, disconnected) and kind (chat, rag).
	TurnsTotal *prometheus.CounterVec

	// FragmentsTotal counts generated text fragments sent to clients.
	FragmentsTotal *prometheus.CounterVec

	TimeToFirstFragment *prometheus.HistogramVec
	TurnDuration        *prometheus.HistogramVec

	// StageDuration records RAG stage durations by stage.
	StageDuration *prometheus.HistogramVec

	StageFailures *prometheus.CounterVec

	ActiveConnections prometheus.Gauge
}

func NewStreamingMetrics() *StreamingMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &StreamingMetrics{
		registry: reg,
		TurnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Finished chat turns by outcome and kind",
		}, []string{"outcome", "kind"}),
		FragmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fragments_total",
			Help:      "Generated text fragments sent to clients",
		}, []string{"kind"}),
		TimeToFirstFragment: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "time_to_first_fragment_seconds",
			Help:      "Latency from generation start to the first fragment",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"kind"}),
		TurnDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Duration of a turn from request to terminal marker",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"kind"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of RAG preparation stages",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"stage"}),
		StageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_failures_total",
			Help:      "RAG stages that failed or fell back",
		}, []string{"stage"}),
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_connections",
			Help:      "Open chat socket connections",
		}),
	}

	reg.MustRegister(
		m.TurnsTotal,
		m.FragmentsTotal,
		m.TimeToFirstFragment,
		m.TurnDuration,
		m.StageDuration,
		m.StageFailures,
		m.ActiveConnections,
	)
	return m
}

func (m *StreamingMetrics) ObserveTurn(kind, outcome string, fragments int, firstFragment, duration time.Duration) {
	m.TurnsTotal.WithLabelValues(outcome, kind).Inc()
	m.FragmentsTotal.WithLabelValues(kind).Add(float64(fragments))
	if fragments > 0 {
		m.TimeToFirstFragment.WithLabelValues(kind).Observe(firstFragment.Seconds())
	}
	m.TurnDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

func (m *StreamingMetrics) ObserveStage(stage string, elapsed time.Duration, failed bool) {
	m.StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
	if failed {
		m.StageFailures.WithLabelValues(stage).Inc()
	}
}

func (m *StreamingMetrics) SetActiveConnections(n int) {
	m.ActiveConnections.Set(float64(n))
}

// Handler serves the registry in the Prometheus text format.
func (m *StreamingMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
