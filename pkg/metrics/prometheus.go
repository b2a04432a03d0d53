package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the process-wide metrics container.
type Metrics struct {
	// Discord commands
	CommandsTotal    *prometheus.CounterVec
	CommandDuration  *prometheus.HistogramVec
	CommandsInFlight prometheus.Gauge

	// Assignment solver (max-flow / Dinic's)
	SolveOperationsTotal *prometheus.CounterVec
	SolveDuration        *prometheus.HistogramVec
	MaxFlowValue         *prometheus.GaugeVec
	NetworkVerticesTotal *prometheus.HistogramVec
	NetworkEdgesTotal    *prometheus.HistogramVec
	UnmatchedSubmissions *prometheus.HistogramVec

	// Exchange scheduler
	SchedulerTicksTotal     *prometheus.CounterVec
	ExchangesStartedTotal   prometheus.Counter
	ExchangesConcludedTotal *prometheus.CounterVec

	// Service metadata
	ServiceInfo *prometheus.GaugeVec
}

var defaultMetrics *Metrics

// InitMetrics initializes the metrics container and registers a
// RuntimeCollector (goroutine count, memory stats, GC pauses) alongside it.
func InitMetrics(namespace, subsystem string) *Metrics {
	m := &Metrics{
		CommandsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "discord_commands_total",
				Help:      "Total number of slash commands handled",
			},
			[]string{"command", "status"},
		),

		CommandDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "discord_command_duration_seconds",
				Help:      "Duration of slash command handling",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"command"},
		),

		CommandsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "discord_commands_in_flight",
				Help:      "Current number of slash commands being processed",
			},
		),

		SolveOperationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "solve_operations_total",
				Help:      "Total number of assignment solve operations",
			},
			[]string{"algorithm", "status"},
		),

		SolveDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "solve_duration_seconds",
				Help:      "Duration of assignment solve operations",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"algorithm"},
		),

		MaxFlowValue: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "max_flow_value",
				Help:      "Last calculated max flow value (number of assignments produced)",
			},
			[]string{"algorithm"},
		),

		NetworkVerticesTotal: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "flow_network_vertices_total",
				Help:      "Number of vertices in the constructed flow network",
				Buckets:   []float64{10, 50, 100, 500, 1000, 5000, 10000},
			},
			[]string{"operation"},
		),

		NetworkEdgesTotal: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "flow_network_edges_total",
				Help:      "Number of edges in the constructed flow network",
				Buckets:   []float64{20, 100, 500, 1000, 5000, 10000, 50000},
			},
			[]string{"operation"},
		),

		UnmatchedSubmissions: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "unmatched_submissions",
				Help:      "Number of submissions left unassigned after a solve",
				Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
			},
			[]string{"exchange_slug"},
		),

		SchedulerTicksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "scheduler_ticks_total",
				Help:      "Total number of scheduler control-loop ticks",
			},
			[]string{"trigger"},
		),

		ExchangesStartedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "exchanges_started_total",
				Help:      "Total number of exchanges transitioned into AcceptingSubmissions",
			},
		),

		ExchangesConcludedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "exchanges_concluded_total",
				Help:      "Total number of exchanges transitioned into a terminal state",
			},
			[]string{"outcome"},
		),

		ServiceInfo: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "service_info",
				Help:      "Service information",
			},
			[]string{"version", "environment"},
		),
	}

	prometheus.MustRegister(NewRuntimeCollector(namespace, subsystem))

	defaultMetrics = m
	return m
}

// Get returns the global metrics container, initializing it with defaults
// on first use.
func Get() *Metrics {
	if defaultMetrics == nil {
		return InitMetrics("ratingxchange", "")
	}
	return defaultMetrics
}

// RecordCommand records a slash command's outcome and duration.
func (m *Metrics) RecordCommand(command string, status string, duration time.Duration) {
	m.CommandsTotal.WithLabelValues(command, status).Inc()
	m.CommandDuration.WithLabelValues(command).Observe(duration.Seconds())
}

// RecordSolveOperation records an assignment solve's outcome, duration, and
// resulting max-flow value.
func (m *Metrics) RecordSolveOperation(algorithm string, success bool, duration time.Duration, maxFlow float64) {
	status := "success"
	if !success {
		status = "error"
	}

	m.SolveOperationsTotal.WithLabelValues(algorithm, status).Inc()
	m.SolveDuration.WithLabelValues(algorithm).Observe(duration.Seconds())
	m.MaxFlowValue.WithLabelValues(algorithm).Set(maxFlow)
}

// RecordNetworkSize records the size of a constructed flow network.
func (m *Metrics) RecordNetworkSize(operation string, vertices, edges int) {
	m.NetworkVerticesTotal.WithLabelValues(operation).Observe(float64(vertices))
	m.NetworkEdgesTotal.WithLabelValues(operation).Observe(float64(edges))
}

// RecordUnmatched records how many submissions were left unassigned after a
// solve.
func (m *Metrics) RecordUnmatched(exchangeSlug string, count int) {
	m.UnmatchedSubmissions.WithLabelValues(exchangeSlug).Observe(float64(count))
}

// RecordSchedulerTick records one control-loop tick.
func (m *Metrics) RecordSchedulerTick(trigger string) {
	m.SchedulerTicksTotal.WithLabelValues(trigger).Inc()
}

// RecordExchangeConcluded records an exchange transitioning into a
// terminal state.
func (m *Metrics) RecordExchangeConcluded(outcome string) {
	m.ExchangesConcludedTotal.WithLabelValues(outcome).Inc()
}

// SetServiceInfo sets the service_info gauge.
func (m *Metrics) SetServiceInfo(version, environment string) {
	m.ServiceInfo.WithLabelValues(version, environment).Set(1)
}

// Handler returns the HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// StartMetricsServer runs a blocking HTTP server exposing /metrics and
// /health.
func StartMetricsServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK")) //nolint:errcheck // health endpoint, write failure isn't actionable
	})

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return server.ListenAndServe()
}
