package http

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the bot's Prometheus collectors. It implements core.Recorder.
type Metrics struct {
	CommandsTotal    *prometheus.CounterVec
	ResolutionsTotal *prometheus.CounterVec
	MatchesTotal     *prometheus.CounterVec
	ErrorsTotal      *prometheus.CounterVec
	ResolveDuration  *prometheus.HistogramVec
	ActiveSessions   prometheus.Gauge
}

func newMetrics(registerer prometheus.Registerer) *Metrics {
	metrics := &Metrics{
		CommandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "musebot_commands_total",
				Help: "Total number of slash commands handled",
			},
			[]string{"command", "status"},
		),
		ResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "musebot_resolutions_total",
				Help: "Total number of play inputs resolved into songs",
			},
			[]string{"source", "status"},
		),
		MatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "musebot_matches_total",
				Help: "Total number of metadata songs matched to playable media",
			},
			[]string{"outcome"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "musebot_errors_total",
				Help: "Total number of errors",
			},
			[]string{"component", "type"},
		),
		ResolveDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "musebot_resolve_duration_seconds",
				Help:    "Time spent resolving play inputs",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		),
		ActiveSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "musebot_active_sessions",
				Help: "Number of guilds with a voice session",
			},
		),
	}

	registerer.MustRegister(
		metrics.CommandsTotal,
		metrics.ResolutionsTotal,
		metrics.MatchesTotal,
		metrics.ErrorsTotal,
		metrics.ResolveDuration,
		metrics.ActiveSessions,
	)

	return metrics
}

func (m *Metrics) RecordCommand(command, status string) {
	m.CommandsTotal.WithLabelValues(command, status).Inc()
}

func (m *Metrics) RecordResolve(source, status string, took time.Duration) {
	m.ResolutionsTotal.WithLabelValues(source, status).Inc()
	m.ResolveDuration.WithLabelValues(source).Observe(took.Seconds())
}

func (m *Metrics) RecordMatch(outcome string) {
	m.MatchesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordError(component, errorType string) {
	m.ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

func (m *Metrics) SetActiveSessions(count int) {
	m.ActiveSessions.Set(float64(count))
}
