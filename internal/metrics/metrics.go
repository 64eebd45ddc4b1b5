// Package metrics holds the prometheus collectors shared by field sessions,
// store adapters and the HTTP server. A nil *Metrics is valid and records
// nothing, so components can be used without a registry.
package metrics

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "suggest"

type Metrics struct {
	FetchTotal     *prometheus.CounterVec
	FetchDuration  *prometheus.HistogramVec
	SaveTotal      *prometheus.CounterVec
	QueriesTotal   *prometheus.CounterVec
	StaleResponses prometheus.Counter
	SessionsActive prometheus.Gauge
	HTTPRequests   *prometheus.CounterVec
	Commands       *prometheus.CounterVec
	CommandLatency *prometheus.HistogramVec
	Connections    *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		FetchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_total",
				Help:      "Suggestion store fetches by canonical key and outcome",
			},
			[]string{"key", "status"},
		),
		FetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fetch_duration_seconds",
				Help:      "Suggestion store fetch latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"key"},
		),
		SaveTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "save_total",
				Help:      "Suggestion store saves by canonical key and outcome",
			},
			[]string{"key", "status"},
		),
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queries_total",
				Help:      "Merged queries issued by field sessions",
			},
			[]string{"kind"},
		),
		StaleResponses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stale_responses_total",
				Help:      "Query responses discarded because a newer query superseded them",
			},
		),
		SessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sessions_active",
				Help:      "Mounted field sessions",
			},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "store",
				Name:      "http_requests_total",
				Help:      "REST store requests by route and status code",
			},
			[]string{"route", "code"},
		),
		Commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "store",
				Name:      "commands_total",
				Help:      "RESP commands by name and outcome",
			},
			[]string{"command", "status"},
		),
		CommandLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "store",
				Name:      "command_duration_seconds",
				Help:      "RESP command execution time",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"command"},
		),
		Connections: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "store",
				Name:      "connections",
				Help:      "Open client connections by transport",
			},
			[]string{"transport"},
		),
	}
}

// Register adds every collector to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.FetchTotal,
		m.FetchDuration,
		m.SaveTotal,
		m.QueriesTotal,
		m.StaleResponses,
		m.SessionsActive,
		m.HTTPRequests,
		m.Commands,
		m.CommandLatency,
		m.Connections,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveFetch(key string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.FetchTotal.WithLabelValues(key, status(err)).Inc()
	m.FetchDuration.WithLabelValues(key).Observe(d.Seconds())
}

func (m *Metrics) ObserveSave(key string, err error) {
	if m == nil {
		return
	}
	m.SaveTotal.WithLabelValues(key, status(err)).Inc()
}

func (m *Metrics) IncQuery(kind string) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncStale() {
	if m == nil {
		return
	}
	m.StaleResponses.Inc()
}

func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.SessionsActive.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.SessionsActive.Dec()
}

func (m *Metrics) ObserveHTTP(route string, code int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// ObserveCommand records a RESP command. failed is true when the reply was an error.
func (m *Metrics) ObserveCommand(cmd string, d time.Duration, failed bool) {
	if m == nil {
		return
	}
	st := "ok"
	if failed {
		st = "error"
	}
	m.Commands.WithLabelValues(cmd, st).Inc()
	m.CommandLatency.WithLabelValues(cmd).Observe(d.Seconds())
}

func (m *Metrics) ConnectionOpened(transport string) {
	if m == nil {
		return
	}
	m.Connections.WithLabelValues(transport).Inc()
}

func (m *Metrics) ConnectionClosed(transport string) {
	if m == nil {
		return
	}
	m.Connections.WithLabelValues(transport).Dec()
}

func status(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
