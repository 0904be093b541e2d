// Package metrics exposes statement import counters for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "statement_ledger"

// Metrics holds the import collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry             *prometheus.Registry
	filesProcessed       *prometheus.CounterVec
	transactionsImported prometheus.Counter
	duplicates           prometheus.Counter
	parseDuration        *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		filesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_processed_total",
			Help:      "Statement files that finished processing, by final status.",
		}, []string{"status"}),
		transactionsImported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_imported_total",
			Help:      "Transactions inserted into the ledger.",
		}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_duplicate_total",
			Help:      "Parsed transactions skipped because they were already stored.",
		}),
		parseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "parse_duration_seconds",
			Help:      "Time spent extracting and parsing one file, by strategy.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"strategy"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.filesProcessed,
		m.transactionsImported,
		m.duplicates,
		m.parseDuration,
	)
	return m
}

// FileProcessed records the final state of one file.
func (m *Metrics) FileProcessed(status string, imported, duplicates int) {
	if m == nil {
		return
	}
	m.filesProcessed.WithLabelValues(status).Inc()
	m.transactionsImported.Add(float64(imported))
	m.duplicates.Add(float64(duplicates))
}

func (m *Metrics) ParseDuration(strategy string, d time.Duration) {
	if m == nil {
		return
	}
	m.parseDuration.WithLabelValues(strategy).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
