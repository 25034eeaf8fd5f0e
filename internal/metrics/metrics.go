// Package metrics exposes Prometheus counters for the dispatcher and
// an optional HTTP listener to scrape them. The listener is disabled
// unless configured; the stdio transport works without it.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// OperationsTotal counts dispatched operations by name and outcome.
// Callers must keep the operation label bounded to the catalog plus
// the "unknown" sentinel.
var OperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "proxmoxmcp",
	Subsystem: "dispatcher",
	Name:      "operations_total",
	Help:      "Dispatched operations by name and outcome.",
}, []string{"operation", "outcome"})

// RecordOperation counts one dispatched operation. Outcome is one of
// success, failure, or unknown.
func RecordOperation(operation, outcome string) {
	OperationsTotal.WithLabelValues(operation, outcome).Inc()
}

// Serve starts the metrics HTTP listener on addr. It runs until the
// process exits; startup failures are logged, not fatal.
func Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Starting metrics listener")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Metrics listener stopped")
		}
	}()
}
