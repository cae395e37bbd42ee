// Package metrics exposes poll-loop counters on an optional Prometheus
// endpoint.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ericfisherdev/prbeacon/internal/domain/model"
)

// Exporter serves /metrics on its own listener and owns the poll-loop
// instrumentation. All recording methods are safe on a nil receiver so the
// monitor can run without metrics configured.
type Exporter struct {
	server *http.Server

	cycles      prometheus.Counter
	cycleErrors *prometheus.CounterVec
	events      *prometheus.CounterVec
	dropped     prometheus.Counter
	seenSize    prometheus.Gauge
	cycleDur    prometheus.Summary
}

// NewExporter registers the metrics and prepares an HTTP server on addr.
// Call Serve to start listening.
func NewExporter(addr string) *Exporter {
	e := &Exporter{
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "prbeacon",
			Name:      "poll_cycles_total",
			Help:      "Number of completed poll cycles",
		}),
		cycleErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "prbeacon",
			Name:      "poll_errors_total",
			Help:      "Number of poll failures by stage",
		}, []string{"stage"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "prbeacon",
			Name:      "events_total",
			Help:      "Number of newly admitted events by kind",
		}, []string{"kind"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "prbeacon",
			Name:      "notifications_dropped_total",
			Help:      "Number of notifications lost to device failures",
		}),
		seenSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "prbeacon",
			Name:      "seen_identities",
			Help:      "Number of event identities currently tracked for dedup",
		}),
		cycleDur: prometheus.NewSummary(prometheus.SummaryOpts{
			Namespace: "prbeacon",
			Name:      "poll_cycle_duration_seconds",
			Help:      "Time spent per poll cycle",
		}),
	}

	prometheus.MustRegister(
		e.cycles, e.cycleErrors, e.events,
		e.dropped, e.seenSize, e.cycleDur,
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	e.server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return e
}

func (e *Exporter) Serve() error                       { return e.server.ListenAndServe() }
func (e *Exporter) Shutdown(ctx context.Context) error { return e.server.Shutdown(ctx) }

// CycleComplete records one finished cycle and the current dedup set size.
func (e *Exporter) CycleComplete(seen int, dur time.Duration) {
	if e == nil {
		return
	}
	e.cycles.Inc()
	e.seenSize.Set(float64(seen))
	e.cycleDur.Observe(dur.Seconds())
}

// CycleError counts one failure in the given stage ("discovery" or "collect").
func (e *Exporter) CycleError(stage string) {
	if e == nil {
		return
	}
	e.cycleErrors.WithLabelValues(stage).Inc()
}

// Event counts one newly admitted event.
func (e *Exporter) Event(kind model.EventKind) {
	if e == nil {
		return
	}
	e.events.WithLabelValues(string(kind)).Inc()
}

// NotificationDropped counts one notification lost to a device failure.
func (e *Exporter) NotificationDropped() {
	if e == nil {
		return
	}
	e.dropped.Inc()
}
