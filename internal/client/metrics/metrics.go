// Package metrics exposes Prometheus counters for the sync layer.
//
// All recording methods are safe on a nil *Metrics, so components can be
// built without metrics in tests.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "contentiq"

type Metrics struct {
	archiveOps   *prometheus.CounterVec
	pulls        *prometheus.CounterVec
	analyses     *prometheus.CounterVec
	historySize  prometheus.Gauge
	queueDropped prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		archiveOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_operations_total",
			Help:      "Remote archive operations by operation and result.",
		}, []string{"op", "result"}),
		pulls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_pulls_total",
			Help:      "Reconciliation pulls by outcome.",
		}, []string{"outcome"}),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Analysis runs by kind and result.",
		}, []string{"kind", "result"}),
		historySize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "history_items",
			Help:      "Items in the local history collection.",
		}),
		queueDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_queue_dropped_total",
			Help:      "Remote writes dropped because the queue was full or closed.",
		}),
	}
	reg.MustRegister(m.archiveOps, m.pulls, m.analyses, m.historySize, m.queueDropped)
	return m
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) ArchiveOp(op string, err error) {
	if m == nil {
		return
	}
	m.archiveOps.WithLabelValues(op, result(err)).Inc()
}

func (m *Metrics) Pull(outcome string) {
	if m == nil {
		return
	}
	m.pulls.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Analysis(kind string, err error) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(kind, result(err)).Inc()
}

func (m *Metrics) HistorySize(n int) {
	if m == nil {
		return
	}
	m.historySize.Set(float64(n))
}

func (m *Metrics) QueueDropped() {
	if m == nil {
		return
	}
	m.queueDropped.Inc()
}

// Serve exposes g on addr at /metrics until ctx is done.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
