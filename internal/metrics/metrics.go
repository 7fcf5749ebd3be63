package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the worker's Prometheus collectors. All methods are safe
// on a nil receiver so components can run without instrumentation.
type Metrics struct {
	messages *prometheus.CounterVec
	duration *prometheus.HistogramVec
	pages    *prometheus.CounterVec
	routed   *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docworker",
			Name:      "messages_total",
			Help:      "Messages handled, by worker and final broker outcome.",
		}, []string{"worker", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "docworker",
			Name:      "message_duration_seconds",
			Help:      "Time from delivery to ack/nack.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"worker"}),
		pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docworker",
			Name:      "pages_extracted_total",
			Help:      "Pages run through text recognition, by execution mode.",
		}, []string{"mode"}),
		routed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docworker",
			Name:      "results_routed_total",
			Help:      "Extraction results by delivery route (inline or external).",
		}, []string{"route"}),
	}
	reg.MustRegister(m.messages, m.duration, m.pages, m.routed)
	return m
}

func (m *Metrics) ObserveMessage(worker, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(worker, outcome).Inc()
	m.duration.WithLabelValues(worker).Observe(elapsed.Seconds())
}

func (m *Metrics) AddPages(mode string, n int) {
	if m == nil {
		return
	}
	m.pages.WithLabelValues(mode).Add(float64(n))
}

func (m *Metrics) ObserveRoute(route string) {
	if m == nil {
		return
	}
	m.routed.WithLabelValues(route).Inc()
}

// Serve exposes the registry on addr until ctx is canceled.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("Serving metrics.", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Metrics listener stopped", "error", err)
	}
}
