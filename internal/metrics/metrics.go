// Package metrics exposes event bus and frame loop metrics to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/dshills/demon/internal/event"
)

// Namespace prefixes every metric name.
const Namespace = "demon"

// Metrics holds the collectors updated by the runtime.
type Metrics struct {
	// FrameDuration is the time spent in one loop frame.
	FrameDuration prometheus.Histogram

	// InputEvents counts events produced by the input source, by kind.
	InputEvents *prometheus.CounterVec

	// ScriptErrors counts runtime script failures, by script.
	ScriptErrors *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates a registry holding the runtime collectors and collectors that
// read bus counters at scrape time.
func New(bus *event.Bus) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		FrameDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "frame_duration_seconds",
			Help:      "Time spent running one frame",
			Buckets:   []float64{.0005, .001, .002, .004, .008, .016, .033, .066},
		}),
		InputEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "input_events_total",
			Help:      "Total number of input events queued",
		}, []string{"kind"}),
		ScriptErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "script_errors_total",
			Help:      "Total number of runtime script failures",
		}, []string{"script"}),
		registry: reg,
	}

	registerBus(factory, bus)
	return m
}

func registerBus(factory promauto.Factory, bus *event.Bus) {
	counter := func(name, help string, read func(event.Stats) uint64) {
		factory.NewCounterFunc(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      name,
			Help:      help,
		}, func() float64 {
			return float64(read(bus.Stats()))
		})
	}
	gauge := func(name, help string, read func(event.Stats) int) {
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      name,
			Help:      help,
		}, func() float64 {
			return float64(read(bus.Stats()))
		})
	}

	counter("events_triggered_total", "Total number of events triggered immediately",
		func(s event.Stats) uint64 { return s.EventsTriggered })
	counter("events_queued_total", "Total number of events queued",
		func(s event.Stats) uint64 { return s.EventsQueued })
	counter("events_dispatched_total", "Total number of queued events dispatched",
		func(s event.Stats) uint64 { return s.EventsDispatched })
	counter("handlers_executed_total", "Total number of handler invocations",
		func(s event.Stats) uint64 { return s.HandlersExecuted })
	counter("handler_errors_total", "Total number of handler invocations that failed",
		func(s event.Stats) uint64 { return s.HandlerErrors })
	gauge("subscriptions", "Current number of subscriptions",
		func(s event.Stats) int { return s.Subscriptions })
	gauge("pending_events", "Current number of queued events",
		func(s event.Stats) int { return s.Pending })
}

// ObserveFrame records one frame duration.
func (m *Metrics) ObserveFrame(d time.Duration) {
	m.FrameDuration.Observe(d.Seconds())
}

// Registry returns the registry holding every collector.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string, logger zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()

	logger.Info().Str("addr", addr).Msg("metrics server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
		return err
	}
	return nil
}
