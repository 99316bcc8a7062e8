// Package metrics provides Prometheus instrumentation for the container,
// the event multicaster and the HTTP surface.
//
// Each Collector owns its own registry, so several applications (or tests)
// can live in one process:
//
//	m := metrics.New("summer")
//	c := container.New(container.WithPostProcessor(m.PostProcessor()))
//	router.Use(m.Middleware())
//	router.Get("/metrics", m.Handler())
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/km-arc/summer/framework/container"
	"github.com/km-arc/summer/framework/typeid"
)

// Collector holds the framework's metric vectors and the registry they are
// registered with.
type Collector struct {
	registry *prometheus.Registry

	BeansCreated    *prometheus.CounterVec
	BuildDuration   prometheus.Histogram
	Builds          *prometheus.CounterVec
	EventsPublished *prometheus.CounterVec
	ListenerErrors  *prometheus.CounterVec

	RequestDuration *prometheus.HistogramVec
	RequestTotal    *prometheus.CounterVec
	RequestInFlight prometheus.Gauge
}

// New returns a Collector whose metrics are prefixed with namespace.
func New(namespace string) *Collector {
	m := &Collector{
		registry: prometheus.NewRegistry(),

		// Container
		BeansCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "container",
			Name:      "beans_created_total",
			Help:      "Total number of beans instantiated, by declared type.",
		}, []string{"type"}),
		BuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "container",
			Name:      "build_duration_seconds",
			Help:      "Duration of container builds in seconds.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}),
		Builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "container",
			Name:      "builds_total",
			Help:      "Total container builds by result.",
		}, []string{"result"}), // "success" | "failure"

		// Events
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Total events published, by event type.",
		}, []string{"event"}),
		ListenerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "listener_errors_total",
			Help:      "Total publishes that ended with a listener error, by event type.",
		}, []string{"event"}),

		// HTTP
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		RequestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		RequestInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being served.",
		}),
	}

	// Go runtime metrics (GC, goroutines, memory)
	m.registry.MustRegister(collectors.NewGoCollector())
	m.registry.MustRegister(
		m.BeansCreated,
		m.BuildDuration,
		m.Builds,
		m.EventsPublished,
		m.ListenerErrors,
		m.RequestDuration,
		m.RequestTotal,
		m.RequestInFlight,
	)
	return m
}

// Registry returns the Prometheus registry backing the Collector.
func (m *Collector) Registry() *prometheus.Registry { return m.registry }

// Register adds an application collector to the registry.
func (m *Collector) Register(c prometheus.Collector) error {
	return m.registry.Register(c)
}

// ── Container hooks ──────────────────────────────────────────────────────────

// PostProcessor returns a bean post-processor that counts every bean as it
// completes initialisation.
func (m *Collector) PostProcessor() container.BeanPostProcessor {
	return container.PostProcessorFuncs{
		After: func(bean any, name string) (any, error) {
			m.BeansCreated.WithLabelValues(typeid.OfValue(bean).String()).Inc()
			return bean, nil
		},
	}
}

// ObserveBuild records one container build:
//
//	start := time.Now()
//	err := c.Build()
//	m.ObserveBuild(time.Since(start), err)
func (m *Collector) ObserveBuild(d time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.Builds.WithLabelValues(result).Inc()
	m.BuildDuration.Observe(d.Seconds())
}

// ObserveEvent matches event.Observer and counts each publish.
func (m *Collector) ObserveEvent(id typeid.ID, _ int, err error) {
	m.EventsPublished.WithLabelValues(id.String()).Inc()
	if err != nil {
		m.ListenerErrors.WithLabelValues(id.String()).Inc()
	}
}

// ── HTTP middleware ──────────────────────────────────────────────────────────

// responseRecorder wraps http.ResponseWriter to capture the status code.
type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records duration, count and in-flight requests. Requests are
// labelled with the chi route pattern rather than the raw path to keep
// cardinality bounded.
func (m *Collector) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			m.RequestInFlight.Inc()
			defer m.RequestInFlight.Dec()

			rr := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rr, r)

			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			status := strconv.Itoa(rr.status)
			m.RequestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
			m.RequestTotal.WithLabelValues(r.Method, route, status).Inc()
		})
	}
}

// Handler exposes the registry in the Prometheus text and OpenMetrics
// formats. Mount it on GET /metrics.
func (m *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
