package metrics_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/summer/framework/container"
	"github.com/km-arc/summer/framework/metrics"
	"github.com/km-arc/summer/framework/typeid"
)

// sample returns the value of the metric family name whose labels include
// every pair in labels, or -1 if there is none.
func sample(t *testing.T, m *metrics.Collector, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
	metric:
		for _, metric := range f.GetMetric() {
			got := map[string]string{}
			for _, lp := range metric.GetLabel() {
				got[lp.GetName()] = lp.GetValue()
			}
			for k, v := range labels {
				if got[k] != v {
					continue metric
				}
			}
			switch {
			case metric.GetCounter() != nil:
				return metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				return metric.GetGauge().GetValue()
			case metric.GetHistogram() != nil:
				return float64(metric.GetHistogram().GetSampleCount())
			}
		}
	}
	return -1
}

type widget struct{}

func TestPostProcessor_CountsBeans(t *testing.T) {
	m := metrics.New("test")
	c := container.New(container.WithPostProcessor(m.PostProcessor()))
	require.NoError(t, c.Register(
		container.Define("w1", func(container.Args) (*widget, error) { return &widget{}, nil }),
		container.Define("w2", func(container.Args) (*widget, error) { return &widget{}, nil }),
	))
	require.NoError(t, c.Build())

	assert.Equal(t, 2.0, sample(t, m, "test_container_beans_created_total", map[string]string{"type": "*metrics_test.widget"}))
	assert.Equal(t, 1.0, sample(t, m, "test_container_beans_created_total", map[string]string{"type": "*container.Container"}))
}

func TestObserveBuild(t *testing.T) {
	m := metrics.New("test")
	m.ObserveBuild(10*time.Millisecond, nil)
	m.ObserveBuild(time.Millisecond, errors.New("boom"))
	m.ObserveBuild(time.Millisecond, nil)

	assert.Equal(t, 2.0, sample(t, m, "test_container_builds_total", map[string]string{"result": "success"}))
	assert.Equal(t, 1.0, sample(t, m, "test_container_builds_total", map[string]string{"result": "failure"}))
	assert.Equal(t, 3.0, sample(t, m, "test_container_build_duration_seconds", nil))
}

func TestObserveEvent(t *testing.T) {
	m := metrics.New("test")
	id := typeid.Of[widget]()
	m.ObserveEvent(id, 2, nil)
	m.ObserveEvent(id, 2, errors.New("listener failed"))

	assert.Equal(t, 2.0, sample(t, m, "test_events_published_total", map[string]string{"event": "metrics_test.widget"}))
	assert.Equal(t, 1.0, sample(t, m, "test_events_listener_errors_total", map[string]string{"event": "metrics_test.widget"}))
}

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	m := metrics.New("test")
	r := chi.NewRouter()
	r.Use(m.Middleware())
	r.Get("/users/{id}", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })

	for _, path := range []string{"/users/1", "/users/2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	labels := map[string]string{"method": "GET", "route": "/users/{id}", "status": "418"}
	assert.Equal(t, 2.0, sample(t, m, "test_http_requests_total", labels))
	assert.Equal(t, 2.0, sample(t, m, "test_http_request_duration_seconds", labels))
	assert.Equal(t, 0.0, sample(t, m, "test_http_requests_in_flight", nil))
}

func TestHandler_ExposesRegistry(t *testing.T) {
	m := metrics.New("test")
	m.ObserveBuild(time.Millisecond, nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), "test_container_builds_total")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestCollectorsAreIndependent(t *testing.T) {
	a, b := metrics.New("test"), metrics.New("test")
	a.ObserveBuild(time.Millisecond, nil)

	assert.Equal(t, 1.0, sample(t, a, "test_container_builds_total", map[string]string{"result": "success"}))
	assert.Equal(t, -1.0, sample(t, b, "test_container_builds_total", map[string]string{"result": "success"}))
}
