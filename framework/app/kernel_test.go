package app_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/km-arc/summer/framework/app"
	"github.com/km-arc/summer/framework/config"
	"github.com/km-arc/summer/framework/container"
	"github.com/km-arc/summer/framework/event"
)

func testConfig(metricsEnabled bool) *config.Config {
	return &config.Config{
		App:     config.AppConfig{Name: "kernel-test", Env: "testing"},
		Metrics: config.MetricsConfig{Enabled: metricsEnabled, Namespace: "kt"},
		Server:  config.ServerConfig{Host: "127.0.0.1", Port: 0, ShutdownTimeout: time.Second},
	}
}

type widget struct{ closed bool }

func (w *widget) Close() { w.closed = true }

type widgetProvider struct{ container.BaseProvider }

func (p *widgetProvider) Register(c *container.Container) error {
	return c.Register(container.Define("widget",
		func(container.Args) (*widget, error) { return &widget{}, nil }).WithDestroy("Close"))
}

func TestNew_LoadsFromEnvFiles(t *testing.T) {
	a, err := app.New(app.Options{EnvFiles: []string{"testdata/kernel.env"}, Logger: zap.NewNop()})
	require.NoError(t, err)

	assert.Equal(t, "FromKernelEnv", a.Config().App.Name)
	assert.Equal(t, 9300, a.Config().Server.Port)
	assert.False(t, a.Config().Metrics.Enabled)
	assert.Nil(t, a.Metrics())
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := app.New(app.Options{EnvFiles: []string{"testdata/invalid.env"}, Logger: zap.NewNop()})

	var verrs *config.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.NotEmpty(t, verrs.First("server.port"))
}

func TestBoot(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	a, err := app.New(app.Options{Config: testConfig(true), Logger: zap.New(core)})
	require.NoError(t, err)
	require.NoError(t, a.Register(&widgetProvider{}))

	var started int
	container.AddListener[event.ApplicationStarted](a.Container, event.ListenerFunc[event.ApplicationStarted](
		func(context.Context, event.ApplicationStarted) error {
			started++
			return nil
		}))

	require.NoError(t, a.Boot(context.Background()))
	require.NoError(t, a.Boot(context.Background()))

	assert.True(t, a.Ready())
	assert.Equal(t, 1, started)
	assert.Equal(t, 1, logs.FilterMessage("application booted").Len())

	w, err := container.Get[*widget](a)
	require.NoError(t, err)
	assert.NotNil(t, w)

	router, err := a.Router()
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `kt_container_builds_total{result="success"} 1`)
	assert.Contains(t, rec.Body.String(), "kt_events_published_total")

	require.NoError(t, a.Close())
	assert.True(t, w.closed)
}

type failingProvider struct{ container.BaseProvider }

func (p *failingProvider) Register(c *container.Container) error {
	return c.Register(container.Define("broken", func(container.Args) (*widget, error) {
		return nil, errors.New("no widget today")
	}))
}

func TestNew_DebugLogsBeanInitialisation(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	cfg := testConfig(false)
	cfg.App.Debug = true
	a, err := app.New(app.Options{Config: cfg, Logger: zap.New(core)})
	require.NoError(t, err)
	require.NoError(t, a.Register(&widgetProvider{}))

	require.NoError(t, a.Boot(context.Background()))

	var widgets int
	for _, e := range logs.FilterMessage("bean initialised").All() {
		if e.ContextMap()["bean"] == "widget" {
			widgets++
		}
	}
	assert.Equal(t, 1, widgets)
	assert.Equal(t, "container", logs.FilterMessage("bean initialised").All()[0].LoggerName)
}

func TestBoot_FailureIsLogged(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	a, err := app.New(app.Options{Config: testConfig(false), Logger: zap.New(core)})
	require.NoError(t, err)
	require.NoError(t, a.Register(&failingProvider{}))

	err = a.Boot(context.Background())

	var inst *container.InstantiationError
	require.ErrorAs(t, err, &inst)
	assert.Equal(t, "broken", inst.Bean)
	assert.Equal(t, 1, logs.FilterMessage("boot failed").Len())
	assert.False(t, a.Ready())
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	a, err := app.New(app.Options{Config: testConfig(false), Logger: zap.NewNop()})
	require.NoError(t, err)
	require.NoError(t, a.Register(&widgetProvider{}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, a.Ready, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, "closed", a.State())
}
