// Package providers holds the service providers the application kernel
// registers before any user provider.
package providers

import (
	"go.uber.org/zap"

	"github.com/km-arc/summer/framework/actuator"
	"github.com/km-arc/summer/framework/config"
	"github.com/km-arc/summer/framework/container"
	"github.com/km-arc/summer/framework/logging"
	"github.com/km-arc/summer/framework/metrics"
	"github.com/km-arc/summer/framework/routing"
)

// ── ConfigProvider ────────────────────────────────────────────────────────────

// ConfigProvider registers the loaded configuration.
//
// Beans:
//   - "config"          → *config.Config
//   - "configResolver"  → config.Resolver
type ConfigProvider struct {
	container.BaseProvider
	Config   *config.Config
	Resolver config.Resolver
}

func (p *ConfigProvider) Register(c *container.Container) error {
	defs := []container.Definition{container.Instance("config", p.Config)}
	if p.Resolver != nil {
		defs = append(defs, container.Instance("configResolver", p.Resolver))
	}
	return c.Register(defs...)
}

func (p *ConfigProvider) Provides() []string { return []string{"config", "configResolver"} }

// ── LoggingProvider ───────────────────────────────────────────────────────────

// LoggingProvider registers the root logger.
//
// Beans:
//   - "logger"  → *zap.Logger
type LoggingProvider struct {
	container.BaseProvider
	Logger *zap.Logger
}

func (p *LoggingProvider) Register(c *container.Container) error {
	log := p.Logger
	if log == nil {
		log = logging.Nop()
	}
	return c.Register(container.Instance("logger", log))
}

func (p *LoggingProvider) Provides() []string { return []string{"logger"} }

// ── MetricsProvider ───────────────────────────────────────────────────────────

// MetricsProvider registers the Prometheus collector and counts every bean
// the container creates from then on.
//
// Beans:
//   - "metrics"  → *metrics.Collector
type MetricsProvider struct {
	container.BaseProvider
	Collector *metrics.Collector
}

func (p *MetricsProvider) Register(c *container.Container) error {
	c.AddPostProcessor(p.Collector.PostProcessor())
	return c.Register(container.Instance("metrics", p.Collector))
}

func (p *MetricsProvider) Provides() []string { return []string{"metrics"} }

// ── RoutingProvider ───────────────────────────────────────────────────────────

// RoutingProvider registers the HTTP router and, once the container is
// ready, mounts the actuator endpoints on it. When a *metrics.Collector bean
// exists the router records request metrics and serves GET /metrics.
//
// Beans:
//   - "router"  → *routing.Router
type RoutingProvider struct {
	container.BaseProvider
}

func (p *RoutingProvider) Register(c *container.Container) error {
	return c.Register(container.Define("router", newRouter,
		container.Optional[*zap.Logger]().As("Logger"),
		container.Optional[*metrics.Collector]().As("Metrics"),
	))
}

func newRouter(a container.Args) (*routing.Router, error) {
	log, _ := container.Arg[*zap.Logger](a)
	r := routing.New(logging.Named(log, "http"))
	if m, ok := container.Arg[*metrics.Collector](a); ok {
		r.Middleware(m.Middleware())
		r.Get("/metrics", m.Handler().ServeHTTP)
	}
	return r, nil
}

func (p *RoutingProvider) Boot(c *container.Container) error {
	router, err := container.Get[*routing.Router](c)
	if err != nil {
		return err
	}
	actuator.New(c, router, logging.Named(c.Logger(), "actuator")).Mount(router)
	return nil
}

func (p *RoutingProvider) Provides() []string { return []string{"router"} }
