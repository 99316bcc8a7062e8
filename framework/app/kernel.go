// Package app is the application kernel: it loads configuration, builds
// the logger and metrics, and wires the framework providers into a
// container before user providers are added.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/km-arc/summer/framework/config"
	"github.com/km-arc/summer/framework/container"
	"github.com/km-arc/summer/framework/event"
	"github.com/km-arc/summer/framework/logging"
	"github.com/km-arc/summer/framework/metrics"
	"github.com/km-arc/summer/framework/providers"
	"github.com/km-arc/summer/framework/routing"
)

// Options configures New. The zero value loads .env and the environment.
type Options struct {
	// EnvFiles are the dotenv files to read; default ".env".
	EnvFiles []string
	// Config and Resolver skip loading when Config is set.
	Config   *config.Config
	Resolver config.Resolver
	// Logger replaces the logger built from Config.
	Logger *zap.Logger
}

// Application is the top-level application container. It embeds the IoC
// Container and ProviderRegistry so user code can call app.Register(provider)
// and container.Get[T](app) directly.
type Application struct {
	*container.Container
	Providers *container.ProviderRegistry

	cfg     *config.Config
	log     *zap.Logger
	metrics *metrics.Collector
}

// New creates the application and registers the framework providers.
func New(opts Options) (*Application, error) {
	cfg, resolver := opts.Config, opts.Resolver
	if cfg == nil {
		var err error
		if cfg, resolver, err = config.Load(opts.EnvFiles...); err != nil {
			return nil, err
		}
	}

	log := opts.Logger
	if log == nil {
		var err error
		if log, err = logging.New(cfg); err != nil {
			return nil, err
		}
	}

	var m *metrics.Collector
	eventOpts := []event.Option{event.WithLogger(logging.Named(log, "events"))}
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics.Namespace)
		eventOpts = append(eventOpts, event.WithObserver(m.ObserveEvent))
	}

	containerLog := logging.Named(log, "container")
	containerOpts := []container.Option{
		container.WithLogger(containerLog),
		container.WithConfig(resolver),
		container.WithMulticaster(event.NewMulticaster(eventOpts...)),
	}
	if cfg.App.Debug {
		containerOpts = append(containerOpts, container.WithPostProcessor(container.LoggingPostProcessor{Log: containerLog}))
	}
	c := container.New(containerOpts...)
	a := &Application{
		Container: c,
		Providers: container.NewProviderRegistry(c),
		cfg:       cfg,
		log:       log,
		metrics:   m,
	}

	core := []container.ServiceProvider{
		&providers.ConfigProvider{Config: cfg, Resolver: resolver},
		&providers.LoggingProvider{Logger: log},
	}
	if m != nil {
		core = append(core, &providers.MetricsProvider{Collector: m})
	}
	core = append(core, &providers.RoutingProvider{})
	for _, p := range core {
		if err := a.Providers.Register(p); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Register adds a ServiceProvider to the application.
func (a *Application) Register(p container.ServiceProvider) error {
	return a.Providers.Register(p)
}

// Boot builds the container, boots every provider and publishes
// ApplicationStarted. Calling Boot again after it succeeded is a no-op.
func (a *Application) Boot(ctx context.Context) error {
	if a.Providers.Booted() {
		return nil
	}
	start := time.Now()
	err := a.Providers.Boot()
	if a.metrics != nil {
		a.metrics.ObserveBuild(time.Since(start), err)
	}
	if err != nil {
		a.log.Error("boot failed", zap.Error(err))
		return err
	}
	a.log.Info("application booted",
		zap.Int("beans", a.Registry().Len()),
		zap.Duration("took", time.Since(start)))
	return container.PublishEvent(ctx, a.Container, event.NewApplicationStarted(a))
}

// Run boots the application if needed and serves HTTP on Server.Addr until
// ctx is cancelled, then shuts the server down and closes the container.
func (a *Application) Run(ctx context.Context) error {
	if err := a.Boot(ctx); err != nil {
		return err
	}
	router, err := a.Router()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              a.cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		a.log.Info("http server listening", zap.String("addr", srv.Addr))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return errors.Join(fmt.Errorf("app: serve: %w", err), a.Close())
		}
		return a.Close()
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	a.log.Info("http server shutting down")
	var errs []error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("app: shutdown: %w", err))
	}
	errs = append(errs, a.Close())
	return errors.Join(errs...)
}

// Close closes the container, running destroy hooks, and flushes the logger.
func (a *Application) Close() error {
	err := a.Container.Close()
	_ = a.log.Sync()
	return err
}

// Config returns the typed configuration.
func (a *Application) Config() *config.Config { return a.cfg }

// Metrics returns the collector, or nil when metrics are disabled.
func (a *Application) Metrics() *metrics.Collector { return a.metrics }

// Router resolves the HTTP router. The application must be booted.
func (a *Application) Router() (*routing.Router, error) {
	return container.Get[*routing.Router](a.Container)
}

func (a *Application) Environment() string { return a.cfg.App.Env }
func (a *Application) IsProduction() bool  { return a.cfg.IsProduction() }
func (a *Application) IsDebug() bool       { return a.cfg.App.Debug }
