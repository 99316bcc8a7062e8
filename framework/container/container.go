package container

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/km-arc/summer/framework/config"
	"github.com/km-arc/summer/framework/event"
	"github.com/km-arc/summer/framework/typeid"
)

// state is the container lifecycle: building → ready → closed, or
// building → failed.
type state int32

const (
	stateBuilding state = iota
	stateReady
	stateFailed
	stateClosed
)

func (s state) String() string {
	switch s {
	case stateBuilding:
		return "building"
	case stateReady:
		return "ready"
	case stateFailed:
		return "failed"
	case stateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// ── Container ─────────────────────────────────────────────────────────────────

// Container is the IoC container. It owns the bean registry, the
// post-processor chains, the configuration resolver and the event
// multicaster.
//
// Beans are registered while the container is building. Build instantiates
// every singleton in dependency order and flips the container to ready;
// only then do lookups succeed. Beans registered after Build are created on
// first lookup.
type Container struct {
	registry *Registry
	log      *zap.Logger
	cfg      config.Resolver
	events   *event.Multicaster

	procMu            sync.RWMutex
	processors        []BeanPostProcessor
	factoryProcessors []FactoryPostProcessor

	lifecycleMu sync.Mutex
	state       atomic.Int32
	buildErr    error
}

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the container's logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(c *Container) {
		if log != nil {
			c.log = log
		}
	}
}

// WithConfig sets the configuration resolver exposed through Config.
func WithConfig(r config.Resolver) Option {
	return func(c *Container) {
		if r != nil {
			c.cfg = r
		}
	}
}

// WithMulticaster replaces the container's event multicaster.
func WithMulticaster(m *event.Multicaster) Option {
	return func(c *Container) {
		if m != nil {
			c.events = m
		}
	}
}

// WithPostProcessor appends a bean post-processor.
func WithPostProcessor(p BeanPostProcessor) Option {
	return func(c *Container) { c.processors = append(c.processors, p) }
}

// WithFactoryPostProcessor appends a factory post-processor.
func WithFactoryPostProcessor(p FactoryPostProcessor) Option {
	return func(c *Container) { c.factoryProcessors = append(c.factoryProcessors, p) }
}

// New creates an empty container in the building state.
func New(opts ...Option) *Container {
	c := &Container{
		registry: NewRegistry(),
		log:      zap.NewNop(),
		cfg:      config.NewMapResolver(nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.events == nil {
		c.events = event.NewMulticaster(event.WithLogger(c.log))
	}
	// Bind the container to itself. Cannot fail on an empty registry.
	_ = c.registry.Register(Instance("container", c))
	return c
}

// ── Registration ──────────────────────────────────────────────────────────────

// Register adds bean definitions. It stops at the first failure; definitions
// before it stay registered.
//
//	err := c.Register(
//	    container.Define("repo", NewRepo),
//	    container.Define("service", NewService, container.Requires[*Repo]()),
//	)
func (c *Container) Register(defs ...Definition) error {
	if c.current() == stateClosed {
		return ErrClosed
	}
	for _, def := range defs {
		if c.current() == stateReady {
			ok, err := c.admits(def)
			if err != nil {
				return err
			}
			if !ok {
				c.log.Debug("bean skipped by condition", zap.String("bean", def.Name))
				continue
			}
		}
		if err := c.registry.Register(def); err != nil {
			return err
		}
		c.log.Debug("bean registered",
			zap.String("bean", def.Name),
			zap.Stringer("type", def.Type),
			zap.Int("dependencies", len(def.Dependencies)))
		if c.current() == stateReady {
			c.log.Info("bean registered after build, created on first lookup", zap.String("bean", def.Name))
		}
	}
	return nil
}

// AddPostProcessor appends a bean post-processor. It applies to beans
// created after the call.
func (c *Container) AddPostProcessor(p BeanPostProcessor) {
	c.procMu.Lock()
	defer c.procMu.Unlock()
	c.processors = append(c.processors, p)
}

// AddFactoryPostProcessor appends a factory post-processor. It only takes
// effect if added before Build.
func (c *Container) AddFactoryPostProcessor(p FactoryPostProcessor) {
	c.procMu.Lock()
	defer c.procMu.Unlock()
	c.factoryProcessors = append(c.factoryProcessors, p)
}

// Extend decorates the bean registered under name once it is initialised.
// The decorator's result replaces the bean and must keep its declared type.
//
//	container.Extend(c, "mailer", func(m Mailer) (Mailer, error) {
//	    return &RetryingMailer{Inner: m}, nil
//	})
func Extend[T any](c *Container, name string, decorate func(T) (T, error)) {
	c.AddPostProcessor(PostProcessorFuncs{
		After: func(bean any, beanName string) (any, error) {
			if beanName != name {
				return bean, nil
			}
			v, ok := bean.(T)
			if !ok {
				return nil, &TypeMismatchError{Bean: name, Expected: typeid.Of[T]().String(), Got: fmt.Sprintf("%T", bean)}
			}
			return decorate(v)
		},
	})
}

func (c *Container) postProcessors() []BeanPostProcessor {
	c.procMu.RLock()
	defer c.procMu.RUnlock()
	return slices.Clone(c.processors)
}

// ── Build ─────────────────────────────────────────────────────────────────────

// Build runs the factory post-processors, drops definitions whose
// conditions do not match, orders the remaining definitions by
// dependency and instantiates every singleton, then publishes
// event.ContextRefreshed.
//
// Build is idempotent once it has succeeded. A failed Build leaves the
// container unusable: every later call returns the same error.
func (c *Container) Build() error {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	switch c.current() {
	case stateReady:
		return nil
	case stateFailed:
		return c.buildErr
	case stateClosed:
		return ErrClosed
	}

	start := time.Now()
	if err := c.build(); err != nil {
		c.buildErr = err
		c.state.Store(int32(stateFailed))
		c.log.Error("container build failed", zap.Error(err))
		return err
	}
	c.state.Store(int32(stateReady))
	c.log.Info("container ready",
		zap.Int("beans", c.registry.Len()),
		zap.Duration("took", time.Since(start)))

	if err := event.Publish(context.Background(), c.events, event.NewContextRefreshed(c)); err != nil {
		return fmt.Errorf("container: publishing context refreshed: %w", err)
	}
	return nil
}

func (c *Container) build() error {
	c.procMu.RLock()
	fps := slices.Clone(c.factoryProcessors)
	c.procMu.RUnlock()
	for _, fp := range fps {
		if err := fp.PostProcessDefinitions(c.registry); err != nil {
			return fmt.Errorf("container: factory post-processor %T: %w", fp, err)
		}
	}

	if err := c.applyConditions(); err != nil {
		return err
	}

	defs := c.registry.Definitions()
	order, err := TopologicalOrder(defs)
	if err != nil {
		return err
	}

	g := newTypeGraph(defs)
	r := &resolution{}
	for _, id := range order {
		for _, def := range g.byType[id] {
			if _, err := c.instantiate(def.Name, r, c.resolveFromCache); err != nil {
				return err
			}
		}
	}
	return nil
}

// ── Instantiation ─────────────────────────────────────────────────────────────

// argResolver produces the arguments for a definition.
type argResolver func(def Definition, r *resolution) (Args, error)

// instantiate returns the singleton for name, constructing it if needed.
// Exactly one chain constructs a given name; concurrent callers wait for it
// and share the result.
func (c *Container) instantiate(name string, r *resolution, resolve argResolver) (any, error) {
	for {
		if inst, ok := c.registry.Singleton(name); ok {
			return inst, nil
		}

		f, owner, cycle := c.registry.creating.acquire(name, r)
		if cycle != nil {
			return nil, &CircularDependencyError{Bean: name, Chain: cycle}
		}

		if !owner {
			<-f.done
			c.registry.creating.stopWaiting(r)
			if inst, ok := c.registry.Singleton(name); ok {
				return inst, nil
			}
			if f.err != nil {
				return nil, f.err
			}
			// The owner finished without caching anything; try again.
			continue
		}

		// Another chain may have finished between the cache miss and acquire.
		if inst, ok := c.registry.Singleton(name); ok {
			c.registry.creating.release(name, r, f, nil)
			return inst, nil
		}

		return c.constructOwned(name, r, f, resolve)
	}
}

// constructOwned runs construct for the chain that owns f and always
// releases name, also when a constructor, hook or post-processor panics.
// A panic becomes an *InstantiationError and waiters see it as f.err.
func (c *Container) constructOwned(name string, r *resolution, f *flight, resolve argResolver) (inst any, err error) {
	defer func() {
		if p := recover(); p != nil {
			c.log.Error("bean construction panicked",
				zap.String("bean", name),
				zap.Any("panic", p),
				zap.Stack("stack"))
			inst, err = nil, &InstantiationError{Bean: name, Stage: "construct", Err: fmt.Errorf("panic: %v", p)}
		}
		c.registry.creating.release(name, r, f, err)
	}()
	return c.construct(name, r, resolve)
}

// construct runs the full pipeline for one bean: arguments, constructor,
// before-init processors, init hook, after-init processors, type check and
// caching.
func (c *Container) construct(name string, r *resolution, resolve argResolver) (any, error) {
	def, ok := c.registry.Definition(name)
	if !ok {
		return nil, &NotFoundError{Name: name}
	}

	start := time.Now()
	args, err := resolve(def, r)
	if err != nil {
		return nil, err
	}
	args.provider = &chainProvider{c: c, r: r}

	inst, err := def.Construct(args)
	if err != nil {
		return nil, &InstantiationError{Bean: name, Stage: "construct", Err: err}
	}
	if inst, err = c.initialize(def, inst); err != nil {
		return nil, err
	}

	stored, fresh := c.registry.storeSingleton(name, inst)
	if fresh {
		c.log.Debug("bean created",
			zap.String("bean", name),
			zap.Stringer("type", def.Type),
			zap.Duration("took", time.Since(start)))
	}
	return stored, nil
}

func (c *Container) initialize(def Definition, inst any) (any, error) {
	procs := c.postProcessors()
	var err error

	for _, p := range procs {
		if inst, err = p.BeforeInit(inst, def.Name); err != nil {
			return nil, &InstantiationError{Bean: def.Name, Stage: "before-init", Err: err}
		}
	}
	if def.InitHook != "" {
		if err := callHook(inst, def.InitHook); err != nil {
			return nil, &InstantiationError{Bean: def.Name, Stage: "init", Err: err}
		}
	}
	for _, p := range procs {
		if inst, err = p.AfterInit(inst, def.Name); err != nil {
			return nil, &InstantiationError{Bean: def.Name, Stage: "after-init", Err: err}
		}
	}

	if !def.Type.AssignableFrom(inst) {
		return nil, &InstantiationError{Bean: def.Name, Stage: "after-init", Err: &TypeMismatchError{
			Bean:     def.Name,
			Expected: def.Type.String(),
			Got:      fmt.Sprintf("%T", inst),
		}}
	}
	return inst, nil
}

// resolveFromCache collects a definition's dependencies from the singleton
// cache. It is used by Build, where the topological order guarantees every
// dependency has already been created.
func (c *Container) resolveFromCache(def Definition, _ *resolution) (Args, error) {
	var args Args
	for _, dep := range def.Dependencies {
		names := c.registry.NamesForType(dep.Type)
		switch {
		case len(names) == 0:
			if dep.Required {
				return Args{}, &DependencyResolutionError{Bean: def.Name, Type: dep.Type, Err: &NotFoundError{Type: dep.Type}}
			}
			continue
		case len(names) > 1:
			return Args{}, &DependencyResolutionError{Bean: def.Name, Type: dep.Type, Err: &MultipleBeansError{Type: dep.Type, Names: names}}
		}

		inst, ok := c.registry.Singleton(names[0])
		if !ok {
			return Args{}, &DependencyResolutionError{Bean: def.Name, Type: dep.Type}
		}
		args.deps = append(args.deps, dep)
		args.values = append(args.values, inst)
	}
	return args, nil
}

// resolveDynamic collects a definition's dependencies by looking each one up,
// creating it on demand. It is used for beans created after Build.
func (c *Container) resolveDynamic(def Definition, r *resolution) (Args, error) {
	var args Args
	for _, dep := range def.Dependencies {
		inst, err := c.getByType(dep.Type, r)
		if err != nil {
			if nf, ok := err.(*NotFoundError); ok && !dep.Required && nf.Type == dep.Type {
				continue
			}
			return Args{}, &DependencyResolutionError{Bean: def.Name, Type: dep.Type, Err: err}
		}
		args.deps = append(args.deps, dep)
		args.values = append(args.values, inst)
	}
	return args, nil
}

// ── Shutdown ──────────────────────────────────────────────────────────────────

// Close publishes event.ContextClosed, then runs destroy hooks in reverse
// creation order and empties the singleton cache. Every hook runs; their
// errors are joined. Close is idempotent.
func (c *Container) Close() error {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	if c.current() == stateClosed {
		return nil
	}

	var errs []error
	if err := event.Publish(context.Background(), c.events, event.NewContextClosed(c)); err != nil {
		errs = append(errs, fmt.Errorf("container: publishing context closed: %w", err))
	}
	c.state.Store(int32(stateClosed))

	names, instances := c.registry.drainSingletons()
	for _, name := range slices.Backward(names) {
		def, ok := c.registry.Definition(name)
		if !ok || def.DestroyHook == "" {
			continue
		}
		if err := callHook(instances[name], def.DestroyHook); err != nil {
			errs = append(errs, fmt.Errorf("container: destroying bean %q: %w", name, err))
			continue
		}
		c.log.Debug("bean destroyed", zap.String("bean", name))
	}

	c.log.Info("container closed", zap.Int("beans", len(names)))
	return errors.Join(errs...)
}

// ── Accessors ─────────────────────────────────────────────────────────────────

func (c *Container) current() state { return state(c.state.Load()) }

// Ready reports whether Build has succeeded and Close has not been called.
func (c *Container) Ready() bool { return c.current() == stateReady }

// State returns the lifecycle state name: building, ready, failed or closed.
func (c *Container) State() string { return c.current().String() }

// Registry returns the bean registry.
func (c *Container) Registry() *Registry { return c.registry }

// Config returns the configuration resolver.
func (c *Container) Config() config.Resolver { return c.cfg }

// Events returns the event multicaster.
func (c *Container) Events() *event.Multicaster { return c.events }

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger { return c.log }

// CreationOrder returns the names of instantiated beans in the order they
// were created.
func (c *Container) CreationOrder() []string { return c.registry.CreationOrder() }

// ── Events ────────────────────────────────────────────────────────────────────

// PublishEvent publishes e on the container's multicaster.
func PublishEvent[E any](ctx context.Context, c *Container, e E) error {
	return event.Publish(ctx, c.events, e)
}

// AddListener subscribes l to events of type E on the container's
// multicaster and returns its index.
func AddListener[E any](c *Container, l event.Listener[E]) int {
	return event.Subscribe(c.events, l)
}
