// Package container provides the IoC container and Service Provider system.
//
// # Overview
//
// The container manages the instantiation and lifecycle of your application's
// singletons. Each bean is described by a Definition: a unique name, the type
// it is exposed as, the types it depends on and a constructor. Because Go has
// no runtime constructor reflection, wiring is declared explicitly.
//
// # Container Lifecycle
//
//  1. Create: c := container.New(container.WithLogger(log))
//  2. Register beans, directly or through providers
//  3. Build: c.Build() orders the beans by dependency and creates them all
//  4. Look beans up: container.Get[*Service](c)
//  5. Close: c.Close() runs destroy hooks in reverse creation order
//
// # Definitions
//
//	// Constructor with a required and an optional dependency
//	c.Register(container.Define("service",
//	    func(a container.Args) (*Service, error) {
//	        repo, err := container.RequireArg[Repository](a)
//	        if err != nil {
//	            return nil, err
//	        }
//	        clock, _ := container.Arg[Clock](a) // nil when no Clock is registered
//	        return &Service{Repo: repo, Clock: clock}, nil
//	    },
//	    container.Requires[Repository]().As("Repo"),
//	    container.Optional[Clock]().As("Clock"),
//	).WithInit("Start").WithDestroy("Stop"))
//
//	// Pre-built value
//	c.Register(container.Instance("config", cfg))
//
// # Build
//
// Build sorts the bean types so every type comes after its dependencies,
// failing with *CycleError or *MissingDependencyError when that is
// impossible. Each bean then goes through its constructor, the BeforeInit
// post-processors, its init hook and the AfterInit post-processors, and is
// cached. A dependency type with more than one bean is an error; look such
// beans up by name inside the constructor through Args.Provider.
//
// # Resolving
//
//	raw, err := c.GetByName("service")
//	svc, err := container.Get[*Service](c)             // by type
//	db, err := container.GetNamed[*sql.DB](c, "replica") // by name, typed
//
// # Post-processors
//
//	c.AddPostProcessor(container.PostProcessorFuncs{
//	    After: func(bean any, name string) (any, error) { return bean, nil },
//	})
//	container.Extend(c, "mailer", func(m Mailer) (Mailer, error) { return &Retrying{m}, nil })
//
// # Service Providers
//
//	type AppServiceProvider struct{ container.BaseProvider }
//
//	func (p *AppServiceProvider) Register(c *container.Container) error {
//	    return c.Register(container.Define("mailer", NewSMTPMailer, container.Requires[*config.Config]()))
//	}
//
//	registry := container.NewProviderRegistry(c)
//	registry.Register(&AppServiceProvider{})
//	registry.Boot() // builds the container, then boots every provider
package container
