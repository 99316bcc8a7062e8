package container

import (
	"fmt"

	"github.com/km-arc/summer/framework/typeid"
)

// Provider looks beans up by name or by type.
//
// *Container is a Provider, and so is the handle a constructor receives
// through Args.Provider. Lookups through the latter join the caller's
// construction chain, so a constructor that asks for a bean still being
// built further up the chain gets a *CircularDependencyError instead of a
// deadlock.
type Provider interface {
	GetByName(name string) (any, error)
	GetByType(id typeid.ID) (any, error)
}

var (
	_ Provider = (*Container)(nil)
	_ Provider = (*chainProvider)(nil)
)

// GetByName returns the bean registered under name, creating it if it was
// registered after Build.
func (c *Container) GetByName(name string) (any, error) {
	if err := c.checkReady(); err != nil {
		return nil, err
	}
	return c.getByName(name, &resolution{})
}

// GetByType returns the single bean declared with type id. It fails with
// *MultipleBeansError when more than one bean has that type.
func (c *Container) GetByType(id typeid.ID) (any, error) {
	if err := c.checkReady(); err != nil {
		return nil, err
	}
	return c.getByType(id, &resolution{})
}

// ContainsName reports whether a bean named name is registered.
func (c *Container) ContainsName(name string) bool {
	_, ok := c.registry.Definition(name)
	return ok
}

// Contains reports whether at least one bean of type id is registered.
func (c *Container) Contains(id typeid.ID) bool {
	return len(c.registry.NamesForType(id)) > 0
}

func (c *Container) checkReady() error {
	switch c.current() {
	case stateReady:
		return nil
	case stateClosed:
		return ErrClosed
	}
	return ErrNotReady
}

func (c *Container) getByName(name string, r *resolution) (any, error) {
	if inst, ok := c.registry.Singleton(name); ok {
		return inst, nil
	}
	if !c.ContainsName(name) {
		return nil, &NotFoundError{Name: name}
	}
	return c.instantiate(name, r, c.resolveDynamic)
}

func (c *Container) getByType(id typeid.ID, r *resolution) (any, error) {
	names := c.registry.NamesForType(id)
	switch len(names) {
	case 0:
		return nil, &NotFoundError{Type: id}
	case 1:
		return c.getByName(names[0], r)
	}
	return nil, &MultipleBeansError{Type: id, Names: names}
}

// chainProvider is the Provider handed to a constructor. It resolves within
// the construction chain that is running the constructor and skips the
// readiness check, since it is used while Build is still in progress.
type chainProvider struct {
	c *Container
	r *resolution
}

func (p *chainProvider) GetByName(name string) (any, error) {
	if p.c.current() == stateClosed {
		return nil, ErrClosed
	}
	return p.c.getByName(name, p.r)
}

func (p *chainProvider) GetByType(id typeid.ID) (any, error) {
	if p.c.current() == stateClosed {
		return nil, ErrClosed
	}
	return p.c.getByType(id, p.r)
}

// ── Generic helpers ───────────────────────────────────────────────────────────

// Get returns the single bean of type T.
//
//	svc, err := container.Get[*GreetingService](c)
func Get[T any](p Provider) (T, error) {
	var zero T
	v, err := p.GetByType(typeid.Of[T]())
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, &TypeMismatchError{Expected: typeid.Of[T]().String(), Got: fmt.Sprintf("%T", v)}
	}
	return t, nil
}

// GetNamed returns the bean registered under name, converted to T.
//
//	primary, err := container.GetNamed[*sql.DB](c, "primaryDB")
func GetNamed[T any](p Provider, name string) (T, error) {
	var zero T
	v, err := p.GetByName(name)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, &TypeMismatchError{Bean: name, Expected: typeid.Of[T]().String(), Got: fmt.Sprintf("%T", v)}
	}
	return t, nil
}

// MustGet is Get that panics on error. Use it at bootstrap, where a missing
// bean is a programming error.
func MustGet[T any](p Provider) T {
	v, err := Get[T](p)
	if err != nil {
		panic(err)
	}
	return v
}

// Contains reports whether c has at least one bean declared with type T.
func Contains[T any](c *Container) bool {
	return c.Contains(typeid.Of[T]())
}
