package container

import (
	"fmt"
	"reflect"

	"github.com/km-arc/summer/framework/typeid"
)

// ── Metadata model ────────────────────────────────────────────────────────────

// Scope is a bean lifecycle. Only process-wide singletons are supported.
type Scope int

const (
	// ScopeSingleton shares a single instance for the container's lifetime.
	ScopeSingleton Scope = iota
)

func (s Scope) String() string {
	if s == ScopeSingleton {
		return "singleton"
	}
	return fmt.Sprintf("Scope(%d)", int(s))
}

// Dependency is one edge from a bean to a dependency type.
type Dependency struct {
	Type     typeid.ID
	Field    string
	Required bool
}

// Requires declares a required dependency on T.
func Requires[T any]() Dependency {
	return Dependency{Type: typeid.Of[T](), Required: true}
}

// Optional declares a dependency on T that may be absent.
func Optional[T any]() Dependency {
	return Dependency{Type: typeid.Of[T]()}
}

// As names the field the dependency is injected into, for diagnostics.
func (d Dependency) As(field string) Dependency {
	d.Field = field
	return d
}

// Constructor builds a bean from its resolved dependencies.
type Constructor func(args Args) (any, error)

// Definition is the declarative description of one bean.
//
// A Definition is immutable once registered; Register rejects a second
// definition with the same Name.
type Definition struct {
	Name         string
	Type         typeid.ID
	Scope        Scope
	Dependencies []Dependency
	InitHook     string
	DestroyHook  string
	Construct    Constructor
	// Conditions gate registration; see When.
	Conditions []Condition
}

// Define builds a Definition for a bean of type T.
//
//	container.Define("greeter", func(a container.Args) (*Greeter, error) {
//	    repo, err := container.RequireArg[*Repo](a)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return &Greeter{Repo: repo}, nil
//	}, container.Requires[*Repo]())
func Define[T any](name string, ctor func(Args) (T, error), deps ...Dependency) Definition {
	var construct Constructor
	if ctor != nil {
		construct = func(a Args) (any, error) {
			v, err := ctor(a)
			if err != nil {
				return nil, err
			}
			return v, nil
		}
	}
	return Definition{
		Name:         name,
		Type:         typeid.Of[T](),
		Scope:        ScopeSingleton,
		Dependencies: deps,
		Construct:    construct,
	}
}

// Instance builds a Definition for a value that already exists.
//
//	c.Register(container.Instance("config", cfg))
func Instance[T any](name string, value T) Definition {
	return Define(name, func(Args) (T, error) { return value, nil })
}

// WithInit returns a copy of d that calls the named method after
// construction. The method must have the signature func() or func() error.
func (d Definition) WithInit(method string) Definition {
	d.InitHook = method
	return d
}

// WithDestroy returns a copy of d that calls the named method on Close.
func (d Definition) WithDestroy(method string) Definition {
	d.DestroyHook = method
	return d
}

// validate rejects definitions that can never be built.
func (d Definition) validate() error {
	switch {
	case d.Name == "":
		return &InvalidDefinitionError{Name: d.Name, Reason: "empty name"}
	case d.Type.IsZero():
		return &InvalidDefinitionError{Name: d.Name, Reason: "missing type identity"}
	case d.Construct == nil:
		return &InvalidDefinitionError{Name: d.Name, Reason: "nil constructor"}
	case d.Scope != ScopeSingleton:
		return &InvalidDefinitionError{Name: d.Name, Reason: "unsupported scope " + d.Scope.String()}
	}
	for i, dep := range d.Dependencies {
		if dep.Type.IsZero() {
			return &InvalidDefinitionError{Name: d.Name, Reason: fmt.Sprintf("dependency %d has no type", i)}
		}
	}
	return nil
}

func (d Definition) clone() Definition {
	d.Dependencies = append([]Dependency(nil), d.Dependencies...)
	d.Conditions = append([]Condition(nil), d.Conditions...)
	return d
}

// ── Arguments ─────────────────────────────────────────────────────────────────

// Args is what a Constructor receives: the resolved dependencies in
// declaration order (absent optional ones are omitted) and a Provider for
// collaborators fetched at construction time.
type Args struct {
	deps     []Dependency
	values   []any
	provider Provider
}

// Len returns the number of resolved dependencies.
func (a Args) Len() int { return len(a.values) }

// At returns the i-th resolved dependency.
func (a Args) At(i int) any { return a.values[i] }

// Values returns the resolved dependencies.
func (a Args) Values() []any { return append([]any(nil), a.values...) }

// Lookup returns the resolved value declared with type id.
func (a Args) Lookup(id typeid.ID) (any, bool) {
	for i, d := range a.deps {
		if d.Type == id {
			return a.values[i], true
		}
	}
	return nil, false
}

// Field returns the resolved value declared with the given field name.
func (a Args) Field(name string) (any, bool) {
	for i, d := range a.deps {
		if d.Field == name {
			return a.values[i], true
		}
	}
	return nil, false
}

// Provider returns the lookup handle bound to the current construction.
// Lookups through it take part in circular-dependency detection.
func (a Args) Provider() Provider { return a.provider }

// Arg returns the resolved dependency of type T. It matches the declared
// type first, then any resolved value assignable to T.
func Arg[T any](a Args) (T, bool) {
	if v, ok := a.Lookup(typeid.Of[T]()); ok {
		if t, ok := v.(T); ok {
			return t, true
		}
	}
	for _, v := range a.values {
		if t, ok := v.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}

// RequireArg is Arg for dependencies the constructor cannot work without.
func RequireArg[T any](a Args) (T, error) {
	if v, ok := Arg[T](a); ok {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("container: argument of type %s not resolved", reflect.TypeFor[T]())
}

// MustArg is RequireArg for constructors whose dependency is declared with
// Requires, where a missing argument cannot happen.
func MustArg[T any](a Args) T {
	v, err := RequireArg[T](a)
	if err != nil {
		panic(err)
	}
	return v
}
