package container

import (
	"errors"
	"fmt"
	"strings"

	"github.com/km-arc/summer/framework/typeid"
)

var (
	// ErrNotReady is returned by lookups made before Build has succeeded.
	ErrNotReady = errors.New("container: not ready")

	// ErrClosed is returned by Build and lookups after Close.
	ErrClosed = errors.New("container: closed")

	// ErrAlreadyInstantiated is returned when a factory post-processor tries
	// to replace or remove a definition whose singleton already exists.
	ErrAlreadyInstantiated = errors.New("container: bean already instantiated")
)

// ── Registration errors ───────────────────────────────────────────────────────

// DuplicateBeanError is returned by Register when the bean name is taken.
type DuplicateBeanError struct {
	Name string
}

func (e *DuplicateBeanError) Error() string {
	return fmt.Sprintf("container: bean %q already registered", e.Name)
}

// InvalidDefinitionError reports a definition that can never be built.
type InvalidDefinitionError struct {
	Name   string
	Reason string
	Err    error // ErrAlreadyInstantiated for Replace and Remove, else nil
}

func (e *InvalidDefinitionError) Error() string {
	return fmt.Sprintf("container: invalid definition %q: %s", e.Name, e.Reason)
}

func (e *InvalidDefinitionError) Unwrap() error { return e.Err }

// ── Graph errors ──────────────────────────────────────────────────────────────

// CycleError is returned when the declared dependencies form a cycle.
// Path lists the bean names on the traversal stack, ending with the bean
// that closed the cycle.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "container: dependency cycle: " + strings.Join(e.Path, " -> ")
}

// MissingDependencyError is returned when a required dependency type has no
// registered definition.
type MissingDependencyError struct {
	Bean  string
	Type  typeid.ID
	Field string
}

func (e *MissingDependencyError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("container: bean %q requires %s (field %s) but no bean of that type is registered", e.Bean, e.Type, e.Field)
	}
	return fmt.Sprintf("container: bean %q requires %s but no bean of that type is registered", e.Bean, e.Type)
}

// ── Instantiation errors ──────────────────────────────────────────────────────

// DependencyResolutionError is an internal inconsistency found while wiring
// a bean during Build: a required dependency the ordering promised is not
// available, or is ambiguous.
type DependencyResolutionError struct {
	Bean string
	Type typeid.ID
	Err  error
}

func (e *DependencyResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("container: resolving %s for bean %q: %v", e.Type, e.Bean, e.Err)
	}
	return fmt.Sprintf("container: resolving %s for bean %q: not instantiated", e.Type, e.Bean)
}

func (e *DependencyResolutionError) Unwrap() error { return e.Err }

// InstantiationError wraps a failure of a bean's constructor, a
// post-processor or an init hook.
type InstantiationError struct {
	Bean  string
	Stage string
	Err   error
}

func (e *InstantiationError) Error() string {
	return fmt.Sprintf("container: instantiating bean %q (%s): %v", e.Bean, e.Stage, e.Err)
}

func (e *InstantiationError) Unwrap() error { return e.Err }

// ── Lookup errors ─────────────────────────────────────────────────────────────

// NotFoundError is returned when no bean matches a name or a type.
type NotFoundError struct {
	Name string
	Type typeid.ID
}

func (e *NotFoundError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("container: no bean named %q", e.Name)
	}
	return fmt.Sprintf("container: no bean of type %s", e.Type)
}

// MultipleBeansError is returned by type lookups that match more than one bean.
type MultipleBeansError struct {
	Type  typeid.ID
	Names []string
}

func (e *MultipleBeansError) Error() string {
	return fmt.Sprintf("container: %d beans of type %s (%s); look up by name instead",
		len(e.Names), e.Type, strings.Join(e.Names, ", "))
}

// TypeMismatchError is returned when a bean does not convert to the
// requested type.
type TypeMismatchError struct {
	Bean     string
	Expected string
	Got      string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("container: bean %q: type mismatch: expected %s, got %s", e.Bean, e.Expected, e.Got)
}

// CircularDependencyError is the lookup-time cycle guard: a bean was
// requested while its own construction was still in progress.
type CircularDependencyError struct {
	Bean  string
	Chain []string
}

func (e *CircularDependencyError) Error() string {
	if len(e.Chain) == 0 {
		return fmt.Sprintf("container: circular dependency on bean %q", e.Bean)
	}
	return fmt.Sprintf("container: circular dependency on bean %q: %s", e.Bean, strings.Join(e.Chain, " -> "))
}
