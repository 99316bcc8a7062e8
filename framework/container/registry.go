package container

import (
	"slices"
	"sync"

	"github.com/km-arc/summer/framework/typeid"
)

// Registry holds bean definitions, the by-type index and the singleton cache.
//
// Each mapping has its own lock so that lookups of unrelated beans do not
// serialise on one another. Mutations that touch several mappings always
// take the locks in the order defMu → typeMu → singletonMu.
type Registry struct {
	defMu       sync.RWMutex
	definitions map[string]Definition
	order       []string

	typeMu sync.RWMutex
	byType map[typeid.ID][]string

	singletonMu sync.RWMutex
	singletons  map[string]any
	created     []string

	creating *creationGuard
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		definitions: make(map[string]Definition),
		byType:      make(map[typeid.ID][]string),
		singletons:  make(map[string]any),
		creating:    newCreationGuard(),
	}
}

// ── Definitions ───────────────────────────────────────────────────────────────

// Register adds a definition. It fails with *DuplicateBeanError if the name
// is taken, leaving the registry untouched. Dependencies are not checked
// here; they are validated when the container is built.
func (r *Registry) Register(def Definition) error {
	if err := def.validate(); err != nil {
		return err
	}
	def = def.clone()

	r.defMu.Lock()
	defer r.defMu.Unlock()
	if _, exists := r.definitions[def.Name]; exists {
		return &DuplicateBeanError{Name: def.Name}
	}

	r.typeMu.Lock()
	r.definitions[def.Name] = def
	r.order = append(r.order, def.Name)
	r.byType[def.Type] = append(r.byType[def.Type], def.Name)
	r.typeMu.Unlock()
	return nil
}

// Definition returns the definition registered under name.
func (r *Registry) Definition(name string) (Definition, bool) {
	r.defMu.RLock()
	defer r.defMu.RUnlock()
	def, ok := r.definitions[name]
	if !ok {
		return Definition{}, false
	}
	return def.clone(), true
}

// Names returns all bean names in registration order.
func (r *Registry) Names() []string {
	r.defMu.RLock()
	defer r.defMu.RUnlock()
	return slices.Clone(r.order)
}

// Definitions returns a snapshot of all definitions in registration order.
func (r *Registry) Definitions() []Definition {
	r.defMu.RLock()
	defer r.defMu.RUnlock()
	out := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.definitions[name].clone())
	}
	return out
}

// NamesForType returns the bean names declared with type id, in
// registration order. The result may be empty.
func (r *Registry) NamesForType(id typeid.ID) []string {
	r.typeMu.RLock()
	defer r.typeMu.RUnlock()
	return slices.Clone(r.byType[id])
}

// Len returns the number of registered definitions.
func (r *Registry) Len() int {
	r.defMu.RLock()
	defer r.defMu.RUnlock()
	return len(r.order)
}

// Replace swaps the definition registered under def.Name. It is meant for
// factory post-processors and refuses beans that are already instantiated.
func (r *Registry) Replace(def Definition) error {
	if err := def.validate(); err != nil {
		return err
	}
	def = def.clone()

	r.defMu.Lock()
	defer r.defMu.Unlock()
	old, ok := r.definitions[def.Name]
	if !ok {
		return &NotFoundError{Name: def.Name}
	}
	if _, built := r.Singleton(def.Name); built {
		return &InvalidDefinitionError{Name: def.Name, Reason: "already instantiated", Err: ErrAlreadyInstantiated}
	}

	r.typeMu.Lock()
	if old.Type != def.Type {
		r.unindex(old)
		r.byType[def.Type] = append(r.byType[def.Type], def.Name)
	}
	r.definitions[def.Name] = def
	r.typeMu.Unlock()
	return nil
}

// Remove drops a definition that has not been instantiated.
func (r *Registry) Remove(name string) error {
	r.defMu.Lock()
	defer r.defMu.Unlock()
	def, ok := r.definitions[name]
	if !ok {
		return &NotFoundError{Name: name}
	}
	if _, built := r.Singleton(name); built {
		return &InvalidDefinitionError{Name: name, Reason: "already instantiated", Err: ErrAlreadyInstantiated}
	}

	r.typeMu.Lock()
	r.unindex(def)
	delete(r.definitions, name)
	r.order = slices.DeleteFunc(r.order, func(n string) bool { return n == name })
	r.typeMu.Unlock()
	return nil
}

// unindex removes def from the by-type index. Caller holds typeMu.
func (r *Registry) unindex(def Definition) {
	names := slices.DeleteFunc(r.byType[def.Type], func(n string) bool { return n == def.Name })
	if len(names) == 0 {
		delete(r.byType, def.Type)
		return
	}
	r.byType[def.Type] = names
}

// ── Singleton cache ───────────────────────────────────────────────────────────

// Singleton returns the cached instance for name, if it has been built.
func (r *Registry) Singleton(name string) (any, bool) {
	r.singletonMu.RLock()
	defer r.singletonMu.RUnlock()
	inst, ok := r.singletons[name]
	return inst, ok
}

// storeSingleton caches inst under name unless another caller got there
// first, in which case the existing instance is returned and inst is
// discarded.
func (r *Registry) storeSingleton(name string, inst any) (any, bool) {
	r.singletonMu.Lock()
	defer r.singletonMu.Unlock()
	if existing, ok := r.singletons[name]; ok {
		return existing, false
	}
	r.singletons[name] = inst
	r.created = append(r.created, name)
	return inst, true
}

// InCreation reports whether name is being constructed right now.
func (r *Registry) InCreation(name string) bool {
	return r.creating.inCreation(name)
}

// CreationOrder returns the names of instantiated beans in the order their
// construction completed.
func (r *Registry) CreationOrder() []string {
	r.singletonMu.RLock()
	defer r.singletonMu.RUnlock()
	return slices.Clone(r.created)
}

// drainSingletons empties the cache and returns the instances in creation order.
func (r *Registry) drainSingletons() ([]string, map[string]any) {
	r.singletonMu.Lock()
	defer r.singletonMu.Unlock()
	names, instances := r.created, r.singletons
	r.created = nil
	r.singletons = make(map[string]any)
	return names, instances
}
