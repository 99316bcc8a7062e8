package container_test

import (
	"sync"

	"github.com/km-arc/summer/framework/container"
)

// ── fixtures ──────────────────────────────────────────────────────────────────

type Repo interface{ Find() string }

type memRepo struct{ name string }

func (m *memRepo) Find() string { return m.name }

type tracedRepo struct{ inner Repo }

func (t *tracedRepo) Find() string { return "traced:" + t.inner.Find() }

type Clock struct{}

type Service struct {
	Repo  Repo
	Clock *Clock
}

type nodeA struct{}
type nodeB struct{}
type nodeC struct{}

// stub defines a bean of type T whose constructor returns a fresh zero
// value. T must be a pointer type.
func stub[T any](name string, deps ...container.Dependency) container.Definition {
	return container.Define(name, func(container.Args) (*T, error) { return new(T), nil }, deps...)
}

func newRepoDef(name string) container.Definition {
	return container.Define(name, func(container.Args) (Repo, error) { return &memRepo{name: name}, nil })
}

func newServiceDef(log *journal) container.Definition {
	return container.Define("service", func(a container.Args) (*Service, error) {
		log.add("ctor:service")
		clock, _ := container.Arg[*Clock](a)
		return &Service{Repo: container.MustArg[Repo](a), Clock: clock}, nil
	}, container.Requires[Repo]().As("Repo"), container.Optional[*Clock]().As("Clock"))
}

// journal records lifecycle steps across goroutines.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(s string) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, s)
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

func (j *journal) index(s string) int {
	for i, e := range j.list() {
		if e == s {
			return i
		}
	}
	return -1
}

// recordingProcessor writes before:/after: entries for every bean except the
// container itself.
func recordingProcessor(j *journal) container.BeanPostProcessor {
	skip := func(name string) bool { return name == "container" }
	return container.PostProcessorFuncs{
		Before: func(bean any, name string) (any, error) {
			if !skip(name) {
				j.add("before:" + name)
			}
			return bean, nil
		},
		After: func(bean any, name string) (any, error) {
			if !skip(name) {
				j.add("after:" + name)
			}
			return bean, nil
		},
	}
}
