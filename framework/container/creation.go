package container

import (
	"slices"
	"sync"
)

// resolution is one lookup call chain: the beans it is constructing, outermost
// first, and the bean it is currently waiting on (if another chain owns it).
// Both fields are guarded by creationGuard.mu.
type resolution struct {
	chain   []string
	waiting string
}

// flight is an in-progress construction.
type flight struct {
	owner *resolution
	done  chan struct{}
	err   error
}

// creationGuard is the in-creation set. Presence test and insertion happen
// under one lock, so exactly one chain ever owns the construction of a name.
type creationGuard struct {
	mu      sync.Mutex
	flights map[string]*flight
}

func newCreationGuard() *creationGuard {
	return &creationGuard{flights: make(map[string]*flight)}
}

// acquire claims name for r. It returns owner=true when r must construct the
// bean. Otherwise it returns the flight to wait on, or a non-nil cycle when
// waiting would never finish: r itself, or a chain r's flights block, already
// owns name.
func (g *creationGuard) acquire(name string, r *resolution) (f *flight, owner bool, cycle []string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if f, ok := g.flights[name]; ok {
		if g.blocksOn(f.owner, r) {
			return nil, false, append(slices.Clone(r.chain), name)
		}
		r.waiting = name
		return f, false, nil
	}

	f = &flight{owner: r, done: make(chan struct{})}
	g.flights[name] = f
	r.chain = append(r.chain, name)
	return f, true, nil
}

// blocksOn follows the waits-for edges starting at owner and reports whether
// they lead back to r. Caller holds g.mu.
func (g *creationGuard) blocksOn(owner, r *resolution) bool {
	seen := make(map[*resolution]bool)
	for owner != nil && !seen[owner] {
		if owner == r {
			return true
		}
		seen[owner] = true
		next, ok := g.flights[owner.waiting]
		if owner.waiting == "" || !ok {
			return false
		}
		owner = next.owner
	}
	return false
}

// stopWaiting clears r's waits-for edge once the awaited flight has landed.
func (g *creationGuard) stopWaiting(r *resolution) {
	g.mu.Lock()
	r.waiting = ""
	g.mu.Unlock()
}

// release removes name from the in-creation set, success or failure, and
// wakes every waiter.
func (g *creationGuard) release(name string, r *resolution, f *flight, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	f.err = err
	delete(g.flights, name)
	if n := len(r.chain); n > 0 && r.chain[n-1] == name {
		r.chain = r.chain[:n-1]
	} else {
		r.chain = slices.DeleteFunc(r.chain, func(s string) bool { return s == name })
	}
	close(f.done)
}

// inCreation reports whether name is currently being constructed.
func (g *creationGuard) inCreation(name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.flights[name]
	return ok
}
