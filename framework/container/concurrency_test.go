package container_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/km-arc/summer/framework/container"
)

type slowBean struct{ id int64 }

func TestConcurrentFirstAccess_SingleConstruction(t *testing.T) {
	var constructed atomic.Int64
	c := container.New()
	require.NoError(t, c.Register(newRepoDef("repo")))
	require.NoError(t, c.Build())

	// Registered after Build so that the first lookups race to create it.
	require.NoError(t, c.Register(container.Define("slow", func(a container.Args) (*slowBean, error) {
		time.Sleep(20 * time.Millisecond)
		return &slowBean{id: constructed.Add(1)}, nil
	}, container.Requires[Repo]())))

	const callers = 32
	results := make([]*slowBean, callers)
	var g errgroup.Group
	for i := range callers {
		g.Go(func() error {
			b, err := container.Get[*slowBean](c)
			results[i] = b
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int64(1), constructed.Load())
	for _, b := range results {
		assert.Same(t, results[0], b)
	}
}

func TestConcurrentFirstAccess_FailureSharedAndRetried(t *testing.T) {
	var attempts atomic.Int64
	c := container.New()
	require.NoError(t, c.Build())
	require.NoError(t, c.Register(container.Define("flaky", func(container.Args) (*slowBean, error) {
		time.Sleep(10 * time.Millisecond)
		if attempts.Add(1) == 1 {
			return nil, assert.AnError
		}
		return &slowBean{}, nil
	})))

	var g errgroup.Group
	for range 8 {
		g.Go(func() error {
			_, err := c.GetByName("flaky")
			return err
		})
	}
	assert.ErrorIs(t, g.Wait(), assert.AnError)

	// Failures are not cached; a later lookup constructs again.
	b, err := container.Get[*slowBean](c)
	require.NoError(t, err)
	assert.NotNil(t, b)
}

func TestInCreation_ClearedAfterFailure(t *testing.T) {
	c := container.New()
	require.NoError(t, c.Build())

	var during bool
	require.NoError(t, c.Register(container.Define("inspected", func(container.Args) (*slowBean, error) {
		during = c.Registry().InCreation("inspected")
		return nil, assert.AnError
	})))
	_, err := c.GetByName("inspected")

	assert.ErrorIs(t, err, assert.AnError)
	assert.True(t, during)
	assert.False(t, c.Registry().InCreation("inspected"))
}

func TestPanickingConstructor_ReleasesGuard(t *testing.T) {
	var calls atomic.Int64
	c := container.New()
	require.NoError(t, c.Build())
	require.NoError(t, c.Register(container.Define("volatile", func(container.Args) (*slowBean, error) {
		if calls.Add(1) == 1 {
			panic("first call explodes")
		}
		return &slowBean{}, nil
	})))

	_, err := c.GetByName("volatile")

	var inst *container.InstantiationError
	require.ErrorAs(t, err, &inst)
	assert.Equal(t, "construct", inst.Stage)
	assert.Contains(t, err.Error(), "first call explodes")
	assert.False(t, c.Registry().InCreation("volatile"))

	done := make(chan error, 1)
	go func() {
		_, err := c.GetByName("volatile")
		done <- err
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("lookup after a panicking constructor blocked")
	}
	assert.Equal(t, int64(2), calls.Load())
}

func TestPanickingInitHook_FailsBuild(t *testing.T) {
	c := container.New()
	require.NoError(t, c.Register(container.Define("hooked", func(container.Args) (*panicky, error) {
		return &panicky{}, nil
	}).WithInit("Init")))

	err := c.Build()

	var inst *container.InstantiationError
	require.ErrorAs(t, err, &inst)
	assert.Equal(t, "hooked", inst.Bean)
	assert.False(t, c.Registry().InCreation("hooked"))
}

type panicky struct{}

func (*panicky) Init() { panic("init exploded") }

func TestConcurrentCrossChainCycle_NoDeadlock(t *testing.T) {
	c := container.New()
	require.NoError(t, c.Build())
	require.NoError(t, c.Register(
		slowLookupDef[nodeA]("x", "y"),
		slowLookupDef[nodeB]("y", "x"),
	))

	var g errgroup.Group
	errs := make([]error, 2)
	for i, name := range []string{"x", "y"} {
		g.Go(func() error {
			_, errs[i] = c.GetByName(name)
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("concurrent cyclic lookups deadlocked")
	}

	for _, err := range errs {
		var circular *container.CircularDependencyError
		assert.ErrorAs(t, err, &circular)
	}
}

// slowLookupDef is lookupDef with a pause before the lookup, so that two
// callers each own one end of the cycle before either asks for the other.
func slowLookupDef[T any](name, target string) container.Definition {
	return container.Define(name, func(a container.Args) (*T, error) {
		time.Sleep(20 * time.Millisecond)
		if _, err := a.Provider().GetByName(target); err != nil {
			return nil, err
		}
		return new(T), nil
	})
}
