package config_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/summer/framework/config"
)

// failingResolver always errors.
type failingResolver struct{ err error }

func (f failingResolver) Resolve(string) (string, bool, error) { return "", false, f.err }

// notFoundResolver reports misses as *NotFoundError instead of ok=false.
type notFoundResolver struct{}

func (notFoundResolver) Resolve(key string) (string, bool, error) {
	return "", false, &config.NotFoundError{Key: key}
}

// ── MapResolver ──────────────────────────────────────────────────────────────

func TestMapResolver_ResolveAndSet(t *testing.T) {
	seed := map[string]string{"a": "1"}
	r := config.NewMapResolver(seed)
	seed["a"] = "changed"

	v, ok, err := r.Resolve("a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", v, "resolver must copy its seed")

	r.Set("b", "2")
	v, ok, _ = r.Resolve("b")
	assert.True(t, ok)
	assert.Equal(t, "2", v)

	_, ok, _ = r.Resolve("missing")
	assert.False(t, ok)
}

// ── ResolveAs ────────────────────────────────────────────────────────────────

func TestResolveAs_Scalars(t *testing.T) {
	r := config.NewMapResolver(map[string]string{
		"port":  "8080",
		"debug": "true",
		"ratio": "0.5",
		"name":  "svc",
	})

	port, err := config.ResolveAs[int](r, "port")
	require.NoError(t, err)
	assert.Equal(t, 8080, port)

	debug, err := config.ResolveAs[bool](r, "debug")
	require.NoError(t, err)
	assert.True(t, debug)

	ratio, err := config.ResolveAs[float64](r, "ratio")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, ratio, 1e-9)

	name, err := config.ResolveAs[string](r, "name")
	require.NoError(t, err)
	assert.Equal(t, "svc", name)
}

func TestResolveAs_JSONDocument(t *testing.T) {
	type limits struct {
		Burst int `yaml:"burst"`
		Rate  int `yaml:"rate"`
	}
	d, err := config.NewDotenvResolver("testdata/app.env")
	require.NoError(t, err)

	got, err := config.ResolveAs[limits](d, "feature.limits")
	require.NoError(t, err)
	assert.Equal(t, limits{Burst: 10, Rate: 2}, got)
}

func TestResolveAs_NotFound(t *testing.T) {
	_, err := config.ResolveAs[int](config.NewMapResolver(nil), "port")

	var nf *config.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "port", nf.Key)
}

func TestResolveAs_ParseError(t *testing.T) {
	r := config.NewMapResolver(map[string]string{"port": "eighty"})

	_, err := config.ResolveAs[int](r, "port")

	var pe *config.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "port", pe.Key)
	assert.Error(t, errors.Unwrap(err))
}

func TestResolveOr(t *testing.T) {
	r := config.NewMapResolver(map[string]string{"a": "x"})

	v, err := config.ResolveOr(r, "a", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "x", v)

	v, err = config.ResolveOr(r, "b", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "fallback", v)
}

// ── EnvResolver ──────────────────────────────────────────────────────────────

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "APP_PORT", config.EnvKey("app.port"))
	assert.Equal(t, "SERVER_SHUTDOWN_TIMEOUT", config.EnvKey("server.shutdown-timeout"))
}

func TestEnvResolver_Prefix(t *testing.T) {
	t.Setenv("SUMMER_APP_PORT", "9000")
	t.Setenv("APP_PORT", "1")

	v, ok, err := config.EnvResolver{Prefix: "SUMMER_"}.Resolve("app.port")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "9000", v)
}

func TestEnvResolver_EmptyIsMissing(t *testing.T) {
	t.Setenv("EMPTY_KEY", "")
	_, ok, err := config.EnvResolver{}.Resolve("empty.key")
	require.NoError(t, err)
	assert.False(t, ok)
}

// ── DotenvResolver ───────────────────────────────────────────────────────────

func TestDotenvResolver_DoesNotTouchEnvironment(t *testing.T) {
	t.Setenv("APP_NAME", "")

	d, err := config.NewDotenvResolver("testdata/app.env", "testdata/missing.env")
	require.NoError(t, err)
	assert.Equal(t, 4, d.Len())

	v, ok, _ := d.Resolve("app.name")
	assert.True(t, ok)
	assert.Equal(t, "FromDotenv", v)

	_, ok, _ = config.EnvResolver{}.Resolve("app.name")
	assert.False(t, ok)
}

// ── CompositeResolver ────────────────────────────────────────────────────────

func TestCompositeResolver_FirstHitWins(t *testing.T) {
	high := config.NewMapResolver(map[string]string{"k": "high"})
	low := config.NewMapResolver(map[string]string{"k": "low", "only-low": "x"})
	c := config.NewCompositeResolver(high).Add(low)

	v, ok, err := c.Resolve("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "high", v)

	v, _, _ = c.Resolve("only-low")
	assert.Equal(t, "x", v)

	_, ok, err = c.Resolve("nowhere")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCompositeResolver_SkipsNotFoundErrors(t *testing.T) {
	c := config.NewCompositeResolver(notFoundResolver{}, config.NewMapResolver(map[string]string{"k": "v"}))

	v, ok, err := c.Resolve("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestCompositeResolver_OtherErrorsAbort(t *testing.T) {
	boom := errors.New("vault unavailable")
	c := config.NewCompositeResolver(failingResolver{err: boom}, config.NewMapResolver(map[string]string{"k": "v"}))

	_, _, err := c.Resolve("k")
	assert.ErrorIs(t, err, boom)
}
