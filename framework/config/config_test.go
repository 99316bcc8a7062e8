package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/summer/framework/config"
)

// ── Load ─────────────────────────────────────────────────────────────────────

func TestLoad_Defaults(t *testing.T) {
	cfg, _, err := config.Load("testdata/empty.env")
	require.NoError(t, err)

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"App.Name", cfg.App.Name, "summer"},
		{"App.Env", cfg.App.Env, "local"},
		{"App.Debug", cfg.App.Debug, true},
		{"Log.Level", cfg.Log.Level, "info"},
		{"Metrics.Enabled", cfg.Metrics.Enabled, true},
		{"Metrics.Namespace", cfg.Metrics.Namespace, "summer"},
		{"Server.Port", cfg.Server.Port, 8000},
		{"Server.ShutdownTimeout", cfg.Server.ShutdownTimeout, 10 * time.Second},
		{"Server.Addr", cfg.Server.Addr(), ":8000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestLoad_DotenvOverridesDefaults(t *testing.T) {
	cfg, r, err := config.Load("testdata/app.env")
	require.NoError(t, err)

	assert.Equal(t, "FromDotenv", cfg.App.Name)
	assert.Equal(t, 9100, cfg.Server.Port)

	hosts, err := config.ResolveAs[[]string](r, "cache.hosts")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, hosts)
}

func TestLoad_LaterFilesWin(t *testing.T) {
	cfg, _, err := config.Load("testdata/app.env", "testdata/override.env")
	require.NoError(t, err)
	assert.Equal(t, 9200, cfg.Server.Port)
}

func TestLoad_EnvOverridesDotenv(t *testing.T) {
	t.Setenv("APP_NAME", "MyApp")
	t.Setenv("APP_ENV", "production")
	t.Setenv("SERVER_PORT", "9300")
	t.Setenv("APP_DEBUG", "false")

	cfg, _, err := config.Load("testdata/app.env")
	require.NoError(t, err)

	assert.Equal(t, "MyApp", cfg.App.Name)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 9300, cfg.Server.Port)
	assert.False(t, cfg.App.Debug)
}

func TestLoad_MissingFileIsIgnored(t *testing.T) {
	_, _, err := config.Load("testdata/does-not-exist.env")
	assert.NoError(t, err)
}

func TestLoad_InvalidValueFailsValidation(t *testing.T) {
	t.Setenv("SERVER_PORT", "eighty")

	_, _, err := config.Load("testdata/empty.env")

	var verr *config.ValidationErrors
	require.ErrorAs(t, err, &verr)
	assert.NotEmpty(t, verr.First("server.port"))
}

func TestFromResolver_BadDuration(t *testing.T) {
	r := config.NewMapResolver(map[string]string{
		"app.name":                "svc",
		"app.env":                 "testing",
		"server.port":             "8080",
		"server.shutdown-timeout": "soon",
	})

	_, err := config.FromResolver(r)

	var verr *config.ValidationErrors
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.First("server.shutdown-timeout"), "duration")
}

func TestFromResolver_MinimalMap(t *testing.T) {
	r := config.NewMapResolver(map[string]string{
		"app.name":    "svc",
		"app.env":     "testing",
		"server.port": "8081",
	})

	cfg, err := config.FromResolver(r)
	require.NoError(t, err)

	assert.Equal(t, "svc", cfg.App.Name)
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.True(t, cfg.Metrics.Enabled)
}
