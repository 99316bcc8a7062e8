package config

import (
	"fmt"
	"time"
)

// Config is the typed configuration the framework providers read.
// Applications resolve their own keys from the Resolver directly.
type Config struct {
	App     AppConfig
	Log     LogConfig
	Metrics MetricsConfig
	Server  ServerConfig
}

type AppConfig struct {
	Name  string
	Env   string // local | production | testing
	Debug bool
}

type LogConfig struct {
	Level    string // debug | info | warn | error
	Encoding string // console | json; empty picks by App.Env
}

type MetricsConfig struct {
	Enabled   bool
	Namespace string
}

type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string { return fmt.Sprintf("%s:%d", s.Host, s.Port) }

// IsProduction reports whether the app runs with APP_ENV=production.
func (c *Config) IsProduction() bool { return c.App.Env == "production" }

// Defaults are the lowest-priority values in the chain Load builds.
var Defaults = map[string]string{
	"app.name":                "summer",
	"app.env":                 "local",
	"app.debug":               "true",
	"log.level":               "info",
	"metrics.enabled":         "true",
	"metrics.namespace":       "summer",
	"server.host":             "",
	"server.port":             "8000",
	"server.shutdown-timeout": "10s",
}

// Rules validates the keys FromResolver reads.
var Rules = RuleSet{
	"app.name":                "required",
	"app.env":                 "required|in:local,production,testing",
	"app.debug":               "sometimes|boolean",
	"log.level":               "sometimes|in:debug,info,warn,error",
	"log.encoding":            "sometimes|in:console,json",
	"metrics.enabled":         "sometimes|boolean",
	"server.port":             "required|integer|between:1,65535",
	"server.shutdown-timeout": "sometimes|duration",
}

// Load builds the default resolver chain (process environment, then the
// given .env files, then Defaults) and decodes a Config from it.
// Call once at bootstrap: cfg, r, err := config.Load()
func Load(envFiles ...string) (*Config, Resolver, error) {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	dotenv, err := NewDotenvResolver(files...)
	if err != nil {
		return nil, nil, err
	}
	r := NewCompositeResolver(EnvResolver{}, dotenv, NewMapResolver(Defaults))
	cfg, err := FromResolver(r)
	if err != nil {
		return nil, nil, err
	}
	return cfg, r, nil
}

// FromResolver validates r against Rules and decodes a Config from it.
func FromResolver(r Resolver) (*Config, error) {
	if err := Validate(r, Rules); err != nil {
		return nil, err
	}

	var cfg Config
	var err error
	str := func(key, fallback string) string {
		if err != nil {
			return ""
		}
		var v string
		v, err = ResolveOr(r, key, fallback)
		return v
	}
	cfg.App = AppConfig{
		Name: str("app.name", "summer"),
		Env:  str("app.env", "local"),
	}
	cfg.Log = LogConfig{
		Level:    str("log.level", "info"),
		Encoding: str("log.encoding", ""),
	}
	cfg.Metrics.Namespace = str("metrics.namespace", "summer")
	cfg.Server.Host = str("server.host", "")
	if err != nil {
		return nil, err
	}

	if cfg.App.Debug, err = resolveDefault(r, "app.debug", true); err != nil {
		return nil, err
	}
	if cfg.Metrics.Enabled, err = resolveDefault(r, "metrics.enabled", true); err != nil {
		return nil, err
	}
	if cfg.Server.Port, err = resolveDefault(r, "server.port", 8000); err != nil {
		return nil, err
	}
	timeout, err := resolveDefault(r, "server.shutdown-timeout", "10s")
	if err != nil {
		return nil, err
	}
	if cfg.Server.ShutdownTimeout, err = time.ParseDuration(timeout); err != nil {
		return nil, &ParseError{Key: "server.shutdown-timeout", Err: err}
	}
	return &cfg, nil
}

// resolveDefault is ResolveAs with a fallback for missing keys.
func resolveDefault[T any](r Resolver, key string, fallback T) (T, error) {
	v, err := ResolveAs[T](r, key)
	if _, missing := err.(*NotFoundError); missing {
		return fallback, nil
	}
	return v, err
}
