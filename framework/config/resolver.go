package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Resolver looks up raw configuration values by key.
//
// Keys are dotted paths such as "app.port". A missing key is reported as
// ("", false, nil); an error means the underlying source itself failed.
type Resolver interface {
	Resolve(key string) (string, bool, error)
}

// NotFoundError is returned by ResolveAs when a key has no value.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("config: key %q not found", e.Key)
}

// ParseError is returned by ResolveAs when a value does not decode into the
// requested type.
type ParseError struct {
	Key string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("config: key %q: %v", e.Key, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ResolveAs resolves key and decodes the value into T.
//
// Values are decoded as YAML, which accepts plain scalars ("8080", "true",
// "debug") as well as JSON documents:
//
//	port, err := config.ResolveAs[int](r, "app.port")
//	hosts, err := config.ResolveAs[[]string](r, "cache.hosts") // "[a, b]" or `["a","b"]`
func ResolveAs[T any](r Resolver, key string) (T, error) {
	var out T
	raw, ok, err := r.Resolve(key)
	if err != nil {
		return out, err
	}
	if !ok {
		return out, &NotFoundError{Key: key}
	}
	if err := yaml.Unmarshal([]byte(raw), &out); err != nil {
		return out, &ParseError{Key: key, Err: err}
	}
	return out, nil
}

// ResolveOr returns the value for key, or fallback when it is missing.
func ResolveOr(r Resolver, key, fallback string) (string, error) {
	v, ok, err := r.Resolve(key)
	if err != nil {
		return "", err
	}
	if !ok {
		return fallback, nil
	}
	return v, nil
}

// EnvKey maps a dotted key to its environment-variable spelling:
// "app.port" → "APP_PORT", "log-level" → "LOG_LEVEL".
func EnvKey(key string) string {
	return strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}

// ── MapResolver ───────────────────────────────────────────────────────────────

// MapResolver serves values from memory. Keys match exactly.
type MapResolver struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMapResolver returns a resolver seeded with a copy of values.
func NewMapResolver(values map[string]string) *MapResolver {
	m := &MapResolver{values: make(map[string]string, len(values))}
	for k, v := range values {
		m.values[k] = v
	}
	return m
}

// Set stores value under key.
func (m *MapResolver) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

func (m *MapResolver) Resolve(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// ── EnvResolver ───────────────────────────────────────────────────────────────

// EnvResolver reads the process environment. "app.port" is looked up as
// Prefix+"APP_PORT". Empty variables count as missing.
type EnvResolver struct {
	Prefix string
}

func (e EnvResolver) Resolve(key string) (string, bool, error) {
	v := os.Getenv(e.Prefix + EnvKey(key))
	if v == "" {
		return "", false, nil
	}
	return v, true, nil
}

// ── DotenvResolver ────────────────────────────────────────────────────────────

// DotenvResolver serves values parsed from .env files without touching the
// process environment. Later files override earlier ones.
type DotenvResolver struct {
	values map[string]string
}

// NewDotenvResolver reads files with godotenv. Files that do not exist are
// skipped, since .env is usually absent in production.
func NewDotenvResolver(files ...string) (*DotenvResolver, error) {
	values := make(map[string]string)
	for _, file := range files {
		if _, err := os.Stat(file); errors.Is(err, os.ErrNotExist) {
			continue
		}
		parsed, err := godotenv.Read(file)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", file, err)
		}
		for k, v := range parsed {
			values[strings.ToUpper(k)] = v
		}
	}
	return &DotenvResolver{values: values}, nil
}

func (d *DotenvResolver) Resolve(key string) (string, bool, error) {
	v, ok := d.values[EnvKey(key)]
	return v, ok, nil
}

// Len returns the number of variables loaded.
func (d *DotenvResolver) Len() int { return len(d.values) }

// ── CompositeResolver ─────────────────────────────────────────────────────────

// CompositeResolver asks each resolver in turn and returns the first value
// found. A *NotFoundError from a delegate counts as a miss; any other error
// stops the search.
type CompositeResolver struct {
	resolvers []Resolver
}

// NewCompositeResolver chains resolvers, highest priority first.
func NewCompositeResolver(resolvers ...Resolver) *CompositeResolver {
	return &CompositeResolver{resolvers: resolvers}
}

// Add appends a lower-priority resolver.
func (c *CompositeResolver) Add(r Resolver) *CompositeResolver {
	c.resolvers = append(c.resolvers, r)
	return c
}

func (c *CompositeResolver) Resolve(key string) (string, bool, error) {
	for _, r := range c.resolvers {
		v, ok, err := r.Resolve(key)
		if err != nil {
			var nf *NotFoundError
			if errors.As(err, &nf) {
				continue
			}
			return "", false, err
		}
		if ok {
			return v, true, nil
		}
	}
	return "", false, nil
}
