// Package app is a small application built on the framework: a greeting
// service with a repository, an optional clock and an audit listener.
package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/km-arc/summer/framework/event"
)

// ErrUnknownLanguage is returned for a language without a template.
var ErrUnknownLanguage = errors.New("unknown language")

// GreetingRepository stores greeting templates by language.
type GreetingRepository interface {
	Template(lang string) (string, bool)
	Languages() []string
}

// MemoryRepository is a GreetingRepository backed by a map. Seed fills it
// with the built-in templates; it runs as the bean's init hook.
type MemoryRepository struct {
	mu        sync.RWMutex
	templates map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{templates: make(map[string]string)}
}

func (r *MemoryRepository) Seed() {
	r.Add("en", "Hello, %s!")
	r.Add("fr", "Bonjour, %s !")
	r.Add("de", "Hallo, %s!")
}

// Add sets the template for lang. The template takes one %s for the name.
func (r *MemoryRepository) Add(lang, template string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[lang] = template
}

func (r *MemoryRepository) Template(lang string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[lang]
	return t, ok
}

func (r *MemoryRepository) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	langs := make([]string, 0, len(r.templates))
	for l := range r.templates {
		langs = append(langs, l)
	}
	slices.Sort(langs)
	return langs
}

// Clock tells the time. The service falls back to time.Now without one.
type Clock interface{ Now() time.Time }

type FixedClock struct{ T time.Time }

func (c FixedClock) Now() time.Time { return c.T }

// Greeting is one rendered greeting.
type Greeting struct {
	Message string    `json:"message"`
	Lang    string    `json:"lang"`
	At      time.Time `json:"at"`
}

// GreetingRequested is published for every greeting the service renders.
type GreetingRequested struct {
	event.Base
	Recipient string
	Lang      string
}

// GreetingService renders greetings and announces each one.
type GreetingService struct {
	repo        GreetingRepository
	clock       Clock
	events      *event.Multicaster
	defaultLang string
}

func NewGreetingService(repo GreetingRepository, clock Clock, events *event.Multicaster, defaultLang string) *GreetingService {
	return &GreetingService{repo: repo, clock: clock, events: events, defaultLang: defaultLang}
}

// Greet renders a greeting for name in lang, or in the default language
// when lang is empty.
func (s *GreetingService) Greet(ctx context.Context, name, lang string) (Greeting, error) {
	if lang == "" {
		lang = s.defaultLang
	}
	tmpl, ok := s.repo.Template(lang)
	if !ok {
		return Greeting{}, fmt.Errorf("greet %q: %w", lang, ErrUnknownLanguage)
	}

	now := time.Now()
	if s.clock != nil {
		now = s.clock.Now()
	}
	g := Greeting{Message: fmt.Sprintf(tmpl, name), Lang: lang, At: now}

	if s.events != nil {
		e := GreetingRequested{Base: event.NewBase("greeting.requested", s), Recipient: name, Lang: lang}
		if err := event.Publish(ctx, s.events, e); err != nil {
			return Greeting{}, err
		}
	}
	return g, nil
}

// DefaultLanguage returns the language used when none is given.
func (s *GreetingService) DefaultLanguage() string { return s.defaultLang }

// AuditLog records every GreetingRequested event it receives.
type AuditLog struct {
	mu      sync.Mutex
	entries []string
	log     *zap.Logger
}

func NewAuditLog(log *zap.Logger) *AuditLog {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuditLog{log: log}
}

func (a *AuditLog) OnEvent(_ context.Context, e GreetingRequested) error {
	a.mu.Lock()
	a.entries = append(a.entries, e.Lang+":"+e.Recipient)
	a.mu.Unlock()
	a.log.Debug("greeting audited", zap.String("recipient", e.Recipient), zap.String("lang", e.Lang), zap.Stringer("event_id", e.ID))
	return nil
}

// Entries returns the recorded "lang:name" entries, oldest first.
func (a *AuditLog) Entries() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.entries)
}
