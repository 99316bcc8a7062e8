package app

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/km-arc/summer/framework/config"
	"github.com/km-arc/summer/framework/container"
	gohttp "github.com/km-arc/summer/framework/http"
	"github.com/km-arc/summer/framework/logging"
	"github.com/km-arc/summer/framework/routing"
)

// GreetingProvider registers the greeting beans and, once the container is
// ready, subscribes the audit log and mounts the /greet routes.
//
// Beans:
//   - "greetingRepository"  → GreetingRepository (*MemoryRepository, Seed on init)
//   - "greetingService"     → *GreetingService
//   - "auditLog"            → *AuditLog
//
// Configuration: greeting.default-lang (default "en").
type GreetingProvider struct {
	container.BaseProvider
	// Clock, when set, is registered as a bean and stamps every greeting.
	Clock Clock
}

func (p *GreetingProvider) Register(c *container.Container) error {
	defs := []container.Definition{
		container.Define("greetingRepository", func(container.Args) (GreetingRepository, error) {
			return NewMemoryRepository(), nil
		}).WithInit("Seed"),

		container.Define("greetingService", func(a container.Args) (*GreetingService, error) {
			lang, err := config.ResolveOr(c.Config(), "greeting.default-lang", "en")
			if err != nil {
				return nil, err
			}
			clock, _ := container.Arg[Clock](a)
			return NewGreetingService(container.MustArg[GreetingRepository](a), clock, c.Events(), lang), nil
		}, container.Requires[GreetingRepository]().As("repo"), container.Optional[Clock]().As("clock")),

		container.Define("auditLog", func(a container.Args) (*AuditLog, error) {
			log, _ := container.Arg[*zap.Logger](a)
			return NewAuditLog(logging.Named(log, "audit")), nil
		}, container.Optional[*zap.Logger]()),
	}
	if p.Clock != nil {
		defs = append(defs, container.Instance("clock", p.Clock))
	}
	return c.Register(defs...)
}

func (p *GreetingProvider) Boot(c *container.Container) error {
	audit, err := container.Get[*AuditLog](c)
	if err != nil {
		return err
	}
	container.AddListener[GreetingRequested](c, audit)

	svc, err := container.Get[*GreetingService](c)
	if err != nil {
		return err
	}
	router, err := container.Get[*routing.Router](c)
	if err != nil {
		return err
	}
	h := &greetingHandler{svc: svc, audit: audit}
	router.Get("/greet/{name}", h.show)
	router.Post("/greet", h.create)
	router.Get("/audit", h.entries)
	return nil
}

func (p *GreetingProvider) Provides() []string {
	return []string{"greetingRepository", "greetingService", "auditLog"}
}

// ── HTTP ─────────────────────────────────────────────────────────────────────

type greetingHandler struct {
	svc   *GreetingService
	audit *AuditLog
}

// GET /greet/{name}?lang=fr
func (h *greetingHandler) show(w http.ResponseWriter, r *http.Request) {
	req := gohttp.NewRequest(r)
	h.respond(gohttp.NewResponse(w), r, req.Param("name"), req.Query("lang"), http.StatusOK)
}

// POST /greet {"name": "...", "lang": "..."}
func (h *greetingHandler) create(w http.ResponseWriter, r *http.Request) {
	res := gohttp.NewResponse(w)
	var in struct {
		Name string `json:"name"`
		Lang string `json:"lang"`
	}
	if err := gohttp.NewRequest(r).Bind(&in); err != nil {
		res.Error(http.StatusBadRequest, err.Error())
		return
	}
	if in.Name == "" {
		res.Error(http.StatusUnprocessableEntity, "name is required")
		return
	}
	h.respond(res, r, in.Name, in.Lang, http.StatusCreated)
}

func (h *greetingHandler) respond(res *gohttp.Response, r *http.Request, name, lang string, status int) {
	g, err := h.svc.Greet(r.Context(), name, lang)
	switch {
	case errors.Is(err, ErrUnknownLanguage):
		res.NotFound("No greeting for language " + lang + ".")
	case err != nil:
		res.ServerError()
	case status == http.StatusCreated:
		res.Created(g)
	default:
		res.Success(g)
	}
}

// GET /audit
func (h *greetingHandler) entries(w http.ResponseWriter, _ *http.Request) {
	gohttp.NewResponse(w).Success(h.audit.Entries())
}
