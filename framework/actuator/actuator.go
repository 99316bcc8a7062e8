// Package actuator exposes the container's state over HTTP:
//
//	GET /actuator/health        UP once the container is ready
//	GET /actuator/beans         every definition, in registration order
//	GET /actuator/beans/{name}  one definition
//	GET /actuator/graph         the dependency graph in Graphviz dot format
//	GET /actuator/mappings      the routes registered on the router
package actuator

import (
	"net/http"
	"slices"

	"go.uber.org/zap"

	"github.com/km-arc/summer/framework/container"
	gohttp "github.com/km-arc/summer/framework/http"
	"github.com/km-arc/summer/framework/routing"
)

// DependencyInfo describes one declared dependency.
type DependencyInfo struct {
	Type     string `json:"type"`
	Field    string `json:"field,omitempty"`
	Required bool   `json:"required"`
}

// BeanInfo describes one bean definition and whether it has been created.
type BeanInfo struct {
	Name         string           `json:"name"`
	Type         string           `json:"type"`
	Scope        string           `json:"scope"`
	Dependencies []DependencyInfo `json:"dependencies"`
	InitHook     string           `json:"initHook,omitempty"`
	DestroyHook  string           `json:"destroyHook,omitempty"`
	Instantiated bool             `json:"instantiated"`
	// Position in creation order, -1 until created.
	Order int `json:"order"`
}

// Describe lists the beans registered with c in registration order.
func Describe(c *container.Container) []BeanInfo {
	created := c.CreationOrder()
	defs := c.Registry().Definitions()
	out := make([]BeanInfo, 0, len(defs))
	for _, def := range defs {
		out = append(out, describe(def, created))
	}
	return out
}

func describe(def container.Definition, created []string) BeanInfo {
	deps := make([]DependencyInfo, 0, len(def.Dependencies))
	for _, d := range def.Dependencies {
		deps = append(deps, DependencyInfo{Type: d.Type.String(), Field: d.Field, Required: d.Required})
	}
	order := slices.Index(created, def.Name)
	return BeanInfo{
		Name:         def.Name,
		Type:         def.Type.String(),
		Scope:        def.Scope.String(),
		Dependencies: deps,
		InitHook:     def.InitHook,
		DestroyHook:  def.DestroyHook,
		Instantiated: order >= 0,
		Order:        order,
	}
}

// Health is the body of /actuator/health.
type Health struct {
	Status string `json:"status"` // UP | DOWN
	State  string `json:"state"`
	Beans  int    `json:"beans"`
}

// Actuator serves the endpoints for one container.
type Actuator struct {
	c      *container.Container
	router *routing.Router
	log    *zap.Logger
}

// New returns an Actuator for c. router is used for /actuator/mappings and
// may be nil.
func New(c *container.Container, router *routing.Router, log *zap.Logger) *Actuator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Actuator{c: c, router: router, log: log}
}

// Mount registers the endpoints under /actuator on r.
func (a *Actuator) Mount(r *routing.Router) {
	r.Prefix("/actuator", func(r *routing.Router) {
		r.Get("/health", a.health)
		r.Get("/beans", a.beans)
		r.Get("/beans/{name}", a.bean)
		r.Get("/graph", a.graph)
		r.Get("/mappings", a.mappings)
	})
}

func (a *Actuator) health(w http.ResponseWriter, _ *http.Request) {
	h := Health{Status: "UP", State: a.c.State(), Beans: a.c.Registry().Len()}
	status := http.StatusOK
	if !a.c.Ready() {
		h.Status = "DOWN"
		status = http.StatusServiceUnavailable
	}
	gohttp.NewResponse(w).JSON(status, h)
}

func (a *Actuator) beans(w http.ResponseWriter, _ *http.Request) {
	gohttp.NewResponse(w).Success(Describe(a.c))
}

func (a *Actuator) bean(w http.ResponseWriter, r *http.Request) {
	res := gohttp.NewResponse(w)
	name := routing.Param(r, "name")
	def, ok := a.c.Registry().Definition(name)
	if !ok {
		a.log.Debug("bean not found", zap.String("bean", name))
		res.NotFound("No bean named " + name + ".")
		return
	}
	res.Success(describe(def, a.c.CreationOrder()))
}

func (a *Actuator) graph(w http.ResponseWriter, _ *http.Request) {
	dot := container.DotGraph(a.c.Registry().Definitions())
	gohttp.NewResponse(w).Text(http.StatusOK, "text/vnd.graphviz; charset=utf-8", dot)
}

func (a *Actuator) mappings(w http.ResponseWriter, _ *http.Request) {
	res := gohttp.NewResponse(w)
	if a.router == nil {
		res.Success([]routing.Route{})
		return
	}
	res.Success(a.router.Routes())
}
