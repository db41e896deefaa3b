// Package router groups the HTTP endpoints of the stock ledger by domain
// and mounts them under a versioned API prefix.
package router

import (
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
)

// RouteRegistrar is anything that can attach its endpoints to the API group
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router collects registrars and mounts them under /api/<version>
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
}

type RouterOption func(*Router)

// WithAPIVersion replaces the default "v1" prefix
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) { r.apiVersion = version }
}

func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{engine: engine, apiVersion: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register queues a registrar; nothing reaches the engine before Setup
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

func (r *Router) BasePath() string {
	return "/api/" + r.apiVersion
}

// Setup mounts every queued registrar, in registration order
func (r *Router) Setup() {
	api := r.engine.Group(r.BasePath())
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// Route is one endpoint, its path relative to the API prefix
type Route struct {
	Method string
	Path   string
}

type endpoint struct {
	Route
	handlers []gin.HandlerFunc
}

// DomainGroup is the endpoints of one business area (movements, lots,
// closings...). Reads are GET; every state change of the ledger is a POST
// because movements are never updated or deleted in place.
type DomainGroup struct {
	name       string
	prefix     string
	endpoints  []endpoint
	subgroups  []*DomainGroup
	middleware []gin.HandlerFunc
}

func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{name: name, prefix: prefix}
}

func (dg *DomainGroup) Name() string { return dg.name }
func (dg *DomainGroup) Prefix() string { return dg.prefix }

// Use adds middleware that runs only for this group and its subgroups
func (dg *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	dg.middleware = append(dg.middleware, middleware...)
	return dg
}

func (dg *DomainGroup) GET(relativePath string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.add(http.MethodGet, relativePath, handlers)
}

func (dg *DomainGroup) POST(relativePath string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.add(http.MethodPost, relativePath, handlers)
}

func (dg *DomainGroup) add(method, relativePath string, handlers []gin.HandlerFunc) *DomainGroup {
	dg.endpoints = append(dg.endpoints, endpoint{
		Route:    Route{Method: method, Path: relativePath},
		handlers: handlers,
	})
	return dg
}

// Group nests a subgroup, e.g. the lines of a count campaign
func (dg *DomainGroup) Group(name, prefix string) *DomainGroup {
	sub := NewDomainGroup(name, prefix)
	dg.subgroups = append(dg.subgroups, sub)
	return sub
}

func (dg *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(dg.prefix)
	if len(dg.middleware) > 0 {
		group.Use(dg.middleware...)
	}
	for _, e := range dg.endpoints {
		group.Handle(e.Method, e.Path, e.handlers...)
	}
	for _, sub := range dg.subgroups {
		sub.RegisterRoutes(group)
	}
}

// Routes flattens the group and its subgroups into absolute paths below the
// API prefix, in declaration order
func (dg *DomainGroup) Routes() []Route {
	var out []Route
	dg.walk("/", func(r Route) { out = append(out, r) })
	return out
}

func (dg *DomainGroup) walk(parent string, visit func(Route)) {
	base := path.Join(parent, dg.prefix)
	for _, e := range dg.endpoints {
		full := base
		if e.Path != "" {
			full = path.Join(base, e.Path)
		}
		visit(Route{Method: e.Method, Path: full})
	}
	for _, sub := range dg.subgroups {
		sub.walk(base, visit)
	}
}
