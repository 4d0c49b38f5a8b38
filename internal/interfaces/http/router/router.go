package router

import (
	"net/http"

	"github.com/clinicpos/backend/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	middleware []gin.HandlerFunc
	registrars []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// WithAPIMiddleware adds middleware to the versioned API group only, leaving
// routes registered directly on the engine (such as /health) untouched
func WithAPIMiddleware(middleware ...gin.HandlerFunc) RouterOption {
	return func(r *Router) {
		r.middleware = append(r.middleware, middleware...)
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
		registrars: make([]RouteRegistrar, 0),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register adds a RouteRegistrar to be registered later
func (r *Router) Register(registrars ...RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrars...)
	return r
}

// Setup registers all routes with the engine
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)
	if len(r.middleware) > 0 {
		api.Use(r.middleware...)
	}

	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// DomainGroup creates a route group for a specific domain
type DomainGroup struct {
	name       string
	prefix     string
	routes     []routeDefinition
	subgroups  []*DomainGroup
	middleware []gin.HandlerFunc
}

type routeDefinition struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// NewDomainGroup creates a new domain-specific route group
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{
		name:   name,
		prefix: prefix,
	}
}

// Use adds middleware to this group
func (dg *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	dg.middleware = append(dg.middleware, middleware...)
	return dg
}

func (dg *DomainGroup) handle(method, path string, handlers []gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, routeDefinition{
		method:   method,
		path:     path,
		handlers: handlers,
	})
	return dg
}

// GET registers a GET route
func (dg *DomainGroup) GET(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodGet, path, handlers)
}

// POST registers a POST route
func (dg *DomainGroup) POST(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPost, path, handlers)
}

// PUT registers a PUT route
func (dg *DomainGroup) PUT(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPut, path, handlers)
}

// DELETE registers a DELETE route
func (dg *DomainGroup) DELETE(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodDelete, path, handlers)
}

// Group creates a sub-group within this domain
func (dg *DomainGroup) Group(name, prefix string) *DomainGroup {
	subgroup := NewDomainGroup(name, prefix)
	dg.subgroups = append(dg.subgroups, subgroup)
	return subgroup
}

// RegisterRoutes implements RouteRegistrar interface
func (dg *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(dg.prefix)
	if len(dg.middleware) > 0 {
		group.Use(dg.middleware...)
	}

	for _, route := range dg.routes {
		group.Handle(route.method, route.path, route.handlers...)
	}

	for _, subgroup := range dg.subgroups {
		subgroup.RegisterRoutes(group)
	}
}

// Name returns the group name
func (dg *DomainGroup) Name() string {
	return dg.name
}

// Prefix returns the group prefix
func (dg *DomainGroup) Prefix() string {
	return dg.prefix
}

// Handlers bundles the HTTP handlers of the ledger API
type Handlers struct {
	BusinessDay *handler.BusinessDayHandler
	Invoice     *handler.InvoiceHandler
	Recovery    *handler.RecoveryHandler
	Debtor      *handler.DebtorHandler
	System      *handler.SystemHandler
}

// LedgerGroups returns the route groups of the ledger API. The static
// /business-day/close route is registered alongside /business-day/:date;
// gin resolves the literal segment first.
func LedgerGroups(h Handlers) []RouteRegistrar {
	businessDay := NewDomainGroup("business-day", "/business-day").
		GET("", h.BusinessDay.GetWorkingDate).
		POST("/close", h.BusinessDay.Close).
		GET("/:date", h.BusinessDay.GetDayState).
		GET("/:date/can-post", h.BusinessDay.CanPost).
		GET("/:date/aggregate", h.BusinessDay.GetAggregate).
		POST("/:date/reopen", h.BusinessDay.Reopen).
		POST("/:date/reclose", h.BusinessDay.Reclose)

	closures := NewDomainGroup("closures", "/closures").
		GET("", h.BusinessDay.ListClosures)

	invoices := NewDomainGroup("invoices", "/invoices").
		POST("", h.Invoice.Post).
		GET("/:id", h.Invoice.Get).
		POST("/:id/move-date", h.Invoice.MoveDate).
		GET("/:id/date-corrections", h.Invoice.ListDateCorrections)

	recoveries := NewDomainGroup("recoveries", "/recoveries").
		POST("", h.Recovery.Allocate).
		GET("/:id", h.Recovery.Receipt).
		PUT("/:id", h.Recovery.Reapply).
		DELETE("/:id", h.Recovery.Revert)

	debtors := NewDomainGroup("debtors", "/debtors").
		GET("/:kind/:id/outstanding", h.Debtor.Outstanding)

	return []RouteRegistrar{businessDay, closures, invoices, recoveries, debtors}
}

// Setup registers the health check on the engine and the ledger API under
// /api/<version>. apiMiddleware (typically JWT authentication) applies to
// the API group only.
func Setup(engine *gin.Engine, h Handlers, apiMiddleware ...gin.HandlerFunc) *Router {
	if h.System != nil {
		engine.GET("/health", h.System.Health)
	}

	r := NewRouter(engine, WithAPIVersion("v1"), WithAPIMiddleware(apiMiddleware...))
	r.Register(LedgerGroups(h)...)
	r.Setup()
	return r
}
