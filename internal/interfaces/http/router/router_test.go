package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clinicpos/backend/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNewRouter(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	assert.NotNil(t, r)
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)
}

func TestRouterWithAPIVersion(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine, WithAPIVersion("v2"))

	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine, WithAPIVersion("v1"))

	group := NewDomainGroup("test", "/test")
	group.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	r.Register(group)
	r.Setup()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/test/ping", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}

func TestRouterAPIMiddlewareScope(t *testing.T) {
	engine := gin.New()
	engine.GET("/outside", func(c *gin.Context) {
		c.String(http.StatusOK, "outside")
	})
	deny := func(c *gin.Context) {
		c.AbortWithStatus(http.StatusUnauthorized)
	}
	r := NewRouter(engine, WithAPIMiddleware(deny))
	r.Register(NewDomainGroup("test", "/test").GET("/inside", func(c *gin.Context) {
		c.String(http.StatusOK, "inside")
	}))
	r.Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/test/inside", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/outside", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDomainGroup(t *testing.T) {
	t.Run("creates group with name and prefix", func(t *testing.T) {
		g := NewDomainGroup("recoveries", "/recoveries")
		assert.Equal(t, "recoveries", g.Name())
		assert.Equal(t, "/recoveries", g.Prefix())
	})

	methods := []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}
	for _, method := range methods {
		t.Run("registers "+method+" route", func(t *testing.T) {
			engine := gin.New()
			g := NewDomainGroup("test", "/test")
			h := func(c *gin.Context) { c.String(http.StatusOK, c.Request.Method) }
			switch method {
			case http.MethodGet:
				g.GET("/items", h)
			case http.MethodPost:
				g.POST("/items", h)
			case http.MethodPut:
				g.PUT("/items", h)
			case http.MethodDelete:
				g.DELETE("/items", h)
			}
			g.RegisterRoutes(engine.Group("/api/v1"))

			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(method, "/api/v1/test/items", nil))
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, method, w.Body.String())
		})
	}

	t.Run("applies middleware", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("test", "/test").Use(func(c *gin.Context) {
			c.Header("X-Group", "test")
			c.Next()
		})
		g.GET("/items", func(c *gin.Context) { c.Status(http.StatusOK) })
		g.RegisterRoutes(engine.Group("/api/v1"))

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/test/items", nil))
		assert.Equal(t, "test", w.Header().Get("X-Group"))
	})

	t.Run("creates subgroups", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("parent", "/parent")
		g.Group("child", "/child").GET("/items", func(c *gin.Context) { c.Status(http.StatusNoContent) })
		g.RegisterRoutes(engine.Group("/api/v1"))

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/parent/child/items", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

func TestSetup_RegistersLedgerRoutes(t *testing.T) {
	engine := gin.New()
	Setup(engine, Handlers{
		BusinessDay: handler.NewBusinessDayHandler(nil, nil, nil),
		Invoice:     handler.NewInvoiceHandler(nil, nil),
		Recovery:    handler.NewRecoveryHandler(nil),
		Debtor:      handler.NewDebtorHandler(nil),
		System:      handler.NewSystemHandler(nil, "clinic-pos-ledger", "test"),
	})

	registered := make(map[string]bool)
	for _, route := range engine.Routes() {
		registered[route.Method+" "+route.Path] = true
	}

	expected := []string{
		"GET /health",
		"GET /api/v1/business-day",
		"GET /api/v1/business-day/:date",
		"GET /api/v1/business-day/:date/can-post",
		"GET /api/v1/business-day/:date/aggregate",
		"POST /api/v1/business-day/close",
		"POST /api/v1/business-day/:date/reopen",
		"POST /api/v1/business-day/:date/reclose",
		"GET /api/v1/closures",
		"GET /api/v1/debtors/:kind/:id/outstanding",
		"POST /api/v1/invoices",
		"GET /api/v1/invoices/:id",
		"POST /api/v1/invoices/:id/move-date",
		"GET /api/v1/invoices/:id/date-corrections",
		"POST /api/v1/recoveries",
		"GET /api/v1/recoveries/:id",
		"PUT /api/v1/recoveries/:id",
		"DELETE /api/v1/recoveries/:id",
	}
	for _, route := range expected {
		assert.True(t, registered[route], "route %s not registered", route)
	}
	assert.Len(t, registered, len(expected))
}

func TestSetup_HealthBypassesAPIMiddleware(t *testing.T) {
	engine := gin.New()
	calls := 0
	Setup(engine, Handlers{
		BusinessDay: handler.NewBusinessDayHandler(nil, nil, nil),
		Invoice:     handler.NewInvoiceHandler(nil, nil),
		Recovery:    handler.NewRecoveryHandler(nil),
		Debtor:      handler.NewDebtorHandler(nil),
		System:      handler.NewSystemHandler(nil, "clinic-pos-ledger", "test"),
	}, func(c *gin.Context) {
		calls++
		c.AbortWithStatus(http.StatusUnauthorized)
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, calls)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/business-day", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 1, calls)
}
