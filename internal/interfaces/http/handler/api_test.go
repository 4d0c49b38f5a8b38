package handler_test

import (
	"sync"
	"testing"
	"time"

	appledger "github.com/clinicpos/backend/internal/application/ledger"
	"github.com/clinicpos/backend/internal/domain/identity"
	"github.com/clinicpos/backend/internal/domain/shared"
	"github.com/clinicpos/backend/internal/infrastructure/cache"
	"github.com/clinicpos/backend/internal/infrastructure/persistence"
	"github.com/clinicpos/backend/internal/interfaces/http/handler"
	"github.com/clinicpos/backend/internal/interfaces/http/middleware"
	"github.com/clinicpos/backend/internal/interfaces/http/router"
	"github.com/clinicpos/backend/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// tickingClock starts at 09:00 on 2024-03-20 and moves a second per read,
// so invoices posted one after another keep their FIFO order
type tickingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

// api is the ledger HTTP API over an in-memory SQLite database. Requests
// run as the actor set with as; with none set the handlers see an
// anonymous caller.
type api struct {
	t      *testing.T
	engine *gin.Engine
	grants identity.StaticGrants

	mu    sync.Mutex
	actor *identity.Actor
}

func newAPI(t *testing.T) *api {
	t.Helper()

	db := testutil.NewLedgerDB(t)
	repos := persistence.NewGormLedgerRepositories(db)
	scope := persistence.NewGormTransactionScope(db)
	clock := &tickingClock{now: time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC)}
	grants := identity.StaticGrants{}
	gate := identity.NewPermissionGate(grants, identity.RoleCodeAdmin)
	opts := []appledger.Option{
		appledger.WithClock(clock.Now),
		appledger.WithLocation(time.UTC),
	}

	idempotency := cache.NewInMemoryIdempotencyStore(0)
	t.Cleanup(func() { _ = idempotency.Close() })

	workingDate := appledger.NewWorkingDateStore(repos, opts...)
	recomputer := appledger.NewAggregateRecomputer(scope, repos, opts...)
	closure := appledger.NewClosureService(scope, repos, workingDate, gate, recomputer, opts...)
	posting := appledger.NewInvoicePostingService(scope, repos, closure, gate, recomputer, opts...)
	allocation := appledger.NewAllocationService(scope, repos, workingDate, recomputer,
		idempotency, shared.DefaultIdempotencyConfig(), opts...)
	corrections := appledger.NewDateCorrectionService(scope, repos, closure, gate, recomputer, opts...)
	debts := appledger.NewDebtLedger(repos, opts...)

	sqlDB, err := db.DB()
	require.NoError(t, err)

	a := &api{t: t, engine: gin.New(), grants: grants}
	router.Setup(a.engine, router.Handlers{
		BusinessDay: handler.NewBusinessDayHandler(workingDate, closure, recomputer),
		Invoice:     handler.NewInvoiceHandler(posting, corrections),
		Recovery:    handler.NewRecoveryHandler(allocation),
		Debtor:      handler.NewDebtorHandler(debts),
		System:      handler.NewSystemHandler(sqlDB, "clinic-pos-ledger", "test"),
	}, middleware.RequestID(), a.authenticate)
	return a
}

func (a *api) authenticate(c *gin.Context) {
	a.mu.Lock()
	actor := a.actor
	a.mu.Unlock()
	if actor != nil {
		c.Set(middleware.JWTActorKey, *actor)
		c.Set(middleware.JWTUserIDKey, actor.ID.String())
		c.Set(middleware.JWTRoleKey, string(actor.Role))
	}
	c.Next()
}

// as switches the calling actor for the following requests
func (a *api) as(actor identity.Actor) *api {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actor = &actor
	return a
}

func (a *api) anonymous() *api {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actor = nil
	return a
}

func (a *api) do(method, path string, body any) *testutil.TestContext {
	a.t.Helper()
	return testutil.PerformRequest(a.t, a.engine, method, path, body, nil)
}

func (a *api) doWithHeaders(method, path string, body any, headers map[string]string) *testutil.TestContext {
	a.t.Helper()
	return testutil.PerformRequest(a.t, a.engine, method, path, body, headers)
}

// postInvoice posts an invoice on the working date and returns its id
func (a *api) postInvoice(debtorKind string, debtorID uuid.UUID, number, amount string) string {
	a.t.Helper()
	tc := a.do("POST", "/api/v1/invoices", map[string]any{
		"debtor_kind": debtorKind,
		"debtor_id":   debtorID.String(),
		"number":      number,
		"description": "Consultation " + number,
		"amount_due":  amount,
	})
	require.Equal(a.t, 201, tc.ResponseCode(), string(tc.ResponseBody()))
	return testutil.JSONData(a.t, tc)["id"].(string)
}

func (a *api) closeDay(next string) *testutil.TestContext {
	a.t.Helper()
	tc := a.do("POST", "/api/v1/business-day/close", map[string]any{"next_date": next})
	require.Equal(a.t, 200, tc.ResponseCode(), string(tc.ResponseBody()))
	return tc
}

func assertAmount(t *testing.T, expected string, actual any) {
	t.Helper()
	s, ok := actual.(string)
	require.True(t, ok, "expected a decimal string, got %T %v", actual, actual)
	assert.True(t, decimal.RequireFromString(expected).Equal(decimal.RequireFromString(s)),
		"expected %s, got %s", expected, s)
}

func errorOf(t *testing.T, tc *testutil.TestContext) map[string]any {
	t.Helper()
	resp := testutil.JSONResponse(t, tc)
	e, ok := resp["error"].(map[string]any)
	require.True(t, ok, "expected error object: %s", tc.ResponseBody())
	return e
}
