package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appledger "github.com/clinicpos/backend/internal/application/ledger"
	"github.com/clinicpos/backend/internal/domain/identity"
	"github.com/clinicpos/backend/internal/domain/ledger"
	"github.com/clinicpos/backend/internal/domain/shared"
	"github.com/clinicpos/backend/internal/infrastructure/auth"
	"github.com/clinicpos/backend/internal/infrastructure/cache"
	"github.com/clinicpos/backend/internal/infrastructure/config"
	"github.com/clinicpos/backend/internal/infrastructure/event"
	"github.com/clinicpos/backend/internal/infrastructure/logger"
	"github.com/clinicpos/backend/internal/infrastructure/persistence"
	"github.com/clinicpos/backend/internal/infrastructure/telemetry"
	"github.com/clinicpos/backend/internal/interfaces/http/handler"
	"github.com/clinicpos/backend/internal/interfaces/http/middleware"
	"github.com/clinicpos/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

//	@title			Clinic POS Ledger API
//	@version		1.0
//	@description	Business-day ledger of a clinic point of sale: working date, day closure, invoices, recoveries and date corrections.

//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		Service:    cfg.App.Name,
		Version:    cfg.App.Version,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	ctx := context.Background()

	// Telemetry first so the bridged logger is the one handed to everything else
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	logsLevel, err := zapcore.ParseLevel(cfg.Telemetry.LogsLevel)
	if err != nil {
		logsLevel = zapcore.InfoLevel
	}
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
		Level:             logsLevel,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	log = loggerProvider.Bridge(log)

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.ProfilingServerAddress,
		ApplicationName: cfg.Telemetry.ServiceName,
		Contention:      cfg.Telemetry.ProfilingContention,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() && cfg.Telemetry.ProfilingSpanProfiles {
		tracerProvider.EnableSpanProfiles()
	}

	log.Info("Starting Clinic POS ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("database_driver", cfg.Database.Driver),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Database.SlowThreshold),
		logger.WithParameterizedQueries(cfg.App.Env == "production"))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	dbSystem := "postgresql"
	if db.Driver() == config.DriverSQLite {
		dbSystem = "sqlite"
	}
	if err := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        dbSystem,
	}, log).Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	// SQLite has no versioned migrations; its schema always comes from the models
	if cfg.Database.AutoMigrate || db.Driver() == config.DriverSQLite {
		if err := db.AutoMigrate(ctx); err != nil {
			log.Fatal("Failed to migrate database", zap.Error(err))
		}
		log.Info("Ledger tables migrated")
	}

	ledgerMetrics, err := telemetry.NewLedgerMetrics(meterProvider.Meter("clinic-pos-ledger"))
	if err != nil {
		log.Fatal("Failed to initialize ledger metrics", zap.Error(err))
	}

	idemConfig := shared.IdempotencyConfig{TTL: cfg.Ledger.IdempotencyTTL, Enabled: true}
	idempotencyStore, err := cache.NewIdempotencyStore(ctx, cfg.Redis, cfg.Ledger.IdempotencySweepInterval, log)
	if err != nil {
		log.Fatal("Failed to initialize idempotency store", zap.Error(err))
	}
	defer func() {
		_ = idempotencyStore.Close()
	}()

	// Events are published after commit; the audit log sees each one once
	eventSerializer := event.NewEventSerializer()
	event.RegisterLedgerEvents(eventSerializer)
	eventBus := event.NewInMemoryEventBus(log)
	auditHandler := appledger.NewAuditLogHandler(log).WithPayload(eventSerializer)
	eventBus.Subscribe(event.NewIdempotentHandler(auditHandler, idempotencyStore, idemConfig, log))
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	adminRole, err := identity.ParseRoleCode(cfg.Ledger.AdminRole)
	if err != nil {
		log.Fatal("Invalid ledger admin role", zap.Error(err))
	}
	gate := identity.NewPermissionGate(persistence.NewGormRolePermissionRepository(db.DB), adminRole)

	repos := persistence.NewGormLedgerRepositories(db.DB)
	scope := persistence.NewGormTransactionScope(db.DB)
	opts := []appledger.Option{
		appledger.WithLocation(cfg.App.Location()),
		appledger.WithLogger(log),
		appledger.WithEventPublisher(eventBus),
		appledger.WithSettlementPolicy(ledger.NewSettlementPolicy(cfg.Ledger.SettlementEpsilon)),
		appledger.WithMetrics(ledgerMetrics),
	}

	workingDate := appledger.NewWorkingDateStore(repos, opts...)
	recomputer := appledger.NewAggregateRecomputer(scope, repos, opts...)
	closureService := appledger.NewClosureService(scope, repos, workingDate, gate, recomputer, opts...)
	postingService := appledger.NewInvoicePostingService(scope, repos, closureService, gate, recomputer, opts...)
	allocationService := appledger.NewAllocationService(scope, repos, workingDate, recomputer,
		idempotencyStore, idemConfig, opts...)
	correctionService := appledger.NewDateCorrectionService(scope, repos, closureService, gate, recomputer, opts...)
	debtLedger := appledger.NewDebtLedger(repos, opts...)

	if current, err := workingDate.Current(ctx); err != nil {
		log.Fatal("Failed to read working date", zap.Error(err))
	} else {
		log.Info("Working date loaded", zap.String("working_date", current.String()))
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware order:
	// 1. Tracing - root span for the request
	// 2. RequestID - generate/propagate request ID
	// 3. Recovery - catch panics
	// 4. Logger - log requests
	// 5. Metrics - request counts and durations
	// 6. Profiling labels (only when the profiler runs)
	// 7. Security headers, CORS, body limit, timeout
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     tracerProvider.IsEnabled(),
	}))
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log, "/health"))
	engine.Use(middleware.HTTPMetrics(meterProvider.Meter("clinic-pos-ledger/http")))
	if profiler.IsEnabled() {
		engine.Use(middleware.Profiling("/health"))
	}
	engine.Use(middleware.Secure())
	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	engine.Use(middleware.Timeout(cfg.HTTP.WriteTimeout))

	jwtConfig := middleware.DefaultJWTConfig(auth.NewJWTService(cfg.JWT))
	jwtConfig.Logger = log
	router.Setup(engine, router.Handlers{
		BusinessDay: handler.NewBusinessDayHandler(workingDate, closureService, recomputer),
		Invoice:     handler.NewInvoiceHandler(postingService, correctionService),
		Recovery:    handler.NewRecoveryHandler(allocationService),
		Debtor:      handler.NewDebtorHandler(debtLedger),
		System:      handler.NewSystemHandler(db, cfg.App.Name, cfg.App.Version),
	},
		middleware.JWTAuthMiddlewareWithConfig(jwtConfig),
		middleware.TracingAttributeInjector(),
		middleware.SpanErrorMarker(),
	)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}
	if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down logger provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
