package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	bankingapp "github.com/ledgerline/backend/internal/application/banking"
	companionapp "github.com/ledgerline/backend/internal/application/companion"
	eventapp "github.com/ledgerline/backend/internal/application/event"
	identityapp "github.com/ledgerline/backend/internal/application/identity"
	ledgerapp "github.com/ledgerline/backend/internal/application/ledger"
	reconciliationapp "github.com/ledgerline/backend/internal/application/reconciliation"
	reviewapp "github.com/ledgerline/backend/internal/application/review"
	"github.com/ledgerline/backend/internal/infrastructure/advisor"
	"github.com/ledgerline/backend/internal/infrastructure/auth"
	"github.com/ledgerline/backend/internal/infrastructure/cache"
	"github.com/ledgerline/backend/internal/infrastructure/config"
	"github.com/ledgerline/backend/internal/infrastructure/event"
	"github.com/ledgerline/backend/internal/infrastructure/logger"
	"github.com/ledgerline/backend/internal/infrastructure/persistence"
	"github.com/ledgerline/backend/internal/infrastructure/scheduler"
	"github.com/ledgerline/backend/internal/infrastructure/storage"
	"github.com/ledgerline/backend/internal/infrastructure/telemetry"
	"github.com/ledgerline/backend/internal/interfaces/http/handler"
	"github.com/ledgerline/backend/internal/interfaces/http/middleware"
	"github.com/ledgerline/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Ledgerline Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize telemetry providers. When disabled they install no-op
	// globals, so spans in the service layer stay cheap.
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	meterProvider, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Database query tracing and pool metrics
	if cfg.Telemetry.DBTraceEnabled {
		tracingPlugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:          true,
			LogFullSQL:       cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh:  cfg.Telemetry.DBSlowQueryThresh,
			DBSystem:         "postgresql",
			WithoutVariables: !cfg.Telemetry.DBLogFullSQL,
		}, log)
		if err := tracingPlugin.RegisterOtelGorm(db.DB); err != nil {
			log.Warn("Failed to register database tracing", zap.Error(err))
		}
	}
	if _, err := telemetry.RegisterDBMetrics(db.DB, meterProvider, telemetry.DBMetricsConfig{
		Enabled:            cfg.Telemetry.Enabled,
		SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
	}, log); err != nil {
		log.Warn("Failed to register database metrics", zap.Error(err))
	}

	// Initialize repositories
	accountRepo := persistence.NewGormAccountRepository(db.DB)
	entryRepo := persistence.NewGormJournalEntryRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	billRepo := persistence.NewGormBillRepository(db.DB)
	bankAccountRepo := persistence.NewGormBankAccountRepository(db.DB)
	bankTxRepo := persistence.NewGormBankTransactionRepository(db.DB)
	bankRuleRepo := persistence.NewGormBankRuleRepository(db.DB)
	sessionRepo := persistence.NewGormSessionRepository(db.DB)
	runRepo := persistence.NewGormReviewRunRepository(db.DB)
	docRepo := persistence.NewGormDocumentReviewRepository(db.DB)
	issueRepo := persistence.NewGormIssueRepository(db.DB)
	storyRepo := persistence.NewGormStoryRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)
	roleRepo := persistence.NewGormRoleRepository(db.DB)
	tenantRepo := persistence.NewGormTenantRepository(db.DB)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	// Transaction scopes for multi-aggregate mutations
	ledgerScope := persistence.NewGormLedgerTransactionScope(db.DB)
	reconciliationScope := persistence.NewGormReconciliationTransactionScope(db.DB)
	reviewScope := persistence.NewGormReviewTransactionScope(db.DB)

	// Initialize event serializer and register all event types
	eventSerializer := event.NewEventSerializer()
	event.RegisterAllEvents(eventSerializer)

	// LLM advisor; without an API key every pipeline runs deterministically
	var adv advisor.Advisor = advisor.NewDisabled()
	if cfg.Advisor.Enabled() {
		gemini, err := advisor.NewGeminiAdvisor(context.Background(), advisor.Config{
			APIKey:                cfg.Advisor.APIKey,
			Model:                 cfg.Advisor.Model,
			ReviewTimeout:         cfg.Advisor.ReviewTimeout,
			StoryTimeout:          cfg.Advisor.StoryTimeout,
			CriticAmountThreshold: decimal.NewFromFloat(cfg.Advisor.CriticAmountThreshold),
		}, log)
		if err != nil {
			log.Fatal("Failed to initialize advisor", zap.Error(err))
		}
		adv = gemini
		log.Info("Advisor enabled", zap.String("model", cfg.Advisor.Model))
	} else {
		log.Info("Advisor disabled, pipelines run deterministically")
	}

	// Object storage for uploaded receipt and invoice documents
	var docStorage reviewapp.ObjectStorage
	if cfg.Storage.AccessKeyID != "" {
		s3Storage, err := storage.NewS3ObjectStorage(&cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to initialize object storage", zap.Error(err))
		}
		docStorage = s3Storage
		log.Info("Object storage enabled", zap.String("bucket", cfg.Storage.Bucket))
	} else {
		docStorage = storage.NewStubObjectStorage()
		log.Warn("Object storage credentials missing, using stub storage")
	}

	// Idempotency store backs the allocation engine's operation_id dedup.
	// Redis when reachable, in-memory otherwise.
	idempotencyFactory := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log))
	idempotencyStore, err := idempotencyFactory.CreateStore()
	if err != nil {
		log.Fatal("Failed to initialize idempotency store", zap.Error(err))
	}

	// Initialize application services
	defaultsService := ledgerapp.NewDefaultAccountsService(accountRepo)
	allocationService := ledgerapp.NewAllocationService(ledgerScope, entryRepo, bankTxRepo, log)
	allocationService.SetIdempotencyStore(idempotencyStore)

	bankAccountService := bankingapp.NewBankAccountService(bankAccountRepo, accountRepo, log)
	bankRuleService := bankingapp.NewBankRuleService(bankRuleRepo, accountRepo, log)
	bankFeedService := bankingapp.NewBankFeedService(bankAccountRepo, bankTxRepo, bankRuleRepo, invoiceRepo, billRepo, log)

	reconciliationService := reconciliationapp.NewReconciliationService(
		reconciliationScope, sessionRepo, bankAccountRepo, bankTxRepo, entryRepo, accountRepo, tenantRepo, log,
	)
	reconciliationService.SetAdvisor(adv)

	documentsService := reviewapp.NewDocumentReviewService(reviewScope, tenantRepo, log)
	documentsService.SetAdvisor(adv)
	booksService := reviewapp.NewBooksReviewService(reviewScope, entryRepo, tenantRepo, log)
	booksService.SetAdvisor(adv)
	bankReviewService := reviewapp.NewBankReviewService(reviewScope, bankTxRepo, entryRepo, tenantRepo, log)
	bankReviewService.SetAdvisor(adv)
	runQueryService := reviewapp.NewRunQueryService(runRepo, docRepo, log)
	documentStorageService := reviewapp.NewDocumentStorageService(docStorage, docRepo, log)

	issueService := companionapp.NewIssueService(issueRepo, docRepo, log)
	storyService := companionapp.NewStoryService(storyRepo, issueRepo, log)
	storyService.SetAdvisor(adv)
	summaryService := companionapp.NewSummaryService(
		issueRepo, bankTxRepo, invoiceRepo, docRepo, accountRepo, storyService, log,
	)

	// Identity services (auth, user, role, tenant)
	jwtService := auth.NewJWTService(cfg.JWT)
	authService := identityapp.NewAuthService(userRepo, roleRepo, jwtService, identityapp.DefaultAuthServiceConfig(), log)
	userService := identityapp.NewUserService(userRepo, roleRepo, log)
	roleService := identityapp.NewRoleService(roleRepo, userRepo, log)
	tenantService := identityapp.NewTenantService(tenantRepo, log)

	// Initialize event bus and handlers
	eventBus := event.NewInMemoryEventBus(log)

	// Completed review runs refresh companion issues and dirty the story
	runCompletedHandler := companionapp.NewRunCompletedHandler(runRepo, issueService, storyService, log)
	eventBus.Subscribe(runCompletedHandler)

	log.Info("Event handlers registered",
		zap.Strings("run_completed_events", runCompletedHandler.EventTypes()),
	)

	// Start event bus
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Outbox processor republishes events persisted transactionally
	if cfg.Event.ProcessorEnabled {
		outboxProcessorConfig := event.OutboxProcessorConfig{
			BatchSize:        cfg.Event.BatchSize,
			PollInterval:     cfg.Event.PollInterval,
			CleanupEnabled:   cfg.Event.CleanupEnabled,
			CleanupRetention: cfg.Event.CleanupRetention,
			CleanupInterval:  1 * time.Hour,
		}
		outboxProcessor := event.NewOutboxProcessor(outboxRepo, eventBus, eventSerializer, outboxProcessorConfig, log)
		if err := outboxProcessor.Start(context.Background()); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
		defer func() {
			if err := outboxProcessor.Stop(context.Background()); err != nil {
				log.Error("Error stopping outbox processor", zap.Error(err))
			}
		}()
		log.Info("Outbox processor started",
			zap.Int("batch_size", outboxProcessorConfig.BatchSize),
			zap.Duration("poll_interval", outboxProcessorConfig.PollInterval),
		)
	}

	// Inject event bus into services that publish events
	reconciliationService.SetEventPublisher(eventBus)
	allocationService.SetEventPublisher(eventBus)
	bankFeedService.SetEventPublisher(eventBus)
	documentsService.SetEventPublisher(eventBus)
	booksService.SetEventPublisher(eventBus)
	bankReviewService.SetEventPublisher(eventBus)
	issueService.SetEventPublisher(eventBus)

	// Story worker drains dirty tenants in the background; the HTTP read
	// path never calls the advisor
	if cfg.Worker.StoryEnabled {
		workerConfig := scheduler.DefaultStoryWorkerConfig()
		workerConfig.Interval = cfg.Worker.StoryInterval
		workerConfig.BatchSize = cfg.Worker.StoryBatchSize
		storyWorker := scheduler.NewStoryWorker(storyService, log, workerConfig)
		if err := storyWorker.Start(context.Background()); err != nil {
			log.Fatal("Failed to start story worker", zap.Error(err))
		}
		defer func() {
			if err := storyWorker.Stop(context.Background()); err != nil {
				log.Error("Error stopping story worker", zap.Error(err))
			}
		}()
		log.Info("Story worker started",
			zap.Duration("interval", workerConfig.Interval),
			zap.Int("batch_size", workerConfig.BatchSize),
		)
	}

	// Initialize HTTP handlers
	reconciliationHandler := handler.NewReconciliationHandler(reconciliationService)
	bankingHandler := handler.NewBankingHandler(bankFeedService, bankAccountService, bankRuleService, allocationService)
	ledgerHandler := handler.NewLedgerHandler(defaultsService)
	reviewHandler := handler.NewReviewHandler(documentsService, booksService, bankReviewService, runQueryService)
	companionHandler := handler.NewCompanionHandler(issueService, storyService, summaryService)
	documentsHandler := handler.NewDocumentsHandler(documentStorageService)
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	roleHandler := handler.NewRoleHandler(roleService)
	tenantHandler := handler.NewTenantHandler(tenantService)
	systemHandler := handler.NewSystemHandler()
	outboxHandler := handler.NewOutboxHandler(eventapp.NewOutboxService(outboxRepo, log))

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Tracing/Metrics - OpenTelemetry instrumentation
	// 4. Logger - Log requests
	// 5. Security - Add security headers
	// 6. CORS - Handle cross-origin requests
	// 7. BodyLimit - Limit request body size
	// 8. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	if cfg.Telemetry.Enabled {
		engine.Use(middleware.Tracing())
		engine.Use(middleware.SpanErrorMarker())
		engine.Use(middleware.HTTPMetricsWithMeter(meterProvider.Meter("http"), true))
	}
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Rate limiting (if enabled)
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Apply JWT authentication middleware to API routes
	// Configure skip paths for public endpoints
	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths: []string{
			"/api/v1/auth/login",
			"/api/v1/auth/refresh",
			"/api/v1/ping",
			"/api/v1/system/ping",
			"/api/v1/system/info",
		},
		Logger: log,
	}
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	// Tenant context resolution: JWT claims first, X-Tenant-ID header as a
	// fallback for service-to-service calls
	tenantMwConfig := middleware.DefaultTenantConfig()
	tenantMwConfig.Required = false
	tenantMwConfig.SkipPaths = append(tenantMwConfig.SkipPaths, jwtConfig.SkipPaths...)
	tenantMwConfig.Logger = log
	r.Use(middleware.TenantMiddlewareWithConfig(tenantMwConfig))

	// Identity domain (authentication) - public routes. Login and refresh
	// carry a stricter per-IP rate limit to slow brute-force attempts.
	authRoutes := router.NewDomainGroup("auth", "/auth")
	if cfg.HTTP.AuthRateLimitEnabled {
		authLimiter := middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow)
		authRoutes.Use(middleware.AuthRateLimit(authLimiter))
	}
	authRoutes.POST("/login", authHandler.Login)
	authRoutes.POST("/refresh", authHandler.RefreshToken)

	// Identity domain - protected routes
	identityRoutes := router.NewDomainGroup("identity", "/identity")
	identityRoutes.POST("/auth/logout", authHandler.Logout)
	identityRoutes.GET("/auth/me", authHandler.GetCurrentUser)
	identityRoutes.PUT("/auth/password", authHandler.ChangePassword)

	// User management routes
	identityRoutes.POST("/users", userHandler.Create)
	identityRoutes.GET("/users", userHandler.List)
	identityRoutes.GET("/users/stats/count", userHandler.Count)
	identityRoutes.GET("/users/:id", userHandler.GetByID)
	identityRoutes.PUT("/users/:id", userHandler.Update)
	identityRoutes.DELETE("/users/:id", userHandler.Delete)
	identityRoutes.POST("/users/:id/activate", userHandler.Activate)
	identityRoutes.POST("/users/:id/deactivate", userHandler.Deactivate)
	identityRoutes.POST("/users/:id/lock", userHandler.Lock)
	identityRoutes.POST("/users/:id/unlock", userHandler.Unlock)
	identityRoutes.POST("/users/:id/reset-password", userHandler.ResetPassword)
	identityRoutes.PUT("/users/:id/roles", userHandler.AssignRoles)

	// Role management routes
	identityRoutes.POST("/roles", roleHandler.Create)
	identityRoutes.GET("/roles", roleHandler.List)
	identityRoutes.GET("/roles/system", roleHandler.GetSystemRoles)
	identityRoutes.GET("/roles/stats/count", roleHandler.Count)
	identityRoutes.GET("/roles/:id", roleHandler.GetByID)
	identityRoutes.GET("/roles/code/:code", roleHandler.GetByCode)
	identityRoutes.PUT("/roles/:id", roleHandler.Update)
	identityRoutes.DELETE("/roles/:id", roleHandler.Delete)
	identityRoutes.POST("/roles/:id/enable", roleHandler.Enable)
	identityRoutes.POST("/roles/:id/disable", roleHandler.Disable)
	identityRoutes.PUT("/roles/:id/permissions", roleHandler.SetPermissions)

	// Permission management
	identityRoutes.GET("/permissions", roleHandler.GetPermissions)

	// Tenant management routes. Mutations require tenant resource
	// permissions from the JWT claims
	tenantWrite := middleware.RequireResource("tenant")
	identityRoutes.POST("/tenants", tenantWrite, tenantHandler.Create)
	identityRoutes.GET("/tenants", tenantHandler.List)
	identityRoutes.GET("/tenants/stats", tenantHandler.GetStats)
	identityRoutes.GET("/tenants/stats/count", tenantHandler.Count)
	identityRoutes.GET("/tenants/:id", tenantHandler.GetByID)
	identityRoutes.GET("/tenants/code/:code", tenantHandler.GetByCode)
	identityRoutes.PUT("/tenants/:id", tenantWrite, tenantHandler.Update)
	identityRoutes.PUT("/tenants/:id/config", tenantWrite, tenantHandler.UpdateConfig)
	identityRoutes.DELETE("/tenants/:id", tenantWrite, tenantHandler.Delete)
	identityRoutes.POST("/tenants/:id/activate", tenantWrite, tenantHandler.Activate)
	identityRoutes.POST("/tenants/:id/deactivate", tenantWrite, tenantHandler.Deactivate)
	identityRoutes.POST("/tenants/:id/suspend", tenantWrite, tenantHandler.Suspend)

	// System routes
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)

	// Outbox administration (dead-letter inspection and requeue)
	systemRoutes.GET("/outbox/stats", outboxHandler.GetStats)
	systemRoutes.GET("/outbox/dead-letters", outboxHandler.GetDeadLetterEntries)
	systemRoutes.GET("/outbox/entries/:id", outboxHandler.GetEntry)
	systemRoutes.POST("/outbox/entries/:id/retry", outboxHandler.RetryDeadEntry)
	systemRoutes.POST("/outbox/retry-all", outboxHandler.RetryAllDeadEntries)

	// Register all route groups. Domain handlers register their own
	// routes under the versioned API group.
	r.Register(ledgerHandler).
		Register(bankingHandler).
		Register(reconciliationHandler).
		Register(reviewHandler).
		Register(documentsHandler).
		Register(companionHandler).
		Register(authRoutes).
		Register(identityRoutes).
		Register(systemRoutes)

	// Setup routes
	r.Setup()

	// Also keep a simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
