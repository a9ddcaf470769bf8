package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	_ "github.com/pharmabill/backend/docs"
	billingapp "github.com/pharmabill/backend/internal/application/billing"
	"github.com/pharmabill/backend/internal/domain/shared"
	"github.com/pharmabill/backend/internal/domain/shared/valueobject"
	"github.com/pharmabill/backend/internal/infrastructure/auth"
	"github.com/pharmabill/backend/internal/infrastructure/cache"
	"github.com/pharmabill/backend/internal/infrastructure/config"
	"github.com/pharmabill/backend/internal/infrastructure/event"
	"github.com/pharmabill/backend/internal/infrastructure/logger"
	"github.com/pharmabill/backend/internal/infrastructure/payment"
	"github.com/pharmabill/backend/internal/infrastructure/persistence"
	"github.com/pharmabill/backend/internal/infrastructure/printing"
	"github.com/pharmabill/backend/internal/infrastructure/storage"
	"github.com/pharmabill/backend/internal/infrastructure/telemetry"
	"github.com/pharmabill/backend/internal/interfaces/http/handler"
	"github.com/pharmabill/backend/internal/interfaces/http/middleware"
	"github.com/pharmabill/backend/internal/interfaces/http/router"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

var version = "dev"

//	@title			Pharmabill API
//	@version		1.0
//	@description	Client accounts, charges and payments for pharmacies
//	@BasePath		/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	baseLog, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize meter provider", zap.Error(err))
	}

	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize logger provider", zap.Error(err))
	}

	log := baseLog
	if loggerProvider.IsEnabled() {
		otelCore := telemetry.NewZapOTELCore(loggerProvider, cfg.Telemetry.ServiceName, logger.ParseLevel(cfg.Telemetry.LogsLevel))
		log = telemetry.Bridge(baseLog, otelCore)
	}
	defer func() {
		_ = log.Sync()
	}()

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Telemetry.ProfilerEnabled,
		ServerAddress:     cfg.Telemetry.ProfilerServerAddress,
		ApplicationName:   cfg.Telemetry.ServiceName,
		BasicAuthUser:     cfg.Telemetry.ProfilerAuthUser,
		BasicAuthPassword: cfg.Telemetry.ProfilerAuthPassword,
		ProfileCPU:        true,
		ProfileAllocSpace: true,
		ProfileInuseSpace: true,
		ProfileGoroutines: true,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if cfg.Telemetry.SpanProfilesEnabled && profiler.IsEnabled() {
		if err := tracerProvider.EnableSpanProfiles(); err != nil {
			log.Warn("Failed to enable span profiles", zap.Error(err))
		}
	}

	log.Info("Starting pharmabill",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	// Database
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        "postgresql",
	}, log)
	if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// Idempotency
	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.App.IsProduction()),
	).CreateStore(ctx)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		_ = idempotencyStore.Close()
	}()

	// Document storage
	var documents billingapp.DocumentStorage
	checks := []handler.DependencyCheck{{
		Name:  "database",
		Check: func(context.Context) error { return db.Ping() },
	}}
	if redisStore, ok := idempotencyStore.(*cache.RedisIdempotencyStore); ok {
		checks = append(checks, handler.DependencyCheck{Name: "redis", Check: redisStore.Ping})
	}
	if cfg.Storage.Enabled() {
		s3Storage, err := storage.NewS3DocumentStorage(&cfg.Storage,
			storage.WithLogger(log),
			storage.WithPresignExpiration(cfg.Storage.PresignExpiration),
		)
		if err != nil {
			log.Fatal("Failed to initialize document storage", zap.Error(err))
		}
		if err := s3Storage.EnsureBucket(ctx); err != nil {
			log.Warn("Document bucket check failed", zap.String("bucket", s3Storage.Bucket()), zap.Error(err))
		}
		documents = s3Storage
		checks = append(checks, handler.DependencyCheck{Name: "storage", Check: s3Storage.Ping})
	} else {
		log.Warn("Storage bucket not configured, invoices are kept in memory")
		documents = storage.NewMemoryDocumentStorage()
	}

	// Invoice rendering
	chrome, err := printing.NewChromedpRenderer(cfg.Chrome, log)
	if err != nil {
		log.Fatal("Failed to initialize PDF renderer", zap.Error(err))
	}
	defer func() {
		_ = chrome.Close()
	}()
	invoiceRenderer, err := printing.NewInvoicePDFRenderer(chrome, log)
	if err != nil {
		log.Fatal("Failed to initialize invoice renderer", zap.Error(err))
	}

	// Events and metrics
	billingMetrics, err := telemetry.NewBillingMetrics(telemetry.BillingMetricsConfig{
		Meter:           meterProvider.Meter("pharmabill/billing"),
		Logger:          log,
		CollectInterval: cfg.Telemetry.MetricsCollectInterval,
		Receivables:     telemetry.NewGormReceivablesProvider(db.DB),
	})
	if err != nil {
		log.Fatal("Failed to initialize billing metrics", zap.Error(err))
	}
	if meterProvider.IsEnabled() {
		billingMetrics.StartPeriodicCollection(ctx)
	}

	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewAuditLogHandler(event.NewClientEventSerializer(), log))
	eventBus.Subscribe(event.NewMetricsHandler(billingMetrics))
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Repositories and services
	clientRepo := persistence.NewGormClientRepository(db.DB)
	transactionRepo := persistence.NewGormTransactionRepository(db.DB)

	billingCfg := billingapp.Config{
		DefaultCurrency:    valueobject.Currency(cfg.Billing.DefaultCurrency),
		DefaultCountryCode: cfg.Billing.DefaultCountryCode,
		DefaultCreditLimit: cfg.Billing.DefaultCreditLimit,
		MaxRetries:         cfg.Billing.MaxRetries,
		PaymentTermDays:    cfg.Billing.PaymentTermDays,
		IdempotencyTTL:     cfg.Redis.IdempotencyTTL,
		DownloadURLExpiry:  cfg.Storage.PresignExpiration,
	}

	clientService := billingapp.NewClientService(clientRepo, billingCfg, log)
	clientService.SetEventPublisher(eventBus)
	clientService.SetBillingMetrics(billingMetrics)

	transactionService := billingapp.NewTransactionService(clientRepo, transactionRepo, billingCfg, log)
	transactionService.SetEventPublisher(eventBus)
	transactionService.SetBillingMetrics(billingMetrics)
	transactionService.SetIdempotencyStore(idempotencyStore)

	invoiceService := billingapp.NewInvoiceService(clientRepo, transactionRepo, invoiceRenderer, documents, billingCfg, log)
	invoiceService.SetBillingMetrics(billingMetrics)

	// Without an access token the payment routes answer 503
	var paymentService *billingapp.PaymentService
	if cfg.Payment.Enabled() {
		gateway, err := payment.NewMercadoPagoAdapter(&payment.MercadoPagoConfig{
			AccessToken:         cfg.Payment.AccessToken,
			WebhookSecret:       cfg.Payment.WebhookSecret,
			BaseURL:             cfg.Payment.BaseURL,
			NotificationURL:     cfg.Payment.NotificationURL,
			SuccessURL:          cfg.Payment.SuccessURL,
			FailureURL:          cfg.Payment.FailureURL,
			PendingURL:          cfg.Payment.PendingURL,
			StatementDescriptor: cfg.Payment.StatementDescriptor,
			Sandbox:             cfg.Payment.Sandbox,
			Timeout:             cfg.Payment.Timeout,
			SignatureTolerance:  cfg.Payment.SignatureTolerance,
		})
		if err != nil {
			log.Fatal("Failed to initialize Mercado Pago", zap.Error(err))
		}
		paymentService = billingapp.NewPaymentService(clientRepo, transactionRepo, transactionService, gateway, log)
		paymentService.SetBillingMetrics(billingMetrics)
		log.Info("Mercado Pago payments enabled", zap.Bool("sandbox", cfg.Payment.Sandbox))
	}

	// HTTP
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := middleware.SetupValidator(); err != nil {
		log.Fatal("Failed to register validators", zap.Error(err))
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders

	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.CORSWithConfig(corsConfig),
		middleware.Secure(),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		}),
	)

	systemHandler := handler.NewSystemHandler(cfg.App.Name, version, checks...)
	engine.GET("/health", systemHandler.Health)

	if !cfg.App.IsProduction() {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	httpMetrics, err := middleware.HTTPMetrics(meterProvider.Meter("pharmabill/http"))
	if err != nil {
		log.Fatal("Failed to initialize HTTP metrics", zap.Error(err))
	}

	jwtService := auth.NewJWTService(cfg.JWT)
	// The gateway authenticates with its signature, not a token
	publicPaths := []string{"/api/v1/payments/webhook"}
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Use(
		middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
			Validator:      jwtService,
			SkipPaths:      publicPaths,
			AllowAnonymous: cfg.JWT.DevPharmacyHeader,
			Logger:         log,
		}),
		middleware.PharmacyScope(middleware.PharmacyMiddlewareConfig{
			HeaderEnabled: cfg.JWT.DevPharmacyHeader,
			SkipPaths:     publicPaths,
		}),
		middleware.SpanEnricher(),
		httpMetrics,
		middleware.Profiling(),
	)
	if cfg.HTTP.RateLimitRequests > 0 {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		limiter.StartCleanup(ctx)
		r.Use(middleware.RateLimit(limiter))
	}

	r.Register(router.NewClientRoutes(handler.NewClientHandler(clientService))).
		Register(router.NewTransactionRoutes(handler.NewTransactionHandler(transactionService, invoiceService))).
		Register(router.NewPaymentRoutes(handler.NewPaymentHandler(paymentService))).
		Register(router.NewSystemRoutes(systemHandler))
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down server...")
	case err := <-serverErr:
		log.Error("Server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	shutdownTelemetry(shutdownCtx, log, billingMetrics, eventBus, profiler, tracerProvider, meterProvider, loggerProvider)

	log.Info("Server exited gracefully")
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// shutdownTelemetry flushes exporters in reverse start order
func shutdownTelemetry(
	ctx context.Context,
	log *zap.Logger,
	metrics *telemetry.BillingMetrics,
	bus shared.EventBus,
	profiler *telemetry.Profiler,
	providers ...shutdowner,
) {
	metrics.Stop()
	if err := bus.Stop(ctx); err != nil {
		log.Warn("Event bus stop failed", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Warn("Profiler stop failed", zap.Error(err))
	}
	for i := len(providers) - 1; i >= 0; i-- {
		if err := providers[i].Shutdown(ctx); err != nil {
			log.Warn("Telemetry shutdown failed", zap.Error(err))
		}
	}
}
