package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	catalogapp "github.com/erp/stockledger/internal/application/catalog"
	closingapp "github.com/erp/stockledger/internal/application/closing"
	inventoryapp "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/domain/inventory"
	domainstrategy "github.com/erp/stockledger/internal/domain/shared/strategy"
	"github.com/erp/stockledger/internal/infrastructure/cache"
	"github.com/erp/stockledger/internal/infrastructure/config"
	"github.com/erp/stockledger/internal/infrastructure/event"
	"github.com/erp/stockledger/internal/infrastructure/logger"
	"github.com/erp/stockledger/internal/infrastructure/persistence"
	"github.com/erp/stockledger/internal/infrastructure/scheduler"
	"github.com/erp/stockledger/internal/infrastructure/sequence"
	"github.com/erp/stockledger/internal/infrastructure/storage"
	"github.com/erp/stockledger/internal/infrastructure/strategy"
	"github.com/erp/stockledger/internal/infrastructure/telemetry"
	"github.com/erp/stockledger/internal/interfaces/http/handler"
	"github.com/erp/stockledger/internal/interfaces/http/middleware"
	"github.com/erp/stockledger/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const requestTimeout = 60 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(cfg.Log, cfg.App.Name)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx := context.Background()

	// Telemetry first so the rest of the startup is traced and exported
	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		if err := meterProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	loggerProvider, err := telemetry.NewLoggerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	defer func() {
		if err := loggerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down logger provider", zap.Error(err))
		}
	}()
	log = logger.Tee(log, loggerProvider.Core(zapcore.InfoLevel))

	profiler, err := telemetry.NewProfiler(cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}()
	if profiler.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}

	meter := meterProvider.Meter(cfg.Telemetry.ServiceName)

	// Database
	gormLogger := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLogger)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	// sqlite has no SQL migrations; postgres is migrated with cmd/migrate
	if db.IsSQLite() {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate sqlite schema", zap.Error(err))
		}
	}

	if err := telemetry.InstrumentDB(db.DB, cfg.Telemetry, meter, log); err != nil {
		log.Fatal("Failed to instrument database", zap.Error(err))
	}
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	// Redis is optional: without it locks are process local and sequences come from the database
	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Error closing Redis client", zap.Error(err))
			}
		}()
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}
	locker := cache.NewLocker(redisClient, cfg.Scheduler.LockTTL)

	scopeOpts := []persistence.ScopeOption{}
	if cfg.Sequence.Backend == "redis" {
		scopeOpts = append(scopeOpts, persistence.WithSequenceGenerator(
			sequence.NewRedisGenerator(redisClient, "", nil)))
	}

	// Strategies
	strategies, err := strategy.NewRegistryWithDefaults()
	if err != nil {
		log.Fatal("Failed to register strategies", zap.Error(err))
	}
	if err := strategies.SetDefault(domainstrategy.StrategyTypeLotSelection, strings.ToUpper(cfg.Lot.DefaultStrategy)); err != nil {
		log.Fatal("Invalid default lot strategy", zap.Error(err))
	}

	// Events and metrics
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewLogHandler(log))

	stockMetrics, err := telemetry.NewStockMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create stock metrics", zap.Error(err))
	}

	// Application services
	deps := inventoryapp.Dependencies{
		Scope:      persistence.NewGormTransactionScope(db.DB, scopeOpts...),
		Strategies: strategies,
		Events:     eventBus,
		Metrics:    stockMetrics,
		Logger:     log,
	}
	catalogService := catalogapp.NewCatalogService(
		persistence.NewGormArticleRepository(db.DB),
		persistence.NewGormDepotRepository(db.DB),
	)
	ledgerService := inventoryapp.NewLedgerService(deps)
	lotService := inventoryapp.NewLotService(deps)
	reservationService := inventoryapp.NewReservationService(deps, cfg.Reservation.DefaultTTL)
	transferService := inventoryapp.NewTransferService(deps)
	stockCountService := inventoryapp.NewStockCountService(deps, countPolicy(cfg.Count))
	valuationService := inventoryapp.NewValuationService(deps)

	archive, err := storage.NewArchive(ctx, cfg.Storage, log)
	if err != nil {
		log.Fatal("Failed to initialize closing archive", zap.Error(err))
	}
	closingService := closingapp.NewClosingService(closingapp.Dependencies{
		Scope:    persistence.NewGormClosingScope(db.DB),
		Stocks:   persistence.NewGormStockRepository(db.DB),
		Valuer:   valuationService,
		Archiver: archive,
		Locker:   locker,
		Events:   eventBus,
		Metrics:  stockMetrics,
		Logger:   log,
	})

	// Background sweeps
	sweeps := scheduler.NewScheduler(cfg.Scheduler, locker, log,
		scheduler.InventoryJobs(cfg, reservationService, lotService, nil)...)
	if err := sweeps.Start(ctx); err != nil {
		log.Fatal("Failed to start scheduler", zap.Error(err))
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Scheduler.JobTimeout)
		defer cancel()
		if err := sweeps.Stop(stopCtx); err != nil {
			log.Error("Error stopping scheduler", zap.Error(err))
		}
	}()

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	} else if err := engine.SetTrustedProxies(nil); err != nil {
		log.Warn("Failed to disable proxy trust", zap.Error(err))
	}

	httpMetrics, err := middleware.HTTPMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create HTTP metrics", zap.Error(err))
	}

	tracingCfg := middleware.DefaultTracingConfig()
	tracingCfg.ServiceName = cfg.Telemetry.ServiceName
	tracingCfg.Enabled = tracerProvider.IsEnabled()

	profilingCfg := middleware.DefaultProfilingConfig()
	profilingCfg.Enabled = profiler.IsEnabled()

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins

	engine.Use(
		middleware.RequestID(),
		middleware.TracingWithConfig(tracingCfg),
		middleware.TracingAttributeInjector(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.SpanErrorMarker(),
		httpMetrics,
		middleware.ProfilingWithConfig(profilingCfg),
		middleware.CORSWithConfig(corsCfg),
		middleware.Secure(),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.Timeout(requestTimeout),
	)

	systemHandler := handler.NewSystemHandler(cfg.App.Name, version).
		AddCheck("database", func(context.Context) error { return db.Ping() })
	if redisClient != nil {
		systemHandler.AddCheck("redis", redisCheck(redisClient))
	}

	router.Mount(engine, router.Handlers{
		System:      systemHandler,
		Catalog:     handler.NewCatalogHandler(catalogService),
		Ledger:      handler.NewLedgerHandler(ledgerService),
		Lots:        handler.NewLotHandler(lotService),
		Reservation: handler.NewReservationHandler(reservationService),
		Transfer:    handler.NewTransferHandler(transferService),
		StockCount:  handler.NewStockCountHandler(stockCountService),
		Valuation:   handler.NewValuationHandler(valuationService),
		Closing:     handler.NewClosingHandler(closingService),
	})

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
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

func countPolicy(cfg config.CountConfig) inventory.CountPolicy {
	return inventory.CountPolicy{
		RecountUnitThreshold:      decimal.NewFromFloat(cfg.RecountUnitThreshold),
		RecountPercentThreshold:   decimal.NewFromFloat(cfg.RecountPercentThreshold),
		RecountValueThreshold:     decimal.NewFromFloat(cfg.RecountValueThreshold),
		SecondValidationThreshold: decimal.NewFromFloat(cfg.SecondValidationThreshold),
	}
}

func redisCheck(client *redis.Client) handler.ReadinessCheck {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
