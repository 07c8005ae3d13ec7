package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	catalogapp "github.com/taskprod/backend/internal/application/catalog"
	identityapp "github.com/taskprod/backend/internal/application/identity"
	taskingapp "github.com/taskprod/backend/internal/application/tasking"
	"github.com/taskprod/backend/internal/infrastructure/auth"
	"github.com/taskprod/backend/internal/infrastructure/cache"
	"github.com/taskprod/backend/internal/infrastructure/config"
	"github.com/taskprod/backend/internal/infrastructure/event"
	"github.com/taskprod/backend/internal/infrastructure/logger"
	"github.com/taskprod/backend/internal/infrastructure/mail"
	"github.com/taskprod/backend/internal/infrastructure/persistence"
	"github.com/taskprod/backend/internal/infrastructure/scheduler"
	"github.com/taskprod/backend/internal/infrastructure/telemetry"
	"github.com/taskprod/backend/internal/interfaces/http/handler"
	"github.com/taskprod/backend/internal/interfaces/http/middleware"
	"github.com/taskprod/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title						Task Production API
//	@version					1.0
//	@description				Categories, products and tasks with owner-scoped access and due-date reminders.
//	@BasePath					/api/v1
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
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		Service: cfg.App.Name,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync(log)

	tracerProvider, meterProvider, logProvider := setupTelemetry(cfg, log)
	log = logProvider.Bridge(log, logger.ParseLevel(cfg.Log.Level))
	defer shutdownTelemetry(log, logProvider, meterProvider, tracerProvider)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	log.Info("Starting task backend",
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithLogger(log, cfg.Log.Level),
		persistence.WithTracing(cfg.Telemetry),
	)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate schema", zap.Error(err))
		}
		log.Info("Schema auto-migrated", zap.String("driver", db.Driver))
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelStart()

	stores := cache.NewStoreFactory(cfg.Redis, cache.WithLogger(log))
	defer func() {
		if err := stores.Close(); err != nil {
			log.Error("Error closing Redis client", zap.Error(err))
		}
	}()
	blacklist, err := stores.CreateTokenBlacklist(startCtx)
	if err != nil {
		log.Fatal("Failed to create token blacklist", zap.Error(err))
	}
	idempotency, err := stores.CreateIdempotencyStore(startCtx)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(event.NewAuditLogHandler(log))
	defer func() { _ = bus.Stop(context.Background()) }()

	sender := mail.NewLogSender(cfg.Mail.From, log)
	jwtService := auth.NewJWTService(cfg.JWT)

	userRepo := persistence.NewGormUserRepository(db.DB)
	categoryRepo := persistence.NewGormCategoryRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	taskRepo := persistence.NewGormTaskRepository(db.DB)

	authService := identityapp.NewAuthService(userRepo, jwtService, blacklist, auth.NewPasswordResetTokens(cfg.JWT), sender, log)
	categoryService := catalogapp.NewCategoryService(categoryRepo, bus)
	productService := catalogapp.NewProductService(productRepo, categoryRepo, bus)
	taskService := taskingapp.NewTaskService(taskRepo, productRepo, userRepo, bus)

	// Reminder pipeline: cron scan -> worker pool -> mail
	var jobs handler.JobStats
	if cfg.Scheduler.Enabled {
		pool, err := scheduler.NewWorkerPool(scheduler.ConfigFromSettings(cfg.Scheduler), idempotency, log,
			scheduler.WithMeter(meterProvider.Meter(scheduler.MeterName)),
		)
		if err != nil {
			log.Fatal("Invalid scheduler configuration", zap.Error(err))
		}
		reminders := taskingapp.NewReminderService(taskRepo, productRepo, userRepo, pool, sender, cfg.Scheduler, log)
		reminders.Register(pool)

		trigger, err := scheduler.NewCronTrigger("task-reminders", cfg.Scheduler.ReminderInterval, func(ctx context.Context) error {
			_, err := reminders.ScanDueTasks(ctx)
			return err
		}, log)
		if err != nil {
			log.Fatal("Invalid reminder interval", zap.Error(err))
		}

		if err := pool.Start(context.Background()); err != nil {
			log.Fatal("Failed to start worker pool", zap.Error(err))
		}
		if err := trigger.Start(context.Background()); err != nil {
			log.Fatal("Failed to start reminder trigger", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Scheduler.JobTimeout)
			defer cancel()
			if err := trigger.Stop(stopCtx); err != nil {
				log.Error("Error stopping reminder trigger", zap.Error(err))
			}
			if err := pool.Stop(stopCtx); err != nil {
				log.Error("Error stopping worker pool", zap.Error(err))
			}
		}()
		jobs = pool
		log.Info("Reminder scheduler started",
			zap.String("spec", trigger.Spec()),
			zap.Duration("lead", cfg.Scheduler.ReminderLead),
			zap.Duration("tolerance", cfg.Scheduler.ReminderTolerance),
			zap.Int("workers", cfg.Scheduler.Workers),
		)
	}

	engine, err := router.NewEngine(router.EngineConfig{
		HTTP:           cfg.HTTP,
		JWTService:     jwtService,
		TokenBlacklist: blacklist,
		Logger:         log,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     tracerProvider.IsEnabled(),
		},
	}, router.Handlers{
		Auth:     handler.NewAuthHandler(authService),
		Category: handler.NewCategoryHandler(categoryService),
		Product:  handler.NewProductHandler(productService),
		Task:     handler.NewTaskHandler(taskService),
		Health:   handler.NewHealthHandler(db, jobs, version),
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

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

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// shutdownProvider is satisfied by the telemetry providers
type shutdownProvider interface {
	Shutdown(ctx context.Context) error
}

// setupTelemetry starts span, metric and log export. Without a collector
// endpoint every provider stays a no-op.
func setupTelemetry(cfg *config.Config, log *zap.Logger) (*telemetry.TracerProvider, *telemetry.MeterProvider, *telemetry.LoggerProvider) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tp, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	mp, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	lp, err := telemetry.NewLoggerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize log export", zap.Error(err))
	}
	return tp, mp, lp
}

func shutdownTelemetry(log *zap.Logger, providers ...shutdownProvider) {
	for _, p := range providers {
		if err := p.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down telemetry", zap.Error(err))
		}
	}
}
