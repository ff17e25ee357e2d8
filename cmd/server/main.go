package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chromabloom/internal/config"
	"chromabloom/internal/database"
	"chromabloom/internal/handlers"
	"chromabloom/internal/repository"
	"chromabloom/internal/security"
	"chromabloom/internal/service"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfg := config.Load()

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	startup := handlers.NewStartupStatus(
		handlers.StepDatabase,
		handlers.StepMigrations,
		handlers.StepCatalog,
		handlers.StepServices,
	)
	tokens := security.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
	limiter := security.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	defer limiter.Stop()

	// Serve health checks while the rest of the stack comes up
	router := &handlers.Router{
		Middleware: handlers.NewMiddleware(tokens, limiter),
		Startup:    startup,
		Logger:     logger,
	}
	var api http.Handler = http.NotFoundHandler()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handlers.Healthz)
	mux.HandleFunc("GET /readyz", startup.Readyz)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if !startup.IsReady() {
			startup.Readyz(w, r)
			return
		}
		api.ServeHTTP(w, r)
	})

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.PredictorTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	ctx := context.Background()

	startup.SetCurrentStep(handlers.StepDatabase)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()
	startup.CompleteStep(handlers.StepDatabase)
	logger.Info("database connection established", zap.String("type", cfg.DatabaseType))

	startup.SetCurrentStep(handlers.StepMigrations)
	applied, err := db.RunMigrations(ctx)
	if err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	startup.CompleteStep(handlers.StepMigrations)
	logger.Info("migrations completed", zap.Strings("applied", applied))

	startup.SetCurrentStep(handlers.StepCatalog)
	if cfg.CatalogSeedPath != "" {
		summary, err := service.NewBackupService(db, logger).Import(ctx, cfg.CatalogSeedPath)
		if err != nil {
			logger.Fatal("failed to seed catalog", zap.String("path", cfg.CatalogSeedPath), zap.Error(err))
		}
		logger.Info("catalog seeded", zap.Int("activities", summary.Activities))
	}
	startup.CompleteStep(handlers.StepCatalog)

	startup.SetCurrentStep(handlers.StepServices)
	clock := service.NewClock(loc)
	activityRepo := repository.NewActivityRepository(db)
	planRepo := repository.NewPlanRepository(db)
	runRepo := repository.NewRunRepository(db)

	emailService, err := service.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, logger)
	if err != nil {
		logger.Warn("cycle emails disabled", zap.Error(err))
		emailService = nil
	}
	var notifier service.CycleNotifier
	if emailService != nil && emailService.IsEnabled() {
		notifier = emailService
	}

	catalogService := service.NewCatalogService(activityRepo, logger)
	progressService := service.NewProgressService(planRepo, activityRepo, runRepo, clock, logger)
	featureService := service.NewFeatureService(runRepo, clock)
	predictor := service.NewPredictorClient(cfg.PredictorURL, cfg.PredictorTimeout)
	planService := service.NewPlanService(db, catalogService, featureService, predictor, notifier, clock, logger)

	router.Activities = handlers.NewActivityHandler(catalogService, logger)
	router.Plans = handlers.NewPlanHandler(planService, logger)
	router.Progress = handlers.NewProgressHandler(progressService, logger)
	api = router.Handler()
	startup.CompleteStep(handlers.StepServices)
	startup.MarkReady()
	logger.Info("server ready", zap.String("timezone", loc.String()))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
