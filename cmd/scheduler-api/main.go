package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-daily-scheduler/api/swagger"
	"github.com/noah-isme/sma-daily-scheduler/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-daily-scheduler/internal/middleware"
	"github.com/noah-isme/sma-daily-scheduler/internal/repository"
	"github.com/noah-isme/sma-daily-scheduler/internal/scheduler"
	"github.com/noah-isme/sma-daily-scheduler/internal/service"
	"github.com/noah-isme/sma-daily-scheduler/pkg/cache"
	"github.com/noah-isme/sma-daily-scheduler/pkg/config"
	"github.com/noah-isme/sma-daily-scheduler/pkg/database"
	"github.com/noah-isme/sma-daily-scheduler/pkg/jobs"
	"github.com/noah-isme/sma-daily-scheduler/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-daily-scheduler/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-daily-scheduler/pkg/middleware/requestid"
)

// @title Daily Scheduler API
// @version 1.0.0
// @description Daily class scheduling with teacher substitution
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(rootCtx, cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database unavailable", "error", err)
	}
	defer db.Close()

	checks := map[string]handler.Pinger{"database": db}

	// Left as a nil interface when Redis is off so the cache repository sees no client.
	var redisClient redis.UniversalClient
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(rootCtx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, schedule cache disabled", zap.Error(err))
		} else {
			redisClient = client
			defer client.Close()
		}
	}

	metrics := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	if redisClient != nil {
		checks["redis"] = handler.PingFunc(cacheRepo.Ping)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled && redisClient != nil)

	grid := scheduler.DefaultTimeGrid()
	teacherRepo := repository.NewTeacherRepository(db)
	leaveRepo := repository.NewTeacherLeaveRepository(db)
	prefRepo := repository.NewTeacherPreferenceRepository(db)
	var availability scheduler.AvailabilitySource = service.NewLeaveAvailabilitySource(
		leaveRepo,
		prefRepo,
		grid,
		cfg.Scheduler.MaxPeriodsPerDay,
		logr.Named("availability"),
	)
	if cfg.Scheduler.SimulationEnabled() {
		availability = scheduler.NewSimulatedAbsenceSource(availability, cfg.Scheduler.SimulatedAbsenceRate,
			cfg.Scheduler.SimulatedAbsenceMax, cfg.Scheduler.Seed, logr.Named("simulation"))
		logr.Sugar().Infow("simulated absences enabled", "rate", cfg.Scheduler.SimulatedAbsenceRate, "max", cfg.Scheduler.SimulatedAbsenceMax)
	}

	validate := validator.New()
	schedules := service.NewDailyScheduleService(
		teacherRepo,
		repository.NewClassRepository(db),
		repository.NewDailyScheduleRepository(db),
		db,
		availability,
		grid,
		cacheSvc,
		metrics,
		validate,
		logr,
		service.DailyScheduleConfig{
			MaxConsecutivePeriods: cfg.Scheduler.MaxConsecutivePeriods,
			Seed:                  cfg.Scheduler.Seed,
			DefaultWeekDays:       cfg.Scheduler.DefaultWeekDays,
			MaxRangeDays:          cfg.Scheduler.MaxRangeDays,
			CacheTTL:              cfg.Cache.TTL,
		},
	)

	runs := service.NewScheduleRunService(schedules, nil, metrics, validate, logr.Named("runs"), service.ScheduleRunConfig{RunTTL: cfg.Scheduler.RunTTL})
	retries := cfg.Scheduler.WorkerRetries
	if retries <= 0 {
		retries = -1
	}
	queue := jobs.NewQueue("schedule-runs", runs.Handle, jobs.QueueConfig{
		Workers:    cfg.Scheduler.Workers,
		MaxRetries: retries,
		RetryDelay: 5 * time.Second,
		Logger:     logr.Named("queue"),
		OnGiveUp:   runs.GiveUp,
	})
	runs.SetQueue(queue)
	queue.Start(rootCtx)

	exports := service.NewExportService(schedules, logr, nil, nil)
	teacherAvailability := service.NewTeacherAvailabilityService(teacherRepo, prefRepo, leaveRepo, grid,
		cfg.Scheduler.MaxRangeDays, validate, logr.Named("availability"))

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))
	r.Use(internalmiddleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(metrics, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	api.GET("/metrics/summary", metricsHandler.Snapshot)
	handler.NewDailyScheduleHandler(schedules, runs, exports).Register(api.Group("/schedules/daily"))
	handler.NewTeacherAvailabilityHandler(teacherAvailability).Register(api.Group("/teachers"))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Scheduler.ShutdownDrainTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("http shutdown incomplete", zap.Error(err))
	}
	queue.Stop()
}
