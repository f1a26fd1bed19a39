package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/acadsync/timetable-api/internal/engine"
	"github.com/acadsync/timetable-api/internal/handler"
	"github.com/acadsync/timetable-api/internal/middleware"
	"github.com/acadsync/timetable-api/internal/repository"
	"github.com/acadsync/timetable-api/internal/service"
	"github.com/acadsync/timetable-api/pkg/cache"
	"github.com/acadsync/timetable-api/pkg/config"
	"github.com/acadsync/timetable-api/pkg/database"
	"github.com/acadsync/timetable-api/pkg/jobs"
	"github.com/acadsync/timetable-api/pkg/logger"
	corsmiddleware "github.com/acadsync/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/acadsync/timetable-api/pkg/middleware/requestid"
)

// @title Timetable API
// @version 1.0.0
// @description Timetable allocation service for department and semester scopes
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	departmentRepo := repository.NewDepartmentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	layoutStore := repository.NewLayoutStore(redisClient)

	metricsService := service.NewMetricsService()
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration, cfg.JWT.Issuer, validate, logr)
	departmentService := service.NewDepartmentService(departmentRepo, validate, logr)
	courseService := service.NewCourseService(courseRepo, validate, logr)
	layoutService := service.NewLayoutService(layoutStore, cfg.Engine.DefaultWorkingDays, validate, logr)
	assignmentService := service.NewAssignmentService(layoutStore, validate, logr)
	timetableService := service.NewTimetableService(layoutStore, courseRepo, timetableRepo, metricsService,
		enginePolicy(cfg.Engine), cfg.Engine.FoldSaturday, validate, logr)

	queue := jobs.NewQueue("generate", timetableService.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		BufferSize: cfg.Jobs.BufferSize,
		MaxRetries: cfg.Jobs.MaxRetries,
		RetryDelay: cfg.Jobs.RetryDelay,
		Logger:     logr,
	})
	timetableService.AttachQueue(queue)

	authHandler := handler.NewAuthHandler(authService)
	departmentHandler := handler.NewDepartmentHandler(departmentService)
	courseHandler := handler.NewCourseHandler(courseService)
	layoutHandler := handler.NewLayoutHandler(layoutService)
	assignmentHandler := handler.NewAssignmentHandler(assignmentService)
	timetableHandler := handler.NewTimetableHandler(timetableService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "postgres": err.Error()})
			return
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "redis": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "queue_depth": queue.Depth()})
	})
	r.GET("/metrics", gin.WrapH(metricsService.Handler()))

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	protected := api.Group("")
	protected.Use(middleware.JWTAuth(authService))

	protected.GET("/departments", departmentHandler.List)
	protected.POST("/departments", departmentHandler.Create)
	protected.DELETE("/departments/:id", departmentHandler.Delete)

	protected.GET("/courses/:id", courseHandler.Get)
	protected.PUT("/courses/:id", courseHandler.Update)
	protected.DELETE("/courses/:id", courseHandler.Delete)

	protected.GET("/timetables/:id", timetableHandler.Get)
	protected.DELETE("/timetables/:id", timetableHandler.Delete)

	scoped := protected.Group("/departments/:dept/semesters/:sem")
	scoped.GET("/courses", courseHandler.List)
	scoped.POST("/courses", courseHandler.Create)
	scoped.POST("/courses/import", courseHandler.Import)
	scoped.PUT("/layout", layoutHandler.Build)
	scoped.GET("/layout", layoutHandler.Get)
	scoped.DELETE("/layout", layoutHandler.Clear)
	scoped.PUT("/assignments", assignmentHandler.Save)
	scoped.GET("/assignments", assignmentHandler.Get)
	scoped.POST("/timetable/generate", timetableHandler.Generate)
	scoped.GET("/timetable/export/csv", timetableHandler.ExportCSV)
	scoped.GET("/timetable/export/pdf", timetableHandler.ExportPDF)
	scoped.GET("/timetables", timetableHandler.List)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue.Start(ctx)
	defer queue.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}
}

func enginePolicy(cfg config.EngineConfig) engine.Policy {
	policy := engine.DefaultPolicy()
	if cfg.MaxRetries > 0 {
		policy.MaxRetries = cfg.MaxRetries
	}
	if cfg.EvictionCreditExempt > 0 {
		policy.EvictionCreditExempt = cfg.EvictionCreditExempt
	}
	if cfg.MaxLabsPerDivisionDay > 0 {
		policy.MaxLabsPerDivisionDay = cfg.MaxLabsPerDivisionDay
	}
	if cfg.SameDayRepeatPenalty > 0 {
		policy.SameDayRepeatPenalty = cfg.SameDayRepeatPenalty
	}
	return policy
}
