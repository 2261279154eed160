package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/studomat-dev/studomat-api/internal/handler"
	"github.com/studomat-dev/studomat-api/internal/middleware"
	"github.com/studomat-dev/studomat-api/internal/repository"
	"github.com/studomat-dev/studomat-api/internal/service"
	"github.com/studomat-dev/studomat-api/pkg/cache"
	"github.com/studomat-dev/studomat-api/pkg/config"
	"github.com/studomat-dev/studomat-api/pkg/database"
	"github.com/studomat-dev/studomat-api/pkg/export"
	"github.com/studomat-dev/studomat-api/pkg/logger"
	corsmiddleware "github.com/studomat-dev/studomat-api/pkg/middleware/cors"
	reqidmiddleware "github.com/studomat-dev/studomat-api/pkg/middleware/requestid"
	"github.com/studomat-dev/studomat-api/pkg/storage"
)

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
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	if err := database.Migrate(db, cfg.Database.MigrationsDir); err != nil {
		logr.Sugar().Fatalw("failed to run migrations", "error", err)
	}

	var redisClient *redis.Client
	if cfg.Leaderboard.CacheEnabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
			redisClient = nil
		}
	}

	store, err := storage.NewLocalStorage(cfg.Documents.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init document storage", "error", err)
	}

	courseRepo := repository.NewCourseRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close()

	pdfExporter := export.NewPDFExporter()
	csvExporter := export.NewCSVExporter()

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(studentRepo, courseRepo, cfg.JWT, nil, logr)
	catalogSvc := service.NewCatalogService(courseRepo, nil, logr)
	studentSvc := service.NewStudentService(studentRepo, enrollmentRepo, nil, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, courseRepo, studentRepo, nil, logr)
	exportSvc := service.NewExportService(enrollmentSvc, studentRepo, pdfExporter, csvExporter, logr)
	documentSvc := service.NewDocumentService(documentRepo, studentRepo, store, pdfExporter, cfg.Documents, nil, logr)
	leaderboardSvc := service.NewLeaderboardService(enrollmentRepo, cacheRepo, cfg.Leaderboard.CacheTTL, metricsSvc, logr)

	authHandler := handler.NewAuthHandler(authSvc, metricsSvc, leaderboardSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	courseHandler := handler.NewCourseHandler(catalogSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc, exportSvc, metricsSvc, leaderboardSvc)
	documentHandler := handler.NewDocumentHandler(documentSvc, leaderboardSvc)
	leaderboardHandler := handler.NewLeaderboardHandler(leaderboardSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	r.GET("/metrics/snapshot", metricsHandler.Snapshot)

	api := r.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		protected := api.Group("")
		protected.Use(middleware.JWT(authSvc))
		{
			students := protected.Group("/students")
			{
				students.GET("", studentHandler.List)
				students.GET("/me", studentHandler.Me)
				students.GET("/me/summary", studentHandler.Summary)
				students.GET("/:id", studentHandler.Get)
			}

			courses := protected.Group("/courses")
			{
				courses.GET("", courseHandler.List)
				courses.POST("", courseHandler.Create)
				courses.GET("/:id", courseHandler.Get)
				courses.PUT("/:id", courseHandler.Update)
			}

			enrollment := protected.Group("/enrollment")
			{
				enrollment.POST("/year", enrollmentHandler.SelectYear)
				enrollment.POST("/courses", enrollmentHandler.SelectCourses)
				enrollment.POST("/auto-fill", enrollmentHandler.AutoFill)
				enrollment.GET("/active", enrollmentHandler.ActiveLoad)
				enrollment.GET("/active/export", enrollmentHandler.Export)
				enrollment.GET("/candidates", enrollmentHandler.Candidates)
				enrollment.GET("/failed", enrollmentHandler.FailedCourses)
			}

			documents := protected.Group("/documents")
			{
				documents.POST("", documentHandler.Upload)
				documents.GET("", documentHandler.List)
				documents.POST("/submit", documentHandler.Submit)
				documents.GET("/:id/download", documentHandler.Download)
				documents.GET("/templates/:type", documentHandler.Template)
			}

			protected.GET("/leaderboard/:year", leaderboardHandler.ForYear)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
