package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/edutrack-io/kocluk-api/api/swagger"
	"github.com/edutrack-io/kocluk-api/internal/handler"
	"github.com/edutrack-io/kocluk-api/internal/middleware"
	"github.com/edutrack-io/kocluk-api/internal/repository"
	"github.com/edutrack-io/kocluk-api/internal/service"
	"github.com/edutrack-io/kocluk-api/pkg/cache"
	"github.com/edutrack-io/kocluk-api/pkg/config"
	"github.com/edutrack-io/kocluk-api/pkg/database"
	"github.com/edutrack-io/kocluk-api/pkg/jobs"
	"github.com/edutrack-io/kocluk-api/pkg/logger"
	corsmiddleware "github.com/edutrack-io/kocluk-api/pkg/middleware/cors"
	reqidmiddleware "github.com/edutrack-io/kocluk-api/pkg/middleware/requestid"
	"github.com/edutrack-io/kocluk-api/pkg/storage"
)

// @title Kocluk API
// @version 1.0.0
// @description Task and assignment lifecycle engine for the coaching platform
// @BasePath /api/v1
// @schemes http https

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
		logr.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Fatal("redis connection failed", zap.Error(err))
	}
	defer redisClient.Close() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	userRepo := repository.NewUserRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	parentRepo := repository.NewParentRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	routineRepo := repository.NewRoutineTaskRepository(db)
	resultRepo := repository.NewTestResultRepository(db)
	extensionRepo := repository.NewExtensionRequestRepository(db)
	curriculumRepo := repository.NewCurriculumRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, teacherRepo, studentRepo, parentRepo,
		cfg.JWT.Secret, cfg.JWT.Expiration, cfg.JWT.RefreshExpiration, logr)

	expansionSvc := service.NewExpansionService(routineRepo, taskRepo, studentRepo, nil,
		cfg.Expansion.MaxHorizonDays, logr)
	dashboardSvc := service.NewDashboardService(taskRepo, expansionSvc, cacheRepo,
		cfg.Dashboard.CacheTTL, cfg.Dashboard.Enabled, logr)
	expansionSvc.SetInvalidator(dashboardSvc)
	expansionSvc.SetMetrics(metricsSvc)
	dashboardSvc.SetMetrics(metricsSvc)

	taskSvc := service.NewTaskService(db, taskRepo, studentRepo, expansionSvc,
		resultRepo, extensionRepo, dashboardSvc, logr)
	completionSvc := service.NewCompletionService(db, taskRepo, resultRepo, studentRepo,
		curriculumRepo, extensionRepo, dashboardSvc, logr)
	routineSvc := service.NewRoutineTaskService(routineRepo, logr)
	extensionSvc := service.NewExtensionService(extensionRepo, taskRepo, dashboardSvc, logr)
	curriculumSvc := service.NewCurriculumService(curriculumRepo, progressRepo, studentRepo, logr)
	resultSvc := service.NewTestResultService(resultRepo, studentRepo, logr)

	teacherSvc := service.NewTeacherService(db, teacherRepo, userRepo, logr)
	studentSvc := service.NewStudentService(db, studentRepo, userRepo, logr)
	parentSvc := service.NewParentService(db, parentRepo, studentRepo, userRepo, logr)
	deletionSvc := service.NewDeletionService(db, teacherRepo, studentRepo, parentRepo, userRepo,
		taskRepo, routineRepo, progressRepo, extensionRepo, resultRepo, dashboardSvc, logr)

	var reportSvc *service.ReportService
	if cfg.Reports.Enabled {
		reportRepo := repository.NewReportRepository(db)
		reportStorage, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Fatal("report storage init failed", zap.Error(err))
		}
		signer := storage.NewDownloadSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		reportSvc = service.NewReportService(reportRepo, taskRepo, resultRepo, studentRepo,
			reportStorage, signer, jobs.QueueConfig{
				Workers:    cfg.Reports.WorkerConcurrency,
				MaxRetries: cfg.Reports.WorkerRetries,
				Logger:     logr,
			}, logr)
		reportSvc.SetMetrics(metricsSvc)
		reportSvc.StartWorkers(ctx)
		defer reportSvc.StopWorkers()

		go func() {
			ticker := time.NewTicker(cfg.Reports.CleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					removed, err := reportStorage.CleanupOlderThan(cfg.Reports.SignedURLTTL)
					if err != nil {
						logr.Warn("report cleanup failed", zap.Error(err))
						continue
					}
					if len(removed) > 0 {
						logr.Info("expired report files removed", zap.Int("count", len(removed)))
					}
				}
			}
		}()
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(middleware.Metrics(metricsSvc))

	handler.RegisterRoutes(r, handler.RouterConfig{
		Auth:       handler.NewAuthHandler(authSvc),
		Teachers:   handler.NewTeacherHandler(teacherSvc, deletionSvc),
		Students:   handler.NewStudentHandler(studentSvc, taskSvc, dashboardSvc, curriculumSvc, resultSvc, deletionSvc),
		Parents:    handler.NewParentHandler(parentSvc, deletionSvc),
		Tasks:      handler.NewTaskHandler(taskSvc, completionSvc),
		Routines:   handler.NewRoutineTaskHandler(routineSvc),
		Extensions: handler.NewExtensionHandler(extensionSvc),
		Curriculum: handler.NewCurriculumHandler(curriculumSvc),
		Reports:    handler.NewReportHandler(reportSvc),

		AuthService:    authSvc,
		MetricsService: metricsSvc,
		ParentLookup:   parentRepo,

		APIPrefix:      cfg.APIPrefix,
		ReportsEnabled: cfg.Reports.Enabled,
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", server.Addr), zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Error("shutdown incomplete", zap.Error(err))
	}
}
