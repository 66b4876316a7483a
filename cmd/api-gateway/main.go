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

	_ "github.com/noah-isme/muse-ops-api/api/swagger"
	"github.com/noah-isme/muse-ops-api/internal/handler"
	"github.com/noah-isme/muse-ops-api/internal/middleware"
	"github.com/noah-isme/muse-ops-api/internal/repository"
	"github.com/noah-isme/muse-ops-api/internal/service"
	"github.com/noah-isme/muse-ops-api/pkg/cache"
	"github.com/noah-isme/muse-ops-api/pkg/config"
	"github.com/noah-isme/muse-ops-api/pkg/database"
	"github.com/noah-isme/muse-ops-api/pkg/jobs"
	"github.com/noah-isme/muse-ops-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/muse-ops-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/muse-ops-api/pkg/middleware/requestid"
	"github.com/noah-isme/muse-ops-api/pkg/storage"
)

// @title Muse Ops API
// @version 0.1.0
// @description Credit ledger, attendance reconciliation and finance API
// @BasePath /
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	ledgerCache := service.NewCacheService(cacheRepo, metricsSvc, cfg.Ledger.CacheTTL, logr, cfg.Ledger.CacheEnabled)
	financeCache := service.NewCacheService(cacheRepo, metricsSvc, cfg.Finance.CacheTTL, logr, cfg.Finance.CacheEnabled)

	studentRepo := repository.NewStudentRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	teacherAttendanceRepo := repository.NewTeacherAttendanceRepository(db)
	feeRepo := repository.NewFeeRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	budgetRepo := repository.NewBudgetRepository(db)

	ledgerSvc := service.NewLedgerService(enrollmentRepo, paymentRepo, attendanceRepo, ledgerCache, metricsSvc, logr, service.LedgerServiceConfig{
		CacheTTL:            cfg.Ledger.CacheTTL,
		OverdueLowWaterMark: cfg.Ledger.OverdueLowWaterMark,
		SessionsPerWeek:     cfg.Ledger.SessionsPerWeek,
	})
	studentSvc := service.NewStudentService(studentRepo, enrollmentRepo, logr)
	batchSvc := service.NewBatchService(batchRepo, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, logr)
	paymentSvc := service.NewPaymentService(paymentRepo, ledgerCache, nil, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, ledgerCache, logr)
	reconcilerSvc := service.NewReconcilerService(batchRepo, teacherAttendanceRepo, logr)
	payoutSvc := service.NewPayoutService(teacherRepo, batchRepo, enrollmentRepo, teacherAttendanceRepo, logr)
	financeSvc := service.NewFinanceService(paymentRepo, enrollmentRepo, feeRepo, expenseRepo, budgetRepo, payoutSvc, financeCache, logr, service.FinanceServiceConfig{
		CacheTTL: cfg.Finance.CacheTTL,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.WithResponseMeta())
	r.Use(middleware.Metrics(metricsSvc))

	metricsHandler := handler.NewMetricsHandler(metricsSvc)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	studentHandler := handler.NewStudentHandler(studentSvc, ledgerSvc)
	batchHandler := handler.NewBatchHandler(batchSvc)
	teacherHandler := handler.NewTeacherHandler(teacherSvc, reconcilerSvc, payoutSvc)
	paymentHandler := handler.NewPaymentHandler(paymentSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	financeHandler := handler.NewFinanceHandler(financeSvc)

	api := r.Group(cfg.APIPrefix)

	students := api.Group("/students")
	{
		students.GET("", studentHandler.List)
		students.POST("", studentHandler.Create)
		students.GET("/:id", studentHandler.Get)
		students.PUT("/:id", studentHandler.Update)
		students.DELETE("/:id", studentHandler.Delete)
		students.GET("/:id/ledger", studentHandler.Ledger)
		students.POST("/:id/enrollments", studentHandler.Enroll)
		students.DELETE("/:id/enrollments/:enrollmentId", studentHandler.Unenroll)
	}

	batches := api.Group("/batches")
	{
		batches.GET("", batchHandler.List)
		batches.POST("", batchHandler.Create)
		batches.GET("/running-today", batchHandler.RunningToday)
		batches.GET("/:id", batchHandler.Get)
		batches.PUT("/:id", batchHandler.Update)
	}

	teachers := api.Group("/teachers")
	{
		teachers.GET("", teacherHandler.List)
		teachers.POST("", teacherHandler.Create)
		teachers.GET("/:id", teacherHandler.Get)
		teachers.PUT("/:id", teacherHandler.Update)
		teachers.GET("/:id/reconciliation", teacherHandler.Reconciliation)
		teachers.POST("/:id/sessions", teacherHandler.MarkSession)
		teachers.GET("/:id/payout", teacherHandler.Payout)
	}

	payments := api.Group("/payments")
	{
		payments.GET("", paymentHandler.List)
		payments.POST("", paymentHandler.Record)
		payments.PATCH("/:id", paymentHandler.Update)
	}

	attendance := api.Group("/attendance")
	{
		attendance.GET("", attendanceHandler.List)
		attendance.POST("", attendanceHandler.Mark)
		attendance.POST("/bulk", attendanceHandler.BulkMark)
	}

	finance := api.Group("/finance")
	{
		finance.GET("/summary", financeHandler.Summary)
		finance.PUT("/budgets", financeHandler.UpsertBudget)
		finance.GET("/budgets/comparison", financeHandler.BudgetComparison)
		finance.GET("/expenses", financeHandler.ListExpenses)
		finance.POST("/expenses", financeHandler.RecordExpense)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var reportQueue *jobs.Queue
	if cfg.Reports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init report storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		exportSvc := service.NewExportService(financeSvc, ledgerSvc, payoutSvc, studentRepo, teacherRepo, store, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Reports.SignedURLTTL,
		}, logr, nil, nil)

		reportRepo := repository.NewReportRepository(db)
		worker := service.NewReportWorker(reportRepo, exportSvc, cfg.Reports.WorkerRetries, logr)
		reportQueue = jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			Logger:     logr,
		})
		reportQueue.Start(ctx)

		reportSvc := service.NewReportService(reportRepo, reportQueue, exportSvc, logr, service.ReportServiceConfig{
			ResultTTL:       cfg.Reports.SignedURLTTL,
			CleanupInterval: cfg.Reports.CleanupInterval,
			MaxRetries:      cfg.Reports.WorkerRetries,
		})
		reportSvc.RecoverPendingJobs(ctx)
		reportSvc.StartCleanup(ctx)

		reportHandler := handler.NewReportHandler(reportSvc)
		reports := api.Group("/reports")
		{
			reports.POST("/generate", reportHandler.GenerateReport)
			reports.GET("/status/:id", reportHandler.ReportStatus)
		}
		api.GET("/export/:token", reportHandler.DownloadReport)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("server shutdown failed", "error", err)
	}
	if reportQueue != nil {
		reportQueue.Stop()
	}
}
