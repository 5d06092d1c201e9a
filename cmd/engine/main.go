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

	"go.uber.org/zap"

	"github.com/justice-digital/incentives-engine/internal/handler"
	"github.com/justice-digital/incentives-engine/internal/provider"
	"github.com/justice-digital/incentives-engine/internal/repository"
	"github.com/justice-digital/incentives-engine/internal/service"
	"github.com/justice-digital/incentives-engine/internal/task"
	"github.com/justice-digital/incentives-engine/pkg/cache"
	"github.com/justice-digital/incentives-engine/pkg/config"
	"github.com/justice-digital/incentives-engine/pkg/database"
	"github.com/justice-digital/incentives-engine/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zapLogger, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		zapLogger.Fatal("connect postgres", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		zapLogger.Fatal("connect redis", zap.Error(err))
	}

	// Repositories.
	reviews := repository.NewReviewRepository(db)
	nextDates := repository.NewNextReviewDateRepository(db)
	kpis := repository.NewKpiRepository(db)
	audits := repository.NewAuditRepository(db)
	caches := repository.NewCacheRepository(redisClient, zapLogger)
	defer func() { _ = caches.Close() }()

	// Upstream clients.
	prisonerSearch := provider.NewPrisonerSearchClient(cfg.Providers.PrisonerSearchBaseURL, cfg.Providers.Timeout, zapLogger)
	prisonAPI := provider.NewPrisonAPIClient(cfg.Providers.PrisonAPIBaseURL, cfg.Providers.Timeout, zapLogger)

	// Services.
	metrics := service.NewMetrics()
	auditSvc := service.NewAuditService(audits, cfg.Audit, zapLogger)
	catalog := service.NewLevelCatalogService(prisonAPI, caches, cfg.Reference.FreshFor, zapLogger)
	policy := service.NewReviewIntervalPolicy(cfg.Policy)
	schedule := service.NewScheduleService(reviews, nextDates, prisonerSearch, policy, zapLogger, metrics)
	ledger := service.NewLedgerService(reviews, catalog, schedule, auditSvc, zapLogger, metrics)
	behaviour := service.NewBehaviourService(prisonAPI, prisonAPI, cfg.Aggregation.BehaviourWindowMonths, zapLogger)
	summaries := service.NewSummaryService(prisonerSearch, prisonAPI, catalog, reviews, schedule, behaviour, cfg.Aggregation, cfg.Policy, zapLogger, metrics)
	kpiSvc := service.NewKpiService(kpis, prisonAPI, prisonerSearch, auditSvc, zapLogger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	auditSvc.Start(ctx)
	defer auditSvc.Stop()

	kpiTask := task.NewKpiTask(kpiSvc, caches, cfg.KPI, zapLogger)
	if cfg.KPI.Enabled {
		kpiTask.Start(ctx)
		defer kpiTask.Stop()
	}

	router := handler.NewRouter(cfg, zapLogger, handler.Routes{
		Reviews:  handler.NewReviewHandler(ledger),
		Schedule: handler.NewScheduleHandler(schedule),
		Summary:  handler.NewSummaryHandler(summaries),
		Kpi:      handler.NewKpiHandler(kpiSvc),
		Reports:  handler.NewReportHandler(kpiSvc, summaries),
		Metrics:  metrics.Handler(),
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zapLogger.Info("server starting", zap.Int("port", cfg.Port), zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zapLogger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("shutdown", zap.Error(err))
		os.Exit(1)
	}
}
