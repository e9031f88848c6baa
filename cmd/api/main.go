package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tutorbill/tutorbill-api/internal/handler"
	internalmiddleware "github.com/tutorbill/tutorbill-api/internal/middleware"
	"github.com/tutorbill/tutorbill-api/internal/repository"
	"github.com/tutorbill/tutorbill-api/internal/service"
	"github.com/tutorbill/tutorbill-api/pkg/cache"
	"github.com/tutorbill/tutorbill-api/pkg/config"
	"github.com/tutorbill/tutorbill-api/pkg/database"
	"github.com/tutorbill/tutorbill-api/pkg/logger"
	corsmiddleware "github.com/tutorbill/tutorbill-api/pkg/middleware/cors"
	reqidmiddleware "github.com/tutorbill/tutorbill-api/pkg/middleware/requestid"
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, billing summary cache disabled", zap.Error(err))
		redisClient = nil
	}

	studentRepo := repository.NewStudentRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	stateRepo := repository.NewAppStateRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close()

	clock := service.SystemClock()
	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		Secret:      cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
	})
	studentSvc := service.NewStudentService(studentRepo, lessonRepo, paymentRepo, nil, logr, clock)
	lessonSvc := service.NewLessonService(lessonRepo, paymentRepo, studentRepo, cacheRepo, nil, logr, clock)
	billingSvc := service.NewBillingService(paymentRepo, studentRepo, lessonRepo, cacheRepo, metricsSvc, nil, logr, clock, cfg.Billing.SummaryCacheTTL)
	rolloverSvc := service.NewRolloverService(studentRepo, lessonRepo, paymentRepo, stateRepo, cacheRepo, metricsSvc, logr, clock)
	exportSvc := service.NewExportService(billingSvc, cfg.Billing.CurrencySymbol, logr)

	if cfg.Rollover.RunOnStart {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		if result, err := rolloverSvc.Run(ctx); err != nil {
			logr.Error("startup rollover failed", zap.Error(err))
		} else {
			logr.Info("startup rollover done",
				zap.String("from", result.From.String()),
				zap.String("to", result.To.String()),
				zap.Int("inserted", result.Inserted))
		}
		cancel()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	handler.RegisterRoutes(r, handler.Handlers{
		Auth:     handler.NewAuthHandler(authSvc),
		Students: handler.NewStudentHandler(studentSvc),
		Lessons:  handler.NewLessonHandler(lessonSvc),
		Payments: handler.NewPaymentHandler(billingSvc),
		Rollover: handler.NewRolloverHandler(rolloverSvc),
		Exports:  handler.NewExportHandler(exportSvc),
	}, authSvc, metricsSvc, cfg.Reports.Enabled)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
