package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"edubase/schoolhub/internal/cache"
	"edubase/schoolhub/internal/config"
	"edubase/schoolhub/internal/handler"
	"edubase/schoolhub/internal/model"
	"edubase/schoolhub/internal/repository"
	"edubase/schoolhub/internal/service"
	jwtpkg "edubase/schoolhub/pkg/jwt"
	"edubase/schoolhub/pkg/logger"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// 2. Initialize logger
	zapLogger, err := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	// 3. Connect to PostgreSQL
	db, err := config.NewPostgresDB(cfg.Database.Postgres)
	if err != nil {
		zapLogger.Fatal("failed to connect to postgres", zap.Error(err))
	}

	// 4. Auto-migrate if enabled
	if cfg.Database.Postgres.AutoMigrate {
		if err := model.AutoMigrate(db); err != nil {
			zapLogger.Fatal("failed to auto-migrate", zap.Error(err))
		}
		zapLogger.Info("database migration completed")
	}

	// 5. Initialize cache (Redis or in-memory)
	var cacheClient cache.Client
	switch cfg.Cache.Backend {
	case "redis":
		redisClient, err := config.NewRedisClient(cfg.Database.Redis)
		if err != nil {
			zapLogger.Fatal("failed to connect to redis", zap.Error(err))
		}
		cacheClient = cache.NewRedisCache(redisClient, zapLogger)
		zapLogger.Info("using Redis cache")
	case "memory":
		cacheClient = cache.NewMemoryCache()
		zapLogger.Info("using in-memory cache")
	default:
		zapLogger.Fatal("unknown cache backend", zap.String("backend", cfg.Cache.Backend))
	}

	// 6. Initialize JWT manager
	jwtManager := jwtpkg.NewManager(
		cfg.JWT.AccessSecret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.SystemAdminSecret,
		cfg.JWT.Issuer,
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
		time.Duration(cfg.SystemAdmin.TokenExpiryHours)*time.Hour,
	)

	// 7. Initialize mail dispatch
	var sender service.MailSender
	if cfg.SMTP.Host != "" {
		sender, err = service.NewSMTPSender(cfg.SMTP)
		if err != nil {
			zapLogger.Fatal("failed to configure smtp", zap.Error(err))
		}
	} else {
		sender = service.NewDisabledSender()
		zapLogger.Warn("smtp not configured, invitation emails disabled")
	}
	dispatcher := service.NewMailDispatcher(sender, cfg.Server.PortalURL, zapLogger)

	// 8. Initialize repositories
	schoolRepo := repository.NewPGSchoolRepository(db)
	userRepo := repository.NewPGUserRepository(db)
	studentRepo := repository.NewPGStudentRepository(db)
	invitationRepo := repository.NewPGInvitationRepository(db)

	// 9. Initialize services
	invitationService := service.NewInvitationService(
		schoolRepo, userRepo, studentRepo, invitationRepo,
		cacheClient, dispatcher, jwtManager, cfg.Invitation, zapLogger,
	)
	authService := service.NewAuthService(
		schoolRepo, userRepo, cacheClient, dispatcher,
		jwtManager, cfg.SystemAdmin, cfg.Server.PortalURL, zapLogger,
	)
	schoolService := service.NewSchoolService(schoolRepo, userRepo, zapLogger)
	studentService := service.NewStudentService(schoolRepo, studentRepo)

	// 10. Initialize handlers
	authHandler := handler.NewAuthHandler(authService, jwtManager, zapLogger)
	invitationHandler := handler.NewInvitationHandler(invitationService, jwtManager, zapLogger)
	schoolHandler := handler.NewSchoolHandler(schoolService, zapLogger)
	studentHandler := handler.NewStudentHandler(studentService, zapLogger)
	systemHandler := handler.NewSystemHandler(authService, schoolService, invitationService, zapLogger)

	// 11. Setup router
	router := handler.SetupRouter(cfg, zapLogger, jwtManager,
		authHandler, invitationHandler, schoolHandler, studentHandler, systemHandler)

	// 12. Schedule the invitation expiry sweep
	sweeper := cron.New()
	_, err = sweeper.AddFunc(cfg.Invitation.SweepSchedule, func() {
		count, err := invitationService.SweepExpired(context.Background())
		if err != nil {
			zapLogger.Error("invitation expiry sweep failed", zap.Error(err))
			return
		}
		if count > 0 {
			zapLogger.Info("invitation expiry sweep completed", zap.Int64("expired", count))
		}
	})
	if err != nil {
		zapLogger.Fatal("invalid sweep schedule", zap.String("schedule", cfg.Invitation.SweepSchedule), zap.Error(err))
	}
	sweeper.Start()

	// 13. Create HTTP server and start
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		zapLogger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server failed", zap.Error(err))
		}
	}()

	// 14. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("shutting down server...")

	sweeper.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server forced to shutdown", zap.Error(err))
	}
	zapLogger.Info("server exited gracefully")
}
