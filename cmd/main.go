package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"midas/reimbursehub/internal/classifier"
	"midas/reimbursehub/internal/config"
	"midas/reimbursehub/internal/handler"
	"midas/reimbursehub/internal/jobs"
	"midas/reimbursehub/internal/model"
	"midas/reimbursehub/internal/repository"
	"midas/reimbursehub/internal/scheduler"
	"midas/reimbursehub/internal/service"
	"midas/reimbursehub/internal/storage"
	jwtpkg "midas/reimbursehub/pkg/jwt"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	// 1. Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// 2. Initialize logger
	logger, err := newLogger(cfg.Log)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.JWT.SigningKey == "" {
		logger.Fatal("jwt.signing_key must be set")
	}

	// 3. Persistent store (PostgreSQL or in-memory)
	var store repository.Store
	switch cfg.Database.Backend {
	case "postgres":
		db, err := config.NewPostgresDB(cfg.Database.Postgres)
		if err != nil {
			logger.Fatal("failed to connect to postgres", zap.Error(err))
		}
		if cfg.Database.Postgres.AutoMigrate {
			if err := model.AutoMigrate(db); err != nil {
				logger.Fatal("failed to auto-migrate", zap.Error(err))
			}
			logger.Info("database migration completed")
		}
		store = repository.NewPGStore(db)
		logger.Info("using PostgreSQL store")
	case "memory":
		store = repository.NewMemoryStore()
		logger.Warn("using in-memory store; data is lost on restart")
	default:
		logger.Fatal("unknown database backend", zap.String("backend", cfg.Database.Backend))
	}

	// 4. State store for refresh tokens (Redis or in-memory)
	var stateStore repository.StateStore
	switch cfg.State.Backend {
	case "redis":
		redisClient, err := config.NewRedisClient(cfg.Database.Redis)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer func() { _ = redisClient.Close() }()
		stateStore = repository.NewRedisStateStore(redisClient, cfg.Database.Redis.KeyPrefix)
		logger.Info("using Redis state store")
	case "memory":
		stateStore = repository.NewMemoryStateStore()
		logger.Info("using in-memory state store")
	default:
		logger.Fatal("unknown state backend", zap.String("backend", cfg.State.Backend))
	}

	// 5. Receipt storage, classifier and mail
	files, err := storage.NewLocalStorage(cfg.Upload.Dir)
	if err != nil {
		logger.Fatal("failed to init receipt storage", zap.Error(err))
	}
	classifierClient := classifier.NewHTTPClient(cfg.Classifier, logger)
	mailer, err := service.NewMailSender(cfg.Mail)
	if err != nil {
		logger.Fatal("failed to init mail sender", zap.Error(err))
	}
	if mailer == nil {
		logger.Info("invite mail delivery disabled")
	}

	// 6. Services
	jwtManager := jwtpkg.NewManager(
		cfg.JWT.SigningKey,
		cfg.JWT.Issuer,
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
	)
	authService := service.NewAuthService(store, stateStore, jwtManager, logger)
	inviteService := service.NewInviteService(store, mailer, cfg.Invite, logger)
	groupService := service.NewGroupService(store, cfg.Invite, logger)
	membershipService := service.NewMembershipService(store, inviteService, groupService, logger)
	reimbursementService := service.NewReimbursementService(store, files, classifierClient, cfg.Upload, logger)

	// 7. Router
	router := handler.SetupRouter(cfg, logger, authService, handler.Handlers{
		Auth:          handler.NewAuthHandler(authService),
		Groups:        handler.NewGroupHandler(membershipService),
		Reimbursement: handler.NewReimbursementHandler(reimbursementService, cfg.Upload.MaxBytes),
		Admin:         handler.NewAdminHandler(inviteService, groupService, reimbursementService),
	})

	// 8. Background jobs
	sched, err := scheduler.NewScheduler(jobs.NewJobRunner(store, files, cfg.Sweeper, logger), logger)
	if err != nil {
		logger.Fatal("failed to init scheduler", zap.Error(err))
	}
	sched.Start()

	// 9. HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// 10. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	sched.Stop()
	logger.Info("server exited")
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var zc zap.Config
	if cfg.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	return zc.Build()
}
