package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/lifetag/lifetag-api/internal/config"
	"github.com/lifetag/lifetag-api/internal/email"
	adminHandler "github.com/lifetag/lifetag-api/internal/handler/admin"
	authHandler "github.com/lifetag/lifetag-api/internal/handler/auth"
	statusHandler "github.com/lifetag/lifetag-api/internal/handler/status"
	verificationHandler "github.com/lifetag/lifetag-api/internal/handler/verification"
	"github.com/lifetag/lifetag-api/internal/middleware"
	"github.com/lifetag/lifetag-api/internal/repository/mongodb"
	"github.com/lifetag/lifetag-api/internal/router"
	adminService "github.com/lifetag/lifetag-api/internal/service/admin"
	authService "github.com/lifetag/lifetag-api/internal/service/auth"
	verificationService "github.com/lifetag/lifetag-api/internal/service/verification"
	"github.com/lifetag/lifetag-api/pkg/auth"
	"github.com/lifetag/lifetag-api/pkg/logger"
	redisbroker "github.com/lifetag/lifetag-api/pkg/messaging/redis"
	"github.com/lifetag/lifetag-api/pkg/metrics"
	"github.com/lifetag/lifetag-api/pkg/security"
	"github.com/lifetag/lifetag-api/pkg/validator"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	l := logger.NewLogger(&logger.Config{
		Level:      level,
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Pretty:     cfg.Log.Pretty,
	})

	if err := validator.Register(); err != nil {
		l.Fatal(err, "failed to register validators")
	}

	m := metrics.NewMetrics("lifetag", "api")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := mongodb.Connect(ctx, cfg.Mongo, m)
	if err != nil {
		l.Fatal(err, "failed to connect to document store")
	}
	defer store.Close(context.Background())

	broker, err := redisbroker.NewRedisBroker(redisbroker.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, l.Zerolog())
	if err != nil {
		l.Fatal(err, "failed to connect to message broker")
	}
	defer broker.Close()

	// Repositories
	professionalRepo := mongodb.NewProfessionalRepository(store)
	approvalRepo := mongodb.NewApprovalRepository(store)
	statusUpdateRepo := mongodb.NewStatusUpdateRepository(store)
	userRepo := mongodb.NewUserRepository(store)
	tokenRepo := mongodb.NewTokenRepository(store)

	// Services
	jwtSvc := auth.NewJWTService(auth.Config{
		Secret:             cfg.JWT.Secret,
		RefreshSecret:      cfg.JWT.RefreshSecret,
		ExpiryHours:        cfg.JWT.ExpiryHours,
		RefreshExpiryHours: cfg.JWT.RefreshExpiryHours,
	})
	hasher := security.NewBcryptHasher(12)
	emailSvc := email.NewGomailService(cfg.SMTP)

	authSvc := authService.NewService(userRepo, professionalRepo, tokenRepo, jwtSvc, hasher, emailSvc, l)
	verificationSvc := verificationService.NewService(professionalRepo, approvalRepo, statusUpdateRepo, store, broker, l, m)
	adminSvc := adminService.NewService(userRepo, professionalRepo, authSvc, l)

	// HTTP surface
	authMW := middleware.NewAuthMiddleware(jwtSvc)
	r := router.New(
		authMW,
		authHandler.NewHandler(authSvc),
		statusHandler.NewHandler(professionalRepo, statusUpdateRepo, l),
		verificationHandler.NewHandler(verificationSvc),
		adminHandler.NewHandler(adminSvc),
		store,
		m,
		l,
		router.Config{
			RateLimitRPS:   50,
			RateLimitBurst: 100,
			StatsCacheTTL:  30 * time.Second,
			CORS:           middleware.DefaultCORSConfig(),
		},
	)
	r.Setup()

	// No WriteTimeout: the status stream endpoint holds its connection open.
	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     r.Engine(),
		ReadTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
	}

	go func() {
		l.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Fatal(err, "server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	l.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error(err, "graceful shutdown failed")
	}
}
