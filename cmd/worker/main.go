package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"

	"github.com/lifetag/lifetag-api/internal/config"
	"github.com/lifetag/lifetag-api/internal/email"
	"github.com/lifetag/lifetag-api/internal/repository/mongodb"
	"github.com/lifetag/lifetag-api/internal/worker"
	"github.com/lifetag/lifetag-api/pkg/logger"
	redisbroker "github.com/lifetag/lifetag-api/pkg/messaging/redis"
	"github.com/lifetag/lifetag-api/pkg/metrics"
)

// workerConfig is read from the environment; the worker runs in contexts
// (cron containers, one-off jobs) where a config file is not mounted.
type workerConfig struct {
	MongoURI          string `envconfig:"MONGO_URI" required:"true"`
	MongoDatabase     string `envconfig:"MONGO_DATABASE" default:"lifetag"`
	RedisURL          string `envconfig:"REDIS_URL" required:"true"`
	SMTPHost          string `envconfig:"SMTP_HOST" required:"true"`
	SMTPPort          int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername      string `envconfig:"SMTP_USERNAME"`
	SMTPPassword      string `envconfig:"SMTP_PASSWORD"`
	SMTPFrom          string `envconfig:"SMTP_FROM" required:"true"`
	ReconcileSchedule string `envconfig:"RECONCILE_SCHEDULE" default:"0 3 * * *"`
	HealthPort        int    `envconfig:"HEALTH_PORT" default:"8081"`
	LogLevel          string `envconfig:"LOG_LEVEL" default:"info"`
}

func main() {
	var cfg workerConfig
	if err := envconfig.Process("lifetag", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	l := logger.NewLogger(&logger.Config{
		Level:      level,
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
	})

	m := metrics.NewMetrics("lifetag", "worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := mongodb.Connect(ctx, config.MongoConfig{
		URI:         cfg.MongoURI,
		Database:    cfg.MongoDatabase,
		MaxPoolSize: 20,
	}, m)
	if err != nil {
		l.Fatal(err, "failed to connect to document store")
	}
	defer store.Close(context.Background())

	broker, err := redisbroker.NewRedisBroker(redisbroker.Config{
		URL:        cfg.RedisURL,
		MaxRetries: 3,
		PoolSize:   10,
	}, l.Zerolog())
	if err != nil {
		l.Fatal(err, "failed to connect to message broker")
	}
	defer broker.Close()

	professionalRepo := mongodb.NewProfessionalRepository(store)
	approvalRepo := mongodb.NewApprovalRepository(store)

	emailSvc := email.NewGomailService(config.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})

	dispatcher := worker.NewEmailDispatcher(broker, approvalRepo, emailSvc, l, m)
	reconciler := worker.NewReconciler(professionalRepo, approvalRepo, l, m, cfg.ReconcileSchedule)

	startHealthServer(cfg.HealthPort, store, l)

	if err := reconciler.Start(ctx); err != nil {
		l.Fatal(err, "failed to start reconciler")
	}
	defer reconciler.Stop()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		l.Info("shutting down")
		cancel()
	}()

	if err := dispatcher.Run(ctx); err != nil && err != context.Canceled {
		l.Fatal(err, "dispatcher stopped")
	}
}

func startHealthServer(port int, store *mongodb.Store, l *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
			l.Error(err, "health server failed")
		}
	}()
}
