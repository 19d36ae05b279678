package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/lifetag/lifetag-api/internal/config"
	"github.com/lifetag/lifetag-api/pkg/metrics"
)

// Collection names
const (
	collUsers          = "users"
	collHistory        = "approval_history"
	collNotifications  = "approval_notifications"
	collStatusUpdates  = "verification_status_updates"
	collPasswordResets = "password_resets"
)

// Store is an explicitly constructed handle to the document database.
// It is created once in main and injected into each repository.
type Store struct {
	client  *mongo.Client
	db      *mongo.Database
	metrics *metrics.Metrics
}

// Connect opens the client and verifies connectivity.
func Connect(ctx context.Context, cfg config.MongoConfig, m *metrics.Metrics) (*Store, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to document store: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping document store: %w", err)
	}

	return &Store{
		client:  client,
		db:      client.Database(cfg.Database),
		metrics: m,
	}, nil
}

// Ping verifies the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close releases the underlying connection pool.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// WithTx runs fn inside a single multi-document transaction. Repository
// calls made with the session-bound ctx passed to fn join the transaction,
// so an admin action's profile stamp, history row, notification and status
// update commit or abort together.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func (s *Store) observe(op string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.StoreOperations.WithLabelValues(op, status).Inc()
	s.metrics.StoreLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
