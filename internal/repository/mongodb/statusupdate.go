package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lifetag/lifetag-api/internal/model"
	"github.com/lifetag/lifetag-api/internal/repository"
)

type statusUpdateRepository struct {
	store *Store
	coll  *mongo.Collection
}

func NewStatusUpdateRepository(store *Store) repository.StatusUpdateRepository {
	return &statusUpdateRepository{
		store: store,
		coll:  store.db.Collection(collStatusUpdates),
	}
}

func (r *statusUpdateRepository) Create(ctx context.Context, update *model.VerificationStatusUpdate) error {
	start := time.Now()

	_, err := r.coll.InsertOne(ctx, update)
	r.store.observe("status_update_create", start, err)
	if err != nil {
		return fmt.Errorf("failed to create status update: %w", err)
	}
	return nil
}

func (r *statusUpdateRepository) ListByProfessional(ctx context.Context, professionalID string) ([]*model.VerificationStatusUpdate, error) {
	start := time.Now()

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"professionalId": professionalID}, opts)
	if err != nil {
		r.store.observe("status_update_list", start, err)
		return nil, fmt.Errorf("failed to list status updates: %w", err)
	}
	defer cursor.Close(ctx)

	updates := []*model.VerificationStatusUpdate{}
	if err := cursor.All(ctx, &updates); err != nil {
		r.store.observe("status_update_list", start, err)
		return nil, fmt.Errorf("failed to decode status updates: %w", err)
	}

	r.store.observe("status_update_list", start, nil)
	return updates, nil
}

// Watch re-runs the newest-first feed query on every change-stream event and
// delivers the full result set, starting with the current state.
func (r *statusUpdateRepository) Watch(ctx context.Context, professionalID string) (<-chan []*model.VerificationStatusUpdate, <-chan error) {
	snapshots := make(chan []*model.VerificationStatusUpdate, 1)
	errs := make(chan error, 1)

	go func() {
		defer close(snapshots)
		defer close(errs)

		pipeline := mongo.Pipeline{
			bson.D{{Key: "$match", Value: bson.M{"fullDocument.professionalId": professionalID}}},
		}
		opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
		stream, err := r.coll.Watch(ctx, pipeline, opts)
		if err != nil {
			errs <- fmt.Errorf("failed to open status update stream: %w", err)
			return
		}
		defer stream.Close(ctx)

		deliver := func() bool {
			updates, err := r.ListByProfessional(ctx, professionalID)
			if err != nil {
				errs <- err
				return false
			}
			select {
			case snapshots <- updates:
			case <-ctx.Done():
				return false
			}
			return true
		}

		if !deliver() {
			return
		}
		for stream.Next(ctx) {
			if !deliver() {
				return
			}
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			errs <- fmt.Errorf("status update stream failed: %w", err)
		}
	}()

	return snapshots, errs
}
