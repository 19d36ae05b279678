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

type professionalRepository struct {
	store *Store
	coll  *mongo.Collection
}

func NewProfessionalRepository(store *Store) repository.ProfessionalRepository {
	return &professionalRepository{
		store: store,
		coll:  store.db.Collection(collUsers),
	}
}

func (r *professionalRepository) Create(ctx context.Context, p *model.Professional) error {
	start := time.Now()

	// The profile merges into the account document created at registration.
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": p.ID},
		bson.M{"$set": p},
		options.Update().SetUpsert(true),
	)
	r.store.observe("professional_create", start, err)
	if err != nil {
		return fmt.Errorf("failed to create professional profile: %w", err)
	}
	return nil
}

func (r *professionalRepository) Get(ctx context.Context, id string) (*model.Professional, error) {
	start := time.Now()

	var p model.Professional
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		r.store.observe("professional_get", start, nil)
		return nil, nil
	}
	if err != nil {
		r.store.observe("professional_get", start, err)
		return nil, fmt.Errorf("failed to get professional: %w", err)
	}
	r.store.observe("professional_get", start, nil)

	// A document with the wrong type tag reads the same as an absent one.
	if p.UserType != model.UserTypeMedicalProfessional {
		return nil, nil
	}
	normalize(&p)
	return &p, nil
}

func (r *professionalRepository) List(ctx context.Context, filter *model.ProfessionalFilter) ([]*model.Professional, error) {
	start := time.Now()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, professionalQuery(filter), opts)
	if err != nil {
		r.store.observe("professional_list", start, err)
		return nil, fmt.Errorf("failed to list professionals: %w", err)
	}
	defer cursor.Close(ctx)

	professionals := []*model.Professional{}
	for cursor.Next(ctx) {
		var p model.Professional
		if err := cursor.Decode(&p); err != nil {
			r.store.observe("professional_list", start, err)
			return nil, fmt.Errorf("failed to decode professional: %w", err)
		}
		normalize(&p)
		professionals = append(professionals, &p)
	}
	if err := cursor.Err(); err != nil {
		r.store.observe("professional_list", start, err)
		return nil, fmt.Errorf("failed to iterate professionals: %w", err)
	}

	r.store.observe("professional_list", start, nil)
	return professionals, nil
}

func (r *professionalRepository) Count(ctx context.Context, filter *model.ProfessionalFilter) (int64, error) {
	start := time.Now()

	count, err := r.coll.CountDocuments(ctx, professionalQuery(filter))
	r.store.observe("professional_count", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to count professionals: %w", err)
	}
	return count, nil
}

func (r *professionalRepository) UpdateVerification(ctx context.Context, id string, status *model.VerificationStatus) error {
	start := time.Now()

	update := bson.M{"$set": bson.M{
		"verificationStatus": status,
		"updatedAt":          time.Now().UTC(),
	}}
	result, err := r.coll.UpdateOne(ctx, bson.M{
		"_id":      id,
		"userType": model.UserTypeMedicalProfessional,
	}, update)
	r.store.observe("professional_update_verification", start, err)
	if err != nil {
		return fmt.Errorf("failed to update verification status: %w", err)
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Watch re-reads the document on every change-stream event and delivers the
// full snapshot, starting with the current state.
func (r *professionalRepository) Watch(ctx context.Context, id string) (<-chan *model.Professional, <-chan error) {
	snapshots := make(chan *model.Professional, 1)
	errs := make(chan error, 1)

	go func() {
		defer close(snapshots)
		defer close(errs)

		pipeline := mongo.Pipeline{
			bson.D{{Key: "$match", Value: bson.M{"documentKey._id": id}}},
		}
		stream, err := r.coll.Watch(ctx, pipeline)
		if err != nil {
			errs <- fmt.Errorf("failed to open professional stream: %w", err)
			return
		}
		defer stream.Close(ctx)

		deliver := func() bool {
			p, err := r.Get(ctx, id)
			if err != nil {
				errs <- err
				return false
			}
			select {
			case snapshots <- p:
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
			errs <- fmt.Errorf("professional stream failed: %w", err)
		}
	}()

	return snapshots, errs
}

func professionalQuery(filter *model.ProfessionalFilter) bson.M {
	query := bson.M{"userType": model.UserTypeMedicalProfessional}
	if filter != nil && filter.IsVerified != nil {
		query["verificationStatus.isVerified"] = *filter.IsVerified
	}
	return query
}

// normalize substitutes defaults for fields older documents may lack.
func normalize(p *model.Professional) {
	if p.UserID == "" {
		p.UserID = p.ID
	}
}
