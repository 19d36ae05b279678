package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lifetag/lifetag-api/internal/model"
	"github.com/lifetag/lifetag-api/internal/repository"
)

type tokenRepository struct {
	store *Store
	coll  *mongo.Collection
}

func NewTokenRepository(store *Store) repository.TokenRepository {
	return &tokenRepository{
		store: store,
		coll:  store.db.Collection(collPasswordResets),
	}
}

func (r *tokenRepository) Create(ctx context.Context, token *model.PasswordResetToken) error {
	start := time.Now()

	_, err := r.coll.InsertOne(ctx, token)
	r.store.observe("reset_token_create", start, err)
	if err != nil {
		return fmt.Errorf("failed to create reset token: %w", err)
	}
	return nil
}

func (r *tokenRepository) Get(ctx context.Context, token string) (*model.PasswordResetToken, error) {
	start := time.Now()

	var t model.PasswordResetToken
	err := r.coll.FindOne(ctx, bson.M{"token": token}).Decode(&t)
	if err == mongo.ErrNoDocuments {
		r.store.observe("reset_token_get", start, nil)
		return nil, nil
	}
	r.store.observe("reset_token_get", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to get reset token: %w", err)
	}
	return &t, nil
}

func (r *tokenRepository) MarkUsed(ctx context.Context, id string) error {
	start := time.Now()

	result, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"usedAt": time.Now().UTC()}},
	)
	r.store.observe("reset_token_mark_used", start, err)
	if err != nil {
		return fmt.Errorf("failed to mark reset token used: %w", err)
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
