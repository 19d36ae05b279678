package mongodb

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lifetag/lifetag-api/internal/model"
	"github.com/lifetag/lifetag-api/internal/repository"
)

type userRepository struct {
	store *Store
	coll  *mongo.Collection
}

func NewUserRepository(store *Store) repository.UserRepository {
	return &userRepository{
		store: store,
		coll:  store.db.Collection(collUsers),
	}
}

func (r *userRepository) CreateAccount(ctx context.Context, account *model.UserAccount) error {
	start := time.Now()

	_, err := r.coll.InsertOne(ctx, account)
	r.store.observe("account_create", start, err)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (r *userRepository) GetAccount(ctx context.Context, id string) (*model.UserAccount, error) {
	start := time.Now()

	var account model.UserAccount
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&account)
	if err == mongo.ErrNoDocuments {
		r.store.observe("account_get", start, nil)
		return nil, nil
	}
	r.store.observe("account_get", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

func (r *userRepository) GetAccountByEmail(ctx context.Context, email string) (*model.UserAccount, error) {
	start := time.Now()

	// Case-insensitive equality via an anchored regex.
	filter := bson.M{"email": bson.M{"$regex": "^" + regexp.QuoteMeta(email) + "$", "$options": "i"}}

	var account model.UserAccount
	err := r.coll.FindOne(ctx, filter).Decode(&account)
	if err == mongo.ErrNoDocuments {
		r.store.observe("account_get_by_email", start, nil)
		return nil, nil
	}
	r.store.observe("account_get_by_email", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to get account by email: %w", err)
	}
	return &account, nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	start := time.Now()

	result, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"passwordHash": passwordHash, "updatedAt": time.Now().UTC()}},
	)
	r.store.observe("account_update_password", start, err)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *userRepository) CountByType(ctx context.Context, userType string) (int64, error) {
	start := time.Now()

	count, err := r.coll.CountDocuments(ctx, bson.M{"userType": userType})
	r.store.observe("user_count_by_type", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

func (r *userRepository) GetAdmin(ctx context.Context, id string) (*model.Admin, error) {
	start := time.Now()

	var admin model.Admin
	err := r.coll.FindOne(ctx, bson.M{
		"_id":      id,
		"userType": model.UserTypeAdmin,
	}).Decode(&admin)
	if err == mongo.ErrNoDocuments {
		r.store.observe("admin_get", start, nil)
		return nil, nil
	}
	r.store.observe("admin_get", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}
	return &admin, nil
}

func (r *userRepository) CreateAdmin(ctx context.Context, admin *model.Admin) error {
	start := time.Now()

	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": admin.ID},
		bson.M{"$set": admin},
		options.Update().SetUpsert(true),
	)
	r.store.observe("admin_create", start, err)
	if err != nil {
		return fmt.Errorf("failed to create admin profile: %w", err)
	}
	return nil
}

func (r *userRepository) UpdateAdminPermissions(ctx context.Context, id string, permissions []string) error {
	start := time.Now()

	result, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "userType": model.UserTypeAdmin},
		bson.M{"$set": bson.M{"permissions": permissions, "updatedAt": time.Now().UTC()}},
	)
	r.store.observe("admin_update_permissions", start, err)
	if err != nil {
		return fmt.Errorf("failed to update admin permissions: %w", err)
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *userRepository) RetagUser(ctx context.Context, id, userType string) error {
	start := time.Now()

	result, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"userType": userType, "updatedAt": time.Now().UTC()}},
	)
	r.store.observe("user_retag", start, err)
	if err != nil {
		return fmt.Errorf("failed to retag user: %w", err)
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
