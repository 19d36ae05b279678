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

type approvalRepository struct {
	store         *Store
	history       *mongo.Collection
	notifications *mongo.Collection
}

func NewApprovalRepository(store *Store) repository.ApprovalRepository {
	return &approvalRepository{
		store:         store,
		history:       store.db.Collection(collHistory),
		notifications: store.db.Collection(collNotifications),
	}
}

func (r *approvalRepository) CreateHistory(ctx context.Context, entry *model.ApprovalHistory) error {
	start := time.Now()

	_, err := r.history.InsertOne(ctx, entry)
	r.store.observe("history_create", start, err)
	if err != nil {
		return fmt.Errorf("failed to create approval history: %w", err)
	}
	return nil
}

func (r *approvalRepository) ListHistory(ctx context.Context, professionalID string) ([]*model.ApprovalHistory, error) {
	start := time.Now()

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	cursor, err := r.history.Find(ctx, bson.M{"professionalId": professionalID}, opts)
	if err != nil {
		r.store.observe("history_list", start, err)
		return nil, fmt.Errorf("failed to list approval history: %w", err)
	}
	defer cursor.Close(ctx)

	entries := []*model.ApprovalHistory{}
	if err := cursor.All(ctx, &entries); err != nil {
		r.store.observe("history_list", start, err)
		return nil, fmt.Errorf("failed to decode approval history: %w", err)
	}

	r.store.observe("history_list", start, nil)
	return entries, nil
}

func (r *approvalRepository) LatestHistory(ctx context.Context, professionalID string) (*model.ApprovalHistory, error) {
	start := time.Now()

	opts := options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	var entry model.ApprovalHistory
	err := r.history.FindOne(ctx, bson.M{"professionalId": professionalID}, opts).Decode(&entry)
	if err == mongo.ErrNoDocuments {
		r.store.observe("history_latest", start, nil)
		return nil, nil
	}
	r.store.observe("history_latest", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest approval history: %w", err)
	}
	return &entry, nil
}

func (r *approvalRepository) CountHistorySince(ctx context.Context, action model.ApprovalAction, since time.Time) (int64, error) {
	start := time.Now()

	count, err := r.history.CountDocuments(ctx, bson.M{
		"action":    action,
		"timestamp": bson.M{"$gte": since},
	})
	r.store.observe("history_count", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to count approval history: %w", err)
	}
	return count, nil
}

func (r *approvalRepository) CreateNotification(ctx context.Context, n *model.ApprovalNotification) error {
	start := time.Now()

	_, err := r.notifications.InsertOne(ctx, n)
	r.store.observe("notification_create", start, err)
	if err != nil {
		return fmt.Errorf("failed to create approval notification: %w", err)
	}
	return nil
}

func (r *approvalRepository) ListNotifications(ctx context.Context, filter *model.NotificationFilter) ([]*model.ApprovalNotification, error) {
	start := time.Now()

	query := bson.M{}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if filter != nil {
		if filter.UnreadOnly {
			query["read"] = false
		}
		if filter.Limit > 0 {
			opts.SetLimit(filter.Limit)
		}
	}

	cursor, err := r.notifications.Find(ctx, query, opts)
	if err != nil {
		r.store.observe("notification_list", start, err)
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer cursor.Close(ctx)

	notifications := []*model.ApprovalNotification{}
	if err := cursor.All(ctx, &notifications); err != nil {
		r.store.observe("notification_list", start, err)
		return nil, fmt.Errorf("failed to decode notifications: %w", err)
	}

	r.store.observe("notification_list", start, nil)
	return notifications, nil
}

func (r *approvalRepository) MarkNotificationRead(ctx context.Context, id string) error {
	return r.setNotificationFlag(ctx, id, "read", "notification_mark_read")
}

func (r *approvalRepository) MarkNotificationEmailSent(ctx context.Context, id string) error {
	return r.setNotificationFlag(ctx, id, "emailSent", "notification_mark_email_sent")
}

func (r *approvalRepository) setNotificationFlag(ctx context.Context, id, field, op string) error {
	start := time.Now()

	result, err := r.notifications.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{field: true}},
	)
	r.store.observe(op, start, err)
	if err != nil {
		return fmt.Errorf("failed to update notification: %w", err)
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
