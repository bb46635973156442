package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/storefront/identity-api/internal/core/domain"
)

const (
	collectionActivity = "auth_activity"
	activityRetention  = 90 * 24 * time.Hour
)

// ActivityRepository appends to the auth_activity audit collection.
type ActivityRepository struct {
	col *mongo.Collection
}

func NewActivityRepository(db *mongo.Database) *ActivityRepository {
	return &ActivityRepository{col: db.Collection(collectionActivity)}
}

// Insert persists one authentication event.
func (r *ActivityRepository) Insert(ctx context.Context, a *domain.Activity) error {
	doc := bson.M{
		"kind":         string(a.Kind),
		"occurred_at":  a.OccurredAt.UTC(),
		"processed_at": time.Now().UTC(),
	}
	if a.Email != "" {
		doc["email"] = a.Email
	}
	if a.UserID != "" {
		doc["user_id"] = a.UserID
	}
	if a.Reason != "" {
		doc["reason"] = a.Reason
	}
	if a.RemoteAddr != "" {
		doc["remote_addr"] = a.RemoteAddr
	}

	_, err := r.col.InsertOne(ctx, doc)
	return err
}

// EnsureIndexes creates the lookup and retention indexes.
func (r *ActivityRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "occurred_at", Value: -1}}},
		{
			Keys:    bson.D{{Key: "processed_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(activityRetention.Seconds())),
		},
	}
	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
