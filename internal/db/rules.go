package db

import (
	"context"
	"time"

	"github.com/ukydev/fleet-reminders/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRuleCollection implements RuleCollection for MongoDB
type MongoRuleCollection struct {
	Collection *mongo.Collection
}

// ListActiveRules returns every rule with is_active=true, oldest first.
func (c *MongoRuleCollection) ListActiveRules(ctx context.Context) ([]models.ReminderRule, error) {
	if c.Collection == nil {
		return nil, ErrNilCollection
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := c.Collection.Find(ctx, bson.M{"is_active": true}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rules []models.ReminderRule
	if err := cursor.All(ctx, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

// InsertRule inserts a reminder rule. Rules are normally managed by the
// fleet admin application; this exists for seeding and tests.
func (c *MongoRuleCollection) InsertRule(ctx context.Context, rule models.ReminderRule) (*models.ReminderRule, error) {
	if c.Collection == nil {
		return nil, ErrNilCollection
	}
	if rule.ID.IsZero() {
		rule.ID = primitive.NewObjectID()
	}
	now := time.Now()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	if _, err := c.Collection.InsertOne(ctx, rule); err != nil {
		return nil, err
	}
	return &rule, nil
}
