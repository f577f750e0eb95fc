package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ukydev/fleet-reminders/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var outstandingStatuses = bson.A{models.ReminderActive, models.ReminderSnoozed}

// MongoReminderCollection implements ReminderCollection for MongoDB
type MongoReminderCollection struct {
	Collection *mongo.Collection
}

// FindOutstandingReminder finds the active or snoozed reminder of a
// (rule, vehicle) pair.
func (c *MongoReminderCollection) FindOutstandingReminder(ctx context.Context, ruleID, vehicleID string) (*models.ActiveReminder, error) {
	if c.Collection == nil {
		return nil, ErrNilCollection
	}

	var reminder models.ActiveReminder
	err := c.Collection.FindOne(ctx, bson.M{
		"reminder_rule_id": ruleID,
		"vehicle_id":       vehicleID,
		"status":           bson.M{"$in": outstandingStatuses},
	}).Decode(&reminder)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &reminder, nil
}

// InsertReminder inserts a generated reminder. A duplicate key on the
// outstanding index is reported as ErrReminderExists.
func (c *MongoReminderCollection) InsertReminder(ctx context.Context, reminder models.ActiveReminder) (*models.ActiveReminder, error) {
	if c.Collection == nil {
		return nil, ErrNilCollection
	}
	if reminder.ID.IsZero() {
		reminder.ID = primitive.NewObjectID()
	}
	if reminder.Status == "" {
		reminder.Status = models.ReminderActive
	}
	reminder.Outstanding = reminder.Status.IsOutstanding()
	now := time.Now()
	reminder.CreatedAt = now
	reminder.UpdatedAt = now

	if _, err := c.Collection.InsertOne(ctx, reminder); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrReminderExists
		}
		return nil, err
	}
	return &reminder, nil
}

// ListOutstanding returns the active and snoozed reminders of a company,
// soonest due first.
func (c *MongoReminderCollection) ListOutstanding(ctx context.Context, companyID string) ([]models.ActiveReminder, error) {
	if c.Collection == nil {
		return nil, ErrNilCollection
	}

	opts := options.Find().SetSort(bson.D{{Key: "due_date", Value: 1}, {Key: "generated_at", Value: 1}})
	cursor, err := c.Collection.Find(ctx, bson.M{
		"company_id": companyID,
		"status":     bson.M{"$in": outstandingStatuses},
	}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	reminders := []models.ActiveReminder{}
	if err := cursor.All(ctx, &reminders); err != nil {
		return nil, err
	}
	return reminders, nil
}

// UpdateStatus moves a reminder through its lifecycle. The current status
// is part of the update filter so a concurrent change is not overwritten.
// A non-empty companyID restricts the update to that company's reminders;
// a reminder of another company is reported as ErrNotFound.
func (c *MongoReminderCollection) UpdateStatus(ctx context.Context, companyID, id string, status models.ReminderStatus, snoozedUntil *time.Time) (*models.ActiveReminder, error) {
	if c.Collection == nil {
		return nil, ErrNilCollection
	}

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("reminder %q: %w", id, ErrNotFound)
	}

	filter := bson.M{"_id": objectID}
	if companyID != "" {
		filter["company_id"] = companyID
	}

	var current models.ActiveReminder
	if err := c.Collection.FindOne(ctx, filter).Decode(&current); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("reminder %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	if !current.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, status)
	}

	set := bson.M{
		"status":      status,
		"outstanding": status.IsOutstanding(),
		"updated_at":  time.Now(),
	}
	update := bson.M{"$set": set}
	if status == models.ReminderSnoozed && snoozedUntil != nil {
		set["snoozed_until"] = *snoozedUntil
	} else {
		update["$unset"] = bson.M{"snoozed_until": ""}
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.ActiveReminder
	filter["status"] = current.Status
	err = c.Collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: reminder %s changed concurrently", ErrInvalidTransition, id)
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrReminderExists
		}
		return nil, err
	}
	return &updated, nil
}
