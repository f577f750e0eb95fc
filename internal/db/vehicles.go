package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ukydev/fleet-reminders/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoVehicleCollection implements VehicleCollection for MongoDB
type MongoVehicleCollection struct {
	Collection *mongo.Collection
}

// ListActiveVehicles queries active vehicles of a company. A vehicle id that
// is not a valid ObjectID cannot match anything and yields an empty result.
func (c *MongoVehicleCollection) ListActiveVehicles(ctx context.Context, companyID string, vehicleID *string) ([]models.Vehicle, error) {
	if c.Collection == nil {
		return nil, ErrNilCollection
	}

	filter := bson.M{"company_id": companyID, "is_active": true}
	if vehicleID != nil && *vehicleID != "" {
		objectID, err := primitive.ObjectIDFromHex(*vehicleID)
		if err != nil {
			return nil, nil
		}
		filter["_id"] = objectID
	}

	cursor, err := c.Collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var vehicles []models.Vehicle
	if err := cursor.All(ctx, &vehicles); err != nil {
		return nil, err
	}
	return vehicles, nil
}

// InsertVehicle inserts a vehicle record into the collection.
func (c *MongoVehicleCollection) InsertVehicle(ctx context.Context, vehicle models.Vehicle) (*models.Vehicle, error) {
	if c.Collection == nil {
		return nil, ErrNilCollection
	}
	if vehicle.ID.IsZero() {
		vehicle.ID = primitive.NewObjectID()
	}
	now := time.Now()
	if vehicle.CreatedAt.IsZero() {
		vehicle.CreatedAt = now
	}
	vehicle.UpdatedAt = now

	if _, err := c.Collection.InsertOne(ctx, vehicle); err != nil {
		return nil, err
	}
	return &vehicle, nil
}

// AddMileage advances a vehicle's odometer.
func (c *MongoVehicleCollection) AddMileage(ctx context.Context, id string, miles int) error {
	if c.Collection == nil {
		return ErrNilCollection
	}

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid vehicle ID: %w", err)
	}

	result, err := c.Collection.UpdateOne(ctx,
		bson.M{"_id": objectID},
		bson.M{
			"$inc": bson.M{"current_mileage": miles},
			"$set": bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("vehicle %s: %w", id, ErrNotFound)
	}
	return nil
}
