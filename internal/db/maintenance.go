package db

import (
	"context"
	"errors"
	"time"

	"github.com/ukydev/fleet-reminders/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoMaintenanceCollection implements MaintenanceCollection for MongoDB
type MongoMaintenanceCollection struct {
	Collection *mongo.Collection
}

// FindLastService finds the most recent record of the filtered maintenance
// category for a vehicle.
func (c *MongoMaintenanceCollection) FindLastService(ctx context.Context, vehicleID string, filter models.MaintenanceTypeFilter) (*models.MaintenanceRecord, error) {
	if c.Collection == nil {
		return nil, ErrNilCollection
	}

	query := filter.BSON()
	query["vehicle_id"] = vehicleID
	opts := options.FindOne().SetSort(bson.D{{Key: "service_date", Value: -1}})

	var record models.MaintenanceRecord
	err := c.Collection.FindOne(ctx, query, opts).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// InsertMaintenance inserts a maintenance record into the collection.
func (c *MongoMaintenanceCollection) InsertMaintenance(ctx context.Context, record models.MaintenanceRecord) error {
	if c.Collection == nil {
		return ErrNilCollection
	}
	record.CreatedAt = time.Now()
	record.UpdatedAt = time.Now()
	_, err := c.Collection.InsertOne(ctx, record)
	return err
}
