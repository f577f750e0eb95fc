package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaintenanceRecord is a completed service in a vehicle's history.
type MaintenanceRecord struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	CompanyID       string             `json:"company_id" bson:"company_id"`
	VehicleID       string             `json:"vehicle_id" bson:"vehicle_id"`
	TypeID          string             `json:"type_id,omitempty" bson:"type_id,omitempty"` // e.g. "oil_change", "tire_rotation"
	CustomType      string             `json:"custom_type,omitempty" bson:"custom_type,omitempty"`
	Description     string             `json:"description" bson:"description"`
	ServiceDate     time.Time          `json:"service_date" bson:"service_date"`
	Mileage         int                `json:"mileage" bson:"mileage"` // odometer in miles at time of service
	Cost            float64            `json:"cost" bson:"cost"`       // in USD
	Technician      string             `json:"technician" bson:"technician"`
	ServiceLocation string             `json:"service_location" bson:"service_location"`
	Notes           string             `json:"notes" bson:"notes"`
	CreatedAt       time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at" bson:"updated_at"`
}

// MaintenanceTypeFilter selects history records of one maintenance category,
// either by catalogue id or by free-form custom name.
type MaintenanceTypeFilter interface {
	// Matches reports whether a history record belongs to the category.
	Matches(rec MaintenanceRecord) bool
	// BSON returns the query fragment selecting the category.
	BSON() bson.M
	String() string
}

// ByTypeID matches records by maintenance type id.
type ByTypeID struct {
	ID string
}

// ByCustomType matches records by custom type name.
type ByCustomType struct {
	Name string
}

func (f ByTypeID) Matches(rec MaintenanceRecord) bool { return rec.TypeID == f.ID }
func (f ByTypeID) BSON() bson.M                       { return bson.M{"type_id": f.ID} }
func (f ByTypeID) String() string                     { return "type_id=" + f.ID }

func (f ByCustomType) Matches(rec MaintenanceRecord) bool { return rec.CustomType == f.Name }
func (f ByCustomType) BSON() bson.M                       { return bson.M{"custom_type": f.Name} }
func (f ByCustomType) String() string                     { return "custom_type=" + f.Name }
