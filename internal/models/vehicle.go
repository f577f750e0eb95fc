package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
	"time"
)

// Vehicle represents a fleet vehicle.
type Vehicle struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CompanyID      string             `bson:"company_id" json:"company_id"`
	Type           string             `bson:"type" json:"type"` // "ICE" or "EV"
	Make           string             `bson:"make" json:"make"`
	Model          string             `bson:"model" json:"model"`
	Year           int                `bson:"year" json:"year"`
	LicensePlate   string             `bson:"license_plate" json:"license_plate"`
	CurrentMileage int                `bson:"current_mileage" json:"current_mileage"` // odometer in miles
	IsActive       bool               `bson:"is_active" json:"is_active"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updated_at"`
}

// DisplayName is used in reminder descriptions.
func (v *Vehicle) DisplayName() string {
	name := v.Make
	if v.Model != "" {
		if name != "" {
			name += " "
		}
		name += v.Model
	}
	if v.LicensePlate != "" {
		if name == "" {
			return v.LicensePlate
		}
		return name + " (" + v.LicensePlate + ")"
	}
	if name == "" {
		return v.ID.Hex()
	}
	return name
}
