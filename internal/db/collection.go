package db

import (
	"context"
	"errors"
	"time"

	"github.com/ukydev/fleet-reminders/internal/models"
)

var (
	// ErrNilCollection is returned when a wrapper has no backing collection.
	ErrNilCollection = errors.New("mongo collection is nil")
	// ErrReminderExists is returned by InsertReminder when an outstanding
	// reminder already exists for the same rule and vehicle.
	ErrReminderExists = errors.New("outstanding reminder already exists")
	// ErrNotFound is returned when a document looked up by id does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition is returned when a reminder status change is not
	// allowed by the reminder state machine.
	ErrInvalidTransition = errors.New("invalid reminder status transition")
)

// RuleCollection defines the interface for reminder rule reads.
type RuleCollection interface {
	ListActiveRules(ctx context.Context) ([]models.ReminderRule, error)
	InsertRule(ctx context.Context, rule models.ReminderRule) (*models.ReminderRule, error)
}

// VehicleCollection defines the interface for vehicle data operations.
type VehicleCollection interface {
	// ListActiveVehicles returns the active vehicles of a company, narrowed
	// to a single vehicle when vehicleID is set.
	ListActiveVehicles(ctx context.Context, companyID string, vehicleID *string) ([]models.Vehicle, error)
	InsertVehicle(ctx context.Context, vehicle models.Vehicle) (*models.Vehicle, error)
	AddMileage(ctx context.Context, id string, miles int) error
}

// MaintenanceCollection defines the interface for maintenance history reads.
type MaintenanceCollection interface {
	// FindLastService returns the most recent matching record, or nil when
	// the vehicle has never had this kind of service.
	FindLastService(ctx context.Context, vehicleID string, filter models.MaintenanceTypeFilter) (*models.MaintenanceRecord, error)
	InsertMaintenance(ctx context.Context, record models.MaintenanceRecord) error
}

// ReminderCollection defines the interface for generated reminder operations.
type ReminderCollection interface {
	// FindOutstandingReminder returns the active or snoozed reminder for the
	// pair, or nil when none exists.
	FindOutstandingReminder(ctx context.Context, ruleID, vehicleID string) (*models.ActiveReminder, error)
	InsertReminder(ctx context.Context, reminder models.ActiveReminder) (*models.ActiveReminder, error)
	ListOutstanding(ctx context.Context, companyID string) ([]models.ActiveReminder, error)
	// UpdateStatus changes a reminder's status. An empty companyID leaves the
	// update unscoped.
	UpdateStatus(ctx context.Context, companyID, id string, status models.ReminderStatus, snoozedUntil *time.Time) (*models.ActiveReminder, error)
}
