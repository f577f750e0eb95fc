package models

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrMalformedRule is returned when a rule's stored fields cannot be
// resolved into a trigger or maintenance type filter.
var ErrMalformedRule = errors.New("malformed reminder rule")

// TriggerType identifies the algorithm that decides when a rule fires.
type TriggerType string

const (
	TriggerMileageInterval  TriggerType = "mileage_interval"
	TriggerTimeInterval     TriggerType = "time_interval"
	TriggerMileageSinceLast TriggerType = "mileage_since_last"
	TriggerTimeSinceLast    TriggerType = "time_since_last"
)

// Priority is copied from a rule onto every reminder it generates.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// IsValidPriority checks if a priority is one of the known levels
func IsValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}

// ReminderRule is a standing maintenance policy for one vehicle or for
// every active vehicle of a company. Rules are written by administrators
// and are read-only to the reminder engine.
type ReminderRule struct {
	ID                primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	CompanyID         string             `json:"company_id" bson:"company_id"`
	Name              string             `json:"name" bson:"name"`
	VehicleID         *string            `json:"vehicle_id,omitempty" bson:"vehicle_id,omitempty"` // nil applies to the whole company
	MaintenanceTypeID *string            `json:"maintenance_type_id,omitempty" bson:"maintenance_type_id,omitempty"`
	CustomType        *string            `json:"custom_type,omitempty" bson:"custom_type,omitempty"`
	TriggerType       TriggerType        `json:"trigger_type" bson:"trigger_type"`
	MileageInterval   *int               `json:"mileage_interval,omitempty" bson:"mileage_interval,omitempty"`
	MileageThreshold  *int               `json:"mileage_threshold,omitempty" bson:"mileage_threshold,omitempty"`
	TimeIntervalDays  *int               `json:"time_interval_days,omitempty" bson:"time_interval_days,omitempty"`
	TimeThresholdDays *int               `json:"time_threshold_days,omitempty" bson:"time_threshold_days,omitempty"`
	DayOfWeek         *int               `json:"day_of_week,omitempty" bson:"day_of_week,omitempty"` // 0=Sunday..6=Saturday
	LeadTimeDays      int                `json:"lead_time_days" bson:"lead_time_days"`
	Priority          Priority           `json:"priority" bson:"priority"`
	IsActive          bool               `json:"is_active" bson:"is_active"`
	CreatedAt         time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at" bson:"updated_at"`
}

// Trigger is the resolved form of a rule's trigger parameters. Exactly one
// of MileageInterval, TimeInterval, MileageSinceLast or TimeSinceLast.
type Trigger interface {
	Type() TriggerType
}

// MileageInterval fires every Miles since the last service.
type MileageInterval struct {
	Miles int
}

// TimeInterval fires every Days since the last service, optionally moved
// forward onto a preferred weekday.
type TimeInterval struct {
	Days      int
	DayOfWeek *time.Weekday
}

// MileageSinceLast fires once Miles have been driven since the last service.
type MileageSinceLast struct {
	Miles int
}

// TimeSinceLast fires once Days have elapsed since the last service.
type TimeSinceLast struct {
	Days int
}

func (MileageInterval) Type() TriggerType  { return TriggerMileageInterval }
func (TimeInterval) Type() TriggerType     { return TriggerTimeInterval }
func (MileageSinceLast) Type() TriggerType { return TriggerMileageSinceLast }
func (TimeSinceLast) Type() TriggerType    { return TriggerTimeSinceLast }

// Trigger resolves the rule's nullable trigger columns into a single
// variant. Only the parameter matching TriggerType is consulted.
func (r *ReminderRule) Trigger() (Trigger, error) {
	switch r.TriggerType {
	case TriggerMileageInterval:
		n, err := positive("mileage_interval", r.MileageInterval)
		if err != nil {
			return nil, err
		}
		return MileageInterval{Miles: n}, nil
	case TriggerTimeInterval:
		n, err := positive("time_interval_days", r.TimeIntervalDays)
		if err != nil {
			return nil, err
		}
		t := TimeInterval{Days: n}
		if r.DayOfWeek != nil {
			if *r.DayOfWeek < 0 || *r.DayOfWeek > 6 {
				return nil, fmt.Errorf("%w: day_of_week %d out of range", ErrMalformedRule, *r.DayOfWeek)
			}
			wd := time.Weekday(*r.DayOfWeek)
			t.DayOfWeek = &wd
		}
		return t, nil
	case TriggerMileageSinceLast:
		n, err := positive("mileage_threshold", r.MileageThreshold)
		if err != nil {
			return nil, err
		}
		return MileageSinceLast{Miles: n}, nil
	case TriggerTimeSinceLast:
		n, err := positive("time_threshold_days", r.TimeThresholdDays)
		if err != nil {
			return nil, err
		}
		return TimeSinceLast{Days: n}, nil
	default:
		return nil, fmt.Errorf("%w: unknown trigger type %q", ErrMalformedRule, r.TriggerType)
	}
}

func positive(field string, v *int) (int, error) {
	if v == nil {
		return 0, fmt.Errorf("%w: %s is required", ErrMalformedRule, field)
	}
	if *v <= 0 {
		return 0, fmt.Errorf("%w: %s must be positive, got %d", ErrMalformedRule, field, *v)
	}
	return *v, nil
}

// TypeFilter resolves which maintenance category the rule tracks. The
// maintenance type id wins when both fields are set.
func (r *ReminderRule) TypeFilter() (MaintenanceTypeFilter, error) {
	if r.MaintenanceTypeID != nil && *r.MaintenanceTypeID != "" {
		return ByTypeID{ID: *r.MaintenanceTypeID}, nil
	}
	if r.CustomType != nil && *r.CustomType != "" {
		return ByCustomType{Name: *r.CustomType}, nil
	}
	return nil, fmt.Errorf("%w: maintenance_type_id or custom_type is required", ErrMalformedRule)
}

// Label is the human readable name used in reminder titles.
func (r *ReminderRule) Label() string {
	switch {
	case r.Name != "":
		return r.Name
	case r.CustomType != nil && *r.CustomType != "":
		return *r.CustomType
	case r.MaintenanceTypeID != nil && *r.MaintenanceTypeID != "":
		return *r.MaintenanceTypeID
	default:
		return "Maintenance"
	}
}

// AppliesToVehicle reports whether the rule is scoped to a single vehicle.
func (r *ReminderRule) AppliesToVehicle() bool {
	return r.VehicleID != nil && *r.VehicleID != ""
}
