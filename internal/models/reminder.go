package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReminderStatus is the lifecycle state of a generated reminder.
type ReminderStatus string

const (
	ReminderActive    ReminderStatus = "active"
	ReminderSnoozed   ReminderStatus = "snoozed"
	ReminderDismissed ReminderStatus = "dismissed"
	ReminderCompleted ReminderStatus = "completed"
)

var reminderTransitions = map[ReminderStatus][]ReminderStatus{
	ReminderActive:  {ReminderDismissed, ReminderSnoozed, ReminderCompleted},
	ReminderSnoozed: {ReminderActive, ReminderDismissed, ReminderCompleted},
}

// IsOutstanding reports whether a reminder in this state blocks generation
// of a new one for the same rule and vehicle.
func (s ReminderStatus) IsOutstanding() bool {
	return s == ReminderActive || s == ReminderSnoozed
}

// IsTerminal reports whether no further transitions are allowed.
func (s ReminderStatus) IsTerminal() bool {
	return s == ReminderDismissed || s == ReminderCompleted
}

// CanTransitionTo checks the reminder state machine.
func (s ReminderStatus) CanTransitionTo(next ReminderStatus) bool {
	for _, allowed := range reminderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ActiveReminder is a reminder materialized from a rule for one vehicle.
type ActiveReminder struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ReminderRuleID string             `json:"reminder_rule_id" bson:"reminder_rule_id"`
	VehicleID      string             `json:"vehicle_id" bson:"vehicle_id"`
	CompanyID      string             `json:"company_id" bson:"company_id"`
	Title          string             `json:"title" bson:"title"`
	Description    string             `json:"description" bson:"description"`
	Priority       Priority           `json:"priority" bson:"priority"`
	DueDate        *time.Time         `json:"due_date,omitempty" bson:"due_date,omitempty"`
	CurrentMileage int                `json:"current_mileage" bson:"current_mileage"`
	TargetMileage  *int               `json:"target_mileage,omitempty" bson:"target_mileage,omitempty"`
	Status         ReminderStatus     `json:"status" bson:"status"`
	// Outstanding mirrors Status.IsOutstanding and backs the unique index
	// on (reminder_rule_id, vehicle_id).
	Outstanding  bool       `json:"-" bson:"outstanding"`
	SnoozedUntil *time.Time `json:"snoozed_until,omitempty" bson:"snoozed_until,omitempty"`
	GeneratedAt  time.Time  `json:"generated_at" bson:"generated_at"`
	CreatedAt    time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" bson:"updated_at"`
}
