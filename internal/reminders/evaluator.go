// Package reminders decides when maintenance reminders are due and
// materializes them for every vehicle a rule applies to.
package reminders

import (
	"fmt"
	"time"

	"github.com/ukydev/fleet-reminders/internal/models"
)

// MilesPerDay is the assumed average daily usage used to turn a remaining
// mileage into an estimated due date.
const MilesPerDay = 30

const dateLayout = "2006-01-02"

// Baseline is the service point a trigger measures from.
type Baseline struct {
	Mileage int
	Date    time.Time
	// HasDate is false when the vehicle was never serviced and has no
	// creation date to fall back on; time based triggers cannot fire then.
	HasDate bool
	// Serviced is false when no matching maintenance record exists.
	Serviced bool
}

// BaselineFor derives the baseline from the last matching service. A vehicle
// that was never serviced is measured from mileage 0 and its creation date.
func BaselineFor(last *models.MaintenanceRecord, vehicle models.Vehicle) Baseline {
	if last != nil {
		return Baseline{Mileage: last.Mileage, Date: dateOf(last.ServiceDate), HasDate: true, Serviced: true}
	}
	if vehicle.CreatedAt.IsZero() {
		return Baseline{}
	}
	return Baseline{Date: dateOf(vehicle.CreatedAt), HasDate: true}
}

// Input is everything a trigger needs to decide.
type Input struct {
	Label        string
	LeadTimeDays int
	Vehicle      models.Vehicle
	Baseline     Baseline
	Now          time.Time
}

func (in Input) today() time.Time {
	return dateOf(in.Now)
}

func (in Input) horizon() time.Time {
	lead := in.LeadTimeDays
	if lead < 0 {
		lead = 0
	}
	return in.today().AddDate(0, 0, lead)
}

// Payload is the content of a reminder that should be created.
type Payload struct {
	Title         string
	Description   string
	DueDate       *time.Time
	TargetMileage *int
	Overdue       bool
}

// Evaluate runs the algorithm matching the trigger variant. It returns nil
// when no reminder is warranted.
func Evaluate(trigger models.Trigger, in Input) *Payload {
	switch t := trigger.(type) {
	case models.MileageInterval:
		return EvaluateMileageInterval(t, in)
	case models.TimeInterval:
		return EvaluateTimeInterval(t, in)
	case models.MileageSinceLast:
		return EvaluateMileageSinceLast(t, in)
	case models.TimeSinceLast:
		return EvaluateTimeSinceLast(t, in)
	default:
		return nil
	}
}

// EvaluateMileageInterval fires when the vehicle has passed, or is expected
// to reach within the lead time, the mileage of the next interval.
func EvaluateMileageInterval(t models.MileageInterval, in Input) *Payload {
	target := in.Baseline.Mileage + t.Miles
	current := in.Vehicle.CurrentMileage

	if current >= target {
		return &Payload{
			Title:         in.Label + " Overdue",
			Description:   fmt.Sprintf("%s is %d miles overdue (due at %d miles, now at %d miles)", in.Vehicle.DisplayName(), current-target, target, current),
			TargetMileage: &target,
			Overdue:       true,
		}
	}

	remaining := target - current
	estimatedDays := (remaining + MilesPerDay - 1) / MilesPerDay
	due := in.today().AddDate(0, 0, estimatedDays)
	if due.After(in.horizon()) {
		return nil
	}
	return &Payload{
		Title:         in.Label + " Due Soon",
		Description:   fmt.Sprintf("%s is due at %d miles, %d miles remaining (about %d days)", in.Vehicle.DisplayName(), target, remaining, estimatedDays),
		DueDate:       &due,
		TargetMileage: &target,
	}
}

// EvaluateTimeInterval fires when the next calendar due date falls inside
// the lead time window or has already passed.
func EvaluateTimeInterval(t models.TimeInterval, in Input) *Payload {
	if !in.Baseline.HasDate {
		return nil
	}
	due := in.Baseline.Date.AddDate(0, 0, t.Days)
	if t.DayOfWeek != nil {
		due = nextWeekday(due, *t.DayOfWeek)
	}
	if due.After(in.horizon()) {
		return nil
	}

	today := in.today()
	if due.Before(today) {
		return &Payload{
			Title:       in.Label + " Overdue",
			Description: fmt.Sprintf("%s was due on %s (%d days ago)", in.Vehicle.DisplayName(), due.Format(dateLayout), daysBetween(due, today)),
			DueDate:     &due,
			Overdue:     true,
		}
	}
	return &Payload{
		Title:       in.Label + " Due Soon",
		Description: fmt.Sprintf("%s is due on %s (in %d days)", in.Vehicle.DisplayName(), due.Format(dateLayout), daysBetween(today, due)),
		DueDate:     &due,
	}
}

// EvaluateMileageSinceLast fires once the mileage driven since the last
// service reaches the threshold. There is no lead time.
func EvaluateMileageSinceLast(t models.MileageSinceLast, in Input) *Payload {
	since := in.Vehicle.CurrentMileage - in.Baseline.Mileage
	if since < t.Miles {
		return nil
	}
	target := in.Baseline.Mileage + t.Miles
	desc := fmt.Sprintf("%s has driven %d miles since last service (threshold %d miles)", in.Vehicle.DisplayName(), since, t.Miles)
	if !in.Baseline.Serviced {
		desc = fmt.Sprintf("%s has no service on record and has driven %d miles (threshold %d miles)", in.Vehicle.DisplayName(), since, t.Miles)
	}
	return &Payload{
		Title:         in.Label + " Threshold Reached",
		Description:   desc,
		TargetMileage: &target,
	}
}

// EvaluateTimeSinceLast fires once the whole days elapsed since the last
// service reach the threshold. There is no lead time.
func EvaluateTimeSinceLast(t models.TimeSinceLast, in Input) *Payload {
	if !in.Baseline.HasDate {
		return nil
	}
	since := daysBetween(in.Baseline.Date, in.today())
	if since < t.Days {
		return nil
	}
	desc := fmt.Sprintf("%s was last serviced %d days ago (threshold %d days)", in.Vehicle.DisplayName(), since, t.Days)
	if !in.Baseline.Serviced {
		desc = fmt.Sprintf("%s has no service on record and entered the fleet %d days ago (threshold %d days)", in.Vehicle.DisplayName(), since, t.Days)
	}
	return &Payload{
		Title:       in.Label + " Threshold Reached",
		Description: desc,
	}
}

// nextWeekday moves d forward to the first day on or after d that falls on wd.
func nextWeekday(d time.Time, wd time.Weekday) time.Time {
	delta := (int(wd) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, delta)
}

// dateOf drops the time of day, keeping the calendar date as seen in t's
// own location. Dates are compared in UTC so day arithmetic ignores DST.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
