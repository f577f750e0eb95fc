package reminders

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-reminders/internal/db"
	"github.com/ukydev/fleet-reminders/internal/metrics"
	"github.com/ukydev/fleet-reminders/internal/models"
)

// Generator materializes reminders for one rule at a time.
type Generator struct {
	vehicles    db.VehicleCollection
	maintenance db.MaintenanceCollection
	reminders   db.ReminderCollection
	logger      log.FieldLogger
	metrics     *metrics.Recorder
}

// NewGenerator creates a generator over the given stores. logger and rec may be nil.
func NewGenerator(vehicles db.VehicleCollection, maintenance db.MaintenanceCollection, reminders db.ReminderCollection, logger log.FieldLogger, rec *metrics.Recorder) *Generator {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Generator{
		vehicles:    vehicles,
		maintenance: maintenance,
		reminders:   reminders,
		logger:      logger,
		metrics:     rec,
	}
}

// GenerateForRule evaluates rule against every vehicle it applies to and
// returns the reminders it created. Failures on a single vehicle are logged
// and skipped; an error is returned only when the vehicles of the rule
// cannot be resolved at all. A malformed rule is a no-op.
func (g *Generator) GenerateForRule(ctx context.Context, rule models.ReminderRule, now time.Time) ([]models.ActiveReminder, error) {
	ruleID := rule.ID.Hex()
	logger := g.logger.WithFields(log.Fields{
		"rule_id":      ruleID,
		"company_id":   rule.CompanyID,
		"trigger_type": rule.TriggerType,
	})

	trigger, err := rule.Trigger()
	if err != nil {
		g.metrics.MalformedRule()
		logger.WithError(err).Warn("Skipping malformed reminder rule")
		return nil, nil
	}
	filter, err := rule.TypeFilter()
	if err != nil {
		g.metrics.MalformedRule()
		logger.WithError(err).Warn("Skipping malformed reminder rule")
		return nil, nil
	}

	vehicles, err := g.vehicles.ListActiveVehicles(ctx, rule.CompanyID, rule.VehicleID)
	if err != nil {
		return nil, fmt.Errorf("list vehicles for rule %s: %w", ruleID, err)
	}

	var created []models.ActiveReminder
	for _, vehicle := range vehicles {
		if err := ctx.Err(); err != nil {
			return created, err
		}
		reminder, err := g.generateForVehicle(ctx, rule, trigger, filter, vehicle, now)
		if err != nil {
			logger.WithError(err).WithField("vehicle_id", vehicle.ID.Hex()).Error("Failed to generate reminder for vehicle")
			continue
		}
		if reminder != nil {
			created = append(created, *reminder)
		}
	}

	logger.WithFields(log.Fields{
		"vehicles":  len(vehicles),
		"generated": len(created),
	}).Debug("Evaluated reminder rule")
	return created, nil
}

// generateForVehicle returns nil, nil when nothing had to be created.
func (g *Generator) generateForVehicle(ctx context.Context, rule models.ReminderRule, trigger models.Trigger, filter models.MaintenanceTypeFilter, vehicle models.Vehicle, now time.Time) (*models.ActiveReminder, error) {
	ruleID := rule.ID.Hex()
	vehicleID := vehicle.ID.Hex()

	existing, err := g.reminders.FindOutstandingReminder(ctx, ruleID, vehicleID)
	if err != nil {
		g.metrics.VehicleError("outstanding_check")
		return nil, fmt.Errorf("find outstanding reminder: %w", err)
	}
	if existing != nil {
		return nil, nil
	}

	last, err := g.maintenance.FindLastService(ctx, vehicleID, filter)
	if err != nil {
		g.metrics.VehicleError("last_service")
		return nil, fmt.Errorf("find last service (%s): %w", filter, err)
	}

	payload := Evaluate(trigger, Input{
		Label:        rule.Label(),
		LeadTimeDays: rule.LeadTimeDays,
		Vehicle:      vehicle,
		Baseline:     BaselineFor(last, vehicle),
		Now:          now,
	})
	if payload == nil {
		return nil, nil
	}

	inserted, err := g.reminders.InsertReminder(ctx, models.ActiveReminder{
		ReminderRuleID: ruleID,
		VehicleID:      vehicleID,
		CompanyID:      rule.CompanyID,
		Title:          payload.Title,
		Description:    payload.Description,
		Priority:       rule.Priority,
		DueDate:        payload.DueDate,
		CurrentMileage: vehicle.CurrentMileage,
		TargetMileage:  payload.TargetMileage,
		Status:         models.ReminderActive,
		Outstanding:    true,
		GeneratedAt:    now,
	})
	if err != nil {
		if errors.Is(err, db.ErrReminderExists) {
			g.logger.WithFields(log.Fields{"rule_id": ruleID, "vehicle_id": vehicleID}).
				Debug("Reminder already created by a concurrent pass")
			return nil, nil
		}
		g.metrics.VehicleError("insert")
		return nil, fmt.Errorf("insert reminder: %w", err)
	}

	g.metrics.ReminderGenerated(string(trigger.Type()))
	return inserted, nil
}
