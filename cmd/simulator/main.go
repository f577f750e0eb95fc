package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-reminders/internal/db"
	"github.com/ukydev/fleet-reminders/internal/middleware"
	"github.com/ukydev/fleet-reminders/internal/models"
	"github.com/ukydev/fleet-reminders/internal/reminders"
)

var (
	makes = map[string][]string{
		"ICE": {"Ford", "Chevrolet", "Toyota", "Honda", "BMW"},
		"EV":  {"Tesla", "Nissan", "Chevrolet", "Ford", "Audi"},
	}
	vehicleModels = map[string][]string{
		"ICE": {"F-150", "Silverado", "Camry", "Civic", "X5"},
		"EV":  {"Model 3", "Leaf", "Bolt", "Mach-E", "e-tron"},
	}
	technicians = []string{"J. Alvarez", "M. Chen", "S. Okafor", "R. Novak"}
)

// simConfig is read from the environment.
type simConfig struct {
	MongoURI    string
	MongoDB     string
	CompanyID   string
	FleetSize   int
	Interval    time.Duration
	DaysPerTick int
	APIURL      string
	CronSecret  string
	Reset       bool
}

func loadSimConfig() simConfig {
	cfg := simConfig{
		MongoURI:    os.Getenv("MONGO_URI"),
		MongoDB:     envOr("MONGO_DB", "fleet"),
		CompanyID:   envOr("SIM_COMPANY_ID", "demo-fleet"),
		FleetSize:   10,
		Interval:    2 * time.Second,
		DaysPerTick: 1,
		APIURL:      os.Getenv("API_BASE_URL"),
		CronSecret:  os.Getenv("SIM_CRON_SECRET"),
		Reset:       os.Getenv("SIM_RESET") == "true",
	}
	if val := os.Getenv("FLEET_SIZE"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			cfg.FleetSize = n
		}
	}
	if v := os.Getenv("SIM_TICK_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			cfg.Interval = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("SIM_DAYS_PER_TICK"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			cfg.DaysPerTick = n
		}
	}
	return cfg
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

// newVehicle builds a random active vehicle that has been on the road for
// up to two years.
func newVehicle(rng *rand.Rand, companyID string, i int, now time.Time) models.Vehicle {
	vtype := []string{"ICE", "EV"}[rng.Intn(2)]
	ageDays := 30 + rng.Intn(700)
	return models.Vehicle{
		CompanyID:      companyID,
		Type:           vtype,
		Make:           makes[vtype][rng.Intn(len(makes[vtype]))],
		Model:          vehicleModels[vtype][rng.Intn(len(vehicleModels[vtype]))],
		Year:           2020 + rng.Intn(5),
		LicensePlate:   fmt.Sprintf("FLT-%04d", i+1),
		CurrentMileage: ageDays*reminders.MilesPerDay + rng.Intn(2000),
		IsActive:       true,
		CreatedAt:      now.AddDate(0, 0, -ageDays),
		UpdatedAt:      now,
	}
}

// demoRules covers every trigger type so a demo fleet exercises all of them.
func demoRules(companyID string, now time.Time) []models.ReminderRule {
	friday := int(time.Friday)
	rules := []models.ReminderRule{
		{
			Name:              "Oil Change",
			MaintenanceTypeID: strPtr("oil_change"),
			TriggerType:       models.TriggerMileageInterval,
			MileageInterval:   intPtr(5000),
			LeadTimeDays:      7,
			Priority:          models.PriorityMedium,
		},
		{
			Name:             "Annual Inspection",
			CustomType:       strPtr("Annual Inspection"),
			TriggerType:      models.TriggerTimeInterval,
			TimeIntervalDays: intPtr(365),
			DayOfWeek:        &friday,
			LeadTimeDays:     14,
			Priority:         models.PriorityHigh,
		},
		{
			Name:              "Tire Rotation",
			MaintenanceTypeID: strPtr("tire_rotation"),
			TriggerType:       models.TriggerMileageSinceLast,
			MileageThreshold:  intPtr(7500),
			Priority:          models.PriorityLow,
		},
		{
			Name:              "Brake Check",
			MaintenanceTypeID: strPtr("brake_inspection"),
			TriggerType:       models.TriggerTimeSinceLast,
			TimeThresholdDays: intPtr(180),
			LeadTimeDays:      10,
			Priority:          models.PriorityCritical,
		},
	}
	for i := range rules {
		rules[i].CompanyID = companyID
		rules[i].IsActive = true
		rules[i].CreatedAt = now
		rules[i].UpdatedAt = now
	}
	return rules
}

// serviceHistory gives a vehicle one past service per maintenance type, at
// a random point of its life, so some reminders fire right away.
func serviceHistory(rng *rand.Rand, v models.Vehicle, now time.Time) []models.MaintenanceRecord {
	types := []struct {
		typeID, custom, description string
		cost                        float64
	}{
		{"oil_change", "", "Engine oil and filter replaced", 89.99},
		{"", "Annual Inspection", "Yearly safety inspection", 150},
		{"tire_rotation", "", "Tires rotated and balanced", 59.5},
		{"brake_inspection", "", "Pads and rotors inspected", 120},
	}
	ageDays := int(now.Sub(v.CreatedAt).Hours() / 24)
	if ageDays < 1 {
		return nil
	}

	var records []models.MaintenanceRecord
	for _, t := range types {
		if v.Type == "EV" && t.typeID == "oil_change" {
			continue
		}
		daysAgo := rng.Intn(ageDays)
		mileage := v.CurrentMileage - daysAgo*reminders.MilesPerDay
		if mileage < 0 {
			mileage = 0
		}
		records = append(records, models.MaintenanceRecord{
			CompanyID:       v.CompanyID,
			VehicleID:       v.ID.Hex(),
			TypeID:          t.typeID,
			CustomType:      t.custom,
			Description:     t.description,
			ServiceDate:     now.AddDate(0, 0, -daysAgo),
			Mileage:         mileage,
			Cost:            t.cost,
			Technician:      technicians[rng.Intn(len(technicians))],
			ServiceLocation: "Main Depot",
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}
	return records
}

// milesForTick returns the distance driven over days, around 30 miles a day.
func milesForTick(rng *rand.Rand, days int) int {
	miles := 0
	for i := 0; i < days; i++ {
		miles += reminders.MilesPerDay/2 + rng.Intn(reminders.MilesPerDay+1)
	}
	return miles
}

func seed(ctx context.Context, store *db.Store, cfg simConfig, rng *rand.Rand, now time.Time) ([]models.Vehicle, error) {
	for _, rule := range demoRules(cfg.CompanyID, now) {
		if _, err := store.Rules.InsertRule(ctx, rule); err != nil {
			return nil, fmt.Errorf("failed to insert rule %q: %w", rule.Name, err)
		}
	}

	vehicles := make([]models.Vehicle, 0, cfg.FleetSize)
	for i := 0; i < cfg.FleetSize; i++ {
		created, err := store.Vehicles.InsertVehicle(ctx, newVehicle(rng, cfg.CompanyID, i, now))
		if err != nil {
			log.WithError(err).Error("Failed to create vehicle")
			continue
		}
		for _, rec := range serviceHistory(rng, *created, now) {
			if err := store.Maintenance.InsertMaintenance(ctx, rec); err != nil {
				log.WithError(err).WithField("vehicle_id", created.ID.Hex()).Warn("Failed to insert service record")
			}
		}
		log.WithFields(log.Fields{
			"vehicle_id": created.ID.Hex(),
			"vehicle":    created.DisplayName(),
			"mileage":    created.CurrentMileage,
		}).Info("Created vehicle")
		vehicles = append(vehicles, *created)
	}
	return vehicles, nil
}

// triggerGeneration asks the API for a pass, authenticating as a scheduler.
func triggerGeneration(ctx context.Context, apiURL, secret string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+"/reminders/generate", nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.CronSecretHeader, secret)

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var body struct {
		Success        bool   `json:"success"`
		GeneratedCount int    `json:"generated_count"`
		Message        string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || !body.Success {
		return 0, fmt.Errorf("generation failed with status %d: %s", resp.StatusCode, body.Message)
	}
	return body.GeneratedCount, nil
}

func drive(ctx context.Context, store *db.Store, cfg simConfig, rng *rand.Rand, vehicles []models.Vehicle) {
	tick := time.NewTicker(cfg.Interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}

		for _, v := range vehicles {
			miles := milesForTick(rng, cfg.DaysPerTick)
			if err := store.Vehicles.AddMileage(ctx, v.ID.Hex(), miles); err != nil {
				log.WithError(err).WithField("vehicle_id", v.ID.Hex()).Error("Failed to advance odometer")
			}
		}

		if cfg.APIURL == "" || cfg.CronSecret == "" {
			continue
		}
		generated, err := triggerGeneration(ctx, cfg.APIURL, cfg.CronSecret)
		if err != nil {
			log.WithError(err).Warn("Reminder generation request failed")
			continue
		}
		log.WithField("generated_count", generated).Info("Triggered reminder generation")
	}
}

func main() {
	_ = godotenv.Load()
	cfg := loadSimConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := db.Open(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer store.Close(context.Background())

	if cfg.Reset {
		if err := store.Drop(ctx); err != nil {
			log.WithError(err).Fatal("Failed to reset database")
		}
	}
	if err := store.EnsureIndexes(ctx); err != nil {
		log.WithError(err).Fatal("Failed to ensure indexes")
	}

	log.WithFields(log.Fields{
		"fleet_size": cfg.FleetSize,
		"company_id": cfg.CompanyID,
		"interval":   cfg.Interval,
		"days":       cfg.DaysPerTick,
	}).Info("Starting fleet simulation")

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	vehicles, err := seed(ctx, store, cfg, rng, time.Now().UTC())
	if err != nil {
		log.WithError(err).Fatal("Failed to seed demo fleet")
	}
	log.WithField("created_vehicles", len(vehicles)).Info("Vehicle creation completed")
	if len(vehicles) == 0 {
		log.Error("No vehicles created. Exiting.")
		return
	}

	drive(ctx, store, cfg, rng, vehicles)
	log.Info("Simulation stopped")
}
