package reminders

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/ukydev/fleet-reminders/internal/db"
	"github.com/ukydev/fleet-reminders/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memStore is an in-memory implementation of the engine's stores. Its
// InsertReminder enforces the outstanding uniqueness the Mongo index does.
type memStore struct {
	mu        sync.Mutex
	rules     []models.ReminderRule
	vehicles  []models.Vehicle
	history   []models.MaintenanceRecord
	reminders []models.ActiveReminder
}

func (s *memStore) ListActiveRules(ctx context.Context) ([]models.ReminderRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ReminderRule
	for _, r := range s.rules {
		if r.IsActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) InsertRule(ctx context.Context, rule models.ReminderRule) (*models.ReminderRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rule.ID.IsZero() {
		rule.ID = primitive.NewObjectID()
	}
	s.rules = append(s.rules, rule)
	return &rule, nil
}

func (s *memStore) ListActiveVehicles(ctx context.Context, companyID string, vehicleID *string) ([]models.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Vehicle
	for _, v := range s.vehicles {
		if v.CompanyID != companyID || !v.IsActive {
			continue
		}
		if vehicleID != nil && v.ID.Hex() != *vehicleID {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *memStore) InsertVehicle(ctx context.Context, v models.Vehicle) (*models.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v.ID.IsZero() {
		v.ID = primitive.NewObjectID()
	}
	s.vehicles = append(s.vehicles, v)
	return &v, nil
}

func (s *memStore) AddMileage(ctx context.Context, id string, miles int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.vehicles {
		if s.vehicles[i].ID.Hex() == id {
			s.vehicles[i].CurrentMileage += miles
			return nil
		}
	}
	return db.ErrNotFound
}

func (s *memStore) FindLastService(ctx context.Context, vehicleID string, filter models.MaintenanceTypeFilter) (*models.MaintenanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matches []models.MaintenanceRecord
	for _, rec := range s.history {
		if rec.VehicleID == vehicleID && filter.Matches(rec) {
			matches = append(matches, rec)
		}
	}
	if len(matches) == 0 {
		return nil, nil
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ServiceDate.After(matches[j].ServiceDate) })
	return &matches[0], nil
}

func (s *memStore) InsertMaintenance(ctx context.Context, rec models.MaintenanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, rec)
	return nil
}

func (s *memStore) FindOutstandingReminder(ctx context.Context, ruleID, vehicleID string) (*models.ActiveReminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reminders {
		if r.ReminderRuleID == ruleID && r.VehicleID == vehicleID && r.Status.IsOutstanding() {
			found := r
			return &found, nil
		}
	}
	return nil, nil
}

func (s *memStore) InsertReminder(ctx context.Context, r models.ActiveReminder) (*models.ActiveReminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.reminders {
		if existing.ReminderRuleID == r.ReminderRuleID && existing.VehicleID == r.VehicleID && existing.Status.IsOutstanding() {
			return nil, db.ErrReminderExists
		}
	}
	r.ID = primitive.NewObjectID()
	s.reminders = append(s.reminders, r)
	return &r, nil
}

func (s *memStore) ListOutstanding(ctx context.Context, companyID string) ([]models.ActiveReminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ActiveReminder
	for _, r := range s.reminders {
		if r.CompanyID == companyID && r.Status.IsOutstanding() {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) UpdateStatus(ctx context.Context, companyID, id string, status models.ReminderStatus, snoozedUntil *time.Time) (*models.ActiveReminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.reminders {
		if s.reminders[i].ID.Hex() == id && (companyID == "" || s.reminders[i].CompanyID == companyID) {
			if !s.reminders[i].Status.CanTransitionTo(status) {
				return nil, db.ErrInvalidTransition
			}
			s.reminders[i].Status = status
			s.reminders[i].Outstanding = status.IsOutstanding()
			s.reminders[i].SnoozedUntil = snoozedUntil
			updated := s.reminders[i]
			return &updated, nil
		}
	}
	return nil, db.ErrNotFound
}

func (s *memStore) outstandingFor(ruleID, vehicleID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.reminders {
		if r.ReminderRuleID == ruleID && r.VehicleID == vehicleID && r.Status.IsOutstanding() {
			n++
		}
	}
	return n
}

// MockReminderCollection is a mock implementation of db.ReminderCollection
type MockReminderCollection struct {
	mock.Mock
}

func (m *MockReminderCollection) FindOutstandingReminder(ctx context.Context, ruleID, vehicleID string) (*models.ActiveReminder, error) {
	args := m.Called(ctx, ruleID, vehicleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ActiveReminder), args.Error(1)
}

func (m *MockReminderCollection) InsertReminder(ctx context.Context, r models.ActiveReminder) (*models.ActiveReminder, error) {
	args := m.Called(ctx, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ActiveReminder), args.Error(1)
}

func (m *MockReminderCollection) ListOutstanding(ctx context.Context, companyID string) ([]models.ActiveReminder, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ActiveReminder), args.Error(1)
}

func (m *MockReminderCollection) UpdateStatus(ctx context.Context, companyID, id string, status models.ReminderStatus, snoozedUntil *time.Time) (*models.ActiveReminder, error) {
	args := m.Called(ctx, companyID, id, status, snoozedUntil)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ActiveReminder), args.Error(1)
}

// MockVehicleCollection is a mock implementation of db.VehicleCollection
type MockVehicleCollection struct {
	mock.Mock
}

func (m *MockVehicleCollection) ListActiveVehicles(ctx context.Context, companyID string, vehicleID *string) ([]models.Vehicle, error) {
	args := m.Called(ctx, companyID, vehicleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Vehicle), args.Error(1)
}

func (m *MockVehicleCollection) InsertVehicle(ctx context.Context, v models.Vehicle) (*models.Vehicle, error) {
	args := m.Called(ctx, v)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Vehicle), args.Error(1)
}

func (m *MockVehicleCollection) AddMileage(ctx context.Context, id string, miles int) error {
	args := m.Called(ctx, id, miles)
	return args.Error(0)
}

// MockRuleGenerator is a mock implementation of RuleGenerator
type MockRuleGenerator struct {
	mock.Mock
}

func (m *MockRuleGenerator) GenerateForRule(ctx context.Context, rule models.ReminderRule, now time.Time) ([]models.ActiveReminder, error) {
	args := m.Called(ctx, rule, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ActiveReminder), args.Error(1)
}
