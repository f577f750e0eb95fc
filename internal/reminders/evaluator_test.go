package reminders

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-reminders/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func serviced(mileage int, on time.Time) Baseline {
	return Baseline{Mileage: mileage, Date: on, HasDate: true, Serviced: true}
}

func TestEvaluateMileageInterval(t *testing.T) {
	now := date(2025, 6, 1).Add(15 * time.Hour)
	trigger := models.MileageInterval{Miles: 5000}

	t.Run("overdue", func(t *testing.T) {
		p := EvaluateMileageInterval(trigger, Input{
			Label:    "Oil Change",
			Vehicle:  models.Vehicle{CurrentMileage: 16000},
			Baseline: serviced(10000, date(2025, 1, 1)),
			Now:      now,
		})
		require.NotNil(t, p)
		assert.True(t, p.Overdue)
		assert.Equal(t, "Oil Change Overdue", p.Title)
		assert.Contains(t, p.Description, "1000 miles overdue")
		require.NotNil(t, p.TargetMileage)
		assert.Equal(t, 15000, *p.TargetMileage)
		assert.Nil(t, p.DueDate)
	})

	t.Run("exactly at target is overdue", func(t *testing.T) {
		p := EvaluateMileageInterval(trigger, Input{
			Vehicle:  models.Vehicle{CurrentMileage: 15000},
			Baseline: serviced(10000, date(2025, 1, 1)),
			Now:      now,
		})
		require.NotNil(t, p)
		assert.True(t, p.Overdue)
	})

	t.Run("due soon within lead time", func(t *testing.T) {
		p := EvaluateMileageInterval(trigger, Input{
			Label:        "Oil Change",
			LeadTimeDays: 7,
			Vehicle:      models.Vehicle{CurrentMileage: 14910},
			Baseline:     serviced(10000, date(2025, 1, 1)),
			Now:          now,
		})
		require.NotNil(t, p)
		assert.False(t, p.Overdue)
		assert.Equal(t, "Oil Change Due Soon", p.Title)
		require.NotNil(t, p.TargetMileage)
		assert.Equal(t, 15000, *p.TargetMileage)
		require.NotNil(t, p.DueDate)
		assert.Equal(t, date(2025, 6, 4), *p.DueDate, "ceil(90/30)=3 days from today")
	})

	t.Run("too far away", func(t *testing.T) {
		p := EvaluateMileageInterval(trigger, Input{
			LeadTimeDays: 7,
			Vehicle:      models.Vehicle{CurrentMileage: 14000},
			Baseline:     serviced(10000, date(2025, 1, 1)),
			Now:          now,
		})
		assert.Nil(t, p, "1000 miles remaining is 34 days out")
	})

	t.Run("partial day rounds up", func(t *testing.T) {
		p := EvaluateMileageInterval(trigger, Input{
			LeadTimeDays: 3,
			Vehicle:      models.Vehicle{CurrentMileage: 14909},
			Baseline:     serviced(10000, date(2025, 1, 1)),
			Now:          now,
		})
		assert.Nil(t, p, "91 miles needs 4 days")
	})

	t.Run("never serviced measures from zero", func(t *testing.T) {
		p := EvaluateMileageInterval(trigger, Input{
			Vehicle:  models.Vehicle{CurrentMileage: 5200},
			Baseline: BaselineFor(nil, models.Vehicle{}),
			Now:      now,
		})
		require.NotNil(t, p)
		assert.Equal(t, 5000, *p.TargetMileage)
	})
}

func TestEvaluateTimeInterval(t *testing.T) {
	friday := time.Friday

	t.Run("weekday bias moves due date forward", func(t *testing.T) {
		p := EvaluateTimeInterval(models.TimeInterval{Days: 90, DayOfWeek: &friday}, Input{
			Baseline: serviced(0, date(2025, 1, 1)),
			Now:      date(2025, 4, 10),
		})
		require.NotNil(t, p)
		require.NotNil(t, p.DueDate)
		assert.Equal(t, time.Tuesday, date(2025, 4, 1).Weekday())
		assert.Equal(t, date(2025, 4, 4), *p.DueDate)
		assert.True(t, p.Overdue)
	})

	t.Run("weekday already matching stays", func(t *testing.T) {
		tuesday := time.Tuesday
		p := EvaluateTimeInterval(models.TimeInterval{Days: 90, DayOfWeek: &tuesday}, Input{
			Baseline: serviced(0, date(2025, 1, 1)),
			Now:      date(2025, 4, 1),
		})
		require.NotNil(t, p)
		assert.Equal(t, date(2025, 4, 1), *p.DueDate)
		assert.False(t, p.Overdue, "due today is due soon, not overdue")
		assert.Contains(t, p.Title, "Due Soon")
	})

	t.Run("inside lead time", func(t *testing.T) {
		p := EvaluateTimeInterval(models.TimeInterval{Days: 90}, Input{
			LeadTimeDays: 7,
			Baseline:     serviced(0, date(2025, 1, 1)),
			Now:          date(2025, 3, 25),
		})
		require.NotNil(t, p)
		assert.False(t, p.Overdue)
		assert.Equal(t, date(2025, 4, 1), *p.DueDate)
	})

	t.Run("outside lead time", func(t *testing.T) {
		p := EvaluateTimeInterval(models.TimeInterval{Days: 90}, Input{
			LeadTimeDays: 7,
			Baseline:     serviced(0, date(2025, 1, 1)),
			Now:          date(2025, 3, 24),
		})
		assert.Nil(t, p)
	})

	t.Run("no baseline date", func(t *testing.T) {
		p := EvaluateTimeInterval(models.TimeInterval{Days: 1}, Input{
			Baseline: Baseline{},
			Now:      date(2030, 1, 1),
		})
		assert.Nil(t, p)
	})
}

func TestEvaluateMileageSinceLast(t *testing.T) {
	trigger := models.MileageSinceLast{Miles: 3000}
	base := serviced(20000, date(2025, 1, 1))
	now := date(2025, 6, 1)

	p := EvaluateMileageSinceLast(trigger, Input{Label: "Tires", Vehicle: models.Vehicle{CurrentMileage: 23000}, Baseline: base, Now: now})
	require.NotNil(t, p)
	assert.Equal(t, "Tires Threshold Reached", p.Title)
	assert.Nil(t, p.DueDate)

	p = EvaluateMileageSinceLast(trigger, Input{Vehicle: models.Vehicle{CurrentMileage: 22999}, Baseline: base, Now: now})
	assert.Nil(t, p)
}

func TestEvaluateTimeSinceLast(t *testing.T) {
	trigger := models.TimeSinceLast{Days: 90}
	now := date(2025, 6, 1).Add(23 * time.Hour)

	p := EvaluateTimeSinceLast(trigger, Input{Baseline: serviced(0, date(2025, 6, 1).AddDate(0, 0, -100)), Now: now})
	require.NotNil(t, p)
	assert.Nil(t, p.DueDate)
	assert.Contains(t, p.Description, "100 days ago")

	p = EvaluateTimeSinceLast(trigger, Input{Baseline: serviced(0, date(2025, 6, 1).AddDate(0, 0, -90)), Now: now})
	assert.NotNil(t, p, "exactly at the threshold fires")

	p = EvaluateTimeSinceLast(trigger, Input{Baseline: serviced(0, date(2025, 6, 1).AddDate(0, 0, -89)), Now: now})
	assert.Nil(t, p)
}

func TestEvaluateSinceLast_NeverServicedWording(t *testing.T) {
	vehicle := models.Vehicle{CurrentMileage: 4000, CreatedAt: date(2025, 1, 1)}
	now := date(2025, 6, 1)
	base := BaselineFor(nil, vehicle)

	p := EvaluateMileageSinceLast(models.MileageSinceLast{Miles: 3000}, Input{Vehicle: vehicle, Baseline: base, Now: now})
	require.NotNil(t, p)
	assert.Contains(t, p.Description, "no service on record")
	assert.Contains(t, p.Description, "4000 miles")
	assert.NotContains(t, p.Description, "since last service")

	p = EvaluateTimeSinceLast(models.TimeSinceLast{Days: 90}, Input{Vehicle: vehicle, Baseline: base, Now: now})
	require.NotNil(t, p)
	assert.Contains(t, p.Description, "no service on record")
	assert.Contains(t, p.Description, "151 days ago")
	assert.NotContains(t, p.Description, "last serviced")

	p = EvaluateTimeSinceLast(models.TimeSinceLast{Days: 90}, Input{Vehicle: vehicle, Baseline: serviced(0, date(2025, 1, 1)), Now: now})
	require.NotNil(t, p)
	assert.Contains(t, p.Description, "was last serviced 151 days ago")
}

func TestBaselineFor(t *testing.T) {
	created := time.Date(2025, 2, 3, 17, 45, 0, 0, time.UTC)

	b := BaselineFor(&models.MaintenanceRecord{Mileage: 1200, ServiceDate: created}, models.Vehicle{})
	assert.Equal(t, Baseline{Mileage: 1200, Date: date(2025, 2, 3), HasDate: true, Serviced: true}, b)

	b = BaselineFor(nil, models.Vehicle{CreatedAt: created})
	assert.Equal(t, Baseline{Date: date(2025, 2, 3), HasDate: true}, b)

	b = BaselineFor(nil, models.Vehicle{})
	assert.False(t, b.HasDate)
	assert.False(t, b.Serviced)
}

func TestEvaluate_Dispatch(t *testing.T) {
	in := Input{
		Vehicle:  models.Vehicle{CurrentMileage: 16000},
		Baseline: serviced(10000, date(2025, 1, 1)),
		Now:      date(2025, 6, 1),
	}
	assert.NotNil(t, Evaluate(models.MileageInterval{Miles: 5000}, in))
	assert.NotNil(t, Evaluate(models.MileageSinceLast{Miles: 5000}, in))
	assert.NotNil(t, Evaluate(models.TimeSinceLast{Days: 100}, in))
	assert.NotNil(t, Evaluate(models.TimeInterval{Days: 100}, in))
	assert.Nil(t, Evaluate(nil, in))
}
