package adjust_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/smart-pump/internal/adjust"
	"github.com/OldStager01/smart-pump/internal/holiday"
	"github.com/OldStager01/smart-pump/pkg/models"
)

func day(m time.Month, d int) time.Time {
	return time.Date(2024, m, d, 0, 0, 0, 0, time.Local)
}

type stubImpact struct {
	impact        models.HolidayImpact
	lastLookahead int
}

func (s *stubImpact) ImpactForWindow(_ time.Time, lookahead int) models.HolidayImpact {
	s.lastLookahead = lookahead
	return s.impact
}

func TestWeekend(t *testing.T) {
	tests := []struct {
		name       string
		date       time.Time
		isWeekend  bool
		hour       float64
		multiplier float64
		reason     string
	}{
		{"saturday", day(time.March, 23), true, -0.5, 1.15, "Weekend increased usage"},
		{"sunday", day(time.March, 24), true, -0.5, 1.15, "Weekend increased usage"},
		{"monday", day(time.March, 25), false, 0.0, 1.0, "Regular weekday"},
		{"friday", day(time.March, 22), false, 0.0, 1.0, "Regular weekday"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := adjust.Weekend(tt.date)
			assert.Equal(t, tt.isWeekend, w.IsWeekend)
			assert.Equal(t, tt.hour, w.HourAdjustment)
			assert.Equal(t, tt.multiplier, w.DurationMultiplier)
			assert.Equal(t, tt.reason, w.Reason)
		})
	}
}

func TestCompose_SaturdayWithoutHoliday(t *testing.T) {
	composer := adjust.NewComposer(holiday.NewEngine(nil, holiday.Config{}))

	result := composer.Compose(day(time.March, 23), 7.0, 90)

	assert.InDelta(t, 6.5, result.Adjusted.StartHour, 1e-9)
	assert.InDelta(t, 103.5, result.Adjusted.DurationMinutes, 1e-9)
	assert.Equal(t, "Weekend increased usage pattern", result.Explanation)
	assert.InDelta(t, -30.0, result.HourChangeMinutes, 1e-9)
	assert.InDelta(t, 13.5, result.DurationChangeMinutes, 1e-9)
	assert.False(t, result.PreparationNeeded)
	assert.Equal(t, models.Window{StartHour: 7.0, DurationMinutes: 90}, result.Original)
}

func TestCompose_HighTierWeekdayHoliday(t *testing.T) {
	engine := holiday.NewEngine([]models.HolidayRecord{
		{Date: day(time.March, 25), Event: "Holi", Type: "Hindu"},
	}, holiday.Config{})
	composer := adjust.NewComposer(engine)

	result := composer.Compose(day(time.March, 25), 7.0, 90)

	assert.InDelta(t, 5.5, result.Adjusted.StartHour, 1e-9)
	assert.InDelta(t, 126.0, result.Adjusted.DurationMinutes, 1e-9)
	assert.InDelta(t, -1.5, result.HourOffset, 1e-9)
	assert.InDelta(t, 1.4, result.DurationMultiplier, 1e-9)
	assert.Equal(t, "Holi (high impact)", result.Explanation)
	assert.True(t, result.PreparationNeeded)
}

func TestCompose_HolidayOnWeekend(t *testing.T) {
	engine := holiday.NewEngine([]models.HolidayRecord{
		{Date: day(time.March, 24), Event: "Palm Sunday", Type: "Christian"},
		{Date: day(time.March, 25), Event: "Holi", Type: "Hindu"},
	}, holiday.Config{})
	composer := adjust.NewComposer(engine)

	result := composer.Compose(day(time.March, 24), 7.0, 90)

	assert.Equal(t, "Palm Sunday (low impact); Holi (high impact); Weekend increased usage pattern", result.Explanation)
	assert.InDelta(t, 7.0-0.25-1.5*0.7-0.5, result.Adjusted.StartHour, 1e-9)
	assert.InDelta(t, 1.1*(1+0.4*0.7)*1.15, result.DurationMultiplier, 1e-9)
}

func TestCompose_StandardWeekday(t *testing.T) {
	composer := adjust.NewComposer(nil)

	result := composer.Compose(day(time.March, 20), 7.25, 80)

	assert.Equal(t, "Standard weekday operation", result.Explanation)
	assert.Equal(t, result.Original, result.Adjusted)
	assert.Equal(t, 1.0, result.DurationMultiplier)
}

func TestCompose_ClampsStartHour(t *testing.T) {
	tests := []struct {
		name     string
		date     time.Time
		base     float64
		offset   float64
		expected float64
	}{
		{"early hour pushed below midnight", day(time.March, 23), 0.2, -1.5, 0.0},
		{"late hour pushed past midnight", day(time.March, 20), 23.9, 2.0, 23.99},
		{"large negative base", day(time.March, 20), -50, 0, 0.0},
		{"large positive base", day(time.March, 20), 1e6, 0, 23.99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubImpact{impact: models.HolidayImpact{
				HasHoliday:         tt.offset != 0,
				HourAdjustment:     tt.offset,
				DurationMultiplier: 1.0,
			}}
			result := adjust.NewComposer(stub).Compose(tt.date, tt.base, 60)

			assert.Equal(t, tt.expected, result.Adjusted.StartHour)
			assert.GreaterOrEqual(t, result.Adjusted.StartHour, 0.0)
			assert.LessOrEqual(t, result.Adjusted.StartHour, 23.99)
		})
	}
}

func TestCompose_DurationIsNotClamped(t *testing.T) {
	stub := &stubImpact{impact: models.HolidayImpact{HasHoliday: true, DurationMultiplier: 10}}

	result := adjust.NewComposer(stub).Compose(day(time.March, 20), 7, 600)

	assert.Equal(t, 6000.0, result.Adjusted.DurationMinutes)
}

func TestComposer_Lookahead(t *testing.T) {
	stub := &stubImpact{impact: models.NeutralImpact()}
	composer := adjust.NewComposer(stub)

	composer.Compose(day(time.March, 20), 7, 90)
	assert.Equal(t, adjust.DefaultLookahead, stub.lastLookahead)

	wide := composer.WithLookahead(3)
	wide.Compose(day(time.March, 20), 7, 90)
	require.Equal(t, 3, stub.lastLookahead)
	assert.Equal(t, adjust.DefaultLookahead, composer.Lookahead())
}
