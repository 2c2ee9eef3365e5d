package holiday

import (
	"sort"
	"time"

	"github.com/OldStager01/smart-pump/internal/logger"
	"github.com/OldStager01/smart-pump/pkg/models"
)

const (
	DefaultMaxLookahead = 3
	preparationWeight   = 0.6
)

type Config struct {
	MaxLookahead int
}

type Engine struct {
	config Config
	byDate map[string][]models.HolidayRecord
	all    []models.HolidayRecord
}

// NewEngine indexes holidays by calendar date. With no holidays every
// query returns the neutral impact.
func NewEngine(holidays []models.HolidayRecord, cfg Config) *Engine {
	if cfg.MaxLookahead <= 0 || cfg.MaxLookahead > DefaultMaxLookahead {
		cfg.MaxLookahead = DefaultMaxLookahead
	}

	e := &Engine{
		config: cfg,
		byDate: make(map[string][]models.HolidayRecord),
		all:    make([]models.HolidayRecord, len(holidays)),
	}
	copy(e.all, holidays)
	sort.SliceStable(e.all, func(i, j int) bool {
		return e.all[i].Date.Before(e.all[j].Date)
	})

	for _, h := range holidays {
		key := models.DateKey(h.Date)
		e.byDate[key] = append(e.byDate[key], h)
	}

	if len(holidays) == 0 {
		logger.WithComponent("holiday").Warn("No holiday data loaded, holiday adjustments disabled")
	}

	return e
}

func (e *Engine) MaxLookahead() int {
	if e == nil {
		return DefaultMaxLookahead
	}
	return e.config.MaxLookahead
}

func (e *Engine) HasData() bool {
	return e != nil && len(e.all) > 0
}

// On returns the holidays falling on date's calendar day.
func (e *Engine) On(date time.Time) []models.HolidayRecord {
	if e == nil {
		return nil
	}
	return e.byDate[models.DateKey(date)]
}

// ImpactForWindow accumulates every holiday from target through
// target+lookahead days. Hour offsets are summed after proximity decay and
// duration multipliers compose as 1 + (m-1)*proximity.
func (e *Engine) ImpactForWindow(target time.Time, lookahead int) models.HolidayImpact {
	impact := models.NeutralImpact()
	if !e.HasData() {
		return impact
	}

	if lookahead < 0 {
		lookahead = 0
	}
	if lookahead > e.config.MaxLookahead {
		lookahead = e.config.MaxLookahead
	}

	var (
		maxWeight  float64
		hourTotal  float64
		multiplier = 1.0
	)

	for i := 0; i <= lookahead; i++ {
		for _, h := range e.On(target.AddDate(0, 0, i)) {
			a := Assess(h, i)
			impact.Details = append(impact.Details, a)

			if a.Weight > maxWeight {
				maxWeight = a.Weight
				impact.ImpactLevel = a.Tier
			}

			hourTotal += a.HourAdjustment * a.Proximity
			multiplier *= 1 + (a.DurationMultiplier-1)*a.Proximity
		}
	}

	if len(impact.Details) == 0 {
		return impact
	}

	impact.HasHoliday = true
	impact.HourAdjustment = hourTotal
	impact.DurationMultiplier = multiplier
	impact.PreparationNeeded = maxWeight >= preparationWeight
	return impact
}

// Upcoming lists holidays in [from, from+days) ordered by date.
func (e *Engine) Upcoming(from time.Time, days int) []models.HolidayRecord {
	if !e.HasData() || days <= 0 {
		return nil
	}
	start := models.DateOnly(from)
	end := start.AddDate(0, 0, days)

	var out []models.HolidayRecord
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		out = append(out, e.On(d)...)
	}
	return out
}
