package models

import "time"

// HolidayRecord is one calendar event from the holiday table.
type HolidayRecord struct {
	Date  time.Time `json:"date"`
	Event string    `json:"event"`
	Type  string    `json:"type"`
}

type ImpactTier string

const (
	TierNone   ImpactTier = "none"
	TierHigh   ImpactTier = "high"
	TierMedium ImpactTier = "medium"
	TierLow    ImpactTier = "low"
)

// ImpactAssessment is the classified impact of one holiday occurrence.
// HourAdjustment and DurationMultiplier are the undecayed tier values;
// Proximity is the decay factor applied when accumulating.
type ImpactAssessment struct {
	EventName          string     `json:"event_name"`
	EventType          string     `json:"event_type"`
	Tier               ImpactTier `json:"tier"`
	Weight             float64    `json:"weight"`
	HourAdjustment     float64    `json:"hour_adjustment"`
	DurationMultiplier float64    `json:"duration_multiplier"`
	DaysAhead          int        `json:"days_ahead"`
	Proximity          float64    `json:"proximity"`
	Description        string     `json:"description"`
}

// HolidayImpact is the accumulated impact over a lookahead window.
type HolidayImpact struct {
	HasHoliday         bool               `json:"has_holiday"`
	Details            []ImpactAssessment `json:"details"`
	HourAdjustment     float64            `json:"hour_adjustment"`
	DurationMultiplier float64            `json:"duration_multiplier"`
	ImpactLevel        ImpactTier         `json:"impact_level"`
	PreparationNeeded  bool               `json:"preparation_needed"`
}

// NeutralImpact is the impact of a window without holidays.
func NeutralImpact() HolidayImpact {
	return HolidayImpact{
		Details:            []ImpactAssessment{},
		DurationMultiplier: 1.0,
		ImpactLevel:        TierNone,
	}
}

type WeekendAdjustment struct {
	IsWeekend          bool    `json:"is_weekend"`
	HourAdjustment     float64 `json:"hour_adjustment"`
	DurationMultiplier float64 `json:"duration_multiplier"`
	Reason             string  `json:"reason"`
}
