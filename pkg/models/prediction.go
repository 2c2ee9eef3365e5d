package models

import "time"

type PredictionMethod string

const (
	MethodModel      PredictionMethod = "model"
	MethodHistorical PredictionMethod = "historical"
	MethodFallback   PredictionMethod = "fallback"
)

// PredictionSource names the fallback step that produced the base window.
type PredictionSource string

const (
	SourceModel             PredictionSource = "model"
	SourceSimilarConditions PredictionSource = "similar_conditions"
	SourceGlobalAverage     PredictionSource = "global_average"
	SourceStaticDefault     PredictionSource = "static_default"
)

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Window is a pump run: decimal start hour and duration in minutes.
type Window struct {
	StartHour       float64 `json:"start_hour"`
	DurationMinutes float64 `json:"duration_minutes"`
}

// RunTime returns the duration as a time.Duration.
func (w Window) RunTime() time.Duration {
	return time.Duration(w.DurationMinutes * float64(time.Minute))
}

// AdjustmentResult is a base window after holiday and weekend composition.
type AdjustmentResult struct {
	Original              Window            `json:"original"`
	Adjusted              Window            `json:"adjusted"`
	HourOffset            float64           `json:"hour_offset"`
	DurationMultiplier    float64           `json:"duration_multiplier"`
	HourChangeMinutes     float64           `json:"hour_change_minutes"`
	DurationChangeMinutes float64           `json:"duration_change_minutes"`
	Holiday               HolidayImpact     `json:"holiday"`
	Weekend               WeekendAdjustment `json:"weekend"`
	Explanation           string            `json:"explanation"`
	PreparationNeeded     bool              `json:"preparation_needed"`
}

// PredictionOutcome is the final answer of the prediction chain.
type PredictionOutcome struct {
	TargetDate     time.Time        `json:"target_date"`
	Method         PredictionMethod `json:"method"`
	Source         PredictionSource `json:"source"`
	Confidence     Confidence       `json:"confidence"`
	Base           Window           `json:"base"`
	Final          Window           `json:"final"`
	Adjustment     AdjustmentResult `json:"adjustment"`
	SkippedReasons []string         `json:"skipped_reasons,omitempty"`
}
