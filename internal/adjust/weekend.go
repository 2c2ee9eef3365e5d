package adjust

import (
	"time"

	"github.com/OldStager01/smart-pump/pkg/models"
)

const (
	weekendHourAdjustment     = -0.5
	weekendDurationMultiplier = 1.15
)

// Weekend starts the pump 30 minutes earlier and runs it 15% longer on
// Saturdays and Sundays.
func Weekend(date time.Time) models.WeekendAdjustment {
	switch date.Weekday() {
	case time.Saturday, time.Sunday:
		return models.WeekendAdjustment{
			IsWeekend:          true,
			HourAdjustment:     weekendHourAdjustment,
			DurationMultiplier: weekendDurationMultiplier,
			Reason:             "Weekend increased usage",
		}
	default:
		return models.WeekendAdjustment{
			DurationMultiplier: 1.0,
			Reason:             "Regular weekday",
		}
	}
}
