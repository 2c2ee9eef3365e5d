package adjust

import (
	"fmt"
	"strings"
	"time"

	"github.com/OldStager01/smart-pump/pkg/models"
)

const (
	DefaultLookahead = 2

	minStartHour = 0.0
	maxStartHour = 23.99

	weekendPhrase = "Weekend increased usage pattern"
	neutralPhrase = "Standard weekday operation"
)

// ImpactSource supplies accumulated holiday impact for a window of days.
type ImpactSource interface {
	ImpactForWindow(target time.Time, lookahead int) models.HolidayImpact
}

type Composer struct {
	holidays  ImpactSource
	lookahead int
}

// NewComposer builds a composer over holidays. A nil source means no
// holiday contributes.
func NewComposer(holidays ImpactSource) *Composer {
	return &Composer{holidays: holidays, lookahead: DefaultLookahead}
}

// WithLookahead returns a copy that looks days ahead for holidays.
func (c *Composer) WithLookahead(days int) *Composer {
	cp := *c
	cp.lookahead = days
	return &cp
}

func (c *Composer) Lookahead() int {
	return c.lookahead
}

// Compose shifts the start hour by the summed holiday and weekend offsets
// and scales the duration by their product. Only the hour is clamped.
func (c *Composer) Compose(date time.Time, baseHour, baseDuration float64) models.AdjustmentResult {
	impact := models.NeutralImpact()
	if c.holidays != nil {
		impact = c.holidays.ImpactForWindow(date, c.lookahead)
	}
	weekend := Weekend(date)

	hourOffset := impact.HourAdjustment + weekend.HourAdjustment
	multiplier := impact.DurationMultiplier * weekend.DurationMultiplier

	adjustedHour := clamp(baseHour+hourOffset, minStartHour, maxStartHour)
	adjustedDuration := baseDuration * multiplier

	return models.AdjustmentResult{
		Original:              models.Window{StartHour: baseHour, DurationMinutes: baseDuration},
		Adjusted:              models.Window{StartHour: adjustedHour, DurationMinutes: adjustedDuration},
		HourOffset:            hourOffset,
		DurationMultiplier:    multiplier,
		HourChangeMinutes:     hourOffset * 60,
		DurationChangeMinutes: adjustedDuration - baseDuration,
		Holiday:               impact,
		Weekend:               weekend,
		Explanation:           explain(impact, weekend),
		PreparationNeeded:     impact.PreparationNeeded,
	}
}

func explain(impact models.HolidayImpact, weekend models.WeekendAdjustment) string {
	var phrases []string
	if impact.HasHoliday {
		for _, d := range impact.Details {
			phrases = append(phrases, fmt.Sprintf("%s (%s impact)", d.EventName, d.Tier))
		}
	}
	if weekend.IsWeekend {
		phrases = append(phrases, weekendPhrase)
	}
	if len(phrases) == 0 {
		return neutralPhrase
	}
	return strings.Join(phrases, "; ")
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
