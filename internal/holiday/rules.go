package holiday

import (
	"strings"

	"github.com/OldStager01/smart-pump/pkg/models"
)

// Rule describes one impact tier.
type Rule struct {
	Tier               models.ImpactTier
	Keywords           []string
	HourAdjustment     float64
	DurationMultiplier float64
	Weight             float64
	Description        string
}

// RuleTable is evaluated top-down; the first tier with a matching keyword wins.
// The last rule is the default for events that match nothing.
var RuleTable = []Rule{
	{
		Tier:               models.TierHigh,
		Keywords:           []string{"Holi", "Diwali", "Eid", "Christmas", "Dussehra", "Ganesh Chaturthi", "Durga", "Navratri"},
		HourAdjustment:     -1.5,
		DurationMultiplier: 1.4,
		Weight:             1.0,
		Description:        "Major festivals with high water usage",
	},
	{
		Tier:               models.TierMedium,
		Keywords:           []string{"Independence Day", "Republic Day", "Gandhi Jayanti", "New Year", "Valentine", "Diwas"},
		HourAdjustment:     -0.5,
		DurationMultiplier: 1.2,
		Weight:             0.6,
		Description:        "National holidays and celebrations",
	},
	{
		Tier:               models.TierLow,
		Keywords:           []string{"Guru", "Jayanti", "Purnima", "Ekadashi", "Ashtami", "Navami"},
		HourAdjustment:     -0.25,
		DurationMultiplier: 1.1,
		Weight:             0.3,
		Description:        "Religious observances with moderate impact",
	},
}

// Classify returns the rule for an event name using case-insensitive
// substring matching. "Holika Dahan" is high because "holi" matches first.
func Classify(event string) Rule {
	name := strings.ToLower(event)
	for _, rule := range RuleTable {
		for _, kw := range rule.Keywords {
			if strings.Contains(name, strings.ToLower(kw)) {
				return rule
			}
		}
	}
	return RuleTable[len(RuleTable)-1]
}

// ProximityFactor decays an impact linearly with distance from the target day.
// It is 1.0 on the day itself and 0.1 three days out. Beyond three days it
// goes negative and inverts the adjustment, which is why the engine caps
// its lookahead at MaxLookahead.
func ProximityFactor(daysAhead int) float64 {
	return 1.0 - 0.3*float64(daysAhead)
}

// Assess classifies one holiday occurrence daysAhead days after the target.
func Assess(h models.HolidayRecord, daysAhead int) models.ImpactAssessment {
	rule := Classify(h.Event)
	return models.ImpactAssessment{
		EventName:          h.Event,
		EventType:          h.Type,
		Tier:               rule.Tier,
		Weight:             rule.Weight,
		HourAdjustment:     rule.HourAdjustment,
		DurationMultiplier: rule.DurationMultiplier,
		DaysAhead:          daysAhead,
		Proximity:          ProximityFactor(daysAhead),
		Description:        rule.Description,
	}
}
