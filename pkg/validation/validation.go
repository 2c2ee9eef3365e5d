package validation

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/OldStager01/smart-pump/pkg/config"
	"github.com/OldStager01/smart-pump/pkg/models"
)

var (
	// ErrInvalidSnapshot indicates a sensor reading failed range checks
	ErrInvalidSnapshot = errors.New("invalid sensor snapshot")

	// ErrInvalidInput indicates a request parameter failed validation
	ErrInvalidInput = errors.New("invalid input")
)

// Range is an inclusive [Min, Max] bound.
type Range struct {
	Min float64
	Max float64
}

func (r Range) contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// SensorRanges holds the plausible bounds for each checked reading.
type SensorRanges struct {
	WaterLevel  Range
	Voltage     Range
	Current     Range
	Temperature Range
}

func DefaultSensorRanges() SensorRanges {
	return SensorRanges{
		WaterLevel:  Range{Min: 0, Max: 100},
		Voltage:     Range{Min: 200, Max: 250},
		Current:     Range{Min: 0, Max: 10},
		Temperature: Range{Min: -10, Max: 50},
	}
}

func RangesFromConfig(cfg config.ValidationConfig) SensorRanges {
	return SensorRanges{
		WaterLevel:  Range{Min: cfg.MinWaterLevel, Max: cfg.MaxWaterLevel},
		Voltage:     Range{Min: cfg.MinVoltage, Max: cfg.MaxVoltage},
		Current:     Range{Min: cfg.MinCurrent, Max: cfg.MaxCurrent},
		Temperature: Range{Min: cfg.MinTemperature, Max: cfg.MaxTemperature},
	}
}

// Validate rejects nil snapshots, NaN or infinite features, and readings
// outside the configured ranges. Every violation is reported.
func (r SensorRanges) Validate(s *models.SensorSnapshot) error {
	if s == nil {
		return fmt.Errorf("%w: no reading", ErrInvalidSnapshot)
	}

	var problems []string

	names := [models.FeatureCount]string{
		"water_level", "flow_rate", "voltage", "current", "temperature",
		"inflow_rate", "outflow_rate", "is_special_day", "has_inflow",
	}
	for i, v := range s.Features() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			problems = append(problems, names[i]+" is not a number")
		}
	}

	checks := []struct {
		name  string
		value float64
		rng   Range
	}{
		{"water_level", s.WaterLevel, r.WaterLevel},
		{"voltage", s.Voltage, r.Voltage},
		{"current", s.Current, r.Current},
		{"temperature", s.Temperature, r.Temperature},
	}
	for _, c := range checks {
		if math.IsNaN(c.value) {
			continue
		}
		if !c.rng.contains(c.value) {
			problems = append(problems, fmt.Sprintf("%s %.2f outside [%g, %g]", c.name, c.value, c.rng.Min, c.rng.Max))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidSnapshot, strings.Join(problems, ", "))
	}
	return nil
}

// SanitizeString removes control characters and trims whitespace
func SanitizeString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")

	var builder strings.Builder
	for _, r := range input {
		if !unicode.IsControl(r) {
			builder.WriteRune(r)
		}
	}

	return builder.String()
}

// ValidateLimit clamps a list limit to [1, max], using def when unset.
func ValidateLimit(limit, def, max int) (int, error) {
	if limit == 0 {
		return def, nil
	}
	if limit < 0 {
		return 0, fmt.Errorf("%w: limit must be positive", ErrInvalidInput)
	}
	if limit > max {
		return max, nil
	}
	return limit, nil
}

// ValidateLookahead checks a holiday lookahead against the engine cap.
func ValidateLookahead(days, max int) error {
	if days < 0 || days > max {
		return fmt.Errorf("%w: lookahead must be between 0 and %d", ErrInvalidInput, max)
	}
	return nil
}
