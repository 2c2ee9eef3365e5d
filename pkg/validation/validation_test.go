package validation_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/OldStager01/smart-pump/pkg/models"
	"github.com/OldStager01/smart-pump/pkg/validation"
)

func goodSnapshot() *models.SensorSnapshot {
	return &models.SensorSnapshot{
		WaterLevel:  45,
		FlowRate:    5,
		Voltage:     230,
		Current:     4,
		Temperature: 28,
		InflowRate:  3,
		OutflowRate: 2,
	}
}

func TestSensorRanges_Validate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(s *models.SensorSnapshot)
		nilInput  bool
		expectErr bool
		contains  string
	}{
		{name: "in range", modify: func(s *models.SensorSnapshot) {}},
		{name: "boundary values accepted", modify: func(s *models.SensorSnapshot) {
			s.WaterLevel = 100
			s.Voltage = 200
			s.Current = 10
			s.Temperature = -10
		}},
		{name: "nil snapshot", nilInput: true, expectErr: true, contains: "no reading"},
		{name: "low voltage", modify: func(s *models.SensorSnapshot) { s.Voltage = 180 }, expectErr: true, contains: "voltage"},
		{name: "hot tank", modify: func(s *models.SensorSnapshot) { s.Temperature = 55 }, expectErr: true, contains: "temperature"},
		{name: "overflowing level", modify: func(s *models.SensorSnapshot) { s.WaterLevel = 101 }, expectErr: true, contains: "water_level"},
		{name: "NaN flow rate", modify: func(s *models.SensorSnapshot) { s.FlowRate = math.NaN() }, expectErr: true, contains: "flow_rate is not a number"},
		{name: "NaN current", modify: func(s *models.SensorSnapshot) { s.Current = math.NaN() }, expectErr: true, contains: "current is not a number"},
	}

	ranges := validation.DefaultSensorRanges()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var snap *models.SensorSnapshot
			if !tt.nilInput {
				snap = goodSnapshot()
				tt.modify(snap)
			}

			err := ranges.Validate(snap)

			if tt.expectErr {
				assert.ErrorIs(t, err, validation.ErrInvalidSnapshot)
				assert.Contains(t, err.Error(), tt.contains)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateLimit(t *testing.T) {
	limit, err := validation.ValidateLimit(0, 20, 100)
	assert.NoError(t, err)
	assert.Equal(t, 20, limit)

	limit, err = validation.ValidateLimit(500, 20, 100)
	assert.NoError(t, err)
	assert.Equal(t, 100, limit)

	_, err = validation.ValidateLimit(-1, 20, 100)
	assert.ErrorIs(t, err, validation.ErrInvalidInput)
}

func TestValidateLookahead(t *testing.T) {
	assert.NoError(t, validation.ValidateLookahead(3, 3))
	assert.ErrorIs(t, validation.ValidateLookahead(4, 3), validation.ErrInvalidInput)
	assert.ErrorIs(t, validation.ValidateLookahead(-1, 3), validation.ErrInvalidInput)
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "2024-03-25", validation.SanitizeString("  2024-03-25\x00\n"))
}
