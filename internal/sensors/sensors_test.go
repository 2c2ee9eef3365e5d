package sensors_test

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/smart-pump/internal/pattern"
	"github.com/OldStager01/smart-pump/internal/resilience"
	"github.com/OldStager01/smart-pump/internal/sensors"
	"github.com/OldStager01/smart-pump/pkg/models"
	"github.com/OldStager01/smart-pump/pkg/validation"
)

// Saturday 2024-03-23, 07:10
var fixedNow = time.Date(2024, time.March, 23, 7, 10, 0, 0, time.Local)

func clock() time.Time { return fixedNow }

func TestSyntheticSource_FromHistory(t *testing.T) {
	history := pattern.NewStore([]models.HistoricalRecord{
		{Date: time.Date(2023, time.March, 4, 0, 0, 0, 0, time.Local), Hour: 7, TopTankLevel: 40, Voltage: 230, Current: 4, Temperature: 26},
		{Date: time.Date(2023, time.March, 11, 0, 0, 0, 0, time.Local), Hour: 7, TopTankLevel: 50, Voltage: 232, Current: 5, Temperature: 28},
		{Date: time.Date(2023, time.March, 11, 0, 0, 0, 0, time.Local), Hour: 15, TopTankLevel: 99, Voltage: 249, Current: 9, Temperature: 45},
	})
	src := sensors.NewSyntheticSource(sensors.SyntheticConfig{History: history, Seed: 42, Now: clock})

	snap, err := src.Read(context.Background())
	require.NoError(t, err)

	assert.InDelta(t, 45, snap.WaterLevel, 5)
	assert.InDelta(t, 231, snap.Voltage, 2)
	assert.InDelta(t, 4.5, snap.Current, 0.1)
	assert.InDelta(t, 27, snap.Temperature, 1)
	assert.True(t, snap.IsSpecialDay)
	assert.Equal(t, fixedNow, snap.ReadAt)
}

func TestSyntheticSource_FallbackRangesAreValid(t *testing.T) {
	src := sensors.NewSyntheticSource(sensors.SyntheticConfig{Seed: 7, Now: clock})
	ranges := validation.DefaultSensorRanges()

	for i := 0; i < 200; i++ {
		snap, err := src.Read(context.Background())
		require.NoError(t, err)
		assert.NoError(t, ranges.Validate(snap))
	}
}

func TestSyntheticSource_FailureModes(t *testing.T) {
	src := sensors.NewSyntheticSource(sensors.SyntheticConfig{Seed: 1, Now: clock})

	src.SetShouldFail(true, nil)
	_, err := src.Read(context.Background())
	assert.ErrorIs(t, err, sensors.ErrReadFailed)
	assert.Error(t, src.HealthCheck(context.Background()))

	src.SetShouldFail(false, nil)
	src.SetCorrupt(true)
	snap, err := src.Read(context.Background())
	require.NoError(t, err)
	assert.True(t, math.IsNaN(snap.Voltage))
	assert.ErrorIs(t, validation.DefaultSensorRanges().Validate(snap), validation.ErrInvalidSnapshot)
}

func TestHTTPSource_Read(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"water_level": 42.5, "flow_rate": 180, "voltage": 231, "current": 4.1,
			"temperature": 29, "inflow_rate": 1.2, "outflow_rate": 55, "has_inflow": true,
			"timestamp": "2024-03-23T07:10:00Z"}`))
	}))
	defer server.Close()

	src := sensors.NewHTTPSource(sensors.HTTPSourceConfig{Endpoint: server.URL})
	snap, err := src.Read(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 42.5, snap.WaterLevel)
	assert.Equal(t, 231.0, snap.Voltage)
	assert.True(t, snap.HasInflow)
	assert.False(t, snap.IsSpecialDay)
	assert.Equal(t, 2024, snap.ReadAt.Year())
}

func TestHTTPSource_MissingFieldReadsAsNaN(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"water_level": 42.5, "voltage": 231, "current": 4.1}`))
	}))
	defer server.Close()

	snap, err := sensors.NewHTTPSource(sensors.HTTPSourceConfig{Endpoint: server.URL}).Read(context.Background())

	require.NoError(t, err)
	assert.True(t, math.IsNaN(snap.Temperature))
	assert.Error(t, validation.DefaultSensorRanges().Validate(snap))
}

func TestHTTPSource_Errors(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		expected error
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}, sensors.ErrReadFailed},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"water_level": "high"`))
		}, sensors.ErrInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			_, err := sensors.NewHTTPSource(sensors.HTTPSourceConfig{Endpoint: server.URL}).Read(context.Background())
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

type flakySource struct {
	failures int32
	calls    atomic.Int32
}

func (f *flakySource) Read(ctx context.Context) (*models.SensorSnapshot, error) {
	n := f.calls.Add(1)
	if n <= f.failures {
		return nil, errors.New("bus timeout")
	}
	return &models.SensorSnapshot{Voltage: 230}, nil
}
func (f *flakySource) HealthCheck(context.Context) error { return nil }
func (f *flakySource) Close() error                      { return nil }

func TestResilientSource_RetriesThenSucceeds(t *testing.T) {
	inner := &flakySource{failures: 2}
	src := sensors.NewResilientSource(sensors.ResilientSourceConfig{
		Source:        inner,
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
	})

	snap, err := src.Read(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 230.0, snap.Voltage)
	assert.Equal(t, int32(3), inner.calls.Load())
	assert.Equal(t, resilience.StateClosed, src.CircuitState())
}

func TestResilientSource_OpensCircuit(t *testing.T) {
	inner := &flakySource{failures: 100}
	src := sensors.NewResilientSource(sensors.ResilientSourceConfig{
		Source:        inner,
		MaxFailures:   2,
		Timeout:       time.Hour,
		RetryAttempts: 1,
		RetryDelay:    time.Millisecond,
	})

	for i := 0; i < 2; i++ {
		_, err := src.Read(context.Background())
		assert.Error(t, err)
	}
	_, err := src.Read(context.Background())

	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, int32(2), inner.calls.Load())

	src.ResetCircuit()
	assert.Equal(t, resilience.StateClosed, src.CircuitState())
}
