package control_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/smart-pump/internal/actuator"
	"github.com/OldStager01/smart-pump/internal/control"
	"github.com/OldStager01/smart-pump/internal/events"
	"github.com/OldStager01/smart-pump/internal/sensors"
	"github.com/OldStager01/smart-pump/pkg/models"
)

type fakeSource struct {
	snap *models.SensorSnapshot
	err  error
}

func (f *fakeSource) Read(context.Context) (*models.SensorSnapshot, error) { return f.snap, f.err }
func (f *fakeSource) HealthCheck(context.Context) error                    { return nil }
func (f *fakeSource) Close() error                                         { return nil }

type fakePredictor struct {
	window  models.Window
	gotSnap []*models.SensorSnapshot
	panics  bool
}

func (f *fakePredictor) Predict(_ context.Context, target time.Time, snap *models.SensorSnapshot) *models.PredictionOutcome {
	if f.panics {
		panic("boom")
	}
	f.gotSnap = append(f.gotSnap, snap)
	return &models.PredictionOutcome{
		TargetDate: models.DateOnly(target),
		Method:     models.MethodHistorical,
		Source:     models.SourceSimilarConditions,
		Confidence: models.ConfidenceMedium,
		Base:       f.window,
		Final:      f.window,
	}
}

type memoryLog struct {
	mu      sync.Mutex
	entries []models.UsageLogEntry
	err     error
}

func (m *memoryLog) Append(_ context.Context, e models.UsageLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *memoryLog) Recent(context.Context, int) ([]models.UsageLogEntry, error) {
	return m.entries, nil
}

func (m *memoryLog) Close() error { return nil }

type recordedSleeps struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (r *recordedSleeps) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.sleeps = append(r.sleeps, d)
	r.mu.Unlock()
	return ctx.Err()
}

func validSnapshot() *models.SensorSnapshot {
	return &models.SensorSnapshot{
		WaterLevel: 60, FlowRate: 12, Voltage: 228, Current: 4.2, Temperature: 27,
	}
}

// Wednesday, so no weekend effects leak into expectations.
func at(hour, minute int) func() time.Time {
	return func() time.Time {
		return time.Date(2024, 3, 13, hour, minute, 0, 0, time.UTC)
	}
}

type harness struct {
	loop   *control.Loop
	pump   *actuator.SimulatedPump
	log    *memoryLog
	sleeps *recordedSleeps
	pred   *fakePredictor
}

func newHarness(t *testing.T, now func() time.Time, window models.Window, mutate func(*control.Config)) *harness {
	t.Helper()
	h := &harness{
		pump:   actuator.NewSimulatedPump(actuator.SimulatedConfig{}),
		log:    &memoryLog{},
		sleeps: &recordedSleeps{},
		pred:   &fakePredictor{window: window},
	}
	cfg := control.Config{
		Tolerance:       0.08,
		PollInterval:    time.Minute,
		RecheckInterval: time.Hour,
		MaxRuntime:      300 * time.Second,
		ErrorBackoff:    30 * time.Second,
		OncePerDay:      true,
		Location:        time.UTC,
		Sensors:         &fakeSource{snap: validSnapshot()},
		Predictor:       h.pred,
		Pump:            h.pump,
		UsageLog:        h.log,
		Now:             now,
		Sleep:           h.sleeps.sleep,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	loop, err := control.New(cfg)
	require.NoError(t, err)
	h.loop = loop
	return h
}

func TestWithinTolerance(t *testing.T) {
	tests := []struct {
		name    string
		current float64
		target  float64
		want    bool
	}{
		{"just before", 6.95, 7.0, true},
		{"exact", 7.0, 7.0, true},
		{"just after", 7.05, 7.0, true},
		{"too late", 7.10, 7.0, false},
		{"too early", 6.90, 7.0, false},
		{"midnight straddle is not handled", 23.98, 0.02, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, control.WithinTolerance(tt.current, tt.target, 0.08))
		})
	}
}

func TestHoursUntil(t *testing.T) {
	assert.InDelta(t, 2.5, control.HoursUntil(4.5, 7.0), 1e-9)
	assert.InDelta(t, 23.9, control.HoursUntil(7.1, 7.0), 1e-9)
	assert.InDelta(t, 0, control.HoursUntil(7.0, 7.0), 1e-9)
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := control.New(control.Config{})
	assert.Error(t, err)

	_, err = control.New(control.Config{Sensors: &fakeSource{}, Predictor: &fakePredictor{}})
	assert.Error(t, err)
}

func TestRunCycle_Activates(t *testing.T) {
	// 06:57 is 6.95 in decimal hours
	h := newHarness(t, at(6, 57), models.Window{StartHour: 7.0, DurationMinutes: 2}, nil)

	result, err := h.loop.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, control.OutcomeActivated, result.Outcome)
	assert.Equal(t, 2*time.Minute, result.Runtime)
	assert.Equal(t, time.Hour, result.Next)
	assert.Equal(t, []time.Duration{2 * time.Minute}, h.sleeps.sleeps)

	history := h.pump.History()
	require.Len(t, history, 2)
	assert.True(t, history[0].On)
	assert.False(t, history[1].On)
	assert.False(t, h.pump.IsOn())

	require.Len(t, h.log.entries, 1)
	entry := h.log.entries[0]
	assert.Equal(t, 7.0, entry.StartHour)
	assert.Equal(t, 2.0, entry.Duration)
	assert.Equal(t, "2024-03-13", models.DateKey(entry.Date))
	assert.Equal(t, 60.0, entry.Snapshot.WaterLevel)

	status := h.loop.Status()
	assert.Equal(t, control.StateIdle, status.State)
	assert.Equal(t, int64(1), status.Cycles)
	require.NotNil(t, status.LastActivation)
}

func TestRunCycle_RuntimeIsCapped(t *testing.T) {
	h := newHarness(t, at(7, 0), models.Window{StartHour: 7.0, DurationMinutes: 126}, nil)

	result, err := h.loop.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 300*time.Second, result.Runtime)
	assert.Equal(t, []time.Duration{300 * time.Second}, h.sleeps.sleeps)
	require.Len(t, h.log.entries, 1)
	assert.Equal(t, 126.0, h.log.entries[0].Duration)
}

func TestRunCycle_Waits(t *testing.T) {
	// 07:06 is 7.10, outside the tolerance
	h := newHarness(t, at(7, 6), models.Window{StartHour: 7.0, DurationMinutes: 90}, nil)

	result, err := h.loop.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, control.OutcomeWaiting, result.Outcome)
	assert.InDelta(t, 23.9, result.HoursUntil, 1e-9)
	assert.Equal(t, time.Minute, result.Next)
	assert.Empty(t, h.pump.History())
	assert.Empty(t, h.log.entries)
	assert.Equal(t, control.StateWaiting, h.loop.Status().State)
}

func TestRunCycle_OncePerDay(t *testing.T) {
	h := newHarness(t, at(7, 0), models.Window{StartHour: 7.0, DurationMinutes: 1}, nil)

	first, err := h.loop.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, control.OutcomeActivated, first.Outcome)

	second, err := h.loop.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, control.OutcomeSkipped, second.Outcome)
	assert.InDelta(t, 24.0, second.HoursUntil, 1e-9)
	assert.Len(t, h.log.entries, 1)
}

func TestRunCycle_OncePerDayDisabled(t *testing.T) {
	h := newHarness(t, at(7, 0), models.Window{StartHour: 7.0, DurationMinutes: 1}, func(c *control.Config) {
		c.OncePerDay = false
	})

	for i := 0; i < 2; i++ {
		result, err := h.loop.RunCycle(context.Background())
		require.NoError(t, err)
		assert.Equal(t, control.OutcomeActivated, result.Outcome)
	}
	assert.Len(t, h.log.entries, 2)
}

func TestRunCycle_SensorFailurePassesNilSnapshot(t *testing.T) {
	h := newHarness(t, at(5, 0), models.Window{StartHour: 7.0, DurationMinutes: 90}, func(c *control.Config) {
		c.Sensors = &fakeSource{err: sensors.ErrReadFailed}
	})

	result, err := h.loop.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, control.OutcomeWaiting, result.Outcome)
	require.Len(t, h.pred.gotSnap, 1)
	assert.Nil(t, h.pred.gotSnap[0])
}

func TestRunCycle_InvalidSnapshotPublishesWarning(t *testing.T) {
	bus := events.NewEventBus(10)
	ch := bus.Subscribe(models.EventTypeSensorInvalid)

	bad := validSnapshot()
	bad.Voltage = math.NaN()
	h := newHarness(t, at(5, 0), models.Window{StartHour: 7.0, DurationMinutes: 90}, func(c *control.Config) {
		c.Sensors = &fakeSource{snap: bad}
		c.Publisher = events.NewPublisher(bus)
	})

	_, err := h.loop.RunCycle(context.Background())
	require.NoError(t, err)

	select {
	case ev := <-ch:
		assert.Equal(t, models.SeverityWarning, ev.Severity)
	default:
		t.Fatal("expected sensor_invalid event")
	}
	assert.Same(t, bad, h.pred.gotSnap[0])
}

type recordingPump struct {
	calls []bool
	fail  map[bool]error
	on    bool
}

func (p *recordingPump) SetOutput(_ context.Context, on bool) error {
	p.calls = append(p.calls, on)
	if err := p.fail[on]; err != nil {
		return err
	}
	p.on = on
	return nil
}

func (p *recordingPump) IsOn() bool   { return p.on }
func (p *recordingPump) Close() error { return nil }

func TestRunCycle_PumpOffAlwaysAttempted(t *testing.T) {
	tests := []struct {
		name      string
		fail      map[bool]error
		wantCalls []bool
		wantLog   int
	}{
		{
			name:      "switch on fails",
			fail:      map[bool]error{true: actuator.ErrActuationFailed},
			wantCalls: []bool{true, false},
		},
		{
			name:      "switch off fails",
			fail:      map[bool]error{false: actuator.ErrActuationFailed},
			wantCalls: []bool{true, false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pump := &recordingPump{fail: tt.fail}
			h := newHarness(t, at(7, 0), models.Window{StartHour: 7.0, DurationMinutes: 1}, func(c *control.Config) {
				c.Pump = pump
			})

			result, err := h.loop.RunCycle(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, actuator.ErrActuationFailed)
			assert.Equal(t, control.OutcomeError, result.Outcome)
			assert.Equal(t, tt.wantCalls, pump.calls)
			assert.Len(t, h.log.entries, tt.wantLog)
		})
	}
}

func TestRunCycle_CancelledRunStillSwitchesOff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := newHarness(t, at(7, 0), models.Window{StartHour: 7.0, DurationMinutes: 60}, func(c *control.Config) {
		c.Sleep = func(context.Context, time.Duration) error {
			cancel()
			return context.Canceled
		}
	})

	result, err := h.loop.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, control.OutcomeActivated, result.Outcome)
	assert.False(t, h.pump.IsOn())
	assert.Len(t, h.log.entries, 1)
}

func TestRunCycle_UsageLogFailureDoesNotFailCycle(t *testing.T) {
	h := newHarness(t, at(7, 0), models.Window{StartHour: 7.0, DurationMinutes: 1}, nil)
	h.log.err = errors.New("disk full")

	result, err := h.loop.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, control.OutcomeActivated, result.Outcome)
	assert.False(t, h.pump.IsOn())
}

func TestRun_BacksOffAfterPanic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls int
	h := newHarness(t, at(5, 0), models.Window{StartHour: 7.0}, nil)
	h.pred.panics = true

	loop, err := control.New(control.Config{
		ErrorBackoff: 30 * time.Second,
		Sensors:      &fakeSource{snap: validSnapshot()},
		Predictor:    h.pred,
		Pump:         h.pump,
		Now:          at(5, 0),
		Sleep: func(ctx context.Context, d time.Duration) error {
			calls++
			assert.Equal(t, 30*time.Second, d)
			if calls == 2 {
				cancel()
			}
			return ctx.Err()
		},
	})
	require.NoError(t, err)

	require.NoError(t, loop.Run(ctx))
	assert.Equal(t, 2, calls)

	status := loop.Status()
	assert.Equal(t, int64(2), status.Errors)
	assert.Contains(t, status.LastError, "panicked")
	assert.Equal(t, control.StateIdle, status.State)
}

func TestRun_PollsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var sleeps []time.Duration
	h := newHarness(t, at(5, 0), models.Window{StartHour: 7.0, DurationMinutes: 90}, nil)
	loop, err := control.New(control.Config{
		PollInterval: 15 * time.Minute,
		Sensors:      &fakeSource{snap: validSnapshot()},
		Predictor:    h.pred,
		Pump:         h.pump,
		Now:          at(5, 0),
		Sleep: func(ctx context.Context, d time.Duration) error {
			sleeps = append(sleeps, d)
			if len(sleeps) == 3 {
				cancel()
			}
			return ctx.Err()
		},
	})
	require.NoError(t, err)

	require.NoError(t, loop.Run(ctx))
	assert.Equal(t, []time.Duration{15 * time.Minute, 15 * time.Minute, 15 * time.Minute}, sleeps)
	assert.Equal(t, int64(3), loop.Status().Cycles)
}

func TestRun_PanicDuringRunSwitchesPumpOff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pump := &recordingPump{}
	h := newHarness(t, at(7, 0), models.Window{StartHour: 7.0, DurationMinutes: 60}, func(c *control.Config) {
		c.Pump = pump
		var calls int
		c.Sleep = func(ctx context.Context, d time.Duration) error {
			calls++
			if calls == 1 {
				panic("relay driver crashed")
			}
			assert.Equal(t, 30*time.Second, d)
			cancel()
			return ctx.Err()
		}
	})

	require.NoError(t, h.loop.Run(ctx))

	assert.False(t, pump.IsOn())
	assert.Equal(t, []bool{true, false}, pump.calls)
	assert.Empty(t, h.log.entries)

	status := h.loop.Status()
	assert.Equal(t, int64(1), status.Errors)
	assert.Equal(t, control.StateIdle, status.State)
}
