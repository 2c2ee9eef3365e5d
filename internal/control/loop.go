package control

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime/debug"
	"sync"
	"time"

	"github.com/OldStager01/smart-pump/internal/actuator"
	"github.com/OldStager01/smart-pump/internal/events"
	"github.com/OldStager01/smart-pump/internal/logger"
	"github.com/OldStager01/smart-pump/internal/metrics"
	"github.com/OldStager01/smart-pump/internal/sensors"
	"github.com/OldStager01/smart-pump/internal/usagelog"
	"github.com/OldStager01/smart-pump/pkg/models"
	"github.com/OldStager01/smart-pump/pkg/validation"
)

type State string

const (
	StateIdle       State = "idle"
	StateEvaluating State = "evaluating"
	StateWaiting    State = "waiting"
	StateActivating State = "activating"
	StateRunning    State = "running"
)

// Outcome labels what a finished cycle did.
type Outcome string

const (
	OutcomeWaiting   Outcome = "waiting"
	OutcomeActivated Outcome = "activated"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeError     Outcome = "error"
)

var ErrCyclePanic = errors.New("control cycle panicked")

// Predictor is the slice of the prediction orchestrator the loop needs.
type Predictor interface {
	Predict(ctx context.Context, target time.Time, snap *models.SensorSnapshot) *models.PredictionOutcome
}

type Config struct {
	Tolerance       float64
	PollInterval    time.Duration
	RecheckInterval time.Duration
	MaxRuntime      time.Duration
	ErrorBackoff    time.Duration
	OncePerDay      bool
	Location        *time.Location
	Ranges          validation.SensorRanges

	Sensors   sensors.Source
	Predictor Predictor
	Pump      actuator.Pump
	UsageLog  usagelog.Store
	Publisher *events.Publisher
	Metrics   *metrics.Metrics

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// CycleResult describes one evaluation of the loop.
type CycleResult struct {
	Cycle       int64                     `json:"cycle"`
	At          time.Time                 `json:"at"`
	Outcome     Outcome                   `json:"outcome"`
	CurrentHour float64                   `json:"current_hour"`
	HoursUntil  float64                   `json:"hours_until"`
	Prediction  *models.PredictionOutcome `json:"prediction,omitempty"`
	Runtime     time.Duration             `json:"runtime"`
	Next        time.Duration             `json:"next"`
}

// Activation summarises the last completed pump run.
type Activation struct {
	Date      string        `json:"date"`
	StartHour float64       `json:"start_hour"`
	Duration  float64       `json:"duration"`
	Runtime   time.Duration `json:"runtime"`
	At        time.Time     `json:"at"`
}

// Status is a point-in-time copy of the loop state for readers outside
// the loop goroutine.
type Status struct {
	State          State                     `json:"state"`
	Cycles         int64                     `json:"cycles"`
	Errors         int64                     `json:"errors"`
	LastCycle      *CycleResult              `json:"last_cycle,omitempty"`
	LastPrediction *models.PredictionOutcome `json:"last_prediction,omitempty"`
	LastActivation *Activation               `json:"last_activation,omitempty"`
	LastError      string                    `json:"last_error,omitempty"`
	PumpOn         bool                      `json:"pump_on"`
}

type Loop struct {
	config Config

	mu             sync.RWMutex
	state          State
	cycles         int64
	failures       int64
	lastCycle      *CycleResult
	lastPrediction *models.PredictionOutcome
	lastActivation *Activation
	lastError      string
	lastRunDay     string
}

func New(cfg Config) (*Loop, error) {
	if cfg.Sensors == nil {
		return nil, errors.New("sensor source is required")
	}
	if cfg.Predictor == nil {
		return nil, errors.New("predictor is required")
	}
	if cfg.Pump == nil {
		return nil, errors.New("pump is required")
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = 0.08
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 60 * time.Second
	}
	if cfg.RecheckInterval == 0 {
		cfg.RecheckInterval = 60 * time.Second
	}
	if cfg.MaxRuntime == 0 {
		cfg.MaxRuntime = 300 * time.Second
	}
	if cfg.ErrorBackoff == 0 {
		cfg.ErrorBackoff = 60 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Ranges == (validation.SensorRanges{}) {
		cfg.Ranges = validation.DefaultSensorRanges()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}

	return &Loop{config: cfg, state: StateIdle}, nil
}

// WithinTolerance reports whether current is close enough to target to
// start the pump. Midnight wraparound is not considered.
func WithinTolerance(current, target, tolerance float64) bool {
	return math.Abs(current-target) < tolerance
}

// HoursUntil returns the hours from current to the next occurrence of target.
func HoursUntil(current, target float64) float64 {
	diff := target - current
	if diff < 0 {
		diff += 24
	}
	return diff
}

// Run evaluates cycles until ctx is cancelled. A failing cycle is reported
// and followed by a fixed backoff; it never stops the loop.
func (l *Loop) Run(ctx context.Context) error {
	logger.WithComponent("control").Info("Control loop started")
	defer l.setState(StateIdle)

	for {
		if ctx.Err() != nil {
			logger.WithComponent("control").Info("Control loop stopped")
			return nil
		}

		wait := l.config.ErrorBackoff
		result, err := l.safeCycle(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			l.recordError(result, err)
			logger.WithCycle(result.Cycle).Errorf("Cycle failed: %v", err)
		} else {
			wait = result.Next
		}

		if err := l.config.Sleep(ctx, wait); err != nil {
			continue
		}
	}
}

func (l *Loop) safeCycle(ctx context.Context) (result *CycleResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Cycle panic: %v\n%s", r, debug.Stack())
			err = fmt.Errorf("%w: %v", ErrCyclePanic, r)
			if result == nil {
				result = &CycleResult{Cycle: l.Status().Cycles, Outcome: OutcomeError}
			}
		}
	}()
	return l.RunCycle(ctx)
}

// RunCycle performs one evaluation: read sensors, predict, then either
// activate the pump or report the wait. It does not perform the trailing
// poll sleep; Next carries the interval the caller should wait.
func (l *Loop) RunCycle(ctx context.Context) (*CycleResult, error) {
	start := time.Now()
	cycle := l.beginCycle()
	log := logger.WithCycle(cycle)

	now := l.config.Now().In(l.config.Location)
	result := &CycleResult{Cycle: cycle, At: now, CurrentHour: models.DecimalHour(now)}

	snap := l.readSensors(ctx, cycle)

	outcome := l.config.Predictor.Predict(ctx, now, snap)
	if outcome == nil {
		result.Outcome = OutcomeError
		return result, errors.New("predictor returned no outcome")
	}
	result.Prediction = outcome
	l.config.Metrics.Prediction(outcome)
	l.config.Publisher.PredictionMade(cycle, outcome)
	l.setPrediction(outcome)

	target := outcome.Final.StartHour
	log.Infof("Predicted start %.2fh for %.1f min (%s, %s); now %.2fh",
		target, outcome.Final.DurationMinutes, outcome.Method, outcome.Confidence, result.CurrentHour)

	if WithinTolerance(result.CurrentHour, target, l.config.Tolerance) {
		if l.config.OncePerDay && l.ranOn(now) {
			log.Info("Already ran today, skipping activation")
			result.Outcome = OutcomeSkipped
			result.HoursUntil = HoursUntil(result.CurrentHour, target)
			if result.HoursUntil < l.config.Tolerance {
				result.HoursUntil += 24
			}
			result.Next = l.config.PollInterval
			l.finishCycle(result, StateWaiting, start)
			return result, nil
		}

		runtime, err := l.activate(ctx, cycle, now, outcome, snap)
		result.Runtime = runtime
		if err != nil {
			result.Outcome = OutcomeError
			l.setState(StateIdle)
			return result, err
		}
		result.Outcome = OutcomeActivated
		result.Next = l.config.RecheckInterval
		l.finishCycle(result, StateIdle, start)
		return result, nil
	}

	result.Outcome = OutcomeWaiting
	result.HoursUntil = HoursUntil(result.CurrentHour, target)
	result.Next = l.config.PollInterval
	l.config.Metrics.Waiting(result.HoursUntil)
	l.config.Publisher.Waiting(cycle, result.CurrentHour, target, result.HoursUntil)
	log.Infof("Next run in %.2f hours", result.HoursUntil)
	l.finishCycle(result, StateWaiting, start)
	return result, nil
}

// readSensors returns nil when the source fails; the predictor treats a
// nil snapshot as invalid.
func (l *Loop) readSensors(ctx context.Context, cycle int64) *models.SensorSnapshot {
	snap, err := l.config.Sensors.Read(ctx)
	if err != nil {
		logger.WithCycle(cycle).Warnf("Sensor read failed, predicting without sensors: %v", err)
		l.config.Metrics.SensorRead(false)
		l.config.Publisher.SensorInvalid(cycle, err)
		return nil
	}
	l.config.Metrics.SensorRead(true)

	if err := l.config.Ranges.Validate(snap); err != nil {
		logger.WithCycle(cycle).Warnf("Sensor error detected: %v", err)
		l.config.Metrics.SensorInvalid()
		l.config.Publisher.SensorInvalid(cycle, err)
		return snap
	}
	l.config.Publisher.SensorRead(cycle, snap)
	return snap
}

// activate runs the pump for the predicted duration, capped at MaxRuntime.
// Switching off is attempted even if switching on or the wait failed, and
// also when the run panics.
func (l *Loop) activate(ctx context.Context, cycle int64, now time.Time, outcome *models.PredictionOutcome, snap *models.SensorSnapshot) (time.Duration, error) {
	log := logger.WithCycle(cycle)
	l.setState(StateActivating)

	runtime := outcome.Final.RunTime()
	if runtime > l.config.MaxRuntime {
		runtime = l.config.MaxRuntime
	}
	if runtime < 0 {
		runtime = 0
	}

	if err := l.config.Pump.SetOutput(ctx, true); err != nil {
		offErr := l.switchOff(cycle)
		return 0, errors.Join(fmt.Errorf("failed to start pump: %w", err), offErr)
	}
	running := true
	defer func() {
		if running {
			l.switchOff(cycle)
		}
	}()
	l.config.Metrics.PumpState(true)
	l.config.Metrics.Activation()
	l.config.Publisher.PumpActivated(cycle, outcome.Final)
	log.Infof("Pump operating for %.2f minutes (runtime %s)", outcome.Final.DurationMinutes, runtime)

	l.setState(StateRunning)
	sleepErr := l.config.Sleep(ctx, runtime)
	if sleepErr != nil {
		log.Warnf("Pump run interrupted: %v", sleepErr)
	}

	running = false
	if err := l.switchOff(cycle); err != nil {
		return runtime, err
	}

	entry := models.UsageLogEntry{
		Date:      models.DateOnly(now),
		StartHour: outcome.Final.StartHour,
		Duration:  outcome.Final.DurationMinutes,
	}
	if snap != nil {
		entry.Snapshot = *snap
	}
	l.appendUsage(cycle, entry)

	l.mu.Lock()
	l.lastRunDay = models.DateKey(now)
	l.lastActivation = &Activation{
		Date:      models.DateKey(now),
		StartHour: entry.StartHour,
		Duration:  entry.Duration,
		Runtime:   runtime,
		At:        now,
	}
	l.mu.Unlock()

	return runtime, nil
}

func (l *Loop) switchOff(cycle int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := l.config.Pump.SetOutput(ctx, false)
	if err != nil {
		err = fmt.Errorf("failed to stop pump: %w", err)
		logger.WithCycle(cycle).Error(err.Error())
	} else {
		l.config.Metrics.PumpState(false)
	}
	l.config.Publisher.PumpDeactivated(cycle, err)
	return err
}

func (l *Loop) appendUsage(cycle int64, entry models.UsageLogEntry) {
	if l.config.UsageLog == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := l.config.UsageLog.Append(ctx, entry); err != nil {
		l.config.Metrics.UsageLogError()
		logger.WithCycle(cycle).Errorf("Failed to record usage: %v", err)
		return
	}
	l.config.Publisher.UsageLogged(cycle, entry)
}

func (l *Loop) Status() Status {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return Status{
		State:          l.state,
		Cycles:         l.cycles,
		Errors:         l.failures,
		LastCycle:      l.lastCycle,
		LastPrediction: l.lastPrediction,
		LastActivation: l.lastActivation,
		LastError:      l.lastError,
		PumpOn:         l.config.Pump.IsOn(),
	}
}

func (l *Loop) beginCycle() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cycles++
	l.state = StateEvaluating
	return l.cycles
}

func (l *Loop) finishCycle(result *CycleResult, next State, start time.Time) {
	l.config.Metrics.CycleCompleted(string(result.Outcome), time.Since(start))

	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = next
	l.lastCycle = result
}

func (l *Loop) recordError(result *CycleResult, err error) {
	l.config.Metrics.CycleCompleted(string(OutcomeError), 0)
	l.config.Publisher.CycleError(result.Cycle, err)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures++
	l.state = StateIdle
	l.lastCycle = result
	l.lastError = err.Error()
}

func (l *Loop) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

func (l *Loop) setPrediction(p *models.PredictionOutcome) {
	l.mu.Lock()
	l.lastPrediction = p
	l.mu.Unlock()
}

func (l *Loop) ranOn(day time.Time) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastRunDay == models.DateKey(day)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
