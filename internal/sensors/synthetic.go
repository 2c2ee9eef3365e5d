package sensors

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/OldStager01/smart-pump/internal/pattern"
	"github.com/OldStager01/smart-pump/pkg/models"
)

// SyntheticSource fabricates plausible readings for demos and simulation.
// Readings follow the historical mean for the same month, weekday and hour
// when such days exist, and generic ranges otherwise.
type SyntheticSource struct {
	history *pattern.Store
	now     func() time.Time

	mu         sync.Mutex
	rng        *rand.Rand
	shouldFail bool
	failureErr error
	corrupt    bool
}

type SyntheticConfig struct {
	History *pattern.Store
	Seed    int64
	Now     func() time.Time
}

func NewSyntheticSource(cfg SyntheticConfig) *SyntheticSource {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &SyntheticSource{
		history: cfg.History,
		now:     now,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// SetShouldFail makes subsequent reads return err.
func (s *SyntheticSource) SetShouldFail(shouldFail bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shouldFail = shouldFail
	s.failureErr = err
}

// SetCorrupt makes subsequent reads return all-NaN snapshots, as a
// disconnected sensor bus would.
func (s *SyntheticSource) SetCorrupt(corrupt bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.corrupt = corrupt
}

func (s *SyntheticSource) Read(ctx context.Context) (*models.SensorSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shouldFail {
		if s.failureErr != nil {
			return nil, s.failureErr
		}
		return nil, ErrReadFailed
	}

	now := s.now()
	if s.corrupt {
		return corruptSnapshot(now), nil
	}

	base, ok := s.similarBase(now)
	if !ok {
		base = baseline{
			waterLevel:  60 + s.uniform(-10, 20),
			voltage:     220 + s.uniform(-10, 10),
			current:     3.0 + s.uniform(-0.5, 1.0),
			temperature: 25 + s.uniform(-5, 10),
		}
	} else {
		base.waterLevel += s.uniform(-5, 5)
		base.voltage += s.uniform(-2, 2)
		base.current += s.uniform(-0.1, 0.1)
		base.temperature += s.uniform(-1, 1)
	}

	wd := now.Weekday()
	return &models.SensorSnapshot{
		WaterLevel:   base.waterLevel,
		FlowRate:     200 + (base.waterLevel-50)*2 + s.uniform(-20, 20),
		Voltage:      base.voltage,
		Current:      base.current,
		Temperature:  base.temperature,
		InflowRate:   1.0 + s.uniform(-0.3, 0.5),
		OutflowRate:  50 + s.uniform(-10, 20),
		IsSpecialDay: wd == time.Saturday || wd == time.Sunday,
		HasInflow:    s.rng.Float64() > 0.3,
		ReadAt:       now,
	}, nil
}

type baseline struct {
	waterLevel  float64
	voltage     float64
	current     float64
	temperature float64
}

func (s *SyntheticSource) similarBase(now time.Time) (baseline, bool) {
	var (
		b baseline
		n int
	)
	for _, r := range s.history.SimilarConditions(now) {
		if r.Hour != now.Hour() {
			continue
		}
		b.waterLevel += r.TopTankLevel
		b.voltage += r.Voltage
		b.current += r.Current
		b.temperature += r.Temperature
		n++
	}
	if n == 0 {
		return baseline{}, false
	}
	f := float64(n)
	return baseline{
		waterLevel:  b.waterLevel / f,
		voltage:     b.voltage / f,
		current:     b.current / f,
		temperature: b.temperature / f,
	}, true
}

func (s *SyntheticSource) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

func (s *SyntheticSource) HealthCheck(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shouldFail {
		return ErrReadFailed
	}
	return nil
}

func (s *SyntheticSource) Close() error {
	return nil
}
