package sensors

import (
	"context"
	"time"

	"github.com/OldStager01/smart-pump/internal/logger"
	"github.com/OldStager01/smart-pump/internal/resilience"
	"github.com/OldStager01/smart-pump/pkg/models"
)

// ResilientSource retries a source a fixed number of times with a fixed
// delay, behind a circuit breaker.
type ResilientSource struct {
	source         Source
	circuitBreaker *resilience.CircuitBreaker
	retryAttempts  int
	retryDelay     time.Duration
}

type ResilientSourceConfig struct {
	Source        Source
	MaxFailures   int
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	OnStateChange func(name string, from, to resilience.State)
}

func NewResilientSource(cfg ResilientSourceConfig) *ResilientSource {
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 1 * time.Second
	}

	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:          "sensors",
		MaxFailures:   cfg.MaxFailures,
		Timeout:       cfg.Timeout,
		OnStateChange: cfg.OnStateChange,
	})

	return &ResilientSource{
		source:         cfg.Source,
		circuitBreaker: cb,
		retryAttempts:  cfg.RetryAttempts,
		retryDelay:     cfg.RetryDelay,
	}
}

func (r *ResilientSource) Read(ctx context.Context) (*models.SensorSnapshot, error) {
	var snapshot *models.SensorSnapshot
	log := logger.WithComponent("sensors")

	err := r.circuitBreaker.ExecuteContext(ctx, func(ctx context.Context) error {
		var lastErr error
		for attempt := 1; attempt <= r.retryAttempts; attempt++ {
			if err := ctx.Err(); err != nil {
				return err
			}

			s, err := r.source.Read(ctx)
			if err == nil {
				snapshot = s
				return nil
			}

			lastErr = err
			log.Warnf("Sensor read attempt %d/%d failed: %v", attempt, r.retryAttempts, err)

			if attempt < r.retryAttempts {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(r.retryDelay):
				}
			}
		}
		return lastErr
	})
	if err != nil {
		return nil, err
	}

	return snapshot, nil
}

func (r *ResilientSource) HealthCheck(ctx context.Context) error {
	return r.source.HealthCheck(ctx)
}

func (r *ResilientSource) Close() error {
	return r.source.Close()
}

func (r *ResilientSource) CircuitState() resilience.State {
	return r.circuitBreaker.State()
}

func (r *ResilientSource) ResetCircuit() {
	r.circuitBreaker.Reset()
}
