package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/OldStager01/smart-pump/internal/resilience"
)

var errBoom = errors.New("boom")

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func tripped(clock *fakeClock, halfOpenMax int) *resilience.CircuitBreaker {
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:        "sensors",
		MaxFailures: 3,
		Timeout:     time.Minute,
		HalfOpenMax: halfOpenMax,
		Now:         clock.Now,
	})
	for i := 0; i < 3; i++ {
		_ = cb.Execute(func() error { return errBoom })
	}
	return cb
}

func TestCircuitBreaker_StateTransitions(t *testing.T) {
	tests := []struct {
		name          string
		halfOpenMax   int
		setup         func(cb *resilience.CircuitBreaker, clock *fakeClock)
		expectedState resilience.State
	}{
		{
			name:          "opens after max failures",
			setup:         func(cb *resilience.CircuitBreaker, clock *fakeClock) {},
			expectedState: resilience.StateOpen,
		},
		{
			name:        "half-open probe after timeout",
			halfOpenMax: 2,
			setup: func(cb *resilience.CircuitBreaker, clock *fakeClock) {
				clock.Advance(2 * time.Minute)
				_ = cb.Execute(func() error { return nil })
			},
			expectedState: resilience.StateHalfOpen,
		},
		{
			name:        "closes after enough successful probes",
			halfOpenMax: 2,
			setup: func(cb *resilience.CircuitBreaker, clock *fakeClock) {
				clock.Advance(2 * time.Minute)
				_ = cb.Execute(func() error { return nil })
				_ = cb.Execute(func() error { return nil })
			},
			expectedState: resilience.StateClosed,
		},
		{
			name: "failed probe reopens",
			setup: func(cb *resilience.CircuitBreaker, clock *fakeClock) {
				clock.Advance(2 * time.Minute)
				_ = cb.Execute(func() error { return errBoom })
			},
			expectedState: resilience.StateOpen,
		},
		{
			name: "reset closes",
			setup: func(cb *resilience.CircuitBreaker, clock *fakeClock) {
				cb.Reset()
			},
			expectedState: resilience.StateClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := &fakeClock{t: time.Date(2024, 3, 25, 7, 0, 0, 0, time.UTC)}
			cb := tripped(clock, tt.halfOpenMax)

			tt.setup(cb, clock)

			assert.Equal(t, tt.expectedState, cb.State())
		})
	}
}

func TestCircuitBreaker_OpenRejects(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	cb := tripped(clock, 1)

	called := false
	err := cb.Execute(func() error { called = true; return nil })

	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.False(t, called)
	assert.Equal(t, int64(1), cb.Stats().Rejected)
	assert.Equal(t, "open", cb.Stats().StateStr)
}

func TestCircuitBreaker_CancelledContextIsNotAFailure(t *testing.T) {
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{MaxFailures: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cb.ExecuteContext(ctx, func(ctx context.Context) error { return ctx.Err() })

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, resilience.StateClosed, cb.State())
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{MaxFailures: 2})

	_ = cb.Execute(func() error { return errBoom })
	_ = cb.Execute(func() error { return nil })
	_ = cb.Execute(func() error { return errBoom })

	assert.Equal(t, resilience.StateClosed, cb.State())
	assert.Equal(t, 1, cb.Stats().Failures)
}
