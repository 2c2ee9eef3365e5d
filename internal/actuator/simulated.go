package actuator

import (
	"context"
	"sync"
	"time"

	"github.com/OldStager01/smart-pump/internal/logger"
)

// SimulatedPump logs transitions instead of driving hardware and keeps
// a bounded history of them.
type SimulatedPump struct {
	mu         sync.RWMutex
	on         bool
	closed     bool
	history    []Transition
	maxHistory int
	failNext   error
	onChange   func(Transition)
	now        func() time.Time
}

type SimulatedConfig struct {
	MaxHistory int
	OnChange   func(Transition)
	Now        func() time.Time
}

func NewSimulatedPump(cfg SimulatedConfig) *SimulatedPump {
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = 100
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &SimulatedPump{
		maxHistory: cfg.MaxHistory,
		onChange:   cfg.OnChange,
		now:        cfg.Now,
	}
}

// FailNext makes the next SetOutput call return err.
func (p *SimulatedPump) FailNext(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failNext = err
}

func (p *SimulatedPump) SetOutput(ctx context.Context, on bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if p.failNext != nil {
		err := p.failNext
		p.failNext = nil
		p.mu.Unlock()
		return err
	}

	changed := p.on != on
	p.on = on
	tr := Transition{On: on, At: p.now()}
	if changed {
		p.history = append(p.history, tr)
		if len(p.history) > p.maxHistory {
			p.history = p.history[len(p.history)-p.maxHistory:]
		}
	}
	cb := p.onChange
	p.mu.Unlock()

	if !changed {
		return nil
	}

	logger.WithComponent("actuator").Infof("Pump switched %s (simulated)", stateName(on))
	if cb != nil {
		cb(tr)
	}
	return nil
}

func (p *SimulatedPump) IsOn() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.on
}

func (p *SimulatedPump) History() []Transition {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Transition, len(p.history))
	copy(out, p.history)
	return out
}

func (p *SimulatedPump) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.on = false
	return nil
}
