package actuator

import (
	"context"
	"errors"
	"time"
)

var (
	ErrActuationFailed = errors.New("pump actuation failed")
	ErrClosed          = errors.New("pump closed")
)

// Pump switches the water pump relay.
type Pump interface {
	// SetOutput turns the pump on or off
	SetOutput(ctx context.Context, on bool) error

	// IsOn reports the last commanded state
	IsOn() bool

	// Close releases the relay connection
	Close() error
}

// Transition is one successful state change.
type Transition struct {
	On bool      `json:"on"`
	At time.Time `json:"at"`
}

func stateName(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
