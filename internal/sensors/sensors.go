package sensors

import (
	"context"
	"errors"

	"github.com/OldStager01/smart-pump/pkg/models"
)

var (
	ErrReadFailed      = errors.New("sensor read failed")
	ErrInvalidResponse = errors.New("invalid response from sensor gateway")
)

// Source acquires tank and pump sensor readings.
type Source interface {
	// Read returns the current snapshot
	Read(ctx context.Context) (*models.SensorSnapshot, error)

	// HealthCheck verifies the source can reach its hardware or gateway
	HealthCheck(ctx context.Context) error

	// Close releases any resources held by the source
	Close() error
}
