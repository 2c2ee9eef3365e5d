package usagelog

import (
	"context"
	"errors"
	"fmt"

	"github.com/OldStager01/smart-pump/pkg/config"
	"github.com/OldStager01/smart-pump/pkg/database"
	"github.com/OldStager01/smart-pump/pkg/models"
)

var ErrUnknownDriver = errors.New("unknown usage log driver")

// Store persists completed pump activations. Entries are append-only.
type Store interface {
	Append(ctx context.Context, entry models.UsageLogEntry) error

	// Recent returns up to limit of the newest entries, oldest first.
	Recent(ctx context.Context, limit int) ([]models.UsageLogEntry, error)

	Close() error
}

// Open selects a store by driver. db is only used by the postgres driver.
func Open(cfg config.UsageLogConfig, db *database.DB) (Store, error) {
	switch cfg.Driver {
	case "", "csv":
		return NewCSVStore(cfg.Path)
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	case "postgres":
		if db == nil {
			return nil, errors.New("postgres usage log requires a database connection")
		}
		return NewPostgresStore(db), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
