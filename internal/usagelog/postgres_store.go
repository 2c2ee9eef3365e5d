package usagelog

import (
	"context"
	"fmt"

	"github.com/OldStager01/smart-pump/pkg/database"
	"github.com/OldStager01/smart-pump/pkg/database/queries"
	"github.com/OldStager01/smart-pump/pkg/models"
)

// PostgresStore writes the usage log through the shared database pool.
// The pool is owned by the caller and is not closed here.
type PostgresStore struct {
	repo *queries.UsageRepository
}

func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{repo: queries.NewUsageRepository(db.DB)}
}

func (s *PostgresStore) Append(ctx context.Context, e models.UsageLogEntry) error {
	if err := s.repo.Insert(ctx, e); err != nil {
		return fmt.Errorf("inserting usage entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]models.UsageLogEntry, error) {
	if limit <= 0 {
		limit = 1000
	}
	return s.repo.GetRecent(ctx, limit)
}

func (s *PostgresStore) Close() error {
	return nil
}
