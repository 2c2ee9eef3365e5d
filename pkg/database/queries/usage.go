package queries

import (
	"context"
	"database/sql"
	"time"

	"github.com/OldStager01/smart-pump/pkg/models"
)

type UsageRepository struct {
	db *sql.DB
}

func NewUsageRepository(db *sql.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

func (r *UsageRepository) Insert(ctx context.Context, e models.UsageLogEntry) error {
	query := `
		INSERT INTO pump_usage_log
			(run_date, start_hour, duration, water_level, flow_rate, voltage, current,
			 temperature, inflow_rate, outflow_rate, is_special_day, has_inflow)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	s := e.Snapshot
	_, err := r.db.ExecContext(ctx, query,
		models.DateOnly(e.Date), e.StartHour, e.Duration,
		s.WaterLevel, s.FlowRate, s.Voltage, s.Current,
		s.Temperature, s.InflowRate, s.OutflowRate,
		s.IsSpecialDay, s.HasInflow,
	)
	return err
}

// GetRecent returns the newest entries, oldest first.
func (r *UsageRepository) GetRecent(ctx context.Context, limit int) ([]models.UsageLogEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT run_date, start_hour, duration, water_level, flow_rate, voltage, current,
			   temperature, inflow_rate, outflow_rate, is_special_day, has_inflow
		FROM (
			SELECT * FROM pump_usage_log ORDER BY id DESC LIMIT $1
		) recent
		ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.UsageLogEntry
	for rows.Next() {
		var (
			e    models.UsageLogEntry
			s    models.SensorSnapshot
			date time.Time
		)
		err := rows.Scan(
			&date, &e.StartHour, &e.Duration,
			&s.WaterLevel, &s.FlowRate, &s.Voltage, &s.Current,
			&s.Temperature, &s.InflowRate, &s.OutflowRate,
			&s.IsSpecialDay, &s.HasInflow,
		)
		if err != nil {
			return nil, err
		}
		e.Date = date
		e.Snapshot = s
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
