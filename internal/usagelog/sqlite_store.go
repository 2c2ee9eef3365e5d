package usagelog

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite"

	"github.com/OldStager01/smart-pump/pkg/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS pump_usage_log (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	run_date       TEXT    NOT NULL,
	start_hour     REAL    NOT NULL,
	duration       REAL    NOT NULL,
	water_level    REAL,
	flow_rate      REAL,
	voltage        REAL,
	current        REAL,
	temperature    REAL,
	inflow_rate    REAL,
	outflow_rate   REAL,
	is_special_day INTEGER NOT NULL DEFAULT 0,
	has_inflow     INTEGER NOT NULL DEFAULT 0,
	created_at     DATETIME DEFAULT CURRENT_TIMESTAMP
);`

// SQLiteStore keeps the usage log in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening usage database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating usage schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Append(ctx context.Context, e models.UsageLogEntry) error {
	snap := e.Snapshot
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pump_usage_log
			(run_date, start_hour, duration, water_level, flow_rate, voltage, current,
			 temperature, inflow_rate, outflow_rate, is_special_day, has_inflow)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		models.DateKey(e.Date), e.StartHour, e.Duration,
		nullable(snap.WaterLevel), nullable(snap.FlowRate), nullable(snap.Voltage), nullable(snap.Current),
		nullable(snap.Temperature), nullable(snap.InflowRate), nullable(snap.OutflowRate),
		boolToInt(snap.IsSpecialDay), boolToInt(snap.HasInflow),
	)
	if err != nil {
		return fmt.Errorf("inserting usage entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]models.UsageLogEntry, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_date, start_hour, duration, water_level, flow_rate, voltage, current,
		       temperature, inflow_rate, outflow_rate, is_special_day, has_inflow
		FROM (SELECT * FROM pump_usage_log ORDER BY id DESC LIMIT ?)
		ORDER BY id ASC`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying usage log: %w", err)
	}
	defer rows.Close()

	var entries []models.UsageLogEntry
	for rows.Next() {
		var (
			e                  models.UsageLogEntry
			date               string
			readings           [7]sql.NullFloat64
			special, hasInflow int
		)
		if err := rows.Scan(
			&date, &e.StartHour, &e.Duration,
			&readings[0], &readings[1], &readings[2], &readings[3],
			&readings[4], &readings[5], &readings[6],
			&special, &hasInflow,
		); err != nil {
			return nil, fmt.Errorf("scanning usage entry: %w", err)
		}
		e.Date, err = time.ParseInLocation("2006-01-02", date, time.Local)
		if err != nil {
			return nil, fmt.Errorf("parsing usage date %q: %w", date, err)
		}
		e.Snapshot = models.SensorSnapshot{
			WaterLevel:   orNaN(readings[0]),
			FlowRate:     orNaN(readings[1]),
			Voltage:      orNaN(readings[2]),
			Current:      orNaN(readings[3]),
			Temperature:  orNaN(readings[4]),
			InflowRate:   orNaN(readings[5]),
			OutflowRate:  orNaN(readings[6]),
			IsSpecialDay: special == 1,
			HasInflow:    hasInflow == 1,
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// nullable stores NaN readings as NULL.
func nullable(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func orNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
