package usagelog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/OldStager01/smart-pump/pkg/models"
)

var csvHeader = []string{
	"date", "start_hour", "duration", "water_level", "flow_rate",
	"voltage", "current", "temperature", "inflow_rate", "outflow_rate",
	"is_special_day", "has_inflow",
}

// CSVStore appends one row per activation to a CSV file. Floats are
// written with two decimals and booleans as 0/1.
type CSVStore struct {
	path string
	mu   sync.Mutex
}

// NewCSVStore creates the file and its header if missing.
func NewCSVStore(path string) (*CSVStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create usage log: %w", err)
		}
		w := csv.NewWriter(f)
		if err := w.Write(csvHeader); err != nil {
			f.Close()
			return nil, err
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, err
		}
		if err := f.Close(); err != nil {
			return nil, err
		}
	}

	return &CSVStore{path: path}, nil
}

func (s *CSVStore) Append(ctx context.Context, e models.UsageLogEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open usage log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(encodeRow(e)); err != nil {
		return fmt.Errorf("failed to write usage entry: %w", err)
	}
	w.Flush()
	return w.Error()
}

func (s *CSVStore) Recent(ctx context.Context, limit int) ([]models.UsageLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open usage log: %w", err)
	}
	defer f.Close()

	entries, err := readEntries(f)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

func (s *CSVStore) Close() error {
	return nil
}

func encodeRow(e models.UsageLogEntry) []string {
	s := e.Snapshot
	return []string{
		models.DateKey(e.Date),
		f2(e.StartHour),
		f2(e.Duration),
		f2(s.WaterLevel),
		f2(s.FlowRate),
		f2(s.Voltage),
		f2(s.Current),
		f2(s.Temperature),
		f2(s.InflowRate),
		f2(s.OutflowRate),
		b01(s.IsSpecialDay),
		b01(s.HasInflow),
	}
}

func readEntries(r io.Reader) ([]models.UsageLogEntry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(csvHeader)

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read usage log header: %w", err)
	}

	var entries []models.UsageLogEntry
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("usage log line %d: %w", line, err)
		}
		e, err := decodeRow(row)
		if err != nil {
			return nil, fmt.Errorf("usage log line %d: %w", line, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func decodeRow(row []string) (models.UsageLogEntry, error) {
	date, err := time.ParseInLocation("2006-01-02", row[0], time.Local)
	if err != nil {
		return models.UsageLogEntry{}, err
	}

	nums := make([]float64, 9)
	for i := range nums {
		nums[i], err = strconv.ParseFloat(row[i+1], 64)
		if err != nil {
			return models.UsageLogEntry{}, fmt.Errorf("column %s: %w", csvHeader[i+1], err)
		}
	}

	return models.UsageLogEntry{
		Date:      date,
		StartHour: nums[0],
		Duration:  nums[1],
		Snapshot: models.SensorSnapshot{
			WaterLevel:   nums[2],
			FlowRate:     nums[3],
			Voltage:      nums[4],
			Current:      nums[5],
			Temperature:  nums[6],
			InflowRate:   nums[7],
			OutflowRate:  nums[8],
			IsSpecialDay: row[10] == "1",
			HasInflow:    row[11] == "1",
		},
	}, nil
}

func f2(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func b01(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
