package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/OldStager01/smart-pump/internal/logger"
	"github.com/OldStager01/smart-pump/pkg/config"
	"github.com/OldStager01/smart-pump/pkg/models"
	"github.com/OldStager01/smart-pump/pkg/validation"
)

const (
	historicalDateLayout = "2006-01-02"
	hourLayout           = "15:04"
	holidayDateLayout    = "January 2, 2006, Monday"
)

var ErrMissingColumn = errors.New("missing column")

// Dataset holds the reference data loaded once at startup.
// It is never mutated after Load returns.
type Dataset struct {
	Historical []models.HistoricalRecord
	Holidays   []models.HolidayRecord
}

func (d *Dataset) HasHistorical() bool { return d != nil && len(d.Historical) > 0 }
func (d *Dataset) HasHolidays() bool   { return d != nil && len(d.Holidays) > 0 }

// Load reads both files named in cfg. A file that cannot be read leaves
// its slice empty and is logged; downstream components degrade to
// neutral or fallback behavior.
func Load(cfg config.DataConfig) *Dataset {
	log := logger.WithComponent("dataset")
	ds := &Dataset{}

	historical, err := LoadHistorical(cfg.HistoricalFile)
	if err != nil {
		log.Warnf("Historical data unavailable: %v", err)
	} else {
		ds.Historical = historical
		log.Infof("Loaded %d historical records from %s", len(historical), cfg.HistoricalFile)
	}

	holidays, err := LoadHolidays(cfg.HolidayFile)
	if err != nil {
		log.Warnf("Holiday data unavailable: %v", err)
	} else {
		ds.Holidays = holidays
		log.Infof("Loaded %d holidays from %s", len(holidays), cfg.HolidayFile)
	}

	return ds
}

func LoadHistorical(path string) ([]models.HistoricalRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open historical data: %w", err)
	}
	defer f.Close()
	return ParseHistorical(f)
}

// ParseHistorical reads Date, Hour (HH:MM), Duration and the environmental
// columns by header name. Missing environmental values read as zero.
func ParseHistorical(r io.Reader) ([]models.HistoricalRecord, error) {
	rows, cols, err := readTable(r, "Date", "Hour", "Duration")
	if err != nil {
		return nil, err
	}

	records := make([]models.HistoricalRecord, 0, len(rows))
	for i, row := range rows {
		line := i + 2
		date, err := parseDate(cols.get(row, "Date"))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		clock, err := time.Parse(hourLayout, cols.get(row, "Hour"))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid hour %q: %w", line, cols.get(row, "Hour"), err)
		}
		duration, err := parseFloat(cols.get(row, "Duration"))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid duration: %w", line, err)
		}

		records = append(records, models.HistoricalRecord{
			Date:         date,
			Hour:         clock.Hour(),
			Duration:     duration,
			TopTankLevel: cols.float(row, "TopTankLevel"),
			Voltage:      cols.float(row, "Voltage"),
			Current:      cols.float(row, "Current"),
			Temperature:  cols.float(row, "Temperature"),
			Humidity:     cols.float(row, "Humidity"),
		})
	}
	return records, nil
}

func LoadHolidays(path string) ([]models.HolidayRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open holiday data: %w", err)
	}
	defer f.Close()
	return ParseHolidays(f)
}

// ParseHolidays reads date ("January 2, 2006, Monday"), event and type.
func ParseHolidays(r io.Reader) ([]models.HolidayRecord, error) {
	rows, cols, err := readTable(r, "date", "event")
	if err != nil {
		return nil, err
	}

	holidays := make([]models.HolidayRecord, 0, len(rows))
	for i, row := range rows {
		raw := cols.get(row, "date")
		date, err := time.ParseInLocation(holidayDateLayout, raw, time.Local)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid holiday date %q: %w", i+2, raw, err)
		}
		holidays = append(holidays, models.HolidayRecord{
			Date:  date,
			Event: validation.SanitizeString(cols.get(row, "event")),
			Type:  validation.SanitizeString(cols.get(row, "type")),
		})
	}
	return holidays, nil
}

type columns map[string]int

func (c columns) get(row []string, name string) string {
	idx, ok := c[strings.ToLower(name)]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func (c columns) float(row []string, name string) float64 {
	v, err := parseFloat(c.get(row, name))
	if err != nil {
		return 0
	}
	return v
}

func readTable(r io.Reader, required ...string) ([][]string, columns, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols := make(columns, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, name := range required {
		if _, ok := cols[strings.ToLower(name)]; !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return rows, cols, nil
}

func parseDate(raw string) (time.Time, error) {
	if len(raw) > len(historicalDateLayout) {
		raw = raw[:len(historicalDateLayout)]
	}
	t, err := time.ParseInLocation(historicalDateLayout, raw, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", raw, err)
	}
	return t, nil
}

func parseFloat(raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseFloat(raw, 64)
}
