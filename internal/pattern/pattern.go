package pattern

import (
	"errors"
	"sort"
	"time"

	"github.com/OldStager01/smart-pump/pkg/models"
)

var (
	ErrEmptyDataset        = errors.New("no historical runs to aggregate")
	ErrInsufficientHistory = errors.New("not enough usage history for trend analysis")
)

const (
	commonHourCount  = 3
	minTrendEntries  = 3
	wideTrendEntries = 7
)

// TemperatureBuckets are the bins used for ByTemperature, right-inclusive.
var TemperatureBuckets = []models.TemperatureBucket{
	{Low: -10, High: 10},
	{Low: 10, High: 20},
	{Low: 20, High: 30},
	{Low: 30, High: 40},
}

// Store is an immutable view over historical records.
type Store struct {
	records []models.HistoricalRecord
}

func NewStore(records []models.HistoricalRecord) *Store {
	copied := make([]models.HistoricalRecord, len(records))
	copy(copied, records)
	return &Store{records: copied}
}

func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.records)
}

func (s *Store) Summary() (*models.PatternSummary, error) {
	if s == nil {
		return nil, ErrEmptyDataset
	}
	return Aggregate(s.records)
}

// SimilarConditions returns records that share date's month and weekday.
// Records where the pump did not run are included; callers filter.
func (s *Store) SimilarConditions(date time.Time) []models.HistoricalRecord {
	if s == nil {
		return nil
	}
	month := date.Month()
	weekday := date.Weekday()

	var out []models.HistoricalRecord
	for _, r := range s.records {
		if r.Date.Month() == month && r.Date.Weekday() == weekday {
			out = append(out, r)
		}
	}
	return out
}

// SimilarRuns narrows SimilarConditions to runs and, when hour is >= 0,
// to the same start hour.
func (s *Store) SimilarRuns(date time.Time, hour int) []models.HistoricalRecord {
	var out []models.HistoricalRecord
	for _, r := range s.SimilarConditions(date) {
		if !r.IsRun() {
			continue
		}
		if hour >= 0 && r.Hour != hour {
			continue
		}
		out = append(out, r)
	}
	return out
}

// MeanOf returns the mean start hour and duration over runs in records.
func MeanOf(records []models.HistoricalRecord) (models.Stat, bool) {
	var acc accumulator
	for _, r := range records {
		if r.IsRun() {
			acc.add(r)
		}
	}
	if acc.count == 0 {
		return models.Stat{}, false
	}
	return acc.stat(), true
}

func Aggregate(records []models.HistoricalRecord) (*models.PatternSummary, error) {
	var (
		global    accumulator
		weekdays  = make(map[int]*accumulator)
		months    = make(map[int]*accumulator)
		buckets   = make([]accumulator, len(TemperatureBuckets))
		hourCount = make(map[int]int)
		hourOrder []int
	)

	for _, r := range records {
		if !r.IsRun() {
			continue
		}
		global.add(r)

		wd := models.WeekdayIndex(r.Date)
		if weekdays[wd] == nil {
			weekdays[wd] = &accumulator{}
		}
		weekdays[wd].add(r)

		m := int(r.Date.Month())
		if months[m] == nil {
			months[m] = &accumulator{}
		}
		months[m].add(r)

		for i, b := range TemperatureBuckets {
			if b.Contains(r.Temperature) {
				buckets[i].add(r)
				break
			}
		}

		if _, seen := hourCount[r.Hour]; !seen {
			hourOrder = append(hourOrder, r.Hour)
		}
		hourCount[r.Hour]++
	}

	if global.count == 0 {
		return nil, ErrEmptyDataset
	}

	summary := &models.PatternSummary{
		AvgStartHour:     global.stat().Hour,
		AvgDuration:      global.stat().Duration,
		RunCount:         global.count,
		CommonStartHours: topHours(hourOrder, hourCount, commonHourCount),
		ByWeekday:        make(map[int]models.Stat, len(weekdays)),
		ByMonth:          make(map[int]models.Stat, len(months)),
	}
	for wd, acc := range weekdays {
		summary.ByWeekday[wd] = acc.stat()
	}
	for m, acc := range months {
		summary.ByMonth[m] = acc.stat()
	}
	for i, acc := range buckets {
		if acc.count == 0 {
			continue
		}
		summary.ByTemperature = append(summary.ByTemperature, models.BucketStat{
			Bucket: TemperatureBuckets[i],
			Stat:   acc.stat(),
		})
	}

	return summary, nil
}

// Trend averages the most recent usage-log entries: the last 7 when at
// least 7 exist, otherwise the last 3.
func Trend(entries []models.UsageLogEntry) (*models.TrendSummary, error) {
	if len(entries) < minTrendEntries {
		return nil, ErrInsufficientHistory
	}

	window := minTrendEntries
	if len(entries) >= wideTrendEntries {
		window = wideTrendEntries
	}
	recent := entries[len(entries)-window:]

	var hourSum, durationSum float64
	for _, e := range recent {
		hourSum += e.StartHour
		durationSum += e.Duration
	}

	return &models.TrendSummary{
		AvgHour:     hourSum / float64(window),
		AvgDuration: durationSum / float64(window),
		SampleSize:  window,
	}, nil
}

// topHours orders hours by count descending; equal counts keep first-seen order.
func topHours(order []int, counts map[int]int, n int) []models.HourCount {
	out := make([]models.HourCount, 0, len(order))
	for _, h := range order {
		out = append(out, models.HourCount{Hour: h, Count: counts[h]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

type accumulator struct {
	hourSum     float64
	durationSum float64
	count       int
}

func (a *accumulator) add(r models.HistoricalRecord) {
	a.hourSum += float64(r.Hour)
	a.durationSum += r.Duration
	a.count++
}

func (a *accumulator) stat() models.Stat {
	if a.count == 0 {
		return models.Stat{}
	}
	return models.Stat{
		Hour:     a.hourSum / float64(a.count),
		Duration: a.durationSum / float64(a.count),
		Count:    a.count,
	}
}
