package models

import "time"

// HistoricalRecord is one day of historical pump usage.
type HistoricalRecord struct {
	Date         time.Time `json:"date"`
	Hour         int       `json:"hour"`
	Duration     float64   `json:"duration"` // minutes, 0 = no run that day
	TopTankLevel float64   `json:"top_tank_level"`
	Voltage      float64   `json:"voltage"`
	Current      float64   `json:"current"`
	Temperature  float64   `json:"temperature"`
	Humidity     float64   `json:"humidity"`
}

// IsRun reports whether the pump ran on that day.
func (r HistoricalRecord) IsRun() bool {
	return r.Duration > 0
}

// Stat holds unrounded mean start hour and duration over Count runs.
type Stat struct {
	Hour     float64 `json:"hour"`
	Duration float64 `json:"duration"`
	Count    int     `json:"count"`
}

// Rounded returns a copy with means rounded to 2 decimals.
func (s Stat) Rounded() Stat {
	return Stat{Hour: Round2(s.Hour), Duration: Round2(s.Duration), Count: s.Count}
}

type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// TemperatureBucket is the half-open interval (Low, High] in °C.
type TemperatureBucket struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

func (b TemperatureBucket) Contains(t float64) bool {
	return t > b.Low && t <= b.High
}

type BucketStat struct {
	Bucket TemperatureBucket `json:"bucket"`
	Stat   Stat              `json:"stat"`
}

// PatternSummary aggregates historical runs. Derived, never persisted.
type PatternSummary struct {
	AvgStartHour     float64      `json:"avg_start_hour"`
	AvgDuration      float64      `json:"avg_duration"`
	RunCount         int          `json:"run_count"`
	CommonStartHours []HourCount  `json:"common_start_hours"`
	ByWeekday        map[int]Stat `json:"by_weekday"` // Monday=0
	ByMonth          map[int]Stat `json:"by_month"`
	ByTemperature    []BucketStat `json:"by_temperature"`
}

// Rounded returns a display copy with every mean rounded to 2 decimals.
// The receiver keeps its unrounded values.
func (p *PatternSummary) Rounded() *PatternSummary {
	if p == nil {
		return nil
	}
	out := &PatternSummary{
		AvgStartHour:     Round2(p.AvgStartHour),
		AvgDuration:      Round2(p.AvgDuration),
		RunCount:         p.RunCount,
		CommonStartHours: append([]HourCount(nil), p.CommonStartHours...),
		ByWeekday:        make(map[int]Stat, len(p.ByWeekday)),
		ByMonth:          make(map[int]Stat, len(p.ByMonth)),
		ByTemperature:    make([]BucketStat, len(p.ByTemperature)),
	}
	for k, v := range p.ByWeekday {
		out.ByWeekday[k] = v.Rounded()
	}
	for k, v := range p.ByMonth {
		out.ByMonth[k] = v.Rounded()
	}
	for i, b := range p.ByTemperature {
		out.ByTemperature[i] = BucketStat{Bucket: b.Bucket, Stat: b.Stat.Rounded()}
	}
	return out
}

// TrendSummary describes the most recent usage-log entries.
type TrendSummary struct {
	AvgHour     float64 `json:"avg_hour"`
	AvgDuration float64 `json:"avg_duration"`
	SampleSize  int     `json:"sample_size"`
}
