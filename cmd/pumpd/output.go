package main

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/OldStager01/smart-pump/internal/holiday"
	"github.com/OldStager01/smart-pump/internal/pattern"
	"github.com/OldStager01/smart-pump/internal/usagelog"
	"github.com/OldStager01/smart-pump/pkg/models"
)

var (
	headerColor  = color.New(color.FgHiCyan, color.Bold)
	labelColor   = color.New(color.FgCyan)
	goodColor    = color.New(color.FgHiGreen)
	warnColor    = color.New(color.FgYellow)
	holidayColor = color.New(color.FgHiMagenta)
	dimColor     = color.New(color.Faint)
)

var weekdayNames = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

func header(title string) {
	headerColor.Printf("\n== %s ==\n", strings.ToUpper(title))
}

func field(label string, format string, args ...interface{}) {
	labelColor.Printf("%-18s", label)
	fmt.Printf(format+"\n", args...)
}

// clock renders a decimal hour as HH:MM.
func clock(hour float64) string {
	h := int(hour)
	m := int(math.Round((hour - float64(h)) * 60))
	if m == 60 {
		h, m = h+1, 0
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

func reading(v float64, unit string) string {
	if math.IsNaN(v) {
		return warnColor.Sprint("n/a")
	}
	return fmt.Sprintf("%.2f %s", v, unit)
}

func printSnapshot(s *models.SensorSnapshot) {
	header("sensors")
	field("Water level", "%s", reading(s.WaterLevel, "%"))
	field("Flow rate", "%s", reading(s.FlowRate, "L/min"))
	field("Voltage", "%s", reading(s.Voltage, "V"))
	field("Current", "%s", reading(s.Current, "A"))
	field("Temperature", "%s", reading(s.Temperature, "°C"))
}

func methodColor(method models.PredictionMethod) *color.Color {
	switch method {
	case models.MethodModel:
		return goodColor
	case models.MethodHistorical:
		return labelColor
	default:
		return warnColor
	}
}

func printPrediction(p *models.PredictionOutcome, verbose bool) {
	header("prediction for " + p.TargetDate.Format("Monday, 2006-01-02"))
	field("Method", "%s", methodColor(p.Method).Sprintf("%s via %s (confidence: %s)", p.Method, p.Source, p.Confidence))
	field("Base window", "%s for %.1f min", clock(p.Base.StartHour), p.Base.DurationMinutes)
	field("Start time", "%s", goodColor.Sprint(clock(p.Final.StartHour)))
	field("Duration", "%s", goodColor.Sprintf("%.1f min", p.Final.DurationMinutes))

	adj := p.Adjustment
	if adj.Holiday.HasHoliday || adj.Weekend.IsWeekend {
		holidayColor.Printf("[ADJUST] %s\n", adj.Explanation)
		holidayColor.Printf("[ADJUST] Start time: %+.0f minutes, Duration: %+.0f minutes\n",
			adj.HourChangeMinutes, adj.DurationChangeMinutes)
	} else {
		dimColor.Println(adj.Explanation)
	}
	if adj.PreparationNeeded {
		warnColor.Println("[ALERT] Holiday preparation needed: expect higher demand")
	}

	if verbose {
		for _, r := range p.SkippedReasons {
			dimColor.Printf("  skipped %s\n", r)
		}
	}
}

func printPatterns(s *models.PatternSummary) {
	header("historical patterns")
	field("Runs", "%d", s.RunCount)
	field("Avg start", "%s (%.2f)", clock(s.AvgStartHour), s.AvgStartHour)
	field("Avg duration", "%.1f min", s.AvgDuration)

	hours := make([]string, 0, len(s.CommonStartHours))
	for _, hc := range s.CommonStartHours {
		hours = append(hours, fmt.Sprintf("%02d:00 (%d)", hc.Hour, hc.Count))
	}
	field("Common hours", "%s", strings.Join(hours, ", "))

	labelColor.Println("By weekday")
	for i, name := range weekdayNames {
		if st, ok := s.ByWeekday[i]; ok {
			fmt.Printf("  %-10s %s  %6.1f min  (%d)\n", name, clock(st.Hour), st.Duration, st.Count)
		}
	}

	labelColor.Println("By temperature")
	for _, b := range s.ByTemperature {
		if b.Stat.Count == 0 {
			continue
		}
		fmt.Printf("  %3.0f-%-3.0f°C  %s  %6.1f min  (%d)\n",
			b.Bucket.Low, b.Bucket.High, clock(b.Stat.Hour), b.Stat.Duration, b.Stat.Count)
	}
}

func printSimilar(day time.Time, records []models.HistoricalRecord) {
	header(fmt.Sprintf("days like %s", day.Format("Monday in January")))
	mean, ok := pattern.MeanOf(records)
	if !ok {
		warnColor.Println("No similar runs on record")
		return
	}
	field("Similar days", "%d", len(records))
	field("Mean", "%s for %.1f min over %d runs", clock(mean.Hour), mean.Duration, mean.Count)
}

func printTrend(ctx context.Context, store usagelog.Store) {
	entries, err := store.Recent(ctx, 7)
	if err != nil {
		return
	}
	trend, err := pattern.Trend(entries)
	if err != nil {
		dimColor.Printf("\nUsage trend needs at least 3 logged runs (have %d)\n", len(entries))
		return
	}
	header("recent usage")
	field("Avg start", "%s over last %d runs", clock(trend.AvgHour), trend.SampleSize)
	field("Avg duration", "%.1f min", trend.AvgDuration)
}

func printUpcoming(holidays []models.HolidayRecord) {
	header("upcoming holidays")
	if len(holidays) == 0 {
		dimColor.Println("None")
		return
	}
	for _, h := range holidays {
		rule := holiday.Classify(h.Event)
		tier := string(rule.Tier)
		switch rule.Tier {
		case models.TierHigh:
			tier = holidayColor.Sprint(tier)
		case models.TierMedium:
			tier = warnColor.Sprint(tier)
		}
		fmt.Printf("  %s  %-32s %s\n", h.Date.Format("Mon 2006-01-02"), h.Event, tier)
	}
}

func printImpact(day time.Time, impact models.HolidayImpact, weekend models.WeekendAdjustment) {
	header("impact for " + day.Format("2006-01-02"))
	field("Holiday", "%v (level: %s)", impact.HasHoliday, impact.ImpactLevel)
	field("Hour offset", "%+.2f h", impact.HourAdjustment)
	field("Duration x", "%.3f", impact.DurationMultiplier)
	for _, d := range impact.Details {
		fmt.Printf("  +%dd %s (%s impact, proximity %.1f)\n", d.DaysAhead, d.EventName, d.Tier, d.Proximity)
	}
	if weekend.IsWeekend {
		holidayColor.Printf("[WEEKEND] %s\n", weekend.Reason)
	}
	if impact.PreparationNeeded {
		warnColor.Println("[ALERT] Holiday preparation needed")
	}
}

func printMigrations(applied []string) {
	if len(applied) == 0 {
		dimColor.Println("Database is up to date")
		return
	}
	for _, name := range applied {
		goodColor.Printf("applied %s\n", name)
	}
}
