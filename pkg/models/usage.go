package models

import "time"

// UsageLogEntry records one completed pump activation.
type UsageLogEntry struct {
	Date      time.Time      `json:"date"`
	StartHour float64        `json:"start_hour"`
	Duration  float64        `json:"duration"`
	Snapshot  SensorSnapshot `json:"snapshot"`
}
