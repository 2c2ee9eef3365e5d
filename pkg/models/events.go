package models

import "time"

type EventType string

const (
	EventTypeSensorRead      EventType = "sensor_read"
	EventTypeSensorInvalid   EventType = "sensor_invalid"
	EventTypePredictionMade  EventType = "prediction_made"
	EventTypeWaiting         EventType = "waiting"
	EventTypePumpActivated   EventType = "pump_activated"
	EventTypePumpDeactivated EventType = "pump_deactivated"
	EventTypeUsageLogged     EventType = "usage_logged"
	EventTypeHolidayAlert    EventType = "holiday_alert"
	EventTypeCycleError      EventType = "cycle_error"
)

type EventSeverity string

const (
	SeverityInfo     EventSeverity = "info"
	SeverityWarning  EventSeverity = "warning"
	SeverityCritical EventSeverity = "critical"
)

// Event represents an internal system event
type Event struct {
	ID        string        `json:"id"`
	Type      EventType     `json:"type"`
	Severity  EventSeverity `json:"severity"`
	Cycle     int64         `json:"cycle,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Message   string        `json:"message"`
	Data      interface{}   `json:"data,omitempty"`
}

func NewEvent(eventType EventType, message string) *Event {
	return &Event{
		ID:        NewUUID(),
		Type:      eventType,
		Severity:  SeverityInfo,
		Timestamp: time.Now(),
		Message:   message,
	}
}

func (e *Event) WithSeverity(severity EventSeverity) *Event {
	e.Severity = severity
	return e
}

func (e *Event) WithData(data interface{}) *Event {
	e.Data = data
	return e
}

func (e *Event) WithCycle(cycle int64) *Event {
	e.Cycle = cycle
	return e
}

// AllEventTypes lists every event type the bus can carry.
func AllEventTypes() []EventType {
	return []EventType{
		EventTypeSensorRead,
		EventTypeSensorInvalid,
		EventTypePredictionMade,
		EventTypeWaiting,
		EventTypePumpActivated,
		EventTypePumpDeactivated,
		EventTypeUsageLogged,
		EventTypeHolidayAlert,
		EventTypeCycleError,
	}
}
