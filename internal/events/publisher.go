package events

import (
	"fmt"

	"github.com/OldStager01/smart-pump/pkg/models"
)

// Publisher builds typed events for the control loop. A nil Publisher
// discards everything.
type Publisher struct {
	bus *EventBus
}

func NewPublisher(bus *EventBus) *Publisher {
	return &Publisher{bus: bus}
}

func (p *Publisher) publish(event *models.Event) {
	if p == nil || p.bus == nil {
		return
	}
	p.bus.Publish(event)
}

func (p *Publisher) SensorRead(cycle int64, snap *models.SensorSnapshot) {
	p.publish(models.NewEvent(models.EventTypeSensorRead, "Sensor snapshot read").
		WithCycle(cycle).
		WithData(snap))
}

func (p *Publisher) SensorInvalid(cycle int64, err error) {
	p.publish(models.NewEvent(models.EventTypeSensorInvalid, "Sensor snapshot rejected").
		WithCycle(cycle).
		WithSeverity(models.SeverityWarning).
		WithData(map[string]interface{}{"error": err.Error()}))
}

func (p *Publisher) PredictionMade(cycle int64, outcome *models.PredictionOutcome) {
	msg := fmt.Sprintf("Predicted %.2fh for %.1f min via %s",
		outcome.Final.StartHour, outcome.Final.DurationMinutes, outcome.Source)
	p.publish(models.NewEvent(models.EventTypePredictionMade, msg).
		WithCycle(cycle).
		WithData(outcome))

	if outcome.Adjustment.PreparationNeeded {
		p.publish(models.NewEvent(models.EventTypeHolidayAlert, "Holiday preparation needed: "+outcome.Adjustment.Explanation).
			WithCycle(cycle).
			WithSeverity(models.SeverityWarning).
			WithData(outcome.Adjustment.Holiday))
	}
}

func (p *Publisher) Waiting(cycle int64, currentHour, targetHour, hoursUntil float64) {
	msg := fmt.Sprintf("Waiting %.2fh until %.2fh", hoursUntil, targetHour)
	p.publish(models.NewEvent(models.EventTypeWaiting, msg).
		WithCycle(cycle).
		WithData(map[string]float64{
			"current_hour": currentHour,
			"target_hour":  targetHour,
			"hours_until":  hoursUntil,
		}))
}

func (p *Publisher) PumpActivated(cycle int64, window models.Window) {
	msg := fmt.Sprintf("Pump on for %.1f min", window.DurationMinutes)
	p.publish(models.NewEvent(models.EventTypePumpActivated, msg).
		WithCycle(cycle).
		WithData(window))
}

func (p *Publisher) PumpDeactivated(cycle int64, err error) {
	event := models.NewEvent(models.EventTypePumpDeactivated, "Pump off").WithCycle(cycle)
	if err != nil {
		event.Message = "Pump off failed"
		event.WithSeverity(models.SeverityCritical).
			WithData(map[string]interface{}{"error": err.Error()})
	}
	p.publish(event)
}

func (p *Publisher) UsageLogged(cycle int64, entry models.UsageLogEntry) {
	p.publish(models.NewEvent(models.EventTypeUsageLogged, "Usage entry recorded").
		WithCycle(cycle).
		WithData(map[string]interface{}{
			"date":       models.DateKey(entry.Date),
			"start_hour": entry.StartHour,
			"duration":   entry.Duration,
		}))
}

func (p *Publisher) CycleError(cycle int64, err error) {
	p.publish(models.NewEvent(models.EventTypeCycleError, "Cycle failed: "+err.Error()).
		WithCycle(cycle).
		WithSeverity(models.SeverityCritical).
		WithData(map[string]interface{}{"error": err.Error()}))
}
