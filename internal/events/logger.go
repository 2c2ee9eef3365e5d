package events

import (
	"context"
	"sync"
	"time"

	"github.com/OldStager01/smart-pump/internal/logger"
	"github.com/OldStager01/smart-pump/pkg/models"
)

// Sink receives every event the logger sees, e.g. Kafka or Postgres.
type Sink interface {
	Name() string
	Write(ctx context.Context, event *models.Event) error
	Close() error
}

// EventLogger drains a subscription, writes each event to the structured
// log and forwards it to the configured sinks.
type EventLogger struct {
	eventChan <-chan *models.Event
	sinks     []Sink
	timeout   time.Duration
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

func NewEventLogger(eventChan <-chan *models.Event, sinks ...Sink) *EventLogger {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventLogger{
		eventChan: eventChan,
		sinks:     sinks,
		timeout:   5 * time.Second,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (l *EventLogger) Start() {
	l.wg.Add(1)
	go l.run()
}

// Stop cancels the drain loop, waits for it and closes the sinks.
func (l *EventLogger) Stop() {
	l.cancel()
	l.wg.Wait()
	for _, s := range l.sinks {
		if err := s.Close(); err != nil {
			logger.Warnf("Failed to close event sink %s: %v", s.Name(), err)
		}
	}
}

func (l *EventLogger) run() {
	defer l.wg.Done()
	for {
		select {
		case <-l.ctx.Done():
			return
		case event, ok := <-l.eventChan:
			if !ok {
				return
			}
			l.processEvent(event)
		}
	}
}

func (l *EventLogger) processEvent(event *models.Event) {
	entry := logger.WithFields(map[string]interface{}{
		"event_type": event.Type,
		"event_id":   event.ID,
		"severity":   event.Severity,
		"cycle":      event.Cycle,
	})

	switch event.Severity {
	case models.SeverityCritical:
		entry.Error(event.Message)
	case models.SeverityWarning:
		entry.Warn(event.Message)
	default:
		entry.Debug(event.Message)
	}

	for _, s := range l.sinks {
		ctx, cancel := context.WithTimeout(l.ctx, l.timeout)
		if err := s.Write(ctx, event); err != nil {
			logger.Errorf("Failed to write event to %s: %v", s.Name(), err)
		}
		cancel()
	}
}
