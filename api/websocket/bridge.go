package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/OldStager01/smart-pump/internal/logger"
	"github.com/OldStager01/smart-pump/pkg/models"
)

// EventBridge forwards control loop events to websocket clients, using
// the event type as the topic.
type EventBridge struct {
	hub        *Hub
	eventsChan <-chan *models.Event
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

func NewEventBridge(hub *Hub, eventsChan <-chan *models.Event) *EventBridge {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventBridge{
		hub:        hub,
		eventsChan: eventsChan,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (b *EventBridge) Start() {
	b.wg.Add(1)
	go b.run()
}

func (b *EventBridge) Stop() {
	b.cancel()
	b.wg.Wait()
}

func (b *EventBridge) run() {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case event, ok := <-b.eventsChan:
			if !ok {
				return
			}
			b.forward(event)
		}
	}
}

func (b *EventBridge) forward(event *models.Event) {
	// sensor_read fires every cycle and is too chatty for dashboards
	if event.Type == models.EventTypeSensorRead {
		return
	}

	msg := &OutgoingMessage{
		Type:      MessageTypeEvent,
		Timestamp: event.Timestamp,
		Data: EventData{
			ID:       event.ID,
			Kind:     string(event.Type),
			Cycle:    event.Cycle,
			Severity: string(event.Severity),
			Message:  event.Message,
			Payload:  event.Data,
		},
	}

	data, err := json.Marshal(msg)
	if err != nil {
		logger.WithComponent("websocket").Errorf("Failed to marshal event %s: %v", event.Type, err)
		return
	}
	b.hub.Publish(string(event.Type), data)
}
