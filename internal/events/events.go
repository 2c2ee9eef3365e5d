package events

import (
	"sync"
	"sync/atomic"

	"github.com/OldStager01/smart-pump/internal/logger"
	"github.com/OldStager01/smart-pump/pkg/models"
)

// EventBus fans events out to buffered subscriber channels. A slow
// subscriber loses events rather than blocking the control loop.
type EventBus struct {
	subscribers map[models.EventType][]chan *models.Event
	allChans    []chan *models.Event
	mu          sync.RWMutex
	bufferSize  int
	dropped     atomic.Int64
	closed      bool
}

func NewEventBus(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &EventBus{
		subscribers: make(map[models.EventType][]chan *models.Event),
		bufferSize:  bufferSize,
	}
}

func (b *EventBus) Subscribe(eventTypes ...models.EventType) <-chan *models.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan *models.Event, b.bufferSize)
	for _, t := range eventTypes {
		b.subscribers[t] = append(b.subscribers[t], ch)
	}
	b.allChans = append(b.allChans, ch)
	return ch
}

func (b *EventBus) SubscribeAll() <-chan *models.Event {
	return b.Subscribe(models.AllEventTypes()...)
}

func (b *EventBus) Publish(event *models.Event) {
	if b == nil || event == nil {
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, ch := range b.subscribers[event.Type] {
		select {
		case ch <- event:
		default:
			b.dropped.Add(1)
			logger.Warnf("Event channel full, dropping event: %s", event.Type)
		}
	}
}

// Dropped reports how many deliveries were lost to full subscriber channels.
func (b *EventBus) Dropped() int64 {
	if b == nil {
		return 0
	}
	return b.dropped.Load()
}

// Close closes every subscriber channel exactly once.
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for _, ch := range b.allChans {
		close(ch)
	}
	b.subscribers = make(map[models.EventType][]chan *models.Event)
	b.allChans = nil
}
