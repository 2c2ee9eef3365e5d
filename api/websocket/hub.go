package websocket

import (
	"sync"
	"time"

	"github.com/OldStager01/smart-pump/internal/logger"
	"github.com/OldStager01/smart-pump/pkg/config"
)

// Settings are the connection limits applied to every client.
type Settings struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	MaxMessageSize int64
	ClientBuffer   int
}

func NewSettings(cfg config.WebSocketConfig) Settings {
	s := Settings{
		WriteWait:      cfg.WriteTimeout,
		PongWait:       cfg.PongTimeout,
		PingPeriod:     cfg.PingInterval,
		MaxMessageSize: cfg.MaxMessageSize,
		ClientBuffer:   cfg.ClientBuffer,
	}
	if s.WriteWait <= 0 {
		s.WriteWait = 10 * time.Second
	}
	if s.PongWait <= 0 {
		s.PongWait = 60 * time.Second
	}
	if s.PingPeriod <= 0 || s.PingPeriod >= s.PongWait {
		s.PingPeriod = s.PongWait * 9 / 10
	}
	if s.MaxMessageSize <= 0 {
		s.MaxMessageSize = 512
	}
	if s.ClientBuffer <= 0 {
		s.ClientBuffer = 256
	}
	return s
}

type Hub struct {
	clients    map[*Client]bool
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
	settings   Settings
}

type outbound struct {
	topic string
	data  []byte
}

func NewHub(cfg config.WebSocketConfig) *Hub {
	buffer := cfg.BroadcastBuffer
	if buffer <= 0 {
		buffer = 256
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound, buffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		settings:   NewSettings(cfg),
	}
}

func (h *Hub) Settings() Settings {
	return h.settings
}

// Run serves registrations and broadcasts until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			logger.WithComponent("websocket").Infof("Client connected (total: %d)", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			logger.WithComponent("websocket").Infof("Client disconnected (total: %d)", count)

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// deliver drops clients whose send buffer is full.
func (h *Hub) deliver(msg outbound) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if !client.wants(msg.topic) {
			continue
		}
		select {
		case client.send <- msg.data:
		default:
			delete(h.clients, client)
			close(client.send)
			logger.WithComponent("websocket").Warn("Dropping slow client")
		}
	}
}

// Publish queues data for every client subscribed to topic. An empty topic
// reaches every client.
func (h *Hub) Publish(topic string, data []byte) {
	select {
	case h.broadcast <- outbound{topic: topic, data: data}:
	default:
		logger.WithComponent("websocket").Warn("Broadcast channel full, dropping message")
	}
}

func (h *Hub) Broadcast(data []byte) {
	h.Publish("", data)
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}
