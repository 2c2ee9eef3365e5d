package websocket

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/OldStager01/smart-pump/internal/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one dashboard connection. With no topics it receives every
// message; otherwise only messages whose type it subscribed to.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	topics map[string]bool
}

type IncomingMessage struct {
	Type   string   `json:"type"`
	Topics []string `json:"topics,omitempty"`
}

func NewClient(hub *Hub, conn *websocket.Conn, topics []string) *Client {
	c := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, hub.settings.ClientBuffer),
		topics: make(map[string]bool),
	}
	c.setTopics(topics)
	return c
}

func (c *Client) wants(topic string) bool {
	if topic == "" {
		return true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.topics) == 0 || c.topics[topic]
}

func (c *Client) setTopics(topics []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topics = make(map[string]bool, len(topics))
	for _, t := range topics {
		if t = strings.TrimSpace(t); t != "" {
			c.topics[t] = true
		}
	}
}

func (c *Client) Topics() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.topics))
	for t := range c.topics {
		out = append(out, t)
	}
	return out
}

func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	settings := c.hub.settings
	c.conn.SetReadLimit(settings.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(settings.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(settings.PongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.WithComponent("websocket").Errorf("Read error: %v", err)
			}
			return
		}

		var msg IncomingMessage
		if err := json.Unmarshal(message, &msg); err == nil {
			c.handleMessage(&msg)
		}
	}
}

func (c *Client) WritePump() {
	settings := c.hub.settings
	ticker := time.NewTicker(settings.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(settings.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(settings.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(msg *IncomingMessage) {
	switch msg.Type {
	case "subscribe":
		c.setTopics(msg.Topics)
		c.confirm("subscribed")
	case "unsubscribe":
		c.setTopics(nil)
		c.confirm("unsubscribed")
	}
}

func (c *Client) confirm(action string) {
	data := NewMessage(MessageTypeSubscription, SubscriptionData{
		Action: action,
		Topics: c.Topics(),
	}).JSON()

	select {
	case c.send <- data:
	default:
		logger.WithComponent("websocket").Warn("Client send channel full, dropping confirmation")
	}
}

// ServeWebSocket upgrades the request. ?topics=a,b preselects event types.
func ServeWebSocket(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.WithComponent("websocket").Errorf("Upgrade failed: %v", err)
			return
		}

		var topics []string
		if raw := c.Query("topics"); raw != "" {
			topics = strings.Split(raw, ",")
		}

		client := NewClient(hub, conn, topics)
		hub.Register(client)

		go client.WritePump()
		go client.ReadPump()
	}
}
