package websocket

import (
	"encoding/json"
	"time"
)

type MessageType string

const (
	MessageTypeEvent        MessageType = "event"
	MessageTypeStatus       MessageType = "status"
	MessageTypeSubscription MessageType = "subscription_update"
)

type OutgoingMessage struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

func NewMessage(msgType MessageType, data interface{}) *OutgoingMessage {
	return &OutgoingMessage{
		Type:      msgType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

func (m *OutgoingMessage) JSON() []byte {
	data, _ := json.Marshal(m)
	return data
}

type SubscriptionData struct {
	Action string   `json:"action"`
	Topics []string `json:"topics"`
}

// EventData is the client-facing form of a pump event.
type EventData struct {
	ID       string      `json:"id"`
	Kind     string      `json:"kind"`
	Cycle    int64       `json:"cycle,omitempty"`
	Severity string      `json:"severity"`
	Message  string      `json:"message"`
	Payload  interface{} `json:"payload,omitempty"`
}
