package actuator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/OldStager01/smart-pump/internal/logger"
)

// MQTTPump drives a networked relay by publishing {"state":"on"|"off"}
// as a retained message, so a relay that reconnects picks up the last
// command.
type MQTTPump struct {
	client  mqtt.Client
	topic   string
	qos     byte
	timeout time.Duration

	mu sync.RWMutex
	on bool
}

type MQTTConfig struct {
	Broker         string
	Topic          string
	ClientID       string
	QoS            int
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
}

type relayCommand struct {
	State string    `json:"state"`
	At    time.Time `json:"at"`
}

// NewMQTTPump connects to the broker. The connection is kept for the
// process lifetime with automatic reconnects.
func NewMQTTPump(cfg MQTTConfig) (*MQTTPump, error) {
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.WithComponent("actuator").Warnf("MQTT connection lost: %v", err)
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.ConnectTimeout) {
		return nil, fmt.Errorf("%w: timed out connecting to %s", ErrActuationFailed, cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrActuationFailed, err)
	}

	logger.WithComponent("actuator").Infof("Connected to MQTT broker %s", cfg.Broker)
	return NewMQTTPumpWithClient(client, cfg), nil
}

// NewMQTTPumpWithClient wraps an already connected client.
func NewMQTTPumpWithClient(client mqtt.Client, cfg MQTTConfig) *MQTTPump {
	if cfg.PublishTimeout == 0 {
		cfg.PublishTimeout = 5 * time.Second
	}
	return &MQTTPump{
		client:  client,
		topic:   cfg.Topic,
		qos:     byte(cfg.QoS),
		timeout: cfg.PublishTimeout,
	}
}

func (p *MQTTPump) SetOutput(ctx context.Context, on bool) error {
	payload, err := json.Marshal(relayCommand{State: stateName(on), At: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrActuationFailed, err)
	}

	token := p.client.Publish(p.topic, p.qos, true, payload)

	timeout := p.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d < timeout {
			timeout = d
		}
	}

	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(timeout):
		return fmt.Errorf("%w: publish to %s timed out", ErrActuationFailed, p.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrActuationFailed, err)
	}

	p.mu.Lock()
	p.on = on
	p.mu.Unlock()

	logger.WithComponent("actuator").Infof("Pump switched %s via %s", stateName(on), p.topic)
	return nil
}

func (p *MQTTPump) IsOn() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.on
}

func (p *MQTTPump) Close() error {
	p.client.Disconnect(250)
	return nil
}
