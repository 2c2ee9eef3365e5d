package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/OldStager01/smart-pump/pkg/database"
	"github.com/OldStager01/smart-pump/pkg/database/queries"
	"github.com/OldStager01/smart-pump/pkg/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes events as JSON keyed by event type, so all events of
// one type land on the same partition in order.
type KafkaSink struct {
	writer messageWriter
	topic  string
}

type KafkaConfig struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

func NewKafkaSink(cfg KafkaConfig) *KafkaSink {
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			WriteTimeout: cfg.WriteTimeout,
		},
		topic: cfg.Topic,
	}
}

func (k *KafkaSink) Name() string { return "kafka:" + k.topic }

func (k *KafkaSink) Write(ctx context.Context, event *models.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Type),
		Value: value,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.ID)},
			{Key: "severity", Value: []byte(event.Severity)},
		},
	})
}

func (k *KafkaSink) Close() error {
	return k.writer.Close()
}

// DatabaseSink persists events to the pump_events table.
type DatabaseSink struct {
	repo *queries.EventRepository
}

func NewDatabaseSink(db *database.DB) *DatabaseSink {
	return &DatabaseSink{repo: queries.NewEventRepository(db.DB)}
}

func (d *DatabaseSink) Name() string { return "postgres" }

func (d *DatabaseSink) Write(ctx context.Context, event *models.Event) error {
	return d.repo.Insert(ctx, event)
}

func (d *DatabaseSink) Close() error { return nil }
