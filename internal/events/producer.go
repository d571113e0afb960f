package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ktezcan/fintrack/internal/models"
	"github.com/segmentio/kafka-go"
)

// Producer publishes record-change notifications so connected clients can
// re-render after a mutation.
type Producer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer creates a Kafka producer for change events.
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
	}
}

// PublishRecordPut publishes a record created/updated event.
func (p *Producer) PublishRecordPut(ctx context.Context, userID, kind, id string) error {
	return p.publish(ctx, models.ChangeEvent{
		EventType: models.EventRecordPut,
		UserID:    userID,
		Kind:      kind,
		RecordID:  id,
		Timestamp: time.Now(),
	})
}

// PublishRecordDeleted publishes a record deleted event.
func (p *Producer) PublishRecordDeleted(ctx context.Context, userID, kind, id string) error {
	return p.publish(ctx, models.ChangeEvent{
		EventType: models.EventRecordDeleted,
		UserID:    userID,
		Kind:      kind,
		RecordID:  id,
		Timestamp: time.Now(),
	})
}

func (p *Producer) publish(ctx context.Context, event models.ChangeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.UserID + ":" + event.Kind),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka producer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
