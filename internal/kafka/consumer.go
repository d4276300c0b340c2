package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// EventHandler processes one decoded appointment event.
type EventHandler func(ctx context.Context, event AppointmentEvent) error

type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(brokers []string, groupID, topic string) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           brokers,
			GroupID:           groupID,
			Topic:             topic,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
		}),
	}
}

func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// Consume reads appointment events until the context is canceled or the
// handler fails. Messages that do not decode as an AppointmentEvent are
// logged and skipped; a poisoned message must not stall the group.
func (c *Consumer) Consume(ctx context.Context, handler EventHandler) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			return err
		}

		event, err := decodeEvent(msg.Value)
		if err != nil {
			log.Printf("WARNING: skipping undecodable message at offset %d: %v", msg.Offset, err)
			continue
		}

		if err := handler(ctx, event); err != nil {
			return err
		}
	}
}

func decodeEvent(value []byte) (AppointmentEvent, error) {
	var event AppointmentEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return AppointmentEvent{}, fmt.Errorf("decode appointment event: %w", err)
	}
	if event.Type == "" {
		return AppointmentEvent{}, fmt.Errorf("appointment event without a type")
	}
	return event, nil
}
