package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/Domenick1991/tourbooking/internal/domain"
)

type Consumer struct {
	reader *kafka.Reader
	logger *zap.Logger
}

func NewConsumer(brokers []string, groupID, topic string, logger *zap.Logger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           brokers,
			GroupID:           groupID,
			Topic:             topic,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
		}),
		logger: logger,
	}
}

func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// Consume reads until ctx ends or a read fails. Undecodable messages are
// logged and skipped; handler errors stop the loop.
func (c *Consumer) Consume(ctx context.Context, handler func(context.Context, domain.BookingEvent) error) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			return err
		}

		event, err := DecodeBookingEvent(msg.Value)
		if err != nil {
			c.logger.Warn("skipping malformed booking event",
				zap.String("topic", msg.Topic),
				zap.Int64("offset", msg.Offset),
				zap.Error(err))
			continue
		}
		if err := handler(ctx, event); err != nil {
			return err
		}
	}
}

func DecodeBookingEvent(data []byte) (domain.BookingEvent, error) {
	var event domain.BookingEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return domain.BookingEvent{}, fmt.Errorf("decode booking event: %w", err)
	}
	if event.Type == "" || event.BookingID == 0 {
		return domain.BookingEvent{}, fmt.Errorf("decode booking event: missing type or booking id")
	}
	return event, nil
}
