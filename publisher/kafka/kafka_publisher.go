package kafka

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/arunvm123/villabooking/model"
	"github.com/segmentio/kafka-go"
)

// Pool for JSON encoding buffers
var jsonBufferPool = sync.Pool{
	New: func() interface{} {
		return &bytes.Buffer{}
	},
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Publisher struct {
	writer messageWriter
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 50 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
	}
}

// Publish writes the notification keyed by booking id so events for one
// booking stay ordered within a partition.
func (p *Publisher) Publish(ctx context.Context, notification model.NotificationRequest) error {
	buf := jsonBufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		jsonBufferPool.Put(buf)
	}()

	if err := json.NewEncoder(buf).Encode(notification); err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	// The writer may keep the value until the batch is flushed.
	value := make([]byte, buf.Len())
	copy(value, buf.Bytes())

	err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(notification.BookingData.BookingID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(notification.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s notification: %w", notification.Type, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
