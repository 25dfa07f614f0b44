package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/arunvm123/villabooking/model"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestPublishEncodesNotification(t *testing.T) {
	writer := &fakeWriter{}
	p := &Publisher{writer: writer}

	notification := model.NotificationRequest{
		Type:           model.NotificationPaymentConfirmed,
		RecipientEmail: "guest@example.com",
		BookingData:    model.NotificationBookingData{BookingID: "b-1", RoomName: "Deluxe Double Room", Nights: 3},
		Timestamp:      time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	require.NoError(t, p.Publish(context.Background(), notification))
	require.NoError(t, p.Publish(context.Background(), notification))
	require.Len(t, writer.messages, 2)

	msg := writer.messages[0]
	assert.Equal(t, "b-1", string(msg.Key))
	assert.Equal(t, model.NotificationPaymentConfirmed, string(msg.Headers[0].Value))

	var decoded model.NotificationRequest
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, notification, decoded)
}

func TestPublishWrapsWriterError(t *testing.T) {
	brokerDown := errors.New("dial tcp: connection refused")
	p := &Publisher{writer: &fakeWriter{err: brokerDown}}

	err := p.Publish(context.Background(), model.NotificationRequest{Type: model.NotificationBookingCreated})
	assert.ErrorIs(t, err, brokerDown)
}
