// Package publisher announces booking lifecycle events to the notification worker.
package publisher

import (
	"context"
	"log"

	"github.com/arunvm123/villabooking/model"
)

type Publisher interface {
	Publish(ctx context.Context, notification model.NotificationRequest) error
	Close() error
}

// Noop is used when Kafka is disabled. It only logs the event.
type Noop struct{}

func (Noop) Publish(ctx context.Context, notification model.NotificationRequest) error {
	log.Printf("Notifications disabled, dropping %s for booking %s",
		notification.Type, notification.BookingData.BookingID)
	return nil
}

func (Noop) Close() error {
	return nil
}
