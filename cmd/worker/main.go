package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/arunvm123/villabooking/config"
	"github.com/arunvm123/villabooking/worker"
	"github.com/segmentio/kafka-go"
)

func main() {
	fmt.Println("Starting Villa Notification Worker")

	// Load configuration
	cfg, err := config.InitialiseWorker("config.yaml", false)
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	if !cfg.Kafka.Enabled {
		log.Fatal("Kafka is disabled in configuration, nothing to consume")
	}

	// Setup Kafka consumer
	consumer := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.NotificationTopic,
		GroupID: cfg.Kafka.ConsumerGroup,
	})
	defer consumer.Close()

	processor := worker.NewNotificationProcessor(consumer, worker.LogSender{}, cfg.Worker.MaxWorkers)

	// Graceful shutdown context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("Received shutdown signal, stopping worker...")
		cancel()
	}()

	if err := processor.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("Worker error:", err)
	}

	fmt.Println("Worker stopped gracefully")
}
