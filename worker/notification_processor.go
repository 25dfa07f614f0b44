package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arunvm123/villabooking/model"
	"github.com/segmentio/kafka-go"
)

// Pool for notification request objects
var notificationRequestPool = sync.Pool{
	New: func() interface{} {
		return &model.NotificationRequest{}
	},
}

// resetNotificationRequest clears a notification request for reuse
func resetNotificationRequest(req *model.NotificationRequest) {
	req.Type = ""
	req.RecipientEmail = ""
	req.BookingData = model.NotificationBookingData{}
	req.Timestamp = time.Time{}
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// EmailSender delivers a rendered email.
type EmailSender interface {
	Send(ctx context.Context, email *model.EmailTemplate) error
}

// LogSender simulates email sending by logging to console
type LogSender struct{}

func (LogSender) Send(ctx context.Context, email *model.EmailTemplate) error {
	log.Printf("MOCK EMAIL SENT:\n%s", email.String())
	return nil
}

type NotificationProcessor struct {
	consumer messageReader
	sender   EmailSender

	// Worker pool for managing goroutines
	workerPool chan chan kafka.Message
	workers    []*NotificationWorker

	// Metrics
	processedCount int64
	failedCount    int64
	activeWorkers  int64

	metricsInterval time.Duration
	shutdownTimeout time.Duration
}

type NotificationWorker struct {
	id         int
	processor  *NotificationProcessor
	jobChannel chan kafka.Message
	workerPool chan chan kafka.Message
	quit       chan struct{}
	done       chan struct{}
}

func NewNotificationProcessor(consumer messageReader, sender EmailSender, maxWorkers int) *NotificationProcessor {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}

	processor := &NotificationProcessor{
		consumer:        consumer,
		sender:          sender,
		workerPool:      make(chan chan kafka.Message, maxWorkers),
		workers:         make([]*NotificationWorker, maxWorkers),
		metricsInterval: 30 * time.Second,
		shutdownTimeout: 30 * time.Second,
	}

	// Initialize worker pool
	for i := 0; i < maxWorkers; i++ {
		processor.workers[i] = &NotificationWorker{
			id:         i,
			processor:  processor,
			jobChannel: make(chan kafka.Message),
			workerPool: processor.workerPool,
			quit:       make(chan struct{}),
			done:       make(chan struct{}),
		}
	}

	return processor
}

// Start reads notifications from Kafka until ctx is cancelled
func (p *NotificationProcessor) Start(ctx context.Context) error {
	log.Printf("Starting notification processor with %d workers...", len(p.workers))

	for _, worker := range p.workers {
		worker.start()
	}

	go p.reportMetrics(ctx)

	defer p.shutdown()

	for {
		select {
		case <-ctx.Done():
			log.Println("Notification processor shutting down...")
			return ctx.Err()
		default:
		}

		msg, err := p.consumer.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.Printf("Error reading message: %v", err)
			continue
		}

		// Dispatch to worker pool (blocks if all workers busy)
		select {
		case jobChannel := <-p.workerPool:
			jobChannel <- msg
		case <-ctx.Done():
			log.Printf("Dropping notification at offset %d during shutdown", msg.Offset)
			return ctx.Err()
		}
	}
}

func (w *NotificationWorker) start() {
	go func() {
		defer close(w.done)
		for {
			// Register this worker in the pool
			w.workerPool <- w.jobChannel

			select {
			case job := <-w.jobChannel:
				atomic.AddInt64(&w.processor.activeWorkers, 1)

				if err := w.processor.processNotification(job); err != nil {
					atomic.AddInt64(&w.processor.failedCount, 1)
					log.Printf("Worker %d error processing notification: %v", w.id, err)
				} else {
					atomic.AddInt64(&w.processor.processedCount, 1)
				}

				atomic.AddInt64(&w.processor.activeWorkers, -1)

			case <-w.quit:
				return
			}
		}
	}()
}

// shutdown stops all workers, waiting for in-flight emails up to the timeout
func (p *NotificationProcessor) shutdown() {
	log.Println("Shutting down notification workers...")

	for _, worker := range p.workers {
		close(worker.quit)
	}

	timeout := time.After(p.shutdownTimeout)
	for _, worker := range p.workers {
		select {
		case <-worker.done:
		case <-timeout:
			log.Println("Shutdown timeout reached, forcing exit")
			return
		}
	}
	log.Println("All workers finished gracefully")
}

// reportMetrics logs performance metrics
func (p *NotificationProcessor) reportMetrics(ctx context.Context) {
	ticker := time.NewTicker(p.metricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			log.Printf("Notification Processor Metrics - Processed: %d, Failed: %d, Active Workers: %d",
				p.Processed(), atomic.LoadInt64(&p.failedCount), atomic.LoadInt64(&p.activeWorkers))
		}
	}
}

func (p *NotificationProcessor) Processed() int64 {
	return atomic.LoadInt64(&p.processedCount)
}

func (p *NotificationProcessor) Failed() int64 {
	return atomic.LoadInt64(&p.failedCount)
}

func (p *NotificationProcessor) processNotification(msg kafka.Message) error {
	notification := notificationRequestPool.Get().(*model.NotificationRequest)
	defer func() {
		resetNotificationRequest(notification)
		notificationRequestPool.Put(notification)
	}()

	if err := json.Unmarshal(msg.Value, notification); err != nil {
		return fmt.Errorf("failed to unmarshal notification request: %w", err)
	}

	log.Printf("Processing notification: %s for %s", notification.Type, notification.RecipientEmail)

	email, err := notification.GenerateEmail()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := p.sender.Send(ctx, email); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	log.Printf("Successfully sent %s email to %s for booking %s",
		notification.Type, notification.RecipientEmail, notification.BookingData.BookingID)
	return nil
}
