package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/codgamerofficial/Kultzr/internal/domain"
)

// StatusEvent is the inbound notification shape from the print-on-demand
// and shipping collaborators.
type StatusEvent struct {
	OrderID        string    `json:"order_id"`
	NewStatus      string    `json:"new_status"`
	Timestamp      time.Time `json:"timestamp"`
	TrackingNumber string    `json:"tracking_number,omitempty"`
}

// StatusApplier moves an order through its lifecycle; implemented by the
// order service.
type StatusApplier interface {
	ApplyFulfillmentEvent(ctx context.Context, orderID uuid.UUID, newStatus domain.OrderStatus, at time.Time, trackingNumber string) error
}

// messageReader is the slice of kafka.Reader the consumer loop needs.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Consumer struct {
	svc        StatusApplier
	reader     messageReader
	retryDelay time.Duration
}

func NewConsumer(svc StatusApplier, brokers ...string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    "fulfillment-events",
		GroupID:  "storefront",
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{svc: svc, reader: reader, retryDelay: time.Second}
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := c.processMessage(ctx); err != nil {
			// A broken broker connection fails ReadMessage immediately;
			// waiting keeps the loop from spinning hot while it is down.
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.retryDelay):
			}
		}
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		log.Printf("error closing kafka reader: %v", err)
	}
}

// processMessage reads and handles one message. Only read failures are
// returned; a message that cannot be handled is dropped, not retried.
func (c *Consumer) processMessage(ctx context.Context) error {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		log.Printf("error reading message: %v", err)
		return err
	}

	if err := c.handleEvent(ctx, m.Value); err != nil {
		// Malformed payloads and illegal transitions are dropped, never
		// allowed to wedge the pipeline.
		log.Printf("dropping fulfillment event: %v", err)
	}
	return nil
}

func (c *Consumer) handleEvent(ctx context.Context, payload []byte) error {
	var event StatusEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("parse event: %w", err)
	}

	orderID, err := uuid.Parse(event.OrderID)
	if err != nil {
		return fmt.Errorf("invalid order_id %q: %w", event.OrderID, err)
	}

	status := domain.OrderStatus(event.NewStatus)
	if !status.IsValid() {
		return fmt.Errorf("unknown status %q for order %s", event.NewStatus, event.OrderID)
	}

	at := event.Timestamp
	if at.IsZero() {
		at = time.Now()
	}

	if err := c.svc.ApplyFulfillmentEvent(ctx, orderID, status, at, event.TrackingNumber); err != nil {
		return fmt.Errorf("apply %s to order %s: %w", status, event.OrderID, err)
	}

	log.Printf("order %s moved to %s", event.OrderID, status)
	return nil
}
