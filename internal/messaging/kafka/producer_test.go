package kafka

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"
)

func TestProducer_PublishEvent(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-producer-test"),
	}

	mockProducer.ExpectSendMessageAndSucceed()

	event := NewFulfillmentEvent(
		EventTypeOrderCreated,
		"test-order-123",
		map[string]interface{}{
			"customer_id": "cust-1",
		},
	)

	err := producer.PublishEvent(TopicOrderEvents, "test-order-123", event)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishEvent_Error(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-producer-test"),
	}

	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	event := NewFulfillmentEvent(EventTypeOrderCreated, "test-order-123", nil)

	err := producer.PublishEvent(TopicOrderEvents, "test-order-123", event)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishEvent_SerializesEventAsJSON(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-producer-test"),
	}

	mockProducer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(value []byte) error {
		var decoded FulfillmentEvent
		if err := json.Unmarshal(value, &decoded); err != nil {
			return err
		}
		if decoded.EventType != EventTypeOrderCancelled {
			return fmt.Errorf("unexpected event type %q", decoded.EventType)
		}
		if decoded.OrderID != "order-7" {
			return fmt.Errorf("unexpected order id %q", decoded.OrderID)
		}
		return nil
	})

	event := NewFulfillmentEvent(EventTypeOrderCancelled, "order-7", nil)
	if err := producer.PublishEvent(TopicOrderEvents, "order-7", event); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestNewFulfillmentEvent(t *testing.T) {
	orderID := "order-123"
	metadata := map[string]interface{}{
		"customer_id":  "cust-1",
		"amount_minor": 1000,
	}

	event := NewFulfillmentEvent(EventTypeOrderConfirmed, orderID, metadata)

	if event.EventType != EventTypeOrderConfirmed {
		t.Errorf("expected event type %s, got %s", EventTypeOrderConfirmed, event.EventType)
	}

	if event.OrderID != orderID {
		t.Errorf("expected order id %s, got %s", orderID, event.OrderID)
	}

	if event.Metadata["customer_id"] != "cust-1" {
		t.Error("metadata not set correctly")
	}

	if event.Timestamp.IsZero() {
		t.Error("timestamp should not be zero")
	}

	if time.Since(event.Timestamp) > time.Second {
		t.Error("timestamp should be close to current time")
	}
}
