package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/helpdesk/internal/domain"
)

func TestProducer_PublishEvent(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	producer := newProducer(mockProducer, log.WithField("component", "kafka-producer-test"))

	mockProducer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var event OrderEvent
		if err := json.Unmarshal(val, &event); err != nil {
			return err
		}
		if event.OrderID != "123" || event.EventType != EventTypeOrderClosed {
			t.Errorf("unexpected event %+v", event)
		}
		return nil
	})

	event := NewOrderEvent(domain.OrderEvent{
		Type:    domain.EventTypeOrderClosed,
		OrderID: "123",
		Status:  domain.OrderStatusClosed,
	})
	if err := producer.PublishEvent(TopicOrderEvents, "123", event); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishEvent_Error(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	producer := newProducer(mockProducer, log.WithField("component", "kafka-producer-test"))

	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	if err := producer.PublishEvent(TopicOrderEvents, "123", map[string]string{"k": "v"}); err == nil {
		t.Fatal("expected error, got nil")
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishEvent_MarshalError(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	producer := newProducer(mockProducer, nil)

	if err := producer.PublishEvent(TopicOrderEvents, "123", make(chan int)); err == nil {
		t.Fatal("expected marshal error")
	}
	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_NilGuards(t *testing.T) {
	var producer *Producer
	if err := producer.PublishEvent(TopicOrderEvents, "k", nil); err == nil {
		t.Fatal("expected error for nil producer")
	}
	if err := producer.Close(); err != nil {
		t.Fatalf("close nil producer should not fail: %v", err)
	}
}

func TestNewOrderEvent(t *testing.T) {
	occurred := time.Date(2022, time.July, 18, 13, 0, 0, 0, time.UTC)
	event := NewOrderEvent(domain.OrderEvent{
		Type:     domain.EventTypeOrderClosed,
		OrderID:  "order-123",
		Status:   domain.OrderStatusClosed,
		Occurred: occurred,
	})

	if event.EventType != EventTypeOrderClosed {
		t.Errorf("expected event type %s, got %s", EventTypeOrderClosed, event.EventType)
	}
	if event.Status != "closed" {
		t.Errorf("expected status closed, got %s", event.Status)
	}
	if !event.Timestamp.Equal(occurred) {
		t.Errorf("expected timestamp %v, got %v", occurred, event.Timestamp)
	}
	if got := event.Domain(); got.OrderID != "order-123" || got.Status != domain.OrderStatusClosed {
		t.Errorf("unexpected domain round trip %+v", got)
	}
}

func TestNewOrderEvent_DefaultsTimestamp(t *testing.T) {
	event := NewOrderEvent(domain.OrderEvent{Type: domain.EventTypeOrderCreated, OrderID: "1"})
	if time.Since(event.Timestamp) > time.Second {
		t.Error("timestamp should be close to current time")
	}
}

func TestEventPublisher_Publish(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageAndSucceed()

	publisher := NewEventPublisher(newProducer(mockProducer, nil), "")
	err := publisher.Publish(domain.OrderEvent{
		Type:    domain.EventTypeOrderClosed,
		OrderID: "123",
		Status:  domain.OrderStatusClosed,
	})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if publisher.topic != TopicOrderEvents {
		t.Fatalf("expected default topic, got %s", publisher.topic)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestEventPublisher_Guards(t *testing.T) {
	var nilPublisher *EventPublisher
	if err := nilPublisher.Publish(domain.OrderEvent{OrderID: "1"}); err == nil {
		t.Fatal("expected error for nil publisher")
	}

	mockProducer := mocks.NewSyncProducer(t, nil)
	publisher := NewEventPublisher(newProducer(mockProducer, nil), "custom")
	if err := publisher.Publish(domain.OrderEvent{Type: domain.EventTypeOrderClosed}); err == nil {
		t.Fatal("expected error for event without order id")
	}
	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}
