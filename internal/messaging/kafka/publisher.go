package kafka

import (
	"fmt"

	"github.com/IBM/sarama"

	"github.com/vladislavdragonenkov/helpdesk/internal/domain"
)

// EventPublisher отправляет доменные события заявок в Kafka topic.
// Ключ сообщения: ID заявки, поэтому события одной заявки упорядочены.
type EventPublisher struct {
	producer *Producer
	topic    string
}

// NewEventPublisher создаёт паблишер. Пустой topic означает TopicOrderEvents.
func NewEventPublisher(producer *Producer, topic string) *EventPublisher {
	if topic == "" {
		topic = TopicOrderEvents
	}
	return &EventPublisher{producer: producer, topic: topic}
}

// Publish реализует domain.EventPublisher.
func (p *EventPublisher) Publish(event domain.OrderEvent) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka event publisher is not initialized")
	}
	if event.OrderID == "" {
		return fmt.Errorf("order event without order id")
	}

	return p.producer.PublishEvent(p.topic, event.OrderID, NewOrderEvent(event), sarama.RecordHeader{
		Key:   []byte(HeaderEventType),
		Value: []byte(event.Type),
	})
}

var _ domain.EventPublisher = (*EventPublisher)(nil)
