package kafka

import (
	"time"

	"github.com/vladislavdragonenkov/helpdesk/internal/domain"
)

// EventType определяет тип события
type EventType string

const (
	EventTypeOrderCreated EventType = domain.EventTypeOrderCreated
	EventTypeOrderClosed  EventType = domain.EventTypeOrderClosed
)

// Topics для Kafka
const (
	TopicOrderEvents     = "helpdesk.order.events"
	TopicDeadLetterQueue = "helpdesk.dlq"
)

// Kafka headers
const (
	HeaderEventType     = "x-event-type"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
)

// OrderEvent: JSON-представление события заявки в топике.
type OrderEvent struct {
	EventType EventType      `json:"event_type"`
	OrderID   string         `json:"order_id"`
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewOrderEvent строит сообщение из доменного события. Нулевое время
// заменяется текущим.
func NewOrderEvent(event domain.OrderEvent) *OrderEvent {
	occurred := event.Occurred
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	return &OrderEvent{
		EventType: EventType(event.Type),
		OrderID:   event.OrderID,
		Status:    string(event.Status),
		Timestamp: occurred,
	}
}

// Domain возвращает доменное событие.
func (e OrderEvent) Domain() domain.OrderEvent {
	return domain.OrderEvent{
		Type:     string(e.EventType),
		OrderID:  e.OrderID,
		Status:   domain.OrderStatus(e.Status),
		Occurred: e.Timestamp,
	}
}
