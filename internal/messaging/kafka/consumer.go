package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

// OrderEventHandler обрабатывает разобранное событие заявки.
type OrderEventHandler func(ctx context.Context, event OrderEvent) error

// Consumer читает события заявок из consumer group. Сообщения, которые не
// разбираются как OrderEvent или не обработаны за RetryConfig.MaxAttempts попыток,
// уходят в DLQ.
type Consumer struct {
	consumer    sarama.ConsumerGroup
	topics      []string
	handler     OrderEventHandler
	logger      *log.Entry
	wg          sync.WaitGroup
	dlqProducer *Producer
	retry       RetryConfig
}

// ConsumerOption настраивает Consumer.
type ConsumerOption func(*Consumer)

// WithDeadLetterProducer включает отправку необработанных сообщений в DLQ.
func WithDeadLetterProducer(p *Producer) ConsumerOption {
	return func(c *Consumer) { c.dlqProducer = p }
}

// WithMaxAttempts задаёт число попыток обработки одного сообщения.
func WithMaxAttempts(n int) ConsumerOption {
	return func(c *Consumer) {
		if n > 0 {
			c.retry.MaxAttempts = n
		}
	}
}

// WithRetry задаёт число попыток и задержки между ними.
func WithRetry(rc RetryConfig) ConsumerOption {
	return func(c *Consumer) { c.retry = rc }
}

// WithConsumerLogger подменяет логгер.
func WithConsumerLogger(logger *log.Entry) ConsumerOption {
	return func(c *Consumer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewConsumer подключается к consumer group groupID на топике событий заявок.
func NewConsumer(brokers []string, groupID string, handler OrderEventHandler, opts ...ConsumerOption) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.Strategy = sarama.NewBalanceStrategyRoundRobin()
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	config.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}
	return newConsumer(group, []string{TopicOrderEvents}, handler, opts...), nil
}

func newConsumer(group sarama.ConsumerGroup, topics []string, handler OrderEventHandler, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		consumer:    group,
		topics:      topics,
		handler:     handler,
		logger:      log.WithField("component", "kafka-consumer"),
		retry:       DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start запускает чтение в фоне до отмены ctx.
func (c *Consumer) Start(ctx context.Context) error {
	if c.handler == nil {
		return errors.New("kafka consumer handler is nil")
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			// Consume возвращается при каждом rebalance.
			if err := c.consumer.Consume(ctx, c.topics, c); err != nil {
				c.logger.WithError(err).Error("error from consumer")
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for err := range c.consumer.Errors() {
			c.logger.WithError(err).Error("consumer error")
		}
	}()

	c.logger.WithField("topics", c.topics).Info("kafka consumer started")
	return nil
}

// Stop закрывает consumer group и ждёт фоновые горутины.
func (c *Consumer) Stop() error {
	if err := c.consumer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka consumer: %w", err)
	}
	c.wg.Wait()
	c.logger.Info("kafka consumer stopped")
	return nil
}

// Setup вызывается при старте consumer session
func (c *Consumer) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

// Cleanup вызывается при завершении consumer session
func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim обрабатывает сообщения партиции. Сообщение помечается
// прочитанным после успешной обработки или отправки в DLQ.
func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}

			entry := c.logger.WithFields(log.Fields{
				"topic":     message.Topic,
				"partition": message.Partition,
				"offset":    message.Offset,
			})
			if err := c.handleMessage(session.Context(), message); err != nil {
				entry.WithError(err).Error("message processing failed")
				continue
			}
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

func (c *Consumer) handleMessage(ctx context.Context, message *sarama.ConsumerMessage) error {
	event, err := ParseOrderEvent(message)
	if err != nil {
		return c.deadLetter(message, err)
	}

	logger := c.logger.WithField("order_id", event.OrderID)
	err = c.retry.do(ctx, logger, func() error { return c.handler(ctx, *event) })
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}
	return c.deadLetter(message, err)
}

// deadLetter пересылает исходное сообщение в DLQ. Без DLQ возвращает cause.
func (c *Consumer) deadLetter(message *sarama.ConsumerMessage, cause error) error {
	if c.dlqProducer == nil {
		return cause
	}

	payload := map[string]any{
		"original_topic":     message.Topic,
		"original_partition": message.Partition,
		"original_offset":    message.Offset,
		"original_key":       string(message.Key),
		"original_value":     string(message.Value),
		"error_message":      cause.Error(),
	}
	err := c.dlqProducer.PublishEvent(TopicDeadLetterQueue, string(message.Key), payload,
		sarama.RecordHeader{Key: []byte(HeaderOriginalTopic), Value: []byte(message.Topic)},
		sarama.RecordHeader{Key: []byte(HeaderErrorMessage), Value: []byte(cause.Error())},
	)
	if err != nil {
		return fmt.Errorf("failed to send to DLQ: %w", errors.Join(cause, err))
	}
	c.logger.WithField("topic", message.Topic).Info("message sent to DLQ")
	return nil
}

// ParseOrderEvent разбирает OrderEvent из сообщения.
func ParseOrderEvent(message *sarama.ConsumerMessage) (*OrderEvent, error) {
	var event OrderEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order event: %w", err)
	}
	if event.OrderID == "" || event.EventType == "" {
		return nil, fmt.Errorf("order event is missing order_id or event_type")
	}
	return &event, nil
}
