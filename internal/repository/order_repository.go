// Package repository связывает хранилище документов с доменными проекциями
// заявок: живые выборки, чтение одной заявки, закрытие и регистрация.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/helpdesk/internal/dateformat"
	"github.com/vladislavdragonenkov/helpdesk/internal/domain"
	"github.com/vladislavdragonenkov/helpdesk/internal/mapper"
	"github.com/vladislavdragonenkov/helpdesk/internal/metrics"
)

// Repository реализует domain.OrderRepository поверх domain.DocumentStore.
type Repository struct {
	store     domain.DocumentStore
	mapper    mapper.Mapper
	logger    *log.Entry
	metrics   *metrics.OrderMetrics
	publisher domain.EventPublisher
	clock     func() time.Time

	guardedClose bool
}

// Option настраивает Repository.
type Option func(*Repository)

// WithLogger задаёт логгер.
func WithLogger(logger *log.Entry) Option {
	return func(r *Repository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics включает Prometheus-метрики.
func WithMetrics(m *metrics.OrderMetrics) Option {
	return func(r *Repository) { r.metrics = m }
}

// WithPublisher задаёт получателя событий о созданных и закрытых заявках.
func WithPublisher(p domain.EventPublisher) Option {
	return func(r *Repository) { r.publisher = p }
}

// WithFormatter задаёт форматтер дат для проекций.
func WithFormatter(f dateformat.Formatter) Option {
	return func(r *Repository) { r.mapper = mapper.New(f) }
}

// WithClock подменяет часы, которыми датируются события.
func WithClock(clock func() time.Time) Option {
	return func(r *Repository) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithGuardedClose добавляет к записи закрытия условие status == open,
// которое хранилище проверяет атомарно. Без него действует last-write-wins.
func WithGuardedClose() Option {
	return func(r *Repository) { r.guardedClose = true }
}

// New создаёт репозиторий над store.
func New(store domain.DocumentStore, opts ...Option) *Repository {
	r := &Repository{
		store:  store,
		mapper: mapper.New(dateformat.Formatter{}),
		logger: log.WithField("component", "order-repository"),
		clock:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Subscribe открывает живую выборку заявок со статусом status.
func (r *Repository) Subscribe(ctx context.Context, status domain.OrderStatus, onUpdate func([]domain.Order), onError func(error)) (domain.Unsubscribe, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, status)
	}

	feedCtx, cancel := context.WithCancel(ctx)
	f := newFeed(cancel, onUpdate, onError)
	logger := r.logger.WithField("status", status)

	err := r.store.Watch(feedCtx, status,
		func(snaps []domain.DocumentSnapshot) {
			if f.deliver(r.toOrders(logger, status, snaps)) {
				r.metrics.RecordSnapshot()
			}
		},
		func(err error) {
			if f.fail(fmt.Errorf("%w: %w", domain.ErrSubscription, err)) {
				r.metrics.RecordFeedFailure()
				logger.WithError(err).Warn("order feed terminated")
			}
		},
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %w", domain.ErrSubscription, err)
	}

	r.metrics.RecordFeedOpened()
	context.AfterFunc(feedCtx, r.metrics.RecordFeedClosed)
	logger.Debug("order feed opened")

	return f.stop, nil
}

// toOrders отображает снимок. Документы, которые не проходят mapper или не
// соответствуют фильтру, пропускаются.
func (r *Repository) toOrders(logger *log.Entry, status domain.OrderStatus, snaps []domain.DocumentSnapshot) []domain.Order {
	orders := make([]domain.Order, 0, len(snaps))
	for _, snap := range snaps {
		order, err := r.mapper.ToOrder(snap.ID, snap.Data)
		if err != nil {
			r.metrics.RecordMalformedRecord()
			logger.WithError(err).WithField("order_id", snap.ID).Warn("skipping malformed order")
			continue
		}
		if order.Status != status {
			logger.WithField("order_id", snap.ID).Warn("skipping order outside of feed filter")
			continue
		}
		orders = append(orders, order)
	}
	return orders
}

// FetchOne читает одну заявку.
func (r *Repository) FetchOne(ctx context.Context, id string) (domain.OrderDetail, error) {
	if strings.TrimSpace(id) == "" {
		return domain.OrderDetail{}, fmt.Errorf("%w: order id is required", domain.ErrValidation)
	}

	doc, err := r.store.Get(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return domain.OrderDetail{}, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
		case errors.Is(err, domain.ErrMalformedRecord):
			return domain.OrderDetail{}, err
		default:
			return domain.OrderDetail{}, fmt.Errorf("%w: %w", domain.ErrRemoteRead, err)
		}
	}

	detail, err := r.mapper.ToOrderDetail(id, doc)
	if err != nil {
		r.metrics.RecordMalformedRecord()
		return domain.OrderDetail{}, err
	}
	return detail, nil
}

// Close одной записью переводит заявку в closed с решением solution.
// Чтения перед записью нет.
func (r *Repository) Close(ctx context.Context, id, solution string) error {
	solution = strings.TrimSpace(solution)
	if solution == "" {
		r.metrics.RecordClose(metrics.CloseResultValidation, 0)
		return domain.ErrSolutionRequired
	}
	if strings.TrimSpace(id) == "" {
		r.metrics.RecordClose(metrics.CloseResultValidation, 0)
		return fmt.Errorf("%w: order id is required", domain.ErrValidation)
	}

	fields := domain.Document{
		domain.FieldStatus:   string(domain.OrderStatusClosed),
		domain.FieldSolution: solution,
		domain.FieldClosedAt: domain.ServerTimestamp,
	}
	var conds []domain.Precondition
	if r.guardedClose {
		conds = append(conds, domain.Precondition{Field: domain.FieldStatus, Equals: string(domain.OrderStatusOpen)})
	}

	logger := r.logger.WithField("order_id", id)
	started := time.Now()
	err := r.store.Update(ctx, id, fields, conds...)
	elapsed := time.Since(started)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPreconditionFailed):
			r.metrics.RecordClose(metrics.CloseResultAlreadyClosed, elapsed)
			err = fmt.Errorf("%w: %w", domain.ErrRemoteWrite, domain.ErrAlreadyClosed)
		case errors.Is(err, domain.ErrNotFound):
			r.metrics.RecordClose(metrics.CloseResultNotFound, elapsed)
			err = fmt.Errorf("%w: %w", domain.ErrRemoteWrite, domain.ErrNotFound)
		default:
			r.metrics.RecordClose(metrics.CloseResultError, elapsed)
			err = fmt.Errorf("%w: %w", domain.ErrRemoteWrite, err)
		}
		logger.WithError(err).Warn("close order failed")
		return err
	}

	r.metrics.RecordClose(metrics.CloseResultOK, elapsed)
	logger.Info("order closed")
	r.publish(domain.EventTypeOrderClosed, id, domain.OrderStatusClosed)
	return nil
}

// Create регистрирует новую открытую заявку.
func (r *Repository) Create(ctx context.Context, order domain.NewOrder) (string, error) {
	order, err := order.Normalize()
	if err != nil {
		return "", err
	}

	id, err := r.store.Create(ctx, domain.Document{
		domain.FieldPatrimony:   order.Patrimony,
		domain.FieldDescription: order.Description,
		domain.FieldStatus:      string(domain.OrderStatusOpen),
		domain.FieldCreatedAt:   domain.ServerTimestamp,
		domain.FieldSolution:    nil,
		domain.FieldClosedAt:    nil,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrRemoteWrite, err)
	}

	r.logger.WithField("order_id", id).Info("order created")
	r.publish(domain.EventTypeOrderCreated, id, domain.OrderStatusOpen)
	return id, nil
}

// Ping проверяет доступность хранилища.
func (r *Repository) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}

// publish отправляет событие. Ошибка публикации только логируется: запись уже выполнена.
func (r *Repository) publish(eventType, id string, status domain.OrderStatus) {
	if r.publisher == nil {
		return
	}
	err := r.publisher.Publish(domain.OrderEvent{
		Type:     eventType,
		OrderID:  id,
		Status:   status,
		Occurred: r.clock(),
	})
	r.metrics.RecordEvent(eventType, err == nil)
	if err != nil {
		r.logger.WithError(err).WithFields(log.Fields{
			"order_id":   id,
			"event_type": eventType,
		}).Error("failed to publish order event")
	}
}

var _ domain.OrderRepository = (*Repository)(nil)
