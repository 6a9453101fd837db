package repository

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/vladislavdragonenkov/helpdesk/internal/domain"
)

const tracerName = "github.com/vladislavdragonenkov/helpdesk/internal/repository"

// Traced оборачивает OrderRepository спанами OpenTelemetry.
type Traced struct {
	inner  domain.OrderRepository
	tracer trace.Tracer
}

// NewTraced возвращает декоратор. nil tracer означает noop.
func NewTraced(inner domain.OrderRepository, tracer trace.Tracer) *Traced {
	if tracer == nil {
		tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	return &Traced{inner: inner, tracer: tracer}
}

// Subscribe трассирует только открытие выборки; доставки идут вне спана.
func (t *Traced) Subscribe(ctx context.Context, status domain.OrderStatus, onUpdate func([]domain.Order), onError func(error)) (domain.Unsubscribe, error) {
	// Выборка живёт дольше спана, поэтому подписка получает исходный ctx.
	_, span := t.tracer.Start(ctx, "OrderRepository.Subscribe",
		trace.WithAttributes(attribute.String("order.status", string(status))))
	defer span.End()

	unsubscribe, err := t.inner.Subscribe(ctx, status, onUpdate, onError)
	if err != nil {
		return nil, recordError(span, err)
	}
	return unsubscribe, nil
}

func (t *Traced) FetchOne(ctx context.Context, id string) (domain.OrderDetail, error) {
	ctx, span := t.tracer.Start(ctx, "OrderRepository.FetchOne",
		trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	detail, err := t.inner.FetchOne(ctx, id)
	if err != nil {
		return domain.OrderDetail{}, recordError(span, err)
	}
	span.SetAttributes(attribute.String("order.status", string(detail.Status)))
	return detail, nil
}

func (t *Traced) Close(ctx context.Context, id, solution string) error {
	ctx, span := t.tracer.Start(ctx, "OrderRepository.Close",
		trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	if err := t.inner.Close(ctx, id, solution); err != nil {
		return recordError(span, err)
	}
	return nil
}

func (t *Traced) Create(ctx context.Context, order domain.NewOrder) (string, error) {
	ctx, span := t.tracer.Start(ctx, "OrderRepository.Create",
		trace.WithAttributes(attribute.String("order.patrimony", order.Patrimony)))
	defer span.End()

	id, err := t.inner.Create(ctx, order)
	if err != nil {
		return "", recordError(span, err)
	}
	span.SetAttributes(attribute.String("order.id", id))
	return id, nil
}

func recordError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

var _ domain.OrderRepository = (*Traced)(nil)
