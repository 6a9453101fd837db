// Package mapper содержит единственное место, где разбираются сырые документы заявок.
package mapper

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/vladislavdragonenkov/helpdesk/internal/dateformat"
	"github.com/vladislavdragonenkov/helpdesk/internal/domain"
)

// Mapper превращает Document в доменные проекции.
type Mapper struct {
	formatter dateformat.Formatter
}

// New создаёт Mapper с указанным форматтером дат.
func New(formatter dateformat.Formatter) Mapper {
	return Mapper{formatter: formatter}
}

// ToOrder строит проекцию для списка. Обязательны patrimony, status и created_at.
func (m Mapper) ToOrder(id string, raw domain.Document) (domain.Order, error) {
	if id == "" {
		return domain.Order{}, fmt.Errorf("%w: empty id", domain.ErrMalformedRecord)
	}
	if raw == nil {
		return domain.Order{}, malformed(id, "document", "is empty")
	}

	patrimony, err := requiredString(id, raw, domain.FieldPatrimony)
	if err != nil {
		return domain.Order{}, err
	}

	rawStatus, err := requiredString(id, raw, domain.FieldStatus)
	if err != nil {
		return domain.Order{}, err
	}
	status := domain.OrderStatus(rawStatus)
	if !status.Valid() {
		return domain.Order{}, malformed(id, domain.FieldStatus, fmt.Sprintf("unknown value %q", rawStatus))
	}

	createdAt, present, err := timestampField(id, raw, domain.FieldCreatedAt)
	if err != nil {
		return domain.Order{}, err
	}
	if !present {
		return domain.Order{}, malformed(id, domain.FieldCreatedAt, "is missing")
	}
	when, ok := m.formatter.Format(createdAt)
	if !ok {
		return domain.Order{}, malformed(id, domain.FieldCreatedAt, "is not a valid timestamp")
	}

	return domain.Order{
		ID:        id,
		Patrimony: patrimony,
		Status:    status,
		When:      when,
	}, nil
}

// ToOrderDetail строит проекцию для экрана деталей. Дополнительно обязателен
// description; solution и closed_at могут отсутствовать или быть null.
func (m Mapper) ToOrderDetail(id string, raw domain.Document) (domain.OrderDetail, error) {
	order, err := m.ToOrder(id, raw)
	if err != nil {
		return domain.OrderDetail{}, err
	}

	description, err := requiredString(id, raw, domain.FieldDescription)
	if err != nil {
		return domain.OrderDetail{}, err
	}

	var solution string
	switch v := raw[domain.FieldSolution].(type) {
	case nil:
	case string:
		solution = v
	default:
		return domain.OrderDetail{}, malformed(id, domain.FieldSolution, fmt.Sprintf("has type %T", v))
	}

	var closed string
	closedAt, present, err := timestampField(id, raw, domain.FieldClosedAt)
	if err != nil {
		return domain.OrderDetail{}, err
	}
	if present {
		formatted, ok := m.formatter.Format(closedAt)
		if !ok {
			return domain.OrderDetail{}, malformed(id, domain.FieldClosedAt, "is not a valid timestamp")
		}
		closed = formatted
	}

	return domain.OrderDetail{
		Order:       order,
		Description: description,
		Solution:    solution,
		Closed:      closed,
	}, nil
}

func malformed(id, field, reason string) error {
	return fmt.Errorf("%w: order %s: field %s %s", domain.ErrMalformedRecord, id, field, reason)
}

func requiredString(id string, raw domain.Document, field string) (string, error) {
	v, ok := raw[field]
	if !ok || v == nil {
		return "", malformed(id, field, "is missing")
	}
	s, ok := v.(string)
	if !ok {
		return "", malformed(id, field, fmt.Sprintf("has type %T", v))
	}
	return s, nil
}

// timestampField читает отметку времени. present=false, если поле отсутствует или null.
func timestampField(id string, raw domain.Document, field string) (domain.Timestamp, bool, error) {
	v, ok := raw[field]
	if !ok || v == nil {
		return domain.Timestamp{}, false, nil
	}
	ts, err := toTimestamp(v)
	if err != nil {
		return domain.Timestamp{}, true, malformed(id, field, err.Error())
	}
	return ts, true, nil
}

func toTimestamp(v any) (domain.Timestamp, error) {
	switch t := v.(type) {
	case domain.Timestamp:
		return t, nil
	case *domain.Timestamp:
		if t == nil {
			return domain.Timestamp{}, fmt.Errorf("is nil")
		}
		return *t, nil
	case time.Time:
		return domain.TimestampFromTime(t), nil
	case map[string]any:
		seconds, err := toInt64(t["seconds"])
		if err != nil {
			return domain.Timestamp{}, fmt.Errorf("seconds %w", err)
		}
		var nanos int64
		if raw, ok := t["nanoseconds"]; ok && raw != nil {
			if nanos, err = toInt64(raw); err != nil {
				return domain.Timestamp{}, fmt.Errorf("nanoseconds %w", err)
			}
		}
		if nanos < math.MinInt32 || nanos > math.MaxInt32 {
			return domain.Timestamp{}, fmt.Errorf("nanoseconds out of range")
		}
		return domain.Timestamp{Seconds: seconds, Nanoseconds: int32(nanos)}, nil
	default:
		return domain.Timestamp{}, fmt.Errorf("has type %T", v)
	}
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("is not an integer")
		}
		return int64(n), nil
	case json.Number:
		return n.Int64()
	case nil:
		return 0, fmt.Errorf("is missing")
	default:
		return 0, fmt.Errorf("has type %T", v)
	}
}
