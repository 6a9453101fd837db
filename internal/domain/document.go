package domain

import "time"

// Имена полей документа в коллекции orders.
const (
	FieldPatrimony   = "patrimony"
	FieldDescription = "description"
	FieldStatus      = "status"
	FieldCreatedAt   = "created_at"
	FieldSolution    = "solution"
	FieldClosedAt    = "closed_at"
)

// Document: сырой документ из удалённой коллекции. Форма не гарантирована,
// разбор выполняет только mapper.
type Document map[string]any

// Clone возвращает поверхностную копию документа.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// DocumentSnapshot: документ вместе с идентификатором, назначенным хранилищем.
type DocumentSnapshot struct {
	ID   string
	Data Document
}

// Timestamp: нативная для хранилища отметка времени.
type Timestamp struct {
	Seconds     int64 `json:"seconds"`
	Nanoseconds int32 `json:"nanoseconds"`
}

// TimestampFromTime конвертирует time.Time в Timestamp.
func TimestampFromTime(t time.Time) Timestamp {
	if t.IsZero() {
		return Timestamp{}
	}
	return Timestamp{Seconds: t.Unix(), Nanoseconds: int32(t.Nanosecond())}
}

// IsZero сообщает, что отметка отсутствует.
func (t Timestamp) IsZero() bool {
	return t.Seconds == 0 && t.Nanoseconds == 0
}

// Valid проверяет диапазон наносекунд.
func (t Timestamp) Valid() bool {
	return !t.IsZero() && t.Nanoseconds >= 0 && t.Nanoseconds < 1e9
}

// Time возвращает момент времени в UTC.
func (t Timestamp) Time() time.Time {
	return time.Unix(t.Seconds, int64(t.Nanoseconds)).UTC()
}

// serverTimestamp: маркер, который хранилище заменяет своим текущим временем.
type serverTimestamp struct{}

// ServerTimestamp просит хранилище проставить время записи на своей стороне.
var ServerTimestamp any = serverTimestamp{}

// IsServerTimestamp проверяет, является ли значение маркером ServerTimestamp.
func IsServerTimestamp(v any) bool {
	_, ok := v.(serverTimestamp)
	return ok
}

// Precondition: условие на поле документа, проверяемое атомарно вместе с записью.
type Precondition struct {
	Field  string
	Equals any
}
