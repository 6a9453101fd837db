package domain

import (
	"context"
	"time"
)

// DocumentStore: удалённая коллекция orders с живыми выборками.
type DocumentStore interface {
	// Watch запускает серверную выборку документов со статусом status и
	// асинхронно доставляет полный снимок после каждого изменения. Выборка
	// живёт до отмены ctx или до первой ошибки, переданной в onError.
	Watch(ctx context.Context, status OrderStatus, onSnapshot func([]DocumentSnapshot), onError func(error)) error
	// Get возвращает документ или ErrNotFound.
	Get(ctx context.Context, id string) (Document, error)
	// Update одной атомарной записью сливает fields в документ. Значение
	// ServerTimestamp заменяется временем хранилища. Если условия conds не
	// выполнены, возвращается ErrPreconditionFailed.
	Update(ctx context.Context, id string, fields Document, conds ...Precondition) error
	// Create сохраняет новый документ и возвращает назначенный ID.
	Create(ctx context.Context, doc Document) (string, error)
	// Ping проверяет доступность хранилища.
	Ping(ctx context.Context) error
}

// Типы событий заявок.
const (
	EventTypeOrderCreated = "order.created"
	EventTypeOrderClosed  = "order.closed"
)

// OrderEvent описывает изменение заявки для внешних потребителей.
type OrderEvent struct {
	Type     string
	OrderID  string
	Status   OrderStatus
	Occurred time.Time
}

// EventPublisher публикует события заявок наружу.
type EventPublisher interface {
	Publish(event OrderEvent) error
}

// SessionService: внешний сервис аутентификации.
type SessionService interface {
	// SignOut завершает текущую сессию пользователя.
	SignOut(ctx context.Context) error
}
