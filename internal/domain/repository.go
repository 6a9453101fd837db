package domain

import "context"

// Unsubscribe навсегда останавливает подписку. После возврата колбэки подписки
// больше не вызываются. Повторный вызов безопасен.
type Unsubscribe func()

// OrderRepository описывает границу подписок и запросов над заявками.
type OrderRepository interface {
	// Subscribe открывает живую выборку заявок с указанным статусом. onUpdate
	// получает полный текущий набор при каждом изменении коллекции, а onError
	// терминальную ошибку подписки (не более одного раза).
	Subscribe(ctx context.Context, status OrderStatus, onUpdate func([]Order), onError func(error)) (Unsubscribe, error)
	// FetchOne возвращает заявку или ErrNotFound / ErrMalformedRecord / ErrRemoteRead.
	FetchOne(ctx context.Context, id string) (OrderDetail, error)
	// Close атомарно закрывает заявку с решением solution.
	Close(ctx context.Context, id, solution string) error
	// Create регистрирует новую открытую заявку и возвращает её ID.
	Create(ctx context.Context, order NewOrder) (string, error)
}
