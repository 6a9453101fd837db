package repository

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/helpdesk/internal/domain"
)

// feed охраняет колбэки одной подписки. Колбэки выполняются под mu, поэтому
// stop дожидается доставки, которая уже началась, и после возврата stop
// подписчик больше ничего не получает. stop нельзя вызывать из колбэков
// этой же подписки.
type feed struct {
	mu     sync.Mutex
	closed bool

	cancel   context.CancelFunc
	onUpdate func([]domain.Order)
	onError  func(error)
}

func newFeed(cancel context.CancelFunc, onUpdate func([]domain.Order), onError func(error)) *feed {
	return &feed{cancel: cancel, onUpdate: onUpdate, onError: onError}
}

// deliver передаёт снимок подписчику, если подписка ещё жива.
func (f *feed) deliver(orders []domain.Order) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return false
	}
	if f.onUpdate != nil {
		f.onUpdate(orders)
	}
	return true
}

// fail завершает подписку ошибкой. Ошибка доставляется не более одного раза.
func (f *feed) fail(err error) bool {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return false
	}
	f.closed = true
	if f.onError != nil {
		f.onError(err)
	}
	f.mu.Unlock()

	f.cancel()
	return true
}

// stop идемпотентно останавливает подписку.
func (f *feed) stop() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()

	f.cancel()
}
