// Package orderlist держит состояние списка заявок с фильтром по статусу.
package orderlist

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/helpdesk/internal/domain"
)

// ErrDisposed возвращается после Dispose.
var ErrDisposed = errors.New("order list controller disposed")

// State: снимок состояния списка.
type State struct {
	Status  domain.OrderStatus
	Orders  []domain.Order
	Loading bool
	// Count всегда равен len(Orders).
	Count int
	Err   error
}

// Controller держит ровно одну живую выборку. Доставки от выборок, которые
// уже заменены, отбрасываются по токену.
type Controller struct {
	repo   domain.OrderRepository
	logger *log.Entry

	mu          sync.Mutex
	state       State
	active      bool
	token       uint64
	unsubscribe domain.Unsubscribe
	disposed    bool
	changed     chan struct{}
}

// Option настраивает Controller.
type Option func(*Controller)

// WithLogger задаёт логгер.
func WithLogger(logger *log.Entry) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New создаёт контроллер без активной выборки.
func New(repo domain.OrderRepository, opts ...Option) *Controller {
	c := &Controller{
		repo:    repo,
		logger:  log.WithField("component", "order-list"),
		changed: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SelectFilter переключает список на status. Повторный выбор текущего
// фильтра при живой выборке ничего не делает.
func (c *Controller) SelectFilter(ctx context.Context, status domain.OrderStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", domain.ErrValidation, status)
	}

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	if c.active && c.state.Status == status && c.state.Err == nil {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	return c.open(ctx, status)
}

// Retry заново открывает выборку текущего фильтра, например после ошибки.
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	status := c.state.Status
	c.mu.Unlock()

	if status == "" {
		status = domain.OrderStatusOpen
	}
	return c.open(ctx, status)
}

// open выполняет переключение: новый токен, снятие блокировки, отписка от
// старой выборки, подписка на новую.
func (c *Controller) open(ctx context.Context, status domain.OrderStatus) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	c.token++
	token := c.token
	previous := c.unsubscribe
	c.unsubscribe = nil
	c.active = true
	c.state = State{Status: status, Loading: true}
	c.notifyLocked()
	c.mu.Unlock()

	if previous != nil {
		previous()
	}

	unsubscribe, err := c.repo.Subscribe(ctx, status, c.onUpdate(token), c.onError(token))

	c.mu.Lock()
	if err != nil {
		if token == c.token && !c.disposed {
			c.active = false
			c.state.Loading = false
			c.state.Err = err
			c.notifyLocked()
		}
		c.mu.Unlock()
		c.logger.WithError(err).WithField("status", status).Warn("failed to open order feed")
		return err
	}
	if token != c.token || c.disposed {
		c.mu.Unlock()
		unsubscribe()
		return nil
	}
	c.unsubscribe = unsubscribe
	c.mu.Unlock()
	return nil
}

func (c *Controller) onUpdate(token uint64) func([]domain.Order) {
	return func(orders []domain.Order) {
		c.mu.Lock()
		defer c.mu.Unlock()

		if c.disposed || token != c.token {
			return
		}
		c.state.Orders = orders
		c.state.Count = len(orders)
		c.state.Loading = false
		c.state.Err = nil
		c.notifyLocked()
	}
}

func (c *Controller) onError(token uint64) func(error) {
	return func(err error) {
		c.mu.Lock()
		defer c.mu.Unlock()

		if c.disposed || token != c.token {
			return
		}
		c.state.Loading = false
		c.state.Err = err
		c.notifyLocked()
		c.logger.WithError(err).WithField("status", c.state.Status).Warn("order feed failed")
	}
}

// State возвращает копию текущего состояния.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := c.state
	if c.state.Orders != nil {
		state.Orders = append([]domain.Order(nil), c.state.Orders...)
	}
	return state
}

// Changed сигналит об изменении состояния. Несколько изменений могут
// схлопнуться в один сигнал. Канал закрывается при Dispose.
func (c *Controller) Changed() <-chan struct{} {
	return c.changed
}

// Dispose отписывается от выборки. Последующие доставки отбрасываются.
func (c *Controller) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	c.token++
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	close(c.changed)
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (c *Controller) notifyLocked() {
	if c.disposed {
		return
	}
	select {
	case c.changed <- struct{}{}:
	default:
	}
}
