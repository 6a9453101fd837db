// Package orderdetail держит состояние экрана одной заявки и выполняет её закрытие.
package orderdetail

import (
	"context"
	"errors"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/helpdesk/internal/domain"
)

var (
	// ErrDisposed возвращается после Dispose.
	ErrDisposed = errors.New("order detail controller disposed")
	// ErrCloseInProgress: предыдущая запись закрытия ещё не завершилась.
	ErrCloseInProgress = errors.New("order close already in progress")
)

// State: снимок состояния экрана.
type State struct {
	Order   domain.OrderDetail
	Loaded  bool
	Loading bool
	Closing bool
	Err     error
}

// Controller загружает заявку и закрывает её. Результаты, пришедшие после
// Dispose или после новой загрузки, отбрасываются.
type Controller struct {
	repo     domain.OrderRepository
	logger   *log.Entry
	onClosed func(id string)

	mu         sync.Mutex
	state      State
	generation uint64
	disposed   bool
	changed    chan struct{}
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

// WithOnClosed задаёт хук навигации, вызываемый после успешного закрытия.
func WithOnClosed(hook func(id string)) Option {
	return func(c *Controller) { c.onClosed = hook }
}

// New создаёт контроллер.
func New(repo domain.OrderRepository, opts ...Option) *Controller {
	c := &Controller{
		repo:    repo,
		logger:  log.WithField("component", "order-detail"),
		changed: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load читает заявку id.
func (c *Controller) Load(ctx context.Context, id string) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	c.generation++
	generation := c.generation
	c.state = State{Loading: true}
	c.notifyLocked()
	c.mu.Unlock()

	detail, err := c.repo.FetchOne(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed || generation != c.generation {
		return err
	}
	c.state.Loading = false
	if err != nil {
		c.state.Err = err
		c.notifyLocked()
		c.logger.WithError(err).WithField("order_id", id).Warn("failed to load order")
		return err
	}
	c.state.Order = detail
	c.state.Loaded = true
	c.notifyLocked()
	return nil
}

// SubmitClose закрывает загруженную открытую заявку с решением text. Пустое
// решение отклоняется без обращения к репозиторию. При ошибке записи заявка
// в состоянии не меняется и попытку можно повторить.
func (c *Controller) SubmitClose(ctx context.Context, text string) error {
	c.mu.Lock()
	if err := c.canCloseLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	solution := strings.TrimSpace(text)
	if solution == "" {
		c.state.Err = domain.ErrSolutionRequired
		c.notifyLocked()
		c.mu.Unlock()
		return domain.ErrSolutionRequired
	}
	c.state.Closing = true
	c.state.Err = nil
	id := c.state.Order.ID
	generation := c.generation
	c.notifyLocked()
	c.mu.Unlock()

	err := c.repo.Close(ctx, id, solution)

	c.mu.Lock()
	if c.disposed || generation != c.generation {
		c.mu.Unlock()
		return err
	}
	c.state.Closing = false
	if err != nil {
		c.state.Err = err
		c.notifyLocked()
		c.mu.Unlock()
		c.logger.WithError(err).WithField("order_id", id).Warn("failed to close order")
		return err
	}
	c.state.Order.Status = domain.OrderStatusClosed
	c.state.Order.Solution = solution
	c.notifyLocked()
	hook := c.onClosed
	c.mu.Unlock()

	if hook != nil {
		hook(id)
	}
	return nil
}

func (c *Controller) canCloseLocked() error {
	switch {
	case c.disposed:
		return ErrDisposed
	case !c.state.Loaded:
		return domain.ErrNotLoaded
	case c.state.Closing:
		return ErrCloseInProgress
	case !c.state.Order.IsOpen():
		return domain.ErrAlreadyClosed
	default:
		return nil
	}
}

// State возвращает копию текущего состояния.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Changed сигналит об изменении состояния. Канал закрывается при Dispose.
func (c *Controller) Changed() <-chan struct{} {
	return c.changed
}

// Dispose отключает контроллер; незавершённые запросы отбрасываются.
func (c *Controller) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}
	c.disposed = true
	close(c.changed)
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
