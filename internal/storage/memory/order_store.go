package memory

import (
	"context"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/helpdesk/internal/domain"
)

// OrderStore: in-memory коллекция orders с живыми выборками.
// Используется для локальной разработки и тестов.
type OrderStore struct {
	mu       sync.RWMutex
	docs     map[string]domain.Document
	watchers map[uint64]*watcher
	nextID   uint64

	clock func() time.Time
	newID func() string
}

type watcher struct {
	status domain.OrderStatus
	notify chan struct{}
	fail   chan error
}

// Option настраивает OrderStore.
type Option func(*OrderStore)

// WithClock подменяет источник серверного времени.
func WithClock(clock func() time.Time) Option {
	return func(s *OrderStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithIDGenerator подменяет генератор идентификаторов документов.
func WithIDGenerator(gen func() string) Option {
	return func(s *OrderStore) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// NewOrderStore возвращает пустую in-memory коллекцию.
func NewOrderStore(opts ...Option) *OrderStore {
	s := &OrderStore{
		docs:     make(map[string]domain.Document),
		watchers: make(map[uint64]*watcher),
		clock:    func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Watch регистрирует живую выборку. Первый снимок доставляется сразу после
// регистрации, следующие после каждого изменения коллекции. Подряд идущие
// изменения могут схлопнуться в один снимок.
func (s *OrderStore) Watch(ctx context.Context, status domain.OrderStatus, onSnapshot func([]domain.DocumentSnapshot), onError func(error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	w := &watcher{
		status: status,
		notify: make(chan struct{}, 1),
		fail:   make(chan error, 1),
	}
	w.notify <- struct{}{}

	s.mu.Lock()
	s.nextID++
	key := s.nextID
	s.watchers[key] = w
	s.mu.Unlock()

	go s.run(ctx, key, w, onSnapshot, onError)
	return nil
}

func (s *OrderStore) run(ctx context.Context, key uint64, w *watcher, onSnapshot func([]domain.DocumentSnapshot), onError func(error)) {
	defer s.removeWatcher(key)

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-w.fail:
			if onError != nil {
				onError(err)
			}
			return
		case <-w.notify:
			if ctx.Err() != nil {
				return
			}
			if onSnapshot != nil {
				onSnapshot(s.snapshot(w.status))
			}
		}
	}
}

func (s *OrderStore) removeWatcher(key uint64) {
	s.mu.Lock()
	delete(s.watchers, key)
	s.mu.Unlock()
}

// snapshot собирает документы со статусом status, упорядоченные по ID.
func (s *OrderStore) snapshot(status domain.OrderStatus) []domain.DocumentSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.DocumentSnapshot, 0, len(s.docs))
	for id, doc := range s.docs {
		if raw, _ := doc[domain.FieldStatus].(string); raw != string(status) {
			continue
		}
		result = append(result, domain.DocumentSnapshot{ID: id, Data: doc.Clone()})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}

// notifyLocked будит все выборки. Вызывается под s.mu.
func (s *OrderStore) notifyLocked() {
	for _, w := range s.watchers {
		select {
		case w.notify <- struct{}{}:
		default:
		}
	}
}

// Get возвращает копию документа или ErrNotFound.
func (s *OrderStore) Get(ctx context.Context, id string) (domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return doc.Clone(), nil
}

// Update сливает fields в документ, предварительно проверяя conds под той же блокировкой.
func (s *OrderStore) Update(ctx context.Context, id string, fields domain.Document, conds ...domain.Precondition) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.docs[id]
	if !ok {
		return domain.ErrNotFound
	}
	for _, cond := range conds {
		if !reflect.DeepEqual(current[cond.Field], cond.Equals) {
			return domain.ErrPreconditionFailed
		}
	}

	next := current.Clone()
	now := domain.TimestampFromTime(s.clock())
	for k, v := range fields {
		next[k] = resolve(v, now)
	}
	s.docs[id] = next
	s.notifyLocked()
	return nil
}

// Create сохраняет документ под новым ID.
func (s *OrderStore) Create(ctx context.Context, doc domain.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID()
	s.putLocked(id, doc)
	return id, nil
}

// Put записывает документ как есть под заданным ID. Нужен для наполнения
// коллекции в тестах, в том числе документами с неполными полями.
func (s *OrderStore) Put(id string, doc domain.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(id, doc)
}

func (s *OrderStore) putLocked(id string, doc domain.Document) {
	now := domain.TimestampFromTime(s.clock())
	stored := make(domain.Document, len(doc))
	for k, v := range doc {
		stored[k] = resolve(v, now)
	}
	s.docs[id] = stored
	s.notifyLocked()
}

// FailWatchers завершает все активные выборки ошибкой err.
func (s *OrderStore) FailWatchers(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, w := range s.watchers {
		select {
		case w.fail <- err:
		default:
		}
		delete(s.watchers, key)
	}
}

// ActiveWatchers возвращает число зарегистрированных выборок.
func (s *OrderStore) ActiveWatchers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.watchers)
}

// Ping всегда успешен.
func (s *OrderStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func resolve(v any, now domain.Timestamp) any {
	if domain.IsServerTimestamp(v) {
		return now
	}
	return v
}

var _ domain.DocumentStore = (*OrderStore)(nil)
