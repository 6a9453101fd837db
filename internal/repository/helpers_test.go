package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/helpdesk/internal/dateformat"
	"github.com/vladislavdragonenkov/helpdesk/internal/domain"
	"github.com/vladislavdragonenkov/helpdesk/internal/storage/memory"
)

var (
	testNow     = time.Date(2022, time.July, 18, 10, 0, 0, 0, time.UTC)
	errBackend  = errors.New("backend unavailable")
	testLogger  = log.WithField("component", "order-repository-test")
	utcFormat   = dateformat.New(time.UTC)
	testTimeout = 2 * time.Second
)

func newMemoryStore() *memory.OrderStore {
	return memory.NewOrderStore(memory.WithClock(func() time.Time { return testNow }))
}

func openDocument(patrimony string) domain.Document {
	return domain.Document{
		domain.FieldPatrimony:   patrimony,
		domain.FieldDescription: "monitor sem imagem",
		domain.FieldStatus:      string(domain.OrderStatusOpen),
		domain.FieldCreatedAt:   domain.ServerTimestamp,
		domain.FieldSolution:    nil,
		domain.FieldClosedAt:    nil,
	}
}

func metricValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	metricLoop:
		for _, m := range family.GetMetric() {
			for _, label := range m.GetLabel() {
				if want, ok := labels[label.GetName()]; ok && want != label.GetValue() {
					continue metricLoop
				}
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue()
			}
		}
	}
	return 0
}

// recorder собирает доставки подписки.
type recorder struct {
	updates chan []domain.Order
	errs    chan error

	mu    sync.Mutex
	count int
}

func newRecorder() *recorder {
	return &recorder{
		updates: make(chan []domain.Order, 32),
		errs:    make(chan error, 4),
	}
}

func (r *recorder) onUpdate(orders []domain.Order) {
	r.mu.Lock()
	r.count++
	r.mu.Unlock()
	r.updates <- orders
}

func (r *recorder) onError(err error) {
	r.errs <- err
}

func (r *recorder) deliveries() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

func (r *recorder) next(t *testing.T) []domain.Order {
	t.Helper()
	select {
	case orders := <-r.updates:
		return orders
	case err := <-r.errs:
		t.Fatalf("unexpected feed error: %v", err)
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for feed update")
	}
	return nil
}

// stubStore: DocumentStore с управляемыми сбоями.
type stubStore struct {
	mu sync.Mutex

	watchErr  error
	getErr    error
	updateErr error
	createErr error
	doc       domain.Document

	updates   int
	lastConds []domain.Precondition
	onError   func(error)
}

func (s *stubStore) Watch(_ context.Context, _ domain.OrderStatus, _ func([]domain.DocumentSnapshot), onError func(error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onError = onError
	return s.watchErr
}

func (s *stubStore) Get(context.Context, string) (domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.doc, nil
}

func (s *stubStore) Update(_ context.Context, _ string, _ domain.Document, conds ...domain.Precondition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates++
	s.lastConds = conds
	return s.updateErr
}

func (s *stubStore) Create(context.Context, domain.Document) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return "", s.createErr
	}
	return "stub-id", nil
}

func (s *stubStore) Ping(context.Context) error { return nil }

func (s *stubStore) updateCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates
}

// stubPublisher запоминает опубликованные события.
type stubPublisher struct {
	mu     sync.Mutex
	err    error
	events []domain.OrderEvent
}

func (p *stubPublisher) Publish(event domain.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}
