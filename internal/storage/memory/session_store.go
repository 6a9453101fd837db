package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/helpdesk/internal/domain"
)

// SessionStore: in-memory хранилище сессионных токенов.
type SessionStore struct {
	mu      sync.Mutex
	tokens  map[string]struct{}
	current string
	failErr error
}

// NewSessionStore создаёт хранилище с активной сессией token.
func NewSessionStore(token string) *SessionStore {
	s := &SessionStore{tokens: make(map[string]struct{})}
	if token != "" {
		s.tokens[token] = struct{}{}
		s.current = token
	}
	return s
}

// SignOut удаляет текущий токен. Повторный вызов безопасен.
func (s *SessionStore) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failErr != nil {
		return s.failErr
	}
	delete(s.tokens, s.current)
	return nil
}

// SetFailure заставляет следующие вызовы SignOut возвращать err. nil снимает сбой.
func (s *SessionStore) SetFailure(err error) {
	s.mu.Lock()
	s.failErr = err
	s.mu.Unlock()
}

// Active сообщает, жив ли токен.
func (s *SessionStore) Active(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tokens[token]
	return ok
}

var _ domain.SessionService = (*SessionStore)(nil)
