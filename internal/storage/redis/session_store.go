// Package redis хранит сессионные токены в Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/vladislavdragonenkov/helpdesk/internal/domain"
)

const (
	sessionKeyPrefix = "session:"
	defaultTimeout   = 2 * time.Second
)

// SessionStore завершает сессию удалением ключа session:<token>.
type SessionStore struct {
	client goredis.UniversalClient
	token  string
}

// NewClient создаёт клиента Redis для адреса addr.
func NewClient(addr string) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:         addr,
		DialTimeout:  defaultTimeout,
		ReadTimeout:  defaultTimeout,
		WriteTimeout: defaultTimeout,
	})
}

// NewSessionStore возвращает хранилище для сессии token.
func NewSessionStore(client goredis.UniversalClient, token string) *SessionStore {
	return &SessionStore{client: client, token: token}
}

// Key возвращает ключ Redis для токена.
func Key(token string) string {
	return sessionKeyPrefix + token
}

// Login сохраняет токен с временем жизни ttl. ttl=0: без срока.
func (s *SessionStore) Login(ctx context.Context, ttl time.Duration) error {
	if s == nil || s.client == nil {
		return errors.New("redis session store is not initialized")
	}
	if err := s.client.Set(ctx, Key(s.token), time.Now().UTC().Format(time.RFC3339), ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// Active проверяет, существует ли ключ сессии.
func (s *SessionStore) Active(ctx context.Context) (bool, error) {
	if s == nil || s.client == nil {
		return false, errors.New("redis session store is not initialized")
	}
	n, err := s.client.Exists(ctx, Key(s.token)).Result()
	if err != nil {
		return false, fmt.Errorf("check session: %w", err)
	}
	return n > 0, nil
}

// SignOut удаляет ключ сессии. Отсутствующий ключ не считается ошибкой.
func (s *SessionStore) SignOut(ctx context.Context) error {
	if s == nil || s.client == nil {
		return errors.New("redis session store is not initialized")
	}
	if s.token == "" {
		return nil
	}
	if err := s.client.Del(ctx, Key(s.token)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Ping проверяет доступность Redis.
func (s *SessionStore) Ping(ctx context.Context) error {
	if s == nil || s.client == nil {
		return errors.New("redis session store is not initialized")
	}
	return s.client.Ping(ctx).Err()
}

var _ domain.SessionService = (*SessionStore)(nil)
