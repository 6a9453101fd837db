package kafka

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/helpdesk/internal/domain"
)

// RetryConfig задаёт повторную обработку одного сообщения.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig возвращает конфигурацию по умолчанию.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
	}
}

// do вызывает fn, пока та не вернёт nil, ошибку без смысла повторять или
// пока не кончатся попытки. Возвращает последнюю ошибку.
func (rc RetryConfig) do(ctx context.Context, logger *log.Entry, fn func() error) error {
	attempts := rc.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	delay := rc.InitialDelay

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if lastErr = fn(); lastErr == nil {
			if attempt > 1 {
				logger.WithField("attempt", attempt).Info("order event handled after retry")
			}
			return nil
		}
		if !shouldRetry(lastErr) {
			logger.WithError(lastErr).Warn("order event failed with non-retryable error")
			return lastErr
		}
		logger.WithError(lastErr).WithField("attempt", attempt).Warn("order event handler failed")
		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return errors.Join(lastErr, ctx.Err())
		case <-time.After(delay):
		}

		// Экспоненциальная задержка с ограничением
		delay = time.Duration(float64(delay) * rc.BackoffFactor)
		if rc.MaxDelay > 0 && delay > rc.MaxDelay {
			delay = rc.MaxDelay
		}
	}
	return lastErr
}

// shouldRetry отсекает ошибки данных: повтор их не исправит.
func shouldRetry(err error) bool {
	return !errors.Is(err, domain.ErrMalformedRecord) && !errors.Is(err, domain.ErrValidation)
}
