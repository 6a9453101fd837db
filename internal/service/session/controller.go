// Package session реагирует на выход пользователя из системы.
package session

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/helpdesk/internal/domain"
)

// Controller вызывает внешний сервис сессий. Состояние входа он не хранит:
// им управляет сам сервис.
type Controller struct {
	service domain.SessionService
	logger  *log.Entry
}

// New создаёт контроллер. logger может быть nil.
func New(service domain.SessionService, logger *log.Entry) *Controller {
	if logger == nil {
		logger = log.WithField("component", "session")
	}
	return &Controller{service: service, logger: logger}
}

// SignOut завершает сессию. При ошибке возвращает сообщение для показа
// пользователю и ошибку, обёрнутую в domain.ErrSignOut.
func (c *Controller) SignOut(ctx context.Context) (string, error) {
	if c.service == nil {
		err := fmt.Errorf("%w: session service is not configured", domain.ErrSignOut)
		return domain.UserMessage(err), err
	}
	if err := c.service.SignOut(ctx); err != nil {
		wrapped := fmt.Errorf("%w: %w", domain.ErrSignOut, err)
		c.logger.WithError(err).Warn("sign out failed")
		return domain.UserMessage(wrapped), wrapped
	}
	c.logger.Info("signed out")
	return "", nil
}
