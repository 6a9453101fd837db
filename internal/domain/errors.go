package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation: локальная ошибка ввода, до сети не доходит.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound возвращается, если документа с таким ID нет в хранилище.
	ErrNotFound = errors.New("order not found")
	// ErrMalformedRecord: документ нарушает контракт данных (нет обязательного поля).
	ErrMalformedRecord = errors.New("malformed order record")
	// ErrRemoteRead: сбой чтения из хранилища (сеть, права, backend).
	ErrRemoteRead = errors.New("remote read failed")
	// ErrRemoteWrite: запись не дошла до хранилища.
	ErrRemoteWrite = errors.New("remote write failed")
	// ErrSubscription: живая подписка завершилась с ошибкой; автоматического повтора нет.
	ErrSubscription = errors.New("order feed failed")
	// ErrAlreadyClosed: заявка уже закрыта, повторное закрытие запрещено.
	ErrAlreadyClosed = errors.New("order already closed")
	// ErrNotLoaded: операция требует загруженной заявки.
	ErrNotLoaded = errors.New("order is not loaded")
	// ErrPreconditionFailed: условие атомарной записи не выполнено, документ не изменён.
	ErrPreconditionFailed = errors.New("write precondition failed")
	// ErrSignOut: внешний сервис сессий не смог завершить сессию.
	ErrSignOut = errors.New("sign out failed")
)

// ErrSolutionRequired: попытка закрыть заявку без описания решения.
var ErrSolutionRequired = fmt.Errorf("%w: solution is required", ErrValidation)

// IsRemote проверяет, относится ли ошибка к сбоям хранилища.
func IsRemote(err error) bool {
	return errors.Is(err, ErrRemoteRead) || errors.Is(err, ErrRemoteWrite) || errors.Is(err, ErrSubscription)
}

// UserMessage возвращает короткое сообщение для показа пользователю.
// Пустая строка означает отсутствие ошибки.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSignOut):
		return "Não foi possível sair"
	case errors.Is(err, ErrSolutionRequired):
		return "Informe a solução para encerrar a solicitação"
	case errors.Is(err, ErrValidation):
		return "Preencha todos os campos"
	case errors.Is(err, ErrAlreadyClosed):
		return "Esta solicitação já foi encerrada"
	case errors.Is(err, ErrRemoteWrite):
		return "Não foi possível encerrar a solicitação"
	case errors.Is(err, ErrNotFound):
		return "Solicitação não encontrada"
	case errors.Is(err, ErrMalformedRecord):
		return "Os dados da solicitação estão incompletos"
	case errors.Is(err, ErrSubscription):
		return "Não foi possível carregar as solicitações. Tente novamente"
	case errors.Is(err, ErrRemoteRead):
		return "Não foi possível carregar a solicitação"
	case errors.Is(err, ErrNotLoaded):
		return "A solicitação ainda está carregando"
	default:
		return "Algo deu errado. Tente novamente"
	}
}
