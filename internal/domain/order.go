package domain

import (
	"fmt"
	"strings"
)

// OrderStatus описывает жизненный цикл заявки на ремонт.
type OrderStatus string

const (
	// OrderStatusOpen: заявка зарегистрирована и ждёт решения.
	OrderStatusOpen OrderStatus = "open"
	// OrderStatusClosed: заявка закрыта с описанием решения.
	OrderStatusClosed OrderStatus = "closed"
)

// validNext фиксирует единственный допустимый переход open -> closed.
var validNext = map[OrderStatus]map[OrderStatus]bool{
	OrderStatusOpen:   {OrderStatusClosed: true},
	OrderStatusClosed: {},
}

// Valid сообщает, является ли статус одним из известных.
func (s OrderStatus) Valid() bool {
	_, ok := validNext[s]
	return ok
}

// CanTransition проверяет, разрешён ли переход между статусами.
func CanTransition(from, to OrderStatus) bool {
	return validNext[from][to]
}

// ParseOrderStatus разбирает статус из пользовательского ввода.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	status := OrderStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", ErrValidation, raw)
	}
	return status, nil
}

// Order: проекция заявки для списка.
type Order struct {
	ID        string
	Patrimony string
	Status    OrderStatus
	// When: отформатированный момент создания.
	When string
}

// OrderDetail: проекция заявки для экрана деталей.
type OrderDetail struct {
	Order
	Description string
	// Solution пустой, пока заявка открыта.
	Solution string
	// Closed: отформатированный момент закрытия, пустой пока заявка открыта.
	Closed string
}

// IsOpen сообщает, можно ли ещё закрыть заявку.
func (o OrderDetail) IsOpen() bool {
	return o.Status == OrderStatusOpen
}

// NewOrder содержит данные для регистрации новой заявки.
type NewOrder struct {
	Patrimony   string
	Description string
}

// Normalize обрезает пробелы и проверяет обязательные поля.
func (n NewOrder) Normalize() (NewOrder, error) {
	n.Patrimony = strings.TrimSpace(n.Patrimony)
	n.Description = strings.TrimSpace(n.Description)

	var errs []string
	if n.Patrimony == "" {
		errs = append(errs, "patrimony is required")
	}
	if n.Description == "" {
		errs = append(errs, "description is required")
	}
	if len(errs) > 0 {
		return NewOrder{}, fmt.Errorf("%w: %s", ErrValidation, strings.Join(errs, ", "))
	}
	return n, nil
}
