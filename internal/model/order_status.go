package model

import "fmt"

// OrderStatus описывает статус заказа.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusAccepted   OrderStatus = "accepted"
	OrderStatusPreparing  OrderStatus = "preparing"
	OrderStatusReady      OrderStatus = "ready"
	OrderStatusAssigned   OrderStatus = "assigned"
	OrderStatusPickedUp   OrderStatus = "picked_up"
	OrderStatusDelivering OrderStatus = "delivering"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusAccepted,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusAssigned,
	OrderStatusPickedUp,
	OrderStatusDelivering,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// Допустимые предшественники для каждого статуса. Отмена обрабатывается отдельно.
var orderStatusPredecessors = map[OrderStatus][]OrderStatus{
	OrderStatusAccepted:   {OrderStatusPending},
	OrderStatusPreparing:  {OrderStatusAccepted},
	OrderStatusReady:      {OrderStatusAccepted, OrderStatusPreparing},
	OrderStatusAssigned:   {OrderStatusAccepted, OrderStatusPreparing, OrderStatusReady, OrderStatusAssigned},
	OrderStatusPickedUp:   {OrderStatusAssigned, OrderStatusReady},
	OrderStatusDelivering: {OrderStatusPickedUp},
	// accepted -> delivered: ресторан доставляет сам.
	OrderStatusDelivered: {OrderStatusDelivering, OrderStatusAccepted},
}

// String реализует fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid сообщает, является ли статус известным.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal сообщает, является ли статус конечным.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransition сообщает, допустим ли переход from -> to.
func CanTransition(from, to OrderStatus) bool {
	if !from.IsValid() || !to.IsValid() || from.IsTerminal() {
		return false
	}
	if to == OrderStatusCancelled {
		return true
	}
	for _, p := range orderStatusPredecessors[to] {
		if p == from {
			return true
		}
	}
	return false
}

// CanUpdate сообщает, можно ли применить обновление заказа: переход по таблице
// или назначение водителя без смены статуса, в том числе для завершённого заказа.
func CanUpdate(from, to OrderStatus, driverID ID) bool {
	if from == to && driverID != "" && from.IsValid() {
		return true
	}
	return CanTransition(from, to)
}

// ParseOrderStatus преобразует строку в OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
