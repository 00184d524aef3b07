package model

import "time"

// CartLine позиция корзины. Quantity всегда не меньше 1.
type CartLine struct {
	ProductID  ID     `json:"id"`
	Name       string `json:"name"`
	Price      Amount `json:"price"`
	Quantity   int    `json:"quantity"`
	Image      string `json:"image,omitempty"`
	Restaurant ID     `json:"restaurant,omitempty"`
}

// Subtotal стоимость позиции.
func (l CartLine) Subtotal() Amount {
	return l.Price * Amount(l.Quantity)
}

// CartTotal сумма всех позиций корзины без доставки.
func CartTotal(lines []CartLine) Amount {
	var sum Amount
	for _, l := range lines {
		sum += l.Subtotal()
	}
	return sum
}

// OrderItem снимок позиции корзины на момент оформления заказа.
type OrderItem struct {
	ProductID ID     `json:"product_id,omitempty"`
	Name      string `json:"product_name"`
	Price     Amount `json:"product_price"`
	Quantity  int    `json:"quantity"`
}

// Order заказ клиента. Заказы не удаляются, меняется только статус.
type Order struct {
	ID              ID          `json:"id"`
	CreatedAt       time.Time   `json:"created_at"`
	Items           []OrderItem `json:"items"`
	Total           Amount      `json:"total"`
	DeliveryFee     Amount      `json:"delivery_fee"`
	Status          OrderStatus `json:"status"`
	CustomerName    string      `json:"customer_name"`
	CustomerPhone   string      `json:"customer_phone"`
	DeliveryAddress string      `json:"delivery_address"`
	DriverID        ID          `json:"driver_id,omitempty"`
}

// OrderDetails данные клиента для оформления заказа.
type OrderDetails struct {
	CustomerName    string `json:"customer_name"`
	CustomerPhone   string `json:"customer_phone"`
	DeliveryAddress string `json:"delivery_address"`
	Notes           string `json:"notes,omitempty"`
}

// NewLocalOrder собирает заказ из корзины без участия сервера.
// Итог фиксируется в момент создания и больше не пересчитывается.
func NewLocalOrder(id ID, now time.Time, lines []CartLine, details OrderDetails, fee Amount) Order {
	items := make([]OrderItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, OrderItem{
			ProductID: l.ProductID,
			Name:      l.Name,
			Price:     l.Price,
			Quantity:  l.Quantity,
		})
	}
	return Order{
		ID:              id,
		CreatedAt:       now.UTC(),
		Items:           items,
		Total:           CartTotal(lines) + fee,
		DeliveryFee:     fee,
		Status:          OrderStatusPending,
		CustomerName:    details.CustomerName,
		CustomerPhone:   details.CustomerPhone,
		DeliveryAddress: details.DeliveryAddress,
	}
}
