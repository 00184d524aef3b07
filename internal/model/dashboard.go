package model

// ManagerDashboard сводка ресторана для менеджера.
type ManagerDashboard struct {
	Restaurant    string `json:"restaurant"`
	TotalOrders   int    `json:"total_orders"`
	PendingOrders int    `json:"pending_orders"`
	Revenue       Amount `json:"revenue"`
	Products      int    `json:"products"`
}

// SummarizeOrders считает сводку по заказам ресторана. Выручка учитывает только доставленные заказы.
func SummarizeOrders(restaurant string, orders []Order, products int) ManagerDashboard {
	d := ManagerDashboard{Restaurant: restaurant, TotalOrders: len(orders), Products: products}
	for _, o := range orders {
		switch o.Status {
		case OrderStatusPending:
			d.PendingOrders++
		case OrderStatusDelivered:
			d.Revenue += o.Total
		}
	}
	return d
}

// AppSettings общие настройки приложения.
type AppSettings struct {
	DefaultDeliveryFee Amount `json:"default_delivery_fee"`
	Currency           string `json:"currency"`
	FaultMode          string `json:"fault_mode,omitempty"`
}

// DefaultCurrency валюта цен каталога.
const DefaultCurrency = "XOF"
