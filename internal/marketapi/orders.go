package marketapi

import (
	"context"
	"net/http"
	"net/url"

	"github.com/mmeshcher/foodmarket-client/internal/model"
)

type cartItemRequest struct {
	ProductID model.ID `json:"product_id"`
	Quantity  int      `json:"quantity"`
}

// CartAddItem добавляет товар в серверную корзину.
func (c *Client) CartAddItem(ctx context.Context, productID model.ID, quantity int) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   "/cart/items/",
		body:   cartItemRequest{ProductID: productID, Quantity: quantity},
	}, nil)
}

// CartUpdateItem задаёт количество товара в серверной корзине.
func (c *Client) CartUpdateItem(ctx context.Context, productID model.ID, quantity int) error {
	return c.do(ctx, request{
		method: http.MethodPut,
		path:   "/cart/items/",
		body:   cartItemRequest{ProductID: productID, Quantity: quantity},
	}, nil)
}

// CartRemoveItem удаляет товар из серверной корзины.
func (c *Client) CartRemoveItem(ctx context.Context, productID model.ID) error {
	return c.do(ctx, request{
		method: http.MethodDelete,
		path:   "/cart/items/",
		query:  url.Values{"product_id": {productID.String()}},
	}, nil)
}

// CartClear очищает серверную корзину.
func (c *Client) CartClear(ctx context.Context) error {
	return c.do(ctx, request{method: http.MethodDelete, path: "/cart/items/"}, nil)
}

// Orders возвращает заказы пользователя.
func (c *Client) Orders(ctx context.Context) ([]model.Order, error) {
	return getList[model.Order](ctx, c, "/orders/", nil)
}

// Order возвращает заказ по идентификатору.
func (c *Client) Order(ctx context.Context, id model.ID) (model.Order, error) {
	var o model.Order
	err := c.do(ctx, request{method: http.MethodGet, path: "/orders/" + url.PathEscape(id.String()) + "/"}, &o)
	return o, err
}

// CreateOrder оформляет заказ из серверной корзины.
func (c *Client) CreateOrder(ctx context.Context, details model.OrderDetails) (model.Order, error) {
	var o model.Order
	err := c.do(ctx, request{method: http.MethodPost, path: "/orders/create_from_cart/", body: details}, &o)
	return o, err
}

type updateStatusRequest struct {
	Status   model.OrderStatus `json:"status"`
	DriverID *model.ID         `json:"driver_id"`
}

// UpdateOrderStatus меняет статус заказа и, если задан, назначенного водителя.
func (c *Client) UpdateOrderStatus(ctx context.Context, id model.ID, status model.OrderStatus, driverID model.ID) error {
	body := updateStatusRequest{Status: status}
	if driverID != "" {
		body.DriverID = &driverID
	}
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   "/orders/" + url.PathEscape(id.String()) + "/update_status/",
		body:   body,
	}, nil)
}

// PendingOrders возвращает заказы, ожидающие обработки.
func (c *Client) PendingOrders(ctx context.Context) ([]model.Order, error) {
	return getList[model.Order](ctx, c, "/orders/pending/", nil)
}
