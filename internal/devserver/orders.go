package devserver

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/foodmarket-client/internal/model"
)

type cartItemRequest struct {
	ProductID model.ID `json:"product_id"`
	Quantity  int      `json:"quantity"`
}

type statusRequest struct {
	Status   model.OrderStatus `json:"status"`
	DriverID *model.ID         `json:"driver_id"`
}

// Cart возвращает серверную корзину.
func (h *Handler) Cart(w http.ResponseWriter, r *http.Request) {
	userID, _ := currentUser(r)
	lines := h.state.Cart(userID)
	writeJSON(w, http.StatusOK, map[string]any{
		"items": lines,
		"total": model.CartTotal(lines),
	})
}

// CartAddItem добавляет товар в корзину.
func (h *Handler) CartAddItem(w http.ResponseWriter, r *http.Request) {
	userID, _ := currentUser(r)
	var req cartItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.state.AddCartItem(userID, req.ProductID, req.Quantity); err != nil {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	h.Cart(w, r)
}

// CartUpdateItem задаёт количество товара в корзине.
func (h *Handler) CartUpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, _ := currentUser(r)
	var req cartItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.state.SetCartItem(userID, req.ProductID, req.Quantity); err != nil {
		writeError(w, http.StatusNotFound, "item not in cart")
		return
	}
	h.Cart(w, r)
}

// CartRemoveItem удаляет позицию product_id или очищает корзину, если параметр не задан.
func (h *Handler) CartRemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, _ := currentUser(r)
	if productID := r.URL.Query().Get("product_id"); productID != "" {
		h.state.RemoveCartItem(userID, model.ID(productID))
	} else {
		h.state.ClearCart(userID)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Orders возвращает заказы, видимые пользователю: свои для клиента, ресторана для менеджера,
// назначенные для водителя, все для администратора.
func (h *Handler) Orders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.state.Orders(h.visibleOrders(r, nil)))
}

// PendingOrders возвращает видимые пользователю заказы в статусе pending.
func (h *Handler) PendingOrders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.state.Orders(h.visibleOrders(r, func(o model.Order) bool {
		return o.Status == model.OrderStatusPending
	})))
}

func (h *Handler) visibleOrders(r *http.Request, extra func(model.Order) bool) func(model.Order, model.ID, model.ID) bool {
	userID, role := currentUser(r)
	var managed model.ID
	if role == model.RoleManager {
		if restaurant, _, err := h.state.ManagerRestaurant(userID); err == nil {
			managed = restaurant.ID
		}
	}

	return func(o model.Order, ownerID, restaurant model.ID) bool {
		if extra != nil && !extra(o) {
			return false
		}
		switch role {
		case model.RoleAdmin:
			return true
		case model.RoleManager:
			return managed != "" && restaurant == managed
		case model.RoleDriver:
			return o.DriverID == userID || ownerID == userID
		default:
			return ownerID == userID
		}
	}
}

// Order возвращает заказ, если он виден пользователю.
func (h *Handler) Order(w http.ResponseWriter, r *http.Request) {
	id := model.ID(chi.URLParam(r, "id"))
	visible := h.state.Orders(h.visibleOrders(r, func(o model.Order) bool {
		return o.ID == id
	}))
	if len(visible) == 0 {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	writeJSON(w, http.StatusOK, visible[0])
}

// CreateOrderFromCart оформляет заказ из серверной корзины.
func (h *Handler) CreateOrderFromCart(w http.ResponseWriter, r *http.Request) {
	userID, _ := currentUser(r)
	var details model.OrderDetails
	if !decodeJSON(w, r, &details) {
		return
	}

	order, err := h.state.CreateOrderFromCart(userID, details)
	if err != nil {
		if errors.Is(err, ErrEmptyCart) {
			writeError(w, http.StatusBadRequest, "cart is empty")
			return
		}
		writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

// UpdateOrderStatus меняет статус заказа и при необходимости назначает водителя.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id := model.ID(chi.URLParam(r, "id"))
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !req.Status.IsValid() {
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}
	var driverID model.ID
	if req.DriverID != nil {
		driverID = *req.DriverID
	}

	order, err := h.state.UpdateOrderStatus(id, req.Status, driverID)
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, ErrIllegalTransition):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	default:
		writeJSON(w, http.StatusOK, order)
	}
}
