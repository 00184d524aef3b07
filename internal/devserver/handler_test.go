package devserver

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/foodmarket-client/internal/middleware"
	"github.com/mmeshcher/foodmarket-client/internal/model"
)

type testServer struct {
	*httptest.Server
	state  *State
	faults *Faults
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	state := NewState()
	if err := Seed(state); err != nil {
		t.Fatalf("seed: %v", err)
	}
	faults := &Faults{}
	h := NewHandler(state, zap.NewNop(), middleware.NewAuthMiddleware("test-secret"), faults)

	srv := httptest.NewServer(h.SetupRouter())
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, state: state, faults: faults}
}

func (ts *testServer) call(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func (ts *testServer) login(t *testing.T, email string) authResponse {
	t.Helper()

	status, data := ts.call(t, http.MethodPost, "/api/auth/login/", "", credentialsRequest{Email: email, Password: DemoPassword})
	require.Equal(t, http.StatusOK, status, string(data))

	var resp authResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	return resp
}

func (ts *testServer) productByName(t *testing.T, name string) model.Product {
	t.Helper()
	for _, p := range ts.state.Products(nil) {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("product %q not seeded", name)
	return model.Product{}
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return v
}

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t)

	signup := model.SignupData{Email: "Kemi@Example.com", Password: "pw", Password2: "pw", FirstName: "Kemi"}
	status, data := ts.call(t, http.MethodPost, "/api/auth/register/", "", signup)
	require.Equal(t, http.StatusCreated, status, string(data))

	created := decode[authResponse](t, data)
	assert.Equal(t, "kemi@example.com", created.User.Email)
	assert.Equal(t, model.RoleClient, created.User.Role)
	assert.NotEmpty(t, created.Tokens.Access)
	assert.NotEmpty(t, created.Tokens.Refresh)

	status, _ = ts.call(t, http.MethodPost, "/api/auth/register/", "", signup)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = ts.call(t, http.MethodPost, "/api/auth/register/", "", model.SignupData{Email: "x@y.z", Password: "a", Password2: "b"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = ts.call(t, http.MethodPost, "/api/auth/login/", "", credentialsRequest{Email: "kemi@example.com", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, data = ts.call(t, http.MethodPost, "/api/auth/login/", "", credentialsRequest{Email: "kemi@example.com", Password: "pw"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, created.User.ID, decode[authResponse](t, data).User.ID)
}

func TestRefreshRotatesAndRevokes(t *testing.T) {
	ts := newTestServer(t)
	session := ts.login(t, DemoClientEmail)

	status, data := ts.call(t, http.MethodPost, "/api/auth/refresh/", "", refreshRequest{Refresh: session.Tokens.Refresh})
	require.Equal(t, http.StatusOK, status, string(data))
	rotated := decode[tokensResponse](t, data)
	assert.NotEqual(t, session.Tokens.Refresh, rotated.Refresh)

	status, _ = ts.call(t, http.MethodPost, "/api/auth/refresh/", "", refreshRequest{Refresh: session.Tokens.Refresh})
	assert.Equal(t, http.StatusUnauthorized, status, "old refresh token must be revoked")

	status, _ = ts.call(t, http.MethodPost, "/api/auth/refresh/", "", refreshRequest{Refresh: rotated.Access})
	assert.Equal(t, http.StatusUnauthorized, status, "access token is not a refresh token")

	status, _ = ts.call(t, http.MethodPost, "/api/auth/logout/", "", refreshRequest{Refresh: rotated.Refresh})
	assert.Equal(t, http.StatusOK, status)
	status, _ = ts.call(t, http.MethodPost, "/api/auth/refresh/", "", refreshRequest{Refresh: rotated.Refresh})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestProfile(t *testing.T) {
	ts := newTestServer(t)
	session := ts.login(t, DemoClientEmail)

	status, _ := ts.call(t, http.MethodGet, "/api/auth/profile/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	phone := "+229 61 00 00 00"
	status, data := ts.call(t, http.MethodPatch, "/api/auth/profile/", session.Tokens.Access, model.ProfileUpdate{Phone: &phone})
	require.Equal(t, http.StatusOK, status, string(data))

	status, data = ts.call(t, http.MethodGet, "/api/auth/profile/", session.Tokens.Access, nil)
	require.Equal(t, http.StatusOK, status)
	user := decode[model.User](t, data)
	assert.Equal(t, phone, user.Phone)
	assert.Equal(t, "Awa", user.FirstName)
}

func TestCatalogRoutes(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		path string
		want int
	}{
		{name: "categories", path: "/api/categories/", want: 2},
		{name: "restaurants", path: "/api/restaurants/", want: 2},
		{name: "featured restaurants", path: "/api/restaurants/featured/", want: 1},
		{name: "products", path: "/api/products/", want: 4},
		{name: "popular products", path: "/api/products/popular/", want: 4},
		{name: "featured products without images", path: "/api/products/featured/", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, data := ts.call(t, http.MethodGet, tt.path, "", nil)
			require.Equal(t, http.StatusOK, status)
			assert.Len(t, decode[[]json.RawMessage](t, data), tt.want)
		})
	}

	t.Run("banners are paginated", func(t *testing.T) {
		status, data := ts.call(t, http.MethodGet, "/api/banners/", "", nil)
		require.Equal(t, http.StatusOK, status)
		page := decode[struct {
			Count   int            `json:"count"`
			Results []model.Banner `json:"results"`
		}](t, data)
		assert.Equal(t, 1, page.Count)
		assert.Len(t, page.Results, 1)
	})

	t.Run("restaurant details and filters", func(t *testing.T) {
		aloko := ts.productByName(t, "Aloko")

		status, data := ts.call(t, http.MethodGet, "/api/restaurants/"+aloko.Restaurant.String()+"/", "", nil)
		require.Equal(t, http.StatusOK, status)
		details := decode[model.RestaurantDetails](t, data)
		assert.Equal(t, "Chez Maman", details.Name)
		assert.Len(t, details.Products, 3)

		status, data = ts.call(t, http.MethodGet, "/api/products/by_restaurant/?restaurant_id="+aloko.Restaurant.String(), "", nil)
		require.Equal(t, http.StatusOK, status)
		assert.Len(t, decode[[]model.Product](t, data), 3)

		status, _ = ts.call(t, http.MethodGet, "/api/products/by_restaurant/", "", nil)
		assert.Equal(t, http.StatusBadRequest, status)

		status, _ = ts.call(t, http.MethodGet, "/api/restaurants/missing/", "", nil)
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("unknown route", func(t *testing.T) {
		status, data := ts.call(t, http.MethodGet, "/api/nothing/", "", nil)
		assert.Equal(t, http.StatusNotFound, status)
		assert.Contains(t, string(data), "detail")
	})
}

func TestRoleGuards(t *testing.T) {
	ts := newTestServer(t)
	client := ts.login(t, DemoClientEmail)
	driver := ts.login(t, DemoDriverEmail)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{name: "cart without token", method: http.MethodGet, path: "/api/cart/", want: http.StatusUnauthorized},
		{name: "client on driver route", method: http.MethodGet, path: "/api/driver/dashboard/", token: client.Tokens.Access, want: http.StatusForbidden},
		{name: "client on manager route", method: http.MethodGet, path: "/api/manager/restaurant/", token: client.Tokens.Access, want: http.StatusForbidden},
		{name: "driver on manager route", method: http.MethodGet, path: "/api/team/", token: driver.Tokens.Access, want: http.StatusForbidden},
		{name: "client changes order status", method: http.MethodPost, path: "/api/orders/x/update_status/", token: client.Tokens.Access, want: http.StatusForbidden},
		{name: "refresh token as bearer", method: http.MethodGet, path: "/api/cart/", token: client.Tokens.Refresh, want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body any
			if tt.method == http.MethodPost {
				body = statusRequest{Status: model.OrderStatusAccepted}
			}
			status, _ := ts.call(t, tt.method, tt.path, tt.token, body)
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestCartAndOrderFlow(t *testing.T) {
	ts := newTestServer(t)
	client := ts.login(t, DemoClientEmail)
	token := client.Tokens.Access
	garba := ts.productByName(t, "Garba")
	aloko := ts.productByName(t, "Aloko")

	status, _ := ts.call(t, http.MethodPost, "/api/cart/items/", token, cartItemRequest{ProductID: garba.ID, Quantity: 1})
	require.Equal(t, http.StatusOK, status)
	status, _ = ts.call(t, http.MethodPost, "/api/cart/items/", token, cartItemRequest{ProductID: garba.ID, Quantity: 1})
	require.Equal(t, http.StatusOK, status)
	status, _ = ts.call(t, http.MethodPost, "/api/cart/items/", token, cartItemRequest{ProductID: aloko.ID, Quantity: 3})
	require.Equal(t, http.StatusOK, status)

	status, _ = ts.call(t, http.MethodPatch, "/api/cart/items/", token, cartItemRequest{ProductID: aloko.ID, Quantity: 1})
	require.Equal(t, http.StatusOK, status)

	status, _ = ts.call(t, http.MethodPost, "/api/cart/items/", token, cartItemRequest{ProductID: "missing", Quantity: 1})
	assert.Equal(t, http.StatusNotFound, status)

	status, data := ts.call(t, http.MethodGet, "/api/cart/", token, nil)
	require.Equal(t, http.StatusOK, status)
	cart := decode[struct {
		Items []model.CartLine `json:"items"`
		Total model.Amount     `json:"total"`
	}](t, data)
	require.Len(t, cart.Items, 2)
	assert.Equal(t, model.Amount(2*800+1000), cart.Total)

	status, _ = ts.call(t, http.MethodDelete, "/api/cart/items/?product_id="+aloko.ID.String(), token, nil)
	require.Equal(t, http.StatusNoContent, status)
	assert.Len(t, ts.state.Cart(client.User.ID), 1)

	details := model.OrderDetails{CustomerName: "Awa", CustomerPhone: "+229 97 11 22 33", DeliveryAddress: "Fidjrossè"}
	status, data = ts.call(t, http.MethodPost, "/api/orders/create_from_cart/", token, details)
	require.Equal(t, http.StatusCreated, status, string(data))

	order := decode[model.Order](t, data)
	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.Equal(t, demoRestaurantFee, order.DeliveryFee)
	assert.Equal(t, model.Amount(2*800)+demoRestaurantFee, order.Total)
	assert.Equal(t, "Fidjrossè", order.DeliveryAddress)
	assert.Empty(t, ts.state.Cart(client.User.ID))

	status, _ = ts.call(t, http.MethodPost, "/api/orders/create_from_cart/", token, details)
	assert.Equal(t, http.StatusBadRequest, status, "cart is empty after ordering")

	status, data = ts.call(t, http.MethodGet, "/api/orders/", token, nil)
	require.Equal(t, http.StatusOK, status)
	orders := decode[[]model.Order](t, data)
	require.Len(t, orders, 1)
	assert.Equal(t, order.ID, orders[0].ID)

	status, _ = ts.call(t, http.MethodGet, "/api/orders/"+order.ID.String()+"/", token, nil)
	assert.Equal(t, http.StatusOK, status)

	other := ts.login(t, DemoDriverEmail)
	status, _ = ts.call(t, http.MethodGet, "/api/orders/"+order.ID.String()+"/", other.Tokens.Access, nil)
	assert.Equal(t, http.StatusNotFound, status, "foreign orders are hidden")

	status, _ = ts.call(t, http.MethodDelete, "/api/cart/items/", token, nil)
	assert.Equal(t, http.StatusNoContent, status)
}

func TestCreateOrderWithGzipBody(t *testing.T) {
	ts := newTestServer(t)
	client := ts.login(t, DemoClientEmail)
	token := client.Tokens.Access
	garba := ts.productByName(t, "Garba")

	status, _ := ts.call(t, http.MethodPost, "/api/cart/items/", token, cartItemRequest{ProductID: garba.ID, Quantity: 2})
	require.Equal(t, http.StatusOK, status)

	details, err := json.Marshal(model.OrderDetails{CustomerName: "Awa", CustomerPhone: "+229 97 11 22 33", DeliveryAddress: "Akpakpa"})
	require.NoError(t, err)
	var compressed bytes.Buffer
	gz := gzip.NewWriter(&compressed)
	_, err = gz.Write(details)
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/orders/create_from_cart/", &compressed)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))

	gr, err := gzip.NewReader(resp.Body)
	require.NoError(t, err)
	defer gr.Close()
	var order model.Order
	require.NoError(t, json.NewDecoder(gr).Decode(&order))

	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.Equal(t, "Akpakpa", order.DeliveryAddress)
	assert.Equal(t, model.Amount(2*800)+demoRestaurantFee, order.Total)
	assert.Empty(t, ts.state.Cart(client.User.ID))
}

func TestUpdateOrderStatus(t *testing.T) {
	ts := newTestServer(t)
	client := ts.login(t, DemoClientEmail)
	manager := ts.login(t, DemoManagerEmail)
	driver := ts.login(t, DemoDriverEmail)

	require.NoError(t, ts.state.AddCartItem(client.User.ID, ts.productByName(t, "Amiwo").ID, 1))
	order, err := ts.state.CreateOrderFromCart(client.User.ID, model.OrderDetails{CustomerName: "Awa"})
	require.NoError(t, err)
	path := "/api/orders/" + order.ID.String() + "/update_status/"

	status, data := ts.call(t, http.MethodGet, "/api/orders/pending/", manager.Tokens.Access, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]model.Order](t, data), 1, "manager sees pending orders of the restaurant")

	status, _ = ts.call(t, http.MethodPost, path, manager.Tokens.Access, statusRequest{Status: model.OrderStatusDelivered})
	assert.Equal(t, http.StatusBadRequest, status, "pending cannot jump to delivered")

	status, _ = ts.call(t, http.MethodPost, path, manager.Tokens.Access, statusRequest{Status: "lost"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = ts.call(t, http.MethodPost, "/api/orders/missing/update_status/", manager.Tokens.Access, statusRequest{Status: model.OrderStatusAccepted})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = ts.call(t, http.MethodPost, path, manager.Tokens.Access, statusRequest{Status: model.OrderStatusAccepted})
	require.Equal(t, http.StatusOK, status)

	driverID := driver.User.ID
	status, data = ts.call(t, http.MethodPost, path, manager.Tokens.Access, statusRequest{Status: model.OrderStatusAssigned, DriverID: &driverID})
	require.Equal(t, http.StatusOK, status)
	assigned := decode[model.Order](t, data)
	assert.Equal(t, model.OrderStatusAssigned, assigned.Status)
	assert.Equal(t, driverID, assigned.DriverID)

	status, data = ts.call(t, http.MethodGet, "/api/driver/missions/", driver.Tokens.Access, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]model.Order](t, data), 1)

	for _, next := range []model.OrderStatus{model.OrderStatusPickedUp, model.OrderStatusDelivering, model.OrderStatusDelivered} {
		status, _ = ts.call(t, http.MethodPost, path, driver.Tokens.Access, statusRequest{Status: next})
		require.Equal(t, http.StatusOK, status, "transition to %s", next)
	}

	status, data = ts.call(t, http.MethodGet, "/api/driver/dashboard/", driver.Tokens.Access, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, decode[model.DriverStats](t, data).Deliveries)

	status, _ = ts.call(t, http.MethodPost, path, driver.Tokens.Access, statusRequest{Status: model.OrderStatusCancelled})
	assert.Equal(t, http.StatusBadRequest, status, "delivered is terminal")

	other := model.ID("d2")
	status, data = ts.call(t, http.MethodPost, path, manager.Tokens.Access, statusRequest{Status: model.OrderStatusDelivered, DriverID: &other})
	require.Equal(t, http.StatusOK, status, "driver can still be corrected")
	assert.Equal(t, other, decode[model.Order](t, data).DriverID)
}

func TestDriverSchedule(t *testing.T) {
	ts := newTestServer(t)
	driver := ts.login(t, DemoDriverEmail)
	token := driver.Tokens.Access

	status, data := ts.call(t, http.MethodGet, "/api/driver/schedule/my_schedule/", token, nil)
	require.Equal(t, http.StatusOK, status)
	entries := decode[[]model.ScheduleEntry](t, data)
	require.Len(t, entries, len(model.Weekdays))
	assert.Equal(t, model.Weekdays[0], entries[0].Day)

	enabled := false
	start := "10:00"
	status, data = ts.call(t, http.MethodPost, "/api/driver/schedule/update_day/", token, updateDayRequest{
		Day:       model.Weekdays[2],
		IsEnabled: &enabled,
		StartTime: &start,
	})
	require.Equal(t, http.StatusOK, status, string(data))
	entry := decode[model.ScheduleEntry](t, data)
	assert.False(t, entry.IsEnabled)
	assert.Equal(t, "10:00", entry.StartTime)
	assert.Equal(t, model.DefaultDaySchedule().EndTime, entry.EndTime)

	status, _ = ts.call(t, http.MethodPost, "/api/driver/schedule/update_day/", token, map[string]any{"day": "someday"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, data = ts.call(t, http.MethodPost, "/api/driver/schedule/toggle_availability/", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"is_available":false}`, string(data))
}

func TestManagerRestaurantAndCatalogCRUD(t *testing.T) {
	ts := newTestServer(t)
	manager := ts.login(t, DemoManagerEmail)
	token := manager.Tokens.Access

	status, data := ts.call(t, http.MethodGet, "/api/manager/restaurant/", token, nil)
	require.Equal(t, http.StatusOK, status)
	restaurant := decode[managerRestaurantResponse](t, data)
	assert.Equal(t, "Chez Maman", restaurant.Name)
	assert.Len(t, restaurant.Products, 3)

	name := "Chez Maman Akpakpa"
	status, data = ts.call(t, http.MethodPatch, "/api/restaurants/"+restaurant.ID.String()+"/", token, model.RestaurantUpdate{Name: &name})
	require.Equal(t, http.StatusOK, status, string(data))
	assert.Equal(t, name, decode[model.Restaurant](t, data).Name)

	status, data = ts.call(t, http.MethodPost, "/api/restaurants/"+restaurant.ID.String()+"/toggle_open/", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"is_open":false}`, string(data))

	status, data = ts.call(t, http.MethodPost, "/api/products/", token, productCreateRequest{Name: "Ablo", Price: 500})
	require.Equal(t, http.StatusCreated, status, string(data))
	product := decode[model.Product](t, data)
	assert.Equal(t, restaurant.ID, product.Restaurant)

	status, _ = ts.call(t, http.MethodPost, "/api/products/", token, productCreateRequest{Name: " ", Price: 500})
	assert.Equal(t, http.StatusBadRequest, status)

	price := model.Amount(600)
	status, data = ts.call(t, http.MethodPatch, "/api/products/"+product.ID.String()+"/", token, model.ProductUpdate{Price: &price})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, price, decode[model.Product](t, data).Price)

	braised := ts.productByName(t, "Poulet braisé")
	status, _ = ts.call(t, http.MethodDelete, "/api/products/"+braised.ID.String()+"/", token, nil)
	assert.Equal(t, http.StatusNotFound, status, "products of other restaurants are not editable")

	status, _ = ts.call(t, http.MethodDelete, "/api/products/"+product.ID.String()+"/", token, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, data = ts.call(t, http.MethodPost, "/api/banners/", token, bannerCreateRequest{Title: "Nouveau"})
	require.Equal(t, http.StatusCreated, status)
	banner := decode[model.Banner](t, data)
	title := "Nouveau menu"
	status, _ = ts.call(t, http.MethodPatch, "/api/banners/"+banner.ID.String()+"/", token, model.BannerUpdate{Title: &title})
	assert.Equal(t, http.StatusOK, status)
	status, _ = ts.call(t, http.MethodDelete, "/api/banners/"+banner.ID.String()+"/", token, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, data = ts.call(t, http.MethodPost, "/api/team/", token, model.TeamMember{Name: "Sena", Role: "livreur"})
	require.Equal(t, http.StatusCreated, status)
	member := decode[model.TeamMember](t, data)
	status, data = ts.call(t, http.MethodGet, "/api/team/", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]model.TeamMember](t, data), 2)
	status, _ = ts.call(t, http.MethodDelete, "/api/team/"+member.ID.String()+"/", token, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, data = ts.call(t, http.MethodGet, "/api/manager/dashboard/", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(data), `"total_orders":0`)
}

func uploadRequest(t *testing.T, url, token, filename, contentType string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="image"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("\xff\xd8\xff\xe0fake"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestUploadProductImage(t *testing.T) {
	ts := newTestServer(t)
	manager := ts.login(t, DemoManagerEmail)
	amiwo := ts.productByName(t, "Amiwo")
	url := ts.URL + "/api/products/" + amiwo.ID.String() + "/upload_image/"

	resp, err := ts.Client().Do(uploadRequest(t, url, manager.Tokens.Access, "amiwo.jpg", "image/jpeg"))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	updated := ts.productByName(t, "Amiwo")
	assert.True(t, strings.HasPrefix(updated.Image, "/media/products/"), updated.Image)
	assert.True(t, strings.HasSuffix(updated.Image, "_amiwo.jpg"), updated.Image)

	resp, err = ts.Client().Do(uploadRequest(t, url, manager.Tokens.Access, "notes.txt", "text/plain"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFaultModes(t *testing.T) {
	ts := newTestServer(t)

	status, _ := ts.call(t, http.MethodPost, "/api/dev/fault/", "", map[string]string{"mode": "unavailable"})
	require.Equal(t, http.StatusOK, status)

	status, _ = ts.call(t, http.MethodGet, "/api/categories/", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)

	status, _ = ts.call(t, http.MethodPost, "/api/dev/fault/", "", map[string]string{"mode": "drop"})
	require.Equal(t, http.StatusOK, status, "dev endpoints ignore faults")
	assert.Equal(t, FaultDrop, ts.faults.Mode())

	_, err := ts.Client().Get(ts.URL + "/api/categories/")
	assert.Error(t, err, "dropped connection must surface as a transport error")

	status, _ = ts.call(t, http.MethodPost, "/api/dev/fault/", "", map[string]string{"mode": "flaky"})
	assert.Equal(t, http.StatusBadRequest, status)

	ts.faults.Set(FaultNone)
	status, data := ts.call(t, http.MethodGet, "/api/settings/", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(data), `"fault_mode":"none"`)
}

func TestParseFaultMode(t *testing.T) {
	for _, mode := range []FaultMode{FaultNone, FaultUnavailable, FaultDrop} {
		parsed, err := ParseFaultMode(mode.String())
		require.NoError(t, err)
		assert.Equal(t, mode, parsed)
	}
	parsed, err := ParseFaultMode("")
	require.NoError(t, err)
	assert.Equal(t, FaultNone, parsed)

	_, err = ParseFaultMode("sometimes")
	assert.Error(t, err)
}
