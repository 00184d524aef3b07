package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/foodmarket-client/internal/marketapi"
	"github.com/mmeshcher/foodmarket-client/internal/model"
	"github.com/mmeshcher/foodmarket-client/internal/repository"
)

var testNow = time.UnixMilli(1718000000000).UTC()

func fixedClock() time.Time { return testNow }

// stubBackend сервер в памяти. Незаданные методы ведут себя как OfflineBackend.
type stubBackend struct {
	OfflineBackend

	mu    sync.Mutex
	calls []string

	token bool

	loginUser model.User
	loginErr  error

	categories []model.Category
	companies  []model.Company
	products   []model.Product
	banners    []model.Banner
	catalogErr error

	restaurantDetails model.RestaurantDetails
	restaurantErr     error
	listErr           error
	product           model.Product
	settings          model.AppSettings

	mutationErr error

	createdOrder   model.Order
	createOrderErr error
	statusErr      error
	order          model.Order
	orders         []model.Order

	schedule    []model.ScheduleEntry
	scheduleErr error
	dayFields   map[string]any
	dayErr      error
	toggleErr   error

	profile      model.User
	profileErr   error
	stats        model.DriverStats
	profileBlock chan struct{}

	managerRestaurant marketapi.ManagerRestaurant
	managerErr        error
	dashboard         model.ManagerDashboard
	team              []model.TeamMember

	createdID model.ID
}

func (b *stubBackend) record(format string, args ...any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, fmt.Sprintf(format, args...))
}

func (b *stubBackend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func (b *stubBackend) LoadTokens(context.Context) (bool, error) { return b.token, nil }
func (b *stubBackend) HasToken() bool                           { return b.token }

func (b *stubBackend) Login(_ context.Context, email, _ string) (model.User, error) {
	b.record("login:%s", email)
	if b.loginErr != nil {
		return model.User{}, b.loginErr
	}
	b.token = true
	return b.loginUser, nil
}

func (b *stubBackend) Register(_ context.Context, data model.SignupData) (model.User, error) {
	b.record("register:%s", data.Email)
	if b.loginErr != nil {
		return model.User{}, b.loginErr
	}
	b.token = true
	return b.loginUser, nil
}

func (b *stubBackend) Logout(context.Context) error {
	b.record("logout")
	b.token = false
	return b.mutationErr
}

func (b *stubBackend) Profile(ctx context.Context) (model.User, error) {
	b.record("profile")
	if b.profileBlock != nil {
		close(b.profileBlock)
		<-ctx.Done()
	}
	return b.profile, b.profileErr
}

func (b *stubBackend) DriverDashboard(context.Context) (model.DriverStats, error) {
	return b.stats, nil
}

func (b *stubBackend) UpdateProfile(_ context.Context, upd model.ProfileUpdate) (model.User, error) {
	b.record("profile_update")
	return model.User{}, b.mutationErr
}

func (b *stubBackend) Categories(context.Context) ([]model.Category, error) {
	return b.categories, b.catalogErr
}

func (b *stubBackend) Restaurants(context.Context) ([]model.Company, error) {
	return b.companies, b.catalogErr
}

func (b *stubBackend) PopularProducts(context.Context) ([]model.Product, error) {
	return b.products, b.catalogErr
}

func (b *stubBackend) Banners(context.Context) ([]model.Banner, error) {
	return b.banners, b.catalogErr
}

func (b *stubBackend) Restaurant(_ context.Context, id model.ID) (model.RestaurantDetails, error) {
	b.record("restaurant:%s", id)
	return b.restaurantDetails, b.restaurantErr
}

func (b *stubBackend) RestaurantsByCategory(_ context.Context, id model.ID) ([]model.Company, error) {
	b.record("restaurants_by_category:%s", id)
	return b.companies, b.listErr
}

func (b *stubBackend) FeaturedRestaurants(context.Context) ([]model.Company, error) {
	b.record("featured_restaurants")
	return b.companies, b.listErr
}

func (b *stubBackend) Products(context.Context) ([]model.Product, error) {
	b.record("products")
	return b.products, b.listErr
}

func (b *stubBackend) Product(_ context.Context, id model.ID) (model.Product, error) {
	b.record("product:%s", id)
	return b.product, b.listErr
}

func (b *stubBackend) ProductsByRestaurant(_ context.Context, id model.ID) ([]model.Product, error) {
	b.record("products_by_restaurant:%s", id)
	return b.products, b.listErr
}

func (b *stubBackend) FeaturedProducts(context.Context) ([]model.Product, error) {
	b.record("featured_products")
	return b.products, b.listErr
}

func (b *stubBackend) AppSettings(context.Context) (model.AppSettings, error) {
	b.record("settings")
	return b.settings, b.listErr
}

func (b *stubBackend) Order(_ context.Context, id model.ID) (model.Order, error) {
	b.record("order:%s", id)
	return b.order, b.listErr
}

func (b *stubBackend) Orders(context.Context) ([]model.Order, error) {
	b.record("orders")
	return b.orders, b.listErr
}

func (b *stubBackend) PendingOrders(context.Context) ([]model.Order, error) {
	b.record("pending_orders")
	return b.orders, b.listErr
}

func (b *stubBackend) DriverMissions(context.Context) ([]model.Order, error) {
	b.record("missions")
	return b.orders, b.listErr
}

func (b *stubBackend) ManagerDashboard(context.Context) (model.ManagerDashboard, error) {
	b.record("manager_dashboard")
	return b.dashboard, b.listErr
}

func (b *stubBackend) UploadRestaurantImage(_ context.Context, id model.ID, uri string) error {
	b.record("restaurant_image:%s:%s", id, uri)
	return nil
}

func (b *stubBackend) CartAddItem(_ context.Context, id model.ID, qty int) error {
	b.record("cart_add:%s:%d", id, qty)
	return b.mutationErr
}

func (b *stubBackend) CartUpdateItem(_ context.Context, id model.ID, qty int) error {
	b.record("cart_update:%s:%d", id, qty)
	return b.mutationErr
}

func (b *stubBackend) CartRemoveItem(_ context.Context, id model.ID) error {
	b.record("cart_remove:%s", id)
	return b.mutationErr
}

func (b *stubBackend) CartClear(context.Context) error {
	b.record("cart_clear")
	return b.mutationErr
}

func (b *stubBackend) CreateOrder(_ context.Context, details model.OrderDetails) (model.Order, error) {
	b.record("order_create:%s", details.CustomerName)
	return b.createdOrder, b.createOrderErr
}

func (b *stubBackend) UpdateOrderStatus(_ context.Context, id model.ID, status model.OrderStatus, driverID model.ID) error {
	b.record("order_status:%s:%s:%s", id, status, driverID)
	return b.statusErr
}

func (b *stubBackend) DriverSchedule(context.Context) ([]model.ScheduleEntry, error) {
	b.record("driver_schedule")
	return b.schedule, b.scheduleErr
}

func (b *stubBackend) UpdateDriverDay(_ context.Context, day model.Weekday, fields map[string]any) error {
	b.record("update_day:%s", day)
	b.mu.Lock()
	b.dayFields = fields
	b.mu.Unlock()
	return b.dayErr
}

func (b *stubBackend) ToggleDriverAvailability(context.Context) error {
	b.record("toggle_availability")
	return b.toggleErr
}

func (b *stubBackend) ManagerRestaurant(context.Context) (marketapi.ManagerRestaurant, error) {
	b.record("manager_restaurant")
	return b.managerRestaurant, b.managerErr
}

func (b *stubBackend) TeamMembers(context.Context) ([]model.TeamMember, error) {
	return b.team, nil
}

func (b *stubBackend) UpdateRestaurant(_ context.Context, id model.ID, _ model.RestaurantUpdate) error {
	b.record("restaurant_update:%s", id)
	return b.mutationErr
}

func (b *stubBackend) ToggleRestaurantOpen(_ context.Context, id model.ID) error {
	b.record("restaurant_toggle:%s", id)
	return b.mutationErr
}

func (b *stubBackend) CreateProduct(_ context.Context, p model.Product) (model.Product, error) {
	b.record("product_create:%s", p.Name)
	if b.mutationErr != nil {
		return model.Product{}, b.mutationErr
	}
	p.ID = b.createdID
	return p, nil
}

func (b *stubBackend) UpdateProduct(_ context.Context, id model.ID, _ model.ProductUpdate) error {
	b.record("product_update:%s", id)
	return b.mutationErr
}

func (b *stubBackend) DeleteProduct(_ context.Context, id model.ID) error {
	b.record("product_delete:%s", id)
	return b.mutationErr
}

func (b *stubBackend) UploadProductImage(_ context.Context, id model.ID, uri string) error {
	b.record("product_image:%s:%s", id, uri)
	return nil
}

func (b *stubBackend) CreateBanner(_ context.Context, banner model.Banner) (model.Banner, error) {
	b.record("banner_create:%s", banner.Title)
	if b.mutationErr != nil {
		return model.Banner{}, b.mutationErr
	}
	banner.ID = b.createdID
	return banner, nil
}

func (b *stubBackend) UploadBannerImage(_ context.Context, id model.ID, uri string) error {
	b.record("banner_image:%s:%s", id, uri)
	return nil
}

func (b *stubBackend) CreateTeamMember(_ context.Context, m model.TeamMember) (model.TeamMember, error) {
	b.record("team_create:%s", m.Name)
	if b.mutationErr != nil {
		return model.TeamMember{}, b.mutationErr
	}
	m.ID = b.createdID
	return m, nil
}

func (b *stubBackend) DeleteTeamMember(_ context.Context, id model.ID) error {
	b.record("team_delete:%s", id)
	return b.mutationErr
}

// onlineStub сервер, который отдаёт каталог.
func onlineStub() *stubBackend {
	return &stubBackend{
		categories: []model.Category{{ID: "1", Name: "Pizza"}},
		companies:  []model.Company{{ID: "3", Name: "Chez Maman", IsOpen: true}},
		products:   []model.Product{{ID: "9", Name: "Aloko", Price: 1500, Restaurant: "3"}},
		banners:    []model.Banner{{ID: "5", Title: "Promo", Restaurant: "3"}},
	}
}

func newTestStore(t *testing.T, b Backend, storage repository.Storage) *Store {
	t.Helper()
	if storage == nil {
		storage = repository.NewMemoryStorage()
	}
	s := NewStore(Options{Storage: storage, Backend: b, Now: fixedClock})
	require.NoError(t, s.Init(context.Background()))
	return s
}

// loggedInStore хранилище с сессией, у которой есть токен, и доступным сервером.
func loggedInStore(t *testing.T, b *stubBackend, role model.Role) *Store {
	t.Helper()
	if b.loginUser.ID == "" {
		b.loginUser = model.User{ID: "42", Email: "user@example.com", Role: role}
	}
	s := newTestStore(t, b, nil)
	_, err := s.Login(context.Background(), b.loginUser.Email, "secret", role)
	require.NoError(t, err)
	return s
}
