package service

import (
	"context"
	"errors"

	"github.com/mmeshcher/foodmarket-client/internal/marketapi"
	"github.com/mmeshcher/foodmarket-client/internal/model"
)

// ErrOffline возвращает локальный бэкенд: операция выполняется только на устройстве.
var ErrOffline = errors.New("remote backend unavailable")

// AuthBackend аутентификация и профиль.
type AuthBackend interface {
	LoadTokens(ctx context.Context) (bool, error)
	HasToken() bool
	EnsureFreshToken(ctx context.Context) error
	Login(ctx context.Context, email, password string) (model.User, error)
	Register(ctx context.Context, data model.SignupData) (model.User, error)
	Logout(ctx context.Context) error
	Profile(ctx context.Context) (model.User, error)
	UpdateProfile(ctx context.Context, upd model.ProfileUpdate) (model.User, error)
}

// CatalogBackend публичный каталог.
type CatalogBackend interface {
	Categories(ctx context.Context) ([]model.Category, error)
	Restaurants(ctx context.Context) ([]model.Company, error)
	Restaurant(ctx context.Context, id model.ID) (model.RestaurantDetails, error)
	RestaurantsByCategory(ctx context.Context, categoryID model.ID) ([]model.Company, error)
	FeaturedRestaurants(ctx context.Context) ([]model.Company, error)
	Products(ctx context.Context) ([]model.Product, error)
	Product(ctx context.Context, id model.ID) (model.Product, error)
	ProductsByRestaurant(ctx context.Context, restaurantID model.ID) ([]model.Product, error)
	PopularProducts(ctx context.Context) ([]model.Product, error)
	FeaturedProducts(ctx context.Context) ([]model.Product, error)
	Banners(ctx context.Context) ([]model.Banner, error)
	AppSettings(ctx context.Context) (model.AppSettings, error)
}

// OrderBackend корзина и заказы на сервере.
type OrderBackend interface {
	CartAddItem(ctx context.Context, productID model.ID, quantity int) error
	CartUpdateItem(ctx context.Context, productID model.ID, quantity int) error
	CartRemoveItem(ctx context.Context, productID model.ID) error
	CartClear(ctx context.Context) error
	Orders(ctx context.Context) ([]model.Order, error)
	Order(ctx context.Context, id model.ID) (model.Order, error)
	PendingOrders(ctx context.Context) ([]model.Order, error)
	CreateOrder(ctx context.Context, details model.OrderDetails) (model.Order, error)
	UpdateOrderStatus(ctx context.Context, id model.ID, status model.OrderStatus, driverID model.ID) error
}

// DriverBackend данные водителя.
type DriverBackend interface {
	DriverSchedule(ctx context.Context) ([]model.ScheduleEntry, error)
	UpdateDriverDay(ctx context.Context, day model.Weekday, fields map[string]any) error
	ToggleDriverAvailability(ctx context.Context) error
	DriverMissions(ctx context.Context) ([]model.Order, error)
	DriverDashboard(ctx context.Context) (model.DriverStats, error)
}

// ManagerBackend ресторан менеджера, его товары, баннеры и сотрудники.
type ManagerBackend interface {
	ManagerDashboard(ctx context.Context) (model.ManagerDashboard, error)
	ManagerRestaurant(ctx context.Context) (marketapi.ManagerRestaurant, error)
	UpdateRestaurant(ctx context.Context, id model.ID, upd model.RestaurantUpdate) error
	ToggleRestaurantOpen(ctx context.Context, id model.ID) error
	UploadRestaurantImage(ctx context.Context, id model.ID, uri string) error

	CreateProduct(ctx context.Context, p model.Product) (model.Product, error)
	UpdateProduct(ctx context.Context, id model.ID, upd model.ProductUpdate) error
	DeleteProduct(ctx context.Context, id model.ID) error
	UploadProductImage(ctx context.Context, id model.ID, uri string) error

	CreateBanner(ctx context.Context, b model.Banner) (model.Banner, error)
	UpdateBanner(ctx context.Context, id model.ID, upd model.BannerUpdate) error
	DeleteBanner(ctx context.Context, id model.ID) error
	UploadBannerImage(ctx context.Context, id model.ID, uri string) error

	TeamMembers(ctx context.Context) ([]model.TeamMember, error)
	CreateTeamMember(ctx context.Context, m model.TeamMember) (model.TeamMember, error)
	UpdateTeamMember(ctx context.Context, id model.ID, upd model.TeamMemberUpdate) error
	DeleteTeamMember(ctx context.Context, id model.ID) error
}

// Backend описывает всё, что хранилище состояния клиента делает на сервере.
// Реализации: *marketapi.Client и OfflineBackend.
type Backend interface {
	AuthBackend
	CatalogBackend
	OrderBackend
	DriverBackend
	ManagerBackend
}

var (
	_ Backend = (*marketapi.Client)(nil)
	_ Backend = OfflineBackend{}
)

// OfflineBackend бэкенд без сервера: любое удалённое действие завершается ErrOffline.
type OfflineBackend struct{}

func (OfflineBackend) LoadTokens(context.Context) (bool, error) { return false, nil }
func (OfflineBackend) HasToken() bool                           { return false }
func (OfflineBackend) EnsureFreshToken(context.Context) error   { return nil }
func (OfflineBackend) Logout(context.Context) error             { return nil }

func (OfflineBackend) Login(context.Context, string, string) (model.User, error) {
	return model.User{}, ErrOffline
}

func (OfflineBackend) Register(context.Context, model.SignupData) (model.User, error) {
	return model.User{}, ErrOffline
}

func (OfflineBackend) Profile(context.Context) (model.User, error) {
	return model.User{}, ErrOffline
}

func (OfflineBackend) UpdateProfile(context.Context, model.ProfileUpdate) (model.User, error) {
	return model.User{}, ErrOffline
}

func (OfflineBackend) Categories(context.Context) ([]model.Category, error) { return nil, ErrOffline }
func (OfflineBackend) Restaurants(context.Context) ([]model.Company, error) { return nil, ErrOffline }
func (OfflineBackend) Banners(context.Context) ([]model.Banner, error)      { return nil, ErrOffline }

func (OfflineBackend) PopularProducts(context.Context) ([]model.Product, error) {
	return nil, ErrOffline
}

func (OfflineBackend) Restaurant(context.Context, model.ID) (model.RestaurantDetails, error) {
	return model.RestaurantDetails{}, ErrOffline
}

func (OfflineBackend) RestaurantsByCategory(context.Context, model.ID) ([]model.Company, error) {
	return nil, ErrOffline
}

func (OfflineBackend) FeaturedRestaurants(context.Context) ([]model.Company, error) {
	return nil, ErrOffline
}

func (OfflineBackend) Products(context.Context) ([]model.Product, error) { return nil, ErrOffline }

func (OfflineBackend) Product(context.Context, model.ID) (model.Product, error) {
	return model.Product{}, ErrOffline
}

func (OfflineBackend) ProductsByRestaurant(context.Context, model.ID) ([]model.Product, error) {
	return nil, ErrOffline
}

func (OfflineBackend) FeaturedProducts(context.Context) ([]model.Product, error) {
	return nil, ErrOffline
}

func (OfflineBackend) AppSettings(context.Context) (model.AppSettings, error) {
	return model.AppSettings{}, ErrOffline
}

func (OfflineBackend) CartAddItem(context.Context, model.ID, int) error    { return ErrOffline }
func (OfflineBackend) CartUpdateItem(context.Context, model.ID, int) error { return ErrOffline }
func (OfflineBackend) CartRemoveItem(context.Context, model.ID) error      { return ErrOffline }
func (OfflineBackend) CartClear(context.Context) error                     { return ErrOffline }

func (OfflineBackend) Order(context.Context, model.ID) (model.Order, error) {
	return model.Order{}, ErrOffline
}

func (OfflineBackend) Orders(context.Context) ([]model.Order, error) { return nil, ErrOffline }

func (OfflineBackend) PendingOrders(context.Context) ([]model.Order, error) { return nil, ErrOffline }

func (OfflineBackend) CreateOrder(context.Context, model.OrderDetails) (model.Order, error) {
	return model.Order{}, ErrOffline
}

func (OfflineBackend) UpdateOrderStatus(context.Context, model.ID, model.OrderStatus, model.ID) error {
	return ErrOffline
}

func (OfflineBackend) DriverSchedule(context.Context) ([]model.ScheduleEntry, error) {
	return nil, ErrOffline
}

func (OfflineBackend) UpdateDriverDay(context.Context, model.Weekday, map[string]any) error {
	return ErrOffline
}

func (OfflineBackend) ToggleDriverAvailability(context.Context) error { return ErrOffline }

func (OfflineBackend) DriverMissions(context.Context) ([]model.Order, error) { return nil, ErrOffline }

func (OfflineBackend) DriverDashboard(context.Context) (model.DriverStats, error) {
	return model.DriverStats{}, ErrOffline
}

func (OfflineBackend) ManagerDashboard(context.Context) (model.ManagerDashboard, error) {
	return model.ManagerDashboard{}, ErrOffline
}

func (OfflineBackend) ManagerRestaurant(context.Context) (marketapi.ManagerRestaurant, error) {
	return marketapi.ManagerRestaurant{}, ErrOffline
}

func (OfflineBackend) UpdateRestaurant(context.Context, model.ID, model.RestaurantUpdate) error {
	return ErrOffline
}

func (OfflineBackend) ToggleRestaurantOpen(context.Context, model.ID) error { return ErrOffline }

func (OfflineBackend) UploadRestaurantImage(context.Context, model.ID, string) error {
	return ErrOffline
}

func (OfflineBackend) CreateProduct(context.Context, model.Product) (model.Product, error) {
	return model.Product{}, ErrOffline
}

func (OfflineBackend) UpdateProduct(context.Context, model.ID, model.ProductUpdate) error {
	return ErrOffline
}

func (OfflineBackend) DeleteProduct(context.Context, model.ID) error              { return ErrOffline }
func (OfflineBackend) UploadProductImage(context.Context, model.ID, string) error { return ErrOffline }

func (OfflineBackend) CreateBanner(context.Context, model.Banner) (model.Banner, error) {
	return model.Banner{}, ErrOffline
}

func (OfflineBackend) UpdateBanner(context.Context, model.ID, model.BannerUpdate) error {
	return ErrOffline
}

func (OfflineBackend) DeleteBanner(context.Context, model.ID) error              { return ErrOffline }
func (OfflineBackend) UploadBannerImage(context.Context, model.ID, string) error { return ErrOffline }

func (OfflineBackend) TeamMembers(context.Context) ([]model.TeamMember, error) {
	return nil, ErrOffline
}

func (OfflineBackend) CreateTeamMember(context.Context, model.TeamMember) (model.TeamMember, error) {
	return model.TeamMember{}, ErrOffline
}

func (OfflineBackend) UpdateTeamMember(context.Context, model.ID, model.TeamMemberUpdate) error {
	return ErrOffline
}

func (OfflineBackend) DeleteTeamMember(context.Context, model.ID) error { return ErrOffline }

// isNetworkClass сообщает, что ошибка означает недоступность сервера, а не отказ.
func isNetworkClass(err error) bool {
	return errors.Is(err, ErrOffline) || marketapi.IsNetworkError(err)
}
