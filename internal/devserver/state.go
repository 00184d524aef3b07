// Package devserver содержит in-memory реализацию REST API маркетплейса
// для локальной разработки и сквозных тестов клиента.
package devserver

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/foodmarket-client/internal/model"
)

var (
	// ErrUserExists пользователь с таким email уже зарегистрирован.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials неверный email или пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotFound запись не найдена.
	ErrNotFound = errors.New("not found")
	// ErrEmptyCart заказ нельзя оформить из пустой корзины.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrIllegalTransition переход статуса заказа запрещён.
	ErrIllegalTransition = errors.New("illegal status transition")
	// ErrNoRestaurant у менеджера нет ресторана.
	ErrNoRestaurant = errors.New("manager has no restaurant")
)

type account struct {
	user         model.User
	passwordHash []byte
}

type restaurantRecord struct {
	company   model.Company
	phone     string
	managerID model.ID
}

type orderRecord struct {
	order      model.Order
	ownerID    model.ID
	restaurant model.ID
}

// State данные dev-сервера. Безопасен для конкурентного использования.
type State struct {
	mu  sync.RWMutex
	now func() time.Time

	accounts map[string]*account
	byID     map[model.ID]*account
	revoked  map[string]bool

	categories  []model.Category
	restaurants map[model.ID]*restaurantRecord
	products    map[model.ID]model.Product
	banners     map[model.ID]model.Banner
	team        map[model.ID][]model.TeamMember

	carts     map[model.ID][]model.CartLine
	orders    []*orderRecord
	schedules map[model.ID]model.DriverSchedule
	available map[model.ID]bool
}

// NewState создаёт пустое состояние.
func NewState() *State {
	return &State{
		now:         time.Now,
		accounts:    make(map[string]*account),
		byID:        make(map[model.ID]*account),
		revoked:     make(map[string]bool),
		restaurants: make(map[model.ID]*restaurantRecord),
		products:    make(map[model.ID]model.Product),
		banners:     make(map[model.ID]model.Banner),
		team:        make(map[model.ID][]model.TeamMember),
		carts:       make(map[model.ID][]model.CartLine),
		schedules:   make(map[model.ID]model.DriverSchedule),
		available:   make(map[model.ID]bool),
	}
}

func newID() model.ID {
	return model.ID(uuid.NewString())
}

// CreateUser регистрирует пользователя с bcrypt-хешем пароля.
func (s *State) CreateUser(data model.SignupData) (model.User, error) {
	email := strings.ToLower(strings.TrimSpace(data.Email))
	hash, err := bcrypt.GenerateFromPassword([]byte(data.Password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}

	role := data.Role
	if !role.IsValid() {
		role = model.RoleClient
	}
	username := data.Username
	if username == "" {
		username, _, _ = strings.Cut(email, "@")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[email]; ok {
		return model.User{}, ErrUserExists
	}
	acc := &account{
		user: model.User{
			ID:        newID(),
			Email:     email,
			Username:  username,
			FirstName: data.FirstName,
			LastName:  data.LastName,
			Phone:     data.Phone,
			Role:      role,
		},
		passwordHash: hash,
	}
	s.accounts[email] = acc
	s.byID[acc.user.ID] = acc
	return acc.user, nil
}

// Authenticate проверяет пароль пользователя.
func (s *State) Authenticate(email, password string) (model.User, error) {
	s.mu.RLock()
	acc, ok := s.accounts[strings.ToLower(strings.TrimSpace(email))]
	s.mu.RUnlock()
	if !ok {
		return model.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(password)); err != nil {
		return model.User{}, ErrInvalidCredentials
	}
	return acc.user, nil
}

// User возвращает пользователя по идентификатору.
func (s *State) User(id model.ID) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.byID[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return acc.user, nil
}

// UpdateUser применяет изменения профиля.
func (s *State) UpdateUser(id model.ID, upd model.ProfileUpdate) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.byID[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	acc.user = upd.Apply(acc.user)
	return acc.user, nil
}

// Revoke помечает refresh-токен отозванным.
func (s *State) Revoke(jti string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[jti] = true
}

// IsRevoked сообщает, отозван ли refresh-токен.
func (s *State) IsRevoked(jti string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revoked[jti]
}

// Categories возвращает категории.
func (s *State) Categories() []model.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.categories)
}

// Companies возвращает рестораны, отфильтрованные keep. Nil keep возвращает все.
func (s *State) Companies(keep func(model.Company) bool) []model.Company {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Company, 0, len(s.restaurants))
	for _, r := range s.restaurants {
		if keep == nil || keep(r.company) {
			out = append(out, r.company)
		}
	}
	slices.SortFunc(out, func(a, b model.Company) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// RestaurantDetails возвращает ресторан с его товарами.
func (s *State) RestaurantDetails(id model.ID) (model.RestaurantDetails, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.restaurants[id]
	if !ok {
		return model.RestaurantDetails{}, ErrNotFound
	}
	return model.RestaurantDetails{Company: r.company, Products: s.productsLocked(func(p model.Product) bool {
		return p.Restaurant == id
	})}, nil
}

// Products возвращает товары, отфильтрованные keep, новые первыми.
func (s *State) Products(keep func(model.Product) bool) []model.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.productsLocked(keep)
}

func (s *State) productsLocked(keep func(model.Product) bool) []model.Product {
	out := make([]model.Product, 0, len(s.products))
	for _, p := range s.products {
		if keep == nil || keep(p) {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b model.Product) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(string(a.ID), string(b.ID))
	})
	return out
}

// Product возвращает товар.
func (s *State) Product(id model.ID) (model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return model.Product{}, ErrNotFound
	}
	return p, nil
}

// Banners возвращает баннеры в порядке показа.
func (s *State) Banners() []model.Banner {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Banner, 0, len(s.banners))
	for _, b := range s.banners {
		out = append(out, b)
	}
	slices.SortFunc(out, func(a, b model.Banner) int {
		if a.Order != b.Order {
			return a.Order - b.Order
		}
		return strings.Compare(string(a.ID), string(b.ID))
	})
	return out
}

// managerRestaurantLocked возвращает ресторан менеджера. Вызывается под s.mu.
func (s *State) managerRestaurantLocked(managerID model.ID) (*restaurantRecord, error) {
	for _, r := range s.restaurants {
		if r.managerID == managerID {
			return r, nil
		}
	}
	return nil, ErrNoRestaurant
}

func toRestaurant(r *restaurantRecord) model.Restaurant {
	return model.Restaurant{
		ID:           r.company.ID,
		Name:         r.company.Name,
		Address:      r.company.Address,
		Phone:        r.phone,
		DeliveryTime: r.company.DeliveryTime,
		DeliveryFee:  r.company.DeliveryFee,
		IsOpen:       r.company.IsOpen,
		Image:        r.company.Image,
	}
}

// ManagerRestaurant возвращает ресторан менеджера и его товары.
func (s *State) ManagerRestaurant(managerID model.ID) (model.Restaurant, []model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, err := s.managerRestaurantLocked(managerID)
	if err != nil {
		return model.Restaurant{}, nil, err
	}
	return toRestaurant(r), s.productsLocked(func(p model.Product) bool {
		return p.Restaurant == r.company.ID
	}), nil
}

// UpdateRestaurant применяет изменения к ресторану менеджера.
func (s *State) UpdateRestaurant(managerID, id model.ID, upd model.RestaurantUpdate) (model.Restaurant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.managerRestaurantLocked(managerID)
	if err != nil {
		return model.Restaurant{}, err
	}
	if r.company.ID != id {
		return model.Restaurant{}, ErrNotFound
	}
	merged := upd.Apply(toRestaurant(r))
	r.company.Name = merged.Name
	r.company.Address = merged.Address
	r.company.DeliveryTime = merged.DeliveryTime
	r.company.DeliveryFee = merged.DeliveryFee
	r.company.IsOpen = merged.IsOpen
	r.phone = merged.Phone
	return merged, nil
}

// ToggleRestaurantOpen открывает или закрывает ресторан менеджера.
func (s *State) ToggleRestaurantOpen(managerID, id model.ID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.managerRestaurantLocked(managerID)
	if err != nil {
		return false, err
	}
	if r.company.ID != id {
		return false, ErrNotFound
	}
	r.company.IsOpen = !r.company.IsOpen
	return r.company.IsOpen, nil
}

// SetRestaurantImage запоминает путь загруженного изображения ресторана.
func (s *State) SetRestaurantImage(managerID, id model.ID, image string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.managerRestaurantLocked(managerID)
	if err != nil {
		return err
	}
	if r.company.ID != id {
		return ErrNotFound
	}
	r.company.Image = image
	return nil
}

// CreateProduct создаёт товар в ресторане менеджера.
func (s *State) CreateProduct(managerID model.ID, p model.Product) (model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.managerRestaurantLocked(managerID)
	if err != nil {
		return model.Product{}, err
	}
	p.ID = newID()
	p.Restaurant = r.company.ID
	p.IsAvailable = true
	p.CreatedAt = s.now().UTC()
	s.products[p.ID] = p
	return p, nil
}

// UpdateProduct изменяет товар ресторана менеджера. apply получает текущую запись.
func (s *State) UpdateProduct(managerID, id model.ID, apply func(model.Product) model.Product) (model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.ownedProductLocked(managerID, id)
	if err != nil {
		return model.Product{}, err
	}
	p = apply(p)
	p.ID = id
	s.products[id] = p
	return p, nil
}

// DeleteProduct удаляет товар ресторана менеджера.
func (s *State) DeleteProduct(managerID, id model.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.ownedProductLocked(managerID, id); err != nil {
		return err
	}
	delete(s.products, id)
	return nil
}

func (s *State) ownedProductLocked(managerID, id model.ID) (model.Product, error) {
	r, err := s.managerRestaurantLocked(managerID)
	if err != nil {
		return model.Product{}, err
	}
	p, ok := s.products[id]
	if !ok || p.Restaurant != r.company.ID {
		return model.Product{}, ErrNotFound
	}
	return p, nil
}

// CreateBanner создаёт баннер ресторана менеджера в конце списка.
func (s *State) CreateBanner(managerID model.ID, b model.Banner) (model.Banner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.managerRestaurantLocked(managerID)
	if err != nil {
		return model.Banner{}, err
	}
	b.ID = newID()
	b.Restaurant = r.company.ID
	b.IsActive = true
	b.Order = 0
	for _, existing := range s.banners {
		if existing.Restaurant == r.company.ID {
			b.Order++
		}
	}
	s.banners[b.ID] = b
	return b, nil
}

// UpdateBanner изменяет баннер ресторана менеджера.
func (s *State) UpdateBanner(managerID, id model.ID, apply func(model.Banner) model.Banner) (model.Banner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.ownedBannerLocked(managerID, id)
	if err != nil {
		return model.Banner{}, err
	}
	b = apply(b)
	b.ID = id
	s.banners[id] = b
	return b, nil
}

// DeleteBanner удаляет баннер ресторана менеджера.
func (s *State) DeleteBanner(managerID, id model.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.ownedBannerLocked(managerID, id); err != nil {
		return err
	}
	delete(s.banners, id)
	return nil
}

func (s *State) ownedBannerLocked(managerID, id model.ID) (model.Banner, error) {
	r, err := s.managerRestaurantLocked(managerID)
	if err != nil {
		return model.Banner{}, err
	}
	b, ok := s.banners[id]
	if !ok || b.Restaurant != r.company.ID {
		return model.Banner{}, ErrNotFound
	}
	return b, nil
}

// TeamMembers возвращает сотрудников ресторана менеджера.
func (s *State) TeamMembers(managerID model.ID) []model.TeamMember {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.team[managerID])
}

// CreateTeamMember добавляет сотрудника со статусом active.
func (s *State) CreateTeamMember(managerID model.ID, m model.TeamMember) model.TeamMember {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = newID()
	m.Status = "active"
	s.team[managerID] = append(s.team[managerID], m)
	return m
}

// UpdateTeamMember изменяет сотрудника.
func (s *State) UpdateTeamMember(managerID, id model.ID, upd model.TeamMemberUpdate) (model.TeamMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.team[managerID] {
		if m.ID == id {
			s.team[managerID][i] = upd.Apply(m)
			return s.team[managerID][i], nil
		}
	}
	return model.TeamMember{}, ErrNotFound
}

// DeleteTeamMember удаляет сотрудника.
func (s *State) DeleteTeamMember(managerID, id model.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	members := s.team[managerID]
	for i, m := range members {
		if m.ID == id {
			s.team[managerID] = slices.Delete(members, i, i+1)
			return nil
		}
	}
	return ErrNotFound
}

// Cart возвращает серверную корзину пользователя.
func (s *State) Cart(userID model.ID) []model.CartLine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.carts[userID])
}

// AddCartItem увеличивает количество товара в корзине.
func (s *State) AddCartItem(userID, productID model.ID, quantity int) error {
	if quantity <= 0 {
		quantity = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return ErrNotFound
	}
	cart := s.carts[userID]
	for i := range cart {
		if cart[i].ProductID == productID {
			cart[i].Quantity += quantity
			return nil
		}
	}
	s.carts[userID] = append(cart, model.CartLine{
		ProductID:  p.ID,
		Name:       p.Name,
		Price:      p.Price,
		Quantity:   quantity,
		Image:      p.Image,
		Restaurant: p.Restaurant,
	})
	return nil
}

// SetCartItem задаёт количество товара; 0 удаляет позицию.
func (s *State) SetCartItem(userID, productID model.ID, quantity int) error {
	if quantity <= 0 {
		s.RemoveCartItem(userID, productID)
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cart := s.carts[userID]
	for i := range cart {
		if cart[i].ProductID == productID {
			cart[i].Quantity = quantity
			return nil
		}
	}
	return ErrNotFound
}

// RemoveCartItem удаляет позицию корзины.
func (s *State) RemoveCartItem(userID, productID model.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[userID] = slices.DeleteFunc(s.carts[userID], func(l model.CartLine) bool {
		return l.ProductID == productID
	})
}

// ClearCart очищает корзину пользователя.
func (s *State) ClearCart(userID model.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, userID)
}

// CreateOrderFromCart оформляет заказ из серверной корзины и очищает её.
// Стоимость доставки берётся у ресторана первой позиции.
func (s *State) CreateOrderFromCart(userID model.ID, details model.OrderDetails) (model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cart := s.carts[userID]
	if len(cart) == 0 {
		return model.Order{}, ErrEmptyCart
	}

	fee := model.DefaultDeliveryFee
	restaurant := cart[0].Restaurant
	if r, ok := s.restaurants[restaurant]; ok && r.company.DeliveryFee > 0 {
		fee = r.company.DeliveryFee
	}

	order := model.NewLocalOrder(newID(), s.now(), cart, details, fee)
	s.orders = append(s.orders, &orderRecord{order: order, ownerID: userID, restaurant: restaurant})
	delete(s.carts, userID)
	return order, nil
}

// Orders возвращает заказы, отфильтрованные keep, новые первыми.
func (s *State) Orders(keep func(order model.Order, ownerID, restaurant model.ID) bool) []model.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Order, 0)
	for i := len(s.orders) - 1; i >= 0; i-- {
		rec := s.orders[i]
		if keep == nil || keep(rec.order, rec.ownerID, rec.restaurant) {
			out = append(out, rec.order)
		}
	}
	return out
}

// Order возвращает заказ.
func (s *State) Order(id model.ID) (model.Order, model.ID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.orders {
		if rec.order.ID == id {
			return rec.order, rec.ownerID, nil
		}
	}
	return model.Order{}, "", ErrNotFound
}

// UpdateOrderStatus переводит заказ в новый статус по таблице переходов или только меняет водителя.
func (s *State) UpdateOrderStatus(id model.ID, status model.OrderStatus, driverID model.ID) (model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.orders {
		if rec.order.ID != id {
			continue
		}
		if !model.CanUpdate(rec.order.Status, status, driverID) {
			return model.Order{}, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, rec.order.Status, status)
		}
		rec.order.Status = status
		if driverID != "" {
			rec.order.DriverID = driverID
		}
		return rec.order, nil
	}
	return model.Order{}, ErrNotFound
}

// Schedule возвращает расписание водителя; для нового водителя расписание по умолчанию.
func (s *State) Schedule(driverID model.ID) model.DriverSchedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scheduleLocked(driverID).Clone()
}

func (s *State) scheduleLocked(driverID model.ID) model.DriverSchedule {
	sch, ok := s.schedules[driverID]
	if !ok {
		sch = model.DefaultDriverSchedule()
		s.schedules[driverID] = sch
	}
	return sch
}

// UpdateScheduleDay обновляет один день расписания водителя.
func (s *State) UpdateScheduleDay(driverID model.ID, day model.Weekday, upd model.DayUpdate) model.DaySchedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	sch := s.scheduleLocked(driverID)
	sch[day] = upd.Apply(sch[day])
	return sch[day]
}

// ToggleAvailability переключает доступность водителя. Новый водитель доступен.
func (s *State) ToggleAvailability(driverID model.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.available[driverID]
	if !ok {
		current = true
	}
	s.available[driverID] = !current
	return !current
}

// DriverStats считает статистику водителя по доставленным заказам.
func (s *State) DriverStats(driverID model.ID) model.DriverStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	var stats model.DriverStats
	for _, rec := range s.orders {
		if rec.order.DriverID != driverID || rec.order.Status != model.OrderStatusDelivered {
			continue
		}
		stats.Deliveries++
		if rec.order.CreatedAt.Year() == now.Year() && rec.order.CreatedAt.Month() == now.Month() {
			stats.ThisMonth++
		}
	}
	if stats.Deliveries > 0 {
		stats.Rating = 5
	}
	return stats
}
