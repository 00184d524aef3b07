// Package service реализует хранилище состояния клиента маркетплейса:
// корзину, заказы, сессию и кэш каталога с оптимистичной синхронизацией.
package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/foodmarket-client/internal/metrics"
	"github.com/mmeshcher/foodmarket-client/internal/model"
	"github.com/mmeshcher/foodmarket-client/internal/repository"
)

var (
	// ErrUnknownOrder заказ с таким идентификатором не найден.
	ErrUnknownOrder = errors.New("unknown order")
	// ErrIllegalTransition переход статуса заказа запрещён.
	ErrIllegalTransition = errors.New("illegal order status transition")
	// ErrInvalidWeekday ключ дня недели не распознан.
	ErrInvalidWeekday = errors.New("invalid weekday")
	// ErrNotAuthenticated операция требует активной сессии.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrInvalidProduct у товара нет идентификатора.
	ErrInvalidProduct = errors.New("product has no id")
	// ErrUnknownRestaurant ресторан не найден ни на сервере, ни в кэше.
	ErrUnknownRestaurant = errors.New("unknown restaurant")
)

// Options зависимости хранилища состояния.
type Options struct {
	Storage repository.Storage
	// Backend удалённый API. Nil означает работу только на устройстве.
	Backend Backend
	Logger  *zap.Logger
	Metrics *metrics.SyncMetrics
	// DeliveryFee стоимость доставки для локально созданных заказов. 0 означает model.DefaultDeliveryFee.
	DeliveryFee model.Amount
	// Now источник времени, по умолчанию time.Now.
	Now func() time.Time
}

// Store единственный источник истины для сессии, корзины, заказов и данных менеджера и водителя.
// Методы безопасны для вызова из нескольких горутин; блокировка не удерживается во время
// обращения к серверу, поэтому при гонке побеждает последняя запись.
type Store struct {
	storage repository.Storage
	remote  Backend
	offline Backend
	logger  *zap.Logger
	metrics *metrics.SyncMetrics
	fee     model.Amount
	now     func() time.Time

	persistMu sync.Mutex

	mu          sync.Mutex
	initialized bool
	online      bool
	session     *model.Session
	lastLocalID int64

	sessionCtx    context.Context
	cancelSession context.CancelFunc
	generation    uint64

	categories  []model.Category
	companies   []model.Company
	products    []model.Product
	banners     []model.Banner
	cart        []model.CartLine
	orders      []model.Order
	restaurant  model.Restaurant
	teamMembers []model.TeamMember
	drivers     []model.Driver

	driverAvailable bool
	schedule        model.DriverSchedule
}

// NewStore создаёт хранилище состояния. Перед использованием нужно вызвать Init.
func NewStore(opts Options) *Store {
	s := &Store{
		storage:         opts.Storage,
		remote:          opts.Backend,
		offline:         OfflineBackend{},
		logger:          opts.Logger,
		metrics:         opts.Metrics,
		fee:             opts.DeliveryFee,
		now:             opts.Now,
		restaurant:      model.DefaultRestaurant(),
		drivers:         model.DefaultDrivers(),
		driverAvailable: true,
		schedule:        make(model.DriverSchedule),
	}
	if s.storage == nil {
		s.storage = repository.NewMemoryStorage()
	}
	if s.remote == nil {
		s.remote = s.offline
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.fee == 0 {
		s.fee = model.DefaultDeliveryFee
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.sessionCtx, s.cancelSession = context.WithCancel(context.Background())
	return s
}

// Close отменяет незавершённые запросы и закрывает локальное хранилище.
func (s *Store) Close() error {
	s.mu.Lock()
	s.cancelSession()
	s.mu.Unlock()
	return s.storage.Close()
}

// Init выполняет протокол запуска: сессия, каталог (сервер или кэш), корзина и заказы.
// Нечитаемые локальные ключи считаются отсутствующими. Сохранение корзины включается в конце Init.
func (s *Store) Init(ctx context.Context) error {
	user, hasUser := loadStored[model.User](ctx, s, repository.KeyUser)

	hasToken, err := s.remote.LoadTokens(ctx)
	if err != nil {
		s.logger.Warn("stored tokens unreadable", zap.Error(err))
	}

	s.mu.Lock()
	if hasUser {
		s.session = &model.Session{User: user, HasRemoteToken: hasToken}
	}
	s.mu.Unlock()

	if hasUser && hasToken {
		if err := s.remote.EnsureFreshToken(ctx); err != nil {
			s.recordFailure(ctx, "refresh_token", KeepOptimisticOnFailure, err)
		}
	}

	if err := s.fetchCatalog(ctx); err != nil {
		s.logger.Info("catalog unavailable, using cache", zap.Error(err))
		s.loadCachedCatalog(ctx)
	}

	cart, _ := loadStored[[]model.CartLine](ctx, s, repository.KeyCart)
	orders, _ := loadStored[[]model.Order](ctx, s, repository.KeyOrders)
	drivers, hasDrivers := loadStored[[]model.Driver](ctx, s, repository.KeyDrivers)

	s.mu.Lock()
	s.cart = normalizeCart(cart)
	s.orders = orders
	if hasDrivers {
		s.drivers = drivers
	}
	s.initialized = true
	s.mu.Unlock()

	return nil
}

// loadStored читает ключ локального хранилища. Ошибка чтения логируется, ключ считается отсутствующим.
func loadStored[T any](ctx context.Context, s *Store, key string) (T, bool) {
	v, ok, err := repository.Load[T](ctx, s.storage, key)
	if err != nil {
		s.logger.Warn("stored value unreadable", zap.String("key", key), zap.Error(err))
		var zero T
		return zero, false
	}
	return v, ok
}

// Refresh повторяет протокол запуска.
func (s *Store) Refresh(ctx context.Context) error {
	return s.Init(ctx)
}

// fetchCatalog загружает каталог с сервера параллельно и перезаписывает кэш.
func (s *Store) fetchCatalog(ctx context.Context) error {
	var (
		categories []model.Category
		companies  []model.Company
		products   []model.Product
		banners    []model.Banner
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		categories, err = s.remote.Categories(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		companies, err = s.remote.Restaurants(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		products, err = s.remote.PopularProducts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		banners, err = s.remote.Banners(gctx)
		return err
	})

	err := g.Wait()
	s.metrics.SetOnline(err == nil)
	if err != nil {
		s.mu.Lock()
		s.online = false
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.categories = categories
	s.companies = companies
	s.products = products
	s.banners = banners
	s.online = true
	s.mu.Unlock()

	for key, v := range map[string]any{
		repository.KeyCategories: categories,
		repository.KeyCompanies:  companies,
		repository.KeyProducts:   products,
		repository.KeyBanners:    banners,
	} {
		if err := repository.Save(ctx, s.storage, key, v); err != nil {
			s.logger.Warn("catalog cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return nil
}

// loadCachedCatalog подставляет последний сохранённый каталог. Отсутствующие и нечитаемые ключи не трогают состояние.
func (s *Store) loadCachedCatalog(ctx context.Context) {
	categories, hasCategories := loadStored[[]model.Category](ctx, s, repository.KeyCategories)
	companies, hasCompanies := loadStored[[]model.Company](ctx, s, repository.KeyCompanies)
	products, hasProducts := loadStored[[]model.Product](ctx, s, repository.KeyProducts)
	banners, hasBanners := loadStored[[]model.Banner](ctx, s, repository.KeyBanners)

	s.mu.Lock()
	defer s.mu.Unlock()
	if hasCategories {
		s.categories = categories
	}
	if hasCompanies {
		s.companies = companies
	}
	if hasProducts {
		s.products = products
	}
	if hasBanners {
		s.banners = banners
	}
}

// backendLocked выбирает бэкенд для операции. Вызывается под s.mu.
func (s *Store) backendLocked(g gate) Backend {
	switch g {
	case gateOnline:
		if !s.online {
			return s.offline
		}
	case gateSession:
		if !s.online || s.session == nil || !s.session.HasRemoteToken || !s.remote.HasToken() {
			return s.offline
		}
	}
	return s.remote
}

// sessionScope возвращает контекст удалённого вызова, который отменяется вместе с сессией.
func (s *Store) sessionScope(ctx context.Context) (context.Context, context.CancelFunc) {
	s.mu.Lock()
	sessCtx := s.sessionCtx
	s.mu.Unlock()

	rctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(sessCtx, cancel)
	return rctx, func() {
		stop()
		cancel()
	}
}

// resetSessionLocked отменяет запросы текущей сессии и очищает её данные. Вызывается под s.mu.
func (s *Store) resetSessionLocked() {
	s.cancelSession()
	s.sessionCtx, s.cancelSession = context.WithCancel(context.Background())
	s.generation++

	s.session = nil
	s.products = nil
	s.banners = nil
	s.teamMembers = nil
	s.restaurant = model.DefaultRestaurant()
}

// expireSession очищает сессию, для которой сервер больше не выдаёт токены.
func (s *Store) expireSession(ctx context.Context) {
	s.mu.Lock()
	if s.session == nil || !s.session.HasRemoteToken {
		s.mu.Unlock()
		return
	}
	s.resetSessionLocked()
	s.mu.Unlock()

	s.logger.Info("session expired, re-authentication required")
	if err := repository.Remove(ctx, s.storage, repository.KeyUser); err != nil {
		s.logger.Warn("remove stored session failed", zap.Error(err))
	}
}

// provisionalIDLocked выдаёт временный идентификатор prefix+миллисекунды, строго возрастающий.
func (s *Store) provisionalIDLocked(prefix string) model.ID {
	ms := s.now().UnixMilli()
	if ms <= s.lastLocalID {
		ms = s.lastLocalID + 1
	}
	s.lastLocalID = ms
	return model.ID(prefix + strconv.FormatInt(ms, 10))
}

func (s *Store) persistSession(ctx context.Context) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	var user *model.User
	if s.session != nil {
		u := s.session.User
		user = &u
	}
	s.mu.Unlock()

	var err error
	if user == nil {
		err = repository.Remove(ctx, s.storage, repository.KeyUser)
	} else {
		err = repository.Save(ctx, s.storage, repository.KeyUser, user)
	}
	if err != nil {
		s.logger.Warn("persist session failed", zap.Error(err))
	}
}

func (s *Store) persistCart(ctx context.Context) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return
	}
	cart := append([]model.CartLine{}, s.cart...)
	s.mu.Unlock()

	if err := repository.Save(ctx, s.storage, repository.KeyCart, cart); err != nil {
		s.logger.Warn("persist cart failed", zap.Error(err))
	}
}

func (s *Store) persistOrders(ctx context.Context) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	orders := append([]model.Order{}, s.orders...)
	s.mu.Unlock()

	if err := repository.Save(ctx, s.storage, repository.KeyOrders, orders); err != nil {
		s.logger.Warn("persist orders failed", zap.Error(err))
	}
}

// Snapshot копия состояния для отображения.
type Snapshot struct {
	Initialized   bool
	Online        bool
	Authenticated bool
	Session       *model.Session

	Categories []model.Category
	Companies  []model.Company
	Products   []model.Product
	Banners    []model.Banner

	Cart      []model.CartLine
	CartTotal model.Amount
	Orders    []model.Order

	Restaurant  model.Restaurant
	TeamMembers []model.TeamMember
	Drivers     []model.Driver

	DriverAvailable bool
	DriverSchedule  model.DriverSchedule
}

// Snapshot возвращает копию текущего состояния.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	var session *model.Session
	if s.session != nil {
		cp := *s.session
		session = &cp
	}

	return Snapshot{
		Initialized:     s.initialized,
		Online:          s.online,
		Authenticated:   s.session != nil,
		Session:         session,
		Categories:      append([]model.Category(nil), s.categories...),
		Companies:       append([]model.Company(nil), s.companies...),
		Products:        append([]model.Product(nil), s.products...),
		Banners:         append([]model.Banner(nil), s.banners...),
		Cart:            append([]model.CartLine(nil), s.cart...),
		CartTotal:       model.CartTotal(s.cart),
		Orders:          cloneOrders(s.orders),
		Restaurant:      s.restaurant,
		TeamMembers:     append([]model.TeamMember(nil), s.teamMembers...),
		Drivers:         append([]model.Driver(nil), s.drivers...),
		DriverAvailable: s.driverAvailable,
		DriverSchedule:  s.schedule.Clone(),
	}
}

// Session возвращает активную сессию или nil.
func (s *Store) Session() *model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	cp := *s.session
	return &cp
}

// Cart возвращает копию корзины.
func (s *Store) Cart() []model.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.CartLine(nil), s.cart...)
}

// Orders возвращает копию заказов, новые первыми.
func (s *Store) Orders() []model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneOrders(s.orders)
}

// IsOnline сообщает, был ли каталог получен с сервера при последнем Init.
func (s *Store) IsOnline() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

func cloneOrders(orders []model.Order) []model.Order {
	if orders == nil {
		return nil
	}
	out := make([]model.Order, len(orders))
	for i, o := range orders {
		o.Items = append([]model.OrderItem(nil), o.Items...)
		out[i] = o
	}
	return out
}
