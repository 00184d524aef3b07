package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mmeshcher/foodmarket-client/internal/metrics"
	"github.com/mmeshcher/foodmarket-client/internal/model"
	"github.com/mmeshcher/foodmarket-client/internal/service"
)

const usage = `usage: marketcli [flags] <command>

commands:
  status
  login <email> <password> [role]
  signup <email> <password> [role]
  logout
  profile
  settings
  restaurants [featured|category <id>]
  products [all|featured|restaurant <id>|show <id>]
  cart [list|add <id>|inc <id>|dec <id>|rm <id>|clear]
  order list
  order history
  order pending
  order show <id>
  order place <name> <phone> <address...>
  order status <id> <status> [driver_id]
  driver schedule
  driver missions
  driver toggle
  driver day <weekday> [on|off|flip] [start end]
  manager dashboard
  manager image <file://path|url>
  watch [interval]`

var errUsage = errors.New("invalid arguments")

type app struct {
	store  *service.Store
	reg    prometheus.Gatherer
	out    io.Writer
	styles styles
}

// newApp собирает команды клиента. reg реестр метрик синхронизации, может быть nil.
func newApp(store *service.Store, reg prometheus.Gatherer, out io.Writer) *app {
	return &app{store: store, reg: reg, out: out, styles: defaultStyles()}
}

func (a *app) println(s string) {
	fmt.Fprintln(a.out, s)
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		args = []string{"status"}
	}

	var err error
	switch cmd, rest := args[0], args[1:]; cmd {
	case "status":
		a.println(a.styles.renderStatus(a.store.Snapshot(), a.syncSummary()))
	case "login", "signup":
		err = a.auth(ctx, cmd, rest)
	case "logout":
		err = a.store.Logout(ctx)
		if err == nil {
			a.println("signed out")
		}
	case "profile":
		err = a.profile(ctx)
	case "settings":
		err = a.settings(ctx)
	case "restaurants":
		err = a.restaurants(ctx, rest)
	case "products":
		err = a.products(ctx, rest)
	case "cart":
		err = a.cart(ctx, rest)
	case "order":
		err = a.order(ctx, rest)
	case "driver":
		err = a.driver(ctx, rest)
	case "manager":
		err = a.manager(ctx, rest)
	case "watch":
		err = a.watch(ctx, rest)
	case "help":
		a.println(usage)
	default:
		err = fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}

	if errors.Is(err, errUsage) {
		return fmt.Errorf("%w\n\n%s", err, usage)
	}
	return err
}

func (a *app) auth(ctx context.Context, cmd string, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: %s needs email and password", errUsage, cmd)
	}
	var role model.Role
	if len(args) > 2 {
		role = model.Role(args[2])
		if !role.IsValid() {
			return fmt.Errorf("%w: unknown role %q", errUsage, args[2])
		}
	}

	var (
		user model.User
		err  error
	)
	if cmd == "login" {
		user, err = a.store.Login(ctx, args[0], args[1], role)
	} else {
		user, err = a.store.Signup(ctx, model.SignupData{Email: args[0], Password: args[1], Role: role})
	}
	if err != nil {
		return err
	}

	a.println(fmt.Sprintf("signed in as %s (%s)", user.Email, user.Role))
	if session := a.store.Session(); session != nil && !session.HasRemoteToken {
		a.println(a.styles.Warning.Render("server unreachable: the session is local to this device"))
	}
	return nil
}

func (a *app) profile(ctx context.Context) error {
	user, err := a.store.LoadProfile(ctx)
	if err != nil {
		return err
	}
	a.println(fmt.Sprintf("%s %s <%s> role=%s phone=%s", user.FirstName, user.LastName, user.Email, user.Role, user.Phone))
	if user.Role == model.RoleDriver {
		a.println(fmt.Sprintf("deliveries=%d this_month=%d rating=%.1f", user.Deliveries, user.ThisMonth, user.Rating))
	}
	return nil
}

// syncSummary итоги синхронизации или nil, если метрики не подключены.
func (a *app) syncSummary() *metrics.SyncSummary {
	if a.reg == nil {
		return nil
	}
	sum, err := metrics.Summarize(a.reg)
	if err != nil {
		return nil
	}
	return &sum
}

func (a *app) settings(ctx context.Context) error {
	st, err := a.store.Settings(ctx)
	if err != nil {
		return err
	}
	a.println(fmt.Sprintf("delivery fee: %s (%s)", formatAmount(st.DefaultDeliveryFee), st.Currency))
	return nil
}

func (a *app) restaurants(ctx context.Context, args []string) error {
	var (
		companies []model.Company
		err       error
	)
	switch {
	case len(args) == 0:
		companies = a.store.Snapshot().Companies
	case args[0] == "featured":
		companies, err = a.store.FeaturedRestaurants(ctx)
	case args[0] == "category" && len(args) > 1:
		companies, err = a.store.RestaurantsByCategory(ctx, model.ID(args[1]))
	default:
		return fmt.Errorf("%w: restaurants [featured|category <id>]", errUsage)
	}
	if err != nil {
		return err
	}
	a.println(a.styles.renderRestaurants(companies))
	return nil
}

func (a *app) products(ctx context.Context, args []string) error {
	var (
		products []model.Product
		err      error
	)
	switch {
	case len(args) == 0:
		products = a.store.Snapshot().Products
	case args[0] == "all":
		products, err = a.store.AllProducts(ctx)
	case args[0] == "featured":
		products, err = a.store.FeaturedProducts(ctx)
	case args[0] == "restaurant" && len(args) > 1:
		products, err = a.store.ProductsByRestaurant(ctx, model.ID(args[1]))
	case args[0] == "show" && len(args) > 1:
		var p model.Product
		p, err = a.store.FindProduct(ctx, model.ID(args[1]))
		products = []model.Product{p}
	default:
		return fmt.Errorf("%w: unknown products action %q", errUsage, args[0])
	}
	if err != nil {
		return err
	}
	a.println(a.styles.renderProducts(products))
	return nil
}

func (a *app) findProduct(id model.ID) (model.Product, bool) {
	for _, p := range a.store.Snapshot().Products {
		if p.ID == id {
			return p, true
		}
	}
	return model.Product{}, false
}

func (a *app) cart(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "list" {
		a.println(a.styles.renderCart(a.store.Cart()))
		return nil
	}
	if args[0] == "clear" {
		if err := a.store.ClearCart(ctx); err != nil {
			return err
		}
		a.println(a.styles.renderCart(a.store.Cart()))
		return nil
	}
	if len(args) < 2 {
		return fmt.Errorf("%w: cart %s needs a product id", errUsage, args[0])
	}

	id := model.ID(args[1])
	var err error
	switch args[0] {
	case "add":
		p, ok := a.findProduct(id)
		if !ok {
			return fmt.Errorf("product %s is not in the catalog", id)
		}
		err = a.store.AddToCart(ctx, p)
	case "inc":
		err = a.store.UpdateCartQuantity(ctx, id, 1)
	case "dec":
		err = a.store.UpdateCartQuantity(ctx, id, -1)
	case "rm":
		err = a.store.RemoveFromCart(ctx, id)
	default:
		return fmt.Errorf("%w: unknown cart action %q", errUsage, args[0])
	}
	if err != nil {
		return err
	}
	a.println(a.styles.renderCart(a.store.Cart()))
	return nil
}

func (a *app) order(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "list" {
		a.println(a.styles.renderOrders(a.store.Orders()))
		return nil
	}

	switch args[0] {
	case "history":
		orders, err := a.store.OrderHistory(ctx)
		if err != nil {
			return err
		}
		a.println(a.styles.renderOrders(orders))
		return nil

	case "pending":
		orders, err := a.store.PendingOrders(ctx)
		if err != nil {
			return err
		}
		a.println(a.styles.renderOrders(orders))
		return nil

	case "show":
		if len(args) < 2 {
			return fmt.Errorf("%w: order show needs an id", errUsage)
		}
		o, err := a.store.FetchOrder(ctx, model.ID(args[1]))
		if err != nil {
			return err
		}
		a.println(a.styles.renderOrder(o))
		return nil

	case "place":
		if len(args) < 4 {
			return fmt.Errorf("%w: order place needs name, phone and address", errUsage)
		}
		if len(a.store.Cart()) == 0 {
			return errors.New("cart is empty")
		}
		o, err := a.store.PlaceOrder(ctx, model.OrderDetails{
			CustomerName:    args[1],
			CustomerPhone:   args[2],
			DeliveryAddress: strings.Join(args[3:], " "),
		})
		if err != nil {
			return err
		}
		a.println(fmt.Sprintf("order %s placed: %s", o.ID, formatAmount(o.Total)))
		return nil

	case "status":
		if len(args) < 3 {
			return fmt.Errorf("%w: order status needs id and status", errUsage)
		}
		status, err := model.ParseOrderStatus(args[2])
		if err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		var driverID model.ID
		if len(args) > 3 {
			driverID = model.ID(args[3])
		}
		if err := a.store.UpdateOrderStatus(ctx, model.ID(args[1]), status, driverID); err != nil {
			return err
		}
		a.println(fmt.Sprintf("order %s is now %s", args[1], a.styles.status(status)))
		return nil
	}
	return fmt.Errorf("%w: unknown order action %q", errUsage, args[0])
}

func (a *app) driver(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "schedule" {
		a.println(a.styles.renderSchedule(a.store.Snapshot().DriverSchedule))
		return nil
	}

	switch args[0] {
	case "missions":
		orders, err := a.store.DriverMissions(ctx)
		if err != nil {
			return err
		}
		a.println(a.styles.renderOrders(orders))
		return nil

	case "toggle":
		available, err := a.store.ToggleDriverAvailability(ctx)
		if err != nil {
			return err
		}
		a.println(fmt.Sprintf("available: %t", available))
		return nil

	case "day":
		if len(args) < 2 {
			return fmt.Errorf("%w: driver day needs a weekday", errUsage)
		}
		day := model.Weekday(strings.ToLower(args[1]))
		mode := "flip"
		if len(args) > 2 {
			mode = args[2]
		}

		var err error
		switch mode {
		case "flip":
			err = a.store.ToggleDayAvailability(ctx, day)
		case "on", "off":
			enabled := mode == "on"
			upd := model.DayUpdate{Enabled: &enabled}
			if len(args) > 4 {
				upd.StartTime, upd.EndTime = &args[3], &args[4]
			}
			err = a.store.UpdateDriverSchedule(ctx, day, upd)
		default:
			return fmt.Errorf("%w: unknown day mode %q", errUsage, mode)
		}
		if err != nil {
			return err
		}
		a.println(a.styles.renderSchedule(a.store.Snapshot().DriverSchedule))
		return nil
	}
	return fmt.Errorf("%w: unknown driver action %q", errUsage, args[0])
}

func (a *app) manager(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "dashboard" {
		d, err := a.store.ManagerDashboard(ctx)
		if err != nil {
			return err
		}
		a.println(a.styles.renderDashboard(d))
		return nil
	}

	if args[0] == "image" {
		if len(args) < 2 {
			return fmt.Errorf("%w: manager image needs a file or url", errUsage)
		}
		r, err := a.store.UpdateRestaurant(ctx, model.RestaurantUpdate{Image: &args[1]})
		if err != nil {
			return err
		}
		a.println(fmt.Sprintf("restaurant %s image: %s", r.Name, r.Image))
		return nil
	}
	return fmt.Errorf("%w: unknown manager action %q", errUsage, args[0])
}

// watch держит клиент запущенным и сообщает о переходах между online и offline.
func (a *app) watch(ctx context.Context, args []string) error {
	interval := 15 * time.Second
	if len(args) > 0 {
		d, err := time.ParseDuration(args[0])
		if err != nil || d <= 0 {
			return fmt.Errorf("%w: bad interval %q", errUsage, args[0])
		}
		interval = d
	}

	a.store.StartReconnect(ctx, interval)

	online := a.store.IsOnline()
	a.println("connection: " + a.styles.connection(online))
	last := a.syncSummary()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if now := a.store.IsOnline(); now != online {
				online = now
				a.println(time.Now().Format("15:04:05") + " connection: " + a.styles.connection(online))
			}
			if sum := a.syncSummary(); sum != nil && (last == nil || *sum != *last) {
				last = sum
				a.println(time.Now().Format("15:04:05") + " " + a.styles.sync(*sum))
			}
		}
	}
}
