package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mmeshcher/foodmarket-client/internal/metrics"
	"github.com/mmeshcher/foodmarket-client/internal/model"
	"github.com/mmeshcher/foodmarket-client/internal/service"
)

// styles оформление вывода. Без терминала lipgloss выводит текст без цветов.
type styles struct {
	Title   lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Danger  lipgloss.Style
	Panel   lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F59E0B")),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")),
		Success: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#10B981")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")),
		Danger:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EF4444")),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#374151")).
			Padding(0, 1),
	}
}

func formatAmount(a model.Amount) string {
	return fmt.Sprintf("%d FCFA", int64(a))
}

func (st styles) connection(online bool) string {
	if online {
		return st.Success.Render("online")
	}
	return st.Warning.Render("offline")
}

func (st styles) status(s model.OrderStatus) string {
	switch s {
	case model.OrderStatusDelivered:
		return st.Success.Render(s.String())
	case model.OrderStatusCancelled:
		return st.Danger.Render(s.String())
	default:
		return s.String()
	}
}

func (st styles) sync(sum metrics.SyncSummary) string {
	line := fmt.Sprintf("sync: %d ok, %d failed, %d local only", sum.OK, sum.Failed, sum.Skipped)
	if sum.Reverts > 0 {
		return line + ", " + st.Danger.Render(fmt.Sprintf("%d reverted", sum.Reverts))
	}
	return line + ", 0 reverted"
}

func (st styles) renderStatus(snap service.Snapshot, sum *metrics.SyncSummary) string {
	user := st.Muted.Render("not signed in")
	if snap.Session != nil {
		u := snap.Session.User
		mode := "local session"
		if snap.Session.HasRemoteToken {
			mode = "server session"
		}
		user = fmt.Sprintf("%s (%s, %s)", u.Email, u.Role, mode)
	}

	lines := []string{
		st.Title.Render("Food marketplace"),
		"connection: " + st.connection(snap.Online),
		"user:       " + user,
		fmt.Sprintf("catalog:    %d restaurants, %d products", len(snap.Companies), len(snap.Products)),
		fmt.Sprintf("cart:       %d lines, %s", len(snap.Cart), formatAmount(snap.CartTotal)),
		fmt.Sprintf("orders:     %d", len(snap.Orders)),
	}
	if snap.Session != nil && snap.Session.User.Role == model.RoleDriver {
		lines = append(lines, "available:  "+fmt.Sprint(snap.DriverAvailable))
	}
	if snap.Session != nil && snap.Session.User.Role == model.RoleManager {
		lines = append(lines, fmt.Sprintf("restaurant: %s (open: %t)", snap.Restaurant.Name, snap.Restaurant.IsOpen))
	}
	if sum != nil {
		lines = append(lines, st.sync(*sum))
	}
	return st.Panel.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (st styles) renderRestaurants(companies []model.Company) string {
	if len(companies) == 0 {
		return st.Muted.Render("no restaurants")
	}
	var b strings.Builder
	b.WriteString(st.Title.Render("Restaurants"))
	for _, c := range companies {
		open := st.Muted.Render("closed")
		if c.IsOpen {
			open = st.Success.Render("open")
		}
		fmt.Fprintf(&b, "\n%-12s %-24s %.1f %s", c.ID, c.Name, c.Rating, open)
	}
	return b.String()
}

func (st styles) renderProducts(products []model.Product) string {
	if len(products) == 0 {
		return st.Muted.Render("catalog is empty")
	}
	var b strings.Builder
	b.WriteString(st.Title.Render("Products"))
	for _, p := range products {
		fmt.Fprintf(&b, "\n%-12s %-24s %s", p.ID, p.Name, formatAmount(p.Price))
	}
	return b.String()
}

func (st styles) renderCart(lines []model.CartLine) string {
	if len(lines) == 0 {
		return st.Muted.Render("cart is empty")
	}
	var b strings.Builder
	b.WriteString(st.Title.Render("Cart"))
	for _, l := range lines {
		fmt.Fprintf(&b, "\n%-12s %-24s x%-3d %s", l.ProductID, l.Name, l.Quantity, formatAmount(l.Subtotal()))
	}
	fmt.Fprintf(&b, "\n%s %s", st.Muted.Render("total"), formatAmount(model.CartTotal(lines)))
	return b.String()
}

func (st styles) renderOrders(orders []model.Order) string {
	if len(orders) == 0 {
		return st.Muted.Render("no orders yet")
	}
	var b strings.Builder
	b.WriteString(st.Title.Render("Orders"))
	for _, o := range orders {
		fmt.Fprintf(&b, "\n%-38s %-12s %-10s %s", o.ID, o.CreatedAt.Local().Format("02.01 15:04"), formatAmount(o.Total), st.status(o.Status))
	}
	return b.String()
}

func (st styles) renderOrder(o model.Order) string {
	lines := []string{
		st.Title.Render("Order " + o.ID.String()),
		"status:   " + st.status(o.Status),
		"total:    " + formatAmount(o.Total),
		"customer: " + o.CustomerName + " " + o.CustomerPhone,
		"address:  " + o.DeliveryAddress,
	}
	if o.DriverID != "" {
		lines = append(lines, "driver:   "+o.DriverID.String())
	}
	for _, it := range o.Items {
		lines = append(lines, fmt.Sprintf("  %s x%d", it.Name, it.Quantity))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (st styles) renderDashboard(d model.ManagerDashboard) string {
	return st.Panel.Render(lipgloss.JoinVertical(lipgloss.Left,
		st.Title.Render(d.Restaurant),
		fmt.Sprintf("orders:   %d (%d pending)", d.TotalOrders, d.PendingOrders),
		"revenue:  "+formatAmount(d.Revenue),
		fmt.Sprintf("products: %d", d.Products),
	))
}

func (st styles) renderSchedule(schedule model.DriverSchedule) string {
	var b strings.Builder
	b.WriteString(st.Title.Render("Schedule"))
	for _, day := range model.Weekdays {
		d, ok := schedule[day]
		if !ok {
			d = model.DefaultDaySchedule()
		}
		state := st.Muted.Render("off")
		if d.Enabled {
			state = st.Success.Render("on ")
		}
		fmt.Fprintf(&b, "\n%-10s %s %s-%s", day, state, d.StartTime, d.EndTime)
	}
	return b.String()
}
