package marketapi

import (
	"context"
	"net/http"
	"net/url"

	"github.com/mmeshcher/foodmarket-client/internal/model"
)

// ManagerRestaurant ресторан менеджера вместе с товарами.
type ManagerRestaurant struct {
	model.Restaurant
	Products []model.Product `json:"products"`
}

// ManagerDashboard возвращает сводку ресторана менеджера.
func (c *Client) ManagerDashboard(ctx context.Context) (model.ManagerDashboard, error) {
	var dashboard model.ManagerDashboard
	err := c.do(ctx, request{method: http.MethodGet, path: "/manager/dashboard/"}, &dashboard)
	return dashboard, err
}

// ManagerRestaurant возвращает ресторан текущего менеджера.
func (c *Client) ManagerRestaurant(ctx context.Context) (ManagerRestaurant, error) {
	var r ManagerRestaurant
	err := c.do(ctx, request{method: http.MethodGet, path: "/manager/restaurant/"}, &r)
	return r, err
}

// UpdateRestaurant частично обновляет ресторан.
func (c *Client) UpdateRestaurant(ctx context.Context, id model.ID, upd model.RestaurantUpdate) error {
	return c.do(ctx, request{method: http.MethodPatch, path: itemPath("/restaurants/", id), body: upd}, nil)
}

// ToggleRestaurantOpen открывает или закрывает ресторан.
func (c *Client) ToggleRestaurantOpen(ctx context.Context, id model.ID) error {
	return c.do(ctx, request{method: http.MethodPost, path: itemPath("/restaurants/", id) + "toggle_open/"}, nil)
}

type productCreateRequest struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Price       model.Amount `json:"price"`
}

// CreateProduct создаёт товар. Ресторан сервер назначает сам.
func (c *Client) CreateProduct(ctx context.Context, p model.Product) (model.Product, error) {
	var created model.Product
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/products/",
		body:   productCreateRequest{Name: p.Name, Description: p.Description, Price: p.Price},
	}, &created)
	return created, err
}

// UpdateProduct частично обновляет товар. Изображение загружается отдельно.
func (c *Client) UpdateProduct(ctx context.Context, id model.ID, upd model.ProductUpdate) error {
	return c.do(ctx, request{method: http.MethodPatch, path: itemPath("/products/", id), body: upd}, nil)
}

// DeleteProduct удаляет товар.
func (c *Client) DeleteProduct(ctx context.Context, id model.ID) error {
	return c.do(ctx, request{method: http.MethodDelete, path: itemPath("/products/", id)}, nil)
}

type bannerCreateRequest struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
}

// CreateBanner создаёт баннер ресторана менеджера.
func (c *Client) CreateBanner(ctx context.Context, b model.Banner) (model.Banner, error) {
	var created model.Banner
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/banners/",
		body:   bannerCreateRequest{Title: b.Title, Subtitle: b.Subtitle},
	}, &created)
	return created, err
}

// UpdateBanner частично обновляет баннер.
func (c *Client) UpdateBanner(ctx context.Context, id model.ID, upd model.BannerUpdate) error {
	return c.do(ctx, request{method: http.MethodPatch, path: itemPath("/banners/", id), body: upd}, nil)
}

// DeleteBanner удаляет баннер.
func (c *Client) DeleteBanner(ctx context.Context, id model.ID) error {
	return c.do(ctx, request{method: http.MethodDelete, path: itemPath("/banners/", id)}, nil)
}

// TeamMembers возвращает сотрудников ресторана.
func (c *Client) TeamMembers(ctx context.Context) ([]model.TeamMember, error) {
	return getList[model.TeamMember](ctx, c, "/team/", nil)
}

type teamMemberCreateRequest struct {
	Name  string `json:"name"`
	Role  string `json:"role,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// CreateTeamMember добавляет сотрудника.
func (c *Client) CreateTeamMember(ctx context.Context, m model.TeamMember) (model.TeamMember, error) {
	var created model.TeamMember
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/team/",
		body:   teamMemberCreateRequest{Name: m.Name, Role: m.Role, Phone: m.Phone, Email: m.Email},
	}, &created)
	return created, err
}

// UpdateTeamMember частично обновляет сотрудника.
func (c *Client) UpdateTeamMember(ctx context.Context, id model.ID, upd model.TeamMemberUpdate) error {
	return c.do(ctx, request{method: http.MethodPatch, path: itemPath("/team/", id), body: upd}, nil)
}

// DeleteTeamMember удаляет сотрудника.
func (c *Client) DeleteTeamMember(ctx context.Context, id model.ID) error {
	return c.do(ctx, request{method: http.MethodDelete, path: itemPath("/team/", id)}, nil)
}

func itemPath(collection string, id model.ID) string {
	return collection + url.PathEscape(id.String()) + "/"
}
