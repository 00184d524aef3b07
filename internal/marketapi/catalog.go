package marketapi

import (
	"context"
	"net/http"
	"net/url"

	"github.com/mmeshcher/foodmarket-client/internal/model"
)

// Categories возвращает категории каталога.
func (c *Client) Categories(ctx context.Context) ([]model.Category, error) {
	return getList[model.Category](ctx, c, "/categories/", nil)
}

// Restaurants возвращает рестораны каталога.
func (c *Client) Restaurants(ctx context.Context) ([]model.Company, error) {
	return getList[model.Company](ctx, c, "/restaurants/", nil)
}

// Restaurant возвращает ресторан вместе с товарами.
func (c *Client) Restaurant(ctx context.Context, id model.ID) (model.RestaurantDetails, error) {
	var details model.RestaurantDetails
	err := c.do(ctx, request{method: http.MethodGet, path: "/restaurants/" + url.PathEscape(id.String()) + "/"}, &details)
	return details, err
}

// RestaurantsByCategory возвращает рестораны категории.
func (c *Client) RestaurantsByCategory(ctx context.Context, categoryID model.ID) ([]model.Company, error) {
	return getList[model.Company](ctx, c, "/restaurants/by_category/", url.Values{"category_id": {categoryID.String()}})
}

// FeaturedRestaurants возвращает рекомендуемые рестораны.
func (c *Client) FeaturedRestaurants(ctx context.Context) ([]model.Company, error) {
	return getList[model.Company](ctx, c, "/restaurants/featured/", nil)
}

// Products возвращает все товары.
func (c *Client) Products(ctx context.Context) ([]model.Product, error) {
	return getList[model.Product](ctx, c, "/products/", nil)
}

// Product возвращает товар по идентификатору.
func (c *Client) Product(ctx context.Context, id model.ID) (model.Product, error) {
	var p model.Product
	err := c.do(ctx, request{method: http.MethodGet, path: "/products/" + url.PathEscape(id.String()) + "/"}, &p)
	return p, err
}

// ProductsByRestaurant возвращает товары ресторана.
func (c *Client) ProductsByRestaurant(ctx context.Context, restaurantID model.ID) ([]model.Product, error) {
	return getList[model.Product](ctx, c, "/products/by_restaurant/", url.Values{"restaurant_id": {restaurantID.String()}})
}

// PopularProducts возвращает популярные товары.
func (c *Client) PopularProducts(ctx context.Context) ([]model.Product, error) {
	return getList[model.Product](ctx, c, "/products/popular/", nil)
}

// FeaturedProducts возвращает рекомендуемые товары.
func (c *Client) FeaturedProducts(ctx context.Context) ([]model.Product, error) {
	return getList[model.Product](ctx, c, "/products/featured/", nil)
}

// Banners возвращает баннеры всех ресторанов.
func (c *Client) Banners(ctx context.Context) ([]model.Banner, error) {
	return getList[model.Banner](ctx, c, "/banners/", nil)
}

// AppSettings возвращает настройки приложения.
func (c *Client) AppSettings(ctx context.Context) (model.AppSettings, error) {
	var settings model.AppSettings
	err := c.do(ctx, request{method: http.MethodGet, path: "/settings/"}, &settings)
	return settings, err
}
