package devserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/mmeshcher/foodmarket-client/internal/middleware"
	"github.com/mmeshcher/foodmarket-client/internal/model"
)

// devPrefix путь управляющих эндпоинтов dev-сервера, на них не действует имитация сбоев.
const devPrefix = "/api/dev/"

// SetupRouter настраивает HTTP-маршруты и middleware dev-сервера.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(h.faults.Middleware(devPrefix))
	r.Use(custommiddleware.RequestLogger(h.logger))
	r.Use(custommiddleware.GzipMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register/", h.Register)
		r.Post("/auth/login/", h.Login)
		r.Post("/auth/refresh/", h.Refresh)
		r.Post("/auth/logout/", h.Logout)

		r.Get("/categories/", h.Categories)
		r.Get("/restaurants/", h.Restaurants)
		r.Get("/restaurants/by_category/", h.RestaurantsByCategory)
		r.Get("/restaurants/featured/", h.FeaturedRestaurants)
		r.Get("/restaurants/{id}/", h.Restaurant)
		r.Get("/products/", h.Products)
		r.Get("/products/by_restaurant/", h.ProductsByRestaurant)
		r.Get("/products/popular/", h.PopularProducts)
		r.Get("/products/featured/", h.FeaturedProducts)
		r.Get("/products/{id}/", h.Product)
		r.Get("/banners/", h.Banners)
		r.Get("/settings/", h.Settings)

		r.Post("/dev/fault/", h.SetFaultMode)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/auth/profile/", h.Profile)
			r.Patch("/auth/profile/", h.UpdateProfile)

			r.Get("/cart/", h.Cart)
			r.Post("/cart/items/", h.CartAddItem)
			r.Put("/cart/items/", h.CartUpdateItem)
			r.Patch("/cart/items/", h.CartUpdateItem)
			r.Delete("/cart/items/", h.CartRemoveItem)

			r.Get("/orders/", h.Orders)
			r.Get("/orders/pending/", h.PendingOrders)
			r.Post("/orders/create_from_cart/", h.CreateOrderFromCart)
			r.Get("/orders/{id}/", h.Order)
			r.With(requireRole(model.RoleManager, model.RoleDriver)).
				Post("/orders/{id}/update_status/", h.UpdateOrderStatus)

			r.Route("/driver", func(r chi.Router) {
				r.Use(requireRole(model.RoleDriver))

				r.Get("/schedule/my_schedule/", h.MySchedule)
				r.Post("/schedule/update_day/", h.UpdateDay)
				r.Post("/schedule/toggle_availability/", h.ToggleAvailability)
				r.Get("/missions/", h.Missions)
				r.Get("/dashboard/", h.DriverDashboard)
			})

			r.Group(func(r chi.Router) {
				r.Use(requireRole(model.RoleManager))

				r.Get("/manager/dashboard/", h.ManagerDashboard)
				r.Get("/manager/restaurant/", h.ManagerRestaurant)

				r.Patch("/restaurants/{id}/", h.UpdateRestaurant)
				r.Post("/restaurants/{id}/toggle_open/", h.ToggleRestaurantOpen)
				r.Post("/restaurants/{id}/upload_image/", h.UploadRestaurantImage)

				r.Post("/products/", h.CreateProduct)
				r.Patch("/products/{id}/", h.UpdateProduct)
				r.Delete("/products/{id}/", h.DeleteProduct)
				r.Post("/products/{id}/upload_image/", h.UploadProductImage)

				r.Post("/banners/", h.CreateBanner)
				r.Patch("/banners/{id}/", h.UpdateBanner)
				r.Delete("/banners/{id}/", h.DeleteBanner)
				r.Post("/banners/{id}/upload_image/", h.UploadBannerImage)

				r.Get("/team/", h.TeamMembers)
				r.Post("/team/", h.CreateTeamMember)
				r.Patch("/team/{id}/", h.UpdateTeamMember)
				r.Delete("/team/{id}/", h.DeleteTeamMember)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	})

	return r
}
