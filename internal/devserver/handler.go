package devserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/foodmarket-client/internal/middleware"
	"github.com/mmeshcher/foodmarket-client/internal/model"
)

// Handler реализует HTTP-обработчики dev-сервера.
type Handler struct {
	state          *State
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	faults         *Faults
}

// NewHandler создаёт обработчик поверх состояния.
func NewHandler(state *State, logger *zap.Logger, auth *middleware.AuthMiddleware, faults *Faults) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if faults == nil {
		faults = &Faults{}
	}
	return &Handler{
		state:          state,
		logger:         logger,
		authMiddleware: auth,
		faults:         faults,
	}
}

type tokensResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type authResponse struct {
	User   model.User     `json:"user"`
	Tokens tokensResponse `json:"tokens"`
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// Register регистрирует пользователя и выдаёт токены.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.SignupData
	if !decodeJSON(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	if req.Password2 != "" && req.Password2 != req.Password {
		writeError(w, http.StatusBadRequest, "passwords do not match")
		return
	}

	user, err := h.state.CreateUser(req)
	if err != nil {
		if errors.Is(err, ErrUserExists) {
			writeError(w, http.StatusBadRequest, "a user with this email already exists")
			return
		}
		h.logger.Error("register user error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	h.respondWithTokens(w, http.StatusCreated, user)
}

// Login проверяет учётные данные и выдаёт токены.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.state.Authenticate(req.Email, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	h.respondWithTokens(w, http.StatusOK, user)
}

func (h *Handler) respondWithTokens(w http.ResponseWriter, status int, user model.User) {
	access, refresh, err := h.authMiddleware.IssueTokens(user.ID.String(), string(user.Role))
	if err != nil {
		h.logger.Error("issue tokens error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}
	writeJSON(w, status, authResponse{User: user, Tokens: tokensResponse{Access: access, Refresh: refresh}})
}

// Refresh обменивает refresh-токен на новую пару. Старый refresh-токен отзывается.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	claims, err := h.authMiddleware.ParseRefreshToken(req.Refresh)
	if err != nil || h.state.IsRevoked(claims.ID) {
		writeError(w, http.StatusUnauthorized, "token is invalid or expired")
		return
	}
	user, err := h.state.User(model.ID(claims.UserID()))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "user not found")
		return
	}

	h.state.Revoke(claims.ID)
	access, refresh, err := h.authMiddleware.IssueTokens(user.ID.String(), string(user.Role))
	if err != nil {
		h.logger.Error("issue tokens error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}
	writeJSON(w, http.StatusOK, tokensResponse{Access: access, Refresh: refresh})
}

// Logout отзывает refresh-токен. Невалидный токен не считается ошибкой.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if claims, err := h.authMiddleware.ParseRefreshToken(req.Refresh); err == nil {
		h.state.Revoke(claims.ID)
	}
	writeJSON(w, http.StatusOK, map[string]string{"detail": "logged out"})
}

// Profile возвращает профиль текущего пользователя.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, _ := currentUser(r)
	user, err := h.state.User(userID)
	if err != nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateProfile частично обновляет профиль текущего пользователя.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := currentUser(r)
	var upd model.ProfileUpdate
	if !decodeJSON(w, r, &upd) {
		return
	}
	user, err := h.state.UpdateUser(userID, upd)
	if err != nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Categories возвращает категории.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.state.Categories())
}

// Restaurants возвращает рестораны.
func (h *Handler) Restaurants(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.state.Companies(nil))
}

// RestaurantsByCategory возвращает рестораны категории category_id.
func (h *Handler) RestaurantsByCategory(w http.ResponseWriter, r *http.Request) {
	category := model.ID(r.URL.Query().Get("category_id"))
	if category == "" {
		writeError(w, http.StatusBadRequest, "category_id is required")
		return
	}
	writeJSON(w, http.StatusOK, h.state.Companies(func(c model.Company) bool {
		return c.Category == category
	}))
}

// FeaturedRestaurants возвращает рестораны с рейтингом не ниже model.FeaturedRating.
func (h *Handler) FeaturedRestaurants(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.state.Companies(model.Company.IsFeatured))
}

// Restaurant возвращает ресторан вместе с товарами.
func (h *Handler) Restaurant(w http.ResponseWriter, r *http.Request) {
	details, err := h.state.RestaurantDetails(model.ID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, http.StatusNotFound, "restaurant not found")
		return
	}
	writeJSON(w, http.StatusOK, details)
}

// Products возвращает товары.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.state.Products(nil))
}

// Product возвращает товар.
func (h *Handler) Product(w http.ResponseWriter, r *http.Request) {
	p, err := h.state.Product(model.ID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ProductsByRestaurant возвращает товары ресторана restaurant_id.
func (h *Handler) ProductsByRestaurant(w http.ResponseWriter, r *http.Request) {
	restaurant := model.ID(r.URL.Query().Get("restaurant_id"))
	if restaurant == "" {
		writeError(w, http.StatusBadRequest, "restaurant_id is required")
		return
	}
	writeJSON(w, http.StatusOK, h.state.Products(func(p model.Product) bool {
		return p.Restaurant == restaurant
	}))
}

// PopularProducts возвращает доступные товары.
func (h *Handler) PopularProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.state.Products(func(p model.Product) bool {
		return p.IsAvailable
	}))
}

// FeaturedProducts возвращает доступные товары с изображением.
func (h *Handler) FeaturedProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.state.Products(model.Product.IsFeatured))
}

// Banners возвращает баннеры в обёртке с постраничной выдачей.
func (h *Handler) Banners(w http.ResponseWriter, r *http.Request) {
	banners := h.state.Banners()
	writeJSON(w, http.StatusOK, map[string]any{"count": len(banners), "results": banners})
}

// Settings возвращает настройки приложения.
func (h *Handler) Settings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.AppSettings{
		DefaultDeliveryFee: model.DefaultDeliveryFee,
		Currency:           model.DefaultCurrency,
		FaultMode:          h.faults.Mode().String(),
	})
}

// SetFaultMode переключает имитацию сбоев: {"mode": "none"|"unavailable"|"drop"}.
func (h *Handler) SetFaultMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	mode, err := ParseFaultMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.faults.Set(mode)
	h.logger.Info("fault mode changed", zap.Stringer("mode", mode))
	writeJSON(w, http.StatusOK, map[string]string{"mode": mode.String()})
}

func currentUser(r *http.Request) (model.ID, model.Role) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return "", ""
	}
	return model.ID(claims.UserID()), model.Role(claims.Role)
}

// requireRole пропускает только пользователей с одной из ролей. Admin проходит всегда.
func requireRole(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, role := currentUser(r)
			if role == model.RoleAdmin {
				next.ServeHTTP(w, r)
				return
			}
			for _, allowed := range roles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "forbidden")
		})
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
