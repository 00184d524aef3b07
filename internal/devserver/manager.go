package devserver

import (
	"errors"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/foodmarket-client/internal/model"
	"github.com/mmeshcher/foodmarket-client/internal/validation"
)

const maxUploadSize = 10 << 20

type managerRestaurantResponse struct {
	model.Restaurant
	Products []model.Product `json:"products"`
}

type productCreateRequest struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Price       model.Amount `json:"price"`
	Category    string       `json:"category"`
}

type bannerCreateRequest struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
}

// ManagerDashboard возвращает сводку по заказам ресторана менеджера.
func (h *Handler) ManagerDashboard(w http.ResponseWriter, r *http.Request) {
	managerID, _ := currentUser(r)
	restaurant, products, err := h.state.ManagerRestaurant(managerID)
	if err != nil {
		h.writeStateError(w, err)
		return
	}

	orders := h.state.Orders(func(_ model.Order, _, rid model.ID) bool { return rid == restaurant.ID })
	writeJSON(w, http.StatusOK, model.SummarizeOrders(restaurant.Name, orders, len(products)))
}

// ManagerRestaurant возвращает ресторан менеджера с товарами.
func (h *Handler) ManagerRestaurant(w http.ResponseWriter, r *http.Request) {
	managerID, _ := currentUser(r)
	restaurant, products, err := h.state.ManagerRestaurant(managerID)
	if err != nil {
		h.writeStateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, managerRestaurantResponse{Restaurant: restaurant, Products: products})
}

// UpdateRestaurant частично обновляет ресторан менеджера.
func (h *Handler) UpdateRestaurant(w http.ResponseWriter, r *http.Request) {
	managerID, _ := currentUser(r)
	var upd model.RestaurantUpdate
	if !decodeJSON(w, r, &upd) {
		return
	}
	restaurant, err := h.state.UpdateRestaurant(managerID, model.ID(chi.URLParam(r, "id")), upd)
	if err != nil {
		h.writeStateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, restaurant)
}

// ToggleRestaurantOpen открывает или закрывает ресторан.
func (h *Handler) ToggleRestaurantOpen(w http.ResponseWriter, r *http.Request) {
	managerID, _ := currentUser(r)
	open, err := h.state.ToggleRestaurantOpen(managerID, model.ID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeStateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"is_open": open})
}

// UploadRestaurantImage принимает изображение ресторана.
func (h *Handler) UploadRestaurantImage(w http.ResponseWriter, r *http.Request) {
	managerID, _ := currentUser(r)
	image, ok := h.receiveImage(w, r, "restaurants")
	if !ok {
		return
	}
	if err := h.state.SetRestaurantImage(managerID, model.ID(chi.URLParam(r, "id")), image); err != nil {
		h.writeStateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"image": image})
}

// CreateProduct создаёт товар в ресторане менеджера.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	managerID, _ := currentUser(r)
	var req productCreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" || req.Price < 0 {
		writeError(w, http.StatusBadRequest, "name is required and price must not be negative")
		return
	}

	p, err := h.state.CreateProduct(managerID, model.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
	})
	if err != nil {
		h.writeStateError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// UpdateProduct частично обновляет товар.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	managerID, _ := currentUser(r)
	var upd model.ProductUpdate
	if !decodeJSON(w, r, &upd) {
		return
	}
	p, err := h.state.UpdateProduct(managerID, model.ID(chi.URLParam(r, "id")), upd.Apply)
	if err != nil {
		h.writeStateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeleteProduct удаляет товар.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	managerID, _ := currentUser(r)
	if err := h.state.DeleteProduct(managerID, model.ID(chi.URLParam(r, "id"))); err != nil {
		h.writeStateError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadProductImage принимает изображение товара.
func (h *Handler) UploadProductImage(w http.ResponseWriter, r *http.Request) {
	managerID, _ := currentUser(r)
	image, ok := h.receiveImage(w, r, "products")
	if !ok {
		return
	}
	p, err := h.state.UpdateProduct(managerID, model.ID(chi.URLParam(r, "id")), func(p model.Product) model.Product {
		p.Image = image
		return p
	})
	if err != nil {
		h.writeStateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// CreateBanner создаёт баннер ресторана менеджера.
func (h *Handler) CreateBanner(w http.ResponseWriter, r *http.Request) {
	managerID, _ := currentUser(r)
	var req bannerCreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	b, err := h.state.CreateBanner(managerID, model.Banner{Title: req.Title, Subtitle: req.Subtitle})
	if err != nil {
		h.writeStateError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// UpdateBanner частично обновляет баннер.
func (h *Handler) UpdateBanner(w http.ResponseWriter, r *http.Request) {
	managerID, _ := currentUser(r)
	var upd model.BannerUpdate
	if !decodeJSON(w, r, &upd) {
		return
	}
	b, err := h.state.UpdateBanner(managerID, model.ID(chi.URLParam(r, "id")), upd.Apply)
	if err != nil {
		h.writeStateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// DeleteBanner удаляет баннер.
func (h *Handler) DeleteBanner(w http.ResponseWriter, r *http.Request) {
	managerID, _ := currentUser(r)
	if err := h.state.DeleteBanner(managerID, model.ID(chi.URLParam(r, "id"))); err != nil {
		h.writeStateError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadBannerImage принимает изображение баннера.
func (h *Handler) UploadBannerImage(w http.ResponseWriter, r *http.Request) {
	managerID, _ := currentUser(r)
	image, ok := h.receiveImage(w, r, "banners")
	if !ok {
		return
	}
	b, err := h.state.UpdateBanner(managerID, model.ID(chi.URLParam(r, "id")), func(b model.Banner) model.Banner {
		b.Image = image
		return b
	})
	if err != nil {
		h.writeStateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// TeamMembers возвращает сотрудников ресторана.
func (h *Handler) TeamMembers(w http.ResponseWriter, r *http.Request) {
	managerID, _ := currentUser(r)
	writeJSON(w, http.StatusOK, h.state.TeamMembers(managerID))
}

// CreateTeamMember добавляет сотрудника.
func (h *Handler) CreateTeamMember(w http.ResponseWriter, r *http.Request) {
	managerID, _ := currentUser(r)
	var m model.TeamMember
	if !decodeJSON(w, r, &m) {
		return
	}
	if strings.TrimSpace(m.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	writeJSON(w, http.StatusCreated, h.state.CreateTeamMember(managerID, m))
}

// UpdateTeamMember частично обновляет сотрудника.
func (h *Handler) UpdateTeamMember(w http.ResponseWriter, r *http.Request) {
	managerID, _ := currentUser(r)
	var upd model.TeamMemberUpdate
	if !decodeJSON(w, r, &upd) {
		return
	}
	m, err := h.state.UpdateTeamMember(managerID, model.ID(chi.URLParam(r, "id")), upd)
	if err != nil {
		h.writeStateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// DeleteTeamMember удаляет сотрудника.
func (h *Handler) DeleteTeamMember(w http.ResponseWriter, r *http.Request) {
	managerID, _ := currentUser(r)
	if err := h.state.DeleteTeamMember(managerID, model.ID(chi.URLParam(r, "id"))); err != nil {
		h.writeStateError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// receiveImage читает multipart-поле image и возвращает путь, под которым изображение доступно.
// Содержимое файла dev-сервер не хранит.
func (h *Handler) receiveImage(w http.ResponseWriter, r *http.Request, collection string) (string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image file is required")
		return "", false
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = validation.ImageContentType(header.Filename)
	}
	if !strings.HasPrefix(contentType, "image/") {
		writeError(w, http.StatusBadRequest, "file is not an image")
		return "", false
	}

	image := "/media/" + collection + "/" + uuid.NewString() + "_" + path.Base(header.Filename)
	h.logger.Debug("image received",
		zap.String("collection", collection),
		zap.String("filename", header.Filename),
		zap.Int64("size", header.Size),
	)
	return image, true
}

func (h *Handler) writeStateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, ErrNoRestaurant):
		writeError(w, http.StatusNotFound, "no restaurant is assigned to this manager")
	default:
		h.logger.Error("state error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}
