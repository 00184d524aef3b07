// Package model содержит доменные сущности клиента маркетплейса доставки еды.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ID идентификатор сущности. Сервер отдаёт числовые идентификаторы,
// локально созданные сущности получают строковые ("p1718000000000").
type ID string

// UnmarshalJSON принимает как строку, так и число.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// String реализует fmt.Stringer.
func (id ID) String() string {
	return string(id)
}

// Amount денежная сумма в целых единицах валюты (FCFA).
type Amount int64

// UnmarshalJSON принимает число или строку с десятичной записью ("3500.00").
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = 0
		return nil
	}
	raw := strings.Trim(string(data), `"`)
	if raw == "" {
		*a = 0
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("decode amount %q: %w", raw, err)
	}
	*a = Amount(math.Round(f))
	return nil
}

// Role роль пользователя приложения.
type Role string

const (
	RoleClient  Role = "client"
	RoleManager Role = "manager"
	RoleDriver  Role = "driver"
	RoleAdmin   Role = "admin"
)

// IsValid сообщает, является ли роль известной.
func (r Role) IsValid() bool {
	switch r {
	case RoleClient, RoleManager, RoleDriver, RoleAdmin:
		return true
	}
	return false
}

// User профиль пользователя, как его возвращает сервер.
type User struct {
	ID        ID     `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Role      Role   `json:"role"`

	// Статистика водителя, подмешивается из /driver/dashboard/.
	Deliveries int     `json:"deliveries,omitempty"`
	Rating     float64 `json:"rating,omitempty"`
	ThisMonth  int     `json:"thisMonth,omitempty"`
}

// Session активная сессия пользователя. В каждый момент времени существует не более одной.
type Session struct {
	User           User `json:"user"`
	HasRemoteToken bool `json:"has_remote_token"`
}

// SignupData данные регистрации нового пользователя.
type SignupData struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Password2 string `json:"password2,omitempty"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Role      Role   `json:"role"`
}

// ProfileUpdate частичное обновление профиля. Nil-поля не меняются.
type ProfileUpdate struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Email     *string `json:"email,omitempty"`
}

// Apply накладывает обновление на профиль.
func (u ProfileUpdate) Apply(user User) User {
	if u.FirstName != nil {
		user.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		user.LastName = *u.LastName
	}
	if u.Phone != nil {
		user.Phone = *u.Phone
	}
	if u.Email != nil {
		user.Email = *u.Email
	}
	return user
}

// DriverStats показатели водителя с /driver/dashboard/.
type DriverStats struct {
	Deliveries int     `json:"deliveries"`
	Rating     float64 `json:"rating"`
	ThisMonth  int     `json:"this_month"`
}

// Category категория каталога.
type Category struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

// Company ресторан в публичном каталоге.
type Company struct {
	ID           ID      `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description,omitempty"`
	Image        string  `json:"image,omitempty"`
	Address      string  `json:"address,omitempty"`
	Rating       float64 `json:"rating,omitempty"`
	DeliveryTime string  `json:"delivery_time,omitempty"`
	DeliveryFee  Amount  `json:"delivery_fee,omitempty"`
	Category     ID      `json:"category,omitempty"`
	IsOpen       bool    `json:"is_open"`
}

// FeaturedRating минимальный рейтинг рекомендуемого ресторана.
const FeaturedRating = 4.5

// IsFeatured сообщает, попадает ли ресторан в рекомендуемые.
func (c Company) IsFeatured() bool {
	return c.Rating >= FeaturedRating
}

// RestaurantDetails ресторан вместе с его товарами.
type RestaurantDetails struct {
	Company
	Products []Product `json:"products"`
}

// Product товар ресторана.
type Product struct {
	ID          ID        `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       Amount    `json:"price"`
	Image       string    `json:"image,omitempty"`
	Category    string    `json:"category,omitempty"`
	Restaurant  ID        `json:"restaurant,omitempty"`
	IsAvailable bool      `json:"is_available"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// IsFeatured сообщает, попадает ли товар в рекомендуемые: доступен и с изображением.
func (p Product) IsFeatured() bool {
	return p.IsAvailable && p.Image != ""
}

// ProductUpdate частичное обновление товара.
type ProductUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Price       *Amount `json:"price,omitempty"`
	Category    *string `json:"category,omitempty"`
	IsAvailable *bool   `json:"is_available,omitempty"`
	Image       *string `json:"-"`
}

// Apply накладывает обновление на товар.
func (u ProductUpdate) Apply(p Product) Product {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.Category != nil {
		p.Category = *u.Category
	}
	if u.IsAvailable != nil {
		p.IsAvailable = *u.IsAvailable
	}
	if u.Image != nil {
		p.Image = *u.Image
	}
	return p
}

// HasFields сообщает, есть ли в обновлении поля помимо изображения.
func (u ProductUpdate) HasFields() bool {
	return u.Name != nil || u.Description != nil || u.Price != nil || u.Category != nil || u.IsAvailable != nil
}

// Banner рекламный баннер ресторана.
type Banner struct {
	ID         ID     `json:"id"`
	Title      string `json:"title"`
	Subtitle   string `json:"subtitle,omitempty"`
	Image      string `json:"image,omitempty"`
	Restaurant ID     `json:"restaurant,omitempty"`
	IsActive   bool   `json:"is_active"`
	Order      int    `json:"order"`
}

// BannerUpdate частичное обновление баннера.
type BannerUpdate struct {
	Title    *string `json:"title,omitempty"`
	Subtitle *string `json:"subtitle,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
	Order    *int    `json:"order,omitempty"`
	Image    *string `json:"-"`
}

// Apply накладывает обновление на баннер.
func (u BannerUpdate) Apply(b Banner) Banner {
	if u.Title != nil {
		b.Title = *u.Title
	}
	if u.Subtitle != nil {
		b.Subtitle = *u.Subtitle
	}
	if u.IsActive != nil {
		b.IsActive = *u.IsActive
	}
	if u.Order != nil {
		b.Order = *u.Order
	}
	if u.Image != nil {
		b.Image = *u.Image
	}
	return b
}

// HasFields сообщает, есть ли в обновлении поля помимо изображения.
func (u BannerUpdate) HasFields() bool {
	return u.Title != nil || u.Subtitle != nil || u.IsActive != nil || u.Order != nil
}

// TeamMember сотрудник ресторана.
type TeamMember struct {
	ID     ID     `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Email  string `json:"email,omitempty"`
	Status string `json:"status,omitempty"`
}

// TeamMemberUpdate частичное обновление сотрудника.
type TeamMemberUpdate struct {
	Name   *string `json:"name,omitempty"`
	Role   *string `json:"role,omitempty"`
	Phone  *string `json:"phone,omitempty"`
	Email  *string `json:"email,omitempty"`
	Status *string `json:"status,omitempty"`
}

// Apply накладывает обновление на сотрудника.
func (u TeamMemberUpdate) Apply(m TeamMember) TeamMember {
	if u.Name != nil {
		m.Name = *u.Name
	}
	if u.Role != nil {
		m.Role = *u.Role
	}
	if u.Phone != nil {
		m.Phone = *u.Phone
	}
	if u.Email != nil {
		m.Email = *u.Email
	}
	if u.Status != nil {
		m.Status = *u.Status
	}
	return m
}

// Restaurant ресторан менеджера текущей сессии.
type Restaurant struct {
	ID           ID     `json:"id"`
	Name         string `json:"name"`
	Address      string `json:"address"`
	Phone        string `json:"phone"`
	DeliveryTime string `json:"delivery_time"`
	DeliveryFee  Amount `json:"delivery_fee"`
	IsOpen       bool   `json:"is_open"`
	Image        string `json:"image,omitempty"`
}

// DefaultDeliveryFee фиксированная стоимость доставки для локально созданных заказов.
const DefaultDeliveryFee Amount = 500

// DefaultRestaurant запись ресторана, действующая до загрузки данных менеджера и после выхода.
func DefaultRestaurant() Restaurant {
	return Restaurant{
		ID:           "r1",
		Name:         "Mon Restaurant",
		Address:      "Cotonou, Bénin",
		Phone:        "+229 97 00 00 00",
		DeliveryTime: "30-45 min",
		DeliveryFee:  DefaultDeliveryFee,
		IsOpen:       true,
	}
}

// RestaurantUpdate частичное обновление ресторана (поверхностное слияние).
type RestaurantUpdate struct {
	Name         *string `json:"name,omitempty"`
	Address      *string `json:"address,omitempty"`
	Phone        *string `json:"phone,omitempty"`
	DeliveryTime *string `json:"delivery_time,omitempty"`
	DeliveryFee  *Amount `json:"delivery_fee,omitempty"`
	IsOpen       *bool   `json:"is_open,omitempty"`
	Image        *string `json:"-"`
}

// Apply накладывает обновление на ресторан.
func (u RestaurantUpdate) Apply(r Restaurant) Restaurant {
	if u.Name != nil {
		r.Name = *u.Name
	}
	if u.Address != nil {
		r.Address = *u.Address
	}
	if u.Phone != nil {
		r.Phone = *u.Phone
	}
	if u.DeliveryTime != nil {
		r.DeliveryTime = *u.DeliveryTime
	}
	if u.DeliveryFee != nil {
		r.DeliveryFee = *u.DeliveryFee
	}
	if u.IsOpen != nil {
		r.IsOpen = *u.IsOpen
	}
	if u.Image != nil {
		r.Image = *u.Image
	}
	return r
}

// Driver водитель в списке менеджера.
type Driver struct {
	ID     ID     `json:"id"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Status string `json:"status"`
}

// DefaultDrivers список водителей, если в кэше ничего нет.
func DefaultDrivers() []Driver {
	return []Driver{
		{ID: "d1", Name: "Koffi Jean", Phone: "+229 97 00 00 01", Status: "available"},
		{ID: "d2", Name: "Ahou Marie", Phone: "+229 97 00 00 02", Status: "available"},
		{ID: "d3", Name: "Dossou Paul", Phone: "+229 97 00 00 03", Status: "busy"},
	}
}
