package devserver

import (
	"fmt"

	"github.com/mmeshcher/foodmarket-client/internal/model"
)

// Демо-учётные записи, которые создаёт Seed.
const (
	DemoPassword      = "foodmarket"
	DemoClientEmail   = "client@foodmarket.local"
	DemoManagerEmail  = "manager@foodmarket.local"
	DemoDriverEmail   = "driver@foodmarket.local"
	demoRestaurantFee = model.Amount(700)
)

// Seed наполняет состояние демо-каталогом и тремя учётными записями.
func Seed(s *State) error {
	users := make(map[model.Role]model.User, 3)
	for _, data := range []model.SignupData{
		{Email: DemoClientEmail, Password: DemoPassword, FirstName: "Awa", Role: model.RoleClient},
		{Email: DemoManagerEmail, Password: DemoPassword, FirstName: "Afi", Role: model.RoleManager},
		{Email: DemoDriverEmail, Password: DemoPassword, FirstName: "Koffi", Role: model.RoleDriver},
	} {
		u, err := s.CreateUser(data)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", data.Email, err)
		}
		users[data.Role] = u
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	local := model.Category{ID: newID(), Name: "Cuisine locale", Icon: "restaurant"}
	grill := model.Category{ID: newID(), Name: "Grillades", Icon: "flame"}
	s.categories = []model.Category{local, grill}

	maman := &restaurantRecord{
		company: model.Company{
			ID:           newID(),
			Name:         "Chez Maman",
			Description:  "Plats béninois faits maison",
			Address:      "Rue 12, Cotonou",
			Rating:       4.7,
			DeliveryTime: "30-45 min",
			DeliveryFee:  demoRestaurantFee,
			Category:     local.ID,
			IsOpen:       true,
		},
		phone:     "+229 97 00 00 10",
		managerID: users[model.RoleManager].ID,
	}
	braise := &restaurantRecord{
		company: model.Company{
			ID:           newID(),
			Name:         "La Braise",
			Description:  "Poulet et poisson braisés",
			Address:      "Haie Vive, Cotonou",
			Rating:       4.2,
			DeliveryTime: "40-55 min",
			DeliveryFee:  model.DefaultDeliveryFee,
			Category:     grill.ID,
			IsOpen:       true,
		},
		phone: "+229 97 00 00 20",
	}
	s.restaurants[maman.company.ID] = maman
	s.restaurants[braise.company.ID] = braise

	now := s.now().UTC()
	for _, p := range []model.Product{
		{Name: "Amiwo", Price: 1500, Category: "Plats", Restaurant: maman.company.ID},
		{Name: "Aloko", Price: 1000, Category: "Accompagnements", Restaurant: maman.company.ID},
		{Name: "Garba", Price: 800, Category: "Plats", Restaurant: maman.company.ID},
		{Name: "Poulet braisé", Price: 3500, Category: "Grillades", Restaurant: braise.company.ID},
	} {
		p.ID = newID()
		p.IsAvailable = true
		p.CreatedAt = now
		s.products[p.ID] = p
	}

	promo := model.Banner{ID: newID(), Title: "Livraison offerte", Subtitle: "Ce week-end", Restaurant: maman.company.ID, IsActive: true}
	s.banners[promo.ID] = promo

	s.team[users[model.RoleManager].ID] = []model.TeamMember{
		{ID: newID(), Name: "Yao", Role: "cuisinier", Status: "active"},
	}
	return nil
}
