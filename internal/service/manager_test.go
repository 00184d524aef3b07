package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/foodmarket-client/internal/marketapi"
	"github.com/mmeshcher/foodmarket-client/internal/model"
)

func managerStub() *stubBackend {
	b := onlineStub()
	b.loginUser = model.User{ID: "42", Email: "chef@example.com", Role: model.RoleManager}
	b.managerRestaurant = marketapi.ManagerRestaurant{
		Restaurant: model.Restaurant{ID: "3", Name: "Chez Maman", IsOpen: true},
		Products:   []model.Product{{ID: "9", Name: "Aloko", Price: 1500, Restaurant: "3"}},
	}
	b.banners = []model.Banner{
		{ID: "5", Title: "Promo", Restaurant: "3"},
		{ID: "6", Title: "Other", Restaurant: "4"},
	}
	b.team = []model.TeamMember{{ID: "11", Name: "Kofi", Status: "active"}}
	return b
}

func TestManagerLoginLoadsRestaurant(t *testing.T) {
	s := loggedInStore(t, managerStub(), model.RoleManager)

	snap := s.Snapshot()
	assert.Equal(t, model.ID("3"), snap.Restaurant.ID)
	require.Len(t, snap.Products, 1)
	require.Len(t, snap.Banners, 1)
	assert.Equal(t, model.ID("5"), snap.Banners[0].ID)
	require.Len(t, snap.TeamMembers, 1)
}

func TestManagerLoadFailureKeepsDefaults(t *testing.T) {
	b := managerStub()
	b.managerErr = errors.New("500")
	s := loggedInStore(t, b, model.RoleManager)

	assert.Equal(t, model.DefaultRestaurant(), s.Snapshot().Restaurant)
}

func TestAddProductOffline(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, nil, nil)

	p, err := s.AddProduct(ctx, model.Product{Name: "Pâte rouge", Price: 2000})
	require.NoError(t, err)

	assert.Equal(t, model.ID("p1718000000000"), p.ID)
	assert.Equal(t, model.ID("r1"), p.Restaurant)
	assert.True(t, p.IsAvailable)
	assert.Equal(t, p, s.Snapshot().Products[0])

	next, err := s.AddProduct(ctx, model.Product{Name: "Amiwo", Price: 1800})
	require.NoError(t, err)
	assert.Equal(t, model.ID("p1718000000001"), next.ID)
	assert.Equal(t, next.ID, s.Snapshot().Products[0].ID)
}

func TestAddProductSwapsServerIDAndUploadsImage(t *testing.T) {
	ctx := context.Background()
	b := managerStub()
	b.createdID = "77"
	s := loggedInStore(t, b, model.RoleManager)

	p, err := s.AddProduct(ctx, model.Product{Name: "Akassa", Price: 700, Image: "file:///tmp/akassa.jpg"})
	require.NoError(t, err)

	assert.Equal(t, model.ID("77"), p.ID)
	assert.Equal(t, model.ID("3"), p.Restaurant)
	assert.Equal(t, model.ID("77"), s.Snapshot().Products[0].ID)
	assert.Contains(t, b.Calls(), "product_image:77:file:///tmp/akassa.jpg")
}

func TestAddProductRemoteFailureKeepsProvisionalID(t *testing.T) {
	ctx := context.Background()
	b := managerStub()
	s := loggedInStore(t, b, model.RoleManager)
	b.mutationErr = errors.New("500")

	p, err := s.AddProduct(ctx, model.Product{Name: "Akassa", Image: "file:///tmp/akassa.jpg"})
	require.NoError(t, err)

	assert.Equal(t, model.ID("p1718000000000"), p.ID)
	for _, c := range b.Calls() {
		assert.NotContains(t, c, "product_image")
	}
}

func TestUpdateAndDeleteProduct(t *testing.T) {
	ctx := context.Background()
	b := managerStub()
	s := loggedInStore(t, b, model.RoleManager)

	price := model.Amount(1700)
	image := "file:///tmp/aloko.png"
	require.NoError(t, s.UpdateProduct(ctx, "9", model.ProductUpdate{Price: &price, Image: &image}))

	got := s.Snapshot().Products[0]
	assert.Equal(t, price, got.Price)
	assert.Equal(t, image, got.Image)
	assert.Contains(t, b.Calls(), "product_update:9")
	assert.Contains(t, b.Calls(), "product_image:9:file:///tmp/aloko.png")

	b.mutationErr = errors.New("500")
	require.NoError(t, s.DeleteProduct(ctx, "9"))
	assert.Empty(t, s.Snapshot().Products)
}

func TestUpdateProductImageOnlySkipsMetadataCall(t *testing.T) {
	ctx := context.Background()
	b := managerStub()
	s := loggedInStore(t, b, model.RoleManager)

	image := "file:///tmp/aloko.png"
	require.NoError(t, s.UpdateProduct(ctx, "9", model.ProductUpdate{Image: &image}))

	assert.NotContains(t, b.Calls(), "product_update:9")
	assert.Contains(t, b.Calls(), "product_image:9:file:///tmp/aloko.png")
}

func TestAddBannerAppendsWithOrder(t *testing.T) {
	ctx := context.Background()
	b := managerStub()
	b.createdID = "50"
	s := loggedInStore(t, b, model.RoleManager)

	banner, err := s.AddBanner(ctx, model.Banner{Title: "Fête", Image: "file:///tmp/fete.jpg"})
	require.NoError(t, err)

	assert.Equal(t, model.ID("50"), banner.ID)
	assert.Equal(t, 1, banner.Order)
	assert.True(t, banner.IsActive)

	banners := s.Snapshot().Banners
	require.Len(t, banners, 2)
	assert.Equal(t, model.ID("50"), banners[1].ID)
	assert.Contains(t, b.Calls(), "banner_image:50:file:///tmp/fete.jpg")

	require.NoError(t, s.DeleteBanner(ctx, "5"))
	assert.Len(t, s.Snapshot().Banners, 1)
}

func TestTeamMembers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, nil, nil)

	m, err := s.AddTeamMember(ctx, model.TeamMember{Name: "Yao", Role: "cook"})
	require.NoError(t, err)
	assert.Equal(t, model.ID("t1718000000000"), m.ID)
	assert.Equal(t, "active", m.Status)

	status := "inactive"
	require.NoError(t, s.UpdateTeamMember(ctx, m.ID, model.TeamMemberUpdate{Status: &status}))
	assert.Equal(t, "inactive", s.Snapshot().TeamMembers[0].Status)

	require.NoError(t, s.DeleteTeamMember(ctx, m.ID))
	assert.Empty(t, s.Snapshot().TeamMembers)
}

func TestUpdateRestaurantMerges(t *testing.T) {
	ctx := context.Background()
	b := managerStub()
	s := loggedInStore(t, b, model.RoleManager)

	phone := "+229 96 00 00 00"
	r, err := s.UpdateRestaurant(ctx, model.RestaurantUpdate{Phone: &phone})
	require.NoError(t, err)

	assert.Equal(t, phone, r.Phone)
	assert.Equal(t, "Chez Maman", r.Name)
	assert.Equal(t, r, s.Snapshot().Restaurant)
	assert.Contains(t, b.Calls(), "restaurant_update:3")
}

func TestToggleRestaurantOpen(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, nil, nil)

	open, err := s.ToggleRestaurantOpen(ctx)
	require.NoError(t, err)
	assert.False(t, open)
	assert.False(t, s.Snapshot().Restaurant.IsOpen)
}

func TestRestaurantWithProductsRemote(t *testing.T) {
	b := onlineStub()
	b.restaurantDetails = model.RestaurantDetails{
		Company:  model.Company{ID: "3", Name: "Chez Maman"},
		Products: []model.Product{{ID: "9"}, {ID: "10"}},
	}
	s := newTestStore(t, b, nil)

	got, err := s.RestaurantWithProducts(context.Background(), "3")
	require.NoError(t, err)
	assert.Len(t, got.Products, 2)
}

func TestRestaurantWithProductsFallsBackToCache(t *testing.T) {
	ctx := context.Background()
	b := onlineStub()
	s := newTestStore(t, b, nil)
	b.restaurantErr = errors.New("502")

	got, err := s.RestaurantWithProducts(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, "Chez Maman", got.Name)
	require.Len(t, got.Products, 1)
	assert.Equal(t, model.ID("9"), got.Products[0].ID)

	_, err = s.RestaurantWithProducts(ctx, "404")
	if !errors.Is(err, ErrUnknownRestaurant) {
		t.Fatalf("expected ErrUnknownRestaurant, got %v", err)
	}
}

func TestUpdateRestaurantUploadsLocalImage(t *testing.T) {
	ctx := context.Background()
	b := managerStub()
	s := loggedInStore(t, b, model.RoleManager)

	img := "file:///sdcard/front.jpg"
	r, err := s.UpdateRestaurant(ctx, model.RestaurantUpdate{Image: &img})
	require.NoError(t, err)

	assert.Equal(t, img, r.Image)
	assert.Contains(t, b.Calls(), "restaurant_image:3:"+img)

	remote := "https://cdn.example.com/front.jpg"
	_, err = s.UpdateRestaurant(ctx, model.RestaurantUpdate{Image: &remote})
	require.NoError(t, err)
	assert.NotContains(t, b.Calls(), "restaurant_image:3:"+remote)
}
