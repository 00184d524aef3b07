package devserver_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mmeshcher/foodmarket-client/internal/devserver"
	"github.com/mmeshcher/foodmarket-client/internal/marketapi"
	"github.com/mmeshcher/foodmarket-client/internal/metrics"
	"github.com/mmeshcher/foodmarket-client/internal/middleware"
	"github.com/mmeshcher/foodmarket-client/internal/model"
	"github.com/mmeshcher/foodmarket-client/internal/repository"
	"github.com/mmeshcher/foodmarket-client/internal/service"
)

type harness struct {
	state  *devserver.State
	faults *devserver.Faults
	store  *service.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := zaptest.NewLogger(t)

	state := devserver.NewState()
	require.NoError(t, devserver.Seed(state))
	faults := &devserver.Faults{}
	h := devserver.NewHandler(state, logger, middleware.NewAuthMiddleware("e2e-secret"), faults)
	srv := httptest.NewServer(h.SetupRouter())
	t.Cleanup(srv.Close)

	storage := repository.NewMemoryStorage()
	client := marketapi.NewClient(srv.URL+"/api", storage, logger, 2*time.Second)
	store := service.NewStore(service.Options{
		Storage: storage,
		Backend: client,
		Logger:  logger,
		Metrics: metrics.NewSyncMetrics(prometheus.NewRegistry()),
	})
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Init(context.Background()))
	return &harness{state: state, faults: faults, store: store}
}

func (h *harness) product(t *testing.T, name string) model.Product {
	t.Helper()
	for _, p := range h.store.Snapshot().Products {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("product %q missing from catalog", name)
	return model.Product{}
}

func TestStoreSyncsWithDevServer(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	snap := h.store.Snapshot()
	require.True(t, snap.Online)
	assert.Len(t, snap.Categories, 2)
	assert.Len(t, snap.Companies, 2)
	assert.Len(t, snap.Banners, 1)

	user, err := h.store.Login(ctx, devserver.DemoClientEmail, devserver.DemoPassword, model.RoleClient)
	require.NoError(t, err)
	require.True(t, h.store.Session().HasRemoteToken)

	garba := h.product(t, "Garba")
	amiwo := h.product(t, "Amiwo")
	require.NoError(t, h.store.AddToCart(ctx, garba))
	require.NoError(t, h.store.AddToCart(ctx, garba))
	require.NoError(t, h.store.AddToCart(ctx, amiwo))
	require.NoError(t, h.store.UpdateCartQuantity(ctx, amiwo.ID, -1))

	serverCart := h.state.Cart(user.ID)
	require.Len(t, serverCart, 1, "server cart mirrors the local one")
	assert.Equal(t, garba.ID, serverCart[0].ProductID)
	assert.Equal(t, 2, serverCart[0].Quantity)

	order, err := h.store.PlaceOrder(ctx, model.OrderDetails{CustomerName: "Awa", DeliveryAddress: "Cadjèhoun"})
	require.NoError(t, err)
	assert.Equal(t, model.Amount(2*800+700), order.Total)
	assert.Empty(t, h.store.Cart())

	serverOrders := h.state.Orders(nil)
	require.Len(t, serverOrders, 1)
	assert.Equal(t, serverOrders[0].ID, order.ID, "order id is assigned by the server")
	assert.Equal(t, order.ID, h.store.Orders()[0].ID)

	require.NoError(t, h.store.Logout(ctx))
	assert.Nil(t, h.store.Session())
}

func TestManagerSyncsWithDevServer(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.store.Login(ctx, devserver.DemoManagerEmail, devserver.DemoPassword, model.RoleManager)
	require.NoError(t, err)

	snap := h.store.Snapshot()
	assert.Equal(t, "Chez Maman", snap.Restaurant.Name)
	assert.Len(t, snap.TeamMembers, 1)

	created, err := h.store.AddProduct(ctx, model.Product{Name: "Ablo", Price: 500})
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(created.ID.String(), "p"), "server id replaces the provisional one: %s", created.ID)

	p, err := h.state.Product(created.ID)
	require.NoError(t, err)
	assert.Equal(t, snap.Restaurant.ID, p.Restaurant)

	open, err := h.store.ToggleRestaurantOpen(ctx)
	require.NoError(t, err)
	assert.False(t, open)
}

func TestStoreDegradesWhenServerDrops(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	user, err := h.store.Login(ctx, devserver.DemoClientEmail, devserver.DemoPassword, model.RoleClient)
	require.NoError(t, err)
	garba := h.product(t, "Garba")

	h.faults.Set(devserver.FaultDrop)

	require.NoError(t, h.store.AddToCart(ctx, garba), "cart changes are kept when the server is unreachable")
	assert.Len(t, h.store.Cart(), 1)
	assert.Empty(t, h.state.Cart(user.ID))

	order, err := h.store.PlaceOrder(ctx, model.OrderDetails{CustomerName: "Awa"})
	require.NoError(t, err)
	assert.Equal(t, model.Amount(800)+model.DefaultDeliveryFee, order.Total, "local orders use the configured fee")
	assert.Empty(t, h.state.Orders(nil))
	assert.Empty(t, h.store.Cart())

	require.NoError(t, h.store.Refresh(ctx), "catalog falls back to the cache")
	assert.False(t, h.store.IsOnline())
	assert.Len(t, h.store.Snapshot().Companies, 2)

	h.faults.Set(devserver.FaultNone)
	require.NoError(t, h.store.Refresh(ctx))
	assert.True(t, h.store.IsOnline())
	require.Len(t, h.store.Orders(), 1, "local orders survive reconnecting")
}
