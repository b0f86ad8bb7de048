package storefront

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jogardn/panda-lite/internal/cart"
	"github.com/jogardn/panda-lite/internal/cartstore"
	"github.com/jogardn/panda-lite/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackendDown = errors.New("backend returned status 503")

type fakeBackend struct {
	mu           sync.Mutex
	restaurants  []models.Restaurant
	menus        map[string][]models.MenuItem
	listErr      error
	menuErr      error
	orderErr     error
	gates        map[string]chan struct{}
	ignoreCancel bool
	started      chan string
	orders       []models.OrderSubmission
	menuCalls    int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		restaurants: []models.Restaurant{
			{ID: "r1", Name: "Panda Wok", Rating: 4.6},
			{ID: "r2", Name: "Urban Pizza Co.", Rating: 4.7},
		},
		menus: map[string][]models.MenuItem{
			"r1": {
				{ID: "m1", RestaurantID: "r1", Name: "Spicy Ramen", Price: decimal.RequireFromString("12.00")},
				{ID: "m2", RestaurantID: "r1", Name: "Veggie Dumplings", Price: decimal.RequireFromString("7.50")},
			},
			"r2": {
				{ID: "m3", RestaurantID: "r2", Name: "Garlic Knots", Price: decimal.RequireFromString("5.99")},
			},
		},
		gates: map[string]chan struct{}{},
	}
}

func (f *fakeBackend) ListRestaurants(context.Context) ([]models.Restaurant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.Restaurant{}, f.restaurants...), nil
}

func (f *fakeBackend) ListMenu(ctx context.Context, restaurantID string) ([]models.MenuItem, error) {
	f.mu.Lock()
	f.menuCalls++
	gate := f.gates[restaurantID]
	started := f.started
	ignoreCancel := f.ignoreCancel
	f.mu.Unlock()

	if started != nil {
		started <- restaurantID
	}
	if gate != nil {
		if ignoreCancel {
			<-gate
		} else {
			select {
			case <-gate:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.menuErr != nil {
		return nil, f.menuErr
	}
	return append([]models.MenuItem{}, f.menus[restaurantID]...), nil
}

func (f *fakeBackend) CreateOrder(_ context.Context, sub models.OrderSubmission) (models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, sub)
	if f.orderErr != nil {
		return models.Order{}, f.orderErr
	}
	return models.Order{ID: fmt.Sprintf("o%d", len(f.orders)), RestaurantID: sub.RestaurantID, Status: sub.Status}, nil
}

func (f *fakeBackend) CreateRestaurant(_ context.Context, in models.RestaurantInput) (models.Restaurant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := in.WithID(fmt.Sprintf("seed-%d", len(f.restaurants)+1))
	f.restaurants = append(f.restaurants, r)
	return r, nil
}

func (f *fakeBackend) CreateMenuItem(_ context.Context, in models.MenuItemInput) (models.MenuItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item := in.WithID(fmt.Sprintf("item-%d", len(f.menus[in.RestaurantID])+1))
	f.menus[in.RestaurantID] = append(f.menus[in.RestaurantID], item)
	return item, nil
}

func (f *fakeBackend) orderCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

type recordingNotifier struct {
	mu    sync.Mutex
	types []string
	last  View
}

func (n *recordingNotifier) Broadcast(messageType string, data interface{}, source string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.types = append(n.types, messageType)
	n.last = data.(View)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func newTestController(t *testing.T, backend *fakeBackend, store cart.Store) *Controller {
	t.Helper()
	if store == nil {
		store = cartstore.NewMemoryStore()
	}
	ctx := context.Background()
	c := NewController(backend, cart.NewManager(ctx, store, testLogger()), nil, testLogger())
	require.NoError(t, c.ListRestaurants(ctx))
	return c
}

var validCustomer = Customer{Name: "Ada", Email: "ada@example.com", Address: "1 Main St"}

func TestListRestaurants(t *testing.T) {
	backend := newFakeBackend()
	c := newTestController(t, backend, nil)

	v := c.View()
	require.Len(t, v.Restaurants, 2)
	assert.Equal(t, "Panda Wok", v.Restaurants[0].Name)
	assert.False(t, v.Busy)
	assert.Empty(t, v.Error)
}

func TestListRestaurantsFailureKeepsPreviousList(t *testing.T) {
	backend := newFakeBackend()
	c := newTestController(t, backend, nil)

	backend.listErr = errBackendDown
	err := c.ListRestaurants(context.Background())

	require.ErrorIs(t, err, errBackendDown)
	v := c.View()
	assert.Len(t, v.Restaurants, 2)
	assert.Equal(t, errBackendDown.Error(), v.Error)
	assert.False(t, v.Busy)
}

func TestOpenRestaurantLoadsMenu(t *testing.T) {
	c := newTestController(t, newFakeBackend(), nil)

	require.NoError(t, c.OpenRestaurant(context.Background(), "r1"))

	v := c.View()
	require.NotNil(t, v.Selected)
	assert.Equal(t, "r1", v.Selected.ID)
	assert.Len(t, v.Menu, 2)
	require.NotNil(t, v.Cart.Restaurant)
	assert.Equal(t, "r1", v.Cart.Restaurant.ID)
}

func TestOpenUnknownRestaurant(t *testing.T) {
	backend := newFakeBackend()
	c := newTestController(t, backend, nil)

	err := c.OpenRestaurant(context.Background(), "nope")

	require.ErrorIs(t, err, ErrUnknownRestaurant)
	assert.Nil(t, c.View().Selected)
	assert.Equal(t, 0, backend.menuCalls)
}

func TestOpenOtherRestaurantResetsCart(t *testing.T) {
	ctx := context.Background()
	c := newTestController(t, newFakeBackend(), nil)

	require.NoError(t, c.OpenRestaurant(ctx, "r1"))
	require.NoError(t, c.AddItem(ctx, "m1"))
	require.NoError(t, c.OpenRestaurant(ctx, "r2"))

	v := c.View()
	assert.Empty(t, v.Cart.Items)
	require.NotNil(t, v.Cart.Restaurant)
	assert.Equal(t, "r2", v.Cart.Restaurant.ID)
}

func TestReopenSameRestaurantKeepsCart(t *testing.T) {
	ctx := context.Background()
	c := newTestController(t, newFakeBackend(), nil)

	require.NoError(t, c.OpenRestaurant(ctx, "r1"))
	require.NoError(t, c.AddItem(ctx, "m1"))
	c.Back()
	require.NoError(t, c.OpenRestaurant(ctx, "r1"))

	assert.Len(t, c.View().Cart.Items, 1)
}

func TestMenuFailureKeepsSelection(t *testing.T) {
	backend := newFakeBackend()
	backend.menuErr = errBackendDown
	c := newTestController(t, backend, nil)

	err := c.OpenRestaurant(context.Background(), "r1")

	require.ErrorIs(t, err, errBackendDown)
	v := c.View()
	require.NotNil(t, v.Selected)
	assert.Equal(t, "r1", v.Selected.ID)
	assert.Empty(t, v.Menu)
	assert.Equal(t, errBackendDown.Error(), v.Error)
	assert.False(t, v.Busy)
}

func TestMenuFailureKeepsCart(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	c := newTestController(t, backend, nil)

	require.NoError(t, c.OpenRestaurant(ctx, "r1"))
	require.NoError(t, c.AddItem(ctx, "m1"))

	backend.mu.Lock()
	backend.menuErr = errBackendDown
	backend.mu.Unlock()
	require.ErrorIs(t, c.OpenRestaurant(ctx, "r2"), errBackendDown)

	v := c.View()
	assert.Equal(t, "r2", v.Selected.ID)
	require.Len(t, v.Cart.Items, 1)
	require.NotNil(t, v.Cart.Restaurant)
	assert.Equal(t, "r1", v.Cart.Restaurant.ID)

	// The cart belongs to r1, so it cannot be ordered from r2.
	_, err := c.PlaceOrder(ctx, validCustomer)
	assert.ErrorIs(t, err, ErrOrderRefused)
	assert.Equal(t, 0, backend.orderCount())
}

func TestStaleMenuResponseIsDiscarded(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	c := newTestController(t, backend, nil)

	gate := make(chan struct{})
	backend.mu.Lock()
	backend.gates["r1"] = gate
	backend.ignoreCancel = true
	backend.started = make(chan string, 2)
	backend.mu.Unlock()

	firstDone := make(chan error, 1)
	go func() { firstDone <- c.OpenRestaurant(ctx, "r1") }()
	require.Equal(t, "r1", <-backend.started)

	require.NoError(t, c.OpenRestaurant(ctx, "r2"))
	<-backend.started

	// The first load is still pending, so busy stays on.
	assert.True(t, c.Busy())
	assert.Equal(t, "r2", c.View().Selected.ID)

	close(gate)
	select {
	case err := <-firstDone:
		assert.ErrorIs(t, err, ErrSuperseded)
	case <-time.After(2 * time.Second):
		t.Fatal("first menu load never returned")
	}

	v := c.View()
	assert.False(t, v.Busy)
	require.Len(t, v.Menu, 1)
	assert.Equal(t, "m3", v.Menu[0].ID)
	assert.Equal(t, "r2", v.Selected.ID)
	require.NotNil(t, v.Cart.Restaurant)
	assert.Equal(t, "r2", v.Cart.Restaurant.ID)
}

func TestSupersededMenuLoadLeavesCartAlone(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	c := newTestController(t, backend, nil)

	require.NoError(t, c.OpenRestaurant(ctx, "r1"))
	require.NoError(t, c.AddItem(ctx, "m1"))
	c.Back()

	backend.mu.Lock()
	backend.gates["r2"] = make(chan struct{})
	backend.started = make(chan string, 1)
	backend.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- c.OpenRestaurant(ctx, "r2") }()
	<-backend.started
	c.Back()
	require.ErrorIs(t, <-done, ErrSuperseded)

	v := c.View()
	require.Len(t, v.Cart.Items, 1)
	assert.Equal(t, "r1", v.Cart.Restaurant.ID)
}

func TestBackCancelsPendingMenuLoad(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	c := newTestController(t, backend, nil)

	backend.mu.Lock()
	backend.gates["r1"] = make(chan struct{})
	backend.started = make(chan string, 1)
	backend.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- c.OpenRestaurant(ctx, "r1") }()
	<-backend.started

	c.Back()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrSuperseded)
	case <-time.After(2 * time.Second):
		t.Fatal("menu load was not cancelled")
	}

	v := c.View()
	assert.Nil(t, v.Selected)
	assert.Empty(t, v.Menu)
	assert.Empty(t, v.Error)
	assert.False(t, v.Busy)
}

func TestBackKeepsCart(t *testing.T) {
	ctx := context.Background()
	c := newTestController(t, newFakeBackend(), nil)

	require.NoError(t, c.OpenRestaurant(ctx, "r1"))
	require.NoError(t, c.AddItem(ctx, "m1"))
	c.Back()

	v := c.View()
	assert.Nil(t, v.Selected)
	assert.Len(t, v.Cart.Items, 1)
}

func TestAddItem(t *testing.T) {
	ctx := context.Background()
	c := newTestController(t, newFakeBackend(), nil)

	// Nothing open: silently ignored.
	require.NoError(t, c.AddItem(ctx, "m1"))
	assert.Empty(t, c.View().Cart.Items)

	require.NoError(t, c.OpenRestaurant(ctx, "r1"))
	require.NoError(t, c.AddItem(ctx, "m1"))
	require.NoError(t, c.AddItem(ctx, "m1"))
	require.NoError(t, c.AddItem(ctx, "m2"))

	err := c.AddItem(ctx, "m3")
	assert.ErrorIs(t, err, ErrUnknownMenuItem)

	v := c.View()
	require.Len(t, v.Cart.Items, 2)
	assert.Equal(t, 2, v.Cart.Items[0].Quantity)
	assert.Equal(t, "$31.50", v.Display.Subtotal)
	assert.Equal(t, "$2.99", v.Display.DeliveryFee)
	assert.Equal(t, "$34.49", v.Display.Total)
	assert.Equal(t, "$24.00", v.Lines[0].LineTotal)
}

func TestChangeQuantityAndClear(t *testing.T) {
	ctx := context.Background()
	c := newTestController(t, newFakeBackend(), nil)

	require.NoError(t, c.OpenRestaurant(ctx, "r1"))
	require.NoError(t, c.AddItem(ctx, "m1"))
	require.NoError(t, c.AddItem(ctx, "m2"))

	require.NoError(t, c.ChangeQuantity(ctx, "m2", -1))
	assert.Len(t, c.View().Cart.Items, 1)

	require.NoError(t, c.ClearCart(ctx))
	v := c.View()
	assert.Empty(t, v.Cart.Items)
	require.NotNil(t, v.Cart.Restaurant)
	assert.Equal(t, "r1", v.Cart.Restaurant.ID)
	assert.Equal(t, "$0.00", v.Display.Total)
}

func TestClearWithNothingOpenUnbindsCart(t *testing.T) {
	ctx := context.Background()
	c := newTestController(t, newFakeBackend(), nil)

	require.NoError(t, c.OpenRestaurant(ctx, "r1"))
	require.NoError(t, c.AddItem(ctx, "m1"))
	c.Back()
	require.NoError(t, c.ClearCart(ctx))

	assert.Nil(t, c.View().Cart.Restaurant)
}

func TestPlaceOrderRefused(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	c := newTestController(t, backend, nil)

	_, err := c.PlaceOrder(ctx, validCustomer)
	assert.ErrorIs(t, err, ErrOrderRefused)

	require.NoError(t, c.OpenRestaurant(ctx, "r1"))
	_, err = c.PlaceOrder(ctx, validCustomer)
	assert.ErrorIs(t, err, ErrOrderRefused)

	assert.Equal(t, 0, backend.orderCount())
	assert.Empty(t, c.View().Error)
}

func TestPlaceOrderInvalidCustomer(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	c := newTestController(t, backend, nil)

	require.NoError(t, c.OpenRestaurant(ctx, "r1"))
	require.NoError(t, c.AddItem(ctx, "m1"))

	_, err := c.PlaceOrder(ctx, Customer{Name: "  ", Email: "not-an-email", Address: "1 Main St"})

	require.ErrorIs(t, err, ErrInvalidCustomer)
	assert.ElementsMatch(t, []string{"Name", "Email"}, models.FieldErrors(err))
	assert.Equal(t, 0, backend.orderCount())
	assert.Empty(t, c.View().Error)
	assert.Len(t, c.View().Cart.Items, 1)
}

func TestPlaceOrderSuccess(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	c := newTestController(t, backend, nil)

	require.NoError(t, c.OpenRestaurant(ctx, "r1"))
	require.NoError(t, c.AddItem(ctx, "m1"))
	require.NoError(t, c.AddItem(ctx, "m1"))

	order, err := c.PlaceOrder(ctx, validCustomer)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPlaced, order.Status)

	require.Equal(t, 1, backend.orderCount())
	sub := backend.orders[0]
	assert.Equal(t, "r1", sub.RestaurantID)
	assert.Equal(t, "Panda Wok", sub.RestaurantName)
	assert.Equal(t, "ada@example.com", sub.CustomerEmail)
	require.Len(t, sub.Items, 1)
	assert.Equal(t, 2, sub.Items[0].Quantity)
	assert.True(t, sub.Subtotal.Equal(decimal.RequireFromString("24.00")))
	assert.True(t, sub.Total.Equal(decimal.RequireFromString("26.99")))

	v := c.View()
	assert.Empty(t, v.Cart.Items)
	require.NotNil(t, v.Cart.Restaurant)
	assert.Equal(t, "r1", v.Cart.Restaurant.ID)
	assert.Equal(t, NoticeOrderPlaced, v.Notice)
	assert.False(t, v.Busy)
}

func TestPlaceOrderFailureKeepsCart(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.orderErr = errBackendDown
	c := newTestController(t, backend, nil)

	require.NoError(t, c.OpenRestaurant(ctx, "r1"))
	require.NoError(t, c.AddItem(ctx, "m1"))

	_, err := c.PlaceOrder(ctx, validCustomer)

	require.ErrorIs(t, err, errBackendDown)
	v := c.View()
	assert.Len(t, v.Cart.Items, 1)
	assert.Equal(t, errBackendDown.Error(), v.Error)
	assert.Empty(t, v.Notice)
	assert.Equal(t, 1, backend.orderCount())
}

func TestBannerClearedByNextOperation(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	c := newTestController(t, backend, nil)

	backend.listErr = errBackendDown
	require.Error(t, c.ListRestaurants(ctx))
	require.NotEmpty(t, c.View().Error)

	backend.listErr = nil
	require.NoError(t, c.ListRestaurants(ctx))
	assert.Empty(t, c.View().Error)
}

func TestSeedSample(t *testing.T) {
	backend := newFakeBackend()
	backend.restaurants = nil
	c := newTestController(t, backend, nil)
	require.Empty(t, c.View().Restaurants)

	require.NoError(t, c.SeedSample(context.Background()))

	v := c.View()
	require.Len(t, v.Restaurants, 2)
	assert.Equal(t, "Panda Wok", v.Restaurants[0].Name)
	assert.Equal(t, "Urban Pizza Co.", v.Restaurants[1].Name)
	assert.Equal(t, NoticeSampleAdded, v.Notice)
	assert.Len(t, backend.menus[v.Restaurants[0].ID], 3)
}

func TestCartSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	store := cartstore.NewMemoryStore()
	c := newTestController(t, newFakeBackend(), store)

	require.NoError(t, c.OpenRestaurant(ctx, "r1"))
	require.NoError(t, c.AddItem(ctx, "m2"))

	restarted := newTestController(t, newFakeBackend(), store)
	v := restarted.View()
	require.Len(t, v.Cart.Items, 1)
	assert.Equal(t, "Veggie Dumplings", v.Cart.Items[0].Name)
	assert.Equal(t, "$10.49", v.Display.Total)
}

func TestNotifierReceivesViews(t *testing.T) {
	ctx := context.Background()
	notifier := &recordingNotifier{}
	c := NewController(newFakeBackend(), cart.NewManager(ctx, cartstore.NewMemoryStore(), testLogger()), notifier, testLogger())

	require.NoError(t, c.ListRestaurants(ctx))

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	require.NotEmpty(t, notifier.types)
	assert.Equal(t, ViewMessage, notifier.types[0])
	assert.Len(t, notifier.last.Restaurants, 2)
	assert.False(t, notifier.last.Busy)
}
