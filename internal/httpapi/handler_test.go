package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jogardn/panda-lite/internal/backend"
	"github.com/jogardn/panda-lite/internal/cart"
	"github.com/jogardn/panda-lite/internal/cartstore"
	"github.com/jogardn/panda-lite/internal/circuitbreaker"
	"github.com/jogardn/panda-lite/internal/mockbackend"
	"github.com/jogardn/panda-lite/internal/storefront"
	"github.com/jogardn/panda-lite/pkg/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

type testEnv struct {
	api     *httptest.Server
	backend *mockbackend.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := quietLogger()

	store := mockbackend.NewStore()
	backendSrv := httptest.NewServer(mockbackend.NewServer(store, nil, logger).Router())
	t.Cleanup(backendSrv.Close)

	return &testEnv{api: newAPI(t, backendSrv.URL), backend: store}
}

func newAPI(t *testing.T, backendURL string) *httptest.Server {
	t.Helper()
	logger := quietLogger()

	breakers := circuitbreaker.NewManager(backend.BreakerConfig(), logger)
	client := backend.NewClient(backendURL, 2*time.Second, breakers, logger)
	carts := cart.NewManager(context.Background(), cartstore.NewMemoryStore(), logger)
	controller := storefront.NewController(client, carts, nil, logger)

	handler := NewHandler(controller, logger)
	handler.SetBreakers(breakers)

	srv := httptest.NewServer(handler.Router([]string{"*"}))
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path string, body interface{}) (int, Response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.api.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
	assert.Contains(t, body, "circuit_breakers")
}

func TestCheckoutFlow(t *testing.T) {
	env := newTestEnv(t)

	status, resp := call(t, env.api, "POST", "/api/seed", nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, resp.View.Restaurants, 2)
	assert.Equal(t, storefront.NoticeSampleAdded, resp.View.Notice)

	restaurant := resp.View.Restaurants[0]
	assert.Equal(t, "Panda Wok", restaurant.Name)

	status, resp = call(t, env.api, "POST", "/api/restaurants/"+restaurant.ID+"/open", nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, resp.View.Menu, 3)
	assert.Equal(t, restaurant.ID, resp.View.Selected.ID)

	var ramen models.MenuItem
	for _, item := range resp.View.Menu {
		if item.Name == "Spicy Ramen" {
			ramen = item
		}
	}
	require.NotEmpty(t, ramen.ID)

	status, resp = call(t, env.api, "POST", "/api/cart/items", map[string]string{"menu_item_id": ramen.ID})
	require.Equal(t, http.StatusOK, status)
	require.Len(t, resp.View.Cart.Items, 1)

	status, resp = call(t, env.api, "PATCH", "/api/cart/items/"+ramen.ID, map[string]int{"delta": 1})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2, resp.View.Cart.Items[0].Quantity)
	assert.Equal(t, "$24.00", resp.View.Display.Subtotal)
	assert.Equal(t, "$26.99", resp.View.Display.Total)

	status, resp = call(t, env.api, "POST", "/api/orders", map[string]string{"name": "Ada", "email": "nope", "address": "1 Main St"})
	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Fields, "Email")
	assert.Empty(t, env.backend.Orders())

	status, resp = call(t, env.api, "POST", "/api/orders", map[string]string{"name": "Ada", "email": "ada@example.com", "address": "1 Main St"})
	require.Equal(t, http.StatusCreated, status)
	require.NotNil(t, resp.Order)
	assert.Equal(t, models.OrderStatusPlaced, resp.Order.Status)
	assert.Empty(t, resp.View.Cart.Items)
	assert.Equal(t, storefront.NoticeOrderPlaced, resp.View.Notice)

	orders := env.backend.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, restaurant.ID, orders[0].RestaurantID)
	assert.Equal(t, "26.99", orders[0].Total.StringFixed(2))

	status, resp = call(t, env.api, "POST", "/api/back", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Nil(t, resp.View.Selected)
}

func TestActionErrors(t *testing.T) {
	env := newTestEnv(t)

	status, resp := call(t, env.api, "POST", "/api/orders", map[string]string{"name": "Ada", "email": "ada@example.com", "address": "1 Main St"})
	assert.Equal(t, http.StatusConflict, status)
	assert.False(t, resp.Success)
	assert.Empty(t, resp.View.Error)

	status, _ = call(t, env.api, "POST", "/api/restaurants/missing/open", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = call(t, env.api, "POST", "/api/cart/items", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = call(t, env.api, "PATCH", "/api/cart/items/x", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, status)

	status, resp = call(t, env.api, "GET", "/api/view", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, resp.Success)
	assert.False(t, resp.View.Busy)
}

func TestBackendFailureSetsBanner(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(down.Close)
	api := newAPI(t, down.URL)

	status, resp := call(t, api, "POST", "/api/restaurants/refresh", nil)

	assert.Equal(t, http.StatusBadGateway, status)
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.View.Error)
	assert.Equal(t, resp.Message, resp.View.Error)
	assert.Empty(t, resp.View.Restaurants)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)

	req, err := http.NewRequest("OPTIONS", env.api.URL+"/api/orders", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
