// Package backend is the REST client for the food-delivery backend: the
// restaurant and menu catalog plus order placement.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/jogardn/panda-lite/internal/circuitbreaker"
	"github.com/jogardn/panda-lite/pkg/models"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidResponse = errors.New("backend returned an invalid response")
	ErrInvalidRequest  = errors.New("invalid request")
)

// StatusError is returned for any non-2xx answer, whatever its body says.
type StatusError struct {
	Op         string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("failed to %s: backend returned status %d", e.Op, e.StatusCode)
}

// IsServerFault reports whether err should count against a circuit breaker:
// transport failures, 5xx answers and unreadable bodies do, client errors
// and cancellations do not.
func IsServerFault(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrInvalidRequest) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500
	}
	return true
}

// BreakerConfig is the breaker setup used for backend endpoint groups.
func BreakerConfig() circuitbreaker.Config {
	return circuitbreaker.Config{
		MaxFailures: 5,
		Timeout:     15 * time.Second,
		MaxRequests: 1,
		IsFailure:   IsServerFault,
	}
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	breakers   *circuitbreaker.Manager
	logger     *logrus.Logger
}

// NewClient builds a client for baseURL. breakers may be nil.
func NewClient(baseURL string, timeout time.Duration, breakers *circuitbreaker.Manager, logger *logrus.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		breakers: breakers,
		logger:   logger,
	}
}

func (c *Client) ListRestaurants(ctx context.Context) ([]models.Restaurant, error) {
	var restaurants []models.Restaurant
	if err := c.call(ctx, "restaurants", "list restaurants", http.MethodGet, "/api/restaurants", nil, &restaurants); err != nil {
		return nil, err
	}
	if err := models.ValidateAll(restaurants); err != nil {
		return nil, fmt.Errorf("%w: restaurants: %v", ErrInvalidResponse, err)
	}
	if restaurants == nil {
		restaurants = []models.Restaurant{}
	}

	c.logger.WithField("count", len(restaurants)).Info("Retrieved restaurants from backend")
	return restaurants, nil
}

func (c *Client) CreateRestaurant(ctx context.Context, in models.RestaurantInput) (models.Restaurant, error) {
	if err := models.Validate(in); err != nil {
		return models.Restaurant{}, fmt.Errorf("%w: restaurant: %v", ErrInvalidRequest, err)
	}

	var created models.Restaurant
	if err := c.call(ctx, "restaurants", "create restaurant", http.MethodPost, "/api/restaurants", in, &created); err != nil {
		return models.Restaurant{}, err
	}
	if err := models.Validate(created); err != nil {
		return models.Restaurant{}, fmt.Errorf("%w: restaurant: %v", ErrInvalidResponse, err)
	}

	c.logger.WithFields(logrus.Fields{
		"restaurant_id": created.ID,
		"name":          created.Name,
	}).Info("Restaurant created in backend")
	return created, nil
}

func (c *Client) ListMenu(ctx context.Context, restaurantID string) ([]models.MenuItem, error) {
	if restaurantID == "" {
		return nil, fmt.Errorf("%w: empty restaurant id", ErrInvalidRequest)
	}

	var items []models.MenuItem
	path := "/api/menu/" + url.PathEscape(restaurantID)
	if err := c.call(ctx, "menu", "load menu", http.MethodGet, path, nil, &items); err != nil {
		return nil, err
	}
	if err := models.ValidateAll(items); err != nil {
		return nil, fmt.Errorf("%w: menu: %v", ErrInvalidResponse, err)
	}
	if items == nil {
		items = []models.MenuItem{}
	}

	c.logger.WithFields(logrus.Fields{
		"restaurant_id": restaurantID,
		"count":         len(items),
	}).Info("Retrieved menu from backend")
	return items, nil
}

func (c *Client) CreateMenuItem(ctx context.Context, in models.MenuItemInput) (models.MenuItem, error) {
	if err := models.Validate(in); err != nil {
		return models.MenuItem{}, fmt.Errorf("%w: menu item: %v", ErrInvalidRequest, err)
	}

	var created models.MenuItem
	if err := c.call(ctx, "menu", "create menu item", http.MethodPost, "/api/menu", in, &created); err != nil {
		return models.MenuItem{}, err
	}
	if err := models.Validate(created); err != nil {
		return models.MenuItem{}, fmt.Errorf("%w: menu item: %v", ErrInvalidResponse, err)
	}

	c.logger.WithFields(logrus.Fields{
		"restaurant_id": created.RestaurantID,
		"menu_item_id":  created.ID,
	}).Info("Menu item created in backend")
	return created, nil
}

func (c *Client) CreateOrder(ctx context.Context, sub models.OrderSubmission) (models.Order, error) {
	if err := models.Validate(sub); err != nil {
		return models.Order{}, fmt.Errorf("%w: order: %v", ErrInvalidRequest, err)
	}

	c.logger.WithFields(logrus.Fields{
		"restaurant_id": sub.RestaurantID,
		"items_count":   len(sub.Items),
		"total":         sub.Total.StringFixed(2),
	}).Info("Sending order to backend")

	var order models.Order
	if err := c.call(ctx, "orders", "place order", http.MethodPost, "/api/orders", sub, &order); err != nil {
		return models.Order{}, err
	}
	if err := models.Validate(order); err != nil {
		return models.Order{}, fmt.Errorf("%w: order: %v", ErrInvalidResponse, err)
	}

	c.logger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"status":   order.Status,
	}).Info("Order accepted by backend")
	return order, nil
}

// call runs one request through the breaker for group.
func (c *Client) call(ctx context.Context, group, op, method, path string, body, out interface{}) error {
	if c.breakers == nil {
		return c.do(ctx, op, method, path, body, out)
	}
	return c.breakers.Get(group).Execute(ctx, func(ctx context.Context) error {
		return c.do(ctx, op, method, path, body, out)
	})
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", op, err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	defer resp.Body.Close()

	c.logger.WithFields(logrus.Fields{
		"method":   method,
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(start).Milliseconds(),
	}).Debug("Backend request completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return &StatusError{Op: op, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode %s response: %v", ErrInvalidResponse, op, err)
	}
	return nil
}
