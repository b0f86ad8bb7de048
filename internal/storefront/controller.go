// Package storefront holds the state of one storefront session: the
// restaurant list, the open restaurant and its menu, the cart, and the
// busy/error/notice indicators the front end renders.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jogardn/panda-lite/internal/cart"
	"github.com/jogardn/panda-lite/internal/seed"
	"github.com/jogardn/panda-lite/pkg/models"
	"github.com/sirupsen/logrus"
)

const (
	NoticeOrderPlaced = "Order placed!"
	NoticeSampleAdded = "Sample data added!"

	// ViewMessage is the message type pushed to subscribers after every change.
	ViewMessage = "view"
)

var (
	ErrOrderRefused      = errors.New("no restaurant open or cart is empty")
	ErrInvalidCustomer   = errors.New("invalid customer details")
	ErrUnknownRestaurant = errors.New("unknown restaurant")
	ErrUnknownMenuItem   = errors.New("unknown menu item")
	// ErrSuperseded is returned by a menu load whose selection changed
	// before the response arrived. Its result was discarded.
	ErrSuperseded = errors.New("menu load superseded by a newer selection")
)

// Backend is the part of the backend API the storefront calls.
type Backend interface {
	seed.Catalog
	ListRestaurants(ctx context.Context) ([]models.Restaurant, error)
	ListMenu(ctx context.Context, restaurantID string) ([]models.MenuItem, error)
	CreateOrder(ctx context.Context, sub models.OrderSubmission) (models.Order, error)
}

// Notifier receives the view after every state change.
type Notifier interface {
	Broadcast(messageType string, data interface{}, source string)
}

// Customer is the checkout form.
type Customer struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Address string `json:"address" validate:"required"`
}

func (c Customer) trimmed() Customer {
	return Customer{
		Name:    strings.TrimSpace(c.Name),
		Email:   strings.TrimSpace(c.Email),
		Address: strings.TrimSpace(c.Address),
	}
}

type Controller struct {
	backend  Backend
	cart     *cart.Manager
	seeder   *seed.Seeder
	notifier Notifier
	logger   *logrus.Logger

	mu          sync.Mutex
	restaurants []models.Restaurant
	selected    *models.Restaurant
	menu        []models.MenuItem
	menuTag     string
	cancelMenu  context.CancelFunc
	inFlight    int
	errMsg      string
	notice      string
}

// NewController wires a session. notifier may be nil.
func NewController(backend Backend, carts *cart.Manager, notifier Notifier, logger *logrus.Logger) *Controller {
	return &Controller{
		backend:     backend,
		cart:        carts,
		seeder:      seed.NewSeeder(backend, logger),
		notifier:    notifier,
		logger:      logger,
		restaurants: []models.Restaurant{},
		menu:        []models.MenuItem{},
	}
}

// ListRestaurants reloads the restaurant list. On failure the previous
// list is kept and the banner shows the error.
func (c *Controller) ListRestaurants(ctx context.Context) error {
	c.begin()

	restaurants, err := c.backend.ListRestaurants(ctx)

	c.mu.Lock()
	if err == nil {
		c.restaurants = restaurants
	}
	c.settleLocked(err)
	c.mu.Unlock()
	c.notify()

	if err != nil {
		c.logger.WithError(err).Error("Failed to load restaurants")
		return err
	}
	c.logger.WithField("count", len(restaurants)).Info("Restaurants loaded")
	return nil
}

// OpenRestaurant selects a restaurant from the current list and loads its
// menu. The cart is rebound only once the menu arrives; a failed or
// superseded load leaves it as it was. A newer selection or Back cancels
// the load and its response is dropped.
func (c *Controller) OpenRestaurant(ctx context.Context, restaurantID string) error {
	c.mu.Lock()
	r, ok := c.findRestaurantLocked(restaurantID)
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownRestaurant, restaurantID)
	}
	if c.cancelMenu != nil {
		c.cancelMenu()
	}
	tag := uuid.NewString()
	menuCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.menuTag, c.cancelMenu = tag, cancel
	c.selected = &r
	c.menu = []models.MenuItem{}
	c.startLocked()
	c.mu.Unlock()

	c.notify()

	log := c.logger.WithFields(logrus.Fields{"restaurant_id": r.ID, "request_id": tag})
	items, err := c.backend.ListMenu(menuCtx, r.ID)

	c.mu.Lock()
	if c.menuTag != tag {
		c.settleLocked(nil)
		c.mu.Unlock()
		c.notify()
		log.Debug("Discarding stale menu response")
		return ErrSuperseded
	}
	c.cancelMenu = nil
	if err != nil {
		c.settleLocked(err)
		c.mu.Unlock()
		c.notify()
		log.WithError(err).Error("Failed to load menu")
		return err
	}
	c.menu = items
	c.mu.Unlock()

	_, cartErr := c.cart.Open(ctx, &r)

	c.mu.Lock()
	c.settleLocked(cartErr)
	c.mu.Unlock()
	c.notify()

	if cartErr != nil {
		return cartErr
	}
	log.WithField("items", len(items)).Info("Menu loaded")
	return nil
}

// Back closes the open restaurant. The cart is untouched.
func (c *Controller) Back() {
	c.mu.Lock()
	if c.cancelMenu != nil {
		c.cancelMenu()
		c.cancelMenu = nil
	}
	c.menuTag = ""
	c.selected = nil
	c.menu = []models.MenuItem{}
	c.mu.Unlock()
	c.notify()
}

// AddItem puts one of the open restaurant's menu items in the cart. With
// nothing open it does nothing.
func (c *Controller) AddItem(ctx context.Context, menuItemID string) error {
	c.mu.Lock()
	if c.selected == nil {
		c.mu.Unlock()
		return nil
	}
	open := *c.selected
	item, ok := c.findMenuItemLocked(menuItemID)
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMenuItem, menuItemID)
	}

	_, err := c.cart.Add(ctx, &open, item)
	c.afterCartChange(err)
	if err == nil {
		c.logger.WithFields(logrus.Fields{
			"restaurant_id": open.ID,
			"menu_item_id":  item.ID,
		}).Debug("Item added to cart")
	}
	return err
}

func (c *Controller) ChangeQuantity(ctx context.Context, menuItemID string, delta int) error {
	_, err := c.cart.ChangeQuantity(ctx, menuItemID, delta)
	c.afterCartChange(err)
	return err
}

// ClearCart empties the cart, keeping it bound to the open restaurant.
func (c *Controller) ClearCart(ctx context.Context) error {
	_, err := c.cart.Clear(ctx, c.Selected())
	c.afterCartChange(err)
	return err
}

// PlaceOrder submits the cart. Refusals and form errors send nothing and
// leave the banner alone. A backend failure keeps the cart.
func (c *Controller) PlaceOrder(ctx context.Context, customer Customer) (models.Order, error) {
	open := c.Selected()
	snapshot := c.cart.Snapshot()
	if open == nil || snapshot.IsEmpty() {
		return models.Order{}, ErrOrderRefused
	}
	// The cart may still belong to a restaurant whose menu failed to replace it.
	if snapshot.Restaurant != nil && !snapshot.BoundTo(open.ID) {
		return models.Order{}, ErrOrderRefused
	}

	customer = customer.trimmed()
	if err := models.Validate(customer); err != nil {
		return models.Order{}, fmt.Errorf("%w: %w", ErrInvalidCustomer, err)
	}

	c.begin()

	sub := cart.Submission(snapshot, *open, customer.Name, customer.Email, customer.Address)
	order, err := c.backend.CreateOrder(ctx, sub)
	if err != nil {
		c.finish(err)
		c.logger.WithError(err).WithField("restaurant_id", open.ID).Error("Failed to place order")
		return models.Order{}, err
	}

	_, saveErr := c.cart.Clear(ctx, c.Selected())

	c.mu.Lock()
	c.notice = NoticeOrderPlaced
	c.settleLocked(saveErr)
	c.mu.Unlock()
	c.notify()

	c.logger.WithFields(logrus.Fields{
		"order_id":      order.ID,
		"restaurant_id": open.ID,
		"status":        order.Status,
		"total":         sub.Total.StringFixed(2),
	}).Info("Order placed")
	return order, nil
}

// SeedSample creates the demo catalog and reloads the restaurant list.
func (c *Controller) SeedSample(ctx context.Context) error {
	c.begin()

	if _, err := c.seeder.Run(ctx); err != nil {
		c.finish(err)
		c.logger.WithError(err).Error("Failed to seed sample data")
		return err
	}

	restaurants, err := c.backend.ListRestaurants(ctx)

	c.mu.Lock()
	if err == nil {
		c.restaurants = restaurants
		c.notice = NoticeSampleAdded
	}
	c.settleLocked(err)
	c.mu.Unlock()
	c.notify()

	if err != nil {
		c.logger.WithError(err).Error("Failed to reload restaurants after seeding")
	}
	return err
}

func (c *Controller) Selected() *models.Restaurant {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == nil {
		return nil
	}
	r := *c.selected
	return &r
}

func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight > 0
}

// View returns a copy of the session state.
func (c *Controller) View() View {
	current := c.cart.Snapshot()
	totals := cart.ComputeTotals(current)

	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		Restaurants: append([]models.Restaurant{}, c.restaurants...),
		Menu:        append([]models.MenuItem{}, c.menu...),
		Cart:        current,
		Totals:      totals,
		Lines:       lineViews(current),
		Display:     totalsView(totals),
		Busy:        c.inFlight > 0,
		Error:       c.errMsg,
		Notice:      c.notice,
	}
	if c.selected != nil {
		r := *c.selected
		v.Selected = &r
	}
	if v.Cart.Items == nil {
		v.Cart.Items = []cart.Line{}
	}
	return v
}

func (c *Controller) begin() {
	c.mu.Lock()
	c.startLocked()
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) finish(err error) {
	c.mu.Lock()
	c.settleLocked(err)
	c.mu.Unlock()
	c.notify()
}

// startLocked marks a request in flight and clears the indicators.
func (c *Controller) startLocked() {
	c.inFlight++
	c.errMsg = ""
	c.notice = ""
}

func (c *Controller) settleLocked(err error) {
	if c.inFlight > 0 {
		c.inFlight--
	}
	if err != nil {
		c.errMsg = err.Error()
	}
}

func (c *Controller) afterCartChange(err error) {
	if err != nil {
		c.mu.Lock()
		c.errMsg = err.Error()
		c.mu.Unlock()
	}
	c.notify()
}

func (c *Controller) notify() {
	if c.notifier == nil {
		return
	}
	c.notifier.Broadcast(ViewMessage, c.View(), "storefront")
}

func (c *Controller) findRestaurantLocked(id string) (models.Restaurant, bool) {
	for _, r := range c.restaurants {
		if r.ID == id {
			return r, true
		}
	}
	return models.Restaurant{}, false
}

func (c *Controller) findMenuItemLocked(id string) (models.MenuItem, bool) {
	for _, item := range c.menu {
		if item.ID == id {
			return item, true
		}
	}
	return models.MenuItem{}, false
}
