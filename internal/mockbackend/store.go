// Package mockbackend is an in-memory stand-in for the food-delivery REST
// backend, used for demos and end-to-end tests of the storefront.
package mockbackend

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jogardn/panda-lite/pkg/models"
)

var ErrUnknownRestaurant = errors.New("restaurant not found")

type Store struct {
	mutex       sync.RWMutex
	restaurants []models.Restaurant
	menus       map[string][]models.MenuItem
	orders      []models.Order
	now         func() time.Time
}

func NewStore() *Store {
	return &Store{
		menus: make(map[string][]models.MenuItem),
		now:   time.Now,
	}
}

func (s *Store) Restaurants() []models.Restaurant {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	out := make([]models.Restaurant, len(s.restaurants))
	copy(out, s.restaurants)
	return out
}

func (s *Store) AddRestaurant(in models.RestaurantInput) models.Restaurant {
	r := in.WithID(uuid.New().String())

	s.mutex.Lock()
	s.restaurants = append(s.restaurants, r)
	s.mutex.Unlock()
	return r
}

func (s *Store) Restaurant(id string) (models.Restaurant, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	for _, r := range s.restaurants {
		if r.ID == id {
			return r, true
		}
	}
	return models.Restaurant{}, false
}

// Menu returns the items of a restaurant; unknown restaurants have none.
func (s *Store) Menu(restaurantID string) []models.MenuItem {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	items := s.menus[restaurantID]
	out := make([]models.MenuItem, len(items))
	copy(out, items)
	return out
}

func (s *Store) AddMenuItem(in models.MenuItemInput) (models.MenuItem, error) {
	if _, ok := s.Restaurant(in.RestaurantID); !ok {
		return models.MenuItem{}, ErrUnknownRestaurant
	}
	item := in.WithID(uuid.New().String())

	s.mutex.Lock()
	s.menus[item.RestaurantID] = append(s.menus[item.RestaurantID], item)
	s.mutex.Unlock()
	return item, nil
}

func (s *Store) AddOrder(sub models.OrderSubmission) (models.Order, error) {
	if _, ok := s.Restaurant(sub.RestaurantID); !ok {
		return models.Order{}, ErrUnknownRestaurant
	}
	if sub.Status == "" {
		sub.Status = models.OrderStatusPlaced
	}

	order := models.Order{
		ID:              uuid.New().String(),
		RestaurantID:    sub.RestaurantID,
		RestaurantName:  sub.RestaurantName,
		Items:           sub.Items,
		Subtotal:        sub.Subtotal,
		DeliveryFee:     sub.DeliveryFee,
		Total:           sub.Total,
		CustomerName:    sub.CustomerName,
		CustomerEmail:   sub.CustomerEmail,
		DeliveryAddress: sub.DeliveryAddress,
		Status:          sub.Status,
		CreatedAt:       s.now().UTC(),
	}

	s.mutex.Lock()
	s.orders = append(s.orders, order)
	s.mutex.Unlock()
	return order, nil
}

func (s *Store) Orders() []models.Order {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	out := make([]models.Order, len(s.orders))
	copy(out, s.orders)
	return out
}
