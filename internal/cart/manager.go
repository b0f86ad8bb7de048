package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/jogardn/panda-lite/pkg/models"
	"github.com/sirupsen/logrus"
)

var ErrSaveFailed = errors.New("failed to save cart")

// Store persists the serialized cart. Load reports false when nothing has
// been saved yet.
type Store interface {
	Load(ctx context.Context) (Cart, bool, error)
	Save(ctx context.Context, c Cart) error
}

// Manager owns the current cart and mirrors every mutation to its Store.
type Manager struct {
	mu     sync.RWMutex
	cart   Cart
	store  Store
	logger *logrus.Logger
}

// NewManager reads the persisted cart once. A missing, unreadable or corrupt
// cart starts the session empty.
func NewManager(ctx context.Context, store Store, logger *logrus.Logger) *Manager {
	m := &Manager{cart: Empty(), store: store, logger: logger}

	saved, ok, err := store.Load(ctx)
	switch {
	case err != nil:
		logger.WithError(err).Warn("Failed to load saved cart, starting empty")
	case ok:
		m.cart = Normalize(saved)
		logger.WithFields(logrus.Fields{
			"lines":      len(m.cart.Items),
			"restaurant": restaurantID(m.cart),
		}).Info("Restored saved cart")
	}
	return m
}

func (m *Manager) Snapshot() Cart {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Cart{Items: cloneLines(m.cart.Items), Restaurant: cloneRestaurant(m.cart.Restaurant)}
}

func (m *Manager) Totals() Totals {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return ComputeTotals(m.cart)
}

// Open rebinds the cart for a newly opened restaurant.
func (m *Manager) Open(ctx context.Context, r *models.Restaurant) (Cart, error) {
	return m.apply(ctx, func(c Cart) Cart { return Bind(c, r) })
}

func (m *Manager) Add(ctx context.Context, open *models.Restaurant, item models.MenuItem) (Cart, error) {
	return m.apply(ctx, func(c Cart) Cart { return AddItem(c, open, item) })
}

func (m *Manager) ChangeQuantity(ctx context.Context, menuItemID string, delta int) (Cart, error) {
	return m.apply(ctx, func(c Cart) Cart { return ChangeQuantity(c, menuItemID, delta) })
}

func (m *Manager) Clear(ctx context.Context, open *models.Restaurant) (Cart, error) {
	return m.apply(ctx, func(Cart) Cart { return Clear(open) })
}

// apply swaps in the next cart and writes it before returning. The
// in-memory cart is kept even when the write fails. The write is not
// cancelled along with ctx.
func (m *Manager) apply(ctx context.Context, next func(Cart) Cart) (Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cart = next(m.cart)
	snapshot := Cart{Items: cloneLines(m.cart.Items), Restaurant: cloneRestaurant(m.cart.Restaurant)}

	if err := m.store.Save(context.WithoutCancel(ctx), snapshot); err != nil {
		m.logger.WithError(err).Error("Failed to save cart")
		return snapshot, fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}

	m.logger.WithFields(logrus.Fields{
		"lines":      len(snapshot.Items),
		"restaurant": restaurantID(snapshot),
	}).Debug("Cart saved")
	return snapshot, nil
}

// Encode serializes a cart for storage.
func Encode(c Cart) ([]byte, error) {
	if c.Items == nil {
		c.Items = []Line{}
	}
	return json.Marshal(c)
}

// Decode parses a stored cart and normalizes it.
func Decode(data []byte) (Cart, error) {
	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return Cart{}, fmt.Errorf("failed to decode cart: %w", err)
	}
	return Normalize(c), nil
}

func restaurantID(c Cart) string {
	if c.Restaurant == nil {
		return ""
	}
	return c.Restaurant.ID
}
