// Package cart holds the shopping cart: a list of lines bound to at most one
// restaurant. The functions in this file are pure; Manager adds persistence.
package cart

import (
	"math"

	"github.com/jogardn/panda-lite/pkg/models"
	"github.com/shopspring/decimal"
)

// DeliveryFee is charged on every non-empty order.
var DeliveryFee = decimal.RequireFromString("2.99")

type Line struct {
	MenuItemID string          `json:"menu_item_id"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Cart struct {
	Items      []Line             `json:"items"`
	Restaurant *models.Restaurant `json:"restaurant"`
}

type Totals struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	Total       decimal.Decimal `json:"total"`
}

func Empty() Cart {
	return Cart{Items: []Line{}}
}

func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

func (c Cart) BoundTo(restaurantID string) bool {
	return c.Restaurant != nil && c.Restaurant.ID == restaurantID
}

// Line returns the line for a menu item, if present.
func (c Cart) Line(menuItemID string) (Line, bool) {
	for _, l := range c.Items {
		if l.MenuItemID == menuItemID {
			return l, true
		}
	}
	return Line{}, false
}

// Bind applies opening a restaurant to the cart. A cart bound elsewhere is
// emptied and rebound, an unbound cart is bound as is, and a cart already
// bound to r is returned unchanged.
func Bind(c Cart, r *models.Restaurant) Cart {
	if r == nil {
		return c
	}
	switch {
	case c.Restaurant == nil:
		return Cart{Items: cloneLines(c.Items), Restaurant: cloneRestaurant(r)}
	case c.Restaurant.ID != r.ID:
		return Cart{Items: []Line{}, Restaurant: cloneRestaurant(r)}
	default:
		return c
	}
}

// AddItem adds one unit of item. Without an open restaurant it is a no-op.
func AddItem(c Cart, open *models.Restaurant, item models.MenuItem) Cart {
	if open == nil {
		return c
	}
	if c.Restaurant != nil && c.Restaurant.ID != open.ID {
		c = Bind(c, open)
	}

	lines := cloneLines(c.Items)
	for i := range lines {
		if lines[i].MenuItemID == item.ID {
			lines[i].Quantity++
			return Cart{Items: lines, Restaurant: c.Restaurant}
		}
	}

	lines = append(lines, Line{
		MenuItemID: item.ID,
		Name:       item.Name,
		Quantity:   1,
		UnitPrice:  item.Price,
	})
	restaurant := c.Restaurant
	if restaurant == nil {
		restaurant = cloneRestaurant(open)
	}
	return Cart{Items: lines, Restaurant: restaurant}
}

// ChangeQuantity adds delta to a line's quantity and drops every line that
// ends at zero or below. Quantities saturate at math.MaxInt.
func ChangeQuantity(c Cart, menuItemID string, delta int) Cart {
	if _, ok := c.Line(menuItemID); !ok {
		return c
	}
	lines := make([]Line, 0, len(c.Items))
	for _, l := range c.Items {
		if l.MenuItemID == menuItemID {
			l.Quantity = addQuantity(l.Quantity, delta)
		}
		if l.Quantity > 0 {
			lines = append(lines, l)
		}
	}
	return Cart{Items: lines, Restaurant: c.Restaurant}
}

func addQuantity(q, delta int) int {
	if delta > 0 && q > math.MaxInt-delta {
		return math.MaxInt
	}
	if delta < 0 && q < math.MinInt-delta {
		return math.MinInt
	}
	return q + delta
}

// Clear drops every line and binds the cart to the open restaurant, or to
// nothing when none is open.
func Clear(open *models.Restaurant) Cart {
	return Cart{Items: []Line{}, Restaurant: cloneRestaurant(open)}
}

func ComputeTotals(c Cart) Totals {
	subtotal := decimal.Zero
	for _, l := range c.Items {
		subtotal = subtotal.Add(l.Total())
	}
	fee := decimal.Zero
	if subtotal.IsPositive() {
		fee = DeliveryFee
	}
	return Totals{
		Subtotal:    subtotal,
		DeliveryFee: fee,
		Total:       subtotal.Add(fee),
	}
}

// Normalize repairs a cart read back from storage: lines without an id or
// with a non-positive quantity are dropped and duplicate lines are merged.
func Normalize(c Cart) Cart {
	lines := make([]Line, 0, len(c.Items))
	index := make(map[string]int, len(c.Items))
	for _, l := range c.Items {
		if l.MenuItemID == "" || l.Quantity <= 0 {
			continue
		}
		if i, ok := index[l.MenuItemID]; ok {
			lines[i].Quantity += l.Quantity
			continue
		}
		index[l.MenuItemID] = len(lines)
		lines = append(lines, l)
	}
	return Cart{Items: lines, Restaurant: c.Restaurant}
}

// Submission builds the order snapshot for the cart.
func Submission(c Cart, r models.Restaurant, name, email, address string) models.OrderSubmission {
	totals := ComputeTotals(c)
	lines := make([]models.OrderLine, 0, len(c.Items))
	for _, l := range c.Items {
		lines = append(lines, models.OrderLine{
			MenuItemID: l.MenuItemID,
			Name:       l.Name,
			Quantity:   l.Quantity,
			UnitPrice:  l.UnitPrice,
			LineTotal:  l.Total(),
		})
	}
	return models.OrderSubmission{
		RestaurantID:    r.ID,
		RestaurantName:  r.Name,
		Items:           lines,
		Subtotal:        totals.Subtotal,
		DeliveryFee:     totals.DeliveryFee,
		Total:           totals.Total,
		CustomerName:    name,
		CustomerEmail:   email,
		DeliveryAddress: address,
		Status:          models.OrderStatusPlaced,
	}
}

func cloneLines(lines []Line) []Line {
	out := make([]Line, len(lines))
	copy(out, lines)
	return out
}

func cloneRestaurant(r *models.Restaurant) *models.Restaurant {
	if r == nil {
		return nil
	}
	cp := *r
	return &cp
}
