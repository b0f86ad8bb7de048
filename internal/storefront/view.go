package storefront

import (
	"github.com/jogardn/panda-lite/internal/cart"
	"github.com/jogardn/panda-lite/pkg/models"
)

// View is everything the front end renders, taken at one instant.
type View struct {
	Restaurants []models.Restaurant `json:"restaurants"`
	Selected    *models.Restaurant  `json:"selected"`
	Menu        []models.MenuItem   `json:"menu"`
	Cart        cart.Cart           `json:"cart"`
	Totals      cart.Totals         `json:"totals"`
	Lines       []LineView          `json:"lines"`
	Display     TotalsView          `json:"display"`
	Busy        bool                `json:"busy"`
	Error       string              `json:"error,omitempty"`
	Notice      string              `json:"notice,omitempty"`
}

// LineView is a cart line with its amounts formatted for display.
type LineView struct {
	MenuItemID string `json:"menu_item_id"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	UnitPrice  string `json:"unit_price"`
	LineTotal  string `json:"line_total"`
}

type TotalsView struct {
	Subtotal    string `json:"subtotal"`
	DeliveryFee string `json:"delivery_fee"`
	Total       string `json:"total"`
}

func lineViews(c cart.Cart) []LineView {
	lines := make([]LineView, 0, len(c.Items))
	for _, l := range c.Items {
		lines = append(lines, LineView{
			MenuItemID: l.MenuItemID,
			Name:       l.Name,
			Quantity:   l.Quantity,
			UnitPrice:  models.FormatMoney(l.UnitPrice),
			LineTotal:  models.FormatMoney(l.Total()),
		})
	}
	return lines
}

func totalsView(t cart.Totals) TotalsView {
	return TotalsView{
		Subtotal:    models.FormatMoney(t.Subtotal),
		DeliveryFee: models.FormatMoney(t.DeliveryFee),
		Total:       models.FormatMoney(t.Total),
	}
}
