package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const OrderStatusPlaced = "placed"

type OrderLine struct {
	MenuItemID string          `json:"menu_item_id" validate:"required"`
	Name       string          `json:"name" validate:"required"`
	Quantity   int             `json:"quantity" validate:"gt=0"`
	UnitPrice  decimal.Decimal `json:"unit_price" validate:"gte=0"`
	LineTotal  decimal.Decimal `json:"line_total" validate:"gte=0"`
}

// OrderSubmission is the snapshot sent once to the create-order endpoint.
type OrderSubmission struct {
	RestaurantID    string          `json:"restaurant_id" validate:"required"`
	RestaurantName  string          `json:"restaurant_name"`
	Items           []OrderLine     `json:"items" validate:"required,min=1,dive"`
	Subtotal        decimal.Decimal `json:"subtotal" validate:"gte=0"`
	DeliveryFee     decimal.Decimal `json:"delivery_fee" validate:"gte=0"`
	Total           decimal.Decimal `json:"total" validate:"gte=0"`
	CustomerName    string          `json:"customer_name" validate:"required"`
	CustomerEmail   string          `json:"customer_email" validate:"required,email"`
	DeliveryAddress string          `json:"delivery_address" validate:"required"`
	Status          string          `json:"status" validate:"required"`
}

// Order is the backend's record of an accepted submission. Only the status
// is guaranteed to be present.
type Order struct {
	ID              string          `json:"id"`
	RestaurantID    string          `json:"restaurant_id"`
	RestaurantName  string          `json:"restaurant_name"`
	Items           []OrderLine     `json:"items"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	DeliveryFee     decimal.Decimal `json:"delivery_fee"`
	Total           decimal.Decimal `json:"total"`
	CustomerName    string          `json:"customer_name"`
	CustomerEmail   string          `json:"customer_email"`
	DeliveryAddress string          `json:"delivery_address"`
	Status          string          `json:"status" validate:"required"`
	CreatedAt       time.Time       `json:"created_at"`
}
