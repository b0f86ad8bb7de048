package models

import "github.com/shopspring/decimal"

type Restaurant struct {
	ID               string  `json:"id" validate:"required"`
	Name             string  `json:"name" validate:"required"`
	Description      string  `json:"description"`
	Cuisine          string  `json:"cuisine"`
	DeliveryTimeMins int     `json:"delivery_time_mins" validate:"gte=0"`
	Rating           float64 `json:"rating"`
	ImageURL         string  `json:"image_url,omitempty"`
}

// RestaurantInput is the create-restaurant body: a Restaurant without its id.
type RestaurantInput struct {
	Name             string  `json:"name" validate:"required"`
	Description      string  `json:"description"`
	Cuisine          string  `json:"cuisine"`
	DeliveryTimeMins int     `json:"delivery_time_mins" validate:"gte=0"`
	Rating           float64 `json:"rating"`
	ImageURL         string  `json:"image_url,omitempty"`
}

type MenuItem struct {
	ID           string          `json:"id" validate:"required"`
	RestaurantID string          `json:"restaurant_id" validate:"required"`
	Name         string          `json:"name" validate:"required"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price" validate:"gte=0"`
	IsPopular    bool            `json:"is_popular,omitempty"`
	IsVeg        bool            `json:"is_veg,omitempty"`
	ImageURL     string          `json:"image_url,omitempty"`
}

// MenuItemInput is the create-menu-item body: a MenuItem without its id.
type MenuItemInput struct {
	RestaurantID string          `json:"restaurant_id" validate:"required"`
	Name         string          `json:"name" validate:"required"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price" validate:"gte=0"`
	IsPopular    bool            `json:"is_popular,omitempty"`
	IsVeg        bool            `json:"is_veg,omitempty"`
	ImageURL     string          `json:"image_url,omitempty"`
}

func (in RestaurantInput) WithID(id string) Restaurant {
	return Restaurant{
		ID:               id,
		Name:             in.Name,
		Description:      in.Description,
		Cuisine:          in.Cuisine,
		DeliveryTimeMins: in.DeliveryTimeMins,
		Rating:           in.Rating,
		ImageURL:         in.ImageURL,
	}
}

func (in MenuItemInput) WithID(id string) MenuItem {
	return MenuItem{
		ID:           id,
		RestaurantID: in.RestaurantID,
		Name:         in.Name,
		Description:  in.Description,
		Price:        in.Price,
		IsPopular:    in.IsPopular,
		IsVeg:        in.IsVeg,
		ImageURL:     in.ImageURL,
	}
}
