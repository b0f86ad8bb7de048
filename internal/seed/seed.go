// Package seed loads the demo catalog into the backend.
package seed

import (
	"context"
	"fmt"

	"github.com/jogardn/panda-lite/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type Catalog interface {
	CreateRestaurant(ctx context.Context, in models.RestaurantInput) (models.Restaurant, error)
	CreateMenuItem(ctx context.Context, in models.MenuItemInput) (models.MenuItem, error)
}

type SampleRestaurant struct {
	Restaurant models.RestaurantInput
	// Items have no RestaurantID until the restaurant is created.
	Items []models.MenuItemInput
}

// Sample is the fixed demo catalog: two restaurants with three items each.
func Sample() []SampleRestaurant {
	return []SampleRestaurant{
		{
			Restaurant: models.RestaurantInput{
				Name:             "Panda Wok",
				Description:      "Fast, fresh Asian bowls",
				Cuisine:          "Asian",
				DeliveryTimeMins: 30,
				Rating:           4.6,
				ImageURL:         "https://images.unsplash.com/photo-1544025162-d76694265947?q=80&w=1200&auto=format&fit=crop",
			},
			Items: []models.MenuItemInput{
				{Name: "Teriyaki Chicken Bowl", Price: price("10.99"), Description: "Glazed chicken, rice, veggies", IsPopular: true},
				{Name: "Veggie Dumplings", Price: price("7.50"), Description: "Steamed, soy dip", IsVeg: true},
				{Name: "Spicy Ramen", Price: price("12.00"), Description: "House broth, chashu"},
			},
		},
		{
			Restaurant: models.RestaurantInput{
				Name:             "Urban Pizza Co.",
				Description:      "Hand-tossed sourdough pies",
				Cuisine:          "Pizza",
				DeliveryTimeMins: 25,
				Rating:           4.7,
				ImageURL:         "https://images.unsplash.com/photo-1548365328-9f547fb09530?q=80&w=1200&auto=format&fit=crop",
			},
			Items: []models.MenuItemInput{
				{Name: "Margherita Pizza", Price: price("11.99"), Description: "Tomato, mozzarella, basil", IsPopular: true},
				{Name: "Pepperoni Pizza", Price: price("13.49"), Description: "Classic favorite"},
				{Name: "Garlic Knots", Price: price("5.99"), Description: "Buttery, herby knots", IsVeg: true},
			},
		},
	}
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type Result struct {
	Restaurants []models.Restaurant
	Items       []models.MenuItem
}

type Seeder struct {
	catalog Catalog
	data    []SampleRestaurant
	logger  *logrus.Logger
}

func NewSeeder(catalog Catalog, logger *logrus.Logger) *Seeder {
	return &Seeder{catalog: catalog, data: Sample(), logger: logger}
}

// Run creates every restaurant first, then their menu items, and stops at
// the first failure. Whatever was created before the failure stays.
func (s *Seeder) Run(ctx context.Context) (Result, error) {
	var result Result

	for _, sample := range s.data {
		r, err := s.catalog.CreateRestaurant(ctx, sample.Restaurant)
		if err != nil {
			return result, fmt.Errorf("failed to seed restaurant %q: %w", sample.Restaurant.Name, err)
		}
		result.Restaurants = append(result.Restaurants, r)
	}

	for i, sample := range s.data {
		for _, item := range sample.Items {
			item.RestaurantID = result.Restaurants[i].ID
			created, err := s.catalog.CreateMenuItem(ctx, item)
			if err != nil {
				return result, fmt.Errorf("failed to seed menu item %q: %w", item.Name, err)
			}
			result.Items = append(result.Items, created)
		}
	}

	s.logger.WithFields(logrus.Fields{
		"restaurants": len(result.Restaurants),
		"items":       len(result.Items),
	}).Info("Sample data seeded")
	return result, nil
}
