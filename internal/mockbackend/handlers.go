package mockbackend

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/jogardn/panda-lite/internal/events"
	"github.com/jogardn/panda-lite/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type Server struct {
	store     *Store
	publisher events.Publisher
	logger    *logrus.Logger
}

// NewServer builds the backend handlers. publisher may be nil.
func NewServer(store *Store, publisher events.Publisher, logger *logrus.Logger) *Server {
	return &Server{store: store, publisher: publisher, logger: logger}
}

func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/health", s.HealthCheck).Methods("GET")
	router.HandleFunc("/api/restaurants", s.ListRestaurants).Methods("GET")
	router.HandleFunc("/api/restaurants", s.CreateRestaurant).Methods("POST")
	router.HandleFunc("/api/menu/{restaurantId}", s.ListMenu).Methods("GET")
	router.HandleFunc("/api/menu", s.CreateMenuItem).Methods("POST")
	router.HandleFunc("/api/orders", s.CreateOrder).Methods("POST")
	router.Use(loggingMiddleware(s.logger))
	return router
}

func (s *Server) ListRestaurants(w http.ResponseWriter, r *http.Request) {
	restaurants := s.store.Restaurants()
	s.logger.WithField("count", len(restaurants)).Info("Listing restaurants")
	s.respondWithJSON(w, http.StatusOK, restaurants)
}

func (s *Server) CreateRestaurant(w http.ResponseWriter, r *http.Request) {
	var in models.RestaurantInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := models.Validate(in); err != nil {
		s.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	restaurant := s.store.AddRestaurant(in)
	s.logger.WithFields(logrus.Fields{
		"restaurant_id": restaurant.ID,
		"name":          restaurant.Name,
	}).Info("Restaurant created")
	s.respondWithJSON(w, http.StatusCreated, restaurant)
}

func (s *Server) ListMenu(w http.ResponseWriter, r *http.Request) {
	restaurantID := mux.Vars(r)["restaurantId"]
	items := s.store.Menu(restaurantID)
	s.logger.WithFields(logrus.Fields{
		"restaurant_id": restaurantID,
		"count":         len(items),
	}).Info("Listing menu")
	s.respondWithJSON(w, http.StatusOK, items)
}

func (s *Server) CreateMenuItem(w http.ResponseWriter, r *http.Request) {
	var in models.MenuItemInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := models.Validate(in); err != nil {
		s.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := s.store.AddMenuItem(in)
	if errors.Is(err, ErrUnknownRestaurant) {
		s.respondWithError(w, http.StatusBadRequest, "Unknown restaurant")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"restaurant_id": item.RestaurantID,
		"menu_item_id":  item.ID,
	}).Info("Menu item created")
	s.respondWithJSON(w, http.StatusCreated, item)
}

func (s *Server) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var sub models.OrderSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		s.logger.WithError(err).Error("Failed to decode order request")
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if sub.Status == "" {
		sub.Status = models.OrderStatusPlaced
	}
	if err := models.Validate(sub); err != nil {
		s.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if msg := checkTotals(sub); msg != "" {
		s.respondWithError(w, http.StatusBadRequest, msg)
		return
	}

	order, err := s.store.AddOrder(sub)
	if errors.Is(err, ErrUnknownRestaurant) {
		s.respondWithError(w, http.StatusBadRequest, "Unknown restaurant")
		return
	}

	if s.publisher != nil {
		event := events.OrderPlacedEvent{
			OrderID:       order.ID,
			RestaurantID:  order.RestaurantID,
			CustomerEmail: order.CustomerEmail,
			ItemsCount:    len(order.Items),
			Total:         order.Total,
			PlacedAt:      order.CreatedAt,
		}
		if err := s.publisher.PublishOrderPlaced(event); err != nil {
			// The order is stored; only the notification is lost.
			s.logger.WithError(err).Error("Failed to publish order placed event")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":      order.ID,
		"restaurant_id": order.RestaurantID,
		"total":         order.Total.StringFixed(2),
	}).Info("Order created successfully")
	s.respondWithJSON(w, http.StatusCreated, order)
}

func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "mock-backend",
	})
}

// checkTotals returns a message when the submitted amounts do not add up.
func checkTotals(sub models.OrderSubmission) string {
	subtotal := decimal.Zero
	for _, line := range sub.Items {
		want := line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		if !want.Equal(line.LineTotal) {
			return "Line total mismatch for " + line.MenuItemID
		}
		subtotal = subtotal.Add(want)
	}
	if !subtotal.Equal(sub.Subtotal) {
		return "Subtotal mismatch"
	}
	if !sub.Subtotal.Add(sub.DeliveryFee).Equal(sub.Total) {
		return "Total mismatch"
	}
	return ""
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]interface{}{
		"success": false,
		"message": message,
	})
}

func loggingMiddleware(logger *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start).Milliseconds(),
			}).Debug("Request completed")
		})
	}
}
