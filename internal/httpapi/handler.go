// Package httpapi exposes the storefront session as a small JSON action API.
// Every action answers with the view snapshot taken after it ran.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/jogardn/panda-lite/internal/cart"
	"github.com/jogardn/panda-lite/internal/circuitbreaker"
	"github.com/jogardn/panda-lite/internal/storefront"
	"github.com/jogardn/panda-lite/pkg/models"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

// Storefront is the session the handlers drive.
type Storefront interface {
	View() storefront.View
	ListRestaurants(ctx context.Context) error
	OpenRestaurant(ctx context.Context, restaurantID string) error
	Back()
	AddItem(ctx context.Context, menuItemID string) error
	ChangeQuantity(ctx context.Context, menuItemID string, delta int) error
	ClearCart(ctx context.Context) error
	PlaceOrder(ctx context.Context, customer storefront.Customer) (models.Order, error)
	SeedSample(ctx context.Context) error
}

type Response struct {
	Success bool             `json:"success"`
	Message string           `json:"message,omitempty"`
	Fields  []string         `json:"fields,omitempty"`
	Order   *models.Order    `json:"order,omitempty"`
	View    *storefront.View `json:"view,omitempty"`
}

type Handler struct {
	store    Storefront
	breakers *circuitbreaker.Manager
	ws       http.HandlerFunc
	logger   *logrus.Logger
}

func NewHandler(store Storefront, logger *logrus.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// SetBreakers adds the backend breaker states to /health.
func (h *Handler) SetBreakers(m *circuitbreaker.Manager) {
	h.breakers = m
}

// SetWebSocket mounts the view stream on /ws.
func (h *Handler) SetWebSocket(ws http.HandlerFunc) {
	h.ws = ws
}

// Router returns the routes wrapped in request logging and CORS.
func (h *Handler) Router(allowedOrigins []string) http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/view", h.GetView).Methods("GET")
	api.HandleFunc("/restaurants/refresh", h.RefreshRestaurants).Methods("POST")
	api.HandleFunc("/restaurants/{id}/open", h.OpenRestaurant).Methods("POST")
	api.HandleFunc("/back", h.Back).Methods("POST")
	api.HandleFunc("/cart/items", h.AddItem).Methods("POST")
	api.HandleFunc("/cart/items/{id}", h.ChangeQuantity).Methods("PATCH")
	api.HandleFunc("/cart", h.ClearCart).Methods("DELETE")
	api.HandleFunc("/orders", h.PlaceOrder).Methods("POST")
	api.HandleFunc("/seed", h.SeedSample).Methods("POST")

	if h.ws != nil {
		router.HandleFunc("/ws", h.ws)
	}

	router.Use(loggingMiddleware(h.logger))

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(router)
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	payload := map[string]interface{}{
		"status":  "healthy",
		"service": "storefront",
	}
	if h.breakers != nil {
		payload["circuit_breakers"] = h.breakers.AllMetrics()
	}
	h.respondWithJSON(w, http.StatusOK, payload)
}

func (h *Handler) GetView(w http.ResponseWriter, r *http.Request) {
	h.respondWithView(w, http.StatusOK, nil)
}

func (h *Handler) RefreshRestaurants(w http.ResponseWriter, r *http.Request) {
	h.respondWithView(w, http.StatusOK, h.store.ListRestaurants(r.Context()))
}

func (h *Handler) OpenRestaurant(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	h.respondWithView(w, http.StatusOK, h.store.OpenRestaurant(r.Context(), id))
}

func (h *Handler) Back(w http.ResponseWriter, r *http.Request) {
	h.store.Back()
	h.respondWithView(w, http.StatusOK, nil)
}

type addItemRequest struct {
	MenuItemID string `json:"menu_item_id"`
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.MenuItemID == "" {
		h.respondWithError(w, http.StatusBadRequest, "menu_item_id is required")
		return
	}
	h.respondWithView(w, http.StatusOK, h.store.AddItem(r.Context(), req.MenuItemID))
}

type changeQuantityRequest struct {
	Delta *int `json:"delta"`
}

func (h *Handler) ChangeQuantity(w http.ResponseWriter, r *http.Request) {
	var req changeQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Delta == nil {
		h.respondWithError(w, http.StatusBadRequest, "delta is required")
		return
	}
	id := mux.Vars(r)["id"]
	h.respondWithView(w, http.StatusOK, h.store.ChangeQuantity(r.Context(), id, *req.Delta))
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.respondWithView(w, http.StatusOK, h.store.ClearCart(r.Context()))
}

func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var customer storefront.Customer
	if err := json.NewDecoder(r.Body).Decode(&customer); err != nil {
		h.logger.WithError(err).Warn("Failed to decode checkout form")
		h.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, err := h.store.PlaceOrder(r.Context(), customer)
	if err != nil {
		h.respondWithView(w, http.StatusOK, err)
		return
	}

	view := h.store.View()
	h.respondWithJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: storefront.NoticeOrderPlaced,
		Order:   &order,
		View:    &view,
	})
}

func (h *Handler) SeedSample(w http.ResponseWriter, r *http.Request) {
	h.respondWithView(w, http.StatusOK, h.store.SeedSample(r.Context()))
}

// statusFor maps an action error to its HTTP status. Anything not
// recognised came from the backend.
func statusFor(err error) int {
	switch {
	case errors.Is(err, storefront.ErrUnknownRestaurant):
		return http.StatusNotFound
	case errors.Is(err, storefront.ErrOrderRefused), errors.Is(err, storefront.ErrUnknownMenuItem):
		return http.StatusConflict
	case errors.Is(err, storefront.ErrInvalidCustomer):
		return http.StatusUnprocessableEntity
	case errors.Is(err, cart.ErrSaveFailed):
		return http.StatusInternalServerError
	case errors.Is(err, circuitbreaker.ErrOpen):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

// respondWithView answers with the current view. A superseded menu load is
// not an error for the caller; the view already shows the newer selection.
func (h *Handler) respondWithView(w http.ResponseWriter, okStatus int, err error) {
	view := h.store.View()
	if err == nil || errors.Is(err, storefront.ErrSuperseded) {
		h.respondWithJSON(w, okStatus, Response{Success: true, View: &view})
		return
	}

	h.respondWithJSON(w, statusFor(err), Response{
		Success: false,
		Message: err.Error(),
		Fields:  models.FieldErrors(err),
		View:    &view,
	})
}

func (h *Handler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal response")
		code = http.StatusInternalServerError
		response = []byte(`{"success":false,"message":"internal error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func (h *Handler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, Response{Success: false, Message: message})
}

func loggingMiddleware(logger *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"remote":   r.RemoteAddr,
				"duration": time.Since(start).Milliseconds(),
			}).Info("Request completed")
		})
	}
}
