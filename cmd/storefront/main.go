package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jogardn/panda-lite/internal/backend"
	"github.com/jogardn/panda-lite/internal/cart"
	"github.com/jogardn/panda-lite/internal/cartstore"
	"github.com/jogardn/panda-lite/internal/circuitbreaker"
	"github.com/jogardn/panda-lite/internal/config"
	"github.com/jogardn/panda-lite/internal/httpapi"
	"github.com/jogardn/panda-lite/internal/storefront"
	"github.com/jogardn/panda-lite/internal/websocket"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}
	logger := cfg.Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := cartstore.Open(ctx, cfg.Cart, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open cart store")
	}
	defer closeStore()

	breakers := circuitbreaker.NewManager(backend.BreakerConfig(), logger)
	client := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout, breakers, logger)

	hub := websocket.NewHub(logger)
	controller := storefront.NewController(client, cart.NewManager(ctx, store, logger), hub, logger)
	hub.SetGreeter(func() websocket.Message {
		return websocket.Message{
			Type:      storefront.ViewMessage,
			Data:      controller.View(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Source:    "storefront",
		}
	})
	go hub.Run(ctx)

	// The restaurant list loads once at start; failures only show in the banner.
	go controller.ListRestaurants(ctx)

	handler := httpapi.NewHandler(controller, logger)
	handler.SetBreakers(breakers)
	handler.SetWebSocket(hub.HandleWebSocket)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Router(cfg.AllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.BackendTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"port":        cfg.Port,
			"backend_url": cfg.BackendURL,
			"cart_store":  cfg.Cart.Store,
		}).Info("Starting storefront")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down storefront...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
	cancel()

	logger.Info("Storefront stopped")
}
