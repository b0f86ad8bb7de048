// Command order-monitor logs the order.placed events the mock backend
// publishes to Kafka.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jogardn/panda-lite/internal/config"
	"github.com/jogardn/panda-lite/internal/events"
	"github.com/sirupsen/logrus"
)

const groupID = "order-monitor-group"

type orderLogger struct {
	logger *logrus.Logger
}

func (h *orderLogger) HandleOrderPlaced(event events.OrderPlacedEvent) error {
	h.logger.WithFields(logrus.Fields{
		"order_id":       event.OrderID,
		"restaurant_id":  event.RestaurantID,
		"customer_email": event.CustomerEmail,
		"items_count":    event.ItemsCount,
		"total":          event.Total.StringFixed(2),
		"placed_at":      event.PlacedAt,
	}).Info("Order placed")
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}
	logger := cfg.Logger()

	brokers := cfg.KafkaBrokers
	if brokers == "" {
		brokers = "localhost:9092"
	}

	consumer, err := events.NewKafkaConsumer(brokers, groupID, &orderLogger{logger: logger}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create Kafka consumer")
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- consumer.Start(ctx) }()

	logger.WithField("topic", events.OrderPlacedTopic).Info("Order monitor started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("Shutting down order monitor...")
		cancel()
		<-done
	case err := <-done:
		if err != nil {
			logger.WithError(err).Error("Order monitor stopped")
		}
	}
}
