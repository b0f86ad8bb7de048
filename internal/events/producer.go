package events

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	OrderPlacedTopic = "order.placed"
)

type OrderPlacedEvent struct {
	OrderID       string          `json:"order_id"`
	RestaurantID  string          `json:"restaurant_id"`
	CustomerEmail string          `json:"customer_email"`
	ItemsCount    int             `json:"items_count"`
	Total         decimal.Decimal `json:"total"`
	PlacedAt      time.Time       `json:"placed_at"`
	EventTime     time.Time       `json:"event_time"`
}

// Publisher is what the mock backend needs to announce accepted orders.
type Publisher interface {
	PublishOrderPlaced(event OrderPlacedEvent) error
}

type KafkaProducer struct {
	producer sarama.SyncProducer
	logger   *logrus.Logger
}

func NewKafkaProducer(brokers string, logger *logrus.Logger) (*KafkaProducer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Version = sarama.V2_6_0_0

	producer, err := sarama.NewSyncProducer(strings.Split(brokers, ","), config)
	if err != nil {
		return nil, err
	}
	return NewKafkaProducerWith(producer, logger), nil
}

// NewKafkaProducerWith wraps an existing sarama producer.
func NewKafkaProducerWith(producer sarama.SyncProducer, logger *logrus.Logger) *KafkaProducer {
	return &KafkaProducer{
		producer: producer,
		logger:   logger,
	}
}

func (p *KafkaProducer) PublishOrderPlaced(event OrderPlacedEvent) error {
	event.EventTime = time.Now()

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: OrderPlacedTopic,
		Key:   sarama.StringEncoder(event.RestaurantID),
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.WithError(err).Error("Failed to send message to Kafka")
		return err
	}

	p.logger.WithFields(logrus.Fields{
		"topic":     OrderPlacedTopic,
		"partition": partition,
		"offset":    offset,
		"order_id":  event.OrderID,
	}).Info("Event published to Kafka")

	return nil
}

func (p *KafkaProducer) Close() error {
	return p.producer.Close()
}
