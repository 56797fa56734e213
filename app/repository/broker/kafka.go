package broker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"storefront-service/app/domain"
	"storefront-service/pkg/tracing"

	"github.com/segmentio/kafka-go"
)

const (
	TopicOrderEvents  = "storefront.orders"
	TopicStockChanged = "storefront.stock"

	headerEventType = "event-type"
)

type kafkaBroker struct {
	writer *kafka.Writer
}

func NewKafkaWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
}

func NewKafkaBrokerPublisher(writer *kafka.Writer) domain.BrokerPublisher {
	return &kafkaBroker{writer: writer}
}

func (b *kafkaBroker) PublishOrderEvent(ctx context.Context, data domain.OrderEventMessage) error {
	return b.publish(ctx, "PublishOrderEvent", TopicOrderEvents, data.OrderID.String(), string(data.Type), data)
}

func (b *kafkaBroker) PublishStockChanged(ctx context.Context, data domain.StockMessage) error {
	return b.publish(ctx, "PublishStockChanged", TopicStockChanged, data.SKU, "stock_changed", data)
}

func (b *kafkaBroker) publish(ctx context.Context, method, topic, key, eventType string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		slog.ErrorContext(ctx, "[kafkaBroker] "+method, "json.Marshal", err)
		return err
	}

	headers := tracing.InjectKafkaHeaders(ctx, []kafka.Header{
		{Key: headerEventType, Value: []byte(eventType)},
	})

	err = b.writer.WriteMessages(ctx, kafka.Message{
		Topic:   topic,
		Key:     []byte(key),
		Value:   payload,
		Headers: headers,
	})
	if err != nil {
		slog.ErrorContext(ctx, "[kafkaBroker] "+method, "writeMessages", err)
		return err
	}

	slog.InfoContext(ctx, "[kafkaBroker] "+method, "topic", topic, "key", key)
	return nil
}
