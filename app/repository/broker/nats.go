package broker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"storefront-service/app/domain"
	"storefront-service/pkg/tracing"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

type natsBroker struct {
	js     jetstream.JetStream
	prefix string
}

// NewNatsStream creates the service stream, reusing it if it already exists.
func NewNatsStream(ctx context.Context, js jetstream.JetStream, name string) error {
	_, err := js.CreateStream(ctx, jetstream.StreamConfig{
		Name:     name,
		Subjects: []string{name + ".>"},
	})
	if err != nil && !errors.Is(err, jetstream.ErrStreamNameAlreadyInUse) {
		return err
	}
	return nil
}

func NewNatsBrokerPublisher(js jetstream.JetStream, streamName string) domain.BrokerPublisher {
	return &natsBroker{
		js:     js,
		prefix: streamName,
	}
}

func (b *natsBroker) PublishOrderEvent(ctx context.Context, data domain.OrderEventMessage) error {
	return b.publish(ctx, "PublishOrderEvent", b.prefix+"."+string(data.Type), data)
}

func (b *natsBroker) PublishStockChanged(ctx context.Context, data domain.StockMessage) error {
	return b.publish(ctx, "PublishStockChanged", b.prefix+".stock_changed", data)
}

func (b *natsBroker) publish(ctx context.Context, method, subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		slog.ErrorContext(ctx, "[natsBroker] "+method, "json.Marshal", err)
		return err
	}

	msg := nats.NewMsg(subject)
	msg.Data = payload
	for k, v := range tracing.InjectMap(ctx) {
		msg.Header.Set(k, v)
	}

	if _, err = b.js.PublishMsg(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "[natsBroker] "+method, "publishMsg", err)
		return err
	}

	slog.InfoContext(ctx, "[natsBroker] "+method, "subject", subject)
	return nil
}
