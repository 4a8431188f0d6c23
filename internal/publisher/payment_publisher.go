package publisher

import (
	"context"
	"time"

	"github.com/shopmesh/fulfillment/internal/models"
	"github.com/shopmesh/fulfillment/internal/stream"
)

// PaymentPublisher emits payment.confirmed once the provider signals a
// successful capture.
type PaymentPublisher struct {
	broker stream.Broker
}

func NewPaymentPublisher(broker stream.Broker) *PaymentPublisher {
	return &PaymentPublisher{broker: broker}
}

func (p *PaymentPublisher) PublishPaymentConfirmed(ctx context.Context, evt models.OrderEvent) error {
	evt.Type = models.TypePaymentConfirmed
	if evt.TS == 0 {
		evt.TS = time.Now().UnixMilli()
	}
	_, err := p.broker.Publish(ctx, PaymentConfirmedStream, evt.Values())
	return err
}
