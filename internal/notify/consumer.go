package notify

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rdanilin/cinebook/internal/adapters/rabbit"
)

// Consume dispatches event deliveries to the matching notification job.
// Handled messages are acked; failures are nacked without requeue so a
// poison message cannot loop forever.
func (n *Notifier) Consume(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			if err := n.dispatch(ctx, d); err != nil {
				n.logger.WithError(err).WithField("routing_key", d.RoutingKey).Error("event handling failed")
				d.Nack(false, false)
				continue
			}
			d.Ack(false)
		}
	}
}

func (n *Notifier) dispatch(ctx context.Context, d amqp.Delivery) error {
	switch d.RoutingKey {
	case rabbit.KeyBookingPaid:
		var ev BookingPaidEvent
		if err := json.Unmarshal(d.Body, &ev); err != nil {
			return err
		}
		return n.ConfirmBooking(ctx, ev.BookingID)
	case rabbit.KeyShowAdded:
		var ev ShowAddedEvent
		if err := json.Unmarshal(d.Body, &ev); err != nil {
			return err
		}
		return n.BroadcastNewShow(ctx, ev.MovieTitle)
	default:
		n.logger.WithField("routing_key", d.RoutingKey).Debug("ignoring event")
		return nil
	}
}
