package notify

import (
	"context"
	"encoding/json"
	"log"

	"github.com/Ardhiffamada1/PointOfSale/pkg/contracts"
	"github.com/Ardhiffamada1/PointOfSale/pkg/outbox"
)

// Publisher is the broker side of the relay. A nil Publisher means no broker
// is configured and records go straight to the hub.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload any) error
}

// NewRelayFunc adapts the hub and an optional broker publisher into the
// outbox relay callback. The broker write runs first; the hub sees an event
// only once its record is about to be marked sent, so a failed publish
// leaves the record pending without repeating it to SSE subscribers on
// every poll.
func NewRelayFunc(hub *Hub, pub Publisher) outbox.PublishFunc {
	return func(ctx context.Context, rec outbox.Record) error {
		var evt contracts.Event
		if err := json.Unmarshal(rec.Payload, &evt); err != nil {
			log.Printf("outbox payload decode error for %s: %v", rec.EventID, err)
			return nil
		}
		if pub != nil {
			if err := pub.Publish(ctx, rec.Topic, rec.Key, evt); err != nil {
				return err
			}
		}
		hub.Broadcast(evt)
		return nil
	}
}
