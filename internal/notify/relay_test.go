package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Ardhiffamada1/PointOfSale/pkg/contracts"
	"github.com/Ardhiffamada1/PointOfSale/pkg/outbox"
)

type stubPublisher struct {
	err    error
	topics []string
	keys   []string
}

func (p *stubPublisher) Publish(_ context.Context, topic, key string, _ any) error {
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.keys = append(p.keys, key)
	return nil
}

func relayRecord(t *testing.T, evt contracts.Event) outbox.Record {
	t.Helper()
	data, err := json.Marshal(evt)
	require.NoError(t, err)
	return outbox.Record{EventID: evt.EventID, Topic: contracts.TopicSales, Key: "p1", Payload: data}
}

func TestRelayFunc(t *testing.T) {
	evt := contracts.Event{EventID: "e1", Type: contracts.EventSaleRecorded, TxnID: "t1"}

	t.Run("BrokerFailureKeepsEventOffTheHub", func(t *testing.T) {
		h := NewHub()
		ch := h.Subscribe()
		pub := &stubPublisher{err: errors.New("broker down")}

		err := NewRelayFunc(h, pub)(context.Background(), relayRecord(t, evt))
		require.Error(t, err)
		require.Empty(t, ch)
	})

	t.Run("BroadcastsAfterSuccessfulPublish", func(t *testing.T) {
		h := NewHub()
		ch := h.Subscribe()
		pub := &stubPublisher{}

		require.NoError(t, NewRelayFunc(h, pub)(context.Background(), relayRecord(t, evt)))
		require.Equal(t, []string{contracts.TopicSales}, pub.topics)
		require.Len(t, ch, 1)
		require.Equal(t, "t1", (<-ch).TxnID)
	})

	t.Run("NilPublisherStillFeedsTheHub", func(t *testing.T) {
		h := NewHub()
		ch := h.Subscribe()

		require.NoError(t, NewRelayFunc(h, nil)(context.Background(), relayRecord(t, evt)))
		require.Len(t, ch, 1)
	})

	t.Run("UndecodablePayloadIsSkippedNotRetried", func(t *testing.T) {
		h := NewHub()
		ch := h.Subscribe()
		rec := outbox.Record{EventID: "bad", Payload: json.RawMessage(`{`)}

		require.NoError(t, NewRelayFunc(h, nil)(context.Background(), rec))
		require.Empty(t, ch)
	})
}
