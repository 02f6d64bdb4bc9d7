package outbox

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Ardhiffamada1/PointOfSale/pkg/contracts"
)

// Execer is satisfied by both *pgxpool.Pool and pgx.Tx so an outbox row can
// be written inside the same transaction as the sale rows it describes.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Record struct {
	ID        int64           `json:"id"`
	EventID   string          `json:"event_id"`
	Topic     string          `json:"topic"`
	Key       string          `json:"key"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	SentAt    *time.Time      `json:"sent_at"`
}

func Insert(ctx context.Context, db Execer, eventID, topic, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, `INSERT INTO outbox(event_id, topic, key, payload) VALUES ($1, $2, $3, $4)`, eventID, topic, key, data)
	return err
}

func MarkSent(ctx context.Context, pool *pgxpool.Pool, id int64) error {
	_, err := pool.Exec(ctx, `UPDATE outbox SET sent_at=now() WHERE id=$1`, id)
	return err
}

func FetchPending(ctx context.Context, pool *pgxpool.Pool, limit int) ([]Record, error) {
	rows, err := pool.Query(ctx, `SELECT id, event_id, topic, key, payload, created_at, sent_at FROM outbox WHERE sent_at IS NULL ORDER BY id LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows pgx.Rows) ([]Record, error) {
	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.EventID, &rec.Topic, &rec.Key, &rec.Payload, &rec.CreatedAt, &rec.SentAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Sink writes an event through the outbox so the relay delivers it to the
// broker and the SSE hub alongside the sale-ledger records.
type Sink struct {
	DB Execer
}

func (s Sink) Emit(ctx context.Context, topic, key string, evt contracts.Event) error {
	return Insert(ctx, s.DB, evt.EventID, topic, key, evt)
}

// PublishFunc delivers one pending record to its destination (Kafka, the
// in-process SSE hub, or both). A non-nil error leaves the record pending.
type PublishFunc func(ctx context.Context, rec Record) error

// Relay polls for unsent records and publishes them in id order. It never
// returns until ctx is cancelled.
func Relay(ctx context.Context, pool *pgxpool.Pool, interval time.Duration, batch int, publish PublishFunc) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		recs, err := FetchPending(ctx, pool, batch)
		if err != nil {
			log.Printf("outbox fetch error: %v", err)
			continue
		}
		for _, rec := range recs {
			if err := publish(ctx, rec); err != nil {
				log.Printf("outbox publish error for %s: %v", rec.EventID, err)
				break
			}
			if err := MarkSent(ctx, pool, rec.ID); err != nil {
				log.Printf("outbox mark-sent error for %s: %v", rec.EventID, err)
				break
			}
		}
	}
}
