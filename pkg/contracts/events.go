package contracts

import "time"

// Event is the envelope published for every change to the sales ledger and
// the product catalog. Consumers (dashboards, the SSE stream, external
// subscribers on Kafka) re-derive their views on receipt.
type Event struct {
	EventID   string         `json:"event_id"`
	TxnID     string         `json:"txn_id,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
}

const (
	EventSaleRecorded      = "sale.recorded"
	EventStockAdjusted     = "stock.adjusted"
	EventStockAdjustFailed = "stock.adjust_failed"
	EventProductCreated    = "product.created"
	EventProductUpdated    = "product.updated"
	EventProductDeleted    = "product.deleted"
)

// Outbox topics. Ledger activity and stock adjustments ride TopicSales;
// catalog CRUD rides TopicCatalog.
const (
	TopicSales   = "pos.sales"
	TopicCatalog = "pos.catalog"
)
