package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Ardhiffamada1/PointOfSale/internal/cart"
	"github.com/Ardhiffamada1/PointOfSale/internal/payment"
	"github.com/Ardhiffamada1/PointOfSale/internal/sales"
	"github.com/Ardhiffamada1/PointOfSale/pkg/logging"
)

type Status string

const (
	StatusIdle            Status = "IDLE"
	StatusAwaitingPayment Status = "AWAITING_PAYMENT"
	StatusRecordingSale   Status = "RECORDING_SALE"
	StatusAdjustingStock  Status = "ADJUSTING_STOCK"
	StatusComplete        Status = "COMPLETE"
)

var (
	ErrEmptyCart    = errors.New("cart is empty")
	ErrNotAwaiting  = errors.New("checkout is not awaiting payment")
	ErrNotCancelled = errors.New("checkout can no longer be cancelled")
)

// Ledger records all rows of one checkout atomically.
type Ledger interface {
	RecordTransaction(ctx context.Context, rows []sales.Sale) error
}

// StockWriter writes an absolute stock value for one product.
type StockWriter interface {
	SetStock(ctx context.Context, productID string, stock int) error
}

// Checkout is one checkout attempt. Its line snapshot and total are frozen
// when it is begun; the cart may keep changing underneath for a retry after
// failure, but this attempt settles against the frozen figures.
type Checkout struct {
	ID      string                   `json:"id"`
	Status  Status                   `json:"status"`
	Lines   []cart.Line              `json:"lines"`
	Total   int64                    `json:"total"`
	Pending *payment.PendingScanCode `json:"-"`
}

// StockFailure names one product whose best-effort stock write did not
// apply. The sale it belongs to is already committed.
type StockFailure struct {
	ProductID string `json:"product_id"`
	Reason    string `json:"reason"`
}

type Result struct {
	TransactionID string         `json:"transaction_id"`
	Status        Status         `json:"status"`
	Total         int64              `json:"total"`
	Settlement    payment.Settlement `json:"settlement"`
	StockFailures []StockFailure     `json:"stock_failures,omitempty"`
}

// Orchestrator drives a checkout through
// IDLE -> AWAITING_PAYMENT -> RECORDING_SALE -> ADJUSTING_STOCK -> COMPLETE.
// Any failure before the sale is recorded drops back to IDLE with the cart
// intact; once recorded, the sale stands and stock adjustment is best
// effort.
type Orchestrator struct {
	ledger Ledger
	stock  StockWriter
	now    func() time.Time
}

func NewOrchestrator(ledger Ledger, stock StockWriter) *Orchestrator {
	return &Orchestrator{ledger: ledger, stock: stock, now: time.Now}
}

// Begin freezes the cart's lines and total into a new checkout awaiting
// payment. The cart itself is left untouched until completion.
func (o *Orchestrator) Begin(c *cart.Cart) (*Checkout, error) {
	if c.Empty() {
		return nil, ErrEmptyCart
	}
	return &Checkout{
		ID:     uuid.NewString(),
		Status: StatusAwaitingPayment,
		Lines:  c.Lines(),
		Total:  c.Total(),
	}, nil
}

// Cancel abandons a checkout that has not started recording. The cart is
// untouched; the user may begin again or switch payment method.
func (o *Orchestrator) Cancel(co *Checkout) error {
	if co.Status != StatusAwaitingPayment {
		return ErrNotCancelled
	}
	co.Status = StatusIdle
	co.Pending = nil
	return nil
}

// Complete runs the committed half of a checkout once payment has settled:
// one ledger row per line under a single transaction id, then one
// concurrent best-effort stock write per distinct product. A ledger failure
// aborts the whole checkout with zero stock touched; stock failures are
// reported but do not stop completion.
func (o *Orchestrator) Complete(ctx context.Context, co *Checkout, st payment.Settlement, cashierID string) (*Result, error) {
	if co.Status != StatusAwaitingPayment {
		return nil, ErrNotAwaiting
	}

	co.Status = StatusRecordingSale
	txnID := uuid.NewString()
	saleDate := o.now()

	rows := make([]sales.Sale, 0, len(co.Lines))
	for _, line := range co.Lines {
		rows = append(rows, sales.Sale{
			ID:            uuid.NewString(),
			ProductID:     line.Product.ID,
			Quantity:      line.Quantity,
			SalePrice:     line.Product.Price,
			SaleDate:      saleDate,
			PaymentMethod: st.Method,
			AmountPaid:    st.AmountPaid,
			ChangeGiven:   st.ChangeGiven,
			TransactionID: txnID,
			CashierID:     cashierID,
		})
	}

	if err := o.ledger.RecordTransaction(ctx, rows); err != nil {
		co.Status = StatusIdle
		logging.Log(logging.Fields{Service: "pos-server", TxnID: txnID, Step: "record_sale", Status: "failed", Message: err.Error()})
		return nil, fmt.Errorf("failed to record sale: %w", err)
	}
	logging.Log(logging.Fields{Service: "pos-server", TxnID: txnID, Step: "record_sale", Status: "recorded"})

	co.Status = StatusAdjustingStock
	failures := o.adjustStock(ctx, co.Lines, txnID)

	co.Status = StatusComplete
	return &Result{
		TransactionID: txnID,
		Status:        StatusComplete,
		Total:         co.Total,
		Settlement:    st,
		StockFailures: failures,
	}, nil
}

// adjustStock issues one write per line, concurrently, and waits for all of
// them. Each write is the snapshot stock minus the quantity sold; a stale
// snapshot simply wins or loses the write race, by the store's last-write
// policy.
func (o *Orchestrator) adjustStock(ctx context.Context, lines []cart.Line, txnID string) []StockFailure {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures []StockFailure
	)
	for _, line := range lines {
		wg.Add(1)
		go func(line cart.Line) {
			defer wg.Done()
			newStock := line.Product.Stock - line.Quantity
			if err := o.stock.SetStock(ctx, line.Product.ID, newStock); err != nil {
				logging.Log(logging.Fields{Service: "pos-server", TxnID: txnID, ProductID: line.Product.ID, Step: "adjust_stock", Status: "failed", Message: err.Error()})
				mu.Lock()
				failures = append(failures, StockFailure{ProductID: line.Product.ID, Reason: err.Error()})
				mu.Unlock()
				return
			}
			logging.Log(logging.Fields{Service: "pos-server", TxnID: txnID, ProductID: line.Product.ID, Step: "adjust_stock", Status: "adjusted"})
		}(line)
	}
	wg.Wait()
	return failures
}
