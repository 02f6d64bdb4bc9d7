package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Ardhiffamada1/PointOfSale/internal/cart"
	"github.com/Ardhiffamada1/PointOfSale/internal/catalog"
	"github.com/Ardhiffamada1/PointOfSale/internal/payment"
	"github.com/Ardhiffamada1/PointOfSale/internal/sales"
)

type mockLedger struct {
	mu       sync.Mutex
	recorded [][]sales.Sale
	fail     error
}

func (m *mockLedger) RecordTransaction(ctx context.Context, rows []sales.Sale) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.recorded = append(m.recorded, rows)
	return nil
}

type mockStock struct {
	mu      sync.Mutex
	writes  map[string]int
	failFor map[string]error
}

func newMockStock() *mockStock {
	return &mockStock{writes: map[string]int{}, failFor: map[string]error{}}
}

func (m *mockStock) SetStock(ctx context.Context, productID string, stock int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failFor[productID]; err != nil {
		return err
	}
	m.writes[productID] = stock
	return nil
}

func cartWith(t *testing.T, products ...catalog.Product) *cart.Cart {
	t.Helper()
	c := cart.New()
	for _, p := range products {
		require.NoError(t, c.Add(p))
	}
	return c
}

func TestOrchestrator(t *testing.T) {
	widget := catalog.Product{ID: "p1", Name: "Widget", Price: 10000, Stock: 5}
	gadget := catalog.Product{ID: "p2", Name: "Gadget", Price: 2500, Stock: 8}

	t.Run("Begin_RejectsEmptyCart", func(t *testing.T) {
		o := NewOrchestrator(&mockLedger{}, newMockStock())
		_, err := o.Begin(cart.New())
		require.ErrorIs(t, err, ErrEmptyCart)
	})

	t.Run("Begin_FreezesTotalAndLines", func(t *testing.T) {
		o := NewOrchestrator(&mockLedger{}, newMockStock())
		c := cartWith(t, widget)
		require.NoError(t, c.SetQuantity("p1", 2))

		co, err := o.Begin(c)
		require.NoError(t, err)
		require.Equal(t, StatusAwaitingPayment, co.Status)
		require.Equal(t, int64(20000), co.Total)

		// Later cart mutations do not reach the frozen checkout.
		require.NoError(t, c.SetQuantity("p1", 1))
		require.Equal(t, int64(20000), co.Total)
		require.Equal(t, 2, co.Lines[0].Quantity)
	})

	t.Run("Complete_OneRowPerLine_SharedTransactionID_SnapshotPrice", func(t *testing.T) {
		ledger := &mockLedger{}
		stock := newMockStock()
		o := NewOrchestrator(ledger, stock)

		c := cartWith(t, widget, gadget)
		co, err := o.Begin(c)
		require.NoError(t, err)

		st, err := payment.SettleCash(co.Total, 25000)
		require.NoError(t, err)

		res, err := o.Complete(context.Background(), co, st, "cashier-1")
		require.NoError(t, err)
		require.Equal(t, StatusComplete, res.Status)
		require.Empty(t, res.StockFailures)

		require.Len(t, ledger.recorded, 1)
		rows := ledger.recorded[0]
		require.Len(t, rows, 2)
		require.Equal(t, rows[0].TransactionID, rows[1].TransactionID)
		require.Equal(t, res.TransactionID, rows[0].TransactionID)
		for _, row := range rows {
			require.Equal(t, st.Method, row.PaymentMethod)
			require.Equal(t, st.AmountPaid, row.AmountPaid)
			require.Equal(t, st.ChangeGiven, row.ChangeGiven)
			require.Equal(t, "cashier-1", row.CashierID)
		}
		require.Equal(t, int64(10000), rows[0].SalePrice)
		require.Equal(t, int64(2500), rows[1].SalePrice)
	})

	t.Run("Complete_RecordsSnapshotPriceNotLiveCatalogPrice", func(t *testing.T) {
		ledger := &mockLedger{}
		o := NewOrchestrator(ledger, newMockStock())

		c := cartWith(t, widget)
		co, err := o.Begin(c)
		require.NoError(t, err)

		// Catalog price moves after the snapshot was taken; the sale must
		// still carry the cart price.
		st, err := payment.SettleCash(co.Total, co.Total)
		require.NoError(t, err)
		_, err = o.Complete(context.Background(), co, st, "")
		require.NoError(t, err)
		require.Equal(t, int64(10000), ledger.recorded[0][0].SalePrice)
	})

	t.Run("Complete_LedgerFailure_NoStockTouched_BackToIdle", func(t *testing.T) {
		ledger := &mockLedger{fail: errors.New("store rejected insert")}
		stock := newMockStock()
		o := NewOrchestrator(ledger, stock)

		c := cartWith(t, widget, gadget)
		co, err := o.Begin(c)
		require.NoError(t, err)

		st, err := payment.SettleCash(co.Total, co.Total)
		require.NoError(t, err)
		_, err = o.Complete(context.Background(), co, st, "")
		require.Error(t, err)
		require.Equal(t, StatusIdle, co.Status)
		require.Empty(t, stock.writes)
		require.Equal(t, 2, c.Len())
	})

	t.Run("Complete_PartialStockFailure_StillCompletes", func(t *testing.T) {
		ledger := &mockLedger{}
		stock := newMockStock()
		stock.failFor["p1"] = errors.New("network error")
		o := NewOrchestrator(ledger, stock)

		c := cartWith(t, widget, gadget)
		co, err := o.Begin(c)
		require.NoError(t, err)

		st, err := payment.SettleCash(co.Total, co.Total)
		require.NoError(t, err)
		res, err := o.Complete(context.Background(), co, st, "")
		require.NoError(t, err)
		require.Equal(t, StatusComplete, res.Status)
		require.Len(t, res.StockFailures, 1)
		require.Equal(t, "p1", res.StockFailures[0].ProductID)

		// The other decrement still applied: gadget 8 - 1 = 7.
		require.Equal(t, 7, stock.writes["p2"])
	})

	t.Run("Complete_CashScenario_WidgetTimesTwo", func(t *testing.T) {
		ledger := &mockLedger{}
		stock := newMockStock()
		o := NewOrchestrator(ledger, stock)

		c := cartWith(t, widget)
		require.NoError(t, c.SetQuantity("p1", 2))
		co, err := o.Begin(c)
		require.NoError(t, err)
		require.Equal(t, int64(20000), co.Total)

		st, err := payment.SettleCash(co.Total, 25000)
		require.NoError(t, err)
		require.Equal(t, int64(5000), st.ChangeGiven)

		res, err := o.Complete(context.Background(), co, st, "")
		require.NoError(t, err)
		require.Empty(t, res.StockFailures)

		rows := ledger.recorded[0]
		require.Len(t, rows, 1)
		require.Equal(t, 2, rows[0].Quantity)
		require.Equal(t, int64(10000), rows[0].SalePrice)
		require.Equal(t, 3, stock.writes["p1"])
	})

	t.Run("Complete_RequiresAwaitingPayment", func(t *testing.T) {
		o := NewOrchestrator(&mockLedger{}, newMockStock())
		co := &Checkout{Status: StatusComplete}
		_, err := o.Complete(context.Background(), co, payment.Settlement{}, "")
		require.ErrorIs(t, err, ErrNotAwaiting)
	})

	t.Run("Cancel_OnlyBeforeRecording", func(t *testing.T) {
		o := NewOrchestrator(&mockLedger{}, newMockStock())
		c := cartWith(t, widget)
		co, err := o.Begin(c)
		require.NoError(t, err)
		require.NoError(t, o.Cancel(co))
		require.Equal(t, StatusIdle, co.Status)
		require.Equal(t, 1, c.Len())

		co.Status = StatusComplete
		require.ErrorIs(t, o.Cancel(co), ErrNotCancelled)
	})
}
