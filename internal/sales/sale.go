package sales

import "time"

// Sale is one line item of the append-only sales ledger. Rows produced by
// one checkout share a TransactionID and payment metadata; SalePrice is the
// unit price captured in the cart at transaction time, never the live
// catalog price. Rows are immutable once written.
type Sale struct {
	ID            string    `json:"id"`
	ProductID     string    `json:"product_id"`
	ProductName   string    `json:"product_name,omitempty"`
	Quantity      int       `json:"quantity"`
	SalePrice     int64     `json:"sale_price"`
	SaleDate      time.Time `json:"sale_date"`
	PaymentMethod string    `json:"payment_method"`
	AmountPaid    int64     `json:"amount_paid"`
	ChangeGiven   int64     `json:"change_given"`
	TransactionID string    `json:"transaction_id"`
	CashierID     string    `json:"cashier_id,omitempty"`
}

func (s Sale) Revenue() int64 {
	return s.SalePrice * int64(s.Quantity)
}

// Filter narrows sales-history listings. Start/End bound SaleDate
// inclusively on both ends (the history page sends whole calendar days).
type Filter struct {
	Start  *time.Time
	End    *time.Time
	Search string
	Limit  int
}
