package payment

import (
	"errors"
	"fmt"
	"time"
)

const (
	MethodCash     = "cash"
	MethodGateway  = "midtrans"
	MethodScanCode = "qris"
)

var (
	ErrInvalidAmount      = errors.New("paid amount is not valid")
	ErrInsufficientAmount = errors.New("paid amount is less than the total")
	ErrNotPending         = errors.New("no pending scan-code payment to confirm")
	ErrDeclined           = errors.New("scan-code payment was declined")
)

// Settlement is the resolved outcome of a payment attempt: how it was paid,
// what was handed over, what goes back, and the provider's reference when
// an external gateway settled it.
type Settlement struct {
	Method      string `json:"payment_method"`
	AmountPaid  int64  `json:"amount_paid"`
	ChangeGiven int64  `json:"change_given"`
	Reference   string `json:"transaction_reference,omitempty"`
}

// SettleCash settles a cash payment. The amount handed over must cover the
// total; change is the difference.
func SettleCash(total, amountPaid int64) (Settlement, error) {
	if amountPaid <= 0 {
		return Settlement{}, ErrInvalidAmount
	}
	if amountPaid < total {
		return Settlement{}, ErrInsufficientAmount
	}
	return Settlement{
		Method:      MethodCash,
		AmountPaid:  amountPaid,
		ChangeGiven: amountPaid - total,
	}, nil
}

// SettleSync settles any non-cash, non-gateway method that clears
// immediately for the exact total.
func SettleSync(method string, total int64) Settlement {
	return Settlement{
		Method:     method,
		AmountPaid: total,
		Reference:  fmt.Sprintf("MOCK-%d", time.Now().UnixMilli()),
	}
}

// SettleGateway converts a successful gateway popup result into a
// settlement. The gateway always captures the exact total.
func SettleGateway(total int64, reference string) Settlement {
	return Settlement{
		Method:     MethodGateway,
		AmountPaid: total,
		Reference:  reference,
	}
}

// PendingScanCode tracks a QR-style payment waiting for its out-of-band
// confirmation. Confirm resolves it exactly once.
type PendingScanCode struct {
	Total    int64
	resolved bool
}

func NewPendingScanCode(total int64) *PendingScanCode {
	return &PendingScanCode{Total: total}
}

func (p *PendingScanCode) Confirm(success bool) (Settlement, error) {
	if p == nil || p.resolved {
		return Settlement{}, ErrNotPending
	}
	p.resolved = true
	if !success {
		return Settlement{}, ErrDeclined
	}
	return Settlement{
		Method:     MethodScanCode,
		AmountPaid: p.Total,
		Reference:  fmt.Sprintf("QR-%d", time.Now().UnixMilli()),
	}, nil
}
