package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Ardhiffamada1/PointOfSale/internal/checkout"
	"github.com/Ardhiffamada1/PointOfSale/internal/payment"
	"github.com/Ardhiffamada1/PointOfSale/pkg/contracts"
)

var errNoActiveCheckout = errors.New("no active checkout; begin one first")

func (s *Server) handleBeginCheckout(w http.ResponseWriter, r *http.Request) {
	sd := s.sessions.get(sessionFrom(r.Context()).Token)
	sd.mu.Lock()
	defer sd.mu.Unlock()

	co, err := s.Orchestrator.Begin(sd.cart)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sd.checkout = co
	writeJSON(w, http.StatusOK, map[string]any{"checkout_id": co.ID, "status": co.Status, "total": co.Total})
}

// handlePayCheckout settles cash, scan-code entry, and the synchronous
// non-cash methods. The gateway has its own token/result endpoints.
func (s *Server) handlePayCheckout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PaymentMethod string `json:"payment_method"`
		AmountPaid    int64  `json:"amount_paid"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	sd := s.sessions.get(sessionFrom(r.Context()).Token)
	sd.mu.Lock()
	defer sd.mu.Unlock()

	co := sd.checkout
	if co == nil || co.Status != checkout.StatusAwaitingPayment {
		writeError(w, http.StatusConflict, errNoActiveCheckout)
		return
	}

	switch req.PaymentMethod {
	case payment.MethodCash:
		st, err := payment.SettleCash(co.Total, req.AmountPaid)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		s.completeCheckout(w, r, sd, st)
	case payment.MethodScanCode:
		co.Pending = payment.NewPendingScanCode(co.Total)
		writeJSON(w, http.StatusAccepted, map[string]any{"status": "pending", "total": co.Total})
	case payment.MethodGateway:
		writeError(w, http.StatusBadRequest, errors.New("gateway payments go through /api/checkout/gateway/token"))
	case "":
		writeError(w, http.StatusBadRequest, errors.New("payment_method is required"))
	default:
		s.completeCheckout(w, r, sd, payment.SettleSync(req.PaymentMethod, co.Total))
	}
}

func (s *Server) handleGatewayToken(w http.ResponseWriter, r *http.Request) {
	if !s.Gateway.Enabled() {
		writeError(w, http.StatusServiceUnavailable, payment.ErrGatewayDisabled)
		return
	}
	var req struct {
		CustomerDetails payment.CustomerDetails `json:"customer_details"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	sd := s.sessions.get(sessionFrom(r.Context()).Token)
	sd.mu.Lock()
	defer sd.mu.Unlock()

	co := sd.checkout
	if co == nil || co.Status != checkout.StatusAwaitingPayment {
		writeError(w, http.StatusConflict, errNoActiveCheckout)
		return
	}

	items := make([]payment.ItemDetail, 0, len(co.Lines))
	for _, line := range co.Lines {
		items = append(items, payment.ItemDetail{
			ID:       line.Product.ID,
			Name:     line.Product.Name,
			Price:    line.Product.Price,
			Quantity: line.Quantity,
		})
	}
	customer := req.CustomerDetails
	if customer.FirstName == "" {
		customer.FirstName = "Customer"
	}

	tok, err := s.Gateway.CreateToken(r.Context(), payment.TokenRequest{
		OrderID:         co.ID,
		GrossAmount:     co.Total,
		ItemDetails:     items,
		CustomerDetails: customer,
	})
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, tok)
}

// handleGatewayResult receives the popup's callback. Only a success result
// advances the checkout; pending and close leave it awaiting payment, and
// a provider error is surfaced without mutating anything.
func (s *Server) handleGatewayResult(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status        string `json:"status"`
		TransactionID string `json:"transaction_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	sd := s.sessions.get(sessionFrom(r.Context()).Token)
	sd.mu.Lock()
	defer sd.mu.Unlock()

	co := sd.checkout
	if co == nil || co.Status != checkout.StatusAwaitingPayment {
		writeError(w, http.StatusConflict, errNoActiveCheckout)
		return
	}

	switch req.Status {
	case payment.ResultSuccess:
		s.completeCheckout(w, r, sd, payment.SettleGateway(co.Total, req.TransactionID))
	case payment.ResultPending:
		writeJSON(w, http.StatusAccepted, map[string]any{"status": "pending"})
	case payment.ResultClose:
		writeJSON(w, http.StatusOK, map[string]any{"status": "cancelled"})
	case payment.ResultError:
		writeError(w, http.StatusBadGateway, errors.New("gateway payment failed"))
	default:
		writeError(w, http.StatusBadRequest, errors.New("unknown gateway result status"))
	}
}

func (s *Server) handleScanConfirm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Success bool `json:"success"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	sd := s.sessions.get(sessionFrom(r.Context()).Token)
	sd.mu.Lock()
	defer sd.mu.Unlock()

	co := sd.checkout
	if co == nil || co.Status != checkout.StatusAwaitingPayment {
		writeError(w, http.StatusConflict, errNoActiveCheckout)
		return
	}
	st, err := co.Pending.Confirm(req.Success)
	co.Pending = nil
	if err != nil {
		if errors.Is(err, payment.ErrDeclined) {
			writeError(w, http.StatusPaymentRequired, err)
			return
		}
		writeError(w, http.StatusConflict, err)
		return
	}
	s.completeCheckout(w, r, sd, st)
}

func (s *Server) handleCancelCheckout(w http.ResponseWriter, r *http.Request) {
	sd := s.sessions.get(sessionFrom(r.Context()).Token)
	sd.mu.Lock()
	defer sd.mu.Unlock()

	if sd.checkout == nil {
		writeError(w, http.StatusConflict, errNoActiveCheckout)
		return
	}
	if err := s.Orchestrator.Cancel(sd.checkout); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	sd.checkout = nil
	writeJSON(w, http.StatusOK, map[string]any{"status": "cancelled", "cart_total": sd.cart.Total()})
}

// completeCheckout runs the committed half of a settled checkout: record
// the sale, adjust stock best-effort, clear the cart, and hand back a
// fresh catalog so the client sees the (partially) updated stock.
func (s *Server) completeCheckout(w http.ResponseWriter, r *http.Request, sd *sessionData, st payment.Settlement) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	sess := sessionFrom(r.Context())
	co := sd.checkout
	res, err := s.Orchestrator.Complete(ctx, co, st, sess.UserID)
	if err != nil {
		// Sale not recorded; cart stays as it was so the user can retry.
		sd.checkout = nil
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	failed := make(map[string]string, len(res.StockFailures))
	for _, f := range res.StockFailures {
		failed[f.ProductID] = f.Reason
	}
	for _, line := range co.Lines {
		id := line.Product.ID
		if reason, ok := failed[id]; ok {
			s.emit(ctx, contracts.TopicSales, contracts.EventStockAdjustFailed, id, res.TransactionID, map[string]any{
				"product_id": id, "reason": reason,
			})
			continue
		}
		s.emit(ctx, contracts.TopicSales, contracts.EventStockAdjusted, id, res.TransactionID, map[string]any{
			"product_id": id, "stock": line.Product.Stock - line.Quantity,
		})
	}

	sd.cart.Clear()
	sd.checkout = nil

	resp := map[string]any{
		"transaction_id": res.TransactionID,
		"status":         res.Status,
		"total":          res.Total,
		"settlement":     res.Settlement,
	}
	if len(res.StockFailures) > 0 {
		resp["warning"] = "sale recorded but stock reconciliation is incomplete"
		resp["stock_failures"] = res.StockFailures
	}
	if products, err := s.Catalog.List(ctx, ""); err == nil {
		resp["products"] = products
	}
	writeJSON(w, http.StatusOK, resp)
}
