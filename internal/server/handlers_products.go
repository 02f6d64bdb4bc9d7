package server

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/Ardhiffamada1/PointOfSale/internal/catalog"
	"github.com/Ardhiffamada1/PointOfSale/internal/sales"
	"github.com/Ardhiffamada1/PointOfSale/pkg/contracts"
	"github.com/Ardhiffamada1/PointOfSale/pkg/logging"
)

func productErrStatus(err error) int {
	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrBarcodeTaken):
		return http.StatusConflict
	case errors.Is(err, catalog.ErrNameRequired),
		errors.Is(err, catalog.ErrBarcodeRequired),
		errors.Is(err, catalog.ErrPriceInvalid),
		errors.Is(err, catalog.ErrStockInvalid):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.Catalog.List(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.Catalog.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, productErrStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleProductByBarcode(w http.ResponseWriter, r *http.Request) {
	p, err := s.Catalog.GetByBarcode(r.Context(), r.PathValue("code"))
	if err != nil {
		writeError(w, productErrStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var in catalog.ProductInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	p, err := s.Catalog.Create(r.Context(), in)
	if err != nil {
		writeError(w, productErrStatus(err), err)
		return
	}
	logging.Log(logging.Fields{Service: "pos-server", ProductID: p.ID, Step: "product_create", Status: "created"})
	s.emit(r.Context(), contracts.TopicCatalog, contracts.EventProductCreated, p.ID, "", map[string]any{
		"product_id": p.ID, "name": p.Name, "price": p.Price, "stock": p.Stock,
	})
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var in catalog.ProductInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	p, err := s.Catalog.Update(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeError(w, productErrStatus(err), err)
		return
	}
	s.emit(r.Context(), contracts.TopicCatalog, contracts.EventProductUpdated, p.ID, "", map[string]any{
		"product_id": p.ID, "name": p.Name, "price": p.Price, "stock": p.Stock,
	})
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.Catalog.Delete(r.Context(), id); err != nil {
		writeError(w, productErrStatus(err), err)
		return
	}
	s.emit(r.Context(), contracts.TopicCatalog, contracts.EventProductDeleted, id, "", map[string]any{"product_id": id})
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

// handleQuickSale sells one product outside the cart flow: a single ledger
// row at the current catalog price, then a best-effort stock write.
func (s *Server) handleQuickSale(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	p, err := s.Catalog.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, productErrStatus(err), err)
		return
	}
	if req.Quantity <= 0 || req.Quantity > p.Stock {
		writeError(w, http.StatusBadRequest, errors.New("quantity must be positive and within stock"))
		return
	}

	sess := sessionFrom(r.Context())
	row := sales.Sale{
		ID:            uuid.NewString(),
		ProductID:     p.ID,
		Quantity:      req.Quantity,
		SalePrice:     p.Price,
		SaleDate:      nowUTC(),
		PaymentMethod: "cash",
		AmountPaid:    p.Price * int64(req.Quantity),
		TransactionID: uuid.NewString(),
		CashierID:     sess.UserID,
	}
	if err := s.Sales.RecordTransaction(r.Context(), []sales.Sale{row}); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	resp := map[string]any{"sale": row}
	if err := s.Catalog.SetStock(r.Context(), p.ID, p.Stock-req.Quantity); err != nil {
		logging.Log(logging.Fields{Service: "pos-server", ProductID: p.ID, Step: "adjust_stock", Status: "failed", Message: err.Error()})
		s.emit(r.Context(), contracts.TopicSales, contracts.EventStockAdjustFailed, p.ID, row.TransactionID, map[string]any{
			"product_id": p.ID, "reason": err.Error(),
		})
		resp["warning"] = "sale recorded but stock update failed"
	} else {
		s.emit(r.Context(), contracts.TopicSales, contracts.EventStockAdjusted, p.ID, row.TransactionID, map[string]any{
			"product_id": p.ID, "stock": p.Stock - req.Quantity,
		})
	}
	writeJSON(w, http.StatusCreated, resp)
}
