package server

import (
	"errors"
	"net/http"

	"github.com/Ardhiffamada1/PointOfSale/internal/cart"
	"github.com/Ardhiffamada1/PointOfSale/internal/catalog"
)

func cartErrStatus(err error) int {
	switch {
	case errors.Is(err, cart.ErrLineNotFound):
		return http.StatusNotFound
	case errors.Is(err, cart.ErrOutOfStock),
		errors.Is(err, cart.ErrInsufficientStock),
		errors.Is(err, cart.ErrExceedsStock):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func cartView(c *cart.Cart) map[string]any {
	return map[string]any{"lines": c.Lines(), "total": c.Total()}
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	sd := s.sessions.get(sessionFrom(r.Context()).Token)
	sd.mu.Lock()
	defer sd.mu.Unlock()
	writeJSON(w, http.StatusOK, cartView(sd.cart))
}

// handleAddCartItem adds one unit by product id or by scanned barcode. A
// barcode miss signals "not found" and never touches the cart.
func (s *Server) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID string `json:"product_id"`
		Barcode   string `json:"barcode"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var (
		p   catalog.Product
		err error
	)
	switch {
	case req.ProductID != "":
		p, err = s.Catalog.Get(r.Context(), req.ProductID)
	case req.Barcode != "":
		p, err = s.Catalog.GetByBarcode(r.Context(), req.Barcode)
	default:
		writeError(w, http.StatusBadRequest, errors.New("product_id or barcode is required"))
		return
	}
	if err != nil {
		writeError(w, productErrStatus(err), err)
		return
	}

	sd := s.sessions.get(sessionFrom(r.Context()).Token)
	sd.mu.Lock()
	defer sd.mu.Unlock()
	if err := sd.cart.Add(p); err != nil {
		writeError(w, cartErrStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, cartView(sd.cart))
}

func (s *Server) handleSetCartQuantity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sd := s.sessions.get(sessionFrom(r.Context()).Token)
	sd.mu.Lock()
	defer sd.mu.Unlock()
	if err := sd.cart.SetQuantity(r.PathValue("id"), req.Quantity); err != nil {
		writeError(w, cartErrStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, cartView(sd.cart))
}

func (s *Server) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	sd := s.sessions.get(sessionFrom(r.Context()).Token)
	sd.mu.Lock()
	defer sd.mu.Unlock()
	sd.cart.Remove(r.PathValue("id"))
	writeJSON(w, http.StatusOK, cartView(sd.cart))
}
