package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Ardhiffamada1/PointOfSale/internal/sales"
)

// handleListSales lists the ledger newest first. start/end are calendar
// days (YYYY-MM-DD); the range covers the whole of both days.
func (s *Server) handleListSales(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f sales.Filter
	f.Search = q.Get("q")
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			f.Limit = n
		}
	}
	if v := q.Get("start"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		f.Start = &t
	}
	if v := q.Get("end"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		end := t.AddDate(0, 0, 1).Add(-time.Millisecond)
		f.End = &end
	}

	rows, err := s.Sales.List(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sales": rows})
}

func (s *Server) handleRevenue(w http.ResponseWriter, r *http.Request) {
	summary, err := s.Reporter.Revenue(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	trend, err := s.Reporter.DailyTrend(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"trend": trend})
}

func (s *Server) handleLowStock(w http.ResponseWriter, r *http.Request) {
	products, err := s.Catalog.LowStock(r.Context(), 10, 5)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}
