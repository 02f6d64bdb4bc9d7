package sales

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// LedgerReader is the slice of the sales store reporting needs.
type LedgerReader interface {
	ListAll(ctx context.Context) ([]Sale, error)
	ListSince(ctx context.Context, since time.Time) ([]Sale, error)
}

// ProductCounter reports how many products exist in the catalog.
type ProductCounter interface {
	Count(ctx context.Context) (int, error)
}

type RevenueSummary struct {
	TotalRevenue             int64   `json:"total_revenue"`
	RevenueToday             int64   `json:"revenue_today"`
	AverageRevenuePerProduct float64 `json:"average_revenue_per_product"`
}

type DailyRevenue struct {
	Date    string `json:"date"`
	Revenue int64  `json:"revenue"`
}

// Reporter derives read-only views from the sale ledger and product table.
// Every view recomputes from scratch on each call; nothing is cached.
type Reporter struct {
	ledger   LedgerReader
	products ProductCounter
	now      func() time.Time
}

func NewReporter(ledger LedgerReader, products ProductCounter) *Reporter {
	return &Reporter{ledger: ledger, products: products, now: time.Now}
}

func (r *Reporter) Revenue(ctx context.Context) (RevenueSummary, error) {
	rows, err := r.ledger.ListAll(ctx)
	if err != nil {
		return RevenueSummary{}, err
	}
	var total int64
	for _, s := range rows {
		total += s.Revenue()
	}

	dayStart, dayEnd := dayBounds(r.now())
	todayRows, err := r.ledger.ListSince(ctx, dayStart)
	if err != nil {
		return RevenueSummary{}, err
	}
	var today int64
	for _, s := range todayRows {
		if !s.SaleDate.Before(dayStart) && s.SaleDate.Before(dayEnd) {
			today += s.Revenue()
		}
	}

	count, err := r.products.Count(ctx)
	if err != nil {
		return RevenueSummary{}, err
	}
	avg := float64(0)
	if count > 0 {
		d := decimal.NewFromInt(total).Div(decimal.NewFromInt(int64(count)))
		avg = d.Round(2).InexactFloat64()
	}

	return RevenueSummary{TotalRevenue: total, RevenueToday: today, AverageRevenuePerProduct: avg}, nil
}

// DailyTrend sums per-day revenue for the last 30 days, ascending by date.
// Days with no sales simply do not appear.
func (r *Reporter) DailyTrend(ctx context.Context) ([]DailyRevenue, error) {
	cutoff := r.now().Add(-30 * 24 * time.Hour)
	rows, err := r.ledger.ListSince(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	perDay := map[string]int64{}
	for _, s := range rows {
		date := s.SaleDate.Format("2006-01-02")
		perDay[date] += s.Revenue()
	}
	dates := make([]string, 0, len(perDay))
	for d := range perDay {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	out := make([]DailyRevenue, 0, len(dates))
	for _, d := range dates {
		out = append(out, DailyRevenue{Date: d, Revenue: perDay[d]})
	}
	return out, nil
}

// dayBounds returns [start of t's calendar day, start of the next day).
func dayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}
