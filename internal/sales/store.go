package sales

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Ardhiffamada1/PointOfSale/pkg/contracts"
	"github.com/Ardhiffamada1/PointOfSale/pkg/outbox"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// RecordTransaction appends every row of one checkout in a single database
// transaction, together with the outbox event announcing it. Either all
// rows commit or none do; stock is never touched here.
func (s *Store) RecordTransaction(ctx context.Context, rows []Sale) error {
	if len(rows) == 0 {
		return fmt.Errorf("no sale rows to record")
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, row := range rows {
		_, err = tx.Exec(ctx,
			`INSERT INTO sales(id, product_id, quantity, sale_price, sale_date, payment_method, amount_paid, change_given, transaction_id, cashier_id)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, nullif($10,''))`,
			row.ID, row.ProductID, row.Quantity, row.SalePrice, row.SaleDate,
			row.PaymentMethod, row.AmountPaid, row.ChangeGiven, row.TransactionID, row.CashierID,
		)
		if err != nil {
			return err
		}
	}

	txnID := rows[0].TransactionID
	eventID := uuid.NewString()
	err = outbox.Insert(ctx, tx, eventID, contracts.TopicSales, txnID, contracts.Event{
		EventID:   eventID,
		TxnID:     txnID,
		CreatedAt: time.Now().UTC(),
		Type:      contracts.EventSaleRecorded,
		Payload: map[string]any{
			"transaction_id": txnID,
			"line_count":     len(rows),
			"payment_method": rows[0].PaymentMethod,
			"amount_paid":    rows[0].AmountPaid,
		},
	})
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// List reads the ledger newest first, joined with product names. The text
// search matches product name or sale id, as the history page does.
func (s *Store) List(ctx context.Context, f Filter) ([]Sale, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Start != nil {
		where = append(where, "s.sale_date >= "+arg(*f.Start))
	}
	if f.End != nil {
		where = append(where, "s.sale_date <= "+arg(*f.End))
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		p := arg("%" + q + "%")
		where = append(where, "(p.name ILIKE "+p+" OR s.id::text ILIKE "+p+")")
	}

	query := `SELECT s.id, s.product_id, coalesce(p.name,''), s.quantity, s.sale_price, s.sale_date,
		s.payment_method, s.amount_paid, s.change_given, s.transaction_id, coalesce(s.cashier_id::text,'')
		FROM sales s LEFT JOIN products p ON p.id = s.product_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY s.sale_date DESC"
	if f.Limit > 0 {
		query += " LIMIT " + arg(f.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSales(rows)
}

// ListSince returns rows with SaleDate at or after the cutoff, oldest
// first. Reporting recomputes its aggregates from these rows each call.
func (s *Store) ListSince(ctx context.Context, since time.Time) ([]Sale, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT s.id, s.product_id, coalesce(p.name,''), s.quantity, s.sale_price, s.sale_date,
		 s.payment_method, s.amount_paid, s.change_given, s.transaction_id, coalesce(s.cashier_id::text,'')
		 FROM sales s LEFT JOIN products p ON p.id = s.product_id
		 WHERE s.sale_date >= $1 ORDER BY s.sale_date ASC`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSales(rows)
}

func (s *Store) ListAll(ctx context.Context) ([]Sale, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT s.id, s.product_id, coalesce(p.name,''), s.quantity, s.sale_price, s.sale_date,
		 s.payment_method, s.amount_paid, s.change_given, s.transaction_id, coalesce(s.cashier_id::text,'')
		 FROM sales s LEFT JOIN products p ON p.id = s.product_id ORDER BY s.sale_date ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSales(rows)
}

func collectSales(rows pgx.Rows) ([]Sale, error) {
	var out []Sale
	for rows.Next() {
		var row Sale
		if err := rows.Scan(&row.ID, &row.ProductID, &row.ProductName, &row.Quantity, &row.SalePrice, &row.SaleDate,
			&row.PaymentMethod, &row.AmountPaid, &row.ChangeGiven, &row.TransactionID, &row.CashierID); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
