package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const productColumns = `id, name, price, stock, barcode, coalesce(image_url,''), created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.Barcode, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrProductNotFound
	}
	return p, err
}

func (s *Store) Create(ctx context.Context, in ProductInput) (Product, error) {
	if err := in.Validate(); err != nil {
		return Product{}, err
	}
	id := uuid.NewString()
	row := s.pool.QueryRow(ctx, `INSERT INTO products(id, name, price, stock, barcode, image_url)
		VALUES ($1, $2, $3, $4, $5, nullif($6,''))
		RETURNING `+productColumns, id, in.Name, in.Price, in.Stock, in.Barcode, in.ImageURL)
	p, err := scanProduct(row)
	if isUniqueViolation(err) {
		return Product{}, ErrBarcodeTaken
	}
	return p, err
}

func (s *Store) Update(ctx context.Context, id string, in ProductInput) (Product, error) {
	if err := in.Validate(); err != nil {
		return Product{}, err
	}
	row := s.pool.QueryRow(ctx, `UPDATE products SET name=$2, price=$3, stock=$4, barcode=$5, image_url=nullif($6,''), updated_at=now()
		WHERE id=$1
		RETURNING `+productColumns, id, in.Name, in.Price, in.Stock, in.Barcode, in.ImageURL)
	p, err := scanProduct(row)
	if isUniqueViolation(err) {
		return Product{}, ErrBarcodeTaken
	}
	return p, err
}

func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (Product, error) {
	return scanProduct(s.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id))
}

func (s *Store) GetByBarcode(ctx context.Context, barcode string) (Product, error) {
	return scanProduct(s.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE barcode=$1`, barcode))
}

// List returns products ordered by name. A non-empty search term filters on
// name or barcode substring, the way the POS page filters its grid.
func (s *Store) List(ctx context.Context, search string) ([]Product, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if strings.TrimSpace(search) != "" {
		pattern := "%" + strings.TrimSpace(search) + "%"
		rows, err = s.pool.Query(ctx, `SELECT `+productColumns+` FROM products
			WHERE name ILIKE $1 OR barcode ILIKE $1 ORDER BY name ASC`, pattern)
	} else {
		rows, err = s.pool.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY name ASC`)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

// LowStock returns the products nearest to running out, lowest first.
func (s *Store) LowStock(ctx context.Context, threshold, limit int) ([]Product, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+productColumns+` FROM products
		WHERE stock <= $1 ORDER BY stock ASC LIMIT $2`, threshold, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM products`).Scan(&n)
	return n, err
}

// SetStock writes an absolute stock value computed by the caller from its
// last-observed snapshot. Last write wins; there is no compare-and-swap.
func (s *Store) SetStock(ctx context.Context, id string, stock int) error {
	tag, err := s.pool.Exec(ctx, `UPDATE products SET stock=$2, updated_at=now() WHERE id=$1`, id, stock)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func collectProducts(rows pgx.Rows) ([]Product, error) {
	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.Barcode, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(strings.ToLower(err.Error()), "duplicate") || strings.Contains(strings.ToLower(err.Error()), "unique")
}
