package catalog

import (
	"errors"
	"time"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrNameRequired    = errors.New("product name is required")
	ErrBarcodeRequired = errors.New("product barcode is required")
	ErrBarcodeTaken    = errors.New("product with this barcode already exists")
	ErrPriceInvalid    = errors.New("product price must be positive")
	ErrStockInvalid    = errors.New("product stock must be zero or positive")
)

// Product prices are held in minor currency units (no fractional amounts).
type Product struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Price     int64     `json:"price"`
	Stock     int       `json:"stock"`
	Barcode   string    `json:"barcode"`
	ImageURL  string    `json:"image_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ProductInput struct {
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Stock    int    `json:"stock"`
	Barcode  string `json:"barcode"`
	ImageURL string `json:"image_url,omitempty"`
}

func (in ProductInput) Validate() error {
	if in.Name == "" {
		return ErrNameRequired
	}
	if in.Price <= 0 {
		return ErrPriceInvalid
	}
	if in.Stock < 0 {
		return ErrStockInvalid
	}
	if in.Barcode == "" {
		return ErrBarcodeRequired
	}
	return nil
}
