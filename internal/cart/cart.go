package cart

import (
	"errors"

	"github.com/Ardhiffamada1/PointOfSale/internal/catalog"
)

var (
	ErrOutOfStock        = errors.New("product is out of stock")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrExceedsStock      = errors.New("quantity exceeds stock")
	ErrLineNotFound      = errors.New("product is not in the cart")
)

// Line pairs a product snapshot, taken when the line was created, with the
// requested quantity. The snapshot price is what the sale will be recorded
// at, regardless of later catalog changes.
type Line struct {
	Product  catalog.Product `json:"product"`
	Quantity int             `json:"quantity"`
}

func (l Line) Subtotal() int64 {
	return l.Product.Price * int64(l.Quantity)
}

// Cart holds the lines of one session in insertion order. The stock ceiling
// is enforced against the snapshot held in each line; server-side stock may
// move underneath it between snapshot and checkout.
type Cart struct {
	lines []Line
}

func New() *Cart {
	return &Cart{}
}

// Add puts one unit of the product in the cart. An existing line is
// incremented only while it stays within the snapshot stock; a new line
// requires stock to begin with. Rejections leave the cart unchanged.
func (c *Cart) Add(p catalog.Product) error {
	for i, l := range c.lines {
		if l.Product.ID == p.ID {
			if l.Quantity+1 > l.Product.Stock {
				return ErrInsufficientStock
			}
			c.lines[i].Quantity++
			return nil
		}
	}
	if p.Stock <= 0 {
		return ErrOutOfStock
	}
	c.lines = append(c.lines, Line{Product: p, Quantity: 1})
	return nil
}

// SetQuantity replaces a line's quantity. Zero or less removes the line;
// more than the snapshot stock is rejected and the previous quantity kept.
func (c *Cart) SetQuantity(productID string, qty int) error {
	for i, l := range c.lines {
		if l.Product.ID != productID {
			continue
		}
		if qty <= 0 {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return nil
		}
		if qty > l.Product.Stock {
			return ErrExceedsStock
		}
		c.lines[i].Quantity = qty
		return nil
	}
	return ErrLineNotFound
}

func (c *Cart) Remove(productID string) {
	for i, l := range c.lines {
		if l.Product.ID == productID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

func (c *Cart) Total() int64 {
	var sum int64
	for _, l := range c.lines {
		sum += l.Subtotal()
	}
	return sum
}

// Lines returns a copy; mutating it does not touch the cart.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Len() int {
	return len(c.lines)
}

func (c *Cart) Empty() bool {
	return len(c.lines) == 0
}

func (c *Cart) Clear() {
	c.lines = nil
}
