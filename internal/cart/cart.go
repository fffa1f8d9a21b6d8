package cart

import (
	"context"
	"errors"
	"fmt"

	"stockflow/internal/models"

	"github.com/google/uuid"
)

var (
	// ErrInsufficientStock is returned when an add would exceed the
	// product's available stock. The cart is left unchanged.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrEmptyCart is returned when committing a cart with no line items.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrInvalidQuantity is returned for quantities below one.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

// StockDecrementer applies a guarded stock decrement to the catalog. It
// must fail rather than drive stock negative.
type StockDecrementer interface {
	DecrementStock(ctx context.Context, id string, qty int) error
}

// LineItem is one row of an in-progress sale. Product is a snapshot taken
// at add time and used for display only; stock checks always run against
// the product the caller passes in, which must come from the live catalog
// snapshot.
type LineItem struct {
	Product   models.Product `json:"product"`
	Quantity  int            `json:"quantity"`
	SalePrice int64          `json:"sale_price"`
}

// LineTotal returns quantity times sale price.
func (li LineItem) LineTotal() int64 {
	return int64(li.Quantity) * li.SalePrice
}

// Outcome reports the result of one line's stock decrement during commit.
type Outcome struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	SalePrice int64  `json:"sale_price"`
	Applied   bool   `json:"applied"`
	Error     string `json:"error,omitempty"`
}

// Receipt is returned by a successful commit. Total is computed before the
// cart is cleared.
type Receipt struct {
	ID       string    `json:"id"`
	Total    int64     `json:"total"`
	Outcomes []Outcome `json:"outcomes"`
}

// Cart holds the line items of one sale session, insertion order
// preserved, at most one line per product id. It is not safe for
// concurrent use; callers serialize access per session.
type Cart struct {
	lines []*LineItem
	index map[string]*LineItem
}

// New creates an empty cart.
func New() *Cart {
	return &Cart{index: make(map[string]*LineItem)}
}

// Add appends a line item for product, or merges into the existing line
// for the same product id by summing quantities. A salePrice of zero means
// "sell at MRP"; on merge the first-add price wins. The requested total
// quantity is checked against product.Stock, so the caller must pass the
// product from the current catalog snapshot, not a stale copy.
func (c *Cart) Add(product models.Product, quantity int, salePrice int64) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	if existing, ok := c.index[product.ID]; ok {
		if existing.Quantity+quantity > product.Stock {
			return fmt.Errorf("%w: have %d, requested %d", ErrInsufficientStock, product.Stock, existing.Quantity+quantity)
		}
		existing.Quantity += quantity
		return nil
	}

	if quantity > product.Stock {
		return fmt.Errorf("%w: have %d, requested %d", ErrInsufficientStock, product.Stock, quantity)
	}

	if salePrice <= 0 {
		salePrice = product.MRP
	}

	line := &LineItem{Product: product, Quantity: quantity, SalePrice: salePrice}
	c.lines = append(c.lines, line)
	c.index[product.ID] = line
	return nil
}

// RemoveLine drops the line for productID. Removing an absent line is a
// no-op.
func (c *Cart) RemoveLine(productID string) {
	if _, ok := c.index[productID]; !ok {
		return
	}
	delete(c.index, productID)
	for i, line := range c.lines {
		if line.Product.ID == productID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			break
		}
	}
}

// Total returns the sum of quantity*salePrice over all lines, recomputed
// on every call.
func (c *Cart) Total() int64 {
	var total int64
	for _, line := range c.lines {
		total += line.LineTotal()
	}
	return total
}

// Len returns the number of line items.
func (c *Cart) Len() int {
	return len(c.lines)
}

// Lines returns a copy of the line items in insertion order.
func (c *Cart) Lines() []LineItem {
	out := make([]LineItem, len(c.lines))
	for i, line := range c.lines {
		out[i] = *line
	}
	return out
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.lines = nil
	c.index = make(map[string]*LineItem)
}

// Commit finalizes the sale: one guarded stock decrement is issued per
// line, each independently, with no rollback on partial failure. The cart
// is cleared unconditionally afterwards, and the receipt carries the
// pre-clear total plus the per-line outcomes so the caller can reconcile
// which decrements applied.
func (c *Cart) Commit(ctx context.Context, catalog StockDecrementer) (*Receipt, error) {
	if len(c.lines) == 0 {
		return nil, ErrEmptyCart
	}

	receipt := &Receipt{
		ID:       uuid.New().String(),
		Total:    c.Total(),
		Outcomes: make([]Outcome, 0, len(c.lines)),
	}

	for _, line := range c.lines {
		outcome := Outcome{
			ProductID: line.Product.ID,
			Name:      line.Product.Name,
			Quantity:  line.Quantity,
			SalePrice: line.SalePrice,
			Applied:   true,
		}
		if err := catalog.DecrementStock(ctx, line.Product.ID, line.Quantity); err != nil {
			outcome.Applied = false
			outcome.Error = err.Error()
		}
		receipt.Outcomes = append(receipt.Outcomes, outcome)
	}

	c.Clear()
	return receipt, nil
}
