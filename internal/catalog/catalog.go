// Package catalog provides the product catalog: an asynchronous store of
// product records keyed by barcode, with a live subscription that yields
// the full record set on every change. Three backends implement it:
// postgres, firestore and an in-memory store.
package catalog

import (
	"context"
	"errors"

	"stockflow/internal/models"
)

var (
	// ErrNotFound is returned when an update targets a nonexistent id.
	ErrNotFound = errors.New("product not found")

	// ErrDuplicateID is returned when creating a product whose id already
	// exists. The store's own uniqueness check is the source of truth;
	// callers may pre-check against their last snapshot but must still
	// handle this error.
	ErrDuplicateID = errors.New("product id already exists")

	// ErrInsufficientStock is returned when a decrement would drive stock
	// negative. The record is left untouched.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Catalog is the capability surface the rest of the service consumes,
// regardless of backing technology.
type Catalog interface {
	// Snapshot returns the full current product set.
	Snapshot(ctx context.Context) ([]models.Product, error)

	// Subscribe registers fn to receive the full product set whenever it
	// changes. An initial snapshot is delivered promptly after
	// subscription. The returned function cancels the subscription.
	Subscribe(fn func([]models.Product)) (unsubscribe func())

	// Create stores a new product. Fails with ErrDuplicateID when the id
	// is already taken.
	Create(ctx context.Context, p models.Product) error

	// Update merges the non-nil patch fields into the record. Fails with
	// ErrNotFound when no such id exists.
	Update(ctx context.Context, id string, patch models.ProductPatch) error

	// DecrementStock subtracts qty from the product's stock, failing with
	// ErrInsufficientStock rather than going negative.
	DecrementStock(ctx context.Context, id string, qty int) error

	// Close releases backend resources.
	Close() error
}
