package service

import (
	"sync"

	"stockflow/internal/catalog"
	"stockflow/internal/models"
)

// CatalogView keeps the last snapshot pushed by the catalog subscription.
// Barcode resolution is served from here, client-side, with no store
// round trip; when the catalog is unreachable the view simply keeps
// serving the last (possibly empty) snapshot.
type CatalogView struct {
	mu          sync.RWMutex
	products    []models.Product
	unsubscribe func()
}

// NewCatalogView subscribes to the catalog and tracks its snapshots.
func NewCatalogView(c catalog.Catalog) *CatalogView {
	v := &CatalogView{}
	v.unsubscribe = c.Subscribe(v.onChange)
	return v
}

func (v *CatalogView) onChange(products []models.Product) {
	v.mu.Lock()
	v.products = products
	v.mu.Unlock()
}

// Products returns a copy of the last snapshot.
func (v *CatalogView) Products() []models.Product {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]models.Product, len(v.products))
	copy(out, v.products)
	return out
}

// FindByBarcode resolves a product by barcode or id from the last
// snapshot.
func (v *CatalogView) FindByBarcode(code string) (models.Product, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, p := range v.products {
		if p.Barcode == code || p.ID == code {
			return p, true
		}
	}
	return models.Product{}, false
}

// Close cancels the subscription.
func (v *CatalogView) Close() {
	if v.unsubscribe != nil {
		v.unsubscribe()
	}
}
