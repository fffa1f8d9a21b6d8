package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"stockflow/internal/models"
)

// MemoryCatalog is a mutex-guarded in-memory backend. It is used by tests,
// for local development (CATALOG_BACKEND=memory) and as the degraded state
// when no external store is reachable.
type MemoryCatalog struct {
	mu       sync.Mutex
	products map[string]*models.Product
	order    []string
	hub      *hub
}

// NewMemoryCatalog creates an in-memory catalog, optionally seeded.
func NewMemoryCatalog(seed ...models.Product) *MemoryCatalog {
	m := &MemoryCatalog{
		products: make(map[string]*models.Product),
		hub:      newHub(),
	}
	for _, p := range seed {
		if p.CreatedAt.IsZero() {
			p.CreatedAt = time.Now()
		}
		cp := p
		m.products[p.ID] = &cp
		m.order = append(m.order, p.ID)
	}
	return m
}

// Snapshot returns all products in insertion order.
func (m *MemoryCatalog) Snapshot(ctx context.Context) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked(), nil
}

func (m *MemoryCatalog) snapshotLocked() []models.Product {
	out := make([]models.Product, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.products[id])
	}
	return out
}

// Subscribe registers fn and delivers the current snapshot immediately.
func (m *MemoryCatalog) Subscribe(fn func([]models.Product)) func() {
	unsubscribe := m.hub.subscribe(fn)

	m.mu.Lock()
	snapshot := m.snapshotLocked()
	m.mu.Unlock()
	fn(snapshot)

	return unsubscribe
}

// Create stores a new product.
func (m *MemoryCatalog) Create(ctx context.Context, p models.Product) error {
	m.mu.Lock()
	if _, ok := m.products[p.ID]; ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateID, p.ID)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	cp := p
	m.products[p.ID] = &cp
	m.order = append(m.order, p.ID)
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.hub.publish(snapshot)
	return nil
}

// Update merges patch fields into the record.
func (m *MemoryCatalog) Update(ctx context.Context, id string, patch models.ProductPatch) error {
	m.mu.Lock()
	p, ok := m.products[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.MRP != nil {
		p.MRP = *patch.MRP
	}
	if patch.CostPriceCode != nil {
		p.CostPriceCode = *patch.CostPriceCode
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	if patch.LowInventoryFactor != nil {
		p.LowInventoryFactor = *patch.LowInventoryFactor
	}
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.hub.publish(snapshot)
	return nil
}

// DecrementStock subtracts qty, guarded against going negative.
func (m *MemoryCatalog) DecrementStock(ctx context.Context, id string, qty int) error {
	m.mu.Lock()
	p, ok := m.products[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if p.Stock < qty {
		m.mu.Unlock()
		return fmt.Errorf("%w: have %d, requested %d", ErrInsufficientStock, p.Stock, qty)
	}
	p.Stock -= qty
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.hub.publish(snapshot)
	return nil
}

// Close is a no-op for the in-memory backend.
func (m *MemoryCatalog) Close() error {
	return nil
}
