package catalog

import (
	"sync"

	"stockflow/internal/models"
)

// hub fans full catalog snapshots out to subscribers. Backends publish
// after every mutation (or from their native change listener).
type hub struct {
	mu   sync.Mutex
	next int
	subs map[int]func([]models.Product)
}

func newHub() *hub {
	return &hub{subs: make(map[int]func([]models.Product))}
}

func (h *hub) subscribe(fn func([]models.Product)) func() {
	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = fn
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

func (h *hub) publish(products []models.Product) {
	h.mu.Lock()
	fns := make([]func([]models.Product), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(products)
	}
}
