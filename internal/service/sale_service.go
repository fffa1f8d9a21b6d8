package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"stockflow/internal/cart"
	"stockflow/internal/catalog"
	"stockflow/internal/models"
	"stockflow/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrCartNotFound is returned for operations on an unknown cart session.
var ErrCartNotFound = errors.New("cart not found")

const receiptTTL = 24 * time.Hour

// ReceiptCache stores committed receipts keyed by idempotency key. A nil
// ReceiptCache disables duplicate-commit detection.
type ReceiptCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// SaleService owns the cart sessions of in-progress sales. A single mutex
// serializes all cart mutations, which satisfies the one-action-at-a-time
// contract each cart requires.
type SaleService struct {
	catalog  catalog.Catalog
	view     *CatalogView
	events   Events
	receipts ReceiptCache
	logger   *zap.Logger

	mu    sync.Mutex
	carts map[string]*cart.Cart
}

// NewSaleService creates a sale service. events and receipts may be nil.
func NewSaleService(cat catalog.Catalog, view *CatalogView, events Events, receipts ReceiptCache) *SaleService {
	return &SaleService{
		catalog:  cat,
		view:     view,
		events:   events,
		receipts: receipts,
		logger:   util.GetLogger(),
		carts:    make(map[string]*cart.Cart),
	}
}

// CartState is the UI-facing view of one cart session.
type CartState struct {
	ID    string          `json:"id"`
	Lines []cart.LineItem `json:"lines"`
	Total int64           `json:"total"`
}

func (s *SaleService) state(id string, c *cart.Cart) CartState {
	return CartState{ID: id, Lines: c.Lines(), Total: c.Total()}
}

// OpenCart starts a new empty sale session and returns its id.
func (s *SaleService) OpenCart() CartState {
	id := uuid.New().String()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[id] = cart.New()
	s.logger.Info("Cart opened", zap.String("cart_id", id))
	return s.state(id, s.carts[id])
}

// Cart returns the current state of a session.
func (s *SaleService) Cart(cartID string) (CartState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.carts[cartID]
	if !ok {
		return CartState{}, fmt.Errorf("%w: %s", ErrCartNotFound, cartID)
	}
	return s.state(cartID, c), nil
}

// AddItem adds quantity of a product to the cart, merging with an
// existing line for the same product. The stock check runs against the
// product as it appears in the live catalog snapshot, not against any
// copy stored in the cart.
func (s *SaleService) AddItem(ctx context.Context, cartID, productCode string, quantity int, salePrice int64) (CartState, error) {
	_, span := util.StartSpan(ctx, "SaleService.AddItem")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.carts[cartID]
	if !ok {
		return CartState{}, fmt.Errorf("%w: %s", ErrCartNotFound, cartID)
	}

	product, ok := s.view.FindByBarcode(productCode)
	if !ok {
		util.CartAddsRejectedTotal.WithLabelValues("product_not_found").Inc()
		return CartState{}, fmt.Errorf("%w: %s", catalog.ErrNotFound, productCode)
	}

	if err := c.Add(product, quantity, salePrice); err != nil {
		switch {
		case errors.Is(err, cart.ErrInsufficientStock):
			util.CartAddsRejectedTotal.WithLabelValues("insufficient_stock").Inc()
		case errors.Is(err, cart.ErrInvalidQuantity):
			util.CartAddsRejectedTotal.WithLabelValues("invalid_quantity").Inc()
		}
		return CartState{}, err
	}

	util.CartAddsTotal.Inc()
	return s.state(cartID, c), nil
}

// RemoveItem drops a line from the cart; removing an absent line is a
// no-op.
func (s *SaleService) RemoveItem(cartID, productID string) (CartState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.carts[cartID]
	if !ok {
		return CartState{}, fmt.Errorf("%w: %s", ErrCartNotFound, cartID)
	}
	c.RemoveLine(productID)
	return s.state(cartID, c), nil
}

// Abandon discards a session without committing.
func (s *SaleService) Abandon(cartID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.carts[cartID]; !ok {
		return fmt.Errorf("%w: %s", ErrCartNotFound, cartID)
	}
	delete(s.carts, cartID)
	s.logger.Info("Cart abandoned", zap.String("cart_id", cartID))
	return nil
}

// Commit finalizes a sale: one stock decrement per line, best effort and
// independent per line, then the cart is emptied no matter what. When an
// idempotency key is supplied and redis is available, a repeated commit
// returns the stored receipt instead of decrementing twice.
func (s *SaleService) Commit(ctx context.Context, cartID, idempotencyKey string) (*cart.Receipt, error) {
	ctx, span := util.StartSpan(ctx, "SaleService.Commit")
	defer span.End()

	start := time.Now()
	defer func() {
		util.SaleCommitLatency.Observe(time.Since(start).Seconds())
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	// The duplicate check runs under the same mutex as the commit itself,
	// so two commits carrying the same key cannot both miss and decrement.
	if idempotencyKey != "" && s.receipts != nil {
		if cached, ok, err := s.receipts.Get(ctx, "receipt:"+idempotencyKey); err != nil {
			s.logger.Warn("Idempotency lookup failed", zap.Error(err))
		} else if ok {
			var receipt cart.Receipt
			if err := json.Unmarshal([]byte(cached), &receipt); err == nil {
				s.logger.Info("Duplicate commit request detected",
					zap.String("idempotency_key", idempotencyKey),
					zap.String("receipt_id", receipt.ID))
				return &receipt, nil
			}
		}
	}

	c, ok := s.carts[cartID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCartNotFound, cartID)
	}

	receipt, err := c.Commit(ctx, s.catalog)
	if err != nil {
		return nil, err
	}

	util.SalesCompletedTotal.Inc()
	lines := make([]models.SaleLineData, 0, len(receipt.Outcomes))
	for _, outcome := range receipt.Outcomes {
		if !outcome.Applied {
			util.SaleLinesFailedTotal.Inc()
			s.logger.Error("Stock decrement did not apply",
				zap.String("cart_id", cartID),
				zap.String("product_id", outcome.ProductID),
				zap.String("error", outcome.Error))
		}
		lines = append(lines, models.SaleLineData{
			ProductID: outcome.ProductID,
			Name:      outcome.Name,
			Quantity:  outcome.Quantity,
			SalePrice: outcome.SalePrice,
			Applied:   outcome.Applied,
			Error:     outcome.Error,
		})
	}

	s.logger.Info("Sale completed",
		zap.String("cart_id", cartID),
		zap.String("receipt_id", receipt.ID),
		zap.Int64("total", receipt.Total))

	if idempotencyKey != "" && s.receipts != nil {
		if data, err := json.Marshal(receipt); err == nil {
			if err := s.receipts.Set(ctx, "receipt:"+idempotencyKey, string(data), receiptTTL); err != nil {
				s.logger.Warn("Failed to store receipt for idempotency", zap.Error(err))
			}
		}
	}

	if s.events != nil {
		event := &models.SaleCompletedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeSaleCompleted,
				Timestamp: time.Now(),
			},
			ReceiptID: receipt.ID,
			CartID:    cartID,
			Total:     receipt.Total,
			Lines:     lines,
		}
		if err := s.events.PublishSaleCompleted(ctx, event); err != nil {
			s.logger.Error("Failed to publish SaleCompleted event", zap.Error(err))
		}
	}

	return receipt, nil
}

// HandleScan routes a decoded barcode into a cart: one unit at MRP, the
// way a register scan behaves. Unknown codes are logged and counted, not
// fatal.
func (s *SaleService) HandleScan(ctx context.Context, cartID, code string) {
	if _, ok := s.view.FindByBarcode(code); !ok {
		util.BarcodesScannedTotal.WithLabelValues("not_found").Inc()
		s.logger.Warn("Scanned barcode not in catalog", zap.String("barcode", code))
		return
	}

	state, err := s.AddItem(ctx, cartID, code, 1, 0)
	if err != nil {
		util.BarcodesScannedTotal.WithLabelValues("rejected").Inc()
		s.logger.Warn("Scanned item rejected",
			zap.String("barcode", code),
			zap.Error(err))
		return
	}

	util.BarcodesScannedTotal.WithLabelValues("added").Inc()
	s.logger.Info("Scanned item added to cart",
		zap.String("barcode", code),
		zap.String("cart_id", cartID),
		zap.Int64("cart_total", state.Total))
}
