package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stockflow/internal/catalog"
	"stockflow/internal/inventory"
	"stockflow/internal/lookup"
	"stockflow/internal/models"
	"stockflow/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Events publishes domain events; a nil Events disables publishing.
type Events interface {
	PublishSaleCompleted(ctx context.Context, event *models.SaleCompletedEvent) error
	PublishProductCreated(ctx context.Context, event *models.ProductCreatedEvent) error
}

// ErrLookupDisabled is returned when prefill is requested but no lookup
// client is configured.
var ErrLookupDisabled = errors.New("prefill lookup is not configured")

// ProductService handles catalog-facing business logic.
type ProductService struct {
	catalog catalog.Catalog
	view    *CatalogView
	lookup  *lookup.Client
	events  Events
	logger  *zap.Logger
}

// NewProductService creates a product service. lookup and events may be
// nil.
func NewProductService(cat catalog.Catalog, view *CatalogView, lookupClient *lookup.Client, events Events) *ProductService {
	return &ProductService{
		catalog: cat,
		view:    view,
		lookup:  lookupClient,
		events:  events,
		logger:  util.GetLogger(),
	}
}

// CreateProductRequest represents a request to add a product.
type CreateProductRequest struct {
	Barcode            string `json:"barcode" binding:"required"`
	EAN                string `json:"ean"`
	Name               string `json:"name" binding:"required"`
	Description        string `json:"description"`
	MRP                int64  `json:"mrp" binding:"min=0"`
	CostPriceCode      string `json:"cost_price_code"`
	Stock              int    `json:"stock" binding:"min=0"`
	LowInventoryFactor int    `json:"low_inventory_factor" binding:"min=0"`
}

// Create adds a product to the catalog. The barcode becomes the product
// id. A duplicate check runs against the last snapshot before the store's
// own uniqueness check, which remains the source of truth.
func (s *ProductService) Create(ctx context.Context, req *CreateProductRequest) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.Create")
	defer span.End()

	if _, exists := s.view.FindByBarcode(req.Barcode); exists {
		util.ProductCreateFailedTotal.WithLabelValues("duplicate").Inc()
		return nil, fmt.Errorf("%w: %s", catalog.ErrDuplicateID, req.Barcode)
	}

	ean := req.EAN
	if ean == "" {
		ean = req.Barcode
	}

	product := models.Product{
		ID:                 req.Barcode,
		Barcode:            req.Barcode,
		EAN:                ean,
		Name:               req.Name,
		Description:        req.Description,
		MRP:                req.MRP,
		CostPriceCode:      req.CostPriceCode,
		Stock:              req.Stock,
		LowInventoryFactor: req.LowInventoryFactor,
		CreatedAt:          time.Now(),
	}

	if err := s.catalog.Create(ctx, product); err != nil {
		if errors.Is(err, catalog.ErrDuplicateID) {
			util.ProductCreateFailedTotal.WithLabelValues("duplicate").Inc()
		} else {
			util.ProductCreateFailedTotal.WithLabelValues("store_error").Inc()
		}
		return nil, err
	}

	util.ProductsCreatedTotal.Inc()
	s.logger.Info("Product created",
		zap.String("product_id", product.ID),
		zap.String("name", product.Name))

	if s.events != nil {
		event := &models.ProductCreatedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeProductCreated,
				Timestamp: time.Now(),
			},
			Product: product,
		}
		if err := s.events.PublishProductCreated(ctx, event); err != nil {
			s.logger.Error("Failed to publish ProductCreated event", zap.Error(err))
		}
	}

	return &product, nil
}

// List returns the full catalog.
func (s *ProductService) List(ctx context.Context) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.List")
	defer span.End()

	return s.catalog.Snapshot(ctx)
}

// Update merges patch fields into a product record.
func (s *ProductService) Update(ctx context.Context, id string, patch models.ProductPatch) error {
	ctx, span := util.StartSpan(ctx, "ProductService.Update")
	defer span.End()

	return s.catalog.Update(ctx, id, patch)
}

// LowStock classifies the current catalog snapshot and returns the
// products at or below their reorder threshold.
func (s *ProductService) LowStock(ctx context.Context) ([]inventory.Alert, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.LowStock")
	defer span.End()

	products, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	alerts := inventory.Classify(products)
	util.LowStockProducts.Set(float64(len(alerts)))
	return alerts, nil
}

// Prefill fetches best-effort product details for a barcode.
func (s *ProductService) Prefill(ctx context.Context, barcode string) (*lookup.Prefill, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.Prefill")
	defer span.End()

	if s.lookup == nil {
		return nil, ErrLookupDisabled
	}
	return s.lookup.Lookup(ctx, barcode)
}
