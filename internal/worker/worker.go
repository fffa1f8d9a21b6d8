package worker

import (
	"context"
	"time"

	"stockflow/internal/broker"
	"stockflow/internal/catalog"
	"stockflow/internal/inventory"
	"stockflow/internal/models"
	"stockflow/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LowStockWorker re-derives the low-stock set after every completed sale
// and publishes an alert event when any product sits at or below its
// reorder threshold.
type LowStockWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	catalog      catalog.Catalog
	publisher    *broker.EventPublisher
	logger       *zap.Logger
}

// NewLowStockWorker creates a low-stock worker. publisher may be nil to
// only log alerts.
func NewLowStockWorker(consumer *broker.Consumer, cat catalog.Catalog, publisher *broker.EventPublisher) *LowStockWorker {
	w := &LowStockWorker{
		consumer:  consumer,
		catalog:   cat,
		publisher: publisher,
		logger:    util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnSaleCompleted(w.handleSaleCompleted)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker.
func (w *LowStockWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting low-stock worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker.
func (w *LowStockWorker) Stop() error {
	w.logger.Info("Stopping low-stock worker")
	return w.consumer.Close()
}

func (w *LowStockWorker) handleSaleCompleted(ctx context.Context, event *models.SaleCompletedEvent) error {
	products, err := w.catalog.Snapshot(ctx)
	if err != nil {
		return err
	}

	alerts := inventory.Classify(products)
	util.LowStockProducts.Set(float64(len(alerts)))
	if len(alerts) == 0 {
		return nil
	}

	data := make([]models.LowStockData, 0, len(alerts))
	for _, alert := range alerts {
		w.logger.Warn("Product low on stock",
			zap.String("product_id", alert.Product.ID),
			zap.String("name", alert.Product.Name),
			zap.Int("stock", alert.Product.Stock),
			zap.Int("threshold", alert.Product.LowInventoryFactor),
			zap.String("status", alert.Status))
		data = append(data, models.LowStockData{
			ProductID: alert.Product.ID,
			Name:      alert.Product.Name,
			Stock:     alert.Product.Stock,
			Threshold: alert.Product.LowInventoryFactor,
			Status:    alert.Status,
		})
	}

	if w.publisher == nil {
		return nil
	}

	alertEvent := &models.LowStockDetectedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeLowStockDetected,
			Timestamp: time.Now(),
		},
		Alerts: data,
	}
	return w.publisher.PublishLowStockDetected(ctx, alertEvent)
}
