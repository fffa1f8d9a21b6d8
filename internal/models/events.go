package models

import "time"

// Event types
const (
	EventTypeSaleCompleted    = "SALE_COMPLETED"
	EventTypeProductCreated   = "PRODUCT_CREATED"
	EventTypeLowStockDetected = "LOW_STOCK_DETECTED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// SaleLineData describes one committed cart line and whether its stock
// decrement actually applied.
type SaleLineData struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	SalePrice int64  `json:"sale_price"`
	Applied   bool   `json:"applied"`
	Error     string `json:"error,omitempty"`
}

// SaleCompletedEvent published when a cart is committed
type SaleCompletedEvent struct {
	BaseEvent
	ReceiptID string         `json:"receipt_id"`
	CartID    string         `json:"cart_id"`
	Total     int64          `json:"total"`
	Lines     []SaleLineData `json:"lines"`
}

// ProductCreatedEvent published when a product is added to the catalog
type ProductCreatedEvent struct {
	BaseEvent
	Product Product `json:"product"`
}

// LowStockData describes one product at or below its reorder threshold.
type LowStockData struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Stock     int    `json:"stock"`
	Threshold int    `json:"threshold"`
	Status    string `json:"status"`
}

// LowStockDetectedEvent published after a sale leaves products low or out
// of stock.
type LowStockDetectedEvent struct {
	BaseEvent
	Alerts []LowStockData `json:"alerts"`
}
