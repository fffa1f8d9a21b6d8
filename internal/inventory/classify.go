package inventory

import "stockflow/internal/models"

// Stock statuses
const (
	StatusOutOfStock = "OUT_OF_STOCK"
	StatusLowStock   = "LOW_STOCK"
)

// Alert pairs a product with its stock status.
type Alert struct {
	Product models.Product `json:"product"`
	Status  string         `json:"status"`
}

// Classify returns the products at or below their reorder threshold, in
// input order: OUT_OF_STOCK when stock is zero, LOW_STOCK when positive
// but at or below lowInventoryFactor. Healthy products are excluded. The
// input is never mutated.
func Classify(products []models.Product) []Alert {
	var alerts []Alert
	for _, p := range products {
		switch {
		case p.Stock == 0:
			alerts = append(alerts, Alert{Product: p, Status: StatusOutOfStock})
		case p.Stock <= p.LowInventoryFactor:
			alerts = append(alerts, Alert{Product: p, Status: StatusLowStock})
		}
	}
	return alerts
}
