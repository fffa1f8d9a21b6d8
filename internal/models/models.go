package models

import "time"

// Product is a catalog entry. The document id equals the barcode at
// creation time and never changes afterwards.
type Product struct {
	ID                 string    `db:"id" json:"id" firestore:"-"`
	Barcode            string    `db:"barcode" json:"barcode" firestore:"barcode"`
	EAN                string    `db:"ean" json:"ean" firestore:"ean"`
	Name               string    `db:"name" json:"name" firestore:"name"`
	Description        string    `db:"description" json:"description" firestore:"description"`
	MRP                int64     `db:"mrp" json:"mrp" firestore:"mrp"`
	CostPriceCode      string    `db:"cost_price_code" json:"cost_price_code" firestore:"costPriceCode"`
	Stock              int       `db:"stock" json:"stock" firestore:"stock"`
	LowInventoryFactor int       `db:"low_inventory_factor" json:"low_inventory_factor" firestore:"lowInventoryFactor"`
	CreatedAt          time.Time `db:"created_at" json:"created_at" firestore:"createdAt"`
}

// ProductPatch carries a partial update; nil fields are left untouched.
type ProductPatch struct {
	Name               *string `json:"name,omitempty"`
	Description        *string `json:"description,omitempty"`
	MRP                *int64  `json:"mrp,omitempty"`
	CostPriceCode      *string `json:"cost_price_code,omitempty"`
	Stock              *int    `json:"stock,omitempty"`
	LowInventoryFactor *int    `json:"low_inventory_factor,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p ProductPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.MRP == nil &&
		p.CostPriceCode == nil && p.Stock == nil && p.LowInventoryFactor == nil
}
