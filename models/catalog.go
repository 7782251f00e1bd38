package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CatalogProduct is the catalog service's view of a product. It is read-only
// here; the price is snapshotted into order items at creation time and the
// ledger keeps its own stock counters.
type CatalogProduct struct {
	ID       uuid.UUID       `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock"`
	IsActive bool            `json:"is_active"`
}
