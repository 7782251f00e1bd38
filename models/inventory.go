package models

import (
	"time"

	"github.com/google/uuid"
)

// Inventory tracks the available and reserved unit counts for a product.
// Counters only move through the ledger's reserve/release/commit operations.
type Inventory struct {
	ProductID uuid.UUID `gorm:"type:uuid;primaryKey" json:"product_id"`
	Available int       `gorm:"not null;default:0" json:"available"`
	Reserved  int       `gorm:"not null;default:0" json:"reserved"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type ReservationStatus string

const (
	ReservationStatusHeld      ReservationStatus = "HELD"
	ReservationStatusReleased  ReservationStatus = "RELEASED"
	ReservationStatusCommitted ReservationStatus = "COMMITTED"
)

// Reservation is a temporary hold on stock units for one order line. Its
// status is the idempotency anchor for release and commit: counters move at
// most once per reservation.
type Reservation struct {
	ID        uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID   uuid.UUID         `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID uuid.UUID         `gorm:"type:uuid;not null;index" json:"product_id"`
	Quantity  int               `gorm:"not null" json:"quantity"`
	Status    ReservationStatus `gorm:"type:varchar(20);not null;default:'HELD'" json:"status"`
	CreatedAt time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

// SetStockRequest adds stock for a product (upsert). Reserved counts are
// never touched by stock loads.
type SetStockRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Available int       `json:"available" binding:"required,min=1"`
}
