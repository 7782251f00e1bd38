package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusCancelled:
		return true
	}
	return false
}

// NewOrderNumber returns a human-facing order reference like "ORD-3F2A9C01BD".
func NewOrderNumber() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "ORD-" + strings.ToUpper(raw[:10])
}

type Order struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderNumber     string          `gorm:"type:varchar(32);uniqueIndex;not null" json:"order_number"`
	OwnerID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"owner_id"`
	ShippingAddress string          `gorm:"type:text;not null" json:"shipping_address"`
	Currency        string          `gorm:"type:varchar(3);not null" json:"currency"`
	Subtotal        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	Tax             decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"tax"`
	GrandTotal      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"grand_total"`
	Status          OrderStatus     `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	IdempotencyKey  *string         `gorm:"type:varchar(255);uniqueIndex" json:"-"`
	CanceledAt      *time.Time      `json:"canceled_at,omitempty"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
}

// OrderItem freezes product name and unit price at order time; catalog changes
// never alter a stored order.
type OrderItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null" json:"product_id"`
	ProductName string          `gorm:"type:varchar(255);not null" json:"product_name"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	LineTotal   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"line_total"`
	Position    int             `gorm:"not null" json:"-"`
}
