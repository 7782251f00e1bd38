package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type EventItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type OrderCreatedEvent struct {
	OrderID     string          `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	OwnerID     string          `json:"owner_id"`
	GrandTotal  decimal.Decimal `json:"grand_total"`
	Currency    string          `json:"currency"`
	Items       []EventItem     `json:"items"`
	Timestamp   time.Time       `json:"timestamp"`
}

type OrderCancelledEvent struct {
	OrderID   string    `json:"order_id"`
	OwnerID   string    `json:"owner_id"`
	Timestamp time.Time `json:"timestamp"`
}

type PaymentStatusChangedEvent struct {
	PaymentID string    `json:"payment_id"`
	OrderID   string    `json:"order_id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Timestamp time.Time `json:"timestamp"`
}
