package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus is the payment lifecycle state. The only legal edges are
// PENDING -> PAID and PAID -> REFUNDED; REFUNDED is terminal.
type PaymentStatus string

const (
	// PaymentStatusPending is the initial state of every payment.
	PaymentStatusPending PaymentStatus = "PENDING"
	// PaymentStatusPaid means funds were captured; inventory reservations for
	// the order are committed when this state is reached.
	PaymentStatusPaid PaymentStatus = "PAID"
	// PaymentStatusRefunded is terminal. Refunds do not restock inventory.
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusRefunded:
		return true
	}
	return false
}

// CanTransitionTo reports whether the edge s -> target is in the transition
// table. Self-transitions are not edges; callers surface those as
// already-in-state.
func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	switch s {
	case PaymentStatusPending:
		return target == PaymentStatusPaid
	case PaymentStatusPaid:
		return target == PaymentStatusRefunded
	default:
		return false
	}
}

// ParsePaymentStatus accepts the wire form of a status, case-insensitively.
func ParsePaymentStatus(s string) (PaymentStatus, bool) {
	st := PaymentStatus(strings.ToUpper(strings.TrimSpace(s)))
	return st, st.Valid()
}

type PaymentProvider string

const (
	PaymentProviderManual PaymentProvider = "manual"
	PaymentProviderPaypal PaymentProvider = "paypal"
	PaymentProviderStripe PaymentProvider = "stripe"
	PaymentProviderMpesa  PaymentProvider = "mpesa"
)

func ParsePaymentProvider(s string) (PaymentProvider, bool) {
	if s == "" {
		return PaymentProviderManual, true
	}
	p := PaymentProvider(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case PaymentProviderManual, PaymentProviderPaypal, PaymentProviderStripe, PaymentProviderMpesa:
		return p, true
	}
	return "", false
}

// Payment is 1:1 with an order (unique order_id). Amount and currency are
// copied from the order at creation time. Payments are never deleted;
// REFUNDED is a terminal state, not a removal.
type Payment struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID       uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null" json:"order_id"`
	OwnerID       uuid.UUID       `gorm:"type:uuid;index;not null" json:"owner_id"`
	Amount        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency      string          `gorm:"type:varchar(3);not null" json:"currency"`
	Provider      PaymentProvider `gorm:"type:varchar(20);not null;default:'manual'" json:"provider"`
	TransactionID *string         `gorm:"type:varchar(255)" json:"transaction_id,omitempty"`
	Status        PaymentStatus   `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
