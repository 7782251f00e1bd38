package repository

import (
	"context"
	"errors"
	"time"

	"checkout-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	UpdateStatusIf(ctx context.Context, id uuid.UUID, from, to models.PaymentStatus, transactionID *string) (bool, error)
}

type gormPaymentRepo struct {
	db *gorm.DB
}

func NewGormPaymentRepository(db *gorm.DB) PaymentRepository {
	return &gormPaymentRepo{db: db}
}

// Create inserts a payment. The unique index on order_id enforces the one
// payment per order rule; violations surface as ErrDuplicate.
func (r *gormPaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	err := r.db.WithContext(ctx).Create(payment).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

func (r *gormPaymentRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).First(&payment, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *gormPaymentRepo) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// UpdateStatusIf flips the payment status only when the current status matches
// from. Exactly one of any set of concurrent callers observes true.
func (r *gormPaymentRepo) UpdateStatusIf(ctx context.Context, id uuid.UUID, from, to models.PaymentStatus, transactionID *string) (bool, error) {
	updates := map[string]interface{}{"status": to, "updated_at": time.Now().UTC()}
	if transactionID != nil {
		updates["transaction_id"] = transactionID
	}
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
