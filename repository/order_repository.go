package repository

import (
	"context"
	"errors"
	"time"

	"checkout-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderFilter narrows order listings. A nil OwnerID means no owner scoping
// (admin listing). Page and Limit are expected to be normalized by the caller.
type OrderFilter struct {
	OwnerID *uuid.UUID
	Status  *models.OrderStatus
	Page    int
	Limit   int
}

// OrderRepository defines the interface for order data access
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	Find(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error)
	FindByIdempotencyKey(ctx context.Context, ownerID uuid.UUID, key string) (*models.Order, error)
	UpdateStatusIf(ctx context.Context, id uuid.UUID, from, to models.OrderStatus, canceledAt *time.Time) (bool, error)
}

// GormOrderRepository implements OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new instance of GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) OrderRepository {
	return &GormOrderRepository{db: db}
}

// Create persists an order together with its line items.
func (r *GormOrderRepository) Create(ctx context.Context, order *models.Order) error {
	err := r.db.WithContext(ctx).Create(order).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

// FindByID retrieves an order with its items in insertion order.
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Find retrieves orders matching the filter with pagination, newest first.
func (r *GormOrderRepository) Find(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error) {
	var orders []models.Order
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Order{})
	if filter.OwnerID != nil {
		query = query.Where("owner_id = ?", *filter.OwnerID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Offset(offset).
		Limit(filter.Limit).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// FindByIdempotencyKey retrieves the order previously created by the same
// owner under the same idempotency key.
func (r *GormOrderRepository) FindByIdempotencyKey(ctx context.Context, ownerID uuid.UUID, key string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("owner_id = ? AND idempotency_key = ?", ownerID, key).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateStatusIf flips the order status only when the current status matches
// from. Returns whether this call performed the update, so concurrent callers
// can tell who won.
func (r *GormOrderRepository) UpdateStatusIf(ctx context.Context, id uuid.UUID, from, to models.OrderStatus, canceledAt *time.Time) (bool, error) {
	updates := map[string]interface{}{"status": to, "updated_at": time.Now().UTC()}
	if canceledAt != nil {
		updates["canceled_at"] = canceledAt
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
