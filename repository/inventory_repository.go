package repository

import (
	"context"
	"errors"
	"time"

	"checkout-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InventoryRepository defines the data access contract for stock counters and
// reservations. Counter moves are guarded conditional updates: a failed guard
// surfaces as ErrInsufficientStock or ErrConflict, never as a partial write.
type InventoryRepository interface {
	Get(ctx context.Context, productID uuid.UUID) (*models.Inventory, error)
	AddStock(ctx context.Context, productID uuid.UUID, quantity int) (*models.Inventory, error)
	ReserveStock(ctx context.Context, reservation *models.Reservation) error
	ReleaseReservation(ctx context.Context, reservationID uuid.UUID) (bool, error)
	CommitReservation(ctx context.Context, reservationID uuid.UUID) (bool, error)
	ReservationByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error)
	ReservationsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Reservation, error)
}

// GormInventoryRepository implements InventoryRepository using GORM
type GormInventoryRepository struct {
	db *gorm.DB
}

// NewGormInventoryRepository creates a new instance of GormInventoryRepository
func NewGormInventoryRepository(db *gorm.DB) InventoryRepository {
	return &GormInventoryRepository{db: db}
}

// Get returns the current counters for a product.
func (r *GormInventoryRepository) Get(ctx context.Context, productID uuid.UUID) (*models.Inventory, error) {
	var inv models.Inventory
	err := r.db.WithContext(ctx).First(&inv, "product_id = ?", productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// AddStock adds quantity to the available count, creating the row on first
// use. Reserved counts are never touched by stock loads.
func (r *GormInventoryRepository) AddStock(ctx context.Context, productID uuid.UUID, quantity int) (*models.Inventory, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"available":  gorm.Expr("inventories.available + ?", quantity),
				"updated_at": time.Now().UTC(),
			}),
		}).
		Create(&models.Inventory{ProductID: productID, Available: quantity}).Error
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, productID)
}

// ReserveStock moves quantity from available to reserved and records the
// reservation, atomically. The guard "available >= quantity" makes two
// concurrent reserves of the last unit resolve to a single winner.
func (r *GormInventoryRepository) ReserveStock(ctx context.Context, reservation *models.Reservation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		move := tx.Model(&models.Inventory{}).
			Where("product_id = ? AND available >= ?", reservation.ProductID, reservation.Quantity).
			Updates(map[string]interface{}{
				"available":  gorm.Expr("available - ?", reservation.Quantity),
				"reserved":   gorm.Expr("reserved + ?", reservation.Quantity),
				"updated_at": time.Now().UTC(),
			})
		if move.Error != nil {
			return move.Error
		}
		if move.RowsAffected == 0 {
			var inv models.Inventory
			err := tx.First(&inv, "product_id = ?", reservation.ProductID).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			if err != nil {
				return err
			}
			return ErrInsufficientStock
		}
		reservation.Status = models.ReservationStatusHeld
		return tx.Create(reservation).Error
	})
}

// ReleaseReservation returns a held reservation's units to the available
// pool. The status flip HELD -> RELEASED decides the single mover of the
// counters; the bool reports whether this call was it.
func (r *GormInventoryRepository) ReleaseReservation(ctx context.Context, reservationID uuid.UUID) (bool, error) {
	return r.finishReservation(ctx, reservationID, models.ReservationStatusReleased)
}

// CommitReservation finalizes a held reservation as consumed stock.
func (r *GormInventoryRepository) CommitReservation(ctx context.Context, reservationID uuid.UUID) (bool, error) {
	return r.finishReservation(ctx, reservationID, models.ReservationStatusCommitted)
}

func (r *GormInventoryRepository) finishReservation(ctx context.Context, reservationID uuid.UUID, target models.ReservationStatus) (bool, error) {
	var moved bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var res models.Reservation
		if err := tx.First(&res, "id = ?", reservationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		flip := tx.Model(&models.Reservation{}).
			Where("id = ? AND status = ?", reservationID, models.ReservationStatusHeld).
			Updates(map[string]interface{}{"status": target, "updated_at": time.Now().UTC()})
		if flip.Error != nil {
			return flip.Error
		}
		if flip.RowsAffected == 0 {
			// Not held anymore; counters were already moved elsewhere.
			return nil
		}

		updates := map[string]interface{}{
			"reserved":   gorm.Expr("reserved - ?", res.Quantity),
			"updated_at": time.Now().UTC(),
		}
		if target == models.ReservationStatusReleased {
			updates["available"] = gorm.Expr("available + ?", res.Quantity)
		}
		move := tx.Model(&models.Inventory{}).
			Where("product_id = ? AND reserved >= ?", res.ProductID, res.Quantity).
			Updates(updates)
		if move.Error != nil {
			return move.Error
		}
		if move.RowsAffected == 0 {
			return ErrConflict
		}
		moved = true
		return nil
	})
	return moved, err
}

func (r *GormInventoryRepository) ReservationByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	var res models.Reservation
	err := r.db.WithContext(ctx).First(&res, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// ReservationsByOrder returns an order's reservations in product-id order so
// callers walk them deterministically.
func (r *GormInventoryRepository) ReservationsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Reservation, error) {
	var reservations []models.Reservation
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("product_id ASC").
		Find(&reservations).Error
	if err != nil {
		return nil, err
	}
	return reservations, nil
}
