package services

import (
	"context"
	"fmt"
	"sort"

	"checkout-service/models"
	"checkout-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InventoryLedger tracks available and reserved counts per product and the
// reservations that move them. Release and Commit are idempotent: replaying
// the same outcome on a finished reservation is a no-op, asking for the
// opposite outcome is a conflict.
type InventoryLedger interface {
	Reserve(ctx context.Context, orderID, productID uuid.UUID, quantity int) (*models.Reservation, error)
	Release(ctx context.Context, reservationID uuid.UUID) error
	Commit(ctx context.Context, reservationID uuid.UUID) error
	ReleaseByOrder(ctx context.Context, orderID uuid.UUID) error
	CommitByOrder(ctx context.Context, orderID uuid.UUID) error
	GetStock(ctx context.Context, productID uuid.UUID) (*models.Inventory, error)
	SetStock(ctx context.Context, productID uuid.UUID, quantity int) (*models.Inventory, error)
}

type inventoryLedger struct {
	repo   repository.InventoryRepository
	logger *zap.Logger
}

// NewInventoryLedger creates an InventoryLedger backed by repo.
func NewInventoryLedger(repo repository.InventoryRepository, logger *zap.Logger) InventoryLedger {
	return &inventoryLedger{repo: repo, logger: logger}
}

// Reserve holds quantity units of a product for an order. The hold either
// lands whole or not at all; under contention for the last units exactly one
// caller wins.
func (s *inventoryLedger) Reserve(ctx context.Context, orderID, productID uuid.UUID, quantity int) (*models.Reservation, error) {
	reservation := &models.Reservation{
		ID:        uuid.New(),
		OrderID:   orderID,
		ProductID: productID,
		Quantity:  quantity,
		Status:    models.ReservationStatusHeld,
	}
	if err := s.repo.ReserveStock(ctx, reservation); err != nil {
		return nil, err
	}

	s.logger.Debug("stock reserved",
		zap.String("reservation_id", reservation.ID.String()),
		zap.String("order_id", orderID.String()),
		zap.String("product_id", productID.String()),
		zap.Int("quantity", quantity))
	return reservation, nil
}

// Release returns a held reservation's units to the available pool.
func (s *inventoryLedger) Release(ctx context.Context, reservationID uuid.UUID) error {
	return s.finish(ctx, reservationID, models.ReservationStatusReleased)
}

// Commit finalizes a held reservation as consumed stock. Committed units do
// not return to the available pool.
func (s *inventoryLedger) Commit(ctx context.Context, reservationID uuid.UUID) error {
	return s.finish(ctx, reservationID, models.ReservationStatusCommitted)
}

func (s *inventoryLedger) finish(ctx context.Context, reservationID uuid.UUID, target models.ReservationStatus) error {
	var (
		moved bool
		err   error
	)
	if target == models.ReservationStatusReleased {
		moved, err = s.repo.ReleaseReservation(ctx, reservationID)
	} else {
		moved, err = s.repo.CommitReservation(ctx, reservationID)
	}
	if err != nil {
		return err
	}
	if moved {
		return nil
	}

	// The flip lost: the reservation was already finished. Replaying the
	// same outcome is fine, the opposite outcome is not.
	res, err := s.repo.ReservationByID(ctx, reservationID)
	if err != nil {
		return err
	}
	if res.Status == target {
		return nil
	}
	return fmt.Errorf("%w: reservation %s is %s", repository.ErrConflict, reservationID, res.Status)
}

// ReleaseByOrder releases every reservation held for an order. Reservations
// already released are skipped; any other failure stops the walk.
func (s *inventoryLedger) ReleaseByOrder(ctx context.Context, orderID uuid.UUID) error {
	return s.finishByOrder(ctx, orderID, models.ReservationStatusReleased)
}

// CommitByOrder commits every reservation held for an order.
func (s *inventoryLedger) CommitByOrder(ctx context.Context, orderID uuid.UUID) error {
	return s.finishByOrder(ctx, orderID, models.ReservationStatusCommitted)
}

func (s *inventoryLedger) finishByOrder(ctx context.Context, orderID uuid.UUID, target models.ReservationStatus) error {
	reservations, err := s.repo.ReservationsByOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to load reservations for order %s: %w", orderID, err)
	}

	sort.Slice(reservations, func(i, j int) bool {
		return reservations[i].ProductID.String() < reservations[j].ProductID.String()
	})

	for _, res := range reservations {
		if err := s.finish(ctx, res.ID, target); err != nil {
			return fmt.Errorf("product %s: %w", res.ProductID, err)
		}
	}
	return nil
}

// GetStock returns the current counters for a product.
func (s *inventoryLedger) GetStock(ctx context.Context, productID uuid.UUID) (*models.Inventory, error) {
	return s.repo.Get(ctx, productID)
}

// SetStock adds quantity to the available count, creating the record on first
// use. Reserved counts are never touched by stock loads.
func (s *inventoryLedger) SetStock(ctx context.Context, productID uuid.UUID, quantity int) (*models.Inventory, error) {
	inv, err := s.repo.AddStock(ctx, productID, quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to set stock: %w", err)
	}

	s.logger.Info("stock loaded",
		zap.String("product_id", productID.String()),
		zap.Int("added", quantity),
		zap.Int("available", inv.Available),
		zap.Int("reserved", inv.Reserved))
	return inv, nil
}
