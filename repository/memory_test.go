package repository_test

import (
	"context"
	"testing"
	"time"

	"checkout-service/models"
	"checkout-service/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestMemoryOrderCreate_AssignsIDs(t *testing.T) {
	repo := repository.NewMemoryOrderRepository()

	order := &models.Order{
		OwnerID: uuid.New(),
		Status:  models.OrderStatusPending,
		Items:   []models.OrderItem{{ProductID: uuid.New(), Quantity: 1}},
	}
	err := repo.Create(context.Background(), order)

	assert.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, order.ID)
	assert.NotEqual(t, uuid.Nil, order.Items[0].ID)
	assert.Equal(t, order.ID, order.Items[0].OrderID)
	assert.False(t, order.CreatedAt.IsZero())
}

func TestMemoryOrderCreate_IdempotencyKeyPerOwner(t *testing.T) {
	repo := repository.NewMemoryOrderRepository()
	ctx := context.Background()
	ownerA, ownerB := uuid.New(), uuid.New()
	key := "checkout-attempt-7"

	first := &models.Order{OwnerID: ownerA, IdempotencyKey: &key, Status: models.OrderStatusPending}
	assert.NoError(t, repo.Create(ctx, first))

	// Same owner, same key: duplicate.
	err := repo.Create(ctx, &models.Order{OwnerID: ownerA, IdempotencyKey: &key})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	// Another owner may reuse the key.
	assert.NoError(t, repo.Create(ctx, &models.Order{OwnerID: ownerB, IdempotencyKey: &key}))

	stored, err := repo.FindByIdempotencyKey(ctx, ownerA, key)
	assert.NoError(t, err)
	assert.Equal(t, first.ID, stored.ID)
}

func TestMemoryOrderFindByID_ReturnsCopies(t *testing.T) {
	repo := repository.NewMemoryOrderRepository()
	ctx := context.Background()

	order := &models.Order{
		OwnerID: uuid.New(),
		Status:  models.OrderStatusPending,
		Items:   []models.OrderItem{{ProductID: uuid.New(), Quantity: 2}},
	}
	assert.NoError(t, repo.Create(ctx, order))

	got, err := repo.FindByID(ctx, order.ID)
	assert.NoError(t, err)
	got.Status = models.OrderStatusCancelled
	got.Items[0].Quantity = 99

	again, err := repo.FindByID(ctx, order.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, again.Status)
	assert.Equal(t, 2, again.Items[0].Quantity)
}

func TestMemoryOrderUpdateStatusIf_CompareAndSwap(t *testing.T) {
	repo := repository.NewMemoryOrderRepository()
	ctx := context.Background()

	order := &models.Order{OwnerID: uuid.New(), Status: models.OrderStatusPending}
	assert.NoError(t, repo.Create(ctx, order))

	now := time.Now().UTC()
	flipped, err := repo.UpdateStatusIf(ctx, order.ID, models.OrderStatusPending, models.OrderStatusCancelled, &now)
	assert.NoError(t, err)
	assert.True(t, flipped)

	// The guard no longer matches.
	flipped, err = repo.UpdateStatusIf(ctx, order.ID, models.OrderStatusPending, models.OrderStatusPaid, nil)
	assert.NoError(t, err)
	assert.False(t, flipped)

	stored, err := repo.FindByID(ctx, order.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, stored.Status)
	assert.NotNil(t, stored.CanceledAt)

	flipped, err = repo.UpdateStatusIf(ctx, uuid.New(), models.OrderStatusPending, models.OrderStatusPaid, nil)
	assert.NoError(t, err)
	assert.False(t, flipped)
}

func TestMemoryOrderFind_FiltersAndPages(t *testing.T) {
	repo := repository.NewMemoryOrderRepository()
	ctx := context.Background()
	ownerA, ownerB := uuid.New(), uuid.New()

	oldest := &models.Order{OwnerID: ownerA, Status: models.OrderStatusPending}
	middle := &models.Order{OwnerID: ownerB, Status: models.OrderStatusPending}
	newest := &models.Order{OwnerID: ownerA, Status: models.OrderStatusPaid}
	assert.NoError(t, repo.Create(ctx, oldest))
	assert.NoError(t, repo.Create(ctx, middle))
	assert.NoError(t, repo.Create(ctx, newest))

	orders, total, err := repo.Find(ctx, repository.OrderFilter{OwnerID: &ownerA, Page: 1, Limit: 10})
	assert.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, newest.ID, orders[0].ID)
	assert.Equal(t, oldest.ID, orders[1].ID)

	paid := models.OrderStatusPaid
	orders, total, err = repo.Find(ctx, repository.OrderFilter{OwnerID: &ownerA, Status: &paid, Page: 1, Limit: 10})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, newest.ID, orders[0].ID)

	orders, total, err = repo.Find(ctx, repository.OrderFilter{Page: 2, Limit: 2})
	assert.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, orders, 1)
	assert.Equal(t, oldest.ID, orders[0].ID)

	orders, _, err = repo.Find(ctx, repository.OrderFilter{Page: 5, Limit: 10})
	assert.NoError(t, err)
	assert.Empty(t, orders)
}

func TestMemoryPaymentCreate_OnePerOrder(t *testing.T) {
	repo := repository.NewMemoryPaymentRepository()
	ctx := context.Background()
	orderID := uuid.New()

	first := &models.Payment{OrderID: orderID, OwnerID: uuid.New(), Status: models.PaymentStatusPending}
	assert.NoError(t, repo.Create(ctx, first))

	err := repo.Create(ctx, &models.Payment{OrderID: orderID, OwnerID: uuid.New()})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	stored, err := repo.FindByOrderID(ctx, orderID)
	assert.NoError(t, err)
	assert.Equal(t, first.ID, stored.ID)
}

func TestMemoryPaymentUpdateStatusIf_SetsTransactionID(t *testing.T) {
	repo := repository.NewMemoryPaymentRepository()
	ctx := context.Background()

	payment := &models.Payment{OrderID: uuid.New(), Status: models.PaymentStatusPending}
	assert.NoError(t, repo.Create(ctx, payment))

	txn := "txn_42"
	won, err := repo.UpdateStatusIf(ctx, payment.ID, models.PaymentStatusPending, models.PaymentStatusPaid, &txn)
	assert.NoError(t, err)
	assert.True(t, won)

	stored, err := repo.FindByID(ctx, payment.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, stored.Status)
	assert.Equal(t, "txn_42", *stored.TransactionID)

	won, err = repo.UpdateStatusIf(ctx, payment.ID, models.PaymentStatusPending, models.PaymentStatusPaid, nil)
	assert.NoError(t, err)
	assert.False(t, won)
}

func TestMemoryInventoryGet_ReturnsCopies(t *testing.T) {
	repo := repository.NewMemoryInventoryRepository()
	ctx := context.Background()
	productID := uuid.New()

	_, err := repo.AddStock(ctx, productID, 10)
	assert.NoError(t, err)

	inv, err := repo.Get(ctx, productID)
	assert.NoError(t, err)
	inv.Available = 0

	again, err := repo.Get(ctx, productID)
	assert.NoError(t, err)
	assert.Equal(t, 10, again.Available)
}
