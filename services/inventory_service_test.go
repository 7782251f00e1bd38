package services_test

import (
	"context"
	"sync"
	"testing"

	"checkout-service/models"
	"checkout-service/repository"
	"checkout-service/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestLedger() (services.InventoryLedger, *repository.MemoryInventoryRepository) {
	repo := repository.NewMemoryInventoryRepository()
	logger, _ := zap.NewDevelopment()
	return services.NewInventoryLedger(repo, logger), repo
}

func mustStock(t *testing.T, ledger services.InventoryLedger, productID uuid.UUID) *models.Inventory {
	t.Helper()
	inv, err := ledger.GetStock(context.Background(), productID)
	assert.NoError(t, err)
	return inv
}

func TestReserve_LastUnitsHaveSingleWinnerSet(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()
	productID := uuid.New()

	_, err := ledger.SetStock(ctx, productID, 4)
	assert.NoError(t, err)

	// Five buyers race for four units.
	var wg sync.WaitGroup
	results := make([]error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = ledger.Reserve(ctx, uuid.New(), productID, 1)
		}(i)
	}
	wg.Wait()

	succeeded, insufficient := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case assert.ErrorIs(t, err, repository.ErrInsufficientStock):
			insufficient++
		}
	}
	assert.Equal(t, 4, succeeded)
	assert.Equal(t, 1, insufficient)

	inv := mustStock(t, ledger, productID)
	assert.Equal(t, 0, inv.Available)
	assert.Equal(t, 4, inv.Reserved)
}

func TestReserve_UnknownProduct(t *testing.T) {
	ledger, _ := newTestLedger()

	_, err := ledger.Reserve(context.Background(), uuid.New(), uuid.New(), 1)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestReserve_MoreThanAvailable(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()
	productID := uuid.New()

	_, err := ledger.SetStock(ctx, productID, 2)
	assert.NoError(t, err)

	_, err = ledger.Reserve(ctx, uuid.New(), productID, 3)
	assert.ErrorIs(t, err, repository.ErrInsufficientStock)

	inv := mustStock(t, ledger, productID)
	assert.Equal(t, 2, inv.Available)
	assert.Equal(t, 0, inv.Reserved)
}

func TestRelease_ReturnsUnitsOnce(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()
	productID := uuid.New()

	_, err := ledger.SetStock(ctx, productID, 5)
	assert.NoError(t, err)

	res, err := ledger.Reserve(ctx, uuid.New(), productID, 2)
	assert.NoError(t, err)

	assert.NoError(t, ledger.Release(ctx, res.ID))
	inv := mustStock(t, ledger, productID)
	assert.Equal(t, 5, inv.Available)
	assert.Equal(t, 0, inv.Reserved)

	// Replaying the release changes nothing.
	assert.NoError(t, ledger.Release(ctx, res.ID))
	inv = mustStock(t, ledger, productID)
	assert.Equal(t, 5, inv.Available)
	assert.Equal(t, 0, inv.Reserved)
}

func TestCommit_ConsumesUnitsOnce(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()
	productID := uuid.New()

	_, err := ledger.SetStock(ctx, productID, 5)
	assert.NoError(t, err)

	res, err := ledger.Reserve(ctx, uuid.New(), productID, 2)
	assert.NoError(t, err)

	assert.NoError(t, ledger.Commit(ctx, res.ID))
	inv := mustStock(t, ledger, productID)
	assert.Equal(t, 3, inv.Available)
	assert.Equal(t, 0, inv.Reserved)

	// Replaying the commit must not decrement again.
	assert.NoError(t, ledger.Commit(ctx, res.ID))
	inv = mustStock(t, ledger, productID)
	assert.Equal(t, 3, inv.Available)
	assert.Equal(t, 0, inv.Reserved)
}

func TestCommitAfterRelease_Conflicts(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()
	productID := uuid.New()

	_, err := ledger.SetStock(ctx, productID, 5)
	assert.NoError(t, err)

	res, err := ledger.Reserve(ctx, uuid.New(), productID, 2)
	assert.NoError(t, err)
	assert.NoError(t, ledger.Release(ctx, res.ID))

	err = ledger.Commit(ctx, res.ID)
	assert.ErrorIs(t, err, repository.ErrConflict)

	inv := mustStock(t, ledger, productID)
	assert.Equal(t, 5, inv.Available)
	assert.Equal(t, 0, inv.Reserved)
}

func TestReleaseAfterCommit_Conflicts(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()
	productID := uuid.New()

	_, err := ledger.SetStock(ctx, productID, 5)
	assert.NoError(t, err)

	res, err := ledger.Reserve(ctx, uuid.New(), productID, 2)
	assert.NoError(t, err)
	assert.NoError(t, ledger.Commit(ctx, res.ID))

	err = ledger.Release(ctx, res.ID)
	assert.ErrorIs(t, err, repository.ErrConflict)

	inv := mustStock(t, ledger, productID)
	assert.Equal(t, 3, inv.Available)
	assert.Equal(t, 0, inv.Reserved)
}

func TestConcurrentRelease_CountersMoveOnce(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()
	productID := uuid.New()

	_, err := ledger.SetStock(ctx, productID, 10)
	assert.NoError(t, err)

	res, err := ledger.Reserve(ctx, uuid.New(), productID, 3)
	assert.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = ledger.Release(ctx, res.ID)
		}(i)
	}
	wg.Wait()

	for _, err := range results {
		assert.NoError(t, err)
	}
	inv := mustStock(t, ledger, productID)
	assert.Equal(t, 10, inv.Available)
	assert.Equal(t, 0, inv.Reserved)
}

func TestCommitByOrder(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()
	orderID := uuid.New()
	productA, productB := uuid.New(), uuid.New()

	_, err := ledger.SetStock(ctx, productA, 5)
	assert.NoError(t, err)
	_, err = ledger.SetStock(ctx, productB, 5)
	assert.NoError(t, err)

	_, err = ledger.Reserve(ctx, orderID, productA, 2)
	assert.NoError(t, err)
	_, err = ledger.Reserve(ctx, orderID, productB, 1)
	assert.NoError(t, err)

	assert.NoError(t, ledger.CommitByOrder(ctx, orderID))

	invA := mustStock(t, ledger, productA)
	assert.Equal(t, 3, invA.Available)
	assert.Equal(t, 0, invA.Reserved)
	invB := mustStock(t, ledger, productB)
	assert.Equal(t, 4, invB.Available)
	assert.Equal(t, 0, invB.Reserved)

	// The whole order commit replays cleanly too.
	assert.NoError(t, ledger.CommitByOrder(ctx, orderID))
}

func TestReleaseByOrder(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()
	orderID := uuid.New()
	productA, productB := uuid.New(), uuid.New()

	_, err := ledger.SetStock(ctx, productA, 5)
	assert.NoError(t, err)
	_, err = ledger.SetStock(ctx, productB, 5)
	assert.NoError(t, err)

	_, err = ledger.Reserve(ctx, orderID, productA, 2)
	assert.NoError(t, err)
	_, err = ledger.Reserve(ctx, orderID, productB, 4)
	assert.NoError(t, err)

	assert.NoError(t, ledger.ReleaseByOrder(ctx, orderID))

	invA := mustStock(t, ledger, productA)
	assert.Equal(t, 5, invA.Available)
	assert.Equal(t, 0, invA.Reserved)
	invB := mustStock(t, ledger, productB)
	assert.Equal(t, 5, invB.Available)
	assert.Equal(t, 0, invB.Reserved)
}

func TestSetStock_PreservesReserved(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()
	productID := uuid.New()

	_, err := ledger.SetStock(ctx, productID, 10)
	assert.NoError(t, err)
	_, err = ledger.Reserve(ctx, uuid.New(), productID, 4)
	assert.NoError(t, err)

	inv, err := ledger.SetStock(ctx, productID, 5)
	assert.NoError(t, err)
	assert.Equal(t, 11, inv.Available)
	assert.Equal(t, 4, inv.Reserved)
}

func TestGetStock_UnknownProduct(t *testing.T) {
	ledger, _ := newTestLedger()

	_, err := ledger.GetStock(context.Background(), uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
