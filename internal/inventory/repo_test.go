package inventory

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modaro-shop/modaro-backend/pkg/db/models"
	"github.com/modaro-shop/modaro-backend/pkg/enums"
	pkgerrors "github.com/modaro-shop/modaro-backend/pkg/errors"
	"github.com/modaro-shop/modaro-backend/pkg/pagination"
)

func TestConditionalDecrementSuccess(t *testing.T) {
	db := setupInventoryTestDB(t)
	repo := NewRepository(db)
	variant := seedVariant(t, db, 10, true)

	ok, newQty, err := repo.ConditionalDecrement(context.Background(), variant.ID, 3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 7, newQty)

	stored, err := repo.ReadQuantity(context.Background(), variant.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, stored)
}

func TestConditionalDecrementInsufficient(t *testing.T) {
	db := setupInventoryTestDB(t)
	repo := NewRepository(db)
	variant := seedVariant(t, db, 2, true)

	ok, _, err := repo.ConditionalDecrement(context.Background(), variant.ID, 5)
	require.NoError(t, err)
	require.False(t, ok)

	stored, err := repo.ReadQuantity(context.Background(), variant.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored, "a rejected decrement must not change the counter")
}

func TestConditionalDecrementExactStock(t *testing.T) {
	db := setupInventoryTestDB(t)
	repo := NewRepository(db)
	variant := seedVariant(t, db, 4, true)

	ok, newQty, err := repo.ConditionalDecrement(context.Background(), variant.ID, 4)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, newQty)
}

func TestConditionalDecrementUnknownVariant(t *testing.T) {
	db := setupInventoryTestDB(t)
	repo := NewRepository(db)

	_, _, err := repo.ConditionalDecrement(context.Background(), uuid.New(), 1)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestConditionalDecrementInactiveVariant(t *testing.T) {
	db := setupInventoryTestDB(t)
	repo := NewRepository(db)
	variant := seedVariant(t, db, 10, false)

	_, _, err := repo.ConditionalDecrement(context.Background(), variant.ID, 1)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestConditionalDecrementRejectsNonPositiveAmount(t *testing.T) {
	db := setupInventoryTestDB(t)
	repo := NewRepository(db)
	variant := seedVariant(t, db, 10, true)

	_, _, err := repo.ConditionalDecrement(context.Background(), variant.ID, 0)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestConditionalDecrementNeverOversells(t *testing.T) {
	db := setupInventoryTestDB(t)
	repo := NewRepository(db)
	variant := seedVariant(t, db, 5, true)

	const attempts = 12
	var wg sync.WaitGroup
	results := make(chan bool, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, _, err := repo.ConditionalDecrement(context.Background(), variant.ID, 1)
			if err != nil {
				t.Error(err)
				return
			}
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for ok := range results {
		if ok {
			succeeded++
		}
	}
	assert.Equal(t, 5, succeeded, "exactly the available stock may be reserved")

	remaining, err := repo.ReadQuantity(context.Background(), variant.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
}

func TestIncrement(t *testing.T) {
	db := setupInventoryTestDB(t)
	repo := NewRepository(db)
	variant := seedVariant(t, db, 3, true)

	newQty, err := repo.Increment(context.Background(), variant.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 7, newQty)

	_, err = repo.Increment(context.Background(), uuid.New(), 1)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestSetAbsolute(t *testing.T) {
	db := setupInventoryTestDB(t)
	repo := NewRepository(db)
	variant := seedVariant(t, db, 3, true)

	newQty, err := repo.SetAbsolute(context.Background(), variant.ID, 25)
	require.NoError(t, err)
	assert.Equal(t, 25, newQty)

	_, err = repo.SetAbsolute(context.Background(), variant.ID, -1)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestFindVariant(t *testing.T) {
	db := setupInventoryTestDB(t)
	repo := NewRepository(db)
	variant := seedVariant(t, db, 3, true)

	found, err := repo.FindVariant(context.Background(), variant.ID)
	require.NoError(t, err)
	assert.Equal(t, variant.SKU, found.SKU)
	assert.Equal(t, variant.ProductID, found.ProductID)

	_, err = repo.FindVariant(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListMovementsNewestFirst(t *testing.T) {
	db := setupInventoryTestDB(t)
	repo := NewRepository(db)
	variant := seedVariant(t, db, 100, true)

	for i := 0; i < 5; i++ {
		movement := &models.StockMovement{
			ID:            uuid.New(),
			VariantID:     variant.ID,
			QuantityDelta: -(i + 1),
			MovementType:  enums.StockMovementReserve,
		}
		require.NoError(t, repo.InsertMovement(context.Background(), movement))
	}

	rows, total, err := repo.ListMovements(context.Background(), variant.ID, pagination.Params{Page: 1, PageSize: 3})
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	require.Len(t, rows, 3)

	rows, total, err = repo.ListMovements(context.Background(), variant.ID, pagination.Params{Page: 2, PageSize: 3})
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	assert.Len(t, rows, 2)
}
