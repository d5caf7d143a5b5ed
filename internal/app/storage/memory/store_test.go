package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"miniwallet/internal/app/apperr"
	"miniwallet/internal/app/model"
	"miniwallet/internal/app/storage"
)

func TestGetOrCreateConcurrent(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	customerID := uuid.New()

	ids := make(chan uuid.UUID, 10)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w, err := s.GetOrCreate(ctx, customerID)
			require.NoError(t, err)
			ids <- w.ID
		}()
	}
	wg.Wait()
	close(ids)

	first := <-ids
	for id := range ids {
		assert.Equal(t, first, id)
	}
}

func TestUpdateUnknownWallet(t *testing.T) {
	s := NewStore()

	err := s.Update(context.Background(), uuid.New(), func(tx storage.WalletTx) error {
		return nil
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

// An aborted scope must leave no transaction row behind and must release the
// reference_id reservation.
func TestUpdateRollback(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	w, err := s.GetOrCreate(ctx, uuid.New())
	require.NoError(t, err)

	ref := uuid.New()
	boom := errors.New("boom")

	err = s.Update(ctx, w.ID, func(tx storage.WalletTx) error {
		_, err := tx.Append(ctx, newTransaction(w, ref, 10))
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	mm, err := s.Transactions(ctx, w.ID)
	require.NoError(t, err)
	assert.Empty(t, mm)

	// The reference is reusable after the rollback.
	err = s.Update(ctx, w.ID, func(tx storage.WalletTx) error {
		_, err := tx.Append(ctx, newTransaction(w, ref, 10))
		return err
	})
	assert.NoError(t, err)
}

func TestAppendDuplicateReferenceAcrossWallets(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	w1, err := s.GetOrCreate(ctx, uuid.New())
	require.NoError(t, err)
	w2, err := s.GetOrCreate(ctx, uuid.New())
	require.NoError(t, err)

	ref := uuid.New()

	err = s.Update(ctx, w1.ID, func(tx storage.WalletTx) error {
		_, err := tx.Append(ctx, newTransaction(w1, ref, 10))
		return err
	})
	require.NoError(t, err)

	// reference_id is globally unique, not per wallet.
	err = s.Update(ctx, w2.ID, func(tx storage.WalletTx) error {
		_, err := tx.Append(ctx, newTransaction(w2, ref, 10))
		return err
	})
	assert.ErrorIs(t, err, apperr.ErrDuplicateReference)
}

func TestBalanceSeesPendingWrites(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	w, err := s.GetOrCreate(ctx, uuid.New())
	require.NoError(t, err)

	err = s.Update(ctx, w.ID, func(tx storage.WalletTx) error {
		_, err := tx.Append(ctx, newTransaction(w, uuid.New(), 25))
		require.NoError(t, err)

		b, err := tx.Balance(ctx)
		require.NoError(t, err)
		assert.True(t, b.Equal(decimal.NewFromInt(25)))
		return nil
	})
	require.NoError(t, err)
}

func TestUpdateCancelledContext(t *testing.T) {
	s := NewStore()

	w, err := s.GetOrCreate(context.Background(), uuid.New())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = s.Update(ctx, w.ID, func(tx storage.WalletTx) error {
		t.Fatal("fn must not run after cancellation")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func newTransaction(w *model.Wallet, ref uuid.UUID, amount int64) *model.Transaction {
	return &model.Transaction{
		ID:          uuid.New(),
		WalletID:    w.ID,
		ExecutedBy:  w.CustomerID,
		Type:        model.TransactionTypeDeposit,
		Status:      model.TransactionStatusSuccess,
		CreatedAt:   time.Now().UTC(),
		Amount:      decimal.NewFromInt(amount),
		ReferenceID: ref,
	}
}
