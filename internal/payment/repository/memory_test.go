package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geovision/payments/internal/payment/domain"
)

func newIntent(id string) *domain.PaymentIntent {
	return &domain.PaymentIntent{
		ID:       id,
		OrderID:  "order-" + id,
		Amount:   500000,
		Currency: domain.CurrencyAOA,
		Provider: domain.ProviderMulticaixaExpress,
		Status:   domain.StatusPending,
	}
}

func TestMemoryRepositoryIdempotencyKeyUnique(t *testing.T) {
	repo := NewMemoryPaymentRepository()
	ctx := context.Background()

	key := "key-1"
	first := newIntent("p1")
	first.IdempotencyKey = &key
	require.NoError(t, repo.Create(ctx, first))

	second := newIntent("p2")
	second.IdempotencyKey = &key
	err := repo.Create(ctx, second)
	assert.ErrorIs(t, err, domain.ErrDuplicateIdempotencyKey)

	found, err := repo.FindByIdempotencyKey(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "p1", found.ID)
}

func TestMemoryRepositoryUpdateStatusCAS(t *testing.T) {
	repo := NewMemoryPaymentRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newIntent("p1")))

	applied, err := repo.UpdateStatus(ctx, "p1", domain.StatusPending, domain.StatusProcessing)
	require.NoError(t, err)
	assert.True(t, applied)

	// Stale expectation fails and changes nothing.
	applied, err = repo.UpdateStatus(ctx, "p1", domain.StatusPending, domain.StatusCompleted)
	require.NoError(t, err)
	assert.False(t, applied)

	stored, err := repo.FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, stored.Status)
}

func TestMemoryRepositoryApplyRefundGuard(t *testing.T) {
	repo := NewMemoryPaymentRepository()
	ctx := context.Background()

	intent := newIntent("p1")
	intent.Status = domain.StatusCompleted
	require.NoError(t, repo.Create(ctx, intent))

	applied, err := repo.ApplyRefund(ctx, "p1", 300000, domain.StatusPartiallyRefunded)
	require.NoError(t, err)
	assert.True(t, applied)

	// The guard rejects an increment past the original amount.
	applied, err = repo.ApplyRefund(ctx, "p1", 300000, domain.StatusRefunded)
	require.NoError(t, err)
	assert.False(t, applied)

	stored, err := repo.FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(300000), stored.RefundedAmount)
	assert.Equal(t, domain.StatusPartiallyRefunded, stored.Status)
}

func TestMemoryRepositoryApplyRefundConcurrent(t *testing.T) {
	repo := NewMemoryPaymentRepository()
	ctx := context.Background()

	intent := newIntent("p1")
	intent.Status = domain.StatusCompleted
	require.NoError(t, repo.Create(ctx, intent))

	// Two full refunds race; exactly one can win.
	var wg sync.WaitGroup
	results := make([]bool, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			applied, err := repo.ApplyRefund(ctx, "p1", 500000, domain.StatusRefunded)
			require.NoError(t, err)
			results[i] = applied
		}(i)
	}
	wg.Wait()

	assert.NotEqual(t, results[0], results[1])

	stored, err := repo.FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(500000), stored.RefundedAmount)
}
