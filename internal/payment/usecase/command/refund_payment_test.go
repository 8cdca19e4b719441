package command

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geovision/payments/internal/payment/adapter"
	"github.com/geovision/payments/internal/payment/domain"
	"github.com/geovision/payments/internal/payment/repository"
)

func newRefundHandler(fake *fakeAdapter) (*RefundPaymentHandler, *repository.MemoryPaymentRepository, *repository.MemoryRefundRepository) {
	repo := repository.NewMemoryPaymentRepository()
	refunds := repository.NewMemoryRefundRepository()
	registry := adapter.NewRegistry()
	registry.Register(domain.ProviderVisaMastercard, fake)
	return NewRefundPaymentHandler(repo, refunds, registry), repo, refunds
}

func seedCompleted(t *testing.T, repo *repository.MemoryPaymentRepository, amount int64) *domain.PaymentIntent {
	t.Helper()
	intent := &domain.PaymentIntent{
		ID:                "pay-1",
		OrderID:           "order-1",
		Amount:            amount,
		Currency:          domain.CurrencyAOA,
		Provider:          domain.ProviderVisaMastercard,
		Status:            domain.StatusCompleted,
		ProviderReference: "pi_123",
	}
	require.NoError(t, repo.Create(context.Background(), intent))
	return intent
}

func TestRefundFull(t *testing.T) {
	handler, repo, _ := newRefundHandler(newFakeAdapter())
	seedCompleted(t, repo, 500000)

	record, err := handler.Handle(context.Background(), RefundPaymentCommand{
		PaymentID: "pay-1",
		Amount:    500000,
		Reason:    "customer request",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.RefundStatusSucceeded, record.Status)
	assert.Equal(t, int64(500000), record.Amount)

	stored, err := repo.FindByID(context.Background(), "pay-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRefunded, stored.Status)
	assert.Equal(t, int64(500000), stored.RefundedAmount)
}

func TestRefundPartialThenRemainder(t *testing.T) {
	handler, repo, _ := newRefundHandler(newFakeAdapter())
	seedCompleted(t, repo, 500000)
	ctx := context.Background()

	record, err := handler.Handle(ctx, RefundPaymentCommand{PaymentID: "pay-1", Amount: 300000})
	require.NoError(t, err)
	assert.Equal(t, domain.RefundStatusSucceeded, record.Status)

	stored, err := repo.FindByID(ctx, "pay-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPartiallyRefunded, stored.Status)
	assert.Equal(t, int64(300000), stored.RefundedAmount)

	// Omitting the amount refunds the remaining balance.
	record, err = handler.Handle(ctx, RefundPaymentCommand{PaymentID: "pay-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(200000), record.Amount)

	stored, err = repo.FindByID(ctx, "pay-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRefunded, stored.Status)
	assert.Equal(t, int64(500000), stored.RefundedAmount)
}

func TestRefundExceedingBalanceRejected(t *testing.T) {
	fake := newFakeAdapter()
	handler, repo, _ := newRefundHandler(fake)
	seedCompleted(t, repo, 500000)
	ctx := context.Background()

	_, err := handler.Handle(ctx, RefundPaymentCommand{PaymentID: "pay-1", Amount: 300000})
	require.NoError(t, err)

	_, err = handler.Handle(ctx, RefundPaymentCommand{PaymentID: "pay-1", Amount: 300000})
	var validationErr *domain.ValidationError
	require.ErrorAs(t, err, &validationErr)

	stored, err := repo.FindByID(ctx, "pay-1")
	require.NoError(t, err)
	assert.Equal(t, int64(300000), stored.RefundedAmount, "the rejected refund must not change accounting")

	_, _, refundCalls := fake.calls()
	assert.Equal(t, 1, refundCalls, "the provider must not see the over-refund")
}

func TestRefundWrongStateRejected(t *testing.T) {
	for _, status := range []domain.Status{
		domain.StatusPending,
		domain.StatusProcessing,
		domain.StatusAwaitingConfirmation,
		domain.StatusFailed,
		domain.StatusCancelled,
		domain.StatusRefunded,
	} {
		t.Run(string(status), func(t *testing.T) {
			handler, repo, _ := newRefundHandler(newFakeAdapter())
			intent := seedCompleted(t, repo, 500000)
			intent.Status = status
			require.NoError(t, repo.Update(context.Background(), intent))

			_, err := handler.Handle(context.Background(), RefundPaymentCommand{PaymentID: "pay-1", Amount: 100000})
			var stateErr *domain.StateError
			assert.ErrorAs(t, err, &stateErr)
		})
	}
}

func TestRefundProviderRejection(t *testing.T) {
	fake := newFakeAdapter()
	fake.refundResult = &adapter.RefundResult{Success: false, ErrorMessage: "charge_already_refunded"}
	handler, repo, refunds := newRefundHandler(fake)
	seedCompleted(t, repo, 500000)
	ctx := context.Background()

	record, err := handler.Handle(ctx, RefundPaymentCommand{PaymentID: "pay-1", Amount: 100000})
	require.NoError(t, err, "a provider rejection is an outcome, not an error")
	assert.Equal(t, domain.RefundStatusFailed, record.Status)
	assert.Equal(t, "charge_already_refunded", record.FailureMessage)

	stored, err := repo.FindByID(ctx, "pay-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, stored.Status)
	assert.Zero(t, stored.RefundedAmount)

	listed, err := refunds.ListByPaymentIntent(ctx, "pay-1")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, domain.RefundStatusFailed, listed[0].Status)
}

func TestRefundTransportFailure(t *testing.T) {
	fake := newFakeAdapter()
	fake.refundErr = errors.New("connection reset")
	handler, repo, refunds := newRefundHandler(fake)
	seedCompleted(t, repo, 500000)
	ctx := context.Background()

	_, err := handler.Handle(ctx, RefundPaymentCommand{PaymentID: "pay-1", Amount: 100000})
	var providerErr *domain.ProviderError
	require.ErrorAs(t, err, &providerErr)

	stored, err := repo.FindByID(ctx, "pay-1")
	require.NoError(t, err)
	assert.Zero(t, stored.RefundedAmount)

	listed, err := refunds.ListByPaymentIntent(ctx, "pay-1")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, domain.RefundStatusFailed, listed[0].Status)
}
