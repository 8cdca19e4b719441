package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geovision/payments/internal/payment/domain"
	"github.com/geovision/payments/internal/payment/repository"
)

func seedPayments(t *testing.T, repo *repository.MemoryPaymentRepository) {
	t.Helper()
	seeds := []struct {
		id       string
		company  string
		provider domain.Provider
		status   domain.Status
	}{
		{"p1", "comp-1", domain.ProviderMulticaixaExpress, domain.StatusCompleted},
		{"p2", "comp-1", domain.ProviderBankTransfer, domain.StatusAwaitingConfirmation},
		{"p3", "comp-2", domain.ProviderVisaMastercard, domain.StatusCompleted},
	}
	for _, s := range seeds {
		require.NoError(t, repo.Create(context.Background(), &domain.PaymentIntent{
			ID:        s.id,
			CompanyID: s.company,
			OrderID:   "order-" + s.id,
			Amount:    100000,
			Currency:  domain.CurrencyAOA,
			Provider:  s.provider,
			Status:    s.status,
		}))
	}
}

func TestGetPayment(t *testing.T) {
	repo := repository.NewMemoryPaymentRepository()
	seedPayments(t, repo)
	handler := NewGetPaymentHandler(repo)

	payment, err := handler.Handle(context.Background(), GetPaymentQuery{ID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, "p1", payment.ID)

	_, err = handler.Handle(context.Background(), GetPaymentQuery{ID: "missing"})
	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)

	_, err = handler.Handle(context.Background(), GetPaymentQuery{})
	var validationErr *domain.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestListPaymentsFilters(t *testing.T) {
	repo := repository.NewMemoryPaymentRepository()
	seedPayments(t, repo)
	handler := NewListPaymentsHandler(repo)
	ctx := context.Background()

	payments, err := handler.Handle(ctx, ListPaymentsQuery{})
	require.NoError(t, err)
	assert.Len(t, payments, 3)

	payments, err = handler.Handle(ctx, ListPaymentsQuery{CompanyID: "comp-1"})
	require.NoError(t, err)
	assert.Len(t, payments, 2)

	payments, err = handler.Handle(ctx, ListPaymentsQuery{Status: "completed"})
	require.NoError(t, err)
	assert.Len(t, payments, 2)

	payments, err = handler.Handle(ctx, ListPaymentsQuery{Provider: "bank_transfer"})
	require.NoError(t, err)
	assert.Len(t, payments, 1)

	_, err = handler.Handle(ctx, ListPaymentsQuery{Status: "sideways"})
	var validationErr *domain.ValidationError
	assert.ErrorAs(t, err, &validationErr)

	_, err = handler.Handle(ctx, ListPaymentsQuery{Provider: "paypal"})
	assert.ErrorAs(t, err, &validationErr)
}

func TestListRefunds(t *testing.T) {
	repo := repository.NewMemoryPaymentRepository()
	refunds := repository.NewMemoryRefundRepository()
	seedPayments(t, repo)
	handler := NewListRefundsHandler(repo, refunds)
	ctx := context.Background()

	require.NoError(t, refunds.Create(ctx, &domain.RefundRecord{
		ID:              "r1",
		PaymentIntentID: "p1",
		Amount:          50000,
		Currency:        domain.CurrencyAOA,
		Status:          domain.RefundStatusSucceeded,
	}))

	listed, err := handler.Handle(ctx, ListRefundsQuery{PaymentID: "p1"})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "r1", listed[0].ID)

	// Unknown payments are a 404, not an empty list.
	_, err = handler.Handle(ctx, ListRefundsQuery{PaymentID: "missing"})
	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)

	listed, err = handler.Handle(ctx, ListRefundsQuery{PaymentID: "p2"})
	require.NoError(t, err)
	assert.Empty(t, listed)
}
