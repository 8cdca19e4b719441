package command

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geovision/payments/internal/payment/adapter"
	"github.com/geovision/payments/internal/payment/domain"
	"github.com/geovision/payments/internal/payment/repository"
)

func newCreateHandler(fake *fakeAdapter) (*CreatePaymentHandler, *repository.MemoryPaymentRepository) {
	repo := repository.NewMemoryPaymentRepository()
	registry := adapter.NewRegistry()
	registry.Register(domain.ProviderMulticaixaExpress, fake)
	registry.Register(domain.ProviderVisaMastercard, fake)
	registry.Register(domain.ProviderBankTransfer, adapter.NewBankTransferAdapter(adapter.BankTransferConfig{}))
	return NewCreatePaymentHandler(repo, registry), repo
}

func validCommand() CreatePaymentCommand {
	return CreatePaymentCommand{
		CompanyID: "comp-1",
		OrderID:   "order-1",
		Amount:    250000,
		Currency:  domain.CurrencyAOA,
		Provider:  domain.ProviderMulticaixaExpress,
	}
}

func TestCreatePaymentValidation(t *testing.T) {
	handler, _ := newCreateHandler(newFakeAdapter())
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*CreatePaymentCommand)
		field  string
	}{
		{"missing order id", func(c *CreatePaymentCommand) { c.OrderID = "" }, "order_id"},
		{"zero amount", func(c *CreatePaymentCommand) { c.Amount = 0 }, "amount"},
		{"negative amount", func(c *CreatePaymentCommand) { c.Amount = -100 }, "amount"},
		{"unknown currency", func(c *CreatePaymentCommand) { c.Currency = "GBP" }, "currency"},
		{"unknown provider", func(c *CreatePaymentCommand) { c.Provider = "paypal" }, "provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := validCommand()
			tt.mutate(&cmd)

			_, err := handler.Handle(ctx, cmd)

			var validationErr *domain.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.field, validationErr.Field)
		})
	}
}

func TestCreatePaymentDefaultsToKwanza(t *testing.T) {
	handler, _ := newCreateHandler(newFakeAdapter())

	cmd := validCommand()
	cmd.Currency = ""

	created, err := handler.Handle(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, domain.CurrencyAOA, created.Intent.Currency)
}

func TestCreatePaymentSuccess(t *testing.T) {
	fake := newFakeAdapter()
	handler, repo := newCreateHandler(fake)

	created, err := handler.Handle(context.Background(), validCommand())
	require.NoError(t, err)

	assert.Equal(t, domain.StatusProcessing, created.Intent.Status)
	assert.Equal(t, "ref-"+created.Intent.ID, created.Intent.ProviderReference)
	require.NotNil(t, created.Result)

	stored, err := repo.FindByID(context.Background(), created.Intent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, stored.Status)
}

func TestCreatePaymentProviderDecline(t *testing.T) {
	fake := newFakeAdapter()
	fake.createResult = &adapter.PaymentResult{
		Success:      false,
		ErrorCode:    "card_declined",
		ErrorMessage: "Your card was declined",
	}
	handler, repo := newCreateHandler(fake)

	created, err := handler.Handle(context.Background(), validCommand())
	require.NoError(t, err, "a provider decline is an outcome, not an error")

	assert.Equal(t, domain.StatusFailed, created.Intent.Status)
	assert.Equal(t, "card_declined", created.Intent.FailureCode)

	stored, err := repo.FindByID(context.Background(), created.Intent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, stored.Status)
}

func TestCreatePaymentIdempotentReplay(t *testing.T) {
	fake := newFakeAdapter()
	handler, _ := newCreateHandler(fake)
	ctx := context.Background()

	cmd := validCommand()
	cmd.IdempotencyKey = "key-1"

	first, err := handler.Handle(ctx, cmd)
	require.NoError(t, err)

	second, err := handler.Handle(ctx, cmd)
	require.NoError(t, err)

	assert.Equal(t, first.Intent.ID, second.Intent.ID)
	assert.Nil(t, second.Result, "replay must not carry a fresh adapter response")

	creates, _, _ := fake.calls()
	assert.Equal(t, 1, creates, "the provider must be called exactly once per key")
}

func TestCreatePaymentConcurrentDuplicates(t *testing.T) {
	fake := newFakeAdapter()
	handler, _ := newCreateHandler(fake)

	cmd := validCommand()
	cmd.IdempotencyKey = "key-concurrent"

	const callers = 10
	ids := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			created, err := handler.Handle(context.Background(), cmd)
			if err == nil {
				ids[i] = created.Intent.ID
			}
		}(i)
	}
	wg.Wait()

	first := ids[0]
	require.NotEmpty(t, first)
	for _, id := range ids {
		assert.Equal(t, first, id, "all callers must converge on one intent")
	}

	creates, _, _ := fake.calls()
	assert.Equal(t, 1, creates, "the provider must be called exactly once per key")
}

func TestCreatePaymentTransportFailureLeavesPending(t *testing.T) {
	fake := newFakeAdapter()
	fake.createErr = errors.New("connection reset")
	handler, repo := newCreateHandler(fake)
	ctx := context.Background()

	cmd := validCommand()
	cmd.IdempotencyKey = "key-retry"

	_, err := handler.Handle(ctx, cmd)
	var providerErr *domain.ProviderError
	require.ErrorAs(t, err, &providerErr)

	stored, err := repo.FindByIdempotencyKey(ctx, "key-retry")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, domain.StatusPending, stored.Status)
	assert.Empty(t, stored.ProviderReference)

	// A retry with the same key re-dispatches the same intent.
	fake.createErr = nil
	created, err := handler.Handle(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, created.Intent.ID)
	assert.Equal(t, domain.StatusProcessing, created.Intent.Status)

	creates, _, _ := fake.calls()
	assert.Equal(t, 2, creates)
}

func TestCreatePaymentBankTransfer(t *testing.T) {
	handler, repo := newCreateHandler(newFakeAdapter())
	ctx := context.Background()

	cmd := CreatePaymentCommand{
		CompanyID: "comp-1",
		OrderID:   "order-2024-000123",
		Amount:    500000,
		Currency:  domain.CurrencyAOA,
		Provider:  domain.ProviderBankTransfer,
	}

	created, err := handler.Handle(ctx, cmd)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusAwaitingConfirmation, created.Intent.Status)
	require.NotNil(t, created.Result.TransferDetails)
	assert.Equal(t, int64(500000), created.Result.TransferDetails.Amount)
	assert.Equal(t, created.Intent.ProviderReference, created.Result.TransferDetails.Reference)

	stored, err := repo.FindByID(ctx, created.Intent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAwaitingConfirmation, stored.Status)

	// Bank transfers get a longer expiry window than card and wallet payments.
	require.NotNil(t, stored.ExpiresAt)
	assert.True(t, stored.ExpiresAt.Sub(stored.CreatedAt) > 24*time.Hour)
}
