package command

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geovision/payments/internal/payment/adapter"
	"github.com/geovision/payments/internal/payment/domain"
	"github.com/geovision/payments/internal/payment/repository"
)

const webhookSecret = "whsec_test"

func newWebhookHandler(t *testing.T) (*ApplyWebhookHandler, *repository.MemoryPaymentRepository, *repository.MemoryWebhookEventRepository) {
	t.Helper()
	repo := repository.NewMemoryPaymentRepository()
	events := repository.NewMemoryWebhookEventRepository()
	registry := adapter.NewRegistry()
	registry.Register(domain.ProviderMulticaixaExpress, adapter.NewMulticaixaAdapter(adapter.MulticaixaConfig{WebhookSecret: webhookSecret}))
	registry.Register(domain.ProviderBankTransfer, adapter.NewBankTransferAdapter(adapter.BankTransferConfig{}))
	return NewApplyWebhookHandler(repo, events, registry), repo, events
}

func sign(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func mcxEvent(eventID, paymentRef, status string) []byte {
	return []byte(fmt.Sprintf(`{"event_id":%q,"payment_id":%q,"status":%q}`, eventID, paymentRef, status))
}

func seedWebhookIntent(t *testing.T, repo *repository.MemoryPaymentRepository, status domain.Status) *domain.PaymentIntent {
	t.Helper()
	intent := &domain.PaymentIntent{
		ID:                "pay-1",
		OrderID:           "order-1",
		Amount:            250000,
		Currency:          domain.CurrencyAOA,
		Provider:          domain.ProviderMulticaixaExpress,
		Status:            status,
		ProviderReference: "MCX-123",
	}
	require.NoError(t, repo.Create(context.Background(), intent))
	return intent
}

func TestApplyWebhookInvalidSignature(t *testing.T) {
	handler, repo, _ := newWebhookHandler(t)
	seedWebhookIntent(t, repo, domain.StatusPending)

	payload := mcxEvent("evt_1", "MCX-123", "completed")
	_, err := handler.Handle(context.Background(), ApplyWebhookCommand{
		Provider:  domain.ProviderMulticaixaExpress,
		Payload:   payload,
		Signature: "deadbeef",
	})

	var sigErr *domain.SignatureError
	require.ErrorAs(t, err, &sigErr)

	stored, err := repo.FindByID(context.Background(), "pay-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, stored.Status, "a rejected delivery must change nothing")
}

func TestApplyWebhookAppliesForwardTransition(t *testing.T) {
	handler, repo, events := newWebhookHandler(t)
	seedWebhookIntent(t, repo, domain.StatusPending)

	payload := mcxEvent("evt_1", "MCX-123", "completed")
	outcome, err := handler.Handle(context.Background(), ApplyWebhookCommand{
		Provider:  domain.ProviderMulticaixaExpress,
		Payload:   payload,
		Signature: sign(payload),
	})
	require.NoError(t, err)

	assert.True(t, outcome.Applied)
	assert.Equal(t, "pay-1", outcome.PaymentID)
	assert.Equal(t, domain.StatusCompleted, outcome.Status)

	stored, err := repo.FindByID(context.Background(), "pay-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, stored.Status)

	logged, err := events.ListByPayment(context.Background(), "pay-1")
	require.NoError(t, err)
	require.Len(t, logged, 1)
	assert.True(t, logged[0].Applied)
}

func TestApplyWebhookDuplicateDelivery(t *testing.T) {
	handler, repo, _ := newWebhookHandler(t)
	seedWebhookIntent(t, repo, domain.StatusPending)
	ctx := context.Background()

	payload := mcxEvent("evt_1", "MCX-123", "completed")
	cmd := ApplyWebhookCommand{
		Provider:  domain.ProviderMulticaixaExpress,
		Payload:   payload,
		Signature: sign(payload),
	}

	first, err := handler.Handle(ctx, cmd)
	require.NoError(t, err)
	assert.True(t, first.Applied)

	second, err := handler.Handle(ctx, cmd)
	require.NoError(t, err, "duplicates are acknowledged, not errored")
	assert.False(t, second.Applied)
	assert.Equal(t, "duplicate delivery", second.Detail)

	stored, err := repo.FindByID(ctx, "pay-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, stored.Status)
}

func TestApplyWebhookOutOfOrderIgnored(t *testing.T) {
	handler, repo, _ := newWebhookHandler(t)
	seedWebhookIntent(t, repo, domain.StatusPending)
	ctx := context.Background()

	// Completion arrives first.
	completed := mcxEvent("evt_2", "MCX-123", "completed")
	outcome, err := handler.Handle(ctx, ApplyWebhookCommand{
		Provider:  domain.ProviderMulticaixaExpress,
		Payload:   completed,
		Signature: sign(completed),
	})
	require.NoError(t, err)
	assert.True(t, outcome.Applied)

	// The stale processing event arrives afterwards and must not move the
	// intent backwards.
	stale := mcxEvent("evt_1", "MCX-123", "processing")
	outcome, err = handler.Handle(ctx, ApplyWebhookCommand{
		Provider:  domain.ProviderMulticaixaExpress,
		Payload:   stale,
		Signature: sign(stale),
	})
	require.NoError(t, err)
	assert.False(t, outcome.Applied)

	stored, err := repo.FindByID(ctx, "pay-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, stored.Status)
}

func TestApplyWebhookUnmatchedReferenceAcknowledged(t *testing.T) {
	handler, _, _ := newWebhookHandler(t)

	payload := mcxEvent("evt_1", "MCX-UNKNOWN", "completed")
	outcome, err := handler.Handle(context.Background(), ApplyWebhookCommand{
		Provider:  domain.ProviderMulticaixaExpress,
		Payload:   payload,
		Signature: sign(payload),
	})
	require.NoError(t, err, "unknown references are acknowledged so the provider stops retrying")
	assert.False(t, outcome.Applied)
}

func TestApplyWebhookMalformedPayload(t *testing.T) {
	handler, _, _ := newWebhookHandler(t)

	payload := []byte(`{"event_id":"evt_1"}`)
	_, err := handler.Handle(context.Background(), ApplyWebhookCommand{
		Provider:  domain.ProviderMulticaixaExpress,
		Payload:   payload,
		Signature: sign(payload),
	})

	var validationErr *domain.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestApplyWebhookBankTransferHasNoChannel(t *testing.T) {
	handler, _, _ := newWebhookHandler(t)

	_, err := handler.Handle(context.Background(), ApplyWebhookCommand{
		Provider: domain.ProviderBankTransfer,
		Payload:  []byte(`{}`),
	})

	var stateErr *domain.StateError
	assert.ErrorAs(t, err, &stateErr)
}
