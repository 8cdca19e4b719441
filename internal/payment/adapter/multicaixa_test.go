package adapter

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geovision/payments/internal/payment/domain"
)

func multicaixaSign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestMulticaixaVerifyWebhook(t *testing.T) {
	a := NewMulticaixaAdapter(MulticaixaConfig{WebhookSecret: "whsec_test"})
	payload := []byte(`{"event_id":"evt_1","payment_id":"MCX-123","status":"completed"}`)

	assert.True(t, a.VerifyWebhook(payload, multicaixaSign("whsec_test", payload)))

	// Wrong secret
	assert.False(t, a.VerifyWebhook(payload, multicaixaSign("whsec_other", payload)))

	// Tampered body
	tampered := []byte(`{"event_id":"evt_1","payment_id":"MCX-123","status":"failed"}`)
	assert.False(t, a.VerifyWebhook(tampered, multicaixaSign("whsec_test", payload)))

	// Garbage signature
	assert.False(t, a.VerifyWebhook(payload, "not-a-signature"))
}

func TestMulticaixaParseWebhook(t *testing.T) {
	a := NewMulticaixaAdapter(MulticaixaConfig{})

	notice, err := a.ParseWebhook([]byte(`{"event_id":"evt_1","payment_id":"MCX-123","status":"completed"}`))
	require.NoError(t, err)
	assert.Equal(t, "evt_1", notice.EventID)
	assert.Equal(t, "MCX-123", notice.ProviderReference)
	assert.Equal(t, domain.StatusCompleted, notice.Status)

	// The provider reports expiry; locally that is a cancellation.
	notice, err = a.ParseWebhook([]byte(`{"event_id":"evt_2","payment_id":"MCX-123","status":"expired"}`))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, notice.Status)

	_, err = a.ParseWebhook([]byte(`{"event_id":"evt_3","status":"completed"}`))
	assert.Error(t, err, "payload without payment_id must be rejected")

	_, err = a.ParseWebhook([]byte(`{"event_id":"evt_4","payment_id":"MCX-123","status":"teleported"}`))
	assert.Error(t, err, "unknown status must be rejected")

	_, err = a.ParseWebhook([]byte(`not json`))
	assert.Error(t, err)
}

func TestMulticaixaMockCreatePayment(t *testing.T) {
	a := NewMulticaixaAdapter(MulticaixaConfig{})

	intent := &domain.PaymentIntent{
		ID:       "pay-1",
		OrderID:  "order-1",
		Amount:   250000,
		Currency: domain.CurrencyAOA,
	}

	result, err := a.CreatePayment(context.Background(), intent)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, domain.StatusPending, result.Status)
	assert.Contains(t, result.ProviderReference, "MCX-")
	assert.NotEmpty(t, result.QRCode)
}
