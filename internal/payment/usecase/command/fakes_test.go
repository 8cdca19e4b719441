package command

import (
	"context"
	"sync"

	"github.com/geovision/payments/internal/payment/adapter"
	"github.com/geovision/payments/internal/payment/domain"
)

// fakeAdapter is a controllable PaymentAdapter with call counting.
type fakeAdapter struct {
	mu          sync.Mutex
	createCalls int
	statusCalls int
	refundCalls int

	createResult *adapter.PaymentResult
	createErr    error
	status       domain.Status
	statusErr    error
	refundResult *adapter.RefundResult
	refundErr    error
	verifyOK     bool
	notice       *adapter.WebhookNotice
	parseErr     error
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{verifyOK: true}
}

func (f *fakeAdapter) CreatePayment(ctx context.Context, intent *domain.PaymentIntent) (*adapter.PaymentResult, error) {
	f.mu.Lock()
	f.createCalls++
	f.mu.Unlock()

	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.createResult != nil {
		return f.createResult, nil
	}
	return &adapter.PaymentResult{
		Success:           true,
		PaymentID:         intent.ID,
		Status:            domain.StatusProcessing,
		ProviderReference: "ref-" + intent.ID,
	}, nil
}

func (f *fakeAdapter) CheckStatus(ctx context.Context, providerReference string) (domain.Status, error) {
	f.mu.Lock()
	f.statusCalls++
	f.mu.Unlock()

	if f.statusErr != nil {
		return "", f.statusErr
	}
	return f.status, nil
}

func (f *fakeAdapter) Refund(ctx context.Context, providerReference string, amount int64) (*adapter.RefundResult, error) {
	f.mu.Lock()
	f.refundCalls++
	f.mu.Unlock()

	if f.refundErr != nil {
		return nil, f.refundErr
	}
	if f.refundResult != nil {
		return f.refundResult, nil
	}
	return &adapter.RefundResult{Success: true, ProviderRefundID: "re-1", Amount: amount, Status: "succeeded"}, nil
}

func (f *fakeAdapter) VerifyWebhook(payload []byte, signature string) bool {
	return f.verifyOK
}

func (f *fakeAdapter) ParseWebhook(payload []byte) (*adapter.WebhookNotice, error) {
	if f.parseErr != nil {
		return nil, f.parseErr
	}
	return f.notice, nil
}

func (f *fakeAdapter) calls() (create, status, refund int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCalls, f.statusCalls, f.refundCalls
}

// webhookless hides ParseWebhook so the adapter does not satisfy WebhookParser.
type webhookless struct {
	inner *fakeAdapter
}

func (w webhookless) CreatePayment(ctx context.Context, intent *domain.PaymentIntent) (*adapter.PaymentResult, error) {
	return w.inner.CreatePayment(ctx, intent)
}

func (w webhookless) CheckStatus(ctx context.Context, ref string) (domain.Status, error) {
	return w.inner.CheckStatus(ctx, ref)
}

func (w webhookless) Refund(ctx context.Context, ref string, amount int64) (*adapter.RefundResult, error) {
	return w.inner.Refund(ctx, ref, amount)
}

func (w webhookless) VerifyWebhook(payload []byte, signature string) bool {
	return w.inner.VerifyWebhook(payload, signature)
}
