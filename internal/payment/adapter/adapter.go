package adapter

import (
	"context"
	"fmt"

	"github.com/geovision/payments/internal/payment/domain"
)

// PaymentResult is the outcome of dispatching an intent to a provider.
// Success=false carries a provider-reported rejection; transport failures are
// returned as errors instead and leave the intent untouched.
type PaymentResult struct {
	Success           bool             `json:"success"`
	PaymentID         string           `json:"payment_id"`
	Status            domain.Status    `json:"status"`
	ProviderReference string           `json:"provider_reference,omitempty"`
	RedirectURL       string           `json:"redirect_url,omitempty"` // 3D Secure step-up
	QRCode            string           `json:"qr_code,omitempty"`      // Multicaixa Express display payload
	TransferDetails   *TransferDetails `json:"transfer_details,omitempty"`
	ErrorCode         string           `json:"error_code,omitempty"`
	ErrorMessage      string           `json:"error_message,omitempty"`
}

// TransferDetails are the beneficiary instructions shown to the payer for a
// manual bank transfer.
type TransferDetails struct {
	IBAN        string `json:"iban"`
	BIC         string `json:"bic"`
	BankName    string `json:"bank_name"`
	Beneficiary string `json:"beneficiary"`
	Reference   string `json:"reference"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
}

// RefundResult is the outcome of a provider refund call.
type RefundResult struct {
	Success          bool   `json:"success"`
	ProviderRefundID string `json:"provider_refund_id,omitempty"`
	Amount           int64  `json:"amount"`
	Status           string `json:"status"`
	ErrorMessage     string `json:"error_message,omitempty"`
}

// WebhookNotice is the provider-specific envelope parsed into the fields the
// orchestration layer acts on.
type WebhookNotice struct {
	EventID           string
	ProviderReference string
	Status            domain.Status
}

// PaymentAdapter is the uniform contract every provider integration
// implements. Adapters never mutate stored intents; only the orchestration
// commands persist state.
type PaymentAdapter interface {
	// CreatePayment registers the intent with the provider. A non-nil error
	// means the call did not complete (network, timeout) and the remote
	// outcome is unknown.
	CreatePayment(ctx context.Context, intent *domain.PaymentIntent) (*PaymentResult, error)

	// CheckStatus polls the provider for the current status of a payment.
	CheckStatus(ctx context.Context, providerReference string) (domain.Status, error)

	// Refund asks the provider to return amount to the payer. amount <= 0
	// requests a full refund.
	Refund(ctx context.Context, providerReference string, amount int64) (*RefundResult, error)

	// VerifyWebhook validates a raw delivery against its signature. It never
	// returns an error; the caller decides whether to apply the event.
	VerifyWebhook(payload []byte, signature string) bool
}

// WebhookParser is implemented by adapters whose provider delivers webhooks.
// The bank transfer adapter does not implement it: that channel resolves
// exclusively through manual confirmation.
type WebhookParser interface {
	ParseWebhook(payload []byte) (*WebhookNotice, error)
}

// Registry maps providers to their adapters. Adding a provider means
// implementing PaymentAdapter and registering it here; the orchestration
// commands carry no per-provider branches.
type Registry struct {
	adapters map[domain.Provider]PaymentAdapter
}

// NewRegistry creates a registry over the given adapters.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[domain.Provider]PaymentAdapter)}
}

// Register binds an adapter to a provider.
func (r *Registry) Register(provider domain.Provider, a PaymentAdapter) {
	r.adapters[provider] = a
}

// Get returns the adapter for a provider.
func (r *Registry) Get(provider domain.Provider) (PaymentAdapter, error) {
	a, ok := r.adapters[provider]
	if !ok {
		return nil, fmt.Errorf("unknown payment provider: %s", provider)
	}
	return a, nil
}
