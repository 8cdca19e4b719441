package adapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/geovision/payments/internal/payment/domain"
)

// BankTransferConfig holds the beneficiary account shown to payers.
type BankTransferConfig struct {
	IBAN        string
	BIC         string
	BankName    string
	Beneficiary string
}

// BankTransferAdapter handles manual IBAN transfers. There is no remote API:
// creation hands out beneficiary details with a deterministic reference, the
// payer wires the money, and an operator confirms receipt. The adapter has no
// authority to resolve a payment, so CheckStatus always reports
// AWAITING_CONFIRMATION and no webhooks exist for this channel.
type BankTransferAdapter struct {
	config BankTransferConfig
}

// NewBankTransferAdapter creates a bank transfer adapter.
func NewBankTransferAdapter(config BankTransferConfig) *BankTransferAdapter {
	if config.IBAN == "" {
		config.IBAN = "AO06004400005506300102101"
	}
	if config.BIC == "" {
		config.BIC = "BFAOAOAO"
	}
	if config.BankName == "" {
		config.BankName = "Banco de Fomento Angola"
	}
	if config.Beneficiary == "" {
		config.Beneficiary = "GeoVision Lda"
	}
	return &BankTransferAdapter{config: config}
}

// TransferReference derives the payment reference the payer must include in
// the transfer description. Deterministic over the order id so resends of the
// instructions always carry the same reference.
func TransferReference(orderID string) string {
	ref := orderID
	if len(ref) > 8 {
		ref = ref[len(ref)-8:]
	}
	return "GV-" + strings.ToUpper(ref)
}

// CreatePayment issues beneficiary instructions for a manual transfer.
func (a *BankTransferAdapter) CreatePayment(ctx context.Context, intent *domain.PaymentIntent) (*PaymentResult, error) {
	reference := TransferReference(intent.OrderID)

	return &PaymentResult{
		Success:           true,
		PaymentID:         intent.ID,
		Status:            domain.StatusAwaitingConfirmation,
		ProviderReference: reference,
		TransferDetails: &TransferDetails{
			IBAN:        a.config.IBAN,
			BIC:         a.config.BIC,
			BankName:    a.config.BankName,
			Beneficiary: a.config.Beneficiary,
			Reference:   reference,
			Amount:      intent.Amount,
			Currency:    string(intent.Currency),
		},
	}, nil
}

// CheckStatus always reports AWAITING_CONFIRMATION; resolution happens only
// through the manual confirmation path.
func (a *BankTransferAdapter) CheckStatus(ctx context.Context, providerReference string) (domain.Status, error) {
	return domain.StatusAwaitingConfirmation, nil
}

// Refund records a manual refund; the actual wire is executed by an operator.
func (a *BankTransferAdapter) Refund(ctx context.Context, providerReference string, amount int64) (*RefundResult, error) {
	return &RefundResult{
		Success:          true,
		ProviderRefundID: fmt.Sprintf("BANK-REF-%s", uuid.New().String()[:8]),
		Amount:           amount,
		Status:           "pending_manual_transfer",
	}, nil
}

// VerifyWebhook always succeeds: no webhooks exist for this channel, so any
// call here is a programming error rather than a security check.
func (a *BankTransferAdapter) VerifyWebhook(payload []byte, signature string) bool {
	return true
}
