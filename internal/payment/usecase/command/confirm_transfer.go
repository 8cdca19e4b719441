package command

import (
	"context"
	"fmt"
	"time"

	"github.com/geovision/payments/internal/payment/domain"
	"github.com/geovision/payments/pkg/logger"
)

// ConfirmTransferCommand represents the manual confirmation of a bank
// transfer by an operator.
type ConfirmTransferCommand struct {
	PaymentID     string
	ConfirmedBy   string
	BankReference string // optional statement reference
}

// ConfirmTransferHandler handles manual bank transfer confirmation. Legal
// only for bank transfer intents in AWAITING_CONFIRMATION.
type ConfirmTransferHandler struct {
	repo domain.PaymentIntentRepository
}

// NewConfirmTransferHandler creates a new confirm transfer handler
func NewConfirmTransferHandler(repo domain.PaymentIntentRepository) *ConfirmTransferHandler {
	return &ConfirmTransferHandler{repo: repo}
}

// Handle executes the confirm transfer command
func (h *ConfirmTransferHandler) Handle(ctx context.Context, cmd ConfirmTransferCommand) (*domain.PaymentIntent, error) {
	if cmd.PaymentID == "" {
		return nil, &domain.ValidationError{Field: "payment_id", Message: "payment_id is required"}
	}
	if cmd.ConfirmedBy == "" {
		return nil, &domain.ValidationError{Field: "confirmed_by", Message: "confirmed_by is required"}
	}

	intent, err := h.repo.FindByID(ctx, cmd.PaymentID)
	if err != nil {
		return nil, err
	}

	if intent.Provider != domain.ProviderBankTransfer {
		return nil, &domain.StateError{
			Current: intent.Status,
			Message: fmt.Sprintf("manual confirmation is not valid for provider %s", intent.Provider),
		}
	}
	if intent.Status != domain.StatusAwaitingConfirmation {
		return nil, &domain.StateError{
			Current: intent.Status,
			Message: "only transfers awaiting confirmation can be confirmed",
		}
	}

	applied, err := h.repo.UpdateStatus(ctx, intent.ID, domain.StatusAwaitingConfirmation, domain.StatusCompleted)
	if err != nil {
		return nil, err
	}
	if !applied {
		fresh, err := h.repo.FindByID(ctx, intent.ID)
		if err != nil {
			return nil, err
		}
		return nil, &domain.StateError{
			Current: fresh.Status,
			Message: "transfer state changed concurrently",
		}
	}

	intent.Status = domain.StatusCompleted
	if intent.Metadata == nil {
		intent.Metadata = make(map[string]string)
	}
	intent.Metadata["confirmed_by"] = cmd.ConfirmedBy
	intent.Metadata["confirmed_at"] = time.Now().UTC().Format(time.RFC3339)
	if cmd.BankReference != "" {
		intent.Metadata["bank_reference"] = cmd.BankReference
	}
	if err := h.repo.Update(ctx, intent); err != nil {
		return nil, fmt.Errorf("failed to persist confirmation metadata: %w", err)
	}

	logger.Info(ctx).
		Str("payment_id", intent.ID).
		Str("confirmed_by", cmd.ConfirmedBy).
		Msg("Bank transfer confirmed")

	return intent, nil
}
