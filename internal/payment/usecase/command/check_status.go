package command

import (
	"context"

	"github.com/geovision/payments/internal/payment/adapter"
	"github.com/geovision/payments/internal/payment/domain"
	"github.com/geovision/payments/pkg/logger"
)

// CheckStatusCommand represents the command to reconcile a payment's status
// against the provider.
type CheckStatusCommand struct {
	PaymentID string
}

// CheckStatusHandler polls the provider for non-terminal intents and persists
// forward transitions. Terminal intents (and PARTIALLY_REFUNDED ones) are
// answered from the stored status without an adapter call.
type CheckStatusHandler struct {
	repo     domain.PaymentIntentRepository
	adapters *adapter.Registry
}

// NewCheckStatusHandler creates a new check status handler
func NewCheckStatusHandler(repo domain.PaymentIntentRepository, adapters *adapter.Registry) *CheckStatusHandler {
	return &CheckStatusHandler{repo: repo, adapters: adapters}
}

// Handle executes the check status command
func (h *CheckStatusHandler) Handle(ctx context.Context, cmd CheckStatusCommand) (domain.Status, error) {
	if cmd.PaymentID == "" {
		return "", &domain.ValidationError{Field: "payment_id", Message: "payment_id is required"}
	}

	intent, err := h.repo.FindByID(ctx, cmd.PaymentID)
	if err != nil {
		return "", err
	}

	if intent.Status.IsTerminal() || intent.Status == domain.StatusPartiallyRefunded {
		return intent.Status, nil
	}
	if intent.ProviderReference == "" {
		return intent.Status, nil
	}

	providerAdapter, err := h.adapters.Get(intent.Provider)
	if err != nil {
		return "", err
	}

	reported, err := providerAdapter.CheckStatus(ctx, intent.ProviderReference)
	if err != nil {
		// Transport failure: the stored status stays authoritative.
		logger.Warn(ctx).Err(err).
			Str("payment_id", intent.ID).
			Str("provider", string(intent.Provider)).
			Msg("Status poll failed, returning stored status")
		return intent.Status, nil
	}

	if reported == intent.Status || !intent.Status.CanTransitionTo(reported) {
		return intent.Status, nil
	}

	applied, err := h.repo.UpdateStatus(ctx, intent.ID, intent.Status, reported)
	if err != nil {
		return "", err
	}
	if !applied {
		// Someone else moved the intent first; their state wins.
		fresh, err := h.repo.FindByID(ctx, intent.ID)
		if err != nil {
			return "", err
		}
		return fresh.Status, nil
	}

	logger.Info(ctx).
		Str("payment_id", intent.ID).
		Str("status_from", string(intent.Status)).
		Str("status_to", string(reported)).
		Msg("Payment status reconciled from provider")

	return reported, nil
}
