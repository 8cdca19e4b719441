package command

import (
	"context"
	"time"

	"github.com/geovision/payments/internal/payment/domain"
	"github.com/geovision/payments/pkg/logger"
)

// ExpirePaymentsHandler cancels pre-terminal intents whose expiry has passed.
// Run periodically; each sweep is bounded and every cancellation is a
// compare-and-swap, so a concurrently arriving webhook or confirmation wins.
type ExpirePaymentsHandler struct {
	repo  domain.PaymentIntentRepository
	batch int
}

// NewExpirePaymentsHandler creates a new expire payments handler
func NewExpirePaymentsHandler(repo domain.PaymentIntentRepository) *ExpirePaymentsHandler {
	return &ExpirePaymentsHandler{repo: repo, batch: 100}
}

// Handle cancels expired intents and reports how many were cancelled.
func (h *ExpirePaymentsHandler) Handle(ctx context.Context) (int, error) {
	expired, err := h.repo.FindExpired(ctx, time.Now().UTC(), h.batch)
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for _, intent := range expired {
		if !intent.Status.CanTransitionTo(domain.StatusCancelled) {
			continue
		}
		applied, err := h.repo.UpdateStatus(ctx, intent.ID, intent.Status, domain.StatusCancelled)
		if err != nil {
			logger.Error(ctx).Err(err).Str("payment_id", intent.ID).Msg("Failed to cancel expired payment")
			continue
		}
		if applied {
			cancelled++
			logger.Info(ctx).
				Str("payment_id", intent.ID).
				Str("provider", string(intent.Provider)).
				Msg("Expired payment cancelled")
		}
	}

	return cancelled, nil
}
