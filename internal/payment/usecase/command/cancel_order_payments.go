package command

import (
	"context"

	"github.com/geovision/payments/internal/payment/domain"
	"github.com/geovision/payments/pkg/logger"
)

// CancelOrderPaymentsCommand cancels the still-pending intents of an order,
// typically in reaction to an order-cancelled event from the order subsystem.
type CancelOrderPaymentsCommand struct {
	OrderID string
}

// CancelOrderPaymentsHandler handles order-driven cancellation. Completed or
// refunded intents are left untouched; money already captured is returned
// through the refund path, not through cancellation.
type CancelOrderPaymentsHandler struct {
	repo domain.PaymentIntentRepository
}

// NewCancelOrderPaymentsHandler creates a new cancel order payments handler
func NewCancelOrderPaymentsHandler(repo domain.PaymentIntentRepository) *CancelOrderPaymentsHandler {
	return &CancelOrderPaymentsHandler{repo: repo}
}

// Handle cancels cancellable intents for the order and reports how many.
func (h *CancelOrderPaymentsHandler) Handle(ctx context.Context, cmd CancelOrderPaymentsCommand) (int, error) {
	if cmd.OrderID == "" {
		return 0, &domain.ValidationError{Field: "order_id", Message: "order_id is required"}
	}

	intents, err := h.repo.FindByOrderID(ctx, cmd.OrderID)
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for _, intent := range intents {
		if !intent.Status.CanTransitionTo(domain.StatusCancelled) {
			continue
		}
		applied, err := h.repo.UpdateStatus(ctx, intent.ID, intent.Status, domain.StatusCancelled)
		if err != nil {
			return cancelled, err
		}
		if applied {
			cancelled++
			logger.Info(ctx).
				Str("payment_id", intent.ID).
				Str("order_id", cmd.OrderID).
				Msg("Payment cancelled after order cancellation")
		}
	}

	return cancelled, nil
}
