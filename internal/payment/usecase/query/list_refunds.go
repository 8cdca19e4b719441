package query

import (
	"context"

	"github.com/geovision/payments/internal/payment/domain"
)

// ListRefundsQuery represents the query to list refunds for a payment
type ListRefundsQuery struct {
	PaymentID string
}

// ListRefundsHandler handles list refunds queries
type ListRefundsHandler struct {
	repo    domain.PaymentIntentRepository
	refunds domain.RefundRepository
}

// NewListRefundsHandler creates a new list refunds handler
func NewListRefundsHandler(repo domain.PaymentIntentRepository, refunds domain.RefundRepository) *ListRefundsHandler {
	return &ListRefundsHandler{repo: repo, refunds: refunds}
}

// Handle executes the list refunds query
func (h *ListRefundsHandler) Handle(ctx context.Context, q ListRefundsQuery) ([]domain.RefundRecord, error) {
	if q.PaymentID == "" {
		return nil, &domain.ValidationError{Field: "payment_id", Message: "payment_id is required"}
	}

	// Surface unknown payment ids as not found rather than an empty list.
	if _, err := h.repo.FindByID(ctx, q.PaymentID); err != nil {
		return nil, err
	}

	return h.refunds.ListByPaymentIntent(ctx, q.PaymentID)
}
