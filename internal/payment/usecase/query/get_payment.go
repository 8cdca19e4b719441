package query

import (
	"context"

	"github.com/geovision/payments/internal/payment/domain"
)

// GetPaymentQuery represents the query to get a payment
type GetPaymentQuery struct {
	ID string
}

// GetPaymentHandler handles get payment queries
type GetPaymentHandler struct {
	repo domain.PaymentIntentRepository
}

// NewGetPaymentHandler creates a new get payment handler
func NewGetPaymentHandler(repo domain.PaymentIntentRepository) *GetPaymentHandler {
	return &GetPaymentHandler{repo: repo}
}

// Handle executes the get payment query
func (h *GetPaymentHandler) Handle(ctx context.Context, q GetPaymentQuery) (*domain.PaymentIntent, error) {
	if q.ID == "" {
		return nil, &domain.ValidationError{Field: "id", Message: "id is required"}
	}
	return h.repo.FindByID(ctx, q.ID)
}
