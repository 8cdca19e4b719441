package query

import (
	"context"
	"fmt"

	"github.com/geovision/payments/internal/payment/domain"
)

// ListPaymentsQuery represents the query to list payments with filters
type ListPaymentsQuery struct {
	CompanyID string
	Status    string
	Provider  string
	Limit     int
	Offset    int
}

// ListPaymentsHandler handles list payments queries
type ListPaymentsHandler struct {
	repo domain.PaymentIntentRepository
}

// NewListPaymentsHandler creates a new list payments handler
func NewListPaymentsHandler(repo domain.PaymentIntentRepository) *ListPaymentsHandler {
	return &ListPaymentsHandler{repo: repo}
}

// Handle executes the list payments query
func (h *ListPaymentsHandler) Handle(ctx context.Context, q ListPaymentsQuery) ([]domain.PaymentIntent, error) {
	filter := domain.ListFilter{
		CompanyID: q.CompanyID,
		Limit:     q.Limit,
		Offset:    q.Offset,
	}

	if q.Status != "" {
		status := domain.Status(q.Status)
		if !status.IsValid() {
			return nil, &domain.ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", q.Status)}
		}
		filter.Status = status
	}
	if q.Provider != "" {
		provider := domain.Provider(q.Provider)
		if !provider.IsValid() {
			return nil, &domain.ValidationError{Field: "provider", Message: fmt.Sprintf("unknown provider %q", q.Provider)}
		}
		filter.Provider = provider
	}

	return h.repo.List(ctx, filter)
}
