package command

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/geovision/payments/internal/payment/adapter"
	"github.com/geovision/payments/internal/payment/domain"
	"github.com/geovision/payments/pkg/logger"
)

// RefundPaymentCommand represents the command to refund a payment.
// Amount <= 0 requests the full remaining refundable balance.
type RefundPaymentCommand struct {
	PaymentID   string
	Amount      int64
	Reason      string
	RequestedBy string
}

// RefundPaymentHandler handles refunds. Refunds serialize per intent through
// a keyed lock, and the final accounting write is a conditional update
// guarded by refunded_amount + amount <= amount, so two refunds can never
// jointly exceed the balance even across processes.
type RefundPaymentHandler struct {
	repo     domain.PaymentIntentRepository
	refunds  domain.RefundRepository
	adapters *adapter.Registry
	locks    *keyedMutex
}

// NewRefundPaymentHandler creates a new refund payment handler
func NewRefundPaymentHandler(repo domain.PaymentIntentRepository, refunds domain.RefundRepository, adapters *adapter.Registry) *RefundPaymentHandler {
	return &RefundPaymentHandler{
		repo:     repo,
		refunds:  refunds,
		adapters: adapters,
		locks:    newKeyedMutex(),
	}
}

// Handle executes the refund payment command
func (h *RefundPaymentHandler) Handle(ctx context.Context, cmd RefundPaymentCommand) (*domain.RefundRecord, error) {
	if cmd.PaymentID == "" {
		return nil, &domain.ValidationError{Field: "payment_id", Message: "payment_id is required"}
	}

	unlock := h.locks.Lock("refund:" + cmd.PaymentID)
	defer unlock()

	intent, err := h.repo.FindByID(ctx, cmd.PaymentID)
	if err != nil {
		return nil, err
	}

	if intent.Status != domain.StatusCompleted && intent.Status != domain.StatusPartiallyRefunded {
		return nil, &domain.StateError{
			Current: intent.Status,
			Message: "only completed or partially refunded payments can be refunded",
		}
	}

	remaining := intent.RemainingBalance()
	amount := cmd.Amount
	if amount <= 0 {
		amount = remaining
	}
	if amount > remaining {
		return nil, &domain.ValidationError{
			Field:   "amount",
			Message: fmt.Sprintf("refund amount %d exceeds remaining balance %d", amount, remaining),
		}
	}

	record := &domain.RefundRecord{
		ID:              uuid.New().String(),
		PaymentIntentID: intent.ID,
		Amount:          amount,
		Currency:        intent.Currency,
		Status:          domain.RefundStatusPending,
		Reason:          cmd.Reason,
		RequestedBy:     cmd.RequestedBy,
	}
	if err := h.refunds.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create refund record: %w", err)
	}

	providerAdapter, err := h.adapters.Get(intent.Provider)
	if err != nil {
		return nil, err
	}

	result, err := providerAdapter.Refund(ctx, intent.ProviderReference, amount)
	if err != nil {
		record.Status = domain.RefundStatusFailed
		record.FailureMessage = err.Error()
		if updateErr := h.refunds.Update(ctx, record); updateErr != nil {
			logger.Error(ctx).Err(updateErr).Str("refund_id", record.ID).Msg("Failed to mark refund failed")
		}
		return nil, &domain.ProviderError{Provider: intent.Provider, Err: err}
	}

	if !result.Success {
		record.Status = domain.RefundStatusFailed
		record.FailureMessage = result.ErrorMessage
		if err := h.refunds.Update(ctx, record); err != nil {
			return nil, fmt.Errorf("failed to persist refund rejection: %w", err)
		}
		logger.Warn(ctx).
			Str("payment_id", intent.ID).
			Str("refund_id", record.ID).
			Str("error", result.ErrorMessage).
			Msg("Provider rejected refund")
		return record, nil
	}

	newStatus := domain.StatusPartiallyRefunded
	if intent.RefundedAmount+amount == intent.Amount {
		newStatus = domain.StatusRefunded
	}

	applied, err := h.repo.ApplyRefund(ctx, intent.ID, amount, newStatus)
	if err != nil {
		return nil, err
	}
	if !applied {
		// The storage guard rejected the increment. The provider side already
		// refunded, so keep the record for reconciliation.
		record.Status = domain.RefundStatusFailed
		record.FailureMessage = "refund accounting rejected: balance exceeded"
		if err := h.refunds.Update(ctx, record); err != nil {
			return nil, fmt.Errorf("failed to persist refund rejection: %w", err)
		}
		return nil, &domain.StateError{
			Current: intent.Status,
			Message: "refund would exceed the refundable balance",
		}
	}

	record.Status = domain.RefundStatusSucceeded
	record.ProviderRefundID = result.ProviderRefundID
	if err := h.refunds.Update(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to persist refund result: %w", err)
	}

	logger.Info(ctx).
		Str("payment_id", intent.ID).
		Str("refund_id", record.ID).
		Int64("amount", amount).
		Str("new_status", string(newStatus)).
		Msg("Refund processed")

	return record, nil
}
