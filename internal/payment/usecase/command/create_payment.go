package command

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/geovision/payments/internal/payment/adapter"
	"github.com/geovision/payments/internal/payment/domain"
	"github.com/geovision/payments/pkg/logger"
)

// CreatePaymentCommand represents the command to create a payment
type CreatePaymentCommand struct {
	CompanyID      string
	OrderID        string
	Amount         int64
	Currency       domain.Currency
	Provider       domain.Provider
	Description    string
	IdempotencyKey string // optional; empty means no idempotency guarantee
	Metadata       map[string]string
}

// CreatePaymentResult carries the intent together with the adapter response.
// Result is nil when an existing intent was returned off the idempotency key.
type CreatePaymentResult struct {
	Intent *domain.PaymentIntent
	Result *adapter.PaymentResult
}

// CreatePaymentHandler handles create payment commands. Creation serializes
// on the idempotency key: duplicates converge on one intent and at most one
// adapter invocation. The per-key lock covers only local bookkeeping; it is
// released before the outbound provider call.
type CreatePaymentHandler struct {
	repo     domain.PaymentIntentRepository
	adapters *adapter.Registry
	locks    *keyedMutex
	inflight sync.Map // intent id -> dispatch in progress
}

// NewCreatePaymentHandler creates a new create payment handler
func NewCreatePaymentHandler(repo domain.PaymentIntentRepository, adapters *adapter.Registry) *CreatePaymentHandler {
	return &CreatePaymentHandler{
		repo:     repo,
		adapters: adapters,
		locks:    newKeyedMutex(),
	}
}

// Handle executes the create payment command
func (h *CreatePaymentHandler) Handle(ctx context.Context, cmd CreatePaymentCommand) (*CreatePaymentResult, error) {
	if cmd.OrderID == "" {
		return nil, &domain.ValidationError{Field: "order_id", Message: "order_id is required"}
	}
	if cmd.Amount <= 0 {
		return nil, &domain.ValidationError{Field: "amount", Message: "amount must be greater than 0"}
	}
	if cmd.Currency == "" {
		cmd.Currency = domain.CurrencyAOA
	}
	if !cmd.Currency.IsValid() {
		return nil, &domain.ValidationError{Field: "currency", Message: fmt.Sprintf("unknown currency %q", cmd.Currency)}
	}
	if !cmd.Provider.IsValid() {
		return nil, &domain.ValidationError{Field: "provider", Message: fmt.Sprintf("unknown provider %q", cmd.Provider)}
	}

	providerAdapter, err := h.adapters.Get(cmd.Provider)
	if err != nil {
		return nil, &domain.ValidationError{Field: "provider", Message: err.Error()}
	}

	var intent *domain.PaymentIntent
	if cmd.IdempotencyKey != "" {
		intent, err = h.reserveWithKey(ctx, cmd)
		if err != nil {
			return nil, err
		}
		if intent == nil {
			// Key already maps to a resolved intent; return it without an
			// adapter call.
			existing, err := h.repo.FindByIdempotencyKey(ctx, cmd.IdempotencyKey)
			if err != nil {
				return nil, err
			}
			return &CreatePaymentResult{Intent: existing}, nil
		}
		defer h.inflight.Delete(intent.ID)
	} else {
		intent = newIntent(cmd)
		if err := h.repo.Create(ctx, intent); err != nil {
			return nil, fmt.Errorf("failed to create payment intent: %w", err)
		}
	}

	result, err := providerAdapter.CreatePayment(ctx, intent)
	if err != nil {
		// Transport failure: the remote outcome is unknown, so the intent
		// stays PENDING and a retry with the same idempotency key re-dispatches.
		logger.Error(ctx).Err(err).
			Str("payment_id", intent.ID).
			Str("provider", string(intent.Provider)).
			Msg("Provider call failed, leaving intent pending")
		return nil, &domain.ProviderError{Provider: intent.Provider, Err: err}
	}

	if result.Success {
		intent.Status = result.Status
		intent.ProviderReference = result.ProviderReference
	} else {
		intent.Status = domain.StatusFailed
		intent.FailureCode = result.ErrorCode
		intent.FailureMessage = result.ErrorMessage
	}
	intent.UpdatedAt = time.Now().UTC()

	if err := h.repo.Update(ctx, intent); err != nil {
		return nil, fmt.Errorf("failed to persist payment result: %w", err)
	}

	logger.Info(ctx).
		Str("payment_id", intent.ID).
		Str("provider", string(intent.Provider)).
		Str("status", string(intent.Status)).
		Int64("amount", intent.Amount).
		Msg("Payment created")

	return &CreatePaymentResult{Intent: intent, Result: result}, nil
}

// reserveWithKey atomically reserves the idempotency key and returns the
// intent to dispatch, or nil when the key already maps to an intent that must
// be returned as-is. A pending intent with no provider reference and no
// dispatch in flight is a failed earlier attempt and gets re-dispatched.
func (h *CreatePaymentHandler) reserveWithKey(ctx context.Context, cmd CreatePaymentCommand) (*domain.PaymentIntent, error) {
	unlock := h.locks.Lock("create:" + cmd.IdempotencyKey)
	defer unlock()

	existing, err := h.repo.FindByIdempotencyKey(ctx, cmd.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		_, dispatching := h.inflight.Load(existing.ID)
		if existing.Status != domain.StatusPending || existing.ProviderReference != "" || dispatching {
			return nil, nil
		}
		h.inflight.Store(existing.ID, struct{}{})
		return existing, nil
	}

	intent := newIntent(cmd)
	if err := h.repo.Create(ctx, intent); err != nil {
		if err == domain.ErrDuplicateIdempotencyKey {
			// Lost the insert race to another process; the winner dispatches.
			return nil, nil
		}
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}
	h.inflight.Store(intent.ID, struct{}{})
	return intent, nil
}

func newIntent(cmd CreatePaymentCommand) *domain.PaymentIntent {
	var key *string
	if cmd.IdempotencyKey != "" {
		k := cmd.IdempotencyKey
		key = &k
	}

	ttl := time.Hour
	if cmd.Provider == domain.ProviderBankTransfer {
		ttl = 72 * time.Hour
	}
	expiresAt := time.Now().UTC().Add(ttl)

	return &domain.PaymentIntent{
		ID:             uuid.New().String(),
		CompanyID:      cmd.CompanyID,
		OrderID:        cmd.OrderID,
		Amount:         cmd.Amount,
		Currency:       cmd.Currency,
		Provider:       cmd.Provider,
		Status:         domain.StatusPending,
		Description:    cmd.Description,
		IdempotencyKey: key,
		Metadata:       cmd.Metadata,
		ExpiresAt:      &expiresAt,
	}
}
