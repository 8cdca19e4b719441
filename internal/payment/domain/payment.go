package domain

import (
	"context"
	"time"
)

// PaymentIntent is the durable record of one payment attempt.
// It is created exactly once per idempotency key and never deleted.
type PaymentIntent struct {
	ID                string            `json:"id" gorm:"primaryKey;size:36"`
	CompanyID         string            `json:"company_id" gorm:"size:36;index"`
	OrderID           string            `json:"order_id" gorm:"size:36;not null;index"`
	Amount            int64             `json:"amount" gorm:"not null"` // smallest currency unit
	Currency          Currency          `json:"currency" gorm:"size:3;not null;default:'AOA'"`
	Provider          Provider          `json:"provider" gorm:"size:50;not null;index"`
	Status            Status            `json:"status" gorm:"size:30;not null;index"`
	Description       string            `json:"description" gorm:"size:500"`
	ProviderReference string            `json:"provider_reference" gorm:"size:200;index"`
	IdempotencyKey    *string           `json:"idempotency_key,omitempty" gorm:"size:100;uniqueIndex"`
	RefundedAmount    int64             `json:"refunded_amount" gorm:"not null;default:0"`
	FailureCode       string            `json:"failure_code,omitempty" gorm:"size:50"`
	FailureMessage    string            `json:"failure_message,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty" gorm:"serializer:json"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
	ExpiresAt         *time.Time        `json:"expires_at,omitempty"`
}

// TableName specifies the table name
func (PaymentIntent) TableName() string {
	return "payment_intents"
}

// RemainingBalance is the amount still refundable against this intent.
func (p *PaymentIntent) RemainingBalance() int64 {
	return p.Amount - p.RefundedAmount
}

// Status is the lifecycle state of a payment intent.
type Status string

const (
	StatusPending              Status = "pending"
	StatusProcessing           Status = "processing"
	StatusAwaitingConfirmation Status = "awaiting_confirmation" // bank transfers only
	StatusCompleted            Status = "completed"
	StatusFailed               Status = "failed"
	StatusCancelled            Status = "cancelled"
	StatusRefunded             Status = "refunded"
	StatusPartiallyRefunded    Status = "partially_refunded"
)

// transitions is the closed set of legal forward moves. Anything absent here
// is rejected, which is what keeps webhook application idempotent under
// duplicate and out-of-order delivery.
var transitions = map[Status][]Status{
	StatusPending:              {StatusProcessing, StatusAwaitingConfirmation, StatusCompleted, StatusFailed, StatusCancelled},
	StatusProcessing:           {StatusCompleted, StatusFailed, StatusCancelled},
	StatusAwaitingConfirmation: {StatusCompleted, StatusCancelled},
	StatusCompleted:            {StatusPartiallyRefunded, StatusRefunded},
	StatusPartiallyRefunded:    {StatusPartiallyRefunded, StatusRefunded},
}

// CanTransitionTo reports whether moving from s to next is a legal forward
// transition in the payment state machine.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further automatic transition can occur.
// PARTIALLY_REFUNDED is deliberately not terminal: further refunds are
// permitted until the balance reaches zero.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// IsValid reports whether s is a known status value.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusAwaitingConfirmation,
		StatusCompleted, StatusFailed, StatusCancelled,
		StatusRefunded, StatusPartiallyRefunded:
		return true
	}
	return false
}

// Provider selects which adapter handles an intent.
type Provider string

const (
	ProviderMulticaixaExpress Provider = "multicaixa_express"
	ProviderVisaMastercard    Provider = "visa_mastercard"
	ProviderBankTransfer      Provider = "bank_transfer"
)

// IsValid reports whether p is a known provider value.
func (p Provider) IsValid() bool {
	switch p {
	case ProviderMulticaixaExpress, ProviderVisaMastercard, ProviderBankTransfer:
		return true
	}
	return false
}

// Currency is an ISO 4217 currency code supported by the platform.
type Currency string

const (
	CurrencyAOA Currency = "AOA" // Angolan Kwanza
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

// IsValid reports whether c is a supported currency.
func (c Currency) IsValid() bool {
	switch c {
	case CurrencyAOA, CurrencyUSD, CurrencyEUR:
		return true
	}
	return false
}

// ListFilter narrows a payment listing.
type ListFilter struct {
	CompanyID string
	Status    Status
	Provider  Provider
	Limit     int
	Offset    int
}

// PaymentIntentRepository defines the contract for payment intent data access.
// Create must fail with ErrDuplicateIdempotencyKey when the idempotency key is
// already reserved, so concurrent duplicate creations converge by re-reading.
type PaymentIntentRepository interface {
	Create(ctx context.Context, intent *PaymentIntent) error
	FindByID(ctx context.Context, id string) (*PaymentIntent, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*PaymentIntent, error)
	FindByProviderReference(ctx context.Context, provider Provider, reference string) (*PaymentIntent, error)
	FindByOrderID(ctx context.Context, orderID string) ([]PaymentIntent, error)
	FindExpired(ctx context.Context, now time.Time, limit int) ([]PaymentIntent, error)
	List(ctx context.Context, filter ListFilter) ([]PaymentIntent, error)
	Update(ctx context.Context, intent *PaymentIntent) error

	// UpdateStatus performs a compare-and-swap on status. It reports false when
	// the stored status no longer equals from, in which case nothing changed.
	UpdateStatus(ctx context.Context, id string, from, to Status) (bool, error)

	// ApplyRefund atomically increments refunded_amount and sets the new status,
	// guarded by refunded_amount + amount <= amount. Reports false when the
	// guard fails, in which case nothing changed.
	ApplyRefund(ctx context.Context, id string, amount int64, to Status) (bool, error)
}
