package domain

import (
	"context"
	"time"
)

// RefundRecord is one refund attempt against a payment intent.
// Immutable once it reaches a terminal refund status.
type RefundRecord struct {
	ID               string       `json:"id" gorm:"primaryKey;size:36"`
	PaymentIntentID  string       `json:"payment_intent_id" gorm:"size:36;not null;index"`
	Amount           int64        `json:"amount" gorm:"not null"`
	Currency         Currency     `json:"currency" gorm:"size:3;not null"`
	Status           RefundStatus `json:"status" gorm:"size:30;not null"`
	Reason           string       `json:"reason,omitempty" gorm:"size:500"`
	ProviderRefundID string       `json:"provider_refund_id,omitempty" gorm:"size:200"`
	RequestedBy      string       `json:"requested_by,omitempty" gorm:"size:100"`
	FailureMessage   string       `json:"failure_message,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// TableName specifies the table name
func (RefundRecord) TableName() string {
	return "payment_refunds"
}

// RefundStatus is the lifecycle state of a refund attempt.
type RefundStatus string

const (
	RefundStatusPending   RefundStatus = "pending"
	RefundStatusSucceeded RefundStatus = "succeeded"
	RefundStatusFailed    RefundStatus = "failed"
)

// RefundRepository defines the contract for refund record data access.
type RefundRepository interface {
	Create(ctx context.Context, refund *RefundRecord) error
	Update(ctx context.Context, refund *RefundRecord) error
	FindByID(ctx context.Context, id string) (*RefundRecord, error)
	ListByPaymentIntent(ctx context.Context, paymentIntentID string) ([]RefundRecord, error)
}
