package domain

import (
	"context"
	"time"
)

// WebhookEvent is the audit and idempotency log of inbound provider
// deliveries. One row per delivery, mutated only to mark it applied.
type WebhookEvent struct {
	ID              string    `json:"id" gorm:"primaryKey;size:36"`
	Provider        Provider  `json:"provider" gorm:"size:50;not null;index"`
	ProviderEventID string    `json:"provider_event_id,omitempty" gorm:"size:200;index"`
	RawPayload      []byte    `json:"-" gorm:"type:bytes"`
	Signature       string    `json:"-" gorm:"size:500"`
	Verified        bool      `json:"verified" gorm:"not null;default:false"`
	Applied         bool      `json:"applied" gorm:"not null;default:false"`
	LinkedPaymentID string    `json:"linked_payment_id,omitempty" gorm:"size:36;index"`
	Detail          string    `json:"detail,omitempty" gorm:"size:500"`
	ReceivedAt      time.Time `json:"received_at"`
}

// TableName specifies the table name
func (WebhookEvent) TableName() string {
	return "payment_webhook_events"
}

// WebhookEventRepository defines the contract for the webhook delivery log.
type WebhookEventRepository interface {
	Create(ctx context.Context, event *WebhookEvent) error
	MarkApplied(ctx context.Context, id string, paymentID string) error
	// HasApplied reports whether an event with the given provider event id has
	// already been applied, used to detect duplicate deliveries.
	HasApplied(ctx context.Context, provider Provider, providerEventID string) (bool, error)
	ListByPayment(ctx context.Context, paymentID string) ([]WebhookEvent, error)
}
