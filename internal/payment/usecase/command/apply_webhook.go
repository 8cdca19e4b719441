package command

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/geovision/payments/internal/payment/adapter"
	"github.com/geovision/payments/internal/payment/domain"
	"github.com/geovision/payments/pkg/logger"
)

// ApplyWebhookCommand represents an inbound provider delivery.
type ApplyWebhookCommand struct {
	Provider  domain.Provider
	Payload   []byte
	Signature string
}

// WebhookOutcome reports what happened to a delivery. Applied=false with a
// nil error means the event was received and logged but deliberately ignored
// (duplicate, out of order, or unmatched), which the endpoint acknowledges.
type WebhookOutcome struct {
	EventID   string        `json:"event_id"`
	PaymentID string        `json:"payment_id,omitempty"`
	Applied   bool          `json:"applied"`
	Status    domain.Status `json:"status,omitempty"`
	Detail    string        `json:"detail,omitempty"`
}

// ApplyWebhookHandler verifies, logs and applies provider webhooks. A status
// is applied only when it is a forward transition from the stored one, and
// the write is a compare-and-swap, so arbitrary duplication and reordering of
// deliveries cannot move an intent backwards.
type ApplyWebhookHandler struct {
	repo     domain.PaymentIntentRepository
	events   domain.WebhookEventRepository
	adapters *adapter.Registry
}

// NewApplyWebhookHandler creates a new apply webhook handler
func NewApplyWebhookHandler(repo domain.PaymentIntentRepository, events domain.WebhookEventRepository, adapters *adapter.Registry) *ApplyWebhookHandler {
	return &ApplyWebhookHandler{repo: repo, events: events, adapters: adapters}
}

// Handle executes the apply webhook command
func (h *ApplyWebhookHandler) Handle(ctx context.Context, cmd ApplyWebhookCommand) (*WebhookOutcome, error) {
	providerAdapter, err := h.adapters.Get(cmd.Provider)
	if err != nil {
		return nil, &domain.ValidationError{Field: "provider", Message: err.Error()}
	}

	event := &domain.WebhookEvent{
		ID:         uuid.New().String(),
		Provider:   cmd.Provider,
		RawPayload: cmd.Payload,
		Signature:  cmd.Signature,
		ReceivedAt: time.Now().UTC(),
	}

	if !providerAdapter.VerifyWebhook(cmd.Payload, cmd.Signature) {
		event.Detail = "invalid signature"
		h.log(ctx, event)
		logger.Warn(ctx).Str("provider", string(cmd.Provider)).Msg("Webhook signature rejected")
		return nil, &domain.SignatureError{Provider: cmd.Provider}
	}
	event.Verified = true

	parser, ok := providerAdapter.(adapter.WebhookParser)
	if !ok {
		event.Detail = "provider has no webhook channel"
		h.log(ctx, event)
		return nil, &domain.StateError{Message: fmt.Sprintf("provider %s does not deliver webhooks", cmd.Provider)}
	}

	notice, err := parser.ParseWebhook(cmd.Payload)
	if err != nil {
		event.Detail = err.Error()
		h.log(ctx, event)
		return nil, &domain.ValidationError{Field: "payload", Message: err.Error()}
	}
	event.ProviderEventID = notice.EventID

	if dup, err := h.events.HasApplied(ctx, cmd.Provider, notice.EventID); err == nil && dup {
		event.Detail = "duplicate delivery"
		h.log(ctx, event)
		return &WebhookOutcome{EventID: event.ID, Applied: false, Detail: event.Detail}, nil
	}

	intent, err := h.repo.FindByProviderReference(ctx, cmd.Provider, notice.ProviderReference)
	if err != nil {
		return nil, err
	}
	if intent == nil {
		// Acknowledge and drop: the provider should not keep retrying an
		// event we will never match.
		event.Detail = "no matching payment"
		h.log(ctx, event)
		logger.Warn(ctx).
			Str("provider", string(cmd.Provider)).
			Str("provider_reference", notice.ProviderReference).
			Msg("Webhook references unknown payment")
		return &WebhookOutcome{EventID: event.ID, Applied: false, Detail: event.Detail}, nil
	}
	event.LinkedPaymentID = intent.ID

	if !intent.Status.CanTransitionTo(notice.Status) {
		event.Detail = fmt.Sprintf("ignored: %s is not forward of %s", notice.Status, intent.Status)
		h.log(ctx, event)
		return &WebhookOutcome{EventID: event.ID, PaymentID: intent.ID, Applied: false, Detail: event.Detail}, nil
	}

	h.log(ctx, event)

	applied, err := h.repo.UpdateStatus(ctx, intent.ID, intent.Status, notice.Status)
	if err != nil {
		return nil, err
	}
	if !applied {
		// Lost a race with another writer; re-check against the fresh state.
		fresh, err := h.repo.FindByID(ctx, intent.ID)
		if err != nil {
			return nil, err
		}
		if fresh.Status.CanTransitionTo(notice.Status) {
			applied, err = h.repo.UpdateStatus(ctx, intent.ID, fresh.Status, notice.Status)
			if err != nil {
				return nil, err
			}
		}
	}

	if applied {
		if err := h.events.MarkApplied(ctx, event.ID, intent.ID); err != nil {
			logger.Error(ctx).Err(err).Str("event_id", event.ID).Msg("Failed to mark webhook event applied")
		}
		logger.Info(ctx).
			Str("payment_id", intent.ID).
			Str("provider", string(cmd.Provider)).
			Str("status_from", string(intent.Status)).
			Str("status_to", string(notice.Status)).
			Msg("Webhook applied")
	}

	return &WebhookOutcome{
		EventID:   event.ID,
		PaymentID: intent.ID,
		Applied:   applied,
		Status:    notice.Status,
	}, nil
}

func (h *ApplyWebhookHandler) log(ctx context.Context, event *domain.WebhookEvent) {
	if err := h.events.Create(ctx, event); err != nil {
		logger.Error(ctx).Err(err).Str("provider", string(event.Provider)).Msg("Failed to log webhook event")
	}
}
