package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/geovision/payments/internal/payment/domain"
)

// MemoryPaymentRepository is an in-memory PaymentIntentRepository with the
// same atomicity guarantees as the PostgreSQL implementation. Used by tests
// and local development without a database.
type MemoryPaymentRepository struct {
	mu      sync.Mutex
	intents map[string]domain.PaymentIntent
	keys    map[string]string // idempotency key -> intent id
}

func NewMemoryPaymentRepository() *MemoryPaymentRepository {
	return &MemoryPaymentRepository{
		intents: make(map[string]domain.PaymentIntent),
		keys:    make(map[string]string),
	}
}

func (r *MemoryPaymentRepository) Create(ctx context.Context, intent *domain.PaymentIntent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if intent.IdempotencyKey != nil {
		if _, exists := r.keys[*intent.IdempotencyKey]; exists {
			return domain.ErrDuplicateIdempotencyKey
		}
	}

	now := time.Now().UTC()
	intent.CreatedAt = now
	intent.UpdatedAt = now
	r.intents[intent.ID] = *intent
	if intent.IdempotencyKey != nil {
		r.keys[*intent.IdempotencyKey] = intent.ID
	}
	return nil
}

func (r *MemoryPaymentRepository) FindByID(ctx context.Context, id string) (*domain.PaymentIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	intent, ok := r.intents[id]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "payment", ID: id}
	}
	return &intent, nil
}

func (r *MemoryPaymentRepository) FindByIdempotencyKey(ctx context.Context, key string) (*domain.PaymentIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.keys[key]
	if !ok {
		return nil, nil
	}
	intent := r.intents[id]
	return &intent, nil
}

func (r *MemoryPaymentRepository) FindByProviderReference(ctx context.Context, provider domain.Provider, reference string) (*domain.PaymentIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, intent := range r.intents {
		if intent.Provider == provider && intent.ProviderReference == reference {
			found := intent
			return &found, nil
		}
	}
	return nil, nil
}

func (r *MemoryPaymentRepository) FindByOrderID(ctx context.Context, orderID string) ([]domain.PaymentIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var intents []domain.PaymentIntent
	for _, intent := range r.intents {
		if intent.OrderID == orderID {
			intents = append(intents, intent)
		}
	}
	sortByCreatedDesc(intents)
	return intents, nil
}

func (r *MemoryPaymentRepository) FindExpired(ctx context.Context, now time.Time, limit int) ([]domain.PaymentIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var intents []domain.PaymentIntent
	for _, intent := range r.intents {
		if intent.Status.IsTerminal() || intent.Status == domain.StatusPartiallyRefunded {
			continue
		}
		if intent.ExpiresAt != nil && intent.ExpiresAt.Before(now) {
			intents = append(intents, intent)
		}
		if limit > 0 && len(intents) >= limit {
			break
		}
	}
	return intents, nil
}

func (r *MemoryPaymentRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.PaymentIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var intents []domain.PaymentIntent
	for _, intent := range r.intents {
		if filter.CompanyID != "" && intent.CompanyID != filter.CompanyID {
			continue
		}
		if filter.Status != "" && intent.Status != filter.Status {
			continue
		}
		if filter.Provider != "" && intent.Provider != filter.Provider {
			continue
		}
		intents = append(intents, intent)
	}
	sortByCreatedDesc(intents)

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if filter.Offset >= len(intents) {
		return nil, nil
	}
	intents = intents[filter.Offset:]
	if len(intents) > limit {
		intents = intents[:limit]
	}
	return intents, nil
}

func (r *MemoryPaymentRepository) Update(ctx context.Context, intent *domain.PaymentIntent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.intents[intent.ID]; !ok {
		return &domain.NotFoundError{Resource: "payment", ID: intent.ID}
	}
	intent.UpdatedAt = time.Now().UTC()
	r.intents[intent.ID] = *intent
	return nil
}

func (r *MemoryPaymentRepository) UpdateStatus(ctx context.Context, id string, from, to domain.Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	intent, ok := r.intents[id]
	if !ok || intent.Status != from {
		return false, nil
	}
	intent.Status = to
	intent.UpdatedAt = time.Now().UTC()
	r.intents[id] = intent
	return true, nil
}

func (r *MemoryPaymentRepository) ApplyRefund(ctx context.Context, id string, amount int64, to domain.Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	intent, ok := r.intents[id]
	if !ok || intent.RefundedAmount+amount > intent.Amount {
		return false, nil
	}
	intent.RefundedAmount += amount
	intent.Status = to
	intent.UpdatedAt = time.Now().UTC()
	r.intents[id] = intent
	return true, nil
}

func sortByCreatedDesc(intents []domain.PaymentIntent) {
	sort.Slice(intents, func(i, j int) bool {
		return intents[i].CreatedAt.After(intents[j].CreatedAt)
	})
}

// MemoryRefundRepository is an in-memory RefundRepository.
type MemoryRefundRepository struct {
	mu      sync.Mutex
	refunds map[string]domain.RefundRecord
}

func NewMemoryRefundRepository() *MemoryRefundRepository {
	return &MemoryRefundRepository{refunds: make(map[string]domain.RefundRecord)}
}

func (r *MemoryRefundRepository) Create(ctx context.Context, refund *domain.RefundRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	refund.CreatedAt = now
	refund.UpdatedAt = now
	r.refunds[refund.ID] = *refund
	return nil
}

func (r *MemoryRefundRepository) Update(ctx context.Context, refund *domain.RefundRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.refunds[refund.ID]; !ok {
		return &domain.NotFoundError{Resource: "refund", ID: refund.ID}
	}
	refund.UpdatedAt = time.Now().UTC()
	r.refunds[refund.ID] = *refund
	return nil
}

func (r *MemoryRefundRepository) FindByID(ctx context.Context, id string) (*domain.RefundRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	refund, ok := r.refunds[id]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "refund", ID: id}
	}
	return &refund, nil
}

func (r *MemoryRefundRepository) ListByPaymentIntent(ctx context.Context, paymentIntentID string) ([]domain.RefundRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var refunds []domain.RefundRecord
	for _, refund := range r.refunds {
		if refund.PaymentIntentID == paymentIntentID {
			refunds = append(refunds, refund)
		}
	}
	sort.Slice(refunds, func(i, j int) bool {
		return refunds[i].CreatedAt.Before(refunds[j].CreatedAt)
	})
	return refunds, nil
}

// MemoryWebhookEventRepository is an in-memory WebhookEventRepository.
type MemoryWebhookEventRepository struct {
	mu     sync.Mutex
	events map[string]domain.WebhookEvent
}

func NewMemoryWebhookEventRepository() *MemoryWebhookEventRepository {
	return &MemoryWebhookEventRepository{events: make(map[string]domain.WebhookEvent)}
}

func (r *MemoryWebhookEventRepository) Create(ctx context.Context, event *domain.WebhookEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now().UTC()
	}
	r.events[event.ID] = *event
	return nil
}

func (r *MemoryWebhookEventRepository) MarkApplied(ctx context.Context, id string, paymentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[id]
	if !ok {
		return &domain.NotFoundError{Resource: "webhook_event", ID: id}
	}
	event.Applied = true
	event.LinkedPaymentID = paymentID
	r.events[id] = event
	return nil
}

func (r *MemoryWebhookEventRepository) HasApplied(ctx context.Context, provider domain.Provider, providerEventID string) (bool, error) {
	if providerEventID == "" {
		return false, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, event := range r.events {
		if event.Provider == provider && event.ProviderEventID == providerEventID && event.Applied {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryWebhookEventRepository) ListByPayment(ctx context.Context, paymentID string) ([]domain.WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var events []domain.WebhookEvent
	for _, event := range r.events {
		if event.LinkedPaymentID == paymentID {
			events = append(events, event)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].ReceivedAt.Before(events[j].ReceivedAt)
	})
	return events, nil
}
