package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/geovision/payments/internal/payment/domain"
)

// GormPaymentRepository persists payment intents in PostgreSQL. The
// idempotency ledger is the unique index on idempotency_key: a violation on
// insert surfaces as ErrDuplicateIdempotencyKey and callers converge by
// re-reading the winning row.
type GormPaymentRepository struct {
	db *gorm.DB
}

func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

func (r *GormPaymentRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&domain.PaymentIntent{}, &domain.RefundRecord{}, &domain.WebhookEvent{})
}

func (r *GormPaymentRepository) Create(ctx context.Context, intent *domain.PaymentIntent) error {
	err := r.db.WithContext(ctx).Create(intent).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrDuplicateIdempotencyKey
	}
	return err
}

func (r *GormPaymentRepository) FindByID(ctx context.Context, id string) (*domain.PaymentIntent, error) {
	var intent domain.PaymentIntent
	err := r.db.WithContext(ctx).First(&intent, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &domain.NotFoundError{Resource: "payment", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

// FindByIdempotencyKey returns (nil, nil) when the key is unreserved.
func (r *GormPaymentRepository) FindByIdempotencyKey(ctx context.Context, key string) (*domain.PaymentIntent, error) {
	var intent domain.PaymentIntent
	err := r.db.WithContext(ctx).Where("idempotency_key = ?", key).First(&intent).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

// FindByProviderReference returns (nil, nil) when no intent matches.
func (r *GormPaymentRepository) FindByProviderReference(ctx context.Context, provider domain.Provider, reference string) (*domain.PaymentIntent, error) {
	var intent domain.PaymentIntent
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_reference = ?", provider, reference).
		First(&intent).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

func (r *GormPaymentRepository) FindByOrderID(ctx context.Context, orderID string) ([]domain.PaymentIntent, error) {
	var intents []domain.PaymentIntent
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&intents).Error
	return intents, err
}

func (r *GormPaymentRepository) FindExpired(ctx context.Context, now time.Time, limit int) ([]domain.PaymentIntent, error) {
	var intents []domain.PaymentIntent
	err := r.db.WithContext(ctx).
		Where("status IN ? AND expires_at IS NOT NULL AND expires_at < ?",
			[]domain.Status{domain.StatusPending, domain.StatusProcessing, domain.StatusAwaitingConfirmation}, now).
		Limit(limit).
		Find(&intents).Error
	return intents, err
}

func (r *GormPaymentRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.PaymentIntent, error) {
	q := r.db.WithContext(ctx).Model(&domain.PaymentIntent{})
	if filter.CompanyID != "" {
		q = q.Where("company_id = ?", filter.CompanyID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Provider != "" {
		q = q.Where("provider = ?", filter.Provider)
	}
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var intents []domain.PaymentIntent
	err := q.Limit(limit).Offset(filter.Offset).
		Order("created_at DESC").
		Find(&intents).Error
	return intents, err
}

func (r *GormPaymentRepository) Update(ctx context.Context, intent *domain.PaymentIntent) error {
	return r.db.WithContext(ctx).Save(intent).Error
}

func (r *GormPaymentRepository) UpdateStatus(ctx context.Context, id string, from, to domain.Status) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.PaymentIntent{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{"status": to, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormPaymentRepository) ApplyRefund(ctx context.Context, id string, amount int64, to domain.Status) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.PaymentIntent{}).
		Where("id = ? AND refunded_amount + ? <= amount", id, amount).
		Updates(map[string]interface{}{
			"refunded_amount": gorm.Expr("refunded_amount + ?", amount),
			"status":          to,
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// GormRefundRepository persists refund records.
type GormRefundRepository struct {
	db *gorm.DB
}

func NewGormRefundRepository(db *gorm.DB) *GormRefundRepository {
	return &GormRefundRepository{db: db}
}

func (r *GormRefundRepository) Create(ctx context.Context, refund *domain.RefundRecord) error {
	return r.db.WithContext(ctx).Create(refund).Error
}

func (r *GormRefundRepository) Update(ctx context.Context, refund *domain.RefundRecord) error {
	return r.db.WithContext(ctx).Save(refund).Error
}

func (r *GormRefundRepository) FindByID(ctx context.Context, id string) (*domain.RefundRecord, error) {
	var refund domain.RefundRecord
	err := r.db.WithContext(ctx).First(&refund, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &domain.NotFoundError{Resource: "refund", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &refund, nil
}

func (r *GormRefundRepository) ListByPaymentIntent(ctx context.Context, paymentIntentID string) ([]domain.RefundRecord, error) {
	var refunds []domain.RefundRecord
	err := r.db.WithContext(ctx).
		Where("payment_intent_id = ?", paymentIntentID).
		Order("created_at ASC").
		Find(&refunds).Error
	return refunds, err
}

// GormWebhookEventRepository persists the inbound webhook delivery log.
type GormWebhookEventRepository struct {
	db *gorm.DB
}

func NewGormWebhookEventRepository(db *gorm.DB) *GormWebhookEventRepository {
	return &GormWebhookEventRepository{db: db}
}

func (r *GormWebhookEventRepository) Create(ctx context.Context, event *domain.WebhookEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *GormWebhookEventRepository) MarkApplied(ctx context.Context, id string, paymentID string) error {
	return r.db.WithContext(ctx).Model(&domain.WebhookEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"applied": true, "linked_payment_id": paymentID}).Error
}

func (r *GormWebhookEventRepository) HasApplied(ctx context.Context, provider domain.Provider, providerEventID string) (bool, error) {
	if providerEventID == "" {
		return false, nil
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.WebhookEvent{}).
		Where("provider = ? AND provider_event_id = ? AND applied = ?", provider, providerEventID, true).
		Count(&count).Error
	return count > 0, err
}

func (r *GormWebhookEventRepository) ListByPayment(ctx context.Context, paymentID string) ([]domain.WebhookEvent, error) {
	var events []domain.WebhookEvent
	err := r.db.WithContext(ctx).
		Where("linked_payment_id = ?", paymentID).
		Order("received_at ASC").
		Find(&events).Error
	return events, err
}
