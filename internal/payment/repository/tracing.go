package repository

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/geovision/payments/internal/payment/domain"
)

var tracer = otel.Tracer("payment-repository")

// PaymentRepositoryWithTracing wraps a PaymentIntentRepository with
// OpenTelemetry spans around every data access.
type PaymentRepositoryWithTracing struct {
	inner domain.PaymentIntentRepository
}

// NewPaymentRepositoryWithTracing creates a tracing decorator over repo.
func NewPaymentRepositoryWithTracing(inner domain.PaymentIntentRepository) *PaymentRepositoryWithTracing {
	return &PaymentRepositoryWithTracing{inner: inner}
}

func (r *PaymentRepositoryWithTracing) span(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func record(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

func (r *PaymentRepositoryWithTracing) Create(ctx context.Context, intent *domain.PaymentIntent) error {
	ctx, span := r.span(ctx, "repository.Create",
		attribute.String("payment.id", intent.ID),
		attribute.String("payment.provider", string(intent.Provider)),
		attribute.Int64("payment.amount", intent.Amount),
	)
	defer span.End()

	err := r.inner.Create(ctx, intent)
	record(span, err)
	return err
}

func (r *PaymentRepositoryWithTracing) FindByID(ctx context.Context, id string) (*domain.PaymentIntent, error) {
	ctx, span := r.span(ctx, "repository.FindByID", attribute.String("payment.id", id))
	defer span.End()

	intent, err := r.inner.FindByID(ctx, id)
	record(span, err)
	return intent, err
}

func (r *PaymentRepositoryWithTracing) FindByIdempotencyKey(ctx context.Context, key string) (*domain.PaymentIntent, error) {
	ctx, span := r.span(ctx, "repository.FindByIdempotencyKey")
	defer span.End()

	intent, err := r.inner.FindByIdempotencyKey(ctx, key)
	record(span, err)
	span.SetAttributes(attribute.Bool("payment.idempotency_hit", intent != nil))
	return intent, err
}

func (r *PaymentRepositoryWithTracing) FindByProviderReference(ctx context.Context, provider domain.Provider, reference string) (*domain.PaymentIntent, error) {
	ctx, span := r.span(ctx, "repository.FindByProviderReference",
		attribute.String("payment.provider", string(provider)),
		attribute.String("payment.provider_reference", reference),
	)
	defer span.End()

	intent, err := r.inner.FindByProviderReference(ctx, provider, reference)
	record(span, err)
	return intent, err
}

func (r *PaymentRepositoryWithTracing) FindByOrderID(ctx context.Context, orderID string) ([]domain.PaymentIntent, error) {
	ctx, span := r.span(ctx, "repository.FindByOrderID", attribute.String("payment.order_id", orderID))
	defer span.End()

	intents, err := r.inner.FindByOrderID(ctx, orderID)
	record(span, err)
	return intents, err
}

func (r *PaymentRepositoryWithTracing) FindExpired(ctx context.Context, now time.Time, limit int) ([]domain.PaymentIntent, error) {
	ctx, span := r.span(ctx, "repository.FindExpired", attribute.Int("limit", limit))
	defer span.End()

	intents, err := r.inner.FindExpired(ctx, now, limit)
	record(span, err)
	span.SetAttributes(attribute.Int("payment.expired_count", len(intents)))
	return intents, err
}

func (r *PaymentRepositoryWithTracing) List(ctx context.Context, filter domain.ListFilter) ([]domain.PaymentIntent, error) {
	ctx, span := r.span(ctx, "repository.List")
	defer span.End()

	intents, err := r.inner.List(ctx, filter)
	record(span, err)
	return intents, err
}

func (r *PaymentRepositoryWithTracing) Update(ctx context.Context, intent *domain.PaymentIntent) error {
	ctx, span := r.span(ctx, "repository.Update",
		attribute.String("payment.id", intent.ID),
		attribute.String("payment.status", string(intent.Status)),
	)
	defer span.End()

	err := r.inner.Update(ctx, intent)
	record(span, err)
	return err
}

func (r *PaymentRepositoryWithTracing) UpdateStatus(ctx context.Context, id string, from, to domain.Status) (bool, error) {
	ctx, span := r.span(ctx, "repository.UpdateStatus",
		attribute.String("payment.id", id),
		attribute.String("payment.status_from", string(from)),
		attribute.String("payment.status_to", string(to)),
	)
	defer span.End()

	applied, err := r.inner.UpdateStatus(ctx, id, from, to)
	record(span, err)
	span.SetAttributes(attribute.Bool("payment.status_applied", applied))
	return applied, err
}

func (r *PaymentRepositoryWithTracing) ApplyRefund(ctx context.Context, id string, amount int64, to domain.Status) (bool, error) {
	ctx, span := r.span(ctx, "repository.ApplyRefund",
		attribute.String("payment.id", id),
		attribute.Int64("refund.amount", amount),
	)
	defer span.End()

	applied, err := r.inner.ApplyRefund(ctx, id, amount, to)
	record(span, err)
	span.SetAttributes(attribute.Bool("refund.applied", applied))
	return applied, err
}
