package payment

import (
	"github.com/google/wire"
	"gorm.io/gorm"

	"github.com/geovision/payments/internal/payment/adapter"
	"github.com/geovision/payments/internal/payment/domain"
	"github.com/geovision/payments/internal/payment/repository"
	"github.com/geovision/payments/internal/payment/usecase/command"
	"github.com/geovision/payments/internal/payment/usecase/query"
)

// ProvidePaymentRepository provides the payment intent repository with tracing
func ProvidePaymentRepository(db *gorm.DB) domain.PaymentIntentRepository {
	return repository.NewPaymentRepositoryWithTracing(repository.NewGormPaymentRepository(db))
}

// ProvideRefundRepository provides the refund repository
func ProvideRefundRepository(db *gorm.DB) domain.RefundRepository {
	return repository.NewGormRefundRepository(db)
}

// ProvideWebhookEventRepository provides the webhook event repository
func ProvideWebhookEventRepository(db *gorm.DB) domain.WebhookEventRepository {
	return repository.NewGormWebhookEventRepository(db)
}

// Command Handlers Providers
func ProvideCreatePaymentHandler(repo domain.PaymentIntentRepository, adapters *adapter.Registry) *command.CreatePaymentHandler {
	return command.NewCreatePaymentHandler(repo, adapters)
}

func ProvideCheckStatusHandler(repo domain.PaymentIntentRepository, adapters *adapter.Registry) *command.CheckStatusHandler {
	return command.NewCheckStatusHandler(repo, adapters)
}

func ProvideConfirmTransferHandler(repo domain.PaymentIntentRepository) *command.ConfirmTransferHandler {
	return command.NewConfirmTransferHandler(repo)
}

func ProvideRefundPaymentHandler(repo domain.PaymentIntentRepository, refunds domain.RefundRepository, adapters *adapter.Registry) *command.RefundPaymentHandler {
	return command.NewRefundPaymentHandler(repo, refunds, adapters)
}

func ProvideApplyWebhookHandler(repo domain.PaymentIntentRepository, events domain.WebhookEventRepository, adapters *adapter.Registry) *command.ApplyWebhookHandler {
	return command.NewApplyWebhookHandler(repo, events, adapters)
}

// Query Handlers Providers
func ProvideGetPaymentHandler(repo domain.PaymentIntentRepository) *query.GetPaymentHandler {
	return query.NewGetPaymentHandler(repo)
}

func ProvideListPaymentsHandler(repo domain.PaymentIntentRepository) *query.ListPaymentsHandler {
	return query.NewListPaymentsHandler(repo)
}

func ProvideListRefundsHandler(repo domain.PaymentIntentRepository, refunds domain.RefundRepository) *query.ListRefundsHandler {
	return query.NewListRefundsHandler(repo, refunds)
}

// Wire sets
var RepositorySet = wire.NewSet(
	ProvidePaymentRepository,
	ProvideRefundRepository,
	ProvideWebhookEventRepository,
)

var CommandHandlerSet = wire.NewSet(
	ProvideCreatePaymentHandler,
	ProvideCheckStatusHandler,
	ProvideConfirmTransferHandler,
	ProvideRefundPaymentHandler,
	ProvideApplyWebhookHandler,
)

var QueryHandlerSet = wire.NewSet(
	ProvideGetPaymentHandler,
	ProvideListPaymentsHandler,
	ProvideListRefundsHandler,
)

var AllHandlersSet = wire.NewSet(
	RepositorySet,
	CommandHandlerSet,
	QueryHandlerSet,
)
