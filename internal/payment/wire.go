//go:build wireinject
// +build wireinject

package payment

import (
	"github.com/google/wire"
	"gorm.io/gorm"

	"github.com/geovision/payments/internal/payment/adapter"
	"github.com/geovision/payments/internal/payment/handler"
	"github.com/geovision/payments/internal/payment/usecase/command"
	"github.com/geovision/payments/kafka"
)

// InitializeHandler initializes payment handler with all dependencies
func InitializeHandler(db *gorm.DB, adapters *adapter.Registry, publisher *kafka.Publisher) (*handler.PaymentHandler, error) {
	wire.Build(
		AllHandlersSet,
		handler.NewPaymentHandler,
	)
	return nil, nil
}

// InitializeExpireHandler initializes the payment expiry sweeper
func InitializeExpireHandler(db *gorm.DB) (*command.ExpirePaymentsHandler, error) {
	wire.Build(
		RepositorySet,
		command.NewExpirePaymentsHandler,
	)
	return nil, nil
}

// InitializeCancelOrderPaymentsHandler initializes the order cancellation reactor
func InitializeCancelOrderPaymentsHandler(db *gorm.DB) (*command.CancelOrderPaymentsHandler, error) {
	wire.Build(
		RepositorySet,
		command.NewCancelOrderPaymentsHandler,
	)
	return nil, nil
}
