package kafka

import "time"

// PaymentStatusEvent tells the order subsystem that a payment changed state.
type PaymentStatusEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	PaymentID string    `json:"payment_id"`
	OrderID   string    `json:"order_id"`
	CompanyID string    `json:"company_id"`
	Provider  string    `json:"provider"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCancelledEvent is emitted by the order subsystem when an order is
// cancelled; pending payments for the order get cancelled in response.
type OrderCancelledEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	OrderID   string    `json:"order_id"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Event types
const (
	EventTypePaymentCompleted = "payment.completed"
	EventTypePaymentFailed    = "payment.failed"
	EventTypePaymentRefunded  = "payment.refunded"
	EventTypePaymentCancelled = "payment.cancelled"
	EventTypeOrderCancelled   = "order.cancelled"
)

// Kafka topics
const (
	TopicPaymentEvents  = "payment-events"
	TopicOrderCancelled = "order-cancelled"
)
