package handler

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterSwaggerDocs registers Swagger documentation routes
// @Summary Swagger documentation
// @Description Swagger API documentation
// @Tags Swagger
// @Success 200 {string} string "Swagger UI"
// @Router /swagger/ [get]
func RegisterSwaggerDocs(router *mux.Router, swaggerHandler http.Handler) {
	// Swagger UI
	router.PathPrefix("/swagger/").Handler(swaggerHandler)
}

// CreatePayment godoc
// @Summary Create a payment intent
// @Description Create a payment intent for an order and dispatch it to the selected provider (Authenticated users)
// @Tags Payments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param X-Idempotency-Key header string false "Idempotency key"
// @Param request body object{company_id=string,order_id=string,amount=int,currency=string,provider=string,description=string,metadata=object} true "Payment data"
// @Success 201 {object} object{success=bool,message=string,data=object}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 401 {object} object{success=bool,error=string}
// @Failure 502 {object} object{success=bool,error=string}
// @Router /api/payments [post]
func (h *PaymentHandler) CreatePaymentDoc() {}

// GetPayment godoc
// @Summary Get payment by ID
// @Description Get a specific payment intent by its ID
// @Tags Payments
// @Security BearerAuth
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} object{success=bool,data=object}
// @Failure 401 {object} object{success=bool,error=string}
// @Failure 404 {object} object{success=bool,error=string}
// @Router /api/payments/{id} [get]
func (h *PaymentHandler) GetPaymentDoc() {}

// CheckStatus godoc
// @Summary Check payment status
// @Description Query the provider for the current payment status and reconcile the stored state
// @Tags Payments
// @Security BearerAuth
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} object{success=bool,data=object{payment_id=string,status=string}}
// @Failure 401 {object} object{success=bool,error=string}
// @Failure 404 {object} object{success=bool,error=string}
// @Router /api/payments/{id}/status [get]
func (h *PaymentHandler) CheckStatusDoc() {}

// ListPayments godoc
// @Summary List payments
// @Description List payment intents with optional filters and pagination (Admin only)
// @Tags Payments
// @Security BearerAuth
// @Produce json
// @Param company_id query string false "Company ID"
// @Param status query string false "Status filter"
// @Param provider query string false "Provider filter"
// @Param limit query int false "Limit"
// @Param offset query int false "Offset"
// @Success 200 {object} object{success=bool,data=object{payments=array,total=int}}
// @Failure 403 {object} object{success=bool,error=string}
// @Router /api/payments [get]
func (h *PaymentHandler) ListPaymentsDoc() {}

// ConfirmTransfer godoc
// @Summary Confirm a bank transfer
// @Description Mark an awaiting bank transfer payment as completed (Admin only)
// @Tags Payments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Param request body object{bank_reference=string} false "Confirmation data"
// @Success 200 {object} object{success=bool,message=string,data=object}
// @Failure 403 {object} object{success=bool,error=string}
// @Failure 409 {object} object{success=bool,error=string}
// @Router /api/payments/{id}/confirm [post]
func (h *PaymentHandler) ConfirmTransferDoc() {}

// Refund godoc
// @Summary Refund a payment
// @Description Refund a completed payment fully or partially (Admin only)
// @Tags Payments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Param request body object{amount=int,reason=string} false "Refund data; omit amount for a full refund"
// @Success 200 {object} object{success=bool,message=string,data=object}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 409 {object} object{success=bool,error=string}
// @Failure 502 {object} object{success=bool,error=string}
// @Router /api/payments/{id}/refund [post]
func (h *PaymentHandler) RefundDoc() {}

// HandleWebhook godoc
// @Summary Handle provider webhook
// @Description Verify and apply an asynchronous payment notification from a provider
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param provider path string true "Provider name"
// @Success 200 {object} object{success=bool,data=object}
// @Failure 400 {object} object{success=bool,error=string}
// @Router /webhooks/{provider} [post]
func (h *PaymentHandler) HandleWebhookDoc() {}

// HealthCheck godoc
// @Summary Health check
// @Description Check service health and database connectivity
// @Tags Health
// @Produce json
// @Success 200 {object} object{success=bool,message=string}
// @Failure 503 {object} object{success=bool,error=string}
// @Router /health [get]
func (h *PaymentHandler) HealthCheckDoc() {}
