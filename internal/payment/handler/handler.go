package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/geovision/payments/internal/payment/domain"
	"github.com/geovision/payments/internal/payment/usecase/command"
	"github.com/geovision/payments/internal/payment/usecase/query"
	"github.com/geovision/payments/kafka"
	"github.com/geovision/payments/pkg/logger"
)

// PaymentHandler handles HTTP requests for payments using CQRS pattern
type PaymentHandler struct {
	// Command handlers
	createHandler   *command.CreatePaymentHandler
	statusHandler   *command.CheckStatusHandler
	confirmHandler  *command.ConfirmTransferHandler
	refundHandler   *command.RefundPaymentHandler
	webhookHandler  *command.ApplyWebhookHandler

	// Query handlers
	getHandler         *query.GetPaymentHandler
	listHandler        *query.ListPaymentsHandler
	listRefundsHandler *query.ListRefundsHandler

	repo           domain.PaymentIntentRepository
	kafkaPublisher *kafka.Publisher

	requestCounter *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	paymentCounter *prometheus.CounterVec
	webhookCounter *prometheus.CounterVec
}

// NewPaymentHandler creates a new payment handler using dependency injection
func NewPaymentHandler(
	createHandler *command.CreatePaymentHandler,
	statusHandler *command.CheckStatusHandler,
	confirmHandler *command.ConfirmTransferHandler,
	refundHandler *command.RefundPaymentHandler,
	webhookHandler *command.ApplyWebhookHandler,
	getHandler *query.GetPaymentHandler,
	listHandler *query.ListPaymentsHandler,
	listRefundsHandler *query.ListRefundsHandler,
	repo domain.PaymentIntentRepository,
	kafkaPublisher *kafka.Publisher,
) *PaymentHandler {
	requestCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_service_requests_total",
			Help: "Total number of requests to payment service",
		},
		[]string{"method", "endpoint", "status"},
	)

	requestLatency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_service_request_duration_seconds",
			Help:    "Duration of payment service requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	paymentCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_service_payments_total",
			Help: "Payments created by provider and resulting status",
		},
		[]string{"provider", "status"},
	)

	webhookCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_service_webhook_events_total",
			Help: "Webhook deliveries by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	prometheus.MustRegister(requestCounter)
	prometheus.MustRegister(requestLatency)
	prometheus.MustRegister(paymentCounter)
	prometheus.MustRegister(webhookCounter)

	return &PaymentHandler{
		createHandler:      createHandler,
		statusHandler:      statusHandler,
		confirmHandler:     confirmHandler,
		refundHandler:      refundHandler,
		webhookHandler:     webhookHandler,
		getHandler:         getHandler,
		listHandler:        listHandler,
		listRefundsHandler: listRefundsHandler,
		repo:               repo,
		kafkaPublisher:     kafkaPublisher,
	}
}

type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// CreatePayment handles POST /api/payments
func (h *PaymentHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CompanyID      string            `json:"company_id"`
		OrderID        string            `json:"order_id"`
		Amount         int64             `json:"amount"`
		Currency       string            `json:"currency"`
		Provider       string            `json:"provider"`
		Description    string            `json:"description"`
		IdempotencyKey string            `json:"idempotency_key"`
		Metadata       map[string]string `json:"metadata"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, Response{
			Success: false,
			Error:   "Invalid request body",
		})
		return
	}

	idempotencyKey := r.Header.Get("X-Idempotency-Key")
	if idempotencyKey == "" {
		idempotencyKey = req.IdempotencyKey
	}

	cmd := command.CreatePaymentCommand{
		CompanyID:      req.CompanyID,
		OrderID:        req.OrderID,
		Amount:         req.Amount,
		Currency:       domain.Currency(req.Currency),
		Provider:       domain.Provider(req.Provider),
		Description:    req.Description,
		IdempotencyKey: idempotencyKey,
		Metadata:       req.Metadata,
	}

	created, err := h.createHandler.Handle(r.Context(), cmd)
	if err != nil {
		h.respondError(w, r, err, "Failed to create payment")
		return
	}

	intent := created.Intent
	if h.paymentCounter != nil {
		h.paymentCounter.WithLabelValues(string(intent.Provider), string(intent.Status)).Inc()
	}
	h.publishStatusEvent(r, intent)

	data := map[string]interface{}{
		"payment": intent,
	}
	if created.Result != nil {
		if created.Result.RedirectURL != "" {
			data["redirect_url"] = created.Result.RedirectURL
		}
		if created.Result.QRCode != "" {
			data["qr_payload"] = created.Result.QRCode
		}
		if created.Result.TransferDetails != nil {
			data["transfer_details"] = created.Result.TransferDetails
		}
	}

	if intent.Status == domain.StatusFailed {
		respondJSON(w, http.StatusOK, Response{
			Success: false,
			Error:   intent.FailureMessage,
			Data:    data,
		})
		return
	}

	respondJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "Payment created successfully",
		Data:    data,
	})
}

// GetPayment handles GET /api/payments/{id}
func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	payment, err := h.getHandler.Handle(r.Context(), query.GetPaymentQuery{ID: vars["id"]})
	if err != nil {
		h.respondError(w, r, err, "Failed to get payment")
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    payment,
	})
}

// CheckStatus handles GET /api/payments/{id}/status
func (h *PaymentHandler) CheckStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	status, err := h.statusHandler.Handle(r.Context(), command.CheckStatusCommand{PaymentID: vars["id"]})
	if err != nil {
		h.respondError(w, r, err, "Failed to check payment status")
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]interface{}{
			"payment_id": vars["id"],
			"status":     status,
		},
	})
}

// ListPayments handles GET /api/payments
func (h *PaymentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	q := query.ListPaymentsQuery{
		CompanyID: r.URL.Query().Get("company_id"),
		Status:    r.URL.Query().Get("status"),
		Provider:  r.URL.Query().Get("provider"),
		Limit:     limit,
		Offset:    offset,
	}

	payments, err := h.listHandler.Handle(r.Context(), q)
	if err != nil {
		h.respondError(w, r, err, "Failed to list payments")
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]interface{}{
			"payments": payments,
			"total":    len(payments),
		},
	})
}

// ConfirmTransfer handles POST /api/payments/{id}/confirm
func (h *PaymentHandler) ConfirmTransfer(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req struct {
		BankReference string `json:"bank_reference"`
	}
	if r.Body != nil {
		// Body is optional; a bare confirmation is valid.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	confirmedBy, _ := r.Context().Value(UsernameKey).(string)

	intent, err := h.confirmHandler.Handle(r.Context(), command.ConfirmTransferCommand{
		PaymentID:     vars["id"],
		ConfirmedBy:   confirmedBy,
		BankReference: req.BankReference,
	})
	if err != nil {
		h.respondError(w, r, err, "Failed to confirm transfer")
		return
	}

	h.publishStatusEvent(r, intent)

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Transfer confirmed successfully",
		Data:    intent,
	})
}

// Refund handles POST /api/payments/{id}/refund
func (h *PaymentHandler) Refund(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req struct {
		Amount int64  `json:"amount"`
		Reason string `json:"reason"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	requestedBy, _ := r.Context().Value(UsernameKey).(string)

	record, err := h.refundHandler.Handle(r.Context(), command.RefundPaymentCommand{
		PaymentID:   vars["id"],
		Amount:      req.Amount,
		Reason:      req.Reason,
		RequestedBy: requestedBy,
	})
	if err != nil {
		h.respondError(w, r, err, "Failed to refund payment")
		return
	}

	if record.Status != domain.RefundStatusSucceeded {
		respondJSON(w, http.StatusOK, Response{
			Success: false,
			Error:   record.FailureMessage,
			Data:    record,
		})
		return
	}

	if intent, err := h.repo.FindByID(r.Context(), vars["id"]); err == nil {
		h.publishStatusEvent(r, intent)
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Refund processed successfully",
		Data:    record,
	})
}

// ListRefunds handles GET /api/payments/{id}/refunds
func (h *PaymentHandler) ListRefunds(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	refunds, err := h.listRefundsHandler.Handle(r.Context(), query.ListRefundsQuery{PaymentID: vars["id"]})
	if err != nil {
		h.respondError(w, r, err, "Failed to list refunds")
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]interface{}{
			"refunds": refunds,
			"total":   len(refunds),
		},
	})
}

// HandleWebhook handles POST /webhooks/{provider}
func (h *PaymentHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	provider := domain.Provider(vars["provider"])

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, Response{
			Success: false,
			Error:   "Failed to read request body",
		})
		return
	}

	outcome, err := h.webhookHandler.Handle(r.Context(), command.ApplyWebhookCommand{
		Provider:  provider,
		Payload:   payload,
		Signature: r.Header.Get(signatureHeader(provider)),
	})
	if err != nil {
		if h.webhookCounter != nil {
			h.webhookCounter.WithLabelValues(string(provider), "rejected").Inc()
		}
		h.respondError(w, r, err, "Failed to handle webhook")
		return
	}

	outcomeLabel := "ignored"
	if outcome.Applied {
		outcomeLabel = "applied"
		if intent, err := h.repo.FindByID(r.Context(), outcome.PaymentID); err == nil {
			h.publishStatusEvent(r, intent)
		}
	}
	if h.webhookCounter != nil {
		h.webhookCounter.WithLabelValues(string(provider), outcomeLabel).Inc()
	}

	// Duplicates and unmatched events are acknowledged so the provider stops
	// retrying them.
	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    outcome,
	})
}

func signatureHeader(provider domain.Provider) string {
	switch provider {
	case domain.ProviderVisaMastercard:
		return "Acquirer-Signature"
	default:
		return "X-Webhook-Signature"
	}
}

// publishStatusEvent emits a Kafka status event for terminal-ish states the
// order subsystem cares about. Best effort only.
func (h *PaymentHandler) publishStatusEvent(r *http.Request, intent *domain.PaymentIntent) {
	if h.kafkaPublisher == nil {
		return
	}

	var eventType string
	switch intent.Status {
	case domain.StatusCompleted:
		eventType = kafka.EventTypePaymentCompleted
	case domain.StatusFailed:
		eventType = kafka.EventTypePaymentFailed
	case domain.StatusRefunded, domain.StatusPartiallyRefunded:
		eventType = kafka.EventTypePaymentRefunded
	case domain.StatusCancelled:
		eventType = kafka.EventTypePaymentCancelled
	default:
		return
	}

	event := kafka.PaymentStatusEvent{
		EventType: eventType,
		PaymentID: intent.ID,
		OrderID:   intent.OrderID,
		CompanyID: intent.CompanyID,
		Provider:  string(intent.Provider),
		Amount:    intent.Amount,
		Currency:  string(intent.Currency),
		Status:    string(intent.Status),
	}

	if err := h.kafkaPublisher.PublishPaymentStatus(r.Context(), event); err != nil {
		logger.Error(r.Context()).Err(err).
			Str("payment_id", intent.ID).
			Str("event_type", eventType).
			Msg("Failed to publish payment status event")
	}
}

// respondError maps domain errors onto HTTP status codes.
func (h *PaymentHandler) respondError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var (
		validationErr *domain.ValidationError
		stateErr      *domain.StateError
		notFoundErr   *domain.NotFoundError
		signatureErr  *domain.SignatureError
		providerErr   *domain.ProviderError
	)

	switch {
	case errors.As(err, &validationErr):
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: validationErr.Error()})
	case errors.As(err, &signatureErr):
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: signatureErr.Error()})
	case errors.As(err, &stateErr):
		respondJSON(w, http.StatusConflict, Response{Success: false, Error: stateErr.Error()})
	case errors.As(err, &notFoundErr):
		respondJSON(w, http.StatusNotFound, Response{Success: false, Error: notFoundErr.Error()})
	case errors.As(err, &providerErr):
		respondJSON(w, http.StatusBadGateway, Response{Success: false, Error: providerErr.Error()})
	default:
		logger.Error(r.Context()).Err(err).Msg(fallback)
		respondJSON(w, http.StatusInternalServerError, Response{Success: false, Error: fallback})
	}
}

// instrument wraps a handler func with request metrics.
func (h *PaymentHandler) instrument(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next(rw, r)

		duration := time.Since(start).Seconds()
		if h.requestLatency != nil {
			h.requestLatency.WithLabelValues(r.Method, endpoint).Observe(duration)
		}
		if h.requestCounter != nil {
			h.requestCounter.WithLabelValues(r.Method, endpoint, strconv.Itoa(rw.statusCode)).Inc()
		}
	}
}

type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// GetMiddlewareConfig returns middleware configuration
func (h *PaymentHandler) GetMiddlewareConfig() MiddlewareConfig {
	return DefaultMiddlewareConfig()
}

// RegisterRoutes registers all payment routes
func (h *PaymentHandler) RegisterRoutes(router *mux.Router) {
	middlewareConfig := h.GetMiddlewareConfig()
	auth := middlewareConfig.GetAuthMiddleware()
	admin := middlewareConfig.GetAdminMiddleware()

	// Checkout-facing routes (any authenticated caller)
	router.HandleFunc("/api/payments", auth(h.instrument("/api/payments", h.CreatePayment))).Methods("POST")
	router.HandleFunc("/api/payments/{id}", auth(h.instrument("/api/payments/{id}", h.GetPayment))).Methods("GET")
	router.HandleFunc("/api/payments/{id}/status", auth(h.instrument("/api/payments/{id}/status", h.CheckStatus))).Methods("GET")

	// Operator routes (require admin role)
	router.HandleFunc("/api/payments", admin(h.instrument("/api/payments", h.ListPayments))).Methods("GET")
	router.HandleFunc("/api/payments/{id}/confirm", admin(h.instrument("/api/payments/{id}/confirm", h.ConfirmTransfer))).Methods("POST")
	router.HandleFunc("/api/payments/{id}/refund", admin(h.instrument("/api/payments/{id}/refund", h.Refund))).Methods("POST")
	router.HandleFunc("/api/payments/{id}/refunds", admin(h.instrument("/api/payments/{id}/refunds", h.ListRefunds))).Methods("GET")

	// Provider webhooks (signature-authenticated, no bearer token)
	router.HandleFunc("/webhooks/{provider}", h.instrument("/webhooks/{provider}", h.HandleWebhook)).Methods("POST")
}

// RegisterHealthCheck registers health check endpoint
func (h *PaymentHandler) RegisterHealthCheck(router *mux.Router, db *sql.DB) {
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.Ping(); err != nil {
				respondJSON(w, http.StatusServiceUnavailable, Response{
					Success: false,
					Error:   "Database unavailable",
				})
				return
			}
		}

		respondJSON(w, http.StatusOK, Response{
			Success: true,
			Message: "Payment service is healthy",
		})
	}).Methods("GET")
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
