package adapter

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/geovision/payments/internal/payment/domain"
	"github.com/geovision/payments/pkg/logger"
)

// MulticaixaConfig holds Multicaixa Express credentials and endpoints.
type MulticaixaConfig struct {
	APIURL        string
	MerchantID    string
	APIKey        string
	WebhookSecret string
	CallbackURL   string
}

// MulticaixaAdapter integrates Multicaixa Express mobile/ATM push payments.
// Payments resolve asynchronously: creation returns PENDING plus a QR display
// payload and the final state normally arrives via webhook, with CheckStatus
// as the fallback poll. Without credentials the adapter runs in mock mode and
// returns deterministic responses.
type MulticaixaAdapter struct {
	config MulticaixaConfig
	client *http.Client
}

// NewMulticaixaAdapter creates a Multicaixa Express adapter.
func NewMulticaixaAdapter(config MulticaixaConfig) *MulticaixaAdapter {
	if config.APIURL == "" {
		config.APIURL = "https://api.multicaixa.co.ao/v1"
	}
	return &MulticaixaAdapter{
		config: config,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *MulticaixaAdapter) mockMode() bool {
	return a.config.MerchantID == "" || a.config.APIKey == ""
}

// CreatePayment registers a push payment and returns the QR payload.
func (a *MulticaixaAdapter) CreatePayment(ctx context.Context, intent *domain.PaymentIntent) (*PaymentResult, error) {
	if a.mockMode() {
		logger.Warn(ctx).Str("payment_id", intent.ID).Msg("Multicaixa not configured, returning mock response")
		return &PaymentResult{
			Success:           true,
			PaymentID:         intent.ID,
			Status:            domain.StatusPending,
			ProviderReference: fmt.Sprintf("MCX-%s", strings.ToUpper(uuid.New().String()[:12])),
			QRCode: fmt.Sprintf("00020101021126330014mcx.co.ao0112%s520400005303%s5406%d5802AO5925GEOVISION",
				intent.ID, intent.Currency, intent.Amount),
		}, nil
	}

	idempotencyKey := intent.ID
	if intent.IdempotencyKey != nil {
		idempotencyKey = *intent.IdempotencyKey
	}

	body, err := json.Marshal(map[string]interface{}{
		"amount":             intent.Amount,
		"currency":           intent.Currency,
		"reference":          intent.OrderID,
		"description":        intent.Description,
		"callback_url":       a.config.CallbackURL,
		"expires_in_minutes": 30,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode multicaixa request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.APIURL+"/payments", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build multicaixa request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.config.APIKey)
	req.Header.Set("X-Merchant-ID", a.config.MerchantID)
	req.Header.Set("X-Idempotency-Key", idempotencyKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("multicaixa request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read multicaixa response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &PaymentResult{
			Success:      false,
			PaymentID:    intent.ID,
			Status:       domain.StatusFailed,
			ErrorCode:    fmt.Sprintf("%d", resp.StatusCode),
			ErrorMessage: string(raw),
		}, nil
	}

	var data struct {
		PaymentID string `json:"payment_id"`
		QRCode    string `json:"qr_code"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode multicaixa response: %w", err)
	}

	return &PaymentResult{
		Success:           true,
		PaymentID:         intent.ID,
		Status:            domain.StatusPending,
		ProviderReference: data.PaymentID,
		QRCode:            data.QRCode,
	}, nil
}

// CheckStatus polls the provider for the payment state.
func (a *MulticaixaAdapter) CheckStatus(ctx context.Context, providerReference string) (domain.Status, error) {
	if a.mockMode() {
		return domain.StatusCompleted, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.config.APIURL+"/payments/"+providerReference, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build multicaixa status request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.config.APIKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("multicaixa status request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("multicaixa status request returned %d", resp.StatusCode)
	}

	var data struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("failed to decode multicaixa status response: %w", err)
	}

	if status := multicaixaStatus(data.Status); status != "" {
		return status, nil
	}
	return domain.StatusPending, nil
}

// Refund asks the provider to return funds to the payer.
func (a *MulticaixaAdapter) Refund(ctx context.Context, providerReference string, amount int64) (*RefundResult, error) {
	if a.mockMode() {
		return &RefundResult{
			Success:          true,
			ProviderRefundID: fmt.Sprintf("REF-%s", uuid.New().String()[:8]),
			Amount:           amount,
			Status:           "completed",
		}, nil
	}

	payload := map[string]interface{}{}
	if amount > 0 {
		payload["amount"] = amount
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode multicaixa refund request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.config.APIURL+"/payments/"+providerReference+"/refund", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build multicaixa refund request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.config.APIKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("multicaixa refund request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read multicaixa refund response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &RefundResult{
			Success:      false,
			Status:       "failed",
			ErrorMessage: string(raw),
		}, nil
	}

	var data struct {
		RefundID string `json:"refund_id"`
		Amount   int64  `json:"amount"`
		Status   string `json:"status"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode multicaixa refund response: %w", err)
	}
	if data.Amount == 0 {
		data.Amount = amount
	}

	return &RefundResult{
		Success:          true,
		ProviderRefundID: data.RefundID,
		Amount:           data.Amount,
		Status:           data.Status,
	}, nil
}

// VerifyWebhook checks the HMAC-SHA256 hex digest of the raw body.
func (a *MulticaixaAdapter) VerifyWebhook(payload []byte, signature string) bool {
	if a.config.WebhookSecret == "" {
		logger.Logger.Warn().Msg("Multicaixa webhook secret not configured, accepting delivery")
		return true
	}

	mac := hmac.New(sha256.New, []byte(a.config.WebhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

// ParseWebhook decodes the Multicaixa delivery envelope.
func (a *MulticaixaAdapter) ParseWebhook(payload []byte) (*WebhookNotice, error) {
	var data struct {
		EventID   string `json:"event_id"`
		PaymentID string `json:"payment_id"`
		Status    string `json:"status"`
	}
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("invalid multicaixa webhook payload: %w", err)
	}
	if data.PaymentID == "" {
		return nil, fmt.Errorf("multicaixa webhook payload missing payment_id")
	}

	status := multicaixaStatus(data.Status)
	if status == "" {
		return nil, fmt.Errorf("multicaixa webhook payload carries unknown status %q", data.Status)
	}

	return &WebhookNotice{
		EventID:           data.EventID,
		ProviderReference: data.PaymentID,
		Status:            status,
	}, nil
}

func multicaixaStatus(s string) domain.Status {
	switch s {
	case "pending":
		return domain.StatusPending
	case "processing":
		return domain.StatusProcessing
	case "completed":
		return domain.StatusCompleted
	case "failed":
		return domain.StatusFailed
	case "expired":
		return domain.StatusCancelled
	}
	return ""
}
