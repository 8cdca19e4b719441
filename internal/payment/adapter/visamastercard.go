package adapter

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/geovision/payments/internal/payment/domain"
	"github.com/geovision/payments/pkg/logger"
)

// VisaMastercardConfig holds card acquirer credentials.
type VisaMastercardConfig struct {
	APIURL        string
	SecretKey     string
	WebhookSecret string
	// WebhookTolerance bounds how old a signed webhook timestamp may be.
	// Deliveries outside the window are rejected as replays.
	WebhookTolerance time.Duration
}

// VisaMastercardAdapter processes card payments through the acquirer's
// Stripe-style API. Authorization may resolve synchronously or return a
// redirect URL for 3D Secure step-up; asynchronous final state arrives via
// signed webhooks keyed by the provider reference. Without credentials the
// adapter runs in mock mode.
type VisaMastercardAdapter struct {
	config VisaMastercardConfig
	client *http.Client
	now    func() time.Time
}

// NewVisaMastercardAdapter creates a card network adapter.
func NewVisaMastercardAdapter(config VisaMastercardConfig) *VisaMastercardAdapter {
	if config.APIURL == "" {
		config.APIURL = "https://api.acquirer.example.com/v1"
	}
	if config.WebhookTolerance == 0 {
		config.WebhookTolerance = 5 * time.Minute
	}
	return &VisaMastercardAdapter{
		config: config,
		client: &http.Client{Timeout: 30 * time.Second},
		now:    time.Now,
	}
}

func (a *VisaMastercardAdapter) mockMode() bool {
	return a.config.SecretKey == ""
}

// CreatePayment creates a card payment intent with the acquirer.
func (a *VisaMastercardAdapter) CreatePayment(ctx context.Context, intent *domain.PaymentIntent) (*PaymentResult, error) {
	if a.mockMode() {
		logger.Warn(ctx).Str("payment_id", intent.ID).Msg("Card acquirer not configured, returning mock response")
		return &PaymentResult{
			Success:           true,
			PaymentID:         intent.ID,
			Status:            domain.StatusPending,
			ProviderReference: "pi_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:24],
		}, nil
	}

	idempotencyKey := intent.ID
	if intent.IdempotencyKey != nil {
		idempotencyKey = *intent.IdempotencyKey
	}

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(intent.Amount, 10))
	form.Set("currency", strings.ToLower(string(intent.Currency)))
	form.Set("description", intent.Description)
	form.Set("metadata[order_id]", intent.OrderID)
	form.Set("metadata[company_id]", intent.CompanyID)
	form.Set("automatic_payment_methods[enabled]", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.APIURL+"/payment_intents",
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build card payment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Idempotency-Key", idempotencyKey)
	req.SetBasicAuth(a.config.SecretKey, "")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("card payment request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read card payment response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var data struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.Unmarshal(raw, &data)
		return &PaymentResult{
			Success:      false,
			PaymentID:    intent.ID,
			Status:       domain.StatusFailed,
			ErrorCode:    data.Error.Code,
			ErrorMessage: data.Error.Message,
		}, nil
	}

	var data struct {
		ID         string `json:"id"`
		NextAction struct {
			RedirectToURL struct {
				URL string `json:"url"`
			} `json:"redirect_to_url"`
		} `json:"next_action"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode card payment response: %w", err)
	}

	return &PaymentResult{
		Success:           true,
		PaymentID:         intent.ID,
		Status:            domain.StatusPending,
		ProviderReference: data.ID,
		RedirectURL:       data.NextAction.RedirectToURL.URL,
	}, nil
}

// CheckStatus polls the acquirer for the payment intent state.
func (a *VisaMastercardAdapter) CheckStatus(ctx context.Context, providerReference string) (domain.Status, error) {
	if a.mockMode() {
		return domain.StatusCompleted, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		a.config.APIURL+"/payment_intents/"+providerReference, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build card status request: %w", err)
	}
	req.SetBasicAuth(a.config.SecretKey, "")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("card status request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("card status request returned %d", resp.StatusCode)
	}

	var data struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("failed to decode card status response: %w", err)
	}

	switch data.Status {
	case "requires_payment_method", "requires_confirmation":
		return domain.StatusPending, nil
	case "requires_action", "processing":
		return domain.StatusProcessing, nil
	case "succeeded":
		return domain.StatusCompleted, nil
	case "canceled":
		return domain.StatusCancelled, nil
	}
	return domain.StatusPending, nil
}

// Refund creates a refund against the acquirer payment intent.
func (a *VisaMastercardAdapter) Refund(ctx context.Context, providerReference string, amount int64) (*RefundResult, error) {
	if a.mockMode() {
		return &RefundResult{
			Success:          true,
			ProviderRefundID: "re_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:24],
			Amount:           amount,
			Status:           "succeeded",
		}, nil
	}

	form := url.Values{}
	form.Set("payment_intent", providerReference)
	if amount > 0 {
		form.Set("amount", strconv.FormatInt(amount, 10))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.APIURL+"/refunds",
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build card refund request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(a.config.SecretKey, "")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("card refund request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read card refund response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &RefundResult{
			Success:      false,
			Status:       "failed",
			ErrorMessage: string(raw),
		}, nil
	}

	var data struct {
		ID     string `json:"id"`
		Amount int64  `json:"amount"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode card refund response: %w", err)
	}
	if data.Amount == 0 {
		data.Amount = amount
	}

	return &RefundResult{
		Success:          true,
		ProviderRefundID: data.ID,
		Amount:           data.Amount,
		Status:           data.Status,
	}, nil
}

// VerifyWebhook validates the acquirer's timestamped signature header,
// format "t=<unix>,v1=<hex hmac>". The HMAC-SHA256 is computed over
// "<timestamp>.<body>" and the timestamp must fall inside the replay window.
func (a *VisaMastercardAdapter) VerifyWebhook(payload []byte, signature string) bool {
	if a.config.WebhookSecret == "" {
		logger.Logger.Warn().Msg("Card webhook secret not configured, accepting delivery")
		return true
	}

	var timestamp, sig string
	for _, part := range strings.Split(signature, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			sig = value
		}
	}
	if timestamp == "" || sig == "" {
		return false
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	age := a.now().Sub(time.Unix(ts, 0))
	if age > a.config.WebhookTolerance || age < -a.config.WebhookTolerance {
		return false
	}

	signed := timestamp + "." + string(payload)
	mac := hmac.New(sha256.New, []byte(a.config.WebhookSecret))
	mac.Write([]byte(signed))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(sig))
}

// ParseWebhook decodes the acquirer event envelope. Only payment intent
// outcome events carry a status; everything else is ignored upstream.
func (a *VisaMastercardAdapter) ParseWebhook(payload []byte) (*WebhookNotice, error) {
	var data struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object struct {
				ID string `json:"id"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("invalid card webhook payload: %w", err)
	}

	var status domain.Status
	switch data.Type {
	case "payment_intent.succeeded":
		status = domain.StatusCompleted
	case "payment_intent.payment_failed":
		status = domain.StatusFailed
	case "payment_intent.canceled":
		status = domain.StatusCancelled
	case "payment_intent.processing":
		status = domain.StatusProcessing
	default:
		return nil, fmt.Errorf("unhandled card webhook event type %q", data.Type)
	}

	if data.Data.Object.ID == "" {
		return nil, fmt.Errorf("card webhook payload missing payment intent id")
	}

	return &WebhookNotice{
		EventID:           data.ID,
		ProviderReference: data.Data.Object.ID,
		Status:            status,
	}, nil
}
