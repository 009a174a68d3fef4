package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrAuth is returned when the provider rejects the credential exchange or
// credentials are absent at call time.
var ErrAuth = errors.New("payment provider authentication failed")

// Order is the subset of a PayPal checkout order used for verification.
type Order struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Payer  struct {
		EmailAddress string `json:"email_address"`
	} `json:"payer"`
}

// Completed reports whether the order is in a state that entitles.
func (o *Order) Completed() bool {
	return o != nil && (o.Status == "COMPLETED" || o.Status == "APPROVED")
}

// Subscription is the subset of a PayPal billing subscription we read.
type Subscription struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	PlanID     string `json:"plan_id"`
	Subscriber struct {
		EmailAddress string `json:"email_address"`
	} `json:"subscriber"`
	BillingInfo struct {
		NextBillingTime string `json:"next_billing_time"`
	} `json:"billing_info"`
}

// Active reports whether the subscription currently entitles.
func (s *Subscription) Active() bool {
	return s != nil && (s.Status == "ACTIVE" || s.Status == "APPROVED")
}

// NextBilling returns the provider's next billing time when present and
// parseable, otherwise nil. The reconciliation layer falls back to its
// day-count rule on nil.
func (s *Subscription) NextBilling() *time.Time {
	if s == nil || s.BillingInfo.NextBillingTime == "" {
		return nil
	}
	ts, err := time.Parse(time.RFC3339, s.BillingInfo.NextBillingTime)
	if err != nil {
		return nil
	}
	return &ts
}

// PayPalClient wraps the PayPal REST API. A bearer token is derived per call
// via the client-credentials grant; no session state is kept.
type PayPalClient struct {
	clientID   string
	secret     string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewPayPalClient creates a client. Missing credentials yield a client whose
// calls fail with ErrNotConfigured.
func NewPayPalClient(clientID, secret, apiBase string, logger *zap.Logger) *PayPalClient {
	return &PayPalClient{
		clientID:   clientID,
		secret:     secret,
		baseURL:    apiBase,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// SetBaseURL overrides the API base, used by tests.
func (c *PayPalClient) SetBaseURL(base string) { c.baseURL = base }

// Configured reports whether client credentials are present.
func (c *PayPalClient) Configured() bool { return c.clientID != "" && c.secret != "" }

// authenticate exchanges the client credentials for a bearer token.
func (c *PayPalClient) authenticate(ctx context.Context) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("PayPal token request failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrAuth, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("PayPal rejected credential exchange",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", body))
		return "", fmt.Errorf("%w: status %d", ErrAuth, resp.StatusCode)
	}

	var tokenResponse struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &tokenResponse); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResponse.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrAuth)
	}
	return tokenResponse.AccessToken, nil
}

// VerifyOrder independently confirms a client-asserted order id. The boolean
// is the verification verdict; a non-nil error means the verdict could not
// be reached at all (auth or transport failure).
func (c *PayPalClient) VerifyOrder(ctx context.Context, orderID string) (bool, *Order, error) {
	body, err := c.get(ctx, "/v2/checkout/orders/"+url.PathEscape(orderID))
	if err != nil {
		return false, nil, err
	}

	var order Order
	if err := json.Unmarshal(body, &order); err != nil {
		return false, nil, fmt.Errorf("failed to decode order response: %w", err)
	}

	if !order.Completed() {
		c.logger.Warn("PayPal order not in an approved state",
			zap.String("orderId", orderID),
			zap.String("status", order.Status))
		return false, &order, nil
	}
	return true, &order, nil
}

// GetSubscription fetches a billing subscription by id.
func (c *PayPalClient) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	body, err := c.get(ctx, "/v1/billing/subscriptions/"+url.PathEscape(subscriptionID))
	if err != nil {
		return nil, err
	}

	var subscription Subscription
	if err := json.Unmarshal(body, &subscription); err != nil {
		return nil, fmt.Errorf("failed to decode subscription response: %w", err)
	}
	return &subscription, nil
}

func (c *PayPalClient) get(ctx context.Context, path string) ([]byte, error) {
	token, err := c.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("PayPal request failed", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("PayPal returned error status",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", body))
		return nil, fmt.Errorf("%w: status %d", ErrProvider, resp.StatusCode)
	}

	return body, nil
}
