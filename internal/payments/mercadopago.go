// Package payments contains the outbound HTTP adapters for the payment
// providers. Adapters surface typed failures and never decide entitlement:
// anything that is not an explicit approved/active status is "not entitling"
// as far as the reconciliation layer is concerned.
package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const mercadoPagoAPIBase = "https://api.mercadopago.com"

var (
	// ErrNotConfigured is returned when a provider's credentials are absent.
	// Handlers map it to 503 without touching the provider.
	ErrNotConfigured = errors.New("payment provider is not configured")
	// ErrProvider wraps transport failures and non-2xx provider responses.
	ErrProvider = errors.New("payment provider request failed")
)

// PreferenceItem is a single line item of a checkout preference.
type PreferenceItem struct {
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	CurrencyID string  `json:"currency_id"`
	UnitPrice  float64 `json:"unit_price"`
}

// BackURLs are the redirect targets after checkout completes.
type BackURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

// PreferenceRequest creates a hosted checkout. Metadata must carry the
// account identifiers (uid, email, plan_type) so the webhook can attribute
// the payment without guessing.
type PreferenceRequest struct {
	Items             []PreferenceItem       `json:"items"`
	Payer             map[string]interface{} `json:"payer,omitempty"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
	ExternalReference string                 `json:"external_reference,omitempty"`
	NotificationURL   string                 `json:"notification_url,omitempty"`
	BackURLs          BackURLs               `json:"back_urls"`
	AutoReturn        string                 `json:"auto_return,omitempty"`
	PaymentMethods    map[string]interface{} `json:"payment_methods,omitempty"`
}

// Preference is the subset of the provider's preference object we use.
type Preference struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

// Payment is the subset of the provider's payment object the reconciliation
// layer reads. Raw carries the full decoded object for endpoints that pass
// the provider response through.
type Payment struct {
	ID                int64                  `json:"id"`
	Status            string                 `json:"status"`
	StatusDetail      string                 `json:"status_detail"`
	ExternalReference string                 `json:"external_reference"`
	DateCreated       string                 `json:"date_created"`
	Payer             struct {
		Email string `json:"email"`
	} `json:"payer"`
	Metadata map[string]interface{} `json:"metadata"`

	Raw map[string]interface{} `json:"-"`
}

// Approved reports whether the payment is in the one status that entitles.
func (p *Payment) Approved() bool {
	return p != nil && p.Status == "approved"
}

// PaymentID returns the payment id as the free-text identifier stored in the
// license table.
func (p *Payment) PaymentID() string {
	return strconv.FormatInt(p.ID, 10)
}

// MetadataString reads a string value out of the payment metadata, returning
// "" when the key is absent or not a string.
func (p *Payment) MetadataString(key string) string {
	if p == nil || p.Metadata == nil {
		return ""
	}
	if value, ok := p.Metadata[key].(string); ok {
		return value
	}
	return ""
}

// MercadoPagoClient wraps the MercadoPago REST API.
type MercadoPagoClient struct {
	accessToken string
	baseURL     string
	httpClient  *http.Client
	logger      *zap.Logger
}

// NewMercadoPagoClient creates a client. An empty access token yields a
// client whose calls fail with ErrNotConfigured; construction never fails so
// the read-only routes can start without payment credentials.
func NewMercadoPagoClient(accessToken string, logger *zap.Logger) *MercadoPagoClient {
	return &MercadoPagoClient{
		accessToken: accessToken,
		baseURL:     mercadoPagoAPIBase,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		logger:      logger,
	}
}

// SetBaseURL overrides the API base, used by tests.
func (c *MercadoPagoClient) SetBaseURL(base string) { c.baseURL = base }

// Configured reports whether an access token is present.
func (c *MercadoPagoClient) Configured() bool { return c.accessToken != "" }

// CreatePreference creates a hosted-checkout preference.
func (c *MercadoPagoClient) CreatePreference(ctx context.Context, req *PreferenceRequest) (*Preference, error) {
	body, err := c.do(ctx, http.MethodPost, "/checkout/preferences", req)
	if err != nil {
		return nil, err
	}

	var preference Preference
	if err := json.Unmarshal(body, &preference); err != nil {
		return nil, fmt.Errorf("failed to decode preference response: %w", err)
	}
	if preference.ID == "" {
		return nil, fmt.Errorf("%w: preference response carried no id", ErrProvider)
	}
	return &preference, nil
}

// CreatePayment performs a synchronous card/PSE charge (Brick flow). The
// request is provider-shaped and built by the handler.
func (c *MercadoPagoClient) CreatePayment(ctx context.Context, req map[string]interface{}) (*Payment, error) {
	body, err := c.do(ctx, http.MethodPost, "/v1/payments", req)
	if err != nil {
		return nil, err
	}
	return decodePayment(body)
}

// GetPayment fetches the current state of a payment by id.
func (c *MercadoPagoClient) GetPayment(ctx context.Context, id string) (*Payment, error) {
	body, err := c.do(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	return decodePayment(body)
}

// SearchPayments returns approved payments for the payer email, most recent
// first.
func (c *MercadoPagoClient) SearchPayments(ctx context.Context, payerEmail string) ([]Payment, error) {
	query := url.Values{}
	query.Set("status", "approved")
	query.Set("payer.email", payerEmail)
	query.Set("sort", "date_created")
	query.Set("criteria", "desc")

	body, err := c.do(ctx, http.MethodGet, "/v1/payments/search?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var response struct {
		Results []Payment `json:"results"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to decode payment search response: %w", err)
	}
	return response.Results, nil
}

func decodePayment(body []byte) (*Payment, error) {
	var payment Payment
	if err := json.Unmarshal(body, &payment); err != nil {
		return nil, fmt.Errorf("failed to decode payment response: %w", err)
	}
	// Second decode keeps the full provider object available for
	// pass-through responses.
	if err := json.Unmarshal(body, &payment.Raw); err != nil {
		return nil, fmt.Errorf("failed to decode raw payment response: %w", err)
	}
	return &payment, nil
}

func (c *MercadoPagoClient) do(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	var reqBody io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("MercadoPago request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("MercadoPago returned error status",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", body))
		return nil, fmt.Errorf("%w: status %d", ErrProvider, resp.StatusCode)
	}

	return body, nil
}
