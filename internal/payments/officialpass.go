package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ErrPassRejected is returned when the validation endpoint answers with a
// non-success status for a token.
var ErrPassRejected = errors.New("pass token rejected by validation endpoint")

// OfficialPassClient validates third-party app pass tokens against an
// external endpoint keyed by a bearer-style API key.
type OfficialPassClient struct {
	validateURL string
	apiKey      string
	httpClient  *http.Client
	logger      *zap.Logger
}

// NewOfficialPassClient creates a client. An empty validate URL yields a
// client whose calls fail with ErrNotConfigured.
func NewOfficialPassClient(validateURL, apiKey string, logger *zap.Logger) *OfficialPassClient {
	return &OfficialPassClient{
		validateURL: validateURL,
		apiKey:      apiKey,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		logger:      logger,
	}
}

// Configured reports whether a validation endpoint is set.
func (c *OfficialPassClient) Configured() bool { return c.validateURL != "" }

// Validate posts the token to the validation endpoint. Any non-2xx response
// is ErrPassRejected; transport failures are ErrProvider.
func (c *OfficialPassClient) Validate(ctx context.Context, token string) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	jsonData, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return fmt.Errorf("failed to encode validation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.validateURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create validation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Pass validation request failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Warn("Pass validation endpoint rejected token",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", body))
		return fmt.Errorf("%w: status %d", ErrPassRejected, resp.StatusCode)
	}

	return nil
}
