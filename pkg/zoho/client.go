package zoho

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
)

// apiClient carries the request plumbing shared by the mail and calendar
// clients: token acquisition, the auth header scheme, error extraction, and
// the single 401-forces-refresh-and-retry policy. No other retries exist.
type apiClient struct {
	logger     *log.Logger
	tokens     *TokenManager
	httpClient *http.Client
	authScheme string
}

func newAPIClient(logger *log.Logger, tokens *TokenManager, authScheme string) apiClient {
	return apiClient{
		logger:     logger,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		authScheme: authScheme,
	}
}

// do issues one authenticated request. On a 401 first response it force
// refreshes the token and retries exactly once before giving up. A non-2xx
// response becomes an *APIError carrying status and body; out, when non-nil,
// receives the decoded JSON body.
func (c *apiClient) do(ctx context.Context, userID, method, url string, payload, out any) error {
	token, err := c.tokens.AccessToken(ctx, userID, false)
	if err != nil {
		return err
	}

	err = c.send(ctx, token, method, url, payload, out)

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Unauthorized() {
		c.logger.Debug("zoho returned 401, refreshing token and retrying once", "url", url)
		token, err = c.tokens.AccessToken(ctx, userID, true)
		if err != nil {
			return err
		}
		err = c.send(ctx, token, method, url, payload, out)
	}

	return err
}

func (c *apiClient) send(ctx context.Context, token, method, url string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("%s %s", c.authScheme, token))
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Error("failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		return &APIError{Status: resp.StatusCode, Body: string(raw)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	return nil
}
