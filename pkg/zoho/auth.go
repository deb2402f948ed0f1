package zoho

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/keeptouch/keeptouch/pkg/db"
)

// Tokens are considered stale this long before their stored expiry, so a
// token never runs out mid-request.
const tokenExpiryMargin = 5 * time.Minute

// CredentialStore is the slice of the datastore the token manager needs.
type CredentialStore interface {
	GetCredential(ctx context.Context, userID, provider string) (*db.Credential, error)
	UpsertCredential(ctx context.Context, cred db.Credential) error
	UpdateAccessToken(ctx context.Context, userID, provider, accessToken string, expiresAt time.Time) error
}

// TokenManager owns the access/refresh token state machine that guards every
// Zoho API call. It never retries; callers decide what a failed refresh means.
type TokenManager struct {
	logger       *log.Logger
	store        CredentialStore
	clientID     string
	clientSecret string
	httpClient   *http.Client
	resolve      func(location string) Endpoints
}

func NewTokenManager(logger *log.Logger, store CredentialStore, clientID, clientSecret string) *TokenManager {
	return &TokenManager{
		logger:       logger,
		store:        store,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		resolve:      ResolveEndpoints,
	}
}

// tokenResponse is the envelope of Zoho's OAuth token endpoint. A 200 can
// still carry an error field.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in"`
	APIDomain    string `json:"api_domain,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	Error        string `json:"error,omitempty"`
}

// AccessToken returns a valid access token for the user, refreshing it
// against Zoho when the stored one is expired, near expiry, or forceRefresh
// is set. The refreshed (token, expiry) pair is persisted before returning,
// so concurrent readers see it on their next call. Two concurrent refreshes
// may both succeed; last writer wins and both outcomes are valid.
func (m *TokenManager) AccessToken(ctx context.Context, userID string, forceRefresh bool) (string, error) {
	cred, err := m.store.GetCredential(ctx, userID, Provider)
	if err != nil {
		return "", fmt.Errorf("failed to load credential: %w", err)
	}
	if cred == nil {
		return "", ErrNotConnected
	}

	if !forceRefresh && cred.AccessToken != "" && cred.ExpiresAt.After(time.Now().Add(tokenExpiryMargin)) {
		return cred.AccessToken, nil
	}

	if m.clientID == "" || m.clientSecret == "" {
		return "", ErrMissingClientConfig
	}

	m.logger.Debug("refreshing Zoho access token", "user_id", userID, "location", cred.DCLocation, "forced", forceRefresh)

	params := url.Values{
		"refresh_token": {cred.RefreshToken},
		"client_id":     {m.clientID},
		"client_secret": {m.clientSecret},
		"grant_type":    {"refresh_token"},
	}

	data, err := m.requestToken(ctx, m.resolve(cred.DCLocation).TokenURL(), params)
	if err != nil {
		return "", fmt.Errorf("failed to refresh Zoho token: %w", err)
	}

	expiresAt := time.Now().Add(time.Duration(data.ExpiresIn) * time.Second)
	if err := m.store.UpdateAccessToken(ctx, userID, Provider, data.AccessToken, expiresAt); err != nil {
		return "", fmt.Errorf("failed to persist refreshed token: %w", err)
	}

	m.logger.Debug("refreshed Zoho access token", "user_id", userID, "expires_at", expiresAt.Format(time.RFC3339))

	return data.AccessToken, nil
}

// CompleteAuthorization exchanges an authorization code for the initial token
// pair and stores the credential row, including the data-center location the
// grant was issued for.
func (m *TokenManager) CompleteAuthorization(ctx context.Context, userID, code, redirectURI, location string) error {
	if m.clientID == "" || m.clientSecret == "" {
		return ErrMissingClientConfig
	}

	params := url.Values{
		"code":          {code},
		"client_id":     {m.clientID},
		"client_secret": {m.clientSecret},
		"redirect_uri":  {redirectURI},
		"grant_type":    {"authorization_code"},
	}

	data, err := m.requestToken(ctx, m.resolve(location).TokenURL(), params)
	if err != nil {
		return fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	if data.RefreshToken == "" {
		return fmt.Errorf("zoho token response carried no refresh token")
	}

	cred := db.Credential{
		UserID:       userID,
		Provider:     Provider,
		AccessToken:  data.AccessToken,
		RefreshToken: data.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(data.ExpiresIn) * time.Second),
		DCLocation:   location,
	}
	if err := m.store.UpsertCredential(ctx, cred); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}

	m.logger.Debug("completed Zoho authorization", "user_id", userID, "credential", cred)

	return nil
}

// EndpointsFor resolves the regional API hosts for the user's stored
// credential.
func (m *TokenManager) EndpointsFor(ctx context.Context, userID string) (Endpoints, error) {
	cred, err := m.store.GetCredential(ctx, userID, Provider)
	if err != nil {
		return Endpoints{}, fmt.Errorf("failed to load credential: %w", err)
	}
	if cred == nil {
		return Endpoints{}, ErrNotConnected
	}
	return m.resolve(cred.DCLocation), nil
}

func (m *TokenManager) requestToken(ctx context.Context, tokenURL string, params url.Values) (*tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send token request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			m.logger.Error("failed to close token response body", "error", closeErr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}

	var data tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	if data.Error != "" {
		return nil, fmt.Errorf("zoho reported token error: %s", data.Error)
	}

	return &data, nil
}
