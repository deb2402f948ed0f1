package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Credential stores the OAuth token pair plus metadata for one user/provider.
type Credential struct {
	UserID       string    `db:"user_id"`
	Provider     string    `db:"provider"`
	AccessToken  string    `db:"access_token"`
	RefreshToken string    `db:"refresh_token"`
	ExpiresAt    time.Time `db:"expires_at"`
	DCLocation   string    `db:"dc_location"`
}

// For logging with Charmbracelet log
func (c Credential) String() string {
	// Safe display of token prefixes only
	accessTokenValue := "<empty>"
	if c.AccessToken != "" {
		if len(c.AccessToken) > 12 {
			accessTokenValue = c.AccessToken[:8] + "..."
		} else {
			accessTokenValue = "<short-token>"
		}
	}

	return fmt.Sprintf("Credential{user_id=%s, provider=%s, access_token=%s, expires_at=%s, dc_location=%s}",
		c.UserID,
		c.Provider,
		accessTokenValue,
		c.ExpiresAt.Format(time.RFC3339),
		c.DCLocation)
}

// GetCredential retrieves the stored credential for a (user, provider) pair.
// Returns (nil, nil) when the user has not connected the provider.
func (s *Store) GetCredential(ctx context.Context, userID, provider string) (*Credential, error) {
	var cred Credential
	err := s.db.GetContext(ctx, &cred, `
		SELECT
			user_id,
			provider,
			access_token,
			refresh_token,
			expires_at,
			dc_location
		FROM credentials
		WHERE user_id = ? AND provider = ?
	`, userID, provider)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get credential for user '%s': %w", userID, err)
	}
	return &cred, nil
}

// UpsertCredential saves or replaces the credential for a (user, provider) pair.
func (s *Store) UpsertCredential(ctx context.Context, cred Credential) error {
	query := `
        INSERT OR REPLACE INTO credentials (
            user_id,
            provider,
            access_token,
            refresh_token,
            expires_at,
            dc_location
        ) VALUES (?, ?, ?, ?, ?, ?)
    `

	_, err := s.db.ExecContext(ctx, query,
		cred.UserID,
		cred.Provider,
		cred.AccessToken,
		cred.RefreshToken,
		cred.ExpiresAt,
		cred.DCLocation,
	)
	if err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}

	return nil
}

// UpdateAccessToken persists a refreshed access token together with its new
// expiry. The two columns are always written together so readers never see a
// fresh token with a stale expiry.
func (s *Store) UpdateAccessToken(ctx context.Context, userID, provider, accessToken string, expiresAt time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE credentials
		SET access_token = ?, expires_at = ?
		WHERE user_id = ? AND provider = ?
	`, accessToken, expiresAt, userID, provider)
	if err != nil {
		return fmt.Errorf("failed to update access token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update access token: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("no credential row for user '%s' and provider '%s'", userID, provider)
	}

	return nil
}
