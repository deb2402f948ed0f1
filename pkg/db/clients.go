package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"
)

// Client is one tracked relationship. The core only reads these rows; the
// CRUD surface exists for the web layer.
type Client struct {
	ID             string       `db:"id"`
	UserID         string       `db:"user_id"`
	Name           string       `db:"name"`
	Email          string       `db:"email"`
	Phone          string       `db:"phone"`
	Company        string       `db:"company"`
	NextFollowUpAt sql.NullTime `db:"next_followup_at"`
	CreatedAt      time.Time    `db:"created_at"`
}

// Touchpoint records one interaction with a client.
type Touchpoint struct {
	ID        string    `db:"id"`
	ClientID  string    `db:"client_id"`
	Kind      string    `db:"kind"`
	Note      string    `db:"note"`
	CreatedAt time.Time `db:"created_at"`
}

// CreateClient inserts a new client row and returns its id.
func (s *Store) CreateClient(ctx context.Context, client Client) (string, error) {
	if client.ID == "" {
		client.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO clients (id, user_id, name, email, phone, company, next_followup_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, client.ID, client.UserID, client.Name, client.Email, client.Phone, client.Company, client.NextFollowUpAt)
	if err != nil {
		return "", fmt.Errorf("failed to create client: %w", err)
	}

	return client.ID, nil
}

// ListClients returns all clients belonging to a user, newest first.
func (s *Store) ListClients(ctx context.Context, userID string) ([]Client, error) {
	var clients []Client
	err := s.db.SelectContext(ctx, &clients, `
		SELECT id, user_id, name, email, phone, company, next_followup_at, created_at
		FROM clients
		WHERE user_id = ?
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	return clients, nil
}

// ListClientEmails returns the subset of the given addresses that already
// belong to stored clients of the user. Comparison is as-stored, no case
// folding.
func (s *Store) ListClientEmails(ctx context.Context, userID string, emails []string) ([]string, error) {
	if len(emails) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`
		SELECT email FROM clients
		WHERE user_id = ? AND email IN (?)
	`, userID, emails)
	if err != nil {
		return nil, fmt.Errorf("failed to build email lookup: %w", err)
	}

	var existing []string
	if err := s.db.SelectContext(ctx, &existing, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to look up existing client emails: %w", err)
	}

	return lo.Uniq(existing), nil
}

// ListDueClients returns every client whose next follow-up is at or before
// the given time.
func (s *Store) ListDueClients(ctx context.Context, now time.Time) ([]Client, error) {
	var clients []Client
	err := s.db.SelectContext(ctx, &clients, `
		SELECT id, user_id, name, email, phone, company, next_followup_at, created_at
		FROM clients
		WHERE next_followup_at IS NOT NULL AND next_followup_at <= ?
	`, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list due clients: %w", err)
	}
	return clients, nil
}

// LogTouchpoint appends an interaction record for a client.
func (s *Store) LogTouchpoint(ctx context.Context, clientID, kind, note string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO touchpoints (id, client_id, kind, note)
		VALUES (?, ?, ?, ?)
	`, id, clientID, kind, note)
	if err != nil {
		return "", fmt.Errorf("failed to log touchpoint: %w", err)
	}
	return id, nil
}
