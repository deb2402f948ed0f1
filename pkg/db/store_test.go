package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(context.Background(), filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store
}

func TestCredentialRoundTrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	missing, err := store.GetCredential(ctx, "user-1", "zoho")
	require.NoError(t, err)
	assert.Nil(t, missing, "absent credential is not an error")

	expiresAt := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, store.UpsertCredential(ctx, Credential{
		UserID:       "user-1",
		Provider:     "zoho",
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    expiresAt,
		DCLocation:   "eu",
	}))

	cred, err := store.GetCredential(ctx, "user-1", "zoho")
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "access-1", cred.AccessToken)
	assert.Equal(t, "refresh-1", cred.RefreshToken)
	assert.Equal(t, "eu", cred.DCLocation)
	assert.WithinDuration(t, expiresAt, cred.ExpiresAt, time.Second)

	// Re-upsert replaces the whole row.
	require.NoError(t, store.UpsertCredential(ctx, Credential{
		UserID:       "user-1",
		Provider:     "zoho",
		AccessToken:  "access-2",
		RefreshToken: "refresh-2",
		ExpiresAt:    expiresAt,
		DCLocation:   "primary",
	}))
	cred, err = store.GetCredential(ctx, "user-1", "zoho")
	require.NoError(t, err)
	assert.Equal(t, "access-2", cred.AccessToken)
	assert.Equal(t, "primary", cred.DCLocation)
}

func TestUpdateAccessToken(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	err := store.UpdateAccessToken(ctx, "ghost", "zoho", "token", time.Now())
	assert.Error(t, err, "updating a missing credential must fail loudly")

	require.NoError(t, store.UpsertCredential(ctx, Credential{
		UserID:       "user-1",
		Provider:     "zoho",
		AccessToken:  "stale",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(-time.Hour),
	}))

	newExpiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, store.UpdateAccessToken(ctx, "user-1", "zoho", "fresh", newExpiry))

	cred, err := store.GetCredential(ctx, "user-1", "zoho")
	require.NoError(t, err)
	assert.Equal(t, "fresh", cred.AccessToken)
	assert.Equal(t, "refresh-1", cred.RefreshToken, "refresh token survives an access-token update")
	assert.WithinDuration(t, newExpiry, cred.ExpiresAt, time.Second)
}

func TestCredentialStringHidesToken(t *testing.T) {
	cred := Credential{
		UserID:      "user-1",
		Provider:    "zoho",
		AccessToken: "1000.abcdef0123456789.secretsecret",
	}
	s := cred.String()
	assert.Contains(t, s, "1000.abc...")
	assert.NotContains(t, s, "secretsecret")
}

func TestClientLifecycle(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	id, err := store.CreateClient(ctx, Client{
		UserID:  "user-1",
		Name:    "Jane Doe",
		Email:   "jane@acme.com",
		Phone:   "555-010-0199",
		Company: "Acme Corp",
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	_, err = store.CreateClient(ctx, Client{UserID: "user-2", Name: "Other", Email: "other@x.com"})
	require.NoError(t, err)

	clients, err := store.ListClients(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, id, clients[0].ID)
	assert.Equal(t, "Jane Doe", clients[0].Name)
	assert.False(t, clients[0].NextFollowUpAt.Valid)
	assert.False(t, clients[0].CreatedAt.IsZero())
}

func TestListClientEmailsMatchesAsStored(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	_, err := store.CreateClient(ctx, Client{UserID: "user-1", Name: "Jane", Email: "jane@acme.com"})
	require.NoError(t, err)
	_, err = store.CreateClient(ctx, Client{UserID: "user-2", Name: "Bob", Email: "bob@example.com"})
	require.NoError(t, err)

	existing, err := store.ListClientEmails(ctx, "user-1", []string{
		"jane@acme.com",
		"JANE@ACME.COM",
		"bob@example.com",
		"nobody@acme.com",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"jane@acme.com"}, existing)

	none, err := store.ListClientEmails(ctx, "user-1", nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListDueClients(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	due := Client{
		UserID: "user-1", Name: "Due", Email: "due@acme.com",
		NextFollowUpAt: sql.NullTime{Time: now.Add(-time.Hour), Valid: true},
	}
	future := Client{
		UserID: "user-1", Name: "Future", Email: "future@acme.com",
		NextFollowUpAt: sql.NullTime{Time: now.Add(24 * time.Hour), Valid: true},
	}
	unscheduled := Client{UserID: "user-1", Name: "Unscheduled", Email: "never@acme.com"}

	for _, c := range []Client{due, future, unscheduled} {
		_, err := store.CreateClient(ctx, c)
		require.NoError(t, err)
	}

	clients, err := store.ListDueClients(ctx, now)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, "Due", clients[0].Name)
}

func TestLogTouchpoint(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	clientID, err := store.CreateClient(ctx, Client{UserID: "user-1", Name: "Jane", Email: "jane@acme.com"})
	require.NoError(t, err)

	tpID, err := store.LogTouchpoint(ctx, clientID, "draft", "Follow-up draft created")
	require.NoError(t, err)
	assert.NotEmpty(t, tpID)
}
