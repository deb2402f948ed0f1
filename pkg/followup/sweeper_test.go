package followup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keeptouch/keeptouch/pkg/db"
)

type draftCall struct {
	userID  string
	to      string
	subject string
	content string
}

type fakeDrafter struct {
	calls   []draftCall
	failFor map[string]error
}

func (f *fakeDrafter) CreateDraft(_ context.Context, userID, to, subject, content string) (json.RawMessage, error) {
	if err := f.failFor[to]; err != nil {
		return nil, err
	}
	f.calls = append(f.calls, draftCall{userID: userID, to: to, subject: subject, content: content})
	return json.RawMessage(`{"messageId":"m-draft"}`), nil
}

type fakeDirectory struct {
	due         []db.Client
	dueErr      error
	touchpoints []string
	touchErr    error
}

func (f *fakeDirectory) ListDueClients(_ context.Context, _ time.Time) ([]db.Client, error) {
	return f.due, f.dueErr
}

func (f *fakeDirectory) LogTouchpoint(_ context.Context, clientID, kind, _ string) (string, error) {
	f.touchpoints = append(f.touchpoints, clientID+"/"+kind)
	if f.touchErr != nil {
		return "", f.touchErr
	}
	return "tp-1", nil
}

func testSweeper(dir *fakeDirectory, mail *fakeDrafter) *Sweeper {
	return NewSweeper(log.New(io.Discard), dir, mail)
}

func TestRunSweepDraftsForDueClients(t *testing.T) {
	dir := &fakeDirectory{due: []db.Client{
		{ID: "c-1", UserID: "user-1", Name: "Jane Doe", Email: "jane@acme.com"},
		{ID: "c-2", UserID: "user-1", Name: "Bob", Email: "bob@example.com"},
	}}
	mail := &fakeDrafter{}

	result, err := testSweeper(dir, mail).RunSweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Result{Total: 2, Success: 2, Failed: 0, Errors: []string{}}, result)

	require.Len(t, mail.calls, 2)
	assert.Equal(t, "jane@acme.com", mail.calls[0].to)
	assert.Equal(t, "Follow up: Jane Doe", mail.calls[0].subject)
	assert.Contains(t, mail.calls[0].content, "Hi Jane,")

	assert.Equal(t, []string{"c-1/draft", "c-2/draft"}, dir.touchpoints)
}

func TestRunSweepSkipsClientsMissingEmailOrUser(t *testing.T) {
	dir := &fakeDirectory{due: []db.Client{
		{ID: "c-1", UserID: "user-1", Name: "Jane", Email: "jane@acme.com"},
		{ID: "c-2", UserID: "user-1", Name: "No Email"},
		{ID: "c-3", Name: "No Owner", Email: "ghost@acme.com"},
	}}
	mail := &fakeDrafter{}

	result, err := testSweeper(dir, mail).RunSweep(context.Background())
	require.NoError(t, err)

	// Skips count toward the total but are neither successes nor failures.
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 1, result.Success)
	assert.Equal(t, 0, result.Failed)
	require.Len(t, mail.calls, 1)
	assert.Equal(t, "jane@acme.com", mail.calls[0].to)
}

func TestRunSweepIsolatesDraftFailures(t *testing.T) {
	dir := &fakeDirectory{due: []db.Client{
		{ID: "c-1", UserID: "user-1", Name: "Jane Doe", Email: "jane@acme.com"},
		{ID: "c-2", UserID: "user-1", Name: "Bob", Email: "bob@example.com"},
	}}
	mail := &fakeDrafter{failFor: map[string]error{
		"jane@acme.com": fmt.Errorf("mailbox full"),
	}}

	result, err := testSweeper(dir, mail).RunSweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Success)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "Jane Doe: mailbox full", result.Errors[0])

	// No touchpoint for the failed draft.
	assert.Equal(t, []string{"c-2/draft"}, dir.touchpoints)
}

func TestRunSweepTouchpointFailureIsNotFatal(t *testing.T) {
	dir := &fakeDirectory{
		due:      []db.Client{{ID: "c-1", UserID: "user-1", Name: "Jane", Email: "jane@acme.com"}},
		touchErr: fmt.Errorf("disk full"),
	}
	mail := &fakeDrafter{}

	result, err := testSweeper(dir, mail).RunSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Success)
	assert.Equal(t, 0, result.Failed)
}

func TestRunSweepListFailureIsFatal(t *testing.T) {
	dir := &fakeDirectory{dueErr: fmt.Errorf("db locked")}
	mail := &fakeDrafter{}

	_, err := testSweeper(dir, mail).RunSweep(context.Background())
	assert.ErrorContains(t, err, "db locked")
}

func TestComposeFollowUpUsesFirstName(t *testing.T) {
	subject, content := composeFollowUp("Jane Doe")
	assert.Equal(t, "Follow up: Jane Doe", subject)
	assert.Contains(t, content, "Hi Jane,")

	_, content = composeFollowUp("Cher")
	assert.Contains(t, content, "Hi Cher,")
}
