package followup

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/keeptouch/keeptouch/pkg/db"
)

// Drafter files a follow-up draft in the owning user's mailbox.
type Drafter interface {
	CreateDraft(ctx context.Context, userID, to, subject, content string) (json.RawMessage, error)
}

// ClientDirectory is the slice of the datastore the sweep needs.
type ClientDirectory interface {
	ListDueClients(ctx context.Context, now time.Time) ([]db.Client, error)
	LogTouchpoint(ctx context.Context, clientID, kind, note string) (string, error)
}

// Result aggregates one sweep invocation. It is the sole observable outcome
// beyond the created drafts; the scheduler is responsible for alerting on
// Failed > 0.
type Result struct {
	Total   int      `json:"total"`
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
}

// Sweeper drafts a templated follow-up for every client whose follow-up date
// has passed. Best effort: items are fully isolated, nothing is retried, and
// the due date is never advanced, so the sweep re-drafts until the user logs
// contact rather than losing a follow-up.
type Sweeper struct {
	logger  *log.Logger
	clients ClientDirectory
	mail    Drafter
	now     func() time.Time
}

func NewSweeper(logger *log.Logger, clients ClientDirectory, mail Drafter) *Sweeper {
	return &Sweeper{
		logger:  logger,
		clients: clients,
		mail:    mail,
		now:     time.Now,
	}
}

// RunSweep processes every due client sequentially. Draft creation is
// rate-sensitive, so the loop stays serial. Clients missing an email or
// owning user are skipped silently: a data-quality gap, not a failure.
func (s *Sweeper) RunSweep(ctx context.Context) (Result, error) {
	due, err := s.clients.ListDueClients(ctx, s.now())
	if err != nil {
		return Result{}, fmt.Errorf("failed to fetch due clients: %w", err)
	}

	result := Result{Total: len(due), Errors: []string{}}

	for _, client := range due {
		if client.Email == "" || client.UserID == "" {
			s.logger.Warn("skipping client with missing email or user", "client_id", client.ID)
			continue
		}

		subject, content := composeFollowUp(client.Name)

		if _, err := s.mail.CreateDraft(ctx, client.UserID, client.Email, subject, content); err != nil {
			s.logger.Error("failed to create follow-up draft", "client", client.Name, "error", err)
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", client.Name, err.Error()))
			continue
		}

		result.Success++

		if _, err := s.clients.LogTouchpoint(ctx, client.ID, "draft", "Follow-up draft created"); err != nil {
			s.logger.Warn("failed to log draft touchpoint", "client_id", client.ID, "error", err)
		}
	}

	s.logger.Info("follow-up sweep finished",
		"total", result.Total,
		"success", result.Success,
		"failed", result.Failed)

	return result, nil
}

func composeFollowUp(name string) (subject, content string) {
	subject = "Follow up: " + name

	firstName := name
	if fields := strings.Fields(name); len(fields) > 0 {
		firstName = fields[0]
	}
	content = fmt.Sprintf("Hi %s,\n\nHope you're doing well. Just wanted to check in on our last conversation.\n\nBest regards,", firstName)

	return subject, content
}
