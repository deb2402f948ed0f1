package contacts

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"

	"github.com/keeptouch/keeptouch/pkg/zoho"
)

// receivedSearchLimit bounds the per-candidate lookup for a received message.
const receivedSearchLimit = 5

// MailService is the slice of the mail client the sync run needs.
type MailService interface {
	SentMessages(ctx context.Context, userID string, limit int) ([]zoho.Message, error)
	SearchMessages(ctx context.Context, userID, searchKey string, limit int) ([]zoho.Message, error)
	MessageContent(ctx context.Context, userID, messageID, folderID string) (*zoho.MessageContent, error)
}

// ClientDirectory filters discovered addresses against stored clients.
type ClientDirectory interface {
	ListClientEmails(ctx context.Context, userID string, emails []string) ([]string, error)
}

// Syncer drives one contact-sync run: sent mail in, ranked candidate
// contacts out. It issues no writes.
type Syncer struct {
	logger      *log.Logger
	mail        MailService
	clients     ClientDirectory
	miner       *Miner
	fetchLimit  int
	enrichLimit int
}

func NewSyncer(logger *log.Logger, mail MailService, clients ClientDirectory, miner *Miner, fetchLimit, enrichLimit int) *Syncer {
	return &Syncer{
		logger:      logger,
		mail:        mail,
		clients:     clients,
		miner:       miner,
		fetchLimit:  fetchLimit,
		enrichLimit: enrichLimit,
	}
}

// SyncContacts fetches the most recent sent messages, extracts unique
// recipients, drops addresses already stored as clients, and enriches the
// first enrichLimit candidates with phone/company mined from message bodies.
// Candidates beyond the limit pass through untouched; enrichment costs up
// to two network calls each. Discovery order is preserved within each group.
func (s *Syncer) SyncContacts(ctx context.Context, userID string) ([]Candidate, error) {
	messages, err := s.mail.SentMessages(ctx, userID, s.fetchLimit)
	if err != nil {
		return nil, err
	}

	book := NewAddressBook()
	for _, msg := range messages {
		if msg.ToAddress == "" {
			continue
		}
		book.AddHeader(msg.ToAddress, Provenance{
			MessageID: msg.MessageID,
			FolderID:  msg.FolderID,
			Received:  false,
		})
	}
	discovered := book.Candidates()
	if len(discovered) == 0 {
		return []Candidate{}, nil
	}

	// Set difference against stored clients. Addresses compare as stored,
	// no case folding.
	emails := lo.Map(discovered, func(c Candidate, _ int) string { return c.Email })
	existing, err := s.clients.ListClientEmails(ctx, userID, emails)
	if err != nil {
		return nil, err
	}
	existingSet := lo.SliceToMap(existing, func(email string) (string, struct{}) { return email, struct{}{} })

	remaining := lo.Filter(discovered, func(c Candidate, _ int) bool {
		_, known := existingSet[c.Email]
		return !known
	})

	eligible := remaining
	var passthrough []Candidate
	if len(remaining) > s.enrichLimit {
		eligible = remaining[:s.enrichLimit]
		passthrough = remaining[s.enrichLimit:]
	}

	// Candidates are independent; enrich them concurrently and merge by
	// input index so completion order never matters.
	var wg sync.WaitGroup
	for i := range eligible {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			s.enrich(ctx, userID, &eligible[idx])
		}(i)
	}
	wg.Wait()

	return append(eligible, passthrough...), nil
}

// enrich fills phone/company for one candidate. Any failure is logged and
// swallowed; the candidate keeps its defaults. One bad email never aborts
// the batch.
func (s *Syncer) enrich(ctx context.Context, userID string, candidate *Candidate) {
	prov := candidate.Provenance

	// Prefer a message received from the address: its body ends where the
	// quoted history starts, so the signature sits in the live text.
	received, err := s.mail.SearchMessages(ctx, userID, "sender:"+candidate.Email, receivedSearchLimit)
	if err != nil {
		s.logger.Warn("received-message search failed", "email", candidate.Email, "error", err)
	} else if len(received) > 0 {
		prov = Provenance{
			MessageID: received[0].MessageID,
			FolderID:  received[0].FolderID,
			Received:  true,
		}
	}

	content, err := s.mail.MessageContent(ctx, userID, prov.MessageID, prov.FolderID)
	if err != nil {
		s.logger.Warn("content fetch failed, keeping defaults", "email", candidate.Email, "error", err)
		return
	}
	if content == nil || content.Content == "" {
		return
	}

	sig := s.miner.Mine(content.Content, prov.Received, candidate.Email)
	candidate.Phone = sig.Phone
	candidate.Company = sig.Company
	candidate.Provenance = prov
}
