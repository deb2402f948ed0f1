package zoho

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

// Folder names looked up by path suffix or exact name.
const (
	SentFolderName  = "Sent"
	InboxFolderName = "Inbox"
)

// Mail is the stateless request surface of the Zoho Mail API. Every call
// resolves the user's regional host, acquires a token through the manager,
// and maps non-success responses to *APIError.
type Mail struct {
	apiClient
}

func NewMail(logger *log.Logger, tokens *TokenManager) *Mail {
	return &Mail{apiClient: newAPIClient(logger, tokens, "Bearer")}
}

// PrimaryAccount returns the first mail account for the token. The system
// supports exactly one mailbox per credential.
func (m *Mail) PrimaryAccount(ctx context.Context, userID string) (*Account, error) {
	endpoints, err := m.tokens.EndpointsFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	var resp accountsResponse
	if err := m.do(ctx, userID, "GET", endpoints.MailAPIURL+"/accounts", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch Zoho Mail account info: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, &NotFoundError{What: "mail account"}
	}

	return &resp.Data[0], nil
}

// FindFolder locates a folder by exact name or case-sensitive path suffix and
// returns it together with the owning account id.
func (m *Mail) FindFolder(ctx context.Context, userID, name string) (accountID, folderID string, err error) {
	account, err := m.PrimaryAccount(ctx, userID)
	if err != nil {
		return "", "", err
	}

	endpoints, err := m.tokens.EndpointsFor(ctx, userID)
	if err != nil {
		return "", "", err
	}

	var resp foldersResponse
	foldersURL := fmt.Sprintf("%s/accounts/%s/folders", endpoints.MailAPIURL, account.AccountID)
	if err := m.do(ctx, userID, "GET", foldersURL, nil, &resp); err != nil {
		return "", "", fmt.Errorf("failed to fetch folders: %w", err)
	}

	for _, folder := range resp.Data {
		if folder.Name == name || strings.HasSuffix(folder.Path, name) {
			return account.AccountID, folder.FolderID, nil
		}
	}

	return "", "", &NotFoundError{What: name + " folder"}
}

// ListFolderMessages lists the most recent messages of a named folder.
func (m *Mail) ListFolderMessages(ctx context.Context, userID, folderName string, limit int) ([]Message, error) {
	accountID, folderID, err := m.FindFolder(ctx, userID, folderName)
	if err != nil {
		return nil, err
	}

	endpoints, err := m.tokens.EndpointsFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"folderId": {folderID},
		"limit":    {strconv.Itoa(limit)},
	}
	listURL := fmt.Sprintf("%s/accounts/%s/messages/view?%s", endpoints.MailAPIURL, accountID, params.Encode())

	var resp messagesResponse
	if err := m.do(ctx, userID, "GET", listURL, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch %s messages: %w", folderName, err)
	}

	return resp.Data, nil
}

// SentMessages lists the most recent sent messages.
func (m *Mail) SentMessages(ctx context.Context, userID string, limit int) ([]Message, error) {
	return m.ListFolderMessages(ctx, userID, SentFolderName, limit)
}

// InboxMessages lists the most recent inbox messages.
func (m *Mail) InboxMessages(ctx context.Context, userID string, limit int) ([]Message, error) {
	return m.ListFolderMessages(ctx, userID, InboxFolderName, limit)
}

// SearchMessages runs a keyed search ("sender:<addr>", "entire:<addr>", ...).
func (m *Mail) SearchMessages(ctx context.Context, userID, searchKey string, limit int) ([]Message, error) {
	account, err := m.PrimaryAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	endpoints, err := m.tokens.EndpointsFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"searchKey": {searchKey},
		"limit":     {strconv.Itoa(limit)},
	}
	searchURL := fmt.Sprintf("%s/accounts/%s/messages/search?%s", endpoints.MailAPIURL, account.AccountID, params.Encode())

	var resp messagesResponse
	if err := m.do(ctx, userID, "GET", searchURL, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}

	return resp.Data, nil
}

// MessageContent fetches one message body. The folder id makes the fetch
// reliable; omitting it is a degraded fallback path that Zoho only sometimes
// accepts.
func (m *Mail) MessageContent(ctx context.Context, userID, messageID, folderID string) (*MessageContent, error) {
	account, err := m.PrimaryAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	endpoints, err := m.tokens.EndpointsFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	var contentURL string
	if folderID != "" {
		contentURL = fmt.Sprintf("%s/accounts/%s/folders/%s/messages/%s/content", endpoints.MailAPIURL, account.AccountID, folderID, messageID)
	} else {
		contentURL = fmt.Sprintf("%s/accounts/%s/messages/%s/content", endpoints.MailAPIURL, account.AccountID, messageID)
	}

	var resp contentResponse
	if err := m.do(ctx, userID, "GET", contentURL, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch email content: %w", err)
	}

	return &resp.Data, nil
}

// messagePayload is the body of the message-creation endpoint. An empty mode
// sends immediately (the provider default); mode "draft" files the message as
// a draft. One POST either way, no create-then-transition.
type messagePayload struct {
	FromAddress string `json:"fromAddress"`
	ToAddress   string `json:"toAddress"`
	Subject     string `json:"subject"`
	Content     string `json:"content"`
	AskReceipt  string `json:"askReceipt"`
	Mode        string `json:"mode,omitempty"`
}

// SendEmail sends an email from the account's primary address.
func (m *Mail) SendEmail(ctx context.Context, userID, to, subject, content string) (json.RawMessage, error) {
	return m.postMessage(ctx, userID, to, subject, content, "")
}

// CreateDraft files a draft addressed to the recipient without sending it.
func (m *Mail) CreateDraft(ctx context.Context, userID, to, subject, content string) (json.RawMessage, error) {
	return m.postMessage(ctx, userID, to, subject, content, "draft")
}

func (m *Mail) postMessage(ctx context.Context, userID, to, subject, content, mode string) (json.RawMessage, error) {
	account, err := m.PrimaryAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	if account.FromAddress() == "" {
		return nil, &NotFoundError{What: "mail from address"}
	}

	endpoints, err := m.tokens.EndpointsFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	payload := messagePayload{
		FromAddress: account.FromAddress(),
		ToAddress:   to,
		Subject:     subject,
		Content:     content,
		AskReceipt:  "yes",
		Mode:        mode,
	}

	messagesURL := fmt.Sprintf("%s/accounts/%s/messages", endpoints.MailAPIURL, account.AccountID)

	var resp rawResponse
	if err := m.do(ctx, userID, "POST", messagesURL, payload, &resp); err != nil {
		if mode == "draft" {
			return nil, fmt.Errorf("failed to create draft: %w", err)
		}
		return nil, fmt.Errorf("failed to send email: %w", err)
	}

	return resp.Data, nil
}
