package zoho

import "encoding/json"

// Account is one mailbox of the token's owner. The first account returned by
// Zoho is treated as "the" account; one mailbox per credential.
type Account struct {
	AccountID           string `json:"accountId"`
	PrimaryEmailAddress string `json:"primaryEmailAddress"`
	IncomingUserName    string `json:"incomingUserName"`
}

// FromAddress is the best available sending address for the account.
func (a Account) FromAddress() string {
	if a.PrimaryEmailAddress != "" {
		return a.PrimaryEmailAddress
	}
	return a.IncomingUserName
}

// Folder is one mail folder ("Sent", "Inbox", ...).
type Folder struct {
	FolderID string `json:"folderId"`
	Name     string `json:"name"`
	Path     string `json:"path"`
}

// Message is the listing/search representation of a mail message. Address
// headers arrive raw, possibly HTML-entity encoded and comma separated.
type Message struct {
	MessageID    string `json:"messageId"`
	FolderID     string `json:"folderId"`
	FromAddress  string `json:"fromAddress"`
	ToAddress    string `json:"toAddress"`
	Sender       string `json:"sender"`
	Subject      string `json:"subject"`
	ReceivedTime string `json:"receivedTime"`
	Summary      string `json:"summary"`
}

// MessageContent is the full body of one message.
type MessageContent struct {
	MessageID string `json:"messageId"`
	Content   string `json:"content"`
}

// Calendar is one calendar of the token's owner.
type Calendar struct {
	UID       string `json:"uid"`
	Name      string `json:"name"`
	IsDefault bool   `json:"isdefault"`
}

// EventTime is Zoho's compact UTC pair (YYYYMMDDTHHMMSSZ, no separators).
type EventTime struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	Timezone string `json:"timezone"`
}

// EventRecord is the provider's stored representation of a calendar event.
type EventRecord struct {
	UID         string    `json:"uid"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	DateAndTime EventTime `json:"dateandtime"`
}

// Response envelopes. Mail endpoints wrap everything in "data"; the calendar
// list call alone uses "calendars".
type (
	accountsResponse struct {
		Data []Account `json:"data"`
	}
	foldersResponse struct {
		Data []Folder `json:"data"`
	}
	messagesResponse struct {
		Data []Message `json:"data"`
	}
	contentResponse struct {
		Data MessageContent `json:"data"`
	}
	calendarsResponse struct {
		Calendars []Calendar `json:"calendars"`
	}
	eventsResponse struct {
		Data []EventRecord `json:"data"`
	}
	rawResponse struct {
		Data json.RawMessage `json:"data"`
	}
)
