package contacts

// Unknown is the placeholder for fields enrichment could not fill.
const Unknown = "N/A"

// Provenance records which message supplied a candidate's data and whether it
// was a received- or sent-origin body. Quote-history stripping only applies
// to received bodies; a sent body's quoted thread may hold the only copy of
// the other party's signature.
type Provenance struct {
	MessageID string `json:"messageId"`
	FolderID  string `json:"folderId"`
	Received  bool   `json:"received"`
}

// Candidate is a prospective contact discovered from sent-mail headers, not
// yet persisted anywhere. Email is the dedup key within a sync run.
type Candidate struct {
	Email      string     `json:"email"`
	Name       string     `json:"name"`
	Phone      string     `json:"phone"`
	Company    string     `json:"company"`
	Provenance Provenance `json:"provenance"`
}
