package contacts

import (
	"regexp"
	"strings"
)

// bracketed matches `display-name <email>` with an optional quoted display
// name and no required space before the bracket.
var bracketed = regexp.MustCompile(`^(.*?)\s*<([^>]+)>$`)

// AddressBook accumulates unique candidates across the headers of one sync
// run. First occurrence of an address wins; later duplicates are discarded.
// Discovery order is preserved.
type AddressBook struct {
	order   []string
	byEmail map[string]Candidate
}

func NewAddressBook() *AddressBook {
	return &AddressBook{byEmail: make(map[string]Candidate)}
}

// AddHeader parses one raw "To" header value, possibly holding multiple
// comma-separated recipients, and inserts every usable address. Same input
// always yields the same output; no external state.
func (b *AddressBook) AddHeader(header string, prov Provenance) {
	for _, recipient := range strings.Split(header, ",") {
		clean := strings.TrimSpace(recipient)

		clean = decodeEntities(clean)
		clean = stripSurroundingQuotes(clean)

		var name, email string
		if match := bracketed.FindStringSubmatch(clean); match != nil {
			name = strings.TrimSpace(stripSurroundingQuotes(strings.TrimSpace(match[1])))
			email = strings.TrimSpace(match[2])
		} else {
			email = strings.TrimSpace(stripSurroundingQuotes(clean))
		}

		if email == "" || !strings.Contains(email, "@") || strings.ContainsAny(email, " \t") {
			continue
		}
		// Defends against a malformed match like "sticky@stickyslap.com>".
		email = strings.TrimSuffix(email, ">")

		if name == "" || name == email {
			name = nameFromLocalPart(email)
		}

		key := strings.ToLower(email)
		if _, seen := b.byEmail[key]; seen {
			continue
		}

		b.order = append(b.order, key)
		b.byEmail[key] = Candidate{
			Email:      email,
			Name:       name,
			Phone:      Unknown,
			Company:    Unknown,
			Provenance: prov,
		}
	}
}

// Candidates returns the accumulated candidates in discovery order.
func (b *AddressBook) Candidates() []Candidate {
	out := make([]Candidate, 0, len(b.order))
	for _, key := range b.order {
		out = append(out, b.byEmail[key])
	}
	return out
}

func decodeEntities(s string) string {
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&amp;", "&")
	return s
}

func stripSurroundingQuotes(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return s[1 : len(s)-1]
	}
	return s
}

// nameFromLocalPart derives a display name from the text before the "@",
// with its first character capitalized.
func nameFromLocalPart(email string) string {
	local := email[:strings.Index(email, "@")]
	if local == "" {
		return email
	}
	return strings.ToUpper(local[:1]) + local[1:]
}
