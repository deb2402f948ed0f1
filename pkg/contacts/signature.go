package contacts

import (
	"regexp"
	"strings"

	"github.com/jaytaylor/html2text"
)

// maxScanLength bounds the heuristic cost per message body.
const maxScanLength = 5000

// maxCompanyLength: anything longer is noise, not a company name.
const maxCompanyLength = 50

const phonePattern = `(?:\+?1[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`

var (
	tagRe        = regexp.MustCompile(`<[^>]*>`)
	whitespaceRe = regexp.MustCompile(`\s+`)

	phoneRe        = regexp.MustCompile(phonePattern)
	labeledPhoneRe = regexp.MustCompile(`(?i)\b(?:phone|tel|mobile|cell|direct|[tmcp])\s*[:\s]\s*(` + phonePattern + `)`)
	nonDigitRe     = regexp.MustCompile(`\D`)

	replyHeaderRe    = regexp.MustCompile(`(?i)\bOn\s+.{1,200}?\bwrote:`)
	companyLabelRe   = regexp.MustCompile(`(?i)\bcompany\s*:\s*([A-Za-z0-9&.,'\-]+(?: [A-Za-z0-9&.,'\-]+){0,3})`)
	domainSplitterRe = regexp.MustCompile(`[-_]`)
)

// replyMarkers are literal boilerplate separators that start quoted history
// in a received body. Truncation keeps only the text before the first one.
var replyMarkers = []string{
	"-----Original Message-----",
	"----- Original Message -----",
	"------ Original Message ------",
	"________________________________",
	"From: ",
	"Sent from my iPhone",
	"Sent from my iPad",
	"Sent from my mobile",
	"Get Outlook for",
}

// genericDomains are free-mail providers that never name a company.
var genericDomains = map[string]struct{}{
	"gmail.com":      {},
	"googlemail.com": {},
	"yahoo.com":      {},
	"hotmail.com":    {},
	"outlook.com":    {},
	"live.com":       {},
	"msn.com":        {},
	"aol.com":        {},
	"icloud.com":     {},
	"me.com":         {},
	"protonmail.com": {},
	"proton.me":      {},
	"mail.com":       {},
	"gmx.com":        {},
}

// Signature is the outcome of mining one message body.
type Signature struct {
	Phone   string
	Company string
}

// Miner extracts a phone number and company name from raw message bodies via
// pattern heuristics and domain inference. Deterministic and side-effect
// free.
type Miner struct {
	selfNumbers map[string]struct{}
}

// NewMiner builds a miner excluding the given numbers, the account owner's
// own, so their signature in a thread is never reported as a client phone.
func NewMiner(selfNumbers []string) *Miner {
	excluded := make(map[string]struct{}, len(selfNumbers))
	for _, n := range selfNumbers {
		if d := normalizeDigits(n); d != "" {
			excluded[d] = struct{}{}
		}
	}
	return &Miner{selfNumbers: excluded}
}

// Mine scans one candidate message body. The received flag controls reply
// truncation: sent-origin bodies keep their quoted history, since it may
// hold the only copy of the counterpart's signature. counterpartEmail feeds
// company inference from the address domain.
func (m *Miner) Mine(body string, received bool, counterpartEmail string) Signature {
	text := flattenBody(body)

	if received {
		text = truncateAtReply(text)
	}

	if len(text) > maxScanLength {
		text = text[:maxScanLength]
	}

	return Signature{
		Phone:   m.minePhone(text),
		Company: mineCompany(text, counterpartEmail),
	}
}

// flattenBody strips HTML tags to whitespace and collapses whitespace runs.
func flattenBody(body string) string {
	text, err := html2text.FromString(body, html2text.Options{TextOnly: true})
	if err != nil {
		text = tagRe.ReplaceAllString(body, " ")
	}
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// truncateAtReply keeps only the text before the first quoted-reply marker,
// checking the "On ... wrote:" header first and the literal separators after.
func truncateAtReply(text string) string {
	cut := len(text)

	if loc := replyHeaderRe.FindStringIndex(text); loc != nil && loc[0] < cut {
		cut = loc[0]
	}
	for _, marker := range replyMarkers {
		if idx := strings.Index(text, marker); idx >= 0 && idx < cut {
			cut = idx
		}
	}

	return strings.TrimSpace(text[:cut])
}

// minePhone tries the labeled candidate first, then the last unlabeled
// match, then the remaining matches in reverse order. The first candidate
// not matching a configured self number wins.
func (m *Miner) minePhone(text string) string {
	var candidates []string

	if match := labeledPhoneRe.FindStringSubmatch(text); match != nil {
		candidates = append(candidates, match[1])
	}

	all := phoneRe.FindAllString(text, -1)
	for i := len(all) - 1; i >= 0; i-- {
		candidates = append(candidates, all[i])
	}

	for _, candidate := range candidates {
		digits := normalizeDigits(candidate)
		if len(digits) < 10 {
			continue
		}
		if _, self := m.selfNumbers[digits]; self {
			continue
		}
		return strings.TrimSpace(candidate)
	}

	return Unknown
}

func mineCompany(text, counterpartEmail string) string {
	company := ""

	if match := companyLabelRe.FindStringSubmatch(text); match != nil {
		company = strings.TrimRight(strings.TrimSpace(match[1]), ".,")
	} else {
		company = companyFromDomain(counterpartEmail)
	}

	if company == "" || len(company) > maxCompanyLength {
		return Unknown
	}
	return company
}

// companyFromDomain infers a name from the counterpart's email domain:
// "jane@acme-corp.com" becomes "Acme Corp". Generic consumer domains infer
// nothing.
func companyFromDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}

	domain := strings.ToLower(email[at+1:])
	if _, generic := genericDomains[domain]; generic {
		return ""
	}

	label := strings.Split(domain, ".")[0]
	if label == "" {
		return ""
	}

	var parts []string
	for _, part := range domainSplitterRe.Split(label, -1) {
		if part == "" {
			continue
		}
		parts = append(parts, strings.ToUpper(part[:1])+part[1:])
	}

	return strings.Join(parts, " ")
}

// normalizeDigits reduces a number to digits only, dropping a leading
// country code so "+1 (555) 010-0199" and "555.010.0199" compare equal.
func normalizeDigits(number string) string {
	digits := nonDigitRe.ReplaceAllString(number, "")
	if len(digits) == 11 && strings.HasPrefix(digits, "1") {
		digits = digits[1:]
	}
	return digits
}
