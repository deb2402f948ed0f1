package zoho

import "fmt"

// Endpoints holds the fully-qualified regional base URLs for one credential.
// Zoho runs separate hosts per data center; the location code is chosen at
// grant time and stored with the credential, never re-negotiated.
type Endpoints struct {
	AccountsURL string
	MailAPIURL  string
	CalendarURL string
}

// ResolveEndpoints maps a stored data-center location code to its regional
// hosts. The primary deployment lives under the "com" top-level domain; every
// other location code is used literally ("eu", "in", ...).
func ResolveEndpoints(location string) Endpoints {
	tld := location
	if tld == "" || tld == "primary" {
		tld = "com"
	}
	return Endpoints{
		AccountsURL: fmt.Sprintf("https://accounts.zoho.%s", tld),
		MailAPIURL:  fmt.Sprintf("https://mail.zoho.%s/api", tld),
		CalendarURL: fmt.Sprintf("https://calendar.zoho.%s/api/v1", tld),
	}
}

// TokenURL is the regional OAuth token endpoint.
func (e Endpoints) TokenURL() string {
	return e.AccountsURL + "/oauth/v2/token"
}
