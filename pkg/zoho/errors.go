package zoho

import (
	"errors"
	"fmt"
)

// Provider is the provider key under which credentials are stored.
const Provider = "zoho"

var (
	// ErrNotConnected signals that no credential exists for the user. Callers
	// surface this as a "please connect Zoho Workspace" prompt rather than a
	// generic failure.
	ErrNotConnected = errors.New("user has not connected Zoho Workspace")

	// ErrMissingClientConfig signals missing client id/secret in the
	// environment. Operator-actionable, not user-actionable.
	ErrMissingClientConfig = errors.New("missing Zoho client credentials (ZOHO_CLIENT_ID, ZOHO_CLIENT_SECRET)")
)

// NotFoundError reports an expected account, folder or calendar missing from
// the provider's response. Usually indicates account misconfiguration.
type NotFoundError struct {
	What string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("could not find %s in Zoho account", e.What)
}

// APIError carries the status and response body of a failed Zoho API call.
// The body is the only diagnostic signal the provider gives, so it is never
// dropped.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("zoho api error: %d: %s", e.Status, e.Body)
}

// Unauthorized reports whether the call failed token validation.
func (e *APIError) Unauthorized() bool {
	return e.Status == 401
}
