package catalog

import "errors"

// Search failure taxonomy. Callers match with errors.Is; network and decode
// failures carry detail via wrapping.
var (
	// ErrInvalidQuery indicates the query could not be encoded into a
	// request URL.
	ErrInvalidQuery = errors.New("invalid search query")

	// ErrMissingCredentials indicates the API key or host is not
	// configured. Checked before any request is issued.
	ErrMissingCredentials = errors.New("missing API credentials")

	// ErrNetwork covers transport failures and non-2xx responses.
	ErrNetwork = errors.New("network error")

	// ErrEmptyResults indicates the provider returned zero rows. Distinct
	// from transport failure so callers can show "no results" instead of
	// an error.
	ErrEmptyResults = errors.New("no results found")

	// ErrDecode indicates the response body did not match the expected
	// shape.
	ErrDecode = errors.New("failed to decode response")
)
