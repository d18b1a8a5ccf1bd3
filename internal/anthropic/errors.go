package anthropic

import "errors"

// Classified completion failures. Callers check these with errors.Is and
// never pattern-match on API status codes or error type strings.
var (
	// ErrQuotaExceeded means the account's quota or rate limit is exhausted.
	// Not retried automatically; the operator has to act (billing, limits).
	ErrQuotaExceeded = errors.New("completion quota exhausted")

	// ErrInvalidAPIKey means the credential was rejected. Not retryable.
	ErrInvalidAPIKey = errors.New("invalid completion API key")
)

// Unwrap classifies the API error so errors.Is(err, ErrQuotaExceeded) and
// errors.Is(err, ErrInvalidAPIKey) work on errors returned by CreateMessage.
// Anything unclassified is a transient completion failure.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == 429 || e.ErrorDetail.Type == "rate_limit_error":
		return ErrQuotaExceeded
	case e.StatusCode == 401 || e.StatusCode == 403 ||
		e.ErrorDetail.Type == "authentication_error" || e.ErrorDetail.Type == "permission_error":
		return ErrInvalidAPIKey
	}
	return nil
}
