// Package resilience classifies oracle failures and provides retry and
// circuit-breaker helpers for calls to the generation service.
package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// TransientError marks a failure that is safe to retry with the same
// credential (5xx, overload, network timeout).
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// NewTransientError wraps err as transient with an optional HTTP status.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// CredentialError marks a failure tied to the credential in use: quota
// exhausted, rate limited, unauthorized or forbidden. The caller should stop
// using that credential and fail over to the next one.
type CredentialError struct {
	Err        error
	StatusCode int
}

func (e *CredentialError) Error() string { return e.Err.Error() }

func (e *CredentialError) Unwrap() error { return e.Err }

// NewCredentialError wraps err as a credential-class failure.
func NewCredentialError(err error, statusCode int) *CredentialError {
	return &CredentialError{Err: err, StatusCode: statusCode}
}

// quotaPatterns are substrings seen in quota and auth failures from the
// generation APIs when no structured status is available.
var quotaPatterns = []string{
	"quota exceeded",
	"quota",
	"rate limit",
	"too many requests",
	"resource_exhausted",
	"limit exceeded",
	"unauthorized",
	"forbidden",
	"permission denied",
	"api key not valid",
	"invalid api key",
}

// IsCredentialFailure reports whether err should exhaust the current
// credential. Explicit CredentialErrors win; otherwise the message is
// matched against known quota and auth phrases.
func IsCredentialFailure(err error) bool {
	if err == nil {
		return false
	}
	var ce *CredentialError
	if errors.As(err, &ce) {
		return true
	}
	var te *TransientError
	if errors.As(err, &te) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range quotaPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

var transientPatterns = []string{
	"connection reset by peer",
	"broken pipe",
	"temporary failure in name resolution",
	"no such host",
	"tls handshake timeout",
	"i/o timeout",
	"server closed idle connection",
	"overloaded",
}

// IsTransient reports whether err is worth retrying on the same credential.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// ClassifyStatus wraps err according to an HTTP status code returned by a
// generation API. Unknown codes return err unchanged.
func ClassifyStatus(err error, statusCode int) error {
	switch statusCode {
	case 401, 403, 429:
		return NewCredentialError(err, statusCode)
	case 408, 500, 502, 503, 504, 529:
		return NewTransientError(err, statusCode)
	default:
		return err
	}
}
