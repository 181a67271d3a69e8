package providers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// TransientServiceError is a failure that may succeed if retried later:
// timeouts, network errors, rate limits, 5xx responses, empty or truncated
// output.
type TransientServiceError struct {
	Provider   string
	StatusCode int // 0 when no HTTP response was received
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *TransientServiceError) Error() string {
	return formatServiceError("transient", e.Provider, e.StatusCode, e.Message, e.Err)
}

func (e *TransientServiceError) Unwrap() error { return e.Err }

// FatalServiceError is a failure that cannot succeed on retry: bad
// credentials, malformed requests, refusals.
type FatalServiceError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *FatalServiceError) Error() string {
	return formatServiceError("fatal", e.Provider, e.StatusCode, e.Message, e.Err)
}

func (e *FatalServiceError) Unwrap() error { return e.Err }

func formatServiceError(kind, provider string, status int, msg string, cause error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s error", provider, kind)
	if status > 0 {
		fmt.Fprintf(&b, " (status %d)", status)
	}
	if msg != "" {
		b.WriteString(": " + msg)
	}
	if cause != nil && (msg == "" || !strings.Contains(msg, cause.Error())) {
		b.WriteString(": " + cause.Error())
	}
	return b.String()
}

// IsTransient reports whether err is (or wraps) a *TransientServiceError.
func IsTransient(err error) bool {
	var te *TransientServiceError
	return errors.As(err, &te)
}

// AsTransient unwraps err to a *TransientServiceError.
func AsTransient(err error) (*TransientServiceError, bool) {
	var te *TransientServiceError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// IsFatal reports whether err is (or wraps) a *FatalServiceError.
func IsFatal(err error) bool {
	var fe *FatalServiceError
	return errors.As(err, &fe)
}

// ClassifyStatus maps an HTTP status from the service to an error kind.
func ClassifyStatus(provider string, status int, msg string, retryAfter time.Duration, cause error) error {
	if retryableStatus(status) {
		return &TransientServiceError{
			Provider:   provider,
			StatusCode: status,
			Message:    msg,
			RetryAfter: retryAfter,
			Err:        cause,
		}
	}
	return &FatalServiceError{Provider: provider, StatusCode: status, Message: msg, Err: cause}
}

func retryableStatus(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusConflict, http.StatusTooEarly, http.StatusTooManyRequests:
		return true
	default:
		return status >= 500
	}
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
