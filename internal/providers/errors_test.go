package providers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestClassifyStatus(t *testing.T) {
	for _, status := range []int{408, 409, 425, 429, 500, 502, 503, 504, 524} {
		if err := ClassifyStatus("p", status, "", 0, nil); !IsTransient(err) {
			t.Errorf("status %d should be transient, got %v", status, err)
		}
	}
	for _, status := range []int{400, 401, 403, 404, 422} {
		if err := ClassifyStatus("p", status, "", 0, nil); !IsFatal(err) {
			t.Errorf("status %d should be fatal, got %v", status, err)
		}
	}
}

func TestServiceErrorsUnwrapThroughWrapping(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := fmt.Errorf("attempt 2: %w", &TransientServiceError{Provider: "gemini", Err: cause})
	if !IsTransient(err) {
		t.Fatal("expected wrapped transient error to be detected")
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected cause to be reachable with errors.Is")
	}
	if IsFatal(err) {
		t.Fatal("transient error must not be fatal")
	}
}

func TestServiceErrorMessage(t *testing.T) {
	err := &FatalServiceError{Provider: "gemini", StatusCode: http.StatusUnauthorized, Message: "API key not valid"}
	want := "gemini fatal error (status 401): API key not valid"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestParseRetryAfter(t *testing.T) {
	if got := parseRetryAfter("7"); got != 7*time.Second {
		t.Fatalf("parseRetryAfter(7) = %v", got)
	}
	if got := parseRetryAfter(""); got != 0 {
		t.Fatalf("parseRetryAfter(\"\") = %v", got)
	}
	future := time.Now().Add(90 * time.Second).UTC().Format(http.TimeFormat)
	if got := parseRetryAfter(future); got <= 0 || got > 91*time.Second {
		t.Fatalf("parseRetryAfter(http-date) = %v", got)
	}
	if got := parseRetryAfter("soon"); got != 0 {
		t.Fatalf("parseRetryAfter(soon) = %v", got)
	}
}
