package extraction

import (
	"errors"
	"fmt"
)

// ExhaustedRetriesError is returned when every attempt failed transiently.
type ExhaustedRetriesError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("extraction failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedRetriesError) Unwrap() error { return e.Last }

// IsExhausted reports whether err carries an ExhaustedRetriesError.
func IsExhausted(err error) (*ExhaustedRetriesError, bool) {
	var e *ExhaustedRetriesError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
