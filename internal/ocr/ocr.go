// Package ocr turns report images into raw text. The rest of the pipeline only
// depends on the Recognizer interface; the engine behind it is replaceable.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Recognizer extracts text from an image (or PDF) on disk.
type Recognizer interface {
	Recognize(ctx context.Context, path string) (string, error)
}

// RecognitionError means the recognition step produced no usable text.
type RecognitionError struct {
	Path   string
	Reason string
	Err    error
}

func (e *RecognitionError) Error() string {
	msg := fmt.Sprintf("recognition failed for %s: %s", e.Path, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RecognitionError) Unwrap() error { return e.Err }

// IsRecognitionError unwraps err to a RecognitionError.
func IsRecognitionError(err error) (*RecognitionError, bool) {
	var re *RecognitionError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// Func adapts a plain function to Recognizer. Returned text is trimmed and an
// empty result becomes a RecognitionError, same as the real engine.
type Func func(ctx context.Context, path string) (string, error)

// Recognize calls f.
func (f Func) Recognize(ctx context.Context, path string) (string, error) {
	text, err := f(ctx, path)
	if err != nil {
		if _, ok := IsRecognitionError(err); ok {
			return "", err
		}
		return "", &RecognitionError{Path: path, Reason: "recognizer error", Err: err}
	}
	return requireText(path, text)
}

// Static returns a Recognizer that always yields text.
func Static(text string) Recognizer {
	return Func(func(context.Context, string) (string, error) { return text, nil })
}

func requireText(path, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", &RecognitionError{Path: path, Reason: "no text recognized"}
	}
	return text, nil
}
