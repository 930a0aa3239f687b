package models

import (
	"errors"
	"fmt"
)

// ExtractionError signals that no usable title (or, for files, episode)
// could be derived from a name. Fatal for the attempt; never retried by the
// extractor itself.
type ExtractionError struct {
	Name   string
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %q: %s", e.Name, e.Reason)
}

// AmbiguousResultError signals that the resolver could not settle on a
// single candidate.
type AmbiguousResultError struct {
	Title  string
	Reason string
}

func (e *AmbiguousResultError) Error() string {
	return fmt.Sprintf("ambiguous result for %q: %s", e.Title, e.Reason)
}

// ProviderError wraps a metadata-provider fault. Search-stage callers
// convert it to an empty result; detail-stage callers treat it as fatal.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ModelParseError signals unparsable completion-service output. It only
// drives the recovery cascade and fallback; it is never surfaced to the
// caller of the extractor.
type ModelParseError struct {
	Step string
	Err  error
}

func (e *ModelParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("model output unparsable at %s", e.Step)
	}
	return fmt.Sprintf("model output unparsable at %s: %v", e.Step, e.Err)
}

func (e *ModelParseError) Unwrap() error { return e.Err }

// ErrAttemptTimeout marks an attempt that exceeded the processing timeout.
// Classified as transient by the scheduler.
var ErrAttemptTimeout = errors.New("attempt exceeded processing timeout")

// IsExtractionError reports whether err is (or wraps) an ExtractionError.
func IsExtractionError(err error) bool {
	var e *ExtractionError
	return errors.As(err, &e)
}

// IsAmbiguousResultError reports whether err is (or wraps) an AmbiguousResultError.
func IsAmbiguousResultError(err error) bool {
	var e *AmbiguousResultError
	return errors.As(err, &e)
}

// IsProviderError reports whether err is (or wraps) a ProviderError.
func IsProviderError(err error) bool {
	var e *ProviderError
	return errors.As(err, &e)
}
