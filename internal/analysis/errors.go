package analysis

import (
	"context"
	"errors"

	"github.com/codebuildervaibhav/emotion-timeline/internal/audio"
)

// Error classes reported to callers and recorded in the run log.
const (
	ClassTooLong           = "too_long"
	ClassDependencyMissing = "dependency_missing"
	ClassConversionFailed  = "conversion_failed"
	ClassCanceled          = "canceled"
	ClassInternal          = "internal"
)

// ErrorClass maps a pipeline error to one of the error classes.
func ErrorClass(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, audio.ErrDurationExceeded):
		return ClassTooLong
	case errors.Is(err, audio.ErrDependencyMissing):
		return ClassDependencyMissing
	case errors.Is(err, audio.ErrConversionFailed):
		return ClassConversionFailed
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ClassCanceled
	default:
		return ClassInternal
	}
}

// UserMessage returns a short message suitable for showing to the uploader.
func UserMessage(err error) string {
	switch ErrorClass(err) {
	case ClassTooLong, ClassDependencyMissing:
		return err.Error()
	case ClassConversionFailed:
		var convErr *audio.ConversionFailedError
		if errors.As(err, &convErr) {
			return "Audio conversion failed: " + convErr.Err.Error()
		}
		return "Audio conversion failed"
	case ClassCanceled:
		return "Audio processing was cancelled"
	default:
		return "Audio processing failed"
	}
}
