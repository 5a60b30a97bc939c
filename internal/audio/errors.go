package audio

import (
	"errors"
	"fmt"
)

var (
	// ErrDependencyMissing indicates a required external tool is not installed.
	ErrDependencyMissing = errors.New("dependency missing")
	// ErrConversionFailed indicates the input could not be decoded or re-encoded.
	ErrConversionFailed = errors.New("conversion failed")
	// ErrDurationExceeded indicates the recording is longer than allowed.
	ErrDurationExceeded = errors.New("duration exceeded")
)

// DependencyMissingError names the tool that could not be found.
type DependencyMissingError struct {
	Tool string
}

func (e DependencyMissingError) Error() string {
	return fmt.Sprintf("%s is required to convert non-WAV files like .m4a. "+
		"Install %s and make sure it is on your PATH.", e.Tool, e.Tool)
}

func (e DependencyMissingError) Is(target error) bool {
	return target == ErrDependencyMissing
}

// ConversionFailedError wraps the decode or encode failure for Path.
type ConversionFailedError struct {
	Path string
	Err  error
}

func (e *ConversionFailedError) Error() string {
	return fmt.Sprintf("conversion failed for %s: %v", e.Path, e.Err)
}

func (e *ConversionFailedError) Unwrap() error {
	return e.Err
}

func (e *ConversionFailedError) Is(target error) bool {
	return target == ErrConversionFailed
}

// DurationExceededError carries the configured limit and the measured length, in seconds.
type DurationExceededError struct {
	Limit    float64
	Measured float64
}

func (e DurationExceededError) Error() string {
	return fmt.Sprintf("Audio too long. Maximum: %gs (~%.1f min), received: %.1fs (~%.1f min). "+
		"Please upload a shorter audio file.",
		e.Limit, e.Limit/60, e.Measured, e.Measured/60)
}

func (e DurationExceededError) Is(target error) bool {
	return target == ErrDurationExceeded
}
