package audio

// DefaultMaxDuration is the longest recording accepted, in seconds.
const DefaultMaxDuration = 120.0

// CheckDuration rejects sources longer than maxSeconds. A non-positive
// limit disables the check.
func CheckDuration(src *Source, maxSeconds float64) error {
	if maxSeconds <= 0 {
		return nil
	}
	if d := src.Duration(); d > maxSeconds {
		return DurationExceededError{Limit: maxSeconds, Measured: d}
	}
	return nil
}
