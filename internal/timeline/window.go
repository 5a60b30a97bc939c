// Package timeline turns per-window emotion labels into a compact timeline.
package timeline

import "fmt"

// DefaultChunkSize is the window length in seconds used when none is configured.
const DefaultChunkSize = 5.0

// Window is a half-open [Start, End) span of the recording, in seconds.
type Window struct {
	Index int
	Start float64
	End   float64
}

// Length returns End - Start.
func (w Window) Length() float64 {
	return w.End - w.Start
}

func (w Window) String() string {
	return fmt.Sprintf("window %d: %.2fs-%.2fs", w.Index, w.Start, w.End)
}

// Segment splits [0, duration) into contiguous windows of chunkSize seconds.
// The final window is shorter when duration is not a multiple of chunkSize.
// A zero duration yields no windows.
func Segment(duration, chunkSize float64) []Window {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if duration <= 0 {
		return nil
	}

	var windows []Window
	for i := 0; ; i++ {
		start := float64(i) * chunkSize
		if start >= duration {
			break
		}
		end := start + chunkSize
		if end > duration {
			end = duration
		}
		windows = append(windows, Window{Index: i, Start: start, End: end})
	}
	return windows
}
