package timeline

import (
	"fmt"
	"math"

	"github.com/codebuildervaibhav/emotion-timeline/internal/types"
)

// Merge collapses consecutive windows sharing a label into intervals.
// Results must be in window order and cover the whole segmentation; skipped
// windows are ignored, so a gap extends the interval that precedes it. The
// last interval always runs to the end of the final window.
func Merge(results []WindowResult) []types.EmotionInterval {
	var (
		intervals     []types.EmotionInterval
		lastEmotion   string
		haveEmotion   bool
		intervalStart float64
	)

	for _, r := range results {
		if r.Outcome != Classified {
			continue
		}
		if haveEmotion && r.Label == lastEmotion {
			continue
		}
		if haveEmotion {
			intervals = append(intervals, newInterval(intervalStart, r.Window.Start, lastEmotion))
		}
		lastEmotion = r.Label
		haveEmotion = true
		intervalStart = r.Window.Start
	}

	if !haveEmotion {
		return []types.EmotionInterval{Sentinel()}
	}

	end := results[len(results)-1].Window.End
	return append(intervals, newInterval(intervalStart, end, lastEmotion))
}

// Sentinel is the single interval reported when nothing could be classified.
func Sentinel() types.EmotionInterval {
	return types.EmotionInterval{
		Time:     FormatTimestamp(0),
		Emotion:  types.UnknownEmotion,
		Duration: FormatDuration(0),
	}
}

// UniqueEmotions counts distinct labels across intervals.
func UniqueEmotions(intervals []types.EmotionInterval) int {
	seen := make(map[string]struct{}, len(intervals))
	for _, iv := range intervals {
		seen[iv.Emotion] = struct{}{}
	}
	return len(seen)
}

// FormatTimestamp renders whole seconds as M:SS.
func FormatTimestamp(seconds float64) string {
	s := wholeSeconds(seconds)
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

// FormatDuration renders whole seconds with an "s" suffix.
func FormatDuration(seconds float64) string {
	return fmt.Sprintf("%ds", wholeSeconds(seconds))
}

func newInterval(start, end float64, emotion string) types.EmotionInterval {
	return types.EmotionInterval{
		Time:     FormatTimestamp(start),
		Emotion:  emotion,
		Duration: FormatDuration(end - start),
	}
}

func wholeSeconds(seconds float64) int {
	if seconds <= 0 || math.IsNaN(seconds) {
		return 0
	}
	return int(math.Floor(seconds))
}
