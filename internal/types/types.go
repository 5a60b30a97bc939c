package types

import "time"

// Job status constants
const (
	StatusQueued     = "QUEUED"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// Source type constants
const (
	SourceUpload = "upload"
	SourceStream = "stream"
	SourceCLI    = "cli"
)

// UnknownEmotion is reported when no window produced a label
const UnknownEmotion = "unknown"

// EmotionInterval is one contiguous run of the same detected emotion
type EmotionInterval struct {
	Time     string `json:"time"`
	Emotion  string `json:"emotion"`
	Duration string `json:"duration"`
}

// AnalysisResult represents the output of one emotion analysis
type AnalysisResult struct {
	JobID          string            `json:"job_id"`
	Intervals      []EmotionInterval `json:"intervals"`
	Duration       float64           `json:"duration_seconds"`
	Windows        int               `json:"windows"`
	SkippedWindows int               `json:"skipped_windows"`
	UniqueEmotions int               `json:"unique_emotions"`
	ProcessedAt    time.Time         `json:"processed_at"`
}
