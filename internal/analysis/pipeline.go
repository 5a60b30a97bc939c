// Package analysis runs the chunked emotion inference pipeline: normalize,
// gate on duration, segment, classify each window, merge.
package analysis

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/emotion-timeline/internal/audio"
	"github.com/codebuildervaibhav/emotion-timeline/internal/classifier"
	"github.com/codebuildervaibhav/emotion-timeline/internal/timeline"
	"github.com/codebuildervaibhav/emotion-timeline/internal/types"
)

// Normalizer turns an upload into a decodable WAV path.
type Normalizer interface {
	Normalize(ctx context.Context, inputPath string) (string, error)
}

// Retainer trims a managed directory back to its quota.
type Retainer interface {
	Enforce()
}

// Options tunes the pipeline.
type Options struct {
	// ChunkSize is the window length in seconds.
	ChunkSize float64
	// MaxDuration is the longest accepted recording in seconds; 0 disables the check.
	MaxDuration float64
	// Concurrency bounds parallel window classification; 1 keeps strict sequential order.
	Concurrency int
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		ChunkSize:   timeline.DefaultChunkSize,
		MaxDuration: audio.DefaultMaxDuration,
		Concurrency: 1,
	}
}

// Request is one analysis invocation.
type Request struct {
	Path string
	// MaxDuration lowers the configured limit for this request when positive.
	MaxDuration float64
	// OnWindow, if set, is called once per window as results arrive.
	OnWindow func(timeline.WindowResult)
}

// Pipeline is safe for concurrent use when its classifier is.
type Pipeline struct {
	normalizer Normalizer
	classifier classifier.Classifier
	tempDir    string
	uploads    Retainer
	load       func(path string) (*audio.Source, error)
	opts       Options
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithUploadRetention trims the uploads directory after every analysis.
func WithUploadRetention(r Retainer) Option {
	return func(p *Pipeline) { p.uploads = r }
}

// WithLoader replaces the WAV decoder.
func WithLoader(load func(path string) (*audio.Source, error)) Option {
	return func(p *Pipeline) { p.load = load }
}

// NewPipeline wires the pipeline. Per-window clips are written under tempDir.
func NewPipeline(n Normalizer, c classifier.Classifier, tempDir string, opts Options, options ...Option) (*Pipeline, error) {
	if n == nil || c == nil {
		return nil, fmt.Errorf("pipeline requires a normalizer and a classifier")
	}
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = timeline.DefaultChunkSize
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}

	p := &Pipeline{
		normalizer: n,
		classifier: c,
		tempDir:    filepath.Clean(tempDir),
		load:       audio.Load,
		opts:       opts,
	}
	for _, opt := range options {
		opt(p)
	}
	return p, nil
}

// Analyze produces the emotion timeline for req.Path.
// Only dependency, conversion and duration failures (or ctx cancellation)
// are returned as errors; windows that fail to classify are skipped.
func (p *Pipeline) Analyze(ctx context.Context, req Request) (*types.AnalysisResult, error) {
	if p.uploads != nil {
		defer p.uploads.Enforce()
	}
	started := time.Now()

	wavPath, err := p.normalizer.Normalize(ctx, req.Path)
	if err != nil {
		return nil, err
	}

	src, err := p.load(wavPath)
	if err != nil {
		return nil, err
	}

	if err := audio.CheckDuration(src, p.maxDuration(req.MaxDuration)); err != nil {
		return nil, err
	}

	windows := timeline.Segment(src.Duration(), p.opts.ChunkSize)
	results, err := p.classifyWindows(ctx, src, windows, req.OnWindow)
	if err != nil {
		return nil, err
	}

	intervals := timeline.Merge(results)
	result := &types.AnalysisResult{
		Intervals:      intervals,
		Duration:       src.Duration(),
		Windows:        len(windows),
		SkippedWindows: timeline.CountSkipped(results),
		UniqueEmotions: timeline.UniqueEmotions(intervals),
		ProcessedAt:    time.Now(),
	}

	log.WithFields(log.Fields{
		"file":      filepath.Base(req.Path),
		"duration":  fmt.Sprintf("%.1fs", result.Duration),
		"windows":   result.Windows,
		"skipped":   result.SkippedWindows,
		"intervals": len(intervals),
		"elapsed":   time.Since(started).Round(time.Millisecond),
	}).Info("Analysis completed")

	return result, nil
}

func (p *Pipeline) maxDuration(requested float64) float64 {
	limit := p.opts.MaxDuration
	if requested > 0 && (limit <= 0 || requested < limit) {
		return requested
	}
	return limit
}
