package analysis

import (
	"context"
	"errors"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codebuildervaibhav/emotion-timeline/internal/audio"
	"github.com/codebuildervaibhav/emotion-timeline/internal/classifier"
	"github.com/codebuildervaibhav/emotion-timeline/internal/timeline"
	"github.com/codebuildervaibhav/emotion-timeline/internal/types"
)

const testRate = 100

type passthroughNormalizer struct {
	err error
}

func (n passthroughNormalizer) Normalize(_ context.Context, path string) (string, error) {
	if n.err != nil {
		return "", n.err
	}
	return path, nil
}

type countingRetainer struct {
	calls atomic.Int32
}

func (r *countingRetainer) Enforce() { r.calls.Add(1) }

// levelClassifier decodes the clip and labels it by its (constant) sample level,
// so the label depends on which window was written, not on call order.
type levelClassifier struct {
	labels   []string
	failures map[int]error
	panicAt  int
	calls    atomic.Int32
	mu       sync.Mutex
	seen     []string
}

func (c *levelClassifier) Classify(_ context.Context, clipPath string) (classifier.Prediction, error) {
	c.calls.Add(1)
	c.mu.Lock()
	c.seen = append(c.seen, clipPath)
	c.mu.Unlock()

	src, err := audio.Load(clipPath)
	if err != nil {
		return classifier.Prediction{}, err
	}
	idx := int(math.Round(float64(src.Samples[0])*10)) - 1
	if c.panicAt > 0 && idx == c.panicAt-1 {
		panic("model crashed")
	}
	if err, ok := c.failures[idx]; ok {
		return classifier.Prediction{}, err
	}
	return classifier.Prediction{Label: c.labels[idx], Score: 0.9}, nil
}

// levelSource builds a recording whose window i has constant level (i+1)/10.
func levelSource(durations ...float64) func(string) (*audio.Source, error) {
	return func(string) (*audio.Source, error) {
		var samples []float32
		for i, d := range durations {
			level := float32(i+1) / 10
			for j := 0; j < int(d*testRate); j++ {
				samples = append(samples, level)
			}
		}
		return &audio.Source{Samples: samples, SampleRate: testRate}, nil
	}
}

func newTestPipeline(t *testing.T, c classifier.Classifier, load func(string) (*audio.Source, error), opts Options, extra ...Option) (*Pipeline, string) {
	t.Helper()
	tempDir := t.TempDir()
	options := append([]Option{WithLoader(load)}, extra...)
	p, err := NewPipeline(passthroughNormalizer{}, c, tempDir, opts, options...)
	require.NoError(t, err)
	return p, tempDir
}

func assertNoClips(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "stray clip files left behind")
}

func TestAnalyzeMergesWindows(t *testing.T) {
	c := &levelClassifier{labels: []string{"happy", "happy", "sad"}}
	p, tempDir := newTestPipeline(t, c, levelSource(5, 5, 5), DefaultOptions())

	var progress []timeline.WindowResult
	got, err := p.Analyze(context.Background(), Request{
		Path:     "memo.wav",
		OnWindow: func(r timeline.WindowResult) { progress = append(progress, r) },
	})
	require.NoError(t, err)

	assert.Equal(t, []types.EmotionInterval{
		{Time: "0:00", Emotion: "happy", Duration: "10s"},
		{Time: "0:10", Emotion: "sad", Duration: "5s"},
	}, got.Intervals)
	assert.Equal(t, 3, got.Windows)
	assert.Equal(t, 0, got.SkippedWindows)
	assert.Equal(t, 2, got.UniqueEmotions)
	assert.InDelta(t, 15, got.Duration, 1e-9)
	assert.Len(t, progress, 3)
	assert.EqualValues(t, 3, c.calls.Load())
	assertNoClips(t, tempDir)
}

func TestAnalyzeUniqueClipNames(t *testing.T) {
	c := &levelClassifier{labels: []string{"a", "b", "c", "d"}}
	p, _ := newTestPipeline(t, c, levelSource(5, 5, 5, 5), DefaultOptions())

	_, err := p.Analyze(context.Background(), Request{Path: "memo.wav"})
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, path := range c.seen {
		assert.False(t, seen[path], "clip name reused: %s", path)
		seen[path] = true
	}
}

func TestAnalyzeAllWindowsFail(t *testing.T) {
	boom := errors.New("inference failed")
	c := &levelClassifier{
		labels:   []string{"x", "x"},
		failures: map[int]error{0: boom, 1: boom},
	}
	p, tempDir := newTestPipeline(t, c, levelSource(5, 3), DefaultOptions())

	got, err := p.Analyze(context.Background(), Request{Path: "memo.wav"})
	require.NoError(t, err)

	assert.Equal(t, []types.EmotionInterval{{Time: "0:00", Emotion: "unknown", Duration: "0s"}}, got.Intervals)
	assert.Equal(t, 2, got.SkippedWindows)
	assertNoClips(t, tempDir)
}

func TestAnalyzeSkipsFailedWindow(t *testing.T) {
	c := &levelClassifier{
		labels:   []string{"neu", "ang", "neu"},
		failures: map[int]error{1: errors.New("timeout")},
	}
	p, tempDir := newTestPipeline(t, c, levelSource(5, 5, 5), DefaultOptions())

	var skipped []timeline.WindowResult
	got, err := p.Analyze(context.Background(), Request{
		Path: "memo.wav",
		OnWindow: func(r timeline.WindowResult) {
			if r.Outcome == timeline.Skipped {
				skipped = append(skipped, r)
			}
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []types.EmotionInterval{{Time: "0:00", Emotion: "neu", Duration: "15s"}}, got.Intervals)
	require.Len(t, skipped, 1)
	var werr *WindowError
	require.ErrorAs(t, skipped[0].Reason, &werr)
	assert.Equal(t, "classify", werr.Stage)
	assert.Equal(t, 1, werr.Window.Index)
	assertNoClips(t, tempDir)
}

func TestAnalyzeRecoversClassifierPanic(t *testing.T) {
	c := &levelClassifier{labels: []string{"hap", "hap"}, panicAt: 2}
	p, tempDir := newTestPipeline(t, c, levelSource(5, 5), DefaultOptions())

	got, err := p.Analyze(context.Background(), Request{Path: "memo.wav"})
	require.NoError(t, err)
	assert.Equal(t, []types.EmotionInterval{{Time: "0:00", Emotion: "hap", Duration: "10s"}}, got.Intervals)
	assert.Equal(t, 1, got.SkippedWindows)
	assertNoClips(t, tempDir)
}

func TestAnalyzeZeroDuration(t *testing.T) {
	c := &levelClassifier{}
	p, _ := newTestPipeline(t, c, levelSource(), DefaultOptions())

	got, err := p.Analyze(context.Background(), Request{Path: "silence.wav"})
	require.NoError(t, err)

	assert.Equal(t, []types.EmotionInterval{{Time: "0:00", Emotion: "unknown", Duration: "0s"}}, got.Intervals)
	assert.Equal(t, 0, got.Windows)
	assert.EqualValues(t, 0, c.calls.Load())
}

func TestAnalyzeRejectsLongAudioBeforeClassifying(t *testing.T) {
	c := &levelClassifier{labels: make([]string, 25)}
	p, _ := newTestPipeline(t, c, levelSource(121), DefaultOptions())

	_, err := p.Analyze(context.Background(), Request{Path: "long.wav"})
	require.Error(t, err)
	assert.ErrorIs(t, err, audio.ErrDurationExceeded)
	assert.Equal(t, ClassTooLong, ErrorClass(err))
	assert.EqualValues(t, 0, c.calls.Load())
}

func TestAnalyzeRequestLowersLimit(t *testing.T) {
	c := &levelClassifier{labels: []string{"a"}}
	p, _ := newTestPipeline(t, c, levelSource(90), DefaultOptions())

	_, err := p.Analyze(context.Background(), Request{Path: "a.wav", MaxDuration: 60})
	var exceeded audio.DurationExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, 60.0, exceeded.Limit)

	// A request cannot raise the configured ceiling
	assert.Equal(t, 120.0, p.maxDuration(600))
	assert.Equal(t, 120.0, p.maxDuration(0))
}

func TestAnalyzeParallelPreservesOrder(t *testing.T) {
	labels := []string{"neu", "neu", "hap", "hap", "sad", "neu"}
	c := &levelClassifier{labels: labels}
	opts := DefaultOptions()
	opts.Concurrency = 4
	p, tempDir := newTestPipeline(t, c, levelSource(5, 5, 5, 5, 5, 2), opts)

	got, err := p.Analyze(context.Background(), Request{Path: "memo.wav"})
	require.NoError(t, err)

	assert.Equal(t, []types.EmotionInterval{
		{Time: "0:00", Emotion: "neu", Duration: "10s"},
		{Time: "0:10", Emotion: "hap", Duration: "10s"},
		{Time: "0:20", Emotion: "sad", Duration: "5s"},
		{Time: "0:25", Emotion: "neu", Duration: "2s"},
	}, got.Intervals)
	assert.EqualValues(t, 6, c.calls.Load())
	assertNoClips(t, tempDir)
}

func TestAnalyzeCancelled(t *testing.T) {
	c := &levelClassifier{labels: []string{"a", "b"}}
	p, _ := newTestPipeline(t, c, levelSource(5, 5), DefaultOptions())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Analyze(ctx, Request{Path: "memo.wav"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, ClassCanceled, ErrorClass(err))
	assert.EqualValues(t, 0, c.calls.Load())
}

func TestAnalyzeEnforcesUploadRetention(t *testing.T) {
	retainer := &countingRetainer{}

	ok := &levelClassifier{labels: []string{"a"}}
	p, _ := newTestPipeline(t, ok, levelSource(5), DefaultOptions(), WithUploadRetention(retainer))
	_, err := p.Analyze(context.Background(), Request{Path: "a.wav"})
	require.NoError(t, err)

	failing, err := NewPipeline(passthroughNormalizer{err: audio.DependencyMissingError{Tool: "ffmpeg"}}, ok, t.TempDir(),
		DefaultOptions(), WithUploadRetention(retainer))
	require.NoError(t, err)
	_, err = failing.Analyze(context.Background(), Request{Path: "a.mp3"})
	assert.ErrorIs(t, err, audio.ErrDependencyMissing)

	assert.EqualValues(t, 2, retainer.calls.Load())
}

func TestNewPipelineRequiresCollaborators(t *testing.T) {
	_, err := NewPipeline(nil, &levelClassifier{}, t.TempDir(), DefaultOptions())
	assert.Error(t, err)
	_, err = NewPipeline(passthroughNormalizer{}, nil, t.TempDir(), DefaultOptions())
	assert.Error(t, err)
}
