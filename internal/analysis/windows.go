package analysis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/codebuildervaibhav/emotion-timeline/internal/audio"
	"github.com/codebuildervaibhav/emotion-timeline/internal/timeline"
)

// WindowError explains why a window was skipped.
type WindowError struct {
	Window timeline.Window
	Stage  string
	Err    error
}

func (e *WindowError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Window, e.Stage, e.Err)
}

func (e *WindowError) Unwrap() error {
	return e.Err
}

// classifyWindows returns one result per window, in window order.
func (p *Pipeline) classifyWindows(ctx context.Context, src *audio.Source, windows []timeline.Window, onWindow func(timeline.WindowResult)) ([]timeline.WindowResult, error) {
	results := make([]timeline.WindowResult, len(windows))
	if onWindow == nil {
		onWindow = func(timeline.WindowResult) {}
	}

	if p.opts.Concurrency <= 1 || len(windows) <= 1 {
		for i, w := range windows {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			results[i] = p.classifyWindow(ctx, src, w)
			onWindow(results[i])
		}
		return results, nil
	}

	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	g.SetLimit(p.opts.Concurrency)
	for i, w := range windows {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = timeline.SkippedResult(w, err)
				return nil
			}
			results[i] = p.classifyWindow(ctx, src, w)
			mu.Lock()
			onWindow(results[i])
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// classifyWindow writes the window to a uniquely named clip, classifies it
// and removes the clip on every path.
func (p *Pipeline) classifyWindow(ctx context.Context, src *audio.Source, w timeline.Window) (result timeline.WindowResult) {
	skip := func(stage string, err error) timeline.WindowResult {
		werr := &WindowError{Window: w, Stage: stage, Err: err}
		log.WithFields(log.Fields{
			"window": w.Index,
			"start":  w.Start,
			"end":    w.End,
			"stage":  stage,
		}).Warnf("Chunk error: %v", err)
		return timeline.SkippedResult(w, werr)
	}

	defer func() {
		if r := recover(); r != nil {
			result = skip("classify", fmt.Errorf("panic: %v", r))
		}
	}()

	clip, err := src.Slice(w.Start, w.End)
	if err != nil {
		return skip("slice", err)
	}

	clipPath := filepath.Join(p.tempDir, uuid.New().String()+audio.CanonicalExt)
	defer removeClip(clipPath)

	if err := audio.WriteClip(clipPath, clip, src.SampleRate); err != nil {
		return skip("write", err)
	}

	pred, err := p.classifier.Classify(ctx, clipPath)
	if err != nil {
		return skip("classify", err)
	}
	label := strings.TrimSpace(pred.Label)
	if label == "" {
		return skip("classify", errors.New("empty label"))
	}

	log.WithFields(log.Fields{
		"window": w.Index,
		"label":  label,
		"score":  pred.Score,
	}).Debug("Window classified")
	return timeline.ClassifiedResult(w, label)
}

func removeClip(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warnf("Failed to cleanup temp clip %s: %v", path, err)
	}
}
