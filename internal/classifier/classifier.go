// Package classifier adapts emotion recognition backends to a single
// "classify this clip" call.
package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNoPrediction is returned when a backend answers without any label.
var ErrNoPrediction = errors.New("classifier returned no prediction")

// Classifier labels the emotion of a short WAV clip.
type Classifier interface {
	Classify(ctx context.Context, clipPath string) (Prediction, error)
}

// Warmer is implemented by backends that can be checked or preloaded.
type Warmer interface {
	Warmup(ctx context.Context) error
}

// Prediction is the top label for a clip.
type Prediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Score is one label/probability pair reported by a backend.
type Score struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Response is the JSON body both the HTTP and command backends produce.
type Response struct {
	Emotions        []Score `json:"emotions"`
	DominantEmotion string  `json:"dominant_emotion"`
}

// Top picks the dominant emotion, falling back to the highest scored label.
func (r Response) Top() (Prediction, error) {
	if label := strings.TrimSpace(r.DominantEmotion); label != "" {
		p := Prediction{Label: label}
		for _, s := range r.Emotions {
			if s.Label == label {
				p.Score = s.Score
				break
			}
		}
		return p, nil
	}

	var best *Score
	for i := range r.Emotions {
		s := &r.Emotions[i]
		if strings.TrimSpace(s.Label) == "" {
			continue
		}
		if best == nil || s.Score > best.Score {
			best = s
		}
	}
	if best == nil {
		return Prediction{}, ErrNoPrediction
	}
	return Prediction{Label: strings.TrimSpace(best.Label), Score: best.Score}, nil
}

func decodeResponse(r io.Reader) (Prediction, error) {
	var out Response
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return Prediction{}, fmt.Errorf("classifier decode: %w", err)
	}
	return out.Top()
}

// Relabeled renames backend labels, e.g. "hap" to "happy". Unmapped labels pass through.
type Relabeled struct {
	Classifier
	labels map[string]string
}

// WithLabels wraps c so its labels are translated through labels.
func WithLabels(c Classifier, labels map[string]string) Classifier {
	if len(labels) == 0 {
		return c
	}
	return &Relabeled{Classifier: c, labels: labels}
}

func (r *Relabeled) Classify(ctx context.Context, clipPath string) (Prediction, error) {
	p, err := r.Classifier.Classify(ctx, clipPath)
	if err != nil {
		return p, err
	}
	if mapped, ok := r.labels[p.Label]; ok {
		p.Label = mapped
	}
	return p, nil
}

// Warmup forwards to the wrapped classifier when it supports warming.
func (r *Relabeled) Warmup(ctx context.Context) error {
	if w, ok := r.Classifier.(Warmer); ok {
		return w.Warmup(ctx)
	}
	return nil
}
