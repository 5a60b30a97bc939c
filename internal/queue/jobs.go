package queue

import (
	"context"
	"time"

	"github.com/codebuildervaibhav/emotion-timeline/internal/timeline"
	"github.com/codebuildervaibhav/emotion-timeline/internal/types"
)

// Job represents an emotion analysis job
type Job struct {
	ID          string
	RequestName string
	SourceType  string
	FilePath    string
	MaxDuration float64
	OnWindow    func(timeline.WindowResult)
	Status      string
	Error       error
	Result      *types.AnalysisResult
	CreatedAt   time.Time

	ctx  context.Context
	done chan struct{}
}

// NewJob creates a new job with default values. The job is abandoned when
// ctx is cancelled.
func NewJob(ctx context.Context, id, requestName, sourceType, filePath string) *Job {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Job{
		ID:          id,
		RequestName: requestName,
		SourceType:  sourceType,
		FilePath:    filePath,
		Status:      types.StatusQueued,
		CreatedAt:   time.Now(),
		ctx:         ctx,
		done:        make(chan struct{}),
	}
}

// Done is closed once the job has finished, successfully or not
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job finishes or ctx is done
func (j *Job) Wait(ctx context.Context) (*types.AnalysisResult, error) {
	select {
	case <-j.done:
		return j.Result, j.Error
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (j *Job) finish(result *types.AnalysisResult, err error) {
	j.Result = result
	j.Error = err
	if err != nil {
		j.Status = types.StatusFailed
	} else {
		j.Status = types.StatusCompleted
	}
	close(j.done)
}
