// Package queue runs analysis jobs on a fixed pool of workers.
package queue

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/emotion-timeline/internal/analysis"
	"github.com/codebuildervaibhav/emotion-timeline/internal/storage"
	"github.com/codebuildervaibhav/emotion-timeline/internal/types"
)

// ErrPoolStopped is returned when enqueueing after Stop
var ErrPoolStopped = errors.New("worker pool stopped")

// Analyzer runs one analysis
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (*types.AnalysisResult, error)
}

// RunLog records finished runs
type RunLog interface {
	SaveAnalysis(rec storage.AnalysisRecord) error
}

// WorkerPool manages a pool of workers processing analysis jobs
type WorkerPool struct {
	jobQueue    chan *Job
	workerCount int
	analyzer    Analyzer
	db          RunLog

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewWorkerPool creates a new worker pool. db may be nil.
func NewWorkerPool(workerCount, queueSize int, analyzer Analyzer, db RunLog) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	return &WorkerPool{
		jobQueue:    make(chan *Job, queueSize),
		workerCount: workerCount,
		analyzer:    analyzer,
		db:          db,
	}
}

// Start initializes all workers
func (wp *WorkerPool) Start() {
	log.Printf("Starting worker pool with %d workers", wp.workerCount)
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop stops accepting jobs and waits for queued ones to drain
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if wp.stopped {
		wp.mu.Unlock()
		return
	}
	wp.stopped = true
	close(wp.jobQueue)
	wp.mu.Unlock()

	wp.wg.Wait()
	log.Println("Worker pool stopped")
}

// Enqueue adds a job to the queue, blocking while the queue is full
func (wp *WorkerPool) Enqueue(ctx context.Context, job *Job) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.stopped {
		return ErrPoolStopped
	}

	job.Status = types.StatusQueued
	job.CreatedAt = time.Now()
	select {
	case wp.jobQueue <- job:
	case <-ctx.Done():
		return ctx.Err()
	}
	log.Printf("Job %s enqueued (source: %s, name: %s)", job.ID, job.SourceType, job.RequestName)
	return nil
}

// Submit enqueues job and waits for its result
func (wp *WorkerPool) Submit(ctx context.Context, job *Job) (*types.AnalysisResult, error) {
	if err := wp.Enqueue(ctx, job); err != nil {
		return nil, err
	}
	return job.Wait(ctx)
}

// worker processes jobs from the queue
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()
	log.Printf("Worker %d started", id)

	for job := range wp.jobQueue {
		wp.runJob(id, job)
	}
}

func (wp *WorkerPool) runJob(id int, job *Job) {
	var (
		result *types.AnalysisResult
		err    error
	)
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Worker %d: PANIC processing job %s: %v\n%s", id, job.ID, r, string(debug.Stack()))
			result, err = nil, fmt.Errorf("worker panic: %v", r)
		}
		job.finish(result, err)
		wp.record(job)
	}()

	result, err = wp.processJob(id, job)
}

// processJob runs the analysis pipeline for one job
func (wp *WorkerPool) processJob(workerID int, job *Job) (*types.AnalysisResult, error) {
	if err := job.ctx.Err(); err != nil {
		log.Printf("Worker %d: Job %s abandoned before start", workerID, job.ID)
		return nil, err
	}

	log.Printf("Worker %d: Processing job %s", workerID, job.ID)
	job.Status = types.StatusProcessing

	result, err := wp.analyzer.Analyze(job.ctx, analysis.Request{
		Path:        job.FilePath,
		MaxDuration: job.MaxDuration,
		OnWindow:    job.OnWindow,
	})
	if err != nil {
		log.WithField("class", analysis.ErrorClass(err)).
			Warnf("Worker %d: Analysis failed for job %s: %v", workerID, job.ID, err)
		return nil, err
	}

	result.JobID = job.ID
	log.Printf("Worker %d: Job %s completed (%d intervals, %d/%d windows skipped)",
		workerID, job.ID, len(result.Intervals), result.SkippedWindows, result.Windows)
	return result, nil
}

// record saves the run to the database, if one is configured
func (wp *WorkerPool) record(job *Job) {
	if wp.db == nil {
		return
	}

	rec := storage.AnalysisRecord{
		JobID:      job.ID,
		FileName:   job.RequestName,
		SourceType: job.SourceType,
		Status:     job.Status,
		ErrorClass: analysis.ErrorClass(job.Error),
		CreatedAt:  job.CreatedAt,
	}
	if job.Result != nil {
		rec.Duration = job.Result.Duration
		rec.Windows = job.Result.Windows
		rec.SkippedWindows = job.Result.SkippedWindows
		rec.Intervals = len(job.Result.Intervals)
	}

	if err := wp.db.SaveAnalysis(rec); err != nil {
		log.Printf("Database save failed for job %s: %v", job.ID, err)
	}
}
