// Package cleanup periodically removes stray window clips.
package cleanup

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Scheduler removes clip files left behind in the temp directory, e.g. by a
// crash between writing a clip and deleting it.
type Scheduler struct {
	tempDir  string
	interval time.Duration
	maxAge   time.Duration
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewScheduler creates a new cleanup scheduler
func NewScheduler(tempDir string, intervalMinutes, maxAgeMinutes int) *Scheduler {
	if intervalMinutes < 1 {
		intervalMinutes = 1
	}
	return &Scheduler{
		tempDir:  tempDir,
		interval: time.Duration(intervalMinutes) * time.Minute,
		maxAge:   time.Duration(maxAgeMinutes) * time.Minute,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start runs one sweep immediately and then one per interval
func (s *Scheduler) Start() {
	log.Println("Running initial temp clip cleanup...")
	s.Sweep(time.Now())

	ticker := time.NewTicker(s.interval)
	go func() {
		defer close(s.doneChan)
		for {
			select {
			case now := <-ticker.C:
				s.Sweep(now)
			case <-s.stopChan:
				ticker.Stop()
				return
			}
		}
	}()

	log.Printf("Cleanup scheduler started (interval: %s, max age: %s)", s.interval, s.maxAge)
}

// Stop stops the cleanup scheduler
func (s *Scheduler) Stop() {
	close(s.stopChan)
	<-s.doneChan
	log.Println("Cleanup scheduler stopped")
}

// Sweep removes files older than the max age as of now and returns how many
// were deleted.
func (s *Scheduler) Sweep(now time.Time) int {
	entries, err := os.ReadDir(s.tempDir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Error during cleanup: %v", err)
		}
		return 0
	}

	var deletedCount int
	var deletedSize int64
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		age := now.Sub(info.ModTime())
		if age <= s.maxAge {
			continue
		}

		path := filepath.Join(s.tempDir, entry.Name())
		if err := os.Remove(path); err != nil {
			if !os.IsNotExist(err) {
				log.Printf("Failed to delete stray clip %s: %v", path, err)
			}
			continue
		}
		deletedCount++
		deletedSize += info.Size()
		log.Debugf("Deleted stray clip: %s (age: %s)", entry.Name(), age.Round(time.Minute))
	}

	if deletedCount > 0 {
		log.Printf("Cleanup complete: %d files deleted, %.2fMB freed",
			deletedCount, float64(deletedSize)/(1024*1024))
	}
	return deletedCount
}

// EnsureDirs creates each directory if it doesn't exist
func EnsureDirs(dirs ...string) error {
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
		log.Printf("Directory ready: %s", dir)
	}
	return nil
}
