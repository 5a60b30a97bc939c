package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
	log "github.com/sirupsen/logrus"
)

// Default quotas for the managed directories
const (
	DefaultMaxConvertedFiles = 10
	DefaultMaxUploadFiles    = 5
)

const lockFileName = ".evict.lock"

// Artifact is one file held in an ArtifactStore
type Artifact struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

// ArtifactStore is a directory capped at a fixed number of files, evicting
// the least recently modified first.
type ArtifactStore struct {
	dir   string
	quota int
	now   func() time.Time
	lock  *flock.Flock
}

// ArtifactOption customises an ArtifactStore
type ArtifactOption func(*ArtifactStore)

// WithClock sets the time source used when stamping new artifacts
func WithClock(now func() time.Time) ArtifactOption {
	return func(s *ArtifactStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewArtifactStore creates dir if needed. A quota of zero or less disables eviction.
func NewArtifactStore(dir string, quota int, opts ...ArtifactOption) (*ArtifactStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory %s: %w", dir, err)
	}

	s := &ArtifactStore{
		dir:   dir,
		quota: quota,
		now:   time.Now,
		lock:  flock.New(filepath.Join(dir, lockFileName)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the managed directory
func (s *ArtifactStore) Dir() string {
	return s.dir
}

// Quota returns the maximum number of retained files
func (s *ArtifactStore) Quota() int {
	return s.quota
}

// Path joins name onto the managed directory
func (s *ArtifactStore) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// List returns the stored artifacts, oldest first
func (s *ArtifactStore) List() ([]Artifact, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	artifacts := make([]Artifact, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Removed between ReadDir and Info by a concurrent writer
			continue
		}
		artifacts = append(artifacts, Artifact{
			Name:    entry.Name(),
			Path:    filepath.Join(s.dir, entry.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(artifacts, func(i, j int) bool {
		if artifacts[i].ModTime.Equal(artifacts[j].ModTime) {
			return artifacts[i].Name < artifacts[j].Name
		}
		return artifacts[i].ModTime.Before(artifacts[j].ModTime)
	})
	return artifacts, nil
}

// MakeRoom evicts old artifacts so that writing name keeps the store within quota.
// An existing file called name is left alone since it is about to be overwritten.
func (s *ArtifactStore) MakeRoom(name string) {
	if s.quota <= 0 {
		return
	}
	s.evict(s.quota-1, name)
}

// Enforce evicts the oldest artifacts beyond the quota
func (s *ArtifactStore) Enforce() {
	if s.quota <= 0 {
		return
	}
	s.evict(s.quota, "")
}

// Stamp sets the artifact's modification time from the store clock
func (s *ArtifactStore) Stamp(path string) {
	t := s.now()
	if err := os.Chtimes(path, t, t); err != nil {
		log.Warnf("Failed to stamp artifact %s: %v", path, err)
	}
}

// evict removes the oldest artifacts, other than exclude, until at most keep remain.
// Errors are logged and swallowed.
func (s *ArtifactStore) evict(keep int, exclude string) int {
	if err := s.lock.Lock(); err != nil {
		log.Warnf("Artifact lock unavailable for %s, evicting without it: %v", s.dir, err)
	} else {
		defer func() {
			if err := s.lock.Unlock(); err != nil {
				log.Warnf("Failed to release artifact lock for %s: %v", s.dir, err)
			}
		}()
	}

	artifacts, err := s.List()
	if err != nil {
		log.Warnf("Cleanup warning: cannot list %s: %v", s.dir, err)
		return 0
	}

	candidates := artifacts[:0]
	for _, a := range artifacts {
		if a.Name != exclude {
			candidates = append(candidates, a)
		}
	}
	if len(candidates) <= keep {
		return 0
	}

	var removed int
	var freed int64
	for _, a := range candidates[:len(candidates)-keep] {
		if err := os.Remove(a.Path); err != nil && !os.IsNotExist(err) {
			log.Warnf("Cleanup warning: failed to delete %s: %v", a.Path, err)
			continue
		}
		removed++
		freed += a.Size
	}

	if removed > 0 {
		log.WithFields(log.Fields{
			"dir":     s.dir,
			"removed": removed,
			"freed":   freed,
		}).Info("Evicted old artifacts")
	}
	return removed
}
