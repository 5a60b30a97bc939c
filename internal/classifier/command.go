package classifier

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// CommandClassifier runs a local inference program once per clip.
//
// The program receives the clip path as its last argument and prints a
// Response JSON document on stdout. Runs are serialised because local model
// runtimes are rarely safe to execute concurrently on a small host.
type CommandClassifier struct {
	command string
	args    []string
	timeout time.Duration
	mu      sync.Mutex
}

var _ Classifier = (*CommandClassifier)(nil)
var _ Warmer = (*CommandClassifier)(nil)

// NewCommandClassifier creates a classifier invoking command with args.
func NewCommandClassifier(command string, args ...string) *CommandClassifier {
	log.Printf("Emotion model will be called via: %s %s", command, strings.Join(args, " "))
	return &CommandClassifier{
		command: command,
		args:    args,
	}
}

// WithTimeout bounds each run of the program. Zero disables the limit.
func (cc *CommandClassifier) WithTimeout(d time.Duration) *CommandClassifier {
	cc.timeout = d
	return cc
}

// Classify runs the inference program on clipPath.
func (cc *CommandClassifier) Classify(ctx context.Context, clipPath string) (Prediction, error) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	absPath, err := filepath.Abs(clipPath)
	if err != nil {
		return Prediction{}, fmt.Errorf("failed to get absolute path: %w", err)
	}

	if cc.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cc.timeout)
		defer cancel()
	}

	args := append(append([]string{}, cc.args...), absPath)
	cmd := exec.CommandContext(ctx, cc.command, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return Prediction{}, fmt.Errorf("emotion model failed: %w\nOutput: %s", err, strings.TrimSpace(stderr.String()))
	}

	return decodeResponse(&stdout)
}

// Warmup verifies the inference program is installed.
func (cc *CommandClassifier) Warmup(ctx context.Context) error {
	if _, err := exec.LookPath(cc.command); err != nil {
		return fmt.Errorf("emotion model command %q not found: %w", cc.command, err)
	}
	return nil
}
