package main

import (
	"strings"
	"sync"
)

// LogBuffer captures logs in memory
type LogBuffer struct {
	lines []string
	limit int
	mu    sync.Mutex
}

// NewLogBuffer keeps the last limit log lines
func NewLogBuffer(limit int) *LogBuffer {
	if limit < 1 {
		limit = 1
	}
	return &LogBuffer{
		lines: make([]string, 0, limit),
		limit: limit,
	}
}

func (lb *LogBuffer) Write(p []byte) (n int, err error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.lines = append(lb.lines, strings.TrimRight(string(p), "\n"))
	if len(lb.lines) > lb.limit {
		lb.lines = lb.lines[len(lb.lines)-lb.limit:]
	}

	return len(p), nil
}

// GetLogs returns a copy of the buffered lines, oldest first
func (lb *LogBuffer) GetLogs() []string {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	logs := make([]string, len(lb.lines))
	copy(logs, lb.lines)
	return logs
}
