// Package deps reports which external binaries the service can reach.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Requirement names an external binary and what it is used for.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a requirement.
type Status struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Path        string `json:"path,omitempty"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// CheckBinaries resolves each requirement on PATH.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		switch path, err := exec.LookPath(cmd); {
		case cmd == "":
			status.Detail = "command not configured"
		case err != nil:
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
		default:
			status.Available = true
			status.Path = path
		}
		results = append(results, status)
	}
	return results
}

// FFmpeg describes the converter used for non-WAV uploads. WAV input works
// without it, so it is optional.
func FFmpeg(command string) Requirement {
	return Requirement{
		Name:        "FFmpeg",
		Command:     command,
		Description: "Converts non-WAV uploads to mono PCM WAV",
		Optional:    true,
	}
}

// LogReport writes one line per status and reports whether every required
// dependency is available.
func LogReport(statuses []Status) bool {
	ok := true
	for _, s := range statuses {
		entry := log.WithFields(log.Fields{"dependency": s.Name, "command": s.Command})
		switch {
		case s.Available:
			entry.WithField("path", s.Path).Info("Dependency available")
		case s.Optional:
			entry.Warnf("Optional dependency unavailable: %s", s.Detail)
		default:
			entry.Errorf("Required dependency unavailable: %s", s.Detail)
			ok = false
		}
	}
	return ok
}
