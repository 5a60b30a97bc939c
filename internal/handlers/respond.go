// Package handlers exposes the analysis pipeline over HTTP and WebSocket.
package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/emotion-timeline/internal/analysis"
	"github.com/codebuildervaibhav/emotion-timeline/internal/queue"
	"github.com/codebuildervaibhav/emotion-timeline/internal/types"
)

// Submitter runs a job and waits for its result
type Submitter interface {
	Submit(ctx context.Context, job *queue.Job) (*types.AnalysisResult, error)
}

// errorStatus maps an analysis failure to an HTTP status and error code
func errorStatus(err error) (int, string) {
	switch analysis.ErrorClass(err) {
	case analysis.ClassTooLong:
		return fiber.StatusRequestEntityTooLarge, "ERR_TOO_LONG"
	case analysis.ClassDependencyMissing:
		return fiber.StatusServiceUnavailable, "ERR_DEPENDENCY_MISSING"
	case analysis.ClassConversionFailed:
		return fiber.StatusUnprocessableEntity, "ERR_CONVERSION_FAILED"
	case analysis.ClassCanceled:
		return fiber.StatusRequestTimeout, "ERR_CANCELED"
	default:
		return fiber.StatusInternalServerError, "ERR_PROCESSING_FAILED"
	}
}

func respondError(c *fiber.Ctx, err error) error {
	status, code := errorStatus(err)
	return c.Status(status).JSON(fiber.Map{
		"error": analysis.UserMessage(err),
		"code":  code,
	})
}

// sanitizeName reduces a client supplied file name to its base name
func sanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return ""
	}
	return name
}
