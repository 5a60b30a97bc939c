package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/emotion-timeline/internal/classifier"
	"github.com/codebuildervaibhav/emotion-timeline/internal/deps"
	"github.com/codebuildervaibhav/emotion-timeline/internal/storage"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
	warmupTimeout    = 2 * time.Minute
)

// RunLister reads the analysis run log
type RunLister interface {
	GetAnalysis(jobID string) (*storage.AnalysisRecord, error)
	ListAnalyses(limit int) ([]storage.AnalysisRecord, error)
}

// StatusHandler serves health, warmup and run log endpoints
type StatusHandler struct {
	version  string
	model    classifier.Classifier
	runs     RunLister
	checkFor []deps.Requirement
}

// NewStatusHandler creates a status handler. runs may be nil.
func NewStatusHandler(version string, model classifier.Classifier, runs RunLister, requirements []deps.Requirement) *StatusHandler {
	return &StatusHandler{
		version:  version,
		model:    model,
		runs:     runs,
		checkFor: requirements,
	}
}

// Health reports liveness and external dependency availability
func (h *StatusHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":       "healthy",
		"version":      h.version,
		"dependencies": deps.CheckBinaries(h.checkFor),
	})
}

// Warmup asks the classifier to load its model ahead of the first request
func (h *StatusHandler) Warmup(c *fiber.Ctx) error {
	warmer, ok := h.model.(classifier.Warmer)
	if !ok {
		return c.JSON(fiber.Map{"status": "ready", "message": "classifier needs no warmup"})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), warmupTimeout)
	defer cancel()

	started := time.Now()
	if err := warmer.Warmup(ctx); err != nil {
		log.Warnf("Classifier warmup failed: %v", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unavailable",
			"error":  err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"status":  "ready",
		"elapsed": time.Since(started).Round(time.Millisecond).String(),
	})
}

// Analyses lists recent runs, newest first
func (h *StatusHandler) Analyses(c *fiber.Ctx) error {
	if h.runs == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Run log disabled"})
	}

	limit := c.QueryInt("limit", defaultListLimit)
	if limit < 1 || limit > maxListLimit {
		limit = defaultListLimit
	}

	runs, err := h.runs.ListAnalyses(limit)
	if err != nil {
		log.Printf("Failed to list analyses: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list analyses"})
	}
	return c.JSON(runs)
}

// Analysis returns the run log entry for one job
func (h *StatusHandler) Analysis(c *fiber.Ctx) error {
	if h.runs == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Run log disabled"})
	}

	rec, err := h.runs.GetAnalysis(c.Params("id"))
	if errors.Is(err, storage.ErrAnalysisNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Analysis not found"})
	}
	if err != nil {
		log.Printf("Failed to read analysis: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to read analysis"})
	}
	return c.JSON(rec)
}
