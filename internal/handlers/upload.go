package handlers

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/emotion-timeline/internal/audio"
	"github.com/codebuildervaibhav/emotion-timeline/internal/queue"
	"github.com/codebuildervaibhav/emotion-timeline/internal/types"
)

// UploadHandler handles file uploads
type UploadHandler struct {
	pool      Submitter
	uploadDir string
	maxSizeMB int
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(pool Submitter, uploadDir string, maxSizeMB int) *UploadHandler {
	return &UploadHandler{
		pool:      pool,
		uploadDir: uploadDir,
		maxSizeMB: maxSizeMB,
	}
}

// Handle stores the uploaded recording, runs the analysis and returns the timeline
func (h *UploadHandler) Handle(c *fiber.Ctx) error {
	file, err := c.FormFile("audio")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No audio file uploaded",
			"code":  "ERR_NO_FILE",
		})
	}

	maxSize := int64(h.maxSizeMB) * 1024 * 1024
	if file.Size > maxSize {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"error": fmt.Sprintf("File too large (max %dMB)", h.maxSizeMB),
			"code":  "ERR_FILE_TOO_LARGE",
		})
	}

	name := sanitizeName(file.Filename)
	if name == "" || !audio.ValidateAudioFormat(name) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("Unsupported audio format (supported: %v)", audio.SupportedFormats),
			"code":  "ERR_INVALID_FORMAT",
		})
	}

	var maxDuration float64
	if raw := c.FormValue("max_duration"); raw != "" {
		maxDuration, err = strconv.ParseFloat(raw, 64)
		if err != nil || maxDuration <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "max_duration must be a positive number of seconds",
				"code":  "ERR_INVALID_MAX_DURATION",
			})
		}
	}

	jobID := uuid.New().String()
	uploadPath := filepath.Join(h.uploadDir, jobID+"_"+name)
	if err := c.SaveFile(file, uploadPath); err != nil {
		log.Printf("Failed to save uploaded file: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save file",
			"code":  "ERR_SAVE_FAILED",
		})
	}

	job := queue.NewJob(c.UserContext(), jobID, name, types.SourceUpload, uploadPath)
	job.MaxDuration = maxDuration

	result, err := h.pool.Submit(c.UserContext(), job)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}
