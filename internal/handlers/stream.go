package handlers

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/emotion-timeline/internal/analysis"
	"github.com/codebuildervaibhav/emotion-timeline/internal/audio"
	"github.com/codebuildervaibhav/emotion-timeline/internal/queue"
	"github.com/codebuildervaibhav/emotion-timeline/internal/timeline"
	"github.com/codebuildervaibhav/emotion-timeline/internal/types"
)

const (
	streamEndSignal   = "END"
	streamDefaultName = "stream_recording.webm"
)

// Event is one JSON message sent to a streaming client
type Event struct {
	Type    string                `json:"type"`
	JobID   string                `json:"job_id,omitempty"`
	Window  *WindowEvent          `json:"window,omitempty"`
	Result  *types.AnalysisResult `json:"result,omitempty"`
	Error   string                `json:"error,omitempty"`
	Code    string                `json:"code,omitempty"`
	Message string                `json:"message,omitempty"`
}

// WindowEvent reports the outcome of one classified window
type WindowEvent struct {
	Index   int     `json:"index"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Outcome string  `json:"outcome"`
	Label   string  `json:"label,omitempty"`
}

func windowEvent(r timeline.WindowResult) *WindowEvent {
	return &WindowEvent{
		Index:   r.Window.Index,
		Start:   r.Window.Start,
		End:     r.Window.End,
		Outcome: r.Outcome.String(),
		Label:   r.Label,
	}
}

// StreamHandler handles WebSocket audio uploads
type StreamHandler struct {
	pool      Submitter
	uploadDir string
	maxSizeMB int
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(pool Submitter, uploadDir string, maxSizeMB int) *StreamHandler {
	return &StreamHandler{
		pool:      pool,
		uploadDir: uploadDir,
		maxSizeMB: maxSizeMB,
	}
}

// Handle buffers binary frames until END, then analyzes the recording and
// sends one "window" event per window followed by the "result".
// A text frame other than END names the recording.
func (h *StreamHandler) Handle(c *websocket.Conn) {
	defer c.Close()

	var (
		buffer  bytes.Buffer
		name    = streamDefaultName
		jobID   = uuid.New().String()
		maxSize = h.maxSizeMB * 1024 * 1024
	)

	log.Printf("WebSocket connection established: %s", jobID)

	for {
		messageType, message, err := c.ReadMessage()
		if err != nil {
			log.Printf("WebSocket read error: %v", err)
			return
		}

		if messageType == websocket.TextMessage {
			msg := strings.TrimSpace(string(message))
			if msg == streamEndSignal {
				log.Printf("Received END signal, processing stream %s", jobID)
				break
			}
			candidate := sanitizeName(msg)
			if candidate == "" || len(candidate) > 200 || !validStreamName(candidate) {
				h.send(c, Event{Type: "error", Error: "Unsupported audio format", Code: "ERR_INVALID_FORMAT"})
				return
			}
			name = candidate
			continue
		}

		if messageType == websocket.BinaryMessage {
			if buffer.Len()+len(message) > maxSize {
				h.send(c, Event{
					Type:  "error",
					Error: fmt.Sprintf("File too large (max %dMB)", h.maxSizeMB),
					Code:  "ERR_FILE_TOO_LARGE",
				})
				return
			}
			buffer.Write(message)
		}
	}

	if buffer.Len() == 0 {
		log.Printf("No audio data received in stream %s", jobID)
		h.send(c, Event{Type: "error", Error: "No audio data received", Code: "ERR_NO_FILE"})
		return
	}

	uploadPath := filepath.Join(h.uploadDir, jobID+"_"+name)
	if err := os.WriteFile(uploadPath, buffer.Bytes(), 0644); err != nil {
		log.Printf("Failed to save stream buffer: %v", err)
		h.send(c, Event{Type: "error", Error: "Failed to save file", Code: "ERR_SAVE_FAILED"})
		return
	}
	log.Printf("Stream saved to %s (%d bytes)", uploadPath, buffer.Len())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	job := queue.NewJob(ctx, jobID, name, types.SourceStream, uploadPath)
	job.OnWindow = func(r timeline.WindowResult) {
		if !h.send(c, Event{Type: "window", JobID: jobID, Window: windowEvent(r)}) {
			cancel()
		}
	}

	h.send(c, Event{Type: "queued", JobID: jobID})
	result, err := h.pool.Submit(ctx, job)
	if err != nil {
		_, code := errorStatus(err)
		h.send(c, Event{Type: "error", JobID: jobID, Error: analysis.UserMessage(err), Code: code})
		return
	}
	h.send(c, Event{Type: "result", JobID: jobID, Result: result})
}

// send writes ev and reports whether the client is still reachable
func (h *StreamHandler) send(c *websocket.Conn, ev Event) bool {
	if err := c.WriteJSON(ev); err != nil {
		log.Printf("WebSocket write error: %v", err)
		return false
	}
	return true
}

func validStreamName(name string) bool {
	return audio.ValidateAudioFormat(name) || strings.EqualFold(filepath.Ext(name), ".webm")
}
