package classifier

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultHTTPTimeout bounds a single classification request.
const DefaultHTTPTimeout = 60 * time.Second

// HTTPClassifier posts clips to an emotion recognition service.
//
// The service accepts a multipart form with the clip in the "audio" field on
// POST {baseURL}/classify and answers with a Response body. GET {baseURL}/health
// must return 200 once the model is loaded.
type HTTPClassifier struct {
	baseURL string
	c       *http.Client
}

var _ Classifier = (*HTTPClassifier)(nil)
var _ Warmer = (*HTTPClassifier)(nil)

// NewHTTPClassifier creates a client for the service at baseURL.
func NewHTTPClassifier(baseURL string, timeout time.Duration) *HTTPClassifier {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	return &HTTPClassifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		c:       &http.Client{Timeout: timeout},
	}
}

// Classify uploads the clip and returns the service's top label.
func (h *HTTPClassifier) Classify(ctx context.Context, clipPath string) (Prediction, error) {
	body, contentType, err := clipForm(clipPath)
	if err != nil {
		return Prediction{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/classify", body)
	if err != nil {
		return Prediction{}, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := h.c.Do(req)
	if err != nil {
		return Prediction{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Prediction{}, fmt.Errorf("classify %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}

	return decodeResponse(resp.Body)
}

// Warmup checks that the service is up and its model is loaded.
func (h *HTTPClassifier) Warmup(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := h.c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("classifier health %s", resp.Status)
	}
	return nil
}

func clipForm(clipPath string) (*bytes.Buffer, string, error) {
	f, err := os.Open(clipPath)
	if err != nil {
		return nil, "", fmt.Errorf("open clip: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("audio", filepath.Base(clipPath))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("read clip: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}
