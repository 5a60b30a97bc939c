package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

// CanonicalExt is the container the rest of the pipeline decodes.
const CanonicalExt = ".wav"

// DefaultFFmpeg is the conversion binary looked up on PATH.
const DefaultFFmpeg = "ffmpeg"

// SupportedFormats lists the upload extensions the service accepts.
var SupportedFormats = []string{".wav", ".mp3", ".m4a", ".flac", ".ogg"}

// ArtifactStore is the managed directory converted files are written into.
type ArtifactStore interface {
	Dir() string
	MakeRoom(name string)
	Stamp(path string)
}

// Normalizer converts uploads to WAV using ffmpeg.
type Normalizer struct {
	ffmpeg     string
	sampleRate int
	store      ArtifactStore
	lookPath   func(string) (string, error)
}

// NewNormalizer creates a normalizer writing into store. An empty ffmpeg
// name selects DefaultFFmpeg; sampleRate 0 keeps the source rate.
func NewNormalizer(store ArtifactStore, ffmpeg string, sampleRate int) *Normalizer {
	if strings.TrimSpace(ffmpeg) == "" {
		ffmpeg = DefaultFFmpeg
	}
	return &Normalizer{
		ffmpeg:     ffmpeg,
		sampleRate: sampleRate,
		store:      store,
		lookPath:   exec.LookPath,
	}
}

// Normalize returns a WAV path for inputPath. WAV inputs are returned as-is.
func (n *Normalizer) Normalize(ctx context.Context, inputPath string) (string, error) {
	if strings.EqualFold(filepath.Ext(inputPath), CanonicalExt) {
		return inputPath, nil
	}

	ffmpegPath, err := n.lookPath(n.ffmpeg)
	if err != nil {
		return "", DependencyMissingError{Tool: n.ffmpeg}
	}

	name := ConvertedName(inputPath)
	outputPath := filepath.Join(n.store.Dir(), name)
	n.store.MakeRoom(name)

	cmd := exec.CommandContext(ctx, ffmpegPath, n.ffmpegArgs(inputPath, outputPath)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if rmErr := os.Remove(outputPath); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Warnf("Failed to remove partial conversion %s: %v", outputPath, rmErr)
		}
		return "", &ConversionFailedError{
			Path: inputPath,
			Err:  fmt.Errorf("ffmpeg failed: %w\nOutput: %s", err, strings.TrimSpace(string(output))),
		}
	}

	n.store.Stamp(outputPath)
	log.Printf("Converted %s -> %s", filepath.Base(inputPath), outputPath)
	return outputPath, nil
}

func (n *Normalizer) ffmpegArgs(inputPath, outputPath string) []string {
	args := []string{
		"-i", inputPath,
		"-vn",      // Drop any video stream
		"-ac", "1", // Mono
	}
	if n.sampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(n.sampleRate))
	}
	return append(args,
		"-c:a", "pcm_s16le", // 16-bit PCM
		"-y", // Overwrite output
		outputPath,
	)
}

// ConvertedName derives the converted file name from the input's base name.
func ConvertedName(inputPath string) string {
	base := filepath.Base(inputPath)
	return strings.TrimSuffix(base, filepath.Ext(base)) + CanonicalExt
}

// ValidateAudioFormat checks if the file format is supported
func ValidateAudioFormat(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, format := range SupportedFormats {
		if ext == format {
			return true
		}
	}
	return false
}
