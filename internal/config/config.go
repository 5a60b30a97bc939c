// Package config loads service settings from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/codebuildervaibhav/emotion-timeline/internal/analysis"
	"github.com/codebuildervaibhav/emotion-timeline/internal/audio"
	"github.com/codebuildervaibhav/emotion-timeline/internal/classifier"
	"github.com/codebuildervaibhav/emotion-timeline/internal/storage"
	"github.com/codebuildervaibhav/emotion-timeline/internal/timeline"
)

// DefaultPath is where the server looks for its configuration
const DefaultPath = "config/config.yaml"

// Classifier backends
const (
	BackendHTTP    = "http"
	BackendCommand = "command"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port int    `yaml:"port"`
		Host string `yaml:"host"`
	} `yaml:"server"`

	Classifier Classifier `yaml:"classifier"`

	Analysis struct {
		ChunkSeconds       float64 `yaml:"chunk_seconds"`
		MaxDurationSeconds float64 `yaml:"max_duration_seconds"`
		SampleRate         int     `yaml:"sample_rate"`
		FFmpeg             string  `yaml:"ffmpeg"`
	} `yaml:"analysis"`

	Workers struct {
		Count     int `yaml:"count"`
		QueueSize int `yaml:"queue_size"`
	} `yaml:"workers"`

	Storage struct {
		UploadDir         string `yaml:"upload_dir"`
		ConvertedDir      string `yaml:"converted_dir"`
		TempDir           string `yaml:"temp_dir"`
		Database          string `yaml:"database"`
		MaxConvertedFiles int    `yaml:"max_converted_files"`
		MaxUploadFiles    int    `yaml:"max_upload_files"`
	} `yaml:"storage"`

	Cleanup struct {
		IntervalMinutes int `yaml:"interval_minutes"`
		MaxAgeMinutes   int `yaml:"max_age_minutes"`
	} `yaml:"cleanup"`

	Limits struct {
		MaxFileSizeMB int `yaml:"max_file_size_mb"`
	} `yaml:"limits"`

	Logging Logging `yaml:"logging"`
}

// Classifier selects and configures the emotion model backend
type Classifier struct {
	Backend        string            `yaml:"backend"`
	URL            string            `yaml:"url"`
	TimeoutSeconds int               `yaml:"timeout_seconds"`
	Command        string            `yaml:"command"`
	Args           []string          `yaml:"args"`
	Concurrency    int               `yaml:"concurrency"`
	Labels         map[string]string `yaml:"labels"`
}

// Logging controls logrus output
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// env holds the overrides read from the environment. Keys carry the
// EMOTION_ prefix; the port also honours a bare PORT.
type env struct {
	Port              int     `envconfig:"PORT"`
	ServerHost        string  `split_words:"true"`
	ClassifierBackend string  `split_words:"true"`
	ClassifierURL     string  `split_words:"true"`
	ClassifierCommand string  `split_words:"true"`
	MaxDuration       float64 `split_words:"true"`
	Workers           int
	Database          string
	LogLevel          string `split_words:"true"`
	LogFormat         string `split_words:"true"`
}

// Default returns the built-in configuration
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Port = 5000
	cfg.Server.Host = "0.0.0.0"

	cfg.Classifier.Backend = BackendHTTP
	cfg.Classifier.URL = "http://127.0.0.1:8500"
	cfg.Classifier.TimeoutSeconds = 60
	cfg.Classifier.Concurrency = 1

	cfg.Analysis.ChunkSeconds = timeline.DefaultChunkSize
	cfg.Analysis.MaxDurationSeconds = audio.DefaultMaxDuration
	cfg.Analysis.FFmpeg = audio.DefaultFFmpeg

	cfg.Workers.Count = 1
	cfg.Workers.QueueSize = 16

	cfg.Storage.UploadDir = "uploads"
	cfg.Storage.ConvertedDir = "converted_audio"
	cfg.Storage.TempDir = "temp_audio"
	cfg.Storage.Database = "analyses.db"
	cfg.Storage.MaxConvertedFiles = storage.DefaultMaxConvertedFiles
	cfg.Storage.MaxUploadFiles = storage.DefaultMaxUploadFiles

	cfg.Cleanup.IntervalMinutes = 15
	cfg.Cleanup.MaxAgeMinutes = 60

	cfg.Limits.MaxFileSizeMB = 25

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"
	return cfg
}

// Load reads path (if non-empty) over the defaults, then applies .env and
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		file, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.Classifier.Backend = strings.ToLower(strings.TrimSpace(cfg.Classifier.Backend))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOptional behaves like Load but falls back to defaults when path is
// DefaultPath and no such file exists.
func LoadOptional(path string) (*Config, error) {
	if path == DefaultPath {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			log.Debugf("No config file at %s, using defaults", path)
			path = ""
		}
	}
	return Load(path)
}

func (c *Config) applyEnv() error {
	var e env
	if err := envconfig.Process("emotion", &e); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}

	if e.Port != 0 {
		c.Server.Port = e.Port
	}
	if e.ServerHost != "" {
		c.Server.Host = e.ServerHost
	}
	if e.ClassifierBackend != "" {
		c.Classifier.Backend = e.ClassifierBackend
	}
	if e.ClassifierURL != "" {
		c.Classifier.URL = e.ClassifierURL
	}
	if e.ClassifierCommand != "" {
		c.Classifier.Command = e.ClassifierCommand
	}
	if e.MaxDuration != 0 {
		c.Analysis.MaxDurationSeconds = e.MaxDuration
	}
	if e.Workers != 0 {
		c.Workers.Count = e.Workers
	}
	if e.Database != "" {
		c.Storage.Database = e.Database
	}
	if e.LogLevel != "" {
		c.Logging.Level = e.LogLevel
	}
	if e.LogFormat != "" {
		c.Logging.Format = e.LogFormat
	}
	return nil
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	switch c.Classifier.Backend {
	case BackendHTTP:
		if strings.TrimSpace(c.Classifier.URL) == "" {
			return errors.New("classifier.url is required for the http backend")
		}
	case BackendCommand:
		if strings.TrimSpace(c.Classifier.Command) == "" {
			return errors.New("classifier.command is required for the command backend")
		}
	default:
		return fmt.Errorf("unknown classifier backend %q", c.Classifier.Backend)
	}

	switch {
	case c.Server.Port <= 0 || c.Server.Port > 65535:
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	case c.Analysis.ChunkSeconds <= 0:
		return errors.New("analysis.chunk_seconds must be positive")
	case c.Analysis.MaxDurationSeconds < 0:
		return errors.New("analysis.max_duration_seconds cannot be negative")
	case c.Workers.Count < 1:
		return errors.New("workers.count must be at least 1")
	case c.Limits.MaxFileSizeMB < 1:
		return errors.New("limits.max_file_size_mb must be at least 1")
	case c.Storage.UploadDir == "" || c.Storage.ConvertedDir == "" || c.Storage.TempDir == "":
		return errors.New("storage directories must be set")
	}
	return nil
}

// AnalysisOptions converts the analysis section for the pipeline
func (c *Config) AnalysisOptions() analysis.Options {
	concurrency := c.Classifier.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return analysis.Options{
		ChunkSize:   c.Analysis.ChunkSeconds,
		MaxDuration: c.Analysis.MaxDurationSeconds,
		Concurrency: concurrency,
	}
}

// Timeout returns the per-request classifier timeout
func (c Classifier) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Build constructs the configured backend with the label map applied
func (c Classifier) Build() classifier.Classifier {
	var model classifier.Classifier
	switch c.Backend {
	case BackendCommand:
		model = classifier.NewCommandClassifier(c.Command, c.Args...).WithTimeout(c.Timeout())
	default:
		model = classifier.NewHTTPClassifier(c.URL, c.Timeout())
		log.Printf("Using HTTP classifier: %s", c.URL)
	}
	return classifier.WithLabels(model, c.Labels)
}

// Apply configures the global logrus logger to write to out
func (l Logging) Apply(out io.Writer) error {
	level, err := log.ParseLevel(l.Level)
	if err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	log.SetLevel(level)
	log.SetOutput(out)

	switch strings.ToLower(l.Format) {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		return fmt.Errorf("logging.format %q not supported", l.Format)
	}
	return nil
}
