package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/codebuildervaibhav/emotion-timeline/internal/analysis"
	"github.com/codebuildervaibhav/emotion-timeline/internal/audio"
	"github.com/codebuildervaibhav/emotion-timeline/internal/config"
	"github.com/codebuildervaibhav/emotion-timeline/internal/queue"
	"github.com/codebuildervaibhav/emotion-timeline/internal/storage"
	"github.com/codebuildervaibhav/emotion-timeline/internal/timeline"
	"github.com/codebuildervaibhav/emotion-timeline/internal/types"
)

func newAnalyzeCommand(opts *rootOptions) *cobra.Command {
	var (
		jsonOutput  bool
		progress    bool
		maxDuration float64
		chunk       float64
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "analyze <audio-file>",
		Short: "Print the emotion timeline of a recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("chunk") {
				cfg.Analysis.ChunkSeconds = chunk
			}
			if cmd.Flags().Changed("concurrency") {
				cfg.Classifier.Concurrency = concurrency
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			path := args[0]
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("audio file: %w", err)
			}

			pool, closeAll, err := newLocalPool(cfg)
			if err != nil {
				return err
			}
			defer closeAll()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			job := queue.NewJob(ctx, uuid.New().String(), filepath.Base(path), types.SourceCLI, path)
			job.MaxDuration = maxDuration
			if progress {
				colorize := shouldColorize(cmd.ErrOrStderr())
				job.OnWindow = func(r timeline.WindowResult) {
					fmt.Fprintln(cmd.ErrOrStderr(), renderWindowLine(r, colorize))
				}
			}

			result, err := pool.Submit(ctx, job)
			if err != nil {
				return userError(err)
			}

			if jsonOutput {
				return writeJSON(cmd, result)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), renderTimeline(result, shouldColorize(cmd.OutOrStdout())))
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Write the result as JSON")
	cmd.Flags().BoolVarP(&progress, "progress", "p", false, "Report each window on stderr as it is classified")
	cmd.Flags().Float64Var(&maxDuration, "max-duration", 0, "Reject recordings longer than this many seconds (cannot exceed the configured limit)")
	cmd.Flags().Float64Var(&chunk, "chunk", timeline.DefaultChunkSize, "Window length in seconds")
	cmd.Flags().IntVar(&concurrency, "concurrency", 1, "Windows classified in parallel")

	return cmd
}

// newLocalPool wires a single-worker pool around the pipeline so CLI runs
// land in the same run log as server runs.
func newLocalPool(cfg *config.Config) (*queue.WorkerPool, func(), error) {
	converted, err := storage.NewArtifactStore(cfg.Storage.ConvertedDir, cfg.Storage.MaxConvertedFiles)
	if err != nil {
		return nil, nil, err
	}

	normalizer := audio.NewNormalizer(converted, cfg.Analysis.FFmpeg, cfg.Analysis.SampleRate)
	pipeline, err := analysis.NewPipeline(normalizer, cfg.Classifier.Build(), cfg.Storage.TempDir, cfg.AnalysisOptions())
	if err != nil {
		return nil, nil, err
	}

	var (
		runLog queue.RunLog
		db     *storage.MetadataDB
	)
	if cfg.Storage.Database != "" {
		db, err = storage.NewMetadataDB(cfg.Storage.Database)
		if err != nil {
			return nil, nil, err
		}
		runLog = db
	}

	pool := queue.NewWorkerPool(1, 1, pipeline, runLog)
	pool.Start()
	return pool, func() {
		pool.Stop()
		if db != nil {
			db.Close()
		}
	}, nil
}

// userError keeps the underlying error for unexpected failures and uses the
// short message for the expected ones.
func userError(err error) error {
	switch analysis.ErrorClass(err) {
	case analysis.ClassInternal, analysis.ClassCanceled:
		return err
	default:
		return errors.New(analysis.UserMessage(err))
	}
}
