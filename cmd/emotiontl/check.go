package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/codebuildervaibhav/emotion-timeline/internal/classifier"
	"github.com/codebuildervaibhav/emotion-timeline/internal/config"
	"github.com/codebuildervaibhav/emotion-timeline/internal/deps"
)

func newCheckCommand(opts *rootOptions) *cobra.Command {
	var (
		warmup  bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report external dependencies and classifier reachability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			lines := renderSectionHeader("Dependencies", colorize)
			statuses := deps.CheckBinaries(requirements(cfg))
			healthy := true
			for _, s := range statuses {
				lines = append(lines, renderDependency(s, colorize))
				if !s.Available && !s.Optional {
					healthy = false
				}
			}

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Classifier", colorize)...)
			lines = append(lines, renderStatusLine("Backend", statusInfo, describeBackend(cfg.Classifier), colorize))
			if warmup {
				ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
				defer cancel()
				if err := warmClassifier(ctx, cfg.Classifier.Build()); err != nil {
					lines = append(lines, renderStatusLine("Warmup", statusError, err.Error(), colorize))
					healthy = false
				} else {
					lines = append(lines, renderStatusLine("Warmup", statusOK, "ready", colorize))
				}
			}

			if _, err := fmt.Fprintln(out, strings.Join(lines, "\n")); err != nil {
				return err
			}
			if !healthy {
				return errors.New("required dependencies are unavailable")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&warmup, "warmup", false, "Ask the classifier to load its model")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Warmup timeout")

	return cmd
}

func requirements(cfg *config.Config) []deps.Requirement {
	reqs := []deps.Requirement{deps.FFmpeg(cfg.Analysis.FFmpeg)}
	if cfg.Classifier.Backend == config.BackendCommand {
		reqs = append(reqs, deps.Requirement{
			Name:        "Classifier",
			Command:     cfg.Classifier.Command,
			Description: "Emotion model invoked once per window",
		})
	}
	return reqs
}

func describeBackend(c config.Classifier) string {
	if c.Backend == config.BackendCommand {
		return strings.TrimSpace(c.Command + " " + strings.Join(c.Args, " "))
	}
	return c.URL
}

func warmClassifier(ctx context.Context, c classifier.Classifier) error {
	w, ok := c.(classifier.Warmer)
	if !ok {
		return nil
	}
	return w.Warmup(ctx)
}

func renderDependency(s deps.Status, colorize bool) string {
	switch {
	case s.Available:
		return renderStatusLine(s.Name, statusOK, s.Path, colorize)
	case s.Optional:
		return renderStatusLine(s.Name, statusWarn, s.Detail+" (optional: "+s.Description+")", colorize)
	default:
		return renderStatusLine(s.Name, statusError, s.Detail, colorize)
	}
}
