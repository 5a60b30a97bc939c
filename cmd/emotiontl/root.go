package main

import (
	"github.com/spf13/cobra"

	"github.com/codebuildervaibhav/emotion-timeline/internal/config"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

// loadConfig reads the configuration and routes logs to the command's stderr.
// Logs stay at warn unless --verbose is set so they don't bury the timeline.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadOptional(o.configPath)
	if err != nil {
		return nil, err
	}

	logging := cfg.Logging
	if o.verbose {
		logging.Level = "debug"
	} else {
		logging.Level = "warn"
	}
	if err := logging.Apply(cmd.ErrOrStderr()); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "emotiontl",
		Short:         "Emotion timeline for audio recordings",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.DefaultPath, "Configuration file path")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Show debug logs")

	rootCmd.AddCommand(newAnalyzeCommand(opts))
	rootCmd.AddCommand(newCheckCommand(opts))

	return rootCmd
}
