// Command vocab enriches vocabulary terms from the command line or serves the
// enrichment pipeline over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/vocab-enricher/pkg/config"
	"github.com/Sternrassler/vocab-enricher/pkg/logging"
)

var version = "dev"

type globalOptions struct {
	configFile string
	output     outputFormat
	debug      bool

	cfg *config.Config
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "vocab: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{output: outputText}

	root := &cobra.Command{
		Use:           "vocab",
		Short:         "Enrich vocabulary terms with definitions, audio and translations",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configFile)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if opts.debug {
				cfg.Log.Level = string(logging.LevelDebug)
			}
			logging.Setup(cfg.LoggingConfig())
			opts.cfg = cfg
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "config file path (default ./config.yaml or $HOME/.config/vocab-enricher/config.yaml)")
	flags.Var(&opts.output, "output", fmt.Sprintf("output format, one of %v", allOutputFormats))
	flags.BoolVar(&opts.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newEnrichCommand(opts),
		newBatchCommand(opts),
		newPurgeCommand(opts),
		newServeCommand(opts),
	)
	return root
}
