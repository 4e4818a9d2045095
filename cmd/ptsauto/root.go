package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ptsauto",
		Short: "ptsauto - unattended Phoronix Test Suite runs",
		Long: `ptsauto runs a Phoronix Test Suite benchmark without an operator.

It answers the tool's interactive prompts from a prompt script, saves the
results under a unique name and extracts the composite report into a flat
text summary.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newExtractCommand())
	cmd.AddCommand(newNameCommand())
	cmd.AddCommand(newScriptCommand())

	return cmd
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}
